package handler

import (
	"net/http"
	"strings"

	"github.com/damoang/angple-editorial/internal/common"
	"github.com/damoang/angple-editorial/internal/domain"
	"github.com/damoang/angple-editorial/internal/service"
	"github.com/gin-gonic/gin"
)

// AgentHandler exposes the persona router over HTTP
type AgentHandler struct {
	router *service.AgentRouter
}

// NewAgentHandler creates a new AgentHandler
func NewAgentHandler(router *service.AgentRouter) *AgentHandler {
	return &AgentHandler{router: router}
}

// ListPersonas handles GET /api/v1/agents/personas
func (h *AgentHandler) ListPersonas(c *gin.Context) {
	common.SuccessResponse(c, h.router.Personas(), nil)
}

// Dispatch handles POST /api/v1/agents/dispatch
// @Summary 페르소나에게 명령 전달
// @Description 백엔드 실패 시에도 200 과 degraded 응답을 돌려준다
// @Tags agents
// @Accept json
// @Produce json
// @Param request body domain.DispatchRequest true "명령"
// @Success 200 {object} common.APIResponse
// @Router /agents/dispatch [post]
func (h *AgentHandler) Dispatch(c *gin.Context) {
	var req domain.DispatchRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Command) == "" {
		common.ErrorResponse(c, http.StatusBadRequest, "command 가 필요합니다", err)
		return
	}

	reply := h.router.Dispatch(c.Request.Context(), req.Persona, req.Command)
	common.SuccessResponse(c, reply, nil)
}

// Group handles POST /api/v1/agents/group
// @Summary 순차 그룹 세션
// @Tags agents
// @Accept json
// @Produce json
// @Param request body domain.GroupRequest true "명령"
// @Success 200 {object} common.APIResponse
// @Router /agents/group [post]
func (h *AgentHandler) Group(c *gin.Context) {
	var req domain.GroupRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Command) == "" {
		common.ErrorResponse(c, http.StatusBadRequest, "command 가 필요합니다", err)
		return
	}

	turns := h.router.DispatchGroup(c.Request.Context(), req.Command)
	common.SuccessResponse(c, turns, nil)
}

// Ping handles GET /api/v1/agents/ping/:class
// @Summary 백엔드 클래스 상태 확인
// @Tags agents
// @Produce json
// @Param class path string true "proxy|gemini"
// @Success 200 {object} common.APIResponse
// @Router /agents/ping/{class} [get]
func (h *AgentHandler) Ping(c *gin.Context) {
	result := h.router.Ping(c.Request.Context(), c.Param("class"))
	common.SuccessResponse(c, result, nil)
}
