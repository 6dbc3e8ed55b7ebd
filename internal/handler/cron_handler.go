package handler

import (
	"context"
	"net/http"

	"github.com/damoang/angple-editorial/internal/common"
	"github.com/damoang/angple-editorial/internal/domain"
	"github.com/damoang/angple-editorial/internal/service"
	"github.com/gin-gonic/gin"
)

// CronHandler handles the scheduled trigger
type CronHandler struct {
	job *service.CronJob
}

// NewCronHandler creates a new CronHandler
func NewCronHandler(job *service.CronJob) *CronHandler {
	return &CronHandler{job: job}
}

// Generate handles POST /api/v1/cron/generate
// @Summary 예약 실행 (초안 생성 + 이미지 복구 + 조회수 반영)
// @Tags cron
// @Accept json
// @Produce json
// @Param request body domain.CronGenerateRequest false "주제 목록 (생략 시 설정값)"
// @Success 200 {object} common.APIResponse
// @Failure 401 {object} common.APIResponse
// @Failure 409 {object} common.APIResponse
// @Security BearerAuth
// @Router /cron/generate [post]
func (h *CronHandler) Generate(c *gin.Context) {
	var req domain.CronGenerateRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			common.ErrorResponse(c, http.StatusBadRequest, "요청 형식이 올바르지 않습니다", err)
			return
		}
	}

	// 호출자가 끊겨도 배치는 끝까지 돈다
	report, ok := h.job.Run(context.WithoutCancel(c.Request.Context()), req.Topics)
	if !ok {
		common.ErrorResponse(c, http.StatusConflict, "이전 실행이 아직 진행 중입니다", nil)
		return
	}

	common.SuccessResponse(c, report, nil)
}
