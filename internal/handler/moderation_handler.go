package handler

import (
	"net/http"
	"strconv"

	"github.com/damoang/angple-editorial/internal/common"
	"github.com/damoang/angple-editorial/internal/domain"
	"github.com/damoang/angple-editorial/internal/service"
	"github.com/damoang/angple-editorial/pkg/ginutil"
	"github.com/gin-gonic/gin"
)

// ModerationHandler handles ad hoc moderation and the activity feed
type ModerationHandler struct {
	comments *service.CommentService
	activity *service.ActivityLogger
}

// NewModerationHandler creates a new ModerationHandler
func NewModerationHandler(comments *service.CommentService, activity *service.ActivityLogger) *ModerationHandler {
	return &ModerationHandler{comments: comments, activity: activity}
}

// Moderate handles POST /api/v1/moderation
// @Summary 텍스트 모더레이션 (저장하지 않음)
// @Tags scoring
// @Accept json
// @Produce json
// @Param request body domain.ModerateRequest true "본문"
// @Success 200 {object} common.APIResponse
// @Router /moderation [post]
func (h *ModerationHandler) Moderate(c *gin.Context) {
	var req domain.ModerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "요청 형식이 올바르지 않습니다", err)
		return
	}

	verdict := h.comments.Moderate(c.Request.Context(), req.Body)
	common.SuccessResponse(c, gin.H{
		"verdict":        verdict,
		"comment_status": verdict.CommentStatus(),
		"toxicity_score": verdict.ToxicityScore(),
	}, nil)
}

// ListActivity handles GET /api/v1/activity
// @Summary 최근 활동 로그
// @Tags activity
// @Produce json
// @Param action query string false "action 필터 (예: agent.dispatch)"
// @Param article_id query int false "기사 ID"
// @Param limit query int false "최대 건수"
// @Success 200 {object} common.APIResponse
// @Router /activity [get]
func (h *ModerationHandler) ListActivity(c *gin.Context) {
	limit := ginutil.QueryIntRange(c, "limit", 50, 1, 200)

	var articleID *int64
	if raw := c.Query("article_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			common.ErrorResponse(c, http.StatusBadRequest, "잘못된 기사 ID 입니다", err)
			return
		}
		articleID = &id
	}

	entries, err := h.activity.Recent(c.Request.Context(), c.Query("action"), articleID, limit)
	if err != nil {
		common.ErrorResponse(c, http.StatusInternalServerError, "활동 로그 조회 실패", err)
		return
	}

	common.SuccessResponse(c, entries, &common.Meta{Limit: limit})
}
