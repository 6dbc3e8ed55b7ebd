package handler

import (
	"errors"
	"net/http"

	"github.com/damoang/angple-editorial/internal/common"
	"github.com/damoang/angple-editorial/internal/domain"
	"github.com/damoang/angple-editorial/internal/middleware"
	"github.com/damoang/angple-editorial/internal/repository"
	"github.com/damoang/angple-editorial/internal/service"
	"github.com/damoang/angple-editorial/pkg/ginutil"
	pkglogger "github.com/damoang/angple-editorial/pkg/logger"
	"github.com/gin-gonic/gin"
)

// ArticleHandler handles article read, gate and image requests
type ArticleHandler struct {
	articles *service.ArticleService
	gate     *service.PublishGate
	images   *service.ImageService
	comments *service.CommentService
}

// NewArticleHandler creates a new ArticleHandler
func NewArticleHandler(articles *service.ArticleService, gate *service.PublishGate, images *service.ImageService, comments *service.CommentService) *ArticleHandler {
	return &ArticleHandler{articles: articles, gate: gate, images: images, comments: comments}
}

// ListArticles handles GET /api/v1/articles
// @Summary 기사 목록
// @Tags articles
// @Produce json
// @Param status query string false "draft|review|scheduled|published|rejected"
// @Param category query string false "카테고리"
// @Param page query int false "페이지"
// @Param limit query int false "페이지 크기"
// @Success 200 {object} common.APIResponse
// @Router /articles [get]
func (h *ArticleHandler) ListArticles(c *gin.Context) {
	page := ginutil.QueryIntRange(c, "page", 1, 1, 10000)
	limit := ginutil.QueryIntRange(c, "limit", 20, 1, 100)

	filter := repository.ArticleFilter{Page: page, Limit: limit}
	if raw := c.Query("status"); raw != "" {
		status, err := domain.ParseArticleStatus(raw)
		if err != nil {
			common.ErrorResponse(c, http.StatusBadRequest, "알 수 없는 상태입니다", err)
			return
		}
		filter.Status = status
	}
	if raw := c.Query("category"); raw != "" {
		category := domain.Category(raw)
		if !category.IsValid() {
			common.ErrorResponse(c, http.StatusBadRequest, "알 수 없는 카테고리입니다", nil)
			return
		}
		filter.Category = category
	}

	articles, total, err := h.articles.ListArticles(c.Request.Context(), filter)
	if err != nil {
		common.ErrorResponse(c, http.StatusInternalServerError, "기사 목록 조회 실패", err)
		return
	}

	common.SuccessResponse(c, articles, &common.Meta{Page: page, Limit: limit, Total: total})
}

// GetArticle handles GET /api/v1/articles/:id
// @Summary 기사 조회 (조회수 +1)
// @Tags articles
// @Produce json
// @Param id path int true "기사 ID"
// @Success 200 {object} common.APIResponse
// @Failure 404 {object} common.APIResponse
// @Router /articles/{id} [get]
func (h *ArticleHandler) GetArticle(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	article, err := h.articles.GetArticle(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, err, "기사 조회 실패")
		return
	}

	common.SuccessResponse(c, article, nil)
}

// Requirements handles GET /api/v1/articles/:id/requirements
// @Summary 발행 요건 점검
// @Tags gate
// @Produce json
// @Param id path int true "기사 ID"
// @Success 200 {object} common.APIResponse
// @Router /articles/{id}/requirements [get]
func (h *ArticleHandler) Requirements(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	req, err := h.gate.Requirements(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, err, "발행 요건 점검 실패")
		return
	}

	common.SuccessResponse(c, req, nil)
}

// Publish handles POST /api/v1/articles/:id/publish
// @Summary 기사 발행
// @Description 요건 미충족 시 422 와 함께 누락 항목 전체를 돌려준다
// @Tags gate
// @Produce json
// @Param id path int true "기사 ID"
// @Success 200 {object} common.APIResponse
// @Failure 422 {object} common.APIResponse
// @Router /articles/{id}/publish [post]
func (h *ArticleHandler) Publish(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	article, err := h.gate.Publish(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, err, "기사 발행 실패")
		return
	}

	common.SuccessResponse(c, article, nil)
}

// Unpublish handles POST /api/v1/articles/:id/unpublish
// @Summary 발행 취소 (draft 로 복귀)
// @Tags gate
// @Produce json
// @Param id path int true "기사 ID"
// @Success 200 {object} common.APIResponse
// @Router /articles/{id}/unpublish [post]
func (h *ArticleHandler) Unpublish(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	article, err := h.gate.Unpublish(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, err, "발행 취소 실패")
		return
	}

	common.SuccessResponse(c, article, nil)
}

// Transition handles POST /api/v1/articles/:id/transition
// @Summary 상태 전이 (review, scheduled, rejected)
// @Tags gate
// @Accept json
// @Produce json
// @Param id path int true "기사 ID"
// @Param request body domain.TransitionRequest true "대상 상태"
// @Success 200 {object} common.APIResponse
// @Failure 409 {object} common.APIResponse
// @Router /articles/{id}/transition [post]
func (h *ArticleHandler) Transition(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req domain.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "요청 형식이 올바르지 않습니다", err)
		return
	}
	to, err := domain.ParseArticleStatus(req.Status)
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "알 수 없는 상태입니다", err)
		return
	}

	article, err := h.gate.Transition(c.Request.Context(), id, to)
	if err != nil {
		writeServiceError(c, err, "상태 전이 실패")
		return
	}

	common.SuccessResponse(c, article, nil)
}

// LegalReview handles POST /api/v1/articles/:id/legal-review
// @Summary 법무 검토 서명
// @Tags gate
// @Accept json
// @Produce json
// @Param id path int true "기사 ID"
// @Param request body domain.LegalSignOffRequest true "검토자"
// @Success 200 {object} common.APIResponse
// @Router /articles/{id}/legal-review [post]
func (h *ArticleHandler) LegalReview(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req domain.LegalSignOffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "요청 형식이 올바르지 않습니다", err)
		return
	}

	article, err := h.gate.LegalSignOff(c.Request.Context(), id, req.Reviewer)
	if err != nil {
		writeServiceError(c, err, "법무 검토 기록 실패")
		return
	}

	common.SuccessResponse(c, article, nil)
}

// AttachEvidence handles POST /api/v1/articles/:id/evidence
// @Summary 증거 자료 첨부
// @Tags articles
// @Accept json
// @Produce json
// @Param id path int true "기사 ID"
// @Param request body domain.AttachEvidenceRequest true "증거 자료"
// @Success 201 {object} common.APIResponse
// @Failure 400 {object} common.APIResponse
// @Failure 404 {object} common.APIResponse
// @Router /articles/{id}/evidence [post]
func (h *ArticleHandler) AttachEvidence(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req domain.AttachEvidenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "요청 형식이 올바르지 않습니다", err)
		return
	}

	evidence, err := h.gate.AttachEvidence(c.Request.Context(), id, req)
	if err != nil {
		writeServiceError(c, err, "증거 자료 첨부 실패")
		return
	}

	common.CreatedResponse(c, evidence)
}

// ListEvidence handles GET /api/v1/articles/:id/evidence
// @Summary 증거 자료 목록
// @Tags articles
// @Produce json
// @Param id path int true "기사 ID"
// @Success 200 {object} common.APIResponse
// @Router /articles/{id}/evidence [get]
func (h *ArticleHandler) ListEvidence(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	items, err := h.gate.ListEvidence(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, err, "증거 자료 조회 실패")
		return
	}

	common.SuccessResponse(c, items, nil)
}

// Assess handles POST /api/v1/articles/:id/assess
// @Summary 위험도 평가 후 저장
// @Tags scoring
// @Produce json
// @Param id path int true "기사 ID"
// @Success 200 {object} common.APIResponse
// @Router /articles/{id}/assess [post]
func (h *ArticleHandler) Assess(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	assessment, err := h.articles.AssessArticle(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, err, "위험도 평가 실패")
		return
	}

	common.SuccessResponse(c, assessment, nil)
}

// RepairImage handles POST /api/v1/articles/:id/image/repair
// @Summary 대표 이미지 재생성 (검증 포함)
// @Tags images
// @Produce json
// @Param id path int true "기사 ID"
// @Success 200 {object} common.APIResponse
// @Failure 502 {object} common.APIResponse
// @Router /articles/{id}/image/repair [post]
func (h *ArticleHandler) RepairImage(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	result, err := h.images.RepairImage(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, err, "이미지 복구 실패")
		return
	}

	common.SuccessResponse(c, result, nil)
}

// RepairMissingImages handles POST /api/v1/articles/images/repair
// @Summary 이미지 없는 기사 일괄 복구
// @Tags images
// @Produce json
// @Param limit query int false "최대 처리 건수"
// @Success 200 {object} common.APIResponse
// @Router /articles/images/repair [post]
func (h *ArticleHandler) RepairMissingImages(c *gin.Context) {
	limit := ginutil.QueryIntRange(c, "limit", 20, 1, 100)

	summary, err := h.images.RepairMissingImages(c.Request.Context(), limit)
	if err != nil {
		common.ErrorResponse(c, http.StatusInternalServerError, "일괄 이미지 복구 실패", err)
		return
	}

	common.SuccessResponse(c, summary, nil)
}

// SubmitComment handles POST /api/v1/articles/:id/comments
// @Summary 댓글 등록 (자동 모더레이션)
// @Tags comments
// @Accept json
// @Produce json
// @Param id path int true "기사 ID"
// @Param request body domain.CreateCommentRequest true "댓글"
// @Success 201 {object} common.APIResponse
// @Router /articles/{id}/comments [post]
func (h *ArticleHandler) SubmitComment(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req domain.CreateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "요청 형식이 올바르지 않습니다", err)
		return
	}

	result, err := h.comments.SubmitComment(c.Request.Context(), id, req.Author, req.Body)
	if err != nil {
		writeServiceError(c, err, "댓글 등록 실패")
		return
	}

	common.CreatedResponse(c, result)
}

// ListComments handles GET /api/v1/articles/:id/comments
// @Summary 댓글 목록 (기본: 승인된 댓글)
// @Tags comments
// @Produce json
// @Param id path int true "기사 ID"
// @Param status query string false "pending|approved|flagged|all"
// @Success 200 {object} common.APIResponse
// @Router /articles/{id}/comments [get]
func (h *ArticleHandler) ListComments(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	status := domain.CommentStatus(c.DefaultQuery("status", string(domain.CommentApproved)))
	if status == "all" {
		status = ""
	} else if !status.IsValid() {
		common.ErrorResponse(c, http.StatusBadRequest, "status 는 pending, approved, flagged, all 중 하나여야 합니다", nil)
		return
	}

	comments, err := h.comments.ListComments(c.Request.Context(), id, status)
	if err != nil {
		common.ErrorResponse(c, http.StatusInternalServerError, "댓글 조회 실패", err)
		return
	}

	common.SuccessResponse(c, comments, nil)
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := ginutil.ParamID(c, "id")
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "잘못된 기사 ID 입니다", err)
		return 0, false
	}
	return id, true
}

// writeServiceError maps service errors onto status codes
func writeServiceError(c *gin.Context, err error, fallbackMsg string) {
	var gateErr *service.GateError

	switch {
	case errors.As(err, &gateErr):
		common.ErrorResponseWithDetails(c, http.StatusUnprocessableEntity, "발행 요건을 충족하지 않습니다", gin.H{
			"missing":  gateErr.Missing,
			"warnings": gateErr.Warnings,
		})
	case errors.Is(err, common.ErrArticleNotFound):
		common.ErrorResponse(c, http.StatusNotFound, "기사를 찾을 수 없습니다", err)
	case errors.Is(err, common.ErrInvalidTransition):
		common.ErrorResponse(c, http.StatusConflict, err.Error(), err)
	case errors.Is(err, common.ErrInvalidInput):
		common.ErrorResponse(c, http.StatusBadRequest, err.Error(), err)
	case errors.Is(err, common.ErrImageChainExhausted):
		common.ErrorResponse(c, http.StatusBadGateway, "유효한 이미지를 찾지 못했습니다", err)
	default:
		_ = c.Error(err)
		reqLogger := pkglogger.WithRequestID(middleware.GetRequestID(c))
		reqLogger.Error().Err(err).Str("path", c.FullPath()).Msg(fallbackMsg)
		common.ErrorResponse(c, http.StatusInternalServerError, fallbackMsg, err)
	}
}
