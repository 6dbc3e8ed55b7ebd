package routes

import (
	"github.com/damoang/angple-editorial/internal/config"
	"github.com/damoang/angple-editorial/internal/handler"
	"github.com/damoang/angple-editorial/internal/middleware"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Setup configures all API routes
func Setup(
	router *gin.Engine,
	articleHandler *handler.ArticleHandler,
	agentHandler *handler.AgentHandler,
	moderationHandler *handler.ModerationHandler,
	cronHandler *handler.CronHandler,
	wsHandler *handler.WSHandler,
	cfg *config.Config,
	redisClient *redis.Client,
) {
	// Swagger UI
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := router.Group("/api/v1")

	// 모델 호출이 붙은 엔드포인트만 제한 (redisClient 가 nil 이면 통과)
	agentLimit := middleware.RateLimit(redisClient, middleware.RateLimitConfig{
		RequestsPerMinute: cfg.Limits.AgentsPerMinute,
		KeyPrefix:         "ratelimit:agents:",
		Message:           "에이전트 요청이 너무 많습니다. 잠시 후 다시 시도해주세요.",
	})
	commentLimit := middleware.RateLimit(redisClient, middleware.RateLimitConfig{
		RequestsPerMinute: cfg.Limits.CommentsPerMinute,
		KeyPrefix:         "ratelimit:comments:",
		Message:           "댓글 작성이 너무 잦습니다. 잠시 후 다시 시도해주세요.",
	})

	// Articles (기사 조회 / 게시 게이트)
	articles := api.Group("/articles")
	articles.GET("", articleHandler.ListArticles)
	articles.POST("/images/repair", articleHandler.RepairMissingImages) // 이미지 누락 기사 일괄 복구
	articles.GET("/:id", articleHandler.GetArticle)
	articles.GET("/:id/requirements", articleHandler.Requirements)
	articles.POST("/:id/publish", articleHandler.Publish)
	articles.POST("/:id/unpublish", articleHandler.Unpublish)
	articles.POST("/:id/transition", articleHandler.Transition)
	articles.POST("/:id/legal-review", articleHandler.LegalReview)
	articles.GET("/:id/evidence", articleHandler.ListEvidence)
	articles.POST("/:id/evidence", articleHandler.AttachEvidence)
	articles.POST("/:id/assess", articleHandler.Assess)
	articles.POST("/:id/image/repair", articleHandler.RepairImage)

	// 댓글 (제출 시 모더레이션)
	comments := articles.Group("/:id/comments")
	{
		comments.GET("", articleHandler.ListComments)
		comments.POST("", commentLimit, articleHandler.SubmitComment)
	}

	// Moderation & activity log
	api.POST("/moderation", commentLimit, moderationHandler.Moderate)
	api.GET("/activity", moderationHandler.ListActivity)
	api.GET("/activity/stream", wsHandler.Stream) // WebSocket

	// Agents (페르소나 라우팅)
	agents := api.Group("/agents")
	agents.GET("/personas", agentHandler.ListPersonas)
	agents.POST("/dispatch", agentLimit, agentHandler.Dispatch)
	agents.POST("/group", agentLimit, agentHandler.Group)
	agents.GET("/ping/:class", agentHandler.Ping)

	// Cron (Bearer 시크릿 필요)
	cron := api.Group("/cron", middleware.BearerSecret(cfg.Cron.Secret))
	cron.POST("/generate", cronHandler.Generate)
}
