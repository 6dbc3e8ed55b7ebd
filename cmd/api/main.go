package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/damoang/angple-editorial/internal/ai"
	"github.com/damoang/angple-editorial/internal/bot"
	"github.com/damoang/angple-editorial/internal/config"
	"github.com/damoang/angple-editorial/internal/handler"
	"github.com/damoang/angple-editorial/internal/middleware"
	"github.com/damoang/angple-editorial/internal/migration"
	"github.com/damoang/angple-editorial/internal/persona"
	"github.com/damoang/angple-editorial/internal/repository"
	"github.com/damoang/angple-editorial/internal/routes"
	"github.com/damoang/angple-editorial/internal/service"
	"github.com/damoang/angple-editorial/internal/ws"
	pkgcache "github.com/damoang/angple-editorial/pkg/cache"
	"github.com/damoang/angple-editorial/pkg/imagesource"
	pkglogger "github.com/damoang/angple-editorial/pkg/logger"
	pkgredis "github.com/damoang/angple-editorial/pkg/redis"
	"github.com/redis/go-redis/v9"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// @title           Angple Editorial API
// @version         1.0
// @description     Editorial pipeline: risk scoring, publish gate, image acquisition, agent desk
//
// @host            localhost:8082
// @BasePath        /api/v1
//
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

// getConfigPath returns config file path based on APP_ENV environment variable
func getConfigPath() string {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf("configs/config.%s.yaml", env)
}

func main() {
	dotenvFiles := config.LoadDotEnv()

	// 로거 초기화
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "local"
	}
	pkglogger.InitStructured(env)
	pkglogger.Info("APP_ENV=%s, loaded env files: %v", env, dotenvFiles)

	// 설정 로드
	configPath := getConfigPath()
	pkglogger.Info("Loading config from: %s", configPath)
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	config.LogResolved(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// MySQL 연결 (기사 저장소가 없으면 서비스가 의미 없으므로 fatal)
	db, err := initDB(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	pkglogger.Info("Connected to MySQL")
	if err := migration.Run(db); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	// Redis 연결 (선택)
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = pkgredis.NewClient(pkgredis.Options{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err != nil {
			pkglogger.Warn("Failed to connect to Redis: %v (view counts go straight to DB)", err)
			redisClient = nil
		} else {
			pkglogger.Info("Connected to Redis")
			defer redisClient.Close()
		}
	}
	cacheService := pkgcache.NewService(redisClient)

	// AI backends
	proxyClient := ai.NewProxyClient(cfg.Oracle.BaseURL, cfg.Oracle.APIKey, cfg.Oracle.Model, cfg.Oracle.Timeout)
	backends := map[string]ai.Backend{ai.ClassProxy: proxyClient}
	if cfg.Gemini.APIKey != "" {
		geminiClient, err := ai.NewGeminiClient(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model)
		if err != nil {
			pkglogger.Warn("Gemini client init failed: %v (gemini personas will degrade)", err)
		} else {
			backends[ai.ClassGemini] = geminiClient
		}
	} else {
		pkglogger.Info("GEMINI_API_KEY not set, gemini personas will degrade")
	}

	// Repositories
	articleRepo := repository.NewArticleRepository(db)
	evidenceRepo := repository.NewEvidenceRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	activityRepo := repository.NewActivityLogRepository(db)

	// Services
	activityLogger := service.NewActivityLogger(activityRepo)

	// 활동 로그 실시간 피드 (Redis 가 있으면 인스턴스 간 공유)
	hostname, _ := os.Hostname()
	activityHub := ws.NewHub(redisClient, fmt.Sprintf("%s-%d", hostname, os.Getpid()))
	go activityHub.Run()
	defer activityHub.Stop()
	activityLogger.SetPublisher(activityHub)
	riskScorer := service.NewRiskScorer(proxyClient, service.RiskScorerOptions{
		LegalReviewThreshold: cfg.Risk.LegalReviewThreshold,
		FlagThreshold:        cfg.Risk.FlagThreshold,
		CallTimeout:          cfg.Oracle.Timeout,
	})
	imageService := service.NewImageService(
		[]imagesource.Provider{
			imagesource.NewGenerativeProvider(cfg.Image.GenerativeBaseURL, cfg.Image.Width, cfg.Image.Height),
		},
		imagesource.NewKeywordProvider(cfg.Image.FallbackBaseURL, cfg.Image.Width, cfg.Image.Height),
		imagesource.NewValidator(cfg.Image.ValidationTimeout),
		articleRepo,
		activityLogger,
		service.ImageServiceOptions{
			Retries:    cfg.Image.Retries,
			RetryDelay: cfg.Image.RetryDelay,
			BatchDelay: cfg.Image.BatchDelay,
			Cache:      cacheService,
		},
	)
	publishGate := service.NewPublishGate(articleRepo, evidenceRepo, activityLogger, cacheService)
	articleService := service.NewArticleService(articleRepo, riskScorer, cacheService, activityLogger)
	commentService := service.NewCommentService(commentRepo, articleRepo, riskScorer, activityLogger)
	generationService := service.NewGenerationService(proxyClient, riskScorer, imageService, articleRepo, activityLogger, cfg.Cron.BatchDelay)
	agentRouter := service.NewAgentRouter(
		persona.NewRegistry(ai.ClassProxy, ai.ClassGemini),
		backends,
		activityLogger,
		service.AgentRouterOptions{},
	)
	cronJob := service.NewCronJob(generationService, imageService, articleService, cfg.Cron.Topics, cfg.Image.BatchLimit)

	// 내부 스케줄러 (외부 cron 이 /api/v1/cron/generate 를 호출하는 경우 비워둔다)
	if cfg.Cron.Schedule != "" {
		scheduler, err := cronJob.Schedule(cfg.Cron.Schedule)
		if err != nil {
			log.Fatalf("Invalid cron schedule %q: %v", cfg.Cron.Schedule, err)
		}
		scheduler.Start()
		defer scheduler.Stop()
		pkglogger.Info("Cron scheduler started: %s", cfg.Cron.Schedule)
	}

	// Telegram operator bot (선택)
	if cfg.Telegram.Token != "" {
		operatorBot, err := bot.New(cfg.Telegram.Token, agentRouter, cfg.Telegram.AllowedChatIDs)
		if err != nil {
			pkglogger.Warn("Telegram bot disabled: %v", err)
		} else {
			go operatorBot.Run(ctx)
		}
	}

	// Gin 라우터 생성
	gin.SetMode(cfg.Server.Mode)
	router := gin.New()
	router.Use(gin.Recovery())

	// CORS 설정
	allowOrigins := cfg.CORS.AllowOrigins
	if allowOrigins == "" {
		allowOrigins = "http://localhost:3000"
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     splitAndTrim(allowOrigins, ","),
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		AllowCredentials: true,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		ExposeHeaders:    []string{"X-Request-ID"},
		MaxAge:           86400,
	}))

	// Middleware
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.Metrics())
	router.Use(middleware.RequestLogger())

	// Prometheus metrics
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Health Check
	router.GET("/health", func(c *gin.Context) {
		status := "ok"
		sqlDB, err := db.DB()
		if err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
			status = "degraded"
		}
		c.JSON(http.StatusOK, gin.H{
			"status":  status,
			"service": "angple-editorial",
			"redis":   cacheService.IsAvailable(),
			"time":    time.Now().Unix(),
		})
	})

	routes.Setup(router,
		handler.NewArticleHandler(articleService, publishGate, imageService, commentService),
		handler.NewAgentHandler(agentRouter),
		handler.NewModerationHandler(commentService, activityLogger),
		handler.NewCronHandler(cronJob),
		handler.NewWSHandler(activityHub, cfg.CORS.AllowOrigins),
		cfg,
		redisClient,
	)

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})

	// 서버 시작
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		pkglogger.Info("Server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	pkglogger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		pkglogger.Error("Server shutdown error: %v", err)
	}
	// 종료 전에 버퍼된 조회수 반영
	if n, err := articleService.FlushViews(shutdownCtx); err != nil {
		pkglogger.Warn("view flush on shutdown failed: %v", err)
	} else if n > 0 {
		pkglogger.Info("flushed views for %d articles", n)
	}
}

// splitAndTrim splits a string by delimiter and trims spaces
func splitAndTrim(s string, delimiter string) []string {
	parts := []string{}
	for _, part := range strings.Split(s, delimiter) {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}

func initDB(cfg *config.Config) (*gorm.DB, error) {
	mysqlCfg, err := mysqldriver.ParseDSN(cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("DSN 파싱 실패: %w", err)
	}
	if mysqlCfg.Params == nil {
		mysqlCfg.Params = map[string]string{}
	}
	mysqlCfg.Params["time_zone"] = "'+07:00'"

	logLevel := gormlogger.Warn
	if cfg.IsDevelopment() {
		logLevel = gormlogger.Info
	}
	db, err := gorm.Open(mysql.Open(mysqlCfg.FormatDSN()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, err
	}

	db.Exec("SET NAMES utf8mb4")

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	return db, nil
}
