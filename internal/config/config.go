package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	pkglogger "github.com/damoang/angple-editorial/pkg/logger"
	"gopkg.in/yaml.v3"
)

// Config 애플리케이션 설정
type Config struct {
	Env      string         `yaml:"env"`
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	CORS     CORSConfig     `yaml:"cors"`
	Oracle   OracleConfig   `yaml:"oracle"`
	Gemini   GeminiConfig   `yaml:"gemini"`
	Risk     RiskConfig     `yaml:"risk"`
	Image    ImageConfig    `yaml:"image"`
	Cron     CronConfig     `yaml:"cron"`
	Telegram TelegramConfig `yaml:"telegram"`
	Limits   LimitsConfig   `yaml:"limits"`
}

type ServerConfig struct {
	Port int    `yaml:"port"`
	Mode string `yaml:"mode"`
}

type DatabaseConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	DBName          string        `yaml:"dbname"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type CORSConfig struct {
	AllowOrigins string `yaml:"allow_origins"`
}

// OracleConfig OpenAI 호환 프록시 (분류 오라클 + proxy 페르소나 백엔드)
type OracleConfig struct {
	BaseURL string        `yaml:"base_url"`
	APIKey  string        `yaml:"api_key"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

type GeminiConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

type RiskConfig struct {
	// score > threshold 이면 법무 검토 필요
	LegalReviewThreshold int `yaml:"legal_review_threshold"`
	// 모더레이션 서브스코어가 이 값 이상이면 approve 를 review 로 올린다
	FlagThreshold float64 `yaml:"flag_threshold"`
}

type ImageConfig struct {
	GenerativeBaseURL string        `yaml:"generative_base_url"`
	FallbackBaseURL   string        `yaml:"fallback_base_url"`
	Width             int           `yaml:"width"`
	Height            int           `yaml:"height"`
	ValidationTimeout time.Duration `yaml:"validation_timeout"`
	Retries           int           `yaml:"retries"`
	RetryDelay        time.Duration `yaml:"retry_delay"`
	BatchDelay        time.Duration `yaml:"batch_delay"`
	BatchLimit        int           `yaml:"batch_limit"`
}

type CronConfig struct {
	Secret     string        `yaml:"secret"`
	Schedule   string        `yaml:"schedule"`
	Topics     []string      `yaml:"topics"`
	BatchDelay time.Duration `yaml:"batch_delay"`
}

// LimitsConfig per-IP requests per minute (Redis 필요, 0 이면 비활성)
type LimitsConfig struct {
	AgentsPerMinute   int `yaml:"agents_per_minute"`
	CommentsPerMinute int `yaml:"comments_per_minute"`
}

type TelegramConfig struct {
	Token          string  `yaml:"token"`
	AllowedChatIDs []int64 `yaml:"allowed_chat_ids"`
}

// Default returns the configuration used when no file is present
func Default() *Config {
	return &Config{
		Env:    "local",
		Server: ServerConfig{Port: 8082, Mode: "debug"},
		Database: DatabaseConfig{
			Host: "localhost", Port: 3306, User: "root", DBName: "angple_editorial",
			MaxOpenConns: 20, MaxIdleConns: 5, ConnMaxLifetime: time.Hour,
		},
		Redis: RedisConfig{Host: "localhost", Port: 6379, PoolSize: 10},
		Oracle: OracleConfig{
			BaseURL: "http://127.0.0.1:8317/v1",
			Model:   "gpt-4o-mini",
			Timeout: 30 * time.Second,
		},
		Gemini: GeminiConfig{Model: "gemini-2.5-flash"},
		Risk:   RiskConfig{LegalReviewThreshold: 70, FlagThreshold: 0.5},
		Image: ImageConfig{
			GenerativeBaseURL: "https://image.pollinations.ai/prompt",
			FallbackBaseURL:   "https://loremflickr.com",
			Width:             1200,
			Height:            630,
			ValidationTimeout: 8 * time.Second,
			Retries:           2,
			RetryDelay:        time.Second,
			BatchDelay:        2 * time.Second,
			BatchLimit:        20,
		},
		Cron:   CronConfig{BatchDelay: 3 * time.Second},
		Limits: LimitsConfig{AgentsPerMinute: 20, CommentsPerMinute: 10},
	}
}

// Load reads a YAML file on top of the defaults and applies env overrides.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
		pkglogger.Warn("config file %s not found, using defaults", path)
	default:
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	applyEnv(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("APP_ENV"); v != "" {
		cfg.Env = v
	}
	setString(&cfg.Database.Host, "DB_HOST")
	setInt(&cfg.Database.Port, "DB_PORT")
	setString(&cfg.Database.User, "DB_USER")
	setString(&cfg.Database.Password, "DB_PASSWORD")
	setString(&cfg.Database.DBName, "DB_NAME")
	setString(&cfg.Redis.Host, "REDIS_HOST")
	setString(&cfg.Redis.Password, "REDIS_PASSWORD")
	setString(&cfg.Oracle.BaseURL, "ORACLE_BASE_URL")
	setString(&cfg.Oracle.APIKey, "ORACLE_API_KEY")
	setString(&cfg.Gemini.APIKey, "GEMINI_API_KEY")
	setString(&cfg.Cron.Secret, "CRON_SECRET")
	setString(&cfg.Telegram.Token, "TELEGRAM_BOT_TOKEN")
	setInt(&cfg.Server.Port, "PORT")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

// IsDevelopment reports whether the app runs in a local/dev environment
func (c *Config) IsDevelopment() bool {
	return c.Env == "" || c.Env == "local" || c.Env == "development" || c.Env == "dev"
}

// DSN returns the MySQL connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		c.User, c.Password, c.Host, c.Port, c.DBName)
}

// LogResolved prints the effective configuration with secrets masked
func LogResolved(cfg *Config) {
	pkglogger.Info("config: env=%s port=%d db=%s@%s:%d/%s redis=%v oracle=%s gemini=%s",
		cfg.Env, cfg.Server.Port,
		cfg.Database.User, cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName,
		cfg.Redis.Enabled, cfg.Oracle.BaseURL, mask(cfg.Gemini.APIKey))
	pkglogger.Info("config: legal_review_threshold=%d image_retries=%d cron_secret=%s cron_schedule=%q telegram=%s",
		cfg.Risk.LegalReviewThreshold, cfg.Image.Retries, mask(cfg.Cron.Secret),
		cfg.Cron.Schedule, mask(cfg.Telegram.Token))
}

func mask(secret string) string {
	if secret == "" {
		return "(unset)"
	}
	if len(secret) <= 4 {
		return "****"
	}
	return secret[:2] + strings.Repeat("*", 4) + secret[len(secret)-2:]
}
