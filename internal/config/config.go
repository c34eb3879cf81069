package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"carousel-server/pkg/utils"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap"
)

// Config конфигурация сервиса генерации каруселей.
type Config struct {
	Env         string `envconfig:"ENV" default:"development"`
	HTTPPort    string `envconfig:"HTTP_PORT" default:"8080"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	LogEncoding string `envconfig:"LOG_ENCODING" default:"json"`
	LogOutput   string `envconfig:"LOG_OUTPUT" default:""`

	CORSAllowedOrigins string `envconfig:"CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
	JWTSecret          string `envconfig:"JWT_SECRET"`

	// PostgreSQL
	DBHost            string        `envconfig:"DB_HOST" default:"localhost"`
	DBPort            string        `envconfig:"DB_PORT" default:"5432"`
	DBUser            string        `envconfig:"DB_USER" default:"postgres"`
	DBName            string        `envconfig:"DB_NAME" default:"carousel_db"`
	DBSSLMode         string        `envconfig:"DB_SSL_MODE" default:"disable"`
	DBMaxConns        int32         `envconfig:"DB_MAX_CONNECTIONS" default:"10"`
	DBConnectTimeout  time.Duration `envconfig:"DB_CONNECT_TIMEOUT" default:"10s"`
	DBPassword        string        `envconfig:"DB_PASSWORD"`
	DBMigrationsOnRun bool          `envconfig:"DB_MIGRATE_ON_START" default:"true"`

	// Redis, пустой адрес отключает L2 кэш шаблонов
	RedisAddr      string        `envconfig:"REDIS_ADDR" default:""`
	RedisPassword  string        `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB        int           `envconfig:"REDIS_DB" default:"0"`
	LayoutCacheTTL time.Duration `envconfig:"LAYOUT_CACHE_TTL" default:"10m"`
	LayoutLRUSize  int           `envconfig:"LAYOUT_LRU_SIZE" default:"256"`

	// RabbitMQ, пустой URL отключает уведомления
	RabbitMQURL      string `envconfig:"RABBITMQ_URL" default:""`
	EventsExchange   string `envconfig:"EVENTS_EXCHANGE" default:"carousel.events"`
	EventsRoutingKey string `envconfig:"EVENTS_ROUTING_KEY" default:"generation.finished"`

	// Текстовая модель
	TextProvider       string        `envconfig:"TEXT_PROVIDER" default:"openai"`
	TextBaseURL        string        `envconfig:"TEXT_BASE_URL" default:"https://api.openai.com/v1"`
	TextModel          string        `envconfig:"TEXT_MODEL" default:"gpt-4o-mini"`
	TextFallbackModels []string      `envconfig:"TEXT_FALLBACK_MODELS" default:"gpt-4o,gpt-4.1-mini"`
	TextTimeout        time.Duration `envconfig:"TEXT_TIMEOUT" default:"120s"`
	TextTemperature    float64       `envconfig:"TEXT_TEMPERATURE" default:"0.7"`
	TextMaxTokens      int           `envconfig:"TEXT_MAX_TOKENS" default:"4096"`
	TextAPIKey         string        `envconfig:"TEXT_API_KEY"`
	JSONRepair         bool          `envconfig:"TEXT_JSON_REPAIR" default:"true"`

	// Модель изображений. Два уровня: обычный и умеющий рисовать читаемый текст.
	ImageProvider     string        `envconfig:"IMAGE_PROVIDER" default:"openai"`
	ImageBaseURL      string        `envconfig:"IMAGE_BASE_URL" default:"https://api.openai.com/v1"`
	ImageModelDefault string        `envconfig:"IMAGE_MODEL_DEFAULT" default:"dall-e-3"`
	ImageModelText    string        `envconfig:"IMAGE_MODEL_TEXT" default:"gpt-image-1"`
	ImageTimeout      time.Duration `envconfig:"IMAGE_TIMEOUT" default:"180s"`
	ImageMinBytes     int           `envconfig:"IMAGE_MIN_BYTES" default:"1024"`
	ImageAPIKey       string        `envconfig:"IMAGE_API_KEY"`

	// Генерация
	AestheticReviewPasses      int  `envconfig:"AESTHETIC_REVIEW_PASSES" default:"1"`
	MaxReferenceImages         int  `envconfig:"MAX_REFERENCE_IMAGES" default:"4"`
	DefaultStyleSimilarity     int  `envconfig:"DEFAULT_STYLE_SIMILARITY" default:"60"`
	MergeKeepUnrequestedAssets bool `envconfig:"MERGE_KEEP_UNREQUESTED_ASSETS" default:"false"`

	// Задача в running без обновлений дольше этого срока считается брошенной, 0 отключает перехват
	JobStaleAfter time.Duration `envconfig:"JOB_STALE_AFTER" default:"30m"`

	// Лимит вызовов моделей (generate, edit) на пользователя
	ModelRateLimit       uint          `envconfig:"MODEL_RATE_LIMIT" default:"10"`
	ModelRateLimitWindow time.Duration `envconfig:"MODEL_RATE_LIMIT_WINDOW" default:"1m"`

	// Хранилище
	StorageRoot       string        `envconfig:"STORAGE_ROOT" default:"./data/storage"`
	StorageSignSecret string        `envconfig:"STORAGE_SIGN_SECRET"`
	SignedURLTTL      time.Duration `envconfig:"SIGNED_URL_TTL" default:"15m"`
	PublicBaseURL     string        `envconfig:"PUBLIC_BASE_URL" default:"http://localhost:8080"`
	MaxUploadBytes    int64         `envconfig:"MAX_UPLOAD_BYTES" default:"10485760"`
}

// Load читает .env (если есть), переменные окружения и секреты Docker.
func Load(logger *zap.Logger) (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("ошибка загрузки .env: %w", err)
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("ошибка загрузки конфигурации: %w", err)
	}

	// Секреты: значение из env имеет приоритет, иначе /run/secrets/<name>
	cfg.TextAPIKey, _ = utils.SecretOrValue(cfg.TextAPIKey, "text_api_key")
	cfg.ImageAPIKey, _ = utils.SecretOrValue(cfg.ImageAPIKey, "image_api_key")
	cfg.DBPassword, _ = utils.SecretOrValue(cfg.DBPassword, "db_password")

	var ok bool
	if cfg.JWTSecret, ok = utils.SecretOrValue(cfg.JWTSecret, "jwt_secret"); !ok {
		return nil, fmt.Errorf("JWT_SECRET не задан (ни в окружении, ни в /run/secrets/jwt_secret)")
	}
	if cfg.StorageSignSecret, ok = utils.SecretOrValue(cfg.StorageSignSecret, "storage_sign_secret"); !ok {
		return nil, fmt.Errorf("STORAGE_SIGN_SECRET не задан (ни в окружении, ни в /run/secrets/storage_sign_secret)")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cfg.log(logger)
	return &cfg, nil
}

// Validate проверяет перечисления и диапазоны.
func (c *Config) Validate() error {
	switch strings.ToLower(c.TextProvider) {
	case "openai", "ollama":
	default:
		return fmt.Errorf("неизвестный TEXT_PROVIDER: '%s'", c.TextProvider)
	}
	switch strings.ToLower(c.ImageProvider) {
	case "openai", "gemini":
	default:
		return fmt.Errorf("неизвестный IMAGE_PROVIDER: '%s'", c.ImageProvider)
	}
	switch strings.ToLower(c.LogEncoding) {
	case "json", "console":
	default:
		return fmt.Errorf("неизвестный LOG_ENCODING: '%s'", c.LogEncoding)
	}
	if c.AestheticReviewPasses < 0 || c.AestheticReviewPasses > 2 {
		return fmt.Errorf("AESTHETIC_REVIEW_PASSES должен быть от 0 до 2, получено %d", c.AestheticReviewPasses)
	}
	if c.MaxReferenceImages < 0 || c.MaxReferenceImages > 8 {
		return fmt.Errorf("MAX_REFERENCE_IMAGES должен быть от 0 до 8, получено %d", c.MaxReferenceImages)
	}
	if c.DefaultStyleSimilarity < 0 || c.DefaultStyleSimilarity > 100 {
		return fmt.Errorf("DEFAULT_STYLE_SIMILARITY должен быть от 0 до 100, получено %d", c.DefaultStyleSimilarity)
	}
	if c.JobStaleAfter < 0 {
		return fmt.Errorf("JOB_STALE_AFTER не может быть отрицательным")
	}
	if c.ImageMinBytes < 0 {
		return fmt.Errorf("IMAGE_MIN_BYTES не может быть отрицательным")
	}
	if _, err := url.Parse(c.PublicBaseURL); err != nil {
		return fmt.Errorf("некорректный PUBLIC_BASE_URL: %w", err)
	}
	return nil
}

// GetDSN строка подключения к PostgreSQL.
func (c *Config) GetDSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.DBUser, c.DBPassword),
		Host:     c.DBHost + ":" + c.DBPort,
		Path:     "/" + c.DBName,
		RawQuery: "sslmode=" + url.QueryEscape(c.DBSSLMode),
	}
	return u.String()
}

// GetMaskedDSN DSN с замаскированным паролем для логирования.
func (c *Config) GetMaskedDSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.DBUser, "********"),
		Host:     c.DBHost + ":" + c.DBPort,
		Path:     "/" + c.DBName,
		RawQuery: "sslmode=" + url.QueryEscape(c.DBSSLMode),
	}
	return u.String()
}

// GetAllowedOrigins разбирает CORS_ALLOWED_ORIGINS.
func (c *Config) GetAllowedOrigins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSAllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// TextCredentialsMissing true, если выбранному провайдеру нужен ключ, а его нет.
func (c *Config) TextCredentialsMissing() bool {
	return strings.EqualFold(c.TextProvider, "openai") && strings.TrimSpace(c.TextAPIKey) == ""
}

// ImageCredentialsMissing аналогично для модели изображений.
func (c *Config) ImageCredentialsMissing() bool {
	return strings.TrimSpace(c.ImageAPIKey) == ""
}

func (c *Config) log(logger *zap.Logger) {
	logger.Info("Configuration loaded",
		zap.String("env", c.Env),
		zap.String("http_port", c.HTTPPort),
		zap.String("db_dsn", c.GetMaskedDSN()),
		zap.String("redis_addr", c.RedisAddr),
		zap.Bool("rabbitmq_enabled", c.RabbitMQURL != ""),
		zap.String("text_provider", c.TextProvider),
		zap.String("text_model", c.TextModel),
		zap.Strings("text_fallback_models", c.TextFallbackModels),
		zap.Bool("text_api_key_loaded", c.TextAPIKey != ""),
		zap.String("image_provider", c.ImageProvider),
		zap.String("image_model_default", c.ImageModelDefault),
		zap.String("image_model_text", c.ImageModelText),
		zap.Bool("image_api_key_loaded", c.ImageAPIKey != ""),
		zap.Int("aesthetic_review_passes", c.AestheticReviewPasses),
		zap.Int("max_reference_images", c.MaxReferenceImages),
		zap.String("storage_root", c.StorageRoot),
	)
}
