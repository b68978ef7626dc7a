package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Environment string `validate:"oneof=development production test"`
	Port        string `validate:"required"`
	LogLevel    string
	LogFilePath string

	TelegramBotToken  string `validate:"required"`
	TelegramMode      string `validate:"oneof=polling webhook"`
	WebhookURL        string `validate:"required_if=TelegramMode webhook"`
	WebhookSecret     string `validate:"required_if=TelegramMode webhook"`
	Workers           int    `validate:"min=1,max=64"`
	SendRatePerSecond int    `validate:"min=1"`

	DatabaseURL string `validate:"required"`
	SslCertPath string

	AwsAccessKey    string
	AwsSecretKey    string
	AwsRegion       string `validate:"required"`
	BucketName      string `validate:"required"`
	S3Endpoint      string `validate:"omitempty,url"`
	S3PublicBaseURL string `validate:"omitempty,url"`

	AIAPIKey          string
	GenModel          string
	AICleaningEnabled bool
	AITitlesEnabled   bool

	DailyReportLimit       int    `validate:"min=1"`
	MaxMemoryFacts         int    `validate:"min=1"`
	SummaryWindow          int    `validate:"min=1"`
	UncategorizedPlacement string `validate:"oneof=last before_final omit"`
	PDFEngine              string `validate:"oneof=fpdf chrome"`
	ChromePath             string
	DefaultUnits           string `validate:"oneof=metric imperial both"`

	NormalizeTimeout time.Duration `validate:"gt=0"`
	RenderTimeout    time.Duration `validate:"gt=0"`
	UploadTimeout    time.Duration `validate:"gt=0"`
	RetryMaxAttempts int           `validate:"min=1,max=10"`

	SessionBackend string `validate:"oneof=memory redis"`
	RedisURL       string `validate:"required_if=SessionBackend redis"`
	SessionIdleTTL time.Duration

	QuotaResetSchedule string `validate:"required"`
	JWTSecret          string
	CorsAllowedOrigins []string
}

// LoadConfig loads the environment variables and return config
func LoadConfig() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	return cfg
}

// Load reads .env (if present) and the process environment, then validates.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Environment: getEnv("GO_ENV", "development"),
		Port:        getEnv("PORT", "8080"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFilePath: getEnv("LOG_FILE_PATH", ""),

		TelegramBotToken:  getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramMode:      getEnv("TELEGRAM_MODE", "polling"),
		WebhookURL:        getEnv("WEBHOOK_URL", ""),
		WebhookSecret:     getEnv("WEBHOOK_SECRET", ""),
		Workers:           getEnvInt("WORKERS", 4),
		SendRatePerSecond: getEnvInt("SEND_RATE_PER_SECOND", 25),

		DatabaseURL: getEnv("DATABASE_URL", ""),
		SslCertPath: getEnv("SSL_CERT_PATH", ""),

		AwsAccessKey:    getEnv("AWS_ACCESS_KEY", ""),
		AwsSecretKey:    getEnv("AWS_SECRET_KEY", ""),
		AwsRegion:       getEnv("AWS_REGION", "us-east-2"),
		BucketName:      getEnv("BUCKET_NAME", "field-reports"),
		S3Endpoint:      getEnv("S3_ENDPOINT", ""),
		S3PublicBaseURL: getEnv("S3_PUBLIC_BASE_URL", ""),

		AIAPIKey:          getEnv("GEMINI_API_KEY", ""),
		GenModel:          getEnv("GEN_MODEL", "gemini-1.5-flash"),
		AICleaningEnabled: getEnvBool("AI_CLEANING_ENABLED", true),
		AITitlesEnabled:   getEnvBool("AI_TITLES_ENABLED", false),

		DailyReportLimit:       getEnvInt("DAILY_REPORT_LIMIT", 2),
		MaxMemoryFacts:         getEnvInt("MAX_MEMORY_REPORTS", 50),
		SummaryWindow:          getEnvInt("SUMMARY_WINDOW", 5),
		UncategorizedPlacement: getEnv("UNCATEGORIZED_PLACEMENT", "last"),
		PDFEngine:              getEnv("PDF_ENGINE", "fpdf"),
		ChromePath:             getEnv("CHROME_PATH", ""),
		DefaultUnits:           getEnv("DEFAULT_UNITS", "both"),

		NormalizeTimeout: getEnvDuration("NORMALIZE_TIMEOUT", 20*time.Second),
		RenderTimeout:    getEnvDuration("RENDER_TIMEOUT", 60*time.Second),
		UploadTimeout:    getEnvDuration("UPLOAD_TIMEOUT", 2*time.Minute),
		RetryMaxAttempts: getEnvInt("RETRY_MAX_ATTEMPTS", 3),

		SessionBackend: getEnv("SESSION_BACKEND", "memory"),
		RedisURL:       getEnv("REDIS_URL", ""),
		SessionIdleTTL: getEnvDuration("SESSION_IDLE_TTL", 0),

		QuotaResetSchedule: getEnv("QUOTA_RESET_SCHEDULE", "0 0 0 * * *"),
		JWTSecret:          getEnv("JWT_SECRET", ""),
		CorsAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173"}),
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// AIEnabled reports whether a Gemini client should be created.
func (c *Config) AIEnabled() bool {
	return c.AIAPIKey != "" && (c.AICleaningEnabled || c.AITitlesEnabled)
}

// Helper to read environment variables with a default fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, def int) int {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("WARN: %s=%q not an int, using default %d", key, v, def)
		return def
	}
	return n
}

func getEnvBool(key string, def bool) bool {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("WARN: %s=%q not a bool, using default %t", key, v, def)
		return def
	}
	return b
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("WARN: %s=%q not a duration, using default %s", key, v, def)
		return def
	}
	return d
}

func getEnvList(key string, def []string) []string {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
