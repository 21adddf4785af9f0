package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultMaxUploadBytes caps résumé uploads at 20 MiB.
const DefaultMaxUploadBytes int64 = 20 << 20

// Config holds application configuration.
type Config struct {
	Port            string
	Env             string
	LogLevel        string
	CORSAllowOrigin []string

	ObjectStoreType string
	LocalStoreDir   string
	AWSRegion       string
	S3Bucket        string
	S3Prefix        string
	SSEKMSKeyID     string
	MinioEndpoint   string
	MinioAccessKey  string
	MinioSecretKey  string
	MinioBucket     string
	MinioUseSSL     bool

	KVStoreType   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	DatabaseURL   string

	LLMProvider         string
	LLMModel            string
	OpenAIAPIKey        string
	GeminiAPIKey        string
	LLMTimeout          time.Duration
	LLMBreakerEnabled   bool
	LLMBreakerThreshold uint32
	LLMBreakerTimeout   time.Duration
	LLMBreakerRatio     float64
	LLMBreakerMinCalls  uint32
	LLMBreakerInterval  time.Duration

	RendererType   string
	RenderDPI      int
	RenderTimeout  time.Duration
	MaxUploadBytes int64
	ViewTTL        time.Duration

	JWTSecret          string
	AllowGuest         bool
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
	UIRedirectURL      string

	RateLimitPerMinute int
	RateLimitBurst     int

	TracingExporter string
	ServiceName     string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	env := normalizeEnv(getEnv("ENV", "dev"))
	kvType := normalizeKVType(getEnv("KV_STORE", "memory"))
	dbURL := os.Getenv("DATABASE_URL")

	if env == "production" && kvType == "memory" {
		log.Printf("KV_STORE=memory loses all records on restart; use redis or postgres in production")
	}
	if kvType == "postgres" && dbURL == "" {
		log.Printf("KV_STORE=postgres requires DATABASE_URL")
	}

	return Config{
		Port:            getEnv("PORT", "8080"),
		Env:             env,
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		CORSAllowOrigin: splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173")),

		ObjectStoreType: normalizeStoreType(getEnv("OBJECT_STORE", "local")),
		LocalStoreDir:   getEnv("LOCAL_STORE_DIR", "./data"),
		AWSRegion:       getEnv("AWS_REGION", ""),
		S3Bucket:        getEnv("S3_BUCKET", ""),
		S3Prefix:        getEnv("S3_PREFIX", ""),
		SSEKMSKeyID:     getEnv("SSE_KMS_KEY_ID", ""),
		MinioEndpoint:   getEnv("MINIO_ENDPOINT", "localhost:9000"),
		MinioAccessKey:  getEnv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey:  getEnv("MINIO_SECRET_KEY", ""),
		MinioBucket:     getEnv("MINIO_BUCKET", "resulenz"),
		MinioUseSSL:     getBool("MINIO_USE_SSL", false),

		KVStoreType:   kvType,
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getInt("REDIS_DB", 0),
		DatabaseURL:   dbURL,

		LLMProvider:         normalizeLLMProvider(getEnv("LLM_PROVIDER", "none")),
		LLMModel:            getEnv("LLM_MODEL", ""),
		OpenAIAPIKey:        getEnv("OPENAI_API_KEY", ""),
		GeminiAPIKey:        getEnv("GEMINI_API_KEY", ""),
		LLMTimeout:          time.Duration(getInt("LLM_TIMEOUT_SECONDS", 120)) * time.Second,
		LLMBreakerEnabled:   getBool("LLM_BREAKER_ENABLED", true),
		LLMBreakerThreshold: uint32(getInt("LLM_BREAKER_THRESHOLD", 5)),
		LLMBreakerTimeout:   getDuration("LLM_BREAKER_TIMEOUT", 30*time.Second),
		LLMBreakerRatio:     getFloat("LLM_BREAKER_FAILURE_RATIO", 0.6),
		LLMBreakerMinCalls:  uint32(getInt("LLM_BREAKER_MIN_REQUESTS", 10)),
		LLMBreakerInterval:  getDuration("LLM_BREAKER_INTERVAL", time.Minute),

		RendererType:   normalizeRenderer(getEnv("RENDERER", "native")),
		RenderDPI:      getInt("RENDER_DPI", 110),
		RenderTimeout:  getDuration("RENDER_TIMEOUT", 60*time.Second),
		MaxUploadBytes: int64(getInt("MAX_UPLOAD_BYTES", int(DefaultMaxUploadBytes))),
		ViewTTL:        getDuration("VIEW_TTL", 15*time.Minute),

		JWTSecret:          getEnv("JWT_SECRET", ""),
		AllowGuest:         getBool("AUTH_ALLOW_GUEST", env == "dev" || env == "local"),
		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURL:  getEnv("GOOGLE_REDIRECT_URL", ""),
		UIRedirectURL:      getEnv("UI_REDIRECT_URL", "http://localhost:5173/auth"),

		RateLimitPerMinute: getInt("RATE_LIMIT_PER_MINUTE", 60),
		RateLimitBurst:     getInt("RATE_LIMIT_BURST", 10),

		TracingExporter: normalizeExporter(getEnv("OTEL_EXPORTER", "none")),
		ServiceName:     getEnv("OTEL_SERVICE_NAME", "resulenz-api"),
	}
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("config %s invalid int %q, using %d", key, raw, def)
		return def
	}
	return val
}

func getBool(key string, def bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.ParseBool(raw)
	if err != nil {
		log.Printf("config %s invalid bool %q, using %t", key, raw, def)
		return def
	}
	return val
}

func getFloat(key string, def float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		log.Printf("config %s invalid float %q, using %v", key, raw, def)
		return def
	}
	return val
}

func getDuration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := time.ParseDuration(raw)
	if err != nil {
		log.Printf("config %s invalid duration %q, using %s", key, raw, def)
		return def
	}
	return val
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	case "minio":
		return "minio"
	default:
		return "local"
	}
}

func normalizeKVType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "redis":
		return "redis"
	case "postgres", "pg":
		return "postgres"
	default:
		return "memory"
	}
}

func normalizeLLMProvider(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "openai":
		return "openai"
	case "gemini", "google":
		return "gemini"
	default:
		return "none"
	}
}

func normalizeRenderer(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "pdftoppm", "poppler":
		return "pdftoppm"
	default:
		return "native"
	}
}

func normalizeExporter(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "stdout":
		return "stdout"
	case "otlp", "otlphttp":
		return "otlp"
	default:
		return "none"
	}
}
