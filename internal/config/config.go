// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes application settings
// such as server timeouts, logging, database paths, rate limiting, external
// provider credentials, fine-tune scheduling, and observability.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "assistly-backend")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// AIConfig defines model provider settings for chat and fine-tuning.
type AIConfig struct {
	APIKey           string        // OPENAI_API_KEY
	OrgID            string        // OPENAI_ORG_ID (optional)
	BaseURL          string        // OPENAI_BASE_URL (optional override, for tests/proxies)
	DefaultChatModel string        // DEFAULT_CHAT_MODEL, used when a company has no fine-tuned model
	BaseModel        string        // FINE_TUNE_BASE_MODEL, the model fine-tune jobs start from
	TrainingTimeout  time.Duration // per-call budget for upload/start/poll
	InferenceTimeout time.Duration // per-call budget for chat completions
}

// FineTuneConfig defines lifecycle manager and scheduler settings.
type FineTuneConfig struct {
	MinExamples int           // minimum valid JSONL lines for a usable dataset
	MaxAttempts int           // restarts allowed per company before giving up
	CoolDown    time.Duration // wait between attempts for the same company
	CronSpec    string        // robfig/cron spec for the sweep
	Parallelism int           // concurrent companies per sweep
	RunTimeout  time.Duration // per-company budget for one lifecycle run
	DatasetDir  string        // where company_<slug>.jsonl files are written
}

// PayPalConfig defines payment provider credentials and mode.
type PayPalConfig struct {
	ClientID string        // PAYPAL_CLIENT_ID
	Secret   string        // PAYPAL_SECRET
	Mode     string        // sandbox|live
	Timeout  time.Duration // HTTP client timeout
}

// AuthConfig defines token issuing settings.
type AuthConfig struct {
	JWTSecret string        // JWT_SECRET
	TokenTTL  time.Duration // JWT_TTL
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 20s
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	SwaggerEnabled bool   // enable Swagger UI route
	APIBasePath    string // base path for API routes

	// App
	DBPath string // SQLite path

	// Rate limiting (public chat endpoint)
	PublicChatLimit  int           // requests allowed per window per IP
	PublicChatWindow time.Duration // window size

	// Rate limiting (general API)
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Idempotency
	IdempotencyTTL time.Duration // how long a given Idempotency-Key is valid

	// External systems
	AI       AIConfig
	FineTune FineTuneConfig
	PayPal   PayPalConfig
	Auth     AuthConfig

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging / Docs
		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		// App
		DBPath: getenv("DB_PATH", "app.db"),

		// Rate limiting
		PublicChatLimit:  getint("PUBLIC_CHAT_LIMIT", 20),
		PublicChatWindow: getdur("PUBLIC_CHAT_WINDOW", 60*time.Second),
		RateRPS:          getfloat("RATE_RPS", 5.0),
		RateBurst:        getint("RATE_BURST", 10),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		// Idempotency
		IdempotencyTTL: getdur("IDEMPOTENCY_TTL", 24*time.Hour),

		// Model provider
		AI: AIConfig{
			APIKey:           getenv("OPENAI_API_KEY", ""),
			OrgID:            getenv("OPENAI_ORG_ID", ""),
			BaseURL:          getenv("OPENAI_BASE_URL", ""),
			DefaultChatModel: getenv("DEFAULT_CHAT_MODEL", "gpt-3.5-turbo"),
			BaseModel:        getenv("FINE_TUNE_BASE_MODEL", "gpt-3.5-turbo"),
			TrainingTimeout:  getdur("AI_TRAINING_TIMEOUT", 120*time.Second),
			InferenceTimeout: getdur("AI_INFERENCE_TIMEOUT", 60*time.Second),
		},

		// Fine-tune lifecycle
		FineTune: FineTuneConfig{
			MinExamples: getint("FINE_TUNE_MIN_EXAMPLES", 20),
			MaxAttempts: getint("FINE_TUNE_MAX_ATTEMPTS", 3),
			CoolDown:    getdur("FINE_TUNE_COOLDOWN", 10*time.Minute),
			CronSpec:    getenv("FINE_TUNE_CRON", "0 * * * *"),
			Parallelism: getint("FINE_TUNE_PARALLELISM", 4),
			RunTimeout:  getdur("FINE_TUNE_RUN_TIMEOUT", 5*time.Minute),
			DatasetDir:  getenv("DATASET_DIR", "data/datasets"),
		},

		// Payments
		PayPal: PayPalConfig{
			ClientID: getenv("PAYPAL_CLIENT_ID", ""),
			Secret:   getenv("PAYPAL_SECRET", ""),
			Mode:     strings.ToLower(getenv("PAYPAL_MODE", "sandbox")),
			Timeout:  getdur("PAYPAL_TIMEOUT", 30*time.Second),
		},

		// Auth
		Auth: AuthConfig{
			JWTSecret: getenv("JWT_SECRET", ""),
			TokenTTL:  getdur("JWT_TTL", 24*time.Hour),
		},

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "assistly-backend"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}
	switch cfg.PayPal.Mode {
	case "sandbox", "live":
	default:
		cfg.PayPal.Mode = "sandbox"
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		return cfg, errors.New("DB_PATH must not be empty")
	}
	if cfg.PublicChatLimit < 1 {
		return cfg, errors.New("PUBLIC_CHAT_LIMIT must be >= 1")
	}
	if cfg.PublicChatWindow <= 0 {
		return cfg, errors.New("PUBLIC_CHAT_WINDOW must be > 0")
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.IdempotencyTTL <= 0 {
		return cfg, errors.New("IDEMPOTENCY_TTL must be > 0")
	}
	if strings.TrimSpace(cfg.AI.DefaultChatModel) == "" {
		return cfg, errors.New("DEFAULT_CHAT_MODEL must not be empty")
	}
	if strings.TrimSpace(cfg.AI.BaseModel) == "" {
		return cfg, errors.New("FINE_TUNE_BASE_MODEL must not be empty")
	}
	if cfg.AI.TrainingTimeout <= 0 || cfg.AI.InferenceTimeout <= 0 {
		return cfg, errors.New("AI timeouts must be positive durations")
	}
	if cfg.FineTune.MinExamples < 1 {
		return cfg, errors.New("FINE_TUNE_MIN_EXAMPLES must be >= 1")
	}
	if cfg.FineTune.MaxAttempts < 1 {
		return cfg, errors.New("FINE_TUNE_MAX_ATTEMPTS must be >= 1")
	}
	if cfg.FineTune.CoolDown < 0 {
		return cfg, errors.New("FINE_TUNE_COOLDOWN must be >= 0")
	}
	if strings.TrimSpace(cfg.FineTune.CronSpec) == "" {
		return cfg, errors.New("FINE_TUNE_CRON must not be empty")
	}
	if cfg.FineTune.Parallelism < 1 {
		return cfg, errors.New("FINE_TUNE_PARALLELISM must be >= 1")
	}
	if cfg.FineTune.RunTimeout <= 0 {
		return cfg, errors.New("FINE_TUNE_RUN_TIMEOUT must be > 0")
	}
	if strings.TrimSpace(cfg.FineTune.DatasetDir) == "" {
		return cfg, errors.New("DATASET_DIR must not be empty")
	}
	if cfg.PayPal.Timeout <= 0 {
		return cfg, errors.New("PAYPAL_TIMEOUT must be > 0")
	}
	if cfg.Auth.TokenTTL <= 0 {
		return cfg, errors.New("JWT_TTL must be > 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// ---- helpers (no external deps) ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
