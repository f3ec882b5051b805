package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)

// Config aggregates runtime configuration for the service and its collaborators.
type Config struct {
	HTTPListenAddr        string
	CORSAllowedOrigin     string
	DBDriver              string
	DatabaseDSN           string
	JWTSecret             string
	JWTTTL                time.Duration
	LogLevel              string
	RequestTimeout        time.Duration
	GeminiAPIKey          string
	GeminiBaseURL         string
	ChatModel             string
	FastChatModel         string
	ThinkingModel         string
	ImageModel            string
	VideoModel            string
	SpeechModel           string
	DocumentModel         string
	LiveModel             string
	LiveVoice             string
	LiveSystemInstruction string
	VideoPollInterval     time.Duration
	VideoPollAttempts     int
	AdminEmail            string
	AdminPassword         string
	AdminName             string
	PaymentAutoApprove    bool
	PlanCatalogPath       string
	S3Endpoint            string
	S3Region              string
	S3AccessKey           string
	S3SecretKey           string
	S3Bucket              string
	S3PublicBaseURL       string
	S3UsePathStyle        bool
	S3Prefix              string
	TelegramBotToken      string
	TelegramAdminChatID   int64
}

// AIEnabled reports whether a vendor API key is configured.
func (c Config) AIEnabled() bool {
	return strings.TrimSpace(c.GeminiAPIKey) != ""
}

// S3Enabled reports whether the S3 uploader has everything it needs.
func (c Config) S3Enabled() bool {
	return c.S3Bucket != "" && c.S3Region != "" && c.S3AccessKey != "" && c.S3SecretKey != "" && c.S3PublicBaseURL != ""
}

// TelegramEnabled reports whether admin notifications can be delivered.
func (c Config) TelegramEnabled() bool {
	return c.TelegramBotToken != "" && c.TelegramAdminChatID != 0
}

// Load reads configuration from an optional env file and environment variables, applying sane defaults.
func Load() (Config, error) {
	if err := loadEnvFile(); err != nil {
		return Config{}, err
	}

	cfg := Config{
		HTTPListenAddr:        getEnv("HTTP_LISTEN_ADDR", ":8080"),
		CORSAllowedOrigin:     getEnv("CORS_ALLOWED_ORIGIN", ""),
		DBDriver:              strings.ToLower(getEnv("DB_DRIVER", DriverMySQL)),
		JWTTTL:                getDuration("JWT_TTL", 30*24*time.Hour),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		RequestTimeout:        time.Second * time.Duration(getInt("HTTP_TIMEOUT_SECONDS", 60)),
		GeminiBaseURL:         normalizeBaseURL(getEnv("GEMINI_BASE_URL", "")),
		ChatModel:             getEnv("GEMINI_CHAT_MODEL", "gemini-2.5-flash"),
		FastChatModel:         getEnv("GEMINI_FAST_MODEL", "gemini-2.5-flash-lite"),
		ThinkingModel:         getEnv("GEMINI_THINKING_MODEL", "gemini-3-pro-preview"),
		ImageModel:            getEnv("GEMINI_IMAGE_MODEL", "gemini-3-pro-image-preview"),
		VideoModel:            getEnv("GEMINI_VIDEO_MODEL", "veo-3.1-fast-generate-preview"),
		SpeechModel:           getEnv("GEMINI_SPEECH_MODEL", "gemini-2.5-flash-preview-tts"),
		DocumentModel:         getEnv("GEMINI_DOCUMENT_MODEL", "gemini-3-pro-preview"),
		LiveModel:             getEnv("LIVE_MODEL", "gemini-2.5-flash-native-audio-preview-09-2025"),
		LiveVoice:             getEnv("LIVE_VOICE", "Zephyr"),
		LiveSystemInstruction: getEnv("LIVE_SYSTEM_INSTRUCTION", "You are a helpful, conversational AI assistant."),
		VideoPollInterval:     getDuration("VIDEO_POLL_INTERVAL", 5*time.Second),
		VideoPollAttempts:     getInt("VIDEO_POLL_ATTEMPTS", 120),
		AdminEmail:            strings.TrimSpace(os.Getenv("ADMIN_EMAIL")),
		AdminPassword:         os.Getenv("ADMIN_PASSWORD"),
		AdminName:             getEnv("ADMIN_NAME", "Administrator"),
		PaymentAutoApprove:    getBool("PAYMENT_AUTO_APPROVE", true),
		PlanCatalogPath:       os.Getenv("PLAN_CATALOG_PATH"),
		S3Endpoint:            getEnv("S3_ENDPOINT", ""),
		S3Region:              os.Getenv("S3_REGION"),
		S3AccessKey:           os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey:           os.Getenv("S3_SECRET_KEY"),
		S3Bucket:              os.Getenv("S3_BUCKET"),
		S3PublicBaseURL:       os.Getenv("S3_PUBLIC_BASE_URL"),
		S3UsePathStyle:        getBool("S3_USE_PATH_STYLE", false),
		S3Prefix:              getEnv("S3_PREFIX", "creations"),
		TelegramAdminChatID:   getInt64("TELEGRAM_ADMIN_CHAT_ID", 0),
	}

	cfg.DatabaseDSN = os.Getenv("DATABASE_DSN")
	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	cfg.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	cfg.TelegramBotToken = os.Getenv("TELEGRAM_BOT_TOKEN")

	var missing []string
	if cfg.DatabaseDSN == "" {
		missing = append(missing, "DATABASE_DSN")
	}
	if cfg.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if cfg.AdminEmail != "" && cfg.AdminPassword == "" {
		missing = append(missing, "ADMIN_PASSWORD")
	}
	if cfg.TelegramBotToken != "" && cfg.TelegramAdminChatID == 0 {
		missing = append(missing, "TELEGRAM_ADMIN_CHAT_ID")
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required environment variables: %v", missing)
	}

	if cfg.DBDriver != DriverMySQL && cfg.DBDriver != DriverSQLite {
		return Config{}, fmt.Errorf("unsupported DB_DRIVER %q (want %s or %s)", cfg.DBDriver, DriverMySQL, DriverSQLite)
	}

	return cfg, nil
}

// normalizeBaseURL makes a bare host usable as an API base. Empty means the SDK default.
func normalizeBaseURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	if parsed.Scheme == "" {
		parsed.Scheme = "https"
	}
	if parsed.Host == "" {
		parsed.Host = parsed.Path
		parsed.Path = ""
	}
	return strings.TrimRight(parsed.String(), "/") + "/"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

func getInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return i
}

func getBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// loadEnvFile overlays the first env file found. Running purely from the environment is fine.
func loadEnvFile() error {
	candidates := []string{}
	if custom, ok := os.LookupEnv("CONFIG_ENV_PATH"); ok && custom != "" {
		candidates = append(candidates, custom)
	}
	candidates = append(candidates,
		filepath.Join("configs", ".env"),
		".env",
	)

	for _, path := range candidates {
		info, err := os.Stat(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fmt.Errorf("access env file %s: %w", path, err)
		}
		if info.IsDir() {
			continue
		}
		if err := godotenv.Overload(path); err != nil {
			return fmt.Errorf("load env file %s: %w", path, err)
		}
		return nil
	}
	return nil
}
