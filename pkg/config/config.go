package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	JWT      JWTConfig
	Vision   VisionConfig
	Upload   UploadConfig
	Logger   LoggerConfig
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type JWTConfig struct {
	SecretKey  string
	Expiration time.Duration
	RefreshExp time.Duration
}

// VisionConfig selects and configures the vision-model backend used for
// receipt extraction. Provider is "gemini" or "gigachat".
type VisionConfig struct {
	Provider string

	GeminiAPIKey string
	GeminiModel  string

	GigaChatAPIKey string
	GigaChatScope  string

	// Reconciliation resends the image and reasons over the whole item list,
	// so it gets a longer deadline than the initial extraction call.
	ExtractTimeout   time.Duration
	ReconcileTimeout time.Duration
}

type UploadConfig struct {
	Dir          string
	MaxSizeBytes int64
}

type LoggerConfig struct {
	Level string
}

func Load() (*Config, error) {
	// .env is optional; plain environment variables win for Docker/K8s.
	for _, envFile := range []string{".env", "../.env", "../../.env"} {
		if err := godotenv.Load(envFile); err == nil {
			break
		}
	}

	readTimeout, _ := strconv.Atoi(getEnv("SERVER_READ_TIMEOUT", "30"))
	writeTimeout, _ := strconv.Atoi(getEnv("SERVER_WRITE_TIMEOUT", "30"))
	jwtExp, _ := strconv.Atoi(getEnv("JWT_EXPIRATION_HOURS", "24"))
	refreshExp, _ := strconv.Atoi(getEnv("JWT_REFRESH_EXPIRATION_HOURS", "168"))
	extractTimeout, _ := strconv.Atoi(getEnv("VISION_EXTRACT_TIMEOUT", "60"))
	reconcileTimeout, _ := strconv.Atoi(getEnv("VISION_RECONCILE_TIMEOUT", "120"))
	maxUpload, _ := strconv.ParseInt(getEnv("UPLOAD_MAX_SIZE_BYTES", "20971520"), 10, 64)

	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  time.Duration(readTimeout) * time.Second,
			WriteTimeout: time.Duration(writeTimeout) * time.Second,
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "receiptly"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		JWT: JWTConfig{
			SecretKey:  getEnv("JWT_SECRET_KEY", "change-me-in-production"),
			Expiration: time.Duration(jwtExp) * time.Hour,
			RefreshExp: time.Duration(refreshExp) * time.Hour,
		},
		Vision: VisionConfig{
			Provider:         getEnv("VISION_PROVIDER", "gemini"),
			GeminiAPIKey:     getEnv("GEMINI_API_KEY", ""),
			GeminiModel:      getEnv("GEMINI_MODEL", "gemini-2.5-pro"),
			GigaChatAPIKey:   getEnv("GIGACHAT_API_KEY", ""),
			GigaChatScope:    getEnv("GIGACHAT_SCOPE", "GIGACHAT_API_PERS"),
			ExtractTimeout:   time.Duration(extractTimeout) * time.Second,
			ReconcileTimeout: time.Duration(reconcileTimeout) * time.Second,
		},
		Upload: UploadConfig{
			Dir:          getEnv("UPLOAD_DIR", "uploads"),
			MaxSizeBytes: maxUpload,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	if cfg.Vision.Provider != "gemini" && cfg.Vision.Provider != "gigachat" {
		return nil, fmt.Errorf("unknown vision provider %q", cfg.Vision.Provider)
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
