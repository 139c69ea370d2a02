package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Archive  ArchiveConfig
	Services ServicesConfig
	Ai       AIConfig
	Pipeline PipelineConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
}

type ArchiveConfig struct {
	Connection string
}

type ServicesConfig struct {
	GeneratorURL         string
	GeneratorTimeoutSecs int
	MediaSearchURL       string
	MediaSearchKey       string
	CmsURL               string
}

type AIConfig struct {
	LLMProvider   string // "ollama" or "huggingface"
	LLMModel      string // e.g. "llama3", "qwen2.5"
	OllamaBaseURL string
	HFApiKey      string
}

type PipelineConfig struct {
	UploadDir            string
	MaxUploadSizeMB      int
	MaxMediaResults      int
	RetentionMinutes     int
	ChatIdleHours        int
	FoundationPromptPath string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", ""),
			RedisURL:           getEnv("REDIS_URL", ""),
		},
		Archive: ArchiveConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Services: ServicesConfig{
			GeneratorURL:         getEnv("GENERATOR_URL", "http://localhost:8001"),
			GeneratorTimeoutSecs: getEnvAsInt("GENERATOR_TIMEOUT_SECS", 300),
			MediaSearchURL:       getEnv("MEDIA_SEARCH_URL", "http://localhost:8002"),
			MediaSearchKey:       getEnv("MEDIA_SEARCH_API_KEY", ""),
			CmsURL:               getEnv("CMS_URL", "http://localhost:3001"),
		},
		Ai: AIConfig{
			LLMProvider:   getEnv("LLM_PROVIDER", "ollama"),
			LLMModel:      getEnv("LLM_MODEL", "llama3"),
			OllamaBaseURL: getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			HFApiKey:      getEnv("HF_API_KEY", ""),
		},
		Pipeline: PipelineConfig{
			UploadDir:            getEnv("UPLOAD_DIR", "./uploads"),
			MaxUploadSizeMB:      getEnvAsInt("MAX_UPLOAD_SIZE_MB", 25),
			MaxMediaResults:      getEnvAsInt("MAX_MEDIA_RESULTS", 5),
			RetentionMinutes:     getEnvAsInt("SESSION_RETENTION_MINUTES", 60),
			ChatIdleHours:        getEnvAsInt("CHAT_IDLE_HOURS", 24),
			FoundationPromptPath: getEnv("FOUNDATION_PROMPT_PATH", "config/prompts.json"),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}
