package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Load reads the .env file specified by MSA_ENV (or .env by default),
// then loads the corresponding .secret file if it exists.
// Secrets and deployment settings are flat env vars read via os.Getenv after
// loading; tuning knobs live in the YAML app config.
func Load() error {
	envFile := os.Getenv("MSA_ENV")
	if envFile == "" {
		envFile = ".env"
	}

	// Load main env file (ignore error if file doesn't exist)
	_ = godotenv.Load(envFile)

	// Load secret sidecar if it exists
	_ = godotenv.Load(envFile + ".secret")

	return nil
}

func ServerPort() int {
	port, err := strconv.Atoi(os.Getenv("SERVER_PORT"))
	if err != nil {
		return 8080
	}
	return port
}

func ServerAddr() string {
	return fmt.Sprintf(":%d", ServerPort())
}

// LLMAPIKey is used by OpenAI-compatible endpoints (OpenRouter by default).
// Defaults to "EMPTY" so local servers that ignore auth still work.
func LLMAPIKey() string {
	key := os.Getenv("LLM_API_KEY")
	if key == "" {
		return "EMPTY"
	}
	return key
}

func AnthropicAPIKey() string {
	return os.Getenv("ANTHROPIC_API_KEY")
}

func SerpAPIKey() string {
	return os.Getenv("SERPAPI_API_KEY")
}

// AppConfigPath defaults to msa/app_config.yml.
func AppConfigPath() string {
	p := os.Getenv("APP_CONFIG_PATH")
	if p == "" {
		return "msa/app_config.yml"
	}
	return p
}

// LLMConfigPath defaults to msa/llm_config.yml.
func LLMConfigPath() string {
	p := os.Getenv("LLM_CONFIG_PATH")
	if p == "" {
		return "msa/llm_config.yml"
	}
	return p
}

// RateLimitRPS returns the HTTP API requests per second limit.
// Defaults to 10 if not set.
func RateLimitRPS() float64 {
	rps, err := strconv.ParseFloat(os.Getenv("RATE_LIMIT_RPS"), 64)
	if err != nil || rps <= 0 {
		return 10
	}
	return rps
}

// RateLimitBurst returns the burst size for HTTP API rate limiting.
// Defaults to 20 if not set.
func RateLimitBurst() int {
	burst, err := strconv.Atoi(os.Getenv("RATE_LIMIT_BURST"))
	if err != nil || burst <= 0 {
		return 20
	}
	return burst
}

// LogLevel returns the log level (debug, info, warn, error).
// Defaults to "info" if not set.
func LogLevel() string {
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		return "info"
	}
	return level
}
