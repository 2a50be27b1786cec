package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadAppConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadAppConfig(filepath.Join(t.TempDir(), "nope.yml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultAppConfig(), cfg)
	assert.Equal(t, 10, cfg.MaxIterations)
	assert.Equal(t, 100, cfg.MaxFacts)
	assert.Equal(t, "file", cfg.Cache.Backend)
	assert.Equal(t, 60, cfg.CircuitBreaker.TimeoutSeconds)
}

func TestLoadAppConfig_PartialFile(t *testing.T) {
	path := writeFile(t, "app_config.yml", `
max_iterations: 4
cache:
  backend: redis
  redis_addr: localhost:6379
  default_ttl: 120
rate_limit:
  requests_per_second: 0.5
circuit_breaker:
  failure_threshold: 2
`)

	cfg, err := LoadAppConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.MaxIterations)
	assert.Equal(t, DefaultMaxFacts, cfg.MaxFacts)
	assert.Equal(t, "redis", cfg.Cache.Backend)
	assert.Equal(t, "localhost:6379", cfg.Cache.RedisAddr)
	assert.Equal(t, 120, int(cfg.Cache.TTL().Seconds()))
	assert.Equal(t, 0.5, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 5, cfg.RateLimit.BucketCapacity)
	assert.Equal(t, 2, cfg.CircuitBreaker.FailureThreshold)
	assert.Equal(t, 60, int(cfg.CircuitBreaker.Timeout().Seconds()))
}

func TestLoadAppConfig_InvalidYAML(t *testing.T) {
	path := writeFile(t, "app_config.yml", "max_iterations: [")
	_, err := LoadAppConfig(path)
	assert.Error(t, err)
}

func TestLoadLLMConfig(t *testing.T) {
	path := writeFile(t, "llm_config.yml", `
openai_endpoints:
  endpoints:
    - name: quick-medium
      provider: openai
      model_id: gpt-4o-mini
      api_base: https://openrouter.ai/api/v1
      temperature: 0.2
    - name: tool-big
      provider: anthropic
      model_id: claude-3-5-sonnet-latest
`)

	cfg, err := LoadLLMConfig(path)
	require.NoError(t, err)

	e, ok := cfg.Endpoint("quick-medium")
	require.True(t, ok)
	assert.Equal(t, "gpt-4o-mini", e.ModelID)
	assert.Equal(t, float32(0.2), e.Temperature)

	e, ok = cfg.Endpoint("tool-big")
	require.True(t, ok)
	assert.Equal(t, "anthropic", e.Provider)

	_, ok = cfg.Endpoint("missing")
	assert.False(t, ok)
}

func TestLoadLLMConfig_MissingFile(t *testing.T) {
	cfg, err := LoadLLMConfig(filepath.Join(t.TempDir(), "nope.yml"))
	require.NoError(t, err)
	assert.Empty(t, cfg.OpenAIEndpoints.Endpoints)
}

func TestEnvAccessors(t *testing.T) {
	t.Setenv("LLM_API_KEY", "")
	assert.Equal(t, "EMPTY", LLMAPIKey())
	t.Setenv("LLM_API_KEY", "sk-test")
	assert.Equal(t, "sk-test", LLMAPIKey())

	t.Setenv("SERVER_PORT", "not-a-port")
	assert.Equal(t, ":8080", ServerAddr())
	t.Setenv("SERVER_PORT", "9000")
	assert.Equal(t, ":9000", ServerAddr())

	t.Setenv("APP_CONFIG_PATH", "")
	assert.Equal(t, "msa/app_config.yml", AppConfigPath())
	t.Setenv("LLM_CONFIG_PATH", "/etc/msa/llm.yml")
	assert.Equal(t, "/etc/msa/llm.yml", LLMConfigPath())

	t.Setenv("RATE_LIMIT_RPS", "-3")
	assert.Equal(t, 10.0, RateLimitRPS())
	t.Setenv("RATE_LIMIT_BURST", "7")
	assert.Equal(t, 7, RateLimitBurst())
}

func TestLoad_ReadsEnvFileAndSecret(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte("MSA_TEST_PLAIN=plain\n"), 0o600))
	require.NoError(t, os.WriteFile(envFile+".secret", []byte("MSA_TEST_SECRET=hidden\n"), 0o600))

	t.Setenv("MSA_ENV", envFile)
	t.Setenv("MSA_TEST_PLAIN", "")
	t.Setenv("MSA_TEST_SECRET", "")
	require.NoError(t, os.Unsetenv("MSA_TEST_PLAIN"))
	require.NoError(t, os.Unsetenv("MSA_TEST_SECRET"))

	require.NoError(t, Load())
	assert.Equal(t, "plain", os.Getenv("MSA_TEST_PLAIN"))
	assert.Equal(t, "hidden", os.Getenv("MSA_TEST_SECRET"))
}
