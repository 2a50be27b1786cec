package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultMaxIterations = 10
	DefaultMaxFacts      = 100
	DefaultCacheTTL      = 3600
	DefaultCacheBackend  = "file"
	DefaultCacheDir      = "msa/cache"
)

// AppConfig mirrors app_config.yml. Zero values are replaced by defaults in
// applyDefaults, so a missing or partial file is valid.
type AppConfig struct {
	MaxIterations  int                  `yaml:"max_iterations"`
	MaxFacts       int                  `yaml:"max_facts"`
	Cache          CacheConfig          `yaml:"cache"`
	RateLimit      RateLimitConfig      `yaml:"rate_limit"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`
}

type CacheConfig struct {
	DefaultTTL int `yaml:"default_ttl"`
	// Backend is one of file, badger, redis.
	Backend   string `yaml:"backend"`
	Dir       string `yaml:"dir"`
	RedisAddr string `yaml:"redis_addr"`
}

func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.DefaultTTL) * time.Second
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	BucketCapacity    int     `yaml:"bucket_capacity"`
}

type CircuitBreakerConfig struct {
	FailureThreshold int `yaml:"failure_threshold"`
	TimeoutSeconds   int `yaml:"timeout_seconds"`
	HalfOpenAttempts int `yaml:"half_open_attempts"`
}

func (c CircuitBreakerConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func DefaultAppConfig() AppConfig {
	cfg := AppConfig{}
	cfg.applyDefaults()
	return cfg
}

func (c *AppConfig) applyDefaults() {
	if c.MaxIterations <= 0 {
		c.MaxIterations = DefaultMaxIterations
	}
	if c.MaxFacts <= 0 {
		c.MaxFacts = DefaultMaxFacts
	}
	if c.Cache.DefaultTTL <= 0 {
		c.Cache.DefaultTTL = DefaultCacheTTL
	}
	if c.Cache.Backend == "" {
		c.Cache.Backend = DefaultCacheBackend
	}
	if c.Cache.Dir == "" {
		c.Cache.Dir = DefaultCacheDir
	}
	if c.RateLimit.RequestsPerSecond <= 0 {
		c.RateLimit.RequestsPerSecond = 1
	}
	if c.RateLimit.BucketCapacity <= 0 {
		c.RateLimit.BucketCapacity = 5
	}
	if c.CircuitBreaker.FailureThreshold <= 0 {
		c.CircuitBreaker.FailureThreshold = 5
	}
	if c.CircuitBreaker.TimeoutSeconds <= 0 {
		c.CircuitBreaker.TimeoutSeconds = 60
	}
	if c.CircuitBreaker.HalfOpenAttempts <= 0 {
		c.CircuitBreaker.HalfOpenAttempts = 3
	}
}

// LoadAppConfig reads the YAML app config at path. A missing file yields the
// defaults; a file that does not parse is an error.
func LoadAppConfig(path string) (AppConfig, error) {
	var cfg AppConfig
	if err := readYAML(path, &cfg); err != nil {
		return AppConfig{}, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

// Endpoint is one named LLM endpoint in llm_config.yml.
type Endpoint struct {
	Name        string  `yaml:"name"`
	Provider    string  `yaml:"provider"`
	ModelID     string  `yaml:"model_id"`
	APIBase     string  `yaml:"api_base"`
	Temperature float32 `yaml:"temperature"`
}

type LLMConfig struct {
	OpenAIEndpoints struct {
		Endpoints []Endpoint `yaml:"endpoints"`
	} `yaml:"openai_endpoints"`
}

// Endpoint returns the endpoint with the given name.
func (c LLMConfig) Endpoint(name string) (Endpoint, bool) {
	for _, e := range c.OpenAIEndpoints.Endpoints {
		if e.Name == name {
			return e, true
		}
	}
	return Endpoint{}, false
}

// LoadLLMConfig reads llm_config.yml. A missing file yields an empty config.
func LoadLLMConfig(path string) (LLMConfig, error) {
	var cfg LLMConfig
	if err := readYAML(path, &cfg); err != nil {
		return LLMConfig{}, err
	}
	return cfg, nil
}

func readYAML(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}
