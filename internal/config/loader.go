package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"giftmatch/internal/core"
	"giftmatch/internal/logger"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every service-specific environment variable
const EnvPrefix = "GIFTMATCH"

// YAMLConfig represents the structure of config.yaml
type YAMLConfig struct {
	Server struct {
		Addr            string        `yaml:"addr"`
		RequestTimeout  time.Duration `yaml:"request_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`

	LLM struct {
		Provider    string        `yaml:"provider"`
		Model       string        `yaml:"model"`
		BaseURL     string        `yaml:"base_url"`
		Temperature *float32      `yaml:"temperature"`
		MaxTokens   int           `yaml:"max_tokens"`
		Timeout     time.Duration `yaml:"timeout"`
	} `yaml:"llm"`

	Moderation struct {
		Enabled *bool  `yaml:"enabled"`
		BaseURL string `yaml:"base_url"`
		Model   string `yaml:"model"`
	} `yaml:"moderation"`

	Catalog struct {
		Path string `yaml:"path"`
	} `yaml:"catalog"`

	Session struct {
		Backend     string        `yaml:"backend"`
		TTL         time.Duration `yaml:"ttl"`
		MaxMessages int           `yaml:"max_messages"`
	} `yaml:"session"`

	Redis struct {
		URL       string `yaml:"url"`
		KeyPrefix string `yaml:"key_prefix"`
	} `yaml:"redis"`

	Retrieval struct {
		Enabled           bool   `yaml:"enabled"`
		TopK              int    `yaml:"top_k"`
		KeyPrefix         string `yaml:"key_prefix"`
		MaxToolIterations int    `yaml:"max_tool_iterations"`
	} `yaml:"retrieval"`

	Graph struct {
		MaxSteps int `yaml:"max_steps"`
	} `yaml:"graph"`

	Log logger.LogConfig `yaml:"log"`
}

// EnvOverrides holds secrets and deployment overrides read from GIFTMATCH_* variables
type EnvOverrides struct {
	Addr             string `envconfig:"ADDR"`
	LLMProvider      string `envconfig:"LLM_PROVIDER"`
	LLMModel         string `envconfig:"LLM_MODEL"`
	LLMAPIKey        string `envconfig:"LLM_API_KEY"`
	LLMBaseURL       string `envconfig:"LLM_BASE_URL"`
	ModerationAPIKey string `envconfig:"MODERATION_API_KEY"`
	CatalogPath      string `envconfig:"CATALOG_PATH"`
	SessionBackend   string `envconfig:"SESSION_BACKEND"`
	RedisURL         string `envconfig:"REDIS_URL"`
	LogLevel         string `envconfig:"LOG_LEVEL"`
	LogFormat        string `envconfig:"LOG_FORMAT"`
}

// sharedEnv holds conventional variables shared with other tools
type sharedEnv struct {
	OpenAIAPIKey string `envconfig:"OPENAI_API_KEY"`
	RedisURL     string `envconfig:"REDIS_URL"`
}

// LoadConfig loads configuration from config.yaml
func LoadConfig(filepath string) (*YAMLConfig, error) {
	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config YAMLConfig
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, fmt.Errorf("error parsing YAML: %w", err)
	}

	return &config, nil
}

// LoadEnvOverrides reads GIFTMATCH_* variables, falling back to OPENAI_API_KEY and REDIS_URL
func LoadEnvOverrides() (EnvOverrides, error) {
	var env EnvOverrides
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return env, fmt.Errorf("error processing environment configuration: %w", err)
	}

	var shared sharedEnv
	if err := envconfig.Process("", &shared); err != nil {
		return env, fmt.Errorf("error processing environment configuration: %w", err)
	}
	if env.LLMAPIKey == "" {
		env.LLMAPIKey = shared.OpenAIAPIKey
	}
	if env.ModerationAPIKey == "" {
		env.ModerationAPIKey = shared.OpenAIAPIKey
	}
	if env.RedisURL == "" {
		env.RedisURL = shared.RedisURL
	}
	return env, nil
}

// Load reads the YAML file (optional) and the environment and returns a validated core.Config
func Load(path string) (core.Config, error) {
	yamlConfig := &YAMLConfig{}
	if path != "" {
		loaded, err := LoadConfig(path)
		switch {
		case err == nil:
			yamlConfig = loaded
		case errors.Is(err, fs.ErrNotExist):
			logger.Warn().Str("path", path).Msg("Config file not found, using defaults")
		default:
			return core.Config{}, err
		}
	}

	env, err := LoadEnvOverrides()
	if err != nil {
		return core.Config{}, err
	}

	cfg := BuildCoreConfig(yamlConfig, env)
	if err := Validate(cfg); err != nil {
		return core.Config{}, err
	}
	return cfg, nil
}

// BuildCoreConfig creates core.Config from YAML values and environment overrides, filling defaults
func BuildCoreConfig(yamlConfig *YAMLConfig, env EnvOverrides) core.Config {
	temperature := float32(0.7)
	if yamlConfig.LLM.Temperature != nil {
		temperature = *yamlConfig.LLM.Temperature
	}
	moderationEnabled := true
	if yamlConfig.Moderation.Enabled != nil {
		moderationEnabled = *yamlConfig.Moderation.Enabled
	}

	cfg := core.Config{
		Server: core.ServerConfig{
			Addr:            firstNonEmpty(env.Addr, yamlConfig.Server.Addr, ":8080"),
			RequestTimeout:  durationOr(yamlConfig.Server.RequestTimeout, 30*time.Second),
			ShutdownTimeout: durationOr(yamlConfig.Server.ShutdownTimeout, 10*time.Second),
		},
		LLM: core.LLMConfig{
			Provider:    firstNonEmpty(env.LLMProvider, yamlConfig.LLM.Provider, "openai"),
			Model:       firstNonEmpty(env.LLMModel, yamlConfig.LLM.Model, "gpt-4o-mini"),
			APIKey:      env.LLMAPIKey,
			BaseURL:     firstNonEmpty(env.LLMBaseURL, yamlConfig.LLM.BaseURL),
			Temperature: temperature,
			MaxTokens:   intOr(yamlConfig.LLM.MaxTokens, 1500),
			Timeout:     durationOr(yamlConfig.LLM.Timeout, 60*time.Second),
		},
		Moderation: core.ModerationConfig{
			Enabled: moderationEnabled && env.ModerationAPIKey != "",
			APIKey:  env.ModerationAPIKey,
			BaseURL: yamlConfig.Moderation.BaseURL,
			Model:   firstNonEmpty(yamlConfig.Moderation.Model, "omni-moderation-latest"),
		},
		Catalog: core.CatalogConfig{
			Path: firstNonEmpty(env.CatalogPath, yamlConfig.Catalog.Path, "data/gift_recommendation_dataset_india.csv"),
		},
		Session: core.SessionConfig{
			Backend:     firstNonEmpty(env.SessionBackend, yamlConfig.Session.Backend, "memory"),
			TTL:         durationOr(yamlConfig.Session.TTL, 40*time.Minute),
			MaxMessages: intOr(yamlConfig.Session.MaxMessages, 50),
		},
		Redis: core.RedisConfig{
			URL:       firstNonEmpty(env.RedisURL, yamlConfig.Redis.URL),
			KeyPrefix: firstNonEmpty(yamlConfig.Redis.KeyPrefix, "giftmatch:"),
		},
		Retrieval: core.RetrievalConfig{
			Enabled:           yamlConfig.Retrieval.Enabled,
			TopK:              intOr(yamlConfig.Retrieval.TopK, 40),
			KeyPrefix:         firstNonEmpty(yamlConfig.Retrieval.KeyPrefix, "giftmatch:docs:"),
			MaxToolIterations: intOr(yamlConfig.Retrieval.MaxToolIterations, 4),
		},
		Graph: core.GraphConfig{
			DefaultFlow: DefaultFlow(),
			MaxSteps:    intOr(yamlConfig.Graph.MaxSteps, 16),
		},
		Log: yamlConfig.Log,
	}

	cfg.Log.Level = firstNonEmpty(env.LogLevel, cfg.Log.Level, "info")
	cfg.Log.Format = firstNonEmpty(env.LogFormat, cfg.Log.Format, "json")
	cfg.Log.Output = firstNonEmpty(cfg.Log.Output, "stdout")

	return cfg
}

// DefaultFlow is the chat-turn graph: moderation, context extraction, then either a
// clarifying question or a recommendation, and finally the system prompt
func DefaultFlow() core.GraphFlow {
	return core.GraphFlow{
		StartNode: core.NodeModeration,
		Edges: map[string][]core.GraphEdge{
			core.NodeModeration: {
				{To: core.NodeContext, Priority: 1},
			},
			core.NodeContext: {
				{To: core.NodeRecommend, Condition: map[string]any{core.KeyReady: true}, Priority: 1},
				{To: core.NodeClarify, Priority: 2},
			},
			core.NodeRecommend: {
				{To: core.NodePrompt, Priority: 1},
			},
			core.NodeClarify: {
				{To: core.NodePrompt, Priority: 1},
			},
			core.NodePrompt: {
				{To: core.NodeComplete, Priority: 1},
			},
		},
	}
}

var validProviders = map[string]bool{"openai": true, "ark": true, "deepseek": true, "ollama": true}

// Validate checks the assembled configuration for values the service cannot run with
func Validate(cfg core.Config) error {
	if !validProviders[cfg.LLM.Provider] {
		return fmt.Errorf("unsupported llm provider %q", cfg.LLM.Provider)
	}
	if cfg.LLM.Provider != "ollama" && cfg.LLM.APIKey == "" {
		return fmt.Errorf("llm provider %s requires %s_LLM_API_KEY or OPENAI_API_KEY", cfg.LLM.Provider, EnvPrefix)
	}
	switch cfg.Session.Backend {
	case "memory":
	case "redis":
		if cfg.Redis.URL == "" {
			return fmt.Errorf("session backend redis requires a redis url")
		}
	default:
		return fmt.Errorf("unsupported session backend %q", cfg.Session.Backend)
	}
	if cfg.Retrieval.Enabled && cfg.Redis.URL == "" {
		return fmt.Errorf("retrieval requires a redis url")
	}
	if cfg.Server.RequestTimeout <= 0 {
		return fmt.Errorf("server request timeout must be positive")
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func durationOr(value, fallback time.Duration) time.Duration {
	if value > 0 {
		return value
	}
	return fallback
}

func intOr(value, fallback int) int {
	if value > 0 {
		return value
	}
	return fallback
}
