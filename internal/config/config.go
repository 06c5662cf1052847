package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const FileName = "focusline.yml"

// Inference backends.
const (
	BackendNone      = "none"
	BackendHeuristic = "heuristic"
	BackendLlamaCpp  = "llamacpp"
	BackendGemini    = "gemini"
)

// Config models focusline.yml.
type Config struct {
	Assistant struct {
		ContextLimit int `yaml:"context_limit"`
		// MirrorGoalTask also schedules a same-day task sized to the goal's
		// daily target whenever a goal is created.
		MirrorGoalTask bool `yaml:"mirror_goal_task"`
	} `yaml:"assistant"`
	Inference Inference `yaml:"inference"`
	Server    struct {
		Addr      string `yaml:"addr"`
		BasePath  string `yaml:"base_path"`
		JWTSecret string `yaml:"jwt_secret"`
	} `yaml:"server"`
	Logging struct {
		Level       string `yaml:"level"`
		Development bool   `yaml:"development"`
	} `yaml:"logging"`
}

type Inference struct {
	Backend   string        `yaml:"backend"`
	Timeout   time.Duration `yaml:"timeout"`
	MaxTokens int           `yaml:"max_tokens"`
	LlamaCpp  struct {
		BaseURL string `yaml:"base_url"`
		Model   string `yaml:"model"`
		APIKey  string `yaml:"api_key"`
	} `yaml:"llamacpp"`
	Gemini struct {
		Model     string `yaml:"model"`
		APIKeyEnv string `yaml:"api_key_env"`
	} `yaml:"gemini"`
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if c.Assistant.ContextLimit < 0 {
		return fmt.Errorf("assistant.context_limit must not be negative")
	}
	switch c.Inference.Backend {
	case BackendNone, BackendHeuristic:
	case BackendLlamaCpp:
		if c.Inference.LlamaCpp.BaseURL == "" {
			return fmt.Errorf("inference.llamacpp.base_url is required for backend llamacpp")
		}
	case BackendGemini:
		if c.Inference.Gemini.Model == "" {
			return fmt.Errorf("inference.gemini.model is required for backend gemini")
		}
	default:
		return fmt.Errorf("inference.backend %q is not one of none, heuristic, llamacpp, gemini", c.Inference.Backend)
	}
	if c.Inference.Timeout <= 0 {
		return fmt.Errorf("inference.timeout must be positive")
	}
	if c.Inference.MaxTokens <= 0 {
		return fmt.Errorf("inference.max_tokens must be positive")
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level)
	}
	return nil
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, FileName)
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg, err := FromYAML([]byte(defaultTemplate))
	if err != nil {
		panic(fmt.Sprintf("default config invalid: %v", err))
	}
	return cfg
}

// GenerateDefault returns the default config YAML.
func GenerateDefault() string {
	return defaultTemplate
}

// LoadOptional returns the default config when the workspace has no config file.
func LoadOptional(workspace string) (*Config, error) {
	data, err := os.ReadFile(Path(workspace))
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// FromYAML parses config over the defaults and validates the result.
func FromYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal([]byte(defaultTemplate), &cfg); err != nil {
		return nil, fmt.Errorf("default config yaml: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

const defaultTemplate = `assistant:
  context_limit: 5
  mirror_goal_task: false

inference:
  # none | heuristic | llamacpp | gemini
  backend: heuristic
  timeout: 30s
  max_tokens: 256
  llamacpp:
    base_url: http://127.0.0.1:8081/v1
    model: local
  gemini:
    model: gemini-2.0-flash
    api_key_env: GEMINI_API_KEY

server:
  addr: 127.0.0.1:8080
  base_path: /v0

logging:
  level: info
  development: false
`
