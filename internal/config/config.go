package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Stats store drivers.
const (
	StatsDriverMemory = "memory"
	StatsDriverRedis  = "redis"
)

// Config holds the voicegate configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	OpenAI    OpenAIConfig    `yaml:"openai"`
	Session   SessionConfig   `yaml:"session"`
	KB        KBConfig        `yaml:"kb"`
	Stats     StatsConfig     `yaml:"stats"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Security  SecurityConfig  `yaml:"security"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `envconfig:"LOG_LEVEL" yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int    `envconfig:"PORT" yaml:"port"`
	ReadTimeoutSec  int    `yaml:"read_timeout_sec"`
	WriteTimeoutSec int    `yaml:"write_timeout_sec"`
	ShutdownSec     int    `yaml:"shutdown_timeout_sec"`
	StaticDir       string `envconfig:"STATIC_DIR" yaml:"static_dir"`
	// CORSAllowOrigin is a comma-separated allowlist. Empty allows any origin.
	CORSAllowOrigin string `envconfig:"CORS_ALLOW_ORIGIN" yaml:"cors_allow_origin"`
	TrustProxy      bool   `envconfig:"TRUST_PROXY" yaml:"trust_proxy"`
}

// OpenAIConfig holds upstream API settings.
type OpenAIConfig struct {
	APIKey     string `envconfig:"OPENAI_API_KEY" yaml:"api_key"`
	BaseURL    string `envconfig:"OPENAI_BASE_URL" yaml:"base_url"`
	TimeoutSec int    `envconfig:"OPENAI_TIMEOUT_SEC" yaml:"timeout_sec"`
}

// SessionConfig holds realtime session defaults.
type SessionConfig struct {
	Model           string `envconfig:"REALTIME_MODEL" yaml:"model"`
	Voice           string `envconfig:"REALTIME_VOICE" yaml:"voice"`
	TranscribeModel string `envconfig:"TRANSCRIBE_MODEL" yaml:"transcribe_model"`
	TurnSilenceMS   int    `envconfig:"TURN_SILENCE_MS" yaml:"turn_silence_ms"`
}

// KBConfig holds knowledge base settings.
type KBConfig struct {
	Path string `envconfig:"KB_PATH" yaml:"path"`
}

// StatsConfig holds query statistics storage settings.
type StatsConfig struct {
	Driver           string   `envconfig:"STATS_DRIVER" yaml:"driver"` // memory, redis (default: memory)
	Addrs            []string `envconfig:"REDIS_ADDRS" yaml:"addrs"`
	Password         string   `envconfig:"REDIS_PASSWORD" yaml:"password"`
	KeyPrefix        string   `envconfig:"STATS_KEY_PREFIX" yaml:"key_prefix"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// RateLimitConfig holds /token rate limit settings.
type RateLimitConfig struct {
	TokenPerMinute int `envconfig:"TOKEN_RATE_LIMIT" yaml:"token_per_minute"` // 0 disables
}

// SecurityConfig toggles hardening response headers.
type SecurityConfig struct {
	Headers bool `envconfig:"SECURITY_HEADERS" yaml:"headers"`
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `envconfig:"METRICS_ENABLED" yaml:"enabled"`
}

// Load reads configuration for the environment name (local, dev, prod).
// The YAML file is optional; an optional .env file and the process
// environment are applied on top of it.
func Load(env string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := Defaults()

	configPath := findConfigPath(env)
	data, err := os.ReadFile(filepath.Clean(configPath))
	switch {
	case err == nil:
		// Substitute env variables of the form ${VAR}
		data = expandEnvVars(data)
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
		// env-only configuration
	default:
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to process env: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// Defaults returns the configuration used when neither file nor env set a value.
// Boolean toggles default to on here since zero values cannot express "unset".
func Defaults() Config {
	return Config{
		HTTP: HTTPConfig{
			Port:      3000,
			StaticDir: "public",
		},
		RateLimit: RateLimitConfig{TokenPerMinute: 60},
		Security:  SecurityConfig{Headers: true},
		Metrics:   MetricsConfig{Enabled: true},
	}
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.OpenAI.BaseURL == "" {
		c.OpenAI.BaseURL = "https://api.openai.com/v1"
	}
	if c.OpenAI.TimeoutSec <= 0 {
		c.OpenAI.TimeoutSec = 15
	}
	if c.Session.Model == "" {
		c.Session.Model = "gpt-realtime"
	}
	if c.Session.Voice == "" {
		c.Session.Voice = "alloy"
	}
	if c.Session.TranscribeModel == "" {
		c.Session.TranscribeModel = "gpt-4o-transcribe"
	}
	if c.Session.TurnSilenceMS <= 0 {
		c.Session.TurnSilenceMS = 700
	}
	if c.KB.Path == "" {
		c.KB.Path = "kb/sample_kb.json"
	}
	if c.Stats.Driver == "" {
		c.Stats.Driver = StatsDriverMemory
	}
	if c.Stats.KeyPrefix == "" {
		c.Stats.KeyPrefix = "voicegate:"
	}
	if c.Stats.ReadinessTimeout <= 0 {
		c.Stats.ReadinessTimeout = 10
	}
	if c.RateLimit.TokenPerMinute < 0 {
		c.RateLimit.TokenPerMinute = 0
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.OpenAI.APIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required")
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Stats.Driver {
	case StatsDriverMemory:
		// ok
	case StatsDriverRedis:
		if len(c.Stats.Addrs) == 0 {
			return fmt.Errorf("stats.addrs is required for the redis driver")
		}
	default:
		return fmt.Errorf("stats.driver must be %q or %q, got %q",
			StatsDriverMemory, StatsDriverRedis, c.Stats.Driver)
	}
	return nil
}

// AllowedOrigins returns the trimmed CORS allowlist; nil allows any origin.
func (c *HTTPConfig) AllowedOrigins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSAllowOrigin, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
