package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the retrievex API configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Auth      AuthConfig      `yaml:"auth"`
	Registry  RegistryConfig  `yaml:"registry"`
	Sources   SourcesConfig   `yaml:"sources"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	LLM       LLMConfig       `yaml:"llm"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// RegistryConfig holds service registry settings.
type RegistryConfig struct {
	Driver           string      `yaml:"driver"` // static, redis (default: static)
	App              string      `yaml:"app"`
	Process          string      `yaml:"process"` // DNS template process type (default: worker)
	Port             int         `yaml:"port"`    // DNS template port (default: 5000)
	Redis            RedisConfig `yaml:"redis"`
	ReadinessTimeout int         `yaml:"readiness_timeout_sec"`
}

// RedisConfig holds Redis registry connection settings.
type RedisConfig struct {
	Addrs     []string `yaml:"addrs"`
	Username  string   `yaml:"username"`
	Password  string   `yaml:"password"`
	DB        int      `yaml:"db"`
	KeyPrefix string   `yaml:"key_prefix"`
}

// SourcesConfig holds per-source defaults and overrides.
type SourcesConfig struct {
	DefaultMaxDocuments  int                     `yaml:"default_max_documents"`
	DefaultMinConfidence float64                 `yaml:"default_min_confidence"`
	Overrides            map[string]SourceConfig `yaml:"overrides"`
}

// SourceConfig holds optional per-source overrides. Endpoint is only used by
// the static registry driver; empty means "derive from the DNS template".
type SourceConfig struct {
	Endpoint      string        `yaml:"endpoint"`
	MaxDocuments  *int          `yaml:"max_documents"`
	MinConfidence *float64      `yaml:"min_confidence"`
	Filter        *FilterConfig `yaml:"filter"`
}

// FilterConfig is the YAML form of a backend-interpreted filter expression.
type FilterConfig struct {
	Must    []ConditionConfig `yaml:"must"`
	Should  []ConditionConfig `yaml:"should"`
	MustNot []ConditionConfig `yaml:"must_not"`
}

// ConditionConfig is one key/operator/value predicate leaf.
type ConditionConfig struct {
	Key   string `yaml:"key"`
	Op    string `yaml:"op"`
	Value any    `yaml:"value"`
}

// RetrievalConfig holds call-wide retrieval settings.
type RetrievalConfig struct {
	SourceToken       string       `yaml:"source_token"` // bearer credential for backend sources
	RequestTimeoutSec int          `yaml:"request_timeout_sec"`
	Grading           bool         `yaml:"grading"`
	Decomposition     bool         `yaml:"decomposition"`
	Rerank            RerankConfig `yaml:"rerank"`
	InsecureSkipTLS   bool         `yaml:"insecure_skip_tls_verify"`
}

// RerankConfig holds the global post-merge rerank controls.
type RerankConfig struct {
	Enabled       bool    `yaml:"enabled"`
	MaxDocuments  int     `yaml:"max_documents"`
	MinConfidence float64 `yaml:"min_confidence"`
}

// LLMConfig holds the capability provider settings (decomposition, rerank).
type LLMConfig struct {
	APIKey             string `yaml:"api_key"`
	BaseURL            string `yaml:"base_url"`
	DecompositionModel string `yaml:"decomposition_model"`
	RerankModel        string `yaml:"rerank_model"`
	MaxSubqueries      int    `yaml:"max_subqueries"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
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
		panic(err)
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

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 60
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Registry.Driver == "" {
		c.Registry.Driver = "static"
	}
	if c.Registry.Process == "" {
		c.Registry.Process = "worker"
	}
	if c.Registry.Port <= 0 {
		c.Registry.Port = 5000
	}
	if c.Registry.ReadinessTimeout <= 0 {
		c.Registry.ReadinessTimeout = 10
	}
	if c.Registry.Redis.KeyPrefix == "" {
		c.Registry.Redis.KeyPrefix = "retrievex"
	}
	if c.Sources.DefaultMaxDocuments <= 0 {
		c.Sources.DefaultMaxDocuments = 10
	}
	if c.Retrieval.RequestTimeoutSec <= 0 {
		c.Retrieval.RequestTimeoutSec = 30
	}
	if c.LLM.MaxSubqueries <= 0 {
		c.LLM.MaxSubqueries = 4
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.Registry.App == "" {
		return fmt.Errorf("registry.app is required")
	}
	switch c.Registry.Driver {
	case "static":
		// endpoints come from sources.overrides or the DNS template
	case "redis":
		if len(c.Registry.Redis.Addrs) == 0 {
			return fmt.Errorf("registry.redis.addrs is required for the redis driver")
		}
	default:
		return fmt.Errorf("registry.driver must be \"static\" or \"redis\", got %q", c.Registry.Driver)
	}
	if min := c.Sources.DefaultMinConfidence; min < 0 || min > 1 {
		return fmt.Errorf("sources.default_min_confidence must be between 0 and 1, got %v", min)
	}
	for name, src := range c.Sources.Overrides {
		if src.MinConfidence != nil && (*src.MinConfidence < 0 || *src.MinConfidence > 1) {
			return fmt.Errorf(
				"sources.overrides.%s.min_confidence must be between 0 and 1, got %v",
				name, *src.MinConfidence,
			)
		}
	}
	if min := c.Retrieval.Rerank.MinConfidence; min < 0 || min > 1 {
		return fmt.Errorf("retrieval.rerank.min_confidence must be between 0 and 1, got %v", min)
	}
	if c.Retrieval.Decomposition && c.LLM.DecompositionModel == "" {
		return fmt.Errorf("llm.decomposition_model is required when retrieval.decomposition is enabled")
	}
	if c.Retrieval.Rerank.Enabled && c.LLM.RerankModel == "" {
		return fmt.Errorf("llm.rerank_model is required when retrieval.rerank is enabled")
	}
	return nil
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
