// Package config loads dagtalk configuration from YAML.
//
// Secrets reference environment variables with ${VAR} placeholders,
// expanded at load time. Unset variables are left as written so a missing
// secret fails visibly at the API instead of silently becoming empty.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Resolver kinds accepted in the config file and on the command line.
const (
	KindRule   = "rule"
	KindOpenAI = "openai"
	KindGemini = "gemini"
)

// Confirmation modes for run-starting commands.
const (
	ConfirmPrompt = "prompt"
	ConfirmAuto   = "auto"
)

type Config struct {
	Airflow  AirflowConfig  `yaml:"airflow"`
	Resolver ResolverConfig `yaml:"resolver"`
	Confirm  string         `yaml:"confirm"`
	Catalog  CatalogConfig  `yaml:"catalog"`
	Audit    AuditConfig    `yaml:"audit"`
	Log      LogConfig      `yaml:"log"`
}

type AirflowConfig struct {
	BaseURL  string   `yaml:"base_url"`
	Username string   `yaml:"username"`
	Password string   `yaml:"password"`
	Token    string   `yaml:"token"`
	Timeout  Duration `yaml:"timeout"`
	PageSize int      `yaml:"page_size"`
}

type ResolverConfig struct {
	// Kind left empty means unset; the command line picks the resolver
	// (flag, then API-key detection, then rule).
	Kind    string `yaml:"kind"`
	Model   string `yaml:"model"`
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"` // openai-compatible endpoints only
}

type CatalogConfig struct {
	Preload *bool `yaml:"preload"`
}

// PreloadEnabled reports whether the DAG catalog should be listed before
// resolving. Defaults to true when unset.
func (c CatalogConfig) PreloadEnabled() bool {
	return c.Preload == nil || *c.Preload
}

type AuditConfig struct {
	Path string `yaml:"path"` // empty disables the audit log
}

type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn or error
	Format string `yaml:"format"` // text or json
}

// Duration decodes YAML strings like "30s" or "2m" into a time.Duration.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

var envPattern = regexp.MustCompile(`\$\{([^}]+)}`)

func expandEnv(s string) string {
	return envPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := envPattern.FindStringSubmatch(match)[1]
		if val, ok := os.LookupEnv(varName); ok {
			return val
		}
		return match
	})
}

func expandEnvInConfig(cfg *Config) {
	cfg.Airflow.BaseURL = expandEnv(cfg.Airflow.BaseURL)
	cfg.Airflow.Username = expandEnv(cfg.Airflow.Username)
	cfg.Airflow.Password = expandEnv(cfg.Airflow.Password)
	cfg.Airflow.Token = expandEnv(cfg.Airflow.Token)
	cfg.Resolver.APIKey = expandEnv(cfg.Resolver.APIKey)
	cfg.Resolver.BaseURL = expandEnv(cfg.Resolver.BaseURL)
	cfg.Audit.Path = expandEnv(cfg.Audit.Path)
}

func applyDefaults(cfg *Config) {
	if cfg.Airflow.BaseURL == "" {
		cfg.Airflow.BaseURL = "http://localhost:8080"
	}
	// The Airflow quickstart ships with airflow/airflow; only fill them in
	// when no credentials of any kind were configured.
	if cfg.Airflow.Username == "" && cfg.Airflow.Password == "" && cfg.Airflow.Token == "" {
		cfg.Airflow.Username = "airflow"
		cfg.Airflow.Password = "airflow"
	}
	if cfg.Confirm == "" {
		cfg.Confirm = ConfirmPrompt
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}

func validate(cfg *Config) error {
	switch cfg.Resolver.Kind {
	case "", KindRule, KindOpenAI, KindGemini:
	default:
		return fmt.Errorf("unknown resolver kind %q (want rule, openai or gemini)", cfg.Resolver.Kind)
	}
	switch cfg.Confirm {
	case ConfirmPrompt, ConfirmAuto:
	default:
		return fmt.Errorf("unknown confirm mode %q (want prompt or auto)", cfg.Confirm)
	}
	switch cfg.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q (want debug, info, warn or error)", cfg.Log.Level)
	}
	switch cfg.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q (want text or json)", cfg.Log.Format)
	}
	return nil
}

// DefaultPath returns the conventional config location,
// ~/.dagtalk/config.yaml. Empty when the home directory is unknown.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".dagtalk", "config.yaml")
}

// Default returns the configuration used when no config file exists.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Load reads and parses the config file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse parses YAML config data, expands ${VAR} references and applies
// defaults.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	expandEnvInConfig(&cfg)
	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
