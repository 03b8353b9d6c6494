package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"quran-ai/internal/models"
)

const (
	defaultPort            = 8080
	defaultReadTimeout     = 30 * time.Second
	defaultWriteTimeout    = 10 * time.Minute
	defaultIdleTimeout     = 120 * time.Second
	defaultUpstreamTimeout = 3 * time.Minute

	defaultScriptureBaseURL   = "https://api.alquran.cloud/v1"
	defaultSourceEdition      = "quran-uthmani"
	defaultTranslationEdition = "id.indonesian"
	defaultScriptureTimeout   = 20 * time.Second
)

var providerDefaults = map[models.ProviderID]ProviderConfig{
	models.ProviderTogether: {
		BaseURL:      "https://api.together.xyz/v1",
		DefaultModel: "meta-llama/Llama-3.3-70B-Instruct-Turbo-Free",
	},
	models.ProviderGroq: {
		BaseURL:      "https://api.groq.com/openai/v1",
		DefaultModel: "mixtral-8x7b-32768",
	},
	models.ProviderOpenRouter: {
		BaseURL:      "https://openrouter.ai/api/v1",
		DefaultModel: "deepseek/deepseek-r1-0528:free",
		Headers: Headers{
			"HTTP-Referer": "https://quran-ai.vercel.app",
			"X-Title":      "Quran AI App",
		},
	},
}

// Config represents the application configuration parsed from YAML.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Providers ProvidersConfig `yaml:"providers"`
	Scripture ScriptureConfig `yaml:"scripture"`
}

// ServerConfig defines listener configuration.
type ServerConfig struct {
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ProvidersConfig catalogues the three upstream providers.
type ProvidersConfig struct {
	Together   ProviderConfig `yaml:"together"`
	Groq       ProviderConfig `yaml:"groq"`
	OpenRouter ProviderConfig `yaml:"openrouter"`
}

// ProviderConfig captures authentication and routing info for a provider.
type ProviderConfig struct {
	APIKey       string        `yaml:"api_key"`
	BaseURL      string        `yaml:"base_url"`
	DefaultModel string        `yaml:"default_model"`
	Headers      Headers       `yaml:"headers"`
	Timeout      time.Duration `yaml:"timeout"`
}

// Headers contains additional HTTP headers to send with a provider request.
type Headers map[string]string

// ScriptureConfig points at the public scripture API.
type ScriptureConfig struct {
	BaseURL            string        `yaml:"base_url"`
	SourceEdition      string        `yaml:"source_edition"`
	TranslationEdition string        `yaml:"translation_edition"`
	Timeout            time.Duration `yaml:"timeout"`
}

// Provider returns the configuration block for id.
func (p ProvidersConfig) Provider(id models.ProviderID) (ProviderConfig, bool) {
	switch id {
	case models.ProviderTogether:
		return p.Together, true
	case models.ProviderGroq:
		return p.Groq, true
	case models.ProviderOpenRouter:
		return p.OpenRouter, true
	}
	return ProviderConfig{}, false
}

// Default returns a configuration with every default applied and API keys
// taken from the conventional environment variables.
func Default() Config {
	cfg := Config{
		Providers: ProvidersConfig{
			Together:   ProviderConfig{APIKey: os.Getenv("TOGETHER_API_KEY")},
			Groq:       ProviderConfig{APIKey: os.Getenv("GROQ_API_KEY")},
			OpenRouter: ProviderConfig{APIKey: os.Getenv("OPENROUTER_API_KEY")},
		},
	}
	cfg.applyDefaults()
	return cfg
}

// Load reads YAML configuration from disk, expands ${VAR} references and
// validates the result.
func Load(path string) (Config, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return Config{}, fmt.Errorf("resolve config path: %w", err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return Config{}, fmt.Errorf("read config file %q: %w", absPath, err)
	}

	cfg, err := Parse([]byte(os.ExpandEnv(string(data))))
	if err != nil {
		return Config{}, fmt.Errorf("config file %q: %w", absPath, err)
	}
	return cfg, nil
}

// Parse decodes YAML, fills defaults and validates.
func Parse(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = defaultPort
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = defaultReadTimeout
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = defaultWriteTimeout
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = defaultIdleTimeout
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}

	c.Providers.Together = withProviderDefaults(c.Providers.Together, providerDefaults[models.ProviderTogether])
	c.Providers.Groq = withProviderDefaults(c.Providers.Groq, providerDefaults[models.ProviderGroq])
	c.Providers.OpenRouter = withProviderDefaults(c.Providers.OpenRouter, providerDefaults[models.ProviderOpenRouter])

	if c.Scripture.BaseURL == "" {
		c.Scripture.BaseURL = defaultScriptureBaseURL
	}
	if c.Scripture.SourceEdition == "" {
		c.Scripture.SourceEdition = defaultSourceEdition
	}
	if c.Scripture.TranslationEdition == "" {
		c.Scripture.TranslationEdition = defaultTranslationEdition
	}
	if c.Scripture.Timeout == 0 {
		c.Scripture.Timeout = defaultScriptureTimeout
	}
}

func withProviderDefaults(cfg, def ProviderConfig) ProviderConfig {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = def.BaseURL
	}
	if strings.TrimSpace(cfg.DefaultModel) == "" {
		cfg.DefaultModel = def.DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultUpstreamTimeout
	}
	if len(def.Headers) > 0 {
		merged := make(Headers, len(def.Headers)+len(cfg.Headers))
		for k, v := range def.Headers {
			merged[k] = v
		}
		for k, v := range cfg.Headers {
			merged[k] = v
		}
		cfg.Headers = merged
	}
	return cfg
}

// Validate performs strict sanity checks on the configuration.
func (c Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be a valid TCP port, got %d", c.Server.Port)
	}
	if c.Server.ReadTimeout < 0 || c.Server.WriteTimeout < 0 || c.Server.IdleTimeout < 0 {
		return fmt.Errorf("server timeouts must not be negative")
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level %q must be one of debug, info, warn, error", c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("log.format %q must be text or json", c.Log.Format)
	}

	for _, id := range models.PreferenceOrder {
		provider, _ := c.Providers.Provider(id)
		if err := validateProvider(string(id), provider); err != nil {
			return err
		}
	}

	if err := validateBaseURL("scripture", c.Scripture.BaseURL); err != nil {
		return err
	}
	if c.Scripture.Timeout < 0 {
		return fmt.Errorf("scripture.timeout must not be negative")
	}
	return nil
}

func validateProvider(name string, provider ProviderConfig) error {
	if err := validateBaseURL("provider "+name, provider.BaseURL); err != nil {
		return err
	}
	if strings.TrimSpace(provider.DefaultModel) == "" {
		return fmt.Errorf("provider %s: default_model must not be empty", name)
	}
	if provider.Timeout < 0 {
		return fmt.Errorf("provider %s: timeout must not be negative", name)
	}

	for headerKey := range provider.Headers {
		if !isCanonicalHTTPHeader(headerKey) {
			return fmt.Errorf("provider %s: header %q is not a valid canonical HTTP header", name, headerKey)
		}
	}
	return nil
}

func validateBaseURL(owner, raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("%s: base_url %q: %w", owner, raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s: base_url %q must use http or https", owner, raw)
	}
	if u.Host == "" {
		return fmt.Errorf("%s: base_url %q must include a host", owner, raw)
	}
	return nil
}

func isCanonicalHTTPHeader(header string) bool {
	if header == "" {
		return false
	}

	for _, r := range header {
		if !(r == '-' || (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z')) {
			return false
		}
	}
	return true
}
