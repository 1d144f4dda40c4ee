// Package config loads proxy settings from an optional file and the environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Quota store backends.
const (
	BackendMemory   = "memory"
	BackendDynamoDB = "dynamodb"
	BackendPostgres = "postgres"
)

// Translation provider backends.
const (
	ProviderDeepL  = "deepl"
	ProviderLambda = "lambda"
)

type Config struct {
	Server   ServerConfig
	Limits   LimitsConfig
	Quota    QuotaConfig
	Provider ProviderConfig
	Refine   RefineConfig
	Burst    BurstConfig
	Log      LogConfig
}

type ServerConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type LimitsConfig struct {
	MaxItems      int
	MaxTextLength int
}

type QuotaConfig struct {
	Backend    string
	DailyLimit int
	Window     time.Duration
	Table      string
	DSN        string
}

type ProviderConfig struct {
	Backend      string
	Endpoint     string
	APIKey       string
	SourceLang   string
	Timeout      time.Duration
	FunctionName string
	MaxTokens    int
}

type RefineConfig struct {
	APIKey      string
	Endpoint    string
	Model       string
	Timeout     time.Duration
	Temperature float64
}

// Enabled reports whether a refinement credential is configured.
func (c RefineConfig) Enabled() bool {
	return c.APIKey != ""
}

type BurstConfig struct {
	Rate  float64
	Burst int
	// TrustProxy keys clients on X-Forwarded-For / X-Real-IP instead of
	// the connection address. Enable only behind a proxy that sets them.
	TrustProxy bool
}

type LogConfig struct {
	Level       string
	Development bool
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)

	v.SetDefault("limits.max_items", 200)
	v.SetDefault("limits.max_text_length", 5000)

	v.SetDefault("quota.backend", BackendMemory)
	v.SetDefault("quota.daily_limit", 25)
	v.SetDefault("quota.window", 24*time.Hour)
	v.SetDefault("quota.table", "translation-quota")
	v.SetDefault("quota.dsn", "")

	v.SetDefault("provider.backend", ProviderDeepL)
	v.SetDefault("provider.endpoint", "https://api-free.deepl.com/v2/translate")
	v.SetDefault("provider.api_key", "")
	v.SetDefault("provider.source_lang", "en")
	v.SetDefault("provider.timeout", 15*time.Second)
	v.SetDefault("provider.function_name", "translator")
	v.SetDefault("provider.max_tokens", 3000)

	v.SetDefault("refine.api_key", "")
	v.SetDefault("refine.endpoint", "https://api.openai.com/v1/chat/completions")
	v.SetDefault("refine.model", "gpt-4o-mini")
	v.SetDefault("refine.timeout", 20*time.Second)
	v.SetDefault("refine.temperature", 0.2)

	v.SetDefault("burst.rate", 0.0)
	v.SetDefault("burst.burst", 10)
	v.SetDefault("burst.trust_proxy", false)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
}

// Load reads configuration. An empty path skips the config file and uses
// defaults plus environment variables (PROXY_ prefix, dots become underscores).
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("PROXY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Unprefixed secrets as they are usually provisioned.
	_ = v.BindEnv("provider.api_key", "PROXY_PROVIDER_API_KEY", "DEEPL_API_KEY")
	_ = v.BindEnv("refine.api_key", "PROXY_REFINE_API_KEY", "OPENAI_API_KEY")
	_ = v.BindEnv("quota.dsn", "PROXY_QUOTA_DSN", "DATABASE_URL")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Addr:         v.GetString("server.addr"),
			ReadTimeout:  v.GetDuration("server.read_timeout"),
			WriteTimeout: v.GetDuration("server.write_timeout"),
		},
		Limits: LimitsConfig{
			MaxItems:      v.GetInt("limits.max_items"),
			MaxTextLength: v.GetInt("limits.max_text_length"),
		},
		Quota: QuotaConfig{
			Backend:    strings.ToLower(v.GetString("quota.backend")),
			DailyLimit: v.GetInt("quota.daily_limit"),
			Window:     v.GetDuration("quota.window"),
			Table:      v.GetString("quota.table"),
			DSN:        v.GetString("quota.dsn"),
		},
		Provider: ProviderConfig{
			Backend:      strings.ToLower(v.GetString("provider.backend")),
			Endpoint:     v.GetString("provider.endpoint"),
			APIKey:       v.GetString("provider.api_key"),
			SourceLang:   v.GetString("provider.source_lang"),
			Timeout:      v.GetDuration("provider.timeout"),
			FunctionName: v.GetString("provider.function_name"),
			MaxTokens:    v.GetInt("provider.max_tokens"),
		},
		Refine: RefineConfig{
			APIKey:      v.GetString("refine.api_key"),
			Endpoint:    v.GetString("refine.endpoint"),
			Model:       v.GetString("refine.model"),
			Timeout:     v.GetDuration("refine.timeout"),
			Temperature: v.GetFloat64("refine.temperature"),
		},
		Burst: BurstConfig{
			Rate:       v.GetFloat64("burst.rate"),
			Burst:      v.GetInt("burst.burst"),
			TrustProxy: v.GetBool("burst.trust_proxy"),
		},
		Log: LogConfig{
			Level:       v.GetString("log.level"),
			Development: v.GetBool("log.development"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration is usable. Missing provider
// credentials are not rejected here; they surface per request as a
// configuration error.
func (c *Config) Validate() error {
	if c.Limits.MaxItems <= 0 {
		return fmt.Errorf("limits.max_items must be positive")
	}
	if c.Limits.MaxTextLength <= 0 {
		return fmt.Errorf("limits.max_text_length must be positive")
	}
	if c.Quota.DailyLimit <= 0 {
		return fmt.Errorf("quota.daily_limit must be positive")
	}
	if c.Quota.Window <= 0 {
		return fmt.Errorf("quota.window must be positive")
	}
	switch c.Quota.Backend {
	case BackendMemory:
	case BackendDynamoDB:
		if c.Quota.Table == "" {
			return fmt.Errorf("quota.table is required for the dynamodb backend")
		}
	case BackendPostgres:
		if c.Quota.DSN == "" {
			return fmt.Errorf("quota.dsn is required for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown quota backend %q", c.Quota.Backend)
	}
	switch c.Provider.Backend {
	case ProviderDeepL, ProviderLambda:
	default:
		return fmt.Errorf("unknown provider backend %q", c.Provider.Backend)
	}
	if c.Provider.Timeout <= 0 || c.Refine.Timeout <= 0 {
		return fmt.Errorf("provider.timeout and refine.timeout must be positive")
	}
	return nil
}
