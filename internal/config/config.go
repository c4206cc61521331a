package config

import (
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Auth       AuthConfig       `yaml:"auth" mapstructure:"auth"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	OpenAI     OpenAIConfig     `yaml:"openai" mapstructure:"openai"`
	Google     GoogleConfig     `yaml:"google" mapstructure:"google"`
	RealtyMole RealtyMoleConfig `yaml:"realtymole" mapstructure:"realtymole"`
	Zillow     ZillowConfig     `yaml:"zillow" mapstructure:"zillow"`
	Attom      AttomConfig      `yaml:"attom" mapstructure:"attom"`
	WalkScore  WalkScoreConfig  `yaml:"walkscore" mapstructure:"walkscore"`
	Cache      CacheConfig      `yaml:"cache" mapstructure:"cache"`
	Resilience ResilienceConfig `yaml:"resilience" mapstructure:"resilience"`
	Offers     OffersConfig     `yaml:"offers" mapstructure:"offers"`
	Listings   ListingsConfig   `yaml:"listings" mapstructure:"listings"`
	RulesPath  string           `yaml:"rules_path" mapstructure:"rules_path"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// AuthConfig holds the hosted auth provider's token verification settings.
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret" mapstructure:"jwt_secret"`
	Issuer    string `yaml:"issuer" mapstructure:"issuer"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// OpenAIConfig holds OpenAI API settings (description drafting fallback).
type OpenAIConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// GoogleConfig holds Google Places API settings.
type GoogleConfig struct {
	Key string `yaml:"key" mapstructure:"key"`
}

// RealtyMoleConfig holds Realty Mole API settings.
type RealtyMoleConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Host    string `yaml:"host" mapstructure:"host"`
	Comps   int    `yaml:"comp_count" mapstructure:"comp_count"`
}

// ZillowConfig holds Zillow (Bridge) API settings.
type ZillowConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// AttomConfig holds ATTOM Data API settings.
type AttomConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// WalkScoreConfig holds Walk Score API settings.
type WalkScoreConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// CacheConfig configures the provider response cache.
type CacheConfig struct {
	LocalMaxSize  int64  `yaml:"local_max_size" mapstructure:"local_max_size"`
	TTLMinutes    int    `yaml:"ttl_minutes" mapstructure:"ttl_minutes"`
	MemcachedAddr string `yaml:"memcached_addr" mapstructure:"memcached_addr"`
}

// ResilienceConfig configures retries and circuit breakers around provider calls.
type ResilienceConfig struct {
	MaxAttempts      int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int     `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int     `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
	Multiplier       float64 `yaml:"multiplier" mapstructure:"multiplier"`
	JitterFraction   float64 `yaml:"jitter_fraction" mapstructure:"jitter_fraction"`
	FailureThreshold int     `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	ResetTimeoutSecs int     `yaml:"reset_timeout_secs" mapstructure:"reset_timeout_secs"`
	RequestsPerSec   float64 `yaml:"requests_per_sec" mapstructure:"requests_per_sec"`
}

// OffersConfig configures offer intake and expiry.
type OffersConfig struct {
	ExpiryHours   int    `yaml:"expiry_hours" mapstructure:"expiry_hours"`
	SweepSchedule string `yaml:"sweep_schedule" mapstructure:"sweep_schedule"`
}

// ListingsConfig configures listing publication windows.
type ListingsConfig struct {
	DurationDays  int    `yaml:"duration_days" mapstructure:"duration_days"`
	SweepSchedule string `yaml:"sweep_schedule" mapstructure:"sweep_schedule"`
}

// Load reads configuration from .env, config file and environment.
func Load() (*Config, error) {
	// .env is optional; values already in the environment win.
	_ = godotenv.Load()

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("FSBO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 1024)
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("realtymole.base_url", "https://realty-mole-property-api.p.rapidapi.com")
	v.SetDefault("realtymole.host", "realty-mole-property-api.p.rapidapi.com")
	v.SetDefault("realtymole.comp_count", 10)
	v.SetDefault("zillow.base_url", "https://api.bridgedataoutput.com/api/v2")
	v.SetDefault("attom.base_url", "https://api.gateway.attomdata.com/propertyapi/v1.0.0")
	v.SetDefault("walkscore.base_url", "https://api.walkscore.com")
	v.SetDefault("cache.local_max_size", 5000)
	v.SetDefault("cache.ttl_minutes", 60*24)
	v.SetDefault("resilience.max_attempts", 3)
	v.SetDefault("resilience.initial_backoff_ms", 500)
	v.SetDefault("resilience.max_backoff_ms", 10000)
	v.SetDefault("resilience.multiplier", 2.0)
	v.SetDefault("resilience.jitter_fraction", 0.25)
	v.SetDefault("resilience.failure_threshold", 5)
	v.SetDefault("resilience.reset_timeout_secs", 30)
	v.SetDefault("resilience.requests_per_sec", 5.0)
	v.SetDefault("offers.expiry_hours", 72)
	v.SetDefault("offers.sweep_schedule", "@every 15m")
	v.SetDefault("listings.duration_days", 180)
	v.SetDefault("listings.sweep_schedule", "@daily")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks that the keys required by the given mode are present.
// Modes: "serve", "valuation", "store".
func (c *Config) Validate(mode string) error {
	var missing []string

	switch mode {
	case "store":
		missing = append(missing, c.storeProblems()...)
	case "valuation":
		missing = append(missing, c.storeProblems()...)
		if c.RealtyMole.Key == "" && c.Zillow.Key == "" && c.Attom.Key == "" {
			missing = append(missing, "at least one of realtymole.key, zillow.key, attom.key is required")
		}
	case "serve":
		missing = append(missing, c.storeProblems()...)
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			missing = append(missing, "server.port must be between 1 and 65535")
		}
		if c.Auth.JWTSecret == "" {
			missing = append(missing, "auth.jwt_secret is required")
		}
	default:
		return eris.Errorf("config: unknown validation mode %q", mode)
	}

	if c.Offers.ExpiryHours <= 0 {
		missing = append(missing, "offers.expiry_hours must be positive")
	}

	if len(missing) > 0 {
		return eris.Errorf("config: %s", strings.Join(missing, "; "))
	}
	return nil
}

func (c *Config) storeProblems() []string {
	switch c.Store.Driver {
	case "sqlite":
		return nil
	case "postgres":
		if c.Store.DatabaseURL == "" {
			return []string{"store.database_url is required"}
		}
		return nil
	default:
		return []string{"store.driver must be postgres or sqlite"}
	}
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
