package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Config is the full gateway configuration, loaded from yaml with
// environment variable overrides.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Engine    EngineConfig    `mapstructure:"engine"`
	Log       LogConfig       `mapstructure:"log"`
	Analytics AnalyticsConfig `mapstructure:"analytics"`
}

type ServerConfig struct {
	Port  int         `mapstructure:"port"`
	Pprof PprofConfig `mapstructure:"pprof"`
}

type PprofConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type AuthConfig struct {
	// SigningKey is the shared HMAC secret for service tokens. Issue and
	// Verify both fail without it.
	SigningKey string `mapstructure:"signing_key"`
	// TrustedAccount is the single account identifier this deployment
	// accepts. Tokens carrying any other account are rejected.
	TrustedAccount string        `mapstructure:"trusted_account"`
	TokenTTL       time.Duration `mapstructure:"token_ttl"`
	// EnableTokenEndpoint exposes POST /tokens/issue without auth.
	// Development convenience only.
	EnableTokenEndpoint bool `mapstructure:"enable_token_endpoint"`
}

type EngineConfig struct {
	// ModelPath points at a casbin model file. Empty means the built-in
	// three-slot ACL model.
	ModelPath string `mapstructure:"model_path"`
	// PolicyPath points at a casbin CSV policy file used as the enforcer's
	// persistence adapter. Empty means in-memory only.
	PolicyPath string `mapstructure:"policy_path"`
}

type LogConfig struct {
	Level  slog.Level `mapstructure:"level"`
	Format string     `mapstructure:"format"`
}

type AnalyticsConfig struct {
	Sentry SentryConfig `mapstructure:"sentry"`
}

type SentryConfig struct {
	Enabled          bool    `mapstructure:"enabled"`
	DSN              string  `mapstructure:"dsn"`
	EnableTracing    bool    `mapstructure:"enable_tracing"`
	TracesSampleRate float64 `mapstructure:"traces_sample_rate"`
	Environment      string  `mapstructure:"environment"`
	Debug            bool    `mapstructure:"debug"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.pprof.enabled", false)
	v.SetDefault("auth.token_ttl", 60*time.Second)
	v.SetDefault("auth.enable_token_endpoint", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("analytics.sentry.traces_sample_rate", 0.1)
}

// LoadConfig reads configuration from the given yaml file (optional) and the
// environment. Environment variables use the GATEWAY_ prefix with underscores,
// e.g. GATEWAY_AUTH_SIGNING_KEY. Each call works on a fresh viper instance;
// nothing leaks between loads.
func LoadConfig(configPath string) (*Config, error) {
	return LoadConfigWithViper(viper.New(), configPath)
}

// LoadConfigWithViper loads into a caller-supplied viper instance. Commands
// that bind their flags pass the instance carrying the bindings.
func LoadConfigWithViper(v *viper.Viper, configPath string) (*Config, error) {
	setDefaults(v)

	v.SetEnvPrefix("GATEWAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", configPath, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			// a config file is optional; env and defaults are enough
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.TextUnmarshallerHookFunc(),
		mapstructure.StringToTimeDurationHookFunc(),
	))); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}
