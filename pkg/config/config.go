// Package config loads the daemon configuration from a YAML file with
// environment variable expansion for secret-bearing values.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/tyo-it/pulsa-bridge/pkg/configutil"
	"github.com/tyo-it/pulsa-bridge/pkg/gateway"
)

type Config struct {
	Environment string         `mapstructure:"environment"`
	LogLevel    string         `mapstructure:"log_level"`
	LogFormat   string         `mapstructure:"log_format"`
	Privacy     PrivacyConfig  `mapstructure:"privacy"`
	Gateway     VendorConfig   `mapstructure:"gateway"`
	Session     SessionConfig  `mapstructure:"session"`
	Protocol    ProtocolConfig `mapstructure:"protocol"`
}

// VendorConfig selects a gateway vendor and its free-form settings.
type VendorConfig struct {
	Provider string         `mapstructure:"provider"`
	Settings map[string]any `mapstructure:"settings"`
}

type PrivacyConfig struct {
	RedactPII bool `mapstructure:"redact_pii"`
}

type SessionConfig struct {
	TTLMS           int `mapstructure:"ttl_ms"`
	SweepIntervalMS int `mapstructure:"sweep_interval_ms"`
}

type ProtocolConfig struct {
	CallTimeoutMS int `mapstructure:"call_timeout_ms"`
}

// GatewaySettings is the decoded shape of the gateway settings map.
type GatewaySettings struct {
	BaseURL        string `mapstructure:"base_url"`
	UserID         string `mapstructure:"user_id"`
	APIToken       string `mapstructure:"api_token"`
	TimeoutMS      int    `mapstructure:"timeout_ms"`
	SimulationOnly bool   `mapstructure:"simulation_only"`
}

var gatewaySettingsSchema = configutil.Schema{
	Optional: []string{"base_url", "user_id", "api_token", "timeout_ms", "simulation_only"},
}

// LoadConfig reads the file at path. An empty path loads defaults
// only, which puts the gateway in simulation mode.
func LoadConfig(path string) (Config, error) {
	v := viper.New()
	v.SetDefault("environment", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("privacy.redact_pii", true)
	v.SetDefault("gateway.provider", "simulation")
	v.SetDefault("session.ttl_ms", 300_000)
	v.SetDefault("session.sweep_interval_ms", 30_000)
	v.SetDefault("protocol.call_timeout_ms", 30_000)

	v.SetEnvPrefix("PULSA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal: %w", err)
	}

	cfg.Gateway.Settings = expandSettings(cfg.Gateway.Settings)

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch strings.TrimSpace(c.Gateway.Provider) {
	case "":
		return fmt.Errorf("gateway.provider is required")
	case "simulation", "mobilepulsa":
	default:
		return fmt.Errorf("gateway.provider %q is not supported", c.Gateway.Provider)
	}
	if err := configutil.ValidateSettings(c.Gateway.Settings, gatewaySettingsSchema); err != nil {
		return fmt.Errorf("gateway.settings: %w", err)
	}
	if c.Gateway.Provider == "mobilepulsa" {
		var gs GatewaySettings
		if err := configutil.DecodeSettings(c.Gateway.Settings, &gs); err != nil {
			return fmt.Errorf("gateway.settings: %w", err)
		}
		if err := configutil.RequireString(gs.BaseURL, "gateway.settings.base_url"); err != nil {
			return err
		}
		if err := configutil.RequireString(gs.UserID, "gateway.settings.user_id"); err != nil {
			return err
		}
		if err := configutil.RequireString(gs.APIToken, "gateway.settings.api_token"); err != nil {
			return err
		}
	}
	return nil
}

// GatewayConfig resolves the vendor block into the client config.
func (c *Config) GatewayConfig() (gateway.Config, error) {
	var gs GatewaySettings
	if err := configutil.DecodeSettings(c.Gateway.Settings, &gs); err != nil {
		return gateway.Config{}, fmt.Errorf("gateway.settings: %w", err)
	}
	cfg := gateway.Config{
		BaseURL:        gs.BaseURL,
		UserID:         gs.UserID,
		APIToken:       gs.APIToken,
		SimulationOnly: gs.SimulationOnly || c.Gateway.Provider == "simulation",
	}
	if gs.TimeoutMS > 0 {
		cfg.Timeout = time.Duration(gs.TimeoutMS) * time.Millisecond
	}
	return cfg, nil
}

func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.Session.TTLMS) * time.Millisecond
}

func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.Session.SweepIntervalMS) * time.Millisecond
}

func (c *Config) CallTimeout() time.Duration {
	return time.Duration(c.Protocol.CallTimeoutMS) * time.Millisecond
}

func expandSettings(settings map[string]any) map[string]any {
	if settings == nil {
		return nil
	}
	for k, v := range settings {
		settings[k] = expandAny(v)
	}
	return settings
}

func expandAny(v any) any {
	switch val := v.(type) {
	case string:
		return os.ExpandEnv(val)
	case []any:
		for i := range val {
			val[i] = expandAny(val[i])
		}
		return val
	case map[string]any:
		for k, v := range val {
			val[k] = expandAny(v)
		}
		return val
	default:
		return v
	}
}
