// Package config models ini.yml plus the INI_* environment overrides.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so values like "5m" parse from YAML.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
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

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

func (d Duration) String() string {
	return time.Duration(d).String()
}

// Config is the full service configuration.
type Config struct {
	Server struct {
		Addr     string `yaml:"addr"`
		OpsToken string `yaml:"ops_token"`
	} `yaml:"server"`
	Telegram struct {
		Token      string   `yaml:"token"`
		WebhookURL string   `yaml:"webhook_url"`
		Timeout    Duration `yaml:"timeout"`
	} `yaml:"telegram"`
	NocoDB struct {
		BaseURL string   `yaml:"base_url"`
		TableID string   `yaml:"table_id"`
		Token   string   `yaml:"token"`
		Timeout Duration `yaml:"timeout"`
	} `yaml:"nocodb"`
	LLM struct {
		APIKey    string   `yaml:"api_key"`
		Model     string   `yaml:"model"`
		BaseURL   string   `yaml:"base_url"`
		Timeout   Duration `yaml:"timeout"`
		MaxTokens int      `yaml:"max_tokens"`
	} `yaml:"llm"`
	Cache struct {
		TTL Duration `yaml:"ttl"`
	} `yaml:"cache"`
	Page struct {
		DefaultLimit int `yaml:"default_limit"`
		MaxLimit     int `yaml:"max_limit"`
	} `yaml:"page"`
}

// Default returns a config with every optional knob filled in.
func Default() *Config {
	var cfg Config
	cfg.Server.Addr = ":8080"
	cfg.Telegram.Timeout = Duration(5 * time.Second)
	cfg.NocoDB.Timeout = Duration(10 * time.Second)
	cfg.LLM.Timeout = Duration(30 * time.Second)
	cfg.Cache.TTL = Duration(5 * time.Minute)
	cfg.Page.DefaultLimit = 100
	cfg.Page.MaxLimit = 500
	return &cfg
}

// BindEnv wires the INI_* environment variables into viper. Called once from
// the CLI before Load.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix("INI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
}

// Load builds the config from an optional YAML file, then applies viper
// overrides (env and bound flags), then validates connectivity settings.
func Load(v *viper.Viper) (*Config, error) {
	cfg := Default()
	if path := v.GetString("config"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("invalid config yaml: %w", err)
		}
	}
	applyOverrides(cfg, v)
	return cfg, nil
}

func applyOverrides(cfg *Config, v *viper.Viper) {
	setString := func(dst *string, key string) {
		if val := v.GetString(key); val != "" {
			*dst = val
		}
	}
	setDuration := func(dst *Duration, key string) {
		if val := v.GetDuration(key); val > 0 {
			*dst = Duration(val)
		}
	}
	setInt := func(dst *int, key string) {
		if val := v.GetInt(key); val > 0 {
			*dst = val
		}
	}
	setString(&cfg.Server.Addr, "server.addr")
	setString(&cfg.Server.OpsToken, "server.ops_token")
	setString(&cfg.Telegram.Token, "telegram.token")
	setString(&cfg.Telegram.WebhookURL, "telegram.webhook_url")
	setDuration(&cfg.Telegram.Timeout, "telegram.timeout")
	setString(&cfg.NocoDB.BaseURL, "nocodb.base_url")
	setString(&cfg.NocoDB.TableID, "nocodb.table_id")
	setString(&cfg.NocoDB.Token, "nocodb.token")
	setDuration(&cfg.NocoDB.Timeout, "nocodb.timeout")
	setString(&cfg.LLM.APIKey, "llm.api_key")
	setString(&cfg.LLM.Model, "llm.model")
	setString(&cfg.LLM.BaseURL, "llm.base_url")
	setDuration(&cfg.LLM.Timeout, "llm.timeout")
	setInt(&cfg.LLM.MaxTokens, "llm.max_tokens")
	setDuration(&cfg.Cache.TTL, "cache.ttl")
	setInt(&cfg.Page.DefaultLimit, "page.default_limit")
	setInt(&cfg.Page.MaxLimit, "page.max_limit")
}

// ValidateData checks the settings any data operation needs. Missing keys
// are fatal at startup.
func (c *Config) ValidateData() error {
	if strings.TrimSpace(c.NocoDB.BaseURL) == "" {
		return fmt.Errorf("nocodb.base_url is required (INI_NOCODB_BASE_URL)")
	}
	if strings.TrimSpace(c.NocoDB.TableID) == "" {
		return fmt.Errorf("nocodb.table_id is required (INI_NOCODB_TABLE_ID)")
	}
	if strings.TrimSpace(c.NocoDB.Token) == "" {
		return fmt.Errorf("nocodb.token is required (INI_NOCODB_TOKEN)")
	}
	return nil
}

// ValidateBot additionally checks what the webhook server needs.
func (c *Config) ValidateBot() error {
	if err := c.ValidateData(); err != nil {
		return err
	}
	if strings.TrimSpace(c.Telegram.Token) == "" {
		return fmt.Errorf("telegram.token is required (INI_TELEGRAM_TOKEN)")
	}
	return nil
}

// LLMEnabled reports whether analysis can use the language model.
func (c *Config) LLMEnabled() bool {
	return strings.TrimSpace(c.LLM.APIKey) != ""
}
