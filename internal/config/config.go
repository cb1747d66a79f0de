// Package config loads engine settings from an optional YAML file with
// environment variables taking precedence, so credentials stay out of files.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Settings struct {
	DiscordWebhookURL string `yaml:"discord_webhook_url"`

	EVEClientID     string `yaml:"eve_client_id"`
	EVEClientSecret string `yaml:"eve_client_secret"`
	EVERefreshToken string `yaml:"eve_refresh_token"`
	CorporationID   int64  `yaml:"corporation_id"`
	CallbackPort    int    `yaml:"callback_port"`
	CompatDate      string `yaml:"compat_date"`

	PollIntervalSeconds    int `yaml:"poll_interval_seconds"`
	CleanupIntervalMinutes int `yaml:"cleanup_interval_minutes"`

	MarketRegionID int64 `yaml:"market_region_id"`
	PriceTTLDays   int   `yaml:"price_ttl_days"`

	ZKBEnable   bool `yaml:"zkb_enable"`
	ZKBPages    int  `yaml:"zkb_pages"`
	ZKBEveryN   int  `yaml:"zkb_every_n"`
	ZKBWSEnable bool `yaml:"zkb_ws_enable"`

	RedisAddr   string `yaml:"redis_addr"`
	DatabaseURL string `yaml:"database_url"`
	OpsAddr     string `yaml:"ops_addr"`

	DataDir  string `yaml:"data_dir"`
	LogLevel string `yaml:"log_level"`
}

func defaults() Settings {
	return Settings{
		CallbackPort:           53682,
		PollIntervalSeconds:    120,
		CleanupIntervalMinutes: 60,
		MarketRegionID:         10000002, // The Forge
		PriceTTLDays:           7,
		ZKBPages:               1,
		ZKBEveryN:              3,
		DataDir:                "data",
		LogLevel:               "info",
	}
}

// Load reads path (when non-empty and present) and then applies environment
// overrides. A missing file is fine; a malformed one is not.
func Load(path string) (Settings, error) {
	s := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return s, fmt.Errorf("read config file: %w", err)
			}
		} else if err := yaml.Unmarshal(data, &s); err != nil {
			return s, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnv(&s)
	return s, nil
}

func (s Settings) PollInterval() time.Duration {
	return time.Duration(s.PollIntervalSeconds) * time.Second
}

func (s Settings) CleanupInterval() time.Duration {
	return time.Duration(s.CleanupIntervalMinutes) * time.Minute
}

func (s Settings) PriceTTL() time.Duration {
	return time.Duration(s.PriceTTLDays) * 24 * time.Hour
}

func applyEnv(s *Settings) {
	envStr("DISCORD_WEBHOOK_URL", &s.DiscordWebhookURL)
	envStr("EVE_CLIENT_ID", &s.EVEClientID)
	envStr("EVE_CLIENT_SECRET", &s.EVEClientSecret)
	envStr("EVE_REFRESH_TOKEN", &s.EVERefreshToken)
	envInt64("CORPORATION_ID", &s.CorporationID)
	envInt("CALLBACK_PORT", &s.CallbackPort)
	envStr("COMPAT_DATE", &s.CompatDate)
	envInt("POLL_INTERVAL_SECONDS", &s.PollIntervalSeconds)
	envInt("CLEANUP_INTERVAL_MINUTES", &s.CleanupIntervalMinutes)
	envInt64("MARKET_REGION_ID", &s.MarketRegionID)
	envInt("PRICE_TTL_DAYS", &s.PriceTTLDays)
	envBool("ZKB_ENABLE", &s.ZKBEnable)
	envInt("ZKB_PAGES", &s.ZKBPages)
	envInt("ZKB_EVERY_N", &s.ZKBEveryN)
	envBool("ZKB_WS_ENABLE", &s.ZKBWSEnable)
	envStr("REDIS_ADDR", &s.RedisAddr)
	envStr("DATABASE_URL", &s.DatabaseURL)
	envStr("OPS_ADDR", &s.OpsAddr)
	envStr("DATA_DIR", &s.DataDir)
	envStr("LOG_LEVEL", &s.LogLevel)
}

func envStr(key string, dst *string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}

func envInt(key string, dst *int) {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envInt64(key string, dst *int64) {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func envBool(key string, dst *bool) {
	if v, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(v) {
		case "1", "true", "yes", "on":
			*dst = true
		case "0", "false", "no", "off":
			*dst = false
		}
	}
}
