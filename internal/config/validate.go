package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Validate checks Config for production-critical problems.
// It collects all errors into a single joined error.
func (c *Config) Validate() error {
	var errs []string

	// DB password
	if c.DB.Password == "" {
		errs = append(errs, "DB_PASSWORD is required")
	}

	// Port ranges
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT must be 1–65535, got %d", c.Server.Port))
	}
	if c.DB.Port < 1 || c.DB.Port > 65535 {
		errs = append(errs, fmt.Sprintf("DB_PORT must be 1–65535, got %d", c.DB.Port))
	}
	if c.Redis.Port < 1 || c.Redis.Port > 65535 {
		errs = append(errs, fmt.Sprintf("REDIS_PORT must be 1–65535, got %d", c.Redis.Port))
	}

	// Abuse gate thresholds must stay positive when the gate is on
	if c.Abuse.Enabled {
		if c.Abuse.DailyLimit < 1 {
			errs = append(errs, fmt.Sprintf("ABUSE_DAILY_LIMIT must be positive, got %d", c.Abuse.DailyLimit))
		}
		if c.Abuse.CooldownDays < 1 {
			errs = append(errs, fmt.Sprintf("ABUSE_COOLDOWN_DAYS must be positive, got %d", c.Abuse.CooldownDays))
		}
		if c.Abuse.CooldownDailyLimit < 1 {
			errs = append(errs, fmt.Sprintf("ABUSE_COOLDOWN_DAILY_LIMIT must be positive, got %d", c.Abuse.CooldownDailyLimit))
		}
		if c.Abuse.BurstMinIntervalMS < 1 {
			errs = append(errs, fmt.Sprintf("ABUSE_BURST_MIN_INTERVAL_MS must be positive, got %d", c.Abuse.BurstMinIntervalMS))
		}
		if c.Abuse.BurstBlockSeconds < 1 {
			errs = append(errs, fmt.Sprintf("ABUSE_BURST_BLOCK_SECONDS must be positive, got %d", c.Abuse.BurstBlockSeconds))
		}
		if c.Abuse.StoreTimeout <= 0 {
			errs = append(errs, "ABUSE_STORE_TIMEOUT must be positive")
		}
	}

	if c.Inference.MaxTextLen < 1 {
		errs = append(errs, fmt.Sprintf("INFERENCE_MAX_TEXT_LEN must be positive, got %d", c.Inference.MaxTextLen))
	}

	// Dashboard API key: warn only
	if c.Dash.APIKey == "" {
		slog.Warn("DASH_API_KEY is empty — dashboard endpoints are disabled")
	}

	if len(errs) > 0 {
		return errors.New("config validation failed:\n  " + strings.Join(errs, "\n  "))
	}
	return nil
}
