package config

import (
	"fmt"
	"strings"
	"time"
)

// validate performs basic configuration checks.
func validate(c *Config) error {
	if err := c.Bridge.validate(); err != nil {
		return err
	}
	if err := c.Sweep.validate(); err != nil {
		return err
	}
	if err := c.TradeRules.validate(); err != nil {
		return err
	}
	return nil
}

func (b *BridgeConfig) validate() error {
	if strings.TrimSpace(b.APIURL) == "" {
		return fmt.Errorf("bridge.api_url cannot be empty")
	}
	if b.TimeoutSeconds <= 0 {
		return fmt.Errorf("bridge.timeout_seconds must be > 0")
	}
	return nil
}

// validate enforces the no-hidden-defaults batching contract: every knob
// must be set explicitly.
func (s *SweepConfig) validate() error {
	if s.BatchSize <= 0 {
		return fmt.Errorf("sweep.batch_size is required and must be > 0")
	}
	if s.MaxConcurrent <= 0 {
		return fmt.Errorf("sweep.max_concurrent is required and must be > 0")
	}
	if s.TimeoutMs <= 0 {
		return fmt.Errorf("sweep.timeout_ms is required and must be > 0")
	}
	if s.RetryAttempts < 0 {
		return fmt.Errorf("sweep.retry_attempts must be >= 0")
	}
	if s.RetryDelayMs < 0 {
		return fmt.Errorf("sweep.retry_delay_ms must be >= 0")
	}
	return nil
}

func (t *TradeRuleConfig) validate() error {
	if t.MartingaleMultiplier < 1 {
		return fmt.Errorf("trade_rules.martingale_multiplier must be >= 1")
	}
	if t.RevengeSizeFactor < 1 {
		return fmt.Errorf("trade_rules.revenge_size_factor must be >= 1")
	}
	for _, raw := range t.NewsTimes {
		if _, err := time.Parse(time.RFC3339, strings.TrimSpace(raw)); err != nil {
			return fmt.Errorf("trade_rules.news_times contains invalid timestamp %q: %w", raw, err)
		}
	}
	return nil
}
