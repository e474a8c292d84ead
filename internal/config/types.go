package config

import "strings"

// Config is the top-level configuration for the risk engine.
type Config struct {
	App        AppConfig       `toml:"app"`
	Bridge     BridgeConfig    `toml:"bridge"`
	Sweep      SweepConfig     `toml:"sweep"`
	Rules      RulesConfig     `toml:"rules"`
	TradeRules TradeRuleConfig `toml:"trade_rules"`
	Store      StoreConfig     `toml:"store"`
	Reset      ResetConfig     `toml:"reset"`
}

type AppConfig struct {
	Env        string `toml:"env"`
	LogLevel   string `toml:"log_level"`
	HTTPAddr   string `toml:"http_addr"`
	LogPath    string `toml:"log_path"`
	BridgeLog  string `toml:"bridge_log_path"`
	BridgeDump bool   `toml:"bridge_dump_payload"`
}

// BridgeConfig describes the MT5 bridge HTTP endpoint.
type BridgeConfig struct {
	APIURL                 string `toml:"api_url"`
	APIToken               string `toml:"api_token"`
	Username               string `toml:"username"`
	Password               string `toml:"password"`
	TimeoutSeconds         int    `toml:"timeout_seconds"`
	InsecureSkipVerify     bool   `toml:"insecure_skip_verify"`
	BreakerThreshold       int    `toml:"breaker_threshold"`
	BreakerCooldownSeconds int    `toml:"breaker_cooldown_seconds"`
}

// SweepConfig drives the batch reconciliation sweep. All five knobs of the
// batching contract are required; validation rejects a config without them.
type SweepConfig struct {
	Interval        string `toml:"interval"`
	IngestInterval  string `toml:"ingest_interval"`
	BatchSize       int    `toml:"batch_size"`
	MaxConcurrent   int    `toml:"max_concurrent"`
	TimeoutMs       int    `toml:"timeout_ms"`
	RetryAttempts   int    `toml:"retry_attempts"`
	RetryDelayMs    int    `toml:"retry_delay_ms"`
	MaxErrorDetails int    `toml:"max_error_details"`
	DisableOnBreach bool   `toml:"disable_on_breach"`
	CloseOnBreach   bool   `toml:"close_positions_on_breach"`
}

// RulesConfig points at the administratively edited risk-rule file.
type RulesConfig struct {
	Path  string `toml:"path"`
	Watch bool   `toml:"watch"`
}

// TradeRuleConfig carries per-trade rule thresholds.
type TradeRuleConfig struct {
	MartingaleMultiplier     float64  `toml:"martingale_multiplier"`
	MartingaleWindowSeconds  int      `toml:"martingale_window_seconds"`
	MinHoldSeconds           int      `toml:"min_hold_seconds"`
	MinDurationSeconds       int      `toml:"min_duration_seconds"`
	RevengeCooldownSeconds   int      `toml:"revenge_cooldown_seconds"`
	RevengeSizeFactor        float64  `toml:"revenge_size_factor"`
	ArbitrageMaxHoldSeconds  int      `toml:"arbitrage_max_hold_seconds"`
	LatencyMinGapMs          int      `toml:"latency_min_gap_ms"`
	NewsBufferSeconds        int      `toml:"news_buffer_seconds"`
	NewsTimes                []string `toml:"news_times"`
	CorrelatedSymbolClusters []string `toml:"correlated_symbol_clusters"`
}

type StoreConfig struct {
	DBPath       string `toml:"db_path"`
	SweepLogPath string `toml:"sweep_log_path"`
}

// ResetConfig schedules the daily start-of-day equity reset.
type ResetConfig struct {
	Enabled       bool `toml:"enabled"`
	OffsetMinutes int  `toml:"offset_minutes"`
}

// keySet tracks field paths explicitly set in the config files.
type keySet map[string]struct{}

func (k keySet) mark(path string) {
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return
	}
	k[path] = struct{}{}
}

func (k keySet) isSet(path string) bool {
	if len(k) == 0 {
		return false
	}
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return false
	}
	_, ok := k[path]
	return ok
}

// fieldDefault describes the defaulting rule for a single field.
type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}
