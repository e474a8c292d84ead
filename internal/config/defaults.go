package config

import "strings"

const (
	defaultAppEnv           = "dev"
	defaultAppLogLevel      = "info"
	defaultAppHTTPAddr      = ":9980"
	defaultAppLogPath       = "/data/logs/propguard.log"
	defaultAppBridgeLogPath = "/data/logs/propguard-bridge.log"

	defaultBridgeAPI            = "http://mt5bridge:8080/api"
	defaultBridgeTimeout        = 15
	defaultBridgeBreakerCount   = 5
	defaultBridgeBreakerCooloff = 60

	defaultSweepInterval    = "5m"
	defaultIngestInterval   = "15m"
	defaultSweepMaxErrors   = 20
	defaultRulesPath        = "configs/risk_rules.yaml"
	defaultStoreDBPath      = "/data/db/propguard.db"
	defaultStoreSweepLog    = "/data/db/sweep_log.db"
	defaultResetOffsetMin   = 0
	defaultMartingaleMult   = 2.0
	defaultMartingaleWindow = 300
	defaultMinHoldSeconds   = 60
	defaultMinDurationSecs  = 30
	defaultRevengeCooldown  = 180
	defaultRevengeFactor    = 1.5
	defaultArbitrageMaxHold = 10
	defaultLatencyMinGapMs  = 500
	defaultNewsBufferSecs   = 120
)

// applyDefaults applies defaults to every sub-config.
func (c *Config) applyDefaults(keys keySet) {
	c.App.applyDefaults(keys)
	c.Bridge.applyDefaults(keys)
	c.Sweep.applyDefaults(keys)
	c.Rules.applyDefaults(keys)
	c.TradeRules.applyDefaults(keys)
	c.Store.applyDefaults(keys)
	c.Reset.applyDefaults(keys)
}

func (a *AppConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("app.env", &a.Env, defaultAppEnv),
		stringFieldDefault("app.log_level", &a.LogLevel, defaultAppLogLevel),
		stringFieldDefault("app.http_addr", &a.HTTPAddr, defaultAppHTTPAddr),
		stringFieldDefault("app.log_path", &a.LogPath, defaultAppLogPath),
		stringFieldDefault("app.bridge_log_path", &a.BridgeLog, defaultAppBridgeLogPath),
	)
}

func (b *BridgeConfig) applyDefaults(keys keySet) {
	if b == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("bridge.api_url", &b.APIURL, defaultBridgeAPI),
		fieldDefault{
			key:   "bridge.timeout_seconds",
			need:  func() bool { return b.TimeoutSeconds <= 0 },
			apply: func() { b.TimeoutSeconds = defaultBridgeTimeout },
		},
		fieldDefault{
			key:   "bridge.breaker_threshold",
			need:  func() bool { return b.BreakerThreshold <= 0 },
			apply: func() { b.BreakerThreshold = defaultBridgeBreakerCount },
		},
		fieldDefault{
			key:   "bridge.breaker_cooldown_seconds",
			need:  func() bool { return b.BreakerCooldownSeconds <= 0 },
			apply: func() { b.BreakerCooldownSeconds = defaultBridgeBreakerCooloff },
		},
	)
}

// applyDefaults intentionally leaves batch_size, max_concurrent, timeout_ms,
// retry_attempts and retry_delay_ms alone: the batching contract has no
// hidden defaults and validation rejects a config that omits them.
func (s *SweepConfig) applyDefaults(keys keySet) {
	if s == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("sweep.interval", &s.Interval, defaultSweepInterval),
		stringFieldDefault("sweep.ingest_interval", &s.IngestInterval, defaultIngestInterval),
		fieldDefault{
			key:   "sweep.max_error_details",
			need:  func() bool { return s.MaxErrorDetails <= 0 },
			apply: func() { s.MaxErrorDetails = defaultSweepMaxErrors },
		},
	)
}

func (r *RulesConfig) applyDefaults(keys keySet) {
	if r == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("rules.path", &r.Path, defaultRulesPath),
	)
}

func (t *TradeRuleConfig) applyDefaults(keys keySet) {
	if t == nil {
		return
	}
	applyFieldDefaults(keys,
		fieldDefault{
			key:   "trade_rules.martingale_multiplier",
			need:  func() bool { return t.MartingaleMultiplier <= 0 },
			apply: func() { t.MartingaleMultiplier = defaultMartingaleMult },
		},
		fieldDefault{
			key:   "trade_rules.martingale_window_seconds",
			need:  func() bool { return t.MartingaleWindowSeconds <= 0 },
			apply: func() { t.MartingaleWindowSeconds = defaultMartingaleWindow },
		},
		fieldDefault{
			key:   "trade_rules.min_hold_seconds",
			need:  func() bool { return t.MinHoldSeconds <= 0 },
			apply: func() { t.MinHoldSeconds = defaultMinHoldSeconds },
		},
		fieldDefault{
			key:   "trade_rules.min_duration_seconds",
			need:  func() bool { return t.MinDurationSeconds <= 0 },
			apply: func() { t.MinDurationSeconds = defaultMinDurationSecs },
		},
		fieldDefault{
			key:   "trade_rules.revenge_cooldown_seconds",
			need:  func() bool { return t.RevengeCooldownSeconds <= 0 },
			apply: func() { t.RevengeCooldownSeconds = defaultRevengeCooldown },
		},
		fieldDefault{
			key:   "trade_rules.revenge_size_factor",
			need:  func() bool { return t.RevengeSizeFactor <= 0 },
			apply: func() { t.RevengeSizeFactor = defaultRevengeFactor },
		},
		fieldDefault{
			key:   "trade_rules.arbitrage_max_hold_seconds",
			need:  func() bool { return t.ArbitrageMaxHoldSeconds <= 0 },
			apply: func() { t.ArbitrageMaxHoldSeconds = defaultArbitrageMaxHold },
		},
		fieldDefault{
			key:   "trade_rules.latency_min_gap_ms",
			need:  func() bool { return t.LatencyMinGapMs <= 0 },
			apply: func() { t.LatencyMinGapMs = defaultLatencyMinGapMs },
		},
		fieldDefault{
			key:   "trade_rules.news_buffer_seconds",
			need:  func() bool { return t.NewsBufferSeconds <= 0 },
			apply: func() { t.NewsBufferSeconds = defaultNewsBufferSecs },
		},
	)
}

func (s *StoreConfig) applyDefaults(keys keySet) {
	if s == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("store.db_path", &s.DBPath, defaultStoreDBPath),
		stringFieldDefault("store.sweep_log_path", &s.SweepLogPath, defaultStoreSweepLog),
	)
}

func (r *ResetConfig) applyDefaults(keys keySet) {
	if r == nil {
		return
	}
	applyFieldDefaults(keys,
		fieldDefault{
			key:   "reset.enabled",
			need:  func() bool { return !r.Enabled },
			apply: func() { r.Enabled = true },
		},
		fieldDefault{
			key:   "reset.offset_minutes",
			need:  func() bool { return r.OffsetMinutes < 0 },
			apply: func() { r.OffsetMinutes = defaultResetOffsetMin },
		},
	)
}

func applyFieldDefaults(keys keySet, defs ...fieldDefault) {
	for _, def := range defs {
		if def.apply == nil {
			continue
		}
		if def.key != "" && keys.isSet(def.key) {
			continue
		}
		if def.need != nil && !def.need() {
			continue
		}
		def.apply()
	}
}

func stringFieldDefault(key string, target *string, def string) fieldDefault {
	return fieldDefault{
		key: key,
		need: func() bool {
			return target != nil && strings.TrimSpace(*target) == ""
		},
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}
