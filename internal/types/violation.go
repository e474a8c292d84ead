package types

import "time"

// FlagType identifies which rule produced a violation.
type FlagType string

const (
	FlagMartingale    FlagType = "martingale"
	FlagHedging       FlagType = "hedging"
	FlagTickScalping  FlagType = "tick_scalping"
	FlagRevengeTrade  FlagType = "revenge_trading"
	FlagMinDuration   FlagType = "min_duration"
	FlagArbitrage     FlagType = "arbitrage"
	FlagLatency       FlagType = "latency"
	FlagNewsTrading   FlagType = "news_trading"
	FlagDailyDrawdown FlagType = "daily_drawdown"
	FlagMaxDrawdown   FlagType = "max_drawdown"
)

// Severity splits advisory flags from hard breaches.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityBreach  Severity = "breach"
)

// ViolationFlag is one detected rule breach. Flags are append-only: once
// created they are never mutated.
type ViolationFlag struct {
	ID        string
	AccountID string
	FlagType  FlagType
	Severity  Severity
	// Ticket is zero for account-level flags (drawdown breaches).
	Ticket      int64
	Description string
	Details     map[string]any
	CreatedAt   time.Time
}
