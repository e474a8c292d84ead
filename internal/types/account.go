package types

import "time"

// AccountStatus tracks the lifecycle of a challenge account. Transitions
// are one-directional from Active; nothing in the engine moves an account
// back to Active.
type AccountStatus string

const (
	AccountActive   AccountStatus = "active"
	AccountBreached AccountStatus = "breached"
	AccountPassed   AccountStatus = "passed"
	AccountFailed   AccountStatus = "failed"
	AccountDisabled AccountStatus = "disabled"
)

// Terminal reports whether the account is in a state that excludes it from
// any further risk evaluation until an operator reactivates it.
func (s AccountStatus) Terminal() bool {
	return s == AccountBreached || s == AccountFailed
}

// Account is one funded-challenge sub-account under monitoring.
type Account struct {
	ID             string
	Login          int64
	ChallengeType  string
	MT5Group       string
	InitialBalance float64
	CurrentBalance float64
	CurrentEquity  float64
	// StartOfDayEquity is reset once per UTC trading day and equals the
	// account's live equity at the reset instant.
	StartOfDayEquity float64
	// SODResetDay is the UTC day (YYYY-MM-DD) of the last start-of-day
	// reset. Guards the reset job against double application.
	SODResetDay string
	Status      AccountStatus
	Leverage    float64
	Metadata    map[string]any
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
