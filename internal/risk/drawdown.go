package risk

// Snapshot carries the three equity figures a drawdown evaluation needs.
type Snapshot struct {
	InitialBalance   float64
	StartOfDayEquity float64
	CurrentEquity    float64
}

// DrawdownStatus is the outcome of evaluating one account snapshot against
// a rule set. Limits are included so callers can log and chart them.
type DrawdownStatus struct {
	DailyBreach     bool    `json:"daily_breach"`
	MaxBreach       bool    `json:"max_breach"`
	ProfitTargetMet bool    `json:"profit_target_met"`
	DailyLimit      float64 `json:"daily_limit"`
	MaxLimit        float64 `json:"max_limit"`
	TargetAmount    float64 `json:"target_amount"`
}

// Breached reports whether either drawdown limit was crossed.
func (s DrawdownStatus) Breached() bool {
	return s.DailyBreach || s.MaxBreach
}

// EvaluateDrawdown is a pure function of its inputs; no I/O and no side
// effects, so it is safe to call per-account inside a concurrent sweep.
//
// The daily limit is a fixed amount off the initial balance subtracted from
// the start-of-day equity, not a percentage of the SOD equity itself. The
// source rule sets were written that way on purpose and the formula must
// not be "corrected".
func EvaluateDrawdown(snap Snapshot, rules RuleSet) DrawdownStatus {
	equity := decFromFloat(snap.CurrentEquity)
	initial := decFromFloat(snap.InitialBalance)

	dailyLimit := decFromFloat(snap.StartOfDayEquity).Sub(percentOf(snap.InitialBalance, rules.DailyDrawdownPercent))
	maxLimit := initial.Mul(decOne.Sub(decFromFloat(rules.MaxDrawdownPercent).Div(decHundred)))
	target := percentOf(snap.InitialBalance, rules.ProfitTargetPercent)

	status := DrawdownStatus{
		DailyLimit:   decToFloat(dailyLimit),
		MaxLimit:     decToFloat(maxLimit),
		TargetAmount: decToFloat(target),
	}
	// Strictly below the limit breaches; sitting exactly on it does not.
	status.DailyBreach = equity.Cmp(dailyLimit) < 0
	status.MaxBreach = equity.Cmp(maxLimit) < 0
	if rules.HasProfitTarget() {
		status.ProfitTargetMet = equity.Sub(initial).Cmp(target) >= 0
	}
	return status
}
