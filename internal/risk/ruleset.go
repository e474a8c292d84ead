package risk

// RuleSet is the resolved drawdown/profit-target configuration for one
// challenge tier. Percentages are whole numbers (5 means 5%).
type RuleSet struct {
	Name                 string  `mapstructure:"-" yaml:"-" json:"name"`
	DailyDrawdownPercent float64 `mapstructure:"daily_drawdown_percent" yaml:"daily_drawdown_percent" json:"daily_drawdown_percent"`
	MaxDrawdownPercent   float64 `mapstructure:"max_drawdown_percent" yaml:"max_drawdown_percent" json:"max_drawdown_percent"`
	// ProfitTargetPercent of 0 means "no target"; instant and funded tiers
	// never report target-met.
	ProfitTargetPercent float64 `mapstructure:"profit_target_percent" yaml:"profit_target_percent" json:"profit_target_percent"`
}

// HasProfitTarget reports whether the tier defines a profit target at all.
func (r RuleSet) HasProfitTarget() bool {
	return r.ProfitTargetPercent > 0
}

// DefaultRuleSet is the conservative fallback used when resolution finds
// nothing better. Resolution never fails; it degrades to this.
func DefaultRuleSet() RuleSet {
	return RuleSet{
		Name:                 "default",
		DailyDrawdownPercent: 5,
		MaxDrawdownPercent:   10,
		ProfitTargetPercent:  0,
	}
}

// builtinRuleSets covers the lite/prime x tier matrix shipped with the
// engine. The file-backed registry can override any of these.
var builtinRuleSets = map[string]RuleSet{
	"lite_instant":  {Name: "lite_instant", DailyDrawdownPercent: 3, MaxDrawdownPercent: 6, ProfitTargetPercent: 0},
	"prime_instant": {Name: "prime_instant", DailyDrawdownPercent: 4, MaxDrawdownPercent: 8, ProfitTargetPercent: 0},
	"lite_1_step":   {Name: "lite_1_step", DailyDrawdownPercent: 4, MaxDrawdownPercent: 8, ProfitTargetPercent: 10},
	"prime_1_step":  {Name: "prime_1_step", DailyDrawdownPercent: 5, MaxDrawdownPercent: 10, ProfitTargetPercent: 10},
	"lite_phase_1":  {Name: "lite_phase_1", DailyDrawdownPercent: 5, MaxDrawdownPercent: 10, ProfitTargetPercent: 8},
	"prime_phase_1": {Name: "prime_phase_1", DailyDrawdownPercent: 5, MaxDrawdownPercent: 12, ProfitTargetPercent: 8},
	"lite_phase_2":  {Name: "lite_phase_2", DailyDrawdownPercent: 5, MaxDrawdownPercent: 10, ProfitTargetPercent: 5},
	"prime_phase_2": {Name: "prime_phase_2", DailyDrawdownPercent: 5, MaxDrawdownPercent: 12, ProfitTargetPercent: 5},
	"lite_funded":   {Name: "lite_funded", DailyDrawdownPercent: 5, MaxDrawdownPercent: 10, ProfitTargetPercent: 0},
	"prime_funded":  {Name: "prime_funded", DailyDrawdownPercent: 5, MaxDrawdownPercent: 12, ProfitTargetPercent: 0},
}
