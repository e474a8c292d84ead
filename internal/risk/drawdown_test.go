package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEvaluateDrawdown_DailyLimit(t *testing.T) {
	rules := RuleSet{Name: "test", DailyDrawdownPercent: 5, MaxDrawdownPercent: 10}

	t.Run("limit is a fixed amount off the initial balance", func(t *testing.T) {
		// SOD equity 9_000 on a 10_000 account with 5% daily: limit is
		// 9_000 - 500 = 8_500, not 9_000 * 0.95 = 8_550.
		status := EvaluateDrawdown(Snapshot{
			InitialBalance:   10_000,
			StartOfDayEquity: 9_000,
			CurrentEquity:    8_540,
		}, rules)
		assert.Equal(t, 8_500.0, status.DailyLimit)
		assert.False(t, status.DailyBreach)
	})

	t.Run("exactly at the limit does not breach", func(t *testing.T) {
		status := EvaluateDrawdown(Snapshot{
			InitialBalance:   10_000,
			StartOfDayEquity: 10_000,
			CurrentEquity:    9_500,
		}, rules)
		assert.Equal(t, 9_500.0, status.DailyLimit)
		assert.False(t, status.DailyBreach)
		assert.False(t, status.Breached())
	})

	t.Run("one cent below the limit breaches", func(t *testing.T) {
		status := EvaluateDrawdown(Snapshot{
			InitialBalance:   10_000,
			StartOfDayEquity: 10_000,
			CurrentEquity:    9_499.99,
		}, rules)
		assert.True(t, status.DailyBreach)
		assert.True(t, status.Breached())
	})
}

func TestEvaluateDrawdown_MaxLimit(t *testing.T) {
	rules := RuleSet{Name: "test", DailyDrawdownPercent: 5, MaxDrawdownPercent: 10}

	t.Run("exactly at the floor survives", func(t *testing.T) {
		status := EvaluateDrawdown(Snapshot{
			InitialBalance:   100_000,
			StartOfDayEquity: 95_000,
			CurrentEquity:    90_000,
		}, rules)
		assert.Equal(t, 90_000.0, status.MaxLimit)
		assert.False(t, status.MaxBreach)
	})

	t.Run("below the floor breaches", func(t *testing.T) {
		status := EvaluateDrawdown(Snapshot{
			InitialBalance:   100_000,
			StartOfDayEquity: 95_000,
			CurrentEquity:    89_999.99,
		}, rules)
		assert.True(t, status.MaxBreach)
	})

	t.Run("both limits can breach on the same snapshot", func(t *testing.T) {
		status := EvaluateDrawdown(Snapshot{
			InitialBalance:   100_000,
			StartOfDayEquity: 100_000,
			CurrentEquity:    85_000,
		}, rules)
		assert.True(t, status.DailyBreach)
		assert.True(t, status.MaxBreach)
	})
}

func TestEvaluateDrawdown_ProfitTarget(t *testing.T) {
	t.Run("zero percent means no target ever", func(t *testing.T) {
		rules := RuleSet{Name: "funded", DailyDrawdownPercent: 5, MaxDrawdownPercent: 10, ProfitTargetPercent: 0}
		status := EvaluateDrawdown(Snapshot{
			InitialBalance:   10_000,
			StartOfDayEquity: 10_000,
			CurrentEquity:    25_000,
		}, rules)
		assert.False(t, status.ProfitTargetMet)
		assert.Equal(t, 0.0, status.TargetAmount)
	})

	t.Run("target met at exactly the gain", func(t *testing.T) {
		rules := RuleSet{Name: "phase_1", DailyDrawdownPercent: 5, MaxDrawdownPercent: 10, ProfitTargetPercent: 8}
		status := EvaluateDrawdown(Snapshot{
			InitialBalance:   10_000,
			StartOfDayEquity: 10_500,
			CurrentEquity:    10_800,
		}, rules)
		assert.True(t, status.ProfitTargetMet)
		assert.Equal(t, 800.0, status.TargetAmount)
	})

	t.Run("target not met one cent short", func(t *testing.T) {
		rules := RuleSet{Name: "phase_1", DailyDrawdownPercent: 5, MaxDrawdownPercent: 10, ProfitTargetPercent: 8}
		status := EvaluateDrawdown(Snapshot{
			InitialBalance:   10_000,
			StartOfDayEquity: 10_500,
			CurrentEquity:    10_799.99,
		}, rules)
		assert.False(t, status.ProfitTargetMet)
	})
}
