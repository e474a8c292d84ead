package risk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"propguard/internal/config"
	"propguard/internal/types"
)

func testEvaluator(t *testing.T) *Evaluator {
	t.Helper()
	e, err := NewEvaluator(config.TradeRuleConfig{
		MartingaleMultiplier:     2.0,
		MartingaleWindowSeconds:  300,
		MinHoldSeconds:           60,
		MinDurationSeconds:       30,
		RevengeCooldownSeconds:   180,
		RevengeSizeFactor:        1.5,
		ArbitrageMaxHoldSeconds:  10,
		LatencyMinGapMs:          500,
		NewsBufferSeconds:        120,
		NewsTimes:                []string{"2026-03-06T13:30:00Z"},
		CorrelatedSymbolClusters: []string{"EURUSD,GBPUSD,EURGBP"},
	})
	require.NoError(t, err)
	e.SetNowFunc(func() time.Time { return time.Date(2026, 3, 6, 12, 0, 0, 0, time.UTC) })
	return e
}

func at(hour, min, sec int) time.Time {
	return time.Date(2026, 3, 6, hour, min, sec, 0, time.UTC)
}

func hasFlag(flags []types.ViolationFlag, ft types.FlagType) bool {
	for _, f := range flags {
		if f.FlagType == ft {
			return true
		}
	}
	return false
}

func TestEvaluator_Hedging(t *testing.T) {
	e := testEvaluator(t)

	t.Run("overlapping opposite sides flag", func(t *testing.T) {
		trade := types.Trade{Ticket: 2, AccountID: "a1", Symbol: "EURUSD", Side: types.SideSell,
			Lots: 1, OpenTime: at(10, 5, 0), CloseTime: at(10, 15, 0)}
		history := []types.Trade{
			{Ticket: 1, AccountID: "a1", Symbol: "EURUSD", Side: types.SideBuy,
				Lots: 1, OpenTime: at(10, 0, 0), CloseTime: at(10, 10, 0)},
		}
		flags := e.Validate(trade, history)
		assert.True(t, hasFlag(flags, types.FlagHedging))
	})

	t.Run("sequential positions do not flag", func(t *testing.T) {
		trade := types.Trade{Ticket: 2, AccountID: "a1", Symbol: "EURUSD", Side: types.SideSell,
			Lots: 1, OpenTime: at(10, 6, 0), CloseTime: at(10, 10, 0)}
		history := []types.Trade{
			{Ticket: 1, AccountID: "a1", Symbol: "EURUSD", Side: types.SideBuy,
				Lots: 1, OpenTime: at(10, 0, 0), CloseTime: at(10, 5, 0)},
		}
		flags := e.Validate(trade, history)
		assert.False(t, hasFlag(flags, types.FlagHedging))
	})

	t.Run("touching close and open is not an overlap", func(t *testing.T) {
		trade := types.Trade{Ticket: 2, AccountID: "a1", Symbol: "EURUSD", Side: types.SideSell,
			Lots: 1, OpenTime: at(10, 5, 0), CloseTime: at(10, 10, 0)}
		history := []types.Trade{
			{Ticket: 1, AccountID: "a1", Symbol: "EURUSD", Side: types.SideBuy,
				Lots: 1, OpenTime: at(10, 0, 0), CloseTime: at(10, 5, 0)},
		}
		flags := e.Validate(trade, history)
		assert.False(t, hasFlag(flags, types.FlagHedging))
	})

	t.Run("open opposite position counts until now", func(t *testing.T) {
		trade := types.Trade{Ticket: 2, AccountID: "a1", Symbol: "EURUSD", Side: types.SideSell,
			Lots: 1, OpenTime: at(11, 0, 0), CloseTime: at(11, 30, 0)}
		history := []types.Trade{
			{Ticket: 1, AccountID: "a1", Symbol: "EURUSD", Side: types.SideBuy,
				Lots: 1, OpenTime: at(10, 0, 0)}, // still open
		}
		flags := e.Validate(trade, history)
		assert.True(t, hasFlag(flags, types.FlagHedging))
	})

	t.Run("same side never flags", func(t *testing.T) {
		trade := types.Trade{Ticket: 2, AccountID: "a1", Symbol: "EURUSD", Side: types.SideBuy,
			Lots: 1, OpenTime: at(10, 5, 0), CloseTime: at(10, 15, 0)}
		history := []types.Trade{
			{Ticket: 1, AccountID: "a1", Symbol: "EURUSD", Side: types.SideBuy,
				Lots: 1, OpenTime: at(10, 0, 0), CloseTime: at(10, 10, 0)},
		}
		flags := e.Validate(trade, history)
		assert.False(t, hasFlag(flags, types.FlagHedging))
	})
}

func TestEvaluator_TickScalping(t *testing.T) {
	e := testEvaluator(t)

	t.Run("59s under a 60s threshold flags", func(t *testing.T) {
		trade := types.Trade{Ticket: 1, AccountID: "a1", Symbol: "XAUUSD", Side: types.SideBuy,
			Lots: 1, OpenTime: at(10, 0, 0), CloseTime: at(10, 0, 59)}
		flags := e.Validate(trade, nil)
		assert.True(t, hasFlag(flags, types.FlagTickScalping))
	})

	t.Run("61s does not flag", func(t *testing.T) {
		trade := types.Trade{Ticket: 1, AccountID: "a1", Symbol: "XAUUSD", Side: types.SideBuy,
			Lots: 1, OpenTime: at(10, 0, 0), CloseTime: at(10, 1, 1)}
		flags := e.Validate(trade, nil)
		assert.False(t, hasFlag(flags, types.FlagTickScalping))
	})

	t.Run("exactly the threshold does not flag", func(t *testing.T) {
		trade := types.Trade{Ticket: 1, AccountID: "a1", Symbol: "XAUUSD", Side: types.SideBuy,
			Lots: 1, OpenTime: at(10, 0, 0), CloseTime: at(10, 1, 0)}
		flags := e.Validate(trade, nil)
		assert.False(t, hasFlag(flags, types.FlagTickScalping))
	})

	t.Run("open trades are never scalps", func(t *testing.T) {
		trade := types.Trade{Ticket: 1, AccountID: "a1", Symbol: "XAUUSD", Side: types.SideBuy,
			Lots: 1, OpenTime: at(11, 59, 30)}
		flags := e.Validate(trade, nil)
		assert.False(t, hasFlag(flags, types.FlagTickScalping))
		assert.False(t, hasFlag(flags, types.FlagMinDuration))
	})

	t.Run("under the hard floor flags both", func(t *testing.T) {
		trade := types.Trade{Ticket: 1, AccountID: "a1", Symbol: "XAUUSD", Side: types.SideBuy,
			Lots: 1, OpenTime: at(10, 0, 0), CloseTime: at(10, 0, 20), ProfitLoss: -5}
		flags := e.Validate(trade, nil)
		assert.True(t, hasFlag(flags, types.FlagTickScalping))
		assert.True(t, hasFlag(flags, types.FlagMinDuration))
	})
}

func TestEvaluator_Martingale(t *testing.T) {
	e := testEvaluator(t)

	base := []types.Trade{
		{Ticket: 1, AccountID: "a1", Symbol: "EURUSD", Side: types.SideBuy,
			Lots: 1, OpenTime: at(9, 0, 0), CloseTime: at(9, 30, 0), ProfitLoss: -250},
	}

	t.Run("doubling after a loss inside the window flags", func(t *testing.T) {
		trade := types.Trade{Ticket: 2, AccountID: "a1", Symbol: "EURUSD", Side: types.SideBuy,
			Lots: 2, OpenTime: at(9, 32, 0), CloseTime: at(9, 40, 0)}
		flags := e.Validate(trade, base)
		assert.True(t, hasFlag(flags, types.FlagMartingale))
	})

	t.Run("same size after a loss does not flag", func(t *testing.T) {
		trade := types.Trade{Ticket: 2, AccountID: "a1", Symbol: "EURUSD", Side: types.SideBuy,
			Lots: 1, OpenTime: at(9, 32, 0), CloseTime: at(9, 40, 0)}
		flags := e.Validate(trade, base)
		assert.False(t, hasFlag(flags, types.FlagMartingale))
	})

	t.Run("doubling long after the loss does not flag", func(t *testing.T) {
		trade := types.Trade{Ticket: 2, AccountID: "a1", Symbol: "EURUSD", Side: types.SideBuy,
			Lots: 2, OpenTime: at(10, 30, 0), CloseTime: at(10, 40, 0)}
		flags := e.Validate(trade, base)
		assert.False(t, hasFlag(flags, types.FlagMartingale))
	})

	t.Run("doubling after a win does not flag", func(t *testing.T) {
		history := []types.Trade{
			{Ticket: 1, AccountID: "a1", Symbol: "EURUSD", Side: types.SideBuy,
				Lots: 1, OpenTime: at(9, 0, 0), CloseTime: at(9, 30, 0), ProfitLoss: 250},
		}
		trade := types.Trade{Ticket: 2, AccountID: "a1", Symbol: "EURUSD", Side: types.SideBuy,
			Lots: 2, OpenTime: at(9, 32, 0), CloseTime: at(9, 40, 0)}
		flags := e.Validate(trade, history)
		assert.False(t, hasFlag(flags, types.FlagMartingale))
	})
}

func TestEvaluator_RevengeTrading(t *testing.T) {
	e := testEvaluator(t)

	loss := types.Trade{Ticket: 1, AccountID: "a1", Symbol: "EURUSD", Side: types.SideBuy,
		Lots: 1, OpenTime: at(9, 0, 0), CloseTime: at(9, 30, 0), ProfitLoss: -400}

	t.Run("oversized re-entry right after a loss flags", func(t *testing.T) {
		trade := types.Trade{Ticket: 2, AccountID: "a1", Symbol: "EURUSD", Side: types.SideSell,
			Lots: 1.5, OpenTime: at(9, 31, 0), CloseTime: at(9, 45, 0)}
		flags := e.Validate(trade, []types.Trade{loss})
		assert.True(t, hasFlag(flags, types.FlagRevengeTrade))
	})

	t.Run("correlated symbol counts as the same market", func(t *testing.T) {
		trade := types.Trade{Ticket: 2, AccountID: "a1", Symbol: "GBPUSD", Side: types.SideBuy,
			Lots: 2, OpenTime: at(9, 31, 0), CloseTime: at(9, 45, 0)}
		flags := e.Validate(trade, []types.Trade{loss})
		assert.True(t, hasFlag(flags, types.FlagRevengeTrade))
	})

	t.Run("uncorrelated symbol does not flag", func(t *testing.T) {
		trade := types.Trade{Ticket: 2, AccountID: "a1", Symbol: "USDJPY", Side: types.SideBuy,
			Lots: 2, OpenTime: at(9, 31, 0), CloseTime: at(9, 45, 0)}
		flags := e.Validate(trade, []types.Trade{loss})
		assert.False(t, hasFlag(flags, types.FlagRevengeTrade))
	})

	t.Run("after the cooldown does not flag", func(t *testing.T) {
		trade := types.Trade{Ticket: 2, AccountID: "a1", Symbol: "EURUSD", Side: types.SideBuy,
			Lots: 2, OpenTime: at(9, 34, 0), CloseTime: at(9, 45, 0)}
		flags := e.Validate(trade, []types.Trade{loss})
		assert.False(t, hasFlag(flags, types.FlagRevengeTrade))
	})
}

func TestEvaluator_ArbitrageAndLatency(t *testing.T) {
	e := testEvaluator(t)

	t.Run("profitable trade inside the arbitrage window flags", func(t *testing.T) {
		trade := types.Trade{Ticket: 1, AccountID: "a1", Symbol: "EURUSD", Side: types.SideBuy,
			Lots: 1, OpenTime: at(10, 0, 0), CloseTime: at(10, 0, 8), ProfitLoss: 50}
		flags := e.Validate(trade, nil)
		assert.True(t, hasFlag(flags, types.FlagArbitrage))
	})

	t.Run("losing quick trade is not arbitrage", func(t *testing.T) {
		trade := types.Trade{Ticket: 1, AccountID: "a1", Symbol: "EURUSD", Side: types.SideBuy,
			Lots: 1, OpenTime: at(10, 0, 0), CloseTime: at(10, 0, 8), ProfitLoss: -50}
		flags := e.Validate(trade, nil)
		assert.False(t, hasFlag(flags, types.FlagArbitrage))
	})

	t.Run("instant re-entry on the same symbol flags latency", func(t *testing.T) {
		trade := types.Trade{Ticket: 2, AccountID: "a1", Symbol: "EURUSD", Side: types.SideBuy,
			Lots: 1, OpenTime: at(10, 0, 0).Add(200 * time.Millisecond), CloseTime: at(10, 30, 0)}
		history := []types.Trade{
			{Ticket: 1, AccountID: "a1", Symbol: "EURUSD", Side: types.SideBuy,
				Lots: 1, OpenTime: at(9, 0, 0), CloseTime: at(10, 0, 0), ProfitLoss: 10},
		}
		flags := e.Validate(trade, history)
		assert.True(t, hasFlag(flags, types.FlagLatency))
	})

	t.Run("re-entry after the gap does not flag", func(t *testing.T) {
		trade := types.Trade{Ticket: 2, AccountID: "a1", Symbol: "EURUSD", Side: types.SideBuy,
			Lots: 1, OpenTime: at(10, 0, 1), CloseTime: at(10, 30, 0)}
		history := []types.Trade{
			{Ticket: 1, AccountID: "a1", Symbol: "EURUSD", Side: types.SideBuy,
				Lots: 1, OpenTime: at(9, 0, 0), CloseTime: at(10, 0, 0), ProfitLoss: 10},
		}
		flags := e.Validate(trade, history)
		assert.False(t, hasFlag(flags, types.FlagLatency))
	})
}

func TestEvaluator_NewsTrading(t *testing.T) {
	e := testEvaluator(t)

	t.Run("open inside the buffer flags", func(t *testing.T) {
		trade := types.Trade{Ticket: 1, AccountID: "a1", Symbol: "EURUSD", Side: types.SideBuy,
			Lots: 1, OpenTime: at(13, 31, 0), CloseTime: at(14, 0, 0)}
		flags := e.Validate(trade, nil)
		assert.True(t, hasFlag(flags, types.FlagNewsTrading))
	})

	t.Run("open outside the buffer does not flag", func(t *testing.T) {
		trade := types.Trade{Ticket: 1, AccountID: "a1", Symbol: "EURUSD", Side: types.SideBuy,
			Lots: 1, OpenTime: at(13, 35, 0), CloseTime: at(14, 0, 0)}
		flags := e.Validate(trade, nil)
		assert.False(t, hasFlag(flags, types.FlagNewsTrading))
	})
}

func TestEvaluator_ExcludesSelfFromHistory(t *testing.T) {
	e := testEvaluator(t)
	trade := types.Trade{Ticket: 7, AccountID: "a1", Symbol: "EURUSD", Side: types.SideBuy,
		Lots: 1, OpenTime: at(10, 0, 0), CloseTime: at(10, 30, 0)}
	// A stale row for the same ticket must be excluded by ticket, not by
	// value, or it would overlap the trade as a phantom opposite side.
	stale := trade
	stale.Side = types.SideSell
	flags := e.Validate(trade, []types.Trade{stale})
	assert.False(t, hasFlag(flags, types.FlagHedging))
}
