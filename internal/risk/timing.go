package risk

import (
	"fmt"
	"time"

	"propguard/internal/types"
)

// checkTickScalping fires when a closed trade was held for less than the
// configured minimum. 59s under a 60s threshold is a flag; 61s is not.
func (e *Evaluator) checkTickScalping(trade types.Trade, _ []types.Trade, now time.Time) *types.ViolationFlag {
	if trade.IsOpen() {
		return nil
	}
	hold := trade.HoldDuration(now)
	if hold >= e.minHold {
		return nil
	}
	return newTradeFlag(trade, types.FlagTickScalping, types.SeverityWarning,
		fmt.Sprintf("held %s, below the %s minimum", hold.Round(time.Second), e.minHold),
		map[string]any{"hold_seconds": hold.Seconds(), "min_seconds": e.minHold.Seconds()})
}

// checkMinDuration is the stricter variant used by groups that enforce a
// hard floor below the scalping threshold.
func (e *Evaluator) checkMinDuration(trade types.Trade, _ []types.Trade, now time.Time) *types.ViolationFlag {
	if trade.IsOpen() {
		return nil
	}
	hold := trade.HoldDuration(now)
	if hold >= e.minDuration {
		return nil
	}
	return newTradeFlag(trade, types.FlagMinDuration, types.SeverityWarning,
		fmt.Sprintf("held %s, below the %s hard floor", hold.Round(time.Second), e.minDuration),
		map[string]any{"hold_seconds": hold.Seconds(), "min_seconds": e.minDuration.Seconds()})
}

// checkArbitrage flags profitable in-and-out trades whose whole life span
// fits inside the arbitrage hold window; that pattern is consistent with
// feed-latency exploitation rather than discretionary trading.
func (e *Evaluator) checkArbitrage(trade types.Trade, _ []types.Trade, now time.Time) *types.ViolationFlag {
	if trade.IsOpen() || trade.ProfitLoss <= 0 {
		return nil
	}
	hold := trade.HoldDuration(now)
	if hold > e.arbitrageMaxHold {
		return nil
	}
	return newTradeFlag(trade, types.FlagArbitrage, types.SeverityWarning,
		fmt.Sprintf("profitable trade closed after %s, inside the %s arbitrage window",
			hold.Round(time.Millisecond), e.arbitrageMaxHold),
		map[string]any{"hold_seconds": hold.Seconds(), "profit": trade.ProfitLoss})
}

// checkLatency flags a re-entry on the same symbol within the minimum gap
// after the previous position closed.
func (e *Evaluator) checkLatency(trade types.Trade, history []types.Trade, now time.Time) *types.ViolationFlag {
	for _, other := range history {
		if other.Symbol != trade.Symbol || other.IsOpen() {
			continue
		}
		gap := trade.OpenTime.Sub(other.CloseTime)
		if gap < 0 || gap >= e.latencyMinGap {
			continue
		}
		return newTradeFlag(trade, types.FlagLatency, types.SeverityWarning,
			fmt.Sprintf("re-entered %s %s after ticket %d closed", trade.Symbol, gap, other.Ticket),
			map[string]any{"prior_ticket": other.Ticket, "gap_ms": gap.Milliseconds()})
	}
	return nil
}

// checkNewsTrading flags trades opened inside the buffer around any
// configured news timestamp.
func (e *Evaluator) checkNewsTrading(trade types.Trade, _ []types.Trade, _ time.Time) *types.ViolationFlag {
	if len(e.newsTimes) == 0 {
		return nil
	}
	open := trade.OpenTime.UTC()
	for _, ts := range e.newsTimes {
		diff := open.Sub(ts)
		if diff < 0 {
			diff = -diff
		}
		if diff > e.newsBuffer {
			continue
		}
		return newTradeFlag(trade, types.FlagNewsTrading, types.SeverityWarning,
			fmt.Sprintf("opened within %s of scheduled news at %s", e.newsBuffer, ts.Format(time.RFC3339)),
			map[string]any{"news_time": ts.Format(time.RFC3339), "buffer_seconds": e.newsBuffer.Seconds()})
	}
	return nil
}
