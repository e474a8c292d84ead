package risk

import (
	"fmt"
	"time"

	"propguard/internal/types"
)

// checkHedging fires when another trade on the same symbol with the
// opposite side overlaps this one in time. A still-open trade closes at
// "now" for the purpose of the overlap test. Overlap is strict:
// other.open < this.close AND other.close > this.open, so back-to-back
// positions that merely touch do not count.
func (e *Evaluator) checkHedging(trade types.Trade, history []types.Trade, now time.Time) *types.ViolationFlag {
	thisClose := trade.EffectiveCloseTime(now)
	for _, other := range history {
		if other.Symbol != trade.Symbol || other.Side == trade.Side {
			continue
		}
		otherClose := other.EffectiveCloseTime(now)
		if other.OpenTime.Before(thisClose) && otherClose.After(trade.OpenTime) {
			return newTradeFlag(trade, types.FlagHedging, types.SeverityWarning,
				fmt.Sprintf("%s %s overlaps opposite-side ticket %d on the same symbol",
					trade.Side, trade.Symbol, other.Ticket),
				map[string]any{
					"opposite_ticket": other.Ticket,
					"symbol":          trade.Symbol,
				})
		}
	}
	return nil
}
