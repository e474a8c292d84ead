package risk

import (
	"fmt"
	"time"

	"propguard/internal/types"
)

// checkMartingale fires when the new trade's lot size is at least the
// configured multiple of the most recent closed losing trade's lots, and
// the new trade opened shortly after that loss.
func (e *Evaluator) checkMartingale(trade types.Trade, history []types.Trade, _ time.Time) *types.ViolationFlag {
	loss := lastClosedLossBefore(history, trade.OpenTime)
	if loss == nil || loss.Lots <= 0 {
		return nil
	}
	if trade.OpenTime.Sub(loss.CloseTime) > e.martingaleWindow {
		return nil
	}
	if trade.Lots < loss.Lots*e.martingaleMultiplier {
		return nil
	}
	return newTradeFlag(trade, types.FlagMartingale, types.SeverityWarning,
		fmt.Sprintf("lot size %.2f is >= %.1fx the %.2f lots of losing ticket %d closed %s earlier",
			trade.Lots, e.martingaleMultiplier, loss.Lots, loss.Ticket,
			trade.OpenTime.Sub(loss.CloseTime).Round(time.Second)),
		map[string]any{
			"prior_ticket": loss.Ticket,
			"prior_lots":   loss.Lots,
			"lots":         trade.Lots,
			"multiplier":   e.martingaleMultiplier,
		})
}

// lastClosedLossBefore returns the most recent losing trade closed at or
// before cutoff. History must be sorted by open_time ascending.
func lastClosedLossBefore(history []types.Trade, cutoff time.Time) *types.Trade {
	var found *types.Trade
	for i := range history {
		h := history[i]
		if h.IsOpen() || h.ProfitLoss >= 0 {
			continue
		}
		if h.CloseTime.After(cutoff) {
			continue
		}
		if found == nil || h.CloseTime.After(found.CloseTime) {
			found = &history[i]
		}
	}
	return found
}
