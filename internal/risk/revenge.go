package risk

import (
	"fmt"
	"time"

	"propguard/internal/types"
)

// checkRevengeTrading fires when a trade opens within the cooldown window
// after a losing close on the same or a correlated symbol with an
// increased position size.
func (e *Evaluator) checkRevengeTrading(trade types.Trade, history []types.Trade, _ time.Time) *types.ViolationFlag {
	var loss *types.Trade
	for i := range history {
		h := history[i]
		if h.IsOpen() || h.ProfitLoss >= 0 {
			continue
		}
		if !e.sameMarket(h.Symbol, trade.Symbol) {
			continue
		}
		if h.CloseTime.After(trade.OpenTime) {
			continue
		}
		if loss == nil || h.CloseTime.After(loss.CloseTime) {
			loss = &history[i]
		}
	}
	if loss == nil || loss.Lots <= 0 {
		return nil
	}
	if trade.OpenTime.Sub(loss.CloseTime) > e.revengeCooldown {
		return nil
	}
	if trade.Lots < loss.Lots*e.revengeSizeFactor {
		return nil
	}
	return newTradeFlag(trade, types.FlagRevengeTrade, types.SeverityWarning,
		fmt.Sprintf("reopened %s at %.2f lots %s after losing ticket %d (%.2f lots) closed",
			trade.Symbol, trade.Lots,
			trade.OpenTime.Sub(loss.CloseTime).Round(time.Second), loss.Ticket, loss.Lots),
		map[string]any{
			"prior_ticket": loss.Ticket,
			"prior_lots":   loss.Lots,
			"lots":         trade.Lots,
			"size_factor":  e.revengeSizeFactor,
		})
}
