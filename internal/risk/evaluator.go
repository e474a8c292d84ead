package risk

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"propguard/internal/config"
	"propguard/internal/types"

	"github.com/google/uuid"
)

// Evaluator inspects one incoming trade against the account's recent
// history and emits zero or more violation flags. It holds only resolved
// thresholds; every Validate call is stateless.
type Evaluator struct {
	martingaleMultiplier float64
	martingaleWindow     time.Duration
	minHold              time.Duration
	minDuration          time.Duration
	revengeCooldown      time.Duration
	revengeSizeFactor    float64
	arbitrageMaxHold     time.Duration
	latencyMinGap        time.Duration
	newsBuffer           time.Duration
	newsTimes            []time.Time
	// correlated maps a symbol to its cluster index, so EURUSD and GBPUSD
	// can count as the "same" market for revenge detection.
	correlated map[string]int

	nowFn func() time.Time
}

func NewEvaluator(cfg config.TradeRuleConfig) (*Evaluator, error) {
	e := &Evaluator{
		martingaleMultiplier: cfg.MartingaleMultiplier,
		martingaleWindow:     time.Duration(cfg.MartingaleWindowSeconds) * time.Second,
		minHold:              time.Duration(cfg.MinHoldSeconds) * time.Second,
		minDuration:          time.Duration(cfg.MinDurationSeconds) * time.Second,
		revengeCooldown:      time.Duration(cfg.RevengeCooldownSeconds) * time.Second,
		revengeSizeFactor:    cfg.RevengeSizeFactor,
		arbitrageMaxHold:     time.Duration(cfg.ArbitrageMaxHoldSeconds) * time.Second,
		latencyMinGap:        time.Duration(cfg.LatencyMinGapMs) * time.Millisecond,
		newsBuffer:           time.Duration(cfg.NewsBufferSeconds) * time.Second,
		correlated:           make(map[string]int),
		nowFn:                time.Now,
	}
	for _, raw := range cfg.NewsTimes {
		ts, err := time.Parse(time.RFC3339, strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("invalid news time %q: %w", raw, err)
		}
		e.newsTimes = append(e.newsTimes, ts.UTC())
	}
	for idx, cluster := range cfg.CorrelatedSymbolClusters {
		for _, sym := range strings.Split(cluster, ",") {
			sym = strings.ToUpper(strings.TrimSpace(sym))
			if sym != "" {
				e.correlated[sym] = idx
			}
		}
	}
	return e, nil
}

// SetNowFunc overrides the clock for tests.
func (e *Evaluator) SetNowFunc(fn func() time.Time) {
	if fn != nil {
		e.nowFn = fn
	}
}

// Validate evaluates every rule independently; more than one flag may fire
// for the same trade. History may arrive in any order; it is evaluated
// sorted by open_time ascending with the trade itself excluded by ticket.
func (e *Evaluator) Validate(trade types.Trade, history []types.Trade) []types.ViolationFlag {
	now := e.nowFn().UTC()
	hist := make([]types.Trade, 0, len(history))
	for _, h := range history {
		if h.Ticket == trade.Ticket {
			continue
		}
		hist = append(hist, h)
	}
	sort.Slice(hist, func(i, j int) bool { return hist[i].OpenTime.Before(hist[j].OpenTime) })

	var flags []types.ViolationFlag
	checks := []func(types.Trade, []types.Trade, time.Time) *types.ViolationFlag{
		e.checkMartingale,
		e.checkHedging,
		e.checkTickScalping,
		e.checkMinDuration,
		e.checkRevengeTrading,
		e.checkArbitrage,
		e.checkLatency,
		e.checkNewsTrading,
	}
	for _, check := range checks {
		if flag := check(trade, hist, now); flag != nil {
			flags = append(flags, *flag)
		}
	}
	return flags
}

func newTradeFlag(trade types.Trade, flagType types.FlagType, severity types.Severity, desc string, details map[string]any) *types.ViolationFlag {
	return &types.ViolationFlag{
		ID:          uuid.NewString(),
		AccountID:   trade.AccountID,
		FlagType:    flagType,
		Severity:    severity,
		Ticket:      trade.Ticket,
		Description: desc,
		Details:     details,
		CreatedAt:   time.Now().UTC(),
	}
}

// sameMarket reports whether two symbols are identical or belong to the
// same configured correlation cluster.
func (e *Evaluator) sameMarket(a, b string) bool {
	a = strings.ToUpper(strings.TrimSpace(a))
	b = strings.ToUpper(strings.TrimSpace(b))
	if a == b {
		return true
	}
	ca, okA := e.correlated[a]
	cb, okB := e.correlated[b]
	return okA && okB && ca == cb
}
