package types

import "time"

// TradeSide is the canonical internal position direction. Bridge payloads
// carry sides as 0/1 integers; conversion happens exactly once at the
// ingestion boundary and nothing downstream re-interprets the encoding.
type TradeSide string

const (
	SideBuy  TradeSide = "buy"
	SideSell TradeSide = "sell"
)

// Opposite returns the other side.
func (s TradeSide) Opposite() TradeSide {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// Trade is one open or closed position on a challenge account.
type Trade struct {
	Ticket    int64
	AccountID string
	Symbol    string
	Side      TradeSide
	// Lots is the position size in raw lots. The bridge reports volume as
	// lots*100; normalization happens at ingestion, never downstream.
	Lots       float64
	OpenPrice  float64
	ClosePrice float64
	OpenTime   time.Time
	// CloseTime is zero while the position is still open.
	CloseTime  time.Time
	ProfitLoss float64
	Commission float64
	Swap       float64
}

// IsOpen reports whether the position has not been closed yet.
func (t Trade) IsOpen() bool {
	return t.CloseTime.IsZero()
}

// HoldDuration returns close-open for closed trades and now-open for open
// ones.
func (t Trade) HoldDuration(now time.Time) time.Duration {
	if t.IsOpen() {
		return now.Sub(t.OpenTime)
	}
	return t.CloseTime.Sub(t.OpenTime)
}

// EffectiveCloseTime treats a still-open trade as closing at now, which is
// what the overlap checks need.
func (t Trade) EffectiveCloseTime(now time.Time) time.Time {
	if t.IsOpen() {
		return now
	}
	return t.CloseTime
}
