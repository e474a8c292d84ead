package bridge

// BulkCheckRequest is one entry of the bridge bulk equity check. The
// bridge applies min_equity_limit server-side when disable_account is set.
type BulkCheckRequest struct {
	Login          int64   `json:"login"`
	MinEquityLimit float64 `json:"min_equity_limit"`
	DisableAccount bool    `json:"disable_account"`
	ClosePositions bool    `json:"close_positions"`
}

// BulkCheckResult is the live equity/balance snapshot for one login.
// Response order is not guaranteed to match request order; correlate by
// login.
type BulkCheckResult struct {
	Login   int64   `json:"login"`
	Equity  float64 `json:"equity"`
	Balance float64 `json:"balance"`
}

// Degenerate reports whether the snapshot looks like the bridge's known
// bad default rather than a real reading: zero equity, or a balance stuck
// at the account's initial balance when the tracked balance has moved.
// Such responses mean "unreliable, skip this cycle", not "equity is zero".
func (r BulkCheckResult) Degenerate(initialBalance, trackedBalance float64) bool {
	if r.Equity == 0 {
		return true
	}
	return r.Balance == initialBalance && trackedBalance != initialBalance
}

// RawTrade mirrors the bridge trade payload. type is 0 for buy and 1 for
// sell; volume is lots*100; times are epoch seconds with close_time 0 for
// open positions. Normalization happens at the ingestion boundary.
type RawTrade struct {
	Ticket     int64   `json:"ticket"`
	Symbol     string  `json:"symbol"`
	Type       int     `json:"type"`
	Volume     float64 `json:"volume"`
	Price      float64 `json:"price"`
	ClosePrice float64 `json:"close_price"`
	Profit     float64 `json:"profit"`
	Commission float64 `json:"commission"`
	Swap       float64 `json:"swap"`
	Time       int64   `json:"time"`
	CloseTime  int64   `json:"close_time"`
}
