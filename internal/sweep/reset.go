package sweep

import (
	"context"
	"fmt"
	"time"

	"propguard/internal/gateway/bridge"
	"propguard/internal/logger"
	"propguard/internal/store"
	"propguard/internal/types"
)

// ResetResult summarizes one daily reset run.
type ResetResult struct {
	Day          string `json:"day"`
	Total        int    `json:"total"`
	ResetCount   int    `json:"reset_count"`
	AlreadyDone  int    `json:"already_done"`
	FailureCount int    `json:"failure_count"`
}

// DailyReset sets start_of_day_equity to the current live equity for
// every active account, once per UTC day. The per-account day marker
// makes a rerun after a missed or crashed job safe: accounts already
// reset today are left alone.
type DailyReset struct {
	accounts store.AccountStore
	bridge   BridgeChecker
	timeout  time.Duration
	nowFn    func() time.Time
}

func NewDailyReset(accounts store.AccountStore, checker BridgeChecker, timeout time.Duration) *DailyReset {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &DailyReset{
		accounts: accounts,
		bridge:   checker,
		timeout:  timeout,
		nowFn:    time.Now,
	}
}

// SetNowFunc overrides the clock for tests.
func (d *DailyReset) SetNowFunc(fn func() time.Time) {
	if fn != nil {
		d.nowFn = fn
	}
}

// Run performs the reset for all active accounts. Accounts whose live
// equity cannot be read this cycle are counted as failures and picked up
// by the next run; their previous start-of-day value stays in force.
func (d *DailyReset) Run(ctx context.Context) (*ResetResult, error) {
	day := d.nowFn().UTC().Format("2006-01-02")
	ids, err := d.accounts.ListActiveIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing active accounts failed: %w", err)
	}
	res := &ResetResult{Day: day, Total: len(ids)}
	for _, id := range ids {
		account, err := d.accounts.FindByID(ctx, id)
		if err != nil || account == nil {
			res.FailureCount++
			continue
		}
		if account.SODResetDay == day {
			res.AlreadyDone++
			continue
		}
		equity, err := d.liveEquity(ctx, account)
		if err != nil {
			logger.Warnf("daily reset: live equity unavailable login=%d: %v", account.Login, err)
			res.FailureCount++
			continue
		}
		applied, err := d.accounts.ResetStartOfDay(ctx, account.ID, equity, day)
		if err != nil {
			res.FailureCount++
			continue
		}
		if applied {
			res.ResetCount++
		} else {
			res.AlreadyDone++
		}
	}
	logger.Infof("daily reset %s: total=%d reset=%d already=%d failed=%d",
		day, res.Total, res.ResetCount, res.AlreadyDone, res.FailureCount)
	return res, nil
}

func (d *DailyReset) liveEquity(ctx context.Context, account *types.Account) (float64, error) {
	callCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	results, err := d.bridge.CheckBulk(callCtx, []bridge.BulkCheckRequest{{Login: account.Login}})
	if err != nil {
		return 0, err
	}
	for _, res := range results {
		if res.Login != account.Login {
			continue
		}
		if res.Degenerate(account.InitialBalance, account.CurrentBalance) {
			return 0, fmt.Errorf("degenerate bridge response")
		}
		return res.Equity, nil
	}
	return 0, errLoginMissing
}
