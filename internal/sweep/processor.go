package sweep

import (
	"context"
	"errors"
	"fmt"
	"time"

	"propguard/internal/config"
	"propguard/internal/gateway/bridge"
	"propguard/internal/logger"
	"propguard/internal/risk"
	"propguard/internal/store"
	"propguard/internal/types"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// BridgeChecker is the slice of the bridge client the processor calls.
type BridgeChecker interface {
	CheckBulk(ctx context.Context, reqs []bridge.BulkCheckRequest) ([]bridge.BulkCheckResult, error)
}

// BreachSink receives drawdown breaches detected during the sweep.
type BreachSink interface {
	HandleBreach(ctx context.Context, account *types.Account, flag types.ViolationFlag) error
}

var errLoginMissing = errors.New("login missing from bridge response")

// Processor sweeps account populations through the bridge and the
// drawdown calculator under a bounded worker pool. It never fails the
// caller: every ProcessAccounts call returns a well-formed BatchResult,
// even when 100% of the tasks fail.
type Processor struct {
	cfg      config.SweepConfig
	timeout  time.Duration
	retryGap time.Duration

	accounts store.AccountStore
	bridge   BridgeChecker
	catalog  *risk.Catalog
	sink     BreachSink

	nowFn func() time.Time
}

func NewProcessor(cfg config.SweepConfig, accounts store.AccountStore, checker BridgeChecker, catalog *risk.Catalog, sink BreachSink) (*Processor, error) {
	if cfg.BatchSize <= 0 {
		return nil, fmt.Errorf("sweep batch_size must be > 0")
	}
	if cfg.MaxConcurrent <= 0 {
		return nil, fmt.Errorf("sweep max_concurrent must be > 0")
	}
	if cfg.TimeoutMs <= 0 {
		return nil, fmt.Errorf("sweep timeout_ms must be > 0")
	}
	if accounts == nil || checker == nil || catalog == nil {
		return nil, fmt.Errorf("sweep processor dependencies incomplete")
	}
	return &Processor{
		cfg:      cfg,
		timeout:  time.Duration(cfg.TimeoutMs) * time.Millisecond,
		retryGap: time.Duration(cfg.RetryDelayMs) * time.Millisecond,
		accounts: accounts,
		bridge:   checker,
		catalog:  catalog,
		sink:     sink,
		nowFn:    time.Now,
	}, nil
}

// SetNowFunc overrides the clock for tests.
func (p *Processor) SetNowFunc(fn func() time.Time) {
	if fn != nil {
		p.nowFn = fn
	}
}

// ProcessActive sweeps every active account.
func (p *Processor) ProcessActive(ctx context.Context) (*BatchResult, error) {
	ids, err := p.accounts.ListActiveIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing active accounts failed: %w", err)
	}
	return p.ProcessAccounts(ctx, ids), nil
}

// ProcessAccounts partitions accountIDs into batches and evaluates each
// account on a worker pool bounded by max_concurrent. Per-account
// failures are counted, never propagated.
func (p *Processor) ProcessAccounts(ctx context.Context, accountIDs []string) *BatchResult {
	startedAt := p.nowFn().UTC()
	id := uuid.NewString()
	ctrs := newCounters(p.cfg.MaxErrorDetails)

	logger.Infof("sweep %s: starting accounts=%d batch_size=%d max_concurrent=%d timeout=%s",
		id, len(accountIDs), p.cfg.BatchSize, p.cfg.MaxConcurrent, p.timeout)

	for start := 0; start < len(accountIDs); start += p.cfg.BatchSize {
		end := start + p.cfg.BatchSize
		if end > len(accountIDs) {
			end = len(accountIDs)
		}
		chunk := accountIDs[start:end]

		group, groupCtx := errgroup.WithContext(ctx)
		group.SetLimit(p.cfg.MaxConcurrent)
		for _, accountID := range chunk {
			accountID := accountID
			group.Go(func() error {
				p.evaluateOne(groupCtx, accountID, ctrs)
				return nil
			})
		}
		// Tasks swallow their own errors; Wait only drains the pool.
		_ = group.Wait()

		if ctx.Err() != nil {
			logger.Warnf("sweep %s: canceled after %d accounts", id, end)
			break
		}
	}

	res := ctrs.result(id, len(accountIDs), startedAt, p.nowFn().UTC())
	logger.Infof("sweep %s: done status=%s success=%d failure=%d skipped=%d breach=%d avg=%dms max=%dms",
		id, res.Status, res.SuccessCount, res.FailureCount, res.SkippedCount, res.BreachCount,
		res.Metrics.AvgLatencyMs, res.Metrics.MaxLatencyMs)
	return res
}

// evaluateOne runs the full per-account pipeline: live snapshot with
// retries, drawdown evaluation, breach handling. It must never panic the
// sweep.
func (p *Processor) evaluateOne(ctx context.Context, accountID string, ctrs *counters) {
	defer func() {
		if rec := recover(); rec != nil {
			ctrs.recordError(accountID, 0, fmt.Errorf("panic: %v", rec))
			logger.Errorf("sweep: panic evaluating account=%s: %v", accountID, rec)
		}
	}()
	started := p.nowFn()
	defer func() { ctrs.recordLatency(p.nowFn().Sub(started)) }()

	account, err := p.accounts.FindByID(ctx, accountID)
	if err != nil {
		ctrs.recordError(accountID, 0, fmt.Errorf("loading account failed: %w", err))
		return
	}
	if account == nil {
		ctrs.recordError(accountID, 0, errors.New("account not found"))
		return
	}
	if account.Status != types.AccountActive {
		// Terminal and administratively disabled accounts are not
		// re-evaluated until reactivated.
		ctrs.skipped.Add(1)
		return
	}

	snapshot, err := p.fetchLive(ctx, account)
	if err != nil {
		ctrs.recordError(accountID, account.Login, err)
		return
	}
	if snapshot.Degenerate(account.InitialBalance, account.CurrentBalance) {
		// Known bridge failure mode: a default-looking reading means
		// "could not determine", not "equity is zero".
		logger.Debugf("sweep: degenerate bridge response login=%d equity=%.2f balance=%.2f, skipping",
			account.Login, snapshot.Equity, snapshot.Balance)
		ctrs.skipped.Add(1)
		return
	}

	if err := p.accounts.UpdateEquity(ctx, account.ID, snapshot.Equity, snapshot.Balance); err != nil {
		ctrs.recordError(accountID, account.Login, fmt.Errorf("updating equity failed: %w", err))
		return
	}
	account.CurrentEquity = snapshot.Equity
	account.CurrentBalance = snapshot.Balance

	rules := p.catalog.Resolve(account.ChallengeType, account.MT5Group)
	status := risk.EvaluateDrawdown(risk.Snapshot{
		InitialBalance:   account.InitialBalance,
		StartOfDayEquity: account.StartOfDayEquity,
		CurrentEquity:    account.CurrentEquity,
	}, rules)

	if status.Breached() && p.sink != nil {
		ctrs.breach.Add(1)
		for _, flag := range drawdownFlags(account, rules, status) {
			if err := p.sink.HandleBreach(ctx, account, flag); err != nil {
				logger.Errorf("sweep: breach handling failed account=%s: %v", account.ID, err)
			}
		}
	} else if status.ProfitTargetMet {
		// Passing an account is an administrative action outside this
		// engine; surface it for the dashboard instead.
		logger.Infof("sweep: account=%s login=%d reached profit target (equity=%.2f target=%.2f)",
			account.ID, account.Login, account.CurrentEquity, status.TargetAmount)
	}

	ctrs.success.Add(1)
}

// fetchLive asks the bridge for the account's live snapshot, retrying
// transport failures with the configured backoff. Each attempt carries
// its own deadline so one slow call cannot stall the sweep.
func (p *Processor) fetchLive(ctx context.Context, account *types.Account) (bridge.BulkCheckResult, error) {
	req := []bridge.BulkCheckRequest{{Login: account.Login}}
	var lastErr error
	for attempt := 0; attempt <= p.cfg.RetryAttempts; attempt++ {
		if attempt > 0 && p.retryGap > 0 {
			timer := time.NewTimer(p.retryGap)
			select {
			case <-ctx.Done():
				timer.Stop()
				return bridge.BulkCheckResult{}, ctx.Err()
			case <-timer.C:
			}
		}
		attemptCtx, cancel := context.WithTimeout(ctx, p.timeout)
		results, err := p.bridge.CheckBulk(attemptCtx, req)
		cancel()
		if err != nil {
			lastErr = err
			continue
		}
		for _, res := range results {
			if res.Login == account.Login {
				return res, nil
			}
		}
		lastErr = errLoginMissing
	}
	return bridge.BulkCheckResult{}, fmt.Errorf("bridge check failed after %d attempts: %w", p.cfg.RetryAttempts+1, lastErr)
}

func drawdownFlags(account *types.Account, rules risk.RuleSet, status risk.DrawdownStatus) []types.ViolationFlag {
	now := time.Now().UTC()
	var flags []types.ViolationFlag
	if status.DailyBreach {
		flags = append(flags, types.ViolationFlag{
			ID:        uuid.NewString(),
			AccountID: account.ID,
			FlagType:  types.FlagDailyDrawdown,
			Severity:  types.SeverityBreach,
			Description: fmt.Sprintf("equity %.2f below daily limit %.2f (%s)",
				account.CurrentEquity, status.DailyLimit, rules.Name),
			Details: map[string]any{
				"equity":      account.CurrentEquity,
				"daily_limit": status.DailyLimit,
				"rule_set":    rules.Name,
			},
			CreatedAt: now,
		})
	}
	if status.MaxBreach {
		flags = append(flags, types.ViolationFlag{
			ID:        uuid.NewString(),
			AccountID: account.ID,
			FlagType:  types.FlagMaxDrawdown,
			Severity:  types.SeverityBreach,
			Description: fmt.Sprintf("equity %.2f below max drawdown limit %.2f (%s)",
				account.CurrentEquity, status.MaxLimit, rules.Name),
			Details: map[string]any{
				"equity":   account.CurrentEquity,
				"limit":    status.MaxLimit,
				"rule_set": rules.Name,
			},
			CreatedAt: now,
		})
	}
	return flags
}
