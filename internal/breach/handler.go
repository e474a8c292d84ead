package breach

import (
	"context"
	"fmt"

	"propguard/internal/logger"
	"propguard/internal/store"
	"propguard/internal/types"
)

// BridgeCommander is the slice of the bridge client the handler needs to
// act on a breached login.
type BridgeCommander interface {
	DisableAccount(ctx context.Context, login int64) error
	ClosePositions(ctx context.Context, login int64) error
}

// Handler persists violation flags and applies the account status machine.
// It is idempotent: re-handling an already-breached account neither
// duplicates violation rows nor re-issues bridge commands.
type Handler struct {
	accounts   store.AccountStore
	violations store.ViolationStore
	bridge     BridgeCommander

	disableOnBreach bool
	closeOnBreach   bool
}

func NewHandler(accounts store.AccountStore, violations store.ViolationStore, bridge BridgeCommander, disableOnBreach, closeOnBreach bool) *Handler {
	return &Handler{
		accounts:        accounts,
		violations:      violations,
		bridge:          bridge,
		disableOnBreach: disableOnBreach,
		closeOnBreach:   closeOnBreach,
	}
}

// HandleBreach records one violation flag for an account and, for
// breach-severity drawdown flags, transitions the account to breached and
// instructs the bridge. A no-op on terminal accounts.
func (h *Handler) HandleBreach(ctx context.Context, account *types.Account, flag types.ViolationFlag) error {
	if account == nil {
		return fmt.Errorf("account cannot be nil")
	}
	if flag.Severity == types.SeverityBreach {
		if account.Status.Terminal() {
			logger.Debugf("breach: account=%s already %s, skip %s", account.ID, account.Status, flag.FlagType)
			return nil
		}
		exists, err := h.violations.HasBreach(ctx, account.ID, flag.FlagType)
		if err != nil {
			return fmt.Errorf("checking existing breach failed: %w", err)
		}
		if exists {
			logger.Debugf("breach: account=%s already has %s breach on record, skip", account.ID, flag.FlagType)
			return nil
		}
	}

	if err := h.violations.Insert(ctx, &flag); err != nil {
		return fmt.Errorf("persisting violation failed: %w", err)
	}
	logger.Infof("breach: recorded %s/%s account=%s ticket=%d", flag.FlagType, flag.Severity, account.ID, flag.Ticket)

	if flag.Severity != types.SeverityBreach || !isDrawdownFlag(flag.FlagType) {
		return nil
	}

	transitioned, err := h.accounts.TransitionStatus(ctx, account.ID, types.AccountActive, types.AccountBreached)
	if err != nil {
		return fmt.Errorf("transitioning account status failed: %w", err)
	}
	if !transitioned {
		// Someone else already moved the account out of active; the
		// disable command went out with that transition.
		return nil
	}
	account.Status = types.AccountBreached
	logger.Warnf("breach: account=%s login=%d marked breached (%s)", account.ID, account.Login, flag.FlagType)

	if h.bridge == nil {
		return nil
	}
	if h.disableOnBreach {
		if err := h.bridge.DisableAccount(ctx, account.Login); err != nil {
			logger.Errorf("breach: disabling login=%d failed: %v", account.Login, err)
		}
	}
	if h.closeOnBreach {
		if err := h.bridge.ClosePositions(ctx, account.Login); err != nil {
			logger.Errorf("breach: closing positions login=%d failed: %v", account.Login, err)
		}
	}
	return nil
}

func isDrawdownFlag(ft types.FlagType) bool {
	return ft == types.FlagDailyDrawdown || ft == types.FlagMaxDrawdown
}
