package store

import (
	"context"

	"propguard/internal/types"
)

// Store is the entry point for database access. Repositories are injected
// into the sweep processor and breach handler explicitly so tests can
// substitute the in-memory implementation.
type Store interface {
	Accounts() AccountStore
	Trades() TradeStore
	Violations() ViolationStore
	Close() error
}

// AccountStore handles challenge account persistence.
type AccountStore interface {
	Save(ctx context.Context, acc *types.Account) error
	FindByID(ctx context.Context, id string) (*types.Account, error)
	ListByIDs(ctx context.Context, ids []string) ([]types.Account, error)
	// ListActiveIDs returns the ids of every account still eligible for
	// evaluation, i.e. status == active.
	ListActiveIDs(ctx context.Context) ([]string, error)
	// UpdateEquity writes the latest live equity/balance reading.
	UpdateEquity(ctx context.Context, id string, equity, balance float64) error
	// TransitionStatus moves an account from one status to another and
	// reports whether the row actually changed. A guard on the previous
	// status makes the transition safe to re-issue.
	TransitionStatus(ctx context.Context, id string, from, to types.AccountStatus) (bool, error)
	// ResetStartOfDay sets start_of_day_equity for one account, guarded by
	// the UTC day marker so a re-run of the reset job is a no-op. Reports
	// whether the reset was applied.
	ResetStartOfDay(ctx context.Context, id string, equity float64, day string) (bool, error)
}

// TradeStore handles trade persistence.
type TradeStore interface {
	Upsert(ctx context.Context, trade *types.Trade) error
	// ListByAccount returns trades ordered by open_time ascending, which
	// is the order the rule evaluator requires.
	ListByAccount(ctx context.Context, accountID string, limit int) ([]types.Trade, error)
}

// ViolationStore is the append-only audit trail of rule violations.
type ViolationStore interface {
	Insert(ctx context.Context, flag *types.ViolationFlag) error
	ListByAccount(ctx context.Context, accountID string, limit int) ([]types.ViolationFlag, error)
	// ListRecent returns the newest flags across all accounts.
	ListRecent(ctx context.Context, limit int) ([]types.ViolationFlag, error)
	ListByTicket(ctx context.Context, accountID string, ticket int64) ([]types.ViolationFlag, error)
	// HasBreach reports whether a breach-severity flag of the given type
	// already exists for the account. The breach handler consults it to
	// stay idempotent.
	HasBreach(ctx context.Context, accountID string, flagType types.FlagType) (bool, error)
}
