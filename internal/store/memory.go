package store

import (
	"context"
	"errors"
	"sort"
	"sync"

	"propguard/internal/types"
)

// MemoryStore is an in-memory Store used by tests and by the simulation
// tooling. All repositories share one mutex; contention is irrelevant at
// test scale.
type MemoryStore struct {
	mu         sync.RWMutex
	accounts   map[string]types.Account
	trades     map[string][]types.Trade
	violations map[string][]types.ViolationFlag
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts:   make(map[string]types.Account),
		trades:     make(map[string][]types.Trade),
		violations: make(map[string][]types.ViolationFlag),
	}
}

func (s *MemoryStore) Accounts() AccountStore     { return (*memoryAccounts)(s) }
func (s *MemoryStore) Trades() TradeStore         { return (*memoryTrades)(s) }
func (s *MemoryStore) Violations() ViolationStore { return (*memoryViolations)(s) }
func (s *MemoryStore) Close() error               { return nil }

type memoryAccounts MemoryStore

func (s *memoryAccounts) Save(_ context.Context, acc *types.Account) error {
	if acc == nil {
		return errors.New("account cannot be nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[acc.ID] = *acc
	return nil
}

func (s *memoryAccounts) FindByID(_ context.Context, id string) (*types.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acc, ok := s.accounts[id]
	if !ok {
		return nil, nil
	}
	out := acc
	return &out, nil
}

func (s *memoryAccounts) ListByIDs(_ context.Context, ids []string) ([]types.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.Account, 0, len(ids))
	for _, id := range ids {
		if acc, ok := s.accounts[id]; ok {
			out = append(out, acc)
		}
	}
	return out, nil
}

func (s *memoryAccounts) ListActiveIDs(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []string
	for id, acc := range s.accounts {
		if acc.Status == types.AccountActive {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *memoryAccounts) UpdateEquity(_ context.Context, id string, equity, balance float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[id]
	if !ok {
		return nil
	}
	acc.CurrentEquity = equity
	acc.CurrentBalance = balance
	s.accounts[id] = acc
	return nil
}

func (s *memoryAccounts) TransitionStatus(_ context.Context, id string, from, to types.AccountStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[id]
	if !ok || acc.Status != from {
		return false, nil
	}
	acc.Status = to
	s.accounts[id] = acc
	return true, nil
}

func (s *memoryAccounts) ResetStartOfDay(_ context.Context, id string, equity float64, day string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[id]
	if !ok || acc.SODResetDay == day {
		return false, nil
	}
	acc.StartOfDayEquity = equity
	acc.SODResetDay = day
	s.accounts[id] = acc
	return true, nil
}

type memoryTrades MemoryStore

func (s *memoryTrades) Upsert(_ context.Context, trade *types.Trade) error {
	if trade == nil {
		return errors.New("trade cannot be nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.trades[trade.AccountID]
	for i := range list {
		if list[i].Ticket == trade.Ticket {
			list[i] = *trade
			s.trades[trade.AccountID] = list
			return nil
		}
	}
	s.trades[trade.AccountID] = append(list, *trade)
	return nil
}

func (s *memoryTrades) ListByAccount(_ context.Context, accountID string, limit int) ([]types.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := append([]types.Trade(nil), s.trades[accountID]...)
	sort.Slice(list, func(i, j int) bool { return list[i].OpenTime.Before(list[j].OpenTime) })
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

type memoryViolations MemoryStore

func (s *memoryViolations) Insert(_ context.Context, flag *types.ViolationFlag) error {
	if flag == nil {
		return errors.New("violation cannot be nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.violations[flag.AccountID] = append(s.violations[flag.AccountID], *flag)
	return nil
}

func (s *memoryViolations) ListByAccount(_ context.Context, accountID string, limit int) ([]types.ViolationFlag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := append([]types.ViolationFlag(nil), s.violations[accountID]...)
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

func (s *memoryViolations) ListRecent(_ context.Context, limit int) ([]types.ViolationFlag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var list []types.ViolationFlag
	for _, flags := range s.violations {
		list = append(list, flags...)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

func (s *memoryViolations) ListByTicket(_ context.Context, accountID string, ticket int64) ([]types.ViolationFlag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []types.ViolationFlag
	for _, f := range s.violations[accountID] {
		if f.Ticket == ticket {
			out = append(out, f)
		}
	}
	return out, nil
}

func (s *memoryViolations) HasBreach(_ context.Context, accountID string, flagType types.FlagType) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, f := range s.violations[accountID] {
		if f.FlagType == flagType && f.Severity == types.SeverityBreach {
			return true, nil
		}
	}
	return false, nil
}
