package breach

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"propguard/internal/store"
	"propguard/internal/types"
)

type MockCommander struct {
	mock.Mock
}

func (m *MockCommander) DisableAccount(ctx context.Context, login int64) error {
	args := m.Called(ctx, login)
	return args.Error(0)
}

func (m *MockCommander) ClosePositions(ctx context.Context, login int64) error {
	args := m.Called(ctx, login)
	return args.Error(0)
}

func activeAccount() *types.Account {
	return &types.Account{
		ID:             "a1",
		Login:          1001,
		InitialBalance: 10_000,
		Status:         types.AccountActive,
	}
}

func breachFlag(ft types.FlagType) types.ViolationFlag {
	return types.ViolationFlag{
		ID:          "flag-1",
		AccountID:   "a1",
		FlagType:    ft,
		Severity:    types.SeverityBreach,
		Description: "equity below limit",
		CreatedAt:   time.Now().UTC(),
	}
}

func TestHandler_DrawdownBreachTransitionsAndCommands(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	require.NoError(t, st.Accounts().Save(ctx, activeAccount()))

	commander := &MockCommander{}
	commander.On("DisableAccount", mock.Anything, int64(1001)).Return(nil).Once()
	commander.On("ClosePositions", mock.Anything, int64(1001)).Return(nil).Once()

	h := NewHandler(st.Accounts(), st.Violations(), commander, true, true)
	account := activeAccount()
	require.NoError(t, h.HandleBreach(ctx, account, breachFlag(types.FlagDailyDrawdown)))

	saved, err := st.Accounts().FindByID(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, types.AccountBreached, saved.Status)

	flags, err := st.Violations().ListByAccount(ctx, "a1", 10)
	require.NoError(t, err)
	assert.Len(t, flags, 1)
	commander.AssertExpectations(t)
}

func TestHandler_SecondBreachIsIdempotent(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	require.NoError(t, st.Accounts().Save(ctx, activeAccount()))

	commander := &MockCommander{}
	commander.On("DisableAccount", mock.Anything, int64(1001)).Return(nil).Once()
	commander.On("ClosePositions", mock.Anything, int64(1001)).Return(nil).Once()

	h := NewHandler(st.Accounts(), st.Violations(), commander, true, true)

	account := activeAccount()
	require.NoError(t, h.HandleBreach(ctx, account, breachFlag(types.FlagDailyDrawdown)))
	// Handling the same breach again, with the account object now marked
	// breached, must not duplicate the row or re-issue commands.
	require.NoError(t, h.HandleBreach(ctx, account, breachFlag(types.FlagDailyDrawdown)))
	// Same outcome when a stale caller still holds an "active" copy.
	stale := activeAccount()
	require.NoError(t, h.HandleBreach(ctx, stale, breachFlag(types.FlagDailyDrawdown)))

	flags, err := st.Violations().ListByAccount(ctx, "a1", 10)
	require.NoError(t, err)
	assert.Len(t, flags, 1)
	commander.AssertNumberOfCalls(t, "DisableAccount", 1)
	commander.AssertNumberOfCalls(t, "ClosePositions", 1)
}

func TestHandler_WarningFlagsNeverTransition(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	require.NoError(t, st.Accounts().Save(ctx, activeAccount()))

	commander := &MockCommander{}
	h := NewHandler(st.Accounts(), st.Violations(), commander, true, true)

	flag := types.ViolationFlag{
		ID:        "w1",
		AccountID: "a1",
		FlagType:  types.FlagMartingale,
		Severity:  types.SeverityWarning,
		Ticket:    42,
	}
	require.NoError(t, h.HandleBreach(ctx, activeAccount(), flag))

	saved, err := st.Accounts().FindByID(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, types.AccountActive, saved.Status)

	flags, err := st.Violations().ListByAccount(ctx, "a1", 10)
	require.NoError(t, err)
	assert.Len(t, flags, 1)
	commander.AssertNotCalled(t, "DisableAccount", mock.Anything, mock.Anything)
}

func TestHandler_BreachSeverityTradeRuleDoesNotTransition(t *testing.T) {
	// A breach-severity flag from a per-trade rule records the violation
	// but only drawdown flag types drive the status machine.
	ctx := context.Background()
	st := store.NewMemoryStore()
	require.NoError(t, st.Accounts().Save(ctx, activeAccount()))

	h := NewHandler(st.Accounts(), st.Violations(), &MockCommander{}, true, true)
	require.NoError(t, h.HandleBreach(ctx, activeAccount(), breachFlag(types.FlagHedging)))

	saved, err := st.Accounts().FindByID(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, types.AccountActive, saved.Status)
}

func TestHandler_CommandsSkippedWhenDisabledByConfig(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	require.NoError(t, st.Accounts().Save(ctx, activeAccount()))

	commander := &MockCommander{}
	h := NewHandler(st.Accounts(), st.Violations(), commander, false, false)
	require.NoError(t, h.HandleBreach(ctx, activeAccount(), breachFlag(types.FlagMaxDrawdown)))

	saved, err := st.Accounts().FindByID(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, types.AccountBreached, saved.Status)
	commander.AssertNotCalled(t, "DisableAccount", mock.Anything, mock.Anything)
	commander.AssertNotCalled(t, "ClosePositions", mock.Anything, mock.Anything)
}
