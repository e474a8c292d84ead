package ingest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"propguard/internal/config"
	"propguard/internal/gateway/bridge"
	"propguard/internal/risk"
	"propguard/internal/store"
	"propguard/internal/types"
)

type stubFetcher struct {
	trades map[int64][]bridge.RawTrade
	calls  int
}

func (s *stubFetcher) FetchTrades(_ context.Context, login int64) ([]bridge.RawTrade, error) {
	s.calls++
	return s.trades[login], nil
}

type captureSink struct {
	flags []types.ViolationFlag
	store store.ViolationStore
}

func (c *captureSink) HandleBreach(ctx context.Context, _ *types.Account, flag types.ViolationFlag) error {
	c.flags = append(c.flags, flag)
	if c.store != nil {
		return c.store.Insert(ctx, &flag)
	}
	return nil
}

func newTestService(t *testing.T, st *store.MemoryStore, fetcher *stubFetcher) (*Service, *captureSink) {
	t.Helper()
	evaluator, err := risk.NewEvaluator(config.TradeRuleConfig{
		MartingaleMultiplier:    2.0,
		MartingaleWindowSeconds: 300,
		MinHoldSeconds:          60,
		MinDurationSeconds:      30,
		RevengeCooldownSeconds:  180,
		RevengeSizeFactor:       1.5,
		ArbitrageMaxHoldSeconds: 10,
		LatencyMinGapMs:         500,
		NewsBufferSeconds:       120,
	})
	require.NoError(t, err)
	sink := &captureSink{store: st.Violations()}
	return NewService(st.Accounts(), st.Trades(), st.Violations(), fetcher, evaluator, sink), sink
}

func TestNormalizeTrade(t *testing.T) {
	t.Run("type 0 is buy and volume is lots times 100", func(t *testing.T) {
		trade, err := NormalizeTrade(bridge.RawTrade{
			Ticket: 7, Symbol: "EURUSD", Type: 0, Volume: 150,
			Price: 1.0850, Time: 1774000000,
		}, "a1")
		require.NoError(t, err)
		assert.Equal(t, types.SideBuy, trade.Side)
		assert.Equal(t, 1.5, trade.Lots)
		assert.Equal(t, time.Unix(1774000000, 0).UTC(), trade.OpenTime)
		assert.True(t, trade.IsOpen())
	})

	t.Run("type 1 is sell", func(t *testing.T) {
		trade, err := NormalizeTrade(bridge.RawTrade{
			Ticket: 8, Symbol: "EURUSD", Type: 1, Volume: 50,
			Time: 1774000000, CloseTime: 1774000500,
		}, "a1")
		require.NoError(t, err)
		assert.Equal(t, types.SideSell, trade.Side)
		assert.Equal(t, 0.5, trade.Lots)
		assert.False(t, trade.IsOpen())
		assert.Equal(t, time.Unix(1774000500, 0).UTC(), trade.CloseTime)
	})

	t.Run("unknown type is rejected, not guessed", func(t *testing.T) {
		_, err := NormalizeTrade(bridge.RawTrade{Ticket: 9, Type: 2, Volume: 100, Time: 1774000000}, "a1")
		assert.Error(t, err)
	})

	t.Run("missing ticket is rejected", func(t *testing.T) {
		_, err := NormalizeTrade(bridge.RawTrade{Type: 0, Volume: 100, Time: 1774000000}, "a1")
		assert.Error(t, err)
	})
}

func TestIngestAccount(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 3, 6, 9, 0, 0, 0, time.UTC).Unix()

	t.Run("persists normalized trades and evaluates rules", func(t *testing.T) {
		st := store.NewMemoryStore()
		require.NoError(t, st.Accounts().Save(ctx, &types.Account{
			ID: "a1", Login: 1001, Status: types.AccountActive, InitialBalance: 10_000,
		}))
		fetcher := &stubFetcher{trades: map[int64][]bridge.RawTrade{
			1001: {
				// Held 30 minutes, lost money.
				{Ticket: 1, Symbol: "EURUSD", Type: 0, Volume: 100, Time: base, CloseTime: base + 1800, Profit: -200},
				// Doubled up two minutes after the loss closed: martingale.
				{Ticket: 2, Symbol: "EURUSD", Type: 0, Volume: 200, Time: base + 1920, CloseTime: base + 3600, Profit: 50},
			},
		}}
		svc, sink := newTestService(t, st, fetcher)

		res, err := svc.IngestAccount(ctx, "a1")
		require.NoError(t, err)
		assert.Equal(t, 2, res.Fetched)
		assert.Equal(t, 2, res.Upserted)
		assert.False(t, res.Skipped)

		trades, err := st.Trades().ListByAccount(ctx, "a1", 0)
		require.NoError(t, err)
		require.Len(t, trades, 2)
		assert.Equal(t, 1.0, trades[0].Lots)
		assert.Equal(t, 2.0, trades[1].Lots)

		var martingale bool
		for _, f := range sink.flags {
			if f.FlagType == types.FlagMartingale && f.Ticket == 2 {
				martingale = true
			}
		}
		assert.True(t, martingale)
	})

	t.Run("re-ingestion does not duplicate trades or flags", func(t *testing.T) {
		st := store.NewMemoryStore()
		require.NoError(t, st.Accounts().Save(ctx, &types.Account{
			ID: "a1", Login: 1001, Status: types.AccountActive, InitialBalance: 10_000,
		}))
		fetcher := &stubFetcher{trades: map[int64][]bridge.RawTrade{
			1001: {
				// 20 second hold trips the scalping rule.
				{Ticket: 1, Symbol: "XAUUSD", Type: 1, Volume: 100, Time: base, CloseTime: base + 20, Profit: -10},
			},
		}}
		svc, _ := newTestService(t, st, fetcher)

		first, err := svc.IngestAccount(ctx, "a1")
		require.NoError(t, err)
		assert.Greater(t, first.Flagged, 0)

		second, err := svc.IngestAccount(ctx, "a1")
		require.NoError(t, err)
		assert.Equal(t, 0, second.Flagged)

		trades, err := st.Trades().ListByAccount(ctx, "a1", 0)
		require.NoError(t, err)
		assert.Len(t, trades, 1)

		flags, err := st.Violations().ListByTicket(ctx, "a1", 1)
		require.NoError(t, err)
		assert.Equal(t, first.Flagged, len(flags))
	})

	t.Run("terminal accounts are skipped without a bridge call", func(t *testing.T) {
		st := store.NewMemoryStore()
		require.NoError(t, st.Accounts().Save(ctx, &types.Account{
			ID: "a1", Login: 1001, Status: types.AccountBreached, InitialBalance: 10_000,
		}))
		fetcher := &stubFetcher{}
		svc, _ := newTestService(t, st, fetcher)

		res, err := svc.IngestAccount(ctx, "a1")
		require.NoError(t, err)
		assert.True(t, res.Skipped)
		assert.Equal(t, 0, fetcher.calls)
	})

	t.Run("unknown account is an error", func(t *testing.T) {
		st := store.NewMemoryStore()
		svc, _ := newTestService(t, st, &stubFetcher{})
		_, err := svc.IngestAccount(ctx, "missing")
		assert.Error(t, err)
	})
}
