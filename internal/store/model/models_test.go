package model

import (
	"testing"
	"time"

	"propguard/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTradeConversion_OpenTradeKeepsZeroCloseTime(t *testing.T) {
	trade := types.Trade{
		Ticket:    55001,
		AccountID: "1001",
		Symbol:    "EURUSD",
		Side:      types.SideBuy,
		Lots:      0.5,
		OpenTime:  time.Date(2026, 3, 6, 9, 30, 0, 0, time.UTC),
	}

	m := TradeToModel(&trade)
	assert.Zero(t, m.CloseTimeUnix)

	back := TradeFromModel(m)
	assert.True(t, back.CloseTime.IsZero())
	assert.Equal(t, trade.OpenTime, back.OpenTime)
	assert.Equal(t, types.SideBuy, back.Side)
}

func TestAccountConversion_MetadataSurvives(t *testing.T) {
	acc := &types.Account{
		ID:               "1001",
		Login:            1001,
		ChallengeType:    "prime_funded",
		InitialBalance:   100000,
		StartOfDayEquity: 99500,
		SODResetDay:      "2026-03-06",
		Status:           types.AccountActive,
		Metadata:         map[string]any{"broker": "demo", "plan": "prime"},
		CreatedAt:        time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC),
		UpdatedAt:        time.Date(2026, 3, 6, 8, 0, 0, 0, time.UTC),
	}

	back := AccountFromModel(AccountToModel(acc))
	require.NotNil(t, back)
	assert.Equal(t, acc.SODResetDay, back.SODResetDay)
	assert.Equal(t, types.AccountActive, back.Status)
	assert.Equal(t, "prime", back.Metadata["plan"])
	assert.Equal(t, acc.UpdatedAt, back.UpdatedAt)
}
