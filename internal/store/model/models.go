package model

import (
	"encoding/json"
	"time"

	"propguard/internal/types"

	"gorm.io/datatypes"
)

// AccountModel maps to the 'accounts' table.
type AccountModel struct {
	ID               string         `gorm:"column:id;primaryKey"`
	Login            int64          `gorm:"column:login;uniqueIndex"`
	ChallengeType    string         `gorm:"column:challenge_type;index"`
	MT5Group         string         `gorm:"column:mt5_group"`
	InitialBalance   float64        `gorm:"column:initial_balance"`
	CurrentBalance   float64        `gorm:"column:current_balance"`
	CurrentEquity    float64        `gorm:"column:current_equity"`
	StartOfDayEquity float64        `gorm:"column:start_of_day_equity"`
	SODResetDay      string         `gorm:"column:sod_reset_day"`
	Status           string         `gorm:"column:status;index"`
	Leverage         float64        `gorm:"column:leverage"`
	Metadata         datatypes.JSON `gorm:"column:metadata;type:TEXT"`
	CreatedAtUnix    int64          `gorm:"column:created_at"`
	UpdatedAtUnix    int64          `gorm:"column:updated_at"`
}

func (AccountModel) TableName() string { return "accounts" }

// TradeModel maps to the 'trades' table. Ticket is unique per account,
// not globally.
type TradeModel struct {
	ID            int64   `gorm:"column:id;primaryKey"`
	Ticket        int64   `gorm:"column:ticket;uniqueIndex:idx_account_ticket,priority:2"`
	AccountID     string  `gorm:"column:account_id;uniqueIndex:idx_account_ticket,priority:1;index"`
	Symbol        string  `gorm:"column:symbol"`
	Side          string  `gorm:"column:side"`
	Lots          float64 `gorm:"column:lots"`
	OpenPrice     float64 `gorm:"column:open_price"`
	ClosePrice    float64 `gorm:"column:close_price"`
	OpenTimeUnix  int64   `gorm:"column:open_time;index"`
	CloseTimeUnix int64   `gorm:"column:close_time"`
	ProfitLoss    float64 `gorm:"column:profit_loss"`
	Commission    float64 `gorm:"column:commission"`
	Swap          float64 `gorm:"column:swap"`
}

func (TradeModel) TableName() string { return "trades" }

// ViolationModel maps to the 'violation_flags' table. Rows are append-only.
type ViolationModel struct {
	ID            string         `gorm:"column:id;primaryKey"`
	AccountID     string         `gorm:"column:account_id;index"`
	FlagType      string         `gorm:"column:flag_type;index"`
	Severity      string         `gorm:"column:severity"`
	Ticket        int64          `gorm:"column:ticket;index"`
	Description   string         `gorm:"column:description"`
	Details       datatypes.JSON `gorm:"column:details;type:TEXT"`
	CreatedAtUnix int64          `gorm:"column:created_at;index"`
}

func (ViolationModel) TableName() string { return "violation_flags" }

func AccountToModel(acc *types.Account) *AccountModel {
	meta, _ := json.Marshal(acc.Metadata)
	return &AccountModel{
		ID:               acc.ID,
		Login:            acc.Login,
		ChallengeType:    acc.ChallengeType,
		MT5Group:         acc.MT5Group,
		InitialBalance:   acc.InitialBalance,
		CurrentBalance:   acc.CurrentBalance,
		CurrentEquity:    acc.CurrentEquity,
		StartOfDayEquity: acc.StartOfDayEquity,
		SODResetDay:      acc.SODResetDay,
		Status:           string(acc.Status),
		Leverage:         acc.Leverage,
		Metadata:         datatypes.JSON(meta),
		CreatedAtUnix:    acc.CreatedAt.Unix(),
		UpdatedAtUnix:    acc.UpdatedAt.Unix(),
	}
}

func AccountFromModel(m *AccountModel) *types.Account {
	acc := &types.Account{
		ID:               m.ID,
		Login:            m.Login,
		ChallengeType:    m.ChallengeType,
		MT5Group:         m.MT5Group,
		InitialBalance:   m.InitialBalance,
		CurrentBalance:   m.CurrentBalance,
		CurrentEquity:    m.CurrentEquity,
		StartOfDayEquity: m.StartOfDayEquity,
		SODResetDay:      m.SODResetDay,
		Status:           types.AccountStatus(m.Status),
		Leverage:         m.Leverage,
		CreatedAt:        time.Unix(m.CreatedAtUnix, 0).UTC(),
		UpdatedAt:        time.Unix(m.UpdatedAtUnix, 0).UTC(),
	}
	if len(m.Metadata) > 0 {
		_ = json.Unmarshal(m.Metadata, &acc.Metadata)
	}
	return acc
}

func TradeToModel(t *types.Trade) *TradeModel {
	m := &TradeModel{
		Ticket:       t.Ticket,
		AccountID:    t.AccountID,
		Symbol:       t.Symbol,
		Side:         string(t.Side),
		Lots:         t.Lots,
		OpenPrice:    t.OpenPrice,
		ClosePrice:   t.ClosePrice,
		OpenTimeUnix: t.OpenTime.Unix(),
		ProfitLoss:   t.ProfitLoss,
		Commission:   t.Commission,
		Swap:         t.Swap,
	}
	if !t.CloseTime.IsZero() {
		m.CloseTimeUnix = t.CloseTime.Unix()
	}
	return m
}

func TradeFromModel(m *TradeModel) types.Trade {
	t := types.Trade{
		Ticket:     m.Ticket,
		AccountID:  m.AccountID,
		Symbol:     m.Symbol,
		Side:       types.TradeSide(m.Side),
		Lots:       m.Lots,
		OpenPrice:  m.OpenPrice,
		ClosePrice: m.ClosePrice,
		OpenTime:   time.Unix(m.OpenTimeUnix, 0).UTC(),
		ProfitLoss: m.ProfitLoss,
		Commission: m.Commission,
		Swap:       m.Swap,
	}
	if m.CloseTimeUnix > 0 {
		t.CloseTime = time.Unix(m.CloseTimeUnix, 0).UTC()
	}
	return t
}

func ViolationToModel(f *types.ViolationFlag) *ViolationModel {
	details, _ := json.Marshal(f.Details)
	return &ViolationModel{
		ID:            f.ID,
		AccountID:     f.AccountID,
		FlagType:      string(f.FlagType),
		Severity:      string(f.Severity),
		Ticket:        f.Ticket,
		Description:   f.Description,
		Details:       datatypes.JSON(details),
		CreatedAtUnix: f.CreatedAt.Unix(),
	}
}

func ViolationFromModel(m *ViolationModel) types.ViolationFlag {
	f := types.ViolationFlag{
		ID:          m.ID,
		AccountID:   m.AccountID,
		FlagType:    types.FlagType(m.FlagType),
		Severity:    types.Severity(m.Severity),
		Ticket:      m.Ticket,
		Description: m.Description,
		CreatedAt:   time.Unix(m.CreatedAtUnix, 0).UTC(),
	}
	if len(m.Details) > 0 {
		_ = json.Unmarshal(m.Details, &f.Details)
	}
	return f
}
