package ingest

import (
	"context"
	"fmt"
	"time"

	"propguard/internal/gateway/bridge"
	"propguard/internal/logger"
	"propguard/internal/risk"
	"propguard/internal/store"
	"propguard/internal/types"
)

// TradeFetcher is the slice of the bridge client the ingester needs.
type TradeFetcher interface {
	FetchTrades(ctx context.Context, login int64) ([]bridge.RawTrade, error)
}

// FlagSink receives the violation flags produced by rule evaluation.
type FlagSink interface {
	HandleBreach(ctx context.Context, account *types.Account, flag types.ViolationFlag) error
}

// Result summarizes one ingestion pass for one account.
type Result struct {
	AccountID string `json:"account_id"`
	Fetched   int    `json:"fetched"`
	Upserted  int    `json:"upserted"`
	Flagged   int    `json:"flagged"`
	Skipped   bool   `json:"skipped"`
}

// Service pulls raw trades from the bridge, normalizes them into the
// canonical trade shape and runs the per-trade rule evaluator against the
// account's stored history. All bridge encoding quirks (0/1 sides,
// lots*100 volumes, epoch times) are resolved here and nowhere else.
type Service struct {
	accounts   store.AccountStore
	trades     store.TradeStore
	violations store.ViolationStore
	bridge     TradeFetcher
	evaluator  *risk.Evaluator
	sink       FlagSink

	historyLimit int
}

func NewService(accounts store.AccountStore, trades store.TradeStore, violations store.ViolationStore, fetcher TradeFetcher, evaluator *risk.Evaluator, sink FlagSink) *Service {
	return &Service{
		accounts:     accounts,
		trades:       trades,
		violations:   violations,
		bridge:       fetcher,
		evaluator:    evaluator,
		sink:         sink,
		historyLimit: 500,
	}
}

// IngestAccount fetches and evaluates the trades of one account. Terminal
// accounts are skipped: their history is frozen evidence, not live input.
func (s *Service) IngestAccount(ctx context.Context, accountID string) (*Result, error) {
	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("loading account %s failed: %w", accountID, err)
	}
	if account == nil {
		return nil, fmt.Errorf("account %s not found", accountID)
	}
	res := &Result{AccountID: accountID}
	if account.Status.Terminal() {
		res.Skipped = true
		return res, nil
	}

	raws, err := s.bridge.FetchTrades(ctx, account.Login)
	if err != nil {
		return nil, fmt.Errorf("fetching trades for login %d failed: %w", account.Login, err)
	}
	res.Fetched = len(raws)

	incoming := make([]types.Trade, 0, len(raws))
	for _, raw := range raws {
		trade, err := NormalizeTrade(raw, accountID)
		if err != nil {
			logger.Warnf("ingest: dropping ticket=%d login=%d: %v", raw.Ticket, account.Login, err)
			continue
		}
		if err := s.trades.Upsert(ctx, &trade); err != nil {
			return res, fmt.Errorf("upserting ticket %d failed: %w", trade.Ticket, err)
		}
		incoming = append(incoming, trade)
		res.Upserted++
	}

	history, err := s.trades.ListByAccount(ctx, accountID, s.historyLimit)
	if err != nil {
		return res, fmt.Errorf("loading trade history failed: %w", err)
	}

	for _, trade := range incoming {
		for _, flag := range s.evaluator.Validate(trade, history) {
			dup, err := s.alreadyFlagged(ctx, accountID, trade.Ticket, flag.FlagType)
			if err != nil {
				return res, err
			}
			if dup {
				continue
			}
			if err := s.sink.HandleBreach(ctx, account, flag); err != nil {
				logger.Errorf("ingest: routing %s flag account=%s ticket=%d: %v", flag.FlagType, accountID, trade.Ticket, err)
				continue
			}
			res.Flagged++
		}
	}
	return res, nil
}

// alreadyFlagged keeps re-ingestion of the same closed trade from piling
// up duplicate flags of the same type.
func (s *Service) alreadyFlagged(ctx context.Context, accountID string, ticket int64, flagType types.FlagType) (bool, error) {
	existing, err := s.violations.ListByTicket(ctx, accountID, ticket)
	if err != nil {
		return false, fmt.Errorf("checking existing flags failed: %w", err)
	}
	for _, flag := range existing {
		if flag.FlagType == flagType {
			return true, nil
		}
	}
	return false, nil
}

// NormalizeTrade converts a raw bridge trade into the canonical shape.
// The bridge encodes sides as 0 (buy) and 1 (sell) and volumes as
// lots*100; both mappings are pinned here and by regression tests because
// a silent swap would invert every hedging and martingale decision
// downstream.
func NormalizeTrade(raw bridge.RawTrade, accountID string) (types.Trade, error) {
	var side types.TradeSide
	switch raw.Type {
	case 0:
		side = types.SideBuy
	case 1:
		side = types.SideSell
	default:
		return types.Trade{}, fmt.Errorf("unknown trade type %d", raw.Type)
	}
	if raw.Ticket == 0 {
		return types.Trade{}, fmt.Errorf("missing ticket")
	}
	trade := types.Trade{
		Ticket:     raw.Ticket,
		AccountID:  accountID,
		Symbol:     raw.Symbol,
		Side:       side,
		Lots:       raw.Volume / 100,
		OpenPrice:  raw.Price,
		ClosePrice: raw.ClosePrice,
		OpenTime:   time.Unix(raw.Time, 0).UTC(),
		ProfitLoss: raw.Profit,
		Commission: raw.Commission,
		Swap:       raw.Swap,
	}
	if raw.CloseTime > 0 {
		trade.CloseTime = time.Unix(raw.CloseTime, 0).UTC()
	}
	return trade, nil
}
