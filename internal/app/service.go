package app

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"propguard/internal/ingest"
	"propguard/internal/logger"
	"propguard/internal/store"
	"propguard/internal/store/sweeplog"
	"propguard/internal/sweep"
)

// ingestConcurrency bounds the trade-ingestion fan-out. Trade pulls are
// heavier than equity checks, so this stays well below the sweep's
// max_concurrent.
const ingestConcurrency = 8

// RiskService ties the sweep processor and the ingester to the sweep log
// so every run, scheduled or manually triggered, leaves a record.
type RiskService struct {
	processor *sweep.Processor
	ingester  *ingest.Service
	accounts  store.AccountStore
	sweepLog  *sweeplog.Store
}

func NewRiskService(processor *sweep.Processor, ingester *ingest.Service, accounts store.AccountStore, sweepLog *sweeplog.Store) *RiskService {
	return &RiskService{
		processor: processor,
		ingester:  ingester,
		accounts:  accounts,
		sweepLog:  sweepLog,
	}
}

// RunSweep executes one full sweep over all active accounts and persists
// the outcome record.
func (s *RiskService) RunSweep(ctx context.Context) (*sweep.BatchResult, error) {
	result, err := s.processor.ProcessActive(ctx)
	if err != nil {
		return nil, err
	}
	if s.sweepLog != nil {
		if err := s.sweepLog.Insert(ctx, toSweepRecord(result)); err != nil {
			logger.Errorf("sweep %s: persisting record failed: %v", result.ID, err)
		}
	}
	return result, nil
}

// IngestActive pulls and evaluates trades for every active account.
// Individual account failures are logged and counted, never fatal.
func (s *RiskService) IngestActive(ctx context.Context) error {
	ids, err := s.accounts.ListActiveIDs(ctx)
	if err != nil {
		return fmt.Errorf("listing active accounts failed: %w", err)
	}
	start := time.Now()
	var ok, failed int
	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(ingestConcurrency)
	results := make(chan error, len(ids))
	for _, id := range ids {
		id := id
		group.Go(func() error {
			_, err := s.ingester.IngestAccount(ctx, id)
			if err != nil {
				logger.Warnf("ingest: account=%s failed: %v", id, err)
			}
			results <- err
			return nil
		})
	}
	_ = group.Wait()
	close(results)
	for err := range results {
		if err != nil {
			failed++
		} else {
			ok++
		}
	}
	logger.Infof("ingest cycle: total=%d ok=%d failed=%d dur=%s", len(ids), ok, failed, time.Since(start).Truncate(time.Millisecond))
	return nil
}

func toSweepRecord(result *sweep.BatchResult) sweeplog.Record {
	errs := make([]string, 0, len(result.Errors))
	for _, e := range result.Errors {
		errs = append(errs, fmt.Sprintf("%s login=%d: %s", e.AccountID, e.Login, e.Error))
	}
	return sweeplog.Record{
		ID:            result.ID,
		StartedAt:     result.StartedAt.Unix(),
		FinishedAt:    result.FinishedAt.Unix(),
		Status:        result.Status,
		TotalAccounts: result.TotalAccounts,
		SuccessCount:  result.SuccessCount,
		FailureCount:  result.FailureCount,
		SkippedCount:  result.SkippedCount,
		BreachCount:   result.BreachCount,
		AvgLatencyMs:  result.Metrics.AvgLatencyMs,
		MaxLatencyMs:  result.Metrics.MaxLatencyMs,
		Errors:        errs,
	}
}
