package app

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	pgcfg "propguard/internal/config"
	"propguard/internal/logger"
	"propguard/internal/risk"
	"propguard/internal/scheduler"
	"propguard/internal/store"
	"propguard/internal/store/sweeplog"
	"propguard/internal/sweep"
	riskhttp "propguard/internal/transport/http/risk"
)

// App owns application-level orchestration: config, stores, the sweep and
// ingest loops, the daily reset and the HTTP surface.
type App struct {
	cfg      *pgcfg.Config
	store    store.Store
	sweepLog *sweeplog.Store
	registry *risk.Registry
	service  *RiskService
	reset    *sweep.DailyReset
	httpSrv  *riskhttp.Server
}

// NewApp builds the application from config without starting anything.
func NewApp(cfg *pgcfg.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)
	return buildAppWithWire(context.Background(), cfg)
}

// Service exposes the risk service for testing and replay harnesses.
func (a *App) Service() *RiskService {
	if a == nil {
		return nil
	}
	return a.service
}

// Run starts the sweep scheduler, ingest scheduler, daily reset and the
// HTTP server, blocking until ctx is cancelled or a component fails.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}
	defer a.Close()

	sweepInterval, ok := scheduler.ParseIntervalDuration(a.cfg.Sweep.Interval)
	if !ok {
		return fmt.Errorf("invalid sweep.interval %q", a.cfg.Sweep.Interval)
	}

	group, ctx := errgroup.WithContext(ctx)

	if a.httpSrv != nil {
		group.Go(func() error {
			logger.Infof("http server listening on %s", a.httpSrv.Addr())
			if err := a.httpSrv.Start(ctx); err != nil {
				return fmt.Errorf("http server error: %w", err)
			}
			return nil
		})
	}

	group.Go(func() error {
		sched := scheduler.NewAlignedScheduler(ctx, sweepInterval, 0)
		sched.Name = "sweep"
		sched.RunImmediately = true
		sched.Start(func() {
			if _, err := a.service.RunSweep(ctx); err != nil {
				logger.Errorf("scheduled sweep failed: %v", err)
			}
		})
		return nil
	})

	if ingestInterval, ok := scheduler.ParseIntervalDuration(a.cfg.Sweep.IngestInterval); ok {
		group.Go(func() error {
			sched := scheduler.NewAlignedScheduler(ctx, ingestInterval, 0)
			sched.Name = "ingest"
			sched.Start(func() {
				if err := a.service.IngestActive(ctx); err != nil {
					logger.Errorf("scheduled ingest failed: %v", err)
				}
			})
			return nil
		})
	} else {
		logger.Warnf("invalid sweep.ingest_interval %q, trade ingestion runs only on demand", a.cfg.Sweep.IngestInterval)
	}

	if a.cfg.Reset.Enabled {
		group.Go(func() error {
			sched := scheduler.NewDailyScheduler(ctx, time.Duration(a.cfg.Reset.OffsetMinutes)*time.Minute)
			sched.Name = "sod-reset"
			sched.RunImmediately = true
			sched.Start(func() {
				if _, err := a.reset.Run(ctx); err != nil {
					logger.Errorf("daily reset failed: %v", err)
				}
			})
			return nil
		})
	}

	return group.Wait()
}

// Close releases the stores. Safe to call more than once.
func (a *App) Close() {
	if a == nil {
		return
	}
	if a.sweepLog != nil {
		if err := a.sweepLog.Close(); err != nil {
			logger.Warnf("closing sweep log: %v", err)
		}
		a.sweepLog = nil
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			logger.Warnf("closing store: %v", err)
		}
		a.store = nil
	}
}
