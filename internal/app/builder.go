package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"propguard/internal/breach"
	pgcfg "propguard/internal/config"
	"propguard/internal/gateway/bridge"
	"propguard/internal/ingest"
	"propguard/internal/logger"
	"propguard/internal/risk"
	"propguard/internal/store"
	"propguard/internal/store/sqlite"
	"propguard/internal/store/sweeplog"
	"propguard/internal/sweep"
	riskhttp "propguard/internal/transport/http/risk"
)

// AppBuilder assembles the engine from configuration. The override hooks
// exist so tests can swap the store or skip the HTTP layer without
// touching the wiring itself.
type AppBuilder struct {
	cfg *pgcfg.Config

	storeOverride store.Store
	bridgeFn      func(pgcfg.BridgeConfig) (*bridge.Client, error)
	httpEnabled   bool
}

type AppBuilderOption func(*AppBuilder)

func NewAppBuilder(cfg *pgcfg.Config, opts ...AppBuilderOption) *AppBuilder {
	b := &AppBuilder{
		cfg:         cfg,
		bridgeFn:    bridge.NewClient,
		httpEnabled: true,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

// WithStore substitutes the persistence layer, typically the in-memory
// store in tests.
func WithStore(st store.Store) AppBuilderOption {
	return func(b *AppBuilder) { b.storeOverride = st }
}

// WithBridgeClient substitutes the bridge client constructor.
func WithBridgeClient(fn func(pgcfg.BridgeConfig) (*bridge.Client, error)) AppBuilderOption {
	return func(b *AppBuilder) {
		if fn != nil {
			b.bridgeFn = fn
		}
	}
}

// WithoutHTTP skips the HTTP server, for harnesses that only need the
// sweep loop.
func WithoutHTTP() AppBuilderOption {
	return func(b *AppBuilder) { b.httpEnabled = false }
}

func (b *AppBuilder) Build(ctx context.Context) (*App, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if b.cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	cfg := b.cfg
	logger.SetLevel(cfg.App.LogLevel)

	st := b.storeOverride
	if st == nil {
		var err error
		st, err = sqlite.NewSqliteStore(cfg.Store.DBPath)
		if err != nil {
			return nil, fmt.Errorf("open store failed: %w", err)
		}
	}

	var sweepLog *sweeplog.Store
	if cfg.Store.SweepLogPath != "" {
		var err error
		sweepLog, err = sweeplog.NewStore(cfg.Store.SweepLogPath)
		if err != nil {
			return nil, fmt.Errorf("open sweep log failed: %w", err)
		}
	}

	bridgeClient, err := b.bridgeFn(cfg.Bridge)
	if err != nil {
		return nil, fmt.Errorf("build bridge client failed: %w", err)
	}

	registry := b.loadRuleRegistry(cfg.Rules)
	catalog := risk.NewCatalog(registry)

	evaluator, err := risk.NewEvaluator(cfg.TradeRules)
	if err != nil {
		return nil, fmt.Errorf("build trade rule evaluator failed: %w", err)
	}

	handler := breach.NewHandler(st.Accounts(), st.Violations(), bridgeClient, cfg.Sweep.DisableOnBreach, cfg.Sweep.CloseOnBreach)

	processor, err := sweep.NewProcessor(cfg.Sweep, st.Accounts(), bridgeClient, catalog, handler)
	if err != nil {
		return nil, fmt.Errorf("build sweep processor failed: %w", err)
	}

	reset := sweep.NewDailyReset(st.Accounts(), bridgeClient, time.Duration(cfg.Bridge.TimeoutSeconds)*time.Second)
	ingester := ingest.NewService(st.Accounts(), st.Trades(), st.Violations(), bridgeClient, evaluator, handler)
	service := NewRiskService(processor, ingester, st.Accounts(), sweepLog)

	var httpSrv *riskhttp.Server
	if b.httpEnabled {
		router := &riskhttp.Router{
			Store:    st,
			SweepLog: sweepLog,
			Sweeper:  service,
			Reset:    reset,
			Ingester: ingester,
		}
		httpSrv, err = riskhttp.NewServer(riskhttp.ServerConfig{Addr: cfg.App.HTTPAddr, Router: router})
		if err != nil {
			return nil, fmt.Errorf("build http server failed: %w", err)
		}
	}

	return &App{
		cfg:      cfg,
		store:    st,
		sweepLog: sweepLog,
		registry: registry,
		service:  service,
		reset:    reset,
		httpSrv:  httpSrv,
	}, nil
}

// loadRuleRegistry is best-effort: a missing or broken rule file means the
// builtin rule sets carry the engine until an operator fixes the file.
func (b *AppBuilder) loadRuleRegistry(cfg pgcfg.RulesConfig) *risk.Registry {
	if cfg.Path == "" {
		return nil
	}
	if _, err := os.Stat(cfg.Path); err != nil {
		logger.Warnf("risk rule file %s unavailable (%v), using builtin rule sets", cfg.Path, err)
		return nil
	}
	registry, err := risk.NewRegistry(cfg.Path, cfg.Watch)
	if err != nil {
		logger.Errorf("risk rule file %s rejected (%v), using builtin rule sets", cfg.Path, err)
		return nil
	}
	registry.OnChange(func(snap risk.RegistrySnapshot) {
		logger.Infof("risk rules reloaded: version=%d rule_sets=%d", snap.Version, len(snap.RuleSets))
	})
	snap := registry.Snapshot()
	logger.Infof("risk rules loaded from %s: rule_sets=%d", cfg.Path, len(snap.RuleSets))
	return registry
}
