package main

import (
	"fmt"
	"time"

	"github.com/alejandrodnm/predbot/config"
	"github.com/alejandrodnm/predbot/internal/adapters/fixture"
	"github.com/alejandrodnm/predbot/internal/adapters/manifold"
	"github.com/alejandrodnm/predbot/internal/adapters/storage"
	"github.com/alejandrodnm/predbot/internal/application/engine"
	"github.com/alejandrodnm/predbot/internal/ledger"
	"github.com/alejandrodnm/predbot/internal/ports"
	"github.com/alejandrodnm/predbot/internal/risk"
	"github.com/alejandrodnm/predbot/internal/strategy"
)

// stores agrupa los dos puertos de persistencia y lo que haya que cerrar.
type stores struct {
	portfolio ports.PortfolioStore
	decisions ports.DecisionLog
	closer    func() error
}

func (s *stores) Close() {
	if s.closer != nil {
		_ = s.closer()
	}
}

// openStores abre el backend configurado. En modo offline (demo o fixtures)
// se usa SQLite en memoria para no tocar el portfolio real.
func openStores(cfg config.StorageConfig, offline bool) (*stores, error) {
	backend, dsn := cfg.Backend, cfg.DSN
	if offline {
		backend, dsn = "sqlite", ":memory:"
	}

	switch backend {
	case "sqlite":
		db, err := storage.NewSQLiteStore(dsn)
		if err != nil {
			return nil, fmt.Errorf("openStores: %w", err)
		}
		return &stores{portfolio: db, decisions: db, closer: db.Close}, nil
	case "json":
		return &stores{
			portfolio: storage.NewJSONPortfolioStore(cfg.PortfolioPath),
			decisions: storage.NewJSONLDecisionLog(cfg.DecisionLogPath),
		}, nil
	default:
		return nil, fmt.Errorf("openStores: unknown backend %q", backend)
	}
}

func newProvider(cfg *config.Config, demo bool, fixturesPath string) (ports.MarketProvider, error) {
	switch {
	case demo:
		return fixture.NewProvider(fixture.Demo(time.Now().UTC())), nil
	case fixturesPath != "":
		p, err := fixture.LoadFile(fixturesPath)
		if err != nil {
			return nil, fmt.Errorf("newProvider: %w", err)
		}
		return p, nil
	default:
		return manifold.NewClient(manifold.Options{
			BaseURL:      cfg.API.ManifoldBase,
			MarketLimit:  cfg.API.MarketLimit,
			MinVolume24h: cfg.API.MinVolume24h,
			MaxMarkets:   cfg.API.MaxMarkets,
			Groups:       cfg.API.CorrelationGroups,
		}), nil
	}
}

func newEngine(cfg *config.Config, provider ports.MarketProvider, s *stores, n ports.Notifier) (*engine.Engine, error) {
	policy, err := strategy.ParseDirectionPolicy(cfg.Engine.ResolutionArbitrageDirection)
	if err != nil {
		return nil, fmt.Errorf("newEngine: %w", err)
	}

	return engine.New(engine.Deps{
		Markets:   provider,
		Store:     s.portfolio,
		Decisions: s.decisions,
		Notifier:  n,
		Detectors: strategy.NewDefaultSet(strategyConfig(cfg), policy),
		Sizer:     risk.NewSizer(riskConfig(cfg)),
	}, engine.Config{
		InitialCapital:    cfg.Engine.InitialCapital,
		MaxTradesPerCycle: cfg.Engine.MaxTradesPerCycle,
		Ledger: ledger.Config{
			TakeProfit: cfg.Engine.TakeProfit,
			StopLoss:   cfg.Engine.StopLoss,
		},
	}), nil
}

// strategyConfig parte de los defaults del paquete y aplica lo que expone el YAML.
func strategyConfig(cfg *config.Config) strategy.Config {
	sc := strategy.DefaultConfig()
	sc.MeanReversion.MoveThreshold = cfg.Engine.MeanReversionMoveThreshold
	sc.MeanReversion.Lookback = cfg.Lookback()
	sc.MeanReversion.EdgeFloor = cfg.Engine.MeanReversionEdgeFloor
	sc.ResolutionArbitrage.Window = cfg.ResolutionWindow()
	sc.ResolutionArbitrage.AmbiguityBand = cfg.Engine.ResolutionArbitrageAmbiguityBand
	sc.CorrelationLag.Tolerance = cfg.Engine.CorrelationTolerance
	return sc
}

func riskConfig(cfg *config.Config) risk.Config {
	return risk.Config{
		KellyFraction:    cfg.Engine.KellyFraction,
		MinEdgeThreshold: cfg.Engine.MinEdgeThreshold,
		MaxPositionSize:  cfg.Engine.MaxPositionSize,
		MinConfidence:    cfg.Engine.MinConfidence,
	}
}
