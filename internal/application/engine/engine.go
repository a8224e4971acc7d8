package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/predbot/internal/domain"
	"github.com/alejandrodnm/predbot/internal/ledger"
	"github.com/alejandrodnm/predbot/internal/ports"
	"github.com/alejandrodnm/predbot/internal/risk"
	"github.com/alejandrodnm/predbot/internal/strategy"
)

const defaultCapital = 10000

// Config holds engine-level settings.
type Config struct {
	InitialCapital    float64
	MaxTradesPerCycle int // 0 = unlimited
	Ledger            ledger.Config
}

// Deps are the collaborators of the engine. Notifier and Clock are optional.
type Deps struct {
	Markets   ports.MarketProvider
	Store     ports.PortfolioStore
	Decisions ports.DecisionLog
	Notifier  ports.Notifier
	Detectors *strategy.Set
	Sizer     *risk.Sizer
	Clock     func() time.Time
}

// Engine runs the paper trading cycle: load → fetch → reconcile → detect →
// size → open → validate → save → log.
type Engine struct {
	deps Deps
	cfg  Config
}

// New creates a paper trading engine.
func New(deps Deps, cfg Config) *Engine {
	if cfg.InitialCapital <= 0 {
		cfg.InitialCapital = defaultCapital
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	return &Engine{deps: deps, cfg: cfg}
}

// CycleResult contains everything produced by one cycle.
type CycleResult struct {
	Markets    int
	Candidates int
	Decisions  []domain.Decision
	Opened     []domain.Position
	Closed     []domain.Position
	Portfolio  *domain.Portfolio
	Unrealized float64
}

// Summary converts the result to the notifier payload.
func (r *CycleResult) Summary() ports.CycleSummary {
	return ports.CycleSummary{
		Markets:    r.Markets,
		Candidates: r.Candidates,
		Decisions:  r.Decisions,
		Opened:     r.Opened,
		Closed:     r.Closed,
		Portfolio:  r.Portfolio,
		Unrealized: r.Unrealized,
	}
}

// RunOnce executes a single cycle. The portfolio is read once at the start and
// written once at the end; any error before the save leaves the persisted
// state untouched. Decisions are appended only after the save succeeded.
func (e *Engine) RunOnce(ctx context.Context) (*CycleResult, error) {
	now := e.deps.Clock().UTC()

	p, err := e.loadPortfolio(ctx, now)
	if err != nil {
		return nil, err
	}

	markets, err := e.deps.Markets.FetchMarkets(ctx)
	if err != nil {
		return nil, fmt.Errorf("engine.RunOnce: %w", err)
	}
	if len(markets) == 0 {
		return nil, fmt.Errorf("engine.RunOnce: %w", domain.ErrNoMarkets)
	}

	snapshots, err := e.snapshotsFor(ctx, p, markets)
	if err != nil {
		return nil, err
	}

	l := ledger.New(p, e.cfg.Ledger)
	closed := l.MarkToMarket(snapshots, now)

	candidates := e.deps.Detectors.DetectAll(markets, now)
	decisions, opened := e.evaluate(l, candidates, now)

	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("engine.RunOnce: %w", err)
	}
	if err := e.deps.Store.Save(ctx, p); err != nil {
		return nil, fmt.Errorf("engine.RunOnce: save portfolio: %w", err)
	}
	if err := e.deps.Decisions.Append(ctx, decisions...); err != nil {
		return nil, fmt.Errorf("engine.RunOnce: append decisions: %w", err)
	}

	result := &CycleResult{
		Markets:    len(markets),
		Candidates: len(candidates),
		Decisions:  decisions,
		Opened:     opened,
		Closed:     closed,
		Portfolio:  p,
		Unrealized: l.Unrealized(snapshots),
	}

	slog.Info("engine: cycle complete",
		"markets", result.Markets,
		"candidates", result.Candidates,
		"opened", len(opened),
		"closed", len(closed),
		"capital", fmt.Sprintf("$%.2f", p.Capital),
		"total_pnl", fmt.Sprintf("$%+.2f", p.TotalPnL),
	)

	if e.deps.Notifier != nil {
		if err := e.deps.Notifier.NotifyCycle(ctx, result.Summary()); err != nil {
			slog.Warn("engine: notify failed", "err", err)
		}
	}
	return result, nil
}

// loadPortfolio lee el snapshot persistido o crea uno nuevo con el capital inicial.
func (e *Engine) loadPortfolio(ctx context.Context, now time.Time) (*domain.Portfolio, error) {
	p, err := e.deps.Store.Load(ctx)
	if errors.Is(err, domain.ErrPortfolioNotFound) {
		slog.Info("engine: no saved portfolio, starting fresh",
			"capital", fmt.Sprintf("$%.2f", e.cfg.InitialCapital))
		return domain.NewPortfolio(e.cfg.InitialCapital, now), nil
	}
	if err != nil {
		return nil, fmt.Errorf("engine.RunOnce: load portfolio: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("engine.RunOnce: loaded portfolio: %w", err)
	}
	return p, nil
}

// snapshotsFor indexa los mercados activos y completa con el snapshot de cada
// posición abierta cuyo mercado ya no está en la lista (p.ej. resuelto). Un
// mercado borrado no aborta el ciclo: la posición queda abierta sin snapshot.
func (e *Engine) snapshotsFor(ctx context.Context, p *domain.Portfolio, markets []domain.MarketSnapshot) (map[string]domain.MarketSnapshot, error) {
	snapshots := make(map[string]domain.MarketSnapshot, len(markets)+len(p.Positions))
	for _, m := range markets {
		snapshots[m.ID] = m
	}
	for _, pos := range p.Positions {
		if _, ok := snapshots[pos.MarketID]; ok {
			continue
		}
		m, err := e.deps.Markets.FetchMarket(ctx, pos.MarketID)
		if errors.Is(err, domain.ErrMarketNotFound) {
			slog.Warn("engine: market of open position not found, keeping it open",
				"market", pos.MarketID, "position", pos.ID)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("engine.RunOnce: open position %s: %w", pos.ID, err)
		}
		snapshots[pos.MarketID] = m
	}
	return snapshots, nil
}

// evaluate sizes and opens every candidate in order, producing one decision each.
func (e *Engine) evaluate(l *ledger.Ledger, candidates []domain.EdgeCandidate, now time.Time) ([]domain.Decision, []domain.Position) {
	decisions := make([]domain.Decision, 0, len(candidates))
	var opened []domain.Position

	for _, c := range candidates {
		d := domain.NewDecision(c, now)

		sizing := e.deps.Sizer.Size(c, l.Capital())
		if !sizing.Approved {
			slog.Debug("engine: candidate rejected",
				"market", c.MarketID, "strategy", c.Kind, "reason", sizing.Reason)
			decisions = append(decisions, d.Rejected(sizing.Reason))
			continue
		}

		// el límite solo aplica a candidatos que se habrían ejecutado
		if e.cfg.MaxTradesPerCycle > 0 && len(opened) >= e.cfg.MaxTradesPerCycle {
			decisions = append(decisions, d.Rejected(domain.ReasonTradeLimit))
			continue
		}

		pos, err := l.Open(c, sizing.Stake, now)
		var dup *domain.DuplicateMarketError
		switch {
		case errors.As(err, &dup):
			slog.Debug("engine: duplicate position", "market", c.MarketID, "open", dup.PositionID)
			decisions = append(decisions, d.Rejected(domain.ReasonDuplicatePosition))
		case err != nil:
			slog.Warn("engine: open rejected", "market", c.MarketID, "err", err)
			decisions = append(decisions, d.Rejected(domain.ReasonInvalidEntry))
		default:
			opened = append(opened, pos)
			decisions = append(decisions, d.WithPosition(pos))
		}
	}
	return decisions, opened
}
