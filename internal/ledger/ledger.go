// Package ledger owns every mutation of the paper portfolio: opening positions,
// closing them and reconciling open positions against fresh snapshots.
package ledger

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/alejandrodnm/predbot/internal/domain"
)

// Config holds the exit thresholds, expressed as a return on stake (pnl/stake).
// A zero threshold disables that exit.
type Config struct {
	TakeProfit float64
	StopLoss   float64
}

// DefaultConfig returns the default exit thresholds.
func DefaultConfig() Config {
	return Config{TakeProfit: 0.02, StopLoss: 0.03}
}

// Ledger wraps a portfolio loaded for the current cycle.
type Ledger struct {
	p     *domain.Portfolio
	cfg   Config
	newID func() string
}

// New creates a ledger over p. The portfolio is mutated in place.
func New(p *domain.Portfolio, cfg Config) *Ledger {
	if p.Positions == nil {
		p.Positions = []domain.Position{}
	}
	if p.ClosedPositions == nil {
		p.ClosedPositions = []domain.Position{}
	}
	return &Ledger{p: p, cfg: cfg, newID: func() string { return uuid.New().String() }}
}

// Portfolio returns the underlying portfolio.
func (l *Ledger) Portfolio() *domain.Portfolio { return l.p }

// Capital returns the free capital.
func (l *Ledger) Capital() float64 { return l.p.Capital }

// HasOpen reports whether marketID has an open position.
func (l *Ledger) HasOpen(marketID string) bool {
	_, ok := l.p.OpenPosition(marketID)
	return ok
}

// OpenPositions returns a copy of the open positions.
func (l *Ledger) OpenPositions() []domain.Position {
	out := make([]domain.Position, len(l.p.Positions))
	copy(out, l.p.Positions)
	return out
}

// Open creates a position for c with the given stake and debits capital.
// The portfolio is left untouched when an error is returned.
func (l *Ledger) Open(c domain.EdgeCandidate, stake float64, now time.Time) (domain.Position, error) {
	if existing, ok := l.p.OpenPosition(c.MarketID); ok {
		return domain.Position{}, &domain.DuplicateMarketError{MarketID: c.MarketID, PositionID: existing.ID}
	}
	if !(c.Probability > 0 && c.Probability < 1) {
		return domain.Position{}, fmt.Errorf("ledger.Open: %s at %v: %w", c.MarketID, c.Probability, domain.ErrInvalidProbability)
	}
	if !(stake > 0) || stake > l.p.Capital {
		return domain.Position{}, fmt.Errorf("ledger.Open: stake %.2f with capital %.2f: %w", stake, l.p.Capital, domain.ErrInvalidStake)
	}

	pos := domain.Position{
		ID:               l.newID(),
		MarketID:         c.MarketID,
		MarketTitle:      c.MarketTitle,
		Side:             c.Side,
		Strategy:         c.Kind,
		EntryProbability: c.Probability,
		Size:             stake,
		EntryTime:        now.UTC(),
		Status:           domain.PositionOpen,
	}
	l.p.Positions = append(l.p.Positions, pos)
	l.p.Capital = decimal.NewFromFloat(l.p.Capital).Sub(decimal.NewFromFloat(stake)).InexactFloat64()

	slog.Info("ledger: opened position",
		"market", domain.TruncateTitle(c.MarketTitle, c.MarketID, 40),
		"side", pos.Side,
		"strategy", pos.Strategy,
		"entry", fmt.Sprintf("%.2f%%", pos.EntryProbability*100),
		"stake", fmt.Sprintf("$%.2f", stake),
	)
	return pos, nil
}

// Close realizes the pnl of an open position, credits stake+pnl back to
// capital and moves the position to the closed history. An early exit must be
// priced inside [0,1]; otherwise nothing changes.
func (l *Ledger) Close(positionID string, exit domain.Exit, now time.Time) (float64, error) {
	idx := -1
	for i, pos := range l.p.Positions {
		if pos.ID == positionID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return 0, fmt.Errorf("ledger.Close: %s: %w", positionID, domain.ErrPositionNotFound)
	}
	if exit.Resolution == nil && !domain.ValidProbability(exit.Probability) {
		return 0, fmt.Errorf("ledger.Close: %s: exit at %v: %w", positionID, exit.Probability, domain.ErrInvalidProbability)
	}

	pos := l.p.Positions[idx]
	pnl := domain.ExitPnL(pos, exit)

	exitProb := exit.Probability
	closedAt := now.UTC()
	pos.Status = domain.PositionClosed
	pos.ExitProbability = &exitProb
	pos.PnL = &pnl
	pos.CloseTime = &closedAt
	pos.CloseReason = exit.Reason
	if exit.Resolution != nil {
		outcome := exit.Resolution.Outcome
		pos.Outcome = &outcome
	}

	l.p.Positions = append(l.p.Positions[:idx], l.p.Positions[idx+1:]...)
	l.p.ClosedPositions = append(l.p.ClosedPositions, pos)

	dpnl := decimal.NewFromFloat(pnl)
	l.p.Capital = decimal.NewFromFloat(l.p.Capital).
		Add(decimal.NewFromFloat(pos.Size)).
		Add(dpnl).
		InexactFloat64()
	l.p.TotalPnL = decimal.NewFromFloat(l.p.TotalPnL).Add(dpnl).InexactFloat64()

	slog.Info("ledger: closed position",
		"market", domain.TruncateTitle(pos.MarketTitle, pos.MarketID, 40),
		"side", pos.Side,
		"reason", pos.CloseReason,
		"pnl", fmt.Sprintf("$%.2f", pnl),
	)
	return pnl, nil
}

// MarkToMarket evaluates every open position against its current snapshot and
// closes it when the market resolved or the return crossed take-profit or
// stop-loss. Positions without a snapshot stay open. Returns the closed positions.
func (l *Ledger) MarkToMarket(markets map[string]domain.MarketSnapshot, now time.Time) []domain.Position {
	var closed []domain.Position
	for _, pos := range l.OpenPositions() {
		m, ok := markets[pos.MarketID]
		if !ok {
			continue
		}
		exit, ok := l.exitFor(pos, m)
		if !ok {
			continue
		}
		if _, err := l.Close(pos.ID, exit, now); err != nil {
			// no debería pasar: el id viene de la copia de posiciones abiertas
			slog.Warn("ledger: mark to market close failed", "position", pos.ID, "err", err)
			continue
		}
		closed = append(closed, l.p.ClosedPositions[len(l.p.ClosedPositions)-1])
	}
	return closed
}

func (l *Ledger) exitFor(pos domain.Position, m domain.MarketSnapshot) (domain.Exit, bool) {
	if m.Resolution != nil {
		return domain.ExitResolved(*m.Resolution), true
	}
	if !domain.ValidProbability(m.Probability) {
		return domain.Exit{}, false
	}
	ret := pos.ReturnAt(m.Probability)
	switch {
	case l.cfg.TakeProfit > 0 && ret >= l.cfg.TakeProfit:
		return domain.ExitAt(m.Probability, domain.CloseTakeProfit), true
	case l.cfg.StopLoss > 0 && ret <= -l.cfg.StopLoss:
		return domain.ExitAt(m.Probability, domain.CloseStopLoss), true
	}
	return domain.Exit{}, false
}

// Unrealized returns the mark-to-market pnl of open positions that have a snapshot.
func (l *Ledger) Unrealized(markets map[string]domain.MarketSnapshot) float64 {
	sum := decimal.Zero
	for _, pos := range l.p.Positions {
		m, ok := markets[pos.MarketID]
		if !ok || !domain.ValidProbability(m.Probability) {
			continue
		}
		pnl := domain.PositionPnL(pos.Side, pos.EntryProbability, pos.Size, m.Probability)
		sum = sum.Add(decimal.NewFromFloat(pnl))
	}
	return sum.InexactFloat64()
}
