package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// pnlTolerance is the accepted drift between sum(closed pnl) and TotalPnL.
const pnlTolerance = 1e-6

// Portfolio is the authoritative paper trading state of one run.
// It is loaded once at cycle start and written once at cycle end.
type Portfolio struct {
	Capital         float64    `json:"capital"`
	Positions       []Position `json:"positions"`
	ClosedPositions []Position `json:"closed_positions"`
	TotalPnL        float64    `json:"total_pnl"`
	CreatedAt       time.Time  `json:"created_at"`
}

// NewPortfolio returns an empty portfolio funded with initialCapital.
func NewPortfolio(initialCapital float64, now time.Time) *Portfolio {
	return &Portfolio{
		Capital:         initialCapital,
		Positions:       []Position{},
		ClosedPositions: []Position{},
		CreatedAt:       now.UTC(),
	}
}

// OpenPosition returns the open position for marketID, if any.
func (p *Portfolio) OpenPosition(marketID string) (Position, bool) {
	for _, pos := range p.Positions {
		if pos.MarketID == marketID {
			return pos, true
		}
	}
	return Position{}, false
}

// ClosedPnL sums the realized pnl of every closed position.
func (p *Portfolio) ClosedPnL() decimal.Decimal {
	sum := decimal.Zero
	for _, pos := range p.ClosedPositions {
		sum = sum.Add(decimal.NewFromFloat(pos.RealizedPnL()))
	}
	return sum
}

// Deployed returns the capital committed to open positions.
func (p *Portfolio) Deployed() float64 {
	sum := decimal.Zero
	for _, pos := range p.Positions {
		sum = sum.Add(decimal.NewFromFloat(pos.Size))
	}
	return sum.InexactFloat64()
}

// Validate checks the portfolio invariants:
//   - at most one open position per market id
//   - every open position is open and every closed one carries a pnl
//   - sum(closed pnl) == TotalPnL
func (p *Portfolio) Validate() error {
	seen := make(map[string]bool, len(p.Positions))
	for _, pos := range p.Positions {
		if seen[pos.MarketID] {
			return &InvariantError{Rule: "one_open_position_per_market", Detail: pos.MarketID}
		}
		seen[pos.MarketID] = true
		if pos.Status != PositionOpen {
			return &InvariantError{Rule: "open_status", Detail: pos.ID}
		}
	}
	for _, pos := range p.ClosedPositions {
		if pos.Status != PositionClosed || pos.PnL == nil {
			return &InvariantError{Rule: "closed_has_pnl", Detail: pos.ID}
		}
	}

	diff := p.ClosedPnL().Sub(decimal.NewFromFloat(p.TotalPnL)).Abs()
	if diff.GreaterThan(decimal.NewFromFloat(pnlTolerance)) {
		return &InvariantError{
			Rule:   "total_pnl_reconciles",
			Detail: fmt.Sprintf("sum(closed)=%s total_pnl=%.6f", p.ClosedPnL().StringFixed(6), p.TotalPnL),
		}
	}
	return nil
}
