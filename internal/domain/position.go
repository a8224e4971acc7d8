package domain

import "time"

// PositionStatus represents the lifecycle of a paper position.
type PositionStatus string

const (
	PositionOpen   PositionStatus = "open"
	PositionClosed PositionStatus = "closed"
)

// CloseReason records what triggered a close.
type CloseReason string

const (
	CloseResolution CloseReason = "resolution"
	CloseTakeProfit CloseReason = "take_profit"
	CloseStopLoss   CloseReason = "stop_loss"
	CloseManual     CloseReason = "manual"
)

// Position is a simulated bet owned by the ledger.
type Position struct {
	ID               string             `json:"id"`
	MarketID         string             `json:"market_id"`
	MarketTitle      string             `json:"market_title"`
	Side             Side               `json:"side"`
	Strategy         StrategyKind       `json:"strategy,omitempty"`
	EntryProbability float64            `json:"entry_prob"`
	Size             float64            `json:"size"`
	EntryTime        time.Time          `json:"entry_time"`
	Status           PositionStatus     `json:"status"`
	ExitProbability  *float64           `json:"exit_prob,omitempty"`
	Outcome          *ResolutionOutcome `json:"outcome,omitempty"`
	CloseReason      CloseReason        `json:"close_reason,omitempty"`
	PnL              *float64           `json:"pnl,omitempty"`
	CloseTime        *time.Time         `json:"exit_time,omitempty"`
}

// RealizedPnL returns the realized pnl, or 0 while the position is open.
func (p Position) RealizedPnL() float64 {
	if p.PnL == nil {
		return 0
	}
	return *p.PnL
}

// Exit describes how a position is being closed: at a quoted probability
// (early close) or by the market's resolution.
type Exit struct {
	Probability float64
	Resolution  *Resolution
	Reason      CloseReason
}

// ExitAt builds an early-close exit at probability q.
func ExitAt(q float64, reason CloseReason) Exit {
	return Exit{Probability: q, Reason: reason}
}

// ExitResolved builds an exit from a market resolution.
func ExitResolved(r Resolution) Exit {
	v, _ := r.Value()
	return Exit{Probability: v, Resolution: &r, Reason: CloseResolution}
}

// PositionPnL computes the pnl of a stake s entered at probability p and valued at q.
//
// The stake buys s/p YES units (s/(1-p) NO units) of a binary payoff, so
//
//	YES: s × (q − p) / p
//	NO:  s × (p − q) / (1 − p)
//
// A full resolution is the same formula with q = outcome value (1 or 0).
func PositionPnL(side Side, p, s, q float64) float64 {
	switch side {
	case SideYes:
		if p <= 0 {
			return 0
		}
		return s * (q - p) / p
	case SideNo:
		if p >= 1 {
			return 0
		}
		return s * (p - q) / (1 - p)
	default:
		return 0
	}
}

// ExitPnL applies PositionPnL to an Exit. A cancelled market refunds the stake.
func ExitPnL(pos Position, exit Exit) float64 {
	if exit.Resolution != nil {
		v, ok := exit.Resolution.Value()
		if !ok {
			return 0
		}
		return PositionPnL(pos.Side, pos.EntryProbability, pos.Size, v)
	}
	return PositionPnL(pos.Side, pos.EntryProbability, pos.Size, exit.Probability)
}

// ReturnAt returns pnl/stake if the position were valued at q.
func (p Position) ReturnAt(q float64) float64 {
	if p.Size <= 0 {
		return 0
	}
	return PositionPnL(p.Side, p.EntryProbability, p.Size, q) / p.Size
}
