package domain

import "time"

// RejectReason explains why an evaluated candidate did not open a position.
type RejectReason string

const (
	ReasonNone                RejectReason = ""
	ReasonEdgeBelowThreshold  RejectReason = "edge_below_threshold"
	ReasonLowConfidence       RejectReason = "low_confidence"
	ReasonInsufficientCapital RejectReason = "insufficient_capital"
	ReasonDuplicatePosition   RejectReason = "duplicate_position"
	ReasonTradeLimit          RejectReason = "trade_limit"
	ReasonInvalidEntry        RejectReason = "invalid_entry"
)

// Sizing is the Risk Sizer verdict for one candidate.
// A rejection is a normal outcome, not an error.
type Sizing struct {
	Approved bool
	Stake    float64
	Reason   RejectReason
}

// Decision is one append-only audit record per evaluated candidate.
type Decision struct {
	Timestamp   time.Time    `json:"timestamp"`
	MarketID    string       `json:"market_id"`
	MarketTitle string       `json:"market_title"`
	Strategy    StrategyKind `json:"edge_type"`
	Side        Side         `json:"suggested_side"`
	Edge        float64      `json:"edge"`
	Confidence  float64      `json:"confidence"`
	Executed    bool         `json:"executed"`
	Stake       float64      `json:"stake,omitempty"`
	PositionID  string       `json:"position_id,omitempty"`
	Reason      RejectReason `json:"reason,omitempty"`
	Rationale   string       `json:"rationale,omitempty"`
}

// NewDecision builds the audit record for a candidate.
func NewDecision(c EdgeCandidate, now time.Time) Decision {
	return Decision{
		Timestamp:   now.UTC(),
		MarketID:    c.MarketID,
		MarketTitle: c.MarketTitle,
		Strategy:    c.Kind,
		Side:        c.Side,
		Edge:        c.Edge,
		Confidence:  c.Confidence,
		Rationale:   c.Rationale,
	}
}

// WithPosition marks the decision as having opened pos.
func (d Decision) WithPosition(pos Position) Decision {
	d.Executed = true
	d.Stake = pos.Size
	d.PositionID = pos.ID
	d.Reason = ReasonNone
	return d
}

// Rejected marks the decision as not executed.
func (d Decision) Rejected(reason RejectReason) Decision {
	d.Executed = false
	d.Stake = 0
	d.PositionID = ""
	d.Reason = reason
	return d
}
