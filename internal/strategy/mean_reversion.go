package strategy

import (
	"fmt"
	"math"
	"time"

	"github.com/alejandrodnm/predbot/internal/domain"
)

// minHistorySamples is the minimum history length the baseline needs. The
// current probability comes from the snapshot, so one sample is enough.
const minHistorySamples = 1

// MeanReversion fades large moves: when the crowd pushes a market more than
// MoveThreshold away from its lookback baseline, bet on a partial reversion.
type MeanReversion struct {
	cfg MeanReversionConfig
}

// NewMeanReversion creates the mean-reversion detector.
func NewMeanReversion(cfg MeanReversionConfig) *MeanReversion {
	return &MeanReversion{cfg: cfg}
}

// Kind implements Detector.
func (d *MeanReversion) Kind() domain.StrategyKind { return domain.KindMeanReversion }

// Detect implements Detector. Requires at least one history sample.
func (d *MeanReversion) Detect(m domain.MarketSnapshot, now time.Time) (domain.EdgeCandidate, bool) {
	if len(m.History) < minHistorySamples || !domain.ValidProbability(m.Probability) {
		return domain.EdgeCandidate{}, false
	}

	base, approx := baseline(m.History, now.Add(-d.cfg.Lookback))
	delta := m.Probability - base.Probability
	move := math.Abs(delta)
	if move <= d.cfg.MoveThreshold {
		return domain.EdgeCandidate{}, false
	}

	side := domain.SideNo
	if delta < 0 {
		side = domain.SideYes
	}

	edge := math.Min(move-d.cfg.EdgeFloor, d.cfg.EdgeCap)
	overshoot := move - d.cfg.MoveThreshold
	confidence := d.cfg.MaxConfidence
	if d.cfg.ReferenceOvershoot > 0 {
		confidence = math.Min(d.cfg.MaxConfidence, overshoot/d.cfg.ReferenceOvershoot)
	}

	window := fmt.Sprintf("%.0fh", d.cfg.Lookback.Hours())
	if approx {
		window = fmt.Sprintf("%.1fh approx", now.Sub(base.Timestamp).Hours())
	}

	return domain.EdgeCandidate{
		MarketID:    m.ID,
		MarketTitle: m.Title,
		Kind:        domain.KindMeanReversion,
		Side:        side,
		Probability: m.Probability,
		FairValue:   base.Probability,
		Edge:        edge,
		Confidence:  confidence,
		Rationale: fmt.Sprintf("Market moved %+.1f%% in %s (%.2f%% -> %.2f%%). Mean-reversion likely.",
			delta*100, window, base.Probability*100, m.Probability*100),
	}, true
}

// baseline returns the latest sample at or before cutoff. When the history is
// shorter than the lookback it falls back to the earliest sample and reports
// approx=true.
func baseline(history []domain.PricePoint, cutoff time.Time) (domain.PricePoint, bool) {
	for i := len(history) - 1; i >= 0; i-- {
		if !history[i].Timestamp.After(cutoff) {
			return history[i], false
		}
	}
	return history[0], true
}
