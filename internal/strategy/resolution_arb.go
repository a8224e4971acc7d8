package strategy

import (
	"fmt"
	"math"
	"time"

	"github.com/alejandrodnm/predbot/internal/domain"
)

// ResolutionArbitrage targets markets that resolve soon but still trade near
// even odds. The side comes from a DirectionPolicy; without a signal the
// detector stays silent.
type ResolutionArbitrage struct {
	cfg    ResolutionArbitrageConfig
	policy DirectionPolicy
}

// NewResolutionArbitrage creates the detector. A nil policy means NoDirection.
func NewResolutionArbitrage(cfg ResolutionArbitrageConfig, policy DirectionPolicy) *ResolutionArbitrage {
	if policy == nil {
		policy = NoDirection{}
	}
	return &ResolutionArbitrage{cfg: cfg, policy: policy}
}

// Kind implements Detector.
func (d *ResolutionArbitrage) Kind() domain.StrategyKind { return domain.KindResolutionArbitrage }

// Detect implements Detector. Requires a known close time.
func (d *ResolutionArbitrage) Detect(m domain.MarketSnapshot, now time.Time) (domain.EdgeCandidate, bool) {
	if !m.HasCloseTime() || m.IsResolved() || !domain.ValidProbability(m.Probability) {
		return domain.EdgeCandidate{}, false
	}
	ttc := m.TimeToClose(now)
	if ttc <= 0 || ttc >= d.cfg.Window {
		return domain.EdgeCandidate{}, false
	}
	dist := math.Abs(m.Probability - 0.5)
	if d.cfg.AmbiguityBand <= 0 || dist >= d.cfg.AmbiguityBand {
		return domain.EdgeCandidate{}, false
	}

	side, ok := d.policy.Direction(m)
	if !ok {
		return domain.EdgeCandidate{}, false
	}

	ambiguity := 1 - dist/d.cfg.AmbiguityBand
	urgency := 1 - float64(ttc)/float64(d.cfg.Window)
	edge := math.Min(d.cfg.EdgeCap, d.cfg.EdgeScale*ambiguity*urgency)

	days := ttc.Hours() / 24
	confidence := math.Min(d.cfg.MaxConfidence, 1/math.Max(days, 1))

	return domain.EdgeCandidate{
		MarketID:    m.ID,
		MarketTitle: m.Title,
		Kind:        domain.KindResolutionArbitrage,
		Side:        side,
		Probability: m.Probability,
		FairValue:   0.5,
		Edge:        edge,
		Confidence:  confidence,
		Rationale: fmt.Sprintf("Resolves in %.1f days at %.2f%% (%s policy). Near 50-50 with imminent resolution.",
			days, m.Probability*100, d.policy.Name()),
	}, true
}
