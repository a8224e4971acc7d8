package strategy

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/alejandrodnm/predbot/internal/domain"
)

// CorrelationLag looks for markets in the same correlation group that drifted
// apart: correlated markets are assumed to track within Tolerance, so a wider
// spread means one of them has not repriced yet.
//
// TODO: replace the fixed tolerance band with a per-pair co-movement baseline
// computed from both probability histories.
type CorrelationLag struct {
	cfg CorrelationLagConfig
}

// NewCorrelationLag creates the correlation-lag detector.
func NewCorrelationLag(cfg CorrelationLagConfig) *CorrelationLag {
	return &CorrelationLag{cfg: cfg}
}

// Kind implements GroupDetector.
func (d *CorrelationLag) Kind() domain.StrategyKind { return domain.KindCorrelationLag }

// DetectGroup implements GroupDetector. Each pair beyond tolerance yields two
// opposite candidates: NO on the richer market, YES on the cheaper one. When a
// market belongs to several diverging pairs only its largest edge is kept.
func (d *CorrelationLag) DetectGroup(markets []domain.MarketSnapshot, now time.Time) []domain.EdgeCandidate {
	groups := make(map[string][]domain.MarketSnapshot)
	order := make(map[string]int, len(markets))
	for i, m := range markets {
		if m.IsResolved() || !domain.ValidProbability(m.Probability) {
			continue
		}
		if _, ok := order[m.ID]; !ok {
			order[m.ID] = i
		}
		for _, g := range m.Groups {
			groups[g] = append(groups[g], m)
		}
	}

	names := make([]string, 0, len(groups))
	for g := range groups {
		names = append(names, g)
	}
	sort.Strings(names)

	best := make(map[string]domain.EdgeCandidate)
	for _, group := range names {
		members := groups[group]
		if len(members) < 2 {
			continue
		}
		sort.Slice(members, func(i, j int) bool { return members[i].ID < members[j].ID })
		for i := 0; i < len(members); i++ {
			for j := i + 1; j < len(members); j++ {
				if members[i].ID == members[j].ID {
					continue
				}
				for _, c := range d.pair(group, members[i], members[j]) {
					if prev, ok := best[c.MarketID]; !ok || c.Edge > prev.Edge {
						best[c.MarketID] = c
					}
				}
			}
		}
	}

	out := make([]domain.EdgeCandidate, 0, len(best))
	for _, c := range best {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return order[out[i].MarketID] < order[out[j].MarketID] })
	return out
}

// pair evaluates two markets of the same group.
func (d *CorrelationLag) pair(group string, a, b domain.MarketSnapshot) []domain.EdgeCandidate {
	spread := math.Abs(a.Probability - b.Probability)
	if spread <= d.cfg.Tolerance {
		return nil
	}

	rich, cheap := a, b
	if b.Probability > a.Probability {
		rich, cheap = b, a
	}

	excess := spread - d.cfg.Tolerance
	edge := math.Min(d.cfg.EdgeCap, excess/2)
	confidence := math.Min(d.cfg.MaxConfidence, excess*2)
	mid := (a.Probability + b.Probability) / 2

	why := fmt.Sprintf("Group %q spread %.1f%% beyond %.1f%% tolerance (%s %.2f%% vs %s %.2f%%).",
		group, spread*100, d.cfg.Tolerance*100, rich.ID, rich.Probability*100, cheap.ID, cheap.Probability*100)

	return []domain.EdgeCandidate{
		{
			MarketID: rich.ID, MarketTitle: rich.Title, Kind: domain.KindCorrelationLag,
			Side: domain.SideNo, Probability: rich.Probability, FairValue: mid,
			Edge: edge, Confidence: confidence, Rationale: why,
		},
		{
			MarketID: cheap.ID, MarketTitle: cheap.Title, Kind: domain.KindCorrelationLag,
			Side: domain.SideYes, Probability: cheap.Probability, FairValue: mid,
			Edge: edge, Confidence: confidence, Rationale: why,
		},
	}
}
