package manifold

import (
	"sort"
	"time"

	"github.com/alejandrodnm/predbot/internal/domain"
)

// mapMarket valida y convierte un DTO a domain.MarketSnapshot.
// Nunca devuelve un snapshot que no pase domain.MarketSnapshot.Validate.
func mapMarket(r apiMarket, groups map[string]bool) (domain.MarketSnapshot, error) {
	if r.Probability == nil {
		return domain.MarketSnapshot{}, &domain.ValidationError{Field: "probability", Reason: "missing"}
	}

	m := domain.MarketSnapshot{
		ID:          r.ID,
		Title:       r.Question,
		Probability: *r.Probability,
		Volume24h:   r.volume(),
	}
	if r.CloseTime != nil && *r.CloseTime > 0 {
		m.CloseTime = time.UnixMilli(*r.CloseTime).UTC()
	}
	for _, g := range r.GroupSlugs {
		if groups[g] {
			m.Groups = append(m.Groups, g)
		}
	}
	if r.IsResolved {
		m.Resolution = mapResolution(r)
	}

	if err := m.Validate(); err != nil {
		return domain.MarketSnapshot{}, err
	}
	return m, nil
}

// mapResolution traduce la resolución de Manifold. Valores desconocidos se
// tratan como CANCEL: se devuelve el stake.
func mapResolution(r apiMarket) *domain.Resolution {
	switch domain.ResolutionOutcome(r.Resolution) {
	case domain.OutcomeYes:
		return &domain.Resolution{Outcome: domain.OutcomeYes}
	case domain.OutcomeNo:
		return &domain.Resolution{Outcome: domain.OutcomeNo}
	case domain.OutcomeMkt:
		p := 0.0
		if r.ResolutionProbability != nil {
			p = *r.ResolutionProbability
		} else if r.Probability != nil {
			p = *r.Probability
		}
		return &domain.Resolution{Outcome: domain.OutcomeMkt, Probability: p}
	default:
		return &domain.Resolution{Outcome: domain.OutcomeCancel}
	}
}

// mapHistory convierte el histórico a orden cronológico, descartando muestras
// sin probabilidad o fuera de rango.
func mapHistory(raw []apiHistoryPoint) []domain.PricePoint {
	points := make([]domain.PricePoint, 0, len(raw))
	for _, h := range raw {
		if h.Prob == nil || !domain.ValidProbability(*h.Prob) || h.CreatedTime <= 0 {
			continue
		}
		points = append(points, domain.PricePoint{
			Timestamp:   time.UnixMilli(h.CreatedTime).UTC(),
			Probability: *h.Prob,
		})
	}
	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Timestamp.Before(points[j].Timestamp)
	})
	return points
}
