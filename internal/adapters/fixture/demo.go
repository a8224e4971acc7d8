package fixture

import (
	"time"

	"github.com/alejandrodnm/predbot/internal/domain"
)

const demoGroup = "us-politics"

// Demo devuelve mercados sintéticos relativos a now que ejercitan las tres
// estrategias sin llamadas de red:
//   - demo-1: subida de 15 puntos en 24h (mean reversion)
//   - demo-2: cierra en 3 días cerca del 50% (resolution arbitrage con política contrarian)
//   - demo-2 y demo-3: mismo grupo con spread de 16 puntos (correlation lag)
//   - demo-4: mercado plano, sin señal
func Demo(now time.Time) []domain.MarketSnapshot {
	now = now.UTC()
	h := func(d time.Duration, p float64) domain.PricePoint {
		return domain.PricePoint{Timestamp: now.Add(-d), Probability: p}
	}
	return []domain.MarketSnapshot{
		{
			ID:          "demo-1",
			Title:       "Will ChatGPT-5 be released by end of 2026?",
			Probability: 0.65,
			History:     []domain.PricePoint{h(30*time.Hour, 0.49), h(24*time.Hour, 0.50), h(6*time.Hour, 0.60), h(0, 0.65)},
			CloseTime:   now.Add(126 * 24 * time.Hour),
			Volume24h:   50000,
		},
		{
			ID:          "demo-2",
			Title:       "Biden re-elected 2028?",
			Probability: 0.42,
			History:     []domain.PricePoint{h(48*time.Hour, 0.43), h(24*time.Hour, 0.41), h(0, 0.42)},
			CloseTime:   now.Add(3 * 24 * time.Hour),
			Groups:      []string{demoGroup},
			Volume24h:   100000,
		},
		{
			ID:          "demo-3",
			Title:       "Will the Democratic nominee win the popular vote?",
			Probability: 0.58,
			History:     []domain.PricePoint{h(24*time.Hour, 0.55), h(0, 0.58)},
			CloseTime:   now.Add(300 * 24 * time.Hour),
			Groups:      []string{demoGroup},
			Volume24h:   42000,
		},
		{
			ID:          "demo-4",
			Title:       "Will the Eiffel Tower still stand in 2027?",
			Probability: 0.97,
			History:     []domain.PricePoint{h(24*time.Hour, 0.97), h(0, 0.97)},
			Volume24h:   1200,
		},
	}
}
