package fixture

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/alejandrodnm/predbot/internal/domain"
)

// Provider sirve snapshots fijos en memoria. Implementa ports.MarketProvider
// para demo, dry-runs y tests.
type Provider struct {
	markets []domain.MarketSnapshot
	byID    map[string]domain.MarketSnapshot
}

// NewProvider crea un Provider con los mercados dados. Los mercados que no
// pasan la validación se descartan con un warning.
func NewProvider(markets []domain.MarketSnapshot) *Provider {
	p := &Provider{byID: make(map[string]domain.MarketSnapshot, len(markets))}
	for _, m := range markets {
		if err := m.Validate(); err != nil {
			slog.Warn("fixture: dropping invalid market", "id", m.ID, "err", err)
			continue
		}
		p.markets = append(p.markets, m)
		p.byID[m.ID] = m
	}
	return p
}

// LoadFile lee un array JSON de snapshots (mismo formato que domain.MarketSnapshot).
func LoadFile(path string) (*Provider, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("fixture.LoadFile: %w", err)
	}
	var markets []domain.MarketSnapshot
	if err := json.Unmarshal(data, &markets); err != nil {
		return nil, fmt.Errorf("fixture.LoadFile: decode %q: %w", path, err)
	}
	return NewProvider(markets), nil
}

// FetchMarkets devuelve los mercados no resueltos.
func (p *Provider) FetchMarkets(_ context.Context) ([]domain.MarketSnapshot, error) {
	out := make([]domain.MarketSnapshot, 0, len(p.markets))
	for _, m := range p.markets {
		if !m.IsResolved() {
			out = append(out, m)
		}
	}
	return out, nil
}

// FetchMarket devuelve un mercado por id, incluidos los resueltos.
func (p *Provider) FetchMarket(_ context.Context, id string) (domain.MarketSnapshot, error) {
	m, ok := p.byID[id]
	if !ok {
		return domain.MarketSnapshot{}, &domain.FetchError{Op: "market", Err: fmt.Errorf("%s: not in fixture set: %w", id, domain.ErrMarketNotFound)}
	}
	return m, nil
}
