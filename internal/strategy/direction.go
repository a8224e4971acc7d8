package strategy

import (
	"fmt"

	"github.com/alejandrodnm/predbot/internal/domain"
)

// DirectionPolicy decides which side resolution arbitrage should take on a
// near-even market. ok=false means no directional signal: no candidate.
type DirectionPolicy interface {
	Name() string
	Direction(m domain.MarketSnapshot) (side domain.Side, ok bool)
}

// Policy names accepted by ParseDirectionPolicy.
const (
	PolicyNone       = "none"
	PolicyContrarian = "contrarian"
)

// NoDirection never produces a signal.
type NoDirection struct{}

func (NoDirection) Name() string { return PolicyNone }

func (NoDirection) Direction(domain.MarketSnapshot) (domain.Side, bool) {
	return "", false
}

// Contrarian bets toward 0.5: YES below even odds, NO above. A market quoted
// exactly at 0.5 has no signal.
type Contrarian struct{}

func (Contrarian) Name() string { return PolicyContrarian }

func (Contrarian) Direction(m domain.MarketSnapshot) (domain.Side, bool) {
	switch {
	case m.Probability < 0.5:
		return domain.SideYes, true
	case m.Probability > 0.5:
		return domain.SideNo, true
	default:
		return "", false
	}
}

// ParseDirectionPolicy maps a config value to a policy.
func ParseDirectionPolicy(name string) (DirectionPolicy, error) {
	switch name {
	case "", PolicyNone:
		return NoDirection{}, nil
	case PolicyContrarian:
		return Contrarian{}, nil
	default:
		return nil, fmt.Errorf("strategy.ParseDirectionPolicy: unknown policy %q", name)
	}
}
