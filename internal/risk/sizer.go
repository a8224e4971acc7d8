// Package risk convierte candidatos en stakes usando Kelly fraccional.
package risk

import (
	"math"

	"github.com/alejandrodnm/predbot/internal/domain"
)

// Config contiene los límites de sizing.
type Config struct {
	KellyFraction    float64 // fracción del Kelly completo (0.25 = quarter-Kelly)
	MinEdgeThreshold float64
	MaxPositionSize  float64
	MinConfidence    float64 // 0 = desactivado
}

// DefaultConfig devuelve los valores por defecto.
func DefaultConfig() Config {
	return Config{
		KellyFraction:    0.25,
		MinEdgeThreshold: 0.05,
		MaxPositionSize:  1000,
	}
}

// Sizer decide el stake de cada candidato. No tiene estado.
type Sizer struct {
	cfg Config
}

// NewSizer crea un Sizer.
func NewSizer(cfg Config) *Sizer {
	return &Sizer{cfg: cfg}
}

// Size aplica la política de sizing a un candidato dado el capital disponible.
//
// Kelly completo para una apuesta aproximada a even-money es 2×edge; se escala
// por KellyFraction y por el capital, y se recorta a MaxPositionSize y al capital.
// Un rechazo no es un error.
func (s *Sizer) Size(c domain.EdgeCandidate, capital float64) domain.Sizing {
	if c.Edge < s.cfg.MinEdgeThreshold {
		return domain.Sizing{Reason: domain.ReasonEdgeBelowThreshold}
	}
	if c.Confidence < s.cfg.MinConfidence {
		return domain.Sizing{Reason: domain.ReasonLowConfidence}
	}

	stake := FullKelly(c.Edge) * s.cfg.KellyFraction * capital
	stake = math.Min(stake, s.cfg.MaxPositionSize)
	stake = math.Min(stake, capital)
	if math.IsNaN(stake) || stake <= 0 {
		return domain.Sizing{Reason: domain.ReasonInsufficientCapital}
	}

	return domain.Sizing{Approved: true, Stake: stake}
}

// FullKelly devuelve la fracción de Kelly completo para un edge.
func FullKelly(edge float64) float64 {
	return 2 * edge
}
