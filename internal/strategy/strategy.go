package strategy

import (
	"log/slog"
	"time"

	"github.com/alejandrodnm/predbot/internal/domain"
)

// Detector define el contrato de un sub-detector que evalúa un mercado aislado.
// Cada detector declara sus datos requeridos y devuelve ok=false (no un error)
// cuando faltan.
type Detector interface {
	// Kind devuelve el identificador de la estrategia.
	Kind() domain.StrategyKind

	// Detect devuelve como mucho un candidato para el mercado.
	Detect(market domain.MarketSnapshot, now time.Time) (domain.EdgeCandidate, bool)
}

// GroupDetector evalúa mercados en conjunto (p.ej. grupos de correlación).
type GroupDetector interface {
	Kind() domain.StrategyKind

	// DetectGroup devuelve como mucho un candidato por mercado.
	DetectGroup(markets []domain.MarketSnapshot, now time.Time) []domain.EdgeCandidate
}

// Set agrupa los detectores configurados y los ejecuta sobre un batch de mercados.
type Set struct {
	single []Detector
	group  []GroupDetector
}

// NewSet crea un Set vacío.
func NewSet() *Set {
	return &Set{}
}

// NewDefaultSet crea el Set con las tres estrategias y la config dada.
func NewDefaultSet(cfg Config, policy DirectionPolicy) *Set {
	return NewSet().
		Register(NewMeanReversion(cfg.MeanReversion)).
		Register(NewResolutionArbitrage(cfg.ResolutionArbitrage, policy)).
		RegisterGroup(NewCorrelationLag(cfg.CorrelationLag))
}

// Register añade un detector por mercado.
func (s *Set) Register(d Detector) *Set {
	s.single = append(s.single, d)
	return s
}

// RegisterGroup añade un detector de grupo.
func (s *Set) RegisterGroup(d GroupDetector) *Set {
	s.group = append(s.group, d)
	return s
}

// Kinds devuelve las estrategias registradas en orden de ejecución.
func (s *Set) Kinds() []domain.StrategyKind {
	kinds := make([]domain.StrategyKind, 0, len(s.single)+len(s.group))
	for _, d := range s.single {
		kinds = append(kinds, d.Kind())
	}
	for _, d := range s.group {
		kinds = append(kinds, d.Kind())
	}
	return kinds
}

// DetectAll evalúa todos los mercados. El orden es determinista: mercados en el
// orden recibido, detectores en orden de registro y candidatos de grupo al final.
// Un mercado puede producir varios candidatos de detectores distintos.
func (s *Set) DetectAll(markets []domain.MarketSnapshot, now time.Time) []domain.EdgeCandidate {
	var out []domain.EdgeCandidate
	for _, m := range markets {
		for _, d := range s.single {
			c, ok := d.Detect(m, now)
			if !ok {
				continue
			}
			out = append(out, c.Normalize())
			slog.Debug("edge detected",
				"strategy", c.Kind,
				"market", domain.TruncateTitle(m.Title, m.ID, 40),
				"side", c.Side,
				"edge", c.Edge,
				"confidence", c.Confidence,
			)
		}
	}
	for _, d := range s.group {
		for _, c := range d.DetectGroup(markets, now) {
			out = append(out, c.Normalize())
		}
	}
	return out
}
