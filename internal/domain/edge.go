package domain

// StrategyKind identifica el sub-detector que produjo un candidato.
type StrategyKind string

const (
	KindMeanReversion       StrategyKind = "mean_reversion"
	KindResolutionArbitrage StrategyKind = "resolution_arbitrage"
	KindCorrelationLag      StrategyKind = "correlation_lag"
)

// String implementa fmt.Stringer.
func (k StrategyKind) String() string { return string(k) }

// Side es el lado direccional de una apuesta binaria.
type Side string

const (
	SideYes Side = "YES"
	SideNo  Side = "NO"
)

// EdgeCandidate es una posible ineficiencia detectada en un ciclo.
// Se genera en cada ciclo y nunca se persiste por sí sola, solo a través de Decision.
type EdgeCandidate struct {
	MarketID    string
	MarketTitle string
	Kind        StrategyKind
	Side        Side
	Probability float64 // precio cotizado al detectar
	FairValue   float64 // estimación de valor justo del detector
	Edge        float64 // [0,1)
	Confidence  float64 // [0,1]
	Rationale   string
}

// MaxEdge es el límite superior (exclusivo) de Edge.
const MaxEdge = 0.999

// Normalize acota Edge a [0, MaxEdge] y Confidence a [0,1].
func (c EdgeCandidate) Normalize() EdgeCandidate {
	if c.Edge < 0 {
		c.Edge = 0
	}
	if c.Edge > MaxEdge {
		c.Edge = MaxEdge
	}
	c.Confidence = clamp01(c.Confidence)
	return c
}
