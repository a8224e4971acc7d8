package domain

import (
	"math"
	"time"
)

// PricePoint es una muestra (timestamp, probabilidad) del histórico de un mercado.
type PricePoint struct {
	Timestamp   time.Time `json:"timestamp"`
	Probability float64   `json:"probability"`
}

// ResolutionOutcome es el resultado final de un mercado binario.
type ResolutionOutcome string

const (
	OutcomeYes    ResolutionOutcome = "YES"
	OutcomeNo     ResolutionOutcome = "NO"
	OutcomeMkt    ResolutionOutcome = "MKT"    // resuelto a una probabilidad intermedia
	OutcomeCancel ResolutionOutcome = "CANCEL" // anulado, se devuelve el stake
)

// Resolution describe cómo se resolvió un mercado.
type Resolution struct {
	Outcome     ResolutionOutcome `json:"outcome"`
	Probability float64           `json:"probability,omitempty"` // solo para MKT
}

// Value devuelve el valor de pago de una acción YES tras la resolución (0..1).
// El segundo valor es false para CANCEL: no hay pago, solo reembolso.
func (r Resolution) Value() (float64, bool) {
	switch r.Outcome {
	case OutcomeYes:
		return 1, true
	case OutcomeNo:
		return 0, true
	case OutcomeMkt:
		return clamp01(r.Probability), true
	default:
		return 0, false
	}
}

// MarketSnapshot es el estado validado de un mercado de predicción binario en un ciclo.
// Se construye en el adapter; el core nunca opera sobre datos externos sin validar.
type MarketSnapshot struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Probability float64      `json:"probability"`
	History     []PricePoint `json:"probability_history,omitempty"` // orden cronológico
	CloseTime   time.Time    `json:"close_time,omitzero"`            // zero = sin fecha de cierre
	Groups      []string     `json:"correlation_groups,omitempty"`
	Volume24h   float64      `json:"volume_24h,omitempty"`
	Resolution  *Resolution  `json:"resolution,omitempty"`
}

// HasCloseTime devuelve true si el mercado tiene fecha de cierre conocida.
func (m MarketSnapshot) HasCloseTime() bool {
	return !m.CloseTime.IsZero()
}

// TimeToClose devuelve el tiempo restante hasta el cierre relativo a now.
// Devuelve 0 si no hay fecha de cierre; puede ser negativo si ya cerró.
func (m MarketSnapshot) TimeToClose(now time.Time) time.Duration {
	if m.CloseTime.IsZero() {
		return 0
	}
	return m.CloseTime.Sub(now)
}

// IsResolved devuelve true si el snapshot trae una resolución.
func (m MarketSnapshot) IsResolved() bool {
	return m.Resolution != nil
}

// ValidProbability devuelve true si p es una probabilidad finita en [0,1].
func ValidProbability(p float64) bool {
	return !math.IsNaN(p) && p >= 0 && p <= 1
}

// Validate comprueba la forma mínima de un snapshot.
func (m MarketSnapshot) Validate() error {
	if m.ID == "" {
		return &ValidationError{Field: "id", Reason: "empty"}
	}
	if !ValidProbability(m.Probability) {
		return &ValidationError{Field: "probability", Reason: "outside [0,1]"}
	}
	for i := 1; i < len(m.History); i++ {
		if m.History[i].Timestamp.Before(m.History[i-1].Timestamp) {
			return &ValidationError{Field: "probability_history", Reason: "not chronological"}
		}
	}
	return nil
}

// TruncateTitle devuelve el título truncado a maxLen caracteres.
// Si el título está vacío usa el id como fallback.
func TruncateTitle(title, id string, maxLen int) string {
	t := title
	if t == "" {
		t = id
	}
	if len(t) > maxLen {
		t = t[:maxLen-3] + "..."
	}
	return t
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
