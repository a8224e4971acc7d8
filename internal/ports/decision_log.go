package ports

import (
	"context"

	"github.com/alejandrodnm/predbot/internal/domain"
)

// DecisionLog es el audit trail append-only de candidatos evaluados.
type DecisionLog interface {
	// Append añade registros al final del log. Nunca reescribe.
	Append(ctx context.Context, decisions ...domain.Decision) error

	// Read devuelve todo el log en orden. Solo lo usa el reporte.
	Read(ctx context.Context) ([]domain.Decision, error)
}
