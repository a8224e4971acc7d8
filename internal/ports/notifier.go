package ports

import (
	"context"

	"github.com/alejandrodnm/predbot/internal/domain"
)

// CycleSummary es lo que el engine reporta al terminar un ciclo.
type CycleSummary struct {
	Markets    int
	Candidates int
	Decisions  []domain.Decision
	Opened     []domain.Position
	Closed     []domain.Position
	Portfolio  *domain.Portfolio
	Unrealized float64 // pnl mark-to-market de las posiciones abiertas
}

// Notifier presenta el resultado de cada ciclo al usuario.
type Notifier interface {
	NotifyCycle(ctx context.Context, summary CycleSummary) error
}
