package ports

import (
	"context"

	"github.com/alejandrodnm/predbot/internal/domain"
)

// PortfolioStore persiste el snapshot del portfolio entre invocaciones.
type PortfolioStore interface {
	// Load devuelve el último snapshot guardado, o domain.ErrPortfolioNotFound.
	Load(ctx context.Context) (*domain.Portfolio, error)

	// Save sobreescribe el snapshot completo. Se llama una vez al final del ciclo.
	Save(ctx context.Context, p *domain.Portfolio) error
}
