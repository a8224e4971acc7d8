package ports

import (
	"context"

	"github.com/alejandrodnm/predbot/internal/domain"
)

// MarketProvider obtiene snapshots validados de los mercados activos.
type MarketProvider interface {
	// FetchMarkets devuelve los mercados activos con su histórico de probabilidad.
	// Un error aquí aborta el ciclo antes de cualquier mutación.
	FetchMarkets(ctx context.Context) ([]domain.MarketSnapshot, error)

	// FetchMarket devuelve el snapshot de un mercado concreto, resuelto o no.
	// Se usa para reconciliar posiciones abiertas que ya no aparecen como activas.
	FetchMarket(ctx context.Context, id string) (domain.MarketSnapshot, error)
}
