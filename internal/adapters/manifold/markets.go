package manifold

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"

	"github.com/alejandrodnm/predbot/internal/domain"
)

const (
	marketsPath = "/markets"
	marketPath  = "/market/"
)

// FetchMarkets obtiene los mercados binarios activos con volumen suficiente,
// ordenados por volumen de 24h, y les añade el histórico de probabilidad.
// Cualquier fallo HTTP o de decodificación es un *domain.FetchError.
func (c *Client) FetchMarkets(ctx context.Context) ([]domain.MarketSnapshot, error) {
	q := url.Values{}
	q.Set("limit", fmt.Sprint(c.opts.MarketLimit))
	q.Set("sort", "volume24h")
	q.Set("order", "desc")

	var raw []apiMarket
	if err := c.get(ctx, c.base+marketsPath+"?"+q.Encode(), &raw); err != nil {
		return nil, &domain.FetchError{Op: "markets", Err: err}
	}

	markets := make([]domain.MarketSnapshot, 0, len(raw))
	dropped := 0
	for _, r := range raw {
		if !r.isBinary() || r.IsResolved || r.volume() < c.opts.MinVolume24h {
			continue
		}
		m, err := mapMarket(r, c.groups)
		if err != nil {
			slog.Warn("manifold: dropping invalid market", "id", r.ID, "err", err)
			dropped++
			continue
		}
		markets = append(markets, m)
		if c.opts.MaxMarkets > 0 && len(markets) >= c.opts.MaxMarkets {
			break
		}
	}

	if err := c.attachHistories(ctx, markets); err != nil {
		return nil, err
	}

	slog.Info("manifold: markets loaded",
		"received", len(raw),
		"active", len(markets),
		"dropped", dropped,
	)
	return markets, nil
}

// FetchMarket obtiene un mercado concreto, resuelto o no. Se usa para
// reconciliar posiciones abiertas que ya no aparecen en la lista activa.
// Un 404 envuelve domain.ErrMarketNotFound.
func (c *Client) FetchMarket(ctx context.Context, id string) (domain.MarketSnapshot, error) {
	var raw apiMarket
	if err := c.get(ctx, c.base+marketPath+url.PathEscape(id), &raw); err != nil {
		var se *statusError
		if errors.As(err, &se) && se.Code == http.StatusNotFound {
			err = fmt.Errorf("%s: %w", id, domain.ErrMarketNotFound)
		}
		return domain.MarketSnapshot{}, &domain.FetchError{Op: "market", Err: err}
	}
	m, err := mapMarket(raw, c.groups)
	if err != nil {
		return domain.MarketSnapshot{}, &domain.FetchError{Op: "market", Err: fmt.Errorf("%s: %w", id, err)}
	}
	return m, nil
}

// FetchHistory obtiene el histórico de probabilidad de un mercado en orden cronológico.
func (c *Client) FetchHistory(ctx context.Context, id string) ([]domain.PricePoint, error) {
	var raw []apiHistoryPoint
	if err := c.get(ctx, c.base+marketPath+url.PathEscape(id)+"/history", &raw); err != nil {
		return nil, &domain.FetchError{Op: "history", Err: fmt.Errorf("%s: %w", id, err)}
	}
	return mapHistory(raw), nil
}

// attachHistories descarga los históricos con un worker pool acotado; el rate
// limiter del cliente sigue limitando el total de requests. El primer error
// aborta el resto.
func (c *Client) attachHistories(ctx context.Context, markets []domain.MarketSnapshot) error {
	if len(markets) == 0 {
		return nil
	}
	parent := ctx
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	workCh := make(chan int, len(markets))
	for i := range markets {
		workCh <- i
	}
	close(workCh)

	var (
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
	)
	workers := min(c.opts.Workers, len(markets))
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range workCh {
				if ctx.Err() != nil {
					return
				}
				h, err := c.FetchHistory(ctx, markets[i].ID)
				if err != nil {
					once.Do(func() {
						firstErr = err
						cancel()
					})
					return
				}
				// cada worker escribe índices distintos
				markets[i].History = h
			}
		}()
	}
	wg.Wait()

	if firstErr != nil {
		return firstErr
	}
	if err := parent.Err(); err != nil {
		return &domain.FetchError{Op: "history", Err: err}
	}
	return nil
}
