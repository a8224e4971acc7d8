package manifold

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultBase = "https://api.manifold.markets/v0"

	// Manifold permite 500 req/min por IP; usamos ~60%: 300/min → 5/s.
	apiRatePerSec = 5
	apiBurst      = 10

	maxRetries    = 3
	baseRetryWait = 500 * time.Millisecond
	maxRetryAfter = 30 * time.Second
)

// statusError es una respuesta 4xx que no se reintenta.
type statusError struct {
	Code int
	Body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("client error %d: %s", e.Code, e.Body)
}

// Options configura el cliente de Manifold.
type Options struct {
	BaseURL      string
	MarketLimit  int      // tamaño de la página de /markets
	MinVolume24h float64  // descarta mercados con menos volumen
	MaxMarkets   int      // analiza solo los top N por volumen (0 = todos)
	Groups       []string // groupSlugs que cuentan como grupos de correlación
	Workers      int      // fetch concurrente de históricos
}

// Client es el HTTP client de Manifold con rate limiting y retries.
// Implementa ports.MarketProvider.
type Client struct {
	http    *http.Client
	base    string
	limiter *rate.Limiter
	opts    Options
	groups  map[string]bool
}

// NewClient crea un Client. Si BaseURL está vacío usa el de producción.
func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBase
	}
	if opts.MarketLimit <= 0 {
		opts.MarketLimit = 1000
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	groups := make(map[string]bool, len(opts.Groups))
	for _, g := range opts.Groups {
		groups[g] = true
	}
	return &Client{
		http:    &http.Client{Timeout: 10 * time.Second},
		base:    strings.TrimRight(opts.BaseURL, "/"),
		limiter: rate.NewLimiter(apiRatePerSec, apiBurst),
		opts:    opts,
		groups:  groups,
	}
}

// get hace un GET con rate limiting y retries.
func (c *Client) get(ctx context.Context, url string, out any) error {
	return c.doWithRetry(ctx, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		return c.http.Do(req)
	}, out)
}

// doWithRetry ejecuta la función con backoff exponencial.
func (c *Client) doWithRetry(ctx context.Context, fn func() (*http.Response, error), out any) error {
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		resp, err := fn()
		if err != nil {
			if attempt == maxRetries {
				return fmt.Errorf("request failed after %d retries: %w", maxRetries, err)
			}
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			resp.Body.Close()
			if attempt == maxRetries {
				return fmt.Errorf("rate limited (429) after %d retries", maxRetries)
			}
			wait, ok := retryAfter(resp.Header.Get("Retry-After"), time.Now())
			if !ok {
				wait = backoff(attempt)
			}
			slog.Warn("manifold: rate limited", "attempt", attempt+1, "wait", wait)
			pause(ctx, wait)
			continue
		}

		if resp.StatusCode >= 500 {
			resp.Body.Close()
			if attempt == maxRetries {
				return fmt.Errorf("server error %d after %d retries", resp.StatusCode, maxRetries)
			}
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode >= 400 {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			resp.Body.Close()
			return &statusError{Code: resp.StatusCode, Body: string(body)}
		}

		err = json.NewDecoder(resp.Body).Decode(out)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	}
	return fmt.Errorf("exhausted %d retries", maxRetries)
}

// sleep espera con backoff exponencial, respetando el contexto.
func (c *Client) sleep(ctx context.Context, attempt int) {
	pause(ctx, backoff(attempt))
}

func backoff(attempt int) time.Duration {
	return time.Duration(math.Pow(2, float64(attempt))) * baseRetryWait
}

func pause(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case <-time.After(d):
	case <-ctx.Done():
	}
}

// retryAfter interpreta el header Retry-After (segundos o fecha HTTP),
// acotado a maxRetryAfter. ok=false si falta o no se entiende.
func retryAfter(h string, now time.Time) (time.Duration, bool) {
	h = strings.TrimSpace(h)
	if h == "" {
		return 0, false
	}
	var d time.Duration
	if secs, err := strconv.Atoi(h); err == nil {
		if secs < 0 {
			return 0, false
		}
		d = time.Duration(secs) * time.Second
	} else if t, err := http.ParseTime(h); err == nil {
		d = t.Sub(now)
		if d < 0 {
			d = 0
		}
	} else {
		return 0, false
	}
	return min(d, maxRetryAfter), true
}
