package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrPositionNotFound is returned when closing an unknown position id.
	ErrPositionNotFound = errors.New("position not found")

	// ErrInvalidStake is returned when a stake is not positive or exceeds capital.
	ErrInvalidStake = errors.New("invalid stake")

	// ErrInvalidProbability is returned when an entry probability is not inside
	// (0,1) or an exit probability is not inside [0,1].
	ErrInvalidProbability = errors.New("invalid probability")

	// ErrNoMarkets is returned when the provider returned no active markets.
	ErrNoMarkets = errors.New("no markets fetched")

	// ErrMarketNotFound is returned by providers when a market id no longer exists.
	ErrMarketNotFound = errors.New("market not found")

	// ErrPortfolioNotFound is returned by stores when no snapshot has been saved yet.
	ErrPortfolioNotFound = errors.New("portfolio not found")
)

// DuplicateMarketError is returned when opening a position on a market that
// already has one open.
type DuplicateMarketError struct {
	MarketID   string
	PositionID string
}

func (e *DuplicateMarketError) Error() string {
	return fmt.Sprintf("duplicate position for market %s (open position %s)", e.MarketID, e.PositionID)
}

// FetchError wraps a failure of the market data source. It aborts the cycle.
type FetchError struct {
	Op  string // e.g. "markets", "history", "market"
	Err error
}

func (e *FetchError) Error() string {
	return "fetch " + e.Op + ": " + e.Err.Error()
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// IsFetchError reports whether err is (or wraps) a FetchError.
func IsFetchError(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe)
}

// ValidationError reports a malformed snapshot field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid " + e.Field + ": " + e.Reason
}

// InvariantError reports a broken portfolio invariant.
type InvariantError struct {
	Rule   string
	Detail string
}

func (e *InvariantError) Error() string {
	return "portfolio invariant " + e.Rule + " violated: " + e.Detail
}
