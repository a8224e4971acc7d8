package ledger

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/predbot/internal/domain"
)

var now = time.Date(2026, 2, 21, 2, 0, 0, 0, time.UTC)

func newLedger(capital float64) *Ledger {
	return New(domain.NewPortfolio(capital, now), DefaultConfig())
}

func cand(marketID string, side domain.Side, p float64) domain.EdgeCandidate {
	return domain.EdgeCandidate{
		MarketID:    marketID,
		MarketTitle: "Title " + marketID,
		Kind:        domain.KindMeanReversion,
		Side:        side,
		Probability: p,
		Edge:        0.1,
		Confidence:  0.5,
	}
}

func TestOpen_DebitsCapital(t *testing.T) {
	l := newLedger(10000)

	pos, err := l.Open(cand("m1", domain.SideYes, 0.45), 500, now)

	require.NoError(t, err)
	assert.NotEmpty(t, pos.ID)
	assert.Equal(t, domain.PositionOpen, pos.Status)
	assert.Equal(t, domain.KindMeanReversion, pos.Strategy)
	assert.InDelta(t, 9500, l.Capital(), 1e-9)
	assert.True(t, l.HasOpen("m1"))
	assert.Len(t, l.OpenPositions(), 1)
}

func TestOpen_DuplicateLeavesStateUnchanged(t *testing.T) {
	l := newLedger(10000)
	first, err := l.Open(cand("m1", domain.SideYes, 0.45), 500, now)
	require.NoError(t, err)

	before := *l.Portfolio()
	before.Positions = l.OpenPositions()

	_, err = l.Open(cand("m1", domain.SideNo, 0.60), 200, now)

	var dup *domain.DuplicateMarketError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "m1", dup.MarketID)
	assert.Equal(t, first.ID, dup.PositionID)
	assert.Equal(t, before.Capital, l.Capital())
	assert.Equal(t, before.Positions, l.OpenPositions())
	assert.NoError(t, l.Portfolio().Validate())
}

func TestOpen_InvalidInputs(t *testing.T) {
	l := newLedger(1000)

	_, err := l.Open(cand("m1", domain.SideYes, 0), 100, now)
	assert.ErrorIs(t, err, domain.ErrInvalidProbability)

	_, err = l.Open(cand("m1", domain.SideYes, 1), 100, now)
	assert.ErrorIs(t, err, domain.ErrInvalidProbability)

	_, err = l.Open(cand("m1", domain.SideYes, 0.5), 0, now)
	assert.ErrorIs(t, err, domain.ErrInvalidStake)

	_, err = l.Open(cand("m1", domain.SideYes, 0.5), 1000.01, now)
	assert.ErrorIs(t, err, domain.ErrInvalidStake)

	assert.InDelta(t, 1000, l.Capital(), 1e-9)
	assert.Empty(t, l.OpenPositions())
}

func TestClose_ResolutionYes(t *testing.T) {
	l := newLedger(10000)
	pos, err := l.Open(cand("m1", domain.SideYes, 0.45), 500, now)
	require.NoError(t, err)

	pnl, err := l.Close(pos.ID, domain.ExitResolved(domain.Resolution{Outcome: domain.OutcomeYes}), now.Add(time.Hour))

	require.NoError(t, err)
	assert.InDelta(t, 611.11, pnl, 0.005)
	// 9500 + 500 + 611.11
	assert.InDelta(t, 10611.11, l.Capital(), 0.005)
	assert.InDelta(t, pnl, l.Portfolio().TotalPnL, 1e-9)
	assert.False(t, l.HasOpen("m1"))

	closed := l.Portfolio().ClosedPositions
	require.Len(t, closed, 1)
	assert.Equal(t, domain.PositionClosed, closed[0].Status)
	assert.Equal(t, domain.CloseResolution, closed[0].CloseReason)
	require.NotNil(t, closed[0].Outcome)
	assert.Equal(t, domain.OutcomeYes, *closed[0].Outcome)
	require.NotNil(t, closed[0].CloseTime)
	assert.NoError(t, l.Portfolio().Validate())
}

func TestClose_CancelRefunds(t *testing.T) {
	l := newLedger(1000)
	pos, err := l.Open(cand("m1", domain.SideNo, 0.3), 100, now)
	require.NoError(t, err)

	pnl, err := l.Close(pos.ID, domain.ExitResolved(domain.Resolution{Outcome: domain.OutcomeCancel}), now)

	require.NoError(t, err)
	assert.Zero(t, pnl)
	assert.InDelta(t, 1000, l.Capital(), 1e-9)
}

func TestClose_InvalidExitProbabilityLeavesStateUnchanged(t *testing.T) {
	for _, q := range []float64{3.0, -0.1, math.NaN(), math.Inf(1)} {
		l := newLedger(10000)
		pos, err := l.Open(cand("m1", domain.SideYes, 0.5), 100, now)
		require.NoError(t, err)

		pnl, err := l.Close(pos.ID, domain.ExitAt(q, domain.CloseManual), now)

		require.ErrorIs(t, err, domain.ErrInvalidProbability, "q=%v", q)
		assert.Zero(t, pnl)
		assert.InDelta(t, 9900, l.Capital(), 1e-9)
		assert.Zero(t, l.Portfolio().TotalPnL)
		assert.True(t, l.HasOpen("m1"))
		assert.Empty(t, l.Portfolio().ClosedPositions)
		assert.NoError(t, l.Portfolio().Validate())
	}
}

func TestClose_UnknownPosition(t *testing.T) {
	l := newLedger(1000)

	_, err := l.Close("nope", domain.ExitAt(0.5, domain.CloseManual), now)

	assert.True(t, errors.Is(err, domain.ErrPositionNotFound))
}

func TestMarkToMarket(t *testing.T) {
	l := newLedger(10000)
	tp, err := l.Open(cand("tp", domain.SideYes, 0.50), 100, now)
	require.NoError(t, err)
	sl, err := l.Open(cand("sl", domain.SideNo, 0.50), 100, now)
	require.NoError(t, err)
	_, err = l.Open(cand("hold", domain.SideYes, 0.50), 100, now)
	require.NoError(t, err)
	res, err := l.Open(cand("res", domain.SideNo, 0.40), 100, now)
	require.NoError(t, err)
	_, err = l.Open(cand("missing", domain.SideYes, 0.40), 100, now)
	require.NoError(t, err)

	markets := map[string]domain.MarketSnapshot{
		"tp":   {ID: "tp", Probability: 0.52},    // +4%
		"sl":   {ID: "sl", Probability: 0.52},    // -4%
		"hold": {ID: "hold", Probability: 0.505}, // +1%
		"res":  {ID: "res", Probability: 0.0, Resolution: &domain.Resolution{Outcome: domain.OutcomeNo}},
	}

	closed := l.MarkToMarket(markets, now.Add(time.Hour))

	require.Len(t, closed, 3)
	byID := map[string]domain.Position{}
	for _, p := range closed {
		byID[p.ID] = p
	}
	assert.Equal(t, domain.CloseTakeProfit, byID[tp.ID].CloseReason)
	assert.Equal(t, domain.CloseStopLoss, byID[sl.ID].CloseReason)
	assert.Equal(t, domain.CloseResolution, byID[res.ID].CloseReason)
	// NO a 0.40 resuelto NO: 100 × 0.40 / 0.60
	assert.InDelta(t, 66.67, byID[res.ID].RealizedPnL(), 0.005)

	assert.True(t, l.HasOpen("hold"))
	assert.True(t, l.HasOpen("missing"))
	assert.Len(t, l.OpenPositions(), 2)
	assert.NoError(t, l.Portfolio().Validate())
}

func TestUnrealized(t *testing.T) {
	l := newLedger(1000)
	_, err := l.Open(cand("m1", domain.SideYes, 0.50), 100, now)
	require.NoError(t, err)
	_, err = l.Open(cand("m2", domain.SideNo, 0.50), 100, now)
	require.NoError(t, err)

	got := l.Unrealized(map[string]domain.MarketSnapshot{
		"m1": {ID: "m1", Probability: 0.60},
		"m2": {ID: "m2", Probability: 0.55},
	})

	// +20 en m1, -10 en m2
	assert.InDelta(t, 10, got, 1e-9)
}

func TestLedger_PnLReconcilesAcrossManyCloses(t *testing.T) {
	l := newLedger(10000)
	for i, q := range []float64{0.1, 0.33, 0.71, 0.9, 0.02, 0.5} {
		c := cand(string(rune('a'+i)), domain.SideYes, 0.37)
		pos, err := l.Open(c, 123.45, now)
		require.NoError(t, err)
		_, err = l.Close(pos.ID, domain.ExitAt(q, domain.CloseManual), now)
		require.NoError(t, err)
		require.NoError(t, l.Portfolio().Validate())
	}
	assert.Len(t, l.Portfolio().ClosedPositions, 6)
}
