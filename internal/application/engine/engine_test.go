package engine_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/predbot/internal/application/engine"
	"github.com/alejandrodnm/predbot/internal/domain"
	"github.com/alejandrodnm/predbot/internal/ledger"
	"github.com/alejandrodnm/predbot/internal/ports"
	"github.com/alejandrodnm/predbot/internal/risk"
	"github.com/alejandrodnm/predbot/internal/strategy"
)

var now = time.Date(2026, 2, 21, 2, 0, 0, 0, time.UTC)

// --- fakes ---

type fakeProvider struct {
	markets   []domain.MarketSnapshot
	byID      map[string]domain.MarketSnapshot
	err       error
	marketErr error
}

func (f *fakeProvider) FetchMarkets(context.Context) ([]domain.MarketSnapshot, error) {
	return f.markets, f.err
}

func (f *fakeProvider) FetchMarket(_ context.Context, id string) (domain.MarketSnapshot, error) {
	if f.marketErr != nil {
		return domain.MarketSnapshot{}, f.marketErr
	}
	m, ok := f.byID[id]
	if !ok {
		return domain.MarketSnapshot{}, &domain.FetchError{Op: "market", Err: domain.ErrMarketNotFound}
	}
	return m, nil
}

// memStore serializa a JSON para que el engine nunca comparta punteros con el estado guardado.
type memStore struct {
	data  []byte
	saves int
}

func (s *memStore) Load(context.Context) (*domain.Portfolio, error) {
	if s.data == nil {
		return nil, domain.ErrPortfolioNotFound
	}
	var p domain.Portfolio
	if err := json.Unmarshal(s.data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *memStore) Save(_ context.Context, p *domain.Portfolio) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	s.data = data
	s.saves++
	return nil
}

func (s *memStore) portfolio(t *testing.T) *domain.Portfolio {
	t.Helper()
	p, err := s.Load(context.Background())
	require.NoError(t, err)
	return p
}

type memLog struct {
	decisions []domain.Decision
}

func (l *memLog) Append(_ context.Context, d ...domain.Decision) error {
	l.decisions = append(l.decisions, d...)
	return nil
}

func (l *memLog) Read(context.Context) ([]domain.Decision, error) { return l.decisions, nil }

type recordingNotifier struct {
	summaries []ports.CycleSummary
}

func (n *recordingNotifier) NotifyCycle(_ context.Context, s ports.CycleSummary) error {
	n.summaries = append(n.summaries, s)
	return nil
}

// stubDetector emite un candidato fijo para su mercado.
type stubDetector struct {
	c domain.EdgeCandidate
}

func (d stubDetector) Kind() domain.StrategyKind { return d.c.Kind }

func (d stubDetector) Detect(m domain.MarketSnapshot, _ time.Time) (domain.EdgeCandidate, bool) {
	if m.ID != d.c.MarketID {
		return domain.EdgeCandidate{}, false
	}
	return d.c, true
}

// --- helpers ---

// movedMarket devuelve un mercado que subió 25 puntos en 24h (escenario A).
func movedMarket(id string) domain.MarketSnapshot {
	return domain.MarketSnapshot{
		ID:          id,
		Title:       "Market " + id,
		Probability: 0.75,
		History: []domain.PricePoint{
			{Timestamp: now.Add(-24 * time.Hour), Probability: 0.50},
			{Timestamp: now, Probability: 0.75},
		},
	}
}

type harness struct {
	provider *fakeProvider
	store    *memStore
	log      *memLog
	notifier *recordingNotifier
	engine   *engine.Engine
}

func newHarness(markets []domain.MarketSnapshot, set *strategy.Set, cfg engine.Config) *harness {
	h := &harness{
		provider: &fakeProvider{markets: markets, byID: map[string]domain.MarketSnapshot{}},
		store:    &memStore{},
		log:      &memLog{},
		notifier: &recordingNotifier{},
	}
	if set == nil {
		set = strategy.NewDefaultSet(strategy.DefaultConfig(), strategy.NoDirection{})
	}
	if cfg.Ledger == (ledger.Config{}) {
		cfg.Ledger = ledger.DefaultConfig()
	}
	h.engine = engine.New(engine.Deps{
		Markets:   h.provider,
		Store:     h.store,
		Decisions: h.log,
		Notifier:  h.notifier,
		Detectors: set,
		Sizer:     risk.NewSizer(risk.DefaultConfig()),
		Clock:     func() time.Time { return now },
	}, cfg)
	return h
}

// --- tests ---

func TestRunOnce_OpensPositionAndPersists(t *testing.T) {
	h := newHarness([]domain.MarketSnapshot{movedMarket("m1")}, nil, engine.Config{InitialCapital: 10000})

	res, err := h.engine.RunOnce(context.Background())

	require.NoError(t, err)
	require.Len(t, res.Opened, 1)
	pos := res.Opened[0]
	assert.Equal(t, domain.SideNo, pos.Side)
	// 2 × 0.20 × 0.25 × 10000 = 1000, justo el máximo por posición
	assert.InDelta(t, 1000, pos.Size, 1e-9)

	require.Len(t, h.log.decisions, 1)
	d := h.log.decisions[0]
	assert.True(t, d.Executed)
	assert.Equal(t, pos.ID, d.PositionID)
	assert.InDelta(t, 1000, d.Stake, 1e-9)
	assert.Equal(t, domain.KindMeanReversion, d.Strategy)

	assert.Equal(t, 1, h.store.saves)
	saved := h.store.portfolio(t)
	assert.InDelta(t, 9000, saved.Capital, 1e-9)
	assert.Len(t, saved.Positions, 1)
	assert.NoError(t, saved.Validate())

	require.Len(t, h.notifier.summaries, 1)
	assert.Equal(t, 1, h.notifier.summaries[0].Markets)
}

func TestRunOnce_SameSnapshotTwiceIsRejectedAsDuplicate(t *testing.T) {
	h := newHarness([]domain.MarketSnapshot{movedMarket("m1")}, nil, engine.Config{})
	ctx := context.Background()

	_, err := h.engine.RunOnce(ctx)
	require.NoError(t, err)
	res, err := h.engine.RunOnce(ctx)
	require.NoError(t, err)

	assert.Empty(t, res.Opened)
	require.Len(t, h.log.decisions, 2)
	second := h.log.decisions[1]
	assert.False(t, second.Executed)
	assert.Equal(t, domain.ReasonDuplicatePosition, second.Reason)

	saved := h.store.portfolio(t)
	assert.Len(t, saved.Positions, 1)
	assert.InDelta(t, 9000, saved.Capital, 1e-9)
}

func TestRunOnce_FetchErrorAbortsWithoutMutation(t *testing.T) {
	h := newHarness([]domain.MarketSnapshot{movedMarket("m1")}, nil, engine.Config{})
	ctx := context.Background()
	_, err := h.engine.RunOnce(ctx)
	require.NoError(t, err)
	before := string(h.store.data)

	h.provider.err = &domain.FetchError{Op: "markets", Err: errors.New("connection refused")}
	_, err = h.engine.RunOnce(ctx)

	require.Error(t, err)
	assert.True(t, domain.IsFetchError(err))
	assert.Equal(t, 1, h.store.saves)
	assert.Equal(t, before, string(h.store.data))
	assert.Len(t, h.log.decisions, 1)
}

func TestRunOnce_NoMarkets(t *testing.T) {
	h := newHarness(nil, nil, engine.Config{})

	_, err := h.engine.RunOnce(context.Background())

	assert.ErrorIs(t, err, domain.ErrNoMarkets)
	assert.Zero(t, h.store.saves)
	assert.Empty(t, h.log.decisions)
}

func TestRunOnce_RejectedCandidateIsStillLogged(t *testing.T) {
	weak := domain.EdgeCandidate{
		MarketID: "m1", MarketTitle: "Weak", Kind: domain.KindMeanReversion,
		Side: domain.SideYes, Probability: 0.4, Edge: 0.03, Confidence: 0.6,
	}
	set := strategy.NewSet().Register(stubDetector{c: weak})
	h := newHarness([]domain.MarketSnapshot{{ID: "m1", Probability: 0.4}}, set, engine.Config{})

	res, err := h.engine.RunOnce(context.Background())

	require.NoError(t, err)
	assert.Empty(t, res.Opened)
	require.Len(t, h.log.decisions, 1)
	d := h.log.decisions[0]
	assert.False(t, d.Executed)
	assert.Equal(t, domain.ReasonEdgeBelowThreshold, d.Reason)
	assert.InDelta(t, 0.03, d.Edge, 1e-9)
	assert.Zero(t, d.Stake)
	assert.InDelta(t, 10000, h.store.portfolio(t).Capital, 1e-9)
}

func TestRunOnce_TradeLimit(t *testing.T) {
	markets := []domain.MarketSnapshot{movedMarket("a"), movedMarket("b"), movedMarket("c"), movedMarket("d")}
	h := newHarness(markets, nil, engine.Config{MaxTradesPerCycle: 3})

	res, err := h.engine.RunOnce(context.Background())

	require.NoError(t, err)
	assert.Len(t, res.Opened, 3)
	require.Len(t, h.log.decisions, 4)
	assert.Equal(t, domain.ReasonTradeLimit, h.log.decisions[3].Reason)
	assert.False(t, h.log.decisions[3].Executed)
}

func TestRunOnce_ResolvesPositionMissingFromActiveList(t *testing.T) {
	h := newHarness([]domain.MarketSnapshot{movedMarket("m1")}, nil, engine.Config{})
	ctx := context.Background()
	first, err := h.engine.RunOnce(ctx)
	require.NoError(t, err)
	pos := first.Opened[0]

	// m1 sale de la lista activa y resuelve NO: la posición NO a 0.75 gana.
	h.provider.markets = []domain.MarketSnapshot{{ID: "other", Probability: 0.5}}
	h.provider.byID["m1"] = domain.MarketSnapshot{
		ID: "m1", Probability: 0.01, Resolution: &domain.Resolution{Outcome: domain.OutcomeNo},
	}

	res, err := h.engine.RunOnce(ctx)

	require.NoError(t, err)
	require.Len(t, res.Closed, 1)
	closed := res.Closed[0]
	assert.Equal(t, pos.ID, closed.ID)
	assert.Equal(t, domain.CloseResolution, closed.CloseReason)
	// 1000 × 0.75 / 0.25
	assert.InDelta(t, 3000, closed.RealizedPnL(), 1e-6)

	saved := h.store.portfolio(t)
	assert.Empty(t, saved.Positions)
	assert.InDelta(t, 13000, saved.Capital, 1e-6)
	assert.InDelta(t, 3000, saved.TotalPnL, 1e-6)
	assert.NoError(t, saved.Validate())
}

func TestRunOnce_MissingOpenMarketFetchFailureAborts(t *testing.T) {
	h := newHarness([]domain.MarketSnapshot{movedMarket("m1")}, nil, engine.Config{})
	ctx := context.Background()
	_, err := h.engine.RunOnce(ctx)
	require.NoError(t, err)

	h.provider.markets = []domain.MarketSnapshot{{ID: "other", Probability: 0.5}}
	h.provider.marketErr = &domain.FetchError{Op: "market", Err: errors.New("timeout")}

	_, err = h.engine.RunOnce(ctx)

	assert.True(t, domain.IsFetchError(err))
	assert.Equal(t, 1, h.store.saves)
}

func TestRunOnce_DeletedMarketKeepsPositionOpen(t *testing.T) {
	h := newHarness([]domain.MarketSnapshot{movedMarket("m1")}, nil, engine.Config{})
	ctx := context.Background()
	first, err := h.engine.RunOnce(ctx)
	require.NoError(t, err)
	require.Len(t, first.Opened, 1)

	// m1 desaparece: FetchMarket devuelve not found en todos los ciclos
	h.provider.markets = []domain.MarketSnapshot{{ID: "other", Probability: 0.5}}

	for i := 0; i < 2; i++ {
		res, err := h.engine.RunOnce(ctx)
		require.NoError(t, err)
		assert.Empty(t, res.Closed)
	}

	saved := h.store.portfolio(t)
	require.Len(t, saved.Positions, 1)
	assert.Equal(t, first.Opened[0].ID, saved.Positions[0].ID)
	assert.Equal(t, 3, h.store.saves)
	assert.NoError(t, saved.Validate())
}

func TestRunOnce_TradeLimitKeepsSizingReason(t *testing.T) {
	strong := func(id string) domain.EdgeCandidate {
		return domain.EdgeCandidate{
			MarketID: id, MarketTitle: "Strong " + id, Kind: domain.KindMeanReversion,
			Side: domain.SideYes, Probability: 0.4, Edge: 0.2, Confidence: 0.6,
		}
	}
	weak := domain.EdgeCandidate{
		MarketID: "weak", MarketTitle: "Weak", Kind: domain.KindMeanReversion,
		Side: domain.SideYes, Probability: 0.4, Edge: 0.03, Confidence: 0.6,
	}
	set := strategy.NewSet().
		Register(stubDetector{c: strong("s1")}).
		Register(stubDetector{c: strong("s2")}).
		Register(stubDetector{c: weak})
	markets := []domain.MarketSnapshot{
		{ID: "s1", Probability: 0.4}, {ID: "s2", Probability: 0.4}, {ID: "weak", Probability: 0.4},
	}
	h := newHarness(markets, set, engine.Config{MaxTradesPerCycle: 1})

	res, err := h.engine.RunOnce(context.Background())

	require.NoError(t, err)
	require.Len(t, res.Opened, 1)
	reasons := map[string]domain.RejectReason{}
	executed := 0
	for _, d := range h.log.decisions {
		if d.Executed {
			executed++
			continue
		}
		reasons[d.MarketID] = d.Reason
	}
	assert.Equal(t, 1, executed)
	assert.Equal(t, domain.ReasonEdgeBelowThreshold, reasons["weak"], "below-threshold candidates keep their own reason after the limit")
	assert.Len(t, reasons, 2)
	for id, r := range reasons {
		if id != "weak" {
			assert.Equal(t, domain.ReasonTradeLimit, r)
		}
	}
}

func TestRunOnce_CorruptPortfolioIsNotOverwritten(t *testing.T) {
	h := newHarness([]domain.MarketSnapshot{movedMarket("m1")}, nil, engine.Config{})
	corrupt := domain.NewPortfolio(10000, now)
	corrupt.TotalPnL = 42
	require.NoError(t, h.store.Save(context.Background(), corrupt))
	h.store.saves = 0

	_, err := h.engine.RunOnce(context.Background())

	var inv *domain.InvariantError
	require.ErrorAs(t, err, &inv)
	assert.Equal(t, "total_pnl_reconciles", inv.Rule)
	assert.Zero(t, h.store.saves)
}

func TestRunOnce_PnLInvariantHoldsAcrossCycles(t *testing.T) {
	set := strategy.NewDefaultSet(strategy.DefaultConfig(), strategy.Contrarian{})
	markets := []domain.MarketSnapshot{
		movedMarket("a"),
		{ID: "b", Probability: 0.45, CloseTime: now.Add(48 * time.Hour), Groups: []string{"g"}},
		{ID: "c", Probability: 0.70, Groups: []string{"g"}},
	}
	h := newHarness(markets, set, engine.Config{})
	ctx := context.Background()

	for i, q := range []float64{0.75, 0.80, 0.60, 0.40} {
		markets[0].Probability = q
		h.provider.markets = markets
		_, err := h.engine.RunOnce(ctx)
		require.NoError(t, err, "cycle %d", i)
		require.NoError(t, h.store.portfolio(t).Validate(), "cycle %d", i)
	}
}
