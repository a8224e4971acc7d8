package fixture_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/predbot/internal/adapters/fixture"
	"github.com/alejandrodnm/predbot/internal/domain"
	"github.com/alejandrodnm/predbot/internal/strategy"
)

var now = time.Date(2026, 2, 21, 2, 0, 0, 0, time.UTC)

func TestDemo_ExercisesEveryStrategy(t *testing.T) {
	markets := fixture.Demo(now)
	for _, m := range markets {
		require.NoError(t, m.Validate(), m.ID)
	}

	set := strategy.NewDefaultSet(strategy.DefaultConfig(), strategy.Contrarian{})
	kinds := map[domain.StrategyKind]bool{}
	for _, c := range set.DetectAll(markets, now) {
		kinds[c.Kind] = true
		assert.NotEqual(t, "demo-4", c.MarketID, "flat market has no signal")
	}

	assert.True(t, kinds[domain.KindMeanReversion])
	assert.True(t, kinds[domain.KindResolutionArbitrage])
	assert.True(t, kinds[domain.KindCorrelationLag])
}

func TestProvider_FetchMarkets(t *testing.T) {
	resolved := domain.MarketSnapshot{ID: "r", Probability: 1, Resolution: &domain.Resolution{Outcome: domain.OutcomeYes}}
	invalid := domain.MarketSnapshot{ID: "bad", Probability: 2}
	p := fixture.NewProvider(append(fixture.Demo(now), resolved, invalid))
	ctx := context.Background()

	markets, err := p.FetchMarkets(ctx)
	require.NoError(t, err)
	assert.Len(t, markets, 4)

	m, err := p.FetchMarket(ctx, "r")
	require.NoError(t, err)
	assert.True(t, m.IsResolved())

	_, err = p.FetchMarket(ctx, "bad")
	assert.True(t, domain.IsFetchError(err))
	assert.ErrorIs(t, err, domain.ErrMarketNotFound)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "markets.json")
	data, err := json.Marshal(fixture.Demo(now))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	p, err := fixture.LoadFile(path)
	require.NoError(t, err)

	markets, err := p.FetchMarkets(context.Background())
	require.NoError(t, err)
	assert.Equal(t, fixture.Demo(now), markets)
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := fixture.LoadFile(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}
