package domain

import (
	"sort"

	"github.com/shopspring/decimal"
)

// StrategyCount is the number of decisions recorded for one strategy.
type StrategyCount struct {
	Strategy StrategyKind
	Count    int
	Executed int
}

// PerformanceStats is the aggregate view of a paper trading run.
type PerformanceStats struct {
	Capital         float64
	TotalPnL        float64
	Deployed        float64
	OpenPositions   int
	ClosedPositions int
	Wins            int
	Losses          int
	WinRate         float64 // %
	GrossProfit     float64
	GrossLoss       float64
	AvgPnL          float64
	BestTrade       float64
	WorstTrade      float64

	TotalDecisions    int
	ExecutedDecisions int
	SkippedDecisions  int
	ByStrategy        []StrategyCount // sorted by count desc
	ByReason          map[RejectReason]int
}

// ComputeStats builds PerformanceStats from the portfolio and the decision trail.
// A closed position with pnl <= 0 counts as a loss.
func ComputeStats(p *Portfolio, decisions []Decision) PerformanceStats {
	stats := PerformanceStats{
		Capital:         p.Capital,
		TotalPnL:        p.TotalPnL,
		Deployed:        p.Deployed(),
		OpenPositions:   len(p.Positions),
		ClosedPositions: len(p.ClosedPositions),
		ByReason:        make(map[RejectReason]int),
	}

	profit, loss, total := decimal.Zero, decimal.Zero, decimal.Zero
	for i, pos := range p.ClosedPositions {
		pnl := decimal.NewFromFloat(pos.RealizedPnL())
		total = total.Add(pnl)
		if pnl.IsPositive() {
			stats.Wins++
			profit = profit.Add(pnl)
		} else {
			stats.Losses++
			loss = loss.Add(pnl)
		}
		f := pnl.InexactFloat64()
		if i == 0 || f > stats.BestTrade {
			stats.BestTrade = f
		}
		if i == 0 || f < stats.WorstTrade {
			stats.WorstTrade = f
		}
	}
	stats.GrossProfit = profit.InexactFloat64()
	stats.GrossLoss = loss.InexactFloat64()
	if n := len(p.ClosedPositions); n > 0 {
		stats.WinRate = float64(stats.Wins) / float64(n) * 100
		stats.AvgPnL = total.Div(decimal.NewFromInt(int64(n))).InexactFloat64()
	}

	counts := make(map[StrategyKind]*StrategyCount)
	for _, d := range decisions {
		stats.TotalDecisions++
		c, ok := counts[d.Strategy]
		if !ok {
			c = &StrategyCount{Strategy: d.Strategy}
			counts[d.Strategy] = c
		}
		c.Count++
		if d.Executed {
			stats.ExecutedDecisions++
			c.Executed++
		} else if d.Reason != ReasonNone {
			stats.ByReason[d.Reason]++
		}
	}
	stats.SkippedDecisions = stats.TotalDecisions - stats.ExecutedDecisions

	for _, c := range counts {
		stats.ByStrategy = append(stats.ByStrategy, *c)
	}
	sort.Slice(stats.ByStrategy, func(i, j int) bool {
		if stats.ByStrategy[i].Count != stats.ByStrategy[j].Count {
			return stats.ByStrategy[i].Count > stats.ByStrategy[j].Count
		}
		return stats.ByStrategy[i].Strategy < stats.ByStrategy[j].Strategy
	})
	return stats
}
