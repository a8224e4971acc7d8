package notify

import (
	"fmt"
	"sort"

	"github.com/alejandrodnm/predbot/internal/domain"
	"github.com/olekukonko/tablewriter"
)

// PrintReport imprime el reporte de rendimiento del paper trading.
func (c *Console) PrintReport(stats domain.PerformanceStats, open []domain.Position) {
	fmt.Fprintf(c.out, "\n========================================================\n")
	fmt.Fprintf(c.out, "  PAPER TRADING REPORT  %s\n", c.now().Format("2006-01-02 15:04"))
	fmt.Fprintf(c.out, "========================================================\n")

	fmt.Fprintf(c.out, "\n  --- PORTFOLIO ---\n")
	fmt.Fprintf(c.out, "  Capital:               $%.2f\n", stats.Capital)
	fmt.Fprintf(c.out, "  Deployed:              $%.2f\n", stats.Deployed)
	fmt.Fprintf(c.out, "  Total P&L:             $%+.2f\n", stats.TotalPnL)
	fmt.Fprintf(c.out, "  Open positions:        %d\n", stats.OpenPositions)
	fmt.Fprintf(c.out, "  Closed positions:      %d\n", stats.ClosedPositions)

	if stats.ClosedPositions > 0 {
		fmt.Fprintf(c.out, "\n  --- TRADES ---\n")
		fmt.Fprintf(c.out, "  Wins / Losses:         %d / %d (%.1f%% win rate)\n", stats.Wins, stats.Losses, stats.WinRate)
		fmt.Fprintf(c.out, "  Gross profit:          $%.2f\n", stats.GrossProfit)
		fmt.Fprintf(c.out, "  Gross loss:            $%.2f\n", stats.GrossLoss)
		fmt.Fprintf(c.out, "  Avg P&L per trade:     $%+.2f\n", stats.AvgPnL)
		fmt.Fprintf(c.out, "  Best / worst trade:    $%+.2f / $%+.2f\n", stats.BestTrade, stats.WorstTrade)
	}

	if len(open) > 0 {
		fmt.Fprintf(c.out, "\n  --- OPEN POSITIONS ---\n")
		tbl := tablewriter.NewWriter(c.out)
		tbl.Header("Market", "Strategy", "Side", "Entry", "Stake", "Opened")
		for _, pos := range open {
			tbl.Append(
				compactName(pos.MarketTitle, pos.MarketID, 35),
				pos.Strategy.String(),
				string(pos.Side),
				fmt.Sprintf("%.1f%%", pos.EntryProbability*100),
				fmt.Sprintf("$%.2f", pos.Size),
				pos.EntryTime.Format("01-02 15:04"),
			)
		}
		tbl.Render()
	}

	fmt.Fprintf(c.out, "\n  --- DECISIONS ---\n")
	fmt.Fprintf(c.out, "  Total:                 %d\n", stats.TotalDecisions)
	fmt.Fprintf(c.out, "  Executed:              %d\n", stats.ExecutedDecisions)
	fmt.Fprintf(c.out, "  Skipped:               %d\n", stats.SkippedDecisions)

	if len(stats.ByStrategy) > 0 {
		tbl := tablewriter.NewWriter(c.out)
		tbl.Header("Strategy", "Signals", "Executed")
		for _, s := range stats.ByStrategy {
			tbl.Append(s.Strategy.String(), fmt.Sprintf("%d", s.Count), fmt.Sprintf("%d", s.Executed))
		}
		tbl.Render()
	}

	if len(stats.ByReason) > 0 {
		reasons := make([]string, 0, len(stats.ByReason))
		for r := range stats.ByReason {
			reasons = append(reasons, string(r))
		}
		sort.Strings(reasons)
		fmt.Fprintf(c.out, "\n  Skip reasons:\n")
		for _, r := range reasons {
			fmt.Fprintf(c.out, "    %-22s %d\n", r, stats.ByReason[domain.RejectReason(r)])
		}
	}
	fmt.Fprintln(c.out)
}
