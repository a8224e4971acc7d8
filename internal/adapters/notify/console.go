package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/alejandrodnm/predbot/internal/domain"
	"github.com/alejandrodnm/predbot/internal/ports"
	"github.com/olekukonko/tablewriter"
)

// Console implementa ports.Notifier.
type Console struct {
	out   io.Writer
	table bool
	now   func() time.Time
}

// NewConsole crea un notificador que escribe a stdout.
func NewConsole(table bool) *Console {
	return &Console{out: os.Stdout, table: table, now: time.Now}
}

// NewConsoleWriter crea un notificador para tests.
func NewConsoleWriter(w io.Writer, table bool) *Console {
	return &Console{out: w, table: table, now: time.Now}
}

// NotifyCycle imprime el resumen del ciclo: una línea compacta y, en modo
// tabla, el detalle de decisiones y cierres.
func (c *Console) NotifyCycle(_ context.Context, s ports.CycleSummary) error {
	c.printCompact(s)
	if !c.table {
		return nil
	}
	if len(s.Decisions) > 0 {
		c.printDecisions(s.Decisions)
	}
	if len(s.Closed) > 0 {
		c.printClosed(s.Closed)
	}
	return nil
}

// printCompact imprime lo esencial en una línea.
func (c *Console) printCompact(s ports.CycleSummary) {
	now := c.now().Format("15:04:05")

	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] %d mkts → %d edges | +%d open | -%d closed",
		now, s.Markets, s.Candidates, len(s.Opened), len(s.Closed))
	if p := s.Portfolio; p != nil {
		fmt.Fprintf(&sb, " | cap $%.2f | pnl $%+.2f | %d pos", p.Capital, p.TotalPnL, len(p.Positions))
	}
	if s.Unrealized != 0 {
		fmt.Fprintf(&sb, " | unrl $%+.2f", s.Unrealized)
	}

	for i, pos := range s.Opened {
		if i >= 3 {
			fmt.Fprintf(&sb, " | +%d more", len(s.Opened)-i)
			break
		}
		fmt.Fprintf(&sb, " | %s %s $%.0f", pos.Side, compactName(pos.MarketTitle, pos.MarketID, 25), pos.Size)
	}
	fmt.Fprintln(c.out, sb.String())
}

// printDecisions imprime una fila por candidato evaluado.
func (c *Console) printDecisions(decisions []domain.Decision) {
	table := tablewriter.NewWriter(c.out)
	table.Header("#", "Strategy", "Market", "Side", "Edge", "Conf", "Action")

	for i, d := range decisions {
		table.Append(
			fmt.Sprintf("%d", i+1),
			d.Strategy.String(),
			compactName(d.MarketTitle, d.MarketID, 35),
			string(d.Side),
			fmt.Sprintf("%.1f%%", d.Edge*100),
			fmt.Sprintf("%.2f", d.Confidence),
			actionLabel(d),
		)
	}
	table.Render()
}

// printClosed imprime las posiciones cerradas en el ciclo.
func (c *Console) printClosed(closed []domain.Position) {
	table := tablewriter.NewWriter(c.out)
	table.Header("Market", "Side", "Entry", "Exit", "Stake", "PnL", "Reason")

	for _, pos := range closed {
		exit := "-"
		if pos.ExitProbability != nil {
			exit = fmt.Sprintf("%.1f%%", *pos.ExitProbability*100)
		}
		if pos.Outcome != nil {
			exit = string(*pos.Outcome)
		}
		table.Append(
			compactName(pos.MarketTitle, pos.MarketID, 35),
			string(pos.Side),
			fmt.Sprintf("%.1f%%", pos.EntryProbability*100),
			exit,
			fmt.Sprintf("$%.2f", pos.Size),
			fmt.Sprintf("$%+.2f", pos.RealizedPnL()),
			string(pos.CloseReason),
		)
	}
	table.Render()
}

// actionLabel resume la decisión: stake si se ejecutó, motivo si no.
func actionLabel(d domain.Decision) string {
	if d.Executed {
		return fmt.Sprintf("OPEN $%.2f", d.Stake)
	}
	if d.Reason == domain.ReasonNone {
		return "skip"
	}
	return "skip: " + string(d.Reason)
}

func compactName(title, id string, maxLen int) string {
	return domain.TruncateTitle(strings.TrimSpace(title), id, maxLen)
}
