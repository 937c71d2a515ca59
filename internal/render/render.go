// Package render formats books and execution reports for terminals.
package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/olyamironova/limitbook/internal/domain"
)

const rule = "--------------------"

type palette struct {
	ask, bid, note *color.Color
}

// newPalette builds colors with their own enable flag so rendering never
// depends on color.NoColor or the attached terminal.
func newPalette(enabled bool) palette {
	p := palette{
		ask:  color.New(color.FgRed),
		bid:  color.New(color.FgGreen),
		note: color.New(color.FgYellow),
	}
	for _, c := range []*color.Color{p.ask, p.bid, p.note} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

// Book draws a price ladder: asks from worst down to best, a rule, then bids
// from best down to worst, so the spread sits in the middle.
func Book(snap domain.BookSnapshot, colored bool) string {
	p := newPalette(colored)
	var b strings.Builder

	b.WriteString("Price | Quantity\n")
	b.WriteString("Asks:\n")
	for i := len(snap.Asks) - 1; i >= 0; i-- {
		b.WriteString(p.ask.Sprint(levelLine(snap.Asks[i])))
		b.WriteByte('\n')
	}
	b.WriteString(rule + "\n")
	b.WriteString("Bids:\n")
	for _, l := range snap.Bids {
		b.WriteString(p.bid.Sprint(levelLine(l)))
		b.WriteByte('\n')
	}
	return b.String()
}

func levelLine(l domain.BookLevel) string {
	return fmt.Sprintf("%s | %d", l.Price.String(), l.Quantity)
}

// Execution describes the outcome of one submit the way the menu reports it.
func Execution(res domain.ExecutionResult, latency time.Duration, colored bool) string {
	if !res.Traded {
		if res.Type == domain.Market {
			return "No liquidity available for market order."
		}
		return "No trades were made. Request added to book"
	}

	p := newPalette(colored)
	msg := fmt.Sprintf("Last trade latency: %d nanoseconds.\nFilled %d out of %d requested.",
		latency.Nanoseconds(), res.Filled, res.Requested)
	if avg, ok := res.AvgPrice(); ok {
		msg += fmt.Sprintf("\nAverage price %s over %d trade(s).", avg.Round(8).String(), res.TradeCount)
	}
	return p.note.Sprint(msg)
}
