package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/olyamironova/limitbook/internal/core"
	"github.com/olyamironova/limitbook/internal/domain"
	"github.com/olyamironova/limitbook/internal/render"
	"github.com/shopspring/decimal"
)

const clearScreen = "\x1b[H\x1b[2J"

func main() {
	depth := flag.Int("depth", 20, "levels shown per side")
	noColor := flag.Bool("no-color", false, "disable ANSI colors")
	empty := flag.Bool("empty", false, "start with an empty book instead of the demo book")
	flag.Parse()

	eng := core.NewEngine(nil, nil)
	ctx := context.Background()
	if !*empty {
		if err := eng.Seed(ctx, core.DemoBook); err != nil {
			fmt.Fprintln(os.Stderr, "seed:", err)
			os.Exit(1)
		}
	}

	m := &menu{
		eng:     eng,
		in:      bufio.NewScanner(os.Stdin),
		out:     os.Stdout,
		depth:   *depth,
		colored: !*noColor && !color.NoColor,
	}
	m.run(ctx)
}

type menu struct {
	eng     *core.Engine
	in      *bufio.Scanner
	out     io.Writer
	depth   int
	colored bool
	last    string
}

func (m *menu) run(ctx context.Context) {
	for {
		if m.colored {
			fmt.Fprint(m.out, clearScreen)
		}
		fmt.Fprint(m.out, render.Book(m.eng.Snapshot(m.depth), m.colored))
		if m.last != "" {
			fmt.Fprintf(m.out, "\n%s\n", m.last)
		}
		fmt.Fprint(m.out, "\n--------------------\n0. Exit\n1. Add Limit Order\n2. Add Market Order\nChoice: ")

		line, ok := m.readLine()
		if !ok {
			fmt.Fprintln(m.out)
			return
		}
		choice, err := strconv.Atoi(line)
		if err != nil {
			continue
		}

		switch choice {
		case 0:
			return
		case 1:
			m.last = m.limit(ctx)
		case 2:
			m.last = m.market(ctx)
		}
	}
}

func (m *menu) limit(ctx context.Context) string {
	side, ok := m.side()
	if !ok {
		return "Unknown side."
	}
	fmt.Fprint(m.out, "\nEnter price: ")
	raw, _ := m.readLine()
	price, err := decimal.NewFromString(raw)
	if err != nil {
		return "Price must be a number."
	}
	qty, ok := m.quantity("Enter quantity: ")
	if !ok {
		return "Quantity must be a whole number."
	}
	res, err := m.eng.SubmitLimit(ctx, price, qty, side)
	if err != nil {
		return err.Error()
	}
	return render.Execution(res, res.Latency, m.colored)
}

func (m *menu) market(ctx context.Context) string {
	side, ok := m.side()
	if !ok {
		return "Unknown side."
	}
	qty, ok := m.quantity("\nEnter quantity: ")
	if !ok {
		return "Quantity must be a whole number."
	}
	res, err := m.eng.SubmitMarket(ctx, qty, side)
	if err != nil {
		return err.Error()
	}
	return render.Execution(res, res.Latency, m.colored)
}

func (m *menu) side() (domain.Side, bool) {
	fmt.Fprint(m.out, "1. Buy\n2. Sell\nChoice: ")
	line, _ := m.readLine()
	switch line {
	case "1":
		return domain.Buy, true
	case "2":
		return domain.Sell, true
	}
	return "", false
}

func (m *menu) quantity(prompt string) (int64, bool) {
	fmt.Fprint(m.out, prompt)
	line, _ := m.readLine()
	n, err := strconv.ParseInt(line, 10, 64)
	return n, err == nil
}

func (m *menu) readLine() (string, bool) {
	if !m.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(m.in.Text()), true
}
