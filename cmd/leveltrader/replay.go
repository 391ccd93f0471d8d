package main

import (
	"context"
	"sync"
	"time"

	"github.com/evdnx/levelbot/engine"
	"github.com/evdnx/levelbot/executor"
	"github.com/evdnx/levelbot/types"
)

// replayMarket exposes only the bars completed before the current tick, so
// the engine sees history the way it would live.
type replayMarket struct {
	sym    types.SymbolInfo
	paper *executor.PaperGateway
	bars   types.BarSeries
	daily  types.BarSeries
	done   int
	quote  types.Quote
	spread float64
}

func (m *replayMarket) Quote() types.Quote { return m.quote }
func (m *replayMarket) Symbol() types.SymbolInfo { return m.sym }
func (m *replayMarket) Account() types.Account { return m.paper.Account() }
func (m *replayMarket) Bars() types.Series { return m.bars[:m.done] }

func (m *replayMarket) DailyBars() types.Series {
	n := 0
	for n < len(m.daily) && !m.daily[n].OpenTime.Add(24*time.Hour).After(m.quote.Time) {
		n++
	}
	return m.daily[:n]
}

// path walks a bar the way price most likely moved: open, the nearer
// extreme, the farther one, close.
func path(b types.Bar, interval time.Duration) []types.Quote {
	first, second := b.Low, b.High
	if b.Close < b.Open {
		first, second = b.High, b.Low
	}
	step := interval / 4
	prices := []float64{b.Open, first, second, b.Close}
	out := make([]types.Quote, len(prices))
	for i, p := range prices {
		out[i] = types.Quote{Bid: p, Time: b.OpenTime.Add(time.Duration(i) * step)}
	}
	return out
}

// Runner drives an engine through a scenario. mu serialises the replay
// against the HTTP handlers.
type Runner struct {
	mu    *sync.Mutex
	eng   *engine.Engine
	mkt   *replayMarket
	paper *executor.PaperGateway
	ticks int
}

func (r *Runner) Run(ctx context.Context, interval time.Duration) error {
	r.mu.Lock()
	start := r.mkt.bars[0].OpenTime
	r.mkt.quote = types.Quote{Bid: r.mkt.bars[0].Open, Ask: r.mkt.bars[0].Open + r.mkt.spread, Time: start}
	err := r.eng.Start(ctx, start)
	r.mu.Unlock()
	if err != nil {
		return err
	}

	for i, b := range r.mkt.bars {
		if err := ctx.Err(); err != nil {
			return err
		}
		r.mu.Lock()
		for _, q := range path(b, interval) {
			q.Ask = q.Bid + r.mkt.spread
			r.mkt.quote = q
			r.paper.OnQuote(q)
			r.eng.OnTimer(ctx, q.Time)
			r.eng.OnTick(q.Time)
			r.ticks++
		}
		r.mkt.done = i + 1
		r.eng.OnBar(b.OpenTime.Add(interval))
		r.mu.Unlock()
	}
	return nil
}
