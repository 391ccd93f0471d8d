// Package calendar pauses trading around scheduled economic events and during
// fixed weekly blackouts.
package calendar

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/evdnx/levelbot/config"
	"github.com/evdnx/levelbot/types"
)

const week = 7 * 24 * time.Hour

// Source supplies the already-parsed calendar.
type Source interface {
	Events(ctx context.Context) ([]types.CalendarEvent, error)
}

// Transition is what Observe reports to the caller.
type Transition int

const (
	NoChange Transition = iota
	Paused
	Resumed
)

func (t Transition) String() string {
	switch t {
	case Paused:
		return "paused"
	case Resumed:
		return "resumed"
	default:
		return "no_change"
	}
}

// Gate answers "may we trade now" for one instrument.
type Gate struct {
	cfg       config.CalendarConfig
	countries []string
	events    []types.CalendarEvent // mapped countries only, by time

	paused      bool
	pausedUntil time.Time
}

func NewGate(symbol string, cfg config.CalendarConfig) *Gate {
	return &Gate{
		cfg:       cfg,
		countries: MapInstrumentToCountries(symbol, cfg.CountryOverrides),
	}
}

// Countries returns the country codes this gate listens to.
func (g *Gate) Countries() []string { return append([]string(nil), g.countries...) }

// SetEvents replaces the calendar wholesale.
func (g *Gate) SetEvents(events []types.CalendarEvent) {
	kept := make([]types.CalendarEvent, 0, len(events))
	for _, e := range events {
		if g.relevant(e.Country) {
			kept = append(kept, e)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].Time.Before(kept[j].Time) })
	g.events = kept
}

// Refresh reloads the calendar from src. A failing source leaves the gate
// without events, so only the weekly blackouts can pause it.
func (g *Gate) Refresh(ctx context.Context, src Source) error {
	events, err := src.Events(ctx)
	if err != nil {
		g.events = nil
		return fmt.Errorf("%w: %v", types.ErrCalendarUnavailable, err)
	}
	g.SetEvents(events)
	return nil
}

// EventCount is the number of relevant events currently loaded.
func (g *Gate) EventCount() int { return len(g.events) }

// IsPaused reports whether t falls in a weekly blackout or in the window of a
// relevant event at or above the minimum impact.
func (g *Gate) IsPaused(t time.Time) bool {
	_, paused := g.until(t)
	return paused
}

// Observe evaluates t and reports a transition only when the paused state
// flips. The furthest paused-until time seen is remembered.
func (g *Gate) Observe(t time.Time) Transition {
	until, paused := g.until(t)
	if paused && until.After(g.pausedUntil) {
		g.pausedUntil = until
	}
	switch {
	case paused && !g.paused:
		g.paused = true
		return Paused
	case !paused && g.paused:
		g.paused = false
		return Resumed
	}
	return NoChange
}

// Paused is the state recorded by the last Observe.
func (g *Gate) Paused() bool { return g.paused }

// PausedUntil is the furthest end of any pause observed so far.
func (g *Gate) PausedUntil() time.Time { return g.pausedUntil }

// ActiveEvents lists the events whose window contains t.
func (g *Gate) ActiveEvents(t time.Time) []types.CalendarEvent {
	if !g.cfg.Enabled {
		return nil
	}
	var out []types.CalendarEvent
	for _, e := range g.events {
		if g.blocks(e, t) {
			out = append(out, e)
		}
	}
	return out
}

// Upcoming returns up to n relevant events at or after t.
func (g *Gate) Upcoming(t time.Time, n int) []types.CalendarEvent {
	var out []types.CalendarEvent
	for _, e := range g.events {
		if len(out) >= n {
			break
		}
		if !e.Time.Before(t) {
			out = append(out, e)
		}
	}
	return out
}

func (g *Gate) until(t time.Time) (time.Time, bool) {
	if !g.cfg.Enabled {
		return time.Time{}, false
	}
	var until time.Time
	paused := false
	for _, w := range g.cfg.WeeklyBlackouts {
		if end, ok := weeklyEnd(w, t); ok {
			paused = true
			if end.After(until) {
				until = end
			}
		}
	}
	for _, e := range g.events {
		if g.blocks(e, t) {
			paused = true
			if _, to := e.Window(g.cfg.WindowFor(e.Impact)); to.After(until) {
				until = to
			}
		}
	}
	return until, paused
}

func (g *Gate) blocks(e types.CalendarEvent, t time.Time) bool {
	if e.Impact < g.cfg.MinImpact {
		return false
	}
	from, to := e.Window(g.cfg.WindowFor(e.Impact))
	return !t.Before(from) && !t.After(to)
}

func (g *Gate) relevant(country string) bool {
	for _, c := range g.countries {
		if strings.EqualFold(c, strings.TrimSpace(country)) {
			return true
		}
	}
	return false
}

// weeklyEnd reports whether t is inside w and, if so, when w ends.
// Windows may wrap over the end of the week.
func weeklyEnd(w config.WeeklyWindow, t time.Time) (time.Time, bool) {
	t = t.UTC()
	midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	pos := time.Duration(t.Weekday())*24*time.Hour + t.Sub(midnight)
	start := time.Duration(w.FromDay)*24*time.Hour + w.From
	end := time.Duration(w.ToDay)*24*time.Hour + w.To

	var inside bool
	if start <= end {
		inside = pos >= start && pos < end
	} else {
		inside = pos >= start || pos < end
	}
	if !inside {
		return time.Time{}, false
	}
	left := (end - pos + week) % week
	if left == 0 {
		left = week
	}
	return t.Add(left), true
}
