package calendar

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/evdnx/levelbot/config"
	"github.com/evdnx/levelbot/types"
)

// Wednesday, so no weekly blackout interferes.
var eventTime = time.Date(2024, 3, 6, 13, 30, 0, 0, time.UTC)

func gateCfg() config.CalendarConfig {
	cfg := config.Default().Calendar
	cfg.Window = 30 * time.Minute
	return cfg
}

type stubSource struct {
	events []types.CalendarEvent
	err    error
}

func (s stubSource) Events(context.Context) ([]types.CalendarEvent, error) { return s.events, s.err }

func TestMapInstrumentToCountries(t *testing.T) {
	cases := map[string][]string{
		"EURUSD": {"EUR", "USD"},
		"usdjpy": {"USD", "JPY"},
		"XAUUSD": {"USD"},
		"GER40":  {"EUR"},
		"BTC":    {"BTC"},
	}
	for sym, want := range cases {
		if got := MapInstrumentToCountries(sym, nil); !reflect.DeepEqual(got, want) {
			t.Fatalf("%s: expected %v, got %v", sym, want, got)
		}
	}
	got := MapInstrumentToCountries("GER40", map[string][]string{"ger40": {"eur", "usd"}})
	if !reflect.DeepEqual(got, []string{"EUR", "USD"}) {
		t.Fatalf("override ignored: %v", got)
	}
}

func TestImpactWindows(t *testing.T) {
	cfg := gateCfg()
	cfg.ImpactWindows = map[types.Impact]time.Duration{types.ImpactHigh: time.Hour}
	g := NewGate("EURUSD", cfg)
	g.SetEvents([]types.CalendarEvent{
		{Country: "USD", Title: "NFP", Impact: types.ImpactHigh, Time: eventTime},
		{Country: "EUR", Title: "PMI", Impact: types.ImpactMedium, Time: eventTime.Add(4 * time.Hour)},
	})

	if !g.IsPaused(eventTime.Add(-45 * time.Minute)) {
		t.Fatal("high impact events use their own wider window")
	}
	if g.IsPaused(eventTime.Add(61 * time.Minute)) {
		t.Fatal("high impact window ends after an hour")
	}
	medium := eventTime.Add(4 * time.Hour)
	if !g.IsPaused(medium.Add(30*time.Minute)) || g.IsPaused(medium.Add(-31*time.Minute)) {
		t.Fatal("medium impact events fall back to the default window")
	}
}

func TestEventWindowEdges(t *testing.T) {
	g := NewGate("EURUSD", gateCfg())
	g.SetEvents([]types.CalendarEvent{{Country: "USD", Title: "NFP", Impact: types.ImpactHigh, Time: eventTime}})

	d := 30 * time.Minute
	for _, at := range []time.Time{eventTime.Add(-d), eventTime, eventTime.Add(d)} {
		if !g.IsPaused(at) {
			t.Fatalf("expected pause at %v", at)
		}
	}
	for _, at := range []time.Time{eventTime.Add(-d - time.Second), eventTime.Add(d + time.Second)} {
		if g.IsPaused(at) {
			t.Fatalf("expected no pause at %v", at)
		}
	}
}

func TestImpactAndCountryFilters(t *testing.T) {
	g := NewGate("EURUSD", gateCfg())
	g.SetEvents([]types.CalendarEvent{
		{Country: "USD", Impact: types.ImpactLow, Time: eventTime},
		{Country: "JPY", Impact: types.ImpactHigh, Time: eventTime},
		{Country: "EUR", Impact: types.ImpactHoliday, Time: eventTime},
	})
	if g.IsPaused(eventTime) {
		t.Fatal("low impact, unrelated country and holiday must not pause")
	}
	if g.EventCount() != 2 {
		t.Fatalf("expected JPY event dropped, got %d events", g.EventCount())
	}
}

func TestWeeklyBlackout(t *testing.T) {
	g := NewGate("EURUSD", gateCfg())
	fri := time.Date(2024, 3, 8, 20, 0, 0, 0, time.UTC)
	if !g.IsPaused(fri) {
		t.Fatal("expected Friday 20:00 blackout")
	}
	if !g.IsPaused(fri.Add(50 * time.Hour)) {
		t.Fatal("expected Sunday to be paused")
	}
	if g.IsPaused(time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)) {
		t.Fatal("Monday 00:00 ends the blackout")
	}
	if g.IsPaused(fri.Add(-time.Minute)) {
		t.Fatal("Friday 19:59 is open")
	}
}

func TestObserveTransitions(t *testing.T) {
	g := NewGate("EURUSD", gateCfg())
	g.SetEvents([]types.CalendarEvent{{Country: "EUR", Impact: types.ImpactMedium, Time: eventTime}})

	steps := []struct {
		at   time.Time
		want Transition
	}{
		{eventTime.Add(-time.Hour), NoChange},
		{eventTime.Add(-30 * time.Minute), Paused},
		{eventTime, NoChange},
		{eventTime.Add(31 * time.Minute), Resumed},
		{eventTime.Add(time.Hour), NoChange},
	}
	for i, s := range steps {
		if got := g.Observe(s.at); got != s.want {
			t.Fatalf("step %d: expected %v, got %v", i, s.want, got)
		}
	}
	if want := eventTime.Add(30 * time.Minute); !g.PausedUntil().Equal(want) {
		t.Fatalf("expected paused until %v, got %v", want, g.PausedUntil())
	}
}

func TestDisabledGateNeverPauses(t *testing.T) {
	cfg := gateCfg()
	cfg.Enabled = false
	g := NewGate("EURUSD", cfg)
	g.SetEvents([]types.CalendarEvent{{Country: "USD", Impact: types.ImpactHigh, Time: eventTime}})
	if g.IsPaused(eventTime) {
		t.Fatal("disabled gate paused")
	}
}

func TestRefreshFailureClearsEvents(t *testing.T) {
	g := NewGate("EURUSD", gateCfg())
	ok := stubSource{events: []types.CalendarEvent{{Country: "USD", Impact: types.ImpactHigh, Time: eventTime}}}
	if err := g.Refresh(context.Background(), ok); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if !g.IsPaused(eventTime) {
		t.Fatal("expected pause after refresh")
	}

	err := g.Refresh(context.Background(), stubSource{err: errors.New("timeout")})
	if !errors.Is(err, types.ErrCalendarUnavailable) {
		t.Fatalf("expected ErrCalendarUnavailable, got %v", err)
	}
	if g.IsPaused(eventTime) {
		t.Fatal("unavailable calendar means no event pause")
	}
}

func TestUpcoming(t *testing.T) {
	g := NewGate("EURUSD", gateCfg())
	g.SetEvents([]types.CalendarEvent{
		{Country: "USD", Title: "b", Time: eventTime.Add(2 * time.Hour)},
		{Country: "USD", Title: "a", Time: eventTime.Add(time.Hour)},
		{Country: "EUR", Title: "past", Time: eventTime.Add(-time.Hour)},
	})
	up := g.Upcoming(eventTime, 5)
	if len(up) != 2 || up[0].Title != "a" {
		t.Fatalf("unexpected upcoming list: %+v", up)
	}
}
