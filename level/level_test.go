package level

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/evdnx/levelbot/config"
	"github.com/evdnx/levelbot/logger"
	"github.com/evdnx/levelbot/testutils"
	"github.com/evdnx/levelbot/types"
)

// Wednesday midnight UTC, clear of the weekend blackout.
var day = time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC)

const eps = 1e-9

func near(a, b float64) bool { return math.Abs(a-b) < eps }

func record(label string, price float64) Record {
	return Record{Symbol: "EURUSD", Price: price, Label: label, ValidFrom: day, ValidTo: day.Add(24 * time.Hour)}
}

// market whose reference bar at `day` has high 1.1050 and low 1.1030.
func refMarket() *testutils.StaticMarket {
	m := testutils.NewStaticMarket()
	m.Trade = testutils.Flat(day, 4, 1.1040, 0.0010)
	m.SetBid(1.1040, 0.00001, day)
	return m
}

func buildOne(t *testing.T, r Record, m types.Market, cfg config.EngineConfig) *Level {
	t.Helper()
	levels, err := Build([]Record{r}, m, cfg)
	if err != nil {
		t.Fatalf("unexpected build error: %v", err)
	}
	if len(levels) != 1 {
		t.Fatalf("expected 1 level, got %d", len(levels))
	}
	return levels[0]
}

func TestBuildDerivedPricesLong(t *testing.T) {
	l := buildOne(t, record("L1", 1.10000), refMarket(), config.Default())

	if l.Direction != types.Long {
		t.Fatalf("expected LONG, got %s", l.Direction)
	}
	if !near(l.EntryPrice, 1.10000) || !near(l.StopLossPrice, 1.09900) {
		t.Fatalf("entry/stop wrong: %v %v", l.EntryPrice, l.StopLossPrice)
	}
	if l.StopLossPips != 10 || !near(l.ProfitTargetPips, 15) {
		t.Fatalf("pips wrong: stop=%v target=%v", l.StopLossPips, l.ProfitTargetPips)
	}
	if !near(l.ActivatePrice, 1.10045) || !near(l.DeactivatePrice, 1.10135) {
		t.Fatalf("activate/deactivate wrong: %v %v", l.ActivatePrice, l.DeactivatePrice)
	}
	if !near(l.ProfitTargetPrice, 1.10150) {
		t.Fatalf("target price wrong: %v", l.ProfitTargetPrice)
	}
	if l.State != Pending || l.UID == "" || l.ID != "levels_0" {
		t.Fatalf("identity/state wrong: %+v", l)
	}
}

func TestBuildShortMirrorsOrdering(t *testing.T) {
	l := buildOne(t, record("S1", 1.11000), refMarket(), config.Default())

	if l.Direction != types.Short {
		t.Fatalf("price above the reference high must be SHORT, got %s", l.Direction)
	}
	if !(l.StopLossPrice > l.EntryPrice && l.EntryPrice > l.ActivatePrice && l.ActivatePrice > l.DeactivatePrice) {
		t.Fatalf("short ordering violated: %+v", l)
	}
	if !near(l.ActivatePrice, 1.10955) || !near(l.DeactivatePrice, 1.10865) {
		t.Fatalf("activate/deactivate wrong: %v %v", l.ActivatePrice, l.DeactivatePrice)
	}
}

func TestDirectionFollowsReferenceHigh(t *testing.T) {
	m := refMarket()
	for _, p := range []float64{1.0900, 1.1030, 1.1049, 1.1051, 1.1200} {
		l := buildOne(t, record("X", p), m, config.Default())
		want := types.Long
		if p > 1.1050 {
			want = types.Short
		}
		if l.Direction != want {
			t.Fatalf("price %v: expected %s, got %s", p, want, l.Direction)
		}
		if err := l.CheckPrices(); err != nil {
			t.Fatalf("price %v: %v", p, err)
		}
	}
}

func TestDirectionFallsBackToBid(t *testing.T) {
	m := testutils.NewStaticMarket()
	m.SetBid(1.1000, 0.00001, day)
	if l := buildOne(t, record("A", 1.1050), m, config.Default()); l.Direction != types.Short {
		t.Fatalf("expected SHORT above bid, got %s", l.Direction)
	}
	if l := buildOne(t, record("B", 1.0950), m, config.Default()); l.Direction != types.Long {
		t.Fatalf("expected LONG below bid, got %s", l.Direction)
	}
}

func TestBuildOrdersByLabelAndFilters(t *testing.T) {
	other := record("c", 1.1)
	other.Symbol = "GBPUSD"
	swing := record("d", 1.1)
	swing.Mode = "SWING"
	bad := record("e", 1.1)
	bad.ValidTo = bad.ValidFrom

	levels, err := Build([]Record{record("b", 1.1), record("a", 1.09), other, swing, bad}, refMarket(), config.Default())
	if err == nil {
		t.Fatalf("expected an error for the empty window record")
	}
	if len(levels) != 2 {
		t.Fatalf("expected 2 levels, got %d", len(levels))
	}
	if levels[0].Label != "a" || levels[0].ID != "levels_0" || levels[1].Label != "b" || levels[1].ID != "levels_1" {
		t.Fatalf("unexpected order: %s/%s %s/%s", levels[0].Label, levels[0].ID, levels[1].Label, levels[1].ID)
	}
}

func TestBuildEntryOffsetAndLinkedDistances(t *testing.T) {
	cfg := config.Default()
	cfg.Level.OffsetPips = 2
	r := record("L", 1.1000)
	r.StopPips = 20
	r.TargetPips = 40

	l := buildOne(t, r, refMarket(), cfg)
	if !near(l.EntryPrice, 1.1002) {
		t.Fatalf("expected offset entry 1.1002, got %v", l.EntryPrice)
	}
	if l.StopLossPips != 20 || l.ProfitTargetPips != 40 {
		t.Fatalf("linked distances ignored: %v %v", l.StopLossPips, l.ProfitTargetPips)
	}
}

func TestStopPips(t *testing.T) {
	cfg := config.Default().Level
	cfg.UseATRStop = true
	cfg.ATRMultiplier = 0.5

	if got := StopPips(12, 50, cfg); got != 12 {
		t.Fatalf("linked stop: expected 12, got %v", got)
	}
	if got := StopPips(0, 50, cfg); got != 25 {
		t.Fatalf("atr stop: expected 25, got %v", got)
	}
	if got := StopPips(0, 4, cfg); got != 5 {
		t.Fatalf("atr stop floor: expected 5, got %v", got)
	}
	if got := StopPips(2, 0, cfg); got != 5 {
		t.Fatalf("linked stop below floor: expected 5, got %v", got)
	}
	cfg.UseATRStop = false
	if got := StopPips(0, 50, cfg); got != 10 {
		t.Fatalf("default stop: expected 10, got %v", got)
	}
}

func TestBuildUsesDailyATR(t *testing.T) {
	cfg := config.Default()
	cfg.Level.UseATRStop = true
	cfg.Level.ATRMultiplier = 0.5
	m := refMarket()
	m.Daily = testutils.DailyRange(day.AddDate(0, 0, -20), 20, 1.1, 0.0050)

	l := buildOne(t, record("L", 1.1000), m, cfg)
	if math.Abs(l.StopLossPips-25) > 1e-6 {
		t.Fatalf("expected 25 pip ATR stop, got %v", l.StopLossPips)
	}
}

func TestReplayActivateThenDeactivate(t *testing.T) {
	m := refMarket()
	l := buildOne(t, record("L", 1.1000), m, config.Default())

	bars := types.BarSeries{
		testutils.Bar(day.Add(-time.Hour), 1.1, 1.1, 1.0900, 1.1), // before the window
		testutils.Bar(day, 1.1020, 1.1025, 1.1010, 1.1012),
		testutils.Bar(day.Add(time.Hour), 1.1007, 1.1008, 1.1003, 1.1006),
		testutils.Bar(day.Add(2*time.Hour), 1.1006, 1.1015, 1.1005, 1.1014),
		testutils.Bar(day.Add(3*time.Hour), 1.1014, 1.1014, 1.0990, 1.0995),
	}
	steps := Replay(l, bars)
	if len(steps) != 2 || steps[0].To != Activated || steps[1].To != Deactivated {
		t.Fatalf("unexpected steps: %+v", steps)
	}
	if !steps[1].At.Equal(day.Add(2 * time.Hour)) {
		t.Fatalf("deactivated at wrong bar: %v", steps[1].At)
	}
	if l.State != Deactivated {
		t.Fatalf("expected deactivated, got %s", l.State)
	}
}

func TestReplayEntryTouchInActivatingBar(t *testing.T) {
	l := buildOne(t, record("L", 1.1000), refMarket(), config.Default())
	bars := types.BarSeries{testutils.Bar(day, 1.1020, 1.1025, 1.0998, 1.1001)}

	steps := Replay(l, bars)
	if len(steps) != 2 || steps[0].To != Activated || steps[1].To != Traded {
		t.Fatalf("unexpected steps: %+v", steps)
	}
}

func TestReplayNoDeactivationInActivatingBar(t *testing.T) {
	l := buildOne(t, record("L", 1.1000), refMarket(), config.Default())
	bars := types.BarSeries{testutils.Bar(day, 1.1010, 1.1020, 1.1004, 1.1015)}

	Replay(l, bars)
	if l.State != Activated {
		t.Fatalf("expected activated, got %s", l.State)
	}
}

func TestReplayIsDeterministic(t *testing.T) {
	m := refMarket()
	m.Trade = types.BarSeries{
		testutils.Bar(day, 1.1040, 1.1050, 1.1030, 1.1035),
		testutils.Bar(day.Add(time.Hour), 1.1035, 1.1040, 1.1003, 1.1010),
		testutils.Bar(day.Add(2*time.Hour), 1.1010, 1.1012, 1.0999, 1.1005),
	}
	records := []Record{record("a", 1.1000), record("b", 1.0950), record("c", 1.1060)}

	final := func() []State {
		levels, err := Build(records, m, config.Default())
		if err != nil {
			t.Fatalf("build: %v", err)
		}
		out := make([]State, len(levels))
		for i, l := range levels {
			Replay(l, m.Bars())
			out[i] = l.State
		}
		return out
	}
	first, second := final(), final()
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("replay diverged at %d: %s vs %s", i, first[i], second[i])
		}
	}
	if first[0] != Traded || first[1] != Pending {
		t.Fatalf("unexpected final states: %v", first)
	}
}

func TestIndistinguishable(t *testing.T) {
	m := refMarket()
	cfg := config.Default()
	build := func(rs ...Record) []*Level {
		levels, err := Build(rs, m, cfg)
		if err != nil {
			t.Fatalf("build: %v", err)
		}
		return levels
	}

	active := build(record("a", 1.1), record("b", 1.09))
	active[0].State = Traded // worked levels are compared by definition only

	if !Indistinguishable(active, build(record("b", 1.09), record("a", 1.1)), day) {
		t.Fatalf("identical sets must be indistinguishable")
	}
	if Indistinguishable(active, build(record("a", 1.1), record("b", 1.0905)), day) {
		t.Fatalf("moved price must be distinguishable")
	}
	if Indistinguishable(active, build(record("a", 1.1)), day) {
		t.Fatalf("missing label must be distinguishable")
	}
	if Indistinguishable(nil, build(record("a", 1.1)), day) {
		t.Fatalf("nothing active: never a duplicate")
	}

	stale := record("z", 1.08)
	stale.ValidFrom = day.Add(-48 * time.Hour)
	stale.ValidTo = day.Add(-24 * time.Hour)
	if !Indistinguishable(active, build(record("a", 1.1), record("b", 1.09), stale), day) {
		t.Fatalf("expired levels must not make a set distinguishable")
	}
}

func TestLoaderErrors(t *testing.T) {
	m := refMarket()
	log := testutils.NewMockLogger()

	failing := NewLoader(SourceFunc(func(context.Context) ([]Record, error) {
		return nil, errors.New("file missing")
	}), config.Default(), log)
	if _, err := failing.Load(context.Background(), m, nil, day); !errors.Is(err, types.ErrLevelSourceUnavailable) {
		t.Fatalf("expected ErrLevelSourceUnavailable, got %v", err)
	}

	ld := NewLoader(StaticSource{record("a", 1.1)}, config.Default(), log)
	active, err := ld.Load(context.Background(), m, nil, day)
	if err != nil || len(active) != 1 {
		t.Fatalf("first load: %v %d", err, len(active))
	}
	if _, err := ld.Load(context.Background(), m, active, day); !errors.Is(err, types.ErrDuplicateLevelSet) {
		t.Fatalf("expected ErrDuplicateLevelSet, got %v", err)
	}
}

func TestLoaderDropsExpiredAndReplays(t *testing.T) {
	m := refMarket()
	m.Trade = types.BarSeries{
		testutils.Bar(day, 1.1040, 1.1050, 1.1030, 1.1035),
		testutils.Bar(day.Add(time.Hour), 1.1035, 1.1040, 1.0995, 1.1010),
	}
	old := record("old", 1.1)
	old.ValidFrom = day.Add(-48 * time.Hour)
	old.ValidTo = day.Add(-24 * time.Hour)

	ld := NewLoader(StaticSource{record("a", 1.1), old}, config.Default(), logger.NewNop())
	levels, err := ld.Load(context.Background(), m, nil, day.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(levels) != 1 || levels[0].Label != "a" {
		t.Fatalf("expected only level a, got %d", len(levels))
	}
	if levels[0].State != Traded {
		t.Fatalf("replay should have marked a traded, got %s", levels[0].State)
	}
}

func TestCanTransition(t *testing.T) {
	if !CanTransition(Pending, Activated) || !CanTransition(Activated, Deactivated) {
		t.Fatalf("expected forward transitions to be allowed")
	}
	if CanTransition(Traded, Activated) || CanTransition(Deactivated, Pending) || CanTransition(Pending, Deactivated) {
		t.Fatalf("terminal or skipping transitions must be refused")
	}
}

func TestCarryKeepsProgressOfUnchangedLevels(t *testing.T) {
	cfg := config.Default()
	m := refMarket()
	old := []*Level{buildOne(t, record("A", 1.1000), m, cfg), buildOne(t, record("B", 1.0990), m, cfg), buildOne(t, record("C", 1.0980), m, cfg)}
	old[0].State, old[0].OrderRef = Traded, "ref-a"
	old[1].State, old[1].OrderRef = Traded, "ref-b"
	old[2].State, old[2].Disabled = Activated, true

	next := []*Level{buildOne(t, record("A", 1.1000), m, cfg), buildOne(t, record("B", 1.0985), m, cfg), buildOne(t, record("C", 1.0980), m, cfg)}
	next[2].State = Traded
	Carry(old, next)

	if next[0].State != Traded || next[0].OrderRef != "ref-a" {
		t.Fatalf("unchanged level must keep its progress: %v %q", next[0].State, next[0].OrderRef)
	}
	if next[1].State != Pending || next[1].OrderRef != "" {
		t.Fatalf("redefined level must take the replayed state: %v", next[1].State)
	}
	if next[2].State != Traded || !next[2].Disabled {
		t.Fatalf("replay further along wins and Disabled follows the label: %v %v", next[2].State, next[2].Disabled)
	}
}

func TestClaimMarksLevelsWorkedAtTheVenue(t *testing.T) {
	cfg := config.Default()
	m := refMarket()
	levels := []*Level{buildOne(t, record("A", 1.1000), m, cfg), buildOne(t, record("B", 1.0990), m, cfg), buildOne(t, record("C", 1.0980), m, cfg)}
	levels[2].State = Deactivated
	tag := cfg.Tag()
	orders := []types.PendingOrder{
		{Ref: "o1", Meta: types.OrderMeta{Tag: tag, LevelLabel: "A"}},
		{Ref: "o2", Meta: types.OrderMeta{Tag: "other", LevelLabel: "B"}},
		{Ref: "o3", Meta: types.OrderMeta{Tag: tag, LevelLabel: "C"}},
	}
	positions := []types.Position{{ID: "p1", Meta: types.OrderMeta{Tag: tag, LevelLabel: "B"}}}

	claimed := Claim(levels, tag, orders, positions)
	if len(claimed) != 2 {
		t.Fatalf("expected A and B claimed, got %d", len(claimed))
	}
	if levels[0].State != Traded || levels[0].OrderRef != "o1" {
		t.Fatalf("A should be traded with its resting order: %v %q", levels[0].State, levels[0].OrderRef)
	}
	if levels[1].State != Traded {
		t.Fatalf("B has an open position and must be traded")
	}
	if levels[2].State != Deactivated {
		t.Fatalf("terminal levels are left alone")
	}
}
