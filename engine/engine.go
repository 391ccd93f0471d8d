// Package engine wires the level machine, the position manager and the
// calendar gate to the host clocks.
package engine

import (
	"context"
	"errors"
	"time"

	"github.com/evdnx/levelbot/calendar"
	"github.com/evdnx/levelbot/config"
	"github.com/evdnx/levelbot/events"
	"github.com/evdnx/levelbot/executor"
	"github.com/evdnx/levelbot/level"
	"github.com/evdnx/levelbot/logger"
	"github.com/evdnx/levelbot/metrics"
	"github.com/evdnx/levelbot/position"
	"github.com/evdnx/levelbot/spike"
	"github.com/evdnx/levelbot/types"
)

// Engine is driven synchronously by three clocks: OnTick for every quote,
// OnBar for every completed bar and OnTimer roughly once a minute. Callbacks
// never return errors; failures are logged and the previous state is kept.
// The engine is not safe for concurrent use.
type Engine struct {
	cfg config.EngineConfig
	tag string
	mkt types.Market
	gw  executor.Gateway

	loader   *level.Loader
	calSrc   calendar.Source
	gate     *calendar.Gate
	machine  *level.Machine
	position *position.Manager
	sink     events.Sink
	log      logger.Logger

	levels        []*level.Level
	lastScheduled time.Time
	lastRefresh   time.Time
}

// Deps are the collaborators of an Engine. Calendar and Sink are optional.
type Deps struct {
	Market   types.Market
	Gateway  executor.Gateway
	Levels   level.Source
	Calendar calendar.Source
	Sink     events.Sink
	Logger   logger.Logger
}

func New(cfg config.EngineConfig, d Deps) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if d.Market == nil || d.Gateway == nil || d.Levels == nil {
		return nil, errors.New("engine: market, gateway and level source are required")
	}
	if d.Logger == nil {
		d.Logger = logger.NewNop()
	}
	if d.Sink == nil {
		d.Sink = events.Nop
	}
	gate := calendar.NewGate(cfg.Symbol, cfg.Calendar)
	return &Engine{
		cfg:      cfg,
		tag:      cfg.Tag(),
		mkt:      d.Market,
		gw:       d.Gateway,
		loader:   level.NewLoader(d.Levels, cfg, d.Logger),
		calSrc:   d.Calendar,
		gate:     gate,
		machine:  level.NewMachine(cfg, gate, spike.NewDetector(cfg.Spike, cfg.Mode), d.Gateway, d.Sink, d.Logger),
		position: position.NewManager(cfg, d.Gateway, gate, d.Sink, d.Logger),
		sink:     d.Sink,
		log:      d.Logger,
	}, nil
}

// Start performs the initial calendar refresh and level load.
func (e *Engine) Start(ctx context.Context, now time.Time) error {
	e.refreshCalendar(ctx, now)
	e.lastScheduled = e.scheduledBefore(now)
	return e.Reload(ctx, now)
}

// OnTick observes the calendar, steps every live level and manages the open
// positions, in that order.
func (e *Engine) OnTick(now time.Time) {
	tr := e.gate.Observe(now)
	switch tr {
	case calendar.Paused:
		e.onPaused(now)
	case calendar.Resumed:
		metrics.CalendarPaused.WithLabelValues(e.cfg.Symbol).Set(0)
		e.log.Info("calendar_resumed", logger.Time("at", now))
		e.sink.Emit(events.Event{Kind: events.CalendarResumed, Time: now, Symbol: e.cfg.Symbol})
	}

	for _, l := range e.levels {
		e.machine.Step(l, e.mkt, now)
	}
	e.position.OnTick(e.mkt, now, tr)
	e.updateGauge()
}

// OnBar drops expired levels and advances trailing stops.
func (e *Engine) OnBar(now time.Time) {
	e.prune(now)
	e.position.OnBar(e.mkt, now)
}

// OnTimer refreshes the calendar when due and runs the daily reload at the
// configured UTC time.
func (e *Engine) OnTimer(ctx context.Context, now time.Time) {
	if e.calSrc != nil && now.Sub(e.lastRefresh) >= e.cfg.Calendar.RefreshInterval {
		e.refreshCalendar(ctx, now)
	}
	if sched := e.scheduledBefore(now); sched.After(e.lastScheduled) {
		e.lastScheduled = sched
		_ = e.Reload(ctx, now) // logged inside, previous set kept
	}
	e.prune(now)
}

// Reload loads a fresh level set and swaps it in when it validates. On any
// error the active set stays untouched. Live progress carries over by label,
// and a level whose order or position already sits at the venue comes back
// Traded.
func (e *Engine) Reload(ctx context.Context, now time.Time) error {
	next, err := e.loader.Load(ctx, e.mkt, e.levels, now)
	if err != nil {
		reason := "failed"
		if errors.Is(err, types.ErrDuplicateLevelSet) {
			reason = "duplicate"
		}
		metrics.Reloads.WithLabelValues(e.cfg.Symbol, reason).Inc()
		e.log.Warn("reload_rejected", logger.String("reason", reason), logger.Err(err))
		return err
	}

	level.Carry(e.levels, next)
	for _, l := range level.Claim(next, e.tag, e.gw.PendingOrders(), e.gw.Positions()) {
		e.log.Info("level_claimed", logger.String("level", l.Label), logger.String("order", l.OrderRef))
	}

	e.levels = next
	metrics.Reloads.WithLabelValues(e.cfg.Symbol, "ok").Inc()
	e.log.Info("levels_reloaded", logger.Int("count", len(next)), logger.Time("at", now))
	e.sink.Emit(events.Event{Kind: events.LevelsReloaded, Time: now, Symbol: e.cfg.Symbol, Value: float64(len(next))})
	e.updateGauge()
	return nil
}

// SetLevelDisabled toggles the placement override of a level. It reports
// false when no live level carries the label.
func (e *Engine) SetLevelDisabled(label string, disabled bool) bool {
	for _, l := range e.levels {
		if l.Label == label {
			l.Disabled = disabled
			e.log.Info("level_disabled_changed", logger.String("level", label), logger.Bool("disabled", disabled))
			return true
		}
	}
	return false
}

// Levels returns a snapshot of the active set.
func (e *Engine) Levels() []level.Level {
	out := make([]level.Level, len(e.levels))
	for i, l := range e.levels {
		out[i] = *l
	}
	return out
}

// Calendar exposes the gate for display collaborators.
func (e *Engine) Calendar() *calendar.Gate { return e.gate }

func (e *Engine) onPaused(now time.Time) {
	metrics.CalendarPaused.WithLabelValues(e.cfg.Symbol).Set(1)
	n, err := executor.CancelMatching(e.gw, executor.ByTag(e.tag))
	if err != nil {
		e.log.Warn("pause_cancel_failed", logger.Err(err))
	}
	e.log.Info("calendar_paused",
		logger.Time("at", now),
		logger.Time("until", e.gate.PausedUntil()),
		logger.Int("cancelled", n))
	e.sink.Emit(events.Event{Kind: events.CalendarPaused, Time: now, Symbol: e.cfg.Symbol, Value: float64(n)})
}

func (e *Engine) refreshCalendar(ctx context.Context, now time.Time) {
	if e.calSrc == nil {
		return
	}
	e.lastRefresh = now
	if err := e.gate.Refresh(ctx, e.calSrc); err != nil {
		e.log.Warn("calendar_refresh_failed", logger.Err(err))
		return
	}
	e.log.Info("calendar_refreshed", logger.Int("events", e.gate.EventCount()))
}

// scheduledBefore is the latest daily reload time at or before now.
func (e *Engine) scheduledBefore(now time.Time) time.Time {
	now = now.UTC()
	s := time.Date(now.Year(), now.Month(), now.Day(), e.cfg.Schedule.ReloadHour, e.cfg.Schedule.ReloadMinute, 0, 0, time.UTC)
	if s.After(now) {
		s = s.AddDate(0, 0, -1)
	}
	return s
}

func (e *Engine) prune(now time.Time) {
	kept := e.levels[:0:0]
	for _, l := range e.levels {
		if l.Expired(now) {
			e.log.Info("level_expired", logger.String("level", l.Label), logger.String("state", l.State.String()))
			continue
		}
		kept = append(kept, l)
	}
	if len(kept) != len(e.levels) {
		e.levels = kept
		e.updateGauge()
	}
}

func (e *Engine) updateGauge() {
	live := 0
	for _, l := range e.levels {
		if !l.State.Terminal() {
			live++
		}
	}
	metrics.LiveLevels.WithLabelValues(e.cfg.Symbol).Set(float64(live))
}
