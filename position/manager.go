// Package position manages open positions after entry: stop adjustments,
// partial profit, trailing and calendar driven closes.
package position

import (
	"math"
	"time"

	"github.com/evdnx/levelbot/calendar"
	"github.com/evdnx/levelbot/config"
	"github.com/evdnx/levelbot/events"
	"github.com/evdnx/levelbot/executor"
	"github.com/evdnx/levelbot/indicator"
	"github.com/evdnx/levelbot/logger"
	"github.com/evdnx/levelbot/metrics"
	"github.com/evdnx/levelbot/risk"
	"github.com/evdnx/levelbot/types"
)

// Actions reported in position_state_changed events and metrics.
const (
	ActionNegativeArea = "negative_area"
	ActionBreakeven    = "breakeven"
	ActionPartial      = "partial"
	ActionTrailStart   = "trail_start"
	ActionTrail        = "trail"
	ActionCalendarExit = "calendar_close"
)

// State is what the manager remembers about one position. Every flag is set
// only after the gateway confirmed the action.
type State struct {
	NegativeAreaApplied bool
	BreakevenApplied    bool
	PartialApplied      bool
	// Trailing: the fixed target was removed and bars now drive the stop.
	Trailing bool
	// TrailArmed: price cleared the envelope by the trigger distance.
	TrailArmed bool
}

// Manager acts on the positions carrying this engine's tag.
type Manager struct {
	cfg    config.PositionConfig
	policy config.ClosePolicy
	symbol string
	tag    string
	gw     executor.Gateway
	gate   *calendar.Gate
	sink   events.Sink
	log    logger.Logger

	states map[string]*State
}

func NewManager(cfg config.EngineConfig, gw executor.Gateway, gate *calendar.Gate,
	sink events.Sink, log logger.Logger) *Manager {
	if sink == nil {
		sink = events.Nop
	}
	return &Manager{
		cfg:    cfg.Position,
		policy: cfg.Calendar.ClosePolicy,
		symbol: cfg.Symbol,
		tag:    cfg.Tag(),
		gw:     gw,
		gate:   gate,
		sink:   sink,
		log:    log,
		states: make(map[string]*State),
	}
}

// State returns a copy of the record kept for a position.
func (pm *Manager) State(id string) (State, bool) {
	s, ok := pm.states[id]
	if !ok {
		return State{}, false
	}
	return *s, true
}

// Tracked is the number of positions with a state record.
func (pm *Manager) Tracked() int { return len(pm.states) }

// OnTick runs the per-tick rules for every owned position. pause is the
// calendar transition observed on this tick.
func (pm *Manager) OnTick(m types.Market, now time.Time, pause calendar.Transition) {
	positions := pm.owned()
	pm.prune(positions)

	sym := m.Symbol()
	q := m.Quote()
	for _, p := range positions {
		st := pm.state(p.ID)

		if pm.shouldClose(now, pause) {
			pm.close(p, now)
			continue
		}

		price := p.Direction.ExitQuote(q)
		if p.NetProfit < 0 && !st.NegativeAreaApplied && pm.cfg.NegativeAreaBars > 0 {
			pm.negativeArea(&p, st, m.Bars(), sym, price, now)
		}
		if p.NetProfit <= 0 {
			continue
		}

		moved := sym.ToPips((price - p.EntryPrice) * p.Direction.Sign())
		target := targetPips(p, sym)
		if !st.BreakevenApplied && pm.cfg.BreakevenFraction > 0 && target > 0 && moved >= pm.cfg.BreakevenFraction*target {
			pm.breakeven(&p, st, sym, now)
		}
		if !st.PartialApplied && pm.cfg.PartialFraction > 0 && target > 0 && moved >= pm.cfg.PartialFraction*target {
			pm.partial(&p, st, sym, now)
		}
	}
}

// OnBar tightens the stop of trailing positions from the high/low envelope
// of the last completed bars.
func (pm *Manager) OnBar(m types.Market, now time.Time) {
	env, err := indicator.EnvelopeOf(m.Bars(), pm.cfg.TrailPeriod)
	if err != nil {
		pm.log.Warn("trail_envelope_unavailable", logger.Err(err))
		return
	}
	if !env.Ready() {
		return
	}
	sym := m.Symbol()
	q := m.Quote()
	for _, p := range pm.owned() {
		st, ok := pm.states[p.ID]
		if !ok || !st.Trailing {
			continue
		}
		d := p.Direction
		price := d.ExitQuote(q)
		near, far := env.Upper(), env.Lower()
		if d == types.Short {
			near, far = far, near
		}

		if !st.TrailArmed {
			if sym.ToPips((price-near)*d.Sign()) < pm.cfg.TrailTriggerPips {
				continue
			}
			st.TrailArmed = true
			pm.record(p, ActionTrailStart, near, now)
		}

		stop := far
		if p.StopLoss > 0 && !d.Beyond(stop, p.StopLoss) {
			continue // never loosen
		}
		if !d.Behind(stop, price) {
			continue
		}
		res := pm.gw.ModifyPositionStopTakeProfit(p.ID, stop, p.TakeProfit)
		pm.result(p, ActionTrail, res, stop, now)
	}
}

func (pm *Manager) shouldClose(now time.Time, pause calendar.Transition) bool {
	switch pm.policy {
	case config.CloseOnTransition:
		return pause == calendar.Paused
	case config.CloseEveryTick:
		return pm.gate != nil && pm.gate.IsPaused(now)
	}
	return false
}

func (pm *Manager) close(p types.Position, now time.Time) {
	res := pm.gw.ClosePosition(p.ID)
	pm.result(p, ActionCalendarExit, res, 0, now)
	if res.Success {
		delete(pm.states, p.ID)
	}
}

// negativeArea moves the stop to entry minus a fraction of the original stop
// distance once enough completed bars have traded entirely on the losing side
// of entry. The move waits while it would not tighten the stop or would sit
// through the market.
func (pm *Manager) negativeArea(p *types.Position, st *State, bars types.Series, sym types.SymbolInfo, price float64, now time.Time) {
	if countLosingBars(*p, bars, pm.cfg.NegativeAreaMode) < pm.cfg.NegativeAreaBars {
		return
	}
	dist := stopPips(*p, sym) * pm.cfg.NegativeOffsetFraction
	if dist <= 0 {
		return
	}
	d := p.Direction
	stop := d.Away(p.EntryPrice, sym.FromPips(dist))
	if p.StopLoss > 0 && !d.Beyond(stop, p.StopLoss) {
		st.NegativeAreaApplied = true
		return
	}
	if !d.Behind(stop, price) {
		return
	}
	res := pm.gw.ModifyPositionStopTakeProfit(p.ID, stop, p.TakeProfit)
	st.NegativeAreaApplied = res.Success
	if res.Success {
		p.StopLoss = stop
	}
	pm.result(*p, ActionNegativeArea, res, stop, now)
}

func (pm *Manager) breakeven(p *types.Position, st *State, sym types.SymbolInfo, now time.Time) {
	d := p.Direction
	stop := d.Toward(p.EntryPrice, sym.PipSize)
	if p.StopLoss > 0 && !d.Beyond(stop, p.StopLoss) {
		st.BreakevenApplied = true
		return
	}
	res := pm.gw.ModifyPositionStopTakeProfit(p.ID, stop, p.TakeProfit)
	st.BreakevenApplied = res.Success
	if res.Success {
		p.StopLoss = stop
	}
	pm.result(*p, ActionBreakeven, res, stop, now)
}

// partial runs after the earlier rules of the same tick, so p carries any
// stop they already moved.
func (pm *Manager) partial(p *types.Position, st *State, sym types.SymbolInfo, now time.Time) {
	switch pm.cfg.ProfitStrategy {
	case config.ProfitTrailing:
		res := pm.gw.ModifyPositionStopTakeProfit(p.ID, p.StopLoss, 0)
		st.PartialApplied = res.Success
		st.Trailing = res.Success
		if res.Success {
			p.TakeProfit = 0
		}
		pm.result(*p, ActionPartial, res, 0, now)
	default:
		keep := risk.NormalizeVolume(p.Volume*(1-pm.cfg.PartialVolumeFraction), sym.VolumeStep, sym.MinVolume)
		if keep <= 0 || keep >= p.Volume {
			pm.log.Warn("partial_volume_unavailable",
				logger.String("position", p.ID),
				logger.Float64("volume", p.Volume))
			st.PartialApplied = true
			return
		}
		res := pm.gw.ModifyPositionVolume(p.ID, keep)
		st.PartialApplied = res.Success
		if res.Success {
			p.Volume = keep
		}
		pm.result(*p, ActionPartial, res, keep, now)
	}
}

func (pm *Manager) result(p types.Position, action string, res types.Result, value float64, now time.Time) {
	if !res.Success {
		metrics.PositionActions.WithLabelValues(pm.symbol, action, metrics.Result(false)).Inc()
		pm.log.Error("position_action_failed",
			logger.String("position", p.ID),
			logger.String("action", action),
			logger.Err(executor.ResultErr(res)))
		return
	}
	pm.record(p, action, value, now)
}

func (pm *Manager) record(p types.Position, action string, value float64, now time.Time) {
	metrics.PositionActions.WithLabelValues(pm.symbol, action, metrics.Result(true)).Inc()
	pm.log.Info("position_state_changed",
		logger.String("position", p.ID),
		logger.String("level", p.Meta.LevelLabel),
		logger.String("action", action),
		logger.Float64("value", value))
	pm.sink.Emit(events.Event{Kind: events.PositionStateChanged, Time: now, Symbol: pm.symbol,
		Level: p.Meta.LevelLabel, Position: p.ID, Reason: action, Value: value})
}

func (pm *Manager) owned() []types.Position {
	var out []types.Position
	for _, p := range pm.gw.Positions() {
		if p.Meta.Tag == pm.tag && p.Symbol == pm.symbol {
			out = append(out, p)
		}
	}
	return out
}

func (pm *Manager) state(id string) *State {
	st, ok := pm.states[id]
	if !ok {
		st = &State{}
		pm.states[id] = st
	}
	return st
}

// prune drops records for positions that are no longer open.
func (pm *Manager) prune(open []types.Position) {
	live := make(map[string]struct{}, len(open))
	for _, p := range open {
		live[p.ID] = struct{}{}
	}
	for id := range pm.states {
		if _, ok := live[id]; !ok {
			delete(pm.states, id)
		}
	}
}

// countLosingBars counts completed bars opened at or after entry that lie on
// the losing side of entry: the whole candle, or only open and close in body
// mode.
func countLosingBars(p types.Position, bars types.Series, mode config.NegativeAreaMode) int {
	if bars == nil {
		return 0
	}
	d := p.Direction
	n := 0
	for i := bars.Len() - 1; i >= 0; i-- {
		b := bars.At(i)
		if b.OpenTime.Before(p.EntryTime) {
			break
		}
		var losing bool
		if mode == config.CandleBody {
			losing = d.Behind(b.Open, p.EntryPrice) && d.Behind(b.Close, p.EntryPrice)
		} else {
			losing = d.Behind(d.Favorable(b), p.EntryPrice)
		}
		if losing {
			n++
		}
	}
	return n
}

func targetPips(p types.Position, sym types.SymbolInfo) float64 {
	if p.Meta.TargetPips > 0 {
		return p.Meta.TargetPips
	}
	if p.TakeProfit > 0 {
		return sym.ToPips(math.Abs(p.TakeProfit - p.EntryPrice))
	}
	return 0
}

func stopPips(p types.Position, sym types.SymbolInfo) float64 {
	if p.Meta.StopPips > 0 {
		return p.Meta.StopPips
	}
	if p.StopLoss > 0 {
		return sym.ToPips(math.Abs(p.EntryPrice - p.StopLoss))
	}
	return 0
}
