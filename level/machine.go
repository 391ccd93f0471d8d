package level

import (
	"time"

	"github.com/evdnx/levelbot/calendar"
	"github.com/evdnx/levelbot/config"
	"github.com/evdnx/levelbot/events"
	"github.com/evdnx/levelbot/executor"
	"github.com/evdnx/levelbot/indicator"
	"github.com/evdnx/levelbot/logger"
	"github.com/evdnx/levelbot/metrics"
	"github.com/evdnx/levelbot/risk"
	"github.com/evdnx/levelbot/spike"
	"github.com/evdnx/levelbot/types"
)

// Skip reasons reported with order_skipped events and the skipped metric.
const (
	ReasonPaused   = "calendar_paused"
	ReasonDisabled = "disabled"
	ReasonSpike    = "spike"
	ReasonSpread   = "spread"
	ReasonVolume   = "volume"
	ReasonMargin   = "margin"
	ReasonRejected = "rejected"
)

// Machine runs the live level lifecycle. Every state change goes through
// transition.
type Machine struct {
	cfg   config.EngineConfig
	tag   string
	gate  *calendar.Gate
	spike *spike.Detector
	gw    executor.Gateway
	pips  risk.PipValueTable
	sink  events.Sink
	log   logger.Logger
}

func NewMachine(cfg config.EngineConfig, gate *calendar.Gate, det *spike.Detector,
	gw executor.Gateway, sink events.Sink, log logger.Logger) *Machine {
	if sink == nil {
		sink = events.Nop
	}
	return &Machine{
		cfg:   cfg,
		tag:   cfg.Tag(),
		gate:  gate,
		spike: det,
		gw:    gw,
		pips:  risk.PipValueTable{Overrides: cfg.Risk.PipValueOverrides, Scale: cfg.Risk.PipValueScale},
		sink:  sink,
		log:   log,
	}
}

// Step evaluates one level against the current quote. Calling it again on a
// terminal level is a no-op, so at most one order is ever placed per level.
func (ms *Machine) Step(l *Level, m types.Market, now time.Time) {
	if !l.Tradeable(now) {
		return
	}
	bid := m.Quote().Bid
	d := l.Direction

	switch l.State {
	case Pending:
		if !d.AtOrBehind(bid, l.ActivatePrice) {
			return
		}
		ms.transition(l, Activated, now, "")
		ms.attempt(l, m, now)
	case Activated:
		if d.AtOrBeyond(bid, l.DeactivatePrice) {
			n, err := executor.CancelMatching(ms.gw, executor.ByLevel(ms.tag, l.Label))
			if err != nil {
				ms.log.Warn("level_cancel_failed", logger.String("level", l.Label), logger.Err(err))
			}
			ms.transition(l, Deactivated, now, "retraced")
			if n > 0 {
				ms.log.Info("level_orders_cancelled", logger.String("level", l.Label), logger.Int("count", n))
			}
			return
		}
		ms.attempt(l, m, now)
	}
}

// attempt runs the entry gates and places the order. A failed gate ends the
// level or leaves it Activated according to the skip policy.
func (ms *Machine) attempt(l *Level, m types.Market, now time.Time) {
	req, reason := ms.prepare(l, m, now)
	if reason != "" {
		ms.skip(l, reason, now)
		if ms.cfg.Level.SkipPolicy == config.SkipTerminates {
			ms.transition(l, Traded, now, reason)
		}
		return
	}

	res := ms.gw.PlaceLimitOrder(req)
	metrics.OrdersPlaced.WithLabelValues(ms.cfg.Symbol, metrics.Result(res.Success)).Inc()
	if res.Success {
		l.OrderRef = res.Ref
		ms.log.Info("order_placed",
			logger.String("level", l.Label),
			logger.String("ref", res.Ref),
			logger.String("direction", l.Direction.String()),
			logger.Float64("price", req.Price),
			logger.Float64("volume", req.Volume))
		ms.sink.Emit(events.Event{Kind: events.OrderPlaced, Time: now, Symbol: ms.cfg.Symbol,
			Level: l.Label, Value: req.Volume})
	} else {
		ms.log.Error("order_rejected", logger.String("level", l.Label), logger.Err(executor.ResultErr(res)))
		ms.sink.Emit(events.Event{Kind: events.OrderSkipped, Time: now, Symbol: ms.cfg.Symbol,
			Level: l.Label, Reason: ReasonRejected})
	}
	// A rejected placement is not retried.
	ms.transition(l, Traded, now, "")
}

// prepare evaluates the gates in order and returns the order to place, or the
// reason the first failing gate gave.
func (ms *Machine) prepare(l *Level, m types.Market, now time.Time) (types.OrderRequest, string) {
	sym := m.Symbol()
	q := m.Quote()
	acct := m.Account()

	if ms.gate != nil && ms.gate.IsPaused(now) {
		return types.OrderRequest{}, ReasonPaused
	}
	if l.Disabled {
		return types.OrderRequest{}, ReasonDisabled
	}
	if ms.spike.Enabled() {
		atrPips := sym.ToPips(indicator.LastATR(m.DailyBars(), ms.cfg.Level.ATRPeriod))
		r := ms.spike.Check(l.Direction, m.Bars(), atrPips, sym.PipSize)
		if r.Spike {
			ms.log.Info("spike_detected",
				logger.String("level", l.Label),
				logger.Float64("bar_pips", r.BarPips),
				logger.Float64("window_pips", r.WindowPips),
				logger.Float64("bar_threshold", r.BarThreshold),
				logger.Float64("window_threshold", r.WindowThreshold))
			return types.OrderRequest{}, ReasonSpike
		}
	}
	if limit := ms.cfg.Risk.MaxSpreadPips; limit > 0 && sym.ToPips(q.Spread()) > limit {
		return types.OrderRequest{}, ReasonSpread
	}

	base := acct.Balance
	if ms.cfg.Risk.UseEquity {
		base = acct.Equity
	}
	amount := risk.RiskAmount(base, ms.cfg.Risk.RiskFraction, ms.cfg.Risk.FixedRiskAmount)
	pipValue := ms.pips.Resolve(sym.Name, sym.PipValue)
	volume := risk.Volume(amount, l.StopLossPips, pipValue, sym.VolumeStep, sym.MinVolume)
	if volume <= 0 {
		return types.OrderRequest{}, ReasonVolume
	}
	if acct.Leverage > 0 && sym.LotSize > 0 {
		afford := risk.MaxAffordableVolume(acct.FreeMargin, acct.Leverage, ms.cfg.Risk.MarginFraction, l.EntryPrice, sym.LotSize)
		if volume > afford {
			return types.OrderRequest{}, ReasonMargin
		}
	}

	return types.OrderRequest{
		Direction:    l.Direction,
		Symbol:       sym.Name,
		Volume:       volume,
		Price:        l.EntryPrice,
		Label:        ms.tag,
		StopLossPips: l.StopLossPips,
		ProfitPips:   l.ProfitTargetPips,
		Expiry:       l.ValidTo,
		Meta: types.OrderMeta{
			Tag:        ms.tag,
			LevelLabel: l.Label,
			RiskAmount: amount,
			TargetPips: l.ProfitTargetPips,
			StopPips:   l.StopLossPips,
		},
	}, ""
}

func (ms *Machine) skip(l *Level, reason string, now time.Time) {
	metrics.EntriesSkipped.WithLabelValues(ms.cfg.Symbol, reason).Inc()
	ms.log.Warn("order_skipped", logger.String("level", l.Label), logger.String("reason", reason))
	ms.sink.Emit(events.Event{Kind: events.OrderSkipped, Time: now, Symbol: ms.cfg.Symbol,
		Level: l.Label, Reason: reason})
}

// transition is the single place a level changes state.
func (ms *Machine) transition(l *Level, to State, now time.Time, reason string) bool {
	from := l.State
	if !CanTransition(from, to) {
		ms.log.Error("level_transition_invalid",
			logger.String("level", l.Label),
			logger.String("from", from.String()),
			logger.String("to", to.String()))
		return false
	}
	l.State = to
	metrics.LevelTransitions.WithLabelValues(ms.cfg.Symbol, to.String()).Inc()
	ms.log.Info("level_state_changed",
		logger.String("level", l.Label),
		logger.String("from", from.String()),
		logger.String("to", to.String()))
	ms.sink.Emit(events.Event{Kind: events.LevelStateChanged, Time: now, Symbol: ms.cfg.Symbol,
		Level: l.Label, From: from.String(), To: to.String(), Reason: reason})
	return true
}
