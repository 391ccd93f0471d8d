package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/evdnx/levelbot/types"
	"go.uber.org/multierr"
)

// EngineConfig holds every tunable parameter of the level engine.
type EngineConfig struct {
	Symbol string
	// Source names the level source; it is part of level IDs and the
	// position tag.
	Source string
	Mode   StrategyMode

	Risk     RiskConfig
	Level    LevelConfig
	Spike    SpikeConfig
	Calendar CalendarConfig
	Position PositionConfig
	Schedule ScheduleConfig
}

// RiskConfig drives the risk sizer and the pre-placement gates.
type RiskConfig struct {
	RiskFraction    float64 // e.g. 0.01 = 1 % of balance
	FixedRiskAmount float64 // account currency, overrides RiskFraction when > 0
	UseEquity       bool    // size from equity instead of balance
	MaxSpreadPips   float64 // 0 = no limit
	MarginFraction  float64 // share of free margin an entry may consume

	// PipValueOverrides pins the pip value per lot for a symbol, ignoring
	// what the platform reports.
	PipValueOverrides map[string]float64
	// PipValueScale multiplies the reported pip value (default 1).
	PipValueScale map[string]float64
}

// LevelConfig drives level construction.
type LevelConfig struct {
	OffsetPips         float64
	DefaultStopPips    float64
	MinStopPips        float64
	UseATRStop         bool
	ATRMultiplier      float64
	ATRPeriod          int
	RiskReward         float64
	ActivateFraction   float64 // of target distance
	DeactivateFraction float64 // of target distance
	SkipPolicy         SkipPolicy
}

// SpikeConfig drives the volatility gate. Zero fractions use the preset for
// the strategy mode.
type SpikeConfig struct {
	Enabled        bool
	WindowBars     int
	BarFraction    float64
	WindowFraction float64
}

// CalendarConfig drives the news blackout gate.
type CalendarConfig struct {
	Enabled          bool
	Window           time.Duration // each side of the event
	// ImpactWindows overrides Window per impact tier.
	ImpactWindows    map[types.Impact]time.Duration
	MinImpact        types.Impact
	CountryOverrides map[string][]string
	WeeklyBlackouts  []WeeklyWindow
	RefreshInterval  time.Duration
	ClosePolicy      ClosePolicy
}

// WindowFor is the blackout duration on each side of an event of impact i.
func (c CalendarConfig) WindowFor(i types.Impact) time.Duration {
	if d, ok := c.ImpactWindows[i]; ok {
		return d
	}
	return c.Window
}

// WeeklyWindow is a recurring blackout, e.g. Friday 20:00 to Monday 00:00.
// Offsets are measured from midnight UTC of the given weekday.
type WeeklyWindow struct {
	FromDay time.Weekday
	From    time.Duration
	ToDay   time.Weekday
	To      time.Duration
}

// PositionConfig drives post-entry management.
type PositionConfig struct {
	NegativeAreaBars       int // 0 = disabled
	NegativeAreaMode       NegativeAreaMode
	NegativeOffsetFraction float64 // of the original stop distance

	BreakevenFraction float64 // of target distance, 0 = disabled
	PartialFraction   float64 // of target distance, 0 = disabled
	ProfitStrategy    ProfitStrategy

	PartialVolumeFraction float64 // Simple: share of volume to close
	TrailPeriod           int     // Trailing: envelope length in bars
	TrailTriggerPips      float64 // Trailing: distance past the envelope to arm
}

// ScheduleConfig drives the timer clock.
type ScheduleConfig struct {
	ReloadHour   int // UTC
	ReloadMinute int
}

// Default returns a configuration that validates.
func Default() EngineConfig {
	return EngineConfig{
		Symbol: "EURUSD",
		Source: "levels",
		Mode:   ModeIntraday,
		Risk: RiskConfig{
			RiskFraction:   0.01,
			MaxSpreadPips:  3,
			MarginFraction: 0.9,
		},
		Level: LevelConfig{
			DefaultStopPips:    10,
			MinStopPips:        5,
			ATRMultiplier:      0.2,
			ATRPeriod:          14,
			RiskReward:         1.5,
			ActivateFraction:   0.3,
			DeactivateFraction: 0.9,
			SkipPolicy:         SkipTerminates,
		},
		Spike: SpikeConfig{WindowBars: 4},
		Calendar: CalendarConfig{
			Enabled:   true,
			Window:    30 * time.Minute,
			MinImpact: types.ImpactMedium,
			WeeklyBlackouts: []WeeklyWindow{
				{FromDay: time.Friday, From: 20 * time.Hour, ToDay: time.Monday, To: 0},
			},
			RefreshInterval: time.Hour,
			ClosePolicy:     CloseOnTransition,
		},
		Position: PositionConfig{
			NegativeAreaMode:       FullCandle,
			NegativeOffsetFraction: 0.5,
			ProfitStrategy:         ProfitSimple,
			PartialVolumeFraction:  0.5,
			TrailPeriod:            3,
			TrailTriggerPips:       2,
		},
		Schedule: ScheduleConfig{ReloadHour: 0, ReloadMinute: 5},
	}
}

// Validate checks that all numeric fields are within sensible bounds. Every
// problem is reported, not just the first one.
func (c *EngineConfig) Validate() error {
	var err error
	add := func(e error) { err = multierr.Append(err, e) }

	if c.Symbol == "" {
		add(errors.New("Symbol is required"))
	}
	if c.Source == "" {
		add(errors.New("Source is required"))
	}
	if !c.Mode.valid() {
		add(fmt.Errorf("unknown strategy mode %d", c.Mode))
	}

	r := c.Risk
	if r.FixedRiskAmount < 0 {
		add(fmt.Errorf("FixedRiskAmount (%f) cannot be negative", r.FixedRiskAmount))
	}
	if r.FixedRiskAmount == 0 && (r.RiskFraction <= 0 || r.RiskFraction > 0.5) {
		add(fmt.Errorf("RiskFraction (%f) must be >0 and <=0.5", r.RiskFraction))
	}
	if r.MaxSpreadPips < 0 {
		add(fmt.Errorf("MaxSpreadPips (%f) cannot be negative", r.MaxSpreadPips))
	}
	if r.MarginFraction <= 0 || r.MarginFraction > 1 {
		add(fmt.Errorf("MarginFraction (%f) must be >0 and <=1", r.MarginFraction))
	}
	for sym, v := range r.PipValueOverrides {
		if v <= 0 {
			add(fmt.Errorf("pip value override for %s must be positive", sym))
		}
	}
	for sym, v := range r.PipValueScale {
		if v <= 0 {
			add(fmt.Errorf("pip value scale for %s must be positive", sym))
		}
	}

	l := c.Level
	if l.OffsetPips < 0 {
		add(errors.New("OffsetPips cannot be negative"))
	}
	if l.MinStopPips <= 0 {
		add(errors.New("MinStopPips must be positive"))
	}
	if l.DefaultStopPips < l.MinStopPips {
		add(fmt.Errorf("DefaultStopPips (%f) below MinStopPips (%f)", l.DefaultStopPips, l.MinStopPips))
	}
	if l.UseATRStop && (l.ATRMultiplier <= 0 || l.ATRPeriod <= 0) {
		add(errors.New("ATR stop needs a positive ATRMultiplier and ATRPeriod"))
	}
	if l.RiskReward <= 0 {
		add(errors.New("RiskReward must be positive"))
	}
	if l.ActivateFraction <= 0 || l.DeactivateFraction <= l.ActivateFraction {
		add(fmt.Errorf("need 0 < ActivateFraction (%f) < DeactivateFraction (%f)",
			l.ActivateFraction, l.DeactivateFraction))
	}

	if c.Spike.Enabled {
		if c.Spike.WindowBars < 1 {
			add(errors.New("Spike.WindowBars must be >= 1"))
		}
		if c.Spike.BarFraction < 0 || c.Spike.WindowFraction < 0 {
			add(errors.New("spike fractions cannot be negative"))
		}
		if c.Level.ATRPeriod <= 0 {
			add(errors.New("spike detection needs a positive ATRPeriod"))
		}
	}

	cal := c.Calendar
	if cal.Window < 0 {
		add(errors.New("Calendar.Window cannot be negative"))
	}
	for i, d := range cal.ImpactWindows {
		if d < 0 {
			add(fmt.Errorf("Calendar.ImpactWindows[%s] cannot be negative", i))
		}
	}
	for i, w := range cal.WeeklyBlackouts {
		if w.From < 0 || w.From > 24*time.Hour || w.To < 0 || w.To > 24*time.Hour {
			add(fmt.Errorf("weekly blackout %d: offsets must be within a day", i))
		}
	}

	p := c.Position
	if p.NegativeAreaBars < 0 {
		add(errors.New("NegativeAreaBars cannot be negative"))
	}
	if p.NegativeOffsetFraction < 0 || p.NegativeOffsetFraction > 1 {
		add(fmt.Errorf("NegativeOffsetFraction (%f) must be between 0 and 1", p.NegativeOffsetFraction))
	}
	if p.BreakevenFraction < 0 || p.PartialFraction < 0 {
		add(errors.New("profit fractions cannot be negative"))
	}
	if p.PartialFraction > 0 {
		switch p.ProfitStrategy {
		case ProfitSimple:
			if p.PartialVolumeFraction <= 0 || p.PartialVolumeFraction >= 1 {
				add(fmt.Errorf("PartialVolumeFraction (%f) must be between 0 and 1", p.PartialVolumeFraction))
			}
		case ProfitTrailing:
			if p.TrailPeriod < 1 {
				add(errors.New("TrailPeriod must be >= 1"))
			}
			if p.TrailTriggerPips < 0 {
				add(errors.New("TrailTriggerPips cannot be negative"))
			}
		default:
			add(fmt.Errorf("unknown profit strategy %d", p.ProfitStrategy))
		}
	}

	s := c.Schedule
	if s.ReloadHour < 0 || s.ReloadHour > 23 || s.ReloadMinute < 0 || s.ReloadMinute > 59 {
		add(fmt.Errorf("reload time %02d:%02d is not a valid time of day", s.ReloadHour, s.ReloadMinute))
	}
	return err
}

// Tag identifies the orders and positions owned by this engine instance:
// symbol, level source and strategy mode.
func (c EngineConfig) Tag() string {
	return c.Symbol + "_" + c.Source + "_" + c.Mode.String()
}
