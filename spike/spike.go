// Package spike vetoes entries while short-term volatility is large compared
// to the daily range.
package spike

import (
	"github.com/evdnx/levelbot/config"
	"github.com/evdnx/levelbot/types"
)

// DefaultWindowBars is the length of the multi-bar window.
const DefaultWindowBars = 4

// Presets returns the single-bar and window thresholds, as fractions of the
// daily ATR, for a strategy mode.
func Presets(mode config.StrategyMode) (bar, window float64) {
	switch mode {
	case config.ModeSwing:
		return 0.5, 1.0
	case config.ModeInvest:
		return 1.0, 1.5
	default:
		return 0.3, 0.5
	}
}

// Reading is the outcome of a single check, kept for logging.
type Reading struct {
	BarPips         float64
	WindowPips      float64
	BarThreshold    float64
	WindowThreshold float64
	Spike           bool
}

type Detector struct {
	enabled    bool
	windowBars int
	barFrac    float64
	windowFrac float64
}

// NewDetector applies the mode presets to any fraction left at zero.
func NewDetector(cfg config.SpikeConfig, mode config.StrategyMode) *Detector {
	bar, window := Presets(mode)
	if cfg.BarFraction > 0 {
		bar = cfg.BarFraction
	}
	if cfg.WindowFraction > 0 {
		window = cfg.WindowFraction
	}
	n := cfg.WindowBars
	if n <= 0 {
		n = DefaultWindowBars
	}
	return &Detector{enabled: cfg.Enabled, windowBars: n, barFrac: bar, windowFrac: window}
}

func (d *Detector) Enabled() bool { return d != nil && d.enabled }

// Check measures the high-low range in the trade direction over the last
// completed bar and over the last windowBars bars, and flags a spike when
// either meets its threshold. The range counts a low followed by a later high
// for Long and a high followed by a later low for Short, so a single bar
// contributes its full high-low range to both sides. Without a usable daily
// ATR nothing is flagged.
func (d *Detector) Check(dir types.Direction, bars types.Series, dailyATRPips, pipSize float64) Reading {
	if !d.Enabled() || bars == nil || bars.Len() == 0 || dailyATRPips <= 0 || pipSize <= 0 {
		return Reading{}
	}
	r := Reading{
		BarPips:         directionalRange(dir, bars, 1) / pipSize,
		WindowPips:      directionalRange(dir, bars, d.windowBars) / pipSize,
		BarThreshold:    d.barFrac * dailyATRPips,
		WindowThreshold: d.windowFrac * dailyATRPips,
	}
	r.Spike = r.BarPips >= r.BarThreshold || r.WindowPips >= r.WindowThreshold
	return r
}

func directionalRange(dir types.Direction, bars types.Series, n int) float64 {
	start := bars.Len() - n
	if start < 0 {
		start = 0
	}
	var from, best float64
	for i := start; i < bars.Len(); i++ {
		b := bars.At(i)
		if v := dir.Adverse(b); i == start || dir.Behind(v, from) {
			from = v
		}
		if move := (dir.Favorable(b) - from) * dir.Sign(); move > best {
			best = move
		}
	}
	return best
}
