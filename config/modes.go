package config

import (
	"fmt"
	"strings"
)

// StrategyMode selects the trading horizon. It keys the spike presets and is
// part of the position tag.
type StrategyMode int

const (
	ModeIntraday StrategyMode = iota
	ModeSwing
	ModeInvest
)

func (m StrategyMode) String() string {
	switch m {
	case ModeIntraday:
		return "ID"
	case ModeSwing:
		return "SWING"
	case ModeInvest:
		return "INVEST"
	default:
		return fmt.Sprintf("MODE(%d)", int(m))
	}
}

func (m StrategyMode) valid() bool { return m >= ModeIntraday && m <= ModeInvest }

// ParseStrategyMode accepts ID/INTRADAY, SWING and INVEST in any case.
func ParseStrategyMode(s string) (StrategyMode, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ID", "INTRADAY":
		return ModeIntraday, nil
	case "SWING":
		return ModeSwing, nil
	case "INVEST":
		return ModeInvest, nil
	}
	return 0, fmt.Errorf("unknown strategy mode %q", s)
}

// SkipPolicy decides what happens to an activated level whose entry attempt
// was skipped by a gate or rejected by the gateway.
type SkipPolicy int

const (
	// SkipTerminates marks the level Traded after the first attempt whatever
	// its outcome. At most one attempt is ever made per level.
	SkipTerminates SkipPolicy = iota
	// SkipRetries keeps a gate-skipped level Activated so a later tick may
	// attempt again. Gateway rejections still terminate.
	SkipRetries
)

func (p SkipPolicy) String() string {
	if p == SkipRetries {
		return "retry"
	}
	return "terminate"
}

// NegativeAreaMode decides which part of a candle must sit on the losing side
// of the entry for the bar to count.
type NegativeAreaMode int

const (
	FullCandle NegativeAreaMode = iota
	CandleBody
)

func (m NegativeAreaMode) String() string {
	if m == CandleBody {
		return "body"
	}
	return "full"
}

// ProfitStrategy is the partial-profit variant.
type ProfitStrategy int

const (
	ProfitSimple ProfitStrategy = iota
	ProfitTrailing
)

func (p ProfitStrategy) String() string {
	switch p {
	case ProfitSimple:
		return "simple"
	case ProfitTrailing:
		return "trailing"
	default:
		return fmt.Sprintf("PROFIT(%d)", int(p))
	}
}

// ClosePolicy decides when a calendar pause closes open positions.
type ClosePolicy int

const (
	CloseNever ClosePolicy = iota
	// CloseOnTransition closes once, on the tick the pause begins.
	CloseOnTransition
	// CloseEveryTick closes on every paused tick.
	CloseEveryTick
)

func (p ClosePolicy) String() string {
	switch p {
	case CloseNever:
		return "never"
	case CloseOnTransition:
		return "transition"
	case CloseEveryTick:
		return "every_tick"
	default:
		return fmt.Sprintf("CLOSE(%d)", int(p))
	}
}

func parseEnum[T ~int](kind, s string, values ...T) (T, error) {
	for _, v := range values {
		if strings.EqualFold(fmt.Sprint(v), strings.TrimSpace(s)) {
			return v, nil
		}
	}
	var zero T
	return zero, fmt.Errorf("unknown %s %q", kind, s)
}
