package level

import (
	"time"

	"github.com/evdnx/levelbot/types"
)

// Step is one state change observed while replaying history.
type Step struct {
	At   time.Time
	From State
	To   State
}

// Replay walks the completed bars opening inside [ValidFrom, ValidTo] and
// moves the level to the state it would have reached live. Per bar the rules
// run in the live order: activation on the adverse extreme, deactivation on
// the favorable extreme (never in the bar that activated), then the entry
// touch. Replay stops at the first terminal state. Only Pending levels are
// replayed.
func Replay(l *Level, bars types.Series) []Step {
	if l.State != Pending || bars == nil || bars.Len() == 0 {
		return nil
	}
	start := bars.IndexAtOrBefore(l.ValidFrom)
	if start < 0 {
		start = 0
	} else if bars.At(start).OpenTime.Before(l.ValidFrom) {
		start++
	}

	var steps []Step
	move := func(at time.Time, to State) {
		steps = append(steps, Step{At: at, From: l.State, To: to})
		l.State = to
	}

	d := l.Direction
	for i := start; i < bars.Len(); i++ {
		b := bars.At(i)
		if b.OpenTime.After(l.ValidTo) {
			break
		}
		activatedNow := false
		if l.State == Pending && d.AtOrBehind(d.Adverse(b), l.ActivatePrice) {
			move(b.OpenTime, Activated)
			activatedNow = true
		}
		if l.State == Activated && !activatedNow && d.AtOrBeyond(d.Favorable(b), l.DeactivatePrice) {
			move(b.OpenTime, Deactivated)
			break
		}
		if d.AtOrBehind(d.Adverse(b), l.EntryPrice) {
			move(b.OpenTime, Traded)
			break
		}
	}
	return steps
}
