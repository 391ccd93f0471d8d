package level

import "github.com/evdnx/levelbot/types"

// Carry moves live progress from the active set onto the matching labels of
// next. Disabled always follows the label. State and OrderRef follow only
// while the level itself is unchanged and the live state is further along
// than the replayed one, since replay cannot see the bar in progress.
func Carry(active, next []*Level) {
	prev := make(map[string]*Level, len(active))
	for _, l := range active {
		prev[l.Label] = l
	}
	for _, l := range next {
		old, ok := prev[l.Label]
		if !ok {
			continue
		}
		l.Disabled = old.Disabled
		if same(old, l) && old.State.rank() > l.State.rank() {
			l.State = old.State
			l.OrderRef = old.OrderRef
		}
	}
}

// Claim marks non-terminal levels Traded when the venue already holds an
// order or a position created for their label by this tag. It returns the
// levels it changed.
func Claim(levels []*Level, tag string, orders []types.PendingOrder, positions []types.Position) []*Level {
	refs := make(map[string]string)
	for _, p := range positions {
		if p.Meta.Tag == tag {
			refs[p.Meta.LevelLabel] = ""
		}
	}
	for _, o := range orders {
		if o.Meta.Tag == tag {
			refs[o.Meta.LevelLabel] = o.Ref
		}
	}

	var claimed []*Level
	for _, l := range levels {
		ref, ok := refs[l.Label]
		if !ok || l.State.Terminal() {
			continue
		}
		l.State = Traded
		if ref != "" {
			l.OrderRef = ref
		}
		claimed = append(claimed, l)
	}
	return claimed
}
