package level

import "time"

// Indistinguishable reports whether next would replace active with the same
// levels: identical labels carrying the same raw price, validity window and
// direction. Levels already expired at now are ignored on both sides, so a
// set whose only difference is stale history still counts as a duplicate.
// An empty next set is never a duplicate of a non-empty one.
func Indistinguishable(active, next []*Level, now time.Time) bool {
	a := byLabel(active, now)
	n := byLabel(next, now)
	if len(a) == 0 || len(a) != len(n) {
		return false
	}
	for label, x := range a {
		y, ok := n[label]
		if !ok || !same(x, y) {
			return false
		}
	}
	return true
}

func byLabel(levels []*Level, now time.Time) map[string]*Level {
	m := make(map[string]*Level, len(levels))
	for _, l := range levels {
		if l.Expired(now) {
			continue
		}
		m[l.Label] = l
	}
	return m
}

func same(a, b *Level) bool {
	return a.RawPrice == b.RawPrice &&
		a.ValidFrom.Equal(b.ValidFrom) &&
		a.ValidTo.Equal(b.ValidTo) &&
		a.Direction == b.Direction
}
