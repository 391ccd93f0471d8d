package level

// State is the lifecycle of a level. Disabled is tracked separately on the
// Level because it overrides placement without changing the lifecycle.
type State int

const (
	Pending State = iota
	Activated
	Traded
	Deactivated
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Activated:
		return "activated"
	case Traded:
		return "traded"
	case Deactivated:
		return "deactivated"
	default:
		return "unknown"
	}
}

// Terminal states never change again.
func (s State) Terminal() bool { return s == Traded || s == Deactivated }

func (s State) rank() int {
	switch {
	case s.Terminal():
		return 2
	case s == Activated:
		return 1
	}
	return 0
}

// validTransitions lists the allowed moves. Pending may jump straight to
// Traded when replay sees the entry touched inside the activating bar.
var validTransitions = map[State][]State{
	Pending:   {Activated, Traded},
	Activated: {Traded, Deactivated},
}

// CanTransition reports whether from → to is allowed.
func CanTransition(from, to State) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
