package types

import "errors"

var (
	// ErrLevelSourceUnavailable: the level source is missing or unreadable.
	// The active level set is kept and the load is retried next cycle.
	ErrLevelSourceUnavailable = errors.New("level source unavailable")

	// ErrCalendarUnavailable: the calendar could not be fetched or parsed.
	// Treated as "no active event pause".
	ErrCalendarUnavailable = errors.New("calendar unavailable")

	// ErrDuplicateLevelSet: a reload produced a set indistinguishable from the
	// live one and was rejected.
	ErrDuplicateLevelSet = errors.New("level set indistinguishable from active set")

	// ErrOrderRejected: the gateway refused a placement or modification.
	ErrOrderRejected = errors.New("order rejected")
)
