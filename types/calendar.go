package types

import (
	"strings"
	"time"
)

// Impact is the ordinal severity of a scheduled event.
type Impact int

const (
	ImpactHoliday Impact = iota
	ImpactLow
	ImpactMedium
	ImpactHigh
)

func (i Impact) String() string {
	switch i {
	case ImpactHoliday:
		return "Holiday"
	case ImpactLow:
		return "Low"
	case ImpactMedium:
		return "Medium"
	case ImpactHigh:
		return "High"
	default:
		return "Unknown"
	}
}

// ParseImpact maps a feed impact label to its tier. Unknown labels map to Low.
func ParseImpact(s string) Impact {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "holiday":
		return ImpactHoliday
	case "medium":
		return ImpactMedium
	case "high":
		return ImpactHigh
	default:
		return ImpactLow
	}
}

// CalendarEvent is a scheduled economic event.
type CalendarEvent struct {
	Country string    `json:"country"`
	Title   string    `json:"title"`
	Impact  Impact    `json:"impact"`
	Time    time.Time `json:"time"`
}

// Window returns the blackout window [Time-d, Time+d].
func (e CalendarEvent) Window(d time.Duration) (from, to time.Time) {
	return e.Time.Add(-d), e.Time.Add(d)
}
