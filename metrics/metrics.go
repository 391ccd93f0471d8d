package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	LevelTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "levelbot_level_transitions_total",
			Help: "Level state transitions (by target state).",
		},
		[]string{"symbol", "state"},
	)

	OrdersPlaced = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "levelbot_orders_placed_total",
			Help: "Limit order placement attempts (by result).",
		},
		[]string{"symbol", "result"},
	)

	EntriesSkipped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "levelbot_entries_skipped_total",
			Help: "Entry attempts suppressed by a gate (by reason).",
		},
		[]string{"symbol", "reason"},
	)

	PositionActions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "levelbot_position_actions_total",
			Help: "Position management actions (by action and result).",
		},
		[]string{"symbol", "action", "result"},
	)

	Reloads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "levelbot_level_reloads_total",
			Help: "Level set reloads (by result).",
		},
		[]string{"symbol", "result"},
	)

	LiveLevels = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "levelbot_levels_live",
			Help: "Levels in the active set that are not terminal.",
		},
		[]string{"symbol"},
	)

	CalendarPaused = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "levelbot_calendar_paused",
			Help: "1 while the calendar gate blocks entries.",
		},
		[]string{"symbol"},
	)
)

func init() {
	prometheus.MustRegister(LevelTransitions, OrdersPlaced, EntriesSkipped,
		PositionActions, Reloads, LiveLevels, CalendarPaused)
}

// Result labels a gateway outcome.
func Result(ok bool) string {
	if ok {
		return "ok"
	}
	return "failed"
}
