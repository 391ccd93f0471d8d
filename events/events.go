// Package events carries the signals the engine produces for display and
// notification collaborators. Nothing in the engine depends on them being
// consumed.
package events

import (
	"io"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/evdnx/levelbot/logger"
)

type Kind string

const (
	LevelStateChanged    Kind = "level_state_changed"
	PositionStateChanged Kind = "position_state_changed"
	OrderPlaced          Kind = "order_placed"
	OrderSkipped         Kind = "order_skipped"
	CalendarPaused       Kind = "calendar_paused"
	CalendarResumed      Kind = "calendar_resumed"
	LevelsReloaded       Kind = "levels_reloaded"
)

// Event is a single produced signal.
type Event struct {
	Kind     Kind      `json:"kind"`
	Time     time.Time `json:"time"`
	Symbol   string    `json:"symbol"`
	Level    string    `json:"level,omitempty"`
	Position string    `json:"position,omitempty"`
	From     string    `json:"from,omitempty"`
	To       string    `json:"to,omitempty"`
	Reason   string    `json:"reason,omitempty"`
	Value    float64   `json:"value,omitempty"`
}

// Sink receives events. Emit must not block the engine.
type Sink interface {
	Emit(e Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(e Event)

func (f SinkFunc) Emit(e Event) { f(e) }

// Nop discards events.
var Nop Sink = SinkFunc(func(Event) {})

// Multi fans an event out to every sink.
func Multi(sinks ...Sink) Sink {
	return SinkFunc(func(e Event) {
		for _, s := range sinks {
			s.Emit(e)
		}
	})
}

// LogSink writes every event as a structured log line.
func LogSink(l logger.Logger) Sink {
	return SinkFunc(func(e Event) {
		l.Info(string(e.Kind),
			logger.Time("at", e.Time),
			logger.String("symbol", e.Symbol),
			logger.String("level", e.Level),
			logger.String("position", e.Position),
			logger.String("from", e.From),
			logger.String("to", e.To),
			logger.String("reason", e.Reason),
			logger.Float64("value", e.Value),
		)
	})
}

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// JSONLines writes one JSON document per event to w. Write errors are
// reported through onErr and otherwise ignored.
type JSONLines struct {
	mu    sync.Mutex
	enc   *jsoniter.Encoder
	onErr func(error)
}

func NewJSONLines(w io.Writer, onErr func(error)) *JSONLines {
	return &JSONLines{enc: json.NewEncoder(w), onErr: onErr}
}

func (j *JSONLines) Emit(e Event) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.enc.Encode(e); err != nil && j.onErr != nil {
		j.onErr(err)
	}
}
