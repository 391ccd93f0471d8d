// Package level turns static price zones into live limit orders: building
// levels from raw records, replaying history, validating reloads and running
// the per-tick state machine.
package level

import (
	"fmt"
	"time"

	"github.com/evdnx/levelbot/types"
)

// Record is a raw level as materialised by the level source.
type Record struct {
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	Label     string    `json:"label"`
	ValidFrom time.Time `json:"valid_from"`
	ValidTo   time.Time `json:"valid_to"`
	// Optional linked distances in pips; 0 = not provided.
	StopPips   float64 `json:"stop_pips,omitempty"`
	TargetPips float64 `json:"target_pips,omitempty"`
	// Mode restricts the record to one strategy mode; empty = all modes.
	Mode string `json:"mode,omitempty"`
}

// Level is a fully computed price zone.
type Level struct {
	ID     string // <source>_<index>
	Label  string
	UID    string
	Symbol string

	Direction types.Direction
	ValidFrom time.Time
	ValidTo   time.Time

	RawPrice   float64
	EntryPrice float64

	StopLossPips     float64
	ProfitTargetPips float64

	StopLossPrice     float64
	ProfitTargetPrice float64
	ActivatePrice     float64
	DeactivatePrice   float64

	LinkedStopPips   float64
	LinkedTargetPips float64

	State    State
	Disabled bool
	// OrderRef is the gateway reference of the single placed order, if any.
	OrderRef string
}

// Tradeable: inside [ValidFrom, ValidTo) and not terminal.
func (l *Level) Tradeable(now time.Time) bool {
	return !now.Before(l.ValidFrom) && now.Before(l.ValidTo) && !l.State.Terminal()
}

// Expired: the validity window has elapsed.
func (l *Level) Expired(now time.Time) bool { return !now.Before(l.ValidTo) }

// CheckPrices verifies stop < entry < activate < deactivate along the
// direction of the trade.
func (l *Level) CheckPrices() error {
	d := l.Direction
	if !(d.Behind(l.StopLossPrice, l.EntryPrice) &&
		d.Behind(l.EntryPrice, l.ActivatePrice) &&
		d.Behind(l.ActivatePrice, l.DeactivatePrice)) {
		return fmt.Errorf("level %s: price ordering violated sl=%v entry=%v activate=%v deactivate=%v",
			l.Label, l.StopLossPrice, l.EntryPrice, l.ActivatePrice, l.DeactivatePrice)
	}
	return nil
}

func (l *Level) String() string {
	return fmt.Sprintf("%s %s %s %.5f %s..%s %s",
		l.Label, l.Symbol, l.Direction, l.EntryPrice,
		l.ValidFrom.Format(time.RFC3339), l.ValidTo.Format(time.RFC3339), l.State)
}
