package types

import "time"

type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// OrderMeta is attached to an order when it is created and travels with the
// resulting position, so thresholds can be recomputed without parsing comments.
type OrderMeta struct {
	Tag        string  // symbol_source_strategy
	LevelLabel string  // originating level
	RiskAmount float64 // account currency
	TargetPips float64
	StopPips   float64
}

// OrderRequest describes a pending limit order.
type OrderRequest struct {
	Direction    Direction
	Symbol       string
	Volume       float64
	Price        float64 // limit price
	Label        string
	StopLossPips float64
	ProfitPips   float64
	Expiry       time.Time
	Meta         OrderMeta
}

// PendingOrder is an order resting at the gateway.
type PendingOrder struct {
	Ref       string
	Label     string
	Direction Direction
	Symbol    string
	Volume    float64
	Price     float64
	Expiry    time.Time
	Meta      OrderMeta
}

// Position is an open position as reported by the gateway. The engine only
// reads it and asks the gateway for modifications.
type Position struct {
	ID          string
	Symbol      string
	Direction   Direction
	EntryPrice  float64
	EntryTime   time.Time
	StopLoss    float64 // 0 = none
	TakeProfit  float64 // 0 = none
	GrossProfit float64
	NetProfit   float64
	Volume      float64
	Meta        OrderMeta
}

// Result is returned by every gateway mutation. Callers must inspect Success
// before assuming the mutation took effect.
type Result struct {
	Success bool
	Ref     string
	Err     error
}

// OK builds a successful result.
func OK(ref string) Result { return Result{Success: true, Ref: ref} }

// Failed builds a failed result.
func Failed(err error) Result { return Result{Err: err} }
