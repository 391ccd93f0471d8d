package executor

import (
	"fmt"

	"go.uber.org/multierr"

	"github.com/evdnx/levelbot/types"
)

// Gateway is the execution venue. Every call is synchronous; mutations
// report their outcome in the returned Result and callers must branch on it.
// Cancelling an order that is already gone is a successful no-op.
type Gateway interface {
	PlaceLimitOrder(req types.OrderRequest) types.Result
	CancelPendingOrder(ref string) types.Result
	ModifyPositionStopTakeProfit(positionID string, stopLoss, takeProfit float64) types.Result
	ModifyPositionVolume(positionID string, volume float64) types.Result
	ClosePosition(positionID string) types.Result

	PendingOrders() []types.PendingOrder
	Positions() []types.Position
}

// CancelMatching cancels every pending order accepted by match. The sweep is
// best effort: it keeps going past failures and returns them combined.
func CancelMatching(g Gateway, match func(types.PendingOrder) bool) (cancelled int, err error) {
	for _, o := range g.PendingOrders() {
		if !match(o) {
			continue
		}
		res := g.CancelPendingOrder(o.Ref)
		if !res.Success {
			err = multierr.Append(err, fmt.Errorf("cancel %s: %w", o.Ref, ResultErr(res)))
			continue
		}
		cancelled++
	}
	return cancelled, err
}

// ByTag matches orders created by one engine instance.
func ByTag(tag string) func(types.PendingOrder) bool {
	return func(o types.PendingOrder) bool { return o.Meta.Tag == tag }
}

// ByLevel matches orders created for one level of one engine instance.
func ByLevel(tag, label string) func(types.PendingOrder) bool {
	return func(o types.PendingOrder) bool { return o.Meta.Tag == tag && o.Meta.LevelLabel == label }
}

// ResultErr returns the error carried by a failed result, falling back to
// ErrOrderRejected when the gateway gave no detail.
func ResultErr(r types.Result) error {
	if r.Success {
		return nil
	}
	if r.Err != nil {
		return r.Err
	}
	return types.ErrOrderRejected
}
