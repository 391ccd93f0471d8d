package testutils

import (
	"fmt"
	"sync"

	"github.com/evdnx/levelbot/types"
)

// Modification captures a stop/target change request.
type Modification struct {
	PositionID string
	StopLoss   float64
	TakeProfit float64
}

// MockGateway implements executor.Gateway in memory. Placed orders rest in
// PendingOrders until cancelled; positions are seeded by the test. Every
// request is captured for assertions, and Fail* toggles make the matching
// call report failure without mutating anything.
type MockGateway struct {
	mu sync.RWMutex

	placed        []types.OrderRequest
	pending       []types.PendingOrder
	positions     []types.Position
	cancelled     []string
	modifications []Modification
	volumes       map[string]float64
	closed        []string
	seq           int

	FailPlace  bool
	FailCancel bool
	FailModify bool
	FailVolume bool
	FailClose  bool
}

// NewMockGateway creates an empty gateway.
func NewMockGateway() *MockGateway {
	return &MockGateway{volumes: make(map[string]float64)}
}

func (g *MockGateway) PlaceLimitOrder(req types.OrderRequest) types.Result {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.placed = append(g.placed, req)
	if g.FailPlace {
		return types.Failed(fmt.Errorf("%w: mock", types.ErrOrderRejected))
	}
	g.seq++
	ref := fmt.Sprintf("order-%d", g.seq)
	g.pending = append(g.pending, types.PendingOrder{
		Ref: ref, Label: req.Label, Direction: req.Direction, Symbol: req.Symbol,
		Volume: req.Volume, Price: req.Price, Expiry: req.Expiry, Meta: req.Meta,
	})
	return types.OK(ref)
}

func (g *MockGateway) CancelPendingOrder(ref string) types.Result {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.FailCancel {
		return types.Failed(fmt.Errorf("cancel %s refused", ref))
	}
	for i, o := range g.pending {
		if o.Ref == ref {
			g.pending = append(g.pending[:i], g.pending[i+1:]...)
			g.cancelled = append(g.cancelled, ref)
			break
		}
	}
	return types.OK(ref)
}

func (g *MockGateway) ModifyPositionStopTakeProfit(id string, stopLoss, takeProfit float64) types.Result {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.modifications = append(g.modifications, Modification{PositionID: id, StopLoss: stopLoss, TakeProfit: takeProfit})
	if g.FailModify {
		return types.Failed(fmt.Errorf("modify %s refused", id))
	}
	for i := range g.positions {
		if g.positions[i].ID == id {
			g.positions[i].StopLoss = stopLoss
			g.positions[i].TakeProfit = takeProfit
		}
	}
	return types.OK(id)
}

func (g *MockGateway) ModifyPositionVolume(id string, volume float64) types.Result {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.FailVolume {
		return types.Failed(fmt.Errorf("volume %s refused", id))
	}
	g.volumes[id] = volume
	for i := range g.positions {
		if g.positions[i].ID == id {
			g.positions[i].Volume = volume
		}
	}
	return types.OK(id)
}

func (g *MockGateway) ClosePosition(id string) types.Result {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.FailClose {
		return types.Failed(fmt.Errorf("close %s refused", id))
	}
	for i, p := range g.positions {
		if p.ID == id {
			g.positions = append(g.positions[:i], g.positions[i+1:]...)
			g.closed = append(g.closed, id)
			break
		}
	}
	return types.OK(id)
}

func (g *MockGateway) PendingOrders() []types.PendingOrder {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]types.PendingOrder(nil), g.pending...)
}

func (g *MockGateway) Positions() []types.Position {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]types.Position(nil), g.positions...)
}

// AddPosition seeds an open position.
func (g *MockGateway) AddPosition(p types.Position) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.positions = append(g.positions, p)
}

// SetPosition replaces the position with the same ID, e.g. to move profit.
func (g *MockGateway) SetPosition(p types.Position) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for i := range g.positions {
		if g.positions[i].ID == p.ID {
			g.positions[i] = p
			return
		}
	}
	g.positions = append(g.positions, p)
}

// AddPending seeds a resting order.
func (g *MockGateway) AddPending(o types.PendingOrder) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pending = append(g.pending, o)
}

// Placed returns a copy of every placement request, failed ones included.
func (g *MockGateway) Placed() []types.OrderRequest {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]types.OrderRequest(nil), g.placed...)
}

func (g *MockGateway) Cancelled() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]string(nil), g.cancelled...)
}

func (g *MockGateway) Modifications() []Modification {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]Modification(nil), g.modifications...)
}

// Volume returns the last volume requested for a position, if any.
func (g *MockGateway) Volume(id string) (float64, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	v, ok := g.volumes[id]
	return v, ok
}

func (g *MockGateway) Closed() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]string(nil), g.closed...)
}
