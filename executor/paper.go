package executor

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/evdnx/levelbot/logger"
	"github.com/evdnx/levelbot/types"
)

// ClosedTrade is a realised position kept for reporting.
type ClosedTrade struct {
	Position  types.Position
	ExitPrice float64
	Profit    float64
	Reason    string
}

// PaperGateway is a single-instrument simulated venue: limit orders fill when
// the quote touches them, stops and targets fill at their price, no slippage.
type PaperGateway struct {
	sym      types.SymbolInfo
	leverage float64
	balance  float64
	quote    types.Quote
	orders   []types.PendingOrder
	open     []types.Position
	closed   []ClosedTrade
	log      logger.Logger
}

func NewPaperGateway(sym types.SymbolInfo, startBalance, leverage float64, log logger.Logger) *PaperGateway {
	if log == nil {
		log = logger.NewNop()
	}
	return &PaperGateway{sym: sym, leverage: leverage, balance: startBalance, log: log}
}

func (p *PaperGateway) PlaceLimitOrder(req types.OrderRequest) types.Result {
	if req.Direction == nil || req.Volume <= 0 || req.Price <= 0 {
		return types.Failed(fmt.Errorf("%w: invalid request volume=%v price=%v", types.ErrOrderRejected, req.Volume, req.Price))
	}
	if req.Symbol != p.sym.Name {
		return types.Failed(fmt.Errorf("%w: unknown symbol %s", types.ErrOrderRejected, req.Symbol))
	}
	o := types.PendingOrder{
		Ref:       uuid.NewString(),
		Label:     req.Label,
		Direction: req.Direction,
		Symbol:    req.Symbol,
		Volume:    req.Volume,
		Price:     req.Price,
		Expiry:    req.Expiry,
		Meta:      req.Meta,
	}
	p.orders = append(p.orders, o)
	p.log.Info("paper_order_placed",
		logger.String("ref", o.Ref),
		logger.String("side", string(o.Direction.Side())),
		logger.Float64("volume", o.Volume),
		logger.Float64("price", o.Price),
	)
	return types.OK(o.Ref)
}

func (p *PaperGateway) CancelPendingOrder(ref string) types.Result {
	for i, o := range p.orders {
		if o.Ref == ref {
			p.orders = append(p.orders[:i], p.orders[i+1:]...)
			return types.OK(ref)
		}
	}
	// already filled, expired or cancelled
	return types.OK(ref)
}

func (p *PaperGateway) ModifyPositionStopTakeProfit(id string, stopLoss, takeProfit float64) types.Result {
	pos := p.find(id)
	if pos == nil {
		return types.Failed(fmt.Errorf("%w: position %s not found", types.ErrOrderRejected, id))
	}
	exit := pos.Direction.ExitQuote(p.quote)
	if stopLoss > 0 && exit > 0 && pos.Direction.AtOrBehind(exit, stopLoss) {
		return types.Failed(fmt.Errorf("%w: stop %v is through the market %v", types.ErrOrderRejected, stopLoss, exit))
	}
	if takeProfit > 0 && exit > 0 && pos.Direction.AtOrBeyond(exit, takeProfit) {
		return types.Failed(fmt.Errorf("%w: target %v is through the market %v", types.ErrOrderRejected, takeProfit, exit))
	}
	pos.StopLoss = stopLoss
	pos.TakeProfit = takeProfit
	return types.OK(id)
}

func (p *PaperGateway) ModifyPositionVolume(id string, volume float64) types.Result {
	pos := p.find(id)
	if pos == nil {
		return types.Failed(fmt.Errorf("%w: position %s not found", types.ErrOrderRejected, id))
	}
	if volume <= 0 || volume >= pos.Volume {
		return types.Failed(fmt.Errorf("%w: volume %v must be below %v", types.ErrOrderRejected, volume, pos.Volume))
	}
	exit := pos.Direction.ExitQuote(p.quote)
	part := *pos
	part.Volume = pos.Volume - volume
	p.realise(part, exit, "partial")
	pos.Volume = volume
	p.revalue(pos)
	return types.OK(id)
}

func (p *PaperGateway) ClosePosition(id string) types.Result {
	for i := range p.open {
		if p.open[i].ID == id {
			pos := p.open[i]
			p.open = append(p.open[:i], p.open[i+1:]...)
			p.realise(pos, pos.Direction.ExitQuote(p.quote), "close")
			return types.OK(id)
		}
	}
	return types.Failed(fmt.Errorf("%w: position %s not found", types.ErrOrderRejected, id))
}

func (p *PaperGateway) PendingOrders() []types.PendingOrder {
	out := make([]types.PendingOrder, len(p.orders))
	copy(out, p.orders)
	return out
}

func (p *PaperGateway) Positions() []types.Position {
	out := make([]types.Position, len(p.open))
	copy(out, p.open)
	return out
}

// Closed returns every realised trade, partial closes included.
func (p *PaperGateway) Closed() []ClosedTrade {
	out := make([]ClosedTrade, len(p.closed))
	copy(out, p.closed)
	return out
}

// Account derives the account snapshot from the balance and open positions.
func (p *PaperGateway) Account() types.Account {
	equity, used := p.balance, 0.0
	for _, pos := range p.open {
		equity += pos.GrossProfit
		if p.leverage > 0 {
			used += pos.Volume * p.sym.LotSize * pos.EntryPrice / p.leverage
		}
	}
	return types.Account{Balance: p.balance, Equity: equity, FreeMargin: equity - used, Leverage: p.leverage}
}

// OnQuote advances the simulation: expire, fill, then stop out.
func (p *PaperGateway) OnQuote(q types.Quote) {
	p.quote = q

	kept := p.orders[:0]
	for _, o := range p.orders {
		switch {
		case !o.Expiry.IsZero() && !q.Time.Before(o.Expiry):
			p.log.Info("paper_order_expired", logger.String("ref", o.Ref))
		case o.Direction.AtOrBehind(o.Direction.EntryQuote(q), o.Price):
			p.fill(o, q)
		default:
			kept = append(kept, o)
		}
	}
	p.orders = kept

	open := p.open[:0]
	for _, pos := range p.open {
		exit := pos.Direction.ExitQuote(q)
		switch {
		case pos.StopLoss > 0 && pos.Direction.AtOrBehind(exit, pos.StopLoss):
			p.realise(pos, pos.StopLoss, "stop_loss")
		case pos.TakeProfit > 0 && pos.Direction.AtOrBeyond(exit, pos.TakeProfit):
			p.realise(pos, pos.TakeProfit, "take_profit")
		default:
			p.revalue(&pos)
			open = append(open, pos)
		}
	}
	p.open = open
}

func (p *PaperGateway) fill(o types.PendingOrder, q types.Quote) {
	pos := types.Position{
		ID:         uuid.NewString(),
		Symbol:     o.Symbol,
		Direction:  o.Direction,
		EntryPrice: o.Price,
		EntryTime:  q.Time,
		Volume:     o.Volume,
		Meta:       o.Meta,
	}
	if o.Meta.StopPips > 0 {
		pos.StopLoss = o.Direction.Away(o.Price, p.sym.FromPips(o.Meta.StopPips))
	}
	if o.Meta.TargetPips > 0 {
		pos.TakeProfit = o.Direction.Toward(o.Price, p.sym.FromPips(o.Meta.TargetPips))
	}
	p.revalue(&pos)
	p.open = append(p.open, pos)
	p.log.Info("paper_order_filled",
		logger.String("ref", o.Ref),
		logger.String("position", pos.ID),
		logger.Float64("price", o.Price),
	)
}

func (p *PaperGateway) profit(pos types.Position, exit float64) float64 {
	return p.sym.ToPips((exit-pos.EntryPrice)*pos.Direction.Sign()) * p.sym.PipValue * pos.Volume
}

func (p *PaperGateway) revalue(pos *types.Position) {
	exit := pos.Direction.ExitQuote(p.quote)
	if exit <= 0 {
		return
	}
	pos.GrossProfit = p.profit(*pos, exit)
	pos.NetProfit = pos.GrossProfit
}

func (p *PaperGateway) realise(pos types.Position, exit float64, reason string) {
	pnl := p.profit(pos, exit)
	p.balance += pnl
	p.closed = append(p.closed, ClosedTrade{Position: pos, ExitPrice: exit, Profit: pnl, Reason: reason})
	p.log.Info("paper_position_closed",
		logger.String("position", pos.ID),
		logger.String("reason", reason),
		logger.Float64("exit", exit),
		logger.Float64("profit", pnl),
		logger.Float64("balance", p.balance),
	)
}

func (p *PaperGateway) find(id string) *types.Position {
	for i := range p.open {
		if p.open[i].ID == id {
			return &p.open[i]
		}
	}
	return nil
}
