package testutils

import (
	"time"

	"github.com/evdnx/levelbot/types"
)

// EURUSD is a five digit major with a 10 per lot pip value.
var EURUSD = types.SymbolInfo{
	Name:       "EURUSD",
	PipSize:    0.0001,
	PipValue:   10,
	LotSize:    100000,
	VolumeStep: 0.01,
	MinVolume:  0.01,
}

// StaticMarket is a types.Market whose fields the test sets directly.
type StaticMarket struct {
	Q     types.Quote
	Sym   types.SymbolInfo
	Acct  types.Account
	Trade types.BarSeries
	Daily types.BarSeries
}

// NewStaticMarket returns an EURUSD market with a 10k account at 1:100.
func NewStaticMarket() *StaticMarket {
	return &StaticMarket{
		Sym:  EURUSD,
		Acct: types.Account{Balance: 10000, Equity: 10000, FreeMargin: 10000, Leverage: 100},
	}
}

func (m *StaticMarket) Quote() types.Quote { return m.Q }
func (m *StaticMarket) Symbol() types.SymbolInfo { return m.Sym }
func (m *StaticMarket) Account() types.Account { return m.Acct }
func (m *StaticMarket) Bars() types.Series { return m.Trade }
func (m *StaticMarket) DailyBars() types.Series { return m.Daily }

// SetBid sets bid and ask with a fixed spread in price units.
func (m *StaticMarket) SetBid(bid, spread float64, at time.Time) {
	m.Q = types.Quote{Bid: bid, Ask: bid + spread, Time: at}
}

// Bar builds a candle opening at t.
func Bar(t time.Time, open, high, low, close float64) types.Bar {
	return types.Bar{OpenTime: t, Open: open, High: high, Low: low, Close: close}
}

// Flat builds n hourly bars starting at from with the given range around mid.
func Flat(from time.Time, n int, mid, halfRange float64) types.BarSeries {
	out := make(types.BarSeries, n)
	for i := range out {
		out[i] = Bar(from.Add(time.Duration(i)*time.Hour), mid, mid+halfRange, mid-halfRange, mid)
	}
	return out
}

// DailyRange builds n daily bars with a constant high-low range around mid,
// giving an ATR of exactly rangeSize once the window is full.
func DailyRange(from time.Time, n int, mid, rangeSize float64) types.BarSeries {
	out := make(types.BarSeries, n)
	for i := range out {
		out[i] = Bar(from.AddDate(0, 0, i), mid, mid+rangeSize/2, mid-rangeSize/2, mid)
	}
	return out
}
