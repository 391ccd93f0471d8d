package types

import (
	"sort"
	"time"
)

// Bar is a completed OHLC candle.
type Bar struct {
	OpenTime time.Time `json:"time"`
	Open     float64   `json:"open"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Close    float64   `json:"close"`
	Volume   float64   `json:"volume"`
}

// Series is a time-ordered bar series. Only completed bars are exposed.
type Series interface {
	Len() int
	At(i int) Bar
	// IndexAtOrBefore returns the index of the last bar opening at or before
	// t, or -1 when t precedes the series.
	IndexAtOrBefore(t time.Time) int
}

// BarSeries is a slice backed Series.
type BarSeries []Bar

func (s BarSeries) Len() int { return len(s) }

func (s BarSeries) At(i int) Bar { return s[i] }

func (s BarSeries) IndexAtOrBefore(t time.Time) int {
	i := sort.Search(len(s), func(i int) bool { return s[i].OpenTime.After(t) })
	return i - 1
}

// Quote is the current top of book.
type Quote struct {
	Bid  float64
	Ask  float64
	Time time.Time
}

func (q Quote) Spread() float64 { return q.Ask - q.Bid }

// SymbolInfo carries the per-instrument constants the engine needs.
type SymbolInfo struct {
	Name       string
	PipSize    float64 // price units per pip
	PipValue   float64 // account currency per pip per lot
	LotSize    float64 // units per lot
	VolumeStep float64 // lots
	MinVolume  float64 // lots
}

// ToPips converts a price distance to pips.
func (s SymbolInfo) ToPips(dist float64) float64 {
	if s.PipSize == 0 {
		return 0
	}
	return dist / s.PipSize
}

// FromPips converts pips to a price distance.
func (s SymbolInfo) FromPips(pips float64) float64 { return pips * s.PipSize }

// Account is the account snapshot read on every tick.
type Account struct {
	Balance    float64
	Equity     float64
	FreeMargin float64
	Leverage   float64
}

// Market is the live market context supplied by the host platform.
type Market interface {
	Quote() Quote
	Symbol() SymbolInfo
	Account() Account
	// Bars is the trading timeframe.
	Bars() Series
	DailyBars() Series
}
