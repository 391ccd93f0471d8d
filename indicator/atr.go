// Package indicator adapts goti indicators to bar series.
package indicator

import (
	"errors"

	"github.com/evdnx/goti"

	"github.com/evdnx/levelbot/types"
)

var ErrNoBars = errors.New("indicator: no bars")

// ATR is the average true range of the last period bars of s, in price units.
// Each true range uses the previous close, so period+1 bars are read. A
// shorter series averages what it has; a single bar yields its high-low range.
func ATR(s types.Series, period int) (float64, error) {
	if s == nil || s.Len() == 0 || period <= 0 {
		return 0, ErrNoBars
	}
	n := s.Len()
	if n == 1 {
		b := s.At(0)
		return b.High - b.Low, nil
	}
	if period > n-1 {
		period = n - 1
	}
	atr, err := goti.NewAverageTrueRangeWithParams(period, goti.WithCloseValidation(false))
	if err != nil {
		return 0, err
	}
	for i := n - period - 1; i < n; i++ {
		b := s.At(i)
		if err := atr.AddCandle(b.High, b.Low, b.Close); err != nil {
			return 0, err
		}
	}
	return atr.Calculate()
}

// LastATR is ATR with failures read as an unknown (zero) range.
func LastATR(s types.Series, period int) float64 {
	v, err := ATR(s, period)
	if err != nil {
		return 0
	}
	return v
}
