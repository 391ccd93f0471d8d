package indicator

import (
	"github.com/evdnx/goti"

	"github.com/evdnx/levelbot/types"
)

// Envelope runs a Hull moving average over bar highs and another over bar
// lows, giving an upper and a lower band.
type Envelope struct {
	period int
	upper  *goti.HullMovingAverage
	lower  *goti.HullMovingAverage
}

func NewEnvelope(period int) (*Envelope, error) {
	if period <= 0 {
		period = 1
	}
	upper, err := goti.NewHullMovingAverageWithParams(period)
	if err != nil {
		return nil, err
	}
	lower, err := goti.NewHullMovingAverageWithParams(period)
	if err != nil {
		return nil, err
	}
	return &Envelope{period: period, upper: upper, lower: lower}, nil
}

// Add pushes a completed bar.
func (e *Envelope) Add(b types.Bar) error {
	if err := e.upper.Add(b.High); err != nil {
		return err
	}
	return e.lower.Add(b.Low)
}

// Ready reports whether both bands have produced a value.
func (e *Envelope) Ready() bool {
	_, errU := e.upper.Calculate()
	_, errL := e.lower.Calculate()
	return errU == nil && errL == nil
}

func (e *Envelope) Upper() float64 { return e.upper.GetLastValue() }

func (e *Envelope) Lower() float64 { return e.lower.GetLastValue() }

// EnvelopeOf builds an envelope over the last completed bars of s. Up to
// twice the period is fed, which covers the Hull warm-up.
func EnvelopeOf(s types.Series, period int) (*Envelope, error) {
	e, err := NewEnvelope(period)
	if err != nil || s == nil {
		return e, err
	}
	start := s.Len() - 2*e.period
	if start < 0 {
		start = 0
	}
	for i := start; i < s.Len(); i++ {
		if err := e.Add(s.At(i)); err != nil {
			return nil, err
		}
	}
	return e, nil
}
