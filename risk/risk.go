// Package risk converts a risk budget and a stop distance into an executable
// order volume.
package risk

import (
	"strings"

	"github.com/shopspring/decimal"
)

// RiskAmount returns fixed when it is positive, otherwise base × fraction.
// base is the balance or the equity, whichever the caller sizes from.
func RiskAmount(base, fraction, fixed float64) float64 {
	if fixed > 0 {
		return fixed
	}
	if base <= 0 || fraction <= 0 {
		return 0
	}
	return base * fraction
}

// Volume returns riskAmount / (pipValue × stopLossPips), rounded down to the
// broker volume step. Anything below minVolume is returned as 0.
func Volume(riskAmount, stopLossPips, pipValue, step, minVolume float64) float64 {
	if riskAmount <= 0 || stopLossPips <= 0 || pipValue <= 0 {
		return 0
	}
	raw := decimal.NewFromFloat(riskAmount).
		Div(decimal.NewFromFloat(pipValue).Mul(decimal.NewFromFloat(stopLossPips)))
	vol := FloorToStep(raw, step)
	if vol < minVolume {
		return 0
	}
	return vol
}

// NormalizeVolume rounds v down to the broker step, 0 below minVolume.
func NormalizeVolume(v, step, minVolume float64) float64 {
	if v <= 0 {
		return 0
	}
	vol := FloorToStep(decimal.NewFromFloat(v), step)
	if vol < minVolume {
		return 0
	}
	return vol
}

// FloorToStep rounds d down to a multiple of step. A non-positive step leaves
// d untouched.
func FloorToStep(d decimal.Decimal, step float64) float64 {
	if step > 0 {
		s := decimal.NewFromFloat(step)
		d = d.Div(s).Floor().Mul(s)
	}
	f, _ := d.Float64()
	return f
}

// MaxAffordableVolume is the largest volume whose margin fits in
// freeMargin × marginFraction at the given leverage.
func MaxAffordableVolume(freeMargin, leverage, marginFraction, price, lotSize float64) float64 {
	if freeMargin <= 0 || leverage <= 0 || price <= 0 || lotSize <= 0 {
		return 0
	}
	budget := decimal.NewFromFloat(freeMargin).
		Mul(decimal.NewFromFloat(marginFraction)).
		Mul(decimal.NewFromFloat(leverage))
	f, _ := budget.Div(decimal.NewFromFloat(price).Mul(decimal.NewFromFloat(lotSize))).Float64()
	return f
}

// PipValueTable resolves the pip value used for sizing. Quote currencies that
// do not match the account currency are configured here per symbol instead
// of being special-cased in code.
type PipValueTable struct {
	Overrides map[string]float64 // absolute pip value per lot
	Scale     map[string]float64 // multiplier applied to the reported value
}

// Resolve returns the pip value per lot for symbol.
func (t PipValueTable) Resolve(symbol string, reported float64) float64 {
	key := strings.ToUpper(symbol)
	if v, ok := t.Overrides[key]; ok {
		return v
	}
	if s, ok := t.Scale[key]; ok {
		return reported * s
	}
	return reported
}
