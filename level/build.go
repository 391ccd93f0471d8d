package level

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/evdnx/levelbot/config"
	"github.com/evdnx/levelbot/indicator"
	"github.com/evdnx/levelbot/types"
)

// Build turns raw records into computed levels ordered by label. Records for
// other symbols or other strategy modes are ignored; records that cannot be
// computed are dropped and reported in the returned error while the rest of
// the set is still returned.
func Build(records []Record, m types.Market, cfg config.EngineConfig) ([]*Level, error) {
	sym := m.Symbol()
	var atrPips float64
	if cfg.Level.UseATRStop {
		atrPips = sym.ToPips(indicator.LastATR(m.DailyBars(), cfg.Level.ATRPeriod))
	}

	var errs error
	out := make([]*Level, 0, len(records))
	for _, r := range records {
		if !strings.EqualFold(r.Symbol, cfg.Symbol) {
			continue
		}
		if r.Mode != "" && !strings.EqualFold(r.Mode, cfg.Mode.String()) {
			continue
		}
		l, err := build(r, m, sym, cfg.Level, atrPips)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		out = append(out, l)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	for i, l := range out {
		l.ID = fmt.Sprintf("%s_%d", cfg.Source, i)
	}
	return out, errs
}

func build(r Record, m types.Market, sym types.SymbolInfo, cfg config.LevelConfig, atrPips float64) (*Level, error) {
	if r.Price <= 0 {
		return nil, fmt.Errorf("level %q: price must be positive", r.Label)
	}
	if !r.ValidTo.After(r.ValidFrom) {
		return nil, fmt.Errorf("level %q: empty validity window", r.Label)
	}
	if sym.PipSize <= 0 {
		return nil, fmt.Errorf("level %q: symbol %s has no pip size", r.Label, sym.Name)
	}

	dir, err := inferDirection(r, m)
	if err != nil {
		return nil, err
	}

	stop := StopPips(r.StopPips, atrPips, cfg)
	target := r.TargetPips
	if target <= 0 {
		target = stop * cfg.RiskReward
	}

	l := &Level{
		Label:            r.Label,
		UID:              uuid.NewString(),
		Symbol:           sym.Name,
		Direction:        dir,
		ValidFrom:        r.ValidFrom,
		ValidTo:          r.ValidTo,
		RawPrice:         r.Price,
		StopLossPips:     stop,
		ProfitTargetPips: target,
		LinkedStopPips:   r.StopPips,
		LinkedTargetPips: r.TargetPips,
		State:            Pending,
	}
	l.EntryPrice = dir.Toward(r.Price, sym.FromPips(cfg.OffsetPips))
	l.StopLossPrice = dir.Away(l.EntryPrice, sym.FromPips(stop))
	l.ProfitTargetPrice = dir.Toward(l.EntryPrice, sym.FromPips(target))
	l.ActivatePrice = dir.Toward(l.EntryPrice, sym.FromPips(target*cfg.ActivateFraction))
	l.DeactivatePrice = dir.Toward(l.EntryPrice, sym.FromPips(target*cfg.DeactivateFraction))

	if err := l.CheckPrices(); err != nil {
		return nil, err
	}
	return l, nil
}

// StopPips resolves the stop distance: the linked value when present, else
// the ATR derived value when enabled, else the configured default. The result
// never falls below the configured floor.
func StopPips(linked, dailyATRPips float64, cfg config.LevelConfig) float64 {
	var stop float64
	switch {
	case linked > 0:
		stop = linked
	case cfg.UseATRStop && dailyATRPips > 0:
		stop = math.Max(dailyATRPips*cfg.ATRMultiplier, cfg.MinStopPips)
	default:
		stop = cfg.DefaultStopPips
	}
	return math.Max(stop, cfg.MinStopPips)
}

// inferDirection compares the raw price with the high of the bar open at
// ValidFrom: above it the level is a Short, otherwise a Long. Without any
// bar data the current bid stands in for the high.
func inferDirection(r Record, m types.Market) (types.Direction, error) {
	ref, ok := referenceHigh(m.Bars(), r)
	if !ok {
		ref = m.Quote().Bid
		if ref <= 0 {
			return nil, fmt.Errorf("level %q: no reference bar or quote", r.Label)
		}
	}
	if r.Price > ref {
		return types.Short, nil
	}
	return types.Long, nil
}

func referenceHigh(bars types.Series, r Record) (float64, bool) {
	if bars == nil || bars.Len() == 0 {
		return 0, false
	}
	idx := bars.IndexAtOrBefore(r.ValidFrom)
	if idx < 0 {
		idx = 0
	}
	return bars.At(idx).High, true
}
