package main

import (
	"context"
	"fmt"
	"io"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/evdnx/levelbot/level"
	"github.com/evdnx/levelbot/types"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Scenario is a self-contained replay: instrument, account, level records,
// trading and daily bars, and the calendar.
type Scenario struct {
	Symbol   SymbolSpec      `json:"symbol"`
	Balance  float64         `json:"balance"`
	Leverage float64         `json:"leverage"`
	Spread   float64         `json:"spread_pips"`
	Interval time.Duration   `json:"-"`
	Levels   []level.Record  `json:"levels"`
	Bars     []types.Bar     `json:"bars"`
	Daily    []types.Bar     `json:"daily"`
	Calendar []CalendarEntry `json:"calendar"`

	RawInterval string `json:"interval"`
}

type SymbolSpec struct {
	Name       string  `json:"name"`
	PipSize    float64 `json:"pip_size"`
	PipValue   float64 `json:"pip_value"`
	LotSize    float64 `json:"lot_size"`
	VolumeStep float64 `json:"volume_step"`
	MinVolume  float64 `json:"min_volume"`
}

type CalendarEntry struct {
	Country string    `json:"country"`
	Title   string    `json:"title"`
	Impact  string    `json:"impact"`
	Time    time.Time `json:"time"`
}

// DecodeScenario reads and checks a scenario document.
func DecodeScenario(r io.Reader) (*Scenario, error) {
	var sc Scenario
	if err := json.NewDecoder(r).Decode(&sc); err != nil {
		return nil, fmt.Errorf("decode scenario: %w", err)
	}
	sc.Interval = time.Hour
	if sc.RawInterval != "" {
		d, err := time.ParseDuration(sc.RawInterval)
		if err != nil {
			return nil, fmt.Errorf("scenario interval: %w", err)
		}
		sc.Interval = d
	}
	if sc.Symbol.Name == "" || sc.Symbol.PipSize <= 0 {
		return nil, fmt.Errorf("scenario symbol needs a name and a pip size")
	}
	if len(sc.Bars) == 0 {
		return nil, fmt.Errorf("scenario has no bars")
	}
	if sc.Balance <= 0 {
		sc.Balance = 10000
	}
	return &sc, nil
}

func (sc *Scenario) SymbolInfo() types.SymbolInfo {
	s := sc.Symbol
	return types.SymbolInfo{Name: s.Name, PipSize: s.PipSize, PipValue: s.PipValue,
		LotSize: s.LotSize, VolumeStep: s.VolumeStep, MinVolume: s.MinVolume}
}

// LevelSource serves the scenario's records.
func (sc *Scenario) LevelSource() level.Source { return level.StaticSource(sc.Levels) }

// Events implements calendar.Source.
func (sc *Scenario) Events(context.Context) ([]types.CalendarEvent, error) {
	out := make([]types.CalendarEvent, len(sc.Calendar))
	for i, c := range sc.Calendar {
		out[i] = types.CalendarEvent{Country: c.Country, Title: c.Title, Impact: types.ParseImpact(c.Impact), Time: c.Time}
	}
	return out, nil
}
