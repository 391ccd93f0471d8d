package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/evdnx/levelbot/types"
	"github.com/joho/godotenv"
	"go.uber.org/multierr"
)

// FromEnv builds an EngineConfig from LT_* environment variables on top of
// Default. Files in envFiles are loaded first; missing files are ignored and
// variables already set in the process environment win.
func FromEnv(envFiles ...string) (EngineConfig, error) {
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return EngineConfig{}, err
		}
	}

	cfg := Default()
	var err error

	cfg.Symbol = getEnv("LT_SYMBOL", cfg.Symbol)
	cfg.Source = getEnv("LT_SOURCE", cfg.Source)
	if v := getEnv("LT_MODE", ""); v != "" {
		m, e := ParseStrategyMode(v)
		err = multierr.Append(err, e)
		cfg.Mode = m
	}

	cfg.Risk.RiskFraction = getEnvFloat("LT_RISK_FRACTION", cfg.Risk.RiskFraction)
	cfg.Risk.FixedRiskAmount = getEnvFloat("LT_FIXED_RISK_AMOUNT", cfg.Risk.FixedRiskAmount)
	cfg.Risk.UseEquity = getEnvBool("LT_RISK_USE_EQUITY", cfg.Risk.UseEquity)
	cfg.Risk.MaxSpreadPips = getEnvFloat("LT_MAX_SPREAD_PIPS", cfg.Risk.MaxSpreadPips)
	cfg.Risk.MarginFraction = getEnvFloat("LT_MARGIN_FRACTION", cfg.Risk.MarginFraction)
	if v := getEnv("LT_PIP_VALUE_OVERRIDES", ""); v != "" {
		m, e := parseFloatMap(v)
		err = multierr.Append(err, e)
		cfg.Risk.PipValueOverrides = m
	}
	if v := getEnv("LT_PIP_VALUE_SCALE", ""); v != "" {
		m, e := parseFloatMap(v)
		err = multierr.Append(err, e)
		cfg.Risk.PipValueScale = m
	}

	cfg.Level.OffsetPips = getEnvFloat("LT_OFFSET_PIPS", cfg.Level.OffsetPips)
	cfg.Level.DefaultStopPips = getEnvFloat("LT_STOP_PIPS", cfg.Level.DefaultStopPips)
	cfg.Level.MinStopPips = getEnvFloat("LT_MIN_STOP_PIPS", cfg.Level.MinStopPips)
	cfg.Level.UseATRStop = getEnvBool("LT_ATR_STOP", cfg.Level.UseATRStop)
	cfg.Level.ATRMultiplier = getEnvFloat("LT_ATR_MULTIPLIER", cfg.Level.ATRMultiplier)
	cfg.Level.ATRPeriod = getEnvInt("LT_ATR_PERIOD", cfg.Level.ATRPeriod)
	cfg.Level.RiskReward = getEnvFloat("LT_RISK_REWARD", cfg.Level.RiskReward)
	cfg.Level.ActivateFraction = getEnvFloat("LT_ACTIVATE_FRACTION", cfg.Level.ActivateFraction)
	cfg.Level.DeactivateFraction = getEnvFloat("LT_DEACTIVATE_FRACTION", cfg.Level.DeactivateFraction)
	if v := getEnv("LT_SKIP_POLICY", ""); v != "" {
		p, e := parseEnum("skip policy", v, SkipTerminates, SkipRetries)
		err = multierr.Append(err, e)
		cfg.Level.SkipPolicy = p
	}

	cfg.Spike.Enabled = getEnvBool("LT_SPIKE", cfg.Spike.Enabled)
	cfg.Spike.WindowBars = getEnvInt("LT_SPIKE_WINDOW_BARS", cfg.Spike.WindowBars)
	cfg.Spike.BarFraction = getEnvFloat("LT_SPIKE_BAR_FRACTION", cfg.Spike.BarFraction)
	cfg.Spike.WindowFraction = getEnvFloat("LT_SPIKE_WINDOW_FRACTION", cfg.Spike.WindowFraction)

	cfg.Calendar.Enabled = getEnvBool("LT_CALENDAR", cfg.Calendar.Enabled)
	cfg.Calendar.Window = getEnvDuration("LT_CALENDAR_WINDOW", cfg.Calendar.Window)
	if v := getEnv("LT_CALENDAR_IMPACT_WINDOWS", ""); v != "" {
		m, e := parseImpactWindows(v)
		err = multierr.Append(err, e)
		cfg.Calendar.ImpactWindows = m
	}
	if v := getEnv("LT_CALENDAR_MIN_IMPACT", ""); v != "" {
		cfg.Calendar.MinImpact = types.ParseImpact(v)
	}
	cfg.Calendar.RefreshInterval = getEnvDuration("LT_CALENDAR_REFRESH", cfg.Calendar.RefreshInterval)
	if v := getEnv("LT_CALENDAR_CLOSE_POLICY", ""); v != "" {
		p, e := parseEnum("close policy", v, CloseNever, CloseOnTransition, CloseEveryTick)
		err = multierr.Append(err, e)
		cfg.Calendar.ClosePolicy = p
	}

	cfg.Position.NegativeAreaBars = getEnvInt("LT_NEGATIVE_AREA_BARS", cfg.Position.NegativeAreaBars)
	if v := getEnv("LT_NEGATIVE_AREA_MODE", ""); v != "" {
		m, e := parseEnum("negative area mode", v, FullCandle, CandleBody)
		err = multierr.Append(err, e)
		cfg.Position.NegativeAreaMode = m
	}
	cfg.Position.NegativeOffsetFraction = getEnvFloat("LT_NEGATIVE_OFFSET_FRACTION", cfg.Position.NegativeOffsetFraction)
	cfg.Position.BreakevenFraction = getEnvFloat("LT_BREAKEVEN_FRACTION", cfg.Position.BreakevenFraction)
	cfg.Position.PartialFraction = getEnvFloat("LT_PARTIAL_FRACTION", cfg.Position.PartialFraction)
	if v := getEnv("LT_PROFIT_STRATEGY", ""); v != "" {
		s, e := parseEnum("profit strategy", v, ProfitSimple, ProfitTrailing)
		err = multierr.Append(err, e)
		cfg.Position.ProfitStrategy = s
	}
	cfg.Position.PartialVolumeFraction = getEnvFloat("LT_PARTIAL_VOLUME_FRACTION", cfg.Position.PartialVolumeFraction)
	cfg.Position.TrailPeriod = getEnvInt("LT_TRAIL_PERIOD", cfg.Position.TrailPeriod)
	cfg.Position.TrailTriggerPips = getEnvFloat("LT_TRAIL_TRIGGER_PIPS", cfg.Position.TrailTriggerPips)

	cfg.Schedule.ReloadHour = getEnvInt("LT_RELOAD_HOUR", cfg.Schedule.ReloadHour)
	cfg.Schedule.ReloadMinute = getEnvInt("LT_RELOAD_MINUTE", cfg.Schedule.ReloadMinute)

	if err != nil {
		return EngineConfig{}, err
	}
	return cfg, cfg.Validate()
}

// parseFloatMap parses "USDJPY=0.01,XAUUSD=1".
func parseFloatMap(s string) (map[string]float64, error) {
	out := make(map[string]float64)
	for _, kv := range strings.Split(s, ",") {
		kv = strings.TrimSpace(kv)
		if kv == "" {
			continue
		}
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			return nil, errors.New("expected KEY=VALUE in " + kv)
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, err
		}
		out[strings.ToUpper(strings.TrimSpace(k))] = f
	}
	return out, nil
}

// parseImpactWindows reads "high=1h,medium=30m".
func parseImpactWindows(s string) (map[types.Impact]time.Duration, error) {
	out := make(map[types.Impact]time.Duration)
	for _, kv := range strings.Split(s, ",") {
		kv = strings.TrimSpace(kv)
		if kv == "" {
			continue
		}
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			return nil, errors.New("expected IMPACT=DURATION in " + kv)
		}
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return nil, err
		}
		out[types.ParseImpact(k)] = d
	}
	return out, nil
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func getEnvInt(key string, def int) int {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getEnvBool(key string, def bool) bool {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
