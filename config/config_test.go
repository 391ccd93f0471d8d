package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/multierr"

	"github.com/evdnx/levelbot/types"
)

func TestValidateSuccess(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestValidateFailsOnBadRisk(t *testing.T) {
	cfg := Default()
	cfg.Risk.RiskFraction = -0.01
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for negative RiskFraction")
	}

	// A fixed amount makes the fraction irrelevant.
	cfg.Risk.FixedRiskAmount = 50
	if err := cfg.Validate(); err != nil {
		t.Fatalf("fixed risk amount should bypass the fraction check, got %v", err)
	}
}

func TestValidateReportsEveryProblem(t *testing.T) {
	cfg := Default()
	cfg.Level.ActivateFraction = 0.9
	cfg.Level.DeactivateFraction = 0.3
	cfg.Level.MinStopPips = 0
	cfg.Schedule.ReloadHour = 25

	err := cfg.Validate()
	if got := len(multierr.Errors(err)); got != 3 {
		t.Fatalf("expected 3 errors, got %d: %v", got, err)
	}
}

func TestValidateProfitStrategies(t *testing.T) {
	cfg := Default()
	cfg.Position.PartialFraction = 0.8
	cfg.Position.PartialVolumeFraction = 1
	if err := cfg.Validate(); err == nil {
		t.Fatal("closing the whole volume is not a partial")
	}

	cfg.Position.ProfitStrategy = ProfitTrailing
	cfg.Position.TrailPeriod = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for zero TrailPeriod")
	}
}

func TestParseStrategyMode(t *testing.T) {
	for in, want := range map[string]StrategyMode{"id": ModeIntraday, "Swing": ModeSwing, " INVEST ": ModeInvest} {
		got, err := ParseStrategyMode(in)
		if err != nil || got != want {
			t.Fatalf("ParseStrategyMode(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseStrategyMode("scalp"); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}

func TestFromEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, "bot.env")
	content := strings.Join([]string{
		"LT_SYMBOL=USDJPY",
		"LT_MODE=swing",
		"LT_PIP_VALUE_SCALE=usdjpy=0.01",
		"LT_CALENDAR_CLOSE_POLICY=every_tick",
		"LT_CALENDAR_WINDOW=45m",
		"LT_CALENDAR_IMPACT_WINDOWS=high=1h, medium=20m",
	}, "\n")
	if err := os.WriteFile(envFile, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	// Process environment wins over the file.
	t.Setenv("LT_RISK_FRACTION", "0.02")
	// godotenv sets variables on the process; make sure they are cleared.
	for _, k := range []string{"LT_SYMBOL", "LT_MODE", "LT_PIP_VALUE_SCALE", "LT_CALENDAR_CLOSE_POLICY", "LT_CALENDAR_WINDOW", "LT_CALENDAR_IMPACT_WINDOWS"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}

	cfg, err := FromEnv(envFile, filepath.Join(dir, "missing.env"))
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.Symbol != "USDJPY" || cfg.Mode != ModeSwing {
		t.Fatalf("unexpected symbol/mode: %s %v", cfg.Symbol, cfg.Mode)
	}
	if cfg.Risk.RiskFraction != 0.02 {
		t.Fatalf("expected risk fraction from environment, got %v", cfg.Risk.RiskFraction)
	}
	if cfg.Risk.PipValueScale["USDJPY"] != 0.01 {
		t.Fatalf("pip value scale not parsed: %v", cfg.Risk.PipValueScale)
	}
	if cfg.Calendar.ClosePolicy != CloseEveryTick || cfg.Calendar.Window != 45*time.Minute {
		t.Fatalf("calendar settings not applied: %+v", cfg.Calendar)
	}
	if cfg.Calendar.WindowFor(types.ImpactHigh) != time.Hour ||
		cfg.Calendar.WindowFor(types.ImpactMedium) != 20*time.Minute ||
		cfg.Calendar.WindowFor(types.ImpactLow) != 45*time.Minute {
		t.Fatalf("impact windows not applied: %v", cfg.Calendar.ImpactWindows)
	}
}

func TestFromEnvRejectsUnknownEnum(t *testing.T) {
	t.Setenv("LT_PROFIT_STRATEGY", "martingale")
	if _, err := FromEnv(); err == nil {
		t.Fatal("expected error for unknown profit strategy")
	}
}
