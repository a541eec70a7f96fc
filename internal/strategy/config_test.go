package strategy

import (
	"errors"
	"strings"
	"testing"

	"github.com/newthinker/replay/internal/core"
)

func TestConfig_Variants(t *testing.T) {
	var _ Config = Crossover{}
	var _ Config = Threshold{}

	if (Crossover{}).Kind() != KindCrossover {
		t.Error("crossover kind mismatch")
	}
	if (Threshold{}).Kind() != KindThreshold {
		t.Error("threshold kind mismatch")
	}
}

func TestCrossover_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Crossover
		wantErr bool
	}{
		{"valid", Crossover{ShortWindow: 5, LongWindow: 20}, false},
		{"equal windows", Crossover{ShortWindow: 10, LongWindow: 10}, true},
		{"short above long", Crossover{ShortWindow: 30, LongWindow: 10}, true},
		{"zero short", Crossover{ShortWindow: 0, LongWindow: 10}, true},
		{"negative long", Crossover{ShortWindow: 2, LongWindow: -1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, core.ErrConfigInvalid) {
				t.Errorf("expected CONFIG_INVALID, got %v", err)
			}
		})
	}
}

func TestThreshold_Validate(t *testing.T) {
	if err := (Threshold{Signal: core.ActionBuy, EntryPrice: Price(100), ExitPrice: Price(120)}).Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	// Missing prices and non-buy signals are reported by the engine, not here
	if err := (Threshold{Signal: core.ActionHold}).Validate(); err != nil {
		t.Errorf("missing prices should validate, got %v", err)
	}
	if err := (Threshold{Signal: core.ActionBuy, EntryPrice: Price(-1), ExitPrice: Price(10)}).Validate(); err == nil {
		t.Error("expected error for negative entry price")
	}
	if err := (Threshold{Signal: core.ActionBuy, EntryPrice: Price(1), ExitPrice: Price(-10)}).Validate(); err == nil {
		t.Error("expected error for negative exit price")
	}
}

func TestDescription(t *testing.T) {
	if got := (Crossover{ShortWindow: 5, LongWindow: 20}).Description(); got != "MA Crossover (5/20)" {
		t.Errorf("Description() = %q", got)
	}
	got := (Threshold{Signal: core.ActionBuy, EntryPrice: Price(100)}).Description()
	if !strings.Contains(got, "entry 100.00") || !strings.Contains(got, "exit n/a") {
		t.Errorf("Description() = %q", got)
	}
}

func TestIdle(t *testing.T) {
	o := Idle(1000, "nothing to do")
	if o.FinalValue != 1000 || o.Position.Cash != 1000 || o.TradeCount != 0 {
		t.Errorf("unexpected idle outcome: %+v", o)
	}
	if o.Status != "nothing to do" {
		t.Errorf("Status = %q", o.Status)
	}
}
