package operation

import (
	"context"
	"testing"

	"github.com/hoppxi/wilux/internal/utils"
)

func TestEvalRatio(t *testing.T) {
	tests := []struct {
		expr    string
		current float64
		want    float64
		wantErr bool
	}{
		{"ratio + 0.1", 0.5, 0.6, false},
		{"ratio - 0.1", 0.1, 0.05, false},
		{"percent + 10", 0.5, 0.6, false},
		{"percent - 10", 0.5, 0.4, false},
		{"ratio * 2", 0.4, 0.8, false},
		{"0.83", 0.2, 0.85, false},
		{"85", 0.2, 0.85, false},
		{"ratio * 100", 0.4, 0.4, false},
		{"150", 0.2, 1.0, false},
		{"ratio +", 0.5, 0, true},
		{"'bright'", 0.5, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := EvalRatio(tt.expr, tt.current)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("EvalRatio(%q, %v) = %v, want %v", tt.expr, tt.current, got, tt.want)
			}
		})
	}
}

func TestAdjust(t *testing.T) {
	d, runner := newTestDisplay(map[string]utils.FakeResponse{
		"brightnessctl get":     {Out: "50"},
		"brightnessctl max":     {Out: "100"},
		"brightnessctl set 60%": {},
	}, DisplayConfig{})

	res, err := d.Adjust(context.Background(), edp, "ratio + 0.1")
	if err != nil {
		t.Fatal(err)
	}
	if res.Outcome != Applied || res.Percent != 60 {
		t.Errorf("Adjust = %+v", res)
	}
	assertCalls(t, runner.CallLog(), []string{"brightnessctl get", "brightnessctl max", "brightnessctl set 60%"})

	if _, err := d.Adjust(context.Background(), edp, "ratio +"); err == nil {
		t.Error("expected parse error")
	}
}
