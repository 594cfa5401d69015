package brightness

import (
	"math"
	"testing"
)

func TestToRatio(t *testing.T) {
	tests := []struct {
		name    string
		current int
		max     int
		want    float64
	}{
		{"half", 50, 100, 0.5},
		{"full", 100, 100, 1.0},
		{"above max clamps", 150, 100, 1.0},
		{"floor clamps", 1, 100, MinRatio},
		{"zero current clamps", 0, 255, MinRatio},
		{"negative current clamps", -5, 100, MinRatio},
		{"zero max defaults", 10, 0, DefaultRatio},
		{"negative max defaults", 10, -1, DefaultRatio},
		{"backlight scale", 96000, 120000, 0.8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ToRatio(tt.current, tt.max); got != tt.want {
				t.Errorf("ToRatio(%d, %d) = %v, want %v", tt.current, tt.max, got, tt.want)
			}
		})
	}
}

func TestToRatioMatchesClampForPositiveMax(t *testing.T) {
	for max := 1; max <= 300; max += 7 {
		for current := -10; current <= max+10; current += 3 {
			want := math.Min(1.0, math.Max(0.05, float64(current)/float64(max)))
			if got := ToRatio(current, max); got != want {
				t.Fatalf("ToRatio(%d, %d) = %v, want %v", current, max, got, want)
			}
		}
	}
}

func TestParseRatio(t *testing.T) {
	tests := []struct {
		current, max string
		want         float64
	}{
		{"64\n", "128\n", 0.5},
		{"  19200 ", "96000", 0.2},
		{"abc", "100", DefaultRatio},
		{"50", "", DefaultRatio},
		{"50", "0", DefaultRatio},
		{"", "", DefaultRatio},
	}

	for _, tt := range tests {
		if got := ParseRatio(tt.current, tt.max); got != tt.want {
			t.Errorf("ParseRatio(%q, %q) = %v, want %v", tt.current, tt.max, got, tt.want)
		}
	}
}

func TestClamp(t *testing.T) {
	if got := Clamp(math.NaN()); got != DefaultRatio {
		t.Errorf("Clamp(NaN) = %v", got)
	}
	if got := Clamp(-1); got != MinRatio {
		t.Errorf("Clamp(-1) = %v", got)
	}
	if got := Clamp(2); got != MaxRatio {
		t.Errorf("Clamp(2) = %v", got)
	}
	if got := Clamp(0.42); got != 0.42 {
		t.Errorf("Clamp(0.42) = %v", got)
	}
}

func TestQuantize(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0.83, 0.85},
		{0.82, 0.8},
		{0.0, 0.0},
		{1.0, 1.0},
		{0.024, 0.0},
		{0.026, 0.05},
		{0.5, 0.5},
	}

	for _, tt := range tests {
		if got := Quantize(tt.in); got != tt.want {
			t.Errorf("Quantize(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestQuantizeIdempotent(t *testing.T) {
	for i := 0; i <= 1000; i++ {
		r := float64(i) / 1000
		q := Quantize(r)
		if qq := Quantize(q); qq != q {
			t.Fatalf("Quantize(Quantize(%v)) = %v, want %v", r, qq, q)
		}
	}
}

func TestSnap(t *testing.T) {
	q, aligned := Snap(0.83)
	if aligned || q != 0.85 {
		t.Errorf("Snap(0.83) = %v, %v; want 0.85, false", q, aligned)
	}

	q, aligned = Snap(0.85)
	if !aligned || q != 0.85 {
		t.Errorf("Snap(0.85) = %v, %v; want 0.85, true", q, aligned)
	}

	q, aligned = Snap(0.7 + 0.0005)
	if !aligned || q != 0.7 {
		t.Errorf("Snap within tolerance = %v, %v; want 0.7, true", q, aligned)
	}
}

func TestPercent(t *testing.T) {
	tests := []struct {
		in   float64
		want int
	}{
		{0.85, 85},
		{0.0, 5},
		{0.01, 5},
		{1.0, 100},
		{1.5, 100},
		{0.5, 50},
		{math.NaN(), 100},
	}

	for _, tt := range tests {
		if got := Percent(tt.in); got != tt.want {
			t.Errorf("Percent(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestPercentRangeForUnitInterval(t *testing.T) {
	for i := 0; i <= 100; i++ {
		p := Percent(float64(i) / 100)
		if p < 5 || p > 100 {
			t.Fatalf("Percent(%v) = %d outside [5,100]", float64(i)/100, p)
		}
	}
}

func TestClampPercent(t *testing.T) {
	if got := ClampPercent(0, 1, 100); got != 1 {
		t.Errorf("got %d", got)
	}
	if got := ClampPercent(120, 1, 100); got != 100 {
		t.Errorf("got %d", got)
	}
	if got := ClampPercent(85, 1, 100); got != 85 {
		t.Errorf("got %d", got)
	}
}

func TestParseInput(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{"0.85", 0.85, false},
		{"85%", 0.85, false},
		{"85", 0.85, false},
		{"1", 1, false},
		{" 40% ", 0.4, false},
		{"bright", 0, true},
		{"nan", 0, true},
		{"NaN%", 0, true},
		{"inf", 0, true},
		{"-Inf", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseInput(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseInput(%q) expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseInput(%q) unexpected error: %v", tt.in, err)
			continue
		}
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("ParseInput(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
