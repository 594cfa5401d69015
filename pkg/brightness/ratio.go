package brightness

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	// MinRatio keeps a display from going fully dark.
	MinRatio     = 0.05
	MaxRatio     = 1.0
	DefaultRatio = 1.0

	// Steps is the number of slider positions between 0 and 1.
	Steps = 20

	snapTolerance = 0.001
)

// Reading is a raw current/max pair as reported by a backend.
type Reading struct {
	Current int `json:"current" yaml:"current"`
	Max     int `json:"max" yaml:"max"`
}

func (r Reading) Ratio() float64 {
	return ToRatio(r.Current, r.Max)
}

func (r Reading) Valid() bool {
	return r.Max > 0
}

// ToRatio converts a backend reading into a ratio in [MinRatio, MaxRatio].
// A non-positive max yields DefaultRatio.
func ToRatio(current, max int) float64 {
	if max <= 0 {
		return DefaultRatio
	}
	return Clamp(float64(current) / float64(max))
}

// ParseRatio is ToRatio over raw tool output.
func ParseRatio(current, max string) float64 {
	c, err := strconv.Atoi(strings.TrimSpace(current))
	if err != nil {
		return DefaultRatio
	}
	m, err := strconv.Atoi(strings.TrimSpace(max))
	if err != nil {
		return DefaultRatio
	}
	return ToRatio(c, m)
}

func Clamp(r float64) float64 {
	if math.IsNaN(r) {
		return DefaultRatio
	}
	return math.Min(MaxRatio, math.Max(MinRatio, r))
}

// Quantize rounds r to the nearest 1/Steps.
func Quantize(r float64) float64 {
	return math.Round(r*Steps) / Steps
}

// Snap returns the quantized value and whether r already sits on the grid.
// Callers holding an unaligned value should write the quantized value back
// into the control instead of applying r.
func Snap(r float64) (float64, bool) {
	q := Quantize(r)
	return q, math.Abs(r-q) <= snapTolerance
}

// Percent converts a ratio into the integer percentage sent to backends.
func Percent(r float64) int {
	if math.IsNaN(r) {
		r = DefaultRatio
	}
	return int(math.Round(math.Min(MaxRatio, math.Max(MinRatio, r)) * 100))
}

func ClampPercent(p, lo, hi int) int {
	if p < lo {
		return lo
	}
	if p > hi {
		return hi
	}
	return p
}

// ParseInput accepts "0.85", "85%" or "85" and returns a ratio before clamping.
// Bare numbers above 1 are read as percentages.
func ParseInput(s string) (float64, error) {
	s = strings.TrimSpace(s)
	percent := strings.HasSuffix(s, "%")
	v, err := strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("brightness %q is not a finite number", s)
	}
	if percent || v > 1 {
		v /= 100
	}
	return v, nil
}
