package operation

import (
	"context"
	"fmt"

	"github.com/hoppxi/wilux/pkg/brightness"
	"github.com/hoppxi/wilux/pkg/displayinfo"
	"github.com/knetic/govaluate"
)

// EvalRatio evaluates expr with "ratio" and "percent" bound to the current
// brightness. A result is read as a percentage when the expression uses
// "percent" or the value exceeds 1. The result is snapped to the slider grid
// and clamped.
func EvalRatio(expr string, current float64) (float64, error) {
	e, err := govaluate.NewEvaluableExpression(expr)
	if err != nil {
		return 0, fmt.Errorf("invalid expression %q: %w", expr, err)
	}

	v, err := e.Evaluate(map[string]interface{}{
		"ratio":   current,
		"percent": current * 100,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to evaluate %q: %w", expr, err)
	}

	f, ok := v.(float64)
	if !ok {
		return 0, fmt.Errorf("expression %q is not numeric", expr)
	}
	percent := f > 1
	for _, name := range e.Vars() {
		if name == "percent" {
			percent = true
			break
		}
	}
	if percent {
		f /= 100
	}
	return brightness.Clamp(brightness.Quantize(f)), nil
}

// Adjust reads the current ratio, applies expr to it and writes the result.
func (d *Display) Adjust(ctx context.Context, out displayinfo.Output, expr string) (Result, error) {
	target, err := EvalRatio(expr, d.GetRatio(ctx, out))
	if err != nil {
		return Result{Output: out.ID}, err
	}
	return d.Apply(ctx, out, target), nil
}
