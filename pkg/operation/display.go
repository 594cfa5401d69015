package operation

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hoppxi/wilux/internal/utils"
	"github.com/hoppxi/wilux/pkg/brightness"
	"github.com/hoppxi/wilux/pkg/displayinfo"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/iter"
)

type Outcome int

const (
	Applied Outcome = iota
	BackendUnavailable
	BackendRejected
)

func (o Outcome) String() string {
	switch o {
	case Applied:
		return "applied"
	case BackendUnavailable:
		return "backend unavailable"
	case BackendRejected:
		return "backend rejected"
	default:
		return "unknown"
	}
}

// Result describes what happened to one brightness write.
// ExitCode is only meaningful for BackendRejected.
type Result struct {
	Output   string
	Outcome  Outcome
	Percent  int
	ExitCode int
	Err      error
}

type DisplayConfig struct {
	InternalCommand string
	ExternalCommand string
	// Feature is the VCP feature code for brightness.
	Feature      string
	AddressOnSet bool
	Timeout      time.Duration
}

func DefaultDisplayConfig() DisplayConfig {
	return DisplayConfig{
		InternalCommand: "brightnessctl",
		ExternalCommand: "ddcutil",
		Feature:         "10",
		Timeout:         5 * time.Second,
	}
}

var vcpPattern = regexp.MustCompile(`current value = (\d+), max value = (\d+)`)

// Display routes brightness reads and writes to the backend carried by each Output.
type Display struct {
	runner  utils.Runner
	cfg     DisplayConfig
	log     zerolog.Logger
	session string
	writes  sync.WaitGroup

	hookMu   sync.Mutex
	onResult func(Result)
}

func NewDisplay(runner utils.Runner, cfg DisplayConfig, logger zerolog.Logger) *Display {
	def := DefaultDisplayConfig()
	if cfg.InternalCommand == "" {
		cfg.InternalCommand = def.InternalCommand
	}
	if cfg.ExternalCommand == "" {
		cfg.ExternalCommand = def.ExternalCommand
	}
	if cfg.Feature == "" {
		cfg.Feature = def.Feature
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}

	session := uuid.NewString()
	return &Display{
		runner:  runner,
		cfg:     cfg,
		session: session,
		log: logger.With().
			Str("component", "display").
			Str("session", session).
			Logger(),
	}
}

func (d *Display) Session() string {
	return d.session
}

// Read returns the raw backend reading for out.
func (d *Display) Read(ctx context.Context, out displayinfo.Output) (brightness.Reading, error) {
	if out.IsInternal() {
		return d.readInternal(ctx)
	}
	return d.readExternal(ctx, out.Backend.Connector)
}

func (d *Display) readInternal(ctx context.Context) (brightness.Reading, error) {
	current, err := d.readInt(ctx, d.cfg.InternalCommand, "get")
	if err != nil {
		return brightness.Reading{}, err
	}
	max, err := d.readInt(ctx, d.cfg.InternalCommand, "max")
	if err != nil {
		return brightness.Reading{}, err
	}
	return brightness.Reading{Current: current, Max: max}, nil
}

func (d *Display) readInt(ctx context.Context, tool string, args ...string) (int, error) {
	out, err := d.runner.Run(ctx, tool, args...)
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(strings.TrimSpace(string(out)))
	if err != nil {
		return 0, fmt.Errorf("%s %s: %q: %w", tool, strings.Join(args, " "), strings.TrimSpace(string(out)), utils.ErrMalformedOutput)
	}
	return v, nil
}

func (d *Display) readExternal(ctx context.Context, connector string) (brightness.Reading, error) {
	tool := d.cfg.ExternalCommand
	out, err := d.runner.Run(ctx, tool, "getvcp", d.cfg.Feature, "--brief", "--display", connector)
	if err != nil {
		return brightness.Reading{}, err
	}

	m := vcpPattern.FindStringSubmatch(strings.TrimSpace(string(out)))
	if m == nil {
		return brightness.Reading{}, fmt.Errorf("%s getvcp %s: %w", tool, d.cfg.Feature, utils.ErrMalformedOutput)
	}
	// The pattern only matches digits; Atoi can only fail on overflow.
	current, err := strconv.Atoi(m[1])
	if err != nil {
		return brightness.Reading{}, fmt.Errorf("%s current value: %w", tool, utils.ErrMalformedOutput)
	}
	max, err := strconv.Atoi(m[2])
	if err != nil {
		return brightness.Reading{}, fmt.Errorf("%s max value: %w", tool, utils.ErrMalformedOutput)
	}
	return brightness.Reading{Current: current, Max: max}, nil
}

// GetRatio always returns a ratio in [0.05, 1.0]. Any backend failure
// yields brightness.DefaultRatio.
func (d *Display) GetRatio(ctx context.Context, out displayinfo.Output) (ratio float64) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error().Interface("panic", r).Str("output", out.ID).Msg("brightness read panicked")
			ratio = brightness.DefaultRatio
		}
	}()

	reading, err := d.Read(ctx, out)
	if err != nil {
		d.log.Debug().Err(err).Str("output", out.ID).Msg("brightness read failed, using default")
		return brightness.DefaultRatio
	}
	if !reading.Valid() {
		d.log.Debug().Str("output", out.ID).Int("max", reading.Max).Msg("invalid max brightness, using default")
	}
	return reading.Ratio()
}

// ReadAll reads every output concurrently. Results follow the input order.
func (d *Display) ReadAll(ctx context.Context, outputs []displayinfo.Output) []float64 {
	return iter.Map(outputs, func(o *displayinfo.Output) float64 {
		return d.GetRatio(ctx, *o)
	})
}

// Apply writes ratio to the backend of out and reports the outcome.
func (d *Display) Apply(ctx context.Context, out displayinfo.Output, ratio float64) (res Result) {
	percent := brightness.Percent(ratio)
	res = Result{Output: out.ID, Percent: percent}

	defer func() {
		if r := recover(); r != nil {
			res.Outcome = BackendUnavailable
			res.Err = fmt.Errorf("brightness write panicked: %v", r)
		}
	}()

	var err error
	if out.IsInternal() {
		_, err = d.runner.Run(ctx, d.cfg.InternalCommand, "set", fmt.Sprintf("%d%%", percent))
	} else {
		percent = brightness.ClampPercent(percent, 1, 100)
		res.Percent = percent
		args := []string{"setvcp", d.cfg.Feature, strconv.Itoa(percent)}
		if d.cfg.AddressOnSet {
			args = append(args, "--display", out.Backend.Connector)
		}
		_, err = d.runner.Run(ctx, d.cfg.ExternalCommand, args...)
	}

	var exitErr *utils.ExitError
	switch {
	case err == nil:
		res.Outcome = Applied
	case errors.As(err, &exitErr):
		res.Outcome = BackendRejected
		res.ExitCode = exitErr.Code
		res.Err = err
	default:
		res.Outcome = BackendUnavailable
		res.Err = err
	}
	return res
}

// SetRatio issues the write in the background and only logs the outcome.
func (d *Display) SetRatio(out displayinfo.Output, ratio float64) {
	d.writes.Add(1)
	go func() {
		defer d.writes.Done()
		ctx, cancel := context.WithTimeout(context.Background(), d.cfg.Timeout)
		defer cancel()
		res := d.Apply(ctx, out, ratio)
		d.LogResult(res)

		d.hookMu.Lock()
		hook := d.onResult
		d.hookMu.Unlock()
		if hook != nil {
			hook(res)
		}
	}()
}

// OnResult registers a callback run after every background write.
func (d *Display) OnResult(f func(Result)) {
	d.hookMu.Lock()
	d.onResult = f
	d.hookMu.Unlock()
}

// Wait blocks until every write started by SetRatio has finished.
func (d *Display) Wait() {
	d.writes.Wait()
}

func (d *Display) LogResult(res Result) {
	switch res.Outcome {
	case Applied:
		d.log.Info().Str("output", res.Output).Int("percent", res.Percent).Msg("brightness applied")
	case BackendRejected:
		d.log.Warn().Err(res.Err).Str("output", res.Output).Int("exit_code", res.ExitCode).Msg("brightness rejected")
	default:
		d.log.Warn().Err(res.Err).Str("output", res.Output).Msg("brightness backend unavailable")
	}
}
