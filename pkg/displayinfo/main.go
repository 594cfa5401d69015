package displayinfo

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/hoppxi/wilux/internal/utils"
	"github.com/rs/zerolog"
)

type BackendKind int

const (
	InternalBackend BackendKind = iota
	ExternalBackend
)

func (k BackendKind) String() string {
	if k == InternalBackend {
		return "internal"
	}
	return "external"
}

func (k BackendKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *BackendKind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "internal":
		*k = InternalBackend
	case "external":
		*k = ExternalBackend
	default:
		return fmt.Errorf("unknown backend kind %q", text)
	}
	return nil
}

// Backend selects the brightness control path for an output. Connector is
// only set for ExternalBackend.
type Backend struct {
	Kind      BackendKind `json:"kind" yaml:"kind"`
	Connector string      `json:"connector,omitempty" yaml:"connector,omitempty"`
}

type Output struct {
	ID      string  `json:"id" yaml:"id"`
	Backend Backend `json:"backend" yaml:"backend"`
}

var internalPatterns = []string{"edp", "lvds", "internal", "egpu", "evdi"}

// IsInternal reports whether a connector name looks like a built-in panel.
func IsInternal(id string) bool {
	lower := strings.ToLower(id)
	for _, p := range internalPatterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// NewOutput classifies id once; the backend travels with the Output afterwards.
func NewOutput(id string) Output {
	if IsInternal(id) {
		return Output{ID: id, Backend: Backend{Kind: InternalBackend}}
	}
	return Output{ID: id, Backend: Backend{Kind: ExternalBackend, Connector: id}}
}

func (o Output) IsInternal() bool {
	return o.Backend.Kind == InternalBackend
}

func DisplayName(o Output) string {
	if o.IsInternal() {
		return "Internal Display"
	}
	return o.ID
}

// ParseOutputs extracts connected connector names from xrandr --query style output.
func ParseOutputs(text string) []Output {
	var outputs []Output
	seen := map[string]bool{}

	for _, line := range strings.Split(text, "\n") {
		if !strings.Contains(line, " connected") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) == 0 || seen[fields[0]] {
			continue
		}
		seen[fields[0]] = true
		outputs = append(outputs, NewOutput(fields[0]))
	}

	return outputs
}

// SortOutputs puts internal panels first and keeps discovery order otherwise.
func SortOutputs(outputs []Output) []Output {
	sorted := append([]Output(nil), outputs...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].IsInternal() && !sorted[j].IsInternal()
	})
	return sorted
}

type Policy string

const (
	PolicyStrict   Policy = "strict"
	PolicyFallback Policy = "fallback"
)

type EnumeratorConfig struct {
	Command       string
	Args          []string
	Policy        Policy
	Fallback      []string
	ProbeInternal bool
	// ProbeCommand is the internal backend tool used to confirm a panel exists.
	ProbeCommand string
}

type Enumerator struct {
	runner utils.Runner
	cfg    EnumeratorConfig
	log    zerolog.Logger
}

func NewEnumerator(runner utils.Runner, cfg EnumeratorConfig, logger zerolog.Logger) *Enumerator {
	if cfg.Command == "" {
		cfg.Command = "xrandr"
		if cfg.Args == nil {
			cfg.Args = []string{"--query"}
		}
	}
	if cfg.Policy == "" {
		cfg.Policy = PolicyStrict
	}
	return &Enumerator{
		runner: runner,
		cfg:    cfg,
		log:    logger.With().Str("component", "enumerator").Logger(),
	}
}

// Discover runs the discovery tool and returns the connected outputs.
// Empty tool output is reported as malformed.
func (e *Enumerator) Discover(ctx context.Context) ([]Output, error) {
	out, err := e.runner.Run(ctx, e.cfg.Command, e.cfg.Args...)
	if err != nil {
		return nil, fmt.Errorf("discovery failed: %w", err)
	}
	if strings.TrimSpace(string(out)) == "" {
		return nil, fmt.Errorf("%s printed nothing: %w", e.cfg.Command, utils.ErrMalformedOutput)
	}
	return ParseOutputs(string(out)), nil
}

// ListOutputs never fails. When discovery fails or finds nothing the
// configured policy decides between an empty list and the fallback list.
func (e *Enumerator) ListOutputs(ctx context.Context) (outputs []Output) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error().Interface("panic", r).Msg("discovery panicked")
			outputs = e.fallbackList(!e.cfg.ProbeInternal)
		}
	}()

	outputs, err := e.Discover(ctx)
	if err != nil {
		e.log.Warn().Err(err).Str("policy", string(e.cfg.Policy)).Msg("display discovery failed")
		return e.fallback(ctx)
	}
	if len(outputs) == 0 {
		e.log.Info().Str("policy", string(e.cfg.Policy)).Msg("no connected displays found")
		return e.fallback(ctx)
	}

	e.log.Debug().Int("count", len(outputs)).Msg("displays detected")
	return outputs
}

func (e *Enumerator) fallback(ctx context.Context) []Output {
	if e.cfg.Policy != PolicyFallback {
		return []Output{}
	}

	hasPanel := true
	if e.cfg.ProbeInternal {
		hasPanel = e.HasInternalPanel(ctx)
	}
	return e.fallbackList(hasPanel)
}

func (e *Enumerator) fallbackList(hasPanel bool) []Output {
	if e.cfg.Policy != PolicyFallback {
		return []Output{}
	}

	outputs := []Output{}
	for _, id := range e.cfg.Fallback {
		o := NewOutput(id)
		if o.IsInternal() && !hasPanel {
			continue
		}
		outputs = append(outputs, o)
	}
	return outputs
}

// HasInternalPanel asks the internal backend whether it sees a backlight device.
func (e *Enumerator) HasInternalPanel(ctx context.Context) bool {
	tool := e.cfg.ProbeCommand
	if tool == "" {
		tool = "brightnessctl"
	}
	out, err := e.runner.Run(ctx, tool, "info")
	if err != nil {
		return false
	}
	s := string(out)
	return strings.TrimSpace(s) != "" && !strings.Contains(s, "No devices found")
}

func OutputsJSON(outputs []Output) ([]byte, error) {
	return json.MarshalIndent(outputs, "", "  ")
}
