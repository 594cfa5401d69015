package displayinfo

import (
	"context"
	"fmt"
	"testing"

	"github.com/hoppxi/wilux/internal/utils"
	"github.com/rs/zerolog"
)

const xrandrTwoDisplays = `Screen 0: minimum 320 x 200, current 3840 x 1080, maximum 16384 x 16384
eDP-1 connected primary 1920x1080+0+0 (normal left inverted right x axis y axis) 344mm x 194mm
   1920x1080     60.02*+  59.93
HDMI-1 connected 1920x1080+1920+0 (normal left inverted right x axis y axis) 527mm x 296mm
   1920x1080     60.00*+
DP-1 disconnected (normal left inverted right x axis y axis)
`

func ids(outputs []Output) []string {
	out := make([]string, 0, len(outputs))
	for _, o := range outputs {
		out = append(out, o.ID)
	}
	return out
}

func assertIDs(t testing.TB, got []Output, want []string) {
	t.Helper()

	g := ids(got)
	if len(g) != len(want) {
		t.Fatalf("got %v want %v", g, want)
	}
	for i := range want {
		if g[i] != want[i] {
			t.Errorf("index %d: got %q want %q", i, g[i], want[i])
		}
	}
}

func newTestEnumerator(responses map[string]utils.FakeResponse, cfg EnumeratorConfig) (*Enumerator, *utils.FakeRunner) {
	runner := utils.NewFakeRunner(responses)
	return NewEnumerator(runner, cfg, zerolog.Nop()), runner
}

func TestIsInternal(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"eDP-1", true},
		{"EDP-1", true},
		{"edp1", true},
		{"LVDS-1", true},
		{"lvds1", true},
		{"Internal-Panel", true},
		{"eGPU-DP-1", true},
		{"DVI-I-1-EVDI", true},
		{"HDMI-1", false},
		{"DP-2", false},
		{"DisplayPort-0", false},
	}

	for _, tt := range tests {
		if got := IsInternal(tt.id); got != tt.want {
			t.Errorf("IsInternal(%q) = %v, want %v", tt.id, got, tt.want)
		}
	}
}

func TestNewOutputBackend(t *testing.T) {
	internal := NewOutput("eDP-1")
	if !internal.IsInternal() || internal.Backend.Connector != "" {
		t.Errorf("eDP-1 backend = %+v", internal.Backend)
	}

	external := NewOutput("HDMI-1")
	if external.IsInternal() {
		t.Error("HDMI-1 classified internal")
	}
	if external.Backend.Kind != ExternalBackend || external.Backend.Connector != "HDMI-1" {
		t.Errorf("HDMI-1 backend = %+v", external.Backend)
	}
}

func TestParseOutputs(t *testing.T) {
	got := ParseOutputs(xrandrTwoDisplays)
	assertIDs(t, got, []string{"eDP-1", "HDMI-1"})
	if !got[0].IsInternal() {
		t.Error("eDP-1 should be internal")
	}
	if got[1].IsInternal() {
		t.Error("HDMI-1 should be external")
	}
}

func TestParseOutputsCompact(t *testing.T) {
	got := ParseOutputs("eDP-1 connected primary 1920x1080...\nHDMI-1 connected 1920x1080...")
	assertIDs(t, got, []string{"eDP-1", "HDMI-1"})
}

func TestParseOutputsEdgeCases(t *testing.T) {
	assertIDs(t, ParseOutputs(""), nil)
	assertIDs(t, ParseOutputs("HDMI-1 disconnected\nDP-1 disconnected"), nil)
	assertIDs(t, ParseOutputs("HDMI-1 connected\nHDMI-1 connected"), []string{"HDMI-1"})
}

func TestSortOutputs(t *testing.T) {
	in := []Output{NewOutput("HDMI-1"), NewOutput("DP-1"), NewOutput("eDP-1")}
	assertIDs(t, SortOutputs(in), []string{"eDP-1", "HDMI-1", "DP-1"})
	assertIDs(t, in, []string{"HDMI-1", "DP-1", "eDP-1"})
}

func TestDisplayName(t *testing.T) {
	if got := DisplayName(NewOutput("eDP-1")); got != "Internal Display" {
		t.Errorf("got %q", got)
	}
	if got := DisplayName(NewOutput("HDMI-1")); got != "HDMI-1" {
		t.Errorf("got %q", got)
	}
}

func TestListOutputs(t *testing.T) {
	e, _ := newTestEnumerator(map[string]utils.FakeResponse{
		"xrandr --query": {Out: xrandrTwoDisplays},
	}, EnumeratorConfig{})

	assertIDs(t, e.ListOutputs(context.Background()), []string{"eDP-1", "HDMI-1"})
}

func TestListOutputsFailuresStrict(t *testing.T) {
	tests := []struct {
		name      string
		responses map[string]utils.FakeResponse
	}{
		{"tool missing", nil},
		{"non-zero exit", map[string]utils.FakeResponse{
			"xrandr --query": {Err: &utils.ExitError{Tool: "xrandr", Code: 1, Stderr: "Can't open display"}},
		}},
		{"empty stdout", map[string]utils.FakeResponse{
			"xrandr --query": {Out: "  \n"},
		}},
		{"nothing connected", map[string]utils.FakeResponse{
			"xrandr --query": {Out: "Screen 0: minimum 8 x 8\nHDMI-1 disconnected\n"},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _ := newTestEnumerator(tt.responses, EnumeratorConfig{Policy: PolicyStrict})
			got := e.ListOutputs(context.Background())
			if got == nil || len(got) != 0 {
				t.Errorf("expected empty non-nil slice, got %v", got)
			}
		})
	}
}

func TestListOutputsFallback(t *testing.T) {
	cfg := EnumeratorConfig{
		Policy:   PolicyFallback,
		Fallback: []string{"eDP-1", "HDMI-1"},
	}
	e, _ := newTestEnumerator(nil, cfg)
	got := e.ListOutputs(context.Background())
	assertIDs(t, got, []string{"eDP-1", "HDMI-1"})
	if !got[0].IsInternal() {
		t.Error("fallback eDP-1 should be internal")
	}
}

func TestListOutputsFallbackProbe(t *testing.T) {
	cfg := EnumeratorConfig{
		Policy:        PolicyFallback,
		Fallback:      []string{"eDP-1", "HDMI-1"},
		ProbeInternal: true,
	}

	e, _ := newTestEnumerator(map[string]utils.FakeResponse{
		"brightnessctl info": {Out: "No devices found.\n"},
	}, cfg)
	assertIDs(t, e.ListOutputs(context.Background()), []string{"HDMI-1"})

	e, _ = newTestEnumerator(map[string]utils.FakeResponse{
		"brightnessctl info": {Out: "Device 'intel_backlight' of class 'backlight':\n\tCurrent brightness: 400 (33%)\n"},
	}, cfg)
	assertIDs(t, e.ListOutputs(context.Background()), []string{"eDP-1", "HDMI-1"})

	e, _ = newTestEnumerator(nil, cfg)
	assertIDs(t, e.ListOutputs(context.Background()), []string{"HDMI-1"})
}

func TestDiscoverErrors(t *testing.T) {
	e, _ := newTestEnumerator(nil, EnumeratorConfig{})
	_, err := e.Discover(context.Background())
	if got := utils.ExitCode(err); got != utils.ExitToolMissing {
		t.Errorf("missing tool exit code = %d", got)
	}

	e, _ = newTestEnumerator(map[string]utils.FakeResponse{"xrandr --query": {Out: ""}}, EnumeratorConfig{})
	_, err = e.Discover(context.Background())
	if got := utils.ExitCode(err); got != utils.ExitMalformed {
		t.Errorf("empty output exit code = %d", got)
	}

	e, _ = newTestEnumerator(map[string]utils.FakeResponse{
		"xrandr --query": {Err: &utils.ExitError{Tool: "xrandr", Code: 1}},
	}, EnumeratorConfig{})
	_, err = e.Discover(context.Background())
	if got := utils.ExitCode(err); got != utils.ExitToolFailed {
		t.Errorf("non-zero exit code = %d", got)
	}
}

type panicRunner struct{}

func (panicRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	panic(fmt.Sprintf("unexpected call to %s", name))
}

func TestListOutputsRecoversPanic(t *testing.T) {
	e := NewEnumerator(panicRunner{}, EnumeratorConfig{}, zerolog.Nop())
	got := e.ListOutputs(context.Background())
	if len(got) != 0 {
		t.Errorf("expected empty list, got %v", got)
	}
}

func TestOutputsJSON(t *testing.T) {
	data, err := OutputsJSON([]Output{NewOutput("HDMI-1")})
	if err != nil {
		t.Fatal(err)
	}
	want := `[
  {
    "id": "HDMI-1",
    "backend": {
      "kind": "external",
      "connector": "HDMI-1"
    }
  }
]`
	if string(data) != want {
		t.Errorf("got %s", data)
	}
}
