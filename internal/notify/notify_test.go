package notify

import (
	"errors"
	"testing"

	"github.com/godbus/dbus/v5"
)

type fakeCaller struct {
	calls [][]interface{}
	next  uint32
	err   error
}

func (f *fakeCaller) Call(method string, flags dbus.Flags, args ...interface{}) *dbus.Call {
	f.calls = append(f.calls, args)
	if f.err != nil {
		return &dbus.Call{Err: f.err}
	}
	f.next++
	return &dbus.Call{Body: []interface{}{f.next}}
}

func TestBrightnessReplacesPreviousNotification(t *testing.T) {
	caller := &fakeCaller{}
	osd := NewOSDWithCaller(caller)

	if err := osd.Brightness("eDP-1", "Internal Display", 40); err != nil {
		t.Fatalf("Brightness() error: %v", err)
	}
	if err := osd.Brightness("eDP-1", "Internal Display", 45); err != nil {
		t.Fatalf("Brightness() error: %v", err)
	}
	if err := osd.Brightness("HDMI-1", "HDMI-1", 80); err != nil {
		t.Fatalf("Brightness() error: %v", err)
	}

	if len(caller.calls) != 3 {
		t.Fatalf("calls = %d", len(caller.calls))
	}
	if got := caller.calls[0][1].(uint32); got != 0 {
		t.Errorf("first notification replaces id %d, want 0", got)
	}
	if got := caller.calls[1][1].(uint32); got != 1 {
		t.Errorf("second notification replaces id %d, want 1", got)
	}
	if got := caller.calls[2][1].(uint32); got != 0 {
		t.Errorf("other output replaces id %d, want 0", got)
	}
	if got := caller.calls[1][4].(string); got != "Brightness 45%" {
		t.Errorf("body = %q", got)
	}
}

func TestBrightnessError(t *testing.T) {
	osd := NewOSDWithCaller(&fakeCaller{err: errors.New("no notification daemon")})
	if err := osd.Brightness("eDP-1", "Internal Display", 40); err == nil {
		t.Error("expected error")
	}
}

func TestIcon(t *testing.T) {
	if icon(5) != "display-brightness-low-symbolic" || icon(50) != "display-brightness-medium-symbolic" || icon(100) != "display-brightness-high-symbolic" {
		t.Error("unexpected icon mapping")
	}
}
