package notify

import (
	"fmt"
	"sync"

	"github.com/godbus/dbus/v5"
)

const (
	busName    = "org.freedesktop.Notifications"
	objectPath = "/org/freedesktop/Notifications"
	method     = busName + ".Notify"

	appName = "wilux"
	timeout = int32(2000)
)

// Caller is the subset of *dbus.Object used to send notifications.
type Caller interface {
	Call(method string, flags dbus.Flags, args ...interface{}) *dbus.Call
}

// OSD shows brightness changes as desktop notifications, replacing the
// previous bubble for the same output instead of stacking new ones.
type OSD struct {
	mu   sync.Mutex
	obj  Caller
	ids  map[string]uint32
	conn *dbus.Conn
}

func NewOSD() (*OSD, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}
	o := NewOSDWithCaller(conn.Object(busName, dbus.ObjectPath(objectPath)))
	o.conn = conn
	return o, nil
}

func NewOSDWithCaller(obj Caller) *OSD {
	return &OSD{obj: obj, ids: make(map[string]uint32)}
}

func icon(percent int) string {
	switch {
	case percent < 34:
		return "display-brightness-low-symbolic"
	case percent < 67:
		return "display-brightness-medium-symbolic"
	default:
		return "display-brightness-high-symbolic"
	}
}

func (o *OSD) Brightness(output, name string, percent int) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	hints := map[string]dbus.Variant{
		"value":                           dbus.MakeVariant(int32(percent)),
		"x-canonical-private-synchronous": dbus.MakeVariant("wilux-" + output),
		"transient":                       dbus.MakeVariant(true),
	}

	call := o.obj.Call(method, 0,
		appName,
		o.ids[output],
		icon(percent),
		name,
		fmt.Sprintf("Brightness %d%%", percent),
		[]string{},
		hints,
		timeout,
	)
	if call.Err != nil {
		return fmt.Errorf("notify failed: %w", call.Err)
	}

	var id uint32
	if err := call.Store(&id); err != nil {
		return fmt.Errorf("notify returned unexpected reply: %w", err)
	}
	o.ids[output] = id
	return nil
}

func (o *OSD) Close() error {
	if o.conn == nil {
		return nil
	}
	return o.conn.Close()
}
