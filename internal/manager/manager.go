package manager

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hoppxi/wilux/internal/utils"
	"github.com/hoppxi/wilux/pkg/brightness"
	"github.com/hoppxi/wilux/pkg/displayinfo"
	"github.com/hoppxi/wilux/pkg/operation"
	"github.com/rs/zerolog"
)

// Notifier shows a brightness change to the user.
type Notifier interface {
	Brightness(output, name string, percent int) error
}

// AppManager owns one brightness controller for the lifetime of the daemon
// and serves it over a unix socket.
type AppManager struct {
	mu       sync.Mutex
	settings Settings
	runner   utils.Runner
	enum     *displayinfo.Enumerator
	display  *operation.Display
	retired  []*operation.Display
	outputs  map[string]displayinfo.Output
	notifier Notifier
	log      zerolog.Logger

	stops    []chan struct{}
	wg       sync.WaitGroup
	listener net.Listener
	shutdown chan struct{}
	once     sync.Once
}

func New(s Settings, runner utils.Runner, logger zerolog.Logger) *AppManager {
	m := &AppManager{
		runner:   runner,
		outputs:  make(map[string]displayinfo.Output),
		log:      logger.With().Str("component", "manager").Logger(),
		shutdown: make(chan struct{}),
	}
	m.Reload(s)
	return m
}

// Reload swaps in a controller built from s. Writes already in flight on
// the old controller are left to finish and are waited on by StopAll.
func (m *AppManager) Reload(s Settings) {
	enum := displayinfo.NewEnumerator(m.runner, s.Enumerator(), m.log)
	display := operation.NewDisplay(m.runner, s.Display(), m.log)
	display.OnResult(m.onResult)

	m.mu.Lock()
	if m.display != nil {
		m.retired = append(m.retired, m.display)
	}
	m.settings = s
	m.enum = enum
	m.display = display
	m.mu.Unlock()

	m.log.Info().Str("session", display.Session()).Str("policy", s.Discovery.Policy).Msg("controller ready")
}

func (m *AppManager) SetNotifier(n Notifier) {
	m.mu.Lock()
	m.notifier = n
	m.mu.Unlock()
}

func (m *AppManager) current() (*displayinfo.Enumerator, *operation.Display, Settings) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.enum, m.display, m.settings
}

func (m *AppManager) onResult(res operation.Result) {
	m.mu.Lock()
	n := m.notifier
	enabled := m.settings.Notify.Enabled
	out, ok := m.outputs[res.Output]
	m.mu.Unlock()

	if n == nil || !enabled || res.Outcome != operation.Applied {
		return
	}
	if !ok {
		out = displayinfo.NewOutput(res.Output)
	}
	if err := n.Brightness(out.ID, displayinfo.DisplayName(out), res.Percent); err != nil {
		m.log.Debug().Err(err).Msg("notification failed")
	}
}

// Outputs enumerates displays and records their classification. An id keeps
// the backend it was first seen with for the lifetime of the manager.
func (m *AppManager) Outputs(ctx context.Context) []displayinfo.Output {
	enum, _, _ := m.current()
	found := displayinfo.SortOutputs(enum.ListOutputs(ctx))

	m.mu.Lock()
	defer m.mu.Unlock()
	for i, o := range found {
		if known, ok := m.outputs[o.ID]; ok {
			found[i] = known
			continue
		}
		m.outputs[o.ID] = o
	}
	return found
}

// Lookup returns the recorded output for id, classifying and recording it
// on first use.
func (m *AppManager) Lookup(id string) displayinfo.Output {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o, ok := m.outputs[id]; ok {
		return o
	}
	o := displayinfo.NewOutput(id)
	m.outputs[id] = o
	return o
}

type OutputState struct {
	displayinfo.Output
	Name  string  `json:"name"`
	Ratio float64 `json:"ratio"`
}

func (m *AppManager) States(ctx context.Context) []OutputState {
	outputs := m.Outputs(ctx)
	_, display, _ := m.current()
	ratios := display.ReadAll(ctx, outputs)

	states := make([]OutputState, len(outputs))
	for i, o := range outputs {
		states[i] = OutputState{Output: o, Name: displayinfo.DisplayName(o), Ratio: ratios[i]}
	}
	return states
}

// Refresh re-reads internal panels after an external backlight change.
func (m *AppManager) Refresh() {
	ctx, cancel := context.WithTimeout(context.Background(), m.timeout())
	defer cancel()

	_, display, s := m.current()
	for _, o := range m.Outputs(ctx) {
		if !o.IsInternal() {
			continue
		}
		ratio := display.GetRatio(ctx, o)
		m.log.Info().Str("output", o.ID).Int("percent", brightness.Percent(ratio)).Msg("backlight changed")

		m.mu.Lock()
		n := m.notifier
		m.mu.Unlock()
		if n != nil && s.Notify.Enabled {
			if err := n.Brightness(o.ID, displayinfo.DisplayName(o), brightness.Percent(ratio)); err != nil {
				m.log.Debug().Err(err).Msg("notification failed")
			}
		}
	}
}

func (m *AppManager) timeout() time.Duration {
	_, _, s := m.current()
	if s.Timeout <= 0 {
		return 5 * time.Second
	}
	return s.Timeout
}

// Handle executes one IPC command line and returns the reply.
func (m *AppManager) Handle(ctx context.Context, line string) string {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "ERR: empty command"
	}

	switch strings.ToUpper(fields[0]) {
	case "STATUS":
		_, display, _ := m.current()
		return "OK: running " + display.Session()

	case "STOP":
		m.log.Info().Msg("received STOP via IPC, shutting down")
		m.Shutdown()
		return "OK: Shutting down."

	case "LIST":
		data, err := json.Marshal(m.States(ctx))
		if err != nil {
			return "ERR: " + err.Error()
		}
		return string(data)

	case "GET":
		if len(fields) != 2 {
			return "ERR: usage GET <output>"
		}
		_, display, _ := m.current()
		ratio := display.GetRatio(ctx, m.Lookup(fields[1]))
		return strconv.FormatFloat(ratio, 'f', 2, 64)

	case "SET":
		if len(fields) != 3 {
			return "ERR: usage SET <output> <ratio>"
		}
		v, err := brightness.ParseInput(fields[2])
		if err != nil {
			return "ERR: invalid ratio " + strconv.Quote(fields[2])
		}
		q, _ := brightness.Snap(v)
		_, display, _ := m.current()
		display.SetRatio(m.Lookup(fields[1]), q)
		return "OK: " + strconv.FormatFloat(q, 'f', 2, 64)

	case "ADJUST":
		if len(fields) < 3 {
			return "ERR: usage ADJUST <output> <expr>"
		}
		_, display, _ := m.current()
		out := m.Lookup(fields[1])
		target, err := operation.EvalRatio(strings.Join(fields[2:], " "), display.GetRatio(ctx, out))
		if err != nil {
			return "ERR: " + err.Error()
		}
		display.SetRatio(out, target)
		return "OK: " + strconv.FormatFloat(target, 'f', 2, 64)

	case "RELOAD":
		s, err := Config.Load(Config.v.ConfigFileUsed())
		if err != nil {
			return "ERR: " + err.Error()
		}
		m.Reload(s)
		return "OK: reloaded"

	default:
		return "ERR: unknown command"
	}
}

func getSocketPath() string {
	var baseDir string
	if runtimeDir := os.Getenv("XDG_RUNTIME_DIR"); runtimeDir != "" {
		baseDir = runtimeDir
	} else {
		baseDir = os.TempDir()
	}

	socketDir := filepath.Join(baseDir, "wilux")
	if err := os.MkdirAll(socketDir, 0o755); err != nil {
		return filepath.Join(os.TempDir(), "wilux-socket.sock")
	}
	return filepath.Join(socketDir, "socket.sock")
}

func SocketPath() string {
	return getSocketPath()
}

// Serve accepts IPC connections on path until Shutdown is called.
func (m *AppManager) Serve(path string) error {
	_ = os.Remove(path)

	listener, err := net.Listen("unix", path)
	if err != nil {
		return fmt.Errorf("error listening on socket: %w", err)
	}

	m.mu.Lock()
	m.listener = listener
	m.mu.Unlock()

	m.log.Info().Str("socket", path).Msg("IPC server listening")

	go func() {
		<-m.shutdown
		_ = listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				_ = os.Remove(path)
				return nil
			}
			continue
		}
		go m.handleConnection(conn)
	}
}

func (m *AppManager) handleConnection(conn net.Conn) {
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 1024)
	n, err := conn.Read(buf)
	if err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), m.timeout())
	defer cancel()

	reply := m.Handle(ctx, strings.TrimSpace(string(buf[:n])))
	_, _ = conn.Write([]byte(reply))
}

func (m *AppManager) StartWatcher(f func(stop <-chan struct{})) {
	stop := make(chan struct{})
	m.mu.Lock()
	m.stops = append(m.stops, stop)
	m.mu.Unlock()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		for {
			func() {
				defer func() {
					if r := recover(); r != nil {
						m.log.Error().Interface("panic", r).Msg("watcher panic")
					}
				}()
				f(stop)
			}()

			select {
			case <-stop:
				return
			case <-time.After(2 * time.Second):
				m.log.Debug().Msg("restarting watcher")
			}
		}
	}()
}

// Done is closed once Shutdown has been called.
func (m *AppManager) Done() <-chan struct{} {
	return m.shutdown
}

func (m *AppManager) Shutdown() {
	m.once.Do(func() { close(m.shutdown) })
}

// StopAll stops watchers and waits for them and for pending writes.
func (m *AppManager) StopAll() {
	m.Shutdown()

	m.mu.Lock()
	stops := m.stops
	m.stops = nil
	displays := append([]*operation.Display{m.display}, m.retired...)
	m.retired = nil
	m.mu.Unlock()

	for _, s := range stops {
		close(s)
	}
	m.wg.Wait()
	for _, d := range displays {
		d.Wait()
	}
}

func ConnectIPC() (net.Conn, error) {
	return net.DialTimeout("unix", getSocketPath(), 500*time.Millisecond)
}

func SendIPCCommand(cmd string) (string, error) {
	return sendIPC(getSocketPath(), cmd)
}

func sendIPC(path, cmd string) (string, error) {
	conn, err := net.DialTimeout("unix", path, 500*time.Millisecond)
	if err != nil {
		return "", err
	}
	defer conn.Close()

	if _, err := conn.Write([]byte(cmd)); err != nil {
		return "", err
	}

	data, err := io.ReadAll(conn)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
