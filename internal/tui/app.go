package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/hoppxi/wilux/pkg/brightness"
	"github.com/hoppxi/wilux/pkg/displayinfo"
	"github.com/hoppxi/wilux/pkg/operation"
	"github.com/rs/zerolog"
)

// Lister enumerates outputs.
type Lister interface {
	ListOutputs(ctx context.Context) []displayinfo.Output
}

// Controller reads and writes brightness for one output.
type Controller interface {
	GetRatio(ctx context.Context, out displayinfo.Output) float64
	Apply(ctx context.Context, out displayinfo.Output, ratio float64) operation.Result
}

// outputsMsg carries a finished enumeration.
type outputsMsg struct {
	gen     int
	outputs []displayinfo.Output
}

// ratioMsg carries one finished brightness read.
type ratioMsg struct {
	gen   int
	id    string
	ratio float64
}

// appliedMsg carries the outcome of one brightness write.
type appliedMsg struct {
	res operation.Result
}

type row struct {
	output  displayinfo.Output
	ratio   float64
	loading bool
}

// AppModel is the slider view: one row per output, internal panels first.
type AppModel struct {
	lister     Lister
	controller Controller
	timeout    time.Duration
	log        zerolog.Logger

	// gen increments on every rescan; messages from older scans are dropped.
	gen      int
	scanning bool
	rows     []row
	cursor   int
	status   string
	failed   bool

	bar   progress.Model
	help  help.Model
	keys  keyMap
	width int
}

func NewAppModel(lister Lister, controller Controller, timeout time.Duration, logger zerolog.Logger) AppModel {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return AppModel{
		lister:     lister,
		controller: controller,
		timeout:    timeout,
		log:        logger.With().Str("component", "tui").Logger(),
		gen:        1,
		scanning:   true,
		bar:        progress.New(progress.WithDefaultGradient(), progress.WithWidth(32), progress.WithoutPercentage()),
		help:       help.New(),
		keys:       defaultKeys,
	}
}

func (m AppModel) Init() tea.Cmd {
	return m.listCmd()
}

func (m AppModel) listCmd() tea.Cmd {
	gen, lister, timeout := m.gen, m.lister, m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return outputsMsg{gen: gen, outputs: displayinfo.SortOutputs(lister.ListOutputs(ctx))}
	}
}

func (m AppModel) readCmd(out displayinfo.Output) tea.Cmd {
	gen, ctrl, timeout := m.gen, m.controller, m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return ratioMsg{gen: gen, id: out.ID, ratio: ctrl.GetRatio(ctx, out)}
	}
}

func (m AppModel) applyCmd(out displayinfo.Output, ratio float64) tea.Cmd {
	ctrl, timeout := m.controller, m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return appliedMsg{res: ctrl.Apply(ctx, out, ratio)}
	}
}

func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		if w := msg.Width - nameWidth - 12; w > 10 {
			m.bar.Width = w
		}
		return m, nil

	case outputsMsg:
		if msg.gen != m.gen {
			return m, nil
		}
		m.scanning = false
		m.rows = make([]row, len(msg.outputs))
		cmds := make([]tea.Cmd, 0, len(msg.outputs))
		for i, o := range msg.outputs {
			m.rows[i] = row{output: o, ratio: brightness.DefaultRatio, loading: true}
			cmds = append(cmds, m.readCmd(o))
		}
		if m.cursor >= len(m.rows) {
			m.cursor = 0
		}
		return m, tea.Batch(cmds...)

	case ratioMsg:
		if msg.gen != m.gen {
			return m, nil
		}
		if i := m.index(msg.id); i >= 0 && m.rows[i].loading {
			m.rows[i].ratio = msg.ratio
			m.rows[i].loading = false
		}
		return m, nil

	case appliedMsg:
		res := msg.res
		if res.Outcome == operation.Applied {
			m.status = fmt.Sprintf("%s set to %d%%", res.Output, res.Percent)
			m.failed = false
		} else {
			m.status = fmt.Sprintf("%s: %s", res.Output, res.Outcome)
			m.failed = true
		}
		m.log.Debug().Str("output", res.Output).Str("outcome", res.Outcome.String()).Int("percent", res.Percent).Msg("slider write finished")
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m AppModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Refresh):
		m.gen++
		m.scanning = true
		m.rows = nil
		m.status = ""
		return m, m.listCmd()

	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}

	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.rows)-1 {
			m.cursor++
		}

	case key.Matches(msg, m.keys.Dimmer):
		if len(m.rows) > 0 {
			return m.slide(m.cursor, m.rows[m.cursor].ratio-1.0/brightness.Steps)
		}

	case key.Matches(msg, m.keys.Brighter):
		if len(m.rows) > 0 {
			return m.slide(m.cursor, m.rows[m.cursor].ratio+1.0/brightness.Steps)
		}

	case key.Matches(msg, m.keys.Preset):
		if len(m.rows) > 0 {
			n := int(msg.Runes[0] - '0')
			if n == 0 {
				n = 10
			}
			return m.slide(m.cursor, float64(n)/10)
		}
	}
	return m, nil
}

// slide handles a new slider value for row i. Values off the 1/20 grid are
// written back to the slider and re-enter as aligned values; only aligned
// values reach the backend.
func (m AppModel) slide(i int, value float64) (AppModel, tea.Cmd) {
	if value < brightness.MinRatio {
		value = brightness.MinRatio
	}
	if value > brightness.MaxRatio {
		value = brightness.MaxRatio
	}

	q, aligned := brightness.Snap(value)
	if !aligned {
		m.rows[i].ratio = q
		return m.slide(i, q)
	}

	m.rows[i].ratio = q
	m.rows[i].loading = false
	return m, m.applyCmd(m.rows[i].output, q)
}

func (m AppModel) index(id string) int {
	for i, r := range m.rows {
		if r.output.ID == id {
			return i
		}
	}
	return -1
}

func (m AppModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Brightness Controls"))
	b.WriteString("\n\n")

	switch {
	case m.scanning:
		b.WriteString(dimStyle.Render("Detecting displays..."))
		b.WriteString("\n")
	case len(m.rows) == 0:
		b.WriteString(dimStyle.Render("No displays detected"))
		b.WriteString("\n")
	default:
		for i, r := range m.rows {
			b.WriteString(m.renderRow(i, r))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	if m.status != "" {
		if m.failed {
			b.WriteString(errorStyle.Render(m.status))
		} else {
			b.WriteString(dimStyle.Render(m.status))
		}
		b.WriteString("\n")
	}
	b.WriteString(rowStyle.Render(m.help.View(m.keys)))

	return b.String()
}

func (m AppModel) renderRow(i int, r row) string {
	name := displayinfo.DisplayName(r.output)
	if len(name) > nameWidth {
		name = name[:nameWidth-1] + "…"
	}

	style := rowStyle
	marker := "  "
	if i == m.cursor {
		style = selectedStyle
		marker = "> "
	}

	value := fmt.Sprintf("%3d%%", brightness.Percent(r.ratio))
	if r.loading {
		value = " ..."
	}

	label := lipgloss.NewStyle().Width(nameWidth).Render(name)
	return style.Render(marker + label + " " + m.bar.ViewAs(r.ratio) + " " + value)
}

// Run starts the full-screen slider program and blocks until it exits.
func Run(lister Lister, controller Controller, timeout time.Duration, logger zerolog.Logger) error {
	p := tea.NewProgram(NewAppModel(lister, controller, timeout, logger), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
