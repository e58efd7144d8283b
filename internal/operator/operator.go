// Package operator implements the terminal form used to edit the BMC
// endpoint while the control loop runs.
package operator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"codeberg.org/mutker/ipmifanctl/internal/control"
	"codeberg.org/mutker/ipmifanctl/internal/endpoint"
	"codeberg.org/mutker/ipmifanctl/internal/errors"
)

const historySize = 8

var fieldLabels = map[endpoint.Field]string{
	endpoint.FieldAddress:  "Address",
	endpoint.FieldUsername: "Username",
	endpoint.FieldPassword: "Password",
	endpoint.FieldToolPath: "Tool path",
}

var (
	colorTitleBg = lipgloss.Color("17")
	colorTitleFg = lipgloss.Color("51")
	colorBorder  = lipgloss.Color("62")
	colorLabel   = lipgloss.Color("252")
	colorDim     = lipgloss.Color("240")
	colorOk      = lipgloss.Color("78")
	colorWarn    = lipgloss.Color("220")
	colorCrit    = lipgloss.Color("196")
)

// Model is the BubbleTea model for the endpoint form.
type Model struct {
	store     *endpoint.Store
	feed      *Feed
	inputs    []textinput.Model
	focus     int
	status    string
	statusErr bool
	history   []*control.Outcome
	interval  time.Duration
	width     int
	height    int
}

// New creates a form bound to store. Outcomes arriving on feed are listed
// below the form.
func New(store *endpoint.Store, feed *Feed, interval time.Duration) Model {
	m := Model{
		store:    store,
		feed:     feed,
		interval: interval,
		inputs:   make([]textinput.Model, len(endpoint.Fields)),
	}

	cfg := store.Get()
	for i, field := range endpoint.Fields {
		ti := textinput.New()
		ti.Prompt = ""
		ti.CharLimit = 256
		ti.Width = 40
		ti.SetValue(cfg.Value(field))
		if field == endpoint.FieldPassword {
			ti.EchoMode = textinput.EchoPassword
			ti.EchoCharacter = '•'
		}
		m.inputs[i] = ti
	}
	m.inputs[0].Focus()

	return m
}

// Run shows the form until the operator quits or ctx is done.
func Run(ctx context.Context, m Model) error {
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	return nil
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.feed.wait())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "esc", "ctrl+c":
			return m, tea.Quit
		case "tab", "down":
			return m, m.moveFocus(1)
		case "shift+tab", "up":
			return m, m.moveFocus(-1)
		case "enter":
			m.commit(m.focus)
			return m, nil
		case "ctrl+s":
			m.commitAll()
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case outcomeMsg:
		m.history = append(m.history, msg.outcome)
		if len(m.history) > historySize {
			m.history = m.history[len(m.history)-historySize:]
		}
		return m, m.feed.wait()
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m *Model) moveFocus(delta int) tea.Cmd {
	m.inputs[m.focus].Blur()
	m.focus = (m.focus + delta + len(m.inputs)) % len(m.inputs)
	return m.inputs[m.focus].Focus()
}

// commit writes one field to the store. Edits take effect from the next
// cycle.
func (m *Model) commit(i int) {
	field := endpoint.Fields[i]
	value := m.inputs[i].Value()

	if value == m.store.Get().Value(field) {
		m.setStatus(fmt.Sprintf("%s unchanged", fieldLabels[field]), false)
		return
	}
	if err := m.store.Set(field, value); err != nil {
		m.setStatus(err.Error(), true)
		return
	}
	m.setStatus(fmt.Sprintf("%s updated, applies from the next cycle", fieldLabels[field]), false)
}

func (m *Model) commitAll() {
	current := m.store.Get()

	var changed []string
	for i, field := range endpoint.Fields {
		value := m.inputs[i].Value()
		if value == current.Value(field) {
			continue
		}
		if err := m.store.Set(field, value); err != nil {
			m.setStatus(err.Error(), true)
			return
		}
		changed = append(changed, fieldLabels[field])
	}

	if len(changed) == 0 {
		m.setStatus("Nothing to save", false)
		return
	}
	m.setStatus(fmt.Sprintf("Saved %s, applies from the next cycle", strings.Join(changed, ", ")), false)
}

func (m *Model) setStatus(status string, isErr bool) {
	m.status = status
	m.statusErr = isErr
}

func (m Model) View() string {
	if m.width == 0 {
		return "  Initializing..."
	}

	contentWidth := max(m.width-2, 40)

	sections := []string{
		m.renderTitleBar(contentWidth),
		m.renderForm(contentWidth),
	}
	if m.status != "" {
		color := colorOk
		if m.statusErr {
			color = colorCrit
		}
		sections = append(sections, lipgloss.NewStyle().
			Foreground(color).
			Padding(0, 1).
			Render(m.status))
	}
	sections = append(sections, m.renderHistory(contentWidth), m.renderFooter())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderTitleBar(width int) string {
	logo := lipgloss.NewStyle().
		Bold(true).
		Foreground(colorTitleFg).
		Render("IPMI FAN CONTROL")

	right := lipgloss.NewStyle().
		Foreground(colorDim).
		Render(fmt.Sprintf("every %s", m.interval))

	gap := max(width-lipgloss.Width(logo)-lipgloss.Width(right)-4, 1)

	return lipgloss.NewStyle().
		Background(colorTitleBg).
		Width(width).
		Padding(0, 1).
		Render(logo + strings.Repeat(" ", gap) + right)
}

func (m Model) renderForm(width int) string {
	label := lipgloss.NewStyle().Foreground(colorLabel).Width(11)
	marker := lipgloss.NewStyle().Foreground(colorTitleFg).Bold(true)

	var rows []string
	for i, field := range endpoint.Fields {
		cursor := "  "
		if i == m.focus {
			cursor = marker.Render("> ")
		}
		rows = append(rows, cursor+label.Render(fieldLabels[field])+m.inputs[i].View())
	}

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorBorder).
		Padding(0, 1).
		Width(width - 2).
		Render(strings.Join(rows, "\n"))
}

func (m Model) renderHistory(width int) string {
	dim := lipgloss.NewStyle().Foreground(colorDim)

	if len(m.history) == 0 {
		return dim.Padding(1, 1).Render("Waiting for the first cycle...")
	}

	rows := make([]string, 0, len(m.history)+1)
	for i := len(m.history) - 1; i >= 0; i-- {
		o := m.history[i]
		color := colorOk
		switch o.Action {
		case control.ActionFailed:
			color = colorCrit
		case control.ActionNoReading, control.ActionNoBand:
			color = colorWarn
		}
		rows = append(rows, dim.Render(o.Started.Format("15:04:05"))+"  "+
			lipgloss.NewStyle().Foreground(color).Render(o.Summary()))
	}
	if dropped := m.feed.Dropped(); dropped > 0 {
		rows = append(rows, dim.Render(fmt.Sprintf("(%d older outcomes not shown)", dropped)))
	}

	return lipgloss.NewStyle().
		Padding(1, 1).
		MaxWidth(width).
		Render(strings.Join(rows, "\n"))
}

func (m Model) renderFooter() string {
	return lipgloss.NewStyle().
		Foreground(colorDim).
		Padding(0, 1).
		Render("tab/↑↓ move │ enter save field │ ctrl+s save all │ esc quit")
}
