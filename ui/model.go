package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"node.town/parley/lang"
	"node.town/parley/pipeline"
)

const (
	sensitivityStep = 0.5
	inputHeight     = 5
	eventBuffer     = 256
)

// eventMsg carries a controller event into the program loop.
type eventMsg pipeline.Event

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#25A065")).
			Padding(0, 1)
	labelStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ff8800"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

type Model struct {
	controller *pipeline.Controller
	events     chan pipeline.Event
	logger     *log.Logger

	input    textarea.Model
	output   viewport.Model
	spinner  spinner.Model
	savePath textinput.Model

	state          pipeline.State
	lastRecognized string
	notice         string
	progress       bool
	saving         bool
	showHistory    bool
	ready          bool
	width          int
}

// New builds the model and subscribes it to the controller.
func New(c *pipeline.Controller, logger *log.Logger) Model {
	input := textarea.New()
	input.Placeholder = "Speak with ctrl+r or type here and press ctrl+t"
	input.ShowLineNumbers = false
	input.SetHeight(inputHeight)
	input.Focus()

	path := textinput.New()
	path.Placeholder = "translation.txt"
	path.Prompt = "Save to: "

	m := Model{
		controller: c,
		events:     make(chan pipeline.Event, eventBuffer),
		logger:     logger,
		input:      input,
		spinner:    spinner.New(spinner.WithSpinner(spinner.Dot)),
		savePath:   path,
		state:      c.Snapshot(),
	}

	events := m.events
	c.Subscribe(func(e pipeline.Event) {
		select {
		case events <- e:
		default:
			logger.Warn("dropped ui event", "kind", e.Kind)
		}
	})

	return m
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, waitForEvent(m.events))
}

func waitForEvent(events chan pipeline.Event) tea.Cmd {
	return func() tea.Msg {
		return eventMsg(<-events)
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.saving {
			return m.updateSave(msg)
		}
		if cmd, handled := m.handleKey(msg); handled {
			return m, cmd
		}

	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)

	case eventMsg:
		cmds = append(cmds, m.handleEvent(pipeline.Event(msg)))
		cmds = append(cmds, waitForEvent(m.events))
		return m, tea.Batch(cmds...)

	case spinner.TickMsg:
		if !m.progress {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.output, cmd = m.output.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	m.notice = ""

	switch msg.String() {
	case "ctrl+c", "esc":
		return tea.Quit, true

	case "ctrl+r":
		if m.state.Busy {
			m.notice = pipeline.StatusBusy
			return nil, true
		}
		if err := m.controller.StartCapture(nil); err != nil {
			m.logger.Warn("start capture", "error", err)
			m.notice = pipeline.StatusFor(err)
		}
		return nil, true

	case "ctrl+t":
		if m.state.Busy {
			m.notice = pipeline.StatusBusy
			return nil, true
		}
		if err := m.controller.StartTranslate(m.input.Value(), nil); err != nil {
			m.logger.Warn("start translation", "error", err)
			m.notice = pipeline.StatusFor(err)
		}
		return nil, true

	case "ctrl+s":
		m.saving = true
		m.input.Blur()
		return m.savePath.Focus(), true

	case "ctrl+l":
		m.input.Reset()
		m.lastRecognized = ""
		m.controller.Clear()
		return nil, true

	case "ctrl+n":
		m.controller.SetTarget(lang.Step(m.state.Target, 1))
		return nil, true

	case "ctrl+p":
		m.controller.SetTarget(lang.Step(m.state.Target, -1))
		return nil, true

	case "ctrl+up":
		m.controller.SetSensitivity(m.state.Sensitivity + sensitivityStep)
		return nil, true

	case "ctrl+down":
		m.controller.SetSensitivity(m.state.Sensitivity - sensitivityStep)
		return nil, true

	case "tab":
		m.showHistory = !m.showHistory
		m.refreshOutput()
		return nil, true
	}
	return nil, false
}

func (m Model) updateSave(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.endSave()
		return m, nil

	case "enter":
		path := strings.TrimSpace(m.savePath.Value())
		if path == "" {
			path = m.savePath.Placeholder
		}
		m.syncInput()
		if err := m.controller.Save(path); err != nil {
			m.logger.Warn("save translation", "path", path, "error", err)
		}
		m.endSave()
		return m, nil
	}

	var cmd tea.Cmd
	m.savePath, cmd = m.savePath.Update(msg)
	return m, cmd
}

// syncInput hands text typed into the input area to the controller.
func (m *Model) syncInput() {
	text := m.input.Value()
	if text == m.lastRecognized {
		return
	}
	m.lastRecognized = text
	m.controller.SetRecognized(text)
}

func (m *Model) endSave() {
	m.saving = false
	m.savePath.Blur()
	m.savePath.Reset()
	m.input.Focus()
}

func (m *Model) handleEvent(e pipeline.Event) tea.Cmd {
	switch e.Kind {
	case pipeline.EventState:
		m.state = e.State
		if e.State.Recognized != m.lastRecognized {
			m.lastRecognized = e.State.Recognized
			m.input.SetValue(e.State.Recognized)
		}
		m.refreshOutput()

	case pipeline.EventProgressStarted:
		m.progress = true
		return m.spinner.Tick

	case pipeline.EventProgressStopped:
		m.progress = false

	case pipeline.EventHistoryAppended:
		if m.showHistory {
			m.refreshOutput()
		}
	}
	return nil
}

func (m *Model) resize(width, height int) {
	m.width = width
	m.input.SetWidth(width)

	used := lipgloss.Height(m.headerView()) +
		inputHeight + 1 + // input and its label
		1 + // output label
		lipgloss.Height(m.footerView())
	outputHeight := max(1, height-used)

	if !m.ready {
		m.output = viewport.New(width, outputHeight)
		m.ready = true
	} else {
		m.output.Width = width
		m.output.Height = outputHeight
	}
	m.refreshOutput()
}

func (m *Model) refreshOutput() {
	if !m.ready {
		return
	}
	m.output.SetContent(m.outputContent())
	if m.showHistory {
		m.output.GotoBottom()
	}
}

func (m Model) outputContent() string {
	if m.showHistory {
		lines := m.controller.History().Lines()
		if len(lines) == 0 {
			return statusStyle.Render("No translations yet.")
		}
		return strings.Join(lines, "\n")
	}
	return lipgloss.NewStyle().Width(m.width).Render(m.state.Translated)
}

func (m Model) View() string {
	if !m.ready {
		return "\n  Initializing..."
	}

	outputLabel := "Translated Text"
	if m.showHistory {
		outputLabel = "History"
	}

	return strings.Join([]string{
		m.headerView(),
		labelStyle.Render("Recognized/Text Input"),
		m.input.View(),
		labelStyle.Render(outputLabel),
		m.output.View(),
		m.footerView(),
	}, "\n")
}

func (m Model) headerView() string {
	title := titleStyle.Render("Parley")
	info := fmt.Sprintf(
		" → %s  sensitivity %.1fs ",
		m.state.Target.Name,
		m.state.Sensitivity,
	)
	line := strings.Repeat(
		"─",
		max(0, m.width-lipgloss.Width(title)-lipgloss.Width(info)),
	)
	return lipgloss.JoinHorizontal(lipgloss.Center, title, info, line)
}

func (m Model) footerView() string {
	var status string
	switch {
	case m.saving:
		status = m.savePath.View()
	case m.notice != "":
		status = m.notice
	case m.progress:
		status = m.spinner.View() + " " + m.state.Status
	default:
		status = m.state.Status
	}

	help := statusStyle.Render(
		"ctrl+r speak · ctrl+t translate · ctrl+s save · ctrl+l clear · " +
			"ctrl+n/p language · ctrl+↑/↓ sensitivity · tab history · esc quit",
	)
	return status + "\n" + help
}
