package main

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	vbruntime "github.com/gosuda/vbjson/runtime"
)

type model struct {
	sess     *session
	title    string
	viewport viewport.Model
	input    textinput.Model
	ready    bool
	status   string
	busy     bool
	events   <-chan tea.Msg
	lines    []string
	history  []string
	histPos  int
}

var (
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	boxStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("45"))
	echoStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("24")).Padding(0, 1)
)

// newModel wires the console sink of a not yet started session into the
// returned channel, which the model polls.
func newModel(cfg appConfig, events <-chan tea.Msg, sess *session) model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Sub name, event <control> <event>, get, set, vars, help"
	ti.CharLimit = 4096
	ti.Focus()
	return model{
		sess:     sess,
		title:    filepath.Base(cfg.script),
		viewport: viewport.New(80, 20),
		input:    ti,
		status:   "starting",
		busy:     true,
		events:   events,
	}
}

func consoleChannel() (chan tea.Msg, func(vbruntime.Output)) {
	ch := make(chan tea.Msg, 1024)
	return ch, func(o vbruntime.Output) {
		// never blocks the dispatcher; output is dropped when the buffer is full
		select {
		case ch <- vmOutputMsg{out: o}:
		default:
		}
	}
}

func startSession(s *session) tea.Cmd {
	return func() tea.Msg {
		return vmStartedMsg{err: s.runEntry()}
	}
}

func waitVMEvent(events <-chan tea.Msg) tea.Cmd {
	if events == nil {
		return nil
	}
	return func() tea.Msg {
		select {
		case msg := <-events:
			return msg
		case <-time.After(20 * time.Millisecond):
			return vmPollMsg{}
		}
	}
}

func runCommand(s *session, line string) tea.Cmd {
	return func() tea.Msg {
		out, err := s.execCommand(context.Background(), line)
		return commandDoneMsg{line: line, out: out, err: err}
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, startSession(m.sess), waitVMEvent(m.events))
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		vh := msg.Height - 2
		if vh < 1 {
			vh = 1
		}
		m.viewport.Width = msg.Width
		m.viewport.Height = vh
		m.input.Width = msg.Width - len(m.input.Prompt) - 1
		m.ready = true
		m.rebuildContent()
		return m, nil

	case vmStartedMsg:
		m.busy = false
		if msg.err != nil {
			m.status = "main failed"
			m.appendLine(errStyle.Render(msg.err.Error()))
		} else {
			m.status = "ready"
		}
		return m, nil

	case vmOutputMsg:
		m.appendOutput(msg.out)
		return m, waitVMEvent(m.events)

	case vmPollMsg:
		return m, waitVMEvent(m.events)

	case commandDoneMsg:
		m.busy = false
		m.status = "ready"
		if errors.Is(msg.err, errQuit) {
			return m, tea.Quit
		}
		if msg.err != nil {
			m.status = "failed"
			m.appendLine(errStyle.Render(msg.err.Error()))
		}
		if msg.out != "" {
			for _, l := range strings.Split(msg.out, "\n") {
				m.appendLine(l)
			}
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			line := strings.TrimSpace(m.input.Value())
			if line == "" || m.busy {
				return m, nil
			}
			m.input.Reset()
			m.history = append(m.history, line)
			m.histPos = len(m.history)
			m.appendLine(echoStyle.Render("> " + line))
			m.busy = true
			m.status = "running " + line
			return m, runCommand(m.sess, line)
		case tea.KeyUp:
			if m.histPos > 0 {
				m.histPos--
				m.input.SetValue(m.history[m.histPos])
				m.input.CursorEnd()
			}
			return m, nil
		case tea.KeyDown:
			if m.histPos < len(m.history)-1 {
				m.histPos++
				m.input.SetValue(m.history[m.histPos])
				m.input.CursorEnd()
			} else {
				m.histPos = len(m.history)
				m.input.Reset()
			}
			return m, nil
		case tea.KeyPgUp, tea.KeyPgDown:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m model) View() string {
	if !m.ready {
		return "initializing..."
	}
	status := statusStyle.Render(m.title + " | " + m.status)
	return strings.Join([]string{m.viewport.View(), status, m.input.View()}, "\n")
}

func (m *model) appendOutput(out vbruntime.Output) {
	if out.Source == "MsgBox" {
		m.appendLine(boxStyle.Render("[MsgBox] ") + out.Text)
		return
	}
	m.appendLine(out.Text)
}

func (m *model) appendLine(s string) {
	m.lines = append(m.lines, s)
	m.rebuildContent()
}

func (m *model) rebuildContent() {
	content := strings.Join(m.lines, "\n")
	if content == "" {
		content = "(no output yet)"
	}
	m.viewport.SetContent(content)
	m.viewport.GotoBottom()
}
