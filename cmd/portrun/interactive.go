package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/port-runtime/engine"
	"github.com/wippyai/port-runtime/port"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	sentStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	receivedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

const historyLimit = 16

// interactiveModel drives a two-context echo session: whatever is typed
// is posted from the console context to the echo context, which posts it
// straight back.
type interactiveModel struct {
	consoleCtx *engine.Context
	echoCtx    *engine.Context
	sender     *port.Port
	echo       *port.Port

	replies chan any
	input   textinput.Model
	history []string
	sent    int
	err     error
}

type replyMsg struct {
	value any
}

func newInteractiveModel() *interactiveModel {
	consoleCtx := engine.NewContext("console")
	echoCtx := engine.NewContext("echo")
	go consoleCtx.Run()
	go echoCtx.Run()

	sender, echo := port.Pair(consoleCtx, echoCtx)

	m := &interactiveModel{
		consoleCtx: consoleCtx,
		echoCtx:    echoCtx,
		sender:     sender,
		echo:       echo,
		replies:    make(chan any, historyLimit),
	}

	// The echo side bounces every value back over the same channel; the
	// console side feeds deliveries into the TUI.
	echo.SetOnMessage(func(value any) {
		_ = echo.PostMessage(value, nil)
	})
	echo.Start()
	sender.SetOnMessage(func(value any) {
		m.replies <- value
	})
	sender.Start()

	ti := textinput.New()
	ti.Placeholder = "payload"
	ti.Prompt = "> "
	ti.Width = 48
	ti.Focus()
	m.input = ti
	return m
}

func (m *interactiveModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.waitForReply)
}

func (m *interactiveModel) waitForReply() tea.Msg {
	return replyMsg{value: <-m.replies}
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.sender.Close()
			m.echo.Close()
			m.consoleCtx.Close()
			m.echoCtx.Close()
			return m, tea.Quit

		case "enter":
			text := m.input.Value()
			if text == "" {
				return m, nil
			}
			m.input.SetValue("")
			value := map[string]any{"seq": m.sent, "data": text}
			m.sent++
			if err := m.sender.PostMessage(value, nil); err != nil {
				m.err = err
				return m, nil
			}
			m.err = nil
			m.appendHistory(sentStyle.Render(fmt.Sprintf("sent     %v", value)))
			return m, nil
		}

	case replyMsg:
		m.appendHistory(receivedStyle.Render(fmt.Sprintf("received %v", msg.value)))
		return m, m.waitForReply
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *interactiveModel) appendHistory(line string) {
	m.history = append(m.history, line)
	if len(m.history) > historyLimit {
		m.history = m.history[len(m.history)-historyLimit:]
	}
}

func (m *interactiveModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Port Echo"))
	b.WriteString(" console <-> echo\n\n")

	for _, line := range m.history {
		b.WriteString(line)
		b.WriteString("\n")
	}
	if len(m.history) > 0 {
		b.WriteString("\n")
	}

	b.WriteString(m.input.View())
	b.WriteString("\n\n")
	if m.err != nil {
		b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		b.WriteString("\n")
	}
	b.WriteString(helpStyle.Render("enter send • esc quit"))
	return b.String()
}

func runInteractive() error {
	p := tea.NewProgram(newInteractiveModel(), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
