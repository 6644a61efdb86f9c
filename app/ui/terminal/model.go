package terminal

import (
	"strconv"
	"strings"

	"moviemate/app/service/conversation"
	"moviemate/app/service/flow"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

const (
	defaultWidth = 80
	maxInputLen  = 4096
)

var (
	botStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	userStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
	optionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

// ViewMsg delivers a conversation view to the program.
type ViewMsg struct {
	View conversation.View
}

// ClosedMsg tells the program the conversation is over.
type ClosedMsg struct{}

// SubmitFunc hands user input to the conversation. It may block until the
// reply arrives; views are delivered separately as ViewMsg.
type SubmitFunc func(text string)

type Model struct {
	submit   SubmitFunc
	input    textinput.Model
	spinner  spinner.Model
	renderer *glamour.TermRenderer

	view   conversation.View
	lines  []string
	width  int
	closed bool
}

func New(submit SubmitFunc) Model {
	renderer, _ := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(defaultWidth),
	)

	return newModel(submit, renderer)
}

func newModel(submit SubmitFunc, renderer *glamour.TermRenderer) Model {
	ti := textinput.New()
	ti.Placeholder = "Ask about movies... (Enter to send, a number picks a suggestion, Ctrl+C to exit)"
	ti.Focus()
	ti.Prompt = "> "
	ti.CharLimit = maxInputLen
	ti.Width = defaultWidth

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		submit:   submit,
		input:    ti,
		spinner:  sp,
		renderer: renderer,
		width:    defaultWidth,
	}
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.closed = true
			return m, tea.Quit
		case tea.KeyEnter:
			return m.send()
		}

	case tea.WindowSizeMsg:
		if msg.Width > 0 {
			m.width = msg.Width
			m.input.Width = max(msg.Width-4, 10)
			if m.renderer != nil {
				m.renderer, _ = glamour.NewTermRenderer(
					glamour.WithAutoStyle(),
					glamour.WithWordWrap(max(msg.Width-4, 20)),
				)
			}
		}
		return m, nil

	case ViewMsg:
		return m.show(msg.View)

	case ClosedMsg:
		m.closed = true
		return m, tea.Quit

	case spinner.TickMsg:
		if !m.view.Loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) send() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if text == "" || m.closed {
		return m, nil
	}

	text = m.resolveOption(text)
	m.input.Reset()
	m.lines = append(m.lines, userStyle.Render("you:")+" "+text)

	submit := m.submit
	return m, func() tea.Msg {
		if submit != nil {
			submit(text)
		}
		return nil
	}
}

// resolveOption maps a suggestion number to its text.
func (m Model) resolveOption(text string) string {
	n, err := strconv.Atoi(text)
	if err != nil || n < 1 || n > len(m.view.Options) {
		return text
	}
	return m.view.Options[n-1]
}

func (m Model) show(view conversation.View) (tea.Model, tea.Cmd) {
	wasLoading := m.view.Loading
	m.view = view

	switch view.State {
	case flow.StateStart, flow.StateEnd:
		m.lines = append(m.lines, botStyle.Render("bot:")+" "+view.Message)
	case flow.StateReply:
		m.lines = append(m.lines, botStyle.Render("bot:")+" "+m.renderAnswer(view.Answer))
		if chart := RenderChart(view.Chart); chart != "" {
			m.lines = append(m.lines, chart)
		}
	}

	if view.Loading && !wasLoading {
		return m, m.spinner.Tick
	}

	return m, nil
}

func (m Model) renderAnswer(answer string) string {
	if m.renderer == nil {
		return answer
	}

	rendered, err := m.renderer.Render(answer)
	if err != nil {
		return answer
	}

	return strings.TrimSpace(rendered)
}

func (m Model) View() string {
	var sb strings.Builder

	for _, line := range m.lines {
		sb.WriteString(line)
		sb.WriteString("\n")
	}

	if m.view.Loading {
		sb.WriteString(m.spinner.View() + " Thinking...\n")
	}

	if len(m.view.Options) > 0 {
		sb.WriteString("\n")
		for i, option := range m.view.Options {
			sb.WriteString(optionStyle.Render(strconv.Itoa(i+1) + ". " + option))
			sb.WriteString("\n")
		}
	}

	if m.closed {
		return sb.String()
	}

	sb.WriteString("\n")
	sb.WriteString(m.input.View())
	sb.WriteString("\n")

	return sb.String()
}
