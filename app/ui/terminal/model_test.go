package terminal

import (
	"testing"

	"moviemate/app/service/conversation"
	"moviemate/app/service/flow"
	"moviemate/app/service/interpret"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startView() conversation.View {
	return conversation.View{
		ConversationID: "c",
		State:          flow.StateStart,
		Message:        "Hi, How can I assist you today?",
		Options:        []string{"Top movies", "Best directors"},
	}
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()

	next, cmd := m.Update(msg)
	result, ok := next.(Model)
	require.True(t, ok)

	return result, cmd
}

func TestShowStartView(t *testing.T) {
	m := newModel(nil, nil)

	m, cmd := update(t, m, ViewMsg{View: startView()})
	assert.Nil(t, cmd)

	out := m.View()
	assert.Contains(t, out, "Hi, How can I assist you today?")
	assert.Contains(t, out, "1. Top movies")
	assert.Contains(t, out, "2. Best directors")
}

func TestEnterSubmitsSuggestionByNumber(t *testing.T) {
	var submitted []string
	m := newModel(func(text string) { submitted = append(submitted, text) }, nil)

	m, _ = update(t, m, ViewMsg{View: startView()})
	m.input.SetValue("2")

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Nil(t, cmd())

	assert.Equal(t, []string{"Best directors"}, submitted)
	assert.Empty(t, m.input.Value())
	assert.Contains(t, m.View(), "you: Best directors")
}

func TestEnterPassesFreeText(t *testing.T) {
	var submitted []string
	m := newModel(func(text string) { submitted = append(submitted, text) }, nil)

	m, _ = update(t, m, ViewMsg{View: startView()})

	for _, text := range []string{"7", "  top rated  "} {
		m.input.SetValue(text)
		var cmd tea.Cmd
		m, cmd = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
		require.NotNil(t, cmd)
		cmd()
	}

	assert.Equal(t, []string{"7", "top rated"}, submitted)
}

func TestEnterIgnoresBlankInput(t *testing.T) {
	called := false
	m := newModel(func(string) { called = true }, nil)

	m.input.SetValue("   ")
	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	assert.Nil(t, cmd)
	assert.False(t, called)
}

func TestLoadingStartsSpinner(t *testing.T) {
	m := newModel(nil, nil)

	m, cmd := update(t, m, ViewMsg{View: conversation.View{State: flow.StateLoop, Loading: true, Options: []string{}}})
	assert.NotNil(t, cmd)
	assert.Contains(t, m.View(), "Thinking...")

	m, _ = update(t, m, ViewMsg{View: conversation.View{State: flow.StateReply, Answer: "Inception"}})
	assert.NotContains(t, m.View(), "Thinking...")
	assert.Contains(t, m.View(), "bot: Inception")
}

func TestReplyRendersChart(t *testing.T) {
	m := newModel(nil, nil)

	m, _ = update(t, m, ViewMsg{View: conversation.View{
		State:  flow.StateReply,
		Answer: "Ratings",
		Chart: &interpret.Chart{
			Series: map[string]any{"type": "bar", "x": []any{"Heat"}, "y": []any{8.3}},
			Layout: map[string]any{"title": "IMDB"},
		},
	}})

	out := m.View()
	assert.Contains(t, out, "IMDB")
	assert.Contains(t, out, "Heat")
	assert.Contains(t, out, "8.30")
}

func TestClosedQuits(t *testing.T) {
	m := newModel(nil, nil)

	m, cmd := update(t, m, ClosedMsg{})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.True(t, m.closed)

	m.input.SetValue("hello")
	_, cmd = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
}

func TestCtrlCQuits(t *testing.T) {
	m := newModel(nil, nil)

	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}
