package tui

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ytai/internal/domain"
	"ytai/internal/service"
)

type fakePort struct {
	asked []string
	saved []string
	err   error
}

func (f *fakePort) Ask(_ context.Context, _ domain.Session, _ string, q string) (service.Answer, error) {
	f.asked = append(f.asked, q)
	if f.err != nil {
		return service.Answer{}, f.err
	}
	return service.Answer{
		Text: "Preheat the oven.",
		Sources: []domain.SearchResult{
			{ID: "1", Text: "Mix the dough. Preheat the oven to 250 degrees.", Score: 0.9},
			{ID: "2", Text: "Shape the loaf.", Score: 0.4},
		},
	}, nil
}

func (f *fakePort) SaveAnswer(_ context.Context, _ string, q, text string) (domain.LibraryEntry, error) {
	f.saved = append(f.saved, q+"="+text)
	return domain.LibraryEntry{Question: q, Text: text}, nil
}

func newModel(port ChatPort) Model {
	m := New(context.Background(), port, domain.Session{Model: "gpt-4o-mini"}, domain.Video{YouTubeID: "dQw4w9WgXcQ", Title: "Bread"}, "A video about bread.")
	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 30})
	return next.(Model)
}

func press(t *testing.T, m Model, key tea.KeyMsg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(key)
	return next.(Model), cmd
}

func TestAskAndSave(t *testing.T) {
	port := &fakePort{}
	m := newModel(port)
	assert.Contains(t, m.View(), "Bread")

	m.input.SetValue("  how hot is the oven?  ")
	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.True(t, m.busy)
	assert.Empty(t, m.input.Value())

	next, _ := m.Update(cmd())
	m = next.(Model)
	assert.False(t, m.busy)
	require.Len(t, m.turns, 1)
	assert.Equal(t, []string{"how hot is the oven?"}, port.asked)
	assert.Contains(t, m.renderConversation(), "Preheat the oven.")
	assert.Contains(t, m.status, "2 excerpts")

	m, cmd = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})
	require.NotNil(t, cmd)
	next, _ = m.Update(cmd())
	m = next.(Model)
	assert.Equal(t, []string{"how hot is the oven?=Preheat the oven."}, port.saved)
	assert.True(t, m.turns[0].saved)

	_, cmd = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})
	assert.Nil(t, cmd, "an answer is saved once")
}

func TestSourcesView(t *testing.T) {
	m := newModel(&fakePort{})
	m.input.SetValue("oven")
	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	next, _ := m.Update(cmd())
	m = next.(Model)

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.True(t, m.showSources)
	assert.Contains(t, m.renderSource(), "Source 1/2")

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 1, m.cursor)
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 0, m.cursor)
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, 1, m.cursor)
	assert.Contains(t, m.renderSource(), "Shape the loaf.")
}

func TestAskErrorShowsUserMessage(t *testing.T) {
	m := newModel(&fakePort{err: domain.ProviderErrorf("500 from upstream")})
	m.input.SetValue("why?")
	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	next, _ := m.Update(cmd())
	m = next.(Model)
	assert.Empty(t, m.turns)
	assert.NotContains(t, m.status, "upstream")
	assert.True(t, strings.HasPrefix(m.status, "Error: "))
}

func TestEmptyQuestionIsIgnored(t *testing.T) {
	m := newModel(&fakePort{})
	_, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
}

func TestHighlightBestSentenceKeepsText(t *testing.T) {
	out := highlightBestSentence("Mix the dough.  Preheat the oven.", "oven")
	assert.Contains(t, out, "Mix the dough.")
	assert.Contains(t, out, "Preheat the oven.")
	assert.Equal(t, "", highlightBestSentence("", "oven"))
	assert.Equal(t, 2, tokenOverlapScore(toTokenSet("the oven"), "Preheat the oven, the oven."))
}
