package tui

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"ytai/internal/domain"
	"ytai/internal/service"
)

// ChatPort is the TUI-facing subset of the application service.
type ChatPort interface {
	Ask(ctx context.Context, sess domain.Session, ytID, question string) (service.Answer, error)
	SaveAnswer(ctx context.Context, ytID, question, text string) (domain.LibraryEntry, error)
}

type turn struct {
	question string
	answer   string
	sources  []domain.SearchResult
	saved    bool
}

type answerMsg struct {
	question string
	answer   service.Answer
	err      error
}

type savedMsg struct{ err error }

// Model is the Bubble Tea model of the question-answering chat over one video.
type Model struct {
	ctx      context.Context
	service  ChatPort
	session  domain.Session
	video    domain.Video
	intro    string
	input    textinput.Model
	viewport viewport.Model
	turns    []turn
	status   string
	// showSources switches the viewport from the conversation to the excerpts of the last answer.
	showSources bool
	cursor      int
	busy        bool
	ready       bool
}

// New creates a chat model for video. intro is shown under the title, typically highlights.
func New(ctx context.Context, svc ChatPort, sess domain.Session, video domain.Video, intro string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question or provide a topic covered in the video"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{
		ctx:      ctx,
		service:  svc,
		session:  sess,
		video:    video,
		intro:    intro,
		input:    ti,
		viewport: vp,
		status:   "Enter to ask. Tab toggles sources. Ctrl+S saves the last answer.",
	}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

func (m Model) ask(q string) tea.Cmd {
	return func() tea.Msg {
		ans, err := m.service.Ask(m.ctx, m.session, m.video.YouTubeID, q)
		return answerMsg{question: q, answer: ans, err: err}
	}
}

func (m Model) save(t turn) tea.Cmd {
	return func() tea.Msg {
		_, err := m.service.SaveAnswer(m.ctx, m.video.YouTubeID, t.question, t.answer)
		return savedMsg{err: err}
	}
}

// Update handles key, window and result events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, rh := resultBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 2 + 1 + qh + 1 // header and intro, status, spacer
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, msg.Height-reserved-rh)
		m.refresh()
		return m, nil
	case answerMsg:
		m.busy = false
		if msg.err != nil {
			m.status = "Error: " + service.UserMessage(msg.err)
			return m, nil
		}
		m.turns = append(m.turns, turn{question: msg.question, answer: msg.answer.Text, sources: msg.answer.Sources})
		m.cursor = 0
		m.status = fmt.Sprintf("Answered from %d excerpts.", len(msg.answer.Sources))
		m.refresh()
		m.viewport.GotoBottom()
		return m, nil
	case savedMsg:
		if msg.err != nil {
			m.status = "Error: " + service.UserMessage(msg.err)
			return m, nil
		}
		m.turns[len(m.turns)-1].saved = true
		m.status = "Answer saved to the library."
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q == "" || m.busy {
				return m, nil
			}
			m.busy = true
			m.showSources = false
			m.input.SetValue("")
			m.status = "Generating answer..."
			return m, m.ask(q)
		case "ctrl+s":
			if len(m.turns) == 0 {
				return m, nil
			}
			last := m.turns[len(m.turns)-1]
			if last.saved {
				m.status = "Already saved."
				return m, nil
			}
			return m, m.save(last)
		case "pgup":
			m.viewport.ViewUp()
			return m, nil
		case "pgdown":
			m.viewport.ViewDown()
			return m, nil
		case "tab":
			if len(m.turns) > 0 {
				m.showSources = !m.showSources
				m.refresh()
			}
			return m, nil
		case "down":
			if m.showSources {
				if n := len(m.lastTurn().sources); n > 0 {
					m.cursor = (m.cursor + 1) % n
					m.refresh()
				}
				return m, nil
			}
		case "up":
			if m.showSources {
				if n := len(m.lastTurn().sources); n > 0 {
					m.cursor = (m.cursor - 1 + n) % n
					m.refresh()
				}
				return m, nil
			}
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the TUI layout.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render(m.video.Title)
	intro := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(m.intro)
	input := queryBoxStyle.Render(m.input.View())
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.status)
	body := resultBoxStyle.Render(m.viewport.View())
	return header + "\n" + intro + "\n" + body + "\n" + input + "\n" + status
}

func (m Model) lastTurn() turn {
	if len(m.turns) == 0 {
		return turn{}
	}
	return m.turns[len(m.turns)-1]
}

func (m *Model) refresh() {
	if m.showSources {
		m.viewport.SetContent(m.renderSource())
		return
	}
	m.viewport.SetContent(m.renderConversation())
}

func (m Model) renderConversation() string {
	if len(m.turns) == 0 {
		return "No questions yet."
	}
	var b strings.Builder
	for i, t := range m.turns {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(questionStyle.Render("You: " + t.question))
		b.WriteString("\n\n")
		b.WriteString(t.answer)
	}
	return b.String()
}

func (m Model) renderSource() string {
	t := m.lastTurn()
	if len(t.sources) == 0 {
		return "The last answer has no sources."
	}
	r := t.sources[m.cursor]
	title := fmt.Sprintf("Source %d/%d  score=%.3f", m.cursor+1, len(t.sources), r.Score)
	return title + "\n\n" + highlightBestSentence(r.Text, t.question)
}

var (
	resultBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	questionStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	highlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	unicodeWordRe  = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)
	sentenceRe     = regexp.MustCompile(`[^.!?\n]+[.!?]*`)
)

// highlightBestSentence marks the sentence of text sharing the most words with query.
func highlightBestSentence(text, query string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	sentences := sentenceRe.FindAllString(text, -1)
	if len(sentences) == 0 {
		sentences = []string{strings.TrimSpace(text)}
	}
	qTokens := toTokenSet(query)
	best, bestScore := 0, -1
	for i, s := range sentences {
		if score := tokenOverlapScore(qTokens, s); score > bestScore {
			best, bestScore = i, score
		}
	}
	for i := range sentences {
		sent := strings.TrimSpace(sentences[i])
		if i == best && bestScore > 0 {
			sent = highlightStyle.Render(sent)
		}
		sentences[i] = sent
	}
	return strings.Join(sentences, " ")
}

func toTokenSet(s string) map[string]struct{} {
	tokens := unicodeWordRe.FindAllString(strings.ToLower(s), -1)
	m := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		m[t] = struct{}{}
	}
	return m
}

func tokenOverlapScore(queryTokens map[string]struct{}, sentence string) int {
	score := 0
	seen := make(map[string]struct{})
	for _, t := range unicodeWordRe.FindAllString(strings.ToLower(sentence), -1) {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		if _, ok := queryTokens[t]; ok {
			score++
		}
	}
	return score
}
