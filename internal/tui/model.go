package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"multirag/internal/domain"
)

// Port is the TUI-facing subset of the vector service.
type Port interface {
	Search(ctx context.Context, query string, topK int, target domain.Target) ([]domain.SearchHit, error)
	Answer(ctx context.Context, query string, topK int, target domain.Target) (domain.AnswerResult, error)
}

type mode int

const (
	modeSearch mode = iota
	modeAnswer
)

func (m mode) String() string {
	if m == modeAnswer {
		return "answer"
	}
	return "search"
}

// resultMsg carries the outcome of a query run off the update loop.
type resultMsg struct {
	query  string
	mode   mode
	hits   []domain.SearchHit
	answer string
	err    error
}

// Model is the Bubble Tea model for the TUI application.
type Model struct {
	service   Port
	target    domain.Target
	topK      int
	mode      mode
	input     textinput.Model
	viewport  viewport.Model
	results   []domain.SearchHit
	answer    string
	status    string
	cursor    int
	ready     bool
	busy      bool
	lastQuery string
}

// New creates a new TUI model instance.
func New(service Port, target domain.Target, topK int) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Type query and press Enter (tab: search/answer)"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	if topK <= 0 {
		topK = 10
	}
	return Model{
		service:  service,
		target:   target,
		topK:     topK,
		input:    ti,
		viewport: vp,
		status:   "Ready. Type to search.",
	}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

func (m Model) runQuery(q string) tea.Cmd {
	svc, target, topK, md := m.service, m.target, m.topK, m.mode
	return func() tea.Msg {
		ctx := context.Background()
		if md == modeAnswer {
			res, err := svc.Answer(ctx, q, topK, target)
			return resultMsg{query: q, mode: md, hits: res.Sources, answer: res.Answer, err: err}
		}
		hits, err := svc.Search(ctx, q, topK, target)
		return resultMsg{query: q, mode: md, hits: hits, err: err}
	}
}

// Update handles key and window events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		// account for frames around result and query boxes
		_, rh := resultBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 2 + 1 + qh + 1 // header + mode line, status, spacer
		vh := msg.Height - reserved
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh-rh)
		m.viewport.SetContent(m.renderCurrentResult())
		return m, nil
	case resultMsg:
		m.busy = false
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
			m.results = nil
			m.answer = ""
		} else {
			m.results = msg.hits
			m.answer = msg.answer
			m.cursor = 0
			m.lastQuery = msg.query
			m.status = fmt.Sprintf("%d results for %q", len(msg.hits), msg.query)
		}
		m.viewport.SetContent(m.renderCurrentResult())
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q != "" && !m.busy {
				m.busy = true
				m.status = fmt.Sprintf("Running %s for %q...", m.mode, q)
				return m, m.runQuery(q)
			}
		case "tab":
			if m.mode == modeSearch {
				m.mode = modeAnswer
			} else {
				m.mode = modeSearch
			}
			m.status = "Mode: " + m.mode.String()
			return m, nil
		case "down":
			if len(m.results) > 0 {
				m.cursor = (m.cursor + 1) % len(m.results)
				m.viewport.SetContent(m.renderCurrentResult())
				return m, nil
			}
		case "up":
			if len(m.results) > 0 {
				m.cursor = (m.cursor - 1 + len(m.results)) % len(m.results)
				m.viewport.SetContent(m.renderCurrentResult())
				return m, nil
			}
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the TUI layout and current result.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("MultiRAG")
	modeLine := dimStyle.Render(fmt.Sprintf("mode: %s  target: %s  top-k: %d", m.mode, m.target, m.topK))
	input := queryBoxStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)
	results := resultBoxStyle.Render(m.viewport.View())
	return header + "\n" + modeLine + "\n" + results + "\n" + input + "\n" + status
}

func (m Model) renderCurrentResult() string {
	var b strings.Builder
	if m.answer != "" {
		b.WriteString(answerStyle.Render("Answer: "+m.answer) + "\n\n")
	}
	if len(m.results) == 0 {
		if b.Len() == 0 {
			return "No results yet."
		}
		return strings.TrimRight(b.String(), "\n")
	}
	h := m.results[m.cursor]
	title := fmt.Sprintf("Result %d/%d  score=%.3f  backend=%s", m.cursor+1, len(m.results), h.Score, h.Backend)
	if src, ok := h.Metadata["source"]; ok {
		title += fmt.Sprintf("  source=%v", src)
	}
	b.WriteString(title + "\n\n")
	b.WriteString(highlightBestSentence(h.Content, m.lastQuery))
	return b.String()
}

var (
	resultBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	answerStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
)
