package tui

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"docqa/internal/domain"
)

// ChatPort is the TUI-facing subset of the application.
type ChatPort interface {
	Ask(ctx context.Context, sessionID, question string) (*domain.Turn, error)
	UploadFile(ctx context.Context, sessionID, path string) (*domain.Info, error)
	SetLanguage(sessionID, code string) (string, error)
	Clear(sessionID string) error
}

type answerMsg struct {
	turn *domain.Turn
	err  error
}

type uploadMsg struct {
	path string
	info *domain.Info
	err  error
}

// Model is the Bubble Tea model for the chat screen.
type Model struct {
	ctx        context.Context
	service    ChatPort
	sessionID  string
	input      textinput.Model
	viewport   viewport.Model
	transcript []string
	document   string
	language   string
	status     string
	busy       bool
	ready      bool
}

// New creates a chat model bound to one session. language is the session's
// current response language.
func New(ctx context.Context, service ChatPort, sessionID, language string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question, or /upload <path>"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{
		ctx:       ctx,
		service:   service,
		sessionID: sessionID,
		input:     ti,
		viewport:  vp,
		language:  language,
		status:    "No document loaded. Use /upload <path>.",
	}
}

func (m Model) Init() tea.Cmd { return textinput.Blink }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, th := transcriptBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 2 + 1 + qh + 1 // header, document line, status, spacer
		vh := msg.Height - reserved
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh-th)
		m.refresh()
		return m, nil

	case answerMsg:
		m.busy = false
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
			m.transcript = append(m.transcript, errorStyle.Render("✗ "+msg.err.Error()))
		} else {
			m.status = "Ready."
			m.transcript = append(m.transcript, renderTurn(msg.turn))
		}
		m.refresh()
		return m, nil

	case uploadMsg:
		m.busy = false
		if msg.err != nil {
			m.status = fmt.Sprintf("Upload of %s failed: %v", msg.path, msg.err)
		} else {
			m.document = fmt.Sprintf("%s · %s · %d page(s) · %d chunks",
				msg.info.FileName, msg.info.Language, msg.info.Pages, msg.info.Chunks)
			m.status = "Document ready. Ask away."
			m.transcript = nil
		}
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			line := strings.TrimSpace(m.input.Value())
			if line == "" {
				return m, nil
			}
			if m.busy {
				m.status = "Still working on the previous request..."
				return m, nil
			}
			m.input.SetValue("")
			return m.submit(line)
		case "pgup", "pgdown":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) submit(line string) (tea.Model, tea.Cmd) {
	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "/upload":
		if arg == "" {
			m.status = "Usage: /upload <path>"
			return m, nil
		}
		return m.upload(arg)
	case "/lang":
		lang, err := m.service.SetLanguage(m.sessionID, arg)
		if err != nil {
			m.status = "Error: " + err.Error()
			return m, nil
		}
		m.language = lang
		m.status = "Answers will be in " + lang
		return m, nil
	case "/clear":
		if err := m.service.Clear(m.sessionID); err != nil {
			m.status = "Error: " + err.Error()
			return m, nil
		}
		m.document = ""
		m.transcript = nil
		m.status = "Document cleared."
		m.refresh()
		return m, nil
	}

	if info, err := os.Stat(line); err == nil && !info.IsDir() {
		return m.upload(line)
	}

	m.busy = true
	m.status = "Thinking..."
	m.transcript = append(m.transcript, questionStyle.Render("You: "+line))
	m.refresh()
	ctx, service, id := m.ctx, m.service, m.sessionID
	return m, func() tea.Msg {
		turn, err := service.Ask(ctx, id, line)
		return answerMsg{turn: turn, err: err}
	}
}

func (m Model) upload(path string) (tea.Model, tea.Cmd) {
	m.busy = true
	m.status = "Processing " + path + "..."
	ctx, service, id := m.ctx, m.service, m.sessionID
	return m, func() tea.Msg {
		info, err := service.UploadFile(ctx, id, path)
		return uploadMsg{path: path, info: info, err: err}
	}
}

func (m *Model) refresh() {
	if len(m.transcript) == 0 {
		m.viewport.SetContent("No questions yet.")
		return
	}
	m.viewport.SetContent(strings.Join(m.transcript, "\n\n"))
	m.viewport.GotoBottom()
}

func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("Document Q&A") +
		lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render("  answers in "+m.language)
	doc := m.document
	if doc == "" {
		doc = "no document"
	}
	docLine := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(doc)
	transcript := transcriptBoxStyle.Render(m.viewport.View())
	input := queryBoxStyle.Render(m.input.View())
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.status)
	return header + "\n" + docLine + "\n" + transcript + "\n" + input + "\n" + status
}

func renderTurn(t *domain.Turn) string {
	var sb strings.Builder
	if t.NoContext {
		sb.WriteString(noContextStyle.Render(t.Answer))
	} else {
		sb.WriteString(t.Answer)
	}
	for _, w := range t.Warnings {
		sb.WriteString("\n" + warningStyle.Render("! "+w))
	}
	for i, src := range t.Sources {
		loc := fmt.Sprintf("[%d] chunk %d, %.2f", i+1, src.ChunkIndex, src.Similarity)
		if src.Page > 0 {
			loc += fmt.Sprintf(", page %d", src.Page)
		}
		if src.Section != "" {
			loc += ", " + src.Section
		}
		sb.WriteString("\n" + sourceStyle.Render(loc))
		if i == 0 {
			sb.WriteString("\n  " + highlightBestSentence(strings.ReplaceAll(src.Preview, "\n", " "), t.Answer))
		}
	}
	return sb.String()
}

var (
	transcriptBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	questionStyle      = lipgloss.NewStyle().Bold(true)
	highlightStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	sourceStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	warningStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	noContextStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Italic(true)
	errorStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	wordRe             = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)
	sentenceRe         = regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?])`)
)

// highlightBestSentence marks the sentence of text sharing the most words with ref.
func highlightBestSentence(text, ref string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	sentences := sentenceRe.FindAllString(text, -1)
	if len(sentences) == 0 {
		sentences = []string{strings.TrimSpace(text)}
	}
	refTokens := tokenSet(ref)
	if len(refTokens) == 0 {
		return strings.Join(sentences, " ")
	}
	best, bestScore := 0, -1
	for i, s := range sentences {
		if score := overlap(refTokens, s); score > bestScore {
			best, bestScore = i, score
		}
	}
	for i := range sentences {
		sent := strings.TrimSpace(sentences[i])
		if i == best {
			sentences[i] = highlightStyle.Render(sent)
		} else {
			sentences[i] = sent
		}
	}
	return strings.Join(sentences, " ")
}

func tokenSet(s string) map[string]struct{} {
	tokens := wordRe.FindAllString(strings.ToLower(s), -1)
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}

func overlap(ref map[string]struct{}, sentence string) int {
	score := 0
	seen := make(map[string]struct{})
	for _, t := range wordRe.FindAllString(strings.ToLower(sentence), -1) {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		if _, ok := ref[t]; ok {
			score++
		}
	}
	return score
}
