package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"hotelqa/internal/domain"
)

// chunkMsg carries one streamed answer fragment.
type chunkMsg string

// answerMsg ends a question, successfully or not.
type answerMsg struct {
	question string
	answer   string
	err      error
}

// Model is the Bubble Tea model for the question-answering shell.
type Model struct {
	ctx      context.Context
	service  domain.QAService
	logger   *zap.Logger
	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	stream   chan tea.Msg
	question string
	answer   string
	err      error
	status   string
	busy     bool
	ready    bool
}

// New creates a new TUI model instance.
func New(ctx context.Context, service domain.QAService, logger *zap.Logger) Model {
	if logger == nil {
		logger = zap.NewNop()
	}
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Enter your question about hotels"
	ti.Focus()
	ti.CharLimit = 0
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return Model{
		ctx:      ctx,
		service:  service,
		logger:   logger.With(zap.String("component", "tui")),
		input:    ti,
		viewport: viewport.New(0, 0),
		spinner:  sp,
		status:   "Ask a question about hotels and get recommendations based on context.",
	}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key, stream and window events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, rh := resultBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 2 + 1 + qh + 1 // header, subtitle, status, spacer
		vh := msg.Height - reserved
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh-rh)
		m.viewport.SetContent(m.renderAnswer())
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		if msg.Type == tea.KeyEnter {
			q := strings.TrimSpace(m.input.Value())
			if q == "" || m.busy {
				return m, nil
			}
			return m.ask(q)
		}
	case chunkMsg:
		if msg == "" {
			return m, waitForStream(m.stream)
		}
		m.answer += string(msg)
		m.viewport.SetContent(m.renderAnswer())
		m.viewport.GotoBottom()
		return m, waitForStream(m.stream)
	case answerMsg:
		m.busy = false
		m.stream = nil
		if msg.err != nil {
			m.answer = ""
			m.err = msg.err
			m.status = "An error occurred while processing your request."
			m.logger.Error("query failed",
				zap.String("question", msg.question),
				zap.String("kind", domain.KindOf(msg.err).String()),
				zap.Error(msg.err))
		} else {
			m.answer = msg.answer
			m.status = "Response:"
		}
		m.viewport.SetContent(m.renderAnswer())
		return m, nil
	case spinner.TickMsg:
		if !m.busy {
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

// ask starts answering q. Fragments and the final result arrive as
// chunkMsg and answerMsg through m.stream.
func (m Model) ask(q string) (tea.Model, tea.Cmd) {
	m.busy = true
	m.question = q
	m.answer = ""
	m.err = nil
	m.status = "Processing your query..."
	m.stream = make(chan tea.Msg, 64)
	m.viewport.SetContent(m.renderAnswer())
	return m, tea.Batch(runQuery(m.ctx, m.service, q, m.stream), m.spinner.Tick)
}

func runQuery(ctx context.Context, svc domain.QAService, q string, out chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		go func() {
			defer close(out)
			answer, err := svc.Answer(ctx, q, func(s string) { out <- chunkMsg(s) })
			out <- answerMsg{question: q, answer: answer, err: err}
		}()
		return <-out
	}
}

func waitForStream(ch chan tea.Msg) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return nil
		}
		return msg
	}
}

// View renders the TUI layout and the current answer.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := titleStyle.Render("Hotel Recommendation System")
	input := queryBoxStyle.Render(m.input.View())
	status := m.status
	if m.busy {
		status = m.spinner.View() + " " + status
	}
	statusLine := statusStyle.Render(status)
	if m.err != nil {
		statusLine = errorStyle.Render(status)
	}
	results := resultBoxStyle.Render(m.viewport.View())
	return header + "\n" + subtitleStyle.Render("Ask a question about hotels and get recommendations based on context.") +
		"\n" + results + "\n" + input + "\n" + statusLine
}

func (m Model) renderAnswer() string {
	if m.err != nil {
		return renderError(m.err)
	}
	if m.question == "" {
		return "No question yet."
	}
	if m.answer == "" {
		return fmt.Sprintf("Q: %s\n\n...", m.question)
	}
	return fmt.Sprintf("Q: %s\n\n%s", m.question, m.answer)
}

// renderError lists the error kind followed by each layer of the chain.
func renderError(err error) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", errorStyle.Render("Error ("+domain.KindOf(err).String()+")"))
	for e := err; e != nil; e = unwrap(e) {
		fmt.Fprintf(&b, "- %s\n", e.Error())
	}
	return strings.TrimRight(b.String(), "\n")
}

func unwrap(err error) error {
	u, ok := err.(interface{ Unwrap() error })
	if !ok {
		return nil
	}
	return u.Unwrap()
}

var (
	resultBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	titleStyle     = lipgloss.NewStyle().Bold(true)
	subtitleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
)
