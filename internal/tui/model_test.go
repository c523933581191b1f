package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hotelqa/internal/domain"
)

type fakeService struct {
	AnswerFunc func(ctx context.Context, question string, onChunk func(string)) (string, error)
	questions  []string
}

func (f *fakeService) Answer(ctx context.Context, question string, onChunk func(string)) (string, error) {
	f.questions = append(f.questions, question)
	return f.AnswerFunc(ctx, question, onChunk)
}

func streaming(parts ...string) func(context.Context, string, func(string)) (string, error) {
	return func(_ context.Context, _ string, onChunk func(string)) (string, error) {
		var all string
		for _, p := range parts {
			onChunk(p)
			all += p
		}
		return all, nil
	}
}

func sized(m Model) Model {
	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	return next.(Model)
}

// drain runs cmd and feeds stream messages back into the model until the
// question finishes. Spinner ticks are dropped.
func drain(t *testing.T, m Model, cmd tea.Cmd) (Model, []string) {
	t.Helper()
	var chunks []string
	queue := []tea.Cmd{cmd}
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		if c == nil {
			continue
		}
		switch msg := c().(type) {
		case tea.BatchMsg:
			queue = append(queue, msg...)
		case chunkMsg:
			chunks = append(chunks, string(msg))
			next, nc := m.Update(msg)
			m = next.(Model)
			queue = append(queue, nc)
		case answerMsg:
			next, nc := m.Update(msg)
			m = next.(Model)
			queue = append(queue, nc)
		}
	}
	return m, chunks
}

func enter(t *testing.T, m Model, question string) (Model, tea.Cmd) {
	t.Helper()
	m.input.SetValue(question)
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	return next.(Model), cmd
}

func TestView_LoadingUntilSized(t *testing.T) {
	m := New(context.Background(), &fakeService{}, nil)
	assert.Equal(t, "Loading...", m.View())

	m = sized(m)
	view := m.View()
	assert.Contains(t, view, "Hotel Recommendation System")
	assert.Contains(t, view, "No question yet.")
}

func TestEnter_StreamsAnswer(t *testing.T) {
	svc := &fakeService{AnswerFunc: streaming("Guests ", "love ", "the view.")}
	m := sized(New(context.Background(), svc, nil))

	m, cmd := enter(t, m, "  What about the view?  ")
	require.NotNil(t, cmd)
	assert.True(t, m.busy)
	assert.Contains(t, m.View(), "Processing your query...")

	m, chunks := drain(t, m, cmd)
	assert.Equal(t, []string{"Guests ", "love ", "the view."}, chunks)
	assert.False(t, m.busy)
	assert.NoError(t, m.err)
	assert.Equal(t, "Guests love the view.", m.answer)
	assert.Equal(t, []string{"What about the view?"}, svc.questions)
	assert.Contains(t, m.View(), "Guests love the view.")
	assert.Contains(t, m.View(), "Response:")
}

func TestEnter_EmptyQuestionIgnored(t *testing.T) {
	svc := &fakeService{}
	m := sized(New(context.Background(), svc, nil))

	m, cmd := enter(t, m, "   ")
	assert.Nil(t, cmd)
	assert.False(t, m.busy)
	assert.Empty(t, svc.questions)
}

func TestEnter_IgnoredWhileBusy(t *testing.T) {
	m := sized(New(context.Background(), &fakeService{}, nil))
	m.busy = true

	_, cmd := enter(t, m, "second question")
	assert.Nil(t, cmd)
}

func TestError_DiscardsPartialAnswerAndRecovers(t *testing.T) {
	cause := domain.ExternalServiceError("complete", errors.New("quota exceeded"))
	fail := true
	svc := &fakeService{AnswerFunc: func(ctx context.Context, q string, onChunk func(string)) (string, error) {
		if fail {
			onChunk("Partial ")
			return "", cause
		}
		return streaming("Recovered.")(ctx, q, onChunk)
	}}
	m := sized(New(context.Background(), svc, nil))

	m, cmd := enter(t, m, "first")
	m, _ = drain(t, m, cmd)

	assert.False(t, m.busy)
	assert.Empty(t, m.answer)
	assert.Same(t, cause, m.err)
	view := m.View()
	assert.Contains(t, view, "An error occurred while processing your request.")
	assert.Contains(t, view, "external service")
	assert.Contains(t, view, "quota exceeded")
	assert.NotContains(t, view, "Partial")

	fail = false
	m, cmd = enter(t, m, "second")
	m, _ = drain(t, m, cmd)
	assert.NoError(t, m.err)
	assert.Equal(t, "Recovered.", m.answer)
	assert.Equal(t, []string{"first", "second"}, svc.questions)
}

func TestCtrlCQuits(t *testing.T) {
	m := New(context.Background(), &fakeService{}, nil)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestRenderError_ListsChain(t *testing.T) {
	err := domain.ConnectivityError("connect", errors.New("unambiguous timeout"))
	out := renderError(err)
	assert.Contains(t, out, "connectivity")
	assert.Contains(t, out, "- connectivity error: connect: unambiguous timeout")
	assert.Contains(t, out, "- unambiguous timeout")
}
