package service

import (
	"context"
	"strings"

	"hotelqa/internal/domain"
)

// fakeEmbedder maps text onto a small keyword space unless EmbedFunc is set.
type fakeEmbedder struct {
	EmbedFunc func(ctx context.Context, text string) ([]float32, error)
	calls     int
}

var keywords = []string{"view", "ocean", "staff", "breakfast", "parking"}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	if f.EmbedFunc != nil {
		return f.EmbedFunc(ctx, text)
	}
	lower := strings.ToLower(text)
	vec := make([]float32, len(keywords))
	for i, k := range keywords {
		if strings.Contains(lower, k) {
			vec[i] = 1
		}
	}
	return vec, nil
}

type fakeStore struct {
	SearchFunc func(ctx context.Context, vec []float32, topK int) ([]domain.SearchResult, error)
	searches   int
	lastTopK   int
}

func (f *fakeStore) Upsert(context.Context, []domain.Chunk, [][]float32) error { return nil }

func (f *fakeStore) Search(ctx context.Context, vec []float32, topK int) ([]domain.SearchResult, error) {
	f.searches++
	f.lastTopK = topK
	return f.SearchFunc(ctx, vec, topK)
}

// fakeCompleter records prompts and streams its answer word by word.
type fakeCompleter struct {
	CompleteFunc func(ctx context.Context, prompt string, onChunk func(string)) (string, error)
	prompts      []string
}

func (f *fakeCompleter) Complete(ctx context.Context, prompt string, onChunk func(string)) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.CompleteFunc != nil {
		return f.CompleteFunc(ctx, prompt, onChunk)
	}
	answer := "Guests praise the view."
	if onChunk != nil {
		for _, w := range strings.SplitAfter(answer, " ") {
			onChunk(w)
		}
	}
	return answer, nil
}
