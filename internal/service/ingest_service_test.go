package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hotelqa/internal/chunker"
	"hotelqa/internal/vectorstore/memory"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestIngestFiles_StoresChunks(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "Great ocean view. Friendly staff. Quiet room.")
	writeFile(t, dir, "b.txt", "Breakfast was cold.")
	writeFile(t, dir, "notes.md", "ignored")

	st := memory.NewStorage()
	emb := &fakeEmbedder{}
	in := NewIngester(chunker.NewSentenceChunker(2, 1), emb, st, 0, nil)

	report, err := in.IngestFiles(context.Background(), []string{filepath.Join(dir, "*")})
	require.NoError(t, err)
	assert.Equal(t, IngestReport{Documents: 2, Chunks: 3}, report)
	assert.Equal(t, 3, st.Len())
	assert.Equal(t, 3, emb.calls)

	svc := NewQAService(emb, st, &fakeCompleter{}, 1, nil)
	snippets, err := svc.Retrieve(context.Background(), "Is breakfast good?")
	require.NoError(t, err)
	assert.Equal(t, []string{"Breakfast was cold."}, snippets)
}

func TestIngestFiles_Reingest(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "a.txt", "Great ocean view.")
	st := memory.NewStorage()
	in := NewIngester(chunker.NewSentenceChunker(5, 1), &fakeEmbedder{}, st, 100, nil)

	for i := 0; i < 2; i++ {
		_, err := in.IngestFiles(context.Background(), []string{p})
		require.NoError(t, err)
	}
	assert.Equal(t, 1, st.Len())
}

func TestIngestFiles_NoDocuments(t *testing.T) {
	in := NewIngester(chunker.NewSentenceChunker(5, 1), &fakeEmbedder{}, memory.NewStorage(), 0, nil)
	_, err := in.IngestFiles(context.Background(), []string{filepath.Join(t.TempDir(), "*.txt")})
	assert.EqualError(t, err, "no .txt documents found")
}

func TestIngestFiles_UnmatchedPatternSkipped(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "a.txt", "Great ocean view.")
	st := memory.NewStorage()
	in := NewIngester(chunker.NewSentenceChunker(5, 1), &fakeEmbedder{}, st, 0, nil)

	report, err := in.IngestFiles(context.Background(), []string{filepath.Join(dir, "reviews-*.txt"), p})
	require.NoError(t, err)
	assert.Equal(t, IngestReport{Documents: 1, Chunks: 1}, report)

	_, err = in.IngestFiles(context.Background(), []string{filepath.Join(dir, "reviews-*.txt")})
	assert.EqualError(t, err, "no .txt documents found")
}

func TestIngestFiles_MissingFile(t *testing.T) {
	in := NewIngester(chunker.NewSentenceChunker(5, 1), &fakeEmbedder{}, memory.NewStorage(), 0, nil)
	_, err := in.IngestFiles(context.Background(), []string{filepath.Join(t.TempDir(), "missing.txt")})
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestIngestFiles_BadPattern(t *testing.T) {
	in := NewIngester(chunker.NewSentenceChunker(5, 1), &fakeEmbedder{}, memory.NewStorage(), 0, nil)
	_, err := in.IngestFiles(context.Background(), []string{"reviews-[.txt"})
	assert.ErrorIs(t, err, filepath.ErrBadPattern)
}

func TestIngestFiles_EmbedError(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "a.txt", "Great ocean view.")
	cause := errors.New("rate limited")
	emb := &fakeEmbedder{EmbedFunc: func(context.Context, string) ([]float32, error) { return nil, cause }}
	st := memory.NewStorage()
	in := NewIngester(chunker.NewSentenceChunker(5, 1), emb, st, 0, nil)

	report, err := in.IngestFiles(context.Background(), []string{p})
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, IngestReport{}, report)
	assert.Equal(t, 0, st.Len())
}

func TestIngestFiles_CanceledContext(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "a.txt", "Great ocean view.")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	in := NewIngester(chunker.NewSentenceChunker(5, 1), &fakeEmbedder{}, memory.NewStorage(), 1, nil)
	_, err := in.IngestFiles(ctx, []string{p})
	assert.Error(t, err)
}
