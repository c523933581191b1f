package domain

import "context"

// Document represents a single review text file loaded for ingestion.
type Document struct {
	ID      string
	Path    string
	Content string
}

// Chunk is a part of a document stored as one searchable review snippet.
type Chunk struct {
	DocumentID string
	ChunkID    string
	Source     string
	Text       string
	Index      int
}

// SearchResult is a stored snippet returned by a similarity search.
type SearchResult struct {
	ID    string
	Text  string
	Score float64
}

// Embedder converts free text into a fixed-length vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Chunker splits documents into chunks suitable for indexing.
type Chunker interface {
	Chunk(document Document) ([]Chunk, error)
}

// VectorStore stores embedded snippets and answers similarity searches.
// Search results keep the order chosen by the store.
type VectorStore interface {
	Upsert(ctx context.Context, chunks []Chunk, vectors [][]float32) error
	Search(ctx context.Context, vector []float32, topK int) ([]SearchResult, error)
}

// Completer sends a prompt to a language model. onChunk, when non-nil,
// receives answer fragments as they arrive.
type Completer interface {
	Complete(ctx context.Context, prompt string, onChunk func(string)) (string, error)
}

// DefaultTopK is how many snippets are retrieved when no count is given.
const DefaultTopK = 4

// QAService is what the interaction shells need from the application core.
type QAService interface {
	Answer(ctx context.Context, question string, onChunk func(string)) (string, error)
}
