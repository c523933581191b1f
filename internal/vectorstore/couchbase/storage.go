package couchbase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/couchbase/gocb/v2"
	"github.com/couchbase/gocb/v2/vector"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"hotelqa/internal/domain"
)

// StorageConfig names where snippets live and how documents are shaped.
type StorageConfig struct {
	Bucket       string
	Scope        string
	Collection   string
	Index        string
	EmbeddingKey string
	TextKey      string
	// SearchTimeout bounds one search request. Zero leaves the SDK default.
	SearchTimeout time.Duration
}

// Storage runs vector searches against a scoped search index and writes
// embedded snippets into the backing collection.
type Storage struct {
	search     searchFunc
	collection *gocb.Collection
	cfg        StorageConfig
	logger     *zap.Logger
}

// searchRow is one decoded hit, in the order the index returned it.
type searchRow struct {
	ID     string
	Score  float64
	Fields map[string]any
}

type searchFunc func(index string, req gocb.SearchRequest, opts *gocb.SearchOptions) ([]searchRow, error)

// NewStorage binds conn to the configured bucket, scope and collection.
func NewStorage(conn *Connection, cfg StorageConfig) *Storage {
	scope := conn.cluster.Bucket(cfg.Bucket).Scope(cfg.Scope)
	return &Storage{
		search:     scopeSearch(scope),
		collection: scope.Collection(cfg.Collection),
		cfg:        cfg,
		logger:     conn.logger.With(zap.String("index", cfg.Index)),
	}
}

// scopeSearch runs requests against a scoped index and drains the result.
func scopeSearch(scope *gocb.Scope) searchFunc {
	return func(index string, req gocb.SearchRequest, opts *gocb.SearchOptions) ([]searchRow, error) {
		res, err := scope.Search(index, req, opts)
		if err != nil {
			return nil, err
		}
		defer res.Close()

		var rows []searchRow
		for res.Next() {
			row := res.Row()
			var fields map[string]any
			if err := row.Fields(&fields); err != nil {
				return nil, err
			}
			rows = append(rows, searchRow{ID: row.ID, Score: row.Score, Fields: fields})
		}
		if err := res.Err(); err != nil {
			return nil, err
		}
		return rows, nil
	}
}

// Search returns the topK nearest snippets in the order ranked by the index.
func (s *Storage) Search(ctx context.Context, vec []float32, topK int) ([]domain.SearchResult, error) {
	if topK <= 0 {
		topK = domain.DefaultTopK
	}
	req := gocb.SearchRequest{
		VectorSearch: vector.NewSearch([]*vector.Query{
			vector.NewQuery(s.cfg.EmbeddingKey, vec).NumCandidates(uint32(topK)),
		}, nil),
	}
	rows, err := s.search(s.cfg.Index, req, &gocb.SearchOptions{
		Limit:   uint32(topK),
		Fields:  []string{s.cfg.TextKey},
		Timeout: s.cfg.SearchTimeout,
		Context: ctx,
	})
	if err != nil {
		s.logger.Error("vector search failed", zap.Error(err))
		return nil, domain.ExternalServiceError("search", err)
	}

	results := make([]domain.SearchResult, 0, len(rows))
	for _, row := range rows {
		results = append(results, domain.SearchResult{
			ID:    row.ID,
			Text:  textField(row.Fields, s.cfg.TextKey),
			Score: row.Score,
		})
	}
	s.logger.Debug("vector search done", zap.Int("rows", len(results)))
	return results, nil
}

// Upsert writes one document per chunk, keyed by DocumentKey.
func (s *Storage) Upsert(ctx context.Context, chunks []domain.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return errors.New("chunks and vectors length mismatch")
	}
	for i := range chunks {
		key := DocumentKey(chunks[i].ChunkID)
		doc := buildDocument(chunks[i], vectors[i], s.cfg.TextKey, s.cfg.EmbeddingKey)
		if _, err := s.collection.Upsert(key, doc, &gocb.UpsertOptions{Context: ctx}); err != nil {
			s.logger.Error("upsert failed", zap.String("key", key), zap.Error(err))
			return domain.ExternalServiceError("upsert", err)
		}
	}
	return nil
}

var keyNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("hotelqa/review-chunk"))

// DocumentKey derives a stable document key from a chunk id, so re-ingesting
// a file overwrites its earlier chunks.
func DocumentKey(chunkID string) string {
	return uuid.NewSHA1(keyNamespace, []byte(chunkID)).String()
}

func buildDocument(ch domain.Chunk, vec []float32, textKey, embeddingKey string) map[string]any {
	return map[string]any{
		textKey:      ch.Text,
		embeddingKey: vec,
		"metadata": map[string]any{
			"source":      ch.Source,
			"document_id": ch.DocumentID,
			"chunk_index": ch.Index,
		},
	}
}

func textField(fields map[string]any, key string) string {
	switch v := fields[key].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}
