package service

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"hotelqa/internal/domain"
)

// IngestReport counts what an ingestion run stored.
type IngestReport struct {
	Documents int
	Chunks    int
}

// Ingester loads review text files into the vector store.
type Ingester struct {
	chunker  domain.Chunker
	embedder domain.Embedder
	store    domain.VectorStore
	limiter  *rate.Limiter
	logger   *zap.Logger
}

// NewIngester returns an Ingester issuing at most requestsPerSecond
// embedding calls. A non-positive rate disables the limit.
func NewIngester(chunker domain.Chunker, embedder domain.Embedder, store domain.VectorStore, requestsPerSecond float64, logger *zap.Logger) *Ingester {
	limit := rate.Inf
	if requestsPerSecond > 0 {
		limit = rate.Limit(requestsPerSecond)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ingester{
		chunker:  chunker,
		embedder: embedder,
		store:    store,
		limiter:  rate.NewLimiter(limit, 1),
		logger:   logger.With(zap.String("component", "ingester")),
	}
}

// IngestFiles expands globs, keeps .txt files, and stores every chunk with
// its embedding. Files are processed one after another.
func (in *Ingester) IngestFiles(ctx context.Context, paths []string) (IngestReport, error) {
	var report IngestReport
	documents, err := readDocuments(paths)
	if err != nil {
		return report, err
	}
	for _, d := range documents {
		chunks, err := in.chunker.Chunk(d)
		if err != nil {
			return report, err
		}
		if len(chunks) == 0 {
			in.logger.Warn("document has no text", zap.String("path", d.Path))
			continue
		}
		vectors := make([][]float32, len(chunks))
		for i := range chunks {
			if err := in.limiter.Wait(ctx); err != nil {
				return report, err
			}
			vec, err := in.embedder.Embed(ctx, chunks[i].Text)
			if err != nil {
				return report, err
			}
			vectors[i] = vec
		}
		if err := in.store.Upsert(ctx, chunks, vectors); err != nil {
			return report, err
		}
		report.Documents++
		report.Chunks += len(chunks)
		in.logger.Info("document ingested", zap.String("path", d.Path), zap.Int("chunks", len(chunks)))
	}
	return report, nil
}

func readDocuments(paths []string) ([]domain.Document, error) {
	var documents []domain.Document
	for _, p := range paths {
		matches, err := filepath.Glob(p)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", p, err)
		}
		// A pattern that matched nothing contributes nothing; a plain path is
		// read as is so a missing file is reported.
		if matches == nil && !strings.ContainsAny(p, "*?[") {
			matches = []string{p}
		}
		for _, m := range matches {
			if !strings.HasSuffix(strings.ToLower(m), ".txt") {
				continue
			}
			data, err := os.ReadFile(m)
			if err != nil {
				return nil, err
			}
			documents = append(documents, domain.Document{ID: hashString(m), Path: m, Content: string(data)})
		}
	}
	if len(documents) == 0 {
		return nil, fmt.Errorf("no .txt documents found")
	}
	return documents, nil
}

func hashString(s string) string {
	h := sha1.Sum([]byte(s))
	return hex.EncodeToString(h[:8])
}
