package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"hotelqa/internal/domain"
	"hotelqa/internal/prompt"
)

// QAServiceImpl answers questions by retrieving review snippets and asking
// the completion model. It keeps no state between questions.
type QAServiceImpl struct {
	embedder  domain.Embedder
	store     domain.VectorStore
	completer domain.Completer
	topK      int
	logger    *zap.Logger
}

func NewQAService(embedder domain.Embedder, store domain.VectorStore, completer domain.Completer, topK int, logger *zap.Logger) *QAServiceImpl {
	if topK <= 0 {
		topK = domain.DefaultTopK
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QAServiceImpl{
		embedder:  embedder,
		store:     store,
		completer: completer,
		topK:      topK,
		logger:    logger.With(zap.String("component", "qa-service")),
	}
}

// Retrieve embeds the question and returns the text of the closest stored
// snippets, in the order the store ranked them.
func (s *QAServiceImpl) Retrieve(ctx context.Context, question string) ([]string, error) {
	vec, err := s.embedder.Embed(ctx, question)
	if err != nil {
		return nil, err
	}
	res, err := s.store.Search(ctx, vec, s.topK)
	if err != nil {
		return nil, err
	}
	snippets := make([]string, 0, len(res))
	for _, r := range res {
		snippets = append(snippets, r.Text)
	}
	return snippets, nil
}

// Answer runs embed, search, prompt assembly and completion in sequence.
// On failure it returns no partial answer and the error as produced by the
// failing step.
func (s *QAServiceImpl) Answer(ctx context.Context, question string, onChunk func(string)) (string, error) {
	start := time.Now()
	snippets, err := s.Retrieve(ctx, question)
	if err != nil {
		return "", err
	}
	p, err := prompt.Assemble(snippets, question)
	if err != nil {
		return "", err
	}
	s.logger.Debug("prompt assembled", zap.Int("snippets", len(snippets)), zap.Int("length", len(p)))
	answer, err := s.completer.Complete(ctx, p, onChunk)
	if err != nil {
		return "", err
	}
	s.logger.Info("query processed successfully",
		zap.Int("snippets", len(snippets)),
		zap.Duration("elapsed", time.Since(start)))
	return answer, nil
}
