package service

import (
	"context"
	"fmt"
	"strings"
)

// Answer runs the retrieval pipeline: embed the query, find the topK
// nearest chunks and join their texts in rank order. When the store is
// empty or returns no matches the NoContext sentinel is returned, not an
// error, so the caller can still compose a degraded prompt.
func (s *Service) Answer(ctx context.Context, query string, topK int) (string, error) {
	vector, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return "", fmt.Errorf("service: embed query: %w", err)
	}
	matches, err := s.store.Query(ctx, vector, topK)
	if err != nil {
		return "", fmt.Errorf("service: query store: %w", err)
	}
	s.logger.Debug("retrieved context", "matches", len(matches), "topK", topK)
	if len(matches) == 0 {
		return NoContext, nil
	}
	texts := make([]string, len(matches))
	for i, match := range matches {
		texts[i] = match.Text
	}
	return strings.Join(texts, s.separator), nil
}

// AnswerWith retrieves context for the query and hands a composed prompt
// to the external generator. Prompt format is deliberately minimal; anything
// beyond context + question belongs to the caller.
func (s *Service) AnswerWith(ctx context.Context, generator Generator, query string, topK int) (string, error) {
	composed, err := s.Answer(ctx, query, topK)
	if err != nil {
		return "", err
	}
	prompt := fmt.Sprintf("Context:\n%s\n\nQuestion: %s", composed, query)
	answer, err := generator.Generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("service: generate answer: %w", err)
	}
	return answer, nil
}
