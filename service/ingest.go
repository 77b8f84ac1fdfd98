package service

import (
	"context"
	"fmt"
	"path"
	"strings"
	"sync"

	"github.com/minio/highwayhash"
	"github.com/viant/afs"

	"github.com/vecta-io/recall/document"
	"github.com/vecta-io/recall/schema"
)

var fingerprintKey = []byte("0123456789ABCDEF0123456789ABCDEF")

// Ingest runs the full ingestion pipeline: extract text, split into
// chunks, embed every chunk and upsert the resulting entries. It either
// fully succeeds or fails before anything reaches the store; an embedding
// failure for any chunk aborts the whole call.
func (s *Service) Ingest(ctx context.Context, doc document.Document) (IngestResult, error) {
	text, err := s.extractor.Extract(doc)
	if err != nil {
		return IngestResult{}, err
	}
	if strings.TrimSpace(text) == "" {
		return IngestResult{}, nil
	}
	chunks, err := s.splitter.Split(text)
	if err != nil {
		return IngestResult{}, err
	}
	if len(chunks) == 0 {
		return IngestResult{}, nil
	}
	fingerprint := fingerprintOf([]byte(text))

	vectors, err := s.embedChunks(ctx, chunks)
	if err != nil {
		return IngestResult{}, fmt.Errorf("service: embed %d chunks: %w: %w", len(chunks), err, schema.ErrIngestionFailed)
	}
	entries := make([]schema.Entry, len(chunks))
	for i, chunk := range chunks {
		entries[i] = schema.Entry{ID: chunk.ID, Vector: vectors[i], Text: chunk.Text}
	}
	upserted, err := s.store.Upsert(ctx, entries)
	if err != nil {
		return IngestResult{ChunkCount: len(chunks), UpsertedCount: upserted, Fingerprint: fingerprint},
			fmt.Errorf("service: upsert entries: %w", err)
	}
	result := IngestResult{ChunkCount: len(chunks), UpsertedCount: upserted, Fingerprint: fingerprint}
	s.logger.Debug("ingested document",
		"chunks", result.ChunkCount,
		"upserted", result.UpsertedCount,
		"fingerprint", result.Fingerprint)
	return result, nil
}

// IngestURL loads the document behind an afs-addressable URL (file, s3,
// gs, ...) and ingests it. The media type is inferred from the extension.
func (s *Service) IngestURL(ctx context.Context, URL string) (IngestResult, error) {
	mediaType, err := mediaTypeOf(URL)
	if err != nil {
		return IngestResult{}, err
	}
	fs := afs.New()
	data, err := fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return IngestResult{}, fmt.Errorf("service: download %s: %w", URL, err)
	}
	return s.Ingest(ctx, document.New(data, mediaType))
}

// embedChunks embeds chunk texts with bounded parallelism. Results land in
// a position-indexed slice, never appended as completed, so entry order
// matches chunk order regardless of completion order. The first failure
// cancels the remaining work.
func (s *Service) embedChunks(ctx context.Context, chunks []schema.Chunk) ([][]float32, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	limiter := make(chan struct{}, s.concurrency)
	var wg sync.WaitGroup
	vectors := make([][]float32, len(chunks))

	var once sync.Once
	var firstErr error

	for i := range chunks {
		select {
		case <-ctx.Done():
			wg.Wait()
			if firstErr != nil {
				return nil, firstErr
			}
			return nil, fmt.Errorf("service: %v: %w", ctx.Err(), schema.ErrCancelled)
		case limiter <- struct{}{}:
		}
		wg.Add(1)
		go func(index int, text string) {
			defer wg.Done()
			defer func() { <-limiter }()
			embedded, err := s.embedder.EmbedDocuments(ctx, []string{text})
			if err != nil {
				once.Do(func() {
					firstErr = err
					cancel()
				})
				return
			}
			if len(embedded) != 1 {
				once.Do(func() {
					firstErr = fmt.Errorf("service: got %d vectors for 1 chunk: %w", len(embedded), schema.ErrInvalidResponse)
					cancel()
				})
				return
			}
			vectors[index] = embedded[0]
		}(i, chunks[i].Text)
	}
	wg.Wait()
	if firstErr != nil {
		return nil, firstErr
	}
	return vectors, nil
}

func mediaTypeOf(URL string) (string, error) {
	switch strings.ToLower(path.Ext(URL)) {
	case ".pdf":
		return document.MediaTypePDF, nil
	default:
		return "", fmt.Errorf("service: cannot infer media type of %s: %w", URL, schema.ErrInvalidArgument)
	}
}

// fingerprintOf hashes the extracted text with the fixed engine key; the
// key length is valid by construction, so hashing cannot fail.
func fingerprintOf(data []byte) uint64 {
	return highwayhash.Sum64(data, fingerprintKey)
}
