package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vecta-io/recall/document"
	"github.com/vecta-io/recall/schema"
	"github.com/vecta-io/recall/vectordb"
	"github.com/vecta-io/recall/vectordb/sqlitevec"
)

// textExtractor treats the document payload as plain text so pipeline
// tests need no real PDF fixtures.
type textExtractor struct{}

func (textExtractor) Extract(doc document.Document) (string, error) {
	return string(doc.Data), nil
}

// stubEmbedder returns a fixed vector per known text and fails on texts
// listed in failOn. Unknown texts get a deterministic fallback vector.
type stubEmbedder struct {
	dimension int
	vectors   map[string][]float32
	queryVec  []float32
	failOn    map[string]error

	mu    sync.Mutex
	calls int
}

func (e *stubEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("stub: %v: %w", err, schema.ErrCancelled)
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err, ok := e.failOn[text]; ok {
			return nil, err
		}
		if vec, ok := e.vectors[text]; ok {
			out[i] = vec
			continue
		}
		vec := make([]float32, e.dimension)
		vec[0] = float32(len(text))
		out[i] = vec
	}
	return out, nil
}

func (e *stubEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if e.queryVec != nil {
		return e.queryVec, nil
	}
	vec := make([]float32, e.dimension)
	vec[0] = 1
	return vec, nil
}

func (e *stubEmbedder) Dimension() int { return e.dimension }

// recordingStore captures upserts so tests can assert nothing reached the
// store on an aborted ingestion.
type recordingStore struct {
	mu      sync.Mutex
	entries []schema.Entry
	upserts int
}

func (r *recordingStore) EnsureReady(ctx context.Context, dimension int, metric vectordb.Metric) error {
	return nil
}

func (r *recordingStore) Upsert(ctx context.Context, entries []schema.Entry) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.upserts++
	r.entries = append(r.entries, entries...)
	return len(entries), nil
}

func (r *recordingStore) Query(ctx context.Context, vector []float32, topK int) ([]schema.Match, error) {
	return nil, nil
}

func newLocalStore(t *testing.T) *sqlitevec.Store {
	t.Helper()
	store, err := sqlitevec.NewStore(sqlitevec.WithDSN(filepath.Join(t.TempDir(), "index.db")))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestNewRequiresBackends(t *testing.T) {
	_, err := New(WithStore(&recordingStore{}))
	require.Error(t, err)
	assert.True(t, errors.Is(err, schema.ErrInvalidArgument))

	_, err = New(WithEmbedder(&stubEmbedder{dimension: 2}))
	require.Error(t, err)
	assert.True(t, errors.Is(err, schema.ErrInvalidArgument))
}

func TestIngestAndAnswer(t *testing.T) {
	embedder := &stubEmbedder{
		dimension: 2,
		vectors: map[string][]float32{
			"alpha beta":  {1, 0},
			"gamma delta": {0, 1},
			"epsilon":     {0.7, 0.7},
		},
		queryVec: []float32{1, 0.2},
	}
	store := newLocalStore(t)
	svc, err := New(
		WithEmbedder(embedder),
		WithStore(store),
		WithExtractor(textExtractor{}),
		WithChunkSize(2),
	)
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, svc.Init(ctx))

	result, err := svc.Ingest(ctx, document.New([]byte("alpha beta gamma delta epsilon"), document.MediaTypePDF))
	require.NoError(t, err)
	assert.Equal(t, 3, result.ChunkCount)
	assert.Equal(t, 3, result.UpsertedCount)
	assert.NotZero(t, result.Fingerprint)

	composed, err := svc.Answer(ctx, "which direction", 2)
	require.NoError(t, err)
	// Nearest to (1, 0.2): "alpha beta" first, "epsilon" second.
	assert.Equal(t, "alpha beta\n\nepsilon", composed)
}

func TestIngestIsIdempotentById(t *testing.T) {
	embedder := &stubEmbedder{dimension: 2}
	store := newLocalStore(t)
	svc, err := New(
		WithEmbedder(embedder),
		WithStore(store),
		WithExtractor(textExtractor{}),
		WithChunkSize(2),
	)
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, svc.Init(ctx))

	doc := document.New([]byte("one two three four"), document.MediaTypePDF)
	first, err := svc.Ingest(ctx, doc)
	require.NoError(t, err)
	second, err := svc.Ingest(ctx, doc)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	matches, err := store.Query(ctx, []float32{1, 0}, 10)
	require.NoError(t, err)
	assert.Len(t, matches, 2)
}

func TestIngestEmptyDocument(t *testing.T) {
	store := &recordingStore{}
	svc, err := New(
		WithEmbedder(&stubEmbedder{dimension: 2}),
		WithStore(store),
		WithExtractor(textExtractor{}),
	)
	require.NoError(t, err)

	result, err := svc.Ingest(context.Background(), document.New([]byte("   \n\t "), document.MediaTypePDF))
	require.NoError(t, err)
	assert.Equal(t, IngestResult{}, result)
	assert.Zero(t, store.upserts)
}

func TestIngestAbortsOnEmbedFailure(t *testing.T) {
	embedder := &stubEmbedder{
		dimension: 2,
		failOn: map[string]error{
			"gamma delta": fmt.Errorf("stub: backend busy: %w", schema.ErrServiceUnavailable),
		},
	}
	store := &recordingStore{}
	svc, err := New(
		WithEmbedder(embedder),
		WithStore(store),
		WithExtractor(textExtractor{}),
		WithChunkSize(2),
	)
	require.NoError(t, err)

	_, err = svc.Ingest(context.Background(), document.New([]byte("alpha beta gamma delta epsilon"), document.MediaTypePDF))
	require.Error(t, err)
	assert.True(t, errors.Is(err, schema.ErrIngestionFailed))
	assert.True(t, errors.Is(err, schema.ErrServiceUnavailable))
	assert.Zero(t, store.upserts, "nothing may reach the store on an aborted ingestion")
}

// slowEmbedder finishes chunks in random order to exercise the
// position-indexed result placement.
type slowEmbedder struct {
	dimension int
}

func (e *slowEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	time.Sleep(time.Duration(rand.Intn(5)) * time.Millisecond)
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, e.dimension)
		vec[0] = float32(len(text))
		out[i] = vec
	}
	return out, nil
}

func (e *slowEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return make([]float32, e.dimension), nil
}

func (e *slowEmbedder) Dimension() int { return e.dimension }

func TestIngestPreservesChunkOrder(t *testing.T) {
	store := &recordingStore{}
	svc, err := New(
		WithEmbedder(&slowEmbedder{dimension: 2}),
		WithStore(store),
		WithExtractor(textExtractor{}),
		WithChunkSize(1),
		WithConcurrency(4),
	)
	require.NoError(t, err)

	words := make([]string, 32)
	for i := range words {
		words[i] = strings.Repeat("w", i+1)
	}
	result, err := svc.Ingest(context.Background(), document.New([]byte(strings.Join(words, " ")), document.MediaTypePDF))
	require.NoError(t, err)
	assert.Equal(t, len(words), result.ChunkCount)
	require.Len(t, store.entries, len(words))
	for i, entry := range store.entries {
		assert.Equal(t, schema.ChunkID(i+1), entry.ID)
		assert.Equal(t, words[i], entry.Text)
		assert.Equal(t, float32(len(words[i])), entry.Vector[0])
	}
}

func TestFingerprintOf(t *testing.T) {
	a := fingerprintOf([]byte("alpha beta"))
	assert.NotZero(t, a)
	assert.Equal(t, a, fingerprintOf([]byte("alpha beta")))
	assert.NotEqual(t, a, fingerprintOf([]byte("alpha betb")))
}

func TestIngestURLFileScheme(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.pdf")
	require.NoError(t, os.WriteFile(path, []byte("alpha beta gamma delta"), 0o644))

	store := &recordingStore{}
	svc, err := New(
		WithEmbedder(&stubEmbedder{dimension: 2}),
		WithStore(store),
		WithExtractor(textExtractor{}),
		WithChunkSize(2),
	)
	require.NoError(t, err)

	result, err := svc.IngestURL(context.Background(), "file://"+path)
	require.NoError(t, err)
	assert.Equal(t, 2, result.ChunkCount)
	assert.Equal(t, 2, result.UpsertedCount)
	require.Len(t, store.entries, 2)
	assert.Equal(t, "alpha beta", store.entries[0].Text)
	assert.Equal(t, "gamma delta", store.entries[1].Text)
}

func TestIngestURLMissingFile(t *testing.T) {
	svc, err := New(
		WithEmbedder(&stubEmbedder{dimension: 2}),
		WithStore(&recordingStore{}),
	)
	require.NoError(t, err)

	_, err = svc.IngestURL(context.Background(), "file://"+filepath.Join(t.TempDir(), "absent.pdf"))
	require.Error(t, err)
}

func TestIngestURLRejectsUnknownExtension(t *testing.T) {
	svc, err := New(
		WithEmbedder(&stubEmbedder{dimension: 2}),
		WithStore(&recordingStore{}),
	)
	require.NoError(t, err)

	_, err = svc.IngestURL(context.Background(), "file:///tmp/report.docx")
	require.Error(t, err)
	assert.True(t, errors.Is(err, schema.ErrInvalidArgument))
}

func TestAnswerNoContext(t *testing.T) {
	svc, err := New(
		WithEmbedder(&stubEmbedder{dimension: 2}),
		WithStore(newLocalStore(t)),
	)
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, svc.Init(ctx))

	composed, err := svc.Answer(ctx, "anything", 3)
	require.NoError(t, err)
	assert.Equal(t, NoContext, composed)
}

func TestAnswerCustomSeparator(t *testing.T) {
	embedder := &stubEmbedder{
		dimension: 2,
		vectors: map[string][]float32{
			"alpha beta":  {1, 0},
			"gamma delta": {0.9, 0.1},
		},
		queryVec: []float32{1, 0},
	}
	svc, err := New(
		WithEmbedder(embedder),
		WithStore(newLocalStore(t)),
		WithExtractor(textExtractor{}),
		WithChunkSize(2),
		WithSeparator(" | "),
	)
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, svc.Init(ctx))

	_, err = svc.Ingest(ctx, document.New([]byte("alpha beta gamma delta"), document.MediaTypePDF))
	require.NoError(t, err)

	composed, err := svc.Answer(ctx, "q", 2)
	require.NoError(t, err)
	assert.Equal(t, "alpha beta | gamma delta", composed)
}

type echoGenerator struct{}

func (echoGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	return prompt, nil
}

func TestAnswerWithComposesPrompt(t *testing.T) {
	embedder := &stubEmbedder{
		dimension: 2,
		vectors:   map[string][]float32{"alpha beta": {1, 0}},
		queryVec:  []float32{1, 0},
	}
	svc, err := New(
		WithEmbedder(embedder),
		WithStore(newLocalStore(t)),
		WithExtractor(textExtractor{}),
		WithChunkSize(2),
	)
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, svc.Init(ctx))

	_, err = svc.Ingest(ctx, document.New([]byte("alpha beta"), document.MediaTypePDF))
	require.NoError(t, err)

	answer, err := svc.AnswerWith(ctx, echoGenerator{}, "what is alpha", 1)
	require.NoError(t, err)
	assert.Equal(t, "Context:\nalpha beta\n\nQuestion: what is alpha", answer)
}

func TestAnswerWithNoContextStillPrompts(t *testing.T) {
	svc, err := New(
		WithEmbedder(&stubEmbedder{dimension: 2}),
		WithStore(newLocalStore(t)),
	)
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, svc.Init(ctx))

	answer, err := svc.AnswerWith(ctx, echoGenerator{}, "anything", 3)
	require.NoError(t, err)
	assert.Contains(t, answer, NoContext)
	assert.Contains(t, answer, "Question: anything")
}
