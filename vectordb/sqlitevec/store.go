// Package sqlitevec implements the vector store capability on an embedded
// SQLite database. Entries persist across process restarts; similarity is
// computed in-process with exact cosine scoring so ranking matches the
// managed backend for the same vectors.
package sqlitevec

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/vecta-io/recall/db/sqliteutil"
	"github.com/vecta-io/recall/schema"
	"github.com/vecta-io/recall/vectordb"
)

const defaultCollection = "default"

// Option configures the store.
type Option func(*Store)

// WithDB sets an existing *sql.DB to use.
func WithDB(db *sql.DB) Option {
	return func(s *Store) { s.db = db }
}

// WithDSN sets the SQLite DSN to open (e.g. /path/to/index.db).
func WithDSN(dsn string) Option {
	return func(s *Store) { s.dsn = dsn }
}

// WithCollection sets the collection name (default: "default").
func WithCollection(name string) Option {
	return func(s *Store) {
		if name != "" {
			s.collection = name
		}
	}
}

// Store is an embedded, on-disk persistent vectordb.Store.
type Store struct {
	db            *sql.DB
	dsn           string
	collection    string
	openedLocally bool

	mu        sync.Mutex
	dimension int
	metric    vectordb.Metric
}

// NewStore opens or reuses a SQLite database for vector storage.
func NewStore(opts ...Option) (*Store, error) {
	s := &Store{collection: defaultCollection}
	for _, opt := range opts {
		opt(s)
	}
	if s.db == nil {
		if s.dsn == "" {
			return nil, fmt.Errorf("sqlitevec: dsn required: %w", schema.ErrInvalidArgument)
		}
		db, err := sql.Open("sqlite", sqliteutil.EnsurePragmas(s.dsn, true, 5000))
		if err != nil {
			return nil, fmt.Errorf("sqlitevec: open %s: %w", s.dsn, err)
		}
		db.SetMaxOpenConns(4)
		db.SetMaxIdleConns(4)
		s.db = db
		s.openedLocally = true
	}
	return s, nil
}

var _ vectordb.Store = (*Store)(nil)

// Close closes the underlying DB when the store opened it.
func (s *Store) Close() error {
	if s.openedLocally && s.db != nil {
		return s.db.Close()
	}
	return nil
}

// DB exposes the underlying sql.DB.
func (s *Store) DB() *sql.DB { return s.db }

// EnsureReady creates the schema and registers the collection with the
// requested dimension and metric. A local collection needs no provisioning
// wait; an existing collection with a different configuration is a
// conflict.
func (s *Store) EnsureReady(ctx context.Context, dimension int, metric vectordb.Metric) error {
	if dimension < 1 {
		return fmt.Errorf("sqlitevec: dimension %d: %w", dimension, schema.ErrInvalidArgument)
	}
	if metric == "" {
		metric = vectordb.MetricCosine
	}
	if metric != vectordb.MetricCosine {
		return fmt.Errorf("sqlitevec: unsupported metric %q: %w", metric, schema.ErrConfigConflict)
	}
	if err := s.ensureSchema(ctx); err != nil {
		return err
	}
	var haveDimension int
	var haveMetric string
	err := s.db.QueryRowContext(ctx,
		`SELECT dimension, metric FROM collections WHERE name = ?`, s.collection).
		Scan(&haveDimension, &haveMetric)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := s.db.ExecContext(ctx,
			`INSERT INTO collections(name, dimension, metric) VALUES(?,?,?)`,
			s.collection, dimension, string(metric)); err != nil {
			return fmt.Errorf("sqlitevec: register collection %q: %w", s.collection, wrapCtx(ctx, err))
		}
	case err != nil:
		return fmt.Errorf("sqlitevec: describe collection %q: %w", s.collection, wrapCtx(ctx, err))
	default:
		if haveDimension != dimension || haveMetric != string(metric) {
			return fmt.Errorf("sqlitevec: collection %q has dimension=%d metric=%s, want dimension=%d metric=%s: %w",
				s.collection, haveDimension, haveMetric, dimension, metric, schema.ErrConfigConflict)
		}
	}
	s.mu.Lock()
	s.dimension = dimension
	s.metric = metric
	s.mu.Unlock()
	return nil
}

// Upsert writes entries one statement at a time, replacing entries with
// existing ids. It reports how many entries were applied; a mid-batch
// failure leaves the applied prefix in place.
func (s *Store) Upsert(ctx context.Context, entries []schema.Entry) (int, error) {
	if len(entries) == 0 {
		return 0, nil
	}
	dimension, err := s.collectionDimension(ctx)
	if err != nil {
		return 0, err
	}
	stmt, err := s.db.PrepareContext(ctx, `INSERT INTO entries(collection, id, content, embedding)
VALUES(?,?,?,?)
ON CONFLICT(collection, id) DO UPDATE SET
	content=excluded.content,
	embedding=excluded.embedding`)
	if err != nil {
		return 0, fmt.Errorf("sqlitevec: prepare upsert: %w", wrapCtx(ctx, err))
	}
	defer stmt.Close()

	applied := 0
	for _, entry := range entries {
		if len(entry.Vector) != dimension {
			return applied, fmt.Errorf("sqlitevec: entry %q has dimension %d, collection wants %d: %w",
				entry.ID, len(entry.Vector), dimension, schema.ErrInvalidArgument)
		}
		blob, err := encodeVector(entry.Vector)
		if err != nil {
			return applied, err
		}
		if _, err := stmt.ExecContext(ctx, s.collection, entry.ID, entry.Text, blob); err != nil {
			return applied, fmt.Errorf("sqlitevec: upsert %q: %w", entry.ID, wrapCtx(ctx, err))
		}
		applied++
	}
	return applied, nil
}

// Query scores every entry of the collection against the vector and
// returns up to topK matches, descending score, ascending id on ties.
func (s *Store) Query(ctx context.Context, vector []float32, topK int) ([]schema.Match, error) {
	if topK < 1 {
		return nil, fmt.Errorf("sqlitevec: topK %d: %w", topK, schema.ErrInvalidArgument)
	}
	dimension, err := s.collectionDimension(ctx)
	if err != nil {
		return nil, err
	}
	if len(vector) != dimension {
		return nil, fmt.Errorf("sqlitevec: query vector has dimension %d, collection wants %d: %w",
			len(vector), dimension, schema.ErrInvalidArgument)
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, content, embedding FROM entries WHERE collection = ?`, s.collection)
	if err != nil {
		return nil, fmt.Errorf("sqlitevec: query: %w", wrapCtx(ctx, err))
	}
	defer rows.Close()

	matches := make([]schema.Match, 0, topK)
	for rows.Next() {
		var id, content string
		var blob []byte
		if err := rows.Scan(&id, &content, &blob); err != nil {
			return nil, fmt.Errorf("sqlitevec: scan: %w", err)
		}
		stored, err := decodeVector(blob)
		if err != nil {
			return nil, err
		}
		matches = append(matches, schema.Match{
			ID:    id,
			Text:  content,
			Score: vectordb.CosineSimilarity(vector, stored),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlitevec: rows: %w", wrapCtx(ctx, err))
	}
	vectordb.SortMatches(matches)
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

// collectionDimension returns the registered dimension, reading it from
// the collections table when EnsureReady has not run in this process.
func (s *Store) collectionDimension(ctx context.Context) (int, error) {
	s.mu.Lock()
	dimension := s.dimension
	s.mu.Unlock()
	if dimension > 0 {
		return dimension, nil
	}
	if err := s.ensureSchema(ctx); err != nil {
		return 0, err
	}
	err := s.db.QueryRowContext(ctx,
		`SELECT dimension FROM collections WHERE name = ?`, s.collection).Scan(&dimension)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("sqlitevec: collection %q not initialized, call EnsureReady first: %w",
			s.collection, schema.ErrInvalidArgument)
	}
	if err != nil {
		return 0, fmt.Errorf("sqlitevec: describe collection %q: %w", s.collection, wrapCtx(ctx, err))
	}
	s.mu.Lock()
	s.dimension = dimension
	s.mu.Unlock()
	return dimension, nil
}

func (s *Store) ensureSchema(ctx context.Context) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS collections(
	name TEXT PRIMARY KEY,
	dimension INTEGER NOT NULL,
	metric TEXT NOT NULL
)`,
		`CREATE TABLE IF NOT EXISTS entries(
	collection TEXT NOT NULL,
	id TEXT NOT NULL,
	content TEXT NOT NULL,
	embedding BLOB NOT NULL,
	PRIMARY KEY(collection, id)
)`,
	}
	for _, statement := range ddl {
		if _, err := s.db.ExecContext(ctx, statement); err != nil {
			return fmt.Errorf("sqlitevec: ensure schema: %w", wrapCtx(ctx, err))
		}
	}
	return nil
}

// wrapCtx maps a cancelled context onto the engine's Cancelled kind so
// callers can tell an aborted call from a store failure.
func wrapCtx(ctx context.Context, err error) error {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%v: %w", err, schema.ErrCancelled)
	}
	return err
}
