package service

import "context"

// IngestResult reports the outcome of one ingestion call. On success
// UpsertedCount equals ChunkCount; the engine never leaves a partially
// embedded document in the store.
type IngestResult struct {
	ChunkCount    int
	UpsertedCount int
	// Fingerprint is a HighwayHash-64 of the extracted text, for
	// provenance and logging. Zero when extraction yielded no text.
	Fingerprint uint64
}

// Generator is the external text-generation capability. The engine only
// prepares prompts for it; it never generates text itself.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
