// Package docstore is a small document database abstraction: documents are
// JSON-shaped maps addressed by collection and id, updated through dot
// separated field paths with merge semantics.
package docstore

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when a document does not exist
	ErrNotFound = errors.New("document not found")

	// ErrUnavailable wraps failures to reach the backing store
	ErrUnavailable = errors.New("document store unavailable")

	// ErrInvalidPath is returned for malformed field paths
	ErrInvalidPath = errors.New("invalid field path")
)

// Document is a JSON-shaped document. Nested objects are map[string]any,
// arrays are []any and numbers are float64.
type Document map[string]any

// Update maps field paths such as "stats.wordsViewed" to new values or to
// one of the transforms below.
type Update map[string]any

// Store is implemented by every document backend.
type Store interface {
	// Get returns a copy of the document or ErrNotFound.
	Get(ctx context.Context, collection, id string) (Document, error)
	// Set overwrites the whole document, creating it when missing.
	Set(ctx context.Context, collection, id string, doc Document) error
	// Update merges field paths into an existing document or returns ErrNotFound.
	Update(ctx context.Context, collection, id string, update Update) error
}
