package ports

import (
	"context"
	"errors"
)

// Collections held by the remote directory.
const (
	CollectionUsers        = "users"
	CollectionAppointments = "appointments"
	CollectionDoctors      = "doctors"
)

var (
	// ErrDocumentNotFound is returned by GetDocument when no document has the id.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrDirectoryUnavailable marks transient failures worth retrying.
	ErrDirectoryUnavailable = errors.New("remote directory unavailable")
	// ErrDocumentConflict is returned when a write violates a uniqueness
	// constraint enforced by the directory itself.
	ErrDocumentConflict = errors.New("document conflicts with an existing one")
)

// Document is a stored record: its id plus its fields.
type Document struct {
	ID     string
	Fields map[string]any
}

// Filter is an equality match on one field.
type Filter struct {
	Field string
	Value any
}

// Eq builds an equality filter.
func Eq(field string, value any) Filter {
	return Filter{Field: field, Value: value}
}

// SetOptions controls SetDocument. With Merge only the given fields are
// written and the rest of the document is preserved.
type SetOptions struct {
	Merge bool
}

// RemoteDirectory is the document store the booking core runs against.
// No ordering, transaction or schema enforcement is assumed.
type RemoteDirectory interface {
	GetDocument(ctx context.Context, collection, id string) (*Document, error)
	SetDocument(ctx context.Context, collection, id string, fields map[string]any, opts SetOptions) error
	AddDocument(ctx context.Context, collection string, fields map[string]any) (string, error)
	DeleteDocument(ctx context.Context, collection, id string) error
	Query(ctx context.Context, collection string, filters ...Filter) ([]Document, error)
}

// Transactor is implemented by directories that can run fn atomically.
// Directory calls made with the ctx passed to fn join the transaction.
type Transactor interface {
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
