// Package service defines the backend-agnostic document store interface and the task domain types.
package service

import (
	"context"
	"errors"
)

var (
	// ErrUnavailable marks a transport or backend failure on a single remote call.
	ErrUnavailable = errors.New("backend unavailable")

	// ErrPermission marks a call rejected by the backend's access control.
	ErrPermission = errors.New("permission denied")

	// ErrInvalidPath is returned for document or collection paths with empty segments.
	ErrInvalidPath = errors.New("invalid path")

	// ErrExists is returned by Create when the document is already present.
	ErrExists = errors.New("document already exists")
)

// Document is a single record returned by a Store.
type Document struct {
	// ID is the last path segment.
	ID string

	// Path is the full slash-separated document path.
	Path string

	// Fields holds the decoded document body.
	Fields map[string]any
}

// Store defines the interface for remote document operations.
// All remote reads and writes go through this interface.
// The coordinator never imports a backend SDK directly.
//
// Implementations are assumed eventually consistent: a Get issued right
// after a successful Delete may still observe the deleted document.
type Store interface {
	// Get reads a document. A missing document is reported as (Document{}, false, nil).
	Get(ctx context.Context, path string) (Document, bool, error)

	// Set creates the document or fully replaces it.
	Set(ctx context.Context, path string, fields map[string]any) error

	// Create writes the document only if it does not exist yet, failing
	// with ErrExists otherwise. The check and the write are atomic.
	Create(ctx context.Context, path string, fields map[string]any) error

	// Delete removes a document. Deleting a missing document is not an error.
	Delete(ctx context.Context, path string) error

	// List returns every document directly under a collection path.
	List(ctx context.Context, collectionPath string) ([]Document, error)

	// Query returns the documents of a collection whose field equals value.
	Query(ctx context.Context, collectionPath, field string, value any) ([]Document, error)

	// Close releases the underlying client.
	Close() error
}
