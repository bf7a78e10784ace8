// Package firestore implements service.Store using Cloud Firestore.
package firestore

import (
	"context"
	"errors"
	"fmt"

	firestoreapi "cloud.google.com/go/firestore"
	"golang.org/x/oauth2"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"todolist/internal/service"
)

// Client implements service.Store on top of a Firestore client.
type Client struct {
	fs *firestoreapi.Client
}

// New creates a Firestore store authenticated with the signed-in user's token.
func New(ctx context.Context, projectID string, ts oauth2.TokenSource) (*Client, error) {
	if projectID == "" {
		return nil, errors.New("firestore.project_id is not set")
	}
	return NewWithOptions(ctx, projectID, option.WithTokenSource(ts))
}

// NewWithOptions creates a store with explicit client options (emulator, tests).
func NewWithOptions(ctx context.Context, projectID string, opts ...option.ClientOption) (*Client, error) {
	fs, err := firestoreapi.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	return &Client{fs: fs}, nil
}

// Get reads a single document.
func (c *Client) Get(ctx context.Context, path string) (service.Document, bool, error) {
	ref, err := c.doc(path)
	if err != nil {
		return service.Document{}, false, err
	}
	snap, err := ref.Get(ctx)
	if status.Code(err) == codes.NotFound {
		return service.Document{}, false, nil
	}
	if err != nil {
		return service.Document{}, false, wrapError(err)
	}
	return service.Document{ID: ref.ID, Path: path, Fields: snap.Data()}, true, nil
}

// Set creates or replaces a document.
func (c *Client) Set(ctx context.Context, path string, fields map[string]any) error {
	ref, err := c.doc(path)
	if err != nil {
		return err
	}
	if _, err := ref.Set(ctx, fields); err != nil {
		return wrapError(err)
	}
	return nil
}

// Create writes a document that must not exist yet.
func (c *Client) Create(ctx context.Context, path string, fields map[string]any) error {
	ref, err := c.doc(path)
	if err != nil {
		return err
	}
	if _, err := ref.Create(ctx, fields); err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return fmt.Errorf("%w: %s", service.ErrExists, path)
		}
		return wrapError(err)
	}
	return nil
}

// Delete removes a document. Firestore does not fail for missing documents.
func (c *Client) Delete(ctx context.Context, path string) error {
	ref, err := c.doc(path)
	if err != nil {
		return err
	}
	if _, err := ref.Delete(ctx); err != nil {
		return wrapError(err)
	}
	return nil
}

// List returns all documents of a collection.
func (c *Client) List(ctx context.Context, collectionPath string) ([]service.Document, error) {
	coll, err := c.collection(collectionPath)
	if err != nil {
		return nil, err
	}
	return collect(collectionPath, coll.Documents(ctx))
}

// Query returns the documents of a collection whose field equals value.
func (c *Client) Query(ctx context.Context, collectionPath, field string, value any) ([]service.Document, error) {
	coll, err := c.collection(collectionPath)
	if err != nil {
		return nil, err
	}
	return collect(collectionPath, coll.Where(field, "==", value).Documents(ctx))
}

// Close closes the underlying client.
func (c *Client) Close() error {
	return c.fs.Close()
}

func (c *Client) doc(path string) (*firestoreapi.DocumentRef, error) {
	if !service.IsDocumentPath(path) {
		return nil, fmt.Errorf("%w: not a document path: %q", service.ErrInvalidPath, path)
	}
	return c.fs.Doc(path), nil
}

func (c *Client) collection(path string) (*firestoreapi.CollectionRef, error) {
	if !service.IsCollectionPath(path) {
		return nil, fmt.Errorf("%w: not a collection path: %q", service.ErrInvalidPath, path)
	}
	return c.fs.Collection(path), nil
}

func collect(collectionPath string, it *firestoreapi.DocumentIterator) ([]service.Document, error) {
	defer it.Stop()

	var docs []service.Document
	for {
		snap, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, wrapError(err)
		}
		docs = append(docs, service.Document{
			ID:     snap.Ref.ID,
			Path:   collectionPath + "/" + snap.Ref.ID,
			Fields: snap.Data(),
		})
	}
	return docs, nil
}

// wrapError maps gRPC status codes onto the store's sentinel errors.
func wrapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	switch status.Code(err) {
	case codes.Unauthenticated:
		return fmt.Errorf("%w: token expired or revoked (run: todolist login)", service.ErrPermission)
	case codes.PermissionDenied:
		return fmt.Errorf("%w: %s", service.ErrPermission, status.Convert(err).Message())
	case codes.DeadlineExceeded:
		return fmt.Errorf("%w: request timed out", context.DeadlineExceeded)
	default:
		return fmt.Errorf("%w: %v", service.ErrUnavailable, err)
	}
}
