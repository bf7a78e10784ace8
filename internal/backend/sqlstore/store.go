// Package sqlstore implements service.Store as a single JSON document table
// in SQLite or PostgreSQL.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"todolist/internal/service"
)

// Store is a service.Store backed by database/sql.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

// OpenSQLite opens (creating if needed) a SQLite database file.
func OpenSQLite(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(wal)", path)
	db, err := sql.Open(SQLite.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return open(ctx, db, SQLite)
}

// OpenPostgres connects to a PostgreSQL database.
func OpenPostgres(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, errors.New("postgres.dsn is not set")
	}
	db, err := sql.Open(Postgres.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)
	return open(ctx, db, Postgres)
}

func open(ctx context.Context, db *sql.DB, d Dialect) (*Store, error) {
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: failed to connect to %s: %v", service.ErrUnavailable, d.Name, err)
	}
	s := &Store{db: db, dialect: d}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// migrate creates the documents table if it does not exist.
func (s *Store) migrate(ctx context.Context) error {
	for _, stmt := range s.dialect.schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

// Dialect returns the store's dialect name.
func (s *Store) Dialect() string {
	return s.dialect.Name
}

// Get reads a single document.
func (s *Store) Get(ctx context.Context, path string) (service.Document, bool, error) {
	_, id, err := service.ParentCollection(path)
	if err != nil {
		return service.Document{}, false, err
	}

	var data []byte
	err = s.db.QueryRowContext(ctx, s.dialect.get, path).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return service.Document{}, false, nil
	}
	if err != nil {
		return service.Document{}, false, wrapError(err)
	}

	fields, err := unmarshal(data)
	if err != nil {
		return service.Document{}, false, &service.DecodeError{Path: path, Err: err}
	}
	return service.Document{ID: id, Path: path, Fields: fields}, true, nil
}

// Set creates or replaces a document.
func (s *Store) Set(ctx context.Context, path string, fields map[string]any) error {
	_, err := s.write(ctx, s.dialect.upsert, path, fields)
	return err
}

// Create inserts a document, failing with service.ErrExists if the path is taken.
func (s *Store) Create(ctx context.Context, path string, fields map[string]any) error {
	res, err := s.write(ctx, s.dialect.insert, path, fields)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrapError(err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", service.ErrExists, path)
	}
	return nil
}

func (s *Store) write(ctx context.Context, stmt, path string, fields map[string]any) (sql.Result, error) {
	collection, id, err := service.ParentCollection(path)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", path, err)
	}
	res, err := s.db.ExecContext(ctx, stmt, path, collection, id, string(data), time.Now().UTC())
	if err != nil {
		return nil, wrapError(err)
	}
	return res, nil
}

// Delete removes a document. Deleting a missing document is not an error.
func (s *Store) Delete(ctx context.Context, path string) error {
	if !service.IsDocumentPath(path) {
		return fmt.Errorf("%w: not a document path: %q", service.ErrInvalidPath, path)
	}
	_, err := s.db.ExecContext(ctx, s.dialect.delete, path)
	return wrapError(err)
}

// List returns every document directly under a collection.
func (s *Store) List(ctx context.Context, collectionPath string) ([]service.Document, error) {
	if !service.IsCollectionPath(collectionPath) {
		return nil, fmt.Errorf("%w: not a collection path: %q", service.ErrInvalidPath, collectionPath)
	}
	rows, err := s.db.QueryContext(ctx, s.dialect.list, collectionPath)
	if err != nil {
		return nil, wrapError(err)
	}
	return scanDocuments(collectionPath, rows)
}

// Query returns the documents of a collection whose field equals value.
// The value is compared as JSON so booleans, numbers and strings match
// the way they were written.
func (s *Store) Query(ctx context.Context, collectionPath, field string, value any) ([]service.Document, error) {
	if !service.IsCollectionPath(collectionPath) {
		return nil, fmt.Errorf("%w: not a collection path: %q", service.ErrInvalidPath, collectionPath)
	}
	if !service.IsTaskField(field) {
		return nil, fmt.Errorf("unknown field: %s", field)
	}
	if p, ok := value.(service.Priority); ok {
		value = string(p)
	}
	if t, ok := value.(time.Time); ok {
		value = t.UTC()
	}
	encoded, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("failed to encode query value: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, s.dialect.query, collectionPath, field, string(encoded))
	if err != nil {
		return nil, wrapError(err)
	}
	return scanDocuments(collectionPath, rows)
}

// Close releases the connection pool.
// Close runs the dialect's shutdown statement and closes the database.
// The database is closed even when the shutdown statement fails.
func (s *Store) Close() error {
	var closeErr error
	if s.dialect.onClose != "" {
		if _, err := s.db.Exec(s.dialect.onClose); err != nil {
			closeErr = fmt.Errorf("%s: %w", s.dialect.onClose, err)
		}
	}
	return errors.Join(closeErr, s.db.Close())
}

func scanDocuments(collectionPath string, rows *sql.Rows) ([]service.Document, error) {
	defer rows.Close()

	var docs []service.Document
	for rows.Next() {
		var (
			id   string
			data []byte
		)
		if err := rows.Scan(&id, &data); err != nil {
			return nil, wrapError(err)
		}
		path := collectionPath + "/" + id
		fields, err := unmarshal(data)
		if err != nil {
			// Leave the decision to the caller's decoder.
			fields = map[string]any{}
		}
		docs = append(docs, service.Document{ID: id, Path: path, Fields: fields})
	}
	if err := rows.Err(); err != nil {
		return nil, wrapError(err)
	}
	return docs, nil
}

func unmarshal(data []byte) (map[string]any, error) {
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}

func wrapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %v", service.ErrUnavailable, err)
}
