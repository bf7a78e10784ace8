package sqlstore

// Dialect holds the SQL that differs between database engines.
type Dialect struct {
	Name   string
	Driver string

	schema []string
	get    string
	upsert string
	insert string
	delete string
	list   string
	query  string

	// onClose runs before the pool is closed. Optional.
	onClose string
}

// SQLite is the dialect for github.com/ncruces/go-sqlite3.
var SQLite = Dialect{
	Name:   "sqlite",
	Driver: "sqlite3",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS documents (
			path       TEXT PRIMARY KEY,
			collection TEXT NOT NULL,
			id         TEXT NOT NULL,
			data       TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_documents_collection ON documents(collection)`,
	},
	get: `SELECT data FROM documents WHERE path = ?`,
	upsert: `INSERT INTO documents (path, collection, id, data, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
	insert: `INSERT INTO documents (path, collection, id, data, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(path) DO NOTHING`,
	delete:  `DELETE FROM documents WHERE path = ?`,
	list:    `SELECT id, data FROM documents WHERE collection = ? ORDER BY path`,
	query:   `SELECT id, data FROM documents WHERE collection = ? AND json_extract(data, '$.' || ?) = json_extract(?, '$') ORDER BY path`,
	onClose: `PRAGMA wal_checkpoint(TRUNCATE)`,
}

// Postgres is the dialect for github.com/lib/pq.
var Postgres = Dialect{
	Name:   "postgres",
	Driver: "postgres",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS documents (
			path       TEXT PRIMARY KEY,
			collection TEXT NOT NULL,
			id         TEXT NOT NULL,
			data       JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_documents_collection ON documents(collection)`,
	},
	get: `SELECT data FROM documents WHERE path = $1`,
	upsert: `INSERT INTO documents (path, collection, id, data, updated_at)
		VALUES ($1, $2, $3, $4::jsonb, $5)
		ON CONFLICT (path) DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at`,
	insert: `INSERT INTO documents (path, collection, id, data, updated_at)
		VALUES ($1, $2, $3, $4::jsonb, $5)
		ON CONFLICT (path) DO NOTHING`,
	delete: `DELETE FROM documents WHERE path = $1`,
	list:   `SELECT id, data FROM documents WHERE collection = $1 ORDER BY path`,
	query:  `SELECT id, data FROM documents WHERE collection = $1 AND data -> $2::text = $3::jsonb ORDER BY path`,
}
