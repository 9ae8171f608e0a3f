// Package sqlite implements the device-local store: a synchronous
// key→JSON record table and the durable sync-queue table, both in one
// SQLite database file.
package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/parlo-app/parlo/internal/domain"
	"github.com/parlo-app/parlo/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS records (
    key        TEXT PRIMARY KEY,
    value      TEXT NOT NULL,
    updated_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS sync_queue (
    op_key     TEXT PRIMARY KEY,
    id         TEXT NOT NULL,
    kind       TEXT NOT NULL,
    record_key TEXT NOT NULL,
    payload    TEXT NOT NULL,
    retries    INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP NOT NULL
);
`

// Store is the SQLite-backed local store. It implements store.KV with
// absorb-and-log semantics (reads and writes never fail from the
// caller's point of view) and store.QueueStore with ordinary error
// returns, since the queue accounts for persistence failures itself.
type Store struct {
	db     *sqlx.DB
	clock  store.Clock
	logger *slog.Logger
}

var (
	_ store.KV         = (*Store)(nil)
	_ store.QueueStore = (*Store)(nil)
)

// Open opens (creating if needed) the database at path and ensures the
// schema. The path ":memory:" yields a throwaway in-memory store.
func Open(path string, clock store.Clock, logger *slog.Logger) (*Store, error) {
	if clock == nil {
		clock = store.SystemClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sqlx.Connect("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}
	// modernc sqlite allows one writer; a single connection avoids
	// SQLITE_BUSY under concurrent queue and scheduler writes.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure local schema: %w", err)
	}

	return &Store{
		db:     db,
		clock:  clock,
		logger: logger.With(slog.String("component", "local_store")),
	}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the raw JSON stored under key.
func (s *Store) Get(key string) (json.RawMessage, bool) {
	var value string
	err := s.db.Get(&value, `SELECT value FROM records WHERE key = ?`, key)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.logger.Error("local read failed", "key", key, "error", err)
		}
		return nil, false
	}
	return json.RawMessage(value), true
}

// Set stores the JSON serialization of value under key.
func (s *Store) Set(key string, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		s.logger.Error("refusing to store unserializable value", "key", key, "error", err)
		return
	}
	_, err = s.db.Exec(`
		INSERT INTO records (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, string(data), s.clock.Now().UTC())
	if err != nil {
		s.logger.Error("local write failed", "key", key, "error", err)
	}
}

// Keys returns every stored key with the given prefix, sorted.
func (s *Store) Keys(prefix string) []string {
	var keys []string
	err := s.db.Select(&keys, `SELECT key FROM records WHERE key LIKE ? ORDER BY key`, prefix+"%")
	if err != nil {
		s.logger.Error("local key scan failed", "prefix", prefix, "error", err)
		return nil
	}
	return keys
}

type queueRow struct {
	OpKey     string    `db:"op_key"`
	ID        string    `db:"id"`
	Kind      string    `db:"kind"`
	RecordKey string    `db:"record_key"`
	Payload   string    `db:"payload"`
	Retries   int       `db:"retries"`
	CreatedAt time.Time `db:"created_at"`
}

// SaveOperation persists a pending operation, replacing any existing
// operation with the same (kind, key) in place: the original creation
// time and queue position are kept, the payload is replaced, and the
// retry count resets.
func (s *Store) SaveOperation(op domain.SyncOperation) error {
	_, err := s.db.Exec(`
		INSERT INTO sync_queue (op_key, id, kind, record_key, payload, retries, created_at)
		VALUES (?, ?, ?, ?, ?, 0, ?)
		ON CONFLICT(op_key) DO UPDATE SET id = excluded.id, payload = excluded.payload, retries = 0`,
		op.DedupeKey(), op.ID.String(), string(op.Kind), op.Key, string(op.Payload), op.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("save sync operation: %w", err)
	}
	return nil
}

// SetRetries records the retry count for the operation under dedupeKey.
func (s *Store) SetRetries(dedupeKey string, retries int) error {
	res, err := s.db.Exec(`UPDATE sync_queue SET retries = ? WHERE op_key = ?`, retries, dedupeKey)
	if err != nil {
		return fmt.Errorf("set retries: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// DeleteOperation removes the operation under dedupeKey. Deleting an
// absent operation is not an error.
func (s *Store) DeleteOperation(dedupeKey string) error {
	if _, err := s.db.Exec(`DELETE FROM sync_queue WHERE op_key = ?`, dedupeKey); err != nil {
		return fmt.Errorf("delete sync operation: %w", err)
	}
	return nil
}

// ListOperations returns every pending operation in enqueue order.
func (s *Store) ListOperations() ([]domain.SyncOperation, error) {
	var rows []queueRow
	err := s.db.Select(&rows, `SELECT op_key, id, kind, record_key, payload, retries, created_at
		FROM sync_queue ORDER BY created_at, rowid`)
	if err != nil {
		return nil, fmt.Errorf("list sync operations: %w", err)
	}

	ops := make([]domain.SyncOperation, 0, len(rows))
	for _, row := range rows {
		id, err := uuid.Parse(row.ID)
		if err != nil {
			s.logger.Warn("skipping queue row with malformed id", "op_key", row.OpKey)
			continue
		}
		ops = append(ops, domain.SyncOperation{
			ID:        id,
			Kind:      domain.OpKind(row.Kind),
			Key:       row.RecordKey,
			Payload:   json.RawMessage(row.Payload),
			Retries:   row.Retries,
			CreatedAt: row.CreatedAt,
		})
	}
	return ops, nil
}

// ClearOperations drops every pending operation.
func (s *Store) ClearOperations() error {
	if _, err := s.db.Exec(`DELETE FROM sync_queue`); err != nil {
		return fmt.Errorf("clear sync queue: %w", err)
	}
	return nil
}
