package variables

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Sources recorded with each write.
const (
	SourceLocal = "local"
	SourceMQTT  = "mqtt"
)

// ErrKeyRequired is returned when a key is empty.
var ErrKeyRequired = errors.New("variables: key is required")

// Variable is one stored key with its provenance.
type Variable struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	Source    string    `json:"source"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ChangeFunc is called after a write changes a value.
type ChangeFunc func(key, value, source string)

// Store is the persisted variable store, backed by the variables table.
//
// Values are opaque text. Writers on other processes (the firmware bridge,
// the MQTT mirror) and local writers all go through Set; the last write
// wins.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
type Store struct {
	db *sql.DB

	mu       sync.RWMutex
	watchers []ChangeFunc
}

// NewStore creates a store on an open database with the variables table
// migrated.
//
// Parameters:
//   - db: Open SQLite connection
//
// Returns:
//   - *Store: Store ready for use
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Watch registers fn for change notifications. fn runs on the writer's
// goroutine after the write has committed.
func (s *Store) Watch(fn ChangeFunc) {
	s.mu.Lock()
	s.watchers = append(s.watchers, fn)
	s.mu.Unlock()
}

// Get returns the value stored under key.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - key: Variable name
//
// Returns:
//   - string: Stored value
//   - bool: false when the key is absent
//   - error: Underlying database error
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	if key == "" {
		return "", false, ErrKeyRequired
	}

	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM variables WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("querying variable %s: %w", key, err)
	}
	return value, true, nil
}

// All returns every stored variable ordered by key.
func (s *Store) All(ctx context.Context) ([]Variable, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT key, value, source, updated_at FROM variables ORDER BY key")
	if err != nil {
		return nil, fmt.Errorf("querying variables: %w", err)
	}
	defer rows.Close()

	var vars []Variable
	for rows.Next() {
		var v Variable
		var updatedAt string
		if err := rows.Scan(&v.Key, &v.Value, &v.Source, &updatedAt); err != nil {
			return nil, fmt.Errorf("scanning variable: %w", err)
		}
		v.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt) //nolint:errcheck // zero time on bad rows
		vars = append(vars, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating variables: %w", err)
	}
	return vars, nil
}

// Set stores value under key. Watchers are notified only when the stored
// value actually changed.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - key: Variable name
//   - value: New value text
//   - source: Who wrote it (local, mqtt)
//
// Returns:
//   - error: Underlying database error
func (s *Store) Set(ctx context.Context, key, value, source string) error {
	if key == "" {
		return ErrKeyRequired
	}
	if source == "" {
		source = SourceLocal
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	var current string
	err = tx.QueryRowContext(ctx, "SELECT value FROM variables WHERE key = ?", key).Scan(&current)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return fmt.Errorf("querying variable %s: %w", key, err)
	case current == value:
		return nil
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO variables (key, value, source, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, source = excluded.source, updated_at = excluded.updated_at`,
		key, value, source, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("writing variable %s: %w", key, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing variable %s: %w", key, err)
	}

	s.notify(key, value, source)
	return nil
}

func (s *Store) notify(key, value, source string) {
	s.mu.RLock()
	watchers := append([]ChangeFunc(nil), s.watchers...)
	s.mu.RUnlock()

	for _, fn := range watchers {
		fn(key, value, source)
	}
}
