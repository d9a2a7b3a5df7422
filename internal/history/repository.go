package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nerrad567/ace-core/internal/ace"
)

const (
	defaultLimit = 50
	maxLimit     = 200
)

// Entry is one recorded state snapshot.
type Entry struct {
	ID        int64           `json:"id"`
	State     ace.DeviceState `json:"state"`
	Source    ace.Source      `json:"source"`
	CreatedAt time.Time       `json:"created_at"`
}

// Repository stores state snapshots as JSON in the ace_state_history table.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repository on an open, migrated database.
//
// Parameters:
//   - db: Open SQLite connection used for queries
//
// Returns:
//   - *Repository: Repository instance ready for use
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Record inserts a snapshot.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - state: Snapshot to persist
//   - source: Which writer produced it
//
// Returns:
//   - error: nil on success, otherwise the underlying database error
func (r *Repository) Record(ctx context.Context, state ace.DeviceState, source ace.Source) error {
	if source == "" {
		source = ace.SourceDevice
	}

	stateJSON, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshalling state: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		"INSERT INTO ace_state_history (state, source, created_at) VALUES (?, ?, ?)",
		string(stateJSON),
		string(source),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting state history: %w", err)
	}
	return nil
}

// List returns recent snapshots, newest first.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - limit: Maximum entries to return (default 50, max 200)
//
// Returns:
//   - []Entry: Entries ordered by created_at DESC
//   - error: nil on success, otherwise the underlying query error
func (r *Repository) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, state, source, created_at
		 FROM ace_state_history
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying state history: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0, limit)
	for rows.Next() {
		var entry Entry
		var stateJSON, source, createdAt string

		if err := rows.Scan(&entry.ID, &stateJSON, &source, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning state history: %w", err)
		}
		if err := json.Unmarshal([]byte(stateJSON), &entry.State); err != nil {
			return nil, fmt.Errorf("unmarshalling state: %w", err)
		}
		entry.Source = ace.Source(source)

		timestamp, err := parseTimestamp(createdAt)
		if err != nil {
			return nil, err
		}
		entry.CreatedAt = timestamp

		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating state history: %w", err)
	}

	return entries, nil
}

// Prune deletes entries older than olderThan.
//
// Returns:
//   - int64: Number of rows deleted
//   - error: nil on success, otherwise the underlying database error
func (r *Repository) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, fmt.Errorf("olderThan must be positive")
	}

	cutoff := time.Now().UTC().Add(-olderThan).Format(time.RFC3339)
	result, err := r.db.ExecContext(ctx, "DELETE FROM ace_state_history WHERE created_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("deleting state history: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking rows affected: %w", err)
	}
	return n, nil
}

// parseTimestamp parses a timestamp stored in SQLite.
func parseTimestamp(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("created_at is empty")
	}
	timestamp, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing created_at: %w", err)
	}
	return timestamp, nil
}
