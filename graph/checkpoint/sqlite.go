package checkpoint

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteBackend persists checkpoints in a single-file SQLite database.
//
// Suited for development, testing and single-process workflows that need
// durability without a database server. Uses WAL mode so readers do not
// block the writer, and a single connection because SQLite supports one
// writer at a time.
//
// Pass ":memory:" as the path for an in-memory database (data lost on
// Close), or a file path for durable storage.
type SQLiteBackend struct {
	db *sql.DB
}

// NewSQLiteBackend opens (creating if needed) the database at path and runs
// the schema migration.
func NewSQLiteBackend(path string) (*SQLiteBackend, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite supports one writer at a time
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx := context.Background()
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply %s: %w", pragma, err)
		}
	}

	b := &SQLiteBackend{db: db}
	if err := b.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return b, nil
}

func (b *SQLiteBackend) migrate(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS checkpoints (
	execution_id TEXT NOT NULL,
	sequence     INTEGER NOT NULL,
	created_at   TEXT NOT NULL,
	status       TEXT NOT NULL,
	node_id      TEXT NOT NULL,
	step_count   INTEGER NOT NULL,
	state        TEXT NOT NULL,
	loop_counts  TEXT,
	PRIMARY KEY (execution_id, sequence)
);
CREATE INDEX IF NOT EXISTS idx_checkpoints_created_at
	ON checkpoints(execution_id, created_at);
`
	if _, err := b.db.ExecContext(ctx, schema); err != nil {
		return &IOError{Op: "migrate", Err: err}
	}
	return nil
}

// Save implements Backend. Checkpoints are insert-only; a duplicate
// (execution_id, sequence) is a sequencing bug and surfaces as a constraint
// error.
func (b *SQLiteBackend) Save(ctx context.Context, cp *Checkpoint) error {
	loopCounts, err := marshalLoopCounts(cp.LoopCounts)
	if err != nil {
		return &IOError{Op: "save", Err: err}
	}
	_, err = b.db.ExecContext(ctx, `
		INSERT INTO checkpoints
			(execution_id, sequence, created_at, status, node_id, step_count, state, loop_counts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		cp.ExecutionID, cp.Sequence, cp.CreatedAt.UTC().Format(time.RFC3339Nano),
		cp.Status, cp.NodeID, cp.StepCount, string(cp.State), loopCounts,
	)
	if err != nil {
		return &IOError{Op: "save", Err: err}
	}
	return nil
}

// LoadLatest implements Backend.
func (b *SQLiteBackend) LoadLatest(ctx context.Context, executionID string) (*Checkpoint, error) {
	row := b.db.QueryRowContext(ctx, `
		SELECT execution_id, sequence, created_at, status, node_id, step_count, state, loop_counts
		FROM checkpoints
		WHERE execution_id = ?
		ORDER BY sequence DESC
		LIMIT 1`, executionID)
	cp, err := scanCheckpoint(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, &IOError{Op: "load", Err: err}
	}
	return cp, nil
}

// List implements Backend.
func (b *SQLiteBackend) List(ctx context.Context, executionID string) ([]Meta, error) {
	rows, err := b.db.QueryContext(ctx, `
		SELECT execution_id, sequence, created_at, status, node_id, step_count
		FROM checkpoints
		WHERE execution_id = ?
		ORDER BY sequence DESC`, executionID)
	if err != nil {
		return nil, &IOError{Op: "list", Err: err}
	}
	defer rows.Close()

	var metas []Meta
	for rows.Next() {
		var meta Meta
		var createdAt string
		if err := rows.Scan(&meta.ExecutionID, &meta.Sequence, &createdAt, &meta.Status, &meta.NodeID, &meta.StepCount); err != nil {
			return nil, &IOError{Op: "list", Err: err}
		}
		meta.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, &IOError{Op: "list", Err: err}
		}
		metas = append(metas, meta)
	}
	if err := rows.Err(); err != nil {
		return nil, &IOError{Op: "list", Err: err}
	}
	return metas, nil
}

// Delete implements Backend.
func (b *SQLiteBackend) Delete(ctx context.Context, executionID string, sequence int64) error {
	_, err := b.db.ExecContext(ctx,
		`DELETE FROM checkpoints WHERE execution_id = ? AND sequence = ?`,
		executionID, sequence)
	if err != nil {
		return &IOError{Op: "delete", Err: err}
	}
	return nil
}

// Close closes the underlying database.
func (b *SQLiteBackend) Close() error { return b.db.Close() }

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCheckpoint(row rowScanner) (*Checkpoint, error) {
	var cp Checkpoint
	var createdAt, state string
	var loopCounts sql.NullString
	if err := row.Scan(&cp.ExecutionID, &cp.Sequence, &createdAt, &cp.Status,
		&cp.NodeID, &cp.StepCount, &state, &loopCounts); err != nil {
		return nil, err
	}
	var err error
	cp.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, err
	}
	cp.State = json.RawMessage(state)
	if loopCounts.Valid && loopCounts.String != "" {
		if err := json.Unmarshal([]byte(loopCounts.String), &cp.LoopCounts); err != nil {
			return nil, err
		}
	}
	return &cp, nil
}

func marshalLoopCounts(counts map[string]int) (sql.NullString, error) {
	if len(counts) == 0 {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(counts)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}
