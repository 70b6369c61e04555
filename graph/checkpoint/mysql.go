package checkpoint

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// MySQLBackend persists checkpoints in MySQL/MariaDB.
//
// Suited for production workflows that must survive process restarts and for
// deployments where multiple workers resume executions from shared storage.
// Uses connection pooling; each checkpoint row is immutable once written.
type MySQLBackend struct {
	db *sql.DB
}

// NewMySQLBackend opens a connection pool for the given DSN and runs the
// schema migration. The DSN must include parseTime=true so DATETIME columns
// scan into time.Time:
//
//	user:pass@tcp(localhost:3306)/workflows?parseTime=true
//
// Never hardcode credentials; read the DSN from the environment.
func NewMySQLBackend(dsn string) (*MySQLBackend, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("open mysql connection: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping mysql: %w", err)
	}

	b := &MySQLBackend{db: db}
	if err := b.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return b, nil
}

func (b *MySQLBackend) migrate(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS checkpoints (
	execution_id VARCHAR(255) NOT NULL,
	sequence     BIGINT NOT NULL,
	created_at   DATETIME(6) NOT NULL,
	status       VARCHAR(32) NOT NULL,
	node_id      VARCHAR(255) NOT NULL,
	step_count   INT NOT NULL,
	state        LONGTEXT NOT NULL,
	loop_counts  TEXT,
	PRIMARY KEY (execution_id, sequence),
	INDEX idx_checkpoints_created_at (execution_id, created_at)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`
	if _, err := b.db.ExecContext(ctx, schema); err != nil {
		return &IOError{Op: "migrate", Err: err}
	}
	return nil
}

// Save implements Backend.
func (b *MySQLBackend) Save(ctx context.Context, cp *Checkpoint) error {
	loopCounts, err := marshalLoopCounts(cp.LoopCounts)
	if err != nil {
		return &IOError{Op: "save", Err: err}
	}
	_, err = b.db.ExecContext(ctx, `
		INSERT INTO checkpoints
			(execution_id, sequence, created_at, status, node_id, step_count, state, loop_counts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		cp.ExecutionID, cp.Sequence, cp.CreatedAt.UTC(),
		cp.Status, cp.NodeID, cp.StepCount, string(cp.State), loopCounts,
	)
	if err != nil {
		return &IOError{Op: "save", Err: err}
	}
	return nil
}

// LoadLatest implements Backend.
func (b *MySQLBackend) LoadLatest(ctx context.Context, executionID string) (*Checkpoint, error) {
	row := b.db.QueryRowContext(ctx, `
		SELECT execution_id, sequence, created_at, status, node_id, step_count, state, loop_counts
		FROM checkpoints
		WHERE execution_id = ?
		ORDER BY sequence DESC
		LIMIT 1`, executionID)

	var cp Checkpoint
	var state string
	var loopCounts sql.NullString
	err := row.Scan(&cp.ExecutionID, &cp.Sequence, &cp.CreatedAt, &cp.Status,
		&cp.NodeID, &cp.StepCount, &state, &loopCounts)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, &IOError{Op: "load", Err: err}
	}
	cp.State = json.RawMessage(state)
	if loopCounts.Valid && loopCounts.String != "" {
		if err := json.Unmarshal([]byte(loopCounts.String), &cp.LoopCounts); err != nil {
			return nil, &IOError{Op: "load", Err: err}
		}
	}
	return &cp, nil
}

// List implements Backend.
func (b *MySQLBackend) List(ctx context.Context, executionID string) ([]Meta, error) {
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
		if err := rows.Scan(&meta.ExecutionID, &meta.Sequence, &meta.CreatedAt, &meta.Status, &meta.NodeID, &meta.StepCount); err != nil {
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
func (b *MySQLBackend) Delete(ctx context.Context, executionID string, sequence int64) error {
	_, err := b.db.ExecContext(ctx,
		`DELETE FROM checkpoints WHERE execution_id = ? AND sequence = ?`,
		executionID, sequence)
	if err != nil {
		return &IOError{Op: "delete", Err: err}
	}
	return nil
}

// Close closes the underlying connection pool.
func (b *MySQLBackend) Close() error { return b.db.Close() }
