package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/alexanderramin/planloom/internal/db"
	"github.com/alexanderramin/planloom/internal/domain"
)

// ScenarioLock is a held advisory lock row.
type ScenarioLock struct {
	ScenarioID string
	Operation  string
	Token      string
	AcquiredAt time.Time
}

// SQLiteLockRepo implements per-scenario advisory locks on a table so they
// hold across processes sharing the database file.
type SQLiteLockRepo struct {
	db db.DBTX
}

func NewSQLiteLockRepo(conn db.DBTX) *SQLiteLockRepo {
	return &SQLiteLockRepo{db: conn}
}

// TryAcquire inserts the lock row, or takes over a row older than ttl.
// It reports false when a live lock is held by someone else.
func (r *SQLiteLockRepo) TryAcquire(ctx context.Context, scenarioID, operation, token string, now time.Time, ttl time.Duration) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO scenario_locks (scenario_id, operation, token, acquired_at) VALUES (?, ?, ?, ?)`,
		scenarioID, operation, token, formatTimestamp(now))
	if err != nil {
		return false, fmt.Errorf("acquiring scenario lock: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 1 {
		return true, nil
	}

	held, err := r.Get(ctx, scenarioID)
	if errors.Is(err, domain.ErrNotFound) {
		// Released between the insert and the read; one more attempt.
		res, err = r.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO scenario_locks (scenario_id, operation, token, acquired_at) VALUES (?, ?, ?, ?)`,
			scenarioID, operation, token, formatTimestamp(now))
		if err != nil {
			return false, fmt.Errorf("acquiring scenario lock: %w", err)
		}
		n, _ := res.RowsAffected()
		return n == 1, nil
	}
	if err != nil {
		return false, err
	}
	if now.Sub(held.AcquiredAt) < ttl {
		return false, nil
	}

	// Expired: take over only if nobody else did first.
	res, err = r.db.ExecContext(ctx,
		`UPDATE scenario_locks SET operation = ?, token = ?, acquired_at = ? WHERE scenario_id = ? AND token = ?`,
		operation, token, formatTimestamp(now), scenarioID, held.Token)
	if err != nil {
		return false, fmt.Errorf("taking over expired scenario lock: %w", err)
	}
	n, _ := res.RowsAffected()
	return n == 1, nil
}

// Release deletes the lock if it is still held with token.
func (r *SQLiteLockRepo) Release(ctx context.Context, scenarioID, token string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM scenario_locks WHERE scenario_id = ? AND token = ?`, scenarioID, token); err != nil {
		return fmt.Errorf("releasing scenario lock: %w", err)
	}
	return nil
}

func (r *SQLiteLockRepo) Get(ctx context.Context, scenarioID string) (*ScenarioLock, error) {
	var l ScenarioLock
	var acquiredAt sql.NullString
	err := r.db.QueryRowContext(ctx,
		`SELECT scenario_id, operation, token, acquired_at FROM scenario_locks WHERE scenario_id = ?`, scenarioID).
		Scan(&l.ScenarioID, &l.Operation, &l.Token, &acquiredAt)
	if err != nil {
		return nil, notFound(err, "scenario lock")
	}
	if l.AcquiredAt, err = parseTime(acquiredAt, time.RFC3339, "acquired_at"); err != nil {
		return nil, err
	}
	return &l, nil
}
