package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/alexanderramin/planloom/internal/db"
	"github.com/alexanderramin/planloom/internal/domain"
)

// SQLiteSnapshotRepo stores branch-point snapshots as one JSON document per
// (scenario, entity type) bucket.
type SQLiteSnapshotRepo struct {
	db db.DBTX
}

func NewSQLiteSnapshotRepo(conn db.DBTX) *SQLiteSnapshotRepo {
	return &SQLiteSnapshotRepo{db: conn}
}

func (r *SQLiteSnapshotRepo) Save(ctx context.Context, scenarioID string, entityType domain.EntityType, payload []byte, takenAt time.Time) error {
	query := `INSERT INTO scenario_branch_snapshots (scenario_id, entity_type, payload, taken_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(scenario_id, entity_type) DO UPDATE SET payload = excluded.payload, taken_at = excluded.taken_at`
	if _, err := r.db.ExecContext(ctx, query, scenarioID, string(entityType), string(payload), formatTimestamp(takenAt)); err != nil {
		return fmt.Errorf("saving %s snapshot: %w", entityType, err)
	}
	return nil
}

// Get returns the raw JSON payload, or a wrapped domain.ErrNotFound.
func (r *SQLiteSnapshotRepo) Get(ctx context.Context, scenarioID string, entityType domain.EntityType) ([]byte, error) {
	var payload string
	query := `SELECT payload FROM scenario_branch_snapshots WHERE scenario_id = ? AND entity_type = ?`
	if err := r.db.QueryRowContext(ctx, query, scenarioID, string(entityType)).Scan(&payload); err != nil {
		return nil, notFound(err, string(entityType)+" snapshot")
	}
	return []byte(payload), nil
}
