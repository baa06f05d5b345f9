package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/alexanderramin/planloom/internal/db"
	"github.com/alexanderramin/planloom/internal/domain"
)

// SQLiteConflictRepo implements ConflictRepo using a SQLite database.
type SQLiteConflictRepo struct {
	db db.DBTX
}

func NewSQLiteConflictRepo(conn db.DBTX) *SQLiteConflictRepo {
	return &SQLiteConflictRepo{db: conn}
}

const conflictColumns = `id, source_scenario_id, target_scenario_id, conflict_type, entity_type, entity_id,
	base_data, source_data, target_data, resolution, resolved_data, resolved_by, resolved_at, created_at`

// Save upserts on (source, target, conflict_type, entity_id). An existing row
// keeps its id.
func (r *SQLiteConflictRepo) Save(ctx context.Context, c *domain.MergeConflict) error {
	query := `INSERT INTO merge_conflicts (` + conflictColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(source_scenario_id, target_scenario_id, conflict_type, entity_id) DO UPDATE SET
			base_data = excluded.base_data,
			source_data = excluded.source_data,
			target_data = excluded.target_data,
			resolution = excluded.resolution,
			resolved_data = excluded.resolved_data,
			resolved_by = excluded.resolved_by,
			resolved_at = excluded.resolved_at`
	created := c.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	kind := c.Resolution.Kind
	if kind == "" {
		kind = domain.ResolutionPending
	}
	_, err := r.db.ExecContext(ctx, query,
		c.ID, c.SourceScenarioID, c.TargetScenarioID, string(c.ConflictType), string(c.EntityType), c.EntityID,
		nullableJSON(c.BaseData), nullableJSON(c.SourceData), nullableJSON(c.TargetData),
		string(kind), nullableJSON(c.Resolution.Data), c.ResolvedBy,
		nullableTimeToString(c.ResolvedAt, time.RFC3339), formatTimestamp(created),
	)
	if err != nil {
		return fmt.Errorf("saving merge conflict: %w", err)
	}
	return nil
}

func (r *SQLiteConflictRepo) GetByID(ctx context.Context, id string) (*domain.MergeConflict, error) {
	query := `SELECT ` + conflictColumns + ` FROM merge_conflicts WHERE id = ?`
	return r.scanConflict(r.db.QueryRowContext(ctx, query, id))
}

// ListByPair returns conflicts recorded for merging source into target,
// ordered by conflict type then entity id.
func (r *SQLiteConflictRepo) ListByPair(ctx context.Context, sourceID, targetID string) ([]*domain.MergeConflict, error) {
	query := `SELECT ` + conflictColumns + ` FROM merge_conflicts
		WHERE source_scenario_id = ? AND target_scenario_id = ?
		ORDER BY conflict_type, entity_id`
	rows, err := r.db.QueryContext(ctx, query, sourceID, targetID)
	if err != nil {
		return nil, fmt.Errorf("listing merge conflicts: %w", err)
	}
	defer rows.Close()

	var out []*domain.MergeConflict
	for rows.Next() {
		c, err := r.scanConflict(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating merge conflicts: %w", err)
	}
	return out, nil
}

func (r *SQLiteConflictRepo) Resolve(ctx context.Context, id string, res domain.Resolution, by string, at time.Time) error {
	query := `UPDATE merge_conflicts SET resolution = ?, resolved_data = ?, resolved_by = ?, resolved_at = ? WHERE id = ?`
	result, err := r.db.ExecContext(ctx, query, string(res.Kind), nullableJSON(res.Data), by, formatTimestamp(at), id)
	if err != nil {
		return fmt.Errorf("resolving merge conflict: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("merge conflict %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// DeleteStale removes conflicts for the pair whose entity ids are not in keep.
func (r *SQLiteConflictRepo) DeleteStale(ctx context.Context, sourceID, targetID string, keep map[string]bool) error {
	existing, err := r.ListByPair(ctx, sourceID, targetID)
	if err != nil {
		return err
	}
	for _, c := range existing {
		if keep[c.ID] {
			continue
		}
		if _, err := r.db.ExecContext(ctx, `DELETE FROM merge_conflicts WHERE id = ?`, c.ID); err != nil {
			return fmt.Errorf("deleting stale merge conflict: %w", err)
		}
	}
	return nil
}

func (r *SQLiteConflictRepo) scanConflict(row rowScanner) (*domain.MergeConflict, error) {
	var c domain.MergeConflict
	var conflictType, entityType, resolution string
	var baseData, sourceData, targetData, resolvedData, resolvedBy, resolvedAt, createdAt sql.NullString

	err := row.Scan(&c.ID, &c.SourceScenarioID, &c.TargetScenarioID, &conflictType, &entityType, &c.EntityID,
		&baseData, &sourceData, &targetData, &resolution, &resolvedData, &resolvedBy, &resolvedAt, &createdAt)
	if err != nil {
		return nil, notFound(err, "merge conflict")
	}

	c.ConflictType = domain.ConflictType(conflictType)
	c.EntityType = domain.EntityType(entityType)
	c.BaseData = rawJSON(baseData)
	c.SourceData = rawJSON(sourceData)
	c.TargetData = rawJSON(targetData)
	c.Resolution = domain.Resolution{Kind: domain.ResolutionKind(resolution), Data: rawJSON(resolvedData)}
	c.ResolvedBy = resolvedBy.String
	c.ResolvedAt = parseNullableTime(resolvedAt, time.RFC3339)
	if c.CreatedAt, err = parseTime(createdAt, time.RFC3339, "created_at"); err != nil {
		return nil, err
	}
	return &c, nil
}
