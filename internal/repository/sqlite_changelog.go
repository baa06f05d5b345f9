package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/alexanderramin/planloom/internal/db"
	"github.com/alexanderramin/planloom/internal/domain"
)

// SQLiteChangeLogRepo appends audit records to change_log.
type SQLiteChangeLogRepo struct {
	db db.DBTX
}

func NewSQLiteChangeLogRepo(conn db.DBTX) *SQLiteChangeLogRepo {
	return &SQLiteChangeLogRepo{db: conn}
}

func (r *SQLiteChangeLogRepo) Append(ctx context.Context, e domain.ChangeEntry) error {
	query := `INSERT INTO change_log (entity_type, entity_id, scenario_id, action, old_value, new_value, actor, at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		string(e.EntityType), e.EntityID, e.ScenarioID, e.Action,
		nullableJSON(e.OldValue), nullableJSON(e.NewValue), e.Actor, formatTimestamp(e.At))
	if err != nil {
		return fmt.Errorf("appending change log entry: %w", err)
	}
	return nil
}

// ListByEntity returns entries for one entity, oldest first.
func (r *SQLiteChangeLogRepo) ListByEntity(ctx context.Context, entityType domain.EntityType, entityID string) ([]domain.ChangeEntry, error) {
	query := `SELECT entity_type, entity_id, scenario_id, action, old_value, new_value, actor, at
		FROM change_log WHERE entity_type = ? AND entity_id = ? ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, string(entityType), entityID)
	if err != nil {
		return nil, fmt.Errorf("listing change log: %w", err)
	}
	defer rows.Close()

	var out []domain.ChangeEntry
	for rows.Next() {
		var e domain.ChangeEntry
		var typ string
		var oldValue, newValue, at sql.NullString
		if err := rows.Scan(&typ, &e.EntityID, &e.ScenarioID, &e.Action, &oldValue, &newValue, &e.Actor, &at); err != nil {
			return nil, fmt.Errorf("scanning change log entry: %w", err)
		}
		e.EntityType = domain.EntityType(typ)
		e.OldValue = rawJSON(oldValue)
		e.NewValue = rawJSON(newValue)
		if e.At, err = parseTime(at, time.RFC3339, "at"); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating change log: %w", err)
	}
	return out, nil
}
