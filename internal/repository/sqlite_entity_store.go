package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/alexanderramin/planloom/internal/db"
	"github.com/alexanderramin/planloom/internal/domain"
)

// entityCodec describes how one overlaid entity kind maps onto its base
// table and its delta table. Both tables share the payload column list.
type entityCodec[T any] struct {
	kind       string
	baseTable  string
	deltaTable string
	columns    []string
	id         func(T) string
	values     func(T) []any
	decode     func(id string, cols []sql.NullString) (T, error)
}

// SQLiteEntityStore implements EntityStore for one overlaid entity kind.
type SQLiteEntityStore[T any] struct {
	db    db.DBTX
	codec entityCodec[T]
}

func newSQLiteEntityStore[T any](conn db.DBTX, codec entityCodec[T]) *SQLiteEntityStore[T] {
	return &SQLiteEntityStore[T]{db: conn, codec: codec}
}

func (s *SQLiteEntityStore[T]) payloadList() string {
	return strings.Join(s.codec.columns, ", ")
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func (s *SQLiteEntityStore[T]) ListBase(ctx context.Context) ([]T, error) {
	query := fmt.Sprintf(`SELECT id, %s FROM %s ORDER BY rowid`, s.payloadList(), s.codec.baseTable)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing %ss: %w", s.codec.kind, err)
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		e, err := s.scanBase(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating %ss: %w", s.codec.kind, err)
	}
	return out, nil
}

func (s *SQLiteEntityStore[T]) GetBase(ctx context.Context, id string) (T, error) {
	query := fmt.Sprintf(`SELECT id, %s FROM %s WHERE id = ?`, s.payloadList(), s.codec.baseTable)
	e, err := s.scanBase(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		var zero T
		return zero, err
	}
	return e, nil
}

func (s *SQLiteEntityStore[T]) InsertBase(ctx context.Context, e T) error {
	now := nowUTC()
	query := fmt.Sprintf(`INSERT INTO %s (id, %s, created_at, updated_at) VALUES (%s)`,
		s.codec.baseTable, s.payloadList(), placeholders(len(s.codec.columns)+3))
	args := append([]any{s.codec.id(e)}, s.codec.values(e)...)
	args = append(args, now, now)
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("inserting %s: %w", s.codec.kind, err)
	}
	return nil
}

func (s *SQLiteEntityStore[T]) UpdateBase(ctx context.Context, e T) error {
	sets := make([]string, len(s.codec.columns))
	for i, c := range s.codec.columns {
		sets[i] = c + " = ?"
	}
	query := fmt.Sprintf(`UPDATE %s SET %s, updated_at = ? WHERE id = ?`, s.codec.baseTable, strings.Join(sets, ", "))
	args := append(s.codec.values(e), nowUTC(), s.codec.id(e))
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("updating %s: %w", s.codec.kind, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("updating %s %s: %w", s.codec.kind, s.codec.id(e), domain.ErrNotFound)
	}
	return nil
}

func (s *SQLiteEntityStore[T]) DeleteBase(ctx context.Context, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, s.codec.baseTable)
	if _, err := s.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("deleting %s: %w", s.codec.kind, err)
	}
	return nil
}

const deltaHeader = `id, scenario_id, entity_id, change_type, base_entity_id, created_at, updated_at`

func (s *SQLiteEntityStore[T]) ListDeltas(ctx context.Context, scenarioID string) ([]domain.Delta[T], error) {
	query := fmt.Sprintf(`SELECT %s, %s FROM %s WHERE scenario_id = ? ORDER BY rowid`,
		deltaHeader, s.payloadList(), s.codec.deltaTable)
	rows, err := s.db.QueryContext(ctx, query, scenarioID)
	if err != nil {
		return nil, fmt.Errorf("listing %s deltas: %w", s.codec.kind, err)
	}
	defer rows.Close()

	var out []domain.Delta[T]
	for rows.Next() {
		d, err := s.scanDelta(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating %s deltas: %w", s.codec.kind, err)
	}
	return out, nil
}

func (s *SQLiteEntityStore[T]) GetDelta(ctx context.Context, scenarioID, entityID string) (domain.Delta[T], error) {
	query := fmt.Sprintf(`SELECT %s, %s FROM %s WHERE scenario_id = ? AND entity_id = ?`,
		deltaHeader, s.payloadList(), s.codec.deltaTable)
	return s.scanDelta(s.db.QueryRowContext(ctx, query, scenarioID, entityID))
}

// SaveDelta upserts on (scenario_id, entity_id). An existing row keeps its id
// and created_at.
func (s *SQLiteEntityStore[T]) SaveDelta(ctx context.Context, d domain.Delta[T]) error {
	if err := d.Validate(); err != nil {
		return err
	}
	var payload []any
	if d.ChangeType == domain.ChangeRemoved {
		payload = make([]any, len(s.codec.columns))
	} else {
		payload = s.codec.values(d.Payload)
	}

	updates := []string{"change_type = excluded.change_type", "base_entity_id = excluded.base_entity_id", "updated_at = excluded.updated_at"}
	for _, c := range s.codec.columns {
		updates = append(updates, c+" = excluded."+c)
	}
	query := fmt.Sprintf(`INSERT INTO %s (%s, %s) VALUES (%s)
		ON CONFLICT(scenario_id, entity_id) DO UPDATE SET %s`,
		s.codec.deltaTable, deltaHeader, s.payloadList(),
		placeholders(7+len(s.codec.columns)), strings.Join(updates, ", "))

	now := time.Now().UTC()
	created := d.CreatedAt
	if created.IsZero() {
		created = now
	}
	args := []any{d.ID, d.ScenarioID, d.EntityID, string(d.ChangeType), nullableString(d.BaseEntityID),
		formatTimestamp(created), formatTimestamp(now)}
	args = append(args, payload...)
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("saving %s delta: %w", s.codec.kind, err)
	}
	return nil
}

func (s *SQLiteEntityStore[T]) DeleteDelta(ctx context.Context, scenarioID, entityID string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE scenario_id = ? AND entity_id = ?`, s.codec.deltaTable)
	if _, err := s.db.ExecContext(ctx, query, scenarioID, entityID); err != nil {
		return fmt.Errorf("deleting %s delta: %w", s.codec.kind, err)
	}
	return nil
}

func (s *SQLiteEntityStore[T]) DeleteScenarioDeltas(ctx context.Context, scenarioID string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE scenario_id = ?`, s.codec.deltaTable)
	if _, err := s.db.ExecContext(ctx, query, scenarioID); err != nil {
		return fmt.Errorf("deleting %s deltas for scenario: %w", s.codec.kind, err)
	}
	return nil
}

func (s *SQLiteEntityStore[T]) scanBase(row rowScanner) (T, error) {
	var zero T
	var id string
	cols := make([]sql.NullString, len(s.codec.columns))
	dest := []any{&id}
	for i := range cols {
		dest = append(dest, &cols[i])
	}
	if err := row.Scan(dest...); err != nil {
		return zero, notFound(err, s.codec.kind)
	}
	e, err := s.codec.decode(id, cols)
	if err != nil {
		return zero, fmt.Errorf("decoding %s %s: %w", s.codec.kind, id, err)
	}
	return e, nil
}

func (s *SQLiteEntityStore[T]) scanDelta(row rowScanner) (domain.Delta[T], error) {
	var d domain.Delta[T]
	var changeType string
	var baseID, createdAt, updatedAt sql.NullString
	cols := make([]sql.NullString, len(s.codec.columns))
	dest := []any{&d.ID, &d.ScenarioID, &d.EntityID, &changeType, &baseID, &createdAt, &updatedAt}
	for i := range cols {
		dest = append(dest, &cols[i])
	}
	if err := row.Scan(dest...); err != nil {
		return d, notFound(err, s.codec.kind+" delta")
	}

	d.ChangeType = domain.ChangeType(changeType)
	d.BaseEntityID = stringPtr(baseID)

	var err error
	if d.CreatedAt, err = parseTime(createdAt, time.RFC3339, "created_at"); err != nil {
		return d, err
	}
	if d.UpdatedAt, err = parseTime(updatedAt, time.RFC3339, "updated_at"); err != nil {
		return d, err
	}
	if d.ChangeType != domain.ChangeRemoved {
		if d.Payload, err = s.codec.decode(d.EntityID, cols); err != nil {
			return d, fmt.Errorf("decoding %s delta %s: %w", s.codec.kind, d.ID, err)
		}
	}
	return d, nil
}
