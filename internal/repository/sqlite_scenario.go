package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/alexanderramin/planloom/internal/db"
	"github.com/alexanderramin/planloom/internal/domain"
)

// SQLiteScenarioRepo implements ScenarioRepo using a SQLite database.
type SQLiteScenarioRepo struct {
	db db.DBTX
}

// NewSQLiteScenarioRepo creates a new SQLiteScenarioRepo.
func NewSQLiteScenarioRepo(conn db.DBTX) *SQLiteScenarioRepo {
	return &SQLiteScenarioRepo{db: conn}
}

const scenarioColumns = `id, name, parent_scenario_id, branch_point, status, scenario_type, created_by, created_at, updated_at`

func (r *SQLiteScenarioRepo) Create(ctx context.Context, s *domain.Scenario) error {
	query := `INSERT INTO scenarios (` + scenarioColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		s.ID,
		s.Name,
		nullableString(s.ParentScenarioID),
		nullableTimeToString(s.BranchPoint, time.RFC3339),
		string(s.Status),
		string(s.Type),
		s.CreatedBy,
		formatTimestamp(s.CreatedAt),
		formatTimestamp(s.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting scenario: %w", err)
	}
	return nil
}

func (r *SQLiteScenarioRepo) GetByID(ctx context.Context, id string) (*domain.Scenario, error) {
	query := `SELECT ` + scenarioColumns + ` FROM scenarios WHERE id = ?`
	return r.scanScenario(r.db.QueryRowContext(ctx, query, id))
}

// GetBaseline returns the root scenario.
func (r *SQLiteScenarioRepo) GetBaseline(ctx context.Context) (*domain.Scenario, error) {
	query := `SELECT ` + scenarioColumns + ` FROM scenarios WHERE parent_scenario_id IS NULL`
	return r.scanScenario(r.db.QueryRowContext(ctx, query))
}

func (r *SQLiteScenarioRepo) List(ctx context.Context, includeInactive bool) ([]*domain.Scenario, error) {
	query := `SELECT ` + scenarioColumns + ` FROM scenarios`
	if !includeInactive {
		query += ` WHERE status = 'active'`
	}
	query += ` ORDER BY created_at, rowid`
	return r.queryScenarios(ctx, query)
}

func (r *SQLiteScenarioRepo) ListChildren(ctx context.Context, parentID string) ([]*domain.Scenario, error) {
	query := `SELECT ` + scenarioColumns + ` FROM scenarios WHERE parent_scenario_id = ? ORDER BY created_at, rowid`
	return r.queryScenarios(ctx, query, parentID)
}

func (r *SQLiteScenarioRepo) UpdateStatus(ctx context.Context, id string, status domain.ScenarioStatus) error {
	query := `UPDATE scenarios SET status = ?, updated_at = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query, string(status), nowUTC(), id)
	if err != nil {
		return fmt.Errorf("updating scenario status: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("scenario %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (r *SQLiteScenarioRepo) queryScenarios(ctx context.Context, query string, args ...any) ([]*domain.Scenario, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing scenarios: %w", err)
	}
	defer rows.Close()

	var out []*domain.Scenario
	for rows.Next() {
		s, err := r.scanScenario(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating scenarios: %w", err)
	}
	return out, nil
}

func (r *SQLiteScenarioRepo) scanScenario(row rowScanner) (*domain.Scenario, error) {
	var s domain.Scenario
	var parentID, branchPoint, createdAt, updatedAt sql.NullString
	var status, typ string

	err := row.Scan(&s.ID, &s.Name, &parentID, &branchPoint, &status, &typ, &s.CreatedBy, &createdAt, &updatedAt)
	if err != nil {
		return nil, notFound(err, "scenario")
	}

	s.ParentScenarioID = stringPtr(parentID)
	s.BranchPoint = parseNullableTime(branchPoint, time.RFC3339)
	s.Status = domain.ScenarioStatus(status)
	s.Type = domain.ScenarioType(typ)
	if s.CreatedAt, err = parseTime(createdAt, time.RFC3339, "created_at"); err != nil {
		return nil, err
	}
	if s.UpdatedAt, err = parseTime(updatedAt, time.RFC3339, "updated_at"); err != nil {
		return nil, err
	}
	return &s, nil
}
