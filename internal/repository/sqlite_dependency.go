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

// SQLiteDependencyRepo implements DependencyRepo using a SQLite database.
type SQLiteDependencyRepo struct {
	db db.DBTX
}

// NewSQLiteDependencyRepo creates a new SQLiteDependencyRepo.
func NewSQLiteDependencyRepo(conn db.DBTX) *SQLiteDependencyRepo {
	return &SQLiteDependencyRepo{db: conn}
}

const dependencyColumns = `id, scenario_id, project_id, predecessor_phase_timeline_id, successor_phase_timeline_id, dependency_type, lag_days, created_at`

func (r *SQLiteDependencyRepo) Create(ctx context.Context, d *domain.Dependency) error {
	query := `INSERT INTO phase_dependencies (` + dependencyColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	created := d.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, query,
		d.ID, d.ScenarioID, d.ProjectID, d.PredecessorID, d.SuccessorID,
		string(d.Type), d.LagDays, formatTimestamp(created),
	)
	if err != nil {
		return fmt.Errorf("inserting dependency: %w", err)
	}
	return nil
}

func (r *SQLiteDependencyRepo) GetByID(ctx context.Context, id string) (*domain.Dependency, error) {
	query := `SELECT ` + dependencyColumns + ` FROM phase_dependencies WHERE id = ?`
	return r.scanDependency(r.db.QueryRowContext(ctx, query, id))
}

// Update rewrites type and lag. Endpoints are immutable; re-pointing an edge
// is a delete plus create.
func (r *SQLiteDependencyRepo) Update(ctx context.Context, d *domain.Dependency) error {
	query := `UPDATE phase_dependencies SET dependency_type = ?, lag_days = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query, string(d.Type), d.LagDays, d.ID)
	if err != nil {
		return fmt.Errorf("updating dependency: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("dependency %s: %w", d.ID, domain.ErrNotFound)
	}
	return nil
}

func (r *SQLiteDependencyRepo) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM phase_dependencies WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting dependency: %w", err)
	}
	return nil
}

func (r *SQLiteDependencyRepo) DeleteByScenario(ctx context.Context, scenarioID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM phase_dependencies WHERE scenario_id = ?`, scenarioID); err != nil {
		return fmt.Errorf("deleting scenario dependencies: %w", err)
	}
	return nil
}

// ListByScenarios returns every dependency owned by any of the given
// scenarios, ordered by creation.
func (r *SQLiteDependencyRepo) ListByScenarios(ctx context.Context, scenarioIDs []string) ([]domain.Dependency, error) {
	if len(scenarioIDs) == 0 {
		return nil, nil
	}
	query := `SELECT ` + dependencyColumns + ` FROM phase_dependencies
		WHERE scenario_id IN (` + strings.TrimSuffix(strings.Repeat("?,", len(scenarioIDs)), ",") + `)
		ORDER BY created_at, rowid`
	args := make([]any, len(scenarioIDs))
	for i, id := range scenarioIDs {
		args[i] = id
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing dependencies: %w", err)
	}
	defer rows.Close()
	return r.scanDependencies(rows)
}

// scanDependencies scans multiple dependency rows from *sql.Rows.
func (r *SQLiteDependencyRepo) scanDependencies(rows *sql.Rows) ([]domain.Dependency, error) {
	var deps []domain.Dependency
	for rows.Next() {
		d, err := r.scanDependency(rows)
		if err != nil {
			return nil, err
		}
		deps = append(deps, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating dependencies: %w", err)
	}
	return deps, nil
}

func (r *SQLiteDependencyRepo) scanDependency(row rowScanner) (*domain.Dependency, error) {
	var d domain.Dependency
	var typ string
	var createdAt sql.NullString
	err := row.Scan(&d.ID, &d.ScenarioID, &d.ProjectID, &d.PredecessorID, &d.SuccessorID, &typ, &d.LagDays, &createdAt)
	if err != nil {
		return nil, notFound(err, "dependency")
	}
	d.Type = domain.DependencyType(typ)
	if d.CreatedAt, err = parseTime(createdAt, time.RFC3339, "created_at"); err != nil {
		return nil, err
	}
	return &d, nil
}
