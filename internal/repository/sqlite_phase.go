package repository

import (
	"context"
	"fmt"

	"github.com/alexanderramin/planloom/internal/db"
	"github.com/alexanderramin/planloom/internal/domain"
)

// SQLitePhaseRepo stores the global phase catalog.
type SQLitePhaseRepo struct {
	db db.DBTX
}

func NewSQLitePhaseRepo(conn db.DBTX) *SQLitePhaseRepo {
	return &SQLitePhaseRepo{db: conn}
}

func (r *SQLitePhaseRepo) Create(ctx context.Context, p *domain.Phase) error {
	query := `INSERT INTO phases (id, name, sort_order) VALUES (?, ?, ?)`
	if _, err := r.db.ExecContext(ctx, query, p.ID, p.Name, p.SortOrder); err != nil {
		return fmt.Errorf("inserting phase: %w", err)
	}
	return nil
}

func (r *SQLitePhaseRepo) GetByID(ctx context.Context, id string) (*domain.Phase, error) {
	var p domain.Phase
	err := r.db.QueryRowContext(ctx, `SELECT id, name, sort_order FROM phases WHERE id = ?`, id).
		Scan(&p.ID, &p.Name, &p.SortOrder)
	if err != nil {
		return nil, notFound(err, "phase")
	}
	return &p, nil
}

// GetByName matches case-insensitively.
func (r *SQLitePhaseRepo) GetByName(ctx context.Context, name string) (*domain.Phase, error) {
	var p domain.Phase
	err := r.db.QueryRowContext(ctx, `SELECT id, name, sort_order FROM phases WHERE LOWER(name) = LOWER(?)`, name).
		Scan(&p.ID, &p.Name, &p.SortOrder)
	if err != nil {
		return nil, notFound(err, "phase")
	}
	return &p, nil
}

func (r *SQLitePhaseRepo) List(ctx context.Context) ([]*domain.Phase, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, sort_order FROM phases ORDER BY sort_order, name`)
	if err != nil {
		return nil, fmt.Errorf("listing phases: %w", err)
	}
	defer rows.Close()

	var out []*domain.Phase
	for rows.Next() {
		var p domain.Phase
		if err := rows.Scan(&p.ID, &p.Name, &p.SortOrder); err != nil {
			return nil, fmt.Errorf("scanning phase: %w", err)
		}
		out = append(out, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating phases: %w", err)
	}
	return out, nil
}

// NextSortOrder returns one past the highest sort order in the catalog.
func (r *SQLitePhaseRepo) NextSortOrder(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(sort_order), 0) + 1 FROM phases`).Scan(&n); err != nil {
		return 0, fmt.Errorf("reading phase sort order: %w", err)
	}
	return n, nil
}
