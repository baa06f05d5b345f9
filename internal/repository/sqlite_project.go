package repository

import (
	"database/sql"

	"github.com/alexanderramin/planloom/internal/db"
	"github.com/alexanderramin/planloom/internal/domain"
)

var projectCodec = entityCodec[domain.Project]{
	kind:       "project",
	baseTable:  "projects",
	deltaTable: "scenario_project_deltas",
	columns:    []string{"name", "status", "start_date", "target_date", "description"},
	id:         func(p domain.Project) string { return p.ID },
	values: func(p domain.Project) []any {
		return []any{
			p.Name,
			string(p.Status),
			nullableTimeToString(p.StartDate, dateLayout),
			nullableTimeToString(p.TargetDate, dateLayout),
			p.Description,
		}
	},
	decode: func(id string, c []sql.NullString) (domain.Project, error) {
		return domain.Project{
			ID:          id,
			Name:        c[0].String,
			Status:      domain.ProjectStatus(c[1].String),
			StartDate:   parseNullableTime(c[2], dateLayout),
			TargetDate:  parseNullableTime(c[3], dateLayout),
			Description: c[4].String,
		}, nil
	},
}

// NewSQLiteProjectStore creates the project base/delta store.
func NewSQLiteProjectStore(conn db.DBTX) *SQLiteEntityStore[domain.Project] {
	return newSQLiteEntityStore(conn, projectCodec)
}
