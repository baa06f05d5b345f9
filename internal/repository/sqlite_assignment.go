package repository

import (
	"database/sql"

	"github.com/alexanderramin/planloom/internal/db"
	"github.com/alexanderramin/planloom/internal/domain"
)

var assignmentCodec = entityCodec[domain.Assignment]{
	kind:       "assignment",
	baseTable:  "assignments",
	deltaTable: "scenario_assignment_deltas",
	columns:    []string{"project_id", "person_id", "role", "allocation", "start_date", "end_date", "notes"},
	id:         func(a domain.Assignment) string { return a.ID },
	values: func(a domain.Assignment) []any {
		return []any{
			a.ProjectID,
			a.PersonID,
			a.Role,
			a.Allocation,
			nullableTimeToString(a.StartDate, dateLayout),
			nullableTimeToString(a.EndDate, dateLayout),
			a.Notes,
		}
	},
	decode: func(id string, c []sql.NullString) (domain.Assignment, error) {
		alloc, err := parseNullableInt(c[3], "allocation")
		if err != nil {
			return domain.Assignment{}, err
		}
		return domain.Assignment{
			ID:         id,
			ProjectID:  c[0].String,
			PersonID:   c[1].String,
			Role:       c[2].String,
			Allocation: alloc,
			StartDate:  parseNullableTime(c[4], dateLayout),
			EndDate:    parseNullableTime(c[5], dateLayout),
			Notes:      c[6].String,
		}, nil
	},
}

// NewSQLiteAssignmentStore creates the assignment base/delta store.
func NewSQLiteAssignmentStore(conn db.DBTX) *SQLiteEntityStore[domain.Assignment] {
	return newSQLiteEntityStore(conn, assignmentCodec)
}
