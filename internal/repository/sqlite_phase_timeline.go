package repository

import (
	"database/sql"

	"github.com/alexanderramin/planloom/internal/db"
	"github.com/alexanderramin/planloom/internal/domain"
)

var phaseTimelineCodec = entityCodec[domain.PhaseTimeline]{
	kind:       "phase timeline",
	baseTable:  "phase_timelines",
	deltaTable: "scenario_phase_timeline_deltas",
	columns:    []string{"project_id", "phase_id", "start_date", "end_date"},
	id:         func(p domain.PhaseTimeline) string { return p.ID },
	values: func(p domain.PhaseTimeline) []any {
		return []any{p.ProjectID, p.PhaseID, p.StartDate.Format(dateLayout), p.EndDate.Format(dateLayout)}
	},
	decode: func(id string, c []sql.NullString) (domain.PhaseTimeline, error) {
		start, err := parseTime(c[2], dateLayout, "start_date")
		if err != nil {
			return domain.PhaseTimeline{}, err
		}
		end, err := parseTime(c[3], dateLayout, "end_date")
		if err != nil {
			return domain.PhaseTimeline{}, err
		}
		return domain.PhaseTimeline{
			ID:        id,
			ProjectID: c[0].String,
			PhaseID:   c[1].String,
			StartDate: start,
			EndDate:   end,
		}, nil
	},
}

// NewSQLitePhaseTimelineStore creates the phase timeline base/delta store.
func NewSQLitePhaseTimelineStore(conn db.DBTX) *SQLiteEntityStore[domain.PhaseTimeline] {
	return newSQLiteEntityStore(conn, phaseTimelineCodec)
}
