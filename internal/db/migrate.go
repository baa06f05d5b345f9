package db

import (
	"database/sql"
	"fmt"
)

// Migrate runs all schema migrations. Every statement is idempotent so the
// whole list is replayed on each open.
func Migrate(db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS scenarios (
		id                 TEXT PRIMARY KEY,
		name               TEXT NOT NULL,
		parent_scenario_id TEXT REFERENCES scenarios(id),
		branch_point       TEXT,
		status             TEXT NOT NULL DEFAULT 'active'
		                   CHECK(status IN ('active','archived','merged')),
		scenario_type      TEXT NOT NULL
		                   CHECK(scenario_type IN ('baseline','branch','sandbox')),
		created_by         TEXT NOT NULL DEFAULT '',
		created_at         TEXT NOT NULL,
		updated_at         TEXT NOT NULL,
		CHECK(parent_scenario_id IS NULL OR parent_scenario_id != id)
	)`,

	// At most one root per store.
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_scenarios_single_baseline
		ON scenarios(scenario_type) WHERE parent_scenario_id IS NULL`,
	`CREATE INDEX IF NOT EXISTS idx_scenarios_parent ON scenarios(parent_scenario_id)`,

	`CREATE TABLE IF NOT EXISTS people (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		role       TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS phases (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL UNIQUE,
		sort_order INTEGER NOT NULL DEFAULT 0
	)`,

	`CREATE TABLE IF NOT EXISTS projects (
		id          TEXT PRIMARY KEY,
		name        TEXT NOT NULL,
		status      TEXT NOT NULL DEFAULT 'active'
		            CHECK(status IN ('active','paused','done','archived')),
		start_date  TEXT,
		target_date TEXT,
		description TEXT NOT NULL DEFAULT '',
		created_at  TEXT NOT NULL,
		updated_at  TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS phase_timelines (
		id         TEXT PRIMARY KEY,
		project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		phase_id   TEXT NOT NULL REFERENCES phases(id),
		start_date TEXT NOT NULL,
		end_date   TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		CHECK(start_date <= end_date)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_phase_timelines_project ON phase_timelines(project_id)`,

	`CREATE TABLE IF NOT EXISTS assignments (
		id         TEXT PRIMARY KEY,
		project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		person_id  TEXT NOT NULL REFERENCES people(id),
		role       TEXT NOT NULL DEFAULT '',
		allocation INTEGER NOT NULL DEFAULT 100 CHECK(allocation BETWEEN 0 AND 100),
		start_date TEXT,
		end_date   TEXT,
		notes      TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_assignments_project ON assignments(project_id)`,

	// Delta tables: payload columns are NULL for removed rows.
	`CREATE TABLE IF NOT EXISTS scenario_project_deltas (
		id             TEXT PRIMARY KEY,
		scenario_id    TEXT NOT NULL REFERENCES scenarios(id) ON DELETE CASCADE,
		entity_id      TEXT NOT NULL,
		change_type    TEXT NOT NULL CHECK(change_type IN ('added','modified','removed')),
		base_entity_id TEXT,
		name           TEXT,
		status         TEXT,
		start_date     TEXT,
		target_date    TEXT,
		description    TEXT,
		created_at     TEXT NOT NULL,
		updated_at     TEXT NOT NULL,
		UNIQUE(scenario_id, entity_id),
		CHECK((change_type = 'added') = (base_entity_id IS NULL))
	)`,

	`CREATE TABLE IF NOT EXISTS scenario_phase_timeline_deltas (
		id             TEXT PRIMARY KEY,
		scenario_id    TEXT NOT NULL REFERENCES scenarios(id) ON DELETE CASCADE,
		entity_id      TEXT NOT NULL,
		change_type    TEXT NOT NULL CHECK(change_type IN ('added','modified','removed')),
		base_entity_id TEXT,
		project_id     TEXT,
		phase_id       TEXT,
		start_date     TEXT,
		end_date       TEXT,
		created_at     TEXT NOT NULL,
		updated_at     TEXT NOT NULL,
		UNIQUE(scenario_id, entity_id),
		CHECK((change_type = 'added') = (base_entity_id IS NULL)),
		CHECK(start_date IS NULL OR end_date IS NULL OR start_date <= end_date)
	)`,

	`CREATE TABLE IF NOT EXISTS scenario_assignment_deltas (
		id             TEXT PRIMARY KEY,
		scenario_id    TEXT NOT NULL REFERENCES scenarios(id) ON DELETE CASCADE,
		entity_id      TEXT NOT NULL,
		change_type    TEXT NOT NULL CHECK(change_type IN ('added','modified','removed')),
		base_entity_id TEXT,
		project_id     TEXT,
		person_id      TEXT,
		role           TEXT,
		allocation     INTEGER,
		start_date     TEXT,
		end_date       TEXT,
		notes          TEXT,
		created_at     TEXT NOT NULL,
		updated_at     TEXT NOT NULL,
		UNIQUE(scenario_id, entity_id),
		CHECK((change_type = 'added') = (base_entity_id IS NULL))
	)`,

	`CREATE TABLE IF NOT EXISTS phase_dependencies (
		id                            TEXT PRIMARY KEY,
		scenario_id                   TEXT NOT NULL REFERENCES scenarios(id) ON DELETE CASCADE,
		project_id                    TEXT NOT NULL,
		predecessor_phase_timeline_id TEXT NOT NULL,
		successor_phase_timeline_id   TEXT NOT NULL,
		dependency_type               TEXT NOT NULL DEFAULT 'FS'
		                              CHECK(dependency_type IN ('FS','SS','FF','SF')),
		lag_days                      INTEGER NOT NULL DEFAULT 0,
		created_at                    TEXT NOT NULL,
		UNIQUE(scenario_id, predecessor_phase_timeline_id, successor_phase_timeline_id),
		CHECK(predecessor_phase_timeline_id != successor_phase_timeline_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_phase_dependencies_project ON phase_dependencies(project_id)`,

	`CREATE TABLE IF NOT EXISTS scenario_branch_snapshots (
		scenario_id TEXT NOT NULL REFERENCES scenarios(id) ON DELETE CASCADE,
		entity_type TEXT NOT NULL,
		payload     TEXT NOT NULL,
		taken_at    TEXT NOT NULL,
		PRIMARY KEY (scenario_id, entity_type)
	)`,

	`CREATE TABLE IF NOT EXISTS merge_conflicts (
		id                 TEXT PRIMARY KEY,
		source_scenario_id TEXT NOT NULL REFERENCES scenarios(id) ON DELETE CASCADE,
		target_scenario_id TEXT NOT NULL REFERENCES scenarios(id) ON DELETE CASCADE,
		conflict_type      TEXT NOT NULL
		                   CHECK(conflict_type IN ('assignment','phase_timeline','project_details')),
		entity_type        TEXT NOT NULL,
		entity_id          TEXT NOT NULL,
		base_data          TEXT,
		source_data        TEXT,
		target_data        TEXT,
		resolution         TEXT NOT NULL DEFAULT 'pending'
		                   CHECK(resolution IN ('pending','use_source','use_target','manual')),
		resolved_data      TEXT,
		resolved_by        TEXT,
		resolved_at        TEXT,
		created_at         TEXT NOT NULL,
		UNIQUE(source_scenario_id, target_scenario_id, conflict_type, entity_id)
	)`,

	`CREATE TABLE IF NOT EXISTS scenario_locks (
		scenario_id TEXT PRIMARY KEY,
		operation   TEXT NOT NULL,
		token       TEXT NOT NULL,
		acquired_at TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS change_log (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		entity_type TEXT NOT NULL,
		entity_id   TEXT NOT NULL,
		scenario_id TEXT NOT NULL DEFAULT '',
		action      TEXT NOT NULL,
		old_value   TEXT,
		new_value   TEXT,
		actor       TEXT NOT NULL DEFAULT '',
		at          TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_change_log_entity ON change_log(entity_type, entity_id)`,
}
