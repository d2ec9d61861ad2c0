package db

import (
	"database/sql"
	"fmt"
	"strings"
)

// Migrate applies every schema statement. Statements are idempotent so the
// full list runs on each open.
func Migrate(db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			// ALTER TABLE ADD COLUMN has no IF NOT EXISTS form.
			if strings.Contains(err.Error(), "duplicate column name") {
				continue
			}
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS ship_visits (
		id              TEXT PRIMARY KEY,
		vessel_name     TEXT NOT NULL,
		imo             TEXT NOT NULL DEFAULT '',
		status          TEXT NOT NULL DEFAULT 'PLANNED'
		                CHECK(status IN ('PLANNED','ARRIVED','BERTHED','DEPARTED','CANCELLED')),
		eta             TEXT NOT NULL,
		ata             TEXT,
		etd             TEXT NOT NULL,
		atd             TEXT,
		container_count INTEGER NOT NULL DEFAULT 0,
		berth_id        TEXT,
		created_at      TEXT NOT NULL,
		updated_at      TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS assets (
		id             TEXT PRIMARY KEY,
		name           TEXT NOT NULL,
		type           TEXT NOT NULL
		               CHECK(type IN ('CRANE','TRUCK','REACH_STACKER','STRADDLE_CARRIER','TUGBOAT','PILOT_BOAT','BERTH','OTHER')),
		status         TEXT NOT NULL DEFAULT 'AVAILABLE'
		               CHECK(status IN ('AVAILABLE','IN_USE','MAINTENANCE','OFFLINE')),
		max_capacity   REAL,
		crane_capacity REAL,
		attributes     TEXT NOT NULL DEFAULT '{}',
		created_at     TEXT NOT NULL,
		updated_at     TEXT NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_assets_type ON assets(type)`,

	`CREATE TABLE IF NOT EXISTS schedules (
		id            TEXT PRIMARY KEY,
		name          TEXT NOT NULL,
		ship_visit_id TEXT REFERENCES ship_visits(id) ON DELETE SET NULL,
		start_time    TEXT NOT NULL,
		end_time      TEXT NOT NULL,
		status        TEXT NOT NULL DEFAULT 'PENDING'
		              CHECK(status IN ('PENDING','SCHEDULED','IN_PROGRESS','COMPLETED','CANCELLED')),
		resources     TEXT NOT NULL DEFAULT '{}',
		notes         TEXT NOT NULL DEFAULT '',
		created_at    TEXT NOT NULL,
		updated_at    TEXT NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_schedules_created ON schedules(created_at)`,

	// resource_id carries no foreign key: tasks may name assets that were
	// never imported and the scanner skips those.
	`CREATE TABLE IF NOT EXISTS tasks (
		id           TEXT PRIMARY KEY,
		schedule_id  TEXT REFERENCES schedules(id) ON DELETE CASCADE,
		resource_id  TEXT,
		assignee_id  TEXT,
		title        TEXT NOT NULL DEFAULT '',
		task_type    TEXT NOT NULL DEFAULT '',
		start_time   TEXT NOT NULL,
		end_time     TEXT NOT NULL,
		status       TEXT NOT NULL DEFAULT 'PENDING'
		             CHECK(status IN ('PENDING','ASSIGNED','IN_PROGRESS','COMPLETED','CANCELLED','FAILED')),
		notes        TEXT NOT NULL DEFAULT '',
		predecessors TEXT NOT NULL DEFAULT '[]',
		attributes   TEXT NOT NULL DEFAULT '{}',
		created_at   TEXT NOT NULL,
		updated_at   TEXT NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_tasks_schedule ON tasks(schedule_id)`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_resource ON tasks(resource_id)`,

	// Provenance for simulation clones.
	`ALTER TABLE tasks ADD COLUMN source_task_id TEXT NOT NULL DEFAULT ''`,
}
