package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/portops/portsim/internal/db"
	"github.com/portops/portsim/internal/domain"
)

const scheduleColumns = `id, name, ship_visit_id, start_time, end_time, status, resources, notes,
		created_at, updated_at`

// SQLiteScheduleRepo implements ScheduleRepo.
type SQLiteScheduleRepo struct {
	db db.DBTX
}

func NewSQLiteScheduleRepo(db db.DBTX) *SQLiteScheduleRepo {
	return &SQLiteScheduleRepo{db: db}
}

func (r *SQLiteScheduleRepo) Create(ctx context.Context, s *domain.Schedule) error {
	resources, err := encodeValues(s.Resources)
	if err != nil {
		return err
	}
	query := `INSERT INTO schedules (` + scheduleColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = r.db.ExecContext(ctx, query,
		s.ID,
		s.Name,
		nullableString(s.ShipVisitID),
		formatTime(s.StartTime),
		formatTime(s.EndTime),
		string(s.Status),
		resources,
		s.Notes,
		formatTime(s.CreatedAt),
		formatTime(s.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting schedule: %w", err)
	}
	return nil
}

func (r *SQLiteScheduleRepo) GetByID(ctx context.Context, id string) (*domain.Schedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM schedules WHERE id = ?`
	s, err := scanSchedule(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound("schedule", err)
	}
	return s, nil
}

func (r *SQLiteScheduleRepo) List(ctx context.Context) ([]*domain.Schedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM schedules ORDER BY start_time, id`
	return r.list(ctx, "listing schedules", query)
}

func (r *SQLiteScheduleRepo) ListSimulations(ctx context.Context, limit int) ([]*domain.Schedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM schedules
		WHERE instr(ltrim(name), ?) = 1
		ORDER BY created_at DESC, id DESC`
	args := []any{domain.SimulationMarker}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	return r.list(ctx, "listing simulations", query, args...)
}

func (r *SQLiteScheduleRepo) Update(ctx context.Context, s *domain.Schedule) error {
	resources, err := encodeValues(s.Resources)
	if err != nil {
		return err
	}
	query := `UPDATE schedules SET name = ?, ship_visit_id = ?, start_time = ?, end_time = ?, status = ?,
		resources = ?, notes = ?, updated_at = ?
		WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query,
		s.Name,
		nullableString(s.ShipVisitID),
		formatTime(s.StartTime),
		formatTime(s.EndTime),
		string(s.Status),
		resources,
		s.Notes,
		formatTime(s.UpdatedAt),
		s.ID,
	)
	if err != nil {
		return fmt.Errorf("updating schedule: %w", err)
	}
	return requireAffected("schedule", res)
}

func (r *SQLiteScheduleRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM schedules WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting schedule: %w", err)
	}
	return requireAffected("schedule", res)
}

func (r *SQLiteScheduleRepo) list(ctx context.Context, op, query string, args ...any) ([]*domain.Schedule, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var out []*domain.Schedule
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning schedule row: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating schedules: %w", err)
	}
	return out, nil
}

func scanSchedule(row rowScanner) (*domain.Schedule, error) {
	var (
		s                            domain.Schedule
		visitID                      sql.NullString
		status, resources            string
		start, end, created, updated string
	)
	err := row.Scan(&s.ID, &s.Name, &visitID, &start, &end, &status, &resources, &s.Notes, &created, &updated)
	if err != nil {
		return nil, err
	}

	s.ShipVisitID = stringPtr(visitID)
	s.Status = domain.ScheduleStatus(status)
	if s.StartTime, err = parseTime("start_time", start); err != nil {
		return nil, err
	}
	if s.EndTime, err = parseTime("end_time", end); err != nil {
		return nil, err
	}
	if s.CreatedAt, err = parseTime("created_at", created); err != nil {
		return nil, err
	}
	if s.UpdatedAt, err = parseTime("updated_at", updated); err != nil {
		return nil, err
	}
	if s.Resources, err = decodeValues(resources); err != nil {
		return nil, err
	}
	return &s, nil
}
