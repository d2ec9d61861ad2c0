package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/portops/portsim/internal/db"
	"github.com/portops/portsim/internal/domain"
)

const taskColumns = `id, schedule_id, resource_id, assignee_id, title, task_type,
		start_time, end_time, status, notes, predecessors, attributes, source_task_id,
		created_at, updated_at`

// SQLiteTaskRepo implements TaskRepo.
type SQLiteTaskRepo struct {
	db db.DBTX
}

func NewSQLiteTaskRepo(db db.DBTX) *SQLiteTaskRepo {
	return &SQLiteTaskRepo{db: db}
}

func (r *SQLiteTaskRepo) Create(ctx context.Context, t *domain.Task) error {
	preds, err := encodeIDs(t.Predecessors)
	if err != nil {
		return err
	}
	attrs, err := encodeValues(t.Attributes)
	if err != nil {
		return err
	}
	query := `INSERT INTO tasks (` + taskColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = r.db.ExecContext(ctx, query,
		t.ID,
		nullableString(t.ScheduleID),
		nullableString(t.ResourceID),
		nullableString(t.AssigneeID),
		t.Title,
		t.TaskType,
		formatTime(t.StartTime),
		formatTime(t.EndTime),
		string(t.Status),
		t.Notes,
		preds,
		attrs,
		t.SourceTaskID,
		formatTime(t.CreatedAt),
		formatTime(t.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting task: %w", err)
	}
	return nil
}

func (r *SQLiteTaskRepo) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = ?`
	t, err := scanTask(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound("task", err)
	}
	return t, nil
}

func (r *SQLiteTaskRepo) ListBySchedule(ctx context.Context, scheduleID string) ([]*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE schedule_id = ? ORDER BY start_time, id`
	return r.list(ctx, "listing tasks by schedule", query, scheduleID)
}

func (r *SQLiteTaskRepo) ListLiveByResource(ctx context.Context, resourceID string) ([]*domain.Task, error) {
	query := `SELECT ` + aliased("t", taskColumns) + ` FROM tasks t
		LEFT JOIN schedules s ON s.id = t.schedule_id
		WHERE t.resource_id = ?
		  AND (s.id IS NULL OR instr(ltrim(s.name), ?) != 1)
		ORDER BY t.start_time, t.id`
	return r.list(ctx, "listing live tasks by resource", query, resourceID, domain.SimulationMarker)
}

func (r *SQLiteTaskRepo) Update(ctx context.Context, t *domain.Task) error {
	preds, err := encodeIDs(t.Predecessors)
	if err != nil {
		return err
	}
	attrs, err := encodeValues(t.Attributes)
	if err != nil {
		return err
	}
	query := `UPDATE tasks SET schedule_id = ?, resource_id = ?, assignee_id = ?, title = ?, task_type = ?,
		start_time = ?, end_time = ?, status = ?, notes = ?, predecessors = ?, attributes = ?,
		source_task_id = ?, updated_at = ?
		WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query,
		nullableString(t.ScheduleID),
		nullableString(t.ResourceID),
		nullableString(t.AssigneeID),
		t.Title,
		t.TaskType,
		formatTime(t.StartTime),
		formatTime(t.EndTime),
		string(t.Status),
		t.Notes,
		preds,
		attrs,
		t.SourceTaskID,
		formatTime(t.UpdatedAt),
		t.ID,
	)
	if err != nil {
		return fmt.Errorf("updating task: %w", err)
	}
	return requireAffected("task", res)
}

func (r *SQLiteTaskRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting task: %w", err)
	}
	return requireAffected("task", res)
}

func (r *SQLiteTaskRepo) DeleteBySchedule(ctx context.Context, scheduleID string) (int, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE schedule_id = ?`, scheduleID)
	if err != nil {
		return 0, fmt.Errorf("deleting tasks by schedule: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking deleted tasks: %w", err)
	}
	return int(n), nil
}

func (r *SQLiteTaskRepo) list(ctx context.Context, op, query string, args ...any) ([]*domain.Task, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var tasks []*domain.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning task row: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating tasks: %w", err)
	}
	return tasks, nil
}

func scanTask(row rowScanner) (*domain.Task, error) {
	var (
		t                             domain.Task
		scheduleID, resourceID, assID sql.NullString
		status, preds, attrs          string
		start, end, created, updated  string
	)
	err := row.Scan(
		&t.ID, &scheduleID, &resourceID, &assID, &t.Title, &t.TaskType,
		&start, &end, &status, &t.Notes, &preds, &attrs, &t.SourceTaskID,
		&created, &updated,
	)
	if err != nil {
		return nil, err
	}

	t.ScheduleID = stringPtr(scheduleID)
	t.ResourceID = stringPtr(resourceID)
	t.AssigneeID = stringPtr(assID)
	t.Status = domain.TaskStatus(status)

	if t.StartTime, err = parseTime("start_time", start); err != nil {
		return nil, err
	}
	if t.EndTime, err = parseTime("end_time", end); err != nil {
		return nil, err
	}
	if t.CreatedAt, err = parseTime("created_at", created); err != nil {
		return nil, err
	}
	if t.UpdatedAt, err = parseTime("updated_at", updated); err != nil {
		return nil, err
	}
	if t.Predecessors, err = decodeIDs(preds); err != nil {
		return nil, err
	}
	if t.Attributes, err = decodeValues(attrs); err != nil {
		return nil, err
	}
	return &t, nil
}
