package domain

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// Task is a unit of port work bound to a time window. EndTime after StartTime
// is expected but not enforced; the conflict scanner flags violating tasks.
type Task struct {
	ID         string  `json:"id"`
	ScheduleID *string `json:"scheduleId,omitempty"`
	ResourceID *string `json:"resourceId,omitempty"`
	AssigneeID *string `json:"assigneeId,omitempty"`
	Title      string  `json:"title"`
	TaskType   string  `json:"taskType,omitempty"`

	StartTime time.Time  `json:"startTime"`
	EndTime   time.Time  `json:"endTime"`
	Status    TaskStatus `json:"status"`

	// Notes is free text; clones carry their provenance here.
	Notes string `json:"notes,omitempty"`

	// Predecessors lists task IDs that must complete before this task starts.
	Predecessors []string         `json:"predecessors,omitempty"`
	Attributes   map[string]Value `json:"attributes,omitempty"`

	// SourceTaskID is set on simulation clones to the ID they were copied from.
	SourceTaskID string `json:"sourceTaskId,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (t *Task) Duration() time.Duration {
	return t.EndTime.Sub(t.StartTime)
}

// BoundTo reports whether the task is assigned to the given resource.
func (t *Task) BoundTo(resourceID string) bool {
	return t.ResourceID != nil && *t.ResourceID == resourceID
}

func (t *Task) HasPredecessor(id string) bool {
	return slices.Contains(t.Predecessors, id)
}

// Matches reports whether id refers to this task either directly or through
// the ID it was cloned from.
func (t *Task) Matches(id string) bool {
	return t.ID == id || (t.SourceTaskID != "" && t.SourceTaskID == id)
}

// Shift moves the whole window by d.
func (t *Task) Shift(d time.Duration, now time.Time) {
	t.StartTime = t.StartTime.Add(d)
	t.EndTime = t.EndTime.Add(d)
	t.UpdatedAt = now
}

// MoveStartTo moves the window so it starts at start, preserving duration.
func (t *Task) MoveStartTo(start time.Time, now time.Time) {
	t.Shift(start.Sub(t.StartTime), now)
}

// AppendNote adds a line to Notes.
func (t *Task) AppendNote(note string) {
	if strings.TrimSpace(t.Notes) == "" {
		t.Notes = note
		return
	}
	t.Notes = t.Notes + "\n" + note
}

// RemovePredecessor drops id from Predecessors. Returns false if absent.
func (t *Task) RemovePredecessor(id string) bool {
	idx := slices.Index(t.Predecessors, id)
	if idx < 0 {
		return false
	}
	t.Predecessors = slices.Delete(t.Predecessors, idx, idx+1)
	return true
}

// CloneInto returns an independent copy with a fresh identity, bound to
// scheduleID and carrying a provenance note.
func (t *Task) CloneInto(newID, scheduleID string, now time.Time) *Task {
	c := *t
	c.ID = newID
	sid := scheduleID
	c.ScheduleID = &sid
	c.ResourceID = clonePtr(t.ResourceID)
	c.AssigneeID = clonePtr(t.AssigneeID)
	c.Predecessors = slices.Clone(t.Predecessors)
	c.Attributes = CloneValueMap(t.Attributes)
	c.SourceTaskID = t.ID
	c.Notes = ""
	c.AppendNote(fmt.Sprintf("cloned from %s", t.ID))
	c.CreatedAt = now
	c.UpdatedAt = now
	return &c
}

// Copy returns a deep copy with the same identity.
func (t *Task) Copy() *Task {
	c := *t
	c.ScheduleID = clonePtr(t.ScheduleID)
	c.ResourceID = clonePtr(t.ResourceID)
	c.AssigneeID = clonePtr(t.AssigneeID)
	c.Predecessors = slices.Clone(t.Predecessors)
	c.Attributes = CloneValueMap(t.Attributes)
	return &c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}
