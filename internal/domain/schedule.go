package domain

import (
	"strings"
	"time"
)

// SimulationMarker prefixes the display label of schedules produced by a
// simulation run.
const SimulationMarker = "[SIMULATION]"

type Schedule struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	ShipVisitID *string        `json:"shipVisitId,omitempty"`
	StartTime   time.Time      `json:"startTime"`
	EndTime     time.Time      `json:"endTime"`
	Status      ScheduleStatus `json:"status"`

	// Resources is display-only (berth, pilot and tug counts, crane list).
	Resources map[string]Value `json:"resources,omitempty"`

	// Notes is the free-text annotation field. Simulation snapshots are
	// serialized into it.
	Notes string `json:"notes,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// IsSimulation reports whether the display label carries the simulation marker.
func (s *Schedule) IsSimulation() bool {
	return strings.HasPrefix(strings.TrimSpace(s.Name), SimulationMarker)
}

// MarkSimulation prefixes the label with the simulation marker once.
func (s *Schedule) MarkSimulation() {
	if s.IsSimulation() {
		return
	}
	s.Name = SimulationMarker + " " + s.Name
}

// StripSimulationMarker removes the marker prefix from the label.
// Returns false when there was nothing to strip.
func (s *Schedule) StripSimulationMarker() bool {
	trimmed := strings.TrimSpace(s.Name)
	if !strings.HasPrefix(trimmed, SimulationMarker) {
		return false
	}
	s.Name = strings.TrimSpace(strings.TrimPrefix(trimmed, SimulationMarker))
	return true
}

func (s *Schedule) Duration() time.Duration {
	return s.EndTime.Sub(s.StartTime)
}

// Shift moves the schedule bounds by d.
func (s *Schedule) Shift(d time.Duration, now time.Time) {
	s.StartTime = s.StartTime.Add(d)
	s.EndTime = s.EndTime.Add(d)
	s.UpdatedAt = now
}

// RecalculateBounds sets the bounds to the earliest task start and the
// latest task end. Bounds are left unchanged for an empty task set.
func (s *Schedule) RecalculateBounds(tasks []*Task, now time.Time) bool {
	if len(tasks) == 0 {
		return false
	}
	start, end := tasks[0].StartTime, tasks[0].EndTime
	for _, t := range tasks[1:] {
		if t.StartTime.Before(start) {
			start = t.StartTime
		}
		if t.EndTime.After(end) {
			end = t.EndTime
		}
	}
	s.StartTime = start
	s.EndTime = end
	s.UpdatedAt = now
	return true
}

// Copy returns a deep copy with the same identity.
func (s *Schedule) Copy() *Schedule {
	c := *s
	c.ShipVisitID = clonePtr(s.ShipVisitID)
	c.Resources = CloneValueMap(s.Resources)
	return &c
}
