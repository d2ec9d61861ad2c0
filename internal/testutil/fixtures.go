package testutil

import (
	"time"

	"github.com/google/uuid"
	"github.com/portops/portsim/internal/domain"
)

// T0 is the reference instant fixtures are placed around.
var T0 = time.Date(2025, 3, 15, 6, 0, 0, 0, time.UTC)

// At returns T0 plus h hours.
func At(h float64) time.Time {
	return T0.Add(time.Duration(h * float64(time.Hour)))
}

// Ship visit options
type ShipVisitOption func(*domain.ShipVisit)

func WithETA(t time.Time) ShipVisitOption {
	return func(v *domain.ShipVisit) { v.ETA = t }
}

func WithATA(t time.Time) ShipVisitOption {
	return func(v *domain.ShipVisit) { v.ATA = &t }
}

func WithContainers(n int) ShipVisitOption {
	return func(v *domain.ShipVisit) { v.ContainerCount = n }
}

func NewTestShipVisit(vessel string, opts ...ShipVisitOption) *domain.ShipVisit {
	v := &domain.ShipVisit{
		ID:             uuid.New().String(),
		VesselName:     vessel,
		IMO:            "9999999",
		Status:         domain.VisitPlanned,
		ETA:            T0,
		ETD:            T0.Add(48 * time.Hour),
		ContainerCount: 100,
		CreatedAt:      T0,
		UpdatedAt:      T0,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Asset options
type AssetOption func(*domain.Asset)

func WithAssetStatus(s domain.AssetStatus) AssetOption {
	return func(a *domain.Asset) { a.Status = s }
}

func WithMaxCapacity(c float64) AssetOption {
	return func(a *domain.Asset) { a.MaxCapacity = &c }
}

func WithCraneCapacity(c float64) AssetOption {
	return func(a *domain.Asset) { a.CraneCapacity = &c }
}

func NewTestAsset(name string, assetType domain.AssetType, opts ...AssetOption) *domain.Asset {
	a := &domain.Asset{
		ID:        uuid.New().String(),
		Name:      name,
		Type:      assetType,
		Status:    domain.AssetAvailable,
		CreatedAt: T0,
		UpdatedAt: T0,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Schedule options
type ScheduleOption func(*domain.Schedule)

func ForShipVisit(id string) ScheduleOption {
	return func(s *domain.Schedule) { s.ShipVisitID = &id }
}

func WithScheduleWindow(start, end time.Time) ScheduleOption {
	return func(s *domain.Schedule) {
		s.StartTime = start
		s.EndTime = end
	}
}

func WithCreatedAt(t time.Time) ScheduleOption {
	return func(s *domain.Schedule) {
		s.CreatedAt = t
		s.UpdatedAt = t
	}
}

func NewTestSchedule(name string, opts ...ScheduleOption) *domain.Schedule {
	s := &domain.Schedule{
		ID:        uuid.New().String(),
		Name:      name,
		StartTime: T0,
		EndTime:   T0.Add(24 * time.Hour),
		Status:    domain.ScheduleScheduled,
		CreatedAt: T0,
		UpdatedAt: T0,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Task options
type TaskOption func(*domain.Task)

func OnResource(id string) TaskOption {
	return func(t *domain.Task) { t.ResourceID = &id }
}

func WithWindow(start, end time.Time) TaskOption {
	return func(t *domain.Task) {
		t.StartTime = start
		t.EndTime = end
	}
}

func WithPredecessors(ids ...string) TaskOption {
	return func(t *domain.Task) { t.Predecessors = ids }
}

func WithTaskID(id string) TaskOption {
	return func(t *domain.Task) { t.ID = id }
}

func WithAttribute(key string, v domain.Value) TaskOption {
	return func(t *domain.Task) {
		if t.Attributes == nil {
			t.Attributes = make(map[string]domain.Value)
		}
		t.Attributes[key] = v
	}
}

// NewTestTask builds a one-hour task at T0 inside scheduleID.
func NewTestTask(scheduleID, title string, opts ...TaskOption) *domain.Task {
	sid := scheduleID
	t := &domain.Task{
		ID:         uuid.New().String(),
		ScheduleID: &sid,
		Title:      title,
		TaskType:   "LOADING",
		StartTime:  T0,
		EndTime:    T0.Add(time.Hour),
		Status:     domain.TaskPending,
		CreatedAt:  T0,
		UpdatedAt:  T0,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}
