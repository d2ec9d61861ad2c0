// Package conflict detects resource, capacity, timing and dependency
// violations in a candidate task set.
package conflict

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/portops/portsim/internal/domain"
	"github.com/portops/portsim/internal/interval"
)

// MaxTaskHours is the longest a single task may run before it is flagged.
const MaxTaskHours = 24

// Refs holds the records the detectors resolve foreign keys against.
// Missing entries are not errors; the affected check is skipped.
type Refs struct {
	Assets     map[string]*domain.Asset
	Schedules  map[string]*domain.Schedule
	ShipVisits map[string]*domain.ShipVisit
}

func (r Refs) asset(t *domain.Task) (*domain.Asset, bool) {
	if t.ResourceID == nil {
		return nil, false
	}
	a, ok := r.Assets[*t.ResourceID]
	return a, ok && a != nil
}

func (r Refs) visit(t *domain.Task) (*domain.ShipVisit, bool) {
	if t.ScheduleID == nil {
		return nil, false
	}
	s, ok := r.Schedules[*t.ScheduleID]
	if !ok || s == nil || s.ShipVisitID == nil {
		return nil, false
	}
	v, ok := r.ShipVisits[*s.ShipVisitID]
	return v, ok && v != nil
}

// resourceRef describes the task's resource, falling back to the bare ID
// when the asset record cannot be resolved.
func (r Refs) resourceRef(t *domain.Task) []domain.ResourceRef {
	if t.ResourceID == nil {
		return nil
	}
	if a, ok := r.asset(t); ok {
		return []domain.ResourceRef{{ID: a.ID, Name: a.Name, Type: a.Type}}
	}
	return []domain.ResourceRef{{ID: *t.ResourceID}}
}

type detector struct {
	name string
	run  func(ctx context.Context, tasks []*domain.Task, refs Refs) ([]domain.Conflict, error)
}

// Scanner runs the four detectors in a fixed order so output is stable.
type Scanner struct {
	logger    *slog.Logger
	detectors []detector
}

func NewScanner(logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := &Scanner{logger: logger}
	s.detectors = []detector{
		{name: "double_booking", run: s.detectDoubleBooking},
		{name: "capacity", run: s.detectCapacity},
		{name: "time_constraint", run: s.detectTimeConstraints},
		{name: "dependency", run: s.detectDependencies},
	}
	return s
}

// Scan is total over any task list: it never fails.
func (s *Scanner) Scan(tasks []*domain.Task, refs Refs) []domain.Conflict {
	out, _ := s.ScanContext(context.Background(), tasks, refs)
	return out
}

// ScanContext is Scan with cancellation checked between tasks. The only
// error it returns is the context's.
func (s *Scanner) ScanContext(ctx context.Context, tasks []*domain.Task, refs Refs) ([]domain.Conflict, error) {
	var out []domain.Conflict
	for _, d := range s.detectors {
		found, err := d.run(ctx, tasks, refs)
		if err != nil {
			return out, err
		}
		s.logger.DebugContext(ctx, "conflict detector finished", "detector", d.name, "conflicts", len(found))
		out = append(out, found...)
	}
	return out, nil
}

func (s *Scanner) detectDoubleBooking(ctx context.Context, tasks []*domain.Task, refs Refs) ([]domain.Conflict, error) {
	var order []string
	groups := make(map[string][]*domain.Task)
	for _, t := range tasks {
		if t.ResourceID == nil || *t.ResourceID == "" {
			continue
		}
		rid := *t.ResourceID
		if _, seen := groups[rid]; !seen {
			order = append(order, rid)
		}
		groups[rid] = append(groups[rid], t)
	}

	var out []domain.Conflict
	for _, rid := range order {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		group := groups[rid]
		for i := 0; i < len(group); i++ {
			for j := i + 1; j < len(group); j++ {
				a, b := group[i], group[j]
				w, ok := interval.Intersect(a.StartTime, a.EndTime, b.StartTime, b.EndTime)
				if !ok {
					continue
				}
				hours := w.Hours()
				res := refs.resourceRef(a)
				out = append(out, domain.Conflict{
					Type:     domain.ConflictDoubleBooking,
					Severity: interval.SeverityFromHours(hours),
					Description: fmt.Sprintf("Resource %s is double-booked: tasks %s and %s overlap by %.1f hours",
						displayRef(res), a.ID, b.ID, hours),
					AffectedTaskIDs:   []string{a.ID, b.ID},
					AffectedResources: res,
					TimeRange:         w.TimeRange(),
					Hours:             hours,
				})
			}
		}
	}
	return out, nil
}

func (s *Scanner) detectCapacity(ctx context.Context, tasks []*domain.Task, refs Refs) ([]domain.Conflict, error) {
	var out []domain.Conflict
	for _, t := range tasks {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		asset, ok := refs.asset(t)
		if !ok {
			continue
		}
		visit, ok := refs.visit(t)
		if !ok {
			continue
		}
		load := float64(visit.ContainerCount)
		res := []domain.ResourceRef{{ID: asset.ID, Name: asset.Name, Type: asset.Type}}
		window := interval.TaskWindow(t).TimeRange()

		if asset.MaxCapacity != nil && load > *asset.MaxCapacity {
			out = append(out, domain.Conflict{
				Type:     domain.ConflictCapacityExceeded,
				Severity: domain.SeverityCritical,
				Description: fmt.Sprintf("Ship visit %s carries %d containers, exceeding the max capacity %.0f of %s",
					visit.VesselName, visit.ContainerCount, *asset.MaxCapacity, asset.DisplayName()),
				AffectedTaskIDs:   []string{t.ID},
				AffectedResources: res,
				TimeRange:         window,
				Demand:            load,
				Capacity:          *asset.MaxCapacity,
			})
		}
		// Container count stands in for lifted weight.
		if asset.IsCrane() && asset.CraneCapacity != nil && load > *asset.CraneCapacity {
			out = append(out, domain.Conflict{
				Type:     domain.ConflictCapacityExceeded,
				Severity: domain.SeverityHigh,
				Description: fmt.Sprintf("Crane %s capacity %.0f is exceeded by %d containers from %s",
					asset.DisplayName(), *asset.CraneCapacity, visit.ContainerCount, visit.VesselName),
				AffectedTaskIDs:   []string{t.ID},
				AffectedResources: res,
				TimeRange:         window,
				Demand:            load,
				Capacity:          *asset.CraneCapacity,
			})
		}
	}
	return out, nil
}

func (s *Scanner) detectTimeConstraints(ctx context.Context, tasks []*domain.Task, refs Refs) ([]domain.Conflict, error) {
	var out []domain.Conflict
	for _, t := range tasks {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		if visit, ok := refs.visit(t); ok {
			arrival := visit.ArrivalTime()
			if t.StartTime.Before(arrival) {
				hours := arrival.Sub(t.StartTime).Hours()
				out = append(out, domain.Conflict{
					Type:     domain.ConflictTimeConstraint,
					Severity: domain.SeverityHigh,
					Description: fmt.Sprintf("Task %s starts %.1f hours before vessel %s arrives",
						t.ID, hours, visit.VesselName),
					AffectedTaskIDs:   []string{t.ID},
					AffectedResources: refs.resourceRef(t),
					TimeRange:         &domain.TimeRange{Start: t.StartTime, End: arrival},
					Hours:             hours,
				})
			}
		}

		hours := t.Duration().Hours()
		switch {
		case !t.EndTime.After(t.StartTime):
			out = append(out, domain.Conflict{
				Type:              domain.ConflictTimeConstraint,
				Severity:          domain.SeverityMedium,
				Description:       fmt.Sprintf("Task %s ends at or before its start (duration %.1f hours)", t.ID, hours),
				AffectedTaskIDs:   []string{t.ID},
				AffectedResources: refs.resourceRef(t),
				Hours:             hours,
			})
		case hours > MaxTaskHours:
			out = append(out, domain.Conflict{
				Type:     domain.ConflictTimeConstraint,
				Severity: domain.SeverityMedium,
				Description: fmt.Sprintf("Task %s runs %.1f hours, exceeding the %d-hour limit",
					t.ID, hours, MaxTaskHours),
				AffectedTaskIDs:   []string{t.ID},
				AffectedResources: refs.resourceRef(t),
				Hours:             hours,
			})
		}
	}
	return out, nil
}

func (s *Scanner) detectDependencies(ctx context.Context, tasks []*domain.Task, refs Refs) ([]domain.Conflict, error) {
	byID := indexTasks(tasks)

	var out []domain.Conflict
	for _, t := range tasks {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		for _, predID := range t.Predecessors {
			pred, ok := byID[predID]
			if !ok || pred == t {
				continue
			}
			if !t.StartTime.Before(pred.EndTime) {
				continue
			}
			hours := pred.EndTime.Sub(t.StartTime).Hours()
			out = append(out, domain.Conflict{
				Type:     domain.ConflictDependency,
				Severity: domain.SeverityHigh,
				Description: fmt.Sprintf("Task %s starts %.1f hours before its predecessor %s ends",
					t.ID, hours, pred.ID),
				AffectedTaskIDs:   []string{pred.ID, t.ID},
				AffectedResources: refs.resourceRef(t),
				TimeRange:         &domain.TimeRange{Start: t.StartTime, End: pred.EndTime},
				Hours:             hours,
			})
		}
	}
	return out, nil
}

// indexTasks maps task IDs, and the IDs clones were copied from, to tasks.
// Direct IDs win over source IDs.
func indexTasks(tasks []*domain.Task) map[string]*domain.Task {
	byID := make(map[string]*domain.Task, len(tasks)*2)
	for _, t := range tasks {
		if t.SourceTaskID != "" {
			if _, taken := byID[t.SourceTaskID]; !taken {
				byID[t.SourceTaskID] = t
			}
		}
	}
	for _, t := range tasks {
		byID[t.ID] = t
	}
	return byID
}

func displayRef(refs []domain.ResourceRef) string {
	if len(refs) == 0 {
		return "unknown"
	}
	return domain.CoalesceStr(refs[0].Name, refs[0].ID)
}

// BuildRefs indexes reference records by ID.
func BuildRefs(assets []*domain.Asset, schedules []*domain.Schedule, visits []*domain.ShipVisit) Refs {
	refs := Refs{
		Assets:     make(map[string]*domain.Asset, len(assets)),
		Schedules:  make(map[string]*domain.Schedule, len(schedules)),
		ShipVisits: make(map[string]*domain.ShipVisit, len(visits)),
	}
	for _, a := range assets {
		refs.Assets[a.ID] = a
	}
	for _, s := range schedules {
		refs.Schedules[s.ID] = s
	}
	for _, v := range visits {
		refs.ShipVisits[v.ID] = v
	}
	return refs
}
