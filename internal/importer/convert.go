package importer

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/portops/portsim/internal/domain"
)

// Converted holds the domain records produced from a dataset, in insert order.
type Converted struct {
	ShipVisits []*domain.ShipVisit
	Assets     []*domain.Asset
	Schedules  []*domain.Schedule
	Tasks      []*domain.Task

	// Refs maps every dataset ref to its generated ID.
	Refs map[string]string
}

// Convert turns a validated dataset into domain records. Call
// ValidateDataset first; Convert assumes refs and timestamps are valid.
func Convert(ds *Dataset, now time.Time) (*Converted, error) {
	now = now.UTC()
	out := &Converted{Refs: make(map[string]string)}

	assign := func(ref string) string {
		id := uuid.New().String()
		out.Refs[ref] = id
		return id
	}
	lookup := func(ref *string) *string {
		if ref == nil || *ref == "" {
			return nil
		}
		if id, ok := out.Refs[*ref]; ok {
			return &id
		}
		return nil
	}

	// Assets first so visits can resolve their berth.
	for _, a := range ds.Assets {
		attrs, err := valueMap(a.Attributes)
		if err != nil {
			return nil, fmt.Errorf("asset %q attributes: %w", a.Ref, err)
		}
		status := domain.AssetStatus(a.Status)
		if status == "" {
			status = domain.AssetAvailable
		}
		out.Assets = append(out.Assets, &domain.Asset{
			ID:            assign(a.Ref),
			Name:          a.Name,
			Type:          domain.AssetType(a.Type),
			Status:        status,
			MaxCapacity:   a.MaxCapacity,
			CraneCapacity: a.CraneCapacity,
			Attributes:    attrs,
			CreatedAt:     now,
			UpdatedAt:     now,
		})
	}

	for _, v := range ds.ShipVisits {
		eta, err := time.Parse(time.RFC3339, v.ETA)
		if err != nil {
			return nil, fmt.Errorf("ship visit %q eta: %w", v.Ref, err)
		}
		etd := eta
		if v.ETD != "" {
			if etd, err = time.Parse(time.RFC3339, v.ETD); err != nil {
				return nil, fmt.Errorf("ship visit %q etd: %w", v.Ref, err)
			}
		}
		status := domain.ShipVisitStatus(v.Status)
		if status == "" {
			status = domain.VisitPlanned
		}
		out.ShipVisits = append(out.ShipVisits, &domain.ShipVisit{
			ID:             assign(v.Ref),
			VesselName:     v.VesselName,
			IMO:            v.IMO,
			Status:         status,
			ETA:            eta.UTC(),
			ATA:            optionalTime(v.ATA),
			ETD:            etd.UTC(),
			ATD:            optionalTime(v.ATD),
			ContainerCount: v.ContainerCount,
			BerthID:        lookup(v.BerthRef),
			CreatedAt:      now,
			UpdatedAt:      now,
		})
	}

	for _, s := range ds.Schedules {
		start, end, err := parseWindow(s.Start, s.End)
		if err != nil {
			return nil, fmt.Errorf("schedule %q: %w", s.Ref, err)
		}
		resources, err := valueMap(s.Resources)
		if err != nil {
			return nil, fmt.Errorf("schedule %q resources: %w", s.Ref, err)
		}
		status := domain.ScheduleStatus(s.Status)
		if status == "" {
			status = domain.ScheduleScheduled
		}
		out.Schedules = append(out.Schedules, &domain.Schedule{
			ID:          assign(s.Ref),
			Name:        s.Name,
			ShipVisitID: lookup(s.ShipVisitRef),
			StartTime:   start,
			EndTime:     end,
			Status:      status,
			Resources:   resources,
			Notes:       s.Notes,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}

	// Task IDs are assigned up front so predecessors can point forward.
	for _, t := range ds.Tasks {
		assign(t.Ref)
	}
	for _, t := range ds.Tasks {
		start, end, err := parseWindow(t.Start, t.End)
		if err != nil {
			return nil, fmt.Errorf("task %q: %w", t.Ref, err)
		}
		attrs, err := valueMap(t.Attributes)
		if err != nil {
			return nil, fmt.Errorf("task %q attributes: %w", t.Ref, err)
		}
		var preds []string
		for _, p := range t.Predecessors {
			if id, ok := out.Refs[p]; ok {
				preds = append(preds, id)
			}
		}
		status := domain.TaskStatus(t.Status)
		if status == "" {
			status = domain.TaskPending
		}
		scheduleRef := t.ScheduleRef
		out.Tasks = append(out.Tasks, &domain.Task{
			ID:           out.Refs[t.Ref],
			ScheduleID:   lookup(&scheduleRef),
			ResourceID:   lookup(t.ResourceRef),
			AssigneeID:   t.AssigneeID,
			Title:        t.Title,
			TaskType:     t.TaskType,
			StartTime:    start,
			EndTime:      end,
			Status:       status,
			Notes:        t.Notes,
			Predecessors: preds,
			Attributes:   attrs,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
	}

	return out, nil
}

func parseWindow(start, end string) (time.Time, time.Time, error) {
	s, err := time.Parse(time.RFC3339, start)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("start: %w", err)
	}
	e, err := time.Parse(time.RFC3339, end)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("end: %w", err)
	}
	return s.UTC(), e.UTC(), nil
}

func optionalTime(s *string) *time.Time {
	if s == nil || *s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, *s)
	if err != nil {
		return nil
	}
	t = t.UTC()
	return &t
}

func valueMap(raw map[string]any) (map[string]domain.Value, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make(map[string]domain.Value, len(raw))
	for k, v := range raw {
		val, err := domain.ValueOf(v)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", k, err)
		}
		out[k] = val
	}
	return out, nil
}
