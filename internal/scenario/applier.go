package scenario

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/portops/portsim/internal/domain"
	"github.com/portops/portsim/internal/interval"
)

// Workspace is the in-memory clone a scenario mutates. Visits holds private
// copies keyed by ID; the applier may shift their arrival times.
type Workspace struct {
	Schedule *domain.Schedule
	Tasks    []*domain.Task
	Visits   map[string]*domain.ShipVisit
	Now      time.Time
}

// AppliedChange records one mutation made by a scenario.
type AppliedChange struct {
	EntityType string `json:"entityType"`
	EntityID   string `json:"entityId"`
	Field      string `json:"field"`
	OldValue   string `json:"oldValue,omitempty"`
	NewValue   string `json:"newValue,omitempty"`
	Note       string `json:"note,omitempty"`
}

// Outcome lists what a scenario changed. Ignored counts custom edits that
// targeted unsupported entity types or matched no task.
type Outcome struct {
	Applied []AppliedChange
	Ignored int
}

// AffectedTaskIDs returns the distinct task IDs touched, in first-touch order.
func (o Outcome) AffectedTaskIDs() []string {
	seen := make(map[string]bool)
	var ids []string
	for _, c := range o.Applied {
		if c.EntityType != EntityTask || seen[c.EntityID] {
			continue
		}
		seen[c.EntityID] = true
		ids = append(ids, c.EntityID)
	}
	return ids
}

type Applier struct {
	logger *slog.Logger
}

func NewApplier(logger *slog.Logger) *Applier {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Applier{logger: logger}
}

// Apply validates d and mutates ws in place.
func (a *Applier) Apply(ctx context.Context, d *Descriptor, ws *Workspace) (Outcome, error) {
	if err := d.Validate(); err != nil {
		return Outcome{}, err
	}
	if ws == nil || ws.Schedule == nil {
		return Outcome{}, fmt.Errorf("%w: no schedule to apply to", ErrInvalidScenario)
	}
	if ws.Now.IsZero() {
		ws.Now = time.Now().UTC()
	}

	switch d.Type {
	case TypeShipDelay:
		return a.applyShipDelay(ctx, *d.ShipDelay, ws), nil
	case TypeAssetMaintenance:
		return a.applyMaintenance(ctx, *d.Maintenance, ws), nil
	case TypeCustom:
		return a.applyCustom(ctx, d.Changes, ws)
	default:
		return Outcome{}, fmt.Errorf("%w: unknown scenario type %q", ErrInvalidScenario, d.Type)
	}
}

func (a *Applier) applyShipDelay(ctx context.Context, sd ShipDelay, ws *Workspace) Outcome {
	var out Outcome
	delay := sd.Delay()

	visitID := sd.ShipVisitID
	if visitID == "" {
		visitID = domain.StrOrEmpty(ws.Schedule.ShipVisitID)
	}
	if v, ok := ws.Visits[visitID]; ok && v != nil {
		if c, shifted := shiftArrival(v, sd.field(), delay, ws.Now); shifted {
			out.Applied = append(out.Applied, c)
		}
	} else {
		a.logger.DebugContext(ctx, "ship visit not loaded, shifting tasks only", "ship_visit_id", visitID)
	}

	for _, t := range ws.Tasks {
		old := t.StartTime
		t.Shift(delay, ws.Now)
		out.Applied = append(out.Applied, AppliedChange{
			EntityType: EntityTask,
			EntityID:   t.ID,
			Field:      TaskFieldStartTime,
			OldValue:   formatTime(old),
			NewValue:   formatTime(t.StartTime),
			Note:       fmt.Sprintf("shifted %+.1fh by ship delay", sd.DelayHours),
		})
	}
	oldStart := ws.Schedule.StartTime
	ws.Schedule.Shift(delay, ws.Now)
	out.Applied = append(out.Applied, AppliedChange{
		EntityType: "schedule",
		EntityID:   ws.Schedule.ID,
		Field:      TaskFieldStartTime,
		OldValue:   formatTime(oldStart),
		NewValue:   formatTime(ws.Schedule.StartTime),
	})
	return out
}

// shiftArrival moves the visit field named by field. ATA is only shifted
// when it is already known.
func shiftArrival(v *domain.ShipVisit, field string, delay time.Duration, now time.Time) (AppliedChange, bool) {
	c := AppliedChange{EntityType: EntityShipVisit, EntityID: v.ID}
	useATA := field == FieldATA || (field == FieldArrival && v.ATA != nil)
	switch {
	case useATA && v.ATA != nil:
		shifted := v.ATA.Add(delay)
		c.Field, c.OldValue, c.NewValue = FieldATA, formatTime(*v.ATA), formatTime(shifted)
		v.ATA = &shifted
	case useATA:
		return c, false
	default:
		c.Field, c.OldValue = FieldETA, formatTime(v.ETA)
		v.ETA = v.ETA.Add(delay)
		c.NewValue = formatTime(v.ETA)
	}
	v.UpdatedAt = now
	return c, true
}

// ReplayArrivals sets the arrival fields recorded in changes on the given
// visit copies. Ship delays never write the visit back, so a stored
// simulation needs this to be rescanned against the arrival it ran with.
// Visits missing from the map and unparsable values are skipped.
func ReplayArrivals(visits map[string]*domain.ShipVisit, changes []AppliedChange) {
	for _, c := range changes {
		if c.EntityType != EntityShipVisit {
			continue
		}
		v := visits[c.EntityID]
		if v == nil {
			continue
		}
		at, err := time.Parse(time.RFC3339, c.NewValue)
		if err != nil {
			continue
		}
		switch c.Field {
		case FieldETA:
			v.ETA = at
		case FieldATA:
			v.ATA = &at
		}
	}
}

func (a *Applier) applyMaintenance(ctx context.Context, m Maintenance, ws *Workspace) Outcome {
	var out Outcome
	mStart, mEnd := m.Window()
	note := fmt.Sprintf("moved for maintenance of %s %s to %s",
		m.ResourceID, formatTime(mStart), formatTime(mEnd))

	for _, t := range ws.Tasks {
		if !t.BoundTo(m.ResourceID) {
			continue
		}
		if !interval.Overlaps(t.StartTime, t.EndTime, mStart, mEnd) {
			continue
		}
		old := t.StartTime
		t.MoveStartTo(mEnd, ws.Now)
		t.AppendNote(note)
		out.Applied = append(out.Applied, AppliedChange{
			EntityType: EntityTask,
			EntityID:   t.ID,
			Field:      TaskFieldStartTime,
			OldValue:   formatTime(old),
			NewValue:   formatTime(t.StartTime),
			Note:       note,
		})
	}
	a.logger.DebugContext(ctx, "maintenance window applied",
		"resource_id", m.ResourceID, "moved_tasks", len(out.Applied))
	return out
}

func (a *Applier) applyCustom(ctx context.Context, changes []FieldChange, ws *Workspace) (Outcome, error) {
	var out Outcome
	for _, c := range changes {
		if !c.IsTaskChange() {
			out.Ignored++
			a.logger.WarnContext(ctx, "custom change ignored, unsupported entity type",
				"entity_type", c.EntityType, "entity_id", c.EntityID, "field", c.Field)
			continue
		}
		matched := false
		for _, t := range ws.Tasks {
			if !t.Matches(c.EntityID) {
				continue
			}
			matched = true
			applied, err := setTaskField(t, c, ws.Now)
			if err != nil {
				return out, err
			}
			out.Applied = append(out.Applied, applied)
		}
		if !matched {
			out.Ignored++
			a.logger.WarnContext(ctx, "custom change ignored, no matching task",
				"entity_id", c.EntityID, "field", c.Field)
		}
	}
	return out, nil
}

func setTaskField(t *domain.Task, c FieldChange, now time.Time) (AppliedChange, error) {
	applied := AppliedChange{EntityType: EntityTask, EntityID: t.ID, Field: c.Field}
	v := c.NewValue

	switch c.Field {
	case TaskFieldStartTime:
		ts, _ := v.AsTime()
		applied.OldValue, applied.NewValue = formatTime(t.StartTime), formatTime(ts)
		t.StartTime = ts.UTC()
	case TaskFieldEndTime:
		ts, _ := v.AsTime()
		applied.OldValue, applied.NewValue = formatTime(t.EndTime), formatTime(ts)
		t.EndTime = ts.UTC()
	case TaskFieldResourceID:
		applied.OldValue = domain.StrOrEmpty(t.ResourceID)
		t.ResourceID = optionalString(v)
		applied.NewValue = domain.StrOrEmpty(t.ResourceID)
	case TaskFieldAssigneeID:
		applied.OldValue = domain.StrOrEmpty(t.AssigneeID)
		t.AssigneeID = optionalString(v)
		applied.NewValue = domain.StrOrEmpty(t.AssigneeID)
	case TaskFieldTitle:
		applied.OldValue, applied.NewValue = t.Title, v.Str
		t.Title = v.Str
	case TaskFieldStatus:
		applied.OldValue, applied.NewValue = string(t.Status), v.Str
		t.Status = domain.TaskStatus(v.Str)
	case TaskFieldPredecessors:
		ids, _ := v.AsStringList()
		applied.OldValue = strings.Join(t.Predecessors, ",")
		t.Predecessors = ids
		applied.NewValue = strings.Join(ids, ",")
	default:
		key, ok := strings.CutPrefix(c.Field, MetadataPrefix)
		if !ok || key == "" {
			return applied, fmt.Errorf("%w: unsupported task field %q", ErrValidationFailure, c.Field)
		}
		if t.Attributes == nil {
			t.Attributes = make(map[string]domain.Value)
		}
		if old, had := t.Attributes[key]; had {
			applied.OldValue = old.String()
		}
		if v.IsNull() {
			delete(t.Attributes, key)
		} else {
			t.Attributes[key] = v.Clone()
			applied.NewValue = v.String()
		}
	}
	t.UpdatedAt = now
	return applied, nil
}

func optionalString(v domain.Value) *string {
	s, ok := v.AsString()
	if !ok || s == "" {
		return nil
	}
	return &s
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
