// Package scenario describes what-if changes and applies them to a cloned
// schedule held in memory.
package scenario

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/portops/portsim/internal/domain"
)

var (
	// ErrInvalidScenario marks a descriptor that cannot be dispatched: an
	// unknown type or a missing change block for its type.
	ErrInvalidScenario = errors.New("invalid scenario")
	// ErrValidationFailure marks a change block with malformed values.
	ErrValidationFailure = errors.New("validation failure")
)

type Type string

const (
	TypeShipDelay        Type = "ship_delay"
	TypeAssetMaintenance Type = "asset_maintenance"
	TypeCustom           Type = "custom"
)

// Arrival fields a ship delay can target. FieldArrival shifts whichever of
// ATA or ETA currently determines the arrival time.
const (
	FieldETA     = "eta"
	FieldATA     = "ata"
	FieldArrival = "arrival"
)

// EntityTask is the only entity type custom changes are applied to.
const EntityTask = "task"

// EntityShipVisit tags the arrival change a ship delay records.
const EntityShipVisit = "ship_visit"

// Descriptor is a named what-if change against a base schedule.
type Descriptor struct {
	Name           string        `json:"name"`
	Description    string        `json:"description,omitempty"`
	BaseScheduleID string        `json:"baseScheduleId"`
	Type           Type          `json:"type"`
	ShipDelay      *ShipDelay    `json:"shipDelay,omitempty"`
	Maintenance    *Maintenance  `json:"maintenance,omitempty"`
	Changes        []FieldChange `json:"changes,omitempty"`
}

type ShipDelay struct {
	// ShipVisitID defaults to the base schedule's visit.
	ShipVisitID string  `json:"shipVisitId,omitempty"`
	Field       string  `json:"field,omitempty"`
	DelayHours  float64 `json:"delayHours"`
}

func (d ShipDelay) Delay() time.Duration {
	return time.Duration(d.DelayHours * float64(time.Hour))
}

func (d ShipDelay) field() string {
	if d.Field == "" {
		return FieldArrival
	}
	return strings.ToLower(d.Field)
}

type Maintenance struct {
	ResourceID    string    `json:"resourceId"`
	Start         time.Time `json:"start"`
	DurationHours float64   `json:"durationHours"`
}

// Window returns the half-open maintenance window.
func (m Maintenance) Window() (time.Time, time.Time) {
	return m.Start, m.Start.Add(time.Duration(m.DurationHours * float64(time.Hour)))
}

// FieldChange overrides one field of one entity.
type FieldChange struct {
	EntityType string       `json:"entityType"`
	EntityID   string       `json:"entityId"`
	Field      string       `json:"field"`
	NewValue   domain.Value `json:"newValue"`
}

// IsTaskChange reports whether the change targets a task.
func (c FieldChange) IsTaskChange() bool {
	return strings.EqualFold(strings.TrimSpace(c.EntityType), EntityTask)
}

// Task fields a custom change may set.
const (
	TaskFieldStartTime    = "startTime"
	TaskFieldEndTime      = "endTime"
	TaskFieldResourceID   = "resourceId"
	TaskFieldAssigneeID   = "assigneeId"
	TaskFieldStatus       = "status"
	TaskFieldTitle        = "title"
	TaskFieldPredecessors = "predecessors"
	MetadataPrefix        = "metadata."
)

// Validate checks the descriptor without touching any store. It runs before
// anything is cloned.
func (d *Descriptor) Validate() error {
	if d == nil {
		return fmt.Errorf("%w: no scenario given", ErrInvalidScenario)
	}
	if strings.TrimSpace(d.BaseScheduleID) == "" {
		return fmt.Errorf("%w: baseScheduleId is required", ErrValidationFailure)
	}

	switch d.Type {
	case TypeShipDelay:
		if d.ShipDelay == nil {
			return fmt.Errorf("%w: ship_delay requires a shipDelay block", ErrInvalidScenario)
		}
		return d.ShipDelay.validate()
	case TypeAssetMaintenance:
		if d.Maintenance == nil {
			return fmt.Errorf("%w: asset_maintenance requires a maintenance block", ErrInvalidScenario)
		}
		return d.Maintenance.validate()
	case TypeCustom:
		if len(d.Changes) == 0 {
			return fmt.Errorf("%w: custom requires at least one change", ErrInvalidScenario)
		}
		for i, c := range d.Changes {
			if err := c.validate(); err != nil {
				return fmt.Errorf("change %d: %w", i, err)
			}
		}
		return nil
	case "":
		return fmt.Errorf("%w: scenario type is required", ErrInvalidScenario)
	default:
		return fmt.Errorf("%w: unknown scenario type %q", ErrInvalidScenario, d.Type)
	}
}

func (d ShipDelay) validate() error {
	if math.IsNaN(d.DelayHours) || math.IsInf(d.DelayHours, 0) {
		return fmt.Errorf("%w: delayHours must be a finite number", ErrValidationFailure)
	}
	switch d.field() {
	case FieldETA, FieldATA, FieldArrival:
		return nil
	default:
		return fmt.Errorf("%w: ship delay field %q is not one of eta, ata, arrival", ErrValidationFailure, d.Field)
	}
}

func (m Maintenance) validate() error {
	if strings.TrimSpace(m.ResourceID) == "" {
		return fmt.Errorf("%w: maintenance resourceId is required", ErrValidationFailure)
	}
	if m.Start.IsZero() {
		return fmt.Errorf("%w: maintenance start is required", ErrValidationFailure)
	}
	if math.IsNaN(m.DurationHours) || math.IsInf(m.DurationHours, 0) || m.DurationHours <= 0 {
		return fmt.Errorf("%w: maintenance durationHours must be positive", ErrValidationFailure)
	}
	return nil
}

// validate checks task changes only; other entity types are ignored at
// apply time and not inspected here.
func (c FieldChange) validate() error {
	if strings.TrimSpace(c.EntityType) == "" {
		return fmt.Errorf("%w: entityType is required", ErrValidationFailure)
	}
	if !c.IsTaskChange() {
		return nil
	}
	if strings.TrimSpace(c.EntityID) == "" {
		return fmt.Errorf("%w: entityId is required", ErrValidationFailure)
	}

	v := c.NewValue
	switch c.Field {
	case TaskFieldStartTime, TaskFieldEndTime:
		if _, ok := v.AsTime(); !ok {
			return fmt.Errorf("%w: %s must be an RFC 3339 timestamp", ErrValidationFailure, c.Field)
		}
	case TaskFieldResourceID, TaskFieldAssigneeID:
		if _, ok := v.AsString(); !ok && !v.IsNull() {
			return fmt.Errorf("%w: %s must be a string or null", ErrValidationFailure, c.Field)
		}
	case TaskFieldTitle:
		if _, ok := v.AsString(); !ok {
			return fmt.Errorf("%w: title must be a string", ErrValidationFailure)
		}
	case TaskFieldStatus:
		s, ok := v.AsString()
		if !ok || !domain.ValidTaskStatuses[domain.TaskStatus(s)] {
			return fmt.Errorf("%w: status %s is not a task status", ErrValidationFailure, v)
		}
	case TaskFieldPredecessors:
		if _, ok := v.AsStringList(); !ok && !v.IsNull() {
			return fmt.Errorf("%w: predecessors must be a list of task ids", ErrValidationFailure)
		}
	default:
		key, ok := strings.CutPrefix(c.Field, MetadataPrefix)
		if !ok || key == "" {
			return fmt.Errorf("%w: unsupported task field %q", ErrValidationFailure, c.Field)
		}
	}
	return nil
}
