package domain

import "time"

// TimeRange is a half-open [Start, End) window.
type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func (r TimeRange) Hours() float64 {
	return r.End.Sub(r.Start).Hours()
}

// ResourceRef identifies a resource touched by a conflict.
type ResourceRef struct {
	ID   string    `json:"id"`
	Name string    `json:"name,omitempty"`
	Type AssetType `json:"type,omitempty"`
}

// Conflict is a detected violation of resource exclusivity, capacity,
// timing, or dependency ordering.
type Conflict struct {
	Type        ConflictType `json:"type"`
	Severity    Severity     `json:"severity"`
	Description string       `json:"description"`

	// AffectedTaskIDs is ordered: both tasks in input order for double
	// bookings, predecessor then successor for dependency violations.
	AffectedTaskIDs   []string      `json:"affectedTaskIds"`
	AffectedResources []ResourceRef `json:"affectedResources,omitempty"`
	TimeRange         *TimeRange    `json:"timeRange,omitempty"`

	// Hours is the overlap or violation magnitude that drove the severity.
	Hours float64 `json:"hours,omitempty"`

	// Demand and Capacity are set on capacity conflicts.
	Demand   float64 `json:"demand,omitempty"`
	Capacity float64 `json:"capacity,omitempty"`
}

// PrimaryResource returns the first affected resource, if any.
func (c *Conflict) PrimaryResource() (ResourceRef, bool) {
	if len(c.AffectedResources) == 0 {
		return ResourceRef{}, false
	}
	return c.AffectedResources[0], true
}

// Recommendation is a non-binding remedy for a conflict. Recommendations are
// never applied automatically.
type Recommendation struct {
	Type                     RecommendationType `json:"type"`
	Priority                 int                `json:"priority"`
	ConflictType             ConflictType       `json:"conflictType"`
	Severity                 Severity           `json:"severity"`
	Description              string             `json:"description"`
	EstimatedImpact          string             `json:"estimatedImpact"`
	AlternativeResourceID    *string            `json:"alternativeResourceId,omitempty"`
	TimeAdjustmentHours      *float64           `json:"timeAdjustmentHours,omitempty"`
	AffectedTaskIDs          []string           `json:"affectedTaskIds"`
	RequiresManualValidation bool               `json:"requiresManualValidation,omitempty"`
}
