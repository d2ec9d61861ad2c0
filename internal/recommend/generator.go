// Package recommend turns detected conflicts into ranked, non-binding
// remedies. Nothing here mutates tasks.
package recommend

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"

	"github.com/portops/portsim/internal/domain"
	"github.com/portops/portsim/internal/interval"
)

// MaxAlternatives caps the reassignment candidates offered per conflict.
const MaxAlternatives = 3

// ResourceDirectory is the store view used for alternative-resource search.
type ResourceDirectory interface {
	ListByType(ctx context.Context, assetType domain.AssetType) ([]*domain.Asset, error)
	// ListLiveByResource returns tasks bound to the resource, excluding
	// tasks owned by simulation schedules.
	ListLiveByResource(ctx context.Context, resourceID string) ([]*domain.Task, error)
}

// Input is one generation request.
type Input struct {
	Conflicts []domain.Conflict
	// Tasks is the simulated task set the conflicts were detected in.
	Tasks []*domain.Task
	// BaseScheduleID names the schedule the simulation copied. Its stored
	// tasks are replaced by Tasks when computing occupancy.
	BaseScheduleID string
}

type Generator struct {
	dir    ResourceDirectory
	logger *slog.Logger
}

func NewGenerator(dir ResourceDirectory, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Generator{dir: dir, logger: logger}
}

// Generate never fails: lookup errors reduce the output to the
// recommendations that need no store access.
func (g *Generator) Generate(ctx context.Context, in Input) []domain.Recommendation {
	run := &generation{
		g:      g,
		in:     in,
		byID:   make(map[string]*domain.Task, len(in.Tasks)),
		assets: make(map[domain.AssetType][]*domain.Asset),
		live:   make(map[string][]*domain.Task),
	}
	for _, t := range in.Tasks {
		run.byID[t.ID] = t
	}

	var out []domain.Recommendation
	for i := range in.Conflicts {
		c := &in.Conflicts[i]
		switch c.Type {
		case domain.ConflictDoubleBooking:
			out = append(out, run.forDoubleBooking(ctx, c)...)
		case domain.ConflictCapacityExceeded:
			out = append(out, run.forCapacity(ctx, c)...)
		case domain.ConflictTimeConstraint:
			out = append(out, run.forTimeConstraint(c)...)
		case domain.ConflictDependency:
			out = append(out, run.forDependency(c)...)
		}
	}
	Rank(out)
	return out
}

// Rank orders recommendations by source severity, then by type, keeping
// input order for ties, and assigns priorities from 1.
func Rank(recs []domain.Recommendation) {
	slices.SortStableFunc(recs, func(a, b domain.Recommendation) int {
		if d := b.Severity.Rank() - a.Severity.Rank(); d != 0 {
			return d
		}
		return a.Type.Rank() - b.Type.Rank()
	})
	for i := range recs {
		recs[i].Priority = i + 1
	}
}

// generation memoizes store lookups for one Generate call.
type generation struct {
	g      *Generator
	in     Input
	byID   map[string]*domain.Task
	assets map[domain.AssetType][]*domain.Asset
	live   map[string][]*domain.Task
	failed bool
}

func (r *generation) forDoubleBooking(ctx context.Context, c *domain.Conflict) []domain.Recommendation {
	if len(c.AffectedTaskIDs) < 2 || c.TimeRange == nil {
		return nil
	}
	later := r.laterTask(c.AffectedTaskIDs[0], c.AffectedTaskIDs[1])
	if later == nil {
		return nil
	}

	hours := interval.CeilHours(c.TimeRange.End.Sub(c.TimeRange.Start))
	cascade := r.cascadeCount(later.ID)
	out := []domain.Recommendation{{
		Type:                domain.RecommendDelayTask,
		ConflictType:        c.Type,
		Severity:            c.Severity,
		Description:         fmt.Sprintf("Delay task %s by %.0f hours to clear the double booking", later.ID, hours),
		EstimatedImpact:     fmt.Sprintf("Shifts %s and %d dependent task(s) by %.0f hours", later.ID, cascade, hours),
		TimeAdjustmentHours: &hours,
		AffectedTaskIDs:     []string{later.ID},
	}}

	res, ok := c.PrimaryResource()
	if !ok || res.Type == "" {
		return out
	}
	window := interval.Window{Start: c.TimeRange.Start, End: c.TimeRange.End}
	for _, a := range r.alternatives(ctx, res, window, nil) {
		out = append(out, reassign(c, a, []string{later.ID},
			fmt.Sprintf("Move task %s from %s to %s", later.ID, domain.CoalesceStr(res.Name, res.ID), a.DisplayName()),
			fmt.Sprintf("%s is free for the whole %.1f hour overlap", a.DisplayName(), window.Hours())))
	}
	return out
}

func (r *generation) forCapacity(ctx context.Context, c *domain.Conflict) []domain.Recommendation {
	var out []domain.Recommendation
	res, ok := c.PrimaryResource()
	if ok && res.Type != "" && c.TimeRange != nil {
		window := interval.Window{Start: c.TimeRange.Start, End: c.TimeRange.End}
		capacity := func(a *domain.Asset) *float64 { return a.MaxCapacity }
		if c.Severity != domain.SeverityCritical {
			capacity = func(a *domain.Asset) *float64 { return a.CraneCapacity }
		}
		higher := func(a *domain.Asset) bool {
			v := capacity(a)
			return v != nil && *v > c.Capacity
		}
		for _, a := range r.alternatives(ctx, res, window, higher) {
			out = append(out, reassign(c, a, slices.Clone(c.AffectedTaskIDs),
				fmt.Sprintf("Reassign to %s with capacity %.0f", a.DisplayName(), *capacity(a)),
				fmt.Sprintf("Covers demand %.0f against current capacity %.0f", c.Demand, c.Capacity)))
		}
	}
	if c.Severity == domain.SeverityCritical {
		out = append(out, domain.Recommendation{
			Type:            domain.RecommendReschedule,
			ConflictType:    c.Type,
			Severity:        c.Severity,
			Description:     "Reschedule the operation or renegotiate the container volume with the carrier",
			EstimatedImpact: fmt.Sprintf("Demand %.0f exceeds capacity %.0f by %.0f", c.Demand, c.Capacity, c.Demand-c.Capacity),
			AffectedTaskIDs: slices.Clone(c.AffectedTaskIDs),
		})
	}
	return out
}

// forTimeConstraint only handles arrival violations; duration conflicts
// carry no time range and so no boundary to move to.
func (r *generation) forTimeConstraint(c *domain.Conflict) []domain.Recommendation {
	if c.TimeRange == nil || len(c.AffectedTaskIDs) == 0 {
		return nil
	}
	taskID := c.AffectedTaskIDs[0]
	hours := interval.CeilHours(c.TimeRange.End.Sub(c.TimeRange.Start))
	return []domain.Recommendation{{
		Type:         domain.RecommendDelayTask,
		ConflictType: c.Type,
		Severity:     c.Severity,
		Description: fmt.Sprintf("Delay task %s by %.0f hours to start at %s",
			taskID, hours, c.TimeRange.End.UTC().Format(time.RFC3339)),
		EstimatedImpact:     fmt.Sprintf("Shifts %s and %d dependent task(s)", taskID, r.cascadeCount(taskID)),
		TimeAdjustmentHours: &hours,
		AffectedTaskIDs:     []string{taskID},
	}}
}

func (r *generation) forDependency(c *domain.Conflict) []domain.Recommendation {
	if len(c.AffectedTaskIDs) < 2 || c.TimeRange == nil {
		return nil
	}
	predID, succID := c.AffectedTaskIDs[0], c.AffectedTaskIDs[1]
	hours := c.TimeRange.End.Sub(c.TimeRange.Start).Hours()
	return []domain.Recommendation{
		{
			Type:         domain.RecommendDelayTask,
			ConflictType: c.Type,
			Severity:     c.Severity,
			Description: fmt.Sprintf("Delay task %s by %.1f hours to start when %s ends at %s",
				succID, hours, predID, c.TimeRange.End.UTC().Format(time.RFC3339)),
			EstimatedImpact:     fmt.Sprintf("Shifts %s and %d dependent task(s)", succID, r.cascadeCount(succID)),
			TimeAdjustmentHours: &hours,
			AffectedTaskIDs:     []string{succID},
		},
		{
			Type:                     domain.RecommendRemoveDependency,
			ConflictType:             c.Type,
			Severity:                 c.Severity,
			Description:              fmt.Sprintf("Remove the dependency of %s on %s", succID, predID),
			EstimatedImpact:          "Tasks may run in parallel; confirm the sequencing is not operationally required",
			AffectedTaskIDs:          []string{predID, succID},
			RequiresManualValidation: true,
		},
	}
}

func reassign(c *domain.Conflict, a *domain.Asset, taskIDs []string, desc, impact string) domain.Recommendation {
	id := a.ID
	return domain.Recommendation{
		Type:                  domain.RecommendReassignResource,
		ConflictType:          c.Type,
		Severity:              c.Severity,
		Description:           desc,
		EstimatedImpact:       impact,
		AlternativeResourceID: &id,
		AffectedTaskIDs:       taskIDs,
	}
}

// laterTask returns the task that starts later; the second wins ties.
func (r *generation) laterTask(aID, bID string) *domain.Task {
	a, b := r.byID[aID], r.byID[bID]
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	case a.StartTime.After(b.StartTime):
		return a
	default:
		return b
	}
}

// cascadeCount counts tasks that transitively depend on id.
func (r *generation) cascadeCount(id string) int {
	seen := map[string]bool{id: true}
	queue := []string{id}
	count := 0
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, t := range r.in.Tasks {
			if seen[t.ID] || !dependsOn(t, cur, r.byID) {
				continue
			}
			seen[t.ID] = true
			count++
			queue = append(queue, t.ID)
		}
	}
	return count
}

// dependsOn reports whether t lists id as a predecessor, either by ID or by
// the ID the predecessor was cloned from.
func dependsOn(t *domain.Task, id string, byID map[string]*domain.Task) bool {
	if t.HasPredecessor(id) {
		return true
	}
	if p, ok := byID[id]; ok && p.SourceTaskID != "" {
		return t.HasPredecessor(p.SourceTaskID)
	}
	return false
}

// alternatives returns up to MaxAlternatives available assets of the same
// type, other than the current one, with no occupancy in window.
func (r *generation) alternatives(ctx context.Context, current domain.ResourceRef, window interval.Window, keep func(*domain.Asset) bool) []*domain.Asset {
	candidates, ok := r.assetsOfType(ctx, current.Type)
	if !ok {
		return nil
	}
	var out []*domain.Asset
	for _, a := range candidates {
		if len(out) == MaxAlternatives {
			break
		}
		if a.ID == current.ID || !a.IsAvailable() || a.Type != current.Type {
			continue
		}
		if keep != nil && !keep(a) {
			continue
		}
		free, ok := r.isFree(ctx, a.ID, window)
		if !ok {
			return nil
		}
		if free {
			out = append(out, a)
		}
	}
	return out
}

func (r *generation) assetsOfType(ctx context.Context, t domain.AssetType) ([]*domain.Asset, bool) {
	if r.failed || r.g.dir == nil {
		return nil, false
	}
	if cached, ok := r.assets[t]; ok {
		return cached, true
	}
	assets, err := r.g.dir.ListByType(ctx, t)
	if err != nil {
		r.degrade(ctx, "listing assets by type", err, "asset_type", t)
		return nil, false
	}
	r.assets[t] = assets
	return assets, true
}

// isFree checks live occupancy outside the base schedule plus the
// simulated tasks bound to the resource.
func (r *generation) isFree(ctx context.Context, resourceID string, window interval.Window) (bool, bool) {
	live, ok := r.live[resourceID]
	if !ok {
		var err error
		live, err = r.g.dir.ListLiveByResource(ctx, resourceID)
		if err != nil {
			r.degrade(ctx, "listing resource occupancy", err, "resource_id", resourceID)
			return false, false
		}
		r.live[resourceID] = live
	}

	for _, t := range live {
		if r.in.BaseScheduleID != "" && domain.StrOrEmpty(t.ScheduleID) == r.in.BaseScheduleID {
			continue
		}
		if window.Overlaps(interval.TaskWindow(t)) {
			return false, true
		}
	}
	for _, t := range r.in.Tasks {
		if t.BoundTo(resourceID) && window.Overlaps(interval.TaskWindow(t)) {
			return false, true
		}
	}
	return true, true
}

func (r *generation) degrade(ctx context.Context, op string, err error, attrs ...any) {
	r.failed = true
	attrs = append(attrs, "op", op, "error", err.Error())
	r.g.logger.WarnContext(ctx, "alternative resource search unavailable", attrs...)
}
