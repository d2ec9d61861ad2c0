package importer

import (
	"fmt"
	"time"

	"github.com/portops/portsim/internal/domain"
)

// ValidateDataset checks refs, required fields, enums, and timestamps.
// Returns every problem found, not just the first.
//
// Tasks whose end is not after their start are accepted; the conflict
// scanner reports them.
func ValidateDataset(ds *Dataset) []error {
	var errs []error

	visitRefs := make(map[string]bool)
	errs = append(errs, validateShipVisits(ds.ShipVisits, visitRefs)...)

	assetRefs := make(map[string]domain.AssetType)
	errs = append(errs, validateAssets(ds.Assets, assetRefs)...)
	errs = append(errs, validateBerths(ds.ShipVisits, assetRefs)...)

	scheduleRefs := make(map[string]bool)
	errs = append(errs, validateSchedules(ds.Schedules, visitRefs, scheduleRefs)...)

	taskRefs := make(map[string]bool)
	errs = append(errs, validateTasks(ds.Tasks, scheduleRefs, assetRefs, taskRefs)...)
	errs = append(errs, validatePredecessors(ds.Tasks, taskRefs)...)

	return errs
}

func claimRef(prefix, ref string, seen func(string) bool, claim func(string)) []error {
	switch {
	case ref == "":
		return []error{fmt.Errorf("%s.ref is required", prefix)}
	case seen(ref):
		return []error{fmt.Errorf("%s.ref: duplicate ref %q", prefix, ref)}
	default:
		claim(ref)
		return nil
	}
}

func validateShipVisits(visits []ShipVisitImport, refs map[string]bool) []error {
	var errs []error
	for i, v := range visits {
		prefix := fmt.Sprintf("ship_visits[%d]", i)
		errs = append(errs, claimRef(prefix, v.Ref,
			func(r string) bool { return refs[r] },
			func(r string) { refs[r] = true })...)

		if v.VesselName == "" {
			errs = append(errs, fmt.Errorf("%s.vessel_name is required", prefix))
		}
		if v.Status != "" && !domain.ValidShipVisitStatuses[domain.ShipVisitStatus(v.Status)] {
			errs = append(errs, fmt.Errorf("%s.status: invalid value %q", prefix, v.Status))
		}
		if v.ContainerCount < 0 {
			errs = append(errs, fmt.Errorf("%s.container_count must not be negative", prefix))
		}
		errs = append(errs, validateRequiredTime(prefix+".eta", v.ETA)...)
		errs = append(errs, validateOptionalTime(prefix+".ata", v.ATA)...)
		errs = append(errs, validateOptionalTime(prefix+".etd", &v.ETD)...)
		errs = append(errs, validateOptionalTime(prefix+".atd", v.ATD)...)
	}
	return errs
}

func validateAssets(assets []AssetImport, refs map[string]domain.AssetType) []error {
	var errs []error
	for i, a := range assets {
		prefix := fmt.Sprintf("assets[%d]", i)
		errs = append(errs, claimRef(prefix, a.Ref,
			func(r string) bool { _, ok := refs[r]; return ok },
			func(r string) { refs[r] = domain.AssetType(a.Type) })...)

		if a.Name == "" {
			errs = append(errs, fmt.Errorf("%s.name is required", prefix))
		}
		if a.Type == "" {
			errs = append(errs, fmt.Errorf("%s.type is required", prefix))
		} else if !domain.ValidAssetTypes[domain.AssetType(a.Type)] {
			errs = append(errs, fmt.Errorf("%s.type: invalid value %q", prefix, a.Type))
		}
		if a.Status != "" && !domain.ValidAssetStatuses[domain.AssetStatus(a.Status)] {
			errs = append(errs, fmt.Errorf("%s.status: invalid value %q", prefix, a.Status))
		}
		if a.MaxCapacity != nil && *a.MaxCapacity < 0 {
			errs = append(errs, fmt.Errorf("%s.max_capacity must not be negative", prefix))
		}
		if a.CraneCapacity != nil && *a.CraneCapacity < 0 {
			errs = append(errs, fmt.Errorf("%s.crane_capacity must not be negative", prefix))
		}
		if _, err := valueMap(a.Attributes); err != nil {
			errs = append(errs, fmt.Errorf("%s.attributes: %v", prefix, err))
		}
	}
	return errs
}

func validateBerths(visits []ShipVisitImport, assets map[string]domain.AssetType) []error {
	var errs []error
	for i, v := range visits {
		if v.BerthRef == nil || *v.BerthRef == "" {
			continue
		}
		typ, ok := assets[*v.BerthRef]
		switch {
		case !ok:
			errs = append(errs, fmt.Errorf("ship_visits[%d].berth_ref: ref %q not found in assets", i, *v.BerthRef))
		case typ != domain.AssetBerth:
			errs = append(errs, fmt.Errorf("ship_visits[%d].berth_ref: asset %q is a %s, not a BERTH", i, *v.BerthRef, typ))
		}
	}
	return errs
}

func validateSchedules(schedules []ScheduleImport, visits, refs map[string]bool) []error {
	var errs []error
	for i, s := range schedules {
		prefix := fmt.Sprintf("schedules[%d]", i)
		errs = append(errs, claimRef(prefix, s.Ref,
			func(r string) bool { return refs[r] },
			func(r string) { refs[r] = true })...)

		if s.Name == "" {
			errs = append(errs, fmt.Errorf("%s.name is required", prefix))
		}
		if s.Status != "" && !domain.ValidScheduleStatuses[domain.ScheduleStatus(s.Status)] {
			errs = append(errs, fmt.Errorf("%s.status: invalid value %q", prefix, s.Status))
		}
		if s.ShipVisitRef != nil && *s.ShipVisitRef != "" && !visits[*s.ShipVisitRef] {
			errs = append(errs, fmt.Errorf("%s.ship_visit_ref: ref %q not found in ship_visits", prefix, *s.ShipVisitRef))
		}
		errs = append(errs, validateWindow(prefix, s.Start, s.End, true)...)
		if _, err := valueMap(s.Resources); err != nil {
			errs = append(errs, fmt.Errorf("%s.resources: %v", prefix, err))
		}
	}
	return errs
}

func validateTasks(tasks []TaskImport, schedules map[string]bool, assets map[string]domain.AssetType, refs map[string]bool) []error {
	var errs []error
	for i, t := range tasks {
		prefix := fmt.Sprintf("tasks[%d]", i)
		errs = append(errs, claimRef(prefix, t.Ref,
			func(r string) bool { return refs[r] },
			func(r string) { refs[r] = true })...)

		if t.Title == "" {
			errs = append(errs, fmt.Errorf("%s.title is required", prefix))
		}
		if t.ScheduleRef == "" {
			errs = append(errs, fmt.Errorf("%s.schedule_ref is required", prefix))
		} else if !schedules[t.ScheduleRef] {
			errs = append(errs, fmt.Errorf("%s.schedule_ref: ref %q not found in schedules", prefix, t.ScheduleRef))
		}
		if t.ResourceRef != nil && *t.ResourceRef != "" {
			if _, ok := assets[*t.ResourceRef]; !ok {
				errs = append(errs, fmt.Errorf("%s.resource_ref: ref %q not found in assets", prefix, *t.ResourceRef))
			}
		}
		if t.Status != "" && !domain.ValidTaskStatuses[domain.TaskStatus(t.Status)] {
			errs = append(errs, fmt.Errorf("%s.status: invalid value %q", prefix, t.Status))
		}
		errs = append(errs, validateWindow(prefix, t.Start, t.End, false)...)
		if _, err := valueMap(t.Attributes); err != nil {
			errs = append(errs, fmt.Errorf("%s.attributes: %v", prefix, err))
		}
	}
	return errs
}

func validatePredecessors(tasks []TaskImport, refs map[string]bool) []error {
	var errs []error
	for i, t := range tasks {
		for j, p := range t.Predecessors {
			prefix := fmt.Sprintf("tasks[%d].predecessors[%d]", i, j)
			switch {
			case p == t.Ref:
				errs = append(errs, fmt.Errorf("%s: self-dependency on %q", prefix, p))
			case !refs[p]:
				errs = append(errs, fmt.Errorf("%s: ref %q not found in tasks", prefix, p))
			}
		}
	}
	if len(tasks) > 1 {
		errs = append(errs, detectCycles(tasks)...)
	}
	return errs
}

func detectCycles(tasks []TaskImport) []error {
	// predecessor -> successors
	graph := make(map[string][]string)
	var order []string
	for _, t := range tasks {
		order = append(order, t.Ref)
		for _, p := range t.Predecessors {
			if p != "" && p != t.Ref {
				graph[p] = append(graph[p], t.Ref)
			}
		}
	}

	const (
		white = 0 // unvisited
		gray  = 1 // in current path
		black = 2 // fully processed
	)

	color := make(map[string]int)
	var errs []error

	var visit func(node string) bool
	visit = func(node string) bool {
		color[node] = gray
		for _, neighbor := range graph[node] {
			if color[neighbor] == gray {
				errs = append(errs, fmt.Errorf("circular dependency detected involving %q and %q", node, neighbor))
				return true
			}
			if color[neighbor] == white && visit(neighbor) {
				return true
			}
		}
		color[node] = black
		return false
	}

	for _, node := range order {
		if color[node] == white {
			visit(node)
		}
	}
	return errs
}

// validateWindow requires both timestamps. strict also requires end after
// start.
func validateWindow(prefix, start, end string, strict bool) []error {
	errs := validateRequiredTime(prefix+".start", start)
	errs = append(errs, validateRequiredTime(prefix+".end", end)...)
	if len(errs) > 0 || !strict {
		return errs
	}
	s, _ := time.Parse(time.RFC3339, start)
	e, _ := time.Parse(time.RFC3339, end)
	if !e.After(s) {
		errs = append(errs, fmt.Errorf("%s.end %q must be after start %q", prefix, end, start))
	}
	return errs
}

func validateRequiredTime(field, value string) []error {
	if value == "" {
		return []error{fmt.Errorf("%s is required", field)}
	}
	return validateOptionalTime(field, &value)
}

func validateOptionalTime(field string, value *string) []error {
	if value == nil || *value == "" {
		return nil
	}
	if _, err := time.Parse(time.RFC3339, *value); err != nil {
		return []error{fmt.Errorf("%s: invalid timestamp %q (expected RFC 3339)", field, *value)}
	}
	return nil
}
