package simulation

import (
	"time"

	"github.com/portops/portsim/internal/domain"
	"github.com/portops/portsim/internal/scenario"
)

type Result struct {
	SimulationID    string                   `json:"simulationId"`
	BaseScheduleID  string                   `json:"baseScheduleId"`
	ScenarioName    string                   `json:"scenarioName"`
	ScenarioType    string                   `json:"scenarioType"`
	Schedule        *domain.Schedule         `json:"schedule"`
	Tasks           []*domain.Task           `json:"tasks"`
	Conflicts       []domain.Conflict        `json:"conflicts"`
	Recommendations []domain.Recommendation  `json:"recommendations"`
	Metrics         Metrics                  `json:"metrics"`
	AppliedChanges  []scenario.AppliedChange `json:"appliedChanges"`
	IgnoredChanges  int                      `json:"ignoredChanges"`
	CreatedAt       time.Time                `json:"createdAt"`
}

type Metrics struct {
	TotalTasks             int                         `json:"totalTasks"`
	AffectedTasks          int                         `json:"affectedTasks"`
	ConflictCount          int                         `json:"conflictCount"`
	ConflictsBySeverity    map[domain.Severity]int     `json:"conflictsBySeverity"`
	ConflictsByType        map[domain.ConflictType]int `json:"conflictsByType"`
	RecommendationCount    int                         `json:"recommendationCount"`
	ScheduleDeltaHours     float64                     `json:"scheduleDeltaHours"`
	BaseDurationHours      float64                     `json:"baseDurationHours"`
	SimulatedDurationHours float64                     `json:"simulatedDurationHours"`
	ElapsedMs              int64                       `json:"elapsedMs"`
}

// computeMetrics derives the summary numbers. base may be nil when the
// base schedule no longer exists; the comparison fields are then zero.
func computeMetrics(sim, base *domain.Schedule, tasks []*domain.Task, conflicts []domain.Conflict,
	recs []domain.Recommendation, affected int, elapsed time.Duration) Metrics {
	m := Metrics{
		TotalTasks:          len(tasks),
		AffectedTasks:       affected,
		ConflictCount:       len(conflicts),
		ConflictsBySeverity: make(map[domain.Severity]int),
		ConflictsByType:     make(map[domain.ConflictType]int),
		RecommendationCount: len(recs),
		ElapsedMs:           elapsed.Milliseconds(),
	}
	for _, c := range conflicts {
		m.ConflictsBySeverity[c.Severity]++
		m.ConflictsByType[c.Type]++
	}
	if sim != nil {
		m.SimulatedDurationHours = sim.Duration().Hours()
	}
	if sim != nil && base != nil {
		m.BaseDurationHours = base.Duration().Hours()
		m.ScheduleDeltaHours = sim.EndTime.Sub(base.EndTime).Hours()
	}
	return m
}

// conflictCountsByType is the shape the metrics collector takes.
func conflictCountsByType(conflicts []domain.Conflict) map[string]int {
	out := make(map[string]int)
	for _, c := range conflicts {
		out[string(c.Type)]++
	}
	return out
}

// affectedTaskCount counts distinct tasks named by applied changes that are
// still in tasks.
func affectedTaskCount(changes []scenario.AppliedChange, tasks []*domain.Task) int {
	present := make(map[string]bool, len(tasks))
	for _, t := range tasks {
		present[t.ID] = true
	}
	ids := scenario.Outcome{Applied: changes}.AffectedTaskIDs()
	n := 0
	for _, id := range ids {
		if present[id] {
			n++
		}
	}
	return n
}
