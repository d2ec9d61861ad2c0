package formatter

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/portops/portsim/internal/domain"
	"github.com/portops/portsim/internal/importer"
	"github.com/portops/portsim/internal/simulation"
)

// FormatResult renders a full simulation report: summary box, conflicts,
// recommendations and the applied changes.
func FormatResult(res *simulation.Result) string {
	var b strings.Builder

	b.WriteString(RenderBox("Simulation "+res.SimulationID, formatSummary(res)))
	b.WriteString("\n\n")

	b.WriteString(Header(fmt.Sprintf("Conflicts (%d)", len(res.Conflicts))))
	b.WriteString("\n")
	b.WriteString(FormatConflicts(res.Conflicts))

	b.WriteString("\n")
	b.WriteString(Header(fmt.Sprintf("Recommendations (%d)", len(res.Recommendations))))
	b.WriteString("\n")
	b.WriteString(FormatRecommendations(res.Recommendations))

	if len(res.AppliedChanges) > 0 || res.IgnoredChanges > 0 {
		b.WriteString("\n")
		b.WriteString(Header("Changes"))
		b.WriteString("\n")
		b.WriteString(formatChanges(res))
	}
	return b.String()
}

func formatSummary(res *simulation.Result) string {
	m := res.Metrics
	lines := []string{
		kv("Scenario", fmt.Sprintf("%s %s", Bold(res.ScenarioName), Dim("("+res.ScenarioType+")"))),
		kv("Base schedule", res.BaseScheduleID),
		kv("Created", Timestamp(res.CreatedAt)),
		kv("Tasks", fmt.Sprintf("%d total, %d affected", m.TotalTasks, m.AffectedTasks)),
		kv("Duration", fmt.Sprintf("%s → %s (%s)",
			FormatHours(m.BaseDurationHours), FormatHours(m.SimulatedDurationHours), SignedHours(m.ScheduleDeltaHours))),
		kv("Conflicts", severityBreakdown(m.ConflictsBySeverity, m.ConflictCount)),
		kv("Recommendations", fmt.Sprintf("%d", m.RecommendationCount)),
	}
	if m.ElapsedMs > 0 {
		lines = append(lines, kv("Elapsed", fmt.Sprintf("%dms", m.ElapsedMs)))
	}
	return strings.Join(lines, "\n")
}

func kv(label, value string) string {
	return fmt.Sprintf("%s %s", Dim(fmt.Sprintf("%-16s", label)), value)
}

func severityBreakdown(counts map[domain.Severity]int, total int) string {
	if total == 0 {
		return StyleGreen.Render("none")
	}
	var parts []string
	for _, s := range domain.Severities {
		if n := counts[s]; n > 0 {
			parts = append(parts, SeverityColor(s).Render(fmt.Sprintf("%d %s", n, s)))
		}
	}
	return fmt.Sprintf("%d (%s)", total, strings.Join(parts, ", "))
}

// FormatConflicts renders conflicts as a table in detection order.
func FormatConflicts(conflicts []domain.Conflict) string {
	if len(conflicts) == 0 {
		return Dim("No conflicts detected.") + "\n"
	}
	rows := make([][]string, 0, len(conflicts))
	for _, c := range conflicts {
		res := "--"
		if r, ok := c.PrimaryResource(); ok {
			res = domain.CoalesceStr(r.Name, r.ID)
		}
		rows = append(rows, []string{
			SeverityIndicator(c.Severity),
			string(c.Type),
			res,
			c.Description,
		})
	}
	return RenderTable([]string{"SEVERITY", "TYPE", "RESOURCE", "DESCRIPTION"}, rows)
}

// FormatRecommendations renders recommendations in priority order.
func FormatRecommendations(recs []domain.Recommendation) string {
	if len(recs) == 0 {
		return Dim("No recommendations.") + "\n"
	}
	sorted := make([]domain.Recommendation, len(recs))
	copy(sorted, recs)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Priority < sorted[j].Priority })

	rows := make([][]string, 0, len(sorted))
	for _, r := range sorted {
		desc := r.Description
		if r.RequiresManualValidation {
			desc += " " + StyleYellow.Render("[manual validation]")
		}
		rows = append(rows, []string{
			fmt.Sprintf("#%d", r.Priority),
			string(r.Type),
			SeverityIndicator(r.Severity),
			desc,
			Dim(r.EstimatedImpact),
		})
	}
	return RenderTable([]string{"PRIORITY", "ACTION", "SEVERITY", "DESCRIPTION", "IMPACT"}, rows)
}

func formatChanges(res *simulation.Result) string {
	rows := make([][]string, 0, len(res.AppliedChanges))
	for _, c := range res.AppliedChanges {
		rows = append(rows, []string{
			c.EntityType,
			TruncID(c.EntityID),
			c.Field,
			orDash(c.OldValue) + " → " + orDash(c.NewValue),
		})
	}
	var b strings.Builder
	if len(rows) > 0 {
		b.WriteString(RenderTable([]string{"ENTITY", "ID", "FIELD", "CHANGE"}, rows))
	}
	if res.IgnoredChanges > 0 {
		b.WriteString(StyleYellow.Render(fmt.Sprintf("%d change(s) ignored", res.IgnoredChanges)))
		b.WriteString("\n")
	}
	return b.String()
}

// FormatSimulationList renders one row per stored simulation.
func FormatSimulationList(results []*simulation.Result, now time.Time) string {
	if len(results) == 0 {
		return Dim("No simulations found.") + "\n"
	}
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		rows = append(rows, []string{
			r.SimulationID,
			r.ScenarioName,
			r.ScenarioType,
			fmt.Sprintf("%d", len(r.Conflicts)),
			SignedHours(r.Metrics.ScheduleDeltaHours),
			HumanTimestamp(r.CreatedAt, now),
		})
	}
	return RenderTable([]string{"ID", "SCENARIO", "TYPE", "CONFLICTS", "DELTA", "CREATED"}, rows)
}

// FormatImportResult summarises an import and lists the generated IDs.
func FormatImportResult(res *importer.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Imported %d ship visit(s), %d asset(s), %d schedule(s), %d task(s)\n",
		res.ShipVisitCount, res.AssetCount, res.ScheduleCount, res.TaskCount)
	if len(res.Refs) == 0 {
		return b.String()
	}
	refs := make([]string, 0, len(res.Refs))
	for ref := range res.Refs {
		refs = append(refs, ref)
	}
	sort.Strings(refs)
	rows := make([][]string, 0, len(refs))
	for _, ref := range refs {
		rows = append(rows, []string{ref, res.Refs[ref]})
	}
	b.WriteString("\n")
	b.WriteString(RenderTable([]string{"REF", "ID"}, rows))
	return b.String()
}

func orDash(s string) string {
	if s == "" {
		return "--"
	}
	return s
}
