package scenario

import (
	"context"
	"testing"
	"time"

	"github.com/portops/portsim/internal/domain"
	"github.com/portops/portsim/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newWorkspace(tasks ...*domain.Task) *Workspace {
	visit := testutil.NewTestShipVisit("MSC Aurora")
	sched := testutil.NewTestSchedule("Aurora plan",
		testutil.ForShipVisit(visit.ID),
		testutil.WithScheduleWindow(testutil.T0, testutil.At(10)))
	for _, t := range tasks {
		t.ScheduleID = &sched.ID
	}
	return &Workspace{
		Schedule: sched,
		Tasks:    tasks,
		Visits:   map[string]*domain.ShipVisit{visit.ID: visit},
		Now:      testutil.At(-1),
	}
}

func TestApply_ShipDelay_ShiftsTasksAndBounds(t *testing.T) {
	ws := newWorkspace(
		testutil.NewTestTask("", "discharge", testutil.WithWindow(testutil.T0, testutil.At(4))),
		testutil.NewTestTask("", "load", testutil.WithWindow(testutil.At(4), testutil.At(10))),
	)
	d := &Descriptor{BaseScheduleID: ws.Schedule.ID, Type: TypeShipDelay, ShipDelay: &ShipDelay{DelayHours: 3}}

	out, err := NewApplier(nil).Apply(context.Background(), d, ws)
	require.NoError(t, err)

	assert.Equal(t, testutil.At(3), ws.Tasks[0].StartTime)
	assert.Equal(t, testutil.At(7), ws.Tasks[0].EndTime)
	assert.Equal(t, testutil.At(13), ws.Tasks[1].EndTime)
	assert.Equal(t, testutil.At(3), ws.Schedule.StartTime)
	assert.Equal(t, testutil.At(13), ws.Schedule.EndTime)

	visit := ws.Visits[*ws.Schedule.ShipVisitID]
	assert.Equal(t, testutil.At(3), visit.ArrivalTime(), "arrival moves with the delay")
	assert.Len(t, out.AffectedTaskIDs(), 2)
	assert.Zero(t, out.Ignored)
}

func TestApply_ShipDelay_ArrivalPrefersATA(t *testing.T) {
	ws := newWorkspace(testutil.NewTestTask("", "load"))
	visit := ws.Visits[*ws.Schedule.ShipVisitID]
	ata := testutil.At(1)
	visit.ATA = &ata

	d := &Descriptor{BaseScheduleID: ws.Schedule.ID, Type: TypeShipDelay, ShipDelay: &ShipDelay{DelayHours: 2}}
	out, err := NewApplier(nil).Apply(context.Background(), d, ws)
	require.NoError(t, err)

	assert.Equal(t, testutil.At(3), *visit.ATA)
	assert.Equal(t, testutil.T0, visit.ETA)
	assert.Equal(t, FieldATA, out.Applied[0].Field)
}

func TestApply_ShipDelay_UnknownVisitStillShiftsTasks(t *testing.T) {
	ws := newWorkspace(testutil.NewTestTask("", "load"))
	d := &Descriptor{BaseScheduleID: ws.Schedule.ID, Type: TypeShipDelay,
		ShipDelay: &ShipDelay{ShipVisitID: "elsewhere", DelayHours: -1}}

	_, err := NewApplier(nil).Apply(context.Background(), d, ws)
	require.NoError(t, err)
	assert.Equal(t, testutil.At(-1), ws.Tasks[0].StartTime)
}

func TestReplayArrivals_RestoresShiftedVisit(t *testing.T) {
	ws := newWorkspace(testutil.NewTestTask("", "load"))
	visitID := *ws.Schedule.ShipVisitID
	d := &Descriptor{BaseScheduleID: ws.Schedule.ID, Type: TypeShipDelay, ShipDelay: &ShipDelay{DelayHours: 3}}
	out, err := NewApplier(nil).Apply(context.Background(), d, ws)
	require.NoError(t, err)

	fresh := testutil.NewTestShipVisit("MSC Aurora")
	fresh.ID = visitID
	other := testutil.NewTestShipVisit("Ever Given")
	visits := map[string]*domain.ShipVisit{visitID: fresh, other.ID: other}

	ReplayArrivals(visits, out.Applied)

	assert.True(t, testutil.At(3).Equal(fresh.ETA), "eta %s", fresh.ETA)
	assert.Nil(t, fresh.ATA)
	assert.Equal(t, testutil.T0, other.ETA, "unrelated visits keep their arrival")
}

func TestReplayArrivals_SkipsUnknownAndMalformed(t *testing.T) {
	v := testutil.NewTestShipVisit("MSC Aurora")
	visits := map[string]*domain.ShipVisit{v.ID: v}

	ReplayArrivals(visits, []AppliedChange{
		{EntityType: EntityShipVisit, EntityID: "missing", Field: FieldETA, NewValue: "2026-01-01T00:00:00Z"},
		{EntityType: EntityShipVisit, EntityID: v.ID, Field: FieldETA, NewValue: "soon"},
		{EntityType: EntityTask, EntityID: v.ID, Field: FieldETA, NewValue: "2026-01-01T00:00:00Z"},
		{EntityType: EntityShipVisit, EntityID: v.ID, Field: FieldATA, NewValue: testutil.At(2).Format(time.RFC3339)},
	})

	assert.Equal(t, testutil.T0, v.ETA)
	require.NotNil(t, v.ATA)
	assert.True(t, testutil.At(2).Equal(*v.ATA))
}

func TestApply_Maintenance_MovesOverlappingTasksOnly(t *testing.T) {
	overlapping := testutil.NewTestTask("", "lift", testutil.WithTaskID("lift"),
		testutil.OnResource("crane-1"), testutil.WithWindow(testutil.At(1), testutil.At(3)))
	before := testutil.NewTestTask("", "early", testutil.WithTaskID("early"),
		testutil.OnResource("crane-1"), testutil.WithWindow(testutil.T0, testutil.At(1)))
	other := testutil.NewTestTask("", "truck", testutil.WithTaskID("truck"),
		testutil.OnResource("truck-1"), testutil.WithWindow(testutil.At(1), testutil.At(3)))
	ws := newWorkspace(overlapping, before, other)

	d := &Descriptor{BaseScheduleID: ws.Schedule.ID, Type: TypeAssetMaintenance,
		Maintenance: &Maintenance{ResourceID: "crane-1", Start: testutil.At(1), DurationHours: 4}}
	out, err := NewApplier(nil).Apply(context.Background(), d, ws)
	require.NoError(t, err)

	assert.Equal(t, testutil.At(5), overlapping.StartTime)
	assert.Equal(t, 2*time.Hour, overlapping.Duration())
	assert.Contains(t, overlapping.Notes, "maintenance of crane-1")

	assert.Equal(t, testutil.T0, before.StartTime, "touching the window is not overlapping")
	assert.Equal(t, testutil.At(1), other.StartTime)
	assert.Equal(t, []string{"lift"}, out.AffectedTaskIDs())
}

func TestApply_Custom_EditsMatchingTasks(t *testing.T) {
	clone := testutil.NewTestTask("", "load", testutil.WithTaskID("clone-1"))
	clone.SourceTaskID = "orig-1"
	ws := newWorkspace(clone)

	d := &Descriptor{BaseScheduleID: ws.Schedule.ID, Type: TypeCustom, Changes: []FieldChange{
		{EntityType: "task", EntityID: "orig-1", Field: TaskFieldStartTime, NewValue: domain.TimeValue(testutil.At(2))},
		{EntityType: "task", EntityID: "clone-1", Field: TaskFieldResourceID, NewValue: domain.StringValue("crane-9")},
		{EntityType: "task", EntityID: "clone-1", Field: TaskFieldStatus, NewValue: domain.StringValue("ASSIGNED")},
		{EntityType: "task", EntityID: "clone-1", Field: "metadata.bay", NewValue: domain.StringValue("B4")},
		{EntityType: "task", EntityID: "clone-1", Field: TaskFieldPredecessors, NewValue: domain.StringListValue([]string{"x"})},
	}}
	out, err := NewApplier(nil).Apply(context.Background(), d, ws)
	require.NoError(t, err)

	assert.Equal(t, testutil.At(2), clone.StartTime)
	require.NotNil(t, clone.ResourceID)
	assert.Equal(t, "crane-9", *clone.ResourceID)
	assert.Equal(t, domain.TaskAssigned, clone.Status)
	assert.Equal(t, "B4", clone.Attributes["bay"].Str)
	assert.Equal(t, []string{"x"}, clone.Predecessors)
	assert.Len(t, out.Applied, 5)
	assert.Zero(t, out.Ignored)
}

func TestApply_Custom_IgnoresNonTaskAndUnmatched(t *testing.T) {
	ws := newWorkspace(testutil.NewTestTask("", "load", testutil.WithTaskID("t1")))

	d := &Descriptor{BaseScheduleID: ws.Schedule.ID, Type: TypeCustom, Changes: []FieldChange{
		{EntityType: "asset", EntityID: "crane-1", Field: "status", NewValue: domain.StringValue("OFFLINE")},
		{EntityType: "ship_visit", EntityID: "v1", Field: "eta", NewValue: domain.TimeValue(testutil.At(5))},
		{EntityType: "task", EntityID: "ghost", Field: TaskFieldTitle, NewValue: domain.StringValue("x")},
		{EntityType: "task", EntityID: "t1", Field: TaskFieldAssigneeID, NewValue: domain.Value{}},
	}}
	out, err := NewApplier(nil).Apply(context.Background(), d, ws)
	require.NoError(t, err)
	assert.Equal(t, 3, out.Ignored)
	assert.Len(t, out.Applied, 1)
	assert.Nil(t, ws.Tasks[0].AssigneeID)
}

func TestApply_ValidatesFirst(t *testing.T) {
	task := testutil.NewTestTask("", "load")
	ws := newWorkspace(task)
	d := &Descriptor{BaseScheduleID: ws.Schedule.ID, Type: TypeAssetMaintenance}

	_, err := NewApplier(nil).Apply(context.Background(), d, ws)
	require.ErrorIs(t, err, ErrInvalidScenario)
	assert.Equal(t, testutil.T0, task.StartTime)
}
