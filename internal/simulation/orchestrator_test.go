package simulation

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/portops/portsim/internal/cache"
	"github.com/portops/portsim/internal/db"
	"github.com/portops/portsim/internal/domain"
	"github.com/portops/portsim/internal/events"
	"github.com/portops/portsim/internal/observability"
	"github.com/portops/portsim/internal/repository"
	"github.com/portops/portsim/internal/scenario"
	"github.com/portops/portsim/internal/testutil"
)

type mockSink struct {
	mock.Mock
}

func (m *mockSink) Publish(ctx context.Context, e events.Event) {
	m.Called(ctx, e)
}

func (m *mockSink) types() []events.Type {
	var out []events.Type
	for _, c := range m.Calls {
		out = append(out, c.Arguments.Get(1).(events.Event).Type)
	}
	return out
}

// stepClock advances by step on every read.
type stepClock struct {
	mu   sync.Mutex
	at   time.Time
	step time.Duration
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.at = c.at.Add(c.step)
	return c.at
}

type harness struct {
	db        *sql.DB
	store     Stores
	schedules *testutil.CountingScheduleRepo
	tasks     *testutil.CountingTaskRepo
	cache     *cache.LRU
	sink      *mockSink
	clock     *stepClock
	logs      *bytes.Buffer

	visit *domain.ShipVisit
	base  *domain.Schedule
	crane *domain.Asset
}

type harnessOption func(*harness, *[]Option, *db.UnitOfWork)

func withOptions(opts ...Option) harnessOption {
	return func(_ *harness, o *[]Option, _ *db.UnitOfWork) { *o = append(*o, opts...) }
}

func newHarness(t *testing.T, hopts ...harnessOption) (*harness, *Orchestrator) {
	t.Helper()
	database := testutil.NewTestDB(t)
	base := SQLiteStores(database)
	h := &harness{
		db:        database,
		schedules: &testutil.CountingScheduleRepo{ScheduleRepo: base.Schedules},
		tasks:     &testutil.CountingTaskRepo{TaskRepo: base.Tasks},
		cache:     cache.NewLRU(16, time.Hour),
		sink:      &mockSink{},
		clock:     &stepClock{at: testutil.At(-24), step: time.Millisecond},
		logs:      &bytes.Buffer{},
	}
	h.store = Stores{Schedules: h.schedules, Tasks: h.tasks, Assets: base.Assets, Visits: base.Visits}
	h.sink.On("Publish", mock.Anything, mock.Anything).Return()

	ctx := context.Background()
	h.visit = testutil.NewTestShipVisit("MSC Aurora")
	require.NoError(t, base.Visits.Create(ctx, h.visit))
	h.crane = testutil.NewTestAsset("STS-1", domain.AssetCrane)
	require.NoError(t, base.Assets.Create(ctx, h.crane))
	h.base = testutil.NewTestSchedule("Aurora berth 4",
		testutil.ForShipVisit(h.visit.ID),
		testutil.WithScheduleWindow(testutil.T0, testutil.At(10)))
	require.NoError(t, base.Schedules.Create(ctx, h.base))

	var uow db.UnitOfWork = testutil.NewTestUoW(database)
	opts := []Option{
		WithCache(h.cache),
		WithEvents(h.sink),
		WithClock(h.clock.Now),
		WithLogger(slog.New(slog.NewTextHandler(h.logs, &slog.HandlerOptions{Level: slog.LevelWarn}))),
	}
	for _, ho := range hopts {
		ho(h, &opts, &uow)
	}
	return h, NewOrchestrator(h.store, SQLiteStores, uow, Config{}, opts...)
}

func (h *harness) addTask(t *testing.T, title string, opts ...testutil.TaskOption) *domain.Task {
	t.Helper()
	task := testutil.NewTestTask(h.base.ID, title, opts...)
	require.NoError(t, SQLiteStores(h.db).Tasks.Create(context.Background(), task))
	return task
}

func shipDelay(scheduleID string, hours float64) *scenario.Descriptor {
	return &scenario.Descriptor{
		Name:           "Aurora late",
		BaseScheduleID: scheduleID,
		Type:           scenario.TypeShipDelay,
		ShipDelay:      &scenario.ShipDelay{DelayHours: hours},
	}
}

func TestRunSimulation_ShipDelayShiftsCloneOnly(t *testing.T) {
	h, o := newHarness(t)
	first := h.addTask(t, "discharge", testutil.OnResource(h.crane.ID),
		testutil.WithWindow(testutil.T0, testutil.At(4)))
	h.addTask(t, "load", testutil.OnResource(h.crane.ID),
		testutil.WithWindow(testutil.At(4), testutil.At(10)), testutil.WithPredecessors(first.ID))
	ctx := context.Background()

	res, err := o.RunSimulation(ctx, shipDelay(h.base.ID, 3))
	require.NoError(t, err)

	require.Len(t, res.Tasks, 2)
	assert.Equal(t, testutil.At(3), res.Tasks[0].StartTime)
	assert.Equal(t, testutil.At(13), res.Tasks[1].EndTime)
	assert.Equal(t, testutil.At(3), res.Schedule.StartTime)
	assert.Equal(t, testutil.At(13), res.Schedule.EndTime)
	assert.Equal(t, []string{res.Tasks[0].ID}, res.Tasks[1].Predecessors, "predecessors point at clones")
	assert.Empty(t, res.Conflicts)
	assert.Equal(t, 2, res.Metrics.TotalTasks)
	assert.Equal(t, 2, res.Metrics.AffectedTasks)
	assert.InDelta(t, 3.0, res.Metrics.ScheduleDeltaHours, 1e-9)
	assert.InDelta(t, 10.0, res.Metrics.BaseDurationHours, 1e-9)

	// base schedule and tasks untouched
	stored := SQLiteStores(h.db)
	baseTasks, err := stored.Tasks.ListBySchedule(ctx, h.base.ID)
	require.NoError(t, err)
	require.Len(t, baseTasks, 2)
	assert.Equal(t, testutil.T0, baseTasks[0].StartTime)
	assert.Equal(t, testutil.At(10), baseTasks[1].EndTime)
	assert.NotSame(t, baseTasks[0], res.Tasks[0])
	assert.NotEqual(t, baseTasks[0].ID, res.Tasks[0].ID)
	assert.Equal(t, baseTasks[0].ID, res.Tasks[0].SourceTaskID)

	baseSched, err := stored.Schedules.GetByID(ctx, h.base.ID)
	require.NoError(t, err)
	assert.Equal(t, testutil.T0, baseSched.StartTime)
	assert.False(t, baseSched.IsSimulation())

	// the persisted clone carries the marker and the snapshot block
	sim, err := stored.Schedules.GetByID(ctx, res.SimulationID)
	require.NoError(t, err)
	assert.True(t, sim.IsSimulation())
	block, ok := ParseBlock(sim.Notes)
	require.True(t, ok)
	assert.Equal(t, h.base.ID, block.BaseScheduleID)
	assert.Equal(t, "ship_delay", block.ScenarioType)
	assert.NotEmpty(t, block.AppliedChanges)

	simTasks, err := stored.Tasks.ListBySchedule(ctx, res.SimulationID)
	require.NoError(t, err)
	assert.Equal(t, testutil.At(3), simTasks[0].StartTime)

	assert.Equal(t, []events.Type{events.SimulationStarted, events.SimulationCompleted}, h.sink.types())
	completed := h.sink.Calls[1].Arguments.Get(1).(events.Event)
	assert.Equal(t, res.SimulationID, completed.SimulationID)
	assert.Same(t, res, completed.Result, "completed event carries the full result")
	assert.Nil(t, h.sink.Calls[0].Arguments.Get(1).(events.Event).Result)
}

func TestGetSimulationResult_CacheHitSkipsStore(t *testing.T) {
	h, o := newHarness(t)
	h.addTask(t, "discharge", testutil.OnResource(h.crane.ID))
	ctx := context.Background()

	res, err := o.RunSimulation(ctx, shipDelay(h.base.ID, 2))
	require.NoError(t, err)
	schedCalls, taskCalls := h.schedules.Calls.Total(), h.tasks.Calls.Total()

	got, err := o.GetSimulationResult(ctx, res.SimulationID)
	require.NoError(t, err)

	assert.Equal(t, schedCalls, h.schedules.Calls.Total(), "no schedule reads on a cache hit")
	assert.Equal(t, taskCalls, h.tasks.Calls.Total(), "no task reads on a cache hit")

	want, err := json.Marshal(res)
	require.NoError(t, err)
	have, err := json.Marshal(got)
	require.NoError(t, err)
	assert.Equal(t, string(want), string(have))
}

func TestGetSimulationResult_MissRehydratesFromStore(t *testing.T) {
	h, o := newHarness(t)
	h.addTask(t, "a", testutil.WithTaskID("a"), testutil.OnResource(h.crane.ID),
		testutil.WithWindow(testutil.T0, testutil.At(2)))
	h.addTask(t, "b", testutil.WithTaskID("b"), testutil.OnResource(h.crane.ID),
		testutil.WithWindow(testutil.At(3), testutil.At(5)))
	ctx := context.Background()

	d := &scenario.Descriptor{
		Name:           "squeeze",
		BaseScheduleID: h.base.ID,
		Type:           scenario.TypeCustom,
		Changes: []scenario.FieldChange{
			{EntityType: "task", EntityID: "b", Field: scenario.TaskFieldStartTime, NewValue: domain.TimeValue(testutil.At(1))},
			{EntityType: "asset", EntityID: h.crane.ID, Field: "status", NewValue: domain.StringValue("OFFLINE")},
		},
	}
	res, err := o.RunSimulation(ctx, d)
	require.NoError(t, err)
	require.Len(t, res.Conflicts, 1)
	assert.Equal(t, 1, res.IgnoredChanges)

	require.NoError(t, h.cache.Delete(ctx, CacheKey(res.SimulationID)))
	before := h.schedules.Calls.Count("GetByID")

	got, err := o.GetSimulationResult(ctx, res.SimulationID)
	require.NoError(t, err)
	assert.Greater(t, h.schedules.Calls.Count("GetByID"), before)

	assert.Equal(t, h.base.ID, got.BaseScheduleID)
	assert.Equal(t, "squeeze", got.ScenarioName)
	assert.Equal(t, "custom", got.ScenarioType)
	assert.Equal(t, 1, got.IgnoredChanges)
	require.Len(t, got.Conflicts, 1)
	assert.Equal(t, domain.ConflictDoubleBooking, got.Conflicts[0].Type)
	assert.Equal(t, res.Metrics.ScheduleDeltaHours, got.Metrics.ScheduleDeltaHours)
	assert.Equal(t, 1, got.Metrics.AffectedTasks)

	_, ok, err := h.cache.Get(ctx, CacheKey(res.SimulationID))
	require.NoError(t, err)
	assert.True(t, ok, "rehydrated result is cached again")
}

func TestGetSimulationResult_MissKeepsShiftedArrival(t *testing.T) {
	h, o := newHarness(t)
	h.addTask(t, "pilot boarding", testutil.WithWindow(testutil.At(-2), testutil.At(4)))
	ctx := context.Background()

	res, err := o.RunSimulation(ctx, shipDelay(h.base.ID, 3))
	require.NoError(t, err)
	require.Len(t, res.Conflicts, 1)
	assert.Equal(t, domain.ConflictTimeConstraint, res.Conflicts[0].Type)
	assert.InDelta(t, 2.0, res.Conflicts[0].Hours, 1e-9)

	require.NoError(t, h.cache.Delete(ctx, CacheKey(res.SimulationID)))
	got, err := o.GetSimulationResult(ctx, res.SimulationID)
	require.NoError(t, err)

	require.Len(t, got.Conflicts, 1, "rescan uses the delayed arrival")
	assert.Equal(t, domain.ConflictTimeConstraint, got.Conflicts[0].Type)
	assert.InDelta(t, 2.0, got.Conflicts[0].Hours, 1e-9)
	assert.Equal(t, res.Metrics.ConflictCount, got.Metrics.ConflictCount)

	sim, err := SQLiteStores(h.db).Schedules.GetByID(ctx, res.SimulationID)
	require.NoError(t, err)
	block, ok := ParseBlock(sim.Notes)
	require.True(t, ok)
	assert.Equal(t, block.ConflictCount, len(got.Conflicts))

	scanned, err := o.ScanSchedule(ctx, res.SimulationID)
	require.NoError(t, err)
	assert.Len(t, scanned, 1)

	stored, err := SQLiteStores(h.db).Visits.GetByID(ctx, h.visit.ID)
	require.NoError(t, err)
	assert.Equal(t, testutil.T0, stored.ETA, "the stored visit is never shifted")
}

func TestRunSimulation_DependencyConflictAndRecommendations(t *testing.T) {
	h, o := newHarness(t)
	a := h.addTask(t, "discharge", testutil.WithWindow(testutil.T0, testutil.At(10)))
	b := h.addTask(t, "load", testutil.WithWindow(testutil.At(10), testutil.At(12)), testutil.WithPredecessors(a.ID))

	d := &scenario.Descriptor{
		Name:           "load early",
		BaseScheduleID: h.base.ID,
		Type:           scenario.TypeCustom,
		Changes: []scenario.FieldChange{
			{EntityType: "task", EntityID: b.ID, Field: scenario.TaskFieldStartTime, NewValue: domain.TimeValue(testutil.At(5))},
		},
	}
	res, err := o.RunSimulation(context.Background(), d)
	require.NoError(t, err)

	require.Len(t, res.Conflicts, 1)
	c := res.Conflicts[0]
	assert.Equal(t, domain.ConflictDependency, c.Type)
	assert.Equal(t, domain.SeverityHigh, c.Severity)
	assert.InDelta(t, 5.0, c.Hours, 1e-9)
	assert.Equal(t, []string{res.Tasks[0].ID, res.Tasks[1].ID}, c.AffectedTaskIDs)

	require.Len(t, res.Recommendations, 2)
	assert.Equal(t, domain.RecommendDelayTask, res.Recommendations[0].Type)
	assert.Equal(t, domain.RecommendRemoveDependency, res.Recommendations[1].Type)
	assert.Equal(t, 1, res.Metrics.ConflictsBySeverity[domain.SeverityHigh])
}

func TestRunSimulation_InvalidScenarioCreatesNothing(t *testing.T) {
	h, o := newHarness(t)
	h.addTask(t, "discharge")
	ctx := context.Background()

	_, err := o.RunSimulation(ctx, &scenario.Descriptor{BaseScheduleID: h.base.ID, Type: scenario.TypeShipDelay})
	require.ErrorIs(t, err, ErrInvalidScenario)
	assert.Equal(t, CodeInvalidScenario, CodeOf(err))

	sims, err := SQLiteStores(h.db).Schedules.ListSimulations(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, sims)
	assert.Equal(t, []events.Type{events.SimulationStarted, events.SimulationFailed}, h.sink.types())
	failed := h.sink.Calls[1].Arguments.Get(1).(events.Event)
	assert.Equal(t, "INVALID_SCENARIO", failed.Fields["code"])
	assert.Empty(t, failed.SimulationID)
}

func TestRunSimulation_UnknownBaseIsNotFound(t *testing.T) {
	h, o := newHarness(t)

	_, err := o.RunSimulation(context.Background(), shipDelay("missing", 1))
	require.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, CodeNotFound, CodeOf(err))

	assert.Equal(t, []events.Type{events.SimulationStarted, events.SimulationFailed}, h.sink.types())
	failed := h.sink.Calls[1].Arguments.Get(1).(events.Event)
	assert.Equal(t, "NOT_FOUND", failed.Fields["code"])
	assert.NotEmpty(t, failed.Error)
}

func TestRunSimulation_CloneFailureRollsBack(t *testing.T) {
	boom := errors.New("disk I/O error")
	var failing *testutil.FailOnNthExecUoW
	h, o := newHarness(t, func(h *harness, _ *[]Option, uow *db.UnitOfWork) {
		failing = &testutil.FailOnNthExecUoW{DB: h.db, FailOn: 3, Err: boom}
		*uow = failing
	})
	h.addTask(t, "discharge")
	h.addTask(t, "load")
	ctx := context.Background()

	_, err := o.RunSimulation(ctx, shipDelay(h.base.ID, 1))
	require.ErrorIs(t, err, ErrInfrastructure)
	require.ErrorIs(t, err, boom)
	assert.True(t, failing.RolledBack.Load())

	store := SQLiteStores(h.db)
	sims, err := store.Schedules.ListSimulations(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, sims, "no partial clone survives")
	all, err := store.Schedules.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
	assert.Contains(t, h.sink.types(), events.SimulationFailed)
}

func TestRunSimulation_PersistFailureDiscardsClone(t *testing.T) {
	boom := errors.New("disk full")
	var failing *testutil.FailOnNthTxUoW
	h, o := newHarness(t, func(h *harness, _ *[]Option, uow *db.UnitOfWork) {
		failing = &testutil.FailOnNthTxUoW{DB: h.db, FailOn: 2, Err: boom}
		*uow = failing
	})
	h.addTask(t, "discharge", testutil.OnResource(h.crane.ID))
	ctx := context.Background()

	_, err := o.RunSimulation(ctx, shipDelay(h.base.ID, 1))
	require.ErrorIs(t, err, ErrInfrastructure)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, CodeInfra, CodeOf(err))
	assert.Contains(t, err.Error(), "persisting simulation")
	assert.EqualValues(t, 3, failing.Calls(), "clone, persist, discard")

	assert.Equal(t, 1, testutil.CountRows(t, h.db, "schedules"), "only the base schedule remains")
	assert.Equal(t, 1, testutil.CountRows(t, h.db, "tasks"))

	assert.Equal(t, []events.Type{events.SimulationStarted, events.SimulationFailed}, h.sink.types())
	failed := h.sink.Calls[1].Arguments.Get(1).(events.Event)
	assert.NotEmpty(t, failed.SimulationID, "the clone existed when the run failed")
	assert.Equal(t, "INFRA", failed.Fields["code"])
	assert.Nil(t, failed.Result)

	_, err = o.GetSimulationResult(ctx, failed.SimulationID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRunSimulation_MaintenanceMovesTasksIntoDoubleBooking(t *testing.T) {
	h, o := newHarness(t)
	discharge := h.addTask(t, "discharge", testutil.OnResource(h.crane.ID),
		testutil.WithWindow(testutil.T0, testutil.At(3)))
	lash := h.addTask(t, "lash", testutil.OnResource(h.crane.ID),
		testutil.WithWindow(testutil.At(5), testutil.At(8)))
	reefer := h.addTask(t, "reefer check", testutil.WithWindow(testutil.At(1), testutil.At(2)))
	ctx := context.Background()

	d := &scenario.Descriptor{
		Name:           "STS-1 gearbox",
		BaseScheduleID: h.base.ID,
		Type:           scenario.TypeAssetMaintenance,
		Maintenance:    &scenario.Maintenance{ResourceID: h.crane.ID, Start: testutil.At(1), DurationHours: 2},
	}
	res, err := o.RunSimulation(ctx, d)
	require.NoError(t, err)

	bySource := make(map[string]*domain.Task, len(res.Tasks))
	for _, task := range res.Tasks {
		bySource[task.SourceTaskID] = task
	}
	require.Len(t, bySource, 3)
	moved := bySource[discharge.ID]
	assert.Equal(t, testutil.At(3), moved.StartTime, "moved to the end of maintenance")
	assert.Equal(t, testutil.At(6), moved.EndTime)
	assert.Contains(t, moved.Notes, "maintenance")
	assert.Equal(t, testutil.At(5), bySource[lash.ID].StartTime, "no overlap, not moved")
	assert.Equal(t, testutil.At(1), bySource[reefer.ID].StartTime, "other resources are untouched")
	assert.Equal(t, 1, res.Metrics.AffectedTasks)

	require.Len(t, res.Conflicts, 1)
	c := res.Conflicts[0]
	assert.Equal(t, domain.ConflictDoubleBooking, c.Type)
	assert.InDelta(t, 1.0, c.Hours, 1e-9)
	assert.ElementsMatch(t, []string{moved.ID, bySource[lash.ID].ID}, c.AffectedTaskIDs)
	assert.NotEmpty(t, res.Recommendations)

	simTasks, err := SQLiteStores(h.db).Tasks.ListBySchedule(ctx, res.SimulationID)
	require.NoError(t, err)
	for _, task := range simTasks {
		if task.ID == moved.ID {
			assert.Equal(t, testutil.At(3), task.StartTime, "move is persisted on the clone")
		}
	}
	baseTasks, err := SQLiteStores(h.db).Tasks.ListBySchedule(ctx, h.base.ID)
	require.NoError(t, err)
	for _, task := range baseTasks {
		if task.ID == discharge.ID {
			assert.Equal(t, testutil.T0, task.StartTime)
		}
	}
}

func TestDeleteSimulation_RefusesLiveSchedule(t *testing.T) {
	h, o := newHarness(t)
	h.addTask(t, "discharge")
	ctx := context.Background()

	err := o.DeleteSimulation(ctx, h.base.ID)
	require.ErrorIs(t, err, ErrInvalidScenario)
	assert.Equal(t, CodeInvalidScenario, CodeOf(err))

	store := SQLiteStores(h.db)
	_, err = store.Schedules.GetByID(ctx, h.base.ID)
	require.NoError(t, err)
	tasks, err := store.Tasks.ListBySchedule(ctx, h.base.ID)
	require.NoError(t, err)
	assert.Len(t, tasks, 1)
}

func TestDeleteSimulation_RemovesRecordAndCache(t *testing.T) {
	h, o := newHarness(t)
	h.addTask(t, "discharge")
	ctx := context.Background()

	res, err := o.RunSimulation(ctx, shipDelay(h.base.ID, 1))
	require.NoError(t, err)
	require.NoError(t, o.DeleteSimulation(ctx, res.SimulationID))

	_, ok, err := h.cache.Get(ctx, CacheKey(res.SimulationID))
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = o.GetSimulationResult(ctx, res.SimulationID)
	assert.ErrorIs(t, err, ErrNotFound)
	tasks, err := SQLiteStores(h.db).Tasks.ListBySchedule(ctx, res.SimulationID)
	require.NoError(t, err)
	assert.Empty(t, tasks)

	assert.ErrorIs(t, o.DeleteSimulation(ctx, "nope"), ErrNotFound)
}

func TestApplySimulation_StripsMarkerIdempotently(t *testing.T) {
	h, o := newHarness(t)
	h.addTask(t, "discharge")
	ctx := context.Background()

	res, err := o.RunSimulation(ctx, shipDelay(h.base.ID, 1))
	require.NoError(t, err)

	require.NoError(t, o.ApplySimulation(ctx, res.SimulationID))
	require.NoError(t, o.ApplySimulation(ctx, res.SimulationID))

	sched, err := SQLiteStores(h.db).Schedules.GetByID(ctx, res.SimulationID)
	require.NoError(t, err)
	assert.Equal(t, "Aurora berth 4", sched.Name)
	_, ok := ParseBlock(sched.Notes)
	assert.True(t, ok, "snapshot block survives apply")

	list, err := o.ListRecentSimulations(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.ErrorIs(t, o.DeleteSimulation(ctx, res.SimulationID), ErrInvalidScenario)

	got, err := o.GetSimulationResult(ctx, res.SimulationID)
	require.NoError(t, err, "applied simulations stay readable")
	assert.Equal(t, h.base.ID, got.BaseScheduleID)

	assert.ErrorIs(t, o.ApplySimulation(ctx, h.base.ID), ErrInvalidScenario)
}

func TestListRecentSimulations_NewestFirst(t *testing.T) {
	h, o := newHarness(t)
	h.addTask(t, "discharge")
	ctx := context.Background()

	first, err := o.RunSimulation(ctx, shipDelay(h.base.ID, 1))
	require.NoError(t, err)
	second, err := o.RunSimulation(ctx, shipDelay(h.base.ID, 2))
	require.NoError(t, err)

	// one record only in the store, one cached
	require.NoError(t, h.cache.Delete(ctx, CacheKey(first.SimulationID)))

	list, err := o.ListRecentSimulations(ctx, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.SimulationID, list[0].SimulationID)
	assert.Equal(t, first.SimulationID, list[1].SimulationID)

	limited, err := o.ListRecentSimulations(ctx, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, second.SimulationID, limited[0].SimulationID)
}

func TestRunSimulation_LatencyBudgetWarnsButCompletes(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := observability.NewSimulationCollector(reg)
	require.NoError(t, err)
	h, o := newHarness(t, withOptions(WithMetrics(collector)))
	h.clock.step = 2 * time.Second
	h.addTask(t, "discharge")

	res, err := o.RunSimulation(context.Background(), shipDelay(h.base.ID, 1))
	require.NoError(t, err)

	assert.Greater(t, res.Metrics.ElapsedMs, int64(5000))
	assert.Contains(t, h.logs.String(), "simulation exceeded latency budget")
	assert.Equal(t, 1.0, promtest.ToFloat64(collector.BudgetOverruns))
	assert.Equal(t, 1.0, promtest.ToFloat64(collector.RunsTotal.WithLabelValues(observability.OutcomeCompleted, "ship_delay")))
}

func TestScanSchedule_ReadOnly(t *testing.T) {
	h, o := newHarness(t)
	h.addTask(t, "a", testutil.OnResource(h.crane.ID), testutil.WithWindow(testutil.T0, testutil.At(2)))
	h.addTask(t, "b", testutil.OnResource(h.crane.ID), testutil.WithWindow(testutil.At(1), testutil.At(3)))
	ctx := context.Background()

	conflicts, err := o.ScanSchedule(ctx, h.base.ID)
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	assert.Equal(t, domain.ConflictDoubleBooking, conflicts[0].Type)

	sims, err := SQLiteStores(h.db).Schedules.ListSimulations(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, sims)

	_, err = o.ScanSchedule(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestRunSimulation_ObserverSeesUseCase(t *testing.T) {
	var buf bytes.Buffer
	obs := NewLogUseCaseObserver(slog.New(slog.NewTextHandler(&buf, nil)))
	h, o := newHarness(t, withOptions(WithObserver(obs)))
	h.addTask(t, "discharge")

	_, err := o.RunSimulation(context.Background(), shipDelay(h.base.ID, 1))
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "use_case=simulation.run")
	assert.Contains(t, buf.String(), "success=true")
}
