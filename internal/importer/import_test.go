package importer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/portops/portsim/internal/repository"
	"github.com/portops/portsim/internal/testutil"
)

const datasetYAML = `
assets:
  - ref: berth-1
    name: Berth 1
    type: BERTH
    max_capacity: 2000
  - ref: crane-1
    name: STS 1
    type: CRANE
    crane_capacity: 500
ship_visits:
  - ref: aurora
    vessel_name: MSC Aurora
    eta: 2025-03-01T06:00:00Z
    etd: 2025-03-02T06:00:00Z
    container_count: 800
    berth_ref: berth-1
schedules:
  - ref: plan
    name: Aurora discharge
    ship_visit_ref: aurora
    start: 2025-03-01T06:00:00Z
    end: 2025-03-01T18:00:00Z
tasks:
  - ref: discharge
    schedule_ref: plan
    resource_ref: crane-1
    title: Discharge
    start: 2025-03-01T06:00:00Z
    end: 2025-03-01T12:00:00Z
  - ref: load
    schedule_ref: plan
    resource_ref: crane-1
    title: Load
    start: 2025-03-01T12:00:00Z
    end: 2025-03-01T18:00:00Z
    predecessors: [discharge]
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDataset_YAML(t *testing.T) {
	ds, err := LoadDataset(writeFile(t, "port.yaml", datasetYAML))
	require.NoError(t, err)
	require.Len(t, ds.Tasks, 2)
	assert.Equal(t, "2025-03-01T06:00:00Z", ds.ShipVisits[0].ETA)
	assert.Equal(t, []string{"discharge"}, ds.Tasks[1].Predecessors)
	assert.Empty(t, ValidateDataset(ds))
}

func TestLoadDataset_JSONRejectsUnknownFields(t *testing.T) {
	_, err := LoadDataset(writeFile(t, "port.json", `{"assets": [], "berths": []}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "berths")
}

func TestImportFile_Persists(t *testing.T) {
	database := testutil.NewTestDB(t)
	im := New(testutil.NewTestUoW(database), nil)
	ctx := context.Background()

	res, err := im.ImportFile(ctx, writeFile(t, "port.yml", datasetYAML))
	require.NoError(t, err)
	assert.Equal(t, 1, res.ShipVisitCount)
	assert.Equal(t, 2, res.AssetCount)
	assert.Equal(t, 1, res.ScheduleCount)
	assert.Equal(t, 2, res.TaskCount)

	stores := repository.NewSQLiteSet(database)
	tasks, err := stores.Tasks.ListBySchedule(ctx, res.Refs["plan"])
	require.NoError(t, err)
	require.Len(t, tasks, 2)

	visit, err := stores.Visits.GetByID(ctx, res.Refs["aurora"])
	require.NoError(t, err)
	assert.Equal(t, "MSC Aurora", visit.VesselName)
}

func TestImport_InvalidDatasetWritesNothing(t *testing.T) {
	database := testutil.NewTestDB(t)
	im := New(testutil.NewTestUoW(database), nil)
	ds := validDataset()
	ds.Tasks[0].ScheduleRef = "missing"

	_, err := im.Import(context.Background(), ds)
	require.ErrorIs(t, err, ErrInvalidDataset)
	assert.Contains(t, err.Error(), "import validation failed (1 errors)")

	assets, err := repository.NewSQLiteSet(database).Assets.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, assets)
}

func TestImport_RollsBackOnWriteFailure(t *testing.T) {
	database := testutil.NewTestDB(t)
	boom := errors.New("disk full")
	// Writes: 2 assets, 1 visit, 1 schedule, then tasks.
	failing := &testutil.FailOnNthExecUoW{DB: database, FailOn: 5, Err: boom}
	im := New(failing, nil)

	_, err := im.Import(context.Background(), validDataset())
	require.ErrorIs(t, err, boom)
	assert.True(t, failing.RolledBack.Load())

	stores := repository.NewSQLiteSet(database)
	assets, err := stores.Assets.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, assets)
	schedules, err := stores.Schedules.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, schedules)
}
