package importer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/portops/portsim/internal/domain"
)

func TestConvert_ResolvesRefs(t *testing.T) {
	now := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	out, err := Convert(validDataset(), now)
	require.NoError(t, err)

	require.Len(t, out.Assets, 2)
	require.Len(t, out.ShipVisits, 1)
	require.Len(t, out.Schedules, 1)
	require.Len(t, out.Tasks, 2)

	visit := out.ShipVisits[0]
	require.NotNil(t, visit.BerthID)
	assert.Equal(t, out.Refs["berth-1"], *visit.BerthID)
	assert.Equal(t, domain.VisitPlanned, visit.Status)
	assert.Equal(t, 800, visit.ContainerCount)

	sched := out.Schedules[0]
	require.NotNil(t, sched.ShipVisitID)
	assert.Equal(t, visit.ID, *sched.ShipVisitID)
	assert.Equal(t, domain.ScheduleScheduled, sched.Status)

	discharge, load := out.Tasks[0], out.Tasks[1]
	assert.Equal(t, sched.ID, domain.StrOrEmpty(discharge.ScheduleID))
	assert.Equal(t, out.Refs["crane-1"], domain.StrOrEmpty(discharge.ResourceID))
	assert.Equal(t, []string{discharge.ID}, load.Predecessors)
	assert.Equal(t, domain.TaskPending, load.Status)
	assert.Equal(t, time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC), load.StartTime)
	assert.Equal(t, now, load.CreatedAt)
	assert.Equal(t, domain.AssetAvailable, out.Assets[0].Status)
}

func TestConvert_ForwardPredecessor(t *testing.T) {
	ds := validDataset()
	ds.Tasks[1].Predecessors = nil
	ds.Tasks[0].Predecessors = []string{"load"}

	out, err := Convert(ds, time.Now())
	require.NoError(t, err)
	assert.Equal(t, []string{out.Tasks[1].ID}, out.Tasks[0].Predecessors)
}

func TestConvert_Attributes(t *testing.T) {
	ds := validDataset()
	ds.Assets[1].Attributes = map[string]any{"outreach": 22.0, "tags": []any{"sts"}}

	out, err := Convert(ds, time.Now())
	require.NoError(t, err)
	n, ok := out.Assets[1].Attributes["outreach"].AsNumber()
	require.True(t, ok)
	assert.Equal(t, 22.0, n)
	tags, ok := out.Assets[1].Attributes["tags"].AsStringList()
	require.True(t, ok)
	assert.Equal(t, []string{"sts"}, tags)
}
