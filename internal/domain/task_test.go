package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

func TestTask_CloneInto_FreshIdentityAndProvenance(t *testing.T) {
	res := "crane-1"
	orig := &Task{
		ID:           "t-1",
		ResourceID:   &res,
		StartTime:    testNow,
		EndTime:      testNow.Add(2 * time.Hour),
		Predecessors: []string{"t-0"},
		Attributes:   map[string]Value{"bay": StringValue("A3")},
	}

	c := orig.CloneInto("t-1-copy", "sched-sim", testNow)

	assert.Equal(t, "t-1-copy", c.ID)
	assert.Equal(t, "t-1", c.SourceTaskID)
	require.NotNil(t, c.ScheduleID)
	assert.Equal(t, "sched-sim", *c.ScheduleID)
	assert.Contains(t, c.Notes, "cloned from t-1")

	// Mutating the clone must not leak into the original.
	*c.ResourceID = "crane-2"
	c.Predecessors[0] = "other"
	c.Attributes["bay"] = StringValue("B1")
	c.Shift(time.Hour, testNow)

	assert.Equal(t, "crane-1", *orig.ResourceID)
	assert.Equal(t, []string{"t-0"}, orig.Predecessors)
	assert.Equal(t, "A3", orig.Attributes["bay"].Str)
	assert.Equal(t, testNow, orig.StartTime)
}

func TestTask_MoveStartTo_PreservesDuration(t *testing.T) {
	task := &Task{StartTime: testNow, EndTime: testNow.Add(90 * time.Minute)}
	task.MoveStartTo(testNow.Add(5*time.Hour), testNow)
	assert.Equal(t, testNow.Add(5*time.Hour), task.StartTime)
	assert.Equal(t, 90*time.Minute, task.Duration())
}

func TestTask_Matches(t *testing.T) {
	task := &Task{ID: "clone", SourceTaskID: "orig"}
	assert.True(t, task.Matches("clone"))
	assert.True(t, task.Matches("orig"))
	assert.False(t, task.Matches(""))
	assert.False(t, task.Matches("other"))
}

func TestTask_RemovePredecessor(t *testing.T) {
	task := &Task{Predecessors: []string{"a", "b"}}
	assert.True(t, task.RemovePredecessor("a"))
	assert.False(t, task.RemovePredecessor("a"))
	assert.Equal(t, []string{"b"}, task.Predecessors)
}

func TestSchedule_RecalculateBounds(t *testing.T) {
	s := &Schedule{StartTime: testNow, EndTime: testNow.Add(time.Hour)}
	tasks := []*Task{
		{StartTime: testNow.Add(3 * time.Hour), EndTime: testNow.Add(5 * time.Hour)},
		{StartTime: testNow.Add(2 * time.Hour), EndTime: testNow.Add(4 * time.Hour)},
	}
	require.True(t, s.RecalculateBounds(tasks, testNow))
	assert.Equal(t, testNow.Add(2*time.Hour), s.StartTime)
	assert.Equal(t, testNow.Add(5*time.Hour), s.EndTime)
}

func TestSchedule_RecalculateBounds_EmptyLeavesBounds(t *testing.T) {
	s := &Schedule{StartTime: testNow, EndTime: testNow.Add(time.Hour)}
	assert.False(t, s.RecalculateBounds(nil, testNow))
	assert.Equal(t, testNow, s.StartTime)
	assert.Equal(t, testNow.Add(time.Hour), s.EndTime)
}

func TestSchedule_SimulationMarker(t *testing.T) {
	s := &Schedule{Name: "MSC Aurora berth plan"}
	assert.False(t, s.IsSimulation())

	s.MarkSimulation()
	s.MarkSimulation()
	assert.Equal(t, "[SIMULATION] MSC Aurora berth plan", s.Name)
	assert.True(t, s.IsSimulation())

	assert.True(t, s.StripSimulationMarker())
	assert.Equal(t, "MSC Aurora berth plan", s.Name)
	assert.False(t, s.StripSimulationMarker(), "second strip is a no-op")
}

func TestSeverity_Rank(t *testing.T) {
	assert.Greater(t, SeverityCritical.Rank(), SeverityHigh.Rank())
	assert.Greater(t, SeverityHigh.Rank(), SeverityMedium.Rank())
	assert.Greater(t, SeverityMedium.Rank(), SeverityLow.Rank())
	assert.Equal(t, 0, Severity("BOGUS").Rank())
}

func TestShipVisit_ArrivalTime(t *testing.T) {
	v := &ShipVisit{ETA: testNow}
	assert.Equal(t, testNow, v.ArrivalTime())

	ata := testNow.Add(2 * time.Hour)
	v.ATA = &ata
	assert.Equal(t, ata, v.ArrivalTime(), "actual arrival wins over estimate")
}

func TestValue_JSONRoundTrip(t *testing.T) {
	in := MapValue(map[string]Value{
		"cranes": StringListValue([]string{"c1", "c2"}),
		"pilots": NumberValue(2),
		"night":  BoolValue(true),
		"berth":  StringValue("B7"),
	})
	b, err := json.Marshal(in)
	require.NoError(t, err)
	assert.Equal(t, `{"berth":"B7","cranes":["c1","c2"],"night":true,"pilots":2}`, string(b))

	var out Value
	require.NoError(t, json.Unmarshal(b, &out))
	assert.Equal(t, KindMap, out.Kind)
	cranes, ok := out.Map["cranes"].AsStringList()
	require.True(t, ok)
	assert.Equal(t, []string{"c1", "c2"}, cranes)
	n, ok := out.Map["pilots"].AsNumber()
	require.True(t, ok)
	assert.Equal(t, 2.0, n)
}

func TestValue_AsNumber_AcceptsNumericStrings(t *testing.T) {
	n, ok := StringValue("4.5").AsNumber()
	require.True(t, ok)
	assert.Equal(t, 4.5, n)

	_, ok = StringValue("four").AsNumber()
	assert.False(t, ok)
	_, ok = BoolValue(true).AsNumber()
	assert.False(t, ok)
}

func TestValueOf_RejectsUnsupported(t *testing.T) {
	_, err := ValueOf(struct{}{})
	require.Error(t, err)
}
