package simulation

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/portops/portsim/internal/scenario"
)

// UnknownBaseSchedule is reported when an annotation no longer names the
// schedule a simulation was copied from.
const UnknownBaseSchedule = "unknown"

// Block is the simulation summary stored in a simulated schedule's Notes.
type Block struct {
	BaseScheduleID string                   `json:"baseScheduleId"`
	ScenarioName   string                   `json:"scenarioName"`
	ScenarioType   string                   `json:"scenarioType"`
	CreatedAt      time.Time                `json:"createdAt"`
	ConflictCount  int                      `json:"conflictCount"`
	AppliedChanges []scenario.AppliedChange `json:"appliedChanges"`
	IgnoredChanges int                      `json:"ignoredChanges"`
}

type blockEnvelope struct {
	Simulation *Block `json:"simulation"`
}

func EncodeBlock(b Block) (string, error) {
	if b.AppliedChanges == nil {
		b.AppliedChanges = []scenario.AppliedChange{}
	}
	data, err := json.Marshal(blockEnvelope{Simulation: &b})
	if err != nil {
		return "", fmt.Errorf("encoding simulation block: %w", err)
	}
	return string(data), nil
}

var baseScheduleIDPattern = regexp.MustCompile(`"baseScheduleId"\s*:\s*"([^"]*)"`)

// ParseBlock reads the block from notes. When the JSON is damaged it
// salvages baseScheduleId by pattern. ok is false when nothing was
// recognized; BaseScheduleID is then UnknownBaseSchedule.
func ParseBlock(notes string) (b Block, ok bool) {
	var env blockEnvelope
	if err := json.Unmarshal([]byte(strings.TrimSpace(notes)), &env); err == nil && env.Simulation != nil {
		b = *env.Simulation
		if b.BaseScheduleID == "" {
			b.BaseScheduleID = UnknownBaseSchedule
		}
		return b, true
	}
	if m := baseScheduleIDPattern.FindStringSubmatch(notes); m != nil && m[1] != "" {
		return Block{BaseScheduleID: m[1]}, true
	}
	return Block{BaseScheduleID: UnknownBaseSchedule}, false
}
