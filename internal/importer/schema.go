// Package importer loads port datasets (ship visits, assets, schedules,
// tasks) from YAML or JSON files into the store.
package importer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Dataset is the top-level structure of an import file. Records refer to
// each other by ref; refs are replaced by generated IDs on import.
type Dataset struct {
	ShipVisits []ShipVisitImport `json:"ship_visits,omitempty"`
	Assets     []AssetImport     `json:"assets,omitempty"`
	Schedules  []ScheduleImport  `json:"schedules,omitempty"`
	Tasks      []TaskImport      `json:"tasks,omitempty"`
}

type ShipVisitImport struct {
	Ref            string  `json:"ref"`
	VesselName     string  `json:"vessel_name"`
	IMO            string  `json:"imo,omitempty"`
	Status         string  `json:"status,omitempty"`
	ETA            string  `json:"eta"`
	ATA            *string `json:"ata,omitempty"`
	ETD            string  `json:"etd,omitempty"`
	ATD            *string `json:"atd,omitempty"`
	ContainerCount int     `json:"container_count"`
	// BerthRef names a BERTH asset.
	BerthRef *string `json:"berth_ref,omitempty"`
}

type AssetImport struct {
	Ref           string         `json:"ref"`
	Name          string         `json:"name"`
	Type          string         `json:"type"`
	Status        string         `json:"status,omitempty"`
	MaxCapacity   *float64       `json:"max_capacity,omitempty"`
	CraneCapacity *float64       `json:"crane_capacity,omitempty"`
	Attributes    map[string]any `json:"attributes,omitempty"`
}

type ScheduleImport struct {
	Ref          string         `json:"ref"`
	Name         string         `json:"name"`
	ShipVisitRef *string        `json:"ship_visit_ref,omitempty"`
	Start        string         `json:"start"`
	End          string         `json:"end"`
	Status       string         `json:"status,omitempty"`
	Resources    map[string]any `json:"resources,omitempty"`
	Notes        string         `json:"notes,omitempty"`
}

type TaskImport struct {
	Ref         string  `json:"ref"`
	ScheduleRef string  `json:"schedule_ref"`
	ResourceRef *string `json:"resource_ref,omitempty"`
	AssigneeID  *string `json:"assignee_id,omitempty"`
	Title       string  `json:"title"`
	TaskType    string  `json:"task_type,omitempty"`
	Start       string  `json:"start"`
	End         string  `json:"end"`
	Status      string  `json:"status,omitempty"`
	Notes       string  `json:"notes,omitempty"`
	// Predecessors lists task refs.
	Predecessors []string       `json:"predecessors,omitempty"`
	Attributes   map[string]any `json:"attributes,omitempty"`
}

// LoadDataset reads an import file. Files ending in .json are parsed as
// JSON, anything else as YAML.
func LoadDataset(path string) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return ParseJSON(data)
	}
	return ParseYAML(data)
}

func ParseJSON(data []byte) (*Dataset, error) {
	var ds Dataset
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&ds); err != nil {
		return nil, fmt.Errorf("parsing import file: %w", err)
	}
	return &ds, nil
}

// ParseYAML decodes YAML through JSON so both formats share field names.
// Unquoted timestamps stay strings.
func ParseYAML(data []byte) (*Dataset, error) {
	var tree any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("parsing import file: %w", err)
	}
	converted, err := json.Marshal(tree)
	if err != nil {
		return nil, fmt.Errorf("converting import file: %w", err)
	}
	return ParseJSON(converted)
}
