package domain

import "time"

// Asset is a piece of port equipment or infrastructure.
type Asset struct {
	ID     string      `json:"id"`
	Name   string      `json:"name"`
	Type   AssetType   `json:"type"`
	Status AssetStatus `json:"status"`

	// Declared capacities, consulted by conflict detection and
	// alternative-resource search. Nil means undeclared.
	MaxCapacity   *float64 `json:"maxCapacity,omitempty"`
	CraneCapacity *float64 `json:"craneCapacity,omitempty"`

	Attributes map[string]Value `json:"attributes,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (a *Asset) IsCrane() bool {
	return a.Type == AssetCrane
}

func (a *Asset) IsAvailable() bool {
	return a.Status == AssetAvailable
}

// DisplayName falls back to the ID when no name is set.
func (a *Asset) DisplayName() string {
	return CoalesceStr(a.Name, a.ID)
}

// ShipVisit is a vessel's port call.
type ShipVisit struct {
	ID         string          `json:"id"`
	VesselName string          `json:"vesselName"`
	IMO        string          `json:"imo,omitempty"`
	Status     ShipVisitStatus `json:"status"`

	ETA time.Time  `json:"eta"`
	ATA *time.Time `json:"ata,omitempty"`
	ETD time.Time  `json:"etd"`
	ATD *time.Time `json:"atd,omitempty"`

	ContainerCount int     `json:"containerCount"`
	BerthID        *string `json:"berthId,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ArrivalTime is the actual arrival when known, else the estimate.
func (v *ShipVisit) ArrivalTime() time.Time {
	if v.ATA != nil {
		return *v.ATA
	}
	return v.ETA
}
