package domain

type TaskStatus string

const (
	TaskPending    TaskStatus = "PENDING"
	TaskAssigned   TaskStatus = "ASSIGNED"
	TaskInProgress TaskStatus = "IN_PROGRESS"
	TaskCompleted  TaskStatus = "COMPLETED"
	TaskCancelled  TaskStatus = "CANCELLED"
	TaskFailed     TaskStatus = "FAILED"
)

// ValidTaskStatuses is the canonical set of accepted task status strings.
var ValidTaskStatuses = map[TaskStatus]bool{
	TaskPending: true, TaskAssigned: true, TaskInProgress: true,
	TaskCompleted: true, TaskCancelled: true, TaskFailed: true,
}

type ScheduleStatus string

const (
	SchedulePending    ScheduleStatus = "PENDING"
	ScheduleScheduled  ScheduleStatus = "SCHEDULED"
	ScheduleInProgress ScheduleStatus = "IN_PROGRESS"
	ScheduleCompleted  ScheduleStatus = "COMPLETED"
	ScheduleCancelled  ScheduleStatus = "CANCELLED"
)

var ValidScheduleStatuses = map[ScheduleStatus]bool{
	SchedulePending: true, ScheduleScheduled: true, ScheduleInProgress: true,
	ScheduleCompleted: true, ScheduleCancelled: true,
}

type AssetType string

const (
	AssetCrane           AssetType = "CRANE"
	AssetTruck           AssetType = "TRUCK"
	AssetReachStacker    AssetType = "REACH_STACKER"
	AssetStraddleCarrier AssetType = "STRADDLE_CARRIER"
	AssetTugboat         AssetType = "TUGBOAT"
	AssetPilotBoat       AssetType = "PILOT_BOAT"
	AssetBerth           AssetType = "BERTH"
	AssetOther           AssetType = "OTHER"
)

var ValidAssetTypes = map[AssetType]bool{
	AssetCrane: true, AssetTruck: true, AssetReachStacker: true,
	AssetStraddleCarrier: true, AssetTugboat: true, AssetPilotBoat: true,
	AssetBerth: true, AssetOther: true,
}

type AssetStatus string

const (
	AssetAvailable   AssetStatus = "AVAILABLE"
	AssetInUse       AssetStatus = "IN_USE"
	AssetMaintenance AssetStatus = "MAINTENANCE"
	AssetOffline     AssetStatus = "OFFLINE"
)

var ValidAssetStatuses = map[AssetStatus]bool{
	AssetAvailable: true, AssetInUse: true, AssetMaintenance: true, AssetOffline: true,
}

type ShipVisitStatus string

const (
	VisitPlanned   ShipVisitStatus = "PLANNED"
	VisitArrived   ShipVisitStatus = "ARRIVED"
	VisitBerthed   ShipVisitStatus = "BERTHED"
	VisitDeparted  ShipVisitStatus = "DEPARTED"
	VisitCancelled ShipVisitStatus = "CANCELLED"
)

var ValidShipVisitStatuses = map[ShipVisitStatus]bool{
	VisitPlanned: true, VisitArrived: true, VisitBerthed: true,
	VisitDeparted: true, VisitCancelled: true,
}

type ConflictType string

const (
	ConflictDoubleBooking    ConflictType = "RESOURCE_DOUBLE_BOOKING"
	ConflictCapacityExceeded ConflictType = "CAPACITY_EXCEEDED"
	ConflictTimeConstraint   ConflictType = "TIME_CONSTRAINT_VIOLATION"
	ConflictDependency       ConflictType = "DEPENDENCY_VIOLATION"
)

// ConflictTypes lists every conflict type in detector order.
var ConflictTypes = []ConflictType{
	ConflictDoubleBooking,
	ConflictCapacityExceeded,
	ConflictTimeConstraint,
	ConflictDependency,
}

type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
	SeverityMedium   Severity = "MEDIUM"
	SeverityLow      Severity = "LOW"
)

// Severities lists severities from most to least severe.
var Severities = []Severity{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow}

// Rank orders severities for sorting: CRITICAL=4 down to LOW=1, unknown=0.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

type RecommendationType string

const (
	RecommendDelayTask        RecommendationType = "DELAY_TASK"
	RecommendReassignResource RecommendationType = "REASSIGN_RESOURCE"
	RecommendReschedule       RecommendationType = "RESCHEDULE_OR_RENEGOTIATE"
	RecommendRemoveDependency RecommendationType = "REMOVE_DEPENDENCY"
)

// Rank orders recommendation types within the same severity band.
func (t RecommendationType) Rank() int {
	switch t {
	case RecommendReassignResource:
		return 1
	case RecommendDelayTask:
		return 2
	case RecommendReschedule:
		return 3
	case RecommendRemoveDependency:
		return 4
	default:
		return 5
	}
}
