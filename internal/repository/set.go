package repository

import "github.com/portops/portsim/internal/db"

// Set groups the repositories that share one connection or transaction.
type Set struct {
	Schedules ScheduleRepo
	Tasks     TaskRepo
	Assets    AssetRepo
	Visits    ShipVisitRepo
}

// NewSQLiteSet builds every SQLite repository over q.
func NewSQLiteSet(q db.DBTX) Set {
	return Set{
		Schedules: NewSQLiteScheduleRepo(q),
		Tasks:     NewSQLiteTaskRepo(q),
		Assets:    NewSQLiteAssetRepo(q),
		Visits:    NewSQLiteShipVisitRepo(q),
	}
}
