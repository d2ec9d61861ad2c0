package repository

import (
	"context"

	"github.com/portops/portsim/internal/domain"
)

type TaskRepo interface {
	Create(ctx context.Context, t *domain.Task) error
	GetByID(ctx context.Context, id string) (*domain.Task, error)
	ListBySchedule(ctx context.Context, scheduleID string) ([]*domain.Task, error)
	// ListLiveByResource returns tasks bound to resourceID, excluding tasks
	// that belong to simulation schedules.
	ListLiveByResource(ctx context.Context, resourceID string) ([]*domain.Task, error)
	Update(ctx context.Context, t *domain.Task) error
	Delete(ctx context.Context, id string) error
	DeleteBySchedule(ctx context.Context, scheduleID string) (int, error)
}

type ScheduleRepo interface {
	Create(ctx context.Context, s *domain.Schedule) error
	GetByID(ctx context.Context, id string) (*domain.Schedule, error)
	List(ctx context.Context) ([]*domain.Schedule, error)
	// ListSimulations returns simulation-marked schedules, newest first.
	// A non-positive limit returns all of them.
	ListSimulations(ctx context.Context, limit int) ([]*domain.Schedule, error)
	Update(ctx context.Context, s *domain.Schedule) error
	Delete(ctx context.Context, id string) error
}

type AssetRepo interface {
	Create(ctx context.Context, a *domain.Asset) error
	GetByID(ctx context.Context, id string) (*domain.Asset, error)
	List(ctx context.Context) ([]*domain.Asset, error)
	ListByType(ctx context.Context, assetType domain.AssetType) ([]*domain.Asset, error)
	Update(ctx context.Context, a *domain.Asset) error
}

type ShipVisitRepo interface {
	Create(ctx context.Context, v *domain.ShipVisit) error
	GetByID(ctx context.Context, id string) (*domain.ShipVisit, error)
	List(ctx context.Context) ([]*domain.ShipVisit, error)
	Update(ctx context.Context, v *domain.ShipVisit) error
}
