package testutil

import (
	"context"
	"sync"

	"github.com/portops/portsim/internal/domain"
	"github.com/portops/portsim/internal/repository"
)

// Calls counts method invocations by name.
type Calls struct {
	mu sync.Mutex
	n  map[string]int
}

func (c *Calls) inc(method string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.n == nil {
		c.n = make(map[string]int)
	}
	c.n[method]++
}

// Count returns how many times method was called.
func (c *Calls) Count(method string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n[method]
}

// Total returns the number of calls across all methods.
func (c *Calls) Total() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := 0
	for _, v := range c.n {
		total += v
	}
	return total
}

// CountingScheduleRepo records reads made through it.
type CountingScheduleRepo struct {
	repository.ScheduleRepo
	Calls Calls
}

func (r *CountingScheduleRepo) GetByID(ctx context.Context, id string) (*domain.Schedule, error) {
	r.Calls.inc("GetByID")
	return r.ScheduleRepo.GetByID(ctx, id)
}

func (r *CountingScheduleRepo) ListSimulations(ctx context.Context, limit int) ([]*domain.Schedule, error) {
	r.Calls.inc("ListSimulations")
	return r.ScheduleRepo.ListSimulations(ctx, limit)
}

// CountingTaskRepo records reads made through it.
type CountingTaskRepo struct {
	repository.TaskRepo
	Calls Calls
}

func (r *CountingTaskRepo) ListBySchedule(ctx context.Context, scheduleID string) ([]*domain.Task, error) {
	r.Calls.inc("ListBySchedule")
	return r.TaskRepo.ListBySchedule(ctx, scheduleID)
}

func (r *CountingTaskRepo) ListLiveByResource(ctx context.Context, resourceID string) ([]*domain.Task, error) {
	r.Calls.inc("ListLiveByResource")
	return r.TaskRepo.ListLiveByResource(ctx, resourceID)
}
