package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/portops/portsim/internal/db"
	"github.com/portops/portsim/internal/logging"
	"github.com/portops/portsim/internal/repository"
)

// ErrInvalidDataset wraps every validation failure reported by Import.
var ErrInvalidDataset = errors.New("invalid dataset")

// Result summarises one import.
type Result struct {
	ShipVisitCount int               `json:"shipVisitCount"`
	AssetCount     int               `json:"assetCount"`
	ScheduleCount  int               `json:"scheduleCount"`
	TaskCount      int               `json:"taskCount"`
	Refs           map[string]string `json:"refs"`
}

// Importer writes datasets through a unit of work so a failed import leaves
// nothing behind.
type Importer struct {
	uow    db.UnitOfWork
	stores func(q db.DBTX) repository.Set
	logger *slog.Logger
	now    func() time.Time
}

func New(uow db.UnitOfWork, logger *slog.Logger) *Importer {
	return &Importer{
		uow:    uow,
		stores: repository.NewSQLiteSet,
		logger: logging.OrDiscard(logger),
		now:    time.Now,
	}
}

// ImportFile loads, validates and imports the dataset at path.
func (im *Importer) ImportFile(ctx context.Context, path string) (*Result, error) {
	ds, err := LoadDataset(path)
	if err != nil {
		return nil, fmt.Errorf("loading import file: %w", err)
	}
	return im.Import(ctx, ds)
}

func (im *Importer) Import(ctx context.Context, ds *Dataset) (*Result, error) {
	if errs := ValidateDataset(ds); len(errs) > 0 {
		return nil, formatValidationErrors(errs)
	}

	converted, err := Convert(ds, im.now())
	if err != nil {
		return nil, fmt.Errorf("converting dataset: %w", err)
	}

	err = im.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		s := im.stores(tx)
		for _, a := range converted.Assets {
			if err := s.Assets.Create(ctx, a); err != nil {
				return fmt.Errorf("creating asset %q: %w", a.Name, err)
			}
		}
		for _, v := range converted.ShipVisits {
			if err := s.Visits.Create(ctx, v); err != nil {
				return fmt.Errorf("creating ship visit %q: %w", v.VesselName, err)
			}
		}
		for _, sch := range converted.Schedules {
			if err := s.Schedules.Create(ctx, sch); err != nil {
				return fmt.Errorf("creating schedule %q: %w", sch.Name, err)
			}
		}
		for _, t := range converted.Tasks {
			if err := s.Tasks.Create(ctx, t); err != nil {
				return fmt.Errorf("creating task %q: %w", t.Title, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	res := &Result{
		ShipVisitCount: len(converted.ShipVisits),
		AssetCount:     len(converted.Assets),
		ScheduleCount:  len(converted.Schedules),
		TaskCount:      len(converted.Tasks),
		Refs:           converted.Refs,
	}
	im.logger.InfoContext(ctx, "dataset imported",
		"ship_visits", res.ShipVisitCount,
		"assets", res.AssetCount,
		"schedules", res.ScheduleCount,
		"tasks", res.TaskCount)
	return res, nil
}

func formatValidationErrors(errs []error) error {
	var b strings.Builder
	fmt.Fprintf(&b, "import validation failed (%d errors):", len(errs))
	for _, e := range errs {
		b.WriteString("\n  - ")
		b.WriteString(e.Error())
	}
	return fmt.Errorf("%w: %s", ErrInvalidDataset, b.String())
}
