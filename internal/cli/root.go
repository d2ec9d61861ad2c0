// Package cli exposes the simulation operations as cobra commands.
package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/portops/portsim/internal/domain"
	"github.com/portops/portsim/internal/importer"
	"github.com/portops/portsim/internal/scenario"
	"github.com/portops/portsim/internal/simulation"
)

// SimulationService is the subset of the orchestrator the commands use.
type SimulationService interface {
	RunSimulation(ctx context.Context, d *scenario.Descriptor) (*simulation.Result, error)
	GetSimulationResult(ctx context.Context, id string) (*simulation.Result, error)
	ListRecentSimulations(ctx context.Context, limit int) ([]*simulation.Result, error)
	ApplySimulation(ctx context.Context, id string) error
	DeleteSimulation(ctx context.Context, id string) error
	ScanSchedule(ctx context.Context, scheduleID string) ([]domain.Conflict, error)
}

type DatasetImporter interface {
	ImportFile(ctx context.Context, path string) (*importer.Result, error)
}

// App holds the services and output defaults shared by every command.
type App struct {
	Simulations SimulationService
	Importer    DatasetImporter

	// Output is the default format when --output is not given.
	Output OutputFormat

	Now func() time.Time
}

func (a *App) now() time.Time {
	if a.Now == nil {
		return time.Now()
	}
	return a.Now()
}

// NewRootCmd creates the top-level "portsim" command.
func NewRootCmd(app *App) *cobra.Command {
	format := app.Output
	if format == "" {
		format = OutputTable
	}

	root := &cobra.Command{
		Use:           "portsim",
		Short:         "What-if simulation for port operation schedules",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().VarP(&format, "output", "o", "output format: table or json")

	out := &printer{format: &format}
	root.AddCommand(
		newRunCmd(app, out),
		newShowCmd(app, out),
		newListCmd(app, out),
		newApplyCmd(app, out),
		newDeleteCmd(app, out),
		newImportCmd(app, out),
		newScanCmd(app, out),
	)
	return root
}
