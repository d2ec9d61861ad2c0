package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/portops/portsim/internal/cli/formatter"
	"github.com/portops/portsim/internal/domain"
	"github.com/portops/portsim/internal/scenario"
)

// DefaultListLimit is the number of simulations list shows without --limit.
const DefaultListLimit = 10

func newRunCmd(app *App, out *printer) *cobra.Command {
	var base, name string

	cmd := &cobra.Command{
		Use:   "run <scenario-file>",
		Short: "Run a what-if scenario against a base schedule",
		Long: "Run loads a scenario descriptor (YAML or JSON), clones its base schedule,\n" +
			"applies the scenario to the clone and reports conflicts and recommendations.\n" +
			"The base schedule is never modified.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := scenario.LoadDescriptor(args[0])
			if err != nil {
				return err
			}
			if base != "" {
				d.BaseScheduleID = base
			}
			if name != "" {
				d.Name = name
			}
			res, err := app.Simulations.RunSimulation(cmd.Context(), d)
			if err != nil {
				return err
			}
			return out.print(cmd.OutOrStdout(), res, func() string { return formatter.FormatResult(res) })
		},
	}

	cmd.Flags().StringVar(&base, "base", "", "override the scenario's base schedule ID")
	cmd.Flags().StringVar(&name, "name", "", "override the scenario name")
	return cmd
}

func newShowCmd(app *App, out *printer) *cobra.Command {
	return &cobra.Command{
		Use:   "show <simulation-id>",
		Short: "Show a stored simulation result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := app.Simulations.GetSimulationResult(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return out.print(cmd.OutOrStdout(), res, func() string { return formatter.FormatResult(res) })
		},
	}
}

func newListCmd(app *App, out *printer) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent simulations, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit <= 0 {
				return fmt.Errorf("--limit must be positive, got %d", limit)
			}
			results, err := app.Simulations.ListRecentSimulations(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return out.print(cmd.OutOrStdout(), nonNil(results), func() string {
				return formatter.FormatSimulationList(results, app.now())
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", DefaultListLimit, "maximum number of simulations to show")
	return cmd
}

func newApplyCmd(app *App, out *printer) *cobra.Command {
	return &cobra.Command{
		Use:   "apply <simulation-id>",
		Short: "Promote a simulation to a live schedule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			if err := app.Simulations.ApplySimulation(cmd.Context(), id); err != nil {
				return err
			}
			return out.print(cmd.OutOrStdout(), actionResult{ID: id, Action: "applied"}, func() string {
				return fmt.Sprintf("Applied simulation %s\n", id)
			})
		},
	}
}

func newDeleteCmd(app *App, out *printer) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <simulation-id>",
		Aliases: []string{"rm"},
		Short:   "Delete a simulation and its tasks",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			if err := app.Simulations.DeleteSimulation(cmd.Context(), id); err != nil {
				return err
			}
			return out.print(cmd.OutOrStdout(), actionResult{ID: id, Action: "deleted"}, func() string {
				return fmt.Sprintf("Deleted simulation %s\n", id)
			})
		},
	}
}

func newImportCmd(app *App, out *printer) *cobra.Command {
	return &cobra.Command{
		Use:   "import <dataset-file>",
		Short: "Import ship visits, assets, schedules and tasks from YAML or JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := app.Importer.ImportFile(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return out.print(cmd.OutOrStdout(), res, func() string { return formatter.FormatImportResult(res) })
		},
	}
}

func newScanCmd(app *App, out *printer) *cobra.Command {
	return &cobra.Command{
		Use:   "scan <schedule-id>",
		Short: "Detect conflicts in a schedule without simulating",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conflicts, err := app.Simulations.ScanSchedule(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return out.print(cmd.OutOrStdout(), scanResult{ScheduleID: args[0], Conflicts: nonNil(conflicts)}, func() string {
				var b strings.Builder
				b.WriteString(formatter.Header(fmt.Sprintf("Conflicts (%d)", len(conflicts))))
				b.WriteString("\n")
				b.WriteString(formatter.FormatConflicts(conflicts))
				return b.String()
			})
		},
	}
}

type actionResult struct {
	ID     string `json:"id"`
	Action string `json:"action"`
}

type scanResult struct {
	ScheduleID string            `json:"scheduleId"`
	Conflicts  []domain.Conflict `json:"conflicts"`
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
