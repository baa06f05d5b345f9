package cli

import (
	"github.com/spf13/cobra"

	"github.com/alexanderramin/planloom/internal/app"
	"github.com/alexanderramin/planloom/internal/cli/formatter"
)

func newPhaseCmd(a *App, g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "phase",
		Short: "Schedule project phases",
	}
	cmd.AddCommand(
		newPhaseAddCmd(a, g),
		newPhaseListCmd(a, g),
		newPhaseUpdateCmd(a, g),
		newPhaseRemoveCmd(a, g),
	)
	return cmd
}

func newPhaseAddCmd(a *App, g *globals) *cobra.Command {
	var project, phase string
	var start, end dateValue
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a phase timeline to a project",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			scenarioID, err := resolveScenarioID(ctx, a, g.scenario)
			if err != nil {
				return err
			}
			projectID, err := resolveProjectID(ctx, a, scenarioID, project)
			if err != nil {
				return err
			}
			pt, err := a.Phases.Create(ctx, scenarioID, app.PhaseTimelineInput{
				ProjectID: projectID,
				Phase:     phase,
				StartDate: start.value,
				EndDate:   end.value,
			}, g.actor)
			if err != nil {
				return err
			}
			return g.emit(cmd.OutOrStdout(), pt, func() string {
				return formatter.Created("phase", phase, pt.ID)
			})
		},
	}
	cmd.Flags().StringVar(&project, "project", "", "Project name or ID")
	cmd.Flags().StringVar(&phase, "phase", "", "Catalog phase name (created when new)")
	cmd.Flags().Var(&start, "start", "Start date (YYYY-MM-DD)")
	cmd.Flags().Var(&end, "end", "End date (YYYY-MM-DD, inclusive)")
	for _, f := range []string{"project", "phase", "start", "end"} {
		_ = cmd.MarkFlagRequired(f)
	}
	return cmd
}

func newPhaseListCmd(a *App, g *globals) *cobra.Command {
	var project string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List phase timelines",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			scenarioID, err := resolveScenarioID(ctx, a, g.scenario)
			if err != nil {
				return err
			}
			projectID := ""
			if project != "" {
				if projectID, err = resolveProjectID(ctx, a, scenarioID, project); err != nil {
					return err
				}
			}
			idx, err := loadPhaseIndex(ctx, a, scenarioID, projectID)
			if err != nil {
				return err
			}
			return g.emit(cmd.OutOrStdout(), idx.phases, func() string {
				if len(idx.phases) == 0 {
					return formatter.Empty("phases")
				}
				return formatter.FormatPhaseList(idx.phases, idx.names)
			})
		},
	}
	cmd.Flags().StringVar(&project, "project", "", "Only this project")
	return cmd
}

func newPhaseUpdateCmd(a *App, g *globals) *cobra.Command {
	var project string
	var start, end dateValue
	cmd := &cobra.Command{
		Use:   "update PHASE",
		Short: "Change a phase's dates without moving dependents",
		Long: "Change a phase's dates in place. Dependent phases are not moved;\n" +
			"use `cascade preview` and `cascade apply` to reschedule them.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			scenarioID, id, err := resolvePhaseArg(cmd, a, g, project, args[0])
			if err != nil {
				return err
			}
			pt, err := a.Phases.Update(ctx, scenarioID, id, app.PhaseTimelineInput{
				StartDate: start.value,
				EndDate:   end.value,
			}, g.actor)
			if err != nil {
				return err
			}
			return g.emit(cmd.OutOrStdout(), pt, func() string {
				return formatter.Updated("phase", formatter.DateRange(pt.StartDate, pt.EndDate), pt.ID)
			})
		},
	}
	cmd.Flags().StringVar(&project, "project", "", "Project name or ID, to look up PHASE by name")
	cmd.Flags().Var(&start, "start", "New start date (YYYY-MM-DD)")
	cmd.Flags().Var(&end, "end", "New end date (YYYY-MM-DD)")
	return cmd
}

func newPhaseRemoveCmd(a *App, g *globals) *cobra.Command {
	var project string
	cmd := &cobra.Command{
		Use:   "remove PHASE",
		Short: "Remove a phase timeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scenarioID, id, err := resolvePhaseArg(cmd, a, g, project, args[0])
			if err != nil {
				return err
			}
			if err := a.Phases.Remove(cmd.Context(), scenarioID, id, g.actor); err != nil {
				return err
			}
			return g.emit(cmd.OutOrStdout(), map[string]string{"removed": id}, func() string {
				return formatter.Removed("phase", id)
			})
		},
	}
	cmd.Flags().StringVar(&project, "project", "", "Project name or ID, to look up PHASE by name")
	return cmd
}

// resolvePhaseArg resolves the scenario and a phase given by ID, prefix or
// name (within --project when set).
func resolvePhaseArg(cmd *cobra.Command, a *App, g *globals, project, input string) (string, string, error) {
	ctx := cmd.Context()
	scenarioID, err := resolveScenarioID(ctx, a, g.scenario)
	if err != nil {
		return "", "", err
	}
	projectID := ""
	if project != "" {
		if projectID, err = resolveProjectID(ctx, a, scenarioID, project); err != nil {
			return "", "", err
		}
	}
	idx, err := loadPhaseIndex(ctx, a, scenarioID, projectID)
	if err != nil {
		return "", "", err
	}
	id, err := idx.resolve(input)
	if err != nil {
		return "", "", err
	}
	return scenarioID, id, nil
}
