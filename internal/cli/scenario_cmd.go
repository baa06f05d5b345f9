package cli

import (
	"github.com/spf13/cobra"

	"github.com/alexanderramin/planloom/internal/cli/formatter"
	"github.com/alexanderramin/planloom/internal/domain"
)

func newScenarioCmd(app *App, g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "scenario",
		Aliases: []string{"sc"},
		Short:   "Manage the baseline and its branches",
	}
	cmd.AddCommand(
		newScenarioBaselineCmd(app, g),
		newScenarioBranchCmd(app, g),
		newScenarioListCmd(app, g),
		newScenarioShowCmd(app, g),
		newScenarioArchiveCmd(app, g),
	)
	return cmd
}

func newScenarioBaselineCmd(app *App, g *globals) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "baseline",
		Short: "Create the plan of record",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.Scenarios.CreateBaseline(cmd.Context(), name, g.actor)
			if err != nil {
				return err
			}
			return g.emit(cmd.OutOrStdout(), s, func() string {
				return formatter.Created("baseline", s.Name, s.ID)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "Plan of record", "Baseline name")
	return cmd
}

func newScenarioBranchCmd(app *App, g *globals) *cobra.Command {
	var name, parent string
	typ := newChoice(string(domain.ScenarioBranch), string(domain.ScenarioBranch), string(domain.ScenarioSandbox))

	cmd := &cobra.Command{
		Use:   "branch",
		Short: "Branch a scenario from --parent (default: --scenario)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if parent == "" {
				parent = g.scenario
			}
			parentID, err := resolveScenarioID(ctx, app, parent)
			if err != nil {
				return err
			}
			if parentID == "" {
				base, err := app.Scenarios.Get(ctx, "")
				if err != nil {
					return err
				}
				parentID = base.ID
			}
			s, err := app.Scenarios.CreateBranch(ctx, parentID, name, domain.ScenarioType(typ.String()), g.actor)
			if err != nil {
				return err
			}
			return g.emit(cmd.OutOrStdout(), s, func() string {
				return formatter.Created(string(s.Type), s.Name, s.ID)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Scenario name")
	cmd.Flags().StringVar(&parent, "parent", "", "Parent scenario name or ID")
	cmd.Flags().Var(typ, "type", "Scenario type (branch|sandbox)")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newScenarioListCmd(app *App, g *globals) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show the scenario tree",
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := app.Scenarios.List(cmd.Context(), all)
			if err != nil {
				return err
			}
			return g.emit(cmd.OutOrStdout(), list, func() string {
				return formatter.FormatScenarioTree(list)
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Include merged and archived scenarios")
	return cmd
}

func newScenarioShowCmd(app *App, g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "show [SCENARIO]",
		Short: "Show a scenario and its lineage",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			input := g.scenario
			if len(args) == 1 {
				input = args[0]
			}
			id, err := resolveScenarioID(ctx, app, input)
			if err != nil {
				return err
			}
			s, err := app.Scenarios.Get(ctx, id)
			if err != nil {
				return err
			}
			chain, err := app.Scenarios.Ancestors(ctx, s.ID)
			if err != nil {
				return err
			}
			return g.emit(cmd.OutOrStdout(), s, func() string {
				return formatter.FormatScenario(s, chain)
			})
		},
	}
}

func newScenarioArchiveCmd(app *App, g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "archive SCENARIO",
		Short: "Archive a scenario and discard its changes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := resolveScenarioID(ctx, app, args[0])
			if err != nil {
				return err
			}
			if err := app.Scenarios.Archive(ctx, id, g.actor); err != nil {
				return err
			}
			return g.emit(cmd.OutOrStdout(), map[string]string{"archived": id}, func() string {
				return formatter.Removed("scenario", id)
			})
		},
	}
}
