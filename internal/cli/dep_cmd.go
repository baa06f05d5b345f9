package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/alexanderramin/planloom/internal/app"
	"github.com/alexanderramin/planloom/internal/cli/formatter"
	"github.com/alexanderramin/planloom/internal/domain"
)

func newDepCmd(a *App, g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "dep",
		Aliases: []string{"dependency"},
		Short:   "Link phases with FS/SS/FF/SF dependencies",
	}
	cmd.AddCommand(
		newDepAddCmd(a, g),
		newDepUpdateCmd(a, g),
		newDepRemoveCmd(a, g),
		newDepListCmd(a, g),
	)
	return cmd
}

func newDepAddCmd(a *App, g *globals) *cobra.Command {
	var project, from, to string
	var lag int
	typ := newChoice(string(domain.FinishToStart), dependencyTypes()...)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Make --to depend on --from",
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
			pred, err := idx.resolve(from)
			if err != nil {
				return err
			}
			succ, err := idx.resolve(to)
			if err != nil {
				return err
			}
			d, err := a.Dependencies.Create(ctx, app.DependencyInput{
				ScenarioID:                 scenarioID,
				ProjectID:                  projectID,
				PredecessorPhaseTimelineID: pred,
				SuccessorPhaseTimelineID:   succ,
				DependencyType:             typ.String(),
				LagDays:                    lag,
			}, g.actor)
			if err != nil {
				return err
			}
			labels := idx.labels()
			return g.emit(cmd.OutOrStdout(), d, func() string {
				return formatter.Created("dependency", labels[pred]+" → "+labels[succ], d.ID)
			})
		},
	}
	cmd.Flags().StringVar(&project, "project", "", "Project name or ID, to look up phases by name")
	cmd.Flags().StringVar(&from, "from", "", "Predecessor phase")
	cmd.Flags().StringVar(&to, "to", "", "Successor phase")
	cmd.Flags().Var(typ, "type", "Dependency type (FF|FS|SF|SS)")
	cmd.Flags().IntVar(&lag, "lag", 0, "Lag in days (negative for lead)")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

// findDependency resolves input among the edges visible in the scenario.
func findDependency(ctx context.Context, a *App, scenarioID, input string) (*domain.Dependency, error) {
	deps, err := a.Dependencies.List(ctx, scenarioID, "")
	if err != nil {
		return nil, err
	}
	id, err := matchID("dependency", input, deps, func(d domain.Dependency) string { return d.ID }, nil)
	if err != nil {
		return nil, err
	}
	for i := range deps {
		if deps[i].ID == id {
			return &deps[i], nil
		}
	}
	return nil, domain.NotFound("dependency", id)
}

func newDepUpdateCmd(a *App, g *globals) *cobra.Command {
	var lag int
	typ := newChoice("", dependencyTypes()...)
	cmd := &cobra.Command{
		Use:   "update DEPENDENCY",
		Short: "Change a dependency's type or lag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			scenarioID, err := resolveScenarioID(ctx, a, g.scenario)
			if err != nil {
				return err
			}
			cur, err := findDependency(ctx, a, scenarioID, args[0])
			if err != nil {
				return err
			}
			in := app.DependencyInput{ScenarioID: scenarioID, DependencyType: typ.String(), LagDays: cur.LagDays}
			if cmd.Flags().Changed("lag") {
				in.LagDays = lag
			}
			d, err := a.Dependencies.Update(ctx, cur.ID, in, g.actor)
			if err != nil {
				return err
			}
			return g.emit(cmd.OutOrStdout(), d, func() string {
				return formatter.Updated("dependency", string(d.Type), d.ID)
			})
		},
	}
	cmd.Flags().Var(typ, "type", "Dependency type (FF|FS|SF|SS)")
	cmd.Flags().IntVar(&lag, "lag", 0, "Lag in days")
	return cmd
}

func newDepRemoveCmd(a *App, g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "remove DEPENDENCY",
		Short: "Delete a dependency owned by the scenario",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			scenarioID, err := resolveScenarioID(ctx, a, g.scenario)
			if err != nil {
				return err
			}
			d, err := findDependency(ctx, a, scenarioID, args[0])
			if err != nil {
				return err
			}
			if err := a.Dependencies.Delete(ctx, scenarioID, d.ID, g.actor); err != nil {
				return err
			}
			return g.emit(cmd.OutOrStdout(), map[string]string{"removed": d.ID}, func() string {
				return formatter.Removed("dependency", d.ID)
			})
		},
	}
}

func newDepListCmd(a *App, g *globals) *cobra.Command {
	var project string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List dependencies visible in the scenario",
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
			deps, err := a.Dependencies.List(ctx, scenarioID, projectID)
			if err != nil {
				return err
			}
			idx, err := loadPhaseIndex(ctx, a, scenarioID, projectID)
			if err != nil {
				return err
			}
			owner := scenarioID
			if owner == "" {
				base, err := a.Scenarios.Get(ctx, "")
				if err != nil {
					return err
				}
				owner = base.ID
			}
			return g.emit(cmd.OutOrStdout(), deps, func() string {
				if len(deps) == 0 {
					return formatter.Empty("dependencies")
				}
				return formatter.FormatDependencyList(deps, idx.labels(), owner)
			})
		},
	}
	cmd.Flags().StringVar(&project, "project", "", "Only this project")
	return cmd
}
