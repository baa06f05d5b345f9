package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/alexanderramin/planloom/internal/cli/formatter"
	"github.com/alexanderramin/planloom/internal/domain"
)

func newProjectCmd(app *App, g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Manage projects in a scenario",
	}
	cmd.AddCommand(
		newProjectAddCmd(app, g),
		newProjectListCmd(app, g),
		newProjectUpdateCmd(app, g),
		newProjectRemoveCmd(app, g),
	)
	return cmd
}

// projectFlags are shared by add and update.
type projectFlags struct {
	name, description string
	status            *choiceValue
	start, target     dateValue
}

func (f *projectFlags) bind(cmd *cobra.Command) {
	f.status = newChoice(string(domain.ProjectActive), projectStatuses()...)
	cmd.Flags().StringVar(&f.name, "name", "", "Project name")
	cmd.Flags().StringVar(&f.description, "description", "", "Free-form description")
	cmd.Flags().Var(f.status, "status", "Project status")
	cmd.Flags().Var(&f.start, "start", "Start date (YYYY-MM-DD)")
	cmd.Flags().Var(&f.target, "target", "Target date (YYYY-MM-DD)")
}

// apply copies the flags the user set onto p.
func (f *projectFlags) apply(cmd *cobra.Command, p *domain.Project) error {
	fs := cmd.Flags()
	if fs.Changed("name") {
		p.Name = f.name
	}
	if fs.Changed("description") {
		p.Description = f.description
	}
	if fs.Changed("status") || p.Status == "" {
		p.Status = domain.ProjectStatus(f.status.String())
	}
	var err error
	if fs.Changed("start") {
		if p.StartDate, err = parseOptionalDate(f.start.value); err != nil {
			return err
		}
	}
	if fs.Changed("target") {
		if p.TargetDate, err = parseOptionalDate(f.target.value); err != nil {
			return err
		}
	}
	return nil
}

func parseOptionalDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := domain.ParseDate(s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func newProjectAddCmd(app *App, g *globals) *cobra.Command {
	var f projectFlags
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a project",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			scenarioID, err := resolveScenarioID(ctx, app, g.scenario)
			if err != nil {
				return err
			}
			p := &domain.Project{}
			if err := f.apply(cmd, p); err != nil {
				return err
			}
			if err := app.Projects.Create(ctx, scenarioID, p, g.actor); err != nil {
				return err
			}
			return g.emit(cmd.OutOrStdout(), p, func() string {
				return formatter.Created("project", p.Name, p.ID)
			})
		},
	}
	f.bind(cmd)
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newProjectListCmd(app *App, g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List projects visible in the scenario",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			scenarioID, err := resolveScenarioID(ctx, app, g.scenario)
			if err != nil {
				return err
			}
			projects, err := app.Projects.List(ctx, scenarioID)
			if err != nil {
				return err
			}
			return g.emit(cmd.OutOrStdout(), projects, func() string {
				if len(projects) == 0 {
					return formatter.Empty("projects")
				}
				return formatter.FormatProjectList(projects)
			})
		},
	}
}

func newProjectUpdateCmd(app *App, g *globals) *cobra.Command {
	var f projectFlags
	cmd := &cobra.Command{
		Use:   "update PROJECT",
		Short: "Update a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			scenarioID, err := resolveScenarioID(ctx, app, g.scenario)
			if err != nil {
				return err
			}
			id, err := resolveProjectID(ctx, app, scenarioID, args[0])
			if err != nil {
				return err
			}
			p, err := app.Projects.Get(ctx, scenarioID, id)
			if err != nil {
				return err
			}
			if err := f.apply(cmd, p); err != nil {
				return err
			}
			if err := app.Projects.Update(ctx, scenarioID, p, g.actor); err != nil {
				return err
			}
			return g.emit(cmd.OutOrStdout(), p, func() string {
				return formatter.Updated("project", p.Name, p.ID)
			})
		},
	}
	f.bind(cmd)
	return cmd
}

func newProjectRemoveCmd(app *App, g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "remove PROJECT",
		Short: "Remove a project with its phases and assignments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			scenarioID, err := resolveScenarioID(ctx, app, g.scenario)
			if err != nil {
				return err
			}
			id, err := resolveProjectID(ctx, app, scenarioID, args[0])
			if err != nil {
				return err
			}
			if err := app.Projects.Remove(ctx, scenarioID, id, g.actor); err != nil {
				return err
			}
			return g.emit(cmd.OutOrStdout(), map[string]string{"removed": id}, func() string {
				return formatter.Removed("project", id)
			})
		},
	}
}
