package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/alexanderramin/planloom/internal/cli/formatter"
	"github.com/alexanderramin/planloom/internal/domain"
)

func newAssignCmd(app *App, g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "assign",
		Aliases: []string{"assignment"},
		Short:   "Staff people onto projects",
	}
	cmd.AddCommand(
		newAssignAddCmd(app, g),
		newAssignListCmd(app, g),
		newAssignUpdateCmd(app, g),
		newAssignRemoveCmd(app, g),
	)
	return cmd
}

type assignFlags struct {
	role, notes string
	allocation  int
	start, end  dateValue
}

func (f *assignFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.role, "role", "", "Role on the project")
	cmd.Flags().StringVar(&f.notes, "notes", "", "Notes")
	cmd.Flags().IntVar(&f.allocation, "allocation", 100, "Allocation percentage (0-100)")
	cmd.Flags().Var(&f.start, "start", "Start date (YYYY-MM-DD)")
	cmd.Flags().Var(&f.end, "end", "End date (YYYY-MM-DD)")
}

func (f *assignFlags) apply(cmd *cobra.Command, a *domain.Assignment, creating bool) error {
	fs := cmd.Flags()
	if creating || fs.Changed("role") {
		a.Role = f.role
	}
	if creating || fs.Changed("notes") {
		a.Notes = f.notes
	}
	if creating || fs.Changed("allocation") {
		a.Allocation = f.allocation
	}
	var err error
	if fs.Changed("start") {
		if a.StartDate, err = parseOptionalDate(f.start.value); err != nil {
			return err
		}
	}
	if fs.Changed("end") {
		if a.EndDate, err = parseOptionalDate(f.end.value); err != nil {
			return err
		}
	}
	return nil
}

func newAssignAddCmd(app *App, g *globals) *cobra.Command {
	var f assignFlags
	var project, person string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Assign a person to a project",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			scenarioID, err := resolveScenarioID(ctx, app, g.scenario)
			if err != nil {
				return err
			}
			projectID, err := resolveProjectID(ctx, app, scenarioID, project)
			if err != nil {
				return err
			}
			personID, err := resolvePersonID(ctx, app, person)
			if err != nil {
				return err
			}
			a := &domain.Assignment{ProjectID: projectID, PersonID: personID}
			if err := f.apply(cmd, a, true); err != nil {
				return err
			}
			if err := app.Assignments.Create(ctx, scenarioID, a, g.actor); err != nil {
				return err
			}
			return g.emit(cmd.OutOrStdout(), a, func() string {
				return formatter.Created("assignment", person, a.ID)
			})
		},
	}
	cmd.Flags().StringVar(&project, "project", "", "Project name or ID")
	cmd.Flags().StringVar(&person, "person", "", "Person name or ID")
	f.bind(cmd)
	_ = cmd.MarkFlagRequired("project")
	_ = cmd.MarkFlagRequired("person")
	return cmd
}

func newAssignListCmd(app *App, g *globals) *cobra.Command {
	var project string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List assignments",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			scenarioID, err := resolveScenarioID(ctx, app, g.scenario)
			if err != nil {
				return err
			}
			projectID := ""
			if project != "" {
				if projectID, err = resolveProjectID(ctx, app, scenarioID, project); err != nil {
					return err
				}
			}
			list, err := app.Assignments.List(ctx, scenarioID, projectID)
			if err != nil {
				return err
			}
			names, err := personNames(ctx, app)
			if err != nil {
				return err
			}
			return g.emit(cmd.OutOrStdout(), list, func() string {
				if len(list) == 0 {
					return formatter.Empty("assignments")
				}
				return formatter.FormatAssignmentList(list, names)
			})
		},
	}
	cmd.Flags().StringVar(&project, "project", "", "Only this project")
	return cmd
}

func personNames(ctx context.Context, app *App) (map[string]string, error) {
	people, err := app.People.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(people))
	for _, p := range people {
		out[p.ID] = p.Name
	}
	return out, nil
}

func resolveAssignmentID(ctx context.Context, app *App, scenarioID, input string) (string, error) {
	list, err := app.Assignments.List(ctx, scenarioID, "")
	if err != nil {
		return "", err
	}
	return matchID("assignment", input, list, func(a domain.Assignment) string { return a.ID }, nil)
}

func newAssignUpdateCmd(app *App, g *globals) *cobra.Command {
	var f assignFlags
	cmd := &cobra.Command{
		Use:   "update ASSIGNMENT",
		Short: "Change an assignment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			scenarioID, err := resolveScenarioID(ctx, app, g.scenario)
			if err != nil {
				return err
			}
			id, err := resolveAssignmentID(ctx, app, scenarioID, args[0])
			if err != nil {
				return err
			}
			a, err := app.Assignments.Get(ctx, scenarioID, id)
			if err != nil {
				return err
			}
			if err := f.apply(cmd, a, false); err != nil {
				return err
			}
			if err := app.Assignments.Update(ctx, scenarioID, a, g.actor); err != nil {
				return err
			}
			return g.emit(cmd.OutOrStdout(), a, func() string {
				return formatter.Updated("assignment", formatter.Allocation(a.Allocation), a.ID)
			})
		},
	}
	f.bind(cmd)
	return cmd
}

func newAssignRemoveCmd(app *App, g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "remove ASSIGNMENT",
		Short: "Remove an assignment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			scenarioID, err := resolveScenarioID(ctx, app, g.scenario)
			if err != nil {
				return err
			}
			id, err := resolveAssignmentID(ctx, app, scenarioID, args[0])
			if err != nil {
				return err
			}
			if err := app.Assignments.Remove(ctx, scenarioID, id, g.actor); err != nil {
				return err
			}
			return g.emit(cmd.OutOrStdout(), map[string]string{"removed": id}, func() string {
				return formatter.Removed("assignment", id)
			})
		},
	}
}
