package cli

import (
	"github.com/spf13/cobra"

	"github.com/alexanderramin/planloom/internal/cli/formatter"
	"github.com/alexanderramin/planloom/internal/domain"
)

func newPersonCmd(app *App, g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "person",
		Short: "Manage people (shared by every scenario)",
	}
	cmd.AddCommand(newPersonAddCmd(app, g), newPersonListCmd(app, g))
	return cmd
}

func newPersonAddCmd(app *App, g *globals) *cobra.Command {
	var name, role string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a person",
		RunE: func(cmd *cobra.Command, args []string) error {
			p := &domain.Person{Name: name, Role: role}
			if err := app.People.Create(cmd.Context(), p); err != nil {
				return err
			}
			return g.emit(cmd.OutOrStdout(), p, func() string {
				return formatter.Created("person", p.Name, p.ID)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Full name")
	cmd.Flags().StringVar(&role, "role", "", "Role or discipline")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newPersonListCmd(app *App, g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List people",
		RunE: func(cmd *cobra.Command, args []string) error {
			people, err := app.People.List(cmd.Context())
			if err != nil {
				return err
			}
			return g.emit(cmd.OutOrStdout(), people, func() string {
				if len(people) == 0 {
					return formatter.Empty("people")
				}
				return formatter.FormatPersonList(people)
			})
		},
	}
}
