package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/alexanderramin/planloom/internal/db"
	"github.com/alexanderramin/planloom/internal/repository"
	"github.com/alexanderramin/planloom/internal/service"
)

// App holds the services the commands run against.
type App struct {
	Scenarios    service.ScenarioService
	People       service.PersonService
	Projects     service.ProjectService
	Phases       service.PhaseTimelineService
	Assignments  service.AssignmentService
	Dependencies service.DependencyService
	Cascade      service.CascadeService
	Merge        service.MergeService

	// DefaultActor is recorded in audit entries when --actor is not given.
	DefaultActor string
}

// NewApp wires every service against repos and uow with the same options.
func NewApp(repos *repository.Repos, uow db.UnitOfWork, actor string, opts ...service.Option) *App {
	return &App{
		Scenarios:    service.NewScenarioService(repos, uow, opts...),
		People:       service.NewPersonService(repos, uow, opts...),
		Projects:     service.NewProjectService(repos, uow, opts...),
		Phases:       service.NewPhaseTimelineService(repos, uow, opts...),
		Assignments:  service.NewAssignmentService(repos, uow, opts...),
		Dependencies: service.NewDependencyService(repos, uow, opts...),
		Cascade:      service.NewCascadeService(repos, uow, opts...),
		Merge:        service.NewMergeService(repos, uow, opts...),
		DefaultActor: actor,
	}
}

// globals are the persistent flags shared by every subcommand.
type globals struct {
	scenario string
	actor    string
	json     bool
}

// NewRootCmd creates the top-level "planloom" command and registers all
// subcommands against app.
func NewRootCmd(app *App) *cobra.Command {
	g := &globals{}
	root := &cobra.Command{
		Use:           "planloom",
		Short:         "Scenario planning for projects, phases and people",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.StringVarP(&g.scenario, "scenario", "s", "", "Scenario name or ID (default: baseline)")
	pf.StringVar(&g.actor, "actor", app.DefaultActor, "Actor recorded in the audit log")
	pf.BoolVar(&g.json, "json", false, "Print JSON instead of tables")

	root.AddCommand(
		newScenarioCmd(app, g),
		newPersonCmd(app, g),
		newProjectCmd(app, g),
		newPhaseCmd(app, g),
		newAssignCmd(app, g),
		newDepCmd(app, g),
		newCascadeCmd(app, g),
		newMergeCmd(app, g),
	)
	return root
}

// emit prints v as indented JSON under --json, and text otherwise.
func (g *globals) emit(w io.Writer, v any, text func() string) error {
	if g.json {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	_, err := fmt.Fprintln(w, text())
	return err
}
