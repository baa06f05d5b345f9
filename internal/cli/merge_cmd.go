package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alexanderramin/planloom/internal/app"
	"github.com/alexanderramin/planloom/internal/cli/formatter"
	"github.com/alexanderramin/planloom/internal/domain"
)

func newMergeCmd(a *App, g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "merge",
		Short: "Three-way merge a scenario into its parent or another scenario",
	}
	cmd.AddCommand(
		newMergePreviewCmd(a, g),
		newMergeRunCmd(a, g),
		newMergeConflictsCmd(a, g),
		newMergeResolveCmd(a, g),
	)
	return cmd
}

// mergeFlags build a ScenarioMergeRequest. --from defaults to --scenario.
type mergeFlags struct {
	from, into  string
	resolveAll  bool
	resolutions map[string]string
}

func (f *mergeFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.from, "from", "", "Source scenario (default: --scenario)")
	cmd.Flags().StringVar(&f.into, "into", "", "Target scenario (default: the source's parent)")
	cmd.Flags().BoolVar(&f.resolveAll, "resolve-all", false, "Take the source side of every unresolved conflict")
	cmd.Flags().StringToStringVar(&f.resolutions, "use", nil, "Per-entity resolution, ENTITY_ID=source|target|base")
}

func (f *mergeFlags) request(cmd *cobra.Command, a *App, g *globals) (app.ScenarioMergeRequest, error) {
	ctx := cmd.Context()
	from := f.from
	if from == "" {
		from = g.scenario
	}
	if from == "" {
		return app.ScenarioMergeRequest{}, fmt.Errorf("--from (or --scenario) is required; the baseline cannot be merged")
	}
	sourceID, err := resolveScenarioID(ctx, a, from)
	if err != nil {
		return app.ScenarioMergeRequest{}, err
	}
	targetID := ""
	if f.into != "" {
		if targetID, err = resolveScenarioID(ctx, a, f.into); err != nil {
			return app.ScenarioMergeRequest{}, err
		}
	}
	req := app.ScenarioMergeRequest{
		SourceScenarioID: sourceID,
		TargetScenarioID: targetID,
		ResolveConflicts: f.resolveAll,
		Actor:            g.actor,
	}
	if len(f.resolutions) > 0 {
		req.ConflictResolutions = make(map[string]app.ConflictResolution, len(f.resolutions))
		for entityID, kind := range f.resolutions {
			req.ConflictResolutions[entityID] = app.ConflictResolution{Resolution: resolutionName(kind)}
		}
	}
	return req, nil
}

// resolutionName accepts "source" as shorthand for "use_source".
func resolutionName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "source", "target", "base":
		return "use_" + s
	}
	return s
}

func newMergePreviewCmd(a *App, g *globals) *cobra.Command {
	var f mergeFlags
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Show what a merge would change and where it conflicts",
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := f.request(cmd, a, g)
			if err != nil {
				return err
			}
			res, err := a.Merge.Preview(cmd.Context(), req)
			if err != nil {
				return err
			}
			return g.emit(cmd.OutOrStdout(), res, func() string {
				return formatter.FormatMergeResult(res)
			})
		},
	}
	f.bind(cmd)
	return cmd
}

func newMergeRunCmd(a *App, g *globals) *cobra.Command {
	var f mergeFlags
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Merge, or record the conflicts that block the merge",
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := f.request(cmd, a, g)
			if err != nil {
				return err
			}
			res, err := a.Merge.Merge(cmd.Context(), req)
			if err != nil {
				return err
			}
			return g.emit(cmd.OutOrStdout(), res, func() string {
				return formatter.FormatMergeResult(res)
			})
		},
	}
	f.bind(cmd)
	return cmd
}

func newMergeConflictsCmd(a *App, g *globals) *cobra.Command {
	var f mergeFlags
	cmd := &cobra.Command{
		Use:   "conflicts",
		Short: "List the stored conflicts of a merge",
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := f.request(cmd, a, g)
			if err != nil {
				return err
			}
			list, err := a.Merge.ListConflicts(cmd.Context(), req.SourceScenarioID, req.TargetScenarioID)
			if err != nil {
				return err
			}
			return g.emit(cmd.OutOrStdout(), list, func() string {
				if len(list) == 0 {
					return formatter.Empty("conflicts")
				}
				flat := make([]domain.MergeConflict, len(list))
				for i, c := range list {
					flat[i] = *c
				}
				return formatter.FormatConflictTable(flat)
			})
		},
	}
	cmd.Flags().StringVar(&f.from, "from", "", "Source scenario (default: --scenario)")
	cmd.Flags().StringVar(&f.into, "into", "", "Target scenario (default: the source's parent)")
	return cmd
}

func newMergeResolveCmd(a *App, g *globals) *cobra.Command {
	var use, data string
	cmd := &cobra.Command{
		Use:   "resolve CONFLICT",
		Short: "Record a resolution for a stored conflict",
		Long: "Record a resolution for a stored conflict. --use manual takes\n" +
			"the entity to write as JSON in --data (JSON null removes it).",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cr := app.ConflictResolution{Resolution: resolutionName(use)}
			if data != "" {
				if !json.Valid([]byte(data)) {
					return fmt.Errorf("--data is not valid JSON")
				}
				cr.ResolvedData = json.RawMessage(data)
			}
			c, err := a.Merge.ResolveConflict(cmd.Context(), args[0], cr, g.actor)
			if err != nil {
				return err
			}
			return g.emit(cmd.OutOrStdout(), c, func() string {
				return formatter.Updated("conflict", string(c.Resolution.Kind), c.ID)
			})
		},
	}
	cmd.Flags().StringVar(&use, "use", "", "source|target|base|manual")
	cmd.Flags().StringVar(&data, "data", "", "Entity JSON for a manual resolution")
	_ = cmd.MarkFlagRequired("use")
	return cmd
}
