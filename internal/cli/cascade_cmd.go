package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/alexanderramin/planloom/internal/app"
	"github.com/alexanderramin/planloom/internal/cli/formatter"
)

func newCascadeCmd(a *App, g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cascade",
		Short: "Move a phase and reschedule everything that depends on it",
	}
	cmd.AddCommand(newCascadePreviewCmd(a, g), newCascadeApplyCmd(a, g))
	return cmd
}

// cascadeFlags select the moved phase and its new dates.
type cascadeFlags struct {
	project, phase string
	start, end     dateValue
}

func (f *cascadeFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.project, "project", "", "Project name or ID, to look up --phase by name")
	cmd.Flags().StringVar(&f.phase, "phase", "", "Phase being moved")
	cmd.Flags().Var(&f.start, "start", "New start date (default: unchanged)")
	cmd.Flags().Var(&f.end, "end", "New end date (YYYY-MM-DD)")
}

func (f *cascadeFlags) calculate(cmd *cobra.Command, a *App, g *globals) (*app.CascadeCalculateResponse, map[string]string, error) {
	if f.phase == "" || f.end.value == "" {
		return nil, nil, fmt.Errorf("--phase and --end are required")
	}
	scenarioID, id, err := resolvePhaseArg(cmd, a, g, f.project, f.phase)
	if err != nil {
		return nil, nil, err
	}
	resp, err := a.Cascade.Calculate(cmd.Context(), app.CascadeCalculateRequest{
		ScenarioID:      scenarioID,
		PhaseTimelineID: id,
		NewStartDate:    f.start.ptr(),
		NewEndDate:      f.end.value,
	})
	if err != nil {
		return nil, nil, err
	}
	idx, err := loadPhaseIndex(cmd.Context(), a, scenarioID, resp.ProjectID)
	if err != nil {
		return nil, nil, err
	}
	return resp, idx.labels(), nil
}

func newCascadePreviewCmd(a *App, g *globals) *cobra.Command {
	var f cascadeFlags
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Show the proposed date changes without writing",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, labels, err := f.calculate(cmd, a, g)
			if err != nil {
				return err
			}
			return g.emit(cmd.OutOrStdout(), resp, func() string {
				return formatter.FormatCascadePreview(resp, labels)
			})
		},
	}
	f.bind(cmd)
	return cmd
}

func newCascadeApplyCmd(a *App, g *globals) *cobra.Command {
	var f cascadeFlags
	var changesFile string
	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Commit a cascade atomically",
		Long: "Commit a cascade. With --phase/--end the cascade is recalculated\n" +
			"and applied; with --changes the reviewed output of\n" +
			"`cascade preview --json` is applied as is.",
		RunE: func(cmd *cobra.Command, args []string) error {
			var req app.CascadeApplyRequest
			if changesFile != "" {
				preview, err := readPreview(changesFile)
				if err != nil {
					return err
				}
				req = app.CascadeApplyRequest{ScenarioID: preview.ScenarioID, Changes: preview.Changes}
			} else {
				preview, _, err := f.calculate(cmd, a, g)
				if err != nil {
					return err
				}
				req = app.CascadeApplyRequest{ScenarioID: preview.ScenarioID, Changes: preview.Changes}
			}
			req.Actor = g.actor
			resp, err := a.Cascade.Apply(cmd.Context(), req)
			if err != nil {
				return err
			}
			return g.emit(cmd.OutOrStdout(), resp, func() string {
				return formatter.FormatCascadeApplied(resp)
			})
		},
	}
	f.bind(cmd)
	cmd.Flags().StringVar(&changesFile, "changes", "", "JSON file written by `cascade preview --json`")
	cmd.MarkFlagsMutuallyExclusive("changes", "phase")
	return cmd
}

func readPreview(path string) (*app.CascadeCalculateResponse, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading cascade changes: %w", err)
	}
	var resp app.CascadeCalculateResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("parsing cascade changes %s: %w", path, err)
	}
	return &resp, nil
}
