package cmd

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/harborlight/weekly/internal/input"
	"github.com/harborlight/weekly/internal/output"
	"github.com/harborlight/weekly/internal/report"
)

// planCmd represents the plan command
var planCmd = &cobra.Command{
	Use:   "plan <report>",
	Short: "Show the render plan for a report",
	Long: `Validate a report and print its render plan: the Markdown fragment for each
of the eleven anchors (META, SUMMARY, ACCOMPLISHMENTS, METRICS, BLOCKERS,
RISKS, DECISIONS, NEXT_WEEK, ASKS, PROVENANCE, MANUAL_NOTES) plus provenance.

The plan is what templates are filled from. Invalid reports get no plan; their
issues are printed to stderr instead.

Use --at to pin the generation time, which makes the output reproducible.`,
	Example: `  weekly plan week.json
  weekly plan week.yaml --format json
  weekly plan week.json --format text --at 2026-01-12T09:00:00Z`,
	Args: cobra.ExactArgs(1),
	RunE: runPlan,
}

var planAt string

func init() {
	rootCmd.AddCommand(planCmd)
	planCmd.Flags().StringVar(&planAt, "at", "", "Generation time as RFC 3339 (default: now)")
}

func runPlan(cmd *cobra.Command, args []string) error {
	format, err := resolveFormat(output.FormatYAML)
	if err != nil {
		return err
	}

	planner, err := plannerAt(planAt)
	if err != nil {
		return err
	}

	r, err := input.Load(args[0])
	if err != nil {
		return err
	}

	if result := report.Validate(r); !result.Valid {
		if err := output.WriteIssues(cmd.ErrOrStderr(), displayName(args[0]), result); err != nil {
			return err
		}
		return errors.Wrapf(ErrInvalidReport, "%s", displayName(args[0]))
	}

	plan := planner.Plan(r)
	if format.IsStructured() {
		return writeResult(cmd.OutOrStdout(), format, plan)
	}
	return output.WritePlan(cmd.OutOrStdout(), plan)
}

// plannerAt returns a planner pinned to at, or the wall clock when at is
// empty.
func plannerAt(at string) (report.Planner, error) {
	if at == "" {
		return report.Planner{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, at)
	if err != nil {
		return report.Planner{}, errors.WithHint(
			errors.Wrapf(err, "invalid --at %q", at),
			"use RFC 3339, e.g. 2026-01-12T09:00:00Z",
		)
	}
	return report.Planner{Now: func() time.Time { return t }}, nil
}
