package cmd

import (
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/harborlight/weekly/internal/input"
	"github.com/harborlight/weekly/internal/logging"
	"github.com/harborlight/weekly/internal/output"
	"github.com/harborlight/weekly/internal/report"
)

// validateCmd represents the validate command
var validateCmd = &cobra.Command{
	Use:   "validate <report>",
	Short: "Check a report against the reporting rules",
	Long: `Check a weekly report against the reporting rules and list every issue.

All checks run, so a single call reports every problem: missing metadata
fields, an unknown RAG status, bad or reversed week dates, blockers without an
owner or due date, and risks without likelihood or impact.

The command exits non-zero when the report is invalid. Use - to read the
report from stdin.`,
	Example: `  weekly validate week.json
  weekly validate week.yaml --format json
  cat week.json | weekly validate -`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	format, err := resolveFormat(output.FormatText)
	if err != nil {
		return err
	}

	r, err := input.Load(args[0])
	if err != nil {
		return err
	}

	result := report.Validate(r)
	logging.Logger.Debugw("validated report",
		logging.FieldFile, args[0],
		logging.FieldIssues, len(result.Issues))

	out := cmd.OutOrStdout()
	if format.IsStructured() {
		err = writeResult(out, format, result)
	} else {
		err = output.WriteIssues(out, displayName(args[0]), result)
	}
	if err != nil {
		return err
	}

	if !result.Valid {
		return errors.Wrapf(ErrInvalidReport, "%s", displayName(args[0]))
	}
	return nil
}
