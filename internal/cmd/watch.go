package cmd

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/harborlight/weekly/internal/document"
	"github.com/harborlight/weekly/internal/input"
	"github.com/harborlight/weekly/internal/logging"
	"github.com/harborlight/weekly/internal/watch"
)

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch <report> [template]",
	Short: "Re-render a report whenever it or its template changes",
	Long: `Render a report once, then re-render it each time the report or template
file is saved. Bursts of file events are coalesced using watch.debounce from
the config (default 300ms).

A failed render (an invalid report, an unknown placeholder) is reported and
the watch continues; fix the file and save again. Stop with Ctrl-C.`,
	Example: `  weekly watch week.yaml -o week.md
  weekly watch week.json team.html --to html -o week.html`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringVar(&renderTo, "to", "", "Output format: md or html (default: render.default_format)")
	watchCmd.Flags().StringVarP(&renderOutput, "output", "o", "", "Output file (required)")
	watchCmd.Flags().BoolVar(&renderAllowUnknown, "allow-unknown", false, "Leave unknown placeholders in the output")
	_ = watchCmd.MarkFlagRequired("output")
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	job, err := newRenderJob(cfg, args)
	if err != nil {
		return err
	}
	if job.format == document.FormatPDF {
		return errors.WithHint(
			errors.New("watch renders md or html"),
			"use `weekly render --to pdf` for a one-off PDF",
		)
	}
	if job.outputPath == "" {
		return errors.New("--output is required")
	}
	if job.reportPath == input.Stdin {
		return errors.New("watch needs a report file, not stdin")
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	builder, cleanup, err := newBuilder(ctx, cfg, false)
	if err != nil {
		return err
	}
	defer cleanup()

	rebuild := job.rebuilder(ctx, builder, cmd.OutOrStdout(), cmd.ErrOrStderr())

	// The first render may fail; the watch still starts so the user can fix
	// the file.
	_ = rebuild()

	paths := []string{job.reportPath}
	if job.templatePath != "" {
		paths = append(paths, job.templatePath)
	}

	w, err := watch.New(paths, cfg.Watch.DebounceDuration(), rebuild)
	if err != nil {
		return err
	}

	logging.Logger.Infow("watching for changes",
		logging.FieldFile, job.reportPath,
		logging.FieldTemplate, job.templatePath,
		logging.FieldOutput, job.outputPath)
	return w.Run(ctx)
}

// rebuilder returns the watch callback for j. Failures are written to stderr
// and not returned, so the watcher does not report them a second time.
func (j renderJob) rebuilder(ctx context.Context, builder *document.Builder, stdout, stderr io.Writer) func() error {
	return func() error {
		_, err := j.run(ctx, builder, stdout, stderr)
		if err != nil && !errors.Is(err, ErrInvalidReport) {
			printError(stderr, err)
		}
		return nil
	}
}
