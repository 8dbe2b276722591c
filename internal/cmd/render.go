package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/harborlight/weekly/internal/archive"
	"github.com/harborlight/weekly/internal/config"
	"github.com/harborlight/weekly/internal/document"
	"github.com/harborlight/weekly/internal/input"
	"github.com/harborlight/weekly/internal/logging"
	"github.com/harborlight/weekly/internal/output"
	"github.com/harborlight/weekly/internal/pdf"
	"github.com/harborlight/weekly/internal/tmpl"
)

// renderCmd represents the render command
var renderCmd = &cobra.Command{
	Use:   "render <report> [template]",
	Short: "Render a report to Markdown, HTML or PDF",
	Long: `Validate a report and render it through a template.

Templates use {ANCHOR_NAME} or {{ anchorName }} placeholders, and
{{#if name}}...{{/if}} blocks that are dropped when the value is empty. The
built-in template for the format is used when no template is given as an
argument or in .weekly/config.yaml. Unknown placeholders are an error unless
--allow-unknown is set.

PDF output renders the HTML document with headless Chrome. Paper size,
margins, background printing and header/footer templates come from the flags
or the pdf section of the config.

Successful renders are recorded in .weekly/archive.db when weekly has been
initialized (see 'weekly history').`,
	Example: `  weekly render week.json                       # Markdown to stdout
  weekly render week.json team.md -o week.md    # Custom template
  weekly render week.yaml --to html -o week.html
  weekly render week.json --to pdf -o week.pdf --paper Letter --margin 0.5in
  weekly render week.json --to pdf --base64     # Base64 PDF to stdout`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runRender,
}

var (
	renderTo             string
	renderOutput         string
	renderAllowUnknown   bool
	renderPaper          string
	renderMargin         string
	renderNoBackground   bool
	renderHeaderTemplate string
	renderFooterTemplate string
	renderBase64         bool
)

func init() {
	rootCmd.AddCommand(renderCmd)

	renderCmd.Flags().StringVar(&renderTo, "to", "", "Output format: md, html or pdf (default: render.default_format)")
	renderCmd.Flags().StringVarP(&renderOutput, "output", "o", "", "Output file (default: stdout)")
	renderCmd.Flags().BoolVar(&renderAllowUnknown, "allow-unknown", false, "Leave unknown placeholders in the output")
	renderCmd.Flags().StringVar(&renderPaper, "paper", "", "PDF paper size: A4, Letter or Legal")
	renderCmd.Flags().StringVar(&renderMargin, "margin", "", "PDF margin on all sides, e.g. 15mm, 0.5in")
	renderCmd.Flags().BoolVar(&renderNoBackground, "no-background", false, "Do not print CSS backgrounds in PDF")
	renderCmd.Flags().StringVar(&renderHeaderTemplate, "header-template", "", "File with the PDF page header HTML")
	renderCmd.Flags().StringVar(&renderFooterTemplate, "footer-template", "", "File with the PDF page footer HTML")
	renderCmd.Flags().BoolVar(&renderBase64, "base64", false, "Write the PDF base64-encoded")
}

// renderJob is one render of a report file.
type renderJob struct {
	reportPath   string
	templatePath string
	format       document.Format
	outputPath   string
	allowUnknown bool
	pdf          pdf.Options
	base64       bool
}

func runRender(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	job, err := newRenderJob(cfg, args)
	if err != nil {
		return err
	}
	if job.format == document.FormatPDF {
		if job.pdf, err = renderPDFOptions(cfg); err != nil {
			return err
		}
	} else if renderBase64 {
		return errors.WithHint(
			errors.Newf("--base64 applies to pdf output, not %s", job.format),
			"add --to pdf",
		)
	}

	ctx := commandContext(cmd)
	builder, cleanup, err := newBuilder(ctx, cfg, job.format == document.FormatPDF)
	if err != nil {
		return err
	}
	defer cleanup()

	_, err = job.run(ctx, builder, cmd.OutOrStdout(), cmd.ErrOrStderr())
	return err
}

// newRenderJob resolves the positional arguments and common render flags.
func newRenderJob(cfg *config.Config, args []string) (renderJob, error) {
	to := renderTo
	if to == "" {
		to = cfg.Render.DefaultFormat
	}
	format, err := document.ParseFormat(to)
	if err != nil {
		return renderJob{}, err
	}

	job := renderJob{
		reportPath:   args[0],
		format:       format,
		outputPath:   renderOutput,
		allowUnknown: renderAllowUnknown || cfg.Templates.AllowUnknown,
		base64:       renderBase64,
	}

	switch {
	case len(args) > 1:
		job.templatePath = args[1]
	case format == document.FormatMarkdown:
		job.templatePath = cfg.Templates.Markdown
	default:
		job.templatePath = cfg.Templates.HTML
	}

	return job, nil
}

// renderPDFOptions merges the pdf config section with the render flags.
func renderPDFOptions(cfg *config.Config) (pdf.Options, error) {
	paper := cfg.PDF.Format
	if renderPaper != "" {
		paper = renderPaper
	}
	format, err := pdf.ParseFormat(paper)
	if err != nil {
		return pdf.Options{}, err
	}

	opts := pdf.Options{
		Format:              format,
		Margin:              cfg.PDF.Margin,
		PrintBackground:     pdf.Bool(cfg.PDF.Background() && !renderNoBackground),
		DisplayHeaderFooter: cfg.PDF.DisplayHeaderFooter,
		HeaderTemplate:      cfg.PDF.HeaderHTML,
		FooterTemplate:      cfg.PDF.FooterHTML,
	}
	if renderMargin != "" {
		opts.Margin = renderMargin
	}
	if renderHeaderTemplate != "" {
		if opts.HeaderTemplate, err = readTextFile(renderHeaderTemplate, "header template"); err != nil {
			return pdf.Options{}, err
		}
		opts.DisplayHeaderFooter = true
	}
	if renderFooterTemplate != "" {
		if opts.FooterTemplate, err = readTextFile(renderFooterTemplate, "footer template"); err != nil {
			return pdf.Options{}, err
		}
		opts.DisplayHeaderFooter = true
	}
	return opts, nil
}

func readTextFile(path, what string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrapf(err, "reading %s", what)
	}
	return string(data), nil
}

// newBuilder wires the archive (when weekly is initialized and archiving is
// enabled) and, for PDF, a Chrome instance. cleanup releases both.
func newBuilder(ctx context.Context, cfg *config.Config, needPrinter bool) (*document.Builder, func(), error) {
	builder := &document.Builder{}
	var closers []func() error

	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				logging.Logger.Warnw("cleanup failed", logging.FieldError, err)
			}
		}
	}

	if cfg.Archive.IsEnabled() {
		if configDir, err := config.FindConfigDir("."); err == nil {
			a, err := archive.Open(configDir)
			if err != nil {
				logging.Logger.Warnw("archive unavailable, renders will not be recorded",
					logging.FieldError, err)
			} else {
				builder.Archive = a
				closers = append(closers, a.Close)
			}
		} else {
			logging.Logger.Debugw("no .weekly directory, renders will not be recorded")
		}
	}

	if needPrinter {
		start := time.Now()
		b, err := pdf.Launch(ctx, pdf.LaunchOptions{
			ExecPath: cfg.PDF.ChromePath,
			Timeout:  cfg.PDF.TimeoutDuration(),
		})
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		logging.Logger.Debugw("launched chrome", logging.FieldDurationMS, time.Since(start).Milliseconds())
		builder.Printer = b
		closers = append(closers, b.Close)
	}

	return builder, cleanup, nil
}

// run loads the report and template, renders, and writes the result to the
// output file or stdout. Validation issues go to stderr.
func (j renderJob) run(ctx context.Context, builder *document.Builder, stdout, stderr io.Writer) (*document.Result, error) {
	r, err := input.Load(j.reportPath)
	if err != nil {
		return nil, err
	}

	req := document.Request{
		Format:       j.format,
		AllowUnknown: j.allowUnknown,
		PDF:          j.pdf,
		Base64:       j.base64,
		OutputPath:   j.outputPath,
	}
	if j.templatePath != "" {
		if req.Template, err = tmpl.ParseFile(j.templatePath); err != nil {
			return nil, err
		}
	}

	res, err := builder.Build(ctx, r, req)
	var verr *document.ValidationError
	if errors.As(err, &verr) {
		if werr := output.WriteIssues(stderr, displayName(j.reportPath), verr.Result); werr != nil {
			return nil, werr
		}
		return nil, errors.Wrapf(ErrInvalidReport, "%s", displayName(j.reportPath))
	}
	if err != nil {
		return nil, err
	}

	data := res.Output
	if j.base64 {
		data = append(data, '\n')
	}

	if j.outputPath == "" {
		if _, err := stdout.Write(data); err != nil {
			return nil, errors.Wrap(err, "writing output")
		}
	} else {
		if err := os.WriteFile(j.outputPath, data, 0644); err != nil {
			return nil, errors.Wrapf(err, "writing %s", j.outputPath)
		}
		fmt.Fprintf(stderr, "Wrote %s (%s, %d bytes)\n", j.outputPath, strings.ToUpper(string(j.format)), len(data))
	}

	logging.Logger.Infow("rendered report",
		logging.FieldFile, j.reportPath,
		logging.FieldTemplate, j.templatePath,
		logging.FieldFormat, j.format,
		logging.FieldOutput, j.outputPath,
		logging.FieldEntryID, res.EntryID)
	return res, nil
}
