// Package document runs the full report pipeline: validate, plan, render to
// Markdown, HTML or PDF, and archive the result.
package document

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/harborlight/weekly/internal/archive"
	"github.com/harborlight/weekly/internal/htmldoc"
	"github.com/harborlight/weekly/internal/logging"
	"github.com/harborlight/weekly/internal/pdf"
	"github.com/harborlight/weekly/internal/report"
	"github.com/harborlight/weekly/internal/tmpl"
)

// Format is a rendered document type.
type Format string

const (
	FormatMarkdown Format = "md"
	FormatHTML     Format = "html"
	FormatPDF      Format = "pdf"
)

// ParseFormat parses a document format. "markdown" is accepted for md.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "md", "markdown":
		return FormatMarkdown, nil
	case "html":
		return FormatHTML, nil
	case "pdf":
		return FormatPDF, nil
	default:
		return "", errors.Newf("invalid document format: %q (expected md, html, or pdf)", s)
	}
}

// Ext returns the file extension for f, including the dot.
func (f Format) Ext() string {
	return "." + string(f)
}

// ErrNoPrinter is returned for PDF requests when the Builder has no Printer.
var ErrNoPrinter = errors.New("no PDF printer configured")

// ValidationError is returned by Build when the report fails validation.
// No plan is generated for an invalid report.
type ValidationError struct {
	Result report.ValidationResult
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("report is invalid: %d issue(s): %s", len(e.Result.Issues), strings.Join(e.Result.Issues, "; "))
}

// Recorder stores render history. *archive.Archive implements it.
type Recorder interface {
	Record(e *archive.Entry) error
}

// Request describes one render.
type Request struct {
	Format Format

	// Template overrides the built-in template for the format. For pdf it
	// is an HTML template.
	Template     *tmpl.Template
	AllowUnknown bool

	PDF pdf.Options
	// Base64 returns the PDF base64-encoded. It applies to pdf only.
	Base64 bool

	// OutputPath is recorded in the archive; Build never writes files.
	OutputPath string
}

// Result is a successful render.
type Result struct {
	Format  Format
	Plan    *report.RenderPlan
	Output  []byte
	EntryID string
}

// Builder runs the pipeline. Printer is needed only for PDF; Archive may be
// nil to skip recording.
type Builder struct {
	Planner report.Planner
	Printer pdf.Printer
	Archive Recorder
}

// Build validates r and renders it as requested.
func (b *Builder) Build(ctx context.Context, r *report.WeeklyReport, req Request) (*Result, error) {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	validation := report.Validate(r)
	if !validation.Valid {
		return nil, &ValidationError{Result: validation}
	}

	plan := b.Planner.Plan(r)
	opts := tmpl.Options{AllowUnknown: req.AllowUnknown}

	var (
		out []byte
		err error
	)
	switch req.Format {
	case FormatMarkdown:
		out, err = renderMarkdown(plan, req.Template, opts)
	case FormatHTML:
		out, err = renderHTML(r, plan, req.Template, opts)
	case FormatPDF:
		out, err = b.renderPDF(ctx, r, plan, req, opts)
	default:
		err = errors.Newf("invalid document format: %q", req.Format)
	}
	if err != nil {
		return nil, err
	}

	result := &Result{Format: req.Format, Plan: plan, Output: out}
	if b.Archive != nil {
		entry := archive.NewEntry(r, plan, string(req.Format), out)
		entry.Template = templateName(req.Template)
		entry.OutputPath = req.OutputPath
		if err := b.Archive.Record(entry); err != nil {
			logging.Logger.Warnw("archiving render failed",
				logging.FieldTeam, r.Metadata.Team,
				logging.FieldError, err)
		} else {
			result.EntryID = entry.ID
		}
	}

	logging.Logger.Debugw("rendered report",
		logging.FieldTeam, r.Metadata.Team,
		logging.FieldWeek, report.WeekLabel(r),
		logging.FieldFormat, req.Format,
		logging.FieldBytes, len(out),
		logging.FieldDurationMS, time.Since(start).Milliseconds())
	return result, nil
}

func renderMarkdown(plan *report.RenderPlan, tpl *tmpl.Template, opts tmpl.Options) ([]byte, error) {
	if tpl == nil {
		tpl = tmpl.DefaultMarkdown()
	}
	if err := tpl.CheckVersion(plan.Provenance.TemplateVersion); err != nil {
		return nil, err
	}
	out, err := tpl.Render(plan.Values(), opts)
	if err != nil {
		return nil, errors.Wrap(err, "rendering markdown")
	}
	return []byte(out), nil
}

func renderHTML(r *report.WeeklyReport, plan *report.RenderPlan, tpl *tmpl.Template, opts tmpl.Options) ([]byte, error) {
	doc, err := htmldoc.Renderer{Options: opts}.Render(r, plan, tpl)
	if err != nil {
		return nil, err
	}
	return []byte(doc), nil
}

func (b *Builder) renderPDF(ctx context.Context, r *report.WeeklyReport, plan *report.RenderPlan, req Request, opts tmpl.Options) ([]byte, error) {
	if b.Printer == nil {
		return nil, ErrNoPrinter
	}
	doc, err := htmldoc.Renderer{Options: opts}.Render(r, plan, req.Template)
	if err != nil {
		return nil, err
	}
	if req.Base64 {
		encoded, err := pdf.EncodeBase64(ctx, b.Printer, doc, req.PDF)
		if err != nil {
			return nil, err
		}
		return []byte(encoded), nil
	}
	return b.Printer.PrintPDF(ctx, doc, req.PDF)
}

func templateName(tpl *tmpl.Template) string {
	if tpl == nil {
		return ""
	}
	return tpl.Name()
}
