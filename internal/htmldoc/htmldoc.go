// Package htmldoc turns a render plan into a standalone HTML document.
//
// Each anchor fragment is Markdown; it is converted with goldmark (GitHub
// flavoured, hard line breaks, raw HTML stripped) and substituted into an
// HTML template. The document is the input to package pdf.
package htmldoc

import (
	"bytes"
	"fmt"
	"html"

	"github.com/cockroachdb/errors"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"

	"github.com/harborlight/weekly/internal/report"
	"github.com/harborlight/weekly/internal/tmpl"
)

// MetricsHeader is prepended to a non-empty METRICS fragment so the rows
// form a complete GFM table.
const MetricsHeader = "| Metric | Value | Delta | Note |\n|--------|-------|-------|------|\n"

var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(gmhtml.WithHardWraps()),
)

// Renderer fills HTML templates. The zero value uses the built-in template
// and rejects unknown placeholders.
type Renderer struct {
	Options tmpl.Options
}

// Render builds the HTML document for r from plan using tpl, or the
// built-in template when tpl is nil.
func Render(r *report.WeeklyReport, plan *report.RenderPlan, tpl *tmpl.Template) (string, error) {
	return Renderer{}.Render(r, plan, tpl)
}

// Render builds the HTML document for r from plan.
func (rd Renderer) Render(r *report.WeeklyReport, plan *report.RenderPlan, tpl *tmpl.Template) (string, error) {
	if tpl == nil {
		tpl = tmpl.DefaultHTML()
	}
	if err := tpl.CheckVersion(plan.Provenance.TemplateVersion); err != nil {
		return "", err
	}

	values, err := Values(r, plan)
	if err != nil {
		return "", err
	}

	out, err := tpl.Render(values, rd.Options)
	if err != nil {
		return "", errors.Wrap(err, "rendering html")
	}
	return out, nil
}

// Values returns the substitution values for an HTML template: every
// anchor converted to HTML plus the escaped plain values organization,
// team, title and sensitivity.
func Values(r *report.WeeklyReport, plan *report.RenderPlan) (map[string]string, error) {
	values := make(map[string]string, len(report.AllAnchors)+4)
	for _, a := range report.AllAnchors {
		md := plan.Get(a)
		if a == report.AnchorMetrics && md != "" {
			md = MetricsHeader + md
		}
		converted, err := ToHTML(md)
		if err != nil {
			return nil, errors.Wrapf(err, "converting %s", a)
		}
		values[string(a)] = converted
	}

	values["organization"] = html.EscapeString(r.Metadata.Organization)
	values["team"] = html.EscapeString(r.Metadata.Team)
	values["sensitivity"] = html.EscapeString(string(r.Metadata.Sensitivity))
	values["title"] = html.EscapeString(Title(r))
	return values, nil
}

// Title is the document title, e.g. "Harborlight Programs Weekly Status
// Report (2026-01-06 to 2026-01-12)".
func Title(r *report.WeeklyReport) string {
	return fmt.Sprintf("%s %s Weekly Status Report (%s)",
		r.Metadata.Organization, r.Metadata.Team, report.WeekLabel(r))
}

// ToHTML converts a Markdown fragment to HTML. Empty input yields "".
func ToHTML(md string) (string, error) {
	if md == "" {
		return "", nil
	}
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(md), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
