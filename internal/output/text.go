package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/harborlight/weekly/internal/archive"
	"github.com/harborlight/weekly/internal/report"
)

var (
	colorOK     = lipgloss.Color("#5AC26E")
	colorFail   = lipgloss.Color("#FF6B6B")
	colorAccent = lipgloss.Color("#5B8DEF")
	colorMuted  = lipgloss.Color("#888888")
)

// styles are bound to one writer so color detection follows it.
type styles struct {
	ok, fail, heading, muted lipgloss.Style
}

func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		ok:      r.NewStyle().Foreground(colorOK).Bold(true),
		fail:    r.NewStyle().Foreground(colorFail).Bold(true),
		heading: r.NewStyle().Foreground(colorAccent).Bold(true),
		muted:   r.NewStyle().Foreground(colorMuted),
	}
}

// WriteIssues writes a validation result for source (usually a file path).
func WriteIssues(w io.Writer, source string, result report.ValidationResult) error {
	s := newStyles(w)
	var b strings.Builder

	if result.Valid {
		fmt.Fprintf(&b, "%s %s is valid\n", s.ok.Render("✓"), source)
		_, err := io.WriteString(w, b.String())
		return err
	}

	noun := "issues"
	if len(result.Issues) == 1 {
		noun = "issue"
	}
	fmt.Fprintf(&b, "%s %s has %d %s:\n", s.fail.Render("✗"), source, len(result.Issues), noun)
	for _, issue := range result.Issues {
		fmt.Fprintf(&b, "  %s %s\n", s.muted.Render("-"), issue)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// WritePlan writes every anchor of plan in document order, followed by its
// provenance.
func WritePlan(w io.Writer, plan *report.RenderPlan) error {
	s := newStyles(w)
	var b strings.Builder

	for _, a := range report.AllAnchors {
		b.WriteString(s.heading.Render(string(a)))
		b.WriteString("\n")
		if v := plan.Get(a); v != "" {
			b.WriteString(v)
		} else {
			b.WriteString(s.muted.Render("(empty)"))
		}
		b.WriteString("\n\n")
	}
	fmt.Fprintf(&b, "%s\n", s.muted.Render(fmt.Sprintf("schema %s, template %s, generated %s",
		plan.Provenance.SchemaVersion, plan.Provenance.TemplateVersion,
		plan.Provenance.GeneratedAt.Format(report.TimestampLayout))))

	_, err := io.WriteString(w, b.String())
	return err
}

// WriteEntries writes archived renders, one per line.
func WriteEntries(w io.Writer, entries []archive.Entry) error {
	s := newStyles(w)
	var b strings.Builder

	if len(entries) == 0 {
		b.WriteString(s.muted.Render("No renders archived yet."))
		b.WriteString("\n")
		_, err := io.WriteString(w, b.String())
		return err
	}

	for _, e := range entries {
		rag := e.RAG
		switch report.RAG(e.RAG) {
		case report.RAGGreen:
			rag = s.ok.Render(rag)
		case report.RAGRed:
			rag = s.fail.Render(rag)
		}
		target := e.OutputPath
		if target == "" {
			target = "stdout"
		}
		fmt.Fprintf(&b, "%s  %s %s  %s to %s  %s  %s -> %s\n",
			s.muted.Render(e.ID[:min(8, len(e.ID))]),
			e.RecordedAt.Local().Format("2006-01-02 15:04"),
			s.heading.Render(e.Team),
			e.WeekStart, e.WeekEnd,
			rag,
			e.Format, target,
		)
	}
	_, err := io.WriteString(w, b.String())
	return err
}
