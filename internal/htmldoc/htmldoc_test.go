package htmldoc

import (
	"strings"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborlight/weekly/internal/report"
	"github.com/harborlight/weekly/internal/tmpl"
)

func harborlight() *report.WeeklyReport {
	return &report.WeeklyReport{
		Metadata: report.Metadata{
			Organization: "Harborlight",
			Team:         "Programs",
			WeekStart:    "2026-01-06",
			WeekEnd:      "2026-01-12",
			Author:       "Alice Chen",
			RAG:          report.RAGGreen,
			Sensitivity:  report.SensitivityInternal,
		},
		Sections: report.Sections{
			Accomplishments: []string{"Completed task"},
			Metrics:         []report.Metric{{Name: "Cases", Value: "42", Delta: "+3"}},
			Blockers:        []report.Blocker{{Title: "Blocker", Impact: report.LevelHigh, Owner: "Alice"}},
		},
	}
}

func plan(r *report.WeeklyReport) *report.RenderPlan {
	return report.Planner{Now: func() time.Time { return time.Date(2026, 1, 12, 0, 0, 0, 0, time.UTC) }}.Plan(r)
}

func TestRender_DefaultTemplate(t *testing.T) {
	r := harborlight()

	doc, err := Render(r, plan(r), nil)

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(doc, "<!DOCTYPE html>"))
	assert.Contains(t, doc, "<title>Harborlight Programs Weekly Status Report (2026-01-06 to 2026-01-12)</title>")
	assert.Contains(t, doc, "<strong>Week:</strong> 2026-01-06 to 2026-01-12<br>")
	assert.Contains(t, doc, "<li>Completed task</li>")
	assert.Contains(t, doc, "<th>Metric</th>")
	assert.Contains(t, doc, "<td>Cases</td>")
	assert.Contains(t, doc, "Programs team: 1 accomplishments, 1 blockers, status Green.")
	assert.Contains(t, doc, "Generated on 2026-01-12T00:00:00.000Z")
	assert.NotContains(t, doc, "{{")
}

func TestRender_EmptySectionsDropped(t *testing.T) {
	r := harborlight()
	r.Sections.Blockers = nil
	r.Sections.Risks = nil

	doc, err := Render(r, plan(r), nil)

	require.NoError(t, err)
	assert.NotContains(t, doc, "<h2>Blockers</h2>")
	assert.NotContains(t, doc, "<h2>Risks</h2>")
	assert.Contains(t, doc, "<h2>Accomplishments</h2>")
	assert.Contains(t, doc, "<h2>Manual Notes</h2>")
}

func TestRender_EscapesUserContent(t *testing.T) {
	r := harborlight()
	r.Metadata.Organization = "Smith & <Jones>"
	r.Sections.Accomplishments = []string{"<script>alert(1)</script>"}

	doc, err := Render(r, plan(r), nil)

	require.NoError(t, err)
	assert.Contains(t, doc, "Smith &amp; &lt;Jones&gt;")
	assert.NotContains(t, doc, "<script>alert(1)</script>")
}

func TestRender_CustomTemplate(t *testing.T) {
	r := harborlight()
	tpl, err := tmpl.Parse("<h1>{{ organization }}</h1>{{ summary }}")
	require.NoError(t, err)

	doc, err := Render(r, plan(r), tpl)

	require.NoError(t, err)
	assert.Equal(t, "<h1>Harborlight</h1><p>Programs team: 1 accomplishments, 1 blockers, status Green.</p>\n", doc)
}

func TestRender_UnknownPlaceholder(t *testing.T) {
	r := harborlight()
	tpl, err := tmpl.Parse("{{ budget }}")
	require.NoError(t, err)

	_, err = Render(r, plan(r), tpl)
	assert.True(t, errors.Is(err, tmpl.ErrUnknownPlaceholder))

	doc, err := Renderer{Options: tmpl.Options{AllowUnknown: true}}.Render(r, plan(r), tpl)
	require.NoError(t, err)
	assert.Equal(t, "{{ budget }}", doc)
}

func TestRender_IncompatibleTemplate(t *testing.T) {
	r := harborlight()
	tpl, err := tmpl.Parse("<!-- template-version: >=2.0 -->{{ summary }}")
	require.NoError(t, err)

	_, err = Render(r, plan(r), tpl)

	assert.True(t, errors.Is(err, tmpl.ErrIncompatibleTemplate))
}

func TestValues_MetricsHeader(t *testing.T) {
	r := harborlight()

	values, err := Values(r, plan(r))
	require.NoError(t, err)
	assert.Contains(t, values["METRICS"], "<table>")

	r.Sections.Metrics = nil
	values, err = Values(r, plan(r))
	require.NoError(t, err)
	assert.Equal(t, "", values["METRICS"])
}

func TestToHTML(t *testing.T) {
	tests := []struct {
		name string
		md   string
		want string
	}{
		{"empty", "", ""},
		{"bold", "**Blocker** (High)", "<p><strong>Blocker</strong> (High)</p>\n"},
		{"list", "- a\n- b", "<ul>\n<li>a</li>\n<li>b</li>\n</ul>\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToHTML(tt.md)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
