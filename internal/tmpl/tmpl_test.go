package tmpl

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborlight/weekly/internal/report"
)

func TestRender_BothConventions(t *testing.T) {
	tpl, err := Parse("# {SUMMARY}\n{{ nextWeek }}|{{NEXT_WEEK}}|{NEXT_WEEK}")
	require.NoError(t, err)

	out, err := tpl.Render(map[string]string{"SUMMARY": "All good", "NEXT_WEEK": "- Ship"}, Options{})

	require.NoError(t, err)
	assert.Equal(t, "# All good\n- Ship|- Ship|- Ship", out)
}

func TestRender_KnownAnchorMissingBecomesEmpty(t *testing.T) {
	tpl, err := Parse("[{RISKS}]")
	require.NoError(t, err)

	out, err := tpl.Render(map[string]string{}, Options{})

	require.NoError(t, err)
	assert.Equal(t, "[]", out)
}

func TestRender_UnknownPlaceholder(t *testing.T) {
	tpl, err := Parse("{SUMMARY} {BUDGET} {{ owner }}")
	require.NoError(t, err)
	values := map[string]string{"SUMMARY": "s"}

	t.Run("fails by default", func(t *testing.T) {
		_, err := tpl.Render(values, Options{})
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrUnknownPlaceholder))
		assert.Contains(t, err.Error(), "BUDGET, owner")
		assert.NotEmpty(t, errors.GetAllHints(err))
	})

	t.Run("left untouched when allowed", func(t *testing.T) {
		out, err := tpl.Render(values, Options{AllowUnknown: true})
		require.NoError(t, err)
		assert.Equal(t, "s {BUDGET} {{ owner }}", out)
	})
}

func TestRender_ExtraValues(t *testing.T) {
	tpl, err := Parse("{{ organization }} / {{ team }}")
	require.NoError(t, err)

	out, err := tpl.Render(map[string]string{"organization": "Harborlight", "team": "Programs"}, Options{})

	require.NoError(t, err)
	assert.Equal(t, "Harborlight / Programs", out)
}

func TestRender_SinglePass(t *testing.T) {
	tpl, err := Parse("{SUMMARY}")
	require.NoError(t, err)

	out, err := tpl.Render(map[string]string{"SUMMARY": "{RISKS} and {{ asks }}", "RISKS": "nope"}, Options{})

	require.NoError(t, err)
	assert.Equal(t, "{RISKS} and {{ asks }}", out)
}

func TestRender_IgnoresNonPlaceholderBraces(t *testing.T) {
	text := "body { margin: 0 } a{color:red} {lower} { SUMMARY }"
	tpl, err := Parse(text)
	require.NoError(t, err)

	assert.Empty(t, tpl.Placeholders())
	out, err := tpl.Render(nil, Options{})
	require.NoError(t, err)
	assert.Equal(t, text, out)
}

func TestRender_Conditionals(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		values map[string]string
		want   string
	}{
		{
			name:   "kept when non-empty",
			text:   "a{{#if risks}}<h2>Risks</h2>{{ risks }}{{/if}}b",
			values: map[string]string{"RISKS": "r1"},
			want:   "a<h2>Risks</h2>r1b",
		},
		{
			name:   "dropped when empty",
			text:   "a{{#if risks}}<h2>Risks</h2>{{ risks }}{{/if}}b",
			values: map[string]string{"RISKS": ""},
			want:   "ab",
		},
		{
			name:   "dropped when anchor absent",
			text:   "a{{#if asks}}x{{/if}}b",
			values: map[string]string{},
			want:   "ab",
		},
		{
			name:   "nested",
			text:   "{{#if team}}T{{#if asks}}A{{/if}}{{#if risks}}R{{/if}}{{/if}}",
			values: map[string]string{"team": "Programs", "RISKS": "x"},
			want:   "TR",
		},
		{
			name:   "outer empty hides inner",
			text:   "{{#if team}}T{{#if risks}}R{{/if}}{{/if}}.",
			values: map[string]string{"team": "", "RISKS": "x"},
			want:   ".",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tpl, err := Parse(tt.text)
			require.NoError(t, err)

			out, err := tpl.Render(tt.values, Options{})

			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestRender_UnknownConditionAllowed(t *testing.T) {
	tpl, err := Parse("a{{#if budget}}x{{/if}}b")
	require.NoError(t, err)

	_, err = tpl.Render(nil, Options{})
	assert.True(t, errors.Is(err, ErrUnknownPlaceholder))

	out, err := tpl.Render(nil, Options{AllowUnknown: true})
	require.NoError(t, err)
	assert.Equal(t, "ab", out)
}

func TestParse_UnbalancedConditionals(t *testing.T) {
	for _, text := range []string{
		"{{#if risks}}never closed",
		"closed {{/if}} too early",
		"{{#if a}}{{#if b}}{{/if}}",
	} {
		t.Run(text, func(t *testing.T) {
			_, err := Parse(text)
			assert.Error(t, err)
		})
	}
}

func TestPlaceholders_OrderAndDedup(t *testing.T) {
	tpl, err := Parse("{META} {{ summary }} {META} {{#if risks}}{RISKS}{{/if}}")
	require.NoError(t, err)

	assert.Equal(t, []string{"META", "summary", "risks", "RISKS"}, tpl.Placeholders())
}

func TestUnknown(t *testing.T) {
	tpl, err := Parse("{META} {{ organization }} {{ budget }} {TOTAL}")
	require.NoError(t, err)

	assert.Equal(t, []string{"organization", "budget", "TOTAL"}, tpl.Unknown(nil))
	assert.Equal(t, []string{"budget", "TOTAL"}, tpl.Unknown(map[string]string{"organization": "H"}))
}

func TestVersionDirective(t *testing.T) {
	tpl, err := Parse("<!-- template-version: ^1.0 -->\n# {SUMMARY}\n")
	require.NoError(t, err)
	assert.Equal(t, "^1.0", tpl.Version())

	out, err := tpl.Render(map[string]string{"SUMMARY": "ok"}, Options{})
	require.NoError(t, err)
	assert.Equal(t, "# ok\n", out)

	tests := []struct {
		version string
		wantErr bool
	}{
		{"1.0", false},
		{"1.4.2", false},
		{"2.0", true},
		{"0.9", true},
		{"not-a-version", true},
	}
	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			err := tpl.CheckVersion(tt.version)
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrIncompatibleTemplate), "got %v", err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestVersionDirective_Absent(t *testing.T) {
	tpl, err := Parse("{SUMMARY}")
	require.NoError(t, err)

	assert.Equal(t, "", tpl.Version())
	assert.NoError(t, tpl.CheckVersion("9.9"))
}

func TestVersionDirective_Invalid(t *testing.T) {
	_, err := Parse("<!-- template-version: >>> nonsense -->\n{SUMMARY}")
	assert.Error(t, err)
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weekly.md")
	require.NoError(t, os.WriteFile(path, []byte("{SUMMARY}"), 0644))

	tpl, err := ParseFile(path)
	require.NoError(t, err)
	assert.Equal(t, path, tpl.Name())

	_, err = ParseFile(filepath.Join(t.TempDir(), "missing.md"))
	assert.Error(t, err)
}

func TestDefaults_ReferenceEveryAnchor(t *testing.T) {
	for name, tpl := range map[string]*Template{"markdown": DefaultMarkdown(), "html": DefaultHTML()} {
		t.Run(name, func(t *testing.T) {
			referenced := make(map[report.Anchor]bool)
			for _, p := range tpl.Placeholders() {
				if a, err := report.ParseAnchor(p); err == nil {
					referenced[a] = true
				}
			}
			for _, a := range report.AllAnchors {
				assert.True(t, referenced[a], "%s template does not reference %s", name, a)
			}
			assert.NoError(t, tpl.CheckVersion(report.TemplateVersion))
		})
	}
}

func TestDefaultMarkdown_RendersPlan(t *testing.T) {
	r := &report.WeeklyReport{
		Metadata: report.Metadata{
			Organization: "Harborlight", Team: "Programs", WeekStart: "2026-01-06", WeekEnd: "2026-01-12",
			Author: "Alice Chen", RAG: report.RAGGreen, Sensitivity: report.SensitivityInternal,
		},
		Sections: report.Sections{Accomplishments: []string{"Completed task"}},
	}
	plan := report.Planner{Now: func() time.Time { return time.Date(2026, 1, 12, 0, 0, 0, 0, time.UTC) }}.Plan(r)

	out, err := DefaultMarkdown().Render(plan.Values(), Options{})

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "# Weekly Status Report\n"))
	assert.Contains(t, out, "- Completed task")
	assert.Contains(t, out, "Programs team: 1 accomplishments, 0 blockers, status Green.")
	assert.Contains(t, out, "Generated on 2026-01-12T00:00:00.000Z")
	assert.NotContains(t, out, "template-version")
}
