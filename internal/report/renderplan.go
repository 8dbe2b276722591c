package report

import (
	"fmt"
	"strings"
	"time"
)

const (
	// SchemaVersion is the version of the WeeklyReport shape.
	SchemaVersion = "1.0"

	// TemplateVersion is the version of the anchor vocabulary. Templates
	// may constrain it with a template-version directive.
	TemplateVersion = "1.0"

	// ManualNotesPlaceholder is the fixed MANUAL_NOTES fragment, reserved
	// for editing after rendering.
	ManualNotesPlaceholder = "[Add manual notes here]"

	// TimestampLayout is the ISO-8601 layout used for provenance, always
	// rendered in UTC with millisecond precision.
	TimestampLayout = "2006-01-02T15:04:05.000Z07:00"
)

// Provenance records when and against which versions a plan was generated.
type Provenance struct {
	SchemaVersion   string    `yaml:"schemaVersion" json:"schemaVersion"`
	TemplateVersion string    `yaml:"templateVersion" json:"templateVersion"`
	GeneratedAt     time.Time `yaml:"generatedAt" json:"generatedAt"`
}

// RenderPlan maps every anchor to its rendered fragment. A plan is built
// fresh per call and is not modified afterwards.
type RenderPlan struct {
	Anchors    map[Anchor]string `yaml:"anchors" json:"anchors"`
	Provenance Provenance        `yaml:"provenance" json:"provenance"`
}

// Get returns the fragment for a, or "" if the plan has none.
func (p *RenderPlan) Get(a Anchor) string {
	if p == nil {
		return ""
	}
	return p.Anchors[a]
}

// Values returns the anchors keyed by name, the form consumed by template
// substitution.
func (p *RenderPlan) Values() map[string]string {
	values := make(map[string]string, len(p.Anchors))
	for a, v := range p.Anchors {
		values[string(a)] = v
	}
	return values
}

// Planner derives render plans. The zero value uses the wall clock.
type Planner struct {
	// Now returns the generation time. Nil means time.Now.
	Now func() time.Time
}

// GenerateRenderPlan derives a render plan using the wall clock. It should
// be called on reports that passed Validate; invalid reports still produce
// a plan with whatever fragments the data allows.
func GenerateRenderPlan(r *WeeklyReport) *RenderPlan {
	return Planner{}.Plan(r)
}

// Plan derives the render plan for r. The only non-deterministic inputs are
// the PROVENANCE anchor and Provenance.GeneratedAt, both taken from p.Now.
func (p Planner) Plan(r *WeeklyReport) *RenderPlan {
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	generatedAt := now().UTC()
	s := &r.Sections

	anchors := map[Anchor]string{
		AnchorMeta:            renderMeta(r),
		AnchorSummary:         Summary(r),
		AnchorAccomplishments: joinMapped(s.Accomplishments, "\n", bullet),
		AnchorMetrics:         joinMapped(s.Metrics, "\n", renderMetric),
		AnchorBlockers:        joinMapped(s.Blockers, "\n\n", renderBlocker),
		AnchorRisks:           joinMapped(s.Risks, "\n\n", renderRisk),
		AnchorDecisions:       joinMapped(s.Decisions, "\n\n", renderDecision),
		AnchorNextWeek:        joinMapped(s.NextWeek, "\n", bullet),
		AnchorAsks:            joinMapped(s.Asks, "\n\n", renderAsk),
		AnchorProvenance:      fmt.Sprintf("Generated on %s\nSchema v%s", generatedAt.Format(TimestampLayout), SchemaVersion),
		AnchorManualNotes:     ManualNotesPlaceholder,
	}

	return &RenderPlan{
		Anchors: anchors,
		Provenance: Provenance{
			SchemaVersion:   SchemaVersion,
			TemplateVersion: TemplateVersion,
			GeneratedAt:     generatedAt,
		},
	}
}

func renderMeta(r *WeeklyReport) string {
	return fmt.Sprintf("**Week:** %s\n**Team:** %s\n**Author:** %s\n**RAG:** %s",
		WeekLabel(r), r.Metadata.Team, r.Metadata.Author, r.Metadata.RAG)
}

func bullet(item string) string {
	return "- " + item
}

func renderMetric(m Metric) string {
	return fmt.Sprintf("| %s | %s | %s | %s |", m.Name, m.Value, m.Delta, m.Note)
}

func renderBlocker(b Blocker) string {
	return fmt.Sprintf("**%s** (%s)\n- Owner: %s\n- Needed from: %s\n- Due: %s",
		b.Title, b.Impact, b.Owner, orNA(b.NeededFrom), orNA(b.DueDate))
}

func renderRisk(r Risk) string {
	return fmt.Sprintf("**%s** (%s)\n- Likelihood: %s, Impact: %s\n- Mitigation: %s\n- Owner: %s",
		r.Title, r.Category, r.Likelihood, r.Impact, r.Mitigation, r.Owner)
}

func renderDecision(d Decision) string {
	return fmt.Sprintf("**%s**\n- Rationale: %s\n- Date: %s", d.Title, d.Rationale, d.Date)
}

func renderAsk(a Ask) string {
	return fmt.Sprintf("**%s**\n- From: %s\n- By: %s", a.Ask, a.FromWhom, a.ByWhen)
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

// joinMapped renders each item and joins the results. An empty list yields
// the empty string.
func joinMapped[T any](items []T, sep string, render func(T) string) string {
	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = render(item)
	}
	return strings.Join(parts, sep)
}
