package report

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestGenerateRenderPlan_HarborlightEndToEnd(t *testing.T) {
	r := harborlight()

	result := Validate(r)
	require.True(t, result.Valid)
	require.Empty(t, result.Issues)

	plan := GenerateRenderPlan(r)

	assert.Equal(t, "Programs team: 1 accomplishments, 1 blockers, status Green.", plan.Get(AnchorSummary))
	assert.Len(t, plan.Anchors, len(AllAnchors))
}

func TestPlanner_Anchors(t *testing.T) {
	at := time.Date(2026, 1, 12, 17, 30, 5, 123_000_000, time.UTC)
	r := harborlight()
	r.Sections.Accomplishments = []string{"Shipped intake form", "Hired analyst"}
	r.Sections.Metrics = []Metric{
		{Name: "Cases", Value: "42", Delta: "+3", Note: "record"},
		{Name: "Backlog", Value: "7"},
	}
	r.Sections.Blockers = []Blocker{
		{Title: "Vendor contract", Impact: LevelHigh, Owner: "Alice", NeededFrom: "Legal", DueDate: "2026-01-20"},
		{Title: "Laptop", Impact: LevelLow, Owner: "Bo"},
	}
	r.Sections.Decisions = []Decision{{Title: "Adopt CRM", Rationale: "Cost", Date: "2026-01-08"}}
	r.Sections.NextWeek = []string{"Train staff"}
	r.Sections.Asks = []Ask{
		{Ask: "Budget approval", FromWhom: "CFO", ByWhen: "2026-01-15"},
		{Ask: "Room booking", FromWhom: "Facilities", ByWhen: "2026-01-16"},
	}

	plan := Planner{Now: fixedClock(at)}.Plan(r)

	want := map[Anchor]string{
		AnchorMeta:            "**Week:** 2026-01-06 to 2026-01-12\n**Team:** Programs\n**Author:** Alice Chen\n**RAG:** Green",
		AnchorSummary:         "Programs team: 2 accomplishments, 2 blockers, status Green.",
		AnchorAccomplishments: "- Shipped intake form\n- Hired analyst",
		AnchorMetrics:         "| Cases | 42 | +3 | record |\n| Backlog | 7 |  |  |",
		AnchorBlockers: "**Vendor contract** (High)\n- Owner: Alice\n- Needed from: Legal\n- Due: 2026-01-20" +
			"\n\n" +
			"**Laptop** (Low)\n- Owner: Bo\n- Needed from: N/A\n- Due: N/A",
		AnchorRisks:       "**Risk** (Test)\n- Likelihood: Low, Impact: Low\n- Mitigation: Fix\n- Owner: Alice",
		AnchorDecisions:   "**Adopt CRM**\n- Rationale: Cost\n- Date: 2026-01-08",
		AnchorNextWeek:    "- Train staff",
		AnchorAsks:        "**Budget approval**\n- From: CFO\n- By: 2026-01-15\n\n**Room booking**\n- From: Facilities\n- By: 2026-01-16",
		AnchorProvenance:  "Generated on 2026-01-12T17:30:05.123Z\nSchema v1.0",
		AnchorManualNotes: "[Add manual notes here]",
	}

	assert.Equal(t, want, plan.Anchors)
	assert.Equal(t, Provenance{SchemaVersion: "1.0", TemplateVersion: "1.0", GeneratedAt: at}, plan.Provenance)
}

func TestPlanner_EmptySectionsYieldEmptyAnchors(t *testing.T) {
	r := harborlight()
	r.Sections = Sections{}

	plan := Planner{Now: fixedClock(time.Unix(0, 0))}.Plan(r)

	for _, a := range []Anchor{
		AnchorAccomplishments, AnchorMetrics, AnchorBlockers, AnchorRisks,
		AnchorDecisions, AnchorNextWeek, AnchorAsks,
	} {
		v, ok := plan.Anchors[a]
		assert.True(t, ok, "anchor %s must be present", a)
		assert.Equal(t, "", v, "anchor %s", a)
	}
	assert.Equal(t, "Programs team: 0 accomplishments, 0 blockers, status Green.", plan.Get(AnchorSummary))
}

func TestPlanner_ConvertsClockToUTC(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	at := time.Date(2026, 1, 12, 9, 0, 0, 0, loc)

	plan := Planner{Now: fixedClock(at)}.Plan(harborlight())

	assert.Equal(t, "Generated on 2026-01-12T07:00:00.000Z\nSchema v1.0", plan.Get(AnchorProvenance))
	assert.Equal(t, time.UTC, plan.Provenance.GeneratedAt.Location())
}

func TestPlanner_DeterministicWithInjectedClock(t *testing.T) {
	p := Planner{Now: fixedClock(time.Date(2026, 1, 12, 0, 0, 0, 0, time.UTC))}

	first := p.Plan(harborlight())
	second := p.Plan(harborlight())

	assert.Equal(t, first, second)
}

func TestGenerateRenderPlan_OnlyProvenanceDiffers(t *testing.T) {
	calls := 0
	p := Planner{Now: func() time.Time {
		calls++
		return time.Date(2026, 1, 12, 0, 0, calls, 0, time.UTC)
	}}

	first := p.Plan(harborlight())
	second := p.Plan(harborlight())

	for _, a := range AllAnchors {
		if a == AnchorProvenance {
			assert.NotEqual(t, first.Get(a), second.Get(a))
			continue
		}
		assert.Equal(t, first.Get(a), second.Get(a), "anchor %s", a)
	}
	assert.NotEqual(t, first.Provenance.GeneratedAt, second.Provenance.GeneratedAt)
	assert.Equal(t, first.Provenance.SchemaVersion, second.Provenance.SchemaVersion)
}

func TestPlanner_InvalidReportDoesNotPanic(t *testing.T) {
	r := &WeeklyReport{Sections: Sections{Blockers: []Blocker{{Title: "Orphan"}}}}

	plan := GenerateRenderPlan(r)

	assert.Equal(t, " team: 0 accomplishments, 1 blockers, status .", plan.Get(AnchorSummary))
	assert.Equal(t, "**Orphan** ()\n- Owner: \n- Needed from: N/A\n- Due: N/A", plan.Get(AnchorBlockers))
}

func TestRenderPlan_Values(t *testing.T) {
	plan := Planner{Now: fixedClock(time.Unix(0, 0))}.Plan(harborlight())

	values := plan.Values()

	assert.Len(t, values, len(AllAnchors))
	assert.Equal(t, ManualNotesPlaceholder, values["MANUAL_NOTES"])
}

func TestRenderPlan_Encoding(t *testing.T) {
	plan := Planner{Now: fixedClock(time.Date(2026, 1, 12, 0, 0, 0, 0, time.UTC))}.Plan(harborlight())

	data, err := json.Marshal(plan)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Contains(t, decoded, "anchors")
	prov := decoded["provenance"].(map[string]any)
	assert.Equal(t, "1.0", prov["schemaVersion"])
	assert.Equal(t, "1.0", prov["templateVersion"])
	assert.Equal(t, "2026-01-12T00:00:00Z", prov["generatedAt"])

	out, err := yaml.Marshal(plan)
	require.NoError(t, err)
	assert.Contains(t, string(out), "NEXT_WEEK:")
}

func TestComputeHelpers(t *testing.T) {
	r := harborlight()

	assert.Equal(t, "2026-01-06 to 2026-01-12", WeekLabel(r))
	assert.Equal(t, "Programs team: 1 accomplishments, 1 blockers, status Green.", Summary(r))
}
