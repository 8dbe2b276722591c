package report

import (
	"fmt"
	"strings"
)

// Anchor names a text fragment in a render plan. The set is fixed and is
// the contract between the planner and every template; renaming an anchor
// requires a TemplateVersion bump.
type Anchor string

const (
	AnchorMeta            Anchor = "META"
	AnchorSummary         Anchor = "SUMMARY"
	AnchorAccomplishments Anchor = "ACCOMPLISHMENTS"
	AnchorMetrics         Anchor = "METRICS"
	AnchorBlockers        Anchor = "BLOCKERS"
	AnchorRisks           Anchor = "RISKS"
	AnchorDecisions       Anchor = "DECISIONS"
	AnchorNextWeek        Anchor = "NEXT_WEEK"
	AnchorAsks            Anchor = "ASKS"
	AnchorProvenance      Anchor = "PROVENANCE"
	AnchorManualNotes     Anchor = "MANUAL_NOTES"
)

// AllAnchors lists every anchor in document order.
var AllAnchors = []Anchor{
	AnchorMeta,
	AnchorSummary,
	AnchorAccomplishments,
	AnchorMetrics,
	AnchorBlockers,
	AnchorRisks,
	AnchorDecisions,
	AnchorNextWeek,
	AnchorAsks,
	AnchorProvenance,
	AnchorManualNotes,
}

// String returns the anchor name.
func (a Anchor) String() string {
	return string(a)
}

// Key returns the camelCase form used by {{ }} templates, e.g. "nextWeek"
// for NEXT_WEEK.
func (a Anchor) Key() string {
	parts := strings.Split(strings.ToLower(string(a)), "_")
	for i := 1; i < len(parts); i++ {
		if parts[i] != "" {
			parts[i] = strings.ToUpper(parts[i][:1]) + parts[i][1:]
		}
	}
	return strings.Join(parts, "")
}

// ParseAnchor resolves a placeholder name to an anchor. Matching ignores
// case and underscores, so "NEXT_WEEK", "next_week" and "nextWeek" all
// resolve to AnchorNextWeek.
func ParseAnchor(name string) (Anchor, error) {
	folded := foldAnchorName(name)
	for _, a := range AllAnchors {
		if foldAnchorName(string(a)) == folded {
			return a, nil
		}
	}
	return "", fmt.Errorf("unknown anchor: %q", name)
}

// IsAnchor reports whether name resolves to one of the fixed anchors.
func IsAnchor(name string) bool {
	_, err := ParseAnchor(name)
	return err == nil
}

func foldAnchorName(name string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(name), "_", ""))
}
