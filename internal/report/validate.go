package report

import (
	"fmt"
	"strings"
	"time"
)

// ValidationResult is the outcome of Validate. Issues are ordered by the
// check sequence and never deduplicated.
type ValidationResult struct {
	Valid  bool     `yaml:"valid" json:"valid"`
	Issues []string `yaml:"issues" json:"issues"`
}

// requiredMetadata lists the metadata fields in the order they are checked.
var requiredMetadata = []struct {
	name  string
	value func(*Metadata) string
}{
	{"organization", func(m *Metadata) string { return m.Organization }},
	{"team", func(m *Metadata) string { return m.Team }},
	{"weekStart", func(m *Metadata) string { return m.WeekStart }},
	{"weekEnd", func(m *Metadata) string { return m.WeekEnd }},
	{"author", func(m *Metadata) string { return m.Author }},
	{"rag", func(m *Metadata) string { return string(m.RAG) }},
	{"sensitivity", func(m *Metadata) string { return string(m.Sensitivity) }},
}

// dateLayouts are the ISO-8601 forms accepted for weekStart and weekEnd.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04",
}

// Validate checks r against the report business rules. Every check runs
// regardless of earlier failures so a single call surfaces every problem.
// Validate never modifies r.
func Validate(r *WeeklyReport) ValidationResult {
	issues := []string{}
	meta := &r.Metadata

	for _, field := range requiredMetadata {
		if field.value(meta) == "" {
			issues = append(issues, fmt.Sprintf("Missing required metadata field: %s", field.name))
		}
	}

	if meta.RAG != "" && !meta.RAG.Valid() {
		issues = append(issues, "RAG must be Green, Amber, or Red")
	}

	if meta.WeekStart != "" && meta.WeekEnd != "" {
		start, startErr := ParseDate(meta.WeekStart)
		end, endErr := ParseDate(meta.WeekEnd)
		if startErr != nil || endErr != nil {
			issues = append(issues, "weekStart and weekEnd must be valid ISO dates")
		} else if end.Before(start) {
			issues = append(issues, "weekEnd must be after or equal to weekStart")
		}
	}

	for _, b := range r.Sections.Blockers {
		if b.Owner == "" {
			issues = append(issues, fmt.Sprintf("Blocker \"%s\" missing owner", b.Title))
		}
		if b.NeededFrom != "" && b.DueDate == "" {
			issues = append(issues, fmt.Sprintf("Blocker \"%s\" has neededFrom but missing dueDate", b.Title))
		}
	}

	for _, risk := range r.Sections.Risks {
		if risk.Likelihood == "" || risk.Impact == "" {
			issues = append(issues, fmt.Sprintf("Risk \"%s\" missing likelihood or impact", risk.Title))
		}
	}

	// An empty accomplishments list is accepted; a "no progress" rule needs
	// product sign-off first.

	return ValidationResult{
		Valid:  len(issues) == 0,
		Issues: issues,
	}
}

// ParseDate parses an ISO-8601 date or timestamp. Dates without a zone are
// interpreted as UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid ISO date: %q", s)
}
