package report

import "fmt"

// WeekLabel returns the reporting period as "{weekStart} to {weekEnd}".
func WeekLabel(r *WeeklyReport) string {
	return fmt.Sprintf("%s to %s", r.Metadata.WeekStart, r.Metadata.WeekEnd)
}

// Summary returns the one-sentence status line, e.g.
// "Programs team: 1 accomplishments, 1 blockers, status Green."
func Summary(r *WeeklyReport) string {
	return fmt.Sprintf("%s team: %d accomplishments, %d blockers, status %s.",
		r.Metadata.Team,
		len(r.Sections.Accomplishments),
		len(r.Sections.Blockers),
		r.Metadata.RAG,
	)
}
