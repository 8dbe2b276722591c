package logging

// Standard field names for structured logging.
const (
	FieldFile       = "file"
	FieldTemplate   = "template"
	FieldFormat     = "format"
	FieldOutput     = "output"
	FieldTeam       = "team"
	FieldWeek       = "week"
	FieldRAG        = "rag"
	FieldIssues     = "issues"
	FieldBytes      = "bytes"
	FieldDurationMS = "duration_ms"
	FieldEntryID    = "entry_id"
	FieldTool       = "tool"
	FieldEvent      = "event"
	FieldError      = "error"
)
