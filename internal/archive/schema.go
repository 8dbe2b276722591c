package archive

// schemaSQL defines the SQLite schema for the archive database.
// Tables:
//   - renders: one row per successful render, newest queried first
const schemaSQL = `
CREATE TABLE IF NOT EXISTS renders (
    id TEXT PRIMARY KEY,
    organization TEXT NOT NULL,
    team TEXT NOT NULL,
    week_start TEXT NOT NULL,
    week_end TEXT NOT NULL,
    rag TEXT NOT NULL,
    format TEXT NOT NULL,
    template TEXT NOT NULL DEFAULT '',
    output_path TEXT NOT NULL DEFAULT '',
    output_sha256 TEXT NOT NULL,
    output_bytes INTEGER NOT NULL DEFAULT 0,
    schema_version TEXT NOT NULL,
    template_version TEXT NOT NULL,
    generated_at TEXT NOT NULL,
    recorded_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_renders_recorded_at ON renders(recorded_at DESC);
CREATE INDEX IF NOT EXISTS idx_renders_team ON renders(team, week_start);
`

// initSchema creates the database tables and indexes if they don't exist.
func (a *Archive) initSchema() error {
	_, err := a.db.Exec(schemaSQL)
	return err
}
