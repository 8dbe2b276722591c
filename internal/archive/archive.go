// Package archive keeps a log of rendered reports in .weekly/archive.db.
//
// Only successful renders are recorded: what was produced, for which team
// and week, from which plan versions, and a digest of the output. Reports
// themselves and validation outcomes are not stored.
package archive

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/harborlight/weekly/internal/report"
)

// FileName is the archive database name inside the config directory.
const FileName = "archive.db"

// ErrNotFound is returned by Get for an unknown entry ID.
var ErrNotFound = errors.New("archive entry not found")

// timeLayout sorts lexically in chronological order for UTC times.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Entry is one archived render.
type Entry struct {
	ID              string    `yaml:"id" json:"id"`
	Organization    string    `yaml:"organization" json:"organization"`
	Team            string    `yaml:"team" json:"team"`
	WeekStart       string    `yaml:"weekStart" json:"weekStart"`
	WeekEnd         string    `yaml:"weekEnd" json:"weekEnd"`
	RAG             string    `yaml:"rag" json:"rag"`
	Format          string    `yaml:"format" json:"format"`
	Template        string    `yaml:"template,omitempty" json:"template,omitempty"`
	OutputPath      string    `yaml:"outputPath,omitempty" json:"outputPath,omitempty"`
	OutputSHA256    string    `yaml:"outputSha256" json:"outputSha256"`
	OutputBytes     int       `yaml:"outputBytes" json:"outputBytes"`
	SchemaVersion   string    `yaml:"schemaVersion" json:"schemaVersion"`
	TemplateVersion string    `yaml:"templateVersion" json:"templateVersion"`
	GeneratedAt     time.Time `yaml:"generatedAt" json:"generatedAt"`
	RecordedAt      time.Time `yaml:"recordedAt" json:"recordedAt"`
}

// NewEntry describes a render of r from plan that produced output.
func NewEntry(r *report.WeeklyReport, plan *report.RenderPlan, format string, output []byte) *Entry {
	sum := sha256.Sum256(output)
	return &Entry{
		Organization:    r.Metadata.Organization,
		Team:            r.Metadata.Team,
		WeekStart:       r.Metadata.WeekStart,
		WeekEnd:         r.Metadata.WeekEnd,
		RAG:             string(r.Metadata.RAG),
		Format:          format,
		OutputSHA256:    hex.EncodeToString(sum[:]),
		OutputBytes:     len(output),
		SchemaVersion:   plan.Provenance.SchemaVersion,
		TemplateVersion: plan.Provenance.TemplateVersion,
		GeneratedAt:     plan.Provenance.GeneratedAt,
	}
}

// Archive manages the archive database.
type Archive struct {
	db     *sql.DB
	dbPath string
	now    func() time.Time
}

// Open opens or creates the archive database in dir (normally .weekly).
func Open(dir string) (*Archive, error) {
	dbPath := filepath.Join(dir, FileName)

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, errors.Wrap(err, "open archive db")
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "set WAL mode")
	}

	a := &Archive{db: db, dbPath: dbPath, now: time.Now}
	if err := a.initSchema(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "init schema")
	}
	return a, nil
}

// Close closes the database connection.
func (a *Archive) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}

// Path returns the database file path.
func (a *Archive) Path() string {
	return a.dbPath
}

// Record stores e, assigning its ID and RecordedAt.
func (a *Archive) Record(e *Entry) error {
	e.ID = uuid.NewString()
	e.RecordedAt = a.now().UTC()

	_, err := a.db.Exec(`
		INSERT INTO renders (id, organization, team, week_start, week_end, rag, format, template,
			output_path, output_sha256, output_bytes, schema_version, template_version,
			generated_at, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Organization, e.Team, e.WeekStart, e.WeekEnd, e.RAG, e.Format, e.Template,
		e.OutputPath, e.OutputSHA256, e.OutputBytes, e.SchemaVersion, e.TemplateVersion,
		e.GeneratedAt.UTC().Format(timeLayout), e.RecordedAt.Format(timeLayout),
	)
	if err != nil {
		return errors.Wrapf(err, "record render for %s", e.Team)
	}
	return nil
}

const selectEntry = `
	SELECT id, organization, team, week_start, week_end, rag, format, template,
		output_path, output_sha256, output_bytes, schema_version, template_version,
		generated_at, recorded_at
	FROM renders`

// Get returns the entry with the given ID, or ErrNotFound.
func (a *Archive) Get(id string) (*Entry, error) {
	row := a.db.QueryRow(selectEntry+" WHERE id = ?", id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(ErrNotFound, "id %s", id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get archive entry %s", id)
	}
	return e, nil
}

// List returns up to limit entries, newest first. An empty team matches
// every team; a limit of zero or less means no limit.
func (a *Archive) List(limit int, team string) ([]Entry, error) {
	query := selectEntry
	var args []any
	if team != "" {
		query += " WHERE team = ?"
		args = append(args, team)
	}
	query += " ORDER BY recorded_at DESC, rowid DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := a.db.Query(query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query archive")
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan archive entry")
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// Integrity runs SQLite's integrity check and returns the problems it
// reports, or nil when the database is sound.
func (a *Archive) Integrity() ([]string, error) {
	rows, err := a.db.Query("PRAGMA integrity_check")
	if err != nil {
		return nil, errors.Wrap(err, "integrity check")
	}
	defer rows.Close()

	var problems []string
	for rows.Next() {
		var line string
		if err := rows.Scan(&line); err != nil {
			return nil, errors.Wrap(err, "integrity check")
		}
		if line != "ok" {
			problems = append(problems, line)
		}
	}
	return problems, rows.Err()
}

// Count returns the number of archived renders.
func (a *Archive) Count() (int64, error) {
	var n int64
	if err := a.db.QueryRow("SELECT COUNT(*) FROM renders").Scan(&n); err != nil {
		return 0, errors.Wrap(err, "count renders")
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (*Entry, error) {
	var (
		e                       Entry
		generatedAt, recordedAt string
	)
	err := s.Scan(&e.ID, &e.Organization, &e.Team, &e.WeekStart, &e.WeekEnd, &e.RAG, &e.Format,
		&e.Template, &e.OutputPath, &e.OutputSHA256, &e.OutputBytes, &e.SchemaVersion,
		&e.TemplateVersion, &generatedAt, &recordedAt)
	if err != nil {
		return nil, err
	}
	e.GeneratedAt, _ = time.Parse(timeLayout, generatedAt)
	e.RecordedAt, _ = time.Parse(timeLayout, recordedAt)
	return &e, nil
}
