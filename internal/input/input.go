// Package input loads weekly reports from JSON or YAML documents.
//
// Loading is the only place where raw bytes become a report.WeeklyReport;
// structural problems (malformed JSON, wrong shapes) surface here as
// errors, while business-rule problems are left to report.Validate.
package input

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"github.com/harborlight/weekly/internal/report"
)

// Format is the encoding of a report document.
type Format string

const (
	FormatAuto Format = ""
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Stdin is the path that makes Load read from standard input.
const Stdin = "-"

// ErrEmptyDocument is returned when a document holds no report.
var ErrEmptyDocument = errors.New("document contains no report")

// stdin is swapped in tests.
var stdin io.Reader = os.Stdin

// Load reads and parses the report at path. The format is chosen from the
// file extension, falling back to content sniffing.
func Load(path string) (*report.WeeklyReport, error) {
	var (
		data []byte
		err  error
	)
	if path == Stdin {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "reading report %s", path)
	}

	r, err := Parse(data, FormatFromPath(path))
	if err != nil {
		return nil, errors.Wrapf(err, "parsing report %s", path)
	}
	return r, nil
}

// FormatFromPath maps a file extension to a Format. Unknown extensions
// return FormatAuto.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatAuto
	}
}

// Sniff guesses the format of data: documents starting with '{' or '[' are
// JSON, everything else is YAML.
func Sniff(data []byte) Format {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
		return FormatJSON
	}
	return FormatYAML
}

// Parse decodes a report document. A document holding a list of reports
// yields the first one.
func Parse(data []byte, format Format) (*report.WeeklyReport, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyDocument
	}
	if format == FormatAuto {
		format = Sniff(data)
	}

	switch format {
	case FormatJSON:
		return parseJSON(data)
	case FormatYAML:
		return parseYAML(data)
	default:
		return nil, errors.Newf("unsupported report format %q", format)
	}
}

func parseJSON(data []byte) (*report.WeeklyReport, error) {
	trimmed := bytes.TrimSpace(data)
	if trimmed[0] == '[' {
		var list []report.WeeklyReport
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, errors.Wrap(err, "decoding JSON report list")
		}
		if len(list) == 0 {
			return nil, ErrEmptyDocument
		}
		return &list[0], nil
	}

	var r report.WeeklyReport
	if err := json.Unmarshal(trimmed, &r); err != nil {
		return nil, errors.Wrap(err, "decoding JSON report")
	}
	return &r, nil
}

func parseYAML(data []byte) (*report.WeeklyReport, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, errors.Wrap(err, "decoding YAML report")
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return nil, ErrEmptyDocument
	}

	node := root.Content[0]
	switch node.Kind {
	case yaml.SequenceNode:
		if len(node.Content) == 0 {
			return nil, ErrEmptyDocument
		}
		node = node.Content[0]
	case yaml.MappingNode:
	default:
		return nil, errors.Newf("line %d: report must be a mapping or a list of mappings", node.Line)
	}

	var r report.WeeklyReport
	if err := node.Decode(&r); err != nil {
		return nil, errors.Wrap(err, "decoding YAML report")
	}
	return &r, nil
}
