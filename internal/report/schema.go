// Package report provides the weekly status report model, its business-rule
// validator and the render-plan generator.
//
// The package is the pure core of weekly: it never touches disk, processes
// or rendering engines. Loading happens in package input, substitution in
// package tmpl and document rendering in packages htmldoc and pdf.
package report

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// RAG is the Red/Amber/Green health indicator for a reporting period.
type RAG string

const (
	RAGGreen RAG = "Green"
	RAGAmber RAG = "Amber"
	RAGRed   RAG = "Red"
)

// String returns the string representation of the RAG status.
func (r RAG) String() string {
	return string(r)
}

// Valid reports whether r is one of Green, Amber or Red. Matching is exact.
func (r RAG) Valid() bool {
	switch r {
	case RAGGreen, RAGAmber, RAGRed:
		return true
	default:
		return false
	}
}

// Sensitivity is the distribution class of a report.
type Sensitivity string

const (
	SensitivityPublic     Sensitivity = "Public"
	SensitivityInternal   Sensitivity = "Internal"
	SensitivityRestricted Sensitivity = "Restricted"
)

// String returns the string representation of the sensitivity.
func (s Sensitivity) String() string {
	return string(s)
}

// Level is the Low/Medium/High scale used for blocker impact and for risk
// likelihood and impact.
type Level string

const (
	LevelLow    Level = "Low"
	LevelMedium Level = "Medium"
	LevelHigh   Level = "High"
)

// String returns the string representation of the level.
func (l Level) String() string {
	return string(l)
}

// WeeklyReport is the root input of the pipeline. It is treated as
// immutable: neither Validate nor the Planner modify it.
type WeeklyReport struct {
	Metadata Metadata `yaml:"metadata" json:"metadata"`
	Sections Sections `yaml:"sections" json:"sections"`
}

// Metadata identifies the reporting team and period.
type Metadata struct {
	Organization string `yaml:"organization" json:"organization"`
	Team         string `yaml:"team" json:"team"`

	// WeekStart and WeekEnd are ISO-8601 calendar dates, e.g. "2026-01-06".
	// They are kept as text so that invalid input can be reported rather
	// than rejected at parse time.
	WeekStart string `yaml:"weekStart" json:"weekStart"`
	WeekEnd   string `yaml:"weekEnd" json:"weekEnd"`

	Author      string      `yaml:"author" json:"author"`
	RAG         RAG         `yaml:"rag" json:"rag"`
	Sensitivity Sensitivity `yaml:"sensitivity" json:"sensitivity"`
}

// Sections holds the ordered report content.
type Sections struct {
	Accomplishments []string   `yaml:"accomplishments" json:"accomplishments"`
	Metrics         []Metric   `yaml:"metrics" json:"metrics"`
	Blockers        []Blocker  `yaml:"blockers" json:"blockers"`
	Risks           []Risk     `yaml:"risks" json:"risks"`
	Decisions       []Decision `yaml:"decisions" json:"decisions"`
	NextWeek        []string   `yaml:"nextWeek" json:"nextWeek"`
	Asks            []Ask      `yaml:"asks" json:"asks"`
}

// Metric is one row of the metrics table.
type Metric struct {
	Name  string      `yaml:"name" json:"name"`
	Value MetricValue `yaml:"value" json:"value"`
	Delta string      `yaml:"delta,omitempty" json:"delta,omitempty"`
	Note  string      `yaml:"note,omitempty" json:"note,omitempty"`
}

// Blocker is an impediment that needs an owner and, when help is needed
// from someone else, a due date.
type Blocker struct {
	Title      string `yaml:"title" json:"title"`
	Impact     Level  `yaml:"impact" json:"impact"`
	Owner      string `yaml:"owner" json:"owner"`
	NeededFrom string `yaml:"neededFrom,omitempty" json:"neededFrom,omitempty"`
	DueDate    string `yaml:"dueDate,omitempty" json:"dueDate,omitempty"`
}

// Risk is a tracked risk with its assessment and mitigation.
type Risk struct {
	Title      string `yaml:"title" json:"title"`
	Category   string `yaml:"category" json:"category"`
	Likelihood Level  `yaml:"likelihood" json:"likelihood"`
	Impact     Level  `yaml:"impact" json:"impact"`
	Mitigation string `yaml:"mitigation" json:"mitigation"`
	Owner      string `yaml:"owner" json:"owner"`
}

// Decision records a decision taken during the week.
type Decision struct {
	Title     string `yaml:"title" json:"title"`
	Rationale string `yaml:"rationale" json:"rationale"`
	Date      string `yaml:"date" json:"date"`
}

// Ask is a request for help addressed to someone outside the team.
type Ask struct {
	Ask      string `yaml:"ask" json:"ask"`
	FromWhom string `yaml:"fromWhom" json:"fromWhom"`
	ByWhen   string `yaml:"byWhen" json:"byWhen"`
}

// MetricValue is a metric value that may be written as a string or as a
// number in the source document. Numbers are kept in their shortest decimal
// form so 42 renders as "42" and 1.50 as "1.5".
type MetricValue string

// String returns the value as rendered in the metrics table.
func (v MetricValue) String() string {
	return string(v)
}

// UnmarshalJSON accepts a JSON string or number.
func (v *MetricValue) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*v = ""
		return nil
	}
	if strings.HasPrefix(trimmed, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = MetricValue(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("metric value must be a string or number: %w", err)
	}
	*v = MetricValue(canonicalNumber(n.String()))
	return nil
}

// UnmarshalYAML accepts a YAML scalar of any kind.
func (v *MetricValue) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: metric value must be a scalar", node.Line)
	}
	switch node.Tag {
	case "!!int", "!!float":
		*v = MetricValue(canonicalNumber(node.Value))
	case "!!null":
		*v = ""
	default:
		*v = MetricValue(node.Value)
	}
	return nil
}

// canonicalNumber formats a numeric literal the way it is displayed in
// reports: shortest decimal form, switching to exponent form at or above
// 1e21 and below 1e-6 with no zero padding in the exponent. Literals that
// do not parse as floats are returned unchanged.
func canonicalNumber(s string) string {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return s
	}
	if f == 0 {
		return "0"
	}
	if abs := math.Abs(f); abs < 1e21 && abs >= 1e-6 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}

	mantissa, exp, _ := strings.Cut(strconv.FormatFloat(f, 'e', -1, 64), "e")
	sign, digits := exp[:1], strings.TrimLeft(exp[1:], "0")
	return mantissa + "e" + sign + digits
}
