// Package tmpl substitutes render-plan fragments into text templates.
//
// Two placeholder conventions are recognised:
//
//	{ANCHOR_NAME}       brace form, upper-case names only
//	{{ anchorName }}    mustache form, optional inner whitespace
//
// Names resolve first against the caller's values and then against the
// fixed anchor vocabulary (report.ParseAnchor), so {{ nextWeek }} and
// {NEXT_WEEK} address the same fragment. Sections may be wrapped in
// {{#if name}}...{{/if}} and are dropped when the named value is empty.
//
// A template may pin the anchor vocabulary it was written against with a
// directive, removed from the output:
//
//	<!-- template-version: ^1.0 -->
package tmpl

import (
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/cockroachdb/errors"

	"github.com/harborlight/weekly/internal/report"
)

var (
	// ErrUnknownPlaceholder is returned by Render when the template names a
	// value that is neither supplied nor an anchor.
	ErrUnknownPlaceholder = errors.New("unknown placeholder")

	// ErrIncompatibleTemplate is returned by CheckVersion when the plan's
	// template version does not satisfy the template's directive.
	ErrIncompatibleTemplate = errors.New("incompatible template version")
)

var (
	versionDirective = regexp.MustCompile(`<!--\s*template-version:\s*(.*?)\s*-->[ \t]*\r?\n?`)
	placeholder      = regexp.MustCompile(`\{\{\s*(?:#if\s+([A-Za-z_][A-Za-z0-9_]*)|(/if)|([A-Za-z_][A-Za-z0-9_]*))\s*\}\}|\{([A-Z][A-Z0-9_]*)\}`)
)

type tokenKind int

const (
	tokenText tokenKind = iota
	tokenValue
	tokenIf
	tokenEndIf
)

type token struct {
	kind tokenKind
	text string // literal text, or the placeholder exactly as written
	name string
}

// Template is a parsed template. It is immutable and safe to reuse.
type Template struct {
	name       string
	tokens     []token
	constraint *semver.Constraints
	version    string
}

// Options controls Render.
type Options struct {
	// AllowUnknown leaves unknown placeholders in the output instead of
	// failing. Unknown {{#if}} names count as empty.
	AllowUnknown bool
}

// Parse parses template text. It fails on unbalanced {{#if}} blocks and
// on an unparseable version directive.
func Parse(text string) (*Template, error) {
	return parseNamed("template", text)
}

// ParseFile reads and parses the template at path.
func ParseFile(path string) (*Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading template %s", path)
	}
	return parseNamed(path, string(data))
}

func parseNamed(name, text string) (*Template, error) {
	t := &Template{name: name}

	if m := versionDirective.FindStringSubmatchIndex(text); m != nil {
		t.version = text[m[2]:m[3]]
		c, err := semver.NewConstraint(t.version)
		if err != nil {
			return nil, errors.Wrapf(err, "%s: invalid template-version %q", name, t.version)
		}
		t.constraint = c
		text = text[:m[0]] + text[m[1]:]
	}

	depth := 0
	last := 0
	for _, m := range placeholder.FindAllStringSubmatchIndex(text, -1) {
		if m[0] > last {
			t.tokens = append(t.tokens, token{kind: tokenText, text: text[last:m[0]]})
		}
		raw := text[m[0]:m[1]]
		switch {
		case m[2] >= 0:
			depth++
			t.tokens = append(t.tokens, token{kind: tokenIf, text: raw, name: text[m[2]:m[3]]})
		case m[4] >= 0:
			if depth == 0 {
				return nil, errors.Newf("%s: {{/if}} without matching {{#if}}", name)
			}
			depth--
			t.tokens = append(t.tokens, token{kind: tokenEndIf, text: raw})
		case m[6] >= 0:
			t.tokens = append(t.tokens, token{kind: tokenValue, text: raw, name: text[m[6]:m[7]]})
		default:
			t.tokens = append(t.tokens, token{kind: tokenValue, text: raw, name: text[m[8]:m[9]]})
		}
		last = m[1]
	}
	if last < len(text) {
		t.tokens = append(t.tokens, token{kind: tokenText, text: text[last:]})
	}
	if depth != 0 {
		return nil, errors.Newf("%s: %d unclosed {{#if}} block(s)", name, depth)
	}
	return t, nil
}

// Name returns the path the template was loaded from, or "template".
func (t *Template) Name() string {
	return t.name
}

// Version returns the raw template-version constraint, or "" if the
// template carries none.
func (t *Template) Version() string {
	return t.version
}

// Placeholders returns every placeholder and {{#if}} name in order of first
// appearance.
func (t *Template) Placeholders() []string {
	seen := make(map[string]bool)
	var names []string
	for _, tok := range t.tokens {
		if tok.name == "" || seen[tok.name] {
			continue
		}
		seen[tok.name] = true
		names = append(names, tok.name)
	}
	return names
}

// Unknown returns the placeholder names that values cannot resolve, in order
// of first appearance.
func (t *Template) Unknown(values map[string]string) []string {
	var unknown []string
	for _, name := range t.Placeholders() {
		if _, ok := lookup(values, name); !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// CheckVersion reports whether a plan built for templateVersion may fill
// this template. Templates without a directive accept every version.
func (t *Template) CheckVersion(templateVersion string) error {
	if t.constraint == nil {
		return nil
	}
	v, err := semver.NewVersion(templateVersion)
	if err != nil {
		return errors.Wrapf(ErrIncompatibleTemplate, "%s: plan template version %q", t.name, templateVersion)
	}
	if !t.constraint.Check(v) {
		return errors.WithHintf(
			errors.Wrapf(ErrIncompatibleTemplate, "%s requires %s, plan has %s", t.name, t.version, templateVersion),
			"update the template to the current anchor set or change its template-version directive",
		)
	}
	return nil
}

// Render substitutes values into the template in a single pass; inserted
// values are never rescanned for placeholders.
func (t *Template) Render(values map[string]string, opts Options) (string, error) {
	if !opts.AllowUnknown {
		if unknown := t.Unknown(values); len(unknown) > 0 {
			return "", errors.WithHint(
				errors.Wrapf(ErrUnknownPlaceholder, "%s: %s", t.name, strings.Join(unknown, ", ")),
				"valid names are "+strings.Join(knownNames(values), ", "),
			)
		}
	}

	var b strings.Builder
	// skip counts the enclosing {{#if}} blocks whose value is empty.
	skip := 0
	var open []bool
	for _, tok := range t.tokens {
		switch tok.kind {
		case tokenIf:
			v, _ := lookup(values, tok.name)
			keep := skip == 0 && v != ""
			open = append(open, keep)
			if !keep {
				skip++
			}
		case tokenEndIf:
			keep := open[len(open)-1]
			open = open[:len(open)-1]
			if !keep {
				skip--
			}
		case tokenValue:
			if skip > 0 {
				continue
			}
			if v, ok := lookup(values, tok.name); ok {
				b.WriteString(v)
			} else {
				b.WriteString(tok.text)
			}
		default:
			if skip == 0 {
				b.WriteString(tok.text)
			}
		}
	}
	return b.String(), nil
}

// lookup resolves name against values, then against the anchor vocabulary.
// A known anchor absent from values resolves to "".
func lookup(values map[string]string, name string) (string, bool) {
	if v, ok := values[name]; ok {
		return v, true
	}
	a, err := report.ParseAnchor(name)
	if err != nil {
		return "", false
	}
	if v, ok := values[string(a)]; ok {
		return v, true
	}
	if v, ok := values[a.Key()]; ok {
		return v, true
	}
	return "", true
}

func knownNames(values map[string]string) []string {
	names := make([]string, 0, len(report.AllAnchors)+len(values))
	seen := make(map[string]bool)
	for _, a := range report.AllAnchors {
		names = append(names, string(a))
		seen[string(a)] = true
	}
	var extra []string
	for k := range values {
		if !seen[k] && !report.IsAnchor(k) {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	return append(names, extra...)
}
