package tmpl

import (
	_ "embed"
)

// defaultMarkdown is the built-in Markdown report layout, used by
// `weekly render --to md` when no template is given.
//
//go:embed defaults/report.md
var defaultMarkdown string

// defaultHTML is the built-in HTML document used for html and pdf output.
//
//go:embed defaults/report.html
var defaultHTML string

// DefaultMarkdown returns the built-in Markdown template.
func DefaultMarkdown() *Template {
	return mustParse("default markdown template", defaultMarkdown)
}

// DefaultHTML returns the built-in HTML template.
func DefaultHTML() *Template {
	return mustParse("default html template", defaultHTML)
}

func mustParse(name, text string) *Template {
	t, err := parseNamed(name, text)
	if err != nil {
		panic(err)
	}
	return t
}
