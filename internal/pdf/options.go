package pdf

import (
	"math"
	"strconv"
	"strings"

	"github.com/chromedp/cdproto/page"
	"github.com/cockroachdb/errors"
)

// Format is a paper size.
type Format string

const (
	FormatA4     Format = "A4"
	FormatLetter Format = "Letter"
	FormatLegal  Format = "Legal"
)

// DefaultMargin is applied to every side not given explicitly.
const DefaultMargin = "15mm"

// paperSizes holds width and height in inches.
var paperSizes = map[Format][2]float64{
	FormatA4:     {8.27, 11.7},
	FormatLetter: {8.5, 11},
	FormatLegal:  {8.5, 14},
}

// String returns the paper size name.
func (f Format) String() string {
	return string(f)
}

// ParseFormat parses a paper size name, ignoring case. Empty means A4.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "a4":
		return FormatA4, nil
	case "letter":
		return FormatLetter, nil
	case "legal":
		return FormatLegal, nil
	default:
		return "", errors.Newf("invalid paper format: %q (expected A4, Letter, or Legal)", s)
	}
}

// Margins holds per-side CSS lengths. Empty sides fall back to
// Options.Margin.
type Margins struct {
	Top    string `yaml:"top,omitempty" json:"top,omitempty"`
	Right  string `yaml:"right,omitempty" json:"right,omitempty"`
	Bottom string `yaml:"bottom,omitempty" json:"bottom,omitempty"`
	Left   string `yaml:"left,omitempty" json:"left,omitempty"`
}

// Options controls PDF generation. The zero value prints A4 with
// backgrounds and 15mm margins, without header or footer.
type Options struct {
	Format Format

	// PrintBackground defaults to true when nil.
	PrintBackground *bool

	// Margin is a CSS length (mm, cm, in, px, pt; bare numbers are px)
	// applied to all sides.
	Margin  string
	Margins Margins

	DisplayHeaderFooter bool
	HeaderTemplate      string
	FooterTemplate      string
}

// Bool returns a pointer to v, for Options.PrintBackground.
func Bool(v bool) *bool {
	return &v
}

// params converts o to Chrome's print parameters.
func (o Options) params() (*page.PrintToPDFParams, error) {
	format := o.Format
	if format == "" {
		format = FormatA4
	}
	size, ok := paperSizes[format]
	if !ok {
		return nil, errors.Newf("invalid paper format: %q (expected A4, Letter, or Legal)", format)
	}

	margin := o.Margin
	if margin == "" {
		margin = DefaultMargin
	}
	sides := [4]string{o.Margins.Top, o.Margins.Right, o.Margins.Bottom, o.Margins.Left}
	var inches [4]float64
	for i, side := range sides {
		if side == "" {
			side = margin
		}
		v, err := ParseLength(side)
		if err != nil {
			return nil, errors.Wrap(err, "margin")
		}
		inches[i] = v
	}

	background := true
	if o.PrintBackground != nil {
		background = *o.PrintBackground
	}

	p := page.PrintToPDF().
		WithPaperWidth(size[0]).
		WithPaperHeight(size[1]).
		WithMarginTop(inches[0]).
		WithMarginRight(inches[1]).
		WithMarginBottom(inches[2]).
		WithMarginLeft(inches[3]).
		WithPrintBackground(background).
		WithDisplayHeaderFooter(o.DisplayHeaderFooter)
	if o.HeaderTemplate != "" {
		p = p.WithHeaderTemplate(o.HeaderTemplate)
	}
	if o.FooterTemplate != "" {
		p = p.WithFooterTemplate(o.FooterTemplate)
	}
	return p, nil
}

var unitsPerInch = []struct {
	suffix  string
	perInch float64
}{
	{"mm", 25.4},
	{"cm", 2.54},
	{"in", 1},
	{"px", 96},
	{"pt", 72},
}

// ParseLength converts a CSS length to inches.
func ParseLength(s string) (float64, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	perInch := 96.0
	number := s
	for _, u := range unitsPerInch {
		if strings.HasSuffix(s, u.suffix) {
			perInch = u.perInch
			number = strings.TrimSpace(strings.TrimSuffix(s, u.suffix))
			break
		}
	}

	v, err := strconv.ParseFloat(number, 64)
	if err != nil || v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errors.Newf("invalid length %q", s)
	}
	return v / perInch, nil
}
