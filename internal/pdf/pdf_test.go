package pdf

import (
	"bytes"
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLength(t *testing.T) {
	tests := []struct {
		input   string
		want    float64
		wantErr bool
	}{
		{"15mm", 15 / 25.4, false},
		{"2.54cm", 1, false},
		{"1in", 1, false},
		{"96px", 1, false},
		{"72pt", 1, false},
		{"48", 0.5, false},
		{" 10 MM ", 10 / 25.4, false},
		{"0", 0, false},
		{"", 0, true},
		{"mm", 0, true},
		{"-5mm", 0, true},
		{"wide", 0, true},
		{"nan", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseLength(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input   string
		want    Format
		wantErr bool
	}{
		{"", FormatA4, false},
		{"a4", FormatA4, false},
		{"LETTER", FormatLetter, false},
		{"Legal", FormatLegal, false},
		{"A3", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseFormat(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOptions_Defaults(t *testing.T) {
	p, err := Options{}.params()
	require.NoError(t, err)

	assert.InDelta(t, 8.27, p.PaperWidth, 1e-9)
	assert.InDelta(t, 11.7, p.PaperHeight, 1e-9)
	margin := 15 / 25.4
	assert.InDelta(t, margin, p.MarginTop, 1e-9)
	assert.InDelta(t, margin, p.MarginRight, 1e-9)
	assert.InDelta(t, margin, p.MarginBottom, 1e-9)
	assert.InDelta(t, margin, p.MarginLeft, 1e-9)
	assert.True(t, p.PrintBackground)
	assert.False(t, p.DisplayHeaderFooter)
	assert.Empty(t, p.HeaderTemplate)
	assert.Empty(t, p.FooterTemplate)
}

func TestOptions_Overrides(t *testing.T) {
	p, err := Options{
		Format:              FormatLetter,
		PrintBackground:     Bool(false),
		Margin:              "1in",
		Margins:             Margins{Top: "2in", Left: "48px"},
		DisplayHeaderFooter: true,
		HeaderTemplate:      `<span class="title"></span>`,
		FooterTemplate:      `<span class="pageNumber"></span>`,
	}.params()
	require.NoError(t, err)

	assert.Equal(t, 8.5, p.PaperWidth)
	assert.Equal(t, 11.0, p.PaperHeight)
	assert.InDelta(t, 2, p.MarginTop, 1e-9)
	assert.InDelta(t, 1, p.MarginRight, 1e-9)
	assert.InDelta(t, 1, p.MarginBottom, 1e-9)
	assert.InDelta(t, 0.5, p.MarginLeft, 1e-9)
	assert.False(t, p.PrintBackground)
	assert.True(t, p.DisplayHeaderFooter)
	assert.Equal(t, `<span class="title"></span>`, p.HeaderTemplate)
	assert.Equal(t, `<span class="pageNumber"></span>`, p.FooterTemplate)
}

func TestOptions_Invalid(t *testing.T) {
	_, err := Options{Format: "Tabloid"}.params()
	assert.Error(t, err)

	_, err = Options{Margin: "lots"}.params()
	assert.Error(t, err)
}

type fakePrinter struct {
	got  string
	opts Options
	data []byte
	err  error
}

func (f *fakePrinter) PrintPDF(_ context.Context, html string, opts Options) ([]byte, error) {
	f.got = html
	f.opts = opts
	return f.data, f.err
}

func TestEncodeBase64(t *testing.T) {
	fake := &fakePrinter{data: []byte("%PDF-1.4 fake")}

	got, err := EncodeBase64(context.Background(), fake, "<p>hi</p>", Options{Format: FormatLegal})

	require.NoError(t, err)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("%PDF-1.4 fake")), got)
	assert.Equal(t, "<p>hi</p>", fake.got)
	assert.Equal(t, FormatLegal, fake.opts.Format)
}

func TestEncodeBase64_Error(t *testing.T) {
	fake := &fakePrinter{err: errors.New("boom")}

	_, err := EncodeBase64(context.Background(), fake, "", Options{})

	assert.Error(t, err)
}

func TestBrowser_ClosedHandle(t *testing.T) {
	b := &Browser{closed: true}

	_, err := b.PrintPDF(context.Background(), "<p>hi</p>", Options{})
	assert.True(t, errors.Is(err, ErrClosed))
	assert.NoError(t, b.Close())
}

func TestBrowser_PrintPDF(t *testing.T) {
	execPath, ok := FindExecutable()
	if !ok {
		t.Skip("Chrome not installed - skipping PDF test")
	}
	if testing.Short() {
		t.Skip("skipping browser test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	b, err := Launch(ctx, LaunchOptions{ExecPath: execPath})
	require.NoError(t, err)
	defer b.Close()

	data, err := b.PrintPDF(ctx, "<html><body><h1>Weekly</h1></body></html>", Options{})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))

	// A second document reuses the same process.
	data, err = b.PrintPDF(ctx, "<p>second</p>", Options{Format: FormatLetter})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))

	require.NoError(t, b.Close())
	require.NoError(t, b.Close())
	_, err = b.PrintPDF(ctx, "<p>late</p>", Options{})
	assert.True(t, errors.Is(err, ErrClosed))
}

func TestLaunch_ChromePathFallback(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script stand-in needs a Unix shell")
	}

	dir := t.TempDir()
	marker := filepath.Join(dir, "started")
	fake := filepath.Join(dir, "fake-chrome")
	script := "#!/bin/sh\n: > '" + marker + "'\nexit 1\n"
	require.NoError(t, os.WriteFile(fake, []byte(script), 0755))

	t.Setenv("CHROME_PATH", fake)
	t.Setenv("PATH", dir)

	got, ok := FindExecutable()
	require.True(t, ok)
	require.Equal(t, fake, got)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	b, err := Launch(ctx, LaunchOptions{})
	if b != nil {
		b.Close()
	}
	assert.Error(t, err)
	assert.FileExists(t, marker, "Launch did not run the $CHROME_PATH binary")
}
