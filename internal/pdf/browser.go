// Package pdf prints HTML documents to PDF with headless Chrome.
//
// A Browser owns one Chrome process. Callers launch it once, print any
// number of documents (each in its own tab) and Close it when done:
//
//	b, err := pdf.Launch(ctx, pdf.LaunchOptions{})
//	if err != nil {
//		return err
//	}
//	defer b.Close()
//	data, err := b.PrintPDF(ctx, html, pdf.Options{Format: pdf.FormatLetter})
package pdf

import (
	"context"
	"encoding/base64"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/cockroachdb/errors"
)

// ErrClosed is returned when printing with a closed Browser.
var ErrClosed = errors.New("pdf: browser is closed")

// DefaultTimeout bounds a single PrintPDF call when LaunchOptions.Timeout
// is zero.
const DefaultTimeout = 30 * time.Second

// Printer renders an HTML document to PDF bytes.
type Printer interface {
	PrintPDF(ctx context.Context, html string, opts Options) ([]byte, error)
}

// LaunchOptions configures the Chrome process.
type LaunchOptions struct {
	// ExecPath is the Chrome binary. Empty means FindExecutable, then
	// chromedp's own search of the usual install locations.
	ExecPath string

	// Timeout bounds each PrintPDF call. Zero means DefaultTimeout.
	Timeout time.Duration
}

// Browser is a running headless Chrome. It is safe for concurrent use.
type Browser struct {
	mu            sync.Mutex
	closed        bool
	ctx           context.Context
	cancelBrowser context.CancelFunc
	cancelAlloc   context.CancelFunc
	timeout       time.Duration
}

// Launch starts headless Chrome. The process outlives ctx and is released
// by Close; ctx only bounds start-up.
func Launch(ctx context.Context, opts LaunchOptions) (*Browser, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	execPath := opts.ExecPath
	if execPath == "" {
		execPath, _ = FindExecutable()
	}
	if execPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(execPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.WithoutCancel(ctx), allocOpts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)

	started := make(chan error, 1)
	go func() { started <- chromedp.Run(browserCtx) }()

	select {
	case err := <-started:
		if err != nil {
			cancelBrowser()
			cancelAlloc()
			return nil, errors.WithHint(
				errors.Wrap(err, "launching chrome"),
				"install Chrome or Chromium, set CHROME_PATH, or set pdf.chrome_path in .weekly/config.yaml",
			)
		}
	case <-ctx.Done():
		cancelBrowser()
		cancelAlloc()
		return nil, errors.Wrap(ctx.Err(), "launching chrome")
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Browser{
		ctx:           browserCtx,
		cancelBrowser: cancelBrowser,
		cancelAlloc:   cancelAlloc,
		timeout:       timeout,
	}, nil
}

// PrintPDF loads html into a fresh tab and prints it. The tab is closed
// before returning.
func (b *Browser) PrintPDF(ctx context.Context, html string, opts Options) ([]byte, error) {
	params, err := opts.params()
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, ErrClosed
	}
	tabCtx, cancelTab := chromedp.NewContext(b.ctx)
	b.mu.Unlock()
	defer cancelTab()

	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, b.timeout)
	defer cancelTimeout()
	stop := context.AfterFunc(ctx, cancelTab)
	defer stop()

	var data []byte
	err = chromedp.Run(tabCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, html).Do(ctx)
		}),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			data, _, err = params.Do(ctx)
			return err
		}),
	)
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.Wrap(ctx.Err(), "printing pdf")
		}
		return nil, errors.Wrap(err, "printing pdf")
	}
	return data, nil
}

// Close shuts Chrome down. It is safe to call more than once.
func (b *Browser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true

	err := chromedp.Cancel(b.ctx)
	b.cancelBrowser()
	b.cancelAlloc()
	if err != nil && !errors.Is(err, context.Canceled) {
		return errors.Wrap(err, "closing chrome")
	}
	return nil
}

// EncodeBase64 prints html with p and returns the PDF base64-encoded.
func EncodeBase64(ctx context.Context, p Printer, html string, opts Options) (string, error) {
	data, err := p.PrintPDF(ctx, html, opts)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

var chromeNames = []string{
	"google-chrome",
	"google-chrome-stable",
	"chromium",
	"chromium-browser",
	"headless-shell",
}

// FindExecutable looks for a Chrome binary: $CHROME_PATH first, then the
// usual names on $PATH.
func FindExecutable() (string, bool) {
	if p := os.Getenv("CHROME_PATH"); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p, true
		}
	}
	for _, name := range chromeNames {
		if p, err := exec.LookPath(name); err == nil {
			return p, true
		}
	}
	return "", false
}
