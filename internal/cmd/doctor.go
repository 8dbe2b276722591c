package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/harborlight/weekly/internal/archive"
	"github.com/harborlight/weekly/internal/config"
	"github.com/harborlight/weekly/internal/pdf"
	"github.com/harborlight/weekly/internal/report"
	"github.com/harborlight/weekly/internal/tmpl"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the weekly setup",
	Long: `Run health checks on the weekly setup in this directory.

Checks:
  - Config file loads and validates
  - Configured templates parse and accept the current template version
  - Archive database integrity (SQLite integrity_check)
  - A Chrome or Chromium binary is available for PDF output

Examples:
  weekly doctor`,
	Args: cobra.NoArgs,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

type doctorResult struct {
	passed       bool
	warning      bool
	summary      string
	issueDetails []string
}

func runDoctor(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "# weekly doctor")

	cfg, cfgResult := checkConfig()
	results := []doctorResult{cfgResult}
	if cfg != nil {
		results = append(results,
			checkTemplates(cfg),
			checkArchive(),
			checkChrome(cfg),
		)
	}

	issues := 0
	for _, r := range results {
		writeDoctorResult(out, r)
		if !r.passed && !r.warning {
			issues++
		}
	}

	fmt.Fprintln(out, "#")
	if issues == 0 {
		fmt.Fprintln(out, "# Summary: All checks passed ✓")
	} else {
		fmt.Fprintf(out, "# Summary: %d issue(s) found\n", issues)
	}
	return nil
}

func writeDoctorResult(w io.Writer, r doctorResult) {
	mark := "✓"
	switch {
	case r.warning:
		mark = "⚠"
	case !r.passed:
		mark = "✗"
	}
	fmt.Fprintf(w, "#   %s %s\n", mark, r.summary)
	for _, detail := range r.issueDetails {
		fmt.Fprintf(w, "#     - %s\n", detail)
	}
}

func checkConfig() (*config.Config, doctorResult) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, doctorResult{summary: "Config is invalid", issueDetails: []string{err.Error()}}
	}
	if _, err := config.FindConfigDir("."); err != nil && configPath == "" {
		return cfg, doctorResult{warning: true, summary: "No .weekly directory; using defaults (run `weekly init`)"}
	}
	return cfg, doctorResult{passed: true, summary: "Config OK"}
}

// checkTemplates parses every configured template.
func checkTemplates(cfg *config.Config) doctorResult {
	var details []string
	for _, path := range []string{cfg.Templates.Markdown, cfg.Templates.HTML} {
		if path == "" {
			continue
		}
		tpl, err := tmpl.ParseFile(path)
		if err == nil {
			err = tpl.CheckVersion(report.TemplateVersion)
		}
		if err != nil {
			details = append(details, err.Error())
		}
	}
	if len(details) > 0 {
		return doctorResult{summary: "Template problems", issueDetails: details}
	}
	return doctorResult{passed: true, summary: "Templates OK"}
}

func checkArchive() doctorResult {
	configDir, err := config.FindConfigDir(".")
	if err != nil {
		return doctorResult{warning: true, summary: "No archive (weekly not initialized)"}
	}

	a, err := archive.Open(configDir)
	if err != nil {
		return doctorResult{summary: "Archive cannot be opened", issueDetails: []string{err.Error()}}
	}
	defer a.Close()

	problems, err := a.Integrity()
	if err != nil {
		return doctorResult{summary: "Archive integrity check failed", issueDetails: []string{err.Error()}}
	}
	if len(problems) > 0 {
		return doctorResult{summary: "Archive integrity check failed", issueDetails: problems}
	}

	n, err := a.Count()
	if err != nil {
		return doctorResult{summary: "Archive cannot be read", issueDetails: []string{err.Error()}}
	}
	return doctorResult{passed: true, summary: fmt.Sprintf("Archive OK (%d renders)", n)}
}

func checkChrome(cfg *config.Config) doctorResult {
	if cfg.PDF.ChromePath != "" {
		return doctorResult{passed: true, summary: "Chrome: " + cfg.PDF.ChromePath + " (from config)"}
	}
	if path, ok := pdf.FindExecutable(); ok {
		return doctorResult{passed: true, summary: "Chrome: " + path}
	}
	return doctorResult{
		warning: true,
		summary: "No Chrome or Chromium found; PDF output is unavailable",
		issueDetails: []string{
			"install Chrome or Chromium, set CHROME_PATH, or set pdf.chrome_path",
		},
	}
}
