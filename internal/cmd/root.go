// Package cmd contains all CLI commands for weekly.
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/harborlight/weekly/internal/config"
	"github.com/harborlight/weekly/internal/logging"
	"github.com/harborlight/weekly/internal/output"
)

var (
	// Version is the current version of weekly
	Version = "0.1.0"

	// Global flags
	verbose      bool
	configPath   string
	forAgents    bool
	outputFormat string
	logJSON      bool
)

// ErrInvalidReport is returned by commands that refuse an invalid report.
// The issues have already been printed when it is returned.
var ErrInvalidReport = errors.New("report is invalid")

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "weekly",
	Short: "Validate and render weekly status reports",
	Long: `weekly checks weekly status reports against the reporting rules and renders
them to Markdown, HTML or PDF.

A report is a JSON or YAML document with metadata (organization, team, week,
author, RAG status, sensitivity) and sections (accomplishments, metrics,
blockers, risks, decisions, next week, asks). weekly validates it, derives a
render plan of named anchors, and substitutes those anchors into a template.

Output Format:
  Results print as styled text by default. Use --format yaml|json for
  machine-readable output.

Examples:
  weekly init                                  # Create .weekly/config.yaml
  weekly validate week.json                    # Check a report
  weekly plan week.yaml --format json          # Show the render plan
  weekly render week.json -o week.md           # Render Markdown
  weekly render week.json --to pdf -o week.pdf # Render PDF with headless Chrome
  weekly watch week.yaml -o week.html --to html
  weekly history --team Programs               # List archived renders

See 'weekly <command> --help' for command-specific options.`,
	Version:           Version,
	SilenceErrors:     true,
	SilenceUsage:      true,
	PersistentPreRunE: setupLogging,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	logging.Cleanup()
	if err != nil {
		printError(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global flags available to all commands
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default: .weekly/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "format", "", "Output format (text|yaml|json)")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "Write logs as JSON to stderr")
	rootCmd.Flags().BoolVar(&forAgents, "for-agents", false, "Output machine-readable capability discovery JSON")

	// Set custom help function to intercept --for-agents flag
	originalHelp := rootCmd.HelpFunc()
	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		if forAgents {
			outputAgentHelp(cmd)
			return
		}
		originalHelp(cmd, args)
	})
}

// printError writes err and any hints attached to it.
func printError(w io.Writer, err error) {
	fmt.Fprintf(w, "Error: %v\n", err)
	for _, hint := range errors.GetAllHints(err) {
		fmt.Fprintf(w, "Hint: %s\n", hint)
	}
}

// setupLogging configures the global logger from flags and config. A broken
// config file is not reported here; the command that needs it reports it.
func setupLogging(cmd *cobra.Command, args []string) error {
	opts := logging.Options{JSON: logJSON, Level: "warn"}
	if cfg, err := loadConfig(); err == nil {
		opts.JSON = opts.JSON || cfg.Logging.JSON
		if cfg.Logging.Level != "" {
			opts.Level = cfg.Logging.Level
		}
	}
	if verbose {
		opts.Level = "debug"
	}
	return logging.Initialize(opts)
}

// loadConfig loads --config when given, otherwise the nearest
// .weekly/config.yaml, otherwise the defaults.
func loadConfig() (*config.Config, error) {
	if configPath == "" {
		return config.Load(".")
	}
	if _, err := os.Stat(configPath); err != nil {
		return nil, errors.WithHint(
			errors.Wrapf(err, "config file %s", configPath),
			"run `weekly init` to create .weekly/config.yaml",
		)
	}
	return config.LoadFromPath(configPath)
}

// resolveFormat returns the --format value, or def when unset.
func resolveFormat(def output.Format) (output.Format, error) {
	if outputFormat == "" {
		return def, nil
	}
	return output.ParseFormat(outputFormat)
}

// writeResult writes v with the structured formatter for format.
func writeResult(w io.Writer, format output.Format, v interface{}) error {
	formatter, err := output.GetFormatter(format)
	if err != nil {
		return err
	}
	return formatter.FormatToWriter(w, v)
}

// commandContext returns the command's context, which is nil when a run
// function is called directly.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// displayName names a report path in messages.
func displayName(path string) string {
	if path == "-" {
		return "stdin"
	}
	return path
}

// CommandInfo represents a command for agent discovery
type CommandInfo struct {
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Usage       string        `json:"usage"`
	Flags       []FlagInfo    `json:"flags,omitempty"`
	Subcommands []CommandInfo `json:"subcommands,omitempty"`
	Examples    []string      `json:"examples,omitempty"`
}

// FlagInfo represents a command flag for agent discovery
type FlagInfo struct {
	Name        string `json:"name"`
	Shorthand   string `json:"shorthand,omitempty"`
	Description string `json:"description"`
	Type        string `json:"type"`
	Default     string `json:"default,omitempty"`
}

// outputAgentHelp outputs machine-readable JSON describing all commands
func outputAgentHelp(cmd *cobra.Command) {
	root := buildCommandInfo(cmd.Root())

	info := map[string]interface{}{
		"version":      Version,
		"commands":     root.Subcommands,
		"global_flags": root.Flags,
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(info); err != nil {
		logging.Logger.Warnw("writing agent help failed", logging.FieldError, err)
	}
}

// buildCommandInfo recursively builds command information for agent discovery
func buildCommandInfo(cmd *cobra.Command) CommandInfo {
	info := CommandInfo{
		Name:        cmd.Name(),
		Description: cmd.Short,
		Usage:       cmd.UseLine(),
	}

	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		info.Flags = append(info.Flags, FlagInfo{
			Name:        f.Name,
			Shorthand:   f.Shorthand,
			Description: f.Usage,
			Type:        f.Value.Type(),
			Default:     f.DefValue,
		})
	})

	for _, sub := range cmd.Commands() {
		if !sub.Hidden {
			info.Subcommands = append(info.Subcommands, buildCommandInfo(sub))
		}
	}

	if cmd.Example != "" {
		for _, line := range strings.Split(cmd.Example, "\n") {
			if trimmed := strings.TrimSpace(line); trimmed != "" {
				info.Examples = append(info.Examples, trimmed)
			}
		}
	}

	return info
}
