package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/harborlight/weekly/internal/config"
	"github.com/harborlight/weekly/internal/logging"
	"github.com/harborlight/weekly/internal/mcp"
	"github.com/harborlight/weekly/internal/output"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start MCP server for AI agent integration",
	Long: `Start an MCP (Model Context Protocol) server for AI agent integration.

Agents pass report documents (JSON or YAML text) to the tools and get back
validation issues, render plans or rendered Markdown/HTML, without spawning a
CLI process per report. Invalid reports come back as tool results listing the
issues, not as protocol errors.

Available Tools:
  weekly_validate  Check a report against the reporting rules
  weekly_plan      Validate and return the render plan
  weekly_render    Validate and render to Markdown or HTML

Examples:
  weekly serve --mcp                          # Start with all tools
  weekly serve --mcp --tools validate,plan    # Start with specific tools only
  weekly serve --mcp --timeout 30m            # Auto-stop after 30 minutes idle
  weekly serve --status                       # Check if server is running
  weekly serve --stop                         # Stop running server
  weekly serve --list-tools                   # Show available tools`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var (
	serveMCP       bool
	serveTools     string
	serveTimeout   string
	serveStatus    bool
	serveStop      bool
	serveListTools bool
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&serveMCP, "mcp", false, "Start MCP server (stdio transport)")
	serveCmd.Flags().StringVar(&serveTools, "tools", "", "Comma-separated list of tools to expose (default: all)")
	serveCmd.Flags().StringVar(&serveTimeout, "timeout", "30m", "Inactivity timeout (0 for no timeout)")
	serveCmd.Flags().BoolVar(&serveStatus, "status", false, "Check if server is running")
	serveCmd.Flags().BoolVar(&serveStop, "stop", false, "Stop running server")
	serveCmd.Flags().BoolVar(&serveListTools, "list-tools", false, "List available tools")
}

func runServe(cmd *cobra.Command, args []string) error {
	if serveListTools {
		return listTools(cmd)
	}
	if serveStatus {
		return checkServerStatus(cmd)
	}
	if serveStop {
		return stopServer(cmd)
	}

	if !serveMCP {
		return errors.WithHint(
			errors.New("nothing to do"),
			"use --mcp to start the MCP server, or --help for usage",
		)
	}

	timeout, err := parseDuration(serveTimeout)
	if err != nil {
		return errors.Wrap(err, "invalid timeout")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	server, err := mcp.New(mcp.Config{
		Tools:        parseToolList(serveTools),
		Timeout:      timeout,
		AllowUnknown: cfg.Templates.AllowUnknown,
	})
	if err != nil {
		return errors.Wrap(err, "failed to create MCP server")
	}
	defer server.Close()

	if err := writePIDFile(); err != nil {
		logging.Logger.Warnw("could not write PID file", logging.FieldError, err)
	}
	defer removePIDFile()

	// Handle signals for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logging.Logger.Infow("weekly serve: shutting down")
		server.Close()
		removePIDFile()
		logging.Cleanup()
		os.Exit(0)
	}()

	// stdout carries the MCP protocol; status goes to the stderr logger
	logging.Logger.Infow("weekly serve: starting MCP server",
		"tools", server.ListTools(),
		"timeout", timeout.String())

	return server.ServeStdio()
}

// parseToolList splits --tools, allowing the short form (validate ->
// weekly_validate).
func parseToolList(s string) []string {
	var tools []string
	for _, t := range strings.Split(s, ",") {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if !strings.HasPrefix(t, "weekly_") {
			t = "weekly_" + t
		}
		tools = append(tools, t)
	}
	return tools
}

func listTools(cmd *cobra.Command) error {
	server, err := mcp.New(mcp.Config{})
	if err != nil {
		return err
	}
	defer server.Close()

	schemas := server.GetToolSchemas()

	format, err := resolveFormat(output.FormatText)
	if err != nil {
		return err
	}
	if format.IsStructured() {
		return writeResult(cmd.OutOrStdout(), format, schemas)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Available MCP tools:")
	fmt.Fprintln(out)
	for _, s := range schemas {
		fmt.Fprintf(out, "  %-16s %s\n", s.Name, s.Description)
		for _, p := range s.Parameters {
			req := ""
			if p.Required {
				req = " (required)"
			}
			fmt.Fprintf(out, "      %-12s %s%s\n", p.Name, p.Description, req)
		}
	}
	return nil
}

func parseDuration(s string) (time.Duration, error) {
	if s == "0" || s == "" {
		return 0, nil
	}
	return time.ParseDuration(s)
}

func getPIDFilePath() (string, error) {
	configDir, err := config.FindConfigDir(".")
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "serve.pid"), nil
}

func writePIDFile() error {
	pidPath, err := getPIDFilePath()
	if err != nil {
		return err
	}
	return os.WriteFile(pidPath, []byte(strconv.Itoa(os.Getpid())), 0644)
}

func removePIDFile() {
	pidPath, err := getPIDFilePath()
	if err != nil {
		return
	}
	os.Remove(pidPath)
}

// readPID returns the PID recorded by a running server.
func readPID() (int, error) {
	pidPath, err := getPIDFilePath()
	if err != nil {
		return 0, err
	}
	data, err := os.ReadFile(pidPath)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func checkServerStatus(cmd *cobra.Command) error {
	out := cmd.OutOrStdout()

	pid, err := readPID()
	if err != nil {
		fmt.Fprintln(out, "Status: not running")
		return nil
	}

	// On Unix, FindProcess always succeeds, so we need to send signal 0 to check
	process, err := os.FindProcess(pid)
	if err == nil {
		err = process.Signal(syscall.Signal(0))
	}
	if err != nil {
		fmt.Fprintln(out, "Status: not running (stale PID file)")
		removePIDFile()
		return nil
	}

	fmt.Fprintf(out, "Status: running (PID %d)\n", pid)
	return nil
}

func stopServer(cmd *cobra.Command) error {
	out := cmd.OutOrStdout()

	pid, err := readPID()
	if err != nil {
		fmt.Fprintln(out, "No server running")
		return nil
	}

	process, err := os.FindProcess(pid)
	if err == nil {
		err = process.Signal(syscall.SIGTERM)
	}
	if err != nil {
		removePIDFile()
		fmt.Fprintln(out, "Server already stopped")
		return nil
	}

	fmt.Fprintf(out, "Stopped server (PID %d)\n", pid)
	return nil
}
