// Package mcp provides an MCP (Model Context Protocol) server for weekly.
// This lets AI agents validate, plan and render reports through MCP tools
// instead of CLI commands.
package mcp

import (
	"context"
	"encoding/json"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/harborlight/weekly/internal/document"
	"github.com/harborlight/weekly/internal/input"
	"github.com/harborlight/weekly/internal/logging"
	"github.com/harborlight/weekly/internal/report"
	"github.com/harborlight/weekly/internal/tmpl"
)

// Version is reported to MCP clients.
const Version = "1.0.0"

// Server wraps the MCP server with weekly-specific functionality
type Server struct {
	mcpServer    *server.MCPServer
	builder      *document.Builder
	allowUnknown bool
	tools        map[string]bool
	lastActivity time.Time
	timeout      time.Duration
	done         chan struct{}
	closeOnce    sync.Once
	mu           sync.RWMutex
}

// Config holds server configuration
type Config struct {
	Tools   []string      // Which tools to expose (empty = all)
	Timeout time.Duration // Inactivity timeout (0 = no timeout)

	// AllowUnknown leaves unknown template placeholders in rendered output.
	AllowUnknown bool

	// Now pins the plan clock; nil means the wall clock.
	Now func() time.Time
}

// AllTools lists all available tools
var AllTools = []string{"weekly_validate", "weekly_plan", "weekly_render"}

// New creates a new MCP server for weekly
func New(cfg Config) (*Server, error) {
	mcpServer := server.NewMCPServer(
		"weekly",
		Version,
		server.WithToolCapabilities(false),
	)

	s := &Server{
		mcpServer:    mcpServer,
		builder:      &document.Builder{Planner: report.Planner{Now: cfg.Now}},
		allowUnknown: cfg.AllowUnknown,
		tools:        make(map[string]bool),
		lastActivity: time.Now(),
		timeout:      cfg.Timeout,
		done:         make(chan struct{}),
	}

	toolsToRegister := cfg.Tools
	if len(toolsToRegister) == 0 {
		toolsToRegister = AllTools
	}

	for _, toolName := range toolsToRegister {
		if err := s.registerTool(toolName); err != nil {
			return nil, errors.Wrapf(err, "failed to register tool %s", toolName)
		}
		s.tools[toolName] = true
	}

	return s, nil
}

// registerTool registers a single tool with the MCP server
func (s *Server) registerTool(name string) error {
	switch name {
	case "weekly_validate":
		return s.registerValidateTool()
	case "weekly_plan":
		return s.registerPlanTool()
	case "weekly_render":
		return s.registerRenderTool()
	default:
		return errors.Newf("unknown tool: %s", name)
	}
}

// ServeStdio starts the server using stdio transport
func (s *Server) ServeStdio() error {
	if s.timeout > 0 {
		go s.timeoutChecker()
	}

	return server.ServeStdio(s.mcpServer)
}

// timeoutChecker monitors for inactivity and exits if timeout exceeded
func (s *Server) timeoutChecker() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
		}

		s.mu.RLock()
		elapsed := time.Since(s.lastActivity)
		s.mu.RUnlock()

		if elapsed > s.timeout {
			logging.Logger.Infow("weekly serve: exiting after inactivity", "timeout", s.timeout.String())
			logging.Cleanup()
			os.Exit(0)
		}
	}
}

// Close stops the inactivity checker. It is safe to call more than once.
func (s *Server) Close() error {
	s.closeOnce.Do(func() { close(s.done) })
	return nil
}

// updateActivity updates the last activity timestamp
func (s *Server) updateActivity() {
	s.mu.Lock()
	s.lastActivity = time.Now()
	s.mu.Unlock()
}

// ListTools returns the registered tool names, sorted
func (s *Server) ListTools() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tools := make([]string, 0, len(s.tools))
	for t := range s.tools {
		tools = append(tools, t)
	}
	sort.Strings(tools)
	return tools
}

// ToolSchema describes a tool's name, description, and parameters.
type ToolSchema struct {
	Name        string            `json:"name" yaml:"name"`
	Description string            `json:"description" yaml:"description"`
	Parameters  []ParameterSchema `json:"parameters" yaml:"parameters"`
}

// ParameterSchema describes a single tool parameter.
type ParameterSchema struct {
	Name        string `json:"name" yaml:"name"`
	Type        string `json:"type" yaml:"type"`
	Description string `json:"description" yaml:"description"`
	Required    bool   `json:"required" yaml:"required"`
}

const reportParamDescription = "Weekly report as a JSON or YAML document (a list uses its first element)"

// toolSchemaRegistry holds the schema definitions for all tools.
// These mirror the mcp.NewTool() definitions in the register*Tool() functions.
var toolSchemaRegistry = map[string]ToolSchema{
	"weekly_validate": {
		Name:        "weekly_validate",
		Description: "Check a weekly status report against the business rules. Returns valid and the list of issues.",
		Parameters: []ParameterSchema{
			{Name: "report", Type: "string", Description: reportParamDescription, Required: true},
		},
	},
	"weekly_plan": {
		Name:        "weekly_plan",
		Description: "Validate a report and, if valid, return its render plan: every anchor's Markdown fragment plus provenance.",
		Parameters: []ParameterSchema{
			{Name: "report", Type: "string", Description: reportParamDescription, Required: true},
		},
	},
	"weekly_render": {
		Name:        "weekly_render",
		Description: "Validate a report and render it to Markdown or HTML using the built-in or a supplied template.",
		Parameters: []ParameterSchema{
			{Name: "report", Type: "string", Description: reportParamDescription, Required: true},
			{Name: "format", Type: "string", Description: "Output format: md or html (default: md)"},
			{Name: "template", Type: "string", Description: "Template text with {ANCHOR} or {{ anchor }} placeholders"},
		},
	},
}

// GetToolSchemas returns schemas for all registered tools, sorted by name.
func (s *Server) GetToolSchemas() []ToolSchema {
	schemas := make([]ToolSchema, 0, len(s.tools))
	for _, name := range s.ListTools() {
		if schema, ok := toolSchemaRegistry[name]; ok {
			schemas = append(schemas, schema)
		}
	}
	return schemas
}

// CallTool dispatches a tool call by name with the given arguments.
// Returns the JSON or document result string or an error.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]interface{}) (string, error) {
	s.mu.RLock()
	registered := s.tools[name]
	s.mu.RUnlock()

	if !registered {
		return "", errors.Newf("unknown tool: %s (run 'weekly serve --list-tools' to see available tools)", name)
	}

	doc, _ := args["report"].(string)
	if doc == "" {
		return "", errors.New("report parameter is required")
	}

	switch name {
	case "weekly_validate":
		return s.executeValidate(doc)

	case "weekly_plan":
		return s.executePlan(doc)

	case "weekly_render":
		format, _ := args["format"].(string)
		if format == "" {
			format = "md"
		}
		template, _ := args["template"].(string)
		return s.executeRender(ctx, doc, format, template)

	default:
		return "", errors.Newf("unknown tool: %s", name)
	}
}

// registerValidateTool registers the weekly_validate tool
func (s *Server) registerValidateTool() error {
	tool := mcp.NewTool("weekly_validate",
		mcp.WithDescription(toolSchemaRegistry["weekly_validate"].Description),
		mcp.WithString("report",
			mcp.Required(),
			mcp.Description(reportParamDescription),
		),
	)

	s.mcpServer.AddTool(tool, s.handleValidate)
	return nil
}

// registerPlanTool registers the weekly_plan tool
func (s *Server) registerPlanTool() error {
	tool := mcp.NewTool("weekly_plan",
		mcp.WithDescription(toolSchemaRegistry["weekly_plan"].Description),
		mcp.WithString("report",
			mcp.Required(),
			mcp.Description(reportParamDescription),
		),
	)

	s.mcpServer.AddTool(tool, s.handlePlan)
	return nil
}

// registerRenderTool registers the weekly_render tool
func (s *Server) registerRenderTool() error {
	tool := mcp.NewTool("weekly_render",
		mcp.WithDescription(toolSchemaRegistry["weekly_render"].Description),
		mcp.WithString("report",
			mcp.Required(),
			mcp.Description(reportParamDescription),
		),
		mcp.WithString("format",
			mcp.Description("Output format: md or html (default: md)"),
			mcp.Enum("md", "html"),
		),
		mcp.WithString("template",
			mcp.Description("Template text with {ANCHOR} or {{ anchor }} placeholders"),
		),
	)

	s.mcpServer.AddTool(tool, s.handleRender)
	return nil
}

func (s *Server) handleValidate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.handle(ctx, "weekly_validate", req)
}

func (s *Server) handlePlan(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.handle(ctx, "weekly_plan", req)
}

func (s *Server) handleRender(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.handle(ctx, "weekly_render", req)
}

// handle runs a tool through CallTool; failures become error results so
// the client sees them instead of a protocol error.
func (s *Server) handle(ctx context.Context, name string, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.updateActivity()

	start := time.Now()
	result, err := s.CallTool(ctx, name, req.GetArguments())
	logging.Logger.Debugw("mcp tool call",
		logging.FieldTool, name,
		logging.FieldDurationMS, time.Since(start).Milliseconds(),
		logging.FieldError, err)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(result), nil
}

// planResponse is the weekly_plan result. Plan is omitted for invalid
// reports.
type planResponse struct {
	Validation report.ValidationResult `json:"validation"`
	Plan       *report.RenderPlan      `json:"plan,omitempty"`
}

func (s *Server) executeValidate(doc string) (string, error) {
	r, err := input.Parse([]byte(doc), input.FormatAuto)
	if err != nil {
		return "", err
	}
	return toJSON(report.Validate(r))
}

func (s *Server) executePlan(doc string) (string, error) {
	r, err := input.Parse([]byte(doc), input.FormatAuto)
	if err != nil {
		return "", err
	}

	resp := planResponse{Validation: report.Validate(r)}
	if resp.Validation.Valid {
		resp.Plan = s.builder.Planner.Plan(r)
	}
	return toJSON(resp)
}

func (s *Server) executeRender(ctx context.Context, doc, format, template string) (string, error) {
	r, err := input.Parse([]byte(doc), input.FormatAuto)
	if err != nil {
		return "", err
	}

	f, err := document.ParseFormat(format)
	if err != nil {
		return "", err
	}
	if f == document.FormatPDF {
		return "", errors.New("weekly_render supports md and html; use the CLI for pdf")
	}

	req := document.Request{Format: f, AllowUnknown: s.allowUnknown}
	if template != "" {
		tpl, err := tmpl.Parse(template)
		if err != nil {
			return "", err
		}
		req.Template = tpl
	}

	res, err := s.builder.Build(ctx, r, req)
	var verr *document.ValidationError
	if errors.As(err, &verr) {
		return toJSON(verr.Result)
	}
	if err != nil {
		return "", err
	}
	return string(res.Output), nil
}

// Helper functions

func toJSON(v interface{}) (string, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}
