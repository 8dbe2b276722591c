package mcp

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/mark3labs/mcp-go/mcp"
)

const validReport = `{
  "metadata": {
    "organization": "Harborlight",
    "team": "Programs",
    "weekStart": "2026-01-06",
    "weekEnd": "2026-01-12",
    "author": "Alice Chen",
    "rag": "Green",
    "sensitivity": "Internal"
  },
  "sections": {
    "accomplishments": ["Completed task"],
    "blockers": [{"title": "Blocker", "impact": "High", "owner": "Alice"}]
  }
}`

const invalidReport = `
metadata:
  organization: Harborlight
  team: Programs
  weekStart: "2026-01-12"
  weekEnd: "2026-01-06"
  author: Alice Chen
  rag: Purple
  sensitivity: Internal
`

func newTestServer(t *testing.T) *Server {
	t.Helper()
	s, err := New(Config{Now: func() time.Time { return time.Date(2026, 1, 12, 0, 0, 0, 0, time.UTC) }})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func TestGetToolSchemas(t *testing.T) {
	expectedTools := []string{"weekly_validate", "weekly_plan", "weekly_render"}

	for _, name := range expectedTools {
		schema, ok := toolSchemaRegistry[name]
		if !ok {
			t.Errorf("toolSchemaRegistry missing tool: %s", name)
			continue
		}
		if schema.Name != name {
			t.Errorf("schema name mismatch: got %q, want %q", schema.Name, name)
		}
		if schema.Description == "" {
			t.Errorf("tool %s has empty description", name)
		}
	}

	if len(toolSchemaRegistry) != len(expectedTools) {
		t.Errorf("toolSchemaRegistry has %d tools, want %d", len(toolSchemaRegistry), len(expectedTools))
	}
}

func TestToolSchemaParameters(t *testing.T) {
	for name, schema := range toolSchemaRegistry {
		found := false
		for _, p := range schema.Parameters {
			if p.Name == "report" {
				found = true
				if !p.Required {
					t.Errorf("tool %s param report should be required", name)
				}
			} else if p.Required {
				t.Errorf("tool %s param %s should be optional", name, p.Name)
			}
		}
		if !found {
			t.Errorf("tool %s missing param report", name)
		}
	}
}

func TestAllToolsMatchesRegistry(t *testing.T) {
	registryNames := make([]string, 0, len(toolSchemaRegistry))
	for name := range toolSchemaRegistry {
		registryNames = append(registryNames, name)
	}
	sort.Strings(registryNames)

	allSorted := make([]string, len(AllTools))
	copy(allSorted, AllTools)
	sort.Strings(allSorted)

	if strings.Join(registryNames, ",") != strings.Join(allSorted, ",") {
		t.Errorf("AllTools %v does not match registry %v", allSorted, registryNames)
	}
}

func TestNew_ToolSelection(t *testing.T) {
	s, err := New(Config{Tools: []string{"weekly_validate"}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := s.ListTools(); len(got) != 1 || got[0] != "weekly_validate" {
		t.Errorf("ListTools() = %v", got)
	}
	if schemas := s.GetToolSchemas(); len(schemas) != 1 {
		t.Errorf("GetToolSchemas() returned %d schemas", len(schemas))
	}
	if _, err := s.CallTool(context.Background(), "weekly_plan", map[string]interface{}{"report": validReport}); err == nil {
		t.Error("expected error for unregistered tool")
	}

	if _, err := New(Config{Tools: []string{"weekly_publish"}}); err == nil {
		t.Error("expected error for unknown tool")
	}
}

func TestCallTool_MissingReport(t *testing.T) {
	s := newTestServer(t)
	if _, err := s.CallTool(context.Background(), "weekly_validate", map[string]interface{}{}); err == nil {
		t.Error("expected error when report is missing")
	}
	if _, err := s.CallTool(context.Background(), "weekly_validate", map[string]interface{}{"report": "{not json"}); err == nil {
		t.Error("expected error for malformed report")
	}
}

func TestCallTool_Validate(t *testing.T) {
	s := newTestServer(t)

	out, err := s.CallTool(context.Background(), "weekly_validate", map[string]interface{}{"report": invalidReport})
	if err != nil {
		t.Fatalf("CallTool: %v", err)
	}

	var result struct {
		Valid  bool     `json:"valid"`
		Issues []string `json:"issues"`
	}
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if result.Valid {
		t.Error("expected invalid report")
	}
	want := []string{"RAG must be Green, Amber, or Red", "weekEnd must be after or equal to weekStart"}
	if strings.Join(result.Issues, "|") != strings.Join(want, "|") {
		t.Errorf("issues = %q, want %q", result.Issues, want)
	}
}

func TestCallTool_Plan(t *testing.T) {
	s := newTestServer(t)

	out, err := s.CallTool(context.Background(), "weekly_plan", map[string]interface{}{"report": validReport})
	if err != nil {
		t.Fatalf("CallTool: %v", err)
	}

	var resp struct {
		Validation struct {
			Valid bool `json:"valid"`
		} `json:"validation"`
		Plan *struct {
			Anchors map[string]string `json:"anchors"`
		} `json:"plan"`
	}
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !resp.Validation.Valid || resp.Plan == nil {
		t.Fatalf("expected a plan for a valid report, got %s", out)
	}
	if len(resp.Plan.Anchors) != 11 {
		t.Errorf("plan has %d anchors, want 11", len(resp.Plan.Anchors))
	}
	if got := resp.Plan.Anchors["ACCOMPLISHMENTS"]; got != "- Completed task" {
		t.Errorf("ACCOMPLISHMENTS = %q", got)
	}

	out, err = s.CallTool(context.Background(), "weekly_plan", map[string]interface{}{"report": invalidReport})
	if err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	if strings.Contains(out, `"plan"`) {
		t.Errorf("invalid report should not produce a plan: %s", out)
	}
}

func TestCallTool_Render(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name     string
		args     map[string]interface{}
		contains string
		wantErr  bool
	}{
		{
			name:     "default markdown",
			args:     map[string]interface{}{"report": validReport},
			contains: "# Weekly Status Report",
		},
		{
			name:     "html",
			args:     map[string]interface{}{"report": validReport, "format": "html"},
			contains: "<li>Completed task</li>",
		},
		{
			name:     "custom template",
			args:     map[string]interface{}{"report": validReport, "template": "Summary: {SUMMARY}"},
			contains: "Summary: Programs team: 1 accomplishments, 1 blockers, status Green.",
		},
		{
			name:     "invalid report returns issues",
			args:     map[string]interface{}{"report": invalidReport},
			contains: "RAG must be Green, Amber, or Red",
		},
		{
			name:    "unknown placeholder",
			args:    map[string]interface{}{"report": validReport, "template": "{BUDGET}"},
			wantErr: true,
		},
		{
			name:    "pdf rejected",
			args:    map[string]interface{}{"report": validReport, "format": "pdf"},
			wantErr: true,
		},
		{
			name:    "unknown format",
			args:    map[string]interface{}{"report": validReport, "format": "docx"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := s.CallTool(context.Background(), "weekly_render", tt.args)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got %q", out)
				}
				return
			}
			if err != nil {
				t.Fatalf("CallTool: %v", err)
			}
			if !strings.Contains(out, tt.contains) {
				t.Errorf("output missing %q:\n%s", tt.contains, out)
			}
		})
	}
}

func TestCallTool_RenderCancelled(t *testing.T) {
	s := newTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.CallTool(ctx, "weekly_render", map[string]interface{}{"report": validReport})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestHandle_ErrorsBecomeToolResults(t *testing.T) {
	s := newTestServer(t)

	var req mcp.CallToolRequest
	req.Params.Name = "weekly_render"
	req.Params.Arguments = map[string]interface{}{"report": validReport, "template": "{BUDGET}"}

	result, err := s.handle(context.Background(), "weekly_render", req)
	if err != nil {
		t.Fatalf("handle returned protocol error: %v", err)
	}
	if !result.IsError {
		t.Error("expected an error result")
	}
}
