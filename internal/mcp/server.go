// Package mcp registers the claim-validation tools on an MCP server, so an
// agent can explore the traffic mirror, post claims and drive validation
// through the same orchestrator the HTTP API uses.
package mcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hazyhaar/etsotracker/internal/db"
	"github.com/hazyhaar/etsotracker/internal/sandbox"
	"github.com/hazyhaar/etsotracker/internal/validate"
	"github.com/hazyhaar/etsotracker/pkg/audit"
	"github.com/hazyhaar/pkg/kit"
)

// NewServer creates an MCPServer with all validation tools registered.
func NewServer(database *db.DB, sb *sandbox.Sandbox, orch *validate.Orchestrator, auditLog audit.Logger) *server.MCPServer {
	srv := server.NewMCPServer(
		"etsotracker",
		"0.1.0",
		server.WithToolCapabilities(true),
	)

	registerTestQuery(srv, sb, auditLog)
	registerCreateClaim(srv, database, auditLog)
	registerValidateClaim(srv, orch, auditLog)
	registerBulkValidation(srv, orch, auditLog)
	registerListThemes(srv, database)

	return srv
}

// --- test_query ---

func registerTestQuery(srv *server.MCPServer, sb *sandbox.Sandbox, auditLog audit.Logger) {
	var endpoint kit.Endpoint = func(ctx context.Context, request any) (any, error) {
		r := request.(*testQueryReq)
		return sb.Execute(ctx, r.Query)
	}
	if auditLog != nil {
		endpoint = audit.Middleware(auditLog, "test_query")(endpoint)
	}

	schema, _ := json.Marshal(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]string{"type": "string", "description": "Read-only SELECT statement to dry-run against the traffic mirror"},
		},
		"required": []string{"query"},
	})
	tool := mcp.NewToolWithRawSchema("test_query", "Dry-run a SELECT against the vessel traffic mirror with sandbox limits applied", schema)

	kit.RegisterMCPTool(srv, tool, endpoint, func(req mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		args := req.GetArguments()
		return &kit.MCPDecodeResult{Request: &testQueryReq{Query: stringArg(args, "query")}}, nil
	})
}

type testQueryReq struct {
	Query string `json:"query"`
}

// --- create_claim ---

func registerCreateClaim(srv *server.MCPServer, database *db.DB, auditLog audit.Logger) {
	var endpoint kit.Endpoint = func(ctx context.Context, request any) (any, error) {
		r := request.(*createClaimReq)
		if f := sandbox.CheckQuery(r.ValidationQuery); f != nil {
			return nil, f
		}
		return database.CreateClaim(db.CreateClaimInput{
			ThemeID:         r.ThemeID,
			ClaimText:       r.ClaimText,
			ClaimType:       r.ClaimType,
			VesselFilter:    r.VesselFilter,
			RouteFilter:     r.RouteFilter,
			PeriodFilter:    r.PeriodFilter,
			ValidationQuery: r.ValidationQuery,
			ValidationLogic: r.ValidationLogic,
		})
	}
	if auditLog != nil {
		endpoint = audit.Middleware(auditLog, "create_claim")(endpoint)
	}

	schema, _ := json.Marshal(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"theme_id":         map[string]string{"type": "string", "description": "Owning theme ID"},
			"claim_text":       map[string]string{"type": "string", "description": "The assertion in natural language"},
			"claim_type":       map[string]string{"type": "string", "description": "One of: vessel_movement, route_pattern, port_frequency, transit_time, fuel_consumption, manual"},
			"vessel_filter":    map[string]string{"type": "string", "description": "Optional vessel scope"},
			"route_filter":     map[string]string{"type": "string", "description": "Optional route scope"},
			"period_filter":    map[string]string{"type": "string", "description": "Optional time period scope"},
			"validation_query": map[string]string{"type": "string", "description": "SELECT statement whose rows support the claim"},
			"validation_logic": map[string]string{"type": "string", "description": "How the rows relate to the claim"},
		},
		"required": []string{"theme_id", "claim_text", "validation_query", "validation_logic"},
	})
	tool := mcp.NewToolWithRawSchema("create_claim", "Create a claim with its validation query under a theme", schema)

	kit.RegisterMCPTool(srv, tool, endpoint, func(req mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		args := req.GetArguments()
		return &kit.MCPDecodeResult{Request: &createClaimReq{
			ThemeID:         stringArg(args, "theme_id"),
			ClaimText:       stringArg(args, "claim_text"),
			ClaimType:       stringArg(args, "claim_type"),
			VesselFilter:    stringArg(args, "vessel_filter"),
			RouteFilter:     stringArg(args, "route_filter"),
			PeriodFilter:    stringArg(args, "period_filter"),
			ValidationQuery: stringArg(args, "validation_query"),
			ValidationLogic: stringArg(args, "validation_logic"),
		}}, nil
	})
}

type createClaimReq struct {
	ThemeID         string `json:"theme_id"`
	ClaimText       string `json:"claim_text"`
	ClaimType       string `json:"claim_type"`
	VesselFilter    string `json:"vessel_filter"`
	RouteFilter     string `json:"route_filter"`
	PeriodFilter    string `json:"period_filter"`
	ValidationQuery string `json:"validation_query"`
	ValidationLogic string `json:"validation_logic"`
}

func (r *createClaimReq) AuditSubject() (string, string) { return r.ThemeID, "" }

// --- validate_claim ---

func registerValidateClaim(srv *server.MCPServer, orch *validate.Orchestrator, auditLog audit.Logger) {
	var endpoint kit.Endpoint = func(ctx context.Context, request any) (any, error) {
		r := request.(*validateClaimReq)
		return orch.ValidateClaim(ctx, r.ClaimID)
	}
	if auditLog != nil {
		endpoint = audit.Middleware(auditLog, "validate_claim")(endpoint)
	}

	schema, _ := json.Marshal(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"claim_id": map[string]string{"type": "string", "description": "Claim to validate"},
		},
		"required": []string{"claim_id"},
	})
	tool := mcp.NewToolWithRawSchema("validate_claim", "Run one claim's validation query and write its verdict", schema)

	kit.RegisterMCPTool(srv, tool, endpoint, func(req mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		args := req.GetArguments()
		return &kit.MCPDecodeResult{Request: &validateClaimReq{ClaimID: stringArg(args, "claim_id")}}, nil
	})
}

type validateClaimReq struct {
	ClaimID string `json:"claim_id"`
}

func (r *validateClaimReq) AuditSubject() (string, string) { return "", r.ClaimID }

// --- run_bulk_validation ---

func registerBulkValidation(srv *server.MCPServer, orch *validate.Orchestrator, auditLog audit.Logger) {
	var endpoint kit.Endpoint = func(ctx context.Context, request any) (any, error) {
		return orch.BulkValidate(ctx)
	}
	if auditLog != nil {
		endpoint = audit.Middleware(auditLog, "run_bulk_validation")(endpoint)
	}

	schema, _ := json.Marshal(map[string]any{
		"type":       "object",
		"properties": map[string]any{},
	})
	tool := mcp.NewToolWithRawSchema("run_bulk_validation", "Validate every pending claim across all themes and return the tally", schema)

	kit.RegisterMCPTool(srv, tool, endpoint, func(req mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		return &kit.MCPDecodeResult{Request: &bulkValidationReq{}}, nil
	})
}

type bulkValidationReq struct{}

// --- list_themes ---

func registerListThemes(srv *server.MCPServer, database *db.DB) {
	schema, _ := json.Marshal(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"quarter": map[string]string{"type": "string", "description": "Optional quarter filter, e.g. 2026-Q1"},
		},
	})
	tool := mcp.NewToolWithRawSchema("list_themes", "List research themes with status and confidence, optionally filtered by quarter", schema)

	kit.RegisterMCPTool(srv, tool, func(ctx context.Context, request any) (any, error) {
		r := request.(*listThemesReq)
		return database.ListThemes(r.Quarter)
	}, func(req mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		args := req.GetArguments()
		return &kit.MCPDecodeResult{Request: &listThemesReq{Quarter: stringArg(args, "quarter")}}, nil
	})
}

type listThemesReq struct {
	Quarter string `json:"quarter"`
}

// --- helpers ---

func stringArg(args map[string]any, key string) string {
	v, _ := args[key].(string)
	return v
}
