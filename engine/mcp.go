package engine

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/pagecraft/analyze"
	"github.com/hazyhaar/pagecraft/locator"
	"github.com/hazyhaar/pagecraft/preset"
	"github.com/hazyhaar/pagecraft/templates"
	"github.com/hazyhaar/pagecraft/transform"
)

// RegisterMCP exposes the engine surface as MCP tools so an agent can
// drive page customization the same way the UI does.
func (e *Engine) RegisterMCP(srv *mcp.Server) {
	type modeReq struct {
		Mode string `json:"mode" jsonschema:"browse, inspect or select"`
	}
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "pagecraft_set_mode",
		Description: "Switch the page interaction mode",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in modeReq) (*mcp.CallToolResult, map[string]string, error) {
		if err := e.SetMode(ctx, Mode(in.Mode)); err != nil {
			return nil, nil, err
		}
		return nil, map[string]string{"mode": in.Mode}, nil
	})

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "pagecraft_get_selection",
		Description: "Return the locators currently selected on the page",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, map[string]any, error) {
		return nil, map[string]any{"selection": e.Selection(), "hover": e.Hover()}, nil
	})

	type transformReq struct {
		Type       string           `json:"type" jsonschema:"hide, remove, highlight, replace, style or move"`
		Locator    string           `json:"locator"`
		Parameters transform.Params `json:"parameters,omitempty"`
	}
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "pagecraft_apply_transformation",
		Description: "Apply one transformation rule to the current page",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in transformReq) (*mcp.CallToolResult, transform.RuleResult, error) {
		res, err := e.ApplyRule(ctx, transform.Type(in.Type), locator.Locator(in.Locator), in.Parameters)
		if err != nil {
			return nil, transform.RuleResult{}, err
		}
		return nil, res, nil
	})

	type presetReq struct {
		Name string `json:"name" jsonschema:"simplify, clean, focus, readability or mobile-friendly"`
	}
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "pagecraft_apply_preset",
		Description: "Generate and apply a restructuring preset",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in presetReq) (*mcp.CallToolResult, *transform.Report, error) {
		rep, err := e.ApplyPreset(ctx, preset.Name(in.Name))
		if err != nil {
			return nil, nil, err
		}
		return nil, rep, nil
	})

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "pagecraft_analyze",
		Description: "Analyze the current page structure and get improvement suggestions",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, *analyze.Result, error) {
		res, err := e.Analyze(ctx)
		if err != nil {
			return nil, nil, err
		}
		return nil, res, nil
	})

	type saveReq struct {
		Name       string `json:"name"`
		URLPattern string `json:"url_pattern,omitempty" jsonschema:"defaults to the exact current page address"`
	}
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "pagecraft_save_template",
		Description: "Save the session's applied transformations as a reusable template",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in saveReq) (*mcp.CallToolResult, *templates.Template, error) {
		t, err := e.SaveTemplate(ctx, in.Name, in.URLPattern)
		if err != nil {
			return nil, nil, err
		}
		return nil, t, nil
	})

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "pagecraft_list_templates",
		Description: "List saved templates, defaults first",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, map[string]any, error) {
		list, err := e.store.List(ctx)
		if err != nil {
			return nil, nil, err
		}
		return nil, map[string]any{"templates": list}, nil
	})

	type idReq struct {
		ID string `json:"id"`
	}
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "pagecraft_apply_template",
		Description: "Replay a saved template against the current page",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in idReq) (*mcp.CallToolResult, *transform.Report, error) {
		rep, err := e.ApplyTemplate(ctx, in.ID)
		if err != nil {
			return nil, nil, err
		}
		return nil, rep, nil
	})

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "pagecraft_delete_template",
		Description: "Delete a saved template",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in idReq) (*mcp.CallToolResult, map[string]string, error) {
		if err := e.DeleteTemplate(ctx, in.ID); err != nil {
			return nil, nil, err
		}
		return nil, map[string]string{"status": "deleted"}, nil
	})

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "pagecraft_reset",
		Description: "Reload the page, reverting all applied transformations",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, map[string]string, error) {
		if err := e.Reset(ctx); err != nil {
			return nil, nil, err
		}
		return nil, map[string]string{"status": "reloaded"}, nil
	})

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "pagecraft_export_markdown",
		Description: "Export the page's main content as markdown",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, map[string]string, error) {
		md, err := e.ExportMarkdown(ctx)
		if err != nil {
			return nil, nil, err
		}
		return nil, map[string]string{"markdown": md}, nil
	})
}
