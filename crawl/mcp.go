package crawl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// RegisterMCP registers the crawl tools on an MCP server.
func (svc *Service) RegisterMCP(srv *mcp.Server) {
	svc.registerProductSearch(srv)
	svc.registerProductDetail(srv)
	svc.registerListSites(srv)
	svc.registerTrending(srv)
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

// addTool wires one tool with JSON argument decoding and error-to-result
// mapping. Tool failures are reported in-band, never as protocol errors.
func addTool[Req any](srv *mcp.Server, tool *mcp.Tool, handle func(ctx context.Context, p *Req) (any, error)) {
	srv.AddTool(tool, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var p Req
		if len(req.Params.Arguments) > 0 {
			if err := json.Unmarshal(req.Params.Arguments, &p); err != nil {
				var res mcp.CallToolResult
				res.SetError(fmt.Errorf("invalid arguments: %w", err))
				return &res, nil
			}
		}

		resp, err := handle(ctx, &p)
		if err != nil {
			var res mcp.CallToolResult
			res.SetError(errors.New(err.Error()))
			return &res, nil
		}

		data, err := json.Marshal(resp)
		if err != nil {
			var res mcp.CallToolResult
			res.SetError(fmt.Errorf("marshal: %w", err))
			return &res, nil
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
		}, nil
	})
}

func (svc *Service) registerProductSearch(srv *mcp.Server) {
	type req struct {
		Query    string `json:"query"`
		Identity string `json:"identity"`
	}

	tool := &mcp.Tool{
		Name:        "product_search",
		Description: "Search Bangladeshi tech storefronts for a product and return the cheapest matching listings",
		InputSchema: inputSchema(map[string]any{
			"query":    map[string]any{"type": "string", "description": "Product search text"},
			"identity": map[string]any{"type": "string", "description": "Caller identity used to scope cached searches"},
		}, []string{"query"}),
	}

	addTool(srv, tool, func(ctx context.Context, p *req) (any, error) {
		return svc.RunSearch(ctx, p.Query, p.Identity)
	})
}

func (svc *Service) registerProductDetail(srv *mcp.Server) {
	type req struct {
		Site string `json:"site"`
		URL  string `json:"url"`
	}

	tool := &mcp.Tool{
		Name:        "product_detail",
		Description: "Fetch the full product record (price, stock, overview, description) for a product page URL",
		InputSchema: inputSchema(map[string]any{
			"site": map[string]any{"type": "string", "description": "Site display name, e.g. Startech"},
			"url":  map[string]any{"type": "string", "description": "Product page URL"},
		}, []string{"site", "url"}),
	}

	addTool(srv, tool, func(ctx context.Context, p *req) (any, error) {
		return svc.GetOrRefreshDetail(ctx, p.Site, p.URL)
	})
}

func (svc *Service) registerListSites(srv *mcp.Server) {
	type req struct{}

	tool := &mcp.Tool{
		Name:        "list_sites",
		Description: "List the storefronts this service can crawl",
		InputSchema: inputSchema(map[string]any{}, nil),
	}

	addTool(srv, tool, func(_ context.Context, _ *req) (any, error) {
		return svc.Sites(), nil
	})
}

func (svc *Service) registerTrending(srv *mcp.Server) {
	type req struct {
		Limit int `json:"limit"`
	}

	tool := &mcp.Tool{
		Name:        "trending_searches",
		Description: "List the most-run recent searches with the lowest price seen for each",
		InputSchema: inputSchema(map[string]any{
			"limit": map[string]any{"type": "integer", "description": "Max rows to return (default 8)"},
		}, nil),
	}

	addTool(srv, tool, func(ctx context.Context, p *req) (any, error) {
		return svc.TrendingSearches(ctx, 0, p.Limit)
	})
}
