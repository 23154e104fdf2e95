// CLAUDE:SUMMARY Registers sintesis MCP tools: run extraction, list/get articles, list images, sections, runs.
package sintesis

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/sintesis/kit"
)

// RegisterMCP registers sintesis tools on an MCP server.
func (s *Service) RegisterMCP(srv *mcp.Server) {
	mw := kit.Chain(kit.Logging(s.logger), kit.Recovery(s.logger))
	s.registerRunTool(srv, mw)
	s.registerListArticlesTool(srv, mw)
	s.registerGetArticleTool(srv, mw)
	s.registerListImagesTool(srv, mw)
	s.registerSectionsTool(srv, mw)
	s.registerRunsTool(srv, mw)
}

// inputSchema builds a JSON Schema object with type "object".
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

var dateProp = map[string]any{"type": "string", "description": "Publication date YYYY-MM-DD"}

// --- run_extraction ---

type runRequest struct {
	Date string `json:"date,omitempty"`
}

func (s *Service) registerRunTool(srv *mcp.Server, mw kit.Middleware) {
	tool := &mcp.Tool{
		Name:        "sintesis_run_extraction",
		Description: "Extract the downloaded digest PDF of a date and replace that date's articles and images. Omit date for today.",
		InputSchema: inputSchema(map[string]any{
			"date": dateProp,
		}, nil),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*runRequest)
		res, err := s.RunExtraction(ctx, r.Date)
		if err != nil {
			return nil, err
		}
		return res, nil
	}

	kit.RegisterMCPTool(srv, tool, mw(endpoint), kit.DecodeJSON[runRequest]())
}

// --- list_articles ---

type listRequest struct {
	Date      string `json:"date"`
	SectionID string `json:"section_id,omitempty"`
	Limit     int    `json:"limit,omitempty"`
}

func listSchema() map[string]any {
	return inputSchema(map[string]any{
		"date":       dateProp,
		"section_id": map[string]any{"type": "string", "description": "Restrict to one section id"},
		"limit":      map[string]any{"type": "integer", "description": "Max rows (default all)"},
	}, []string{"date"})
}

func (s *Service) registerListArticlesTool(srv *mcp.Server, mw kit.Middleware) {
	tool := &mcp.Tool{
		Name:        "sintesis_list_articles",
		Description: "List extracted articles of a date, optionally for one section.",
		InputSchema: listSchema(),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*listRequest)
		arts, err := s.Articles(ctx, Filter{Date: r.Date, SectionID: r.SectionID, Limit: r.Limit})
		if err != nil {
			return nil, err
		}
		if arts == nil {
			arts = []*Article{}
		}
		return map[string]any{"date": r.Date, "count": len(arts), "articles": arts}, nil
	}

	kit.RegisterMCPTool(srv, tool, mw(endpoint), kit.DecodeJSON[listRequest]())
}

// --- get_article ---

type getArticleRequest struct {
	ID string `json:"id"`
}

func (s *Service) registerGetArticleTool(srv *mcp.Server, mw kit.Middleware) {
	tool := &mcp.Tool{
		Name:        "sintesis_get_article",
		Description: "Get one extracted article by id (art_<uuid>).",
		InputSchema: inputSchema(map[string]any{
			"id": map[string]any{"type": "string", "description": "Article id"},
		}, []string{"id"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*getArticleRequest)
		a, err := s.Article(ctx, r.ID)
		if err != nil {
			return nil, err
		}
		if a == nil {
			return nil, fmt.Errorf("sintesis: article %s not found", r.ID)
		}
		return map[string]any{"article": a}, nil
	}

	kit.RegisterMCPTool(srv, tool, mw(endpoint), kit.DecodeJSON[getArticleRequest]())
}

// --- list_images ---

func (s *Service) registerListImagesTool(srv *mcp.Server, mw kit.Middleware) {
	tool := &mcp.Tool{
		Name:        "sintesis_list_images",
		Description: "List page images (front pages, cartoons, columns, placeholders) of a date.",
		InputSchema: listSchema(),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*listRequest)
		imgs, err := s.Images(ctx, Filter{Date: r.Date, SectionID: r.SectionID, Limit: r.Limit})
		if err != nil {
			return nil, err
		}
		if imgs == nil {
			imgs = []*Image{}
		}
		return map[string]any{"date": r.Date, "count": len(imgs), "images": imgs}, nil
	}

	kit.RegisterMCPTool(srv, tool, mw(endpoint), kit.DecodeJSON[listRequest]())
}

// --- sections ---

type sectionsRequest struct{}

func (s *Service) registerSectionsTool(srv *mcp.Server, mw kit.Middleware) {
	tool := &mcp.Tool{
		Name:        "sintesis_sections",
		Description: "Show the configured section table: ids, header keywords, fallback page ranges, strategies.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}

	endpoint := func(_ context.Context, _ any) (any, error) {
		return map[string]any{"sections": s.Sections()}, nil
	}

	kit.RegisterMCPTool(srv, tool, mw(endpoint), kit.DecodeJSON[sectionsRequest]())
}

// --- runs ---

type runsRequest struct {
	Date string `json:"date"`
}

func (s *Service) registerRunsTool(srv *mcp.Server, mw kit.Middleware) {
	tool := &mcp.Tool{
		Name:        "sintesis_runs",
		Description: "List extraction runs of a date with status, counts and recorded errors.",
		InputSchema: inputSchema(map[string]any{
			"date": dateProp,
		}, []string{"date"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*runsRequest)
		runs, err := s.Runs(ctx, r.Date)
		if err != nil {
			return nil, err
		}
		if runs == nil {
			runs = []*Run{}
		}
		counts, err := s.Counts(ctx, r.Date)
		if err != nil {
			return nil, err
		}
		return map[string]any{"date": r.Date, "runs": runs, "counts": counts}, nil
	}

	kit.RegisterMCPTool(srv, tool, mw(endpoint), kit.DecodeJSON[runsRequest]())
}
