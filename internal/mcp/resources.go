package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"clickwatch-mcp-server/internal/journal"

	"github.com/mark3labs/mcp-go/mcp"
)

const (
	resourceMIMEJSON = "application/json"
)

func (s *Server) registerAllResources() {
	if s == nil || s.mcpServer == nil {
		return
	}

	s.mcpServer.AddResource(
		mcp.NewResource(
			"clickwatch://about",
			"ClickWatch About",
			mcp.WithMIMEType(resourceMIMEJSON),
			mcp.WithResourceDescription("High-level server info and usage notes."),
		),
		s.handleAboutResource,
	)

	s.mcpServer.AddResource(
		mcp.NewResource(
			"clickwatch://automation/status",
			"Automation Status",
			mcp.WithMIMEType(resourceMIMEJSON),
			mcp.WithResourceDescription("Current schedule state: countdown, counters, selected target."),
		),
		s.handleStatusResource,
	)

	s.mcpServer.AddResourceTemplate(
		mcp.NewResourceTemplate(
			"clickwatch://journal/{predicate}{?limit}",
			"Journal Facts",
			mcp.WithTemplateMIMEType(resourceMIMEJSON),
			mcp.WithTemplateDescription("Read a recent slice of journal facts for one predicate."),
		),
		s.handleJournalResource,
	)
}

func (s *Server) handleAboutResource(_ context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	payload := map[string]interface{}{
		"name":    s.cfg.Server.Name,
		"version": s.cfg.Server.Version,
		"notes": []string{
			"Resources are read-only context endpoints; use tools for actions/mutations.",
			"Typical flow: login-session, scan-page, select-target, test-click, enable-autoclick.",
			"Journal predicates: session_event, scan_event, click_attempt, tick_result, screenshot_taken.",
		},
		"timestamp_ms": time.Now().UnixMilli(),
	}

	return jsonResource(request.Params.URI, payload)
}

func (s *Server) handleStatusResource(_ context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return jsonResource(request.Params.URI, s.sched.Status())
}

func (s *Server) handleJournalResource(_ context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	if s.engine == nil {
		return nil, fmt.Errorf("journal engine unavailable")
	}

	predicate := argString(request.Params.Arguments["predicate"])
	if predicate == "" {
		return nil, fmt.Errorf("missing predicate")
	}
	limit := getIntArg(map[string]interface{}{"limit": request.Params.Arguments["limit"]}, "limit", 25)
	if limit <= 0 {
		limit = 25
	}
	if limit > 500 {
		limit = 500
	}

	facts := recentFacts(s.engine, predicate, limit)

	payload := map[string]interface{}{
		"predicate": predicate,
		"limit":     limit,
		"count":     len(facts),
		"facts":     facts,
	}
	return jsonResource(request.Params.URI, payload)
}

// recentFacts returns the newest facts for a predicate in chronological order.
func recentFacts(engine *journal.Engine, predicate string, limit int) []journal.Fact {
	source := engine.FactsByPredicate(predicate)
	if len(source) > limit {
		source = source[len(source)-limit:]
	}
	return source
}

func jsonResource(uri string, payload interface{}) ([]mcp.ResourceContents, error) {
	text, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: resourceMIMEJSON,
			Text:     string(text),
		},
	}, nil
}

func argString(v any) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return value
	case []string:
		if len(value) == 0 {
			return ""
		}
		return value[0]
	default:
		return fmt.Sprintf("%v", value)
	}
}
