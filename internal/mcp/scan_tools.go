package mcp

import (
	"context"
	"fmt"

	"clickwatch-mcp-server/internal/browser"
	"clickwatch-mcp-server/internal/config"
	"clickwatch-mcp-server/internal/journal"
	"clickwatch-mcp-server/internal/scheduler"
)

type ScanPageTool struct {
	sessions *browser.SessionManager
	engine   *journal.Engine
	cfg      config.Config
}

func (t *ScanPageTool) Name() string { return "scan-page" }
func (t *ScanPageTool) Description() string {
	return `Enumerate clickable elements on the target page.

Scans buttons, links, submit/button inputs and ARIA button roles; invisible
elements are dropped. Each candidate carries a selector meant to survive
page reloads: the element id when present, else its first class, else a
positional fallback that can drift when sibling order changes.

IMPORTANT: candidate indexes are scan-local. A rescan can renumber the same
element, so pass the SELECTOR (not the index) to select-target.

Returns: {success, url, count, candidates: [{index, text, selector, tag, enabled}]}.`
}
func (t *ScanPageTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"url": map[string]interface{}{
				"type":        "string",
				"description": "Page to scan. Falls back to the configured automation.target_url",
			},
		},
	}
}
func (t *ScanPageTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	url := getStringArg(args, "url")
	if url == "" {
		url = t.cfg.Automation.TargetURL
	}
	if url == "" {
		return nil, fmt.Errorf("url is required (no automation.target_url configured)")
	}

	candidates, err := browser.ScanURL(ctx, t.sessions, url, t.engine)
	if err != nil {
		return map[string]interface{}{"success": false, "message": err.Error()}, nil
	}

	return map[string]interface{}{
		"success":    true,
		"url":        url,
		"count":      len(candidates),
		"candidates": candidates,
	}, nil
}

type SelectTargetTool struct {
	sched *scheduler.Scheduler
}

func (t *SelectTargetTool) Name() string { return "select-target" }
func (t *SelectTargetTool) Description() string {
	return `Pin the element the schedule and test-click will go after.

Takes a selector from a scan-page candidate. The selector is used verbatim
on every later attempt and never re-derived; if the page layout drifts and
it stops matching, attempts fail with "not found" until you scan and select
again.

Returns: {success, target: {selector, text}}.`
}
func (t *SelectTargetTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"selector": map[string]interface{}{
				"type":        "string",
				"description": "CSS selector from a scan-page candidate",
			},
			"text": map[string]interface{}{
				"type":        "string",
				"description": "Display text of the candidate, for status messages",
			},
		},
		"required": []string{"selector"},
	}
}
func (t *SelectTargetTool) Execute(_ context.Context, args map[string]interface{}) (interface{}, error) {
	target := browser.Target{
		Selector: getStringArg(args, "selector"),
		Text:     getStringArg(args, "text"),
	}
	if err := t.sched.SelectTarget(target); err != nil {
		return nil, err
	}
	return map[string]interface{}{"success": true, "target": target}, nil
}
