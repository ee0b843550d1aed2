package mcp

import (
	"context"
	"fmt"
	"time"

	"clickwatch-mcp-server/internal/browser"
	"clickwatch-mcp-server/internal/config"
	"clickwatch-mcp-server/internal/journal"
	"clickwatch-mcp-server/internal/scheduler"
)

type ClickElementTool struct {
	sessions *browser.SessionManager
	engine   *journal.Engine
	cfg      config.Config
}

func (t *ClickElementTool) Name() string { return "click-element" }
func (t *ClickElementTool) Description() string {
	return `Navigate to a page and click one element by selector.

With wait_enabled=true the target is polled every 500ms until it is both
visible and enabled, then clicked; the poll gives up after timeout_seconds.
With wait_enabled=false the element is clicked on first resolve, even while
its disabled attribute is set. That bypass is deliberate: some pages gate
controls visually without ever flipping the attribute.

All failures come back as {success: false, message}; nothing raises.

Returns: {success, message}.`
}
func (t *ClickElementTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"selector": map[string]interface{}{
				"type":        "string",
				"description": "CSS selector of the element to click",
			},
			"url": map[string]interface{}{
				"type":        "string",
				"description": "Page to operate on. Falls back to the configured automation.target_url",
			},
			"wait_enabled": map[string]interface{}{
				"type":        "boolean",
				"description": "Poll until visible and enabled before clicking (default true)",
			},
			"timeout_seconds": map[string]interface{}{
				"type":        "integer",
				"description": "Readiness poll deadline in seconds (5-120, default from config)",
			},
		},
		"required": []string{"selector"},
	}
}
func (t *ClickElementTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	selector := getStringArg(args, "selector")
	if selector == "" {
		return nil, fmt.Errorf("selector is required")
	}
	url := getStringArg(args, "url")
	if url == "" {
		url = t.cfg.Automation.TargetURL
	}
	if url == "" {
		return nil, fmt.Errorf("url is required (no automation.target_url configured)")
	}

	timeoutSeconds := getIntArg(args, "timeout_seconds", t.cfg.Automation.WaitTimeoutSeconds)
	if err := config.ValidateWaitTimeout(timeoutSeconds); err != nil {
		return nil, err
	}

	res := browser.ClickWhenReady(ctx, t.sessions, url, browser.Target{Selector: selector}, browser.ClickOptions{
		WaitEnabled:  getBoolArg(args, "wait_enabled", true),
		Timeout:      time.Duration(timeoutSeconds) * time.Second,
		PollInterval: t.cfg.Automation.GetPollInterval(),
	}, t.engine)

	return res, nil
}

type TestClickTool struct {
	sessions *browser.SessionManager
	sched    *scheduler.Scheduler
	engine   *journal.Engine
	cfg      config.Config
}

func (t *TestClickTool) Name() string { return "test-click" }
func (t *TestClickTool) Description() string {
	return `Run one click attempt against the currently selected target, outside the schedule.

USE THIS after select-target to verify the selector still resolves before
arming autoclick. Uses the same navigate-poll-click path a scheduled tick
uses, so a passing test-click means ticks will work too.

Returns: {success, message}.`
}
func (t *TestClickTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"wait_enabled": map[string]interface{}{
				"type":        "boolean",
				"description": "Poll until visible and enabled before clicking (default true)",
			},
			"timeout_seconds": map[string]interface{}{
				"type":        "integer",
				"description": "Readiness poll deadline in seconds (5-120, default from config)",
			},
		},
	}
}
func (t *TestClickTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	target, ok := t.sched.Target()
	if !ok {
		return errorPayload("no target selected; run scan-page then select-target first"), nil
	}
	url := t.cfg.Automation.TargetURL
	if url == "" {
		return nil, fmt.Errorf("automation.target_url is not configured")
	}

	timeoutSeconds := getIntArg(args, "timeout_seconds", t.cfg.Automation.WaitTimeoutSeconds)
	if err := config.ValidateWaitTimeout(timeoutSeconds); err != nil {
		return nil, err
	}

	res := browser.ClickWhenReady(ctx, t.sessions, url, target, browser.ClickOptions{
		WaitEnabled:  getBoolArg(args, "wait_enabled", true),
		Timeout:      time.Duration(timeoutSeconds) * time.Second,
		PollInterval: t.cfg.Automation.GetPollInterval(),
	}, t.engine)

	return res, nil
}
