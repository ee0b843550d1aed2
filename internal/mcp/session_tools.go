package mcp

import (
	"context"
	"fmt"

	"clickwatch-mcp-server/internal/browser"
	"clickwatch-mcp-server/internal/config"
)

type LoginSessionTool struct {
	sessions *browser.SessionManager
}

func (t *LoginSessionTool) Name() string { return "login-session" }
func (t *LoginSessionTool) Description() string {
	return `Open a visible browser at the login page and wait for the operator to log in by hand.

The session stays alive afterwards, so scans, clicks and screenshots reuse
its authentication state. Login is detected heuristically: the page URL
changed and no longer looks like a login page. It is not a validated login.

WHEN TO USE:
- Once at the start of a run, before scanning or arming the schedule
- Again after the target site expired the session

LIMITS:
- Needs a display surface; fails immediately on headless hosts
- Times out (default 180s) if the operator never finishes

Returns: {success, session: {id, url, logged_in}} or {success: false, error}.`
}
func (t *LoginSessionTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"login_url": map[string]interface{}{
				"type":        "string",
				"description": "Login page URL. Falls back to the configured login.url",
			},
		},
	}
}
func (t *LoginSessionTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	loginURL := getStringArg(args, "login_url")

	if err := t.sessions.CaptureLogin(ctx, loginURL); err != nil {
		return errorPayload("login capture failed: %v", err), nil
	}

	sess, _ := t.sessions.Status()
	return map[string]interface{}{"success": true, "session": sess}, nil
}

type BrowserStatusTool struct {
	sessions *browser.SessionManager
}

func (t *BrowserStatusTool) Name() string { return "browser-status" }
func (t *BrowserStatusTool) Description() string {
	return `Report whether the persistent browser session is alive and where it is.

USE THIS FIRST to decide whether login-session is needed. Operations that
need a page fall back to a temporary headless browser when no session is
live, so a dead session degrades performance rather than breaking things.

Returns: {live, session: {id, url, logged_in, created_at}}.`
}
func (t *BrowserStatusTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{},
	}
}
func (t *BrowserStatusTool) Execute(_ context.Context, _ map[string]interface{}) (interface{}, error) {
	sess, live := t.sessions.Status()
	out := map[string]interface{}{"live": live && t.sessions.IsLive()}
	if live {
		out["session"] = sess
	}
	return out, nil
}

type CloseSessionTool struct {
	sessions *browser.SessionManager
}

func (t *CloseSessionTool) Name() string { return "close-session" }
func (t *CloseSessionTool) Description() string {
	return `Tear down the persistent browser session.

Teardown is best-effort: page, browser and the Chrome process are closed
independently and internal state always resets to "no session", so the next
login-session or scan starts clean even if a step failed.

Authentication state lives only in the browser and is lost on close.

Returns: {success, error?}.`
}
func (t *CloseSessionTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{},
	}
}
func (t *CloseSessionTool) Execute(ctx context.Context, _ map[string]interface{}) (interface{}, error) {
	if err := t.sessions.Close(ctx); err != nil {
		// State is already reset; report what failed during teardown.
		return map[string]interface{}{"success": true, "warning": err.Error()}, nil
	}
	return map[string]interface{}{"success": true}, nil
}

type NavigateTool struct {
	sessions *browser.SessionManager
	cfg      config.Config
}

func (t *NavigateTool) Name() string { return "navigate" }
func (t *NavigateTool) Description() string {
	return `Drive the page to a URL and wait for it to settle.

Uses the persistent session when live (preserving cookies), otherwise a
temporary headless browser that is torn down before returning. The settle
criterion ("load" or "idle") comes from browser.settle_mode in config.

Returns: {success, url} or {success: false, message}.`
}
func (t *NavigateTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"url": map[string]interface{}{
				"type":        "string",
				"description": "URL to navigate to",
			},
		},
		"required": []string{"url"},
	}
}
func (t *NavigateTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	url := getStringArg(args, "url")
	if url == "" {
		return nil, fmt.Errorf("url is required")
	}

	page, release, err := t.sessions.AcquirePage(ctx)
	if err != nil {
		return errorPayload("acquire page: %v", err), nil
	}
	defer release()

	if err := page.Navigate(ctx, url); err != nil {
		return map[string]interface{}{"success": false, "message": err.Error()}, nil
	}
	finalURL, _ := page.URL()
	return map[string]interface{}{"success": true, "url": finalURL}, nil
}
