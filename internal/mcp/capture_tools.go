package mcp

import (
	"context"
	"encoding/base64"

	"clickwatch-mcp-server/internal/browser"
	"clickwatch-mcp-server/internal/journal"
)

type ScreenshotTool struct {
	sessions *browser.SessionManager
	engine   *journal.Engine
}

func (t *ScreenshotTool) Name() string { return "screenshot" }
func (t *ScreenshotTool) Description() string {
	return `Capture a PNG of the current page state.

Reuses the persistent session when live; otherwise a temporary headless
browser is created, captured, and fully torn down. Pass a url to navigate
first, or omit it to shoot whatever page the session is on.

The image comes back inline as base64; persisting it is the caller's job.

Returns: {success, bytes, image_base64} or {success: false, message}.`
}
func (t *ScreenshotTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"url": map[string]interface{}{
				"type":        "string",
				"description": "Optional URL to navigate to before capturing",
			},
			"full_page": map[string]interface{}{
				"type":        "boolean",
				"description": "Capture the full scroll height instead of the viewport (default true)",
			},
		},
	}
}
func (t *ScreenshotTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	url := getStringArg(args, "url")
	fullPage := getBoolArg(args, "full_page", true)

	img, err := browser.Screenshot(ctx, t.sessions, url, fullPage, t.engine)
	if err != nil {
		return map[string]interface{}{"success": false, "message": err.Error()}, nil
	}

	return map[string]interface{}{
		"success":      true,
		"bytes":        len(img),
		"image_base64": base64.StdEncoding.EncodeToString(img),
	}, nil
}
