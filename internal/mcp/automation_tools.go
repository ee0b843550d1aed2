package mcp

import (
	"context"

	"clickwatch-mcp-server/internal/config"
	"clickwatch-mcp-server/internal/scheduler"
)

type EnableAutoclickTool struct {
	sched *scheduler.Scheduler
}

func (t *EnableAutoclickTool) Name() string { return "enable-autoclick" }
func (t *EnableAutoclickTool) Description() string {
	return `Arm the periodic click schedule.

Every interval_seconds the scheduler navigates to the target page and runs
one click attempt against the selected target (or a navigation-only probe
when nothing is selected, which keeps the authenticated session warm).
Failed ticks are reported in automation-status and the schedule keeps
going; the next tick retries.

Bounds: interval 10-3600s, wait timeout 5-120s. Re-enabling while armed
resets the countdown with the new values.

Returns: {success, status}.`
}
func (t *EnableAutoclickTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"interval_seconds": map[string]interface{}{
				"type":        "integer",
				"description": "Seconds between scheduled attempts (10-3600)",
			},
			"wait_timeout_seconds": map[string]interface{}{
				"type":        "integer",
				"description": "Per-attempt readiness wait in seconds (5-120)",
			},
		},
		"required": []string{"interval_seconds", "wait_timeout_seconds"},
	}
}
func (t *EnableAutoclickTool) Execute(_ context.Context, args map[string]interface{}) (interface{}, error) {
	interval := getIntArg(args, "interval_seconds", config.MinIntervalSeconds)
	waitTimeout := getIntArg(args, "wait_timeout_seconds", config.MinWaitTimeoutSeconds)

	if err := t.sched.Enable(interval, waitTimeout); err != nil {
		return nil, err
	}
	return map[string]interface{}{"success": true, "status": t.sched.Status()}, nil
}

type DisableAutoclickTool struct {
	sched *scheduler.Scheduler
}

func (t *DisableAutoclickTool) Name() string { return "disable-autoclick" }
func (t *DisableAutoclickTool) Description() string {
	return `Disarm the periodic click schedule.

The countdown is cleared; the selected target and the browser session are
left untouched so the schedule can be re-armed later without rescanning.

Returns: {success, status}.`
}
func (t *DisableAutoclickTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{},
	}
}
func (t *DisableAutoclickTool) Execute(_ context.Context, _ map[string]interface{}) (interface{}, error) {
	t.sched.Disable()
	return map[string]interface{}{"success": true, "status": t.sched.Status()}, nil
}

type AutomationStatusTool struct {
	sched *scheduler.Scheduler
}

func (t *AutomationStatusTool) Name() string { return "automation-status" }
func (t *AutomationStatusTool) Description() string {
	return `Report the schedule state for display.

Includes the countdown to the next tick, tick and click counters, the last
tick's human-readable result, and the selected target.

Returns: {enabled, interval_seconds, wait_timeout_seconds, next_due_seconds,
ticks, clicks, last_result, target, has_target}.`
}
func (t *AutomationStatusTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{},
	}
}
func (t *AutomationStatusTool) Execute(_ context.Context, _ map[string]interface{}) (interface{}, error) {
	return t.sched.Status(), nil
}
