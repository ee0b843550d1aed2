package mcp

import (
	"context"
	"fmt"
	"time"

	"clickwatch-mcp-server/internal/journal"
)

type ReadJournalTool struct {
	engine *journal.Engine
}

func (t *ReadJournalTool) Name() string { return "read-journal" }
func (t *ReadJournalTool) Description() string {
	return `Read raw journal facts, optionally filtered by predicate and time window.

Fact predicates: session_event, scan_event, click_attempt, tick_result,
screenshot_taken. Times are RFC3339; either side of the window may be
omitted.

USE THIS to answer "what happened" questions: did the last tick click,
when was login captured, how many scans came back empty.

Returns: {count, facts: [{predicate, args, timestamp}]}.`
}
func (t *ReadJournalTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"predicate": map[string]interface{}{
				"type":        "string",
				"description": "Filter to one predicate. Omit for the whole buffer",
			},
			"after": map[string]interface{}{
				"type":        "string",
				"description": "RFC3339 lower bound on fact time",
			},
			"before": map[string]interface{}{
				"type":        "string",
				"description": "RFC3339 upper bound on fact time",
			},
		},
	}
}
func (t *ReadJournalTool) Execute(_ context.Context, args map[string]interface{}) (interface{}, error) {
	predicate := getStringArg(args, "predicate")

	var after, before time.Time
	if v := getStringArg(args, "after"); v != "" {
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return nil, fmt.Errorf("invalid after timestamp: %w", err)
		}
		after = parsed
	}
	if v := getStringArg(args, "before"); v != "" {
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return nil, fmt.Errorf("invalid before timestamp: %w", err)
		}
		before = parsed
	}

	var facts []journal.Fact
	switch {
	case predicate != "":
		facts = t.engine.QueryTemporal(predicate, after, before)
	default:
		facts = t.engine.Facts()
	}

	return map[string]interface{}{"count": len(facts), "facts": facts}, nil
}

type QueryJournalTool struct {
	engine *journal.Engine
}

func (t *QueryJournalTool) Name() string { return "query-journal" }
func (t *QueryJournalTool) Description() string {
	return `Run a Mangle goal against the journal, including derived views.

Derived views from the schema: failed_click(Selector, Message),
successful_click(Selector), failed_tick(Tick, Message),
login_captured(SessionId, Url), empty_scan(Url).

EXAMPLE:
query-journal(query: "failed_click(Selector, Message)")

Variables start uppercase and come back bound in each result row.

Returns: {count, results: [{Var: value}]}.`
}
func (t *QueryJournalTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"query": map[string]interface{}{
				"type":        "string",
				"description": "Mangle goal, e.g. failed_click(Selector, Message)",
			},
		},
		"required": []string{"query"},
	}
}
func (t *QueryJournalTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	query := getStringArg(args, "query")
	if query == "" {
		return nil, fmt.Errorf("query is required")
	}

	results, err := t.engine.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"count": len(results), "results": results}, nil
}
