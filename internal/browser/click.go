package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"clickwatch-mcp-server/internal/journal"
)

// Result is the tagged outcome every automation operation returns. Failures
// ride in here as values so no attempt can take the host process down.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ClickOptions tune one clickWhenReady attempt.
type ClickOptions struct {
	// WaitEnabled polls until the target is visible and enabled before
	// clicking. When false the click fires on first resolve, even against
	// a disabled element; some controls never flip their disabled
	// attribute and this bypass is the only way to hit them.
	WaitEnabled bool
	// Timeout bounds the readiness poll.
	Timeout time.Duration
	// PollInterval is the cadence of readiness checks (default 500ms).
	PollInterval time.Duration
}

func (o ClickOptions) pollInterval() time.Duration {
	if o.PollInterval <= 0 {
		return 500 * time.Millisecond
	}
	return o.PollInterval
}

// ClickWhenReady navigates to url and clicks the target. With WaitEnabled it
// polls until the element is visible and not disabled or the timeout lapses;
// transient poll errors are swallowed and retried, only the timeout ends the
// loop. Without WaitEnabled it resolves once and clicks whatever is there.
func ClickWhenReady(ctx context.Context, provider PageProvider, url string, target Target, opts ClickOptions, sink JournalSink) Result {
	if target.Selector == "" {
		return Result{Success: false, Message: "no target selected"}
	}

	page, release, err := provider.AcquirePage(ctx)
	if err != nil {
		return recordClick(ctx, sink, target, Result{Success: false, Message: fmt.Sprintf("acquire page: %v", err)})
	}
	defer release()

	if err := page.Navigate(ctx, url); err != nil {
		return recordClick(ctx, sink, target, Result{Success: false, Message: fmt.Sprintf("navigation failed: %v", err)})
	}

	if !opts.WaitEnabled {
		return recordClick(ctx, sink, target, clickNow(ctx, page, target))
	}
	return recordClick(ctx, sink, target, clickWhenEnabled(ctx, page, target, opts))
}

// clickNow clicks on first resolve without any readiness check.
func clickNow(ctx context.Context, page Page, target Target) Result {
	el, err := page.Resolve(ctx, target.Selector)
	if err != nil {
		switch {
		case errors.Is(err, ErrElementNotFound):
			return Result{Success: false, Message: fmt.Sprintf("element not found: %s", target.Selector)}
		case ctx.Err() != nil:
			return Result{Success: false, Message: fmt.Sprintf("click aborted: %v", ctx.Err())}
		default:
			return Result{Success: false, Message: fmt.Sprintf("locate %s: %v", target.Selector, err)}
		}
	}
	if err := el.Click(); err != nil {
		return Result{Success: false, Message: fmt.Sprintf("click failed: %v", err)}
	}
	return Result{Success: true, Message: fmt.Sprintf("clicked %s", describeTarget(target))}
}

// clickWhenEnabled polls until the target is visible and enabled, then clicks.
func clickWhenEnabled(ctx context.Context, page Page, target Target, opts ClickOptions) Result {
	deadline := time.Now().Add(opts.Timeout)
	ticker := time.NewTicker(opts.pollInterval())
	defer ticker.Stop()

	for {
		ready, clickErr := tryReadyClick(ctx, page, target)
		if ready {
			if clickErr != nil {
				return Result{Success: false, Message: fmt.Sprintf("click failed: %v", clickErr)}
			}
			return Result{Success: true, Message: fmt.Sprintf("clicked %s", describeTarget(target))}
		}

		if time.Now().After(deadline) {
			return Result{Success: false, Message: fmt.Sprintf("element not ready within %s: %s", opts.Timeout, describeTarget(target))}
		}
		select {
		case <-ctx.Done():
			return Result{Success: false, Message: fmt.Sprintf("wait aborted: %v", ctx.Err())}
		case <-ticker.C:
		}
	}
}

// tryReadyClick reports whether the target was ready this iteration and, if
// it was, the click outcome. Resolve and property errors count as not ready.
func tryReadyClick(ctx context.Context, page Page, target Target) (bool, error) {
	el, err := page.Resolve(ctx, target.Selector)
	if err != nil {
		return false, nil
	}
	visible, err := el.Visible()
	if err != nil || !visible {
		return false, nil
	}
	disabled, err := el.Disabled()
	if err != nil || disabled {
		return false, nil
	}
	return true, el.Click()
}

func describeTarget(t Target) string {
	if t.Text != "" {
		return fmt.Sprintf("%q (%s)", t.Text, t.Selector)
	}
	return t.Selector
}

func recordClick(ctx context.Context, sink JournalSink, target Target, res Result) Result {
	if sink == nil {
		return res
	}
	_ = sink.AddFacts(ctx, []journal.Fact{{
		Predicate: "click_attempt",
		Args:      []interface{}{target.Selector, res.Success, res.Message},
		Timestamp: time.Now(),
	}})
	return res
}
