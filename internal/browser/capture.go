package browser

import (
	"context"
	"fmt"
	"time"

	"clickwatch-mcp-server/internal/journal"
)

// Screenshot captures a PNG of the page the provider hands out, optionally
// navigating to url first when one is given. The bytes are returned as-is;
// writing them anywhere is the caller's business. Temporary pages are fully
// released before the call returns.
func Screenshot(ctx context.Context, provider PageProvider, url string, fullPage bool, sink JournalSink) ([]byte, error) {
	page, release, err := provider.AcquirePage(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire page: %w", err)
	}
	defer release()

	if url != "" {
		if err := page.Navigate(ctx, url); err != nil {
			return nil, err
		}
	}

	img, err := page.Screenshot(ctx, fullPage)
	if err != nil {
		return nil, err
	}

	if sink != nil {
		_ = sink.AddFacts(ctx, []journal.Fact{{
			Predicate: "screenshot_taken",
			Args:      []interface{}{url, len(img)},
			Timestamp: time.Now(),
		}})
	}
	return img, nil
}
