package browser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"clickwatch-mcp-server/internal/journal"
)

// Candidate describes one interactive element found by a scan. Candidates
// carry no identity beyond Selector: a rescan may hand the same element a
// different Index, so continuity must key on the selector string.
type Candidate struct {
	Index    int      `json:"index"`
	Text     string   `json:"text"`
	Selector string   `json:"selector"`
	Tag      string   `json:"tag"`
	ID       string   `json:"id,omitempty"`
	Classes  []string `json:"classes,omitempty"`
	Visible  bool     `json:"visible"`
	Enabled  bool     `json:"enabled"`
}

// Target is the operator's pick from a scan. The selector is never
// re-derived; when the page structure drifts and it stops matching, the
// next click attempt fails cleanly instead of guessing.
type Target struct {
	Selector string `json:"selector"`
	Text     string `json:"text"`
}

const maxCandidateText = 80

// rawElement is what the scan script reports per matched node.
type rawElement struct {
	Tag          string   `json:"tag"`
	ID           string   `json:"id"`
	Classes      []string `json:"classes"`
	Text         string   `json:"text"`
	Nth          int      `json:"nth"`
	Visible      bool     `json:"visible"`
	Disabled     bool     `json:"disabled"`
	AriaDisabled bool     `json:"ariaDisabled"`
}

// scanJS enumerates the fixed role set in DOM traversal order and reports
// raw element info. Visibility needs the computed style plus a nonzero
// rendered box; selector derivation happens on the Go side.
const scanJS = `
() => {
	const nodes = document.querySelectorAll('button, a, input[type="submit"], input[type="button"], [role="button"]');
	const out = [];
	nodes.forEach((el) => {
		const style = window.getComputedStyle(el);
		const visible = style.display !== 'none' &&
			style.visibility !== 'hidden' &&
			style.opacity !== '0' &&
			el.offsetWidth > 0 && el.offsetHeight > 0;

		let nth = 1;
		let sib = el;
		while ((sib = sib.previousElementSibling) !== null) {
			if (sib.tagName === el.tagName) nth++;
		}

		out.push({
			tag: el.tagName.toLowerCase(),
			id: el.id || '',
			classes: Array.from(el.classList),
			text: (el.innerText || el.value || '').trim(),
			nth: nth,
			visible: visible,
			disabled: !!el.disabled,
			ariaDisabled: el.getAttribute('aria-disabled') === 'true'
		});
	});
	return out;
}
`

// ScanPage enumerates visible interactive elements on an already navigated
// page. Invisible elements are dropped. Failures come back as the error
// value; nothing is thrown past this boundary.
func ScanPage(ctx context.Context, page Page) ([]Candidate, error) {
	var raw []rawElement
	if err := page.EvalJSON(ctx, scanJS, &raw); err != nil {
		return nil, fmt.Errorf("scan page: %w", err)
	}

	candidates := make([]Candidate, 0, len(raw))
	for i, el := range raw {
		if !el.Visible {
			continue
		}
		candidates = append(candidates, Candidate{
			Index:    i,
			Text:     candidateText(el.Text, i),
			Selector: deriveSelector(el),
			Tag:      el.Tag,
			ID:       el.ID,
			Classes:  el.Classes,
			Visible:  true,
			// An aria-disabled control is as unclickable as a disabled one.
			Enabled: !el.Disabled && !el.AriaDisabled,
		})
	}
	return candidates, nil
}

// candidateText truncates display text and falls back to a placeholder
// naming the element's position in the scan.
func candidateText(text string, ordinal int) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return fmt.Sprintf("Element %d", ordinal+1)
	}
	runes := []rune(text)
	if len(runes) > maxCandidateText {
		return string(runes[:maxCandidateText])
	}
	return text
}

// deriveSelector prefers the element id (unique per DOM rules), then the
// first class token, then position among same-tag siblings. The class and
// positional forms trade uniqueness for stability: they may match several
// elements, and resolving takes the first DOM match.
func deriveSelector(el rawElement) string {
	if el.ID != "" {
		return "#" + escapeCSSIdent(el.ID)
	}
	if len(el.Classes) > 0 && el.Classes[0] != "" {
		return el.Tag + "." + escapeCSSIdent(el.Classes[0])
	}
	nth := el.Nth
	if nth < 1 {
		nth = 1
	}
	return fmt.Sprintf("%s:nth-of-type(%d)", el.Tag, nth)
}

// escapeCSSIdent escapes characters that would otherwise change the meaning
// of a CSS identifier.
func escapeCSSIdent(s string) string {
	var result []rune
	for _, r := range s {
		switch r {
		case '/', '.', ':', '[', ']', '(', ')', '#', '>', '+', '~', '=', '^', '$', '*', '|', '!', '@', '%', '&', '\'', '"', '`', '{', '}', ' ':
			result = append(result, '\\', r)
		default:
			result = append(result, r)
		}
	}
	return string(result)
}

// ScanURL acquires a page from the provider, navigates it to the URL and
// scans it. The scan outcome is journaled.
func ScanURL(ctx context.Context, provider PageProvider, url string, sink JournalSink) ([]Candidate, error) {
	page, release, err := provider.AcquirePage(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire page: %w", err)
	}
	defer release()

	if err := page.Navigate(ctx, url); err != nil {
		recordScan(ctx, sink, url, 0, err)
		return nil, err
	}
	candidates, err := ScanPage(ctx, page)
	recordScan(ctx, sink, url, len(candidates), err)
	return candidates, err
}

func recordScan(ctx context.Context, sink JournalSink, url string, count int, err error) {
	if sink == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = err.Error()
	}
	_ = sink.AddFacts(ctx, []journal.Fact{{
		Predicate: "scan_event",
		Args:      []interface{}{url, count, outcome},
		Timestamp: time.Now(),
	}})
}
