package browser

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestClickWhenReadyImmediate(t *testing.T) {
	t.Run("clicks disabled element when wait disabled", func(t *testing.T) {
		el := &fakeElement{visible: true, disabled: true}
		provider := &fakeProvider{page: &fakePage{element: el}}

		res := ClickWhenReady(context.Background(), provider, "https://example.com", Target{Selector: "#go"}, ClickOptions{WaitEnabled: false}, nil)
		if !res.Success {
			t.Fatalf("expected success, got %q", res.Message)
		}
		if el.clicks() != 1 {
			t.Errorf("expected 1 click, got %d", el.clicks())
		}
	})

	t.Run("reports missing element", func(t *testing.T) {
		provider := &fakeProvider{page: &fakePage{}}

		res := ClickWhenReady(context.Background(), provider, "https://example.com", Target{Selector: "#gone"}, ClickOptions{WaitEnabled: false}, nil)
		if res.Success {
			t.Fatal("expected failure for missing element")
		}
		if !strings.Contains(res.Message, "element not found") {
			t.Errorf("unexpected message: %q", res.Message)
		}
	})

	t.Run("rejects empty selector without acquiring a page", func(t *testing.T) {
		provider := &fakeProvider{page: &fakePage{}}

		res := ClickWhenReady(context.Background(), provider, "https://example.com", Target{}, ClickOptions{}, nil)
		if res.Success {
			t.Fatal("expected failure")
		}
		if res.Message != "no target selected" {
			t.Errorf("unexpected message: %q", res.Message)
		}
		if provider.acquired != 0 {
			t.Errorf("expected no page acquisition, got %d", provider.acquired)
		}
	})

	t.Run("reports transport failures distinctly from missing elements", func(t *testing.T) {
		provider := &fakeProvider{page: &fakePage{resolveErr: errors.New("cdp connection lost")}}

		res := ClickWhenReady(context.Background(), provider, "https://example.com", Target{Selector: "#go"}, ClickOptions{WaitEnabled: false}, nil)
		if res.Success {
			t.Fatal("expected failure")
		}
		if strings.Contains(res.Message, "element not found") {
			t.Errorf("transport failure reported as missing element: %q", res.Message)
		}
		if !strings.Contains(res.Message, "cdp connection lost") {
			t.Errorf("message drops the underlying error: %q", res.Message)
		}
	})

	t.Run("reports cancellation distinctly", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		provider := &fakeProvider{page: &fakePage{resolveErr: errors.New("context canceled")}}

		res := ClickWhenReady(ctx, provider, "https://example.com", Target{Selector: "#go"}, ClickOptions{WaitEnabled: false}, nil)
		if res.Success {
			t.Fatal("expected failure")
		}
		if !strings.Contains(res.Message, "click aborted") {
			t.Errorf("unexpected message: %q", res.Message)
		}
	})

	t.Run("surfaces click errors as result values", func(t *testing.T) {
		el := &fakeElement{visible: true, clickErr: errors.New("node detached")}
		provider := &fakeProvider{page: &fakePage{element: el}}

		res := ClickWhenReady(context.Background(), provider, "https://example.com", Target{Selector: "#go"}, ClickOptions{WaitEnabled: false}, nil)
		if res.Success {
			t.Fatal("expected failure")
		}
		if !strings.Contains(res.Message, "click failed") {
			t.Errorf("unexpected message: %q", res.Message)
		}
	})
}

func TestClickWhenReadyWaitEnabled(t *testing.T) {
	t.Run("times out on a never enabled element", func(t *testing.T) {
		el := &fakeElement{visible: true, disabled: true}
		provider := &fakeProvider{page: &fakePage{element: el}}
		opts := ClickOptions{WaitEnabled: true, Timeout: 2 * time.Second, PollInterval: 100 * time.Millisecond}

		start := time.Now()
		res := ClickWhenReady(context.Background(), provider, "https://example.com", Target{Selector: "#slow"}, opts, nil)
		elapsed := time.Since(start)

		if res.Success {
			t.Fatal("expected timeout failure")
		}
		if !strings.Contains(res.Message, "element not ready within") {
			t.Errorf("unexpected message: %q", res.Message)
		}
		if elapsed < 2*time.Second || elapsed > 4*time.Second {
			t.Errorf("wait ran %v, want roughly the 2s timeout", elapsed)
		}
		if el.clicks() != 0 {
			t.Errorf("disabled element was clicked %d times", el.clicks())
		}
	})

	t.Run("clicks once the element becomes enabled", func(t *testing.T) {
		el := &fakeElement{visible: true, disabled: true, enableAt: time.Now().Add(150 * time.Millisecond)}
		provider := &fakeProvider{page: &fakePage{element: el}}
		opts := ClickOptions{WaitEnabled: true, Timeout: 2 * time.Second, PollInterval: 25 * time.Millisecond}

		res := ClickWhenReady(context.Background(), provider, "https://example.com", Target{Selector: "#slow", Text: "Submit"}, opts, nil)
		if !res.Success {
			t.Fatalf("expected success, got %q", res.Message)
		}
		if el.clicks() != 1 {
			t.Errorf("expected exactly 1 click, got %d", el.clicks())
		}
		if !strings.Contains(res.Message, "Submit") {
			t.Errorf("message should name the target text: %q", res.Message)
		}
	})

	t.Run("retries past transient resolve errors", func(t *testing.T) {
		el := &fakeElement{visible: true}
		provider := &fakeProvider{page: &fakePage{element: el, resolveErrors: 3}}
		opts := ClickOptions{WaitEnabled: true, Timeout: time.Second, PollInterval: 10 * time.Millisecond}

		res := ClickWhenReady(context.Background(), provider, "https://example.com", Target{Selector: "#flaky"}, opts, nil)
		if !res.Success {
			t.Fatalf("expected success after retries, got %q", res.Message)
		}
	})

	t.Run("honors context cancellation", func(t *testing.T) {
		el := &fakeElement{visible: true, disabled: true}
		provider := &fakeProvider{page: &fakePage{element: el}}
		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			time.Sleep(50 * time.Millisecond)
			cancel()
		}()
		opts := ClickOptions{WaitEnabled: true, Timeout: 10 * time.Second, PollInterval: 10 * time.Millisecond}

		res := ClickWhenReady(ctx, provider, "https://example.com", Target{Selector: "#slow"}, opts, nil)
		if res.Success {
			t.Fatal("expected failure on cancellation")
		}
		if !strings.Contains(res.Message, "wait aborted") {
			t.Errorf("unexpected message: %q", res.Message)
		}
	})
}

func TestClickWhenReadyReleasesPage(t *testing.T) {
	cases := []struct {
		name string
		page *fakePage
	}{
		{"after success", &fakePage{element: &fakeElement{visible: true}}},
		{"after navigation failure", &fakePage{navErr: errors.New("net::ERR_CONNECTION_REFUSED")}},
		{"after missing element", &fakePage{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			provider := &fakeProvider{page: tc.page}
			ClickWhenReady(context.Background(), provider, "https://example.com", Target{Selector: "#go"}, ClickOptions{}, nil)
			if provider.released != provider.acquired {
				t.Errorf("acquired %d pages, released %d", provider.acquired, provider.released)
			}
		})
	}
}

func TestClickWhenReadyJournalsAttempts(t *testing.T) {
	sink := &fakeSink{}
	el := &fakeElement{visible: true}
	provider := &fakeProvider{page: &fakePage{element: el}}

	ClickWhenReady(context.Background(), provider, "https://example.com", Target{Selector: "#go"}, ClickOptions{}, sink)
	ClickWhenReady(context.Background(), provider, "https://example.com", Target{Selector: "#missing"}, ClickOptions{}, sink)

	// second provider has no element
	provider.page.element = nil
	ClickWhenReady(context.Background(), provider, "https://example.com", Target{Selector: "#missing"}, ClickOptions{}, sink)

	attempts := sink.byPredicate("click_attempt")
	if len(attempts) != 3 {
		t.Fatalf("expected 3 click_attempt facts, got %d", len(attempts))
	}
	if attempts[0].Args[1] != true {
		t.Errorf("first attempt should record success, got %v", attempts[0].Args[1])
	}
	if attempts[2].Args[1] != false {
		t.Errorf("third attempt should record failure, got %v", attempts[2].Args[1])
	}
}
