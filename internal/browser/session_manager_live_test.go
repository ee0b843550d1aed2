package browser

import (
	"context"
	"os"
	"testing"
	"time"

	"clickwatch-mcp-server/internal/config"
)

// Live tests drive a real Chrome. Set SKIP_LIVE_TESTS to skip them on hosts
// without a browser.

func TestSessionManagerLive(t *testing.T) {
	if os.Getenv("SKIP_LIVE_TESTS") != "" {
		t.Skip("Skipping live browser test")
	}

	cfg := config.DefaultConfig()
	m := NewSessionManager(cfg.Browser, cfg.Login, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()
	defer m.Close(context.Background())

	if err := m.StartOrReuse(ctx, true); err != nil {
		t.Fatalf("StartOrReuse: %v", err)
	}
	first, ok := m.Status()
	if !ok {
		t.Fatal("no session after start")
	}

	t.Run("repeated start reuses the same browser", func(t *testing.T) {
		if err := m.StartOrReuse(ctx, true); err != nil {
			t.Fatalf("second StartOrReuse: %v", err)
		}
		second, ok := m.Status()
		if !ok {
			t.Fatal("session vanished")
		}
		if second.ID != first.ID {
			t.Errorf("session ID changed on reuse: %s -> %s", first.ID, second.ID)
		}
	})

	t.Run("acquire page hands out the persistent page", func(t *testing.T) {
		page, release, err := m.AcquirePage(ctx)
		if err != nil {
			t.Fatalf("AcquirePage: %v", err)
		}
		defer release()
		if err := page.Navigate(ctx, "https://example.com"); err != nil {
			t.Fatalf("Navigate: %v", err)
		}
		release()
		if !m.IsLive() {
			t.Error("persistent session died on release")
		}
	})

	t.Run("close resets state", func(t *testing.T) {
		if err := m.Close(ctx); err != nil {
			t.Errorf("Close: %v", err)
		}
		if m.IsLive() {
			t.Error("session still live after close")
		}
		if _, ok := m.Status(); ok {
			t.Error("status still reports a session after close")
		}
	})
}

func TestTemporaryPageTeardownLive(t *testing.T) {
	if os.Getenv("SKIP_LIVE_TESTS") != "" {
		t.Skip("Skipping live browser test")
	}

	cfg := config.DefaultConfig()
	m := NewSessionManager(cfg.Browser, cfg.Login, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	// No persistent session, so the screenshot rides a temporary browser
	// that must be gone afterwards.
	img, err := Screenshot(ctx, m, "https://example.com", true, nil)
	if err != nil {
		t.Fatalf("Screenshot: %v", err)
	}
	if len(img) == 0 {
		t.Error("empty screenshot")
	}
	if m.IsLive() {
		t.Error("temporary session leaked into persistent state")
	}
}
