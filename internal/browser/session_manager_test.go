package browser

import (
	"context"
	"errors"
	"runtime"
	"strings"
	"testing"
	"time"

	"clickwatch-mcp-server/internal/config"
)

func TestURLChangePredicate(t *testing.T) {
	p := URLChangePredicate("login")

	cases := []struct {
		name    string
		initial string
		current string
		want    bool
	}{
		{"same url", "https://app.example.com/login", "https://app.example.com/login", false},
		{"moved to dashboard", "https://app.example.com/login", "https://app.example.com/dashboard", true},
		{"still on a login path", "https://app.example.com/login", "https://app.example.com/login?error=1", false},
		{"pattern match is case insensitive", "https://app.example.com/Login", "https://app.example.com/LOGIN/retry", false},
		{"redirect to sso login page", "https://app.example.com/login", "https://sso.example.com/login/oauth", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := p(tc.initial, tc.current); got != tc.want {
				t.Errorf("predicate(%q, %q) = %v, want %v", tc.initial, tc.current, got, tc.want)
			}
		})
	}
}

func TestSessionManagerWithoutBrowser(t *testing.T) {
	cfg := config.DefaultConfig()
	m := NewSessionManager(cfg.Browser, cfg.Login, nil)

	t.Run("not live before start", func(t *testing.T) {
		if m.IsLive() {
			t.Error("fresh manager reports live")
		}
	})

	t.Run("status empty before start", func(t *testing.T) {
		if _, ok := m.Status(); ok {
			t.Error("fresh manager reports a session")
		}
	})

	t.Run("navigate fails without session", func(t *testing.T) {
		err := m.Navigate(context.Background(), "https://example.com")
		if err == nil || !strings.Contains(err.Error(), "no live session") {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("close is a no-op without session", func(t *testing.T) {
		if err := m.Close(context.Background()); err != nil {
			t.Errorf("Close: %v", err)
		}
	})

	t.Run("capture login requires a url", func(t *testing.T) {
		empty := config.DefaultConfig()
		empty.Login.URL = ""
		mgr := NewSessionManager(empty.Browser, empty.Login, nil)
		err := mgr.CaptureLogin(context.Background(), "")
		if err == nil || !strings.Contains(err.Error(), "no login URL") {
			t.Errorf("unexpected error: %v", err)
		}
	})
}

func TestAwaitLogin(t *testing.T) {
	pred := URLChangePredicate("login")
	const initial = "https://app.example.com/login"

	t.Run("resolves once the url leaves the login flow", func(t *testing.T) {
		calls := 0
		readURL := func() (string, error) {
			calls++
			if calls < 3 {
				return initial, nil
			}
			return "https://app.example.com/home", nil
		}
		url, err := awaitLogin(context.Background(), initial, readURL, pred, 5*time.Millisecond, time.Second)
		if err != nil {
			t.Fatalf("awaitLogin: %v", err)
		}
		if url != "https://app.example.com/home" {
			t.Errorf("url = %q", url)
		}
	})

	t.Run("times out when the url never changes", func(t *testing.T) {
		readURL := func() (string, error) { return initial, nil }
		_, err := awaitLogin(context.Background(), initial, readURL, pred, 5*time.Millisecond, 40*time.Millisecond)
		if err == nil || !strings.Contains(err.Error(), "login not detected") {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("times out when the page stops answering", func(t *testing.T) {
		readURL := func() (string, error) { return "", errors.New("page closed by operator") }
		start := time.Now()
		_, err := awaitLogin(context.Background(), initial, readURL, pred, 5*time.Millisecond, 40*time.Millisecond)
		elapsed := time.Since(start)
		if err == nil || !strings.Contains(err.Error(), "login not detected") {
			t.Fatalf("unexpected error: %v", err)
		}
		if elapsed > time.Second {
			t.Errorf("wait ran %v past a 40ms deadline", elapsed)
		}
	})

	t.Run("stops on context cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		readURL := func() (string, error) { return initial, nil }
		_, err := awaitLogin(ctx, initial, readURL, pred, 5*time.Millisecond, time.Second)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("unexpected error: %v", err)
		}
	})
}

func TestCaptureLoginNeedsDisplay(t *testing.T) {
	if runtime.GOOS == "windows" || runtime.GOOS == "darwin" {
		t.Skip("display assumed present on this platform")
	}
	t.Setenv("DISPLAY", "")
	t.Setenv("WAYLAND_DISPLAY", "")

	cfg := config.DefaultConfig()
	m := NewSessionManager(cfg.Browser, cfg.Login, nil)
	err := m.CaptureLogin(context.Background(), "https://app.example.com/login")
	if err == nil || !strings.Contains(err.Error(), "display") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestHasDisplay(t *testing.T) {
	if runtime.GOOS == "windows" || runtime.GOOS == "darwin" {
		if !HasDisplay() {
			t.Error("expected display on this platform")
		}
		return
	}

	t.Run("no env vars", func(t *testing.T) {
		t.Setenv("DISPLAY", "")
		t.Setenv("WAYLAND_DISPLAY", "")
		if HasDisplay() {
			t.Error("expected no display")
		}
	})

	t.Run("x11", func(t *testing.T) {
		t.Setenv("DISPLAY", ":0")
		t.Setenv("WAYLAND_DISPLAY", "")
		if !HasDisplay() {
			t.Error("expected display with DISPLAY set")
		}
	})

	t.Run("wayland", func(t *testing.T) {
		t.Setenv("DISPLAY", "")
		t.Setenv("WAYLAND_DISPLAY", "wayland-0")
		if !HasDisplay() {
			t.Error("expected display with WAYLAND_DISPLAY set")
		}
	})
}
