package browser

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	"clickwatch-mcp-server/internal/config"
	"clickwatch-mcp-server/internal/journal"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/google/uuid"
)

// Session describes the public metadata for the persistent browser session.
type Session struct {
	ID         string    `json:"id"`
	URL        string    `json:"url,omitempty"`
	Headless   bool      `json:"headless"`
	LoggedIn   bool      `json:"logged_in"`
	CreatedAt  time.Time `json:"created_at"`
	LastActive time.Time `json:"last_active"`
}

// JournalSink defines the minimal interface we need from the logic layer.
type JournalSink interface {
	AddFacts(ctx context.Context, facts []journal.Fact) error
}

// LoginPredicate decides whether the operator has finished logging in, given
// the URL the login page started at and the page's current URL.
type LoginPredicate func(initialURL, currentURL string) bool

// URLChangePredicate is the default login heuristic: the URL moved away from
// the login page and no longer contains the given pattern. It detects a
// redirect, not a validated session, so a site that keeps the same URL after
// login needs a different predicate.
func URLChangePredicate(pattern string) LoginPredicate {
	return func(initialURL, currentURL string) bool {
		if currentURL == initialURL {
			return false
		}
		return !strings.Contains(strings.ToLower(currentURL), strings.ToLower(pattern))
	}
}

// SessionManager owns the single persistent browser session. At most one
// session is live at a time; operations that need a page go through
// AcquirePage, which reuses the persistent page when live and falls back to
// a temporary browser otherwise.
type SessionManager struct {
	cfg     config.BrowserConfig
	login   config.LoginConfig
	journal JournalSink

	mu        sync.RWMutex
	browser   *rod.Browser
	page      *rod.Page
	launch    *launcher.Launcher
	meta      Session
	predicate LoginPredicate
}

func NewSessionManager(cfg config.BrowserConfig, login config.LoginConfig, sink JournalSink) *SessionManager {
	return &SessionManager{
		cfg:       cfg,
		login:     login,
		journal:   sink,
		predicate: URLChangePredicate(login.GetPattern()),
	}
}

// SetLoginPredicate replaces the login-complete heuristic.
func (m *SessionManager) SetLoginPredicate(p LoginPredicate) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p != nil {
		m.predicate = p
	}
}

// StartOrReuse ensures a live persistent session exists. When one is already
// live this is a no-op, so calling it repeatedly creates exactly one browser.
func (m *SessionManager) StartOrReuse(ctx context.Context, headless bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.aliveLocked() {
		m.meta.LastActive = time.Now()
		return nil
	}
	return m.launchLocked(ctx, headless)
}

// IsLive reports whether the persistent session exists and still answers.
func (m *SessionManager) IsLive() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.aliveLocked()
}

// Status returns a snapshot of the session metadata.
func (m *SessionManager) Status() (Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.browser == nil {
		return Session{}, false
	}
	meta := m.meta
	if info, err := m.page.Info(); err == nil {
		meta.URL = info.URL
	}
	return meta, true
}

// aliveLocked pings the browser to verify the connection is still healthy.
func (m *SessionManager) aliveLocked() bool {
	if m.browser == nil || m.page == nil {
		return false
	}
	if _, err := m.browser.Version(); err != nil {
		return false
	}
	return true
}

func (m *SessionManager) launchLocked(ctx context.Context, headless bool) error {
	// A dead handle may linger after a browser crash; reset before relaunching.
	if m.browser != nil {
		log.Printf("[session] stale browser detected, rebuilding")
		m.teardownLocked()
	}

	launch := launcher.New().Headless(headless).Leakless(true)
	if m.cfg.Bin != "" {
		launch = launch.Bin(m.cfg.Bin)
	}
	controlURL, err := launch.Launch()
	if err != nil {
		return fmt.Errorf("launch chrome: %w", err)
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		launch.Kill()
		return fmt.Errorf("connect to chrome: %w", err)
	}

	page, err := browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		_ = browser.Close()
		launch.Kill()
		return fmt.Errorf("create page: %w", err)
	}

	if err := (proto.EmulationSetDeviceMetricsOverride{
		Width:             m.cfg.GetViewportWidth(),
		Height:            m.cfg.GetViewportHeight(),
		DeviceScaleFactor: 1.0,
		Mobile:            false,
	}).Call(page); err != nil {
		log.Printf("[session] warning: failed to set viewport: %v", err)
	}

	m.browser = browser
	m.page = page
	m.launch = launch
	m.meta = Session{
		ID:         uuid.NewString(),
		Headless:   headless,
		CreatedAt:  time.Now(),
		LastActive: time.Now(),
	}

	log.Printf("[session] browser started (id=%s headless=%v)", m.meta.ID, headless)
	m.emit(ctx, m.meta.ID, "started", fmt.Sprintf("headless=%v", headless))
	return nil
}

// Navigate drives the persistent page to the given URL.
func (m *SessionManager) Navigate(ctx context.Context, url string) error {
	m.mu.RLock()
	page := m.page
	m.mu.RUnlock()
	if page == nil {
		return errors.New("no live session")
	}
	if err := newRodPage(page, m.cfg).Navigate(ctx, url); err != nil {
		return err
	}
	m.mu.Lock()
	m.meta.LastActive = time.Now()
	m.mu.Unlock()
	return nil
}

// CaptureLogin opens a visible browser at the login URL and waits for the
// operator to log in by hand, polling the page URL against the
// login-complete predicate. The session stays live on success so later
// operations inherit its authentication state. Fails fast when the host has
// no display surface to show the browser on.
func (m *SessionManager) CaptureLogin(ctx context.Context, loginURL string) error {
	if loginURL == "" {
		loginURL = m.login.URL
	}
	if loginURL == "" {
		return errors.New("no login URL configured")
	}
	if !HasDisplay() {
		return errors.New("manual login needs a display surface; none detected (set DISPLAY or run locally)")
	}

	if err := m.StartOrReuse(ctx, false); err != nil {
		return fmt.Errorf("start visible session: %w", err)
	}
	if err := m.Navigate(ctx, loginURL); err != nil {
		return fmt.Errorf("open login page: %w", err)
	}

	m.mu.RLock()
	predicate := m.predicate
	m.mu.RUnlock()

	initialURL, err := m.currentURL()
	if err != nil {
		return fmt.Errorf("read login page url: %w", err)
	}

	id := m.sessionID()
	m.emit(ctx, id, "login_wait", loginURL)
	log.Printf("[session] waiting for manual login at %s", loginURL)

	current, err := awaitLogin(ctx, initialURL, m.currentURL, predicate, m.login.GetPollInterval(), m.login.GetTimeout())
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		m.emit(ctx, id, "login_timeout", current)
		return err
	}

	m.mu.Lock()
	m.meta.LoggedIn = true
	m.meta.LastActive = time.Now()
	m.mu.Unlock()
	m.emit(ctx, id, "login_captured", current)
	log.Printf("[session] login detected at %s", current)
	return nil
}

// awaitLogin polls readURL until the predicate accepts the current URL. The
// deadline is checked before each read, so a page that stops answering (the
// operator closed the window mid-login) still times out.
func awaitLogin(ctx context.Context, initialURL string, readURL func() (string, error), predicate LoginPredicate, poll, timeout time.Duration) (string, error) {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	last := initialURL
	for {
		select {
		case <-ctx.Done():
			return last, ctx.Err()
		case <-ticker.C:
			if time.Now().After(deadline) {
				return last, fmt.Errorf("login not detected within %s", timeout)
			}
			current, err := readURL()
			if err != nil {
				// The operator may be mid-navigation; try again next poll.
				continue
			}
			last = current
			if predicate(initialURL, current) {
				return current, nil
			}
		}
	}
}

func (m *SessionManager) sessionID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.meta.ID
}

func (m *SessionManager) currentURL() (string, error) {
	m.mu.RLock()
	page := m.page
	m.mu.RUnlock()
	if page == nil {
		return "", errors.New("no live session")
	}
	info, err := page.Info()
	if err != nil {
		return "", err
	}
	return info.URL, nil
}

// AcquirePage returns the persistent page when the session is live, or a
// fully isolated temporary page otherwise. The release function is a no-op
// for the persistent page and a full teardown for a temporary one.
func (m *SessionManager) AcquirePage(ctx context.Context) (Page, ReleaseFunc, error) {
	m.mu.Lock()
	if m.aliveLocked() {
		m.meta.LastActive = time.Now()
		page := m.page
		m.mu.Unlock()
		return newRodPage(page, m.cfg), func() {}, nil
	}
	m.mu.Unlock()

	launch := launcher.New().Headless(true).Leakless(true)
	if m.cfg.Bin != "" {
		launch = launch.Bin(m.cfg.Bin)
	}
	controlURL, err := launch.Launch()
	if err != nil {
		return nil, nil, fmt.Errorf("launch temporary chrome: %w", err)
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		launch.Kill()
		return nil, nil, fmt.Errorf("connect temporary chrome: %w", err)
	}

	page, err := browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		_ = browser.Close()
		launch.Kill()
		return nil, nil, fmt.Errorf("create temporary page: %w", err)
	}

	release := func() {
		_ = page.Close()
		_ = browser.Close()
		launch.Kill()
	}
	return newRodPage(page, m.cfg), release, nil
}

// Close tears the persistent session down best-effort. Every step is guarded
// independently and internal state always ends up reset to "no session".
func (m *SessionManager) Close(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.browser == nil {
		return nil
	}

	id := m.meta.ID
	var errs []string
	if m.page != nil {
		if err := m.page.Close(); err != nil {
			errs = append(errs, fmt.Sprintf("page: %v", err))
		}
	}
	if err := m.browser.Close(); err != nil {
		errs = append(errs, fmt.Sprintf("browser: %v", err))
	}
	if m.launch != nil {
		m.launch.Kill()
	}
	m.teardownLocked()

	m.emit(ctx, id, "closed", "")
	log.Printf("[session] session %s closed", id)
	if len(errs) > 0 {
		return fmt.Errorf("teardown incomplete: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (m *SessionManager) teardownLocked() {
	m.browser = nil
	m.page = nil
	m.launch = nil
	m.meta = Session{}
}

func (m *SessionManager) emit(ctx context.Context, id, event, detail string) {
	if m.journal == nil {
		return
	}
	_ = m.journal.AddFacts(ctx, []journal.Fact{{
		Predicate: "session_event",
		Args:      []interface{}{id, event, detail},
		Timestamp: time.Now(),
	}})
}

// HasDisplay reports whether the host can show a visible browser window.
func HasDisplay() bool {
	switch runtime.GOOS {
	case "windows", "darwin":
		return true
	default:
		return os.Getenv("DISPLAY") != "" || os.Getenv("WAYLAND_DISPLAY") != ""
	}
}
