package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"clickwatch-mcp-server/internal/journal"
)

// fakeElement scripts readiness behavior for executor tests.
type fakeElement struct {
	mu         sync.Mutex
	visible    bool
	disabled   bool
	enableAt   time.Time // when set, disabled until this instant
	clickErr   error
	clickCount int
}

func (e *fakeElement) Visible() (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.visible, nil
}

func (e *fakeElement) Disabled() (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.enableAt.IsZero() && time.Now().After(e.enableAt) {
		return false, nil
	}
	return e.disabled, nil
}

func (e *fakeElement) Click() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.clickErr != nil {
		return e.clickErr
	}
	e.clickCount++
	return nil
}

func (e *fakeElement) clicks() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.clickCount
}

// fakePage serves canned scan results and scripted elements.
type fakePage struct {
	mu            sync.Mutex
	navigated     []string
	navErr        error
	evalJSON      string
	evalErr       error
	element       *fakeElement
	resolveErr    error // returned on every resolve when set
	resolveErrors int   // transient resolve failures before success
	currentURL    string
	shot          []byte
	shotErr       error
}

func (p *fakePage) Navigate(_ context.Context, url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.navErr != nil {
		return p.navErr
	}
	p.navigated = append(p.navigated, url)
	p.currentURL = url
	return nil
}

func (p *fakePage) URL() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.currentURL, nil
}

func (p *fakePage) EvalJSON(_ context.Context, _ string, out interface{}) error {
	if p.evalErr != nil {
		return p.evalErr
	}
	return json.Unmarshal([]byte(p.evalJSON), out)
}

func (p *fakePage) Resolve(_ context.Context, selector string) (Element, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.resolveErr != nil {
		return nil, p.resolveErr
	}
	if p.resolveErrors > 0 {
		p.resolveErrors--
		return nil, errors.New("transient resolve failure")
	}
	if p.element == nil {
		return nil, fmt.Errorf("%w: %s", ErrElementNotFound, selector)
	}
	return p.element, nil
}

func (p *fakePage) Screenshot(_ context.Context, _ bool) ([]byte, error) {
	if p.shotErr != nil {
		return nil, p.shotErr
	}
	return p.shot, nil
}

// fakeProvider tracks acquire/release pairing, the invariant temporary
// sessions depend on.
type fakeProvider struct {
	mu       sync.Mutex
	page     *fakePage
	err      error
	acquired int
	released int
}

func (f *fakeProvider) AcquirePage(_ context.Context) (Page, ReleaseFunc, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, nil, f.err
	}
	f.acquired++
	return f.page, func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.released++
	}, nil
}

// fakeSink captures journaled facts.
type fakeSink struct {
	mu    sync.Mutex
	facts []journal.Fact
}

func (s *fakeSink) AddFacts(_ context.Context, facts []journal.Fact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.facts = append(s.facts, facts...)
	return nil
}

func (s *fakeSink) byPredicate(predicate string) []journal.Fact {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]journal.Fact, 0)
	for _, f := range s.facts {
		if f.Predicate == predicate {
			out = append(out, f)
		}
	}
	return out
}
