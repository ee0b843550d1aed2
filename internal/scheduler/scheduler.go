// Package scheduler drives periodic click attempts. It is a two-state
// machine: Disabled, and Armed with a next-due timestamp. Failed attempts
// never stop the schedule; the next tick retries.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"clickwatch-mcp-server/internal/browser"
	"clickwatch-mcp-server/internal/config"
	"clickwatch-mcp-server/internal/journal"
)

// AttemptFunc runs one scheduled attempt against the selected target.
// target.Selector is empty when no target is selected; implementations then
// run a navigation-only probe to keep the session warm.
type AttemptFunc func(ctx context.Context, target browser.Target, waitTimeout time.Duration) browser.Result

// Status is the operator-facing snapshot of the schedule.
type Status struct {
	Enabled            bool           `json:"enabled"`
	IntervalSeconds    int            `json:"interval_seconds"`
	WaitTimeoutSeconds int            `json:"wait_timeout_seconds"`
	NextDueSeconds     int            `json:"next_due_seconds,omitempty"`
	Ticks              int            `json:"ticks"`
	Clicks             int            `json:"clicks"`
	LastResult         string         `json:"last_result,omitempty"`
	LastTickAt         time.Time      `json:"last_tick_at,omitempty"`
	Target             browser.Target `json:"target,omitempty"`
	HasTarget          bool           `json:"has_target"`
}

// Scheduler owns the schedule state and the selected target.
type Scheduler struct {
	attempt AttemptFunc
	journal browser.JournalSink
	now     func() time.Time

	mu          sync.Mutex
	enabled     bool
	interval    time.Duration
	waitTimeout time.Duration
	nextDue     time.Time
	ticks       int
	clicks      int
	lastResult  string
	lastTickAt  time.Time
	target      browser.Target
	hasTarget   bool
}

func New(cfg config.AutomationConfig, attempt AttemptFunc, sink browser.JournalSink) *Scheduler {
	return &Scheduler{
		attempt:     attempt,
		journal:     sink,
		now:         time.Now,
		interval:    cfg.Interval(),
		waitTimeout: cfg.WaitTimeout(),
	}
}

// SelectTarget pins the element the schedule clicks. The selector is taken
// as-is and never re-derived; if the page drifts away from it, attempts fail
// cleanly until the operator selects again.
func (s *Scheduler) SelectTarget(t browser.Target) error {
	if t.Selector == "" {
		return fmt.Errorf("target selector is empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.target = t
	s.hasTarget = true
	log.Printf("[scheduler] target selected: %s", t.Selector)
	return nil
}

// ClearTarget drops the selected target. The schedule, if armed, degrades
// to navigation-only probes.
func (s *Scheduler) ClearTarget() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.target = browser.Target{}
	s.hasTarget = false
}

// Target returns the current selection.
func (s *Scheduler) Target() (browser.Target, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.target, s.hasTarget
}

// Enable arms the schedule. Bounds are enforced here so a bad operator
// request cannot produce a busy loop or a stuck wait.
func (s *Scheduler) Enable(intervalSeconds, waitTimeoutSeconds int) error {
	if err := config.ValidateInterval(intervalSeconds); err != nil {
		return err
	}
	if err := config.ValidateWaitTimeout(waitTimeoutSeconds); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.interval = time.Duration(intervalSeconds) * time.Second
	s.waitTimeout = time.Duration(waitTimeoutSeconds) * time.Second
	s.nextDue = s.now().Add(s.interval)
	s.enabled = true
	log.Printf("[scheduler] armed: interval=%ds wait_timeout=%ds", intervalSeconds, waitTimeoutSeconds)
	return nil
}

// Disable disarms the schedule and clears the next-due timestamp.
func (s *Scheduler) Disable() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled = false
	s.nextDue = time.Time{}
	log.Printf("[scheduler] disarmed")
}

// Status reports the schedule state, including the countdown to the next
// tick for operator display.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		Enabled:            s.enabled,
		IntervalSeconds:    int(s.interval / time.Second),
		WaitTimeoutSeconds: int(s.waitTimeout / time.Second),
		Ticks:              s.ticks,
		Clicks:             s.clicks,
		LastResult:         s.lastResult,
		LastTickAt:         s.lastTickAt,
		Target:             s.target,
		HasTarget:          s.hasTarget,
	}
	if s.enabled && !s.nextDue.IsZero() {
		remaining := int(s.nextDue.Sub(s.now()) / time.Second)
		if remaining < 0 {
			remaining = 0
		}
		st.NextDueSeconds = remaining
	}
	return st
}

// Run evaluates the schedule once a second until ctx is cancelled. One
// second bounds the tick granularity from below, which keeps the countdown
// responsive without busy-looping.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick runs one scheduled attempt if the schedule is armed and due. The
// next-due timestamp advances by exactly one interval from the tick time
// whether the attempt succeeded or not.
func (s *Scheduler) tick(ctx context.Context) {
	s.mu.Lock()
	tickTime := s.now()
	if !s.enabled || s.nextDue.IsZero() || tickTime.Before(s.nextDue) {
		s.mu.Unlock()
		return
	}
	target := s.target
	if !s.hasTarget {
		target = browser.Target{}
	}
	waitTimeout := s.waitTimeout
	s.nextDue = tickTime.Add(s.interval)
	s.mu.Unlock()

	res := s.attempt(ctx, target, waitTimeout)

	s.mu.Lock()
	s.ticks++
	if res.Success && target.Selector != "" {
		s.clicks++
	}
	s.lastResult = res.Message
	s.lastTickAt = tickTime
	tickNum := s.ticks
	s.mu.Unlock()

	if !res.Success {
		log.Printf("[scheduler] tick %d failed: %s", tickNum, res.Message)
	} else {
		log.Printf("[scheduler] tick %d: %s", tickNum, res.Message)
	}

	if s.journal != nil {
		_ = s.journal.AddFacts(ctx, []journal.Fact{{
			Predicate: "tick_result",
			Args:      []interface{}{tickNum, res.Success, res.Message},
			Timestamp: tickTime,
		}})
	}
}
