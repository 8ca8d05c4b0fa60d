package loader

import (
	"context"
	"sync"
	"time"

	"github.com/vanderheijden86/pricescope/pkg/debug"
	"github.com/vanderheijden86/pricescope/pkg/model"
)

// DefaultDebounce is the input quiescence window before a remote search
// request is issued.
const DefaultDebounce = 500 * time.Millisecond

// Debouncer runs the last submitted function once calls stop arriving for
// the configured duration.
type Debouncer struct {
	mu       sync.Mutex
	timer    *time.Timer
	duration time.Duration
}

// NewDebouncer creates a new debouncer with the specified duration
func NewDebouncer(duration time.Duration) *Debouncer {
	return &Debouncer{duration: duration}
}

// Trigger schedules fn, replacing any pending call and restarting the wait.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.duration, fn)
}

// Cancel drops any pending call.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// Immediate cancels any pending call and runs fn now.
func (d *Debouncer) Immediate(fn func()) {
	d.Cancel()
	fn()
}

// RemoteSearch debounces a remote list search and keeps the results of the
// most recently issued request. A response that arrives after a newer one
// has been applied is dropped; in-flight requests are never cancelled.
type RemoteSearch[T any] struct {
	ctx       context.Context
	fetch     func(ctx context.Context, query string) []T
	onResult  func(query string, results []T)
	debouncer *Debouncer

	mu      sync.Mutex
	issued  uint64
	applied uint64
	query   string
	results []T
}

// NewRemoteSearch wires fetch behind a debouncer. onResult, if non-nil, is
// called from the fetching goroutine whenever results are applied.
func NewRemoteSearch[T any](ctx context.Context, wait time.Duration, fetch func(context.Context, string) []T, onResult func(string, []T)) *RemoteSearch[T] {
	if wait <= 0 {
		wait = DefaultDebounce
	}
	return &RemoteSearch[T]{
		ctx:       ctx,
		fetch:     fetch,
		onResult:  onResult,
		debouncer: NewDebouncer(wait),
	}
}

// NewScenarioSearch is a RemoteSearch over the scenario list endpoint.
func NewScenarioSearch(ctx context.Context, c *Client, wait time.Duration, onResult func(string, []model.Scenario)) *RemoteSearch[model.Scenario] {
	return NewRemoteSearch(ctx, wait, c.FetchScenarios, onResult)
}

// Query records a new search string; the request goes out after the quiet
// period.
func (s *RemoteSearch[T]) Query(q string) {
	s.debouncer.Trigger(func() { s.issue(q) })
}

// Flush issues q immediately, skipping the quiet period.
func (s *RemoteSearch[T]) Flush(q string) {
	s.debouncer.Immediate(func() { s.issue(q) })
}

// Stop drops any pending request.
func (s *RemoteSearch[T]) Stop() {
	s.debouncer.Cancel()
}

// Results returns the query and results of the latest applied response.
func (s *RemoteSearch[T]) Results() (string, []T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.query, s.results
}

func (s *RemoteSearch[T]) issue(q string) {
	s.mu.Lock()
	s.issued++
	seq := s.issued
	s.mu.Unlock()

	results := s.fetch(s.ctx, q)

	s.mu.Lock()
	if seq < s.applied {
		s.mu.Unlock()
		debug.Log("remote search: dropping stale response #%d for %q", seq, q)
		return
	}
	s.applied = seq
	s.query = q
	s.results = results
	cb := s.onResult
	s.mu.Unlock()

	if cb != nil {
		cb(q, results)
	}
}
