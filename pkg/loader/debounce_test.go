package loader

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/vanderheijden86/pricescope/pkg/model"
)

func TestDebouncer_CoalescesBursts(t *testing.T) {
	d := NewDebouncer(30 * time.Millisecond)
	var calls atomic.Int32
	var last atomic.Int32

	for i := 1; i <= 5; i++ {
		i := i
		d.Trigger(func() {
			calls.Add(1)
			last.Store(int32(i))
		})
		time.Sleep(5 * time.Millisecond)
	}
	time.Sleep(100 * time.Millisecond)

	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
	if last.Load() != 5 {
		t.Errorf("ran trigger %d, want the last one", last.Load())
	}
}

func TestDebouncer_Cancel(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	var calls atomic.Int32
	d.Trigger(func() { calls.Add(1) })
	d.Cancel()
	time.Sleep(60 * time.Millisecond)
	if calls.Load() != 0 {
		t.Error("cancelled call ran")
	}

	d.Immediate(func() { calls.Add(1) })
	if calls.Load() != 1 {
		t.Error("Immediate did not run synchronously")
	}
}

func TestRemoteSearch_IssuesLatestQueryAfterQuiet(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	var mu sync.Mutex
	var queries []string
	fetch := func(_ context.Context, q string) []string {
		mu.Lock()
		queries = append(queries, q)
		mu.Unlock()
		return []string{"result:" + q}
	}
	done := make(chan struct{}, 1)
	s := NewRemoteSearch(context.Background(), 30*time.Millisecond, fetch, func(string, []string) {
		done <- struct{}{}
	})

	for _, q := range []string{"h", "ho", "hol"} {
		s.Query(q)
		time.Sleep(5 * time.Millisecond)
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("no result")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(queries) != 1 || queries[0] != "hol" {
		t.Errorf("issued queries = %v, want [hol]", queries)
	}
	q, results := s.Results()
	if q != "hol" || len(results) != 1 || results[0] != "result:hol" {
		t.Errorf("Results() = %q %v", q, results)
	}
}

func TestRemoteSearch_StaleResponseDropped(t *testing.T) {
	release := make(chan struct{})
	fetch := func(_ context.Context, q string) []string {
		if q == "slow" {
			<-release
		}
		return []string{q}
	}
	s := NewRemoteSearch(context.Background(), time.Millisecond, fetch, nil)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.Flush("slow")
	}()
	// Let the slow request get its sequence number first.
	time.Sleep(20 * time.Millisecond)
	s.Flush("fast")

	close(release)
	wg.Wait()

	q, results := s.Results()
	if q != "fast" || results[0] != "fast" {
		t.Errorf("stale response overwrote newer one: %q %v", q, results)
	}
}

func TestNewScenarioSearch(t *testing.T) {
	srv, _ := newTestBackend(t)
	got := make(chan []model.Scenario, 1)
	s := NewScenarioSearch(context.Background(), NewClient(srv.URL), 10*time.Millisecond, func(_ string, r []model.Scenario) {
		got <- r
	})
	defer s.Stop()

	s.Query("q3")
	select {
	case r := <-got:
		if len(r) != 1 || r[0].Name != "Q3 Pricing" {
			t.Errorf("results = %+v", r)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no scenario results")
	}
}
