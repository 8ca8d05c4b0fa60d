// Package ui provides the terminal user interface for pscope.
// This file implements the BackgroundWorker that reloads workspace fixtures
// off the UI thread.
package ui

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vanderheijden86/pricescope/pkg/config"
	pdebug "github.com/vanderheijden86/pricescope/pkg/debug"
	"github.com/vanderheijden86/pricescope/pkg/loader"
	"github.com/vanderheijden86/pricescope/pkg/model"
)

// WorkerState represents the current state of the background worker.
type WorkerState int

const (
	// WorkerIdle means the worker is waiting for file changes.
	WorkerIdle WorkerState = iota
	// WorkerProcessing means the worker is building a new snapshot.
	WorkerProcessing
	// WorkerStopped means the worker has been stopped.
	WorkerStopped
)

// WorkerError wraps errors with phase and retry context.
type WorkerError struct {
	Phase   string    // "read", "parse_products", "parse_locations", "parse_groups"
	Cause   error     // The underlying error
	Time    time.Time // When the error occurred
	Retries int       // Number of consecutive failures
}

func (e WorkerError) Error() string {
	return fmt.Sprintf("%s failed: %v (retries: %d)", e.Phase, e.Cause, e.Retries)
}

func (e WorkerError) Unwrap() error {
	return e.Cause
}

// FixtureSnapshot is one consistent read of the workspace fixtures.
type FixtureSnapshot struct {
	Products  model.Forest
	Locations model.Forest
	Groups    loader.GroupsFile
	DataHash  string
	LoadedAt  time.Time
}

// FixtureFiles are the workspace files the worker watches.
var FixtureFiles = []string{"products.json", "locations.json", "groups.yaml"}

// BackgroundWorker reloads the workspace fixtures when they change. It owns
// the file watcher, coalesces bursts of changes, and skips reloads whose
// content hash matches the last snapshot.
type BackgroundWorker struct {
	// Configuration
	workspace     config.Workspace
	debounceDelay time.Duration

	// State
	mu       sync.RWMutex
	state    WorkerState
	dirty    bool // True if a change came in while processing
	snapshot *FixtureSnapshot
	started  bool
	lastHash string

	// Error tracking
	lastError  *WorkerError
	errorCount int

	// Components
	watcher *loader.Watcher
	program *tea.Program

	done chan struct{}
	stop chan struct{}
}

// WorkerConfig configures the BackgroundWorker.
type WorkerConfig struct {
	Workspace     config.Workspace
	DebounceDelay time.Duration
	ForcePoll     bool
	Program       *tea.Program
}

// NewBackgroundWorker creates a new background worker. Without an existing
// workspace directory it never watches anything.
func NewBackgroundWorker(cfg WorkerConfig) (*BackgroundWorker, error) {
	if cfg.DebounceDelay == 0 {
		cfg.DebounceDelay = 200 * time.Millisecond
	}

	w := &BackgroundWorker{
		workspace:     cfg.Workspace,
		debounceDelay: cfg.DebounceDelay,
		program:       cfg.Program,
		state:         WorkerIdle,
		done:          make(chan struct{}),
		stop:          make(chan struct{}),
	}

	if cfg.Workspace.Root != "" && cfg.Workspace.Exists() {
		fw, err := loader.NewWatcher(cfg.Workspace.Dir(), FixtureFiles,
			loader.WithDebounceDuration(cfg.DebounceDelay),
			loader.WithForcePoll(cfg.ForcePoll),
			loader.WithPollInterval(cfg.DebounceDelay),
		)
		if err != nil {
			return nil, err
		}
		w.watcher = fw
	}

	return w, nil
}

// SetProgram sets the program that receives snapshot messages. It must be
// called before Start.
func (w *BackgroundWorker) SetProgram(p *tea.Program) {
	w.mu.Lock()
	w.program = p
	w.mu.Unlock()
}

// Start begins watching for file changes and processing in the background.
// Start is idempotent - calling it multiple times has no effect.
func (w *BackgroundWorker) Start() error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return nil
	}
	w.started = true
	w.mu.Unlock()

	if w.watcher != nil {
		if err := w.watcher.Start(); err != nil {
			return err
		}
		go w.processLoop()
	} else {
		// No watcher - close done channel immediately so Stop() doesn't block
		close(w.done)
	}

	return nil
}

// Stop halts the background worker and cleans up resources.
// Stop is idempotent - calling it multiple times has no effect.
func (w *BackgroundWorker) Stop() {
	w.mu.Lock()
	if w.state == WorkerStopped {
		w.mu.Unlock()
		return
	}
	w.state = WorkerStopped
	wasStarted := w.started
	w.mu.Unlock()

	close(w.stop)
	if w.watcher != nil {
		w.watcher.Stop()
	}

	if wasStarted {
		select {
		case <-w.done:
		case <-time.After(2 * time.Second):
		}
	}
}

// TriggerRefresh requests a reload. A request that arrives while a reload is
// running is coalesced into one follow-up run.
func (w *BackgroundWorker) TriggerRefresh() {
	w.mu.Lock()
	if w.state == WorkerStopped {
		w.mu.Unlock()
		return
	}
	if w.state == WorkerProcessing {
		w.dirty = true
		w.mu.Unlock()
		return
	}
	w.mu.Unlock()

	go w.process()
}

// GetSnapshot returns the current snapshot (may be nil).
func (w *BackgroundWorker) GetSnapshot() *FixtureSnapshot {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.snapshot
}

// State returns the current worker state.
func (w *BackgroundWorker) State() WorkerState {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.state
}

func (w *BackgroundWorker) processLoop() {
	defer close(w.done)

	for {
		select {
		case <-w.stop:
			return
		case <-w.watcher.Changed():
			w.process()
		}
	}
}

// process builds a new snapshot from the current files.
func (w *BackgroundWorker) process() {
	w.mu.Lock()
	if w.state != WorkerIdle {
		if w.state == WorkerProcessing {
			w.dirty = true
		}
		w.mu.Unlock()
		return
	}
	w.state = WorkerProcessing
	w.dirty = false
	w.mu.Unlock()

	// nil when content is unchanged or loading failed
	snapshot := w.buildSnapshot()

	w.mu.Lock()
	if w.state == WorkerStopped {
		w.mu.Unlock()
		return
	}
	if snapshot != nil {
		w.snapshot = snapshot
	}
	wasDirty := w.dirty
	w.state = WorkerIdle
	program := w.program
	w.mu.Unlock()

	if program != nil && snapshot != nil {
		program.Send(FixturesReadyMsg{Snapshot: snapshot})
	}

	if wasDirty {
		go w.process()
	}
}

// safeCompute executes fn and recovers from any panics.
// Returns a WorkerError if fn panics or fails, nil otherwise.
func (w *BackgroundWorker) safeCompute(phase string, fn func() error) *WorkerError {
	var result *WorkerError
	func() {
		defer func() {
			if r := recover(); r != nil {
				result = &WorkerError{
					Phase: phase,
					Cause: fmt.Errorf("panic: %v\n%s", r, debug.Stack()),
					Time:  time.Now(),
				}
			}
		}()
		if err := fn(); err != nil {
			result = &WorkerError{
				Phase: phase,
				Cause: err,
				Time:  time.Now(),
			}
		}
	}()
	return result
}

// recordError tracks an error and updates error state.
func (w *BackgroundWorker) recordError(err *WorkerError) {
	w.mu.Lock()
	w.lastError = err
	if err != nil {
		w.errorCount++
		err.Retries = w.errorCount
	} else {
		w.errorCount = 0
	}
	w.mu.Unlock()
}

// LastError returns the most recent error (nil if last operation succeeded).
func (w *BackgroundWorker) LastError() *WorkerError {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.lastError
}

func (w *BackgroundWorker) fail(err *WorkerError) *FixtureSnapshot {
	pdebug.Warn("reload: %v", err)
	w.recordError(err)
	w.mu.RLock()
	program := w.program
	w.mu.RUnlock()
	if program != nil {
		program.Send(FixturesErrorMsg{Err: err, Recoverable: true})
	}
	return nil
}

// buildSnapshot reads and parses the fixtures. Called from the worker
// goroutine, never the UI thread.
func (w *BackgroundWorker) buildSnapshot() *FixtureSnapshot {
	if w.workspace.Root == "" {
		return nil
	}
	start := time.Now()

	raw := make(map[string][]byte, len(FixtureFiles))
	if err := w.safeCompute("read", func() error {
		for _, name := range FixtureFiles {
			data, err := os.ReadFile(filepath.Join(w.workspace.Dir(), name))
			if err != nil && !errors.Is(err, os.ErrNotExist) {
				return err
			}
			raw[name] = data
		}
		return nil
	}); err != nil {
		return w.fail(err)
	}

	hash := ComputeFixtureHash(raw)
	w.mu.RLock()
	lastHash := w.lastHash
	w.mu.RUnlock()
	if hash == lastHash && lastHash != "" {
		pdebug.Log("reload: content unchanged (hash=%s), skipping", hashPrefix(hash))
		w.recordError(nil)
		return nil
	}

	snapshot := &FixtureSnapshot{DataHash: hash, LoadedAt: time.Now()}
	parse := func(phase, name string, fn func([]byte) error) *WorkerError {
		if len(raw[name]) == 0 {
			return nil
		}
		return w.safeCompute(phase, func() error { return fn(raw[name]) })
	}
	if err := parse("parse_products", "products.json", func(b []byte) (err error) {
		snapshot.Products, err = loader.ParseHierarchy(b)
		return err
	}); err != nil {
		return w.fail(err)
	}
	if err := parse("parse_locations", "locations.json", func(b []byte) (err error) {
		snapshot.Locations, err = loader.ParseHierarchy(b)
		return err
	}); err != nil {
		return w.fail(err)
	}
	if err := parse("parse_groups", "groups.yaml", func(b []byte) (err error) {
		snapshot.Groups, err = loader.ParseGroups(b)
		return err
	}); err != nil {
		return w.fail(err)
	}

	w.recordError(nil)
	w.mu.Lock()
	w.lastHash = hash
	w.mu.Unlock()

	pdebug.LogTiming("reload fixtures", time.Since(start))
	return snapshot
}

// ComputeFixtureHash hashes the fixture contents in a fixed file order.
func ComputeFixtureHash(raw map[string][]byte) string {
	h := sha256.New()
	for _, name := range FixtureFiles {
		h.Write([]byte(name))
		h.Write([]byte{0})
		h.Write(raw[name])
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// FixturesReadyMsg is sent to the UI when a new snapshot is ready.
type FixturesReadyMsg struct {
	Snapshot *FixtureSnapshot
}

// FixturesErrorMsg is sent to the UI when reloading fails.
type FixturesErrorMsg struct {
	Err         error
	Recoverable bool // True if we expect to recover on next file change
}

// LastHash returns the content hash from the last successful snapshot build.
func (w *BackgroundWorker) LastHash() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.lastHash
}

// hashPrefix returns up to 16 characters of hash for logging.
func hashPrefix(hash string) string {
	if len(hash) > 16 {
		return hash[:16]
	}
	return hash
}

// ResetHash clears the stored content hash, forcing the next build
// to process even if content is unchanged.
func (w *BackgroundWorker) ResetHash() {
	w.mu.Lock()
	w.lastHash = ""
	w.mu.Unlock()
}
