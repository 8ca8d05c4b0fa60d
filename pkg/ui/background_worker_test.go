package ui

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/vanderheijden86/pricescope/pkg/config"
)

const productsFixture = `{
  "root": {"node_id": "P0", "node_name": "All Products", "node_level": "L0"},
  "children": [
    {"node_id": "P1", "node_name": "Fresh", "node_level": "L1", "children": [
      {"node_id": "SKU-1", "node_name": "Milk", "node_level": "SKU"},
      {"node_id": "SKU-2", "node_name": "Cheese", "node_level": "SKU"}
    ]},
    {"node_id": "SKU-3", "node_name": "Dish Soap", "node_level": "SKU"}
  ]
}`

const locationsFixture = `{
  "root": {"node_id": "L0", "node_name": "All Stores", "node_level": "Chain"},
  "children": [
    {"node_id": "S-1", "node_name": "Oslo", "node_level": "Store"},
    {"node_id": "S-2", "node_name": "Bergen", "node_level": "Store"}
  ]
}`

const groupsFixture = `products:
  - {id: 3, name: Summer Ad, type: Ad, items: 12}
locations:
  - {id: 8, name: Flagships, type: Rule, items: 4}
`

// newFixtureWorkspace creates a .pscope directory with the given files.
func newFixtureWorkspace(t *testing.T, files map[string]string) config.Workspace {
	t.Helper()
	ws := config.Workspace{Root: t.TempDir()}
	if err := os.MkdirAll(ws.Dir(), 0o755); err != nil {
		t.Fatal(err)
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(ws.Dir(), name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return ws
}

func allFixtures() map[string]string {
	return map[string]string{
		"products.json":  productsFixture,
		"locations.json": locationsFixture,
		"groups.yaml":    groupsFixture,
	}
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}

func TestBackgroundWorker_NewWithoutWorkspace(t *testing.T) {
	worker, err := NewBackgroundWorker(WorkerConfig{})
	if err != nil {
		t.Fatalf("NewBackgroundWorker failed: %v", err)
	}
	defer worker.Stop()

	if worker.State() != WorkerIdle {
		t.Errorf("Expected idle state, got %v", worker.State())
	}
	if worker.GetSnapshot() != nil {
		t.Error("Expected nil snapshot initially")
	}
	if err := worker.Start(); err != nil {
		t.Fatalf("Start without watcher failed: %v", err)
	}
}

func TestBackgroundWorker_StartStop(t *testing.T) {
	ws := newFixtureWorkspace(t, allFixtures())
	worker, err := NewBackgroundWorker(WorkerConfig{Workspace: ws, DebounceDelay: 50 * time.Millisecond})
	if err != nil {
		t.Fatalf("NewBackgroundWorker failed: %v", err)
	}

	if err := worker.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := worker.Start(); err != nil {
		t.Fatalf("second Start should be a no-op: %v", err)
	}

	worker.Stop()
	worker.Stop() // Should not panic

	if worker.State() != WorkerStopped {
		t.Errorf("Expected stopped state, got %v", worker.State())
	}
	worker.TriggerRefresh()
	if worker.GetSnapshot() != nil {
		t.Error("stopped worker should not build snapshots")
	}
}

func TestBackgroundWorker_BuildSnapshot(t *testing.T) {
	ws := newFixtureWorkspace(t, allFixtures())
	worker, err := NewBackgroundWorker(WorkerConfig{Workspace: ws})
	if err != nil {
		t.Fatal(err)
	}
	defer worker.Stop()

	snap := worker.buildSnapshot()
	if snap == nil {
		t.Fatal("expected snapshot")
	}
	if len(snap.Products) != 1 || snap.Products[0].LeafCount() != 3 {
		t.Errorf("products = %+v", snap.Products)
	}
	if len(snap.Locations) != 1 || len(snap.Locations[0].Children) != 2 {
		t.Errorf("locations = %+v", snap.Locations)
	}
	if len(snap.Groups.Products) != 1 || snap.Groups.Locations[0].Name != "Flagships" {
		t.Errorf("groups = %+v", snap.Groups)
	}
	if worker.LastHash() != snap.DataHash || snap.DataHash == "" {
		t.Errorf("hash not recorded: %q vs %q", worker.LastHash(), snap.DataHash)
	}

	// Unchanged content is deduplicated.
	if again := worker.buildSnapshot(); again != nil {
		t.Error("expected nil snapshot for unchanged content")
	}
	worker.ResetHash()
	if again := worker.buildSnapshot(); again == nil {
		t.Error("expected a rebuild after ResetHash")
	}
}

func TestBackgroundWorker_MissingFilesAreEmpty(t *testing.T) {
	ws := newFixtureWorkspace(t, map[string]string{"products.json": productsFixture})
	worker, err := NewBackgroundWorker(WorkerConfig{Workspace: ws})
	if err != nil {
		t.Fatal(err)
	}
	defer worker.Stop()

	snap := worker.buildSnapshot()
	if snap == nil {
		t.Fatal("expected snapshot")
	}
	if len(snap.Locations) != 0 || len(snap.Groups.Locations) != 0 {
		t.Errorf("missing files should load empty, got %+v", snap)
	}
	if worker.LastError() != nil {
		t.Errorf("unexpected error %v", worker.LastError())
	}
}

func TestBackgroundWorker_ParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		file  string
		body  string
		phase string
	}{
		{"Products", "products.json", "{not json", "parse_products"},
		{"Locations", "locations.json", "[1,", "parse_locations"},
		{"Groups", "groups.yaml", "products:\n  - {id: 1, name: x, type: Promo}\n", "parse_groups"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			files := allFixtures()
			files[tt.file] = tt.body
			worker, err := NewBackgroundWorker(WorkerConfig{Workspace: newFixtureWorkspace(t, files)})
			if err != nil {
				t.Fatal(err)
			}
			defer worker.Stop()

			if snap := worker.buildSnapshot(); snap != nil {
				t.Fatal("expected nil snapshot on parse error")
			}
			werr := worker.LastError()
			if werr == nil || werr.Phase != tt.phase {
				t.Fatalf("LastError = %v, want phase %s", werr, tt.phase)
			}
			if werr.Retries != 1 {
				t.Errorf("Retries = %d, want 1", werr.Retries)
			}
			if worker.LastHash() != "" {
				t.Error("failed build must not record a hash")
			}
		})
	}
}

func TestBackgroundWorker_ErrorClearsOnSuccess(t *testing.T) {
	files := allFixtures()
	files["products.json"] = "{broken"
	ws := newFixtureWorkspace(t, files)
	worker, err := NewBackgroundWorker(WorkerConfig{Workspace: ws})
	if err != nil {
		t.Fatal(err)
	}
	defer worker.Stop()

	worker.buildSnapshot()
	worker.buildSnapshot()
	if worker.LastError() == nil || worker.LastError().Retries != 2 {
		t.Fatalf("expected 2 consecutive failures, got %v", worker.LastError())
	}

	if err := os.WriteFile(ws.HierarchyFixture("product"), []byte(productsFixture), 0o644); err != nil {
		t.Fatal(err)
	}
	if worker.buildSnapshot() == nil {
		t.Fatal("expected snapshot after fix")
	}
	if worker.LastError() != nil {
		t.Errorf("error should clear, got %v", worker.LastError())
	}
}

func TestBackgroundWorker_SafeComputeRecoversPanic(t *testing.T) {
	worker, _ := NewBackgroundWorker(WorkerConfig{})
	werr := worker.safeCompute("boom", func() error { panic("kaboom") })
	if werr == nil || werr.Phase != "boom" {
		t.Fatalf("expected WorkerError, got %v", werr)
	}

	sentinel := errors.New("plain")
	werr = worker.safeCompute("plain", func() error { return sentinel })
	if !errors.Is(werr, sentinel) {
		t.Errorf("errors.Is should see the cause, got %v", werr)
	}
}

func TestBackgroundWorker_TriggerRefresh(t *testing.T) {
	ws := newFixtureWorkspace(t, allFixtures())
	worker, err := NewBackgroundWorker(WorkerConfig{Workspace: ws, DebounceDelay: 50 * time.Millisecond})
	if err != nil {
		t.Fatal(err)
	}
	defer worker.Stop()

	worker.TriggerRefresh()
	if !waitFor(t, 2*time.Second, func() bool { return worker.GetSnapshot() != nil }) {
		t.Fatal("Expected snapshot after refresh")
	}
}

func TestBackgroundWorker_ReloadsOnFileChange(t *testing.T) {
	ws := newFixtureWorkspace(t, allFixtures())
	worker, err := NewBackgroundWorker(WorkerConfig{
		Workspace:     ws,
		DebounceDelay: 30 * time.Millisecond,
		ForcePoll:     true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := worker.Start(); err != nil {
		t.Fatal(err)
	}
	defer worker.Stop()

	updated := `{"root": {"node_id": "L9", "node_name": "Only Store", "node_level": "Store"}}`
	// Make sure mtime or size changes for the poller.
	time.Sleep(50 * time.Millisecond)
	if err := os.WriteFile(ws.HierarchyFixture("location"), []byte(updated), 0o644); err != nil {
		t.Fatal(err)
	}

	ok := waitFor(t, 3*time.Second, func() bool {
		s := worker.GetSnapshot()
		return s != nil && len(s.Locations) == 1 && s.Locations[0].ID == "L9"
	})
	if !ok {
		t.Fatalf("expected reloaded locations, got %+v", worker.GetSnapshot())
	}
}

func TestComputeFixtureHash(t *testing.T) {
	a := ComputeFixtureHash(map[string][]byte{"products.json": []byte("x")})
	b := ComputeFixtureHash(map[string][]byte{"locations.json": []byte("x")})
	if a == b {
		t.Error("same bytes in different files must hash differently")
	}
	if a != ComputeFixtureHash(map[string][]byte{"products.json": []byte("x")}) {
		t.Error("hash must be deterministic")
	}
	if got := hashPrefix(a); len(got) != 16 {
		t.Errorf("hashPrefix len = %d", len(got))
	}
}
