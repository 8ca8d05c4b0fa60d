package ui

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vanderheijden86/pricescope/pkg/cache"
	"github.com/vanderheijden86/pricescope/pkg/config"
)

// createSampleProjects creates workspaces with hierarchy fixtures.
func createSampleProjects(t *testing.T) []config.Project {
	t.Helper()
	root := t.TempDir()

	projects := []struct {
		name       string
		products   string
		cached     bool
		emptyCache bool
	}{
		{name: "nordics", products: productsFixture, cached: true},
		{name: "baltics", products: productsFixture, emptyCache: true},
		{name: "iberia", products: "{broken"},
	}

	var out []config.Project
	for _, p := range projects {
		dir := filepath.Join(root, p.name)
		ws := config.Workspace{Root: dir}
		if err := os.MkdirAll(ws.StateDir(), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(ws.Dir(), "products.json"), []byte(p.products), 0o644); err != nil {
			t.Fatal(err)
		}
		if p.cached || p.emptyCache {
			store, err := cache.Open(ws.CachePath())
			if err != nil {
				t.Fatal(err)
			}
			if p.cached {
				if err := store.Put(context.Background(), "hierarchy/product", []byte(p.products)); err != nil {
					t.Fatal(err)
				}
			}
			if err := store.Close(); err != nil {
				t.Fatal(err)
			}
		}
		out = append(out, config.Project{Name: p.name, Path: dir})
	}
	return out
}

func TestProjectEntries(t *testing.T) {
	projects := createSampleProjects(t)
	entries := ProjectEntries(projects, projects[1].Path)

	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[0].FavoriteNum != 1 || entries[2].FavoriteNum != 3 {
		t.Errorf("quick-switch keys = %d, %d", entries[0].FavoriteNum, entries[2].FavoriteNum)
	}
	if !entries[1].IsActive || entries[0].IsActive {
		t.Error("only baltics should be active")
	}
	if entries[0].SKUs <= 0 {
		t.Errorf("nordics SKUs = %d", entries[0].SKUs)
	}
	if entries[0].Stores != -1 {
		t.Errorf("missing locations fixture should be -1, got %d", entries[0].Stores)
	}
	if entries[2].SKUs != -1 {
		t.Errorf("broken products fixture should be -1, got %d", entries[2].SKUs)
	}
	if !entries[0].Cached || entries[1].Cached {
		t.Error("only nordics has cached payloads; an empty cache does not count")
	}
}

func TestProjectPickerCursorStartsOnActive(t *testing.T) {
	projects := createSampleProjects(t)
	m := NewProjectPicker(ProjectEntries(projects, projects[2].Path), newTreeTestTheme())

	if m.Cursor() != 2 {
		t.Errorf("cursor = %d, want 2", m.Cursor())
	}
	if m.FilteredCount() != 3 {
		t.Errorf("FilteredCount = %d", m.FilteredCount())
	}
}

func TestProjectPickerNavigationAndEnter(t *testing.T) {
	projects := createSampleProjects(t)
	m := NewProjectPicker(ProjectEntries(projects, ""), newTreeTestTheme())

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("j")})
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("j")})
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("j")})
	if m.Cursor() != 2 {
		t.Errorf("cursor should stop at the end, got %d", m.Cursor())
	}
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("k")})

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	msgs := collectMsgs(cmd)
	if len(msgs) != 1 {
		t.Fatalf("expected one message, got %v", msgs)
	}
	sw, ok := msgs[0].(SwitchProjectMsg)
	if !ok || sw.Project.Name != "baltics" {
		t.Errorf("got %#v", msgs[0])
	}
}

func TestProjectPickerQuickSwitch(t *testing.T) {
	projects := createSampleProjects(t)
	m := NewProjectPicker(ProjectEntries(projects, ""), newTreeTestTheme())

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("3")})
	msgs := collectMsgs(cmd)
	if len(msgs) != 1 || msgs[0].(SwitchProjectMsg).Project.Name != "iberia" {
		t.Errorf("3 should switch to iberia, got %v", msgs)
	}

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("7")})
	if cmd != nil {
		t.Error("unassigned slot should do nothing")
	}
}

func TestProjectPickerFilter(t *testing.T) {
	projects := createSampleProjects(t)
	m := NewProjectPicker(ProjectEntries(projects, ""), newTreeTestTheme())

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("/")})
	if !m.Filtering() {
		t.Fatal("expected filter mode")
	}
	for _, r := range "blt" {
		m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	if m.FilteredCount() != 1 || m.SelectedEntry().Project.Name != "baltics" {
		t.Fatalf("filter should keep baltics only, got %d", m.FilteredCount())
	}

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if m.Filtering() || m.FilteredCount() != 3 {
		t.Error("esc should leave filter mode and restore all entries")
	}

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	msgs := collectMsgs(cmd)
	if len(msgs) != 1 {
		t.Fatalf("second esc should close, got %v", msgs)
	}
	if _, ok := msgs[0].(ProjectPickerClosedMsg); !ok {
		t.Errorf("got %#v", msgs[0])
	}
}

func TestProjectPickerView(t *testing.T) {
	projects := createSampleProjects(t)
	m := NewProjectPicker(ProjectEntries(projects, projects[0].Path), newTreeTestTheme())
	m.SetSize(100, 0)

	out := m.View()
	for _, want := range []string{"Quick Switch", "workspaces(nordics)", "[3]", "1 nordics(", "*", "iberia(?/?)"} {
		if !strings.Contains(out, want) {
			t.Errorf("view missing %q:\n%s", want, out)
		}
	}

	empty := NewProjectPicker(nil, newTreeTestTheme())
	if out := empty.View(); !strings.Contains(out, "No workspaces found") {
		t.Errorf("empty view:\n%s", out)
	}
}

func TestChipText(t *testing.T) {
	e := ProjectEntry{Project: config.Project{Name: "x"}, FavoriteNum: 2, SKUs: 10, Stores: -1, Cached: true}
	if got := chipText(e); got != "2 x(10/?)*" {
		t.Errorf("chipText = %q", got)
	}
}
