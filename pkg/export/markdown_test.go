package export

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/vanderheijden86/pricescope/pkg/model"
	"github.com/vanderheijden86/pricescope/pkg/scope"
)

func testSession() *scope.Session {
	products := model.Forest{{
		ID: "P0", Name: "All Products", Level: "L0", Count: model.IntPtr(3),
		Children: []model.TreeNode{
			{ID: "P1", Name: "Fresh | Chilled", Level: "L1", Count: model.IntPtr(2), Children: []model.TreeNode{
				{ID: "SKU-1", Name: "Whole Milk 1L", Level: "SKU"},
				{ID: "SKU-2", Name: "Skim Milk 1L", Level: "SKU"},
			}},
			{ID: "SKU-3", Name: "Dish Soap", Level: "SKU"},
		},
	}}
	locations := model.Forest{{
		ID: "L0", Name: "All Stores", Level: "Chain", Count: model.IntPtr(2),
		Children: []model.TreeNode{
			{ID: "S-1", Name: "Oslo", Level: "Store"},
			{ID: "S-2", Name: "Bergen", Level: "Store"},
		},
	}}
	s := scope.NewSession(nil)
	s.SetHierarchies(products, locations)
	s.SetGroups(nil, []model.Group{{ID: 8, Name: "Flagships", Type: model.GroupTypeRule, Items: 4}})
	return s
}

func TestGenerateSummary(t *testing.T) {
	s := testSession()
	s.SelectScenario(&model.Scenario{ID: 4, Name: "Q3 Pricing"})
	s.Products.ToggleSelection("P1")
	s.Products.ToggleSelection("SKU-3")
	s.Locations.ToggleSelection(model.GroupKey(8))

	now := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	md := GenerateSummary(s, "Scope", now)

	for _, want := range []string{
		"# Scope",
		"- **Scenario**: Q3 Pricing (4)",
		"## Products",
		"| Fresh \\| Chilled | node | L1 | 2 |",
		"| Dish Soap | node | SKU | 1 |",
		"**Total**: 3 SKUs",
		"n_P0 --> n_P1",
		"n_P0 --> n_SKU_3",
		"## Locations",
		"| Flagships | group | Rule | 4 |",
		"**Total**: 4 stores",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("summary missing %q\n%s", want, md)
		}
	}
	if strings.Count(md, "n_P0 --> n_P1") != 1 {
		t.Error("mermaid edges should not repeat")
	}
}

func TestGenerateSummary_Empty(t *testing.T) {
	md := GenerateSummary(testSession(), "Scope", time.Now())
	if !strings.Contains(md, "- **Scenario**: none") {
		t.Error("expected empty scenario line")
	}
	if strings.Count(md, "_Nothing selected._") != 2 {
		t.Errorf("expected both dimensions empty:\n%s", md)
	}
	if strings.Contains(md, "mermaid") {
		t.Error("no graph expected without a selection")
	}
}

func TestSaveSummaryToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scope.md")
	if err := SaveSummaryToFile(testSession(), path); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "# Pricing Scope") {
		t.Errorf("unexpected file content: %q", data[:40])
	}
}

func TestMermaidID(t *testing.T) {
	if got := mermaidID("SKU-1.a"); got != "n_SKU_1_a" {
		t.Errorf("mermaidID = %q", got)
	}
}
