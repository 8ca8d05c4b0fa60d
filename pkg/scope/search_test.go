package scope

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/vanderheijden86/pricescope/pkg/model"
	"github.com/vanderheijden86/pricescope/pkg/tree"
)

func productForest() model.Forest {
	return model.Forest{{
		ID: "P0", Name: "All Products", Level: "L0", Count: model.IntPtr(5),
		Children: []model.TreeNode{
			{ID: "P1", Name: "Fresh", Level: "L1", Count: model.IntPtr(3), Children: []model.TreeNode{
				{ID: "P11", Name: "Dairy", Level: "L2", Count: model.IntPtr(2), Children: []model.TreeNode{
					{ID: "SKU-1", Name: "Whole Milk 1L", Level: "SKU"},
					{ID: "SKU-2", Name: "Skim Milk 1L", Level: "SKU"},
				}},
				{ID: "SKU-3", Name: "Apples 1kg", Level: "SKU"},
			}},
			{ID: "P2", Name: "Household", Level: "L1", Count: model.IntPtr(2), Children: []model.TreeNode{
				{ID: "SKU-4", Name: "Dish Soap", Level: "SKU"},
				{ID: "SKU-5", Name: "Milk Frother", Level: "SKU"},
			}},
		},
	}}
}

func TestSearchController_Defaults(t *testing.T) {
	expanded := model.NewIDSet()
	c := NewSearchController(productForest(), &expanded)

	if c.Mode() != model.SearchFilter || c.Term() != "" {
		t.Fatalf("defaults = %q/%q", c.Mode(), c.Term())
	}
	if diff := cmp.Diff(productForest(), c.FilteredTree()); diff != "" {
		t.Errorf("inactive search should pass the forest through:\n%s", diff)
	}
	if c.MatchCount() != 0 {
		t.Errorf("MatchCount = %d with no term", c.MatchCount())
	}
	if c.StatusLine() != model.SearchFilter.Description() {
		t.Errorf("StatusLine = %q", c.StatusLine())
	}
}

func TestSearchController_FilterModeDoesNotExpand(t *testing.T) {
	expanded := model.NewIDSet()
	c := NewSearchController(productForest(), &expanded)
	c.SetTerm("milk")

	if expanded.Len() != 0 {
		t.Errorf("filter mode touched expansion: %v", expanded.Sorted())
	}
	if c.MatchCount() != 3 {
		t.Errorf("MatchCount = %d, want 3", c.MatchCount())
	}
	if got := tree.CountNodes(c.FilteredTree()); got != 7 {
		t.Errorf("filtered tree has %d nodes, want 7", got)
	}
	if c.StatusLine() != "3 matches found" {
		t.Errorf("StatusLine = %q", c.StatusLine())
	}
}

func TestSearchController_ExpandModeUnionsAncestors(t *testing.T) {
	expanded := model.NewIDSet("P0", "user-opened")
	c := NewSearchController(productForest(), &expanded)
	c.SetMode(model.SearchExpand)
	c.SetTerm("frother")

	want := []string{"P0", "P2", "user-opened"}
	if diff := cmp.Diff(want, expanded.Sorted()); diff != "" {
		t.Errorf("expansion mismatch (-want +got):\n%s", diff)
	}

	// Same term again changes nothing.
	c.SetTerm("frother")
	if diff := cmp.Diff(want, expanded.Sorted()); diff != "" {
		t.Errorf("re-running search toggled ids (-want +got):\n%s", diff)
	}
	if c.StatusLine() != "1 match found" {
		t.Errorf("StatusLine = %q", c.StatusLine())
	}
}

func TestSearchController_ToggleIntoExpandExpands(t *testing.T) {
	expanded := model.NewIDSet()
	c := NewSearchController(productForest(), &expanded)
	c.SetTerm("skim")
	if expanded.Len() != 0 {
		t.Fatal("filter mode should not expand")
	}

	c.ToggleSearchMode()
	if c.Mode() != model.SearchExpand {
		t.Fatalf("mode = %s", c.Mode())
	}
	want := []string{"P0", "P1", "P11"}
	if diff := cmp.Diff(want, expanded.Sorted()); diff != "" {
		t.Errorf("expansion mismatch (-want +got):\n%s", diff)
	}

	// Back to filter keeps everything open.
	c.ToggleSearchMode()
	if diff := cmp.Diff(want, expanded.Sorted()); diff != "" {
		t.Errorf("toggling out of expand removed ids:\n%s", diff)
	}
}

func TestSearchController_ClearKeepsExpansion(t *testing.T) {
	expanded := model.NewIDSet()
	c := NewSearchController(productForest(), &expanded)
	c.SetMode(model.SearchExpand)
	c.SetTerm("soap")
	before := expanded.Sorted()

	c.ClearSearch()
	if c.Term() != "" || c.IsActive() {
		t.Error("term not cleared")
	}
	if diff := cmp.Diff(before, expanded.Sorted()); diff != "" {
		t.Errorf("ClearSearch changed expansion:\n%s", diff)
	}
}

func TestSearchController_NoMatches(t *testing.T) {
	c := NewSearchController(productForest(), nil)
	c.SetMode(model.SearchExpand)
	c.SetTerm("zzz")
	if c.StatusLine() != "No matches found" {
		t.Errorf("StatusLine = %q", c.StatusLine())
	}
	if len(c.FilteredTree()) != 1 {
		t.Error("expand mode keeps the tree even with no matches")
	}
}

func TestSearchController_SetForestReappliesExpansion(t *testing.T) {
	expanded := model.NewIDSet()
	c := NewSearchController(nil, &expanded)
	c.SetMode(model.SearchExpand)
	c.SetTerm("dairy")
	if expanded.Len() != 0 {
		t.Fatal("nothing to expand without a forest")
	}

	c.SetForest(productForest())
	if diff := cmp.Diff([]string{"P0", "P1"}, expanded.Sorted()); diff != "" {
		t.Errorf("expansion after SetForest (-want +got):\n%s", diff)
	}
}

func TestSearchController_InvalidModeFallsBack(t *testing.T) {
	c := NewSearchController(productForest(), nil)
	c.SetMode("sideways")
	if c.Mode() != model.SearchFilter {
		t.Errorf("mode = %q", c.Mode())
	}
}
