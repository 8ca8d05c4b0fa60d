package tree

import (
	"strconv"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"pgregory.net/rapid"

	"github.com/vanderheijden86/pricescope/pkg/model"
)

// fruitForest is the three-node forest used throughout the search tests.
func fruitForest() model.Forest {
	return model.Forest{{
		ID: "r", Name: "Root", Count: model.IntPtr(2),
		Children: []model.TreeNode{
			{ID: "a", Name: "Apple"},
			{ID: "b", Name: "Banana"},
		},
	}}
}

// productForest is a deeper fixture resembling a real product hierarchy.
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

func TestMatches(t *testing.T) {
	node := model.TreeNode{ID: "SKU-42", Name: "Whole Milk"}
	tests := []struct {
		term string
		want bool
	}{
		{"milk", true},
		{"MILK", true},
		{"  milk  ", true},
		{"sku-4", true},
		{"42", true},
		{"cheese", false},
		{"", false},
		{"   ", false},
	}
	for _, tt := range tests {
		t.Run(tt.term, func(t *testing.T) {
			if got := Matches(node, tt.term); got != tt.want {
				t.Errorf("Matches(%q) = %v, want %v", tt.term, got, tt.want)
			}
		})
	}
}

func TestFilterTree_FilterModePrunes(t *testing.T) {
	got := FilterTree(fruitForest(), "app", model.SearchFilter)

	want := model.Forest{{
		ID: "r", Name: "Root", Count: model.IntPtr(2),
		HasMatchingDescendants: true,
		Children: []model.TreeNode{
			{ID: "a", Name: "Apple", IsMatch: true},
		},
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("FilterTree filter mode mismatch (-want +got):\n%s", diff)
	}
	if n := CountMatches(fruitForest(), "app"); n != 1 {
		t.Errorf("CountMatches = %d, want 1", n)
	}
}

func TestFilterTree_ExpandModeKeepsAll(t *testing.T) {
	got := FilterTree(fruitForest(), "app", model.SearchExpand)

	if n := CountNodes(got); n != 3 {
		t.Fatalf("expand mode returned %d nodes, want 3", n)
	}
	root := got[0]
	if !root.HasMatchingDescendants || root.IsMatch {
		t.Errorf("root flags = match:%v desc:%v", root.IsMatch, root.HasMatchingDescendants)
	}
	a, b := root.Children[0], root.Children[1]
	if !a.IsMatch {
		t.Error("Apple should match")
	}
	if b.IsMatch || b.HasMatchingDescendants {
		t.Error("Banana should carry no flags")
	}
}

func TestFilterTree_ExpandModeAnnotatesNestedLevels(t *testing.T) {
	got := FilterTree(productForest(), "milk", model.SearchExpand)

	dairy, ok := FindNode(got, "P11")
	if !ok {
		t.Fatal("Dairy missing from expand result")
	}
	if !dairy.HasMatchingDescendants {
		t.Error("Dairy should have matching descendants")
	}
	for _, c := range dairy.Children {
		if !c.IsMatch {
			t.Errorf("%s should match milk", c.ID)
		}
	}
	household, _ := FindNode(got, "P2")
	if !household.HasMatchingDescendants {
		t.Error("Household contains Milk Frother")
	}
}

func TestFilterTree_EmptyTermPassesThrough(t *testing.T) {
	in := productForest()
	for _, mode := range []model.SearchMode{model.SearchFilter, model.SearchExpand} {
		got := FilterTree(in, "  ", mode)
		if diff := cmp.Diff(in, got); diff != "" {
			t.Errorf("mode %s: empty term changed forest:\n%s", mode, diff)
		}
	}
}

func TestFilterTree_EmptyForest(t *testing.T) {
	if got := FilterTree(nil, "x", model.SearchFilter); len(got) != 0 {
		t.Errorf("filter on empty forest = %v", got)
	}
	if got := FilterTree(model.Forest{}, "x", model.SearchExpand); len(got) != 0 {
		t.Errorf("expand on empty forest = %v", got)
	}
	if FindAllMatches(nil, "x").Len() != 0 || CountMatches(nil, "x") != 0 {
		t.Error("matches on empty forest should be empty")
	}
	if FindExpandedNodesForMatches(nil, "x").Len() != 0 {
		t.Error("expansions on empty forest should be empty")
	}
}

func TestFilterTree_DoesNotMutateInput(t *testing.T) {
	in := productForest()
	before := in.Clone()
	out := FilterTree(in, "milk", model.SearchExpand)
	*out[0].Count = 1000
	out[0].Children[0].Name = "mutated"

	if diff := cmp.Diff(before, in); diff != "" {
		t.Errorf("input changed (-before +after):\n%s", diff)
	}
}

func TestFilterTree_LeafMatchKeepsAncestors(t *testing.T) {
	got := FilterTree(productForest(), "frother", model.SearchFilter)

	path, ok := FindPath(got, "SKU-5")
	if !ok {
		t.Fatal("match not reachable in filtered tree")
	}
	if diff := cmp.Diff([]string{"P0", "P2"}, path); diff != "" {
		t.Errorf("path mismatch (-want +got):\n%s", diff)
	}
	if CountNodes(got) != 3 {
		t.Errorf("filtered tree has %d nodes, want 3", CountNodes(got))
	}
}

func TestFindAllMatches(t *testing.T) {
	got := FindAllMatches(productForest(), "milk")
	if diff := cmp.Diff([]string{"SKU-1", "SKU-2", "SKU-5"}, got.Sorted()); diff != "" {
		t.Errorf("FindAllMatches mismatch (-want +got):\n%s", diff)
	}
	if CountMatches(productForest(), "") != 0 {
		t.Error("empty term should count zero")
	}
}

func TestFindExpandedNodesForMatches(t *testing.T) {
	if diff := cmp.Diff([]string{"r"}, FindExpandedNodesForMatches(fruitForest(), "app").Sorted()); diff != "" {
		t.Errorf("fruit mismatch (-want +got):\n%s", diff)
	}

	got := FindExpandedNodesForMatches(productForest(), "milk")
	want := []string{"P0", "P1", "P11", "P2"}
	if diff := cmp.Diff(want, got.Sorted()); diff != "" {
		t.Errorf("product mismatch (-want +got):\n%s", diff)
	}

	// A matching internal node does not open itself.
	got = FindExpandedNodesForMatches(productForest(), "dairy")
	if got.Has("P11") {
		t.Error("match itself should not be expanded")
	}
}

func TestHighlightText(t *testing.T) {
	tests := []struct {
		name string
		text string
		term string
		want []Segment
	}{
		{"EmptyTerm", "Apple", "", []Segment{{Text: "Apple"}}},
		{"NoMatch", "Apple", "z", []Segment{{Text: "Apple"}}},
		{"Prefix", "Apple", "ap", []Segment{{Text: "Ap", Highlight: true}, {Text: "ple"}}},
		{"Suffix", "Apple", "LE", []Segment{{Text: "App"}, {Text: "le", Highlight: true}}},
		{"Whole", "milk", "MILK", []Segment{{Text: "milk", Highlight: true}}},
		{"Repeated", "abab", "ab", []Segment{{Text: "ab", Highlight: true}, {Text: "ab", Highlight: true}}},
		{"NonOverlapping", "aaa", "aa", []Segment{{Text: "aa", Highlight: true}, {Text: "a"}}},
		{"Middle", "Whole Milk 1L", "milk", []Segment{{Text: "Whole "}, {Text: "Milk", Highlight: true}, {Text: " 1L"}}},
		{"Unicode", "Crème Brûlée", "BRÛ", []Segment{{Text: "Crème "}, {Text: "Brû", Highlight: true}, {Text: "lée"}}},
		{"EmptyText", "", "x", []Segment{{Text: ""}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HighlightText(tt.text, tt.term)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("HighlightText(%q, %q) mismatch (-want +got):\n%s", tt.text, tt.term, diff)
			}
		})
	}
}

// genForest draws a small random forest. Names come from a tiny alphabet so
// random terms hit often.
func genForest(t *rapid.T) model.Forest {
	next := 0
	var gen func(depth int) model.TreeNode
	gen = func(depth int) model.TreeNode {
		next++
		n := model.TreeNode{
			ID:   "n" + strconv.Itoa(next),
			Name: rapid.StringMatching(`[abcAB ]{0,6}`).Draw(t, "name"),
		}
		if depth < 4 {
			k := rapid.IntRange(0, 3).Draw(t, "children")
			sum := 0
			for i := 0; i < k; i++ {
				c := gen(depth + 1)
				sum += c.LeafCount()
				n.Children = append(n.Children, c)
			}
			if k > 0 {
				n.Count = model.IntPtr(sum)
			}
		}
		return n
	}
	roots := rapid.IntRange(0, 2).Draw(t, "roots")
	var f model.Forest
	for i := 0; i < roots; i++ {
		f = append(f, gen(0))
	}
	return f
}

func genTerm(t *rapid.T) string {
	return rapid.StringMatching(`[abcAB ]{0,3}`).Draw(t, "term")
}

func TestProperty_ExpandModeKeepsNodeCount(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		f := genForest(t)
		term := genTerm(t)
		if got, want := CountNodes(FilterTree(f, term, model.SearchExpand)), CountNodes(f); got != want {
			t.Fatalf("expand mode node count %d, want %d", got, want)
		}
	})
}

func TestProperty_FilterModeOnlyKeepsMatchPaths(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		f := genForest(t)
		term := genTerm(t)
		if strings.TrimSpace(term) == "" {
			return
		}
		var check func([]model.TreeNode) bool
		check = func(ns []model.TreeNode) bool {
			kept := false
			for _, n := range ns {
				desc := check(n.Children)
				if !n.IsMatch && !desc {
					t.Fatalf("node %s kept without match", n.ID)
				}
				if desc != n.HasMatchingDescendants {
					t.Fatalf("node %s HasMatchingDescendants=%v, want %v", n.ID, n.HasMatchingDescendants, desc)
				}
				kept = true
			}
			return kept
		}
		check(FilterTree(f, term, model.SearchFilter))
	})
}

func TestProperty_CountMatchesEqualsSetSize(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		f := genForest(t)
		term := genTerm(t)
		if CountMatches(f, term) != FindAllMatches(f, term).Len() {
			t.Fatal("CountMatches disagrees with FindAllMatches")
		}
	})
}

func TestProperty_FilterTreeIdempotent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		f := genForest(t)
		term := genTerm(t)
		mode := rapid.SampledFrom([]model.SearchMode{model.SearchFilter, model.SearchExpand}).Draw(t, "mode")
		first := FilterTree(f, term, mode)
		second := FilterTree(f, term, mode)
		if diff := cmp.Diff(first, second); diff != "" {
			t.Fatalf("FilterTree not idempotent:\n%s", diff)
		}
	})
}

func TestProperty_HighlightReassembles(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		text := rapid.String().Draw(t, "text")
		term := rapid.String().Draw(t, "term")
		var sb strings.Builder
		for _, s := range HighlightText(text, term) {
			sb.WriteString(s.Text)
		}
		if sb.String() != text {
			t.Fatalf("segments reassemble to %q, want %q", sb.String(), text)
		}
		if diff := cmp.Diff([]Segment{{Text: text}}, HighlightText(text, "")); diff != "" {
			t.Fatalf("empty term mismatch:\n%s", diff)
		}
	})
}
