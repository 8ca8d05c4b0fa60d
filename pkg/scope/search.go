// Package scope holds the per-dimension state a user edits while scoping a
// chat: the search over a hierarchy, the selection set, the expansion set,
// and the session that ties product and location scopes to a scenario,
// panel and rule.
package scope

import (
	"fmt"
	"strings"

	"github.com/vanderheijden86/pricescope/pkg/model"
	"github.com/vanderheijden86/pricescope/pkg/tree"
)

// SearchController binds a search term and mode to one forest and to a
// caller-owned expansion set.
//
// While the mode is expand and the term is non-empty, every state change
// unions the ancestors of all matches into the expansion set. Nothing here
// ever removes an expanded id.
type SearchController struct {
	forest   model.Forest
	expanded *model.IDSet
	term     string
	mode     model.SearchMode
}

// NewSearchController creates a controller in filter mode with no term.
// expanded may be nil when the caller does not render chevrons.
func NewSearchController(forest model.Forest, expanded *model.IDSet) *SearchController {
	return &SearchController{
		forest:   forest,
		expanded: expanded,
		mode:     model.SearchFilter,
	}
}

// Term returns the raw search term as typed.
func (c *SearchController) Term() string { return c.term }

// Mode returns the current search mode.
func (c *SearchController) Mode() model.SearchMode { return c.mode }

// IsActive reports whether the term has any non-space content.
func (c *SearchController) IsActive() bool {
	return strings.TrimSpace(c.term) != ""
}

// SetTerm replaces the search term.
func (c *SearchController) SetTerm(term string) {
	c.term = term
	c.syncExpansion()
}

// SetMode replaces the search mode. Unknown modes fall back to filter.
func (c *SearchController) SetMode(mode model.SearchMode) {
	if !mode.IsValid() {
		mode = model.SearchFilter
	}
	c.mode = mode
	c.syncExpansion()
}

// ToggleSearchMode flips between filter and expand.
func (c *SearchController) ToggleSearchMode() {
	c.SetMode(c.mode.Toggle())
}

// ClearSearch empties the term. Expansions made while searching stay open.
func (c *SearchController) ClearSearch() {
	c.term = ""
}

// SetForest swaps the forest snapshot, e.g. after a panel-filtered refetch.
func (c *SearchController) SetForest(forest model.Forest) {
	c.forest = forest
	c.syncExpansion()
}

// Forest returns the unfiltered forest.
func (c *SearchController) Forest() model.Forest { return c.forest }

// FilteredTree is the forest as the user should see it for the current
// search. With no active term it is the original forest.
func (c *SearchController) FilteredTree() model.Forest {
	if !c.IsActive() {
		return c.forest
	}
	return tree.FilterTree(c.forest, c.term, c.mode)
}

// MatchCount is the number of matching nodes, 0 when search is inactive.
func (c *SearchController) MatchCount() int {
	if !c.IsActive() {
		return 0
	}
	return tree.CountMatches(c.forest, c.term)
}

// Matches returns the set of matching ids for highlighting.
func (c *SearchController) Matches() model.IDSet {
	return tree.FindAllMatches(c.forest, c.term)
}

// StatusLine is the indicator shown under the search input.
func (c *SearchController) StatusLine() string {
	if !c.IsActive() {
		return c.mode.Description()
	}
	switch n := c.MatchCount(); n {
	case 0:
		return "No matches found"
	case 1:
		return "1 match found"
	default:
		return fmt.Sprintf("%d matches found", n)
	}
}

func (c *SearchController) syncExpansion() {
	if c.expanded == nil || c.mode != model.SearchExpand || !c.IsActive() {
		return
	}
	add := tree.FindExpandedNodesForMatches(c.forest, c.term)
	if add.Len() == 0 {
		return
	}
	if *c.expanded == nil {
		*c.expanded = model.NewIDSet()
	}
	*c.expanded = c.expanded.Union(add)
}
