package scope

import (
	"github.com/vanderheijden86/pricescope/pkg/model"
	"github.com/vanderheijden86/pricescope/pkg/tree"
)

// DimensionScope bundles everything one hierarchy view needs: the forest,
// the groups list, the selection, the expansion set and the search.
type DimensionScope struct {
	Dimension model.Dimension

	forest    model.Forest
	groups    []model.Group
	selection *Selection
	expanded  model.IDSet
	search    *SearchController
}

// NewDimensionScope creates an empty scope for d.
func NewDimensionScope(d model.Dimension) *DimensionScope {
	ds := &DimensionScope{
		Dimension: d,
		selection: NewSelection(),
		expanded:  model.NewIDSet(),
	}
	ds.search = NewSearchController(nil, &ds.expanded)
	return ds
}

// Forest returns the current hierarchy snapshot.
func (d *DimensionScope) Forest() model.Forest { return d.forest }

// Groups returns the group list.
func (d *DimensionScope) Groups() []model.Group { return d.groups }

// Selection exposes the selection model.
func (d *DimensionScope) Selection() *Selection { return d.selection }

// Search exposes the search controller.
func (d *DimensionScope) Search() *SearchController { return d.search }

// Expanded returns a copy of the expansion set.
func (d *DimensionScope) Expanded() model.IDSet { return d.expanded.Clone() }

// IsExpanded reports whether the node's children are shown.
func (d *DimensionScope) IsExpanded(id string) bool { return d.expanded.Has(id) }

// SetForest installs a new hierarchy snapshot. Roots are opened so the first
// level is visible, and existing selections are revealed.
func (d *DimensionScope) SetForest(forest model.Forest) {
	d.forest = forest
	for _, root := range forest {
		d.expanded.Add(root.ID)
	}
	d.search.SetForest(forest)
	d.revealSelection()
}

// SetGroups replaces the group list.
func (d *DimensionScope) SetGroups(groups []model.Group) {
	d.groups = groups
}

// SetExpanded restores a persisted expansion set. Roots stay open.
func (d *DimensionScope) SetExpanded(ids model.IDSet) {
	d.expanded = ids.Clone()
	for _, root := range d.forest {
		d.expanded.Add(root.ID)
	}
	d.revealSelection()
}

// ToggleExpand is an explicit user expand or collapse. It is the only path
// that removes ids from the expansion set.
func (d *DimensionScope) ToggleExpand(id string) {
	d.expanded.Toggle(id)
}

// ExpandAll opens every internal node.
func (d *DimensionScope) ExpandAll() {
	var walk func([]model.TreeNode)
	walk = func(ns []model.TreeNode) {
		for _, n := range ns {
			if len(n.Children) > 0 {
				d.expanded.Add(n.ID)
				walk(n.Children)
			}
		}
	}
	walk(d.forest)
}

// CollapseAll closes everything except the roots.
func (d *DimensionScope) CollapseAll() {
	d.expanded = model.NewIDSet()
	for _, root := range d.forest {
		d.expanded.Add(root.ID)
	}
}

// CanToggle reports whether a click on id would change the selection.
func (d *DimensionScope) CanToggle(id string) bool {
	if d.selection.Locked() {
		return false
	}
	if model.IsGroupKey(id) {
		return true
	}
	return d.nodeDisplay(id).CanToggle
}

// ToggleSelection applies a user click and reveals the resulting selection.
// Clicks on inherited rows and clicks while locked are ignored.
func (d *DimensionScope) ToggleSelection(id string) {
	if !d.CanToggle(id) {
		return
	}
	d.selection.Toggle(id)
	d.revealSelection()
}

// ReplaceSelection sets the selection wholesale and reveals it.
func (d *DimensionScope) ReplaceSelection(ids ...string) {
	d.selection.Replace(ids...)
	d.revealSelection()
}

// Count is the aggregate leaf count of the selection.
func (d *DimensionScope) Count() int {
	return tree.Aggregate(d.selection.IDs(), d.forest, d.groups)
}

func (d *DimensionScope) revealSelection() {
	d.expanded = tree.ExpandToSelection(d.selection.IDs(), d.forest, d.expanded)
}

func (d *DimensionScope) nodeDisplay(id string) NodeDisplay {
	readOnly := d.selection.Locked()
	ancestor := tree.HasSelectedAncestor(d.forest, id, d.selection.ids)
	return d.selection.NodeState(id, ancestor, readOnly)
}

// Row is one rendered line of the hierarchy view.
type Row struct {
	Node        model.TreeNode
	Depth       int
	HasChildren bool
	Expanded    bool
	Display     NodeDisplay
	Segments    []tree.Segment
}

// Rows flattens the current search view into render order, descending only
// into expanded nodes.
func (d *DimensionScope) Rows() []Row {
	view := d.search.FilteredTree()
	readOnly := d.selection.Locked()
	term := ""
	if d.search.IsActive() {
		term = d.search.Term()
	}

	inherited := model.NewIDSet()
	if !readOnly {
		inherited = tree.InheritedIDs(d.forest, d.selection.ids)
	}

	var rows []Row
	var walk func(ns []model.TreeNode, depth int)
	walk = func(ns []model.TreeNode, depth int) {
		for _, n := range ns {
			open := d.expanded.Has(n.ID)
			rows = append(rows, Row{
				Node:        n,
				Depth:       depth,
				HasChildren: len(n.Children) > 0,
				Expanded:    open,
				Display:     d.selection.NodeState(n.ID, inherited.Has(n.ID), readOnly),
				Segments:    tree.HighlightText(n.Name, term),
			})
			if open && len(n.Children) > 0 {
				walk(n.Children, depth+1)
			}
		}
	}
	walk(view, 0)
	return rows
}

// GroupRow is one rendered line of the groups table.
type GroupRow struct {
	Group     model.Group
	Selected  bool
	CanToggle bool
}

// GroupRows lists groups whose name contains filter, ignoring case.
func (d *DimensionScope) GroupRows(filter string) []GroupRow {
	var rows []GroupRow
	for _, g := range d.groups {
		if !tree.ContainsFold(g.Name, filter) {
			continue
		}
		rows = append(rows, GroupRow{
			Group:     g,
			Selected:  d.selection.Has(g.Key()),
			CanToggle: !d.selection.Locked(),
		})
	}
	return rows
}

// Reset clears the selection, unlocks it, and collapses to the roots. The
// search term is cleared too.
func (d *DimensionScope) Reset() {
	d.selection.Clear()
	d.selection.Unlock()
	d.search.ClearSearch()
	d.CollapseAll()
}
