package tree

import "github.com/vanderheijden86/pricescope/pkg/model"

// Aggregate sums the leaf counts of every id in selection.
//
// Group ids contribute their Items (0 when the group is unknown). Hierarchy
// ids contribute the node's Count, 1 for leaves, 0 when absent. Overlapping
// selections are not de-duplicated: selecting a parent and its child counts
// the child's leaves twice.
func Aggregate(selection model.IDSet, nodes model.Forest, groups []model.Group) int {
	total := 0
	for id := range selection {
		total += LeafCountFor(id, nodes, groups)
	}
	return total
}

// LeafCountFor is the contribution of a single selected id to Aggregate.
func LeafCountFor(id string, nodes model.Forest, groups []model.Group) int {
	if model.IsGroupKey(id) {
		gid, ok := model.ParseGroupKey(id)
		if !ok {
			return 0
		}
		if g, ok := model.FindGroup(groups, gid); ok {
			return g.Items
		}
		return 0
	}
	if n, ok := FindNode(nodes, id); ok {
		return n.LeafCount()
	}
	return 0
}
