package tree

import "github.com/vanderheijden86/pricescope/pkg/model"

// FindPath returns the ids of the ancestors of id, ordered from the root down
// to the direct parent. The node itself is excluded. ok is false when id is
// not in the forest.
func FindPath(nodes model.Forest, id string) (path []string, ok bool) {
	var stack []string
	var walk func([]model.TreeNode) bool
	walk = func(ns []model.TreeNode) bool {
		for _, n := range ns {
			if n.ID == id {
				path = append([]string{}, stack...)
				return true
			}
			if len(n.Children) == 0 {
				continue
			}
			stack = append(stack, n.ID)
			if walk(n.Children) {
				return true
			}
			stack = stack[:len(stack)-1]
		}
		return false
	}
	ok = walk(nodes)
	return path, ok
}

// FindNode returns the first node with the given id in depth-first order.
// The returned pointer aliases the forest; treat it as read-only.
func FindNode(nodes model.Forest, id string) (*model.TreeNode, bool) {
	for i := range nodes {
		if nodes[i].ID == id {
			return &nodes[i], true
		}
		if n, ok := FindNode(nodes[i].Children, id); ok {
			return n, true
		}
	}
	return nil, false
}

// ExpandToSelection returns current plus the ancestors of every selected
// hierarchy node. Group ids and ids missing from the forest contribute
// nothing. current is not modified.
func ExpandToSelection(selection model.IDSet, nodes model.Forest, current model.IDSet) model.IDSet {
	next := current.Clone()
	for id := range selection {
		if model.IsGroupKey(id) {
			continue
		}
		path, ok := FindPath(nodes, id)
		if !ok {
			continue
		}
		for _, ancestor := range path {
			next.Add(ancestor)
		}
	}
	return next
}

// InheritedIDs returns the nodes that render as selected because a strict
// ancestor is directly selected. Directly selected nodes are never included,
// and the result is never written back into the selection.
func InheritedIDs(nodes model.Forest, selection model.IDSet) model.IDSet {
	inherited := model.NewIDSet()
	if selection.Len() == 0 {
		return inherited
	}
	var walk func(ns []model.TreeNode, covered bool)
	walk = func(ns []model.TreeNode, covered bool) {
		for _, n := range ns {
			direct := selection.Has(n.ID)
			if covered && !direct {
				inherited.Add(n.ID)
			}
			walk(n.Children, covered || direct)
		}
	}
	walk(nodes, false)
	return inherited
}

// HasSelectedAncestor reports whether any strict ancestor of id is in the
// selection.
func HasSelectedAncestor(nodes model.Forest, id string, selection model.IDSet) bool {
	path, ok := FindPath(nodes, id)
	if !ok {
		return false
	}
	for _, ancestor := range path {
		if selection.Has(ancestor) {
			return true
		}
	}
	return false
}
