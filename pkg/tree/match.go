// Package tree holds the pure algorithms over product and location
// hierarchies: search matching, filtering, highlighting, path lookup and
// leaf-count aggregation. Nothing in this package mutates its input forest.
package tree

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/vanderheijden86/pricescope/pkg/model"
)

// Segment is one run of text produced by HighlightText.
type Segment struct {
	Text      string
	Highlight bool
}

// normalizeTerm trims surrounding whitespace. An empty result means search is
// inactive.
func normalizeTerm(term string) string {
	return strings.TrimSpace(term)
}

// Matches reports whether the node's name or id contains term, ignoring case.
// An empty or whitespace-only term matches nothing.
func Matches(node model.TreeNode, term string) bool {
	term = normalizeTerm(term)
	if term == "" {
		return false
	}
	return indexFold(node.Name, term) >= 0 || indexFold(node.ID, term) >= 0
}

// ContainsFold reports whether text contains term, ignoring case and the
// term's surrounding whitespace. An empty term is contained in everything.
func ContainsFold(text, term string) bool {
	return indexFold(text, normalizeTerm(term)) >= 0
}

// FilterTree derives the view of nodes for a search.
//
// In filter mode only matches and their ancestors survive. In expand mode
// every node is kept. Either way each returned node carries IsMatch and
// HasMatchingDescendants. With an empty term the input is returned as is.
func FilterTree(nodes model.Forest, term string, mode model.SearchMode) model.Forest {
	term = normalizeTerm(term)
	if term == "" {
		return nodes
	}
	if mode == model.SearchExpand {
		return annotateAll(nodes, term)
	}
	return prune(nodes, term)
}

func prune(nodes []model.TreeNode, term string) model.Forest {
	var out model.Forest
	for _, node := range nodes {
		kept := prune(node.Children, term)
		isMatch := Matches(node, term)
		if !isMatch && len(kept) == 0 {
			continue
		}
		out = append(out, annotated(node, []model.TreeNode(kept), isMatch, len(kept) > 0))
	}
	return out
}

func annotateAll(nodes []model.TreeNode, term string) model.Forest {
	if nodes == nil {
		return nil
	}
	out := make(model.Forest, 0, len(nodes))
	for _, node := range nodes {
		children := annotateAll(node.Children, term)
		hasDesc := false
		for _, c := range children {
			if c.IsMatch || c.HasMatchingDescendants {
				hasDesc = true
				break
			}
		}
		out = append(out, annotated(node, []model.TreeNode(children), Matches(node, term), hasDesc))
	}
	return out
}

// annotated copies node with new children and flags. The count pointer is
// copied so callers cannot reach back into the source forest.
func annotated(node model.TreeNode, children []model.TreeNode, isMatch, hasDesc bool) model.TreeNode {
	n := model.TreeNode{
		ID:                     node.ID,
		Name:                   node.Name,
		Level:                  node.Level,
		Children:               children,
		IsMatch:                isMatch,
		HasMatchingDescendants: hasDesc,
	}
	if node.Count != nil {
		n.Count = model.IntPtr(*node.Count)
	}
	return n
}

// FindAllMatches returns the ids of every matching node in the forest,
// including nodes under collapsed branches.
func FindAllMatches(nodes model.Forest, term string) model.IDSet {
	found := model.NewIDSet()
	term = normalizeTerm(term)
	if term == "" {
		return found
	}
	var walk func([]model.TreeNode)
	walk = func(ns []model.TreeNode) {
		for _, n := range ns {
			if Matches(n, term) {
				found.Add(n.ID)
			}
			walk(n.Children)
		}
	}
	walk(nodes)
	return found
}

// CountMatches is the number of distinct matching ids.
func CountMatches(nodes model.Forest, term string) int {
	return FindAllMatches(nodes, term).Len()
}

// FindExpandedNodesForMatches returns the strict ancestors of every match.
// Opening exactly these ids makes all matches visible without forcing the
// matched nodes themselves open.
func FindExpandedNodesForMatches(nodes model.Forest, term string) model.IDSet {
	expanded := model.NewIDSet()
	term = normalizeTerm(term)
	if term == "" {
		return expanded
	}
	var path []string
	var walk func([]model.TreeNode)
	walk = func(ns []model.TreeNode) {
		for _, n := range ns {
			if Matches(n, term) {
				for _, id := range path {
					expanded.Add(id)
				}
			}
			if len(n.Children) > 0 {
				path = append(path, n.ID)
				walk(n.Children)
				path = path[:len(path)-1]
			}
		}
	}
	walk(nodes)
	return expanded
}

// CountNodes returns the total number of nodes in the forest.
func CountNodes(nodes model.Forest) int {
	total := 0
	for _, n := range nodes {
		total += 1 + CountNodes(n.Children)
	}
	return total
}

// HighlightText splits text into segments, marking case-insensitive
// occurrences of term. Matching is greedy and non-overlapping, scanning left
// to right. Concatenating the segment texts always reproduces text.
func HighlightText(text, term string) []Segment {
	term = normalizeTerm(term)
	if term == "" || text == "" {
		return []Segment{{Text: text}}
	}

	var segs []Segment
	plainStart := 0
	i := 0
	for i < len(text) {
		if end, ok := matchFoldAt(text, i, term); ok {
			if i > plainStart {
				segs = append(segs, Segment{Text: text[plainStart:i]})
			}
			segs = append(segs, Segment{Text: text[i:end], Highlight: true})
			i = end
			plainStart = end
			continue
		}
		_, size := utf8.DecodeRuneInString(text[i:])
		i += size
	}
	if plainStart < len(text) {
		segs = append(segs, Segment{Text: text[plainStart:]})
	}
	return segs
}

// indexFold is a case-insensitive strings.Index that reports byte offsets in
// s, so offsets stay valid even when folding changes encoded rune widths.
func indexFold(s, substr string) int {
	if substr == "" {
		return 0
	}
	for i := 0; i < len(s); {
		if _, ok := matchFoldAt(s, i, substr); ok {
			return i
		}
		_, size := utf8.DecodeRuneInString(s[i:])
		i += size
	}
	return -1
}

// matchFoldAt reports whether term occurs in s starting at byte offset i and
// returns the end offset of the occurrence in s.
func matchFoldAt(s string, i int, term string) (int, bool) {
	j := i
	for _, tr := range term {
		if j >= len(s) {
			return 0, false
		}
		sr, size := utf8.DecodeRuneInString(s[j:])
		if !equalFoldRune(sr, tr) {
			return 0, false
		}
		j += size
	}
	return j, true
}

func equalFoldRune(a, b rune) bool {
	if a == b {
		return true
	}
	if unicode.ToLower(a) == unicode.ToLower(b) {
		return true
	}
	// Walk the fold orbit for runes like 'K' (Kelvin) that only fold via
	// SimpleFold.
	for r := unicode.SimpleFold(a); r != a; r = unicode.SimpleFold(r) {
		if r == b {
			return true
		}
	}
	return false
}
