package model

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// TreeNode is one node of a product or location hierarchy.
//
// Count is set on every internal node and holds the number of leaf
// descendants. It is nil exactly on leaves (SKUs/stores), which count as 1.
// IsMatch and HasMatchingDescendants are only populated on nodes returned by
// the search engine; they are never persisted.
type TreeNode struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	Level    string     `json:"level,omitempty"`
	Count    *int       `json:"count,omitempty"`
	Children []TreeNode `json:"children,omitempty"`

	IsMatch                bool `json:"-"`
	HasMatchingDescendants bool `json:"-"`
}

// Forest is an ordered list of root nodes. Hierarchy fetches always produce
// a single-element forest.
type Forest []TreeNode

// IsLeaf reports whether the node has no children.
func (n TreeNode) IsLeaf() bool {
	return len(n.Children) == 0
}

// LeafCount returns the node's leaf count, treating leaves as 1.
func (n TreeNode) LeafCount() int {
	if n.Count != nil {
		return *n.Count
	}
	return 1
}

// Clone creates a deep copy of the node and its subtree
func (n TreeNode) Clone() TreeNode {
	clone := n
	if n.Count != nil {
		v := *n.Count
		clone.Count = &v
	}
	if n.Children != nil {
		clone.Children = make([]TreeNode, len(n.Children))
		for i, child := range n.Children {
			clone.Children[i] = child.Clone()
		}
	}
	return clone
}

// Validate checks the structural invariants of the subtree rooted at n:
// non-empty ids, counts present exactly on internal nodes, and each internal
// count equal to the sum of its children's leaf counts.
func (n *TreeNode) Validate() error {
	if n.ID == "" {
		return fmt.Errorf("node ID cannot be empty (name %q)", n.Name)
	}
	if n.IsLeaf() {
		if n.Count != nil {
			return fmt.Errorf("leaf %s must not carry a count", n.ID)
		}
		return nil
	}
	if n.Count == nil {
		return fmt.Errorf("internal node %s is missing its count", n.ID)
	}
	sum := 0
	for i := range n.Children {
		if err := n.Children[i].Validate(); err != nil {
			return err
		}
		sum += n.Children[i].LeafCount()
	}
	if sum != *n.Count {
		return fmt.Errorf("node %s count %d != sum of children %d", n.ID, *n.Count, sum)
	}
	return nil
}

// Clone creates a deep copy of every tree in the forest
func (f Forest) Clone() Forest {
	if f == nil {
		return nil
	}
	out := make(Forest, len(f))
	for i, n := range f {
		out[i] = n.Clone()
	}
	return out
}

// IntPtr returns a pointer to v. Convenient for building fixtures.
func IntPtr(v int) *int {
	return &v
}

// GroupType classifies a group
type GroupType string

const (
	GroupTypeAd   GroupType = "Ad"
	GroupTypeRule GroupType = "Rule"
)

// IsValid returns true if the group type is a recognized value
func (t GroupType) IsValid() bool {
	switch t {
	case GroupTypeAd, GroupTypeRule:
		return true
	}
	return false
}

// GroupKeyPrefix marks selection ids that reference a group rather than a
// hierarchy node.
const GroupKeyPrefix = "group_"

// Group is a flat, named collection of SKUs or stores selectable as a single
// alternative to hierarchy nodes.
type Group struct {
	ID        int       `json:"id" yaml:"id"`
	Name      string    `json:"name" yaml:"name"`
	Type      GroupType `json:"type" yaml:"type"`
	Items     int       `json:"items" yaml:"items"`
	UpdatedAt string    `json:"updatedAt" yaml:"updated_at"`
}

// Key returns the synthetic selection id for the group.
func (g Group) Key() string {
	return GroupKey(g.ID)
}

// Validate checks if the group data is logically valid
func (g *Group) Validate() error {
	if g.Name == "" {
		return fmt.Errorf("group %d name cannot be empty", g.ID)
	}
	if !g.Type.IsValid() {
		return fmt.Errorf("group %d has invalid type: %s", g.ID, g.Type)
	}
	if g.Items < 0 {
		return fmt.Errorf("group %d has negative item count %d", g.ID, g.Items)
	}
	return nil
}

// GroupKey builds the selection id for a group.
func GroupKey(id int) string {
	return GroupKeyPrefix + strconv.Itoa(id)
}

// IsGroupKey reports whether a selection id refers to a group.
func IsGroupKey(id string) bool {
	return strings.HasPrefix(id, GroupKeyPrefix)
}

// ParseGroupKey extracts the numeric group id from a selection id.
func ParseGroupKey(id string) (int, bool) {
	if !IsGroupKey(id) {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimPrefix(id, GroupKeyPrefix))
	if err != nil {
		return 0, false
	}
	return n, true
}

// FindGroup returns the group with the given numeric id.
func FindGroup(groups []Group, id int) (Group, bool) {
	for _, g := range groups {
		if g.ID == id {
			return g, true
		}
	}
	return Group{}, false
}

// IDSet is an unordered set of node or group identifiers.
// The zero value is ready to use for reads; use NewIDSet or Add for writes.
type IDSet map[string]struct{}

// NewIDSet builds a set from the given ids.
func NewIDSet(ids ...string) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Has reports membership.
func (s IDSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Add inserts id.
func (s IDSet) Add(id string) {
	s[id] = struct{}{}
}

// Remove deletes id.
func (s IDSet) Remove(id string) {
	delete(s, id)
}

// Toggle flips membership of id and reports whether it is now present.
func (s IDSet) Toggle(id string) bool {
	if s.Has(id) {
		delete(s, id)
		return false
	}
	s[id] = struct{}{}
	return true
}

// Len returns the number of ids.
func (s IDSet) Len() int {
	return len(s)
}

// Clone returns an independent copy.
func (s IDSet) Clone() IDSet {
	out := make(IDSet, len(s))
	for id := range s {
		out[id] = struct{}{}
	}
	return out
}

// Union returns a new set containing the ids of s and other.
func (s IDSet) Union(other IDSet) IDSet {
	out := s.Clone()
	for id := range other {
		out[id] = struct{}{}
	}
	return out
}

// Sorted returns the ids in lexical order for stable output.
func (s IDSet) Sorted() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// SearchMode selects how a tree search presents its results
type SearchMode string

const (
	// SearchFilter prunes branches without matches.
	SearchFilter SearchMode = "filter"
	// SearchExpand keeps the full tree and opens ancestors of matches.
	SearchExpand SearchMode = "expand"
)

// IsValid returns true if the mode is a recognized value
func (m SearchMode) IsValid() bool {
	return m == SearchFilter || m == SearchExpand
}

// Toggle returns the other mode.
func (m SearchMode) Toggle() SearchMode {
	if m == SearchExpand {
		return SearchFilter
	}
	return SearchExpand
}

// Description is the one-line explanation shown next to the search input.
func (m SearchMode) Description() string {
	if m == SearchExpand {
		return "Expand mode: Will expand tree to reveal matches"
	}
	return "Filter mode: Will show only matching nodes"
}

// ParseSearchMode converts user input to a SearchMode, defaulting to filter.
func ParseSearchMode(s string) SearchMode {
	if SearchMode(strings.ToLower(strings.TrimSpace(s))) == SearchExpand {
		return SearchExpand
	}
	return SearchFilter
}

// Dimension identifies which hierarchy a selection applies to
type Dimension string

const (
	DimensionProduct  Dimension = "product"
	DimensionLocation Dimension = "location"
)

// IsValid returns true if the dimension is a recognized value
func (d Dimension) IsValid() bool {
	return d == DimensionProduct || d == DimensionLocation
}

// UnitLabel is the name of a leaf in this dimension ("SKU" or "store").
func (d Dimension) UnitLabel() string {
	if d == DimensionLocation {
		return "store"
	}
	return "SKU"
}

// Plural returns the collection name used in API paths and headings.
func (d Dimension) Plural() string {
	if d == DimensionLocation {
		return "locations"
	}
	return "products"
}

// ParseDimension converts user input to a Dimension.
func ParseDimension(s string) (Dimension, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "product", "products", "p":
		return DimensionProduct, nil
	case "location", "locations", "l":
		return DimensionLocation, nil
	}
	return "", fmt.Errorf("unknown dimension %q (want product or location)", s)
}

// Scenario is the top-level pricing context a chat can be scoped to
type Scenario struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Panel belongs to a scenario and predetermines the product and location
// scope. Selecting a panel makes the scope read-only.
type Panel struct {
	ID             int    `json:"id"`
	Name           string `json:"name"`
	Description    string `json:"description,omitempty"`
	Priority       int    `json:"priority,omitempty"`
	ScenarioID     int    `json:"scenario_id"`
	ProductNodeID  string `json:"product_node_id,omitempty"`
	LocationNodeID string `json:"location_node_id,omitempty"`
}

// NodeIDFor returns the panel's predetermined node for a dimension.
func (p Panel) NodeIDFor(d Dimension) string {
	if d == DimensionLocation {
		return p.LocationNodeID
	}
	return p.ProductNodeID
}

// Rule is a pricing rule inside a panel
type Rule struct {
	ID          int    `json:"id"`
	PanelID     int    `json:"panel_id"`
	RuleType    string `json:"rule_type"`
	Rank        int    `json:"rank"`
	Description string `json:"description,omitempty"`
	Active      bool   `json:"active"`
}
