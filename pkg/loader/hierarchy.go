// Package loader turns backend hierarchy payloads, group lists and fixture
// files into the model types, and provides the HTTP client, debouncing and
// file watching around them.
package loader

import (
	"bytes"
	"fmt"
	"os"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/vanderheijden86/pricescope/pkg/debug"
	"github.com/vanderheijden86/pricescope/pkg/model"
)

// NodeID accepts both string and numeric ids in backend JSON.
type NodeID string

// UnmarshalJSON implements json.Unmarshaler.
func (id *NodeID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = NodeID(s)
		return nil
	}
	if _, err := strconv.ParseFloat(string(data), 64); err != nil {
		return fmt.Errorf("node id %s: %w", data, err)
	}
	*id = NodeID(data)
	return nil
}

// PayloadNode is one node of a backend hierarchy response. Any count the
// backend sends is ignored.
type PayloadNode struct {
	NodeID    NodeID        `json:"node_id"`
	NodeName  string        `json:"node_name"`
	NodeLevel string        `json:"node_level"`
	Children  []PayloadNode `json:"children,omitempty"`
}

// Payload is the body of GET .../{products|locations}/hierarchy.
type Payload struct {
	Root     *PayloadNode  `json:"root"`
	Children []PayloadNode `json:"children,omitempty"`
}

// Transform converts a payload into a single-tree forest with leaf counts
// recomputed bottom-up. A payload without root yields an empty forest.
func Transform(p Payload) model.Forest {
	if p.Root == nil {
		return model.Forest{}
	}
	root := PayloadNode{
		NodeID:    p.Root.NodeID,
		NodeName:  p.Root.NodeName,
		NodeLevel: p.Root.NodeLevel,
		Children:  p.Children,
	}
	// Some backends nest the children inside root instead of beside it.
	if len(root.Children) == 0 {
		root.Children = p.Root.Children
	}
	return model.Forest{transformNode(root)}
}

func transformNode(p PayloadNode) model.TreeNode {
	n := model.TreeNode{
		ID:    string(p.NodeID),
		Name:  p.NodeName,
		Level: p.NodeLevel,
	}
	if len(p.Children) == 0 {
		return n
	}
	n.Children = make([]model.TreeNode, len(p.Children))
	sum := 0
	for i, c := range p.Children {
		n.Children[i] = transformNode(c)
		sum += n.Children[i].LeafCount()
	}
	n.Count = model.IntPtr(sum)
	return n
}

// DecodeHierarchy decodes a raw response body. Malformed input is logged
// and yields an empty forest.
func DecodeHierarchy(data []byte) model.Forest {
	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		debug.Warn("hierarchy: decode failed: %v", err)
		return model.Forest{}
	}
	return Transform(p)
}

// LoadHierarchyFile reads a payload fixture from disk. Unlike the decoding
// path it reports errors, so the CLI can tell a missing file from no data.
func LoadHierarchyFile(path string) (model.Forest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading hierarchy %s: %w", path, err)
	}
	forest, err := ParseHierarchy(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return forest, nil
}

// ParseHierarchy decodes a payload, reporting malformed input.
func ParseHierarchy(data []byte) (model.Forest, error) {
	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing hierarchy: %w", err)
	}
	return Transform(p), nil
}

// EncodePayload is the inverse of Transform, used to write fixtures and
// cache entries. Counts are not written.
func EncodePayload(forest model.Forest) ([]byte, error) {
	if len(forest) == 0 {
		return json.Marshal(Payload{})
	}
	root := forest[0]
	p := Payload{
		Root: &PayloadNode{
			NodeID:    NodeID(root.ID),
			NodeName:  root.Name,
			NodeLevel: root.Level,
		},
		Children: toPayload(root.Children),
	}
	return json.MarshalIndent(p, "", "  ")
}

func toPayload(nodes []model.TreeNode) []PayloadNode {
	if len(nodes) == 0 {
		return nil
	}
	out := make([]PayloadNode, len(nodes))
	for i, n := range nodes {
		out[i] = PayloadNode{
			NodeID:    NodeID(n.ID),
			NodeName:  n.Name,
			NodeLevel: n.Level,
			Children:  toPayload(n.Children),
		}
	}
	return out
}
