package loader

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/google/go-cmp/cmp"
	"pgregory.net/rapid"

	"github.com/vanderheijden86/pricescope/pkg/model"
)

const samplePayload = `{
  "root": {"node_id": "P0", "node_name": "All Products", "node_level": "L0"},
  "children": [
    {"node_id": "P1", "node_name": "Fresh", "node_level": "L1", "count": 999, "children": [
      {"node_id": "SKU-1", "node_name": "Milk", "node_level": "SKU"},
      {"node_id": "SKU-2", "node_name": "Cheese", "node_level": "SKU", "children": []}
    ]},
    {"node_id": 42, "node_name": "Loose Item", "node_level": "SKU"}
  ]
}`

func TestDecodeHierarchy(t *testing.T) {
	got := DecodeHierarchy([]byte(samplePayload))

	want := model.Forest{{
		ID: "P0", Name: "All Products", Level: "L0", Count: model.IntPtr(3),
		Children: []model.TreeNode{
			{ID: "P1", Name: "Fresh", Level: "L1", Count: model.IntPtr(2), Children: []model.TreeNode{
				{ID: "SKU-1", Name: "Milk", Level: "SKU"},
				{ID: "SKU-2", Name: "Cheese", Level: "SKU"},
			}},
			{ID: "42", Name: "Loose Item", Level: "SKU"},
		},
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("DecodeHierarchy mismatch (-want +got):\n%s", diff)
	}
	if err := got[0].Validate(); err != nil {
		t.Errorf("decoded tree invalid: %v", err)
	}
}

func TestDecodeHierarchy_Degrades(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"MissingRoot", `{"children": [{"node_id": "x"}]}`},
		{"NullRoot", `{"root": null}`},
		{"Empty", `{}`},
		{"Malformed", `{"root": `},
		{"NotJSON", `<html>502</html>`},
		{"BadNodeID", `{"root": {"node_id": true}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DecodeHierarchy([]byte(tt.body))
			if len(got) != 0 {
				t.Errorf("expected empty forest, got %+v", got)
			}
		})
	}
}

func TestTransform_RootOnly(t *testing.T) {
	got := Transform(Payload{Root: &PayloadNode{NodeID: "L0", NodeName: "Chain"}})
	if len(got) != 1 || got[0].Count != nil || got[0].LeafCount() != 1 {
		t.Errorf("root-only payload = %+v", got)
	}
}

func TestTransform_NestedRootChildren(t *testing.T) {
	p := Payload{Root: &PayloadNode{
		NodeID: "L0", NodeName: "Chain",
		Children: []PayloadNode{{NodeID: "S1"}, {NodeID: "S2"}},
	}}
	got := Transform(p)
	if *got[0].Count != 2 {
		t.Errorf("root count = %d, want 2", *got[0].Count)
	}
}

func TestEncodePayload_RoundTrip(t *testing.T) {
	forest := DecodeHierarchy([]byte(samplePayload))
	data, err := EncodePayload(forest)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(forest, DecodeHierarchy(data)); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadHierarchyFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "products.json")
	if err := os.WriteFile(path, []byte(samplePayload), 0644); err != nil {
		t.Fatal(err)
	}

	forest, err := LoadHierarchyFile(path)
	if err != nil {
		t.Fatalf("LoadHierarchyFile: %v", err)
	}
	if forest[0].LeafCount() != 3 {
		t.Errorf("root count = %d", forest[0].LeafCount())
	}

	if _, err := LoadHierarchyFile(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("missing file should error")
	}
	bad := filepath.Join(dir, "bad.json")
	_ = os.WriteFile(bad, []byte("{"), 0644)
	if _, err := LoadHierarchyFile(bad); err == nil {
		t.Error("malformed file should error")
	}
}

func genPayloadNode(t *rapid.T, depth int, next *int) PayloadNode {
	*next++
	n := PayloadNode{NodeID: NodeID("n" + strconv.Itoa(*next)), NodeName: "node"}
	if depth < 5 {
		k := rapid.IntRange(0, 3).Draw(t, "k")
		for i := 0; i < k; i++ {
			n.Children = append(n.Children, genPayloadNode(t, depth+1, next))
		}
	}
	return n
}

func TestProperty_TransformCountInvariant(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		next := 0
		root := genPayloadNode(t, 0, &next)
		forest := Transform(Payload{Root: &PayloadNode{NodeID: root.NodeID, NodeName: root.NodeName}, Children: root.Children})

		var check func(n model.TreeNode) int
		check = func(n model.TreeNode) int {
			if len(n.Children) == 0 {
				if n.Count != nil {
					t.Fatalf("leaf %s carries count", n.ID)
				}
				return 1
			}
			sum := 0
			for _, c := range n.Children {
				sum += check(c)
			}
			if n.Count == nil || *n.Count != sum {
				t.Fatalf("node %s count %v, want %d", n.ID, n.Count, sum)
			}
			return sum
		}
		check(forest[0])
	})
}
