package scene

import "iter"

// NodeKind tags a model by whether it carries mesh data.
type NodeKind int

const (
	NoMesh NodeKind = iota
	HasMesh
)

// Node is one step of a tree traversal.
type Node struct {
	Model *Model
	Kind  NodeKind
	Depth int
}

// ModelTree is an ordered forest of models.
type ModelTree struct {
	Roots []*Model
}

// NewModelTree returns a tree with the given root models.
func NewModelTree(roots ...*Model) *ModelTree {
	return &ModelTree{Roots: roots}
}

// Add appends a root model and returns it.
func (t *ModelTree) Add(m *Model) *Model {
	t.Roots = append(t.Roots, m)
	return m
}

// Nodes walks the tree depth-first, pre-order, children in insertion order.
// The order is stable and is the order meshes are serialized in.
func (t *ModelTree) Nodes() iter.Seq[Node] {
	return func(yield func(Node) bool) {
		if t == nil {
			return
		}
		for _, root := range t.Roots {
			if !walk(root, 0, yield) {
				return
			}
		}
	}
}

func walk(m *Model, depth int, yield func(Node) bool) bool {
	if m == nil {
		return true
	}
	kind := NoMesh
	if m.Mesh != nil {
		kind = HasMesh
	}
	if !yield(Node{Model: m, Kind: kind, Depth: depth}) {
		return false
	}
	for _, child := range m.Children {
		if !walk(child, depth+1, yield) {
			return false
		}
	}
	return true
}

// All yields every model in traversal order.
func (t *ModelTree) All() iter.Seq[*Model] {
	return func(yield func(*Model) bool) {
		for n := range t.Nodes() {
			if !yield(n.Model) {
				return
			}
		}
	}
}

// Meshes yields the mesh of every mesh-bearing model in traversal order.
func (t *ModelTree) Meshes() iter.Seq[*TexturedMesh] {
	return func(yield func(*TexturedMesh) bool) {
		for n := range t.Nodes() {
			if n.Kind != HasMesh {
				continue
			}
			if !yield(n.Model.Mesh) {
				return
			}
		}
	}
}

// Stats summarizes a tree.
type Stats struct {
	Models    int
	Meshes    int
	Triangles int
	Vertices  int // Distinct vertices referenced by triangles
	MaxDepth  int
}

// Stats walks the tree once and counts its contents.
func (t *ModelTree) Stats() Stats {
	var s Stats
	seen := make(map[*Vertex]struct{})
	for n := range t.Nodes() {
		s.Models++
		if n.Depth > s.MaxDepth {
			s.MaxDepth = n.Depth
		}
		if n.Kind != HasMesh {
			continue
		}
		s.Meshes++
		s.Triangles += len(n.Model.Mesh.Triangles)
		for _, tri := range n.Model.Mesh.Triangles {
			for _, v := range tri.Vert {
				if v != nil {
					seen[v] = struct{}{}
				}
			}
		}
	}
	s.Vertices = len(seen)
	return s
}
