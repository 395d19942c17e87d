// Package scene holds the in-memory model tree of one decoded map snapshot.
package scene

import "github.com/Faultbox/mapdump/pkg/geom"

// Frame selects which coordinate representation of a vertex is read.
type Frame int

const (
	FrameWorld Frame = iota // Position after the model transforms are applied
	FrameLocal              // Position as stored in the mesh
)

// String returns the frame name.
func (f Frame) String() string {
	switch f {
	case FrameWorld:
		return "world"
	case FrameLocal:
		return "local"
	default:
		return "unknown"
	}
}

// Map is one decoded snapshot.
type Map struct {
	BGName string     // Background image name
	Models *ModelTree // Model hierarchy
}

// Vertex is a mesh vertex. Colour channels are stored signed, the way the
// snapshot carries them; use Unsigned to read their byte value.
type Vertex struct {
	Local      geom.Vec3
	World      geom.Vec3
	UseLocal   bool // Frame read by Current
	R, G, B, A int8
	UV         geom.Vec2
}

// Current returns the position in the frame selected by UseLocal.
func (v *Vertex) Current() geom.Vec3 {
	if v.UseLocal {
		return v.Local
	}
	return v.World
}

// Position returns the position in the given frame without touching UseLocal.
func (v *Vertex) Position(frame Frame) geom.Vec3 {
	if frame == FrameLocal {
		return v.Local
	}
	return v.World
}

// RGBA returns the colour channels as unsigned bytes.
func (v *Vertex) RGBA() [4]uint8 {
	return [4]uint8{Unsigned(v.R), Unsigned(v.G), Unsigned(v.B), Unsigned(v.A)}
}

// Unsigned reinterprets the bit pattern of b as an unsigned byte (-1 becomes 255).
func Unsigned(b int8) uint8 {
	return uint8(b)
}

// Signed is the inverse of Unsigned.
func Signed(b uint8) int8 {
	return int8(b)
}

// Triangle is three vertices in winding order.
type Triangle struct {
	Vert [3]*Vertex
}

// TexturedMesh is a triangle list drawn with a single texture.
type TexturedMesh struct {
	TextureName string
	Triangles   []Triangle
}

// Model is a node of the model tree.
type Model struct {
	Name      string
	Transform geom.Mat4     // Local transform relative to the parent
	Mesh      *TexturedMesh // nil for group nodes
	Children  []*Model
}

// NewModel returns a model with an identity transform.
func NewModel(name string, mesh *TexturedMesh) *Model {
	return &Model{Name: name, Transform: geom.Identity(), Mesh: mesh}
}

// AddChild appends child and returns it.
func (m *Model) AddChild(child *Model) *Model {
	m.Children = append(m.Children, child)
	return child
}
