package mapjson

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/Faultbox/mapdump/pkg/geom"
	"github.com/Faultbox/mapdump/pkg/scene"
)

// Decode errors.
var (
	ErrEmptyDocument = errors.New("empty map document")
)

// Document is a parsed map dump.
type Document struct {
	BGName string    `json:"bg_name"`
	Meshes []MeshDoc `json:"meshes"`
}

// MeshDoc is one entry of the meshes array.
type MeshDoc struct {
	Texture   string         `json:"texture"`
	Triangles [][3]VertexDoc `json:"triangles"`
}

// VertexDoc is one serialized vertex. UV is nil for minimal dumps.
type VertexDoc struct {
	XYZ  [3]float32  `json:"xyz"`
	RGBA [4]uint8    `json:"rgba"`
	UV   *[2]float32 `json:"uv,omitempty"`
}

// Decode reads either a whole-map object or a bare meshes array.
// A bare array yields a Document with an empty BGName.
func Decode(r io.Reader) (*Document, error) {
	br := bufio.NewReader(r)
	first, err := peekNonSpace(br)
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(br)
	doc := &Document{}
	switch first {
	case '{':
		err = dec.Decode(doc)
	case '[':
		err = dec.Decode(&doc.Meshes)
	default:
		return nil, fmt.Errorf("unexpected leading byte %q", first)
	}
	if err != nil {
		return nil, fmt.Errorf("decoding map document: %w", err)
	}
	return doc, nil
}

func peekNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err == io.EOF {
			return 0, ErrEmptyDocument
		}
		if err != nil {
			return 0, err
		}
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		}
		return b, br.UnreadByte()
	}
}

// TriangleCount returns the number of triangles over all meshes.
func (d *Document) TriangleCount() int {
	n := 0
	for _, m := range d.Meshes {
		n += len(m.Triangles)
	}
	return n
}

// ToMap rebuilds a scene from the document. Every mesh becomes a root model
// with an identity transform, so local and world positions coincide.
func (d *Document) ToMap() *scene.Map {
	tree := scene.NewModelTree()
	for i, md := range d.Meshes {
		mesh := &scene.TexturedMesh{
			TextureName: md.Texture,
			Triangles:   make([]scene.Triangle, 0, len(md.Triangles)),
		}
		for _, td := range md.Triangles {
			var tri scene.Triangle
			for slot, vd := range td {
				tri.Vert[slot] = vd.vertex()
			}
			mesh.Triangles = append(mesh.Triangles, tri)
		}
		tree.Add(scene.NewModel(fmt.Sprintf("mesh%03d", i), mesh))
	}
	return &scene.Map{BGName: d.BGName, Models: tree}
}

func (vd VertexDoc) vertex() *scene.Vertex {
	pos := geom.Vec3{X: vd.XYZ[0], Y: vd.XYZ[1], Z: vd.XYZ[2]}
	v := &scene.Vertex{
		Local: pos,
		World: pos,
		R:     scene.Signed(vd.RGBA[0]),
		G:     scene.Signed(vd.RGBA[1]),
		B:     scene.Signed(vd.RGBA[2]),
		A:     scene.Signed(vd.RGBA[3]),
	}
	if vd.UV != nil {
		v.UV = geom.Vec2{U: vd.UV[0], V: vd.UV[1]}
	}
	return v
}
