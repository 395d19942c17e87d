package mapjson

import (
	"errors"
	"io"

	"github.com/Faultbox/mapdump/pkg/scene"
)

// Encoder errors.
var (
	ErrNilVertex = errors.New("triangle references a nil vertex")
)

// Variant selects which vertex fields are written.
type Variant int

const (
	Minimal Variant = iota // xyz, rgba
	Full                   // xyz, rgba, uv
)

// String returns the variant name.
func (v Variant) String() string {
	switch v {
	case Minimal:
		return "minimal"
	case Full:
		return "full"
	default:
		return "unknown"
	}
}

// Options configures an Encoder.
type Options struct {
	Variant Variant
	// Frame positions are read in. Ignored when PinFrame is set.
	Frame scene.Frame
	// PinFrame forces each vertex's UseLocal flag to false before reading its
	// position, leaving the vertex in the world frame afterwards.
	PinFrame bool
}

// Encoder writes map geometry to a sink as it walks it.
type Encoder struct {
	e    *Emitter
	opts Options
}

// NewEncoder returns an encoder writing to w.
func NewEncoder(w io.Writer, opts Options) *Encoder {
	return &Encoder{e: NewEmitter(w), opts: opts}
}

// Flush writes buffered output to the sink.
func (enc *Encoder) Flush() error {
	return enc.e.Flush()
}

// Vertex writes {"xyz":[...],"rgba":[...]} and, for the full variant, "uv".
func (enc *Encoder) Vertex(v *scene.Vertex) error {
	if v == nil {
		return ErrNilVertex
	}

	var pos [3]float32
	if enc.opts.PinFrame {
		v.UseLocal = false
		pos = v.Current().Array()
	} else {
		pos = v.Position(enc.opts.Frame).Array()
	}

	e := enc.e
	return e.Object(func(o *Container) error {
		o.Field("xyz")
		e.Array(func(c *Container) error {
			for _, f := range pos {
				c.Next()
				e.Float32(f)
			}
			return nil
		})

		o.Field("rgba")
		e.Array(func(c *Container) error {
			for _, b := range v.RGBA() {
				c.Next()
				e.Int(int(b))
			}
			return nil
		})

		if enc.opts.Variant == Full {
			o.Field("uv")
			e.Array(func(c *Container) error {
				c.Next()
				e.Float32(v.UV.U)
				c.Next()
				e.Float32(v.UV.V)
				return nil
			})
		}
		return nil
	})
}

// Triangle writes the three vertices in slot order.
func (enc *Encoder) Triangle(t scene.Triangle) error {
	return enc.e.Array(func(c *Container) error {
		for _, v := range t.Vert {
			c.Next()
			if err := enc.Vertex(v); err != nil {
				return err
			}
		}
		return nil
	})
}

// Mesh writes {"texture":"...","triangles":[...]}.
func (enc *Encoder) Mesh(m *scene.TexturedMesh) error {
	e := enc.e
	return e.Object(func(o *Container) error {
		o.Field("texture")
		e.String(m.TextureName)

		o.Field("triangles")
		return e.Array(func(c *Container) error {
			for _, t := range m.Triangles {
				c.Next()
				if err := enc.Triangle(t); err != nil {
					return err
				}
			}
			return nil
		})
	})
}

// Meshes writes an array holding one object per mesh-bearing model, in tree
// order. Models without a mesh are skipped, so array positions do not line up
// with tree positions.
func (enc *Encoder) Meshes(tree *scene.ModelTree) error {
	return enc.e.Array(func(c *Container) error {
		for mesh := range tree.Meshes() {
			c.Next()
			if err := enc.Mesh(mesh); err != nil {
				return err
			}
		}
		return nil
	})
}

// Map writes {"bg_name":"...","meshes":[...]}.
func (enc *Encoder) Map(m *scene.Map) error {
	if m == nil {
		m = &scene.Map{}
	}
	e := enc.e
	return e.Object(func(o *Container) error {
		o.Field("bg_name")
		e.String(m.BGName)

		o.Field("meshes")
		return enc.Meshes(m.Models)
	})
}

// WriteMeshes writes the mesh array of tree to w in the minimal variant and
// flushes.
func WriteMeshes(w io.Writer, tree *scene.ModelTree) error {
	enc := NewEncoder(w, Options{Variant: Minimal})
	if err := enc.Meshes(tree); err != nil {
		return err
	}
	return enc.Flush()
}

// WriteMap writes the whole map to w in the full variant and flushes.
func WriteMap(w io.Writer, m *scene.Map) error {
	enc := NewEncoder(w, Options{Variant: Full})
	if err := enc.Map(m); err != nil {
		return err
	}
	return enc.Flush()
}
