package snapshot

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/klauspost/compress/zstd"

	"github.com/Faultbox/mapdump/pkg/encoding"
	"github.com/Faultbox/mapdump/pkg/geom"
	"github.com/Faultbox/mapdump/pkg/scene"
)

// EncodeOptions controls how Encode lays out a snapshot.
type EncodeOptions struct {
	Version  Version // Zero selects CurrentVersion
	Compress bool    // zstd-compress the body
	ShiftJIS bool    // Store strings as Shift-JIS
}

// Encode writes m to w. Vertex positions are stored in the local frame
// together with each model's transform.
func Encode(w io.Writer, m *scene.Map, opts EncodeOptions) error {
	version := opts.Version
	if version == (Version{}) {
		version = CurrentVersion
	}
	if !version.supported() {
		return fmt.Errorf("%w: %s", ErrUnsupportedVersion, version)
	}

	var flags uint8
	charset := encoding.UTF8
	if opts.ShiftJIS {
		flags |= FlagShiftJIS
		charset = encoding.ShiftJIS
	}

	enc := &writer{version: version, charset: charset}
	if m == nil {
		m = &scene.Map{}
	}
	if err := enc.mapBody(m); err != nil {
		return err
	}

	body := enc.buf.Bytes()
	if opts.Compress {
		flags |= FlagCompressed
		zw, err := zstd.NewWriter(nil)
		if err != nil {
			return fmt.Errorf("creating zstd writer: %w", err)
		}
		body = zw.EncodeAll(body, nil)
		zw.Close()
	}

	header := []byte{magic[0], magic[1], magic[2], magic[3], version.Major, version.Minor, flags, 0}
	if _, err := w.Write(header); err != nil {
		return err
	}
	_, err := w.Write(body)
	return err
}

// EncodeFile writes m to path, replacing any existing file.
func EncodeFile(path string, m *scene.Map, opts EncodeOptions) error {
	var buf bytes.Buffer
	if err := Encode(&buf, m, opts); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}

type writer struct {
	buf     bytes.Buffer
	version Version
	charset encoding.Charset
}

func (w *writer) put(v any) {
	// Writes to a bytes.Buffer cannot fail.
	_ = binary.Write(&w.buf, binary.LittleEndian, v)
}

func (w *writer) count(n int, what string) error {
	if n > MaxCount {
		return fmt.Errorf("%w: %d %s", ErrTooLarge, n, what)
	}
	w.put(uint32(n))
	return nil
}

func (w *writer) str(s string) error {
	b := w.charset.Encode(s)
	if len(b) > math.MaxUint16 {
		return fmt.Errorf("%w: string of %d bytes", ErrTooLarge, len(b))
	}
	w.put(uint16(len(b)))
	w.buf.Write(b)
	return nil
}

func (w *writer) mapBody(m *scene.Map) error {
	if err := w.str(m.BGName); err != nil {
		return err
	}
	var roots []*scene.Model
	if m.Models != nil {
		for _, root := range m.Models.Roots {
			if root != nil {
				roots = append(roots, root)
			}
		}
	}
	if err := w.count(len(roots), "root models"); err != nil {
		return err
	}
	for _, root := range roots {
		if err := w.model(root, 0); err != nil {
			return err
		}
	}
	return nil
}

func (w *writer) model(m *scene.Model, depth int) error {
	if depth >= MaxDepth {
		return ErrTooDeep
	}
	if err := w.str(m.Name); err != nil {
		return err
	}
	transform := m.Transform
	if transform.IsZero() {
		transform = geom.Identity()
	}
	w.put(transform)

	if m.Mesh == nil {
		w.put(uint8(0))
	} else {
		w.put(uint8(1))
		if err := w.mesh(m.Mesh); err != nil {
			return fmt.Errorf("model %q: %w", m.Name, err)
		}
	}

	var children []*scene.Model
	for _, c := range m.Children {
		if c != nil {
			children = append(children, c)
		}
	}
	if err := w.count(len(children), "children"); err != nil {
		return err
	}
	for _, c := range children {
		if err := w.model(c, depth+1); err != nil {
			return err
		}
	}
	return nil
}

func (w *writer) mesh(mesh *scene.TexturedMesh) error {
	if err := w.str(mesh.TextureName); err != nil {
		return err
	}

	// Vertex table in order of first use.
	index := make(map[*scene.Vertex]uint32)
	var table []*scene.Vertex
	for _, t := range mesh.Triangles {
		for _, v := range t.Vert {
			if v == nil {
				return ErrNilVertex
			}
			if _, ok := index[v]; !ok {
				index[v] = uint32(len(table))
				table = append(table, v)
			}
		}
	}

	if err := w.count(len(table), "vertices"); err != nil {
		return err
	}
	for _, v := range table {
		w.put(v.Local.Array())
		w.put([4]int8{v.R, v.G, v.B, v.A})
		if w.version.HasUV() {
			w.put([2]float32{v.UV.U, v.UV.V})
		}
	}

	if err := w.count(len(mesh.Triangles), "triangles"); err != nil {
		return err
	}
	for _, t := range mesh.Triangles {
		w.put([3]uint32{index[t.Vert[0]], index[t.Vert[1]], index[t.Vert[2]]})
	}
	return nil
}
