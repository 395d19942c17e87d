package snapshot

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/klauspost/compress/zstd"

	"github.com/Faultbox/mapdump/pkg/encoding"
	"github.com/Faultbox/mapdump/pkg/geom"
	"github.com/Faultbox/mapdump/pkg/scene"
)

// DefaultInternSize is the number of distinct strings kept by a decoder.
const DefaultInternSize = 4096

// BinaryDecoder decodes SMAP snapshots. Texture and background names are
// interned across every snapshot it decodes, so a batch over many maps that
// share textures keeps one copy of each name.
type BinaryDecoder struct {
	names   *lru.Cache[string, string]
	charset encoding.Charset // Empty follows the header flags
	maxBody uint64
}

var _ Decoder = (*BinaryDecoder)(nil)

// NewDecoder returns a decoder with an intern table of internSize entries.
// internSize <= 0 selects DefaultInternSize.
func NewDecoder(internSize int) (*BinaryDecoder, error) {
	if internSize <= 0 {
		internSize = DefaultInternSize
	}
	names, err := lru.New[string, string](internSize)
	if err != nil {
		return nil, fmt.Errorf("creating intern table: %w", err)
	}
	return &BinaryDecoder{names: names, maxBody: MaxBodySize}, nil
}

// SetCharset makes the decoder read every string as c regardless of the
// header flags. Snapshots from Korean editors carry EUC-KR names without a
// flag for it. An empty charset restores header detection.
func (d *BinaryDecoder) SetCharset(c encoding.Charset) {
	d.charset = c
}

// Parse decodes a snapshot held in memory with a fresh decoder.
func Parse(data []byte) (*scene.Map, error) {
	d, err := NewDecoder(0)
	if err != nil {
		return nil, err
	}
	return d.parse(data)
}

// ParseFile decodes a snapshot file from disk.
func ParseFile(path string) (*scene.Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot file: %w", err)
	}
	return Parse(data)
}

// Decode reads a whole snapshot from r.
func (d *BinaryDecoder) Decode(r io.Reader) (*scene.Map, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}
	return d.parse(data)
}

// DecodeFile decodes the snapshot at path.
func (d *BinaryDecoder) DecodeFile(path string) (*scene.Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot file: %w", err)
	}
	return d.parse(data)
}

func (d *BinaryDecoder) parse(data []byte) (*scene.Map, error) {
	if len(data) < headerSize {
		return nil, ErrTruncated
	}
	if string(data[0:4]) != magic {
		return nil, ErrInvalidMagic
	}

	version := Version{Major: data[4], Minor: data[5]}
	if !version.supported() {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedVersion, version)
	}
	flags := data[6]

	body := data[headerSize:]
	if flags&FlagCompressed != 0 {
		limit := d.maxBody
		if limit == 0 {
			limit = MaxBodySize
		}
		dec, err := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(limit))
		if err != nil {
			return nil, fmt.Errorf("creating zstd reader: %w", err)
		}
		defer dec.Close()
		body, err = dec.DecodeAll(body, nil)
		if errors.Is(err, zstd.ErrDecoderSizeExceeded) || errors.Is(err, zstd.ErrWindowSizeExceeded) {
			return nil, fmt.Errorf("%w: body over %d bytes", ErrTooLarge, limit)
		}
		if err != nil {
			return nil, fmt.Errorf("decompressing snapshot body: %w", err)
		}
	}

	charset := d.charset
	if charset == "" {
		charset = encoding.UTF8
		if flags&FlagShiftJIS != 0 {
			charset = encoding.ShiftJIS
		}
	}

	r := &reader{
		r:       bytes.NewReader(body),
		version: version,
		charset: charset,
		names:   d.names,
	}

	m := &scene.Map{BGName: r.name()}
	tree, err := r.tree()
	if err != nil {
		return nil, err
	}
	if r.err != nil {
		return nil, r.err
	}
	if r.r.Len() != 0 {
		return nil, fmt.Errorf("%w: %d bytes", ErrTrailingData, r.r.Len())
	}
	m.Models = tree
	return m, nil
}

// reader keeps the first error; later reads return zero values.
type reader struct {
	r       *bytes.Reader
	err     error
	version Version
	charset encoding.Charset
	names   *lru.Cache[string, string]
}

func (r *reader) read(v any) {
	if r.err != nil {
		return
	}
	if err := binary.Read(r.r, binary.LittleEndian, v); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			r.err = ErrTruncated
			return
		}
		r.err = err
	}
}

func (r *reader) vertexSize() int {
	size := 3*4 + 4
	if r.version.HasUV() {
		size += 2 * 4
	}
	return size
}

func (r *reader) u8() uint8 {
	var v uint8
	r.read(&v)
	return v
}

func (r *reader) count(what string) int {
	var n uint32
	r.read(&n)
	if r.err == nil && n > MaxCount {
		r.err = fmt.Errorf("%w: %d %s", ErrTooLarge, n, what)
		return 0
	}
	return int(n)
}

// name reads a length-prefixed string and interns it.
func (r *reader) name() string {
	var n uint16
	r.read(&n)
	if r.err != nil || n == 0 {
		return ""
	}
	if int(n) > r.r.Len() {
		r.err = ErrTruncated
		return ""
	}
	buf := make([]byte, n)
	r.read(buf)
	s := r.charset.Decode(buf)
	if r.names == nil {
		return s
	}
	if interned, ok := r.names.Get(s); ok {
		return interned
	}
	r.names.Add(s, s)
	return s
}

func (r *reader) tree() (*scene.ModelTree, error) {
	rootCount := r.count("root models")
	tree := scene.NewModelTree()
	for i := 0; i < rootCount && r.err == nil; i++ {
		m, err := r.model(geom.Identity(), 0)
		if err != nil {
			return nil, fmt.Errorf("parsing root model %d: %w", i, err)
		}
		tree.Add(m)
	}
	return tree, r.err
}

func (r *reader) model(parent geom.Mat4, depth int) (*scene.Model, error) {
	if depth >= MaxDepth {
		return nil, ErrTooDeep
	}

	m := &scene.Model{Name: r.name()}
	r.read(&m.Transform)
	if m.Transform.IsZero() {
		m.Transform = geom.Identity()
	}
	world := parent.Mul(m.Transform)

	if r.u8() != 0 {
		mesh, err := r.mesh(world)
		if err != nil {
			return nil, fmt.Errorf("model %q: %w", m.Name, err)
		}
		m.Mesh = mesh
	}

	childCount := r.count("children")
	if childCount > 0 {
		m.Children = make([]*scene.Model, 0, min(childCount, 64))
	}
	for i := 0; i < childCount && r.err == nil; i++ {
		child, err := r.model(world, depth+1)
		if err != nil {
			return nil, err
		}
		m.Children = append(m.Children, child)
	}
	return m, r.err
}

func (r *reader) mesh(world geom.Mat4) (*scene.TexturedMesh, error) {
	mesh := &scene.TexturedMesh{TextureName: r.name()}

	vertexCount := r.count("vertices")
	if r.err != nil {
		return nil, r.err
	}
	if vertexCount*r.vertexSize() > r.r.Len() {
		return nil, ErrTruncated
	}
	vertices := make([]scene.Vertex, vertexCount)
	for i := range vertices {
		v := &vertices[i]
		var local [3]float32
		var rgba [4]int8
		r.read(&local)
		r.read(&rgba)
		if r.version.HasUV() {
			var uv [2]float32
			r.read(&uv)
			v.UV = geom.Vec2{U: uv[0], V: uv[1]}
		}
		if r.err != nil {
			return nil, r.err
		}
		v.Local = geom.Vec3{X: local[0], Y: local[1], Z: local[2]}
		v.World = world.Apply(v.Local)
		v.UseLocal = true
		v.R, v.G, v.B, v.A = rgba[0], rgba[1], rgba[2], rgba[3]
	}

	triangleCount := r.count("triangles")
	if r.err != nil {
		return nil, r.err
	}
	if triangleCount*triangleSize > r.r.Len() {
		return nil, ErrTruncated
	}
	mesh.Triangles = make([]scene.Triangle, triangleCount)
	for i := range mesh.Triangles {
		var idx [3]uint32
		r.read(&idx)
		if r.err != nil {
			return nil, r.err
		}
		for slot, vi := range idx {
			if int(vi) >= vertexCount {
				return nil, fmt.Errorf("%w: triangle %d slot %d index %d of %d", ErrVertexIndex, i, slot, vi, vertexCount)
			}
			mesh.Triangles[i].Vert[slot] = &vertices[vi]
		}
	}
	return mesh, nil
}
