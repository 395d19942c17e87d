package snapshot

import (
	"bytes"
	"encoding/binary"
	"errors"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zstd"

	"github.com/Faultbox/mapdump/pkg/encoding"
	"github.com/Faultbox/mapdump/pkg/geom"
	"github.com/Faultbox/mapdump/pkg/scene"
)

func TestVersion_String(t *testing.T) {
	if got := (Version{1, 1}).String(); got != "1.1" {
		t.Errorf("got %q, want 1.1", got)
	}
}

func TestVersion_AtLeast(t *testing.T) {
	tests := []struct {
		version Version
		major   uint8
		minor   uint8
		want    bool
	}{
		{Version{1, 1}, 1, 1, true},
		{Version{1, 1}, 1, 0, true},
		{Version{1, 0}, 1, 1, false},
		{Version{2, 0}, 1, 9, true},
	}

	for _, tt := range tests {
		t.Run(tt.version.String(), func(t *testing.T) {
			if got := tt.version.AtLeast(tt.major, tt.minor); got != tt.want {
				t.Errorf("AtLeast(%d, %d) = %v, want %v", tt.major, tt.minor, got, tt.want)
			}
		})
	}
}

func TestParse_HeaderValidation(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		wantErr error
	}{
		{"empty data", []byte{}, ErrTruncated},
		{"short header", []byte("SMA"), ErrTruncated},
		{"bad magic", makeHeader("XMAP", 1, 1, 0), ErrInvalidMagic},
		{"version 0.9", makeHeader(magic, 0, 9, 0), ErrUnsupportedVersion},
		{"version 1.2", makeHeader(magic, 1, 2, 0), ErrUnsupportedVersion},
		{"version 2.0", makeHeader(magic, 2, 0, 0), ErrUnsupportedVersion},
		{"header only", makeHeader(magic, 1, 1, 0), ErrTruncated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.data)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("got %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestParse_MinimalBody(t *testing.T) {
	data := makeHeader(magic, 1, 0, 0)
	data = appendString(data, "kmr_bg")
	data = binary.LittleEndian.AppendUint32(data, 0)

	m, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if m.BGName != "kmr_bg" {
		t.Errorf("BGName = %q, want kmr_bg", m.BGName)
	}
	if m.Models == nil || len(m.Models.Roots) != 0 {
		t.Errorf("expected empty model tree, got %+v", m.Models)
	}
}

func TestParse_TrailingData(t *testing.T) {
	data := makeHeader(magic, 1, 1, 0)
	data = appendString(data, "")
	data = binary.LittleEndian.AppendUint32(data, 0)
	data = append(data, 0xAA)

	if _, err := Parse(data); !errors.Is(err, ErrTrailingData) {
		t.Errorf("got %v, want ErrTrailingData", err)
	}
}

func TestParse_VertexIndexOutOfRange(t *testing.T) {
	data := makeHeader(magic, 1, 0, 0)
	data = appendString(data, "")
	data = binary.LittleEndian.AppendUint32(data, 1) // roots
	data = appendString(data, "m")
	data = appendTransform(data, geom.Identity())
	data = append(data, 1) // has mesh
	data = appendString(data, "tex")
	data = binary.LittleEndian.AppendUint32(data, 1) // vertices
	data = append(data, make([]byte, 16)...)         // xyz + rgba (v1.0, no uv)
	data = binary.LittleEndian.AppendUint32(data, 1) // triangles
	data = binary.LittleEndian.AppendUint32(data, 0)
	data = binary.LittleEndian.AppendUint32(data, 0)
	data = binary.LittleEndian.AppendUint32(data, 5)
	data = binary.LittleEndian.AppendUint32(data, 0) // children

	if _, err := Parse(data); !errors.Is(err, ErrVertexIndex) {
		t.Errorf("got %v, want ErrVertexIndex", err)
	}
}

func TestParse_CountLimits(t *testing.T) {
	data := makeHeader(magic, 1, 1, 0)
	data = appendString(data, "")
	data = binary.LittleEndian.AppendUint32(data, MaxCount+1)

	if _, err := Parse(data); !errors.Is(err, ErrTooLarge) {
		t.Errorf("got %v, want ErrTooLarge", err)
	}
}

func TestParse_HugeVertexCountIsTruncated(t *testing.T) {
	data := makeHeader(magic, 1, 1, 0)
	data = appendString(data, "")
	data = binary.LittleEndian.AppendUint32(data, 1)
	data = appendString(data, "m")
	data = appendTransform(data, geom.Identity())
	data = append(data, 1)
	data = appendString(data, "tex")
	data = binary.LittleEndian.AppendUint32(data, MaxCount)

	if _, err := Parse(data); !errors.Is(err, ErrTruncated) {
		t.Errorf("got %v, want ErrTruncated", err)
	}
}

func TestParse_TooDeep(t *testing.T) {
	var buf bytes.Buffer
	root := scene.NewModel("n0", nil)
	cur := root
	for i := 1; i < MaxDepth-1; i++ {
		cur = cur.AddChild(scene.NewModel("n", nil))
	}
	if err := Encode(&buf, &scene.Map{Models: scene.NewModelTree(root)}, EncodeOptions{}); err != nil {
		t.Fatalf("Encode at depth limit: %v", err)
	}
	if _, err := Parse(buf.Bytes()); err != nil {
		t.Fatalf("Parse at depth limit: %v", err)
	}

	cur.AddChild(scene.NewModel("deep", nil)).AddChild(scene.NewModel("deeper", nil))
	if err := Encode(&bytes.Buffer{}, &scene.Map{Models: scene.NewModelTree(root)}, EncodeOptions{}); !errors.Is(err, ErrTooDeep) {
		t.Errorf("Encode past depth limit = %v, want ErrTooDeep", err)
	}
}

func TestEncode_NilVertex(t *testing.T) {
	mesh := &scene.TexturedMesh{Triangles: []scene.Triangle{{}}}
	m := &scene.Map{Models: scene.NewModelTree(scene.NewModel("m", mesh))}
	if err := Encode(&bytes.Buffer{}, m, EncodeOptions{}); !errors.Is(err, ErrNilVertex) {
		t.Errorf("got %v, want ErrNilVertex", err)
	}
}

func TestEncode_UnsupportedVersion(t *testing.T) {
	err := Encode(&bytes.Buffer{}, &scene.Map{}, EncodeOptions{Version: Version{3, 0}})
	if !errors.Is(err, ErrUnsupportedVersion) {
		t.Errorf("got %v, want ErrUnsupportedVersion", err)
	}
}

// sampleMap builds:
//
//	world (translate 100,0,0)
//	  floor (mesh, 2 triangles sharing an edge)
//	  props (no mesh)
//	    crate (mesh, scale 2)
//	sky (mesh, empty)
func sampleMap() *scene.Map {
	v := func(x, y, z float32, r int8) *scene.Vertex {
		return &scene.Vertex{
			Local: geom.Vec3{X: x, Y: y, Z: z},
			R:     r,
			G:     -1,
			B:     0,
			A:     -128,
			UV:    geom.Vec2{U: x * 2, V: z * 2},
		}
	}
	a, b, c, d := v(0, 0, 0, 1), v(10, 0, 0, 2), v(10, 0, 10, 3), v(0, 0, 10, 4)

	world := scene.NewModel("world", nil)
	world.Transform = geom.Translate(100, 0, 0)
	world.AddChild(scene.NewModel("floor", &scene.TexturedMesh{
		TextureName: "floor_tex",
		Triangles: []scene.Triangle{
			{Vert: [3]*scene.Vertex{a, b, c}},
			{Vert: [3]*scene.Vertex{a, c, d}},
		},
	}))
	props := world.AddChild(scene.NewModel("props", nil))
	crate := props.AddChild(scene.NewModel("crate", &scene.TexturedMesh{
		TextureName: "crate_tex",
		Triangles:   []scene.Triangle{{Vert: [3]*scene.Vertex{v(1, 1, 1, 5), v(2, 1, 1, 6), v(1, 2, 1, 7)}}},
	}))
	crate.Transform = geom.Scale(2, 2, 2)

	sky := scene.NewModel("sky", &scene.TexturedMesh{TextureName: "sky_tex"})
	return &scene.Map{BGName: "kmr_bg", Models: scene.NewModelTree(world, sky)}
}

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		opts EncodeOptions
	}{
		{"plain", EncodeOptions{}},
		{"compressed", EncodeOptions{Compress: true}},
		{"shift-jis", EncodeOptions{ShiftJIS: true}},
		{"compressed shift-jis", EncodeOptions{Compress: true, ShiftJIS: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			original := sampleMap()
			var buf bytes.Buffer
			if err := Encode(&buf, original, tt.opts); err != nil {
				t.Fatalf("Encode: %v", err)
			}

			d, err := NewDecoder(16)
			if err != nil {
				t.Fatalf("NewDecoder: %v", err)
			}
			m, err := d.Decode(&buf)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}

			if m.BGName != "kmr_bg" {
				t.Errorf("BGName = %q", m.BGName)
			}

			var names []string
			for model := range m.Models.All() {
				names = append(names, model.Name)
			}
			wantNames := []string{"world", "floor", "props", "crate", "sky"}
			if len(names) != len(wantNames) {
				t.Fatalf("models = %v, want %v", names, wantNames)
			}
			for i := range wantNames {
				if names[i] != wantNames[i] {
					t.Errorf("model %d = %q, want %q", i, names[i], wantNames[i])
				}
			}

			stats := m.Models.Stats()
			if stats.Meshes != 3 || stats.Triangles != 3 || stats.Vertices != 7 {
				t.Errorf("stats = %+v", stats)
			}

			var meshes []*scene.TexturedMesh
			for mesh := range m.Models.Meshes() {
				meshes = append(meshes, mesh)
			}
			floor, crate, sky := meshes[0], meshes[1], meshes[2]

			if floor.TextureName != "floor_tex" || crate.TextureName != "crate_tex" || sky.TextureName != "sky_tex" {
				t.Errorf("textures = %q %q %q", floor.TextureName, crate.TextureName, sky.TextureName)
			}
			if len(sky.Triangles) != 0 {
				t.Errorf("sky triangles = %d, want 0", len(sky.Triangles))
			}

			// Shared vertices stay shared.
			if floor.Triangles[0].Vert[0] != floor.Triangles[1].Vert[0] {
				t.Error("shared vertex was duplicated")
			}

			// World = parent translate applied to local.
			v := floor.Triangles[0].Vert[1]
			if v.Local != (geom.Vec3{X: 10}) || v.World != (geom.Vec3{X: 110}) {
				t.Errorf("floor vertex local=%v world=%v", v.Local, v.World)
			}
			if !v.UseLocal {
				t.Error("decoded vertices start in the local frame")
			}
			if v.R != 2 || v.G != -1 || v.A != -128 {
				t.Errorf("colour = %d %d %d %d", v.R, v.G, v.B, v.A)
			}
			if v.UV != (geom.Vec2{U: 20, V: 0}) {
				t.Errorf("uv = %v", v.UV)
			}

			// Crate: translate(100) * scale(2).
			cv := crate.Triangles[0].Vert[0]
			if cv.World != (geom.Vec3{X: 102, Y: 2, Z: 2}) {
				t.Errorf("crate world = %v, want (102, 2, 2)", cv.World)
			}
		})
	}
}

func TestRoundTrip_Version10DropsUV(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, sampleMap(), EncodeOptions{Version: Version{1, 0}}); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	m, err := Parse(buf.Bytes())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	for mesh := range m.Models.Meshes() {
		for _, tri := range mesh.Triangles {
			for _, v := range tri.Vert {
				if v.UV != (geom.Vec2{}) {
					t.Fatalf("v1.0 vertex has uv %v", v.UV)
				}
			}
		}
	}
}

func TestDecoder_InternsNames(t *testing.T) {
	var buf bytes.Buffer
	Encode(&buf, sampleMap(), EncodeOptions{})
	data := buf.Bytes()

	d, err := NewDecoder(0)
	if err != nil {
		t.Fatalf("NewDecoder: %v", err)
	}
	first, err := d.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if _, err := d.Decode(bytes.NewReader(data)); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !d.names.Contains(first.BGName) || !d.names.Contains("floor_tex") {
		t.Error("names should be kept in the intern table")
	}
}

func TestEncodeFile_ParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kmr_00.map")
	if err := EncodeFile(path, sampleMap(), EncodeOptions{Compress: true}); err != nil {
		t.Fatalf("EncodeFile: %v", err)
	}
	m, err := ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if m.Models.Stats().Models != 5 {
		t.Errorf("models = %d, want 5", m.Models.Stats().Models)
	}

	if _, err := ParseFile(filepath.Join(t.TempDir(), "missing.map")); err == nil {
		t.Error("ParseFile on a missing file should fail")
	}
}

func TestDecoder_CharsetOverride(t *testing.T) {
	const bg = "프론테라"
	data := makeHeader(magic, 1, 1, 0)
	data = appendString(data, string(encoding.EUCKR.Encode(bg)))
	data = binary.LittleEndian.AppendUint32(data, 0)

	d, err := NewDecoder(0)
	if err != nil {
		t.Fatalf("NewDecoder: %v", err)
	}

	m, err := d.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if m.BGName == bg {
		t.Fatal("EUC-KR bytes should not decode as UTF-8")
	}

	d.SetCharset(encoding.EUCKR)
	m, err = d.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Decode with EUC-KR: %v", err)
	}
	if m.BGName != bg {
		t.Errorf("BGName = %q, want %q", m.BGName, bg)
	}

	// The override wins over the header flag too.
	sjis := makeHeader(magic, 1, 1, FlagShiftJIS)
	sjis = append(sjis, data[headerSize:]...)
	m, err = d.Decode(bytes.NewReader(sjis))
	if err != nil {
		t.Fatalf("Decode with Shift-JIS flag: %v", err)
	}
	if m.BGName != bg {
		t.Errorf("BGName with Shift-JIS flag = %q, want %q", m.BGName, bg)
	}
}

func TestParse_CompressedBodyLimit(t *testing.T) {
	zw, err := zstd.NewWriter(nil)
	if err != nil {
		t.Fatalf("zstd.NewWriter: %v", err)
	}
	// Zeros compress to a few bytes but expand to 64 KiB.
	body := zw.EncodeAll(make([]byte, 64<<10), nil)
	zw.Close()
	data := append(makeHeader(magic, 1, 1, FlagCompressed), body...)

	d, err := NewDecoder(0)
	if err != nil {
		t.Fatalf("NewDecoder: %v", err)
	}
	d.maxBody = 4 << 10
	if _, err := d.Decode(bytes.NewReader(data)); !errors.Is(err, ErrTooLarge) {
		t.Errorf("over limit: got %v, want ErrTooLarge", err)
	}

	// Under the default limit the body decompresses and fails on content.
	if _, err := Parse(data); !errors.Is(err, ErrTrailingData) {
		t.Errorf("default limit: got %v, want ErrTrailingData", err)
	}
}

// Helper functions for creating test data

func makeHeader(m string, major, minor, flags uint8) []byte {
	data := make([]byte, 0, 64)
	data = append(data, m...)
	return append(data, major, minor, flags, 0)
}

func appendString(data []byte, s string) []byte {
	data = binary.LittleEndian.AppendUint16(data, uint16(len(s)))
	return append(data, s...)
}

func appendTransform(data []byte, m geom.Mat4) []byte {
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, m)
	return append(data, buf.Bytes()...)
}
