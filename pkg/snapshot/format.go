// Package snapshot reads and writes the binary map snapshot format.
//
// Layout (little endian):
//
//	header   "SMAP" major:u8 minor:u8 flags:u8 reserved:u8
//	body     bgName:str rootCount:u32 node*
//	node     name:str transform:f32[16] hasMesh:u8 [mesh] childCount:u32 node*
//	mesh     texture:str vertexCount:u32 vertex* triangleCount:u32 (i0 i1 i2:u32)*
//	vertex   local:f32[3] rgba:i8[4] [uv:f32[2] (v1.1+)]
//	str      length:u16 bytes
//
// With FlagCompressed the body is a zstd frame of at most MaxBodySize bytes
// once decompressed. With FlagShiftJIS every string is Shift-JIS encoded.
package snapshot

import (
	"errors"
	"fmt"
	"io"

	"github.com/Faultbox/mapdump/pkg/scene"
)

// Snapshot format errors.
var (
	ErrInvalidMagic       = errors.New("invalid snapshot magic: expected 'SMAP'")
	ErrUnsupportedVersion = errors.New("unsupported snapshot version")
	ErrTruncated          = errors.New("truncated snapshot data")
	ErrVertexIndex        = errors.New("triangle vertex index out of range")
	ErrTooDeep            = errors.New("model tree too deep")
	ErrTooLarge           = errors.New("snapshot count exceeds limit")
	ErrNilVertex          = errors.New("triangle references a nil vertex")
	ErrTrailingData       = errors.New("trailing data after snapshot body")
)

const (
	magic      = "SMAP"
	headerSize = 8

	// MaxDepth bounds model nesting.
	MaxDepth = 256
	// MaxCount bounds every length prefix except strings.
	MaxCount = 1 << 20

	// MaxBodySize bounds a decompressed body: room for one mesh at the
	// vertex and triangle limits, twice over.
	MaxBodySize = 2 * MaxCount * (maxVertexSize + triangleSize)

	maxVertexSize = 3*4 + 4 + 2*4
	triangleSize  = 3 * 4
)

// Header flags.
const (
	FlagCompressed uint8 = 1 << 0 // Body is zstd compressed
	FlagShiftJIS   uint8 = 1 << 1 // Strings are Shift-JIS
)

// Version is the snapshot format version.
type Version struct {
	Major uint8
	Minor uint8
}

// CurrentVersion is written by Encode unless told otherwise.
var CurrentVersion = Version{Major: 1, Minor: 1}

// String returns the version as "Major.Minor".
func (v Version) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// AtLeast returns true if version is >= major.minor.
func (v Version) AtLeast(major, minor uint8) bool {
	if v.Major > major {
		return true
	}
	if v.Major == major && v.Minor >= minor {
		return true
	}
	return false
}

// HasUV reports whether vertices carry texture coordinates.
func (v Version) HasUV() bool {
	return v.AtLeast(1, 1)
}

func (v Version) supported() bool {
	return v.Major == 1 && v.Minor <= CurrentVersion.Minor
}

// Decoder turns a persisted snapshot into a scene.
type Decoder interface {
	Decode(r io.Reader) (*scene.Map, error)
}
