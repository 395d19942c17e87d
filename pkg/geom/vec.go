// Package geom provides the small vector and matrix types used by map geometry.
package geom

// Vec2 is a 2D vector, used for texture coordinates.
type Vec2 struct {
	U, V float32
}

// Vec3 is a 3D position.
type Vec3 struct {
	X, Y, Z float32
}

// Array returns the components as [x, y, z].
func (v Vec3) Array() [3]float32 {
	return [3]float32{v.X, v.Y, v.Z}
}
