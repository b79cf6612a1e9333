// Package geo provides the hit tests used to pick markers with the pointer.
// All coordinates are map texture pixels; there is no spatial reference system.
package geo

import (
	geom "github.com/peterstace/simplefeatures/geom"

	"github.com/tdmap/mapbuilder/pkg/core"
)

// XY converts a core vector to a simplefeatures coordinate.
func XY(v core.Vec2) geom.XY {
	return geom.XY{X: v.X, Y: v.Y}
}

// InCircle reports whether p lies strictly inside the circle at center.
func InCircle(p, center core.Vec2, radius float64) bool {
	d := XY(p).Sub(XY(center))
	return d.Dot(d) < radius*radius
}

// Rect is an axis-aligned rectangle with Min <= Max on both axes.
type Rect struct {
	Min core.Vec2
	Max core.Vec2
}

// RectFromCorners builds the rectangle spanned by two arbitrary corners,
// e.g. a drag start and the current pointer position.
func RectFromCorners(a, b core.Vec2) Rect {
	return Rect{
		Min: core.Vec2{X: min(a.X, b.X), Y: min(a.Y, b.Y)},
		Max: core.Vec2{X: max(a.X, b.X), Y: max(a.Y, b.Y)},
	}
}

// Contains reports whether p lies inside r, edges included.
func (r Rect) Contains(p core.Vec2) bool {
	return p.X >= r.Min.X && p.X <= r.Max.X && p.Y >= r.Min.Y && p.Y <= r.Max.Y
}

// Size returns the width and height of r.
func (r Rect) Size() core.Vec2 {
	return r.Max.Sub(r.Min)
}

// Rescale maps pos from a window of size from onto a texture of size to.
// A zero dimension in from yields zero on that axis.
func Rescale(pos, from, to core.Vec2) core.Vec2 {
	var out core.Vec2
	if from.X != 0 {
		out.X = pos.X / from.X * to.X
	}
	if from.Y != 0 {
		out.Y = pos.Y / from.Y * to.Y
	}
	return out
}
