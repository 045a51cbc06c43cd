package system

import (
	"math"

	"github.com/kmdouglass/cherrytrace/pkg/optics/geom"
)

// Cursor walks the optical axis surface by surface, tracking its position in
// the global frame. Its forward direction flips at every reflecting surface
// so that subsequent gap thicknesses accumulate in the reversed direction.
type Cursor struct {
	pos geom.Vec3
	dir geom.Vec3
}

// NewCursor creates a cursor at the given axial position with forward
// direction +z.
func NewCursor(z float64) Cursor {
	return Cursor{pos: geom.NewVec3(0, 0, z), dir: geom.NewVec3(0, 0, 1)}
}

// Pos returns the cursor's current position.
func (c Cursor) Pos() geom.Vec3 {
	return c.pos
}

// Advance moves the cursor by distance along its current forward direction.
// Advancing from negative infinity by positive infinity lands the cursor
// exactly at the origin: this is how an object at infinity places the first
// interior surface at z = 0 without producing NaNs from -Inf + Inf.
func (c *Cursor) Advance(distance float64) {
	if c.pos.Z == math.Inf(-1) && distance == math.Inf(1) {
		c.pos.Z = 0
		return
	}
	c.pos = c.pos.Add(c.dir.Scale(distance))
}

// Invert reverses the cursor's forward direction.
func (c *Cursor) Invert() {
	c.dir = c.dir.Neg()
}
