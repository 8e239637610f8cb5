package geom

import "math"

// AABB is an axis-aligned box. Min is inclusive, Max is inclusive.
type AABB struct {
	Min Vec2
	Max Vec2
}

// Extents returns the box centred at pos with half sizes ext.
func Extents(pos, ext Vec2) AABB {
	return AABB{Min: pos.Sub(ext), Max: pos.Add(ext)}
}

// PointBox is the degenerate box at p.
func PointBox(p Vec2) AABB {
	return AABB{Min: p, Max: p}
}

func (b AABB) Center() Vec2 {
	return Vec2{(b.Min.X + b.Max.X) / 2, (b.Min.Y + b.Max.Y) / 2}
}

func (b AABB) Width() float64  { return b.Max.X - b.Min.X }
func (b AABB) Height() float64 { return b.Max.Y - b.Min.Y }

// Overlaps reports whether the two boxes share any point (touching counts).
func (b AABB) Overlaps(o AABB) bool {
	return b.Min.X <= o.Max.X && b.Max.X >= o.Min.X &&
		b.Min.Y <= o.Max.Y && b.Max.Y >= o.Min.Y
}

func (b AABB) Contains(p Vec2) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X && p.Y >= b.Min.Y && p.Y <= b.Max.Y
}

// Clamp returns p moved inside b shrunk by margin on every side.
func (b AABB) Clamp(p Vec2, margin float64) Vec2 {
	return Vec2{
		X: clamp(p.X, b.Min.X+margin, b.Max.X-margin),
		Y: clamp(p.Y, b.Min.Y+margin, b.Max.Y-margin),
	}
}

// Circle is a circle collider.
type Circle struct {
	Pos Vec2
	Rad float64
}

func (c Circle) Bounds() AABB {
	return Extents(c.Pos, Vec2{c.Rad, c.Rad})
}

// Collider is either a circle or a box, the two shapes static geometry uses.
type Collider struct {
	IsCircle bool
	Circle   Circle
	Box      AABB
}

func CircleCollider(pos Vec2, rad float64) Collider {
	return Collider{IsCircle: true, Circle: Circle{Pos: pos, Rad: rad}}
}

func BoxCollider(box AABB) Collider {
	return Collider{Box: box}
}

func (c Collider) Bounds() AABB {
	if c.IsCircle {
		return c.Circle.Bounds()
	}
	return c.Box
}

func clamp(v, lo, hi float64) float64 {
	if lo > hi {
		return (lo + hi) / 2
	}
	return math.Max(lo, math.Min(hi, v))
}
