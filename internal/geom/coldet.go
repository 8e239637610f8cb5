package geom

import "math"

// Collision describes a narrow-phase hit: Dir is the unit push direction and
// Pen the penetration depth along it.
type Collision struct {
	Dir Vec2
	Pen float64
}

// IntersectCircleCircle tests two circles. Dir points from a towards b.
func IntersectCircleCircle(posA Vec2, radA float64, posB Vec2, radB float64) (Collision, bool) {
	r := radA + radB
	d := posB.Sub(posA)
	distSqr := d.LengthSqr()
	if distSqr >= r*r {
		return Collision{}, false
	}
	dist := math.Sqrt(distSqr)
	dir := Vec2{X: 1}
	if dist > 1e-4 {
		dir = d.Mul(1 / dist)
	}
	return Collision{Dir: dir, Pen: r - dist}, true
}

// IntersectAABBCircle tests a box against a circle. Dir is the direction the
// circle must move to leave the box.
func IntersectAABBCircle(box AABB, pos Vec2, rad float64) (Collision, bool) {
	if box.Contains(pos) {
		// Centre inside: push out through the nearest face.
		e := Vec2{box.Width() / 2, box.Height() / 2}
		c := box.Center()
		d := pos.Sub(c)
		penX := e.X - math.Abs(d.X)
		penY := e.Y - math.Abs(d.Y)
		if penX < penY {
			return Collision{Dir: Vec2{X: sign(d.X)}, Pen: penX + rad}, true
		}
		return Collision{Dir: Vec2{Y: sign(d.Y)}, Pen: penY + rad}, true
	}
	closest := Vec2{clamp(pos.X, box.Min.X, box.Max.X), clamp(pos.Y, box.Min.Y, box.Max.Y)}
	d := pos.Sub(closest)
	distSqr := d.LengthSqr()
	if distSqr >= rad*rad {
		return Collision{}, false
	}
	dist := math.Sqrt(distSqr)
	return Collision{Dir: d.NormalizeSafe(Vec2{X: 1}), Pen: rad - dist}, true
}

// IntersectCollider tests a circle against a static collider and returns the
// push needed to move the circle out.
func IntersectCollider(c Collider, pos Vec2, rad float64) (Collision, bool) {
	if c.IsCircle {
		res, ok := IntersectCircleCircle(pos, rad, c.Circle.Pos, c.Circle.Rad)
		if !ok {
			return res, false
		}
		// flip so Dir points away from the collider
		return Collision{Dir: res.Dir.Neg(), Pen: res.Pen}, true
	}
	return IntersectAABBCircle(c.Box, pos, rad)
}

func sign(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}
