package geom

import "math"

// Vec2 is a 2D vector in world units.
type Vec2 struct {
	X float64
	Y float64
}

func V(x, y float64) Vec2 { return Vec2{X: x, Y: y} }

func (a Vec2) Add(b Vec2) Vec2        { return Vec2{a.X + b.X, a.Y + b.Y} }
func (a Vec2) Sub(b Vec2) Vec2        { return Vec2{a.X - b.X, a.Y - b.Y} }
func (a Vec2) Mul(s float64) Vec2     { return Vec2{a.X * s, a.Y * s} }
func (a Vec2) Dot(b Vec2) float64     { return a.X*b.X + a.Y*b.Y }
func (a Vec2) LengthSqr() float64     { return a.X*a.X + a.Y*a.Y }
func (a Vec2) Length() float64        { return math.Sqrt(a.LengthSqr()) }
func (a Vec2) Eq(b Vec2) bool         { return a.X == b.X && a.Y == b.Y }
func (a Vec2) Neg() Vec2              { return Vec2{-a.X, -a.Y} }
func (a Vec2) Min(b Vec2) Vec2        { return Vec2{math.Min(a.X, b.X), math.Min(a.Y, b.Y)} }
func (a Vec2) Max(b Vec2) Vec2        { return Vec2{math.Max(a.X, b.X), math.Max(a.Y, b.Y)} }
func (a Vec2) Angle() float64         { return math.Atan2(a.Y, a.X) }
func (a Vec2) DistSqr(b Vec2) float64 { return a.Sub(b).LengthSqr() }

// NormalizeSafe returns a unit vector in the direction of a, or fallback when
// a is (close to) zero length.
func (a Vec2) NormalizeSafe(fallback Vec2) Vec2 {
	l := a.Length()
	if l <= 1e-6 {
		return fallback
	}
	return Vec2{a.X / l, a.Y / l}
}

// Normalize is NormalizeSafe with +X as the fallback.
func (a Vec2) Normalize() Vec2 {
	return a.NormalizeSafe(Vec2{X: 1})
}

// FromAngle returns the unit vector at angle rad.
func FromAngle(rad float64) Vec2 {
	return Vec2{math.Cos(rad), math.Sin(rad)}
}
