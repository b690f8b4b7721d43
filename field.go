package bacteria

import (
	"math"

	"github.com/golang/geo/r2"
)

// fdStep is the step used for central finite differences of the velocity.
const fdStep = 1e-6

// A Tensor is a 2x2 matrix in row-major order.
type Tensor [2][2]float64

// Apply returns the product of t and v.
func (t Tensor) Apply(v r2.Point) r2.Point {
	return r2.Point{
		X: t[0][0]*v.X + t[0][1]*v.Y,
		Y: t[1][0]*v.X + t[1][1]*v.Y,
	}
}

// Gradient holds the four partial derivatives of the velocity at a point.
type Gradient struct {
	DuDx, DuDy float64
	DvDx, DvDy float64
}

// StrainRate returns D = (∇u + ∇uᵀ)/2.
func (g Gradient) StrainRate() Tensor {
	off := 0.5 * (g.DuDy + g.DvDx)
	return Tensor{
		{g.DuDx, off},
		{off, g.DvDy},
	}
}

// Vorticity returns W = (∇u − ∇uᵀ)/2.
func (g Gradient) Vorticity() Tensor {
	w := 0.5 * (g.DuDy - g.DvDx)
	return Tensor{
		{0, w},
		{-w, 0},
	}
}

// A FlowField is an analytic 2D channel flow around a circular obstacle.
// It has no mutable state and can be shared freely between agents.
type FlowField struct {
	L, H   float64 // domain length and height
	Center r2.Point
	R      float64 // obstacle radius
}

// NewFlowField returns a flow field over the domain [0, length]x[0, height]
// with an obstacle of the given center and radius. Nothing is validated.
func NewFlowField(length, height, cx, cy, radius float64) *FlowField {
	return &FlowField{
		L:      length,
		H:      height,
		Center: r2.Point{X: cx, Y: cy},
		R:      radius,
	}
}

// IsInsideObstacle reports whether (x, y) lies inside the obstacle or on its boundary.
func (f *FlowField) IsInsideObstacle(x, y float64) bool {
	dx, dy := x-f.Center.X, y-f.Center.Y
	return dx*dx+dy*dy <= f.R*f.R
}

// ObstacleNormal returns the outward unit normal of the obstacle
// in the direction of (x, y), or (1, 0) at the center itself.
func (f *FlowField) ObstacleNormal(x, y float64) r2.Point {
	dx, dy := x-f.Center.X, y-f.Center.Y
	d := math.Sqrt(dx*dx + dy*dy)
	if d < 1e-10 {
		return r2.Point{X: 1, Y: 0}
	}
	return r2.Point{X: dx / d, Y: dy / d}
}

// Velocity returns the fluid velocity at (x, y).
func (f *FlowField) Velocity(x, y float64) r2.Point {
	if f.IsInsideObstacle(x, y) {
		return r2.Point{}
	}

	// parabolic channel profile
	vx := 4 * 1.5 * y * (f.H - y) / (f.H * f.H)

	// obstacle shadow
	dx, dy := x-f.Center.X, y-f.Center.Y
	d2 := dx*dx + dy*dy
	d := math.Sqrt(d2)
	shadow := 1 - math.Exp(-5*(d-f.R)/f.R)
	vx *= math.Max(0, math.Min(1, shadow))

	// deflection around the obstacle
	angle := math.Atan2(dy, dx)
	vy := 0.2 * vx * math.Sin(angle) * math.Exp(-d2/(2*f.R*f.R))

	return r2.Point{X: vx, Y: vy}
}

// Gradient returns the velocity gradient at (x, y) by central differences.
// It is zero inside the obstacle.
func (f *FlowField) Gradient(x, y float64) Gradient {
	if f.IsInsideObstacle(x, y) {
		return Gradient{}
	}
	const h = fdStep
	xp, xm := f.Velocity(x+h, y), f.Velocity(x-h, y)
	yp, ym := f.Velocity(x, y+h), f.Velocity(x, y-h)
	return Gradient{
		DuDx: (xp.X - xm.X) / (2 * h),
		DuDy: (yp.X - ym.X) / (2 * h),
		DvDx: (xp.Y - xm.Y) / (2 * h),
		DvDy: (yp.Y - ym.Y) / (2 * h),
	}
}

// StrainRateTensor returns the symmetric part of the velocity gradient at (x, y).
func (f *FlowField) StrainRateTensor(x, y float64) Tensor {
	return f.Gradient(x, y).StrainRate()
}

// VorticityTensor returns the antisymmetric part of the velocity gradient at (x, y).
func (f *FlowField) VorticityTensor(x, y float64) Tensor {
	return f.Gradient(x, y).Vorticity()
}
