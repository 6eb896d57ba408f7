package scene

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Camera is a Y-up perspective camera. Fov is the vertical field of view in
// degrees; Aspect is width over height.
type Camera struct {
	Fov    float32
	Aspect float32
	Near   float32
	Far    float32

	Position mgl32.Vec3
	Target   mgl32.Vec3
	Up       mgl32.Vec3
}

func NewCamera() *Camera {
	return &Camera{
		Fov:    50,
		Aspect: 1,
		Near:   0.1,
		Far:    2000,
		Target: mgl32.Vec3{0, 0, -1},
		Up:     mgl32.Vec3{0, 1, 0},
	}
}

func (c *Camera) LookAt(target mgl32.Vec3) { c.Target = target }

// ProjectionMatrix uses the OpenGL clip convention (z in -1..1).
func (c *Camera) ProjectionMatrix() mgl32.Mat4 {
	return mgl32.Perspective(mgl32.DegToRad(c.Fov), c.Aspect, c.Near, c.Far)
}

func (c *Camera) ViewMatrix() mgl32.Mat4 {
	return mgl32.LookAtV(c.Position, c.Target, c.Up)
}

func (c *Camera) ViewProjection() mgl32.Mat4 {
	return c.ProjectionMatrix().Mul4(c.ViewMatrix())
}

func (c *Camera) WorldDirection() mgl32.Vec3 {
	d := c.Target.Sub(c.Position)
	if d.Len() == 0 {
		return mgl32.Vec3{0, 0, -1}
	}
	return d.Normalize()
}

// VisibleHeight is the world-space height of the view frustum at distance d.
func (c *Camera) VisibleHeight(d float32) float32 {
	return 2 * float32(math.Tan(float64(mgl32.DegToRad(c.Fov)/2))) * d
}

type Ray struct {
	Origin mgl32.Vec3
	Dir    mgl32.Vec3
}

// Ray casts from the camera through a point in normalized device coordinates.
func (c *Camera) Ray(ndc mgl32.Vec2) Ray {
	inv := c.ViewProjection().Inv()
	p := inv.Mul4x1(mgl32.Vec4{ndc[0], ndc[1], 0.5, 1})
	if p[3] != 0 {
		p = p.Mul(1 / p[3])
	}
	dir := p.Vec3().Sub(c.Position)
	if dir.Len() == 0 {
		dir = c.WorldDirection()
	}
	return Ray{Origin: c.Position, Dir: dir.Normalize()}
}

// Plane is the set of points p with Normal·p + Constant == 0.
type Plane struct {
	Normal   mgl32.Vec3
	Constant float32
}

// IntersectPlane returns the hit point and false when the ray is parallel
// to the plane or the plane lies behind the origin.
func (r Ray) IntersectPlane(pl Plane) (mgl32.Vec3, bool) {
	denom := pl.Normal.Dot(r.Dir)
	if denom == 0 {
		if pl.Normal.Dot(r.Origin)+pl.Constant == 0 {
			return r.Origin, true
		}
		return mgl32.Vec3{}, false
	}
	t := -(r.Origin.Dot(pl.Normal) + pl.Constant) / denom
	if t < 0 {
		return mgl32.Vec3{}, false
	}
	return r.Origin.Add(r.Dir.Mul(t)), true
}
