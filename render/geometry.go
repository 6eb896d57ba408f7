package render

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Vertex matches the WGSL vertex input of the orb pipeline.
type Vertex struct {
	Pos    [3]float32
	Normal [3]float32
}

// Geometry is an indexed triangle list, counter-clockwise front faces.
type Geometry struct {
	Vertices []Vertex
	Indices  []uint32
}

type boxFace struct {
	n, u, v mgl32.Vec3
}

// u x v == n for every face, which keeps the winding CCW from outside.
var boxFaces = [6]boxFace{
	{n: mgl32.Vec3{1, 0, 0}, u: mgl32.Vec3{0, 0, -1}, v: mgl32.Vec3{0, 1, 0}},
	{n: mgl32.Vec3{-1, 0, 0}, u: mgl32.Vec3{0, 0, 1}, v: mgl32.Vec3{0, 1, 0}},
	{n: mgl32.Vec3{0, 1, 0}, u: mgl32.Vec3{1, 0, 0}, v: mgl32.Vec3{0, 0, -1}},
	{n: mgl32.Vec3{0, -1, 0}, u: mgl32.Vec3{1, 0, 0}, v: mgl32.Vec3{0, 0, 1}},
	{n: mgl32.Vec3{0, 0, 1}, u: mgl32.Vec3{1, 0, 0}, v: mgl32.Vec3{0, 1, 0}},
	{n: mgl32.Vec3{0, 0, -1}, u: mgl32.Vec3{-1, 0, 0}, v: mgl32.Vec3{0, 1, 0}},
}

// RoundedBox builds a box of the given size whose edges and corners are
// rounded with radius. Each face is a grid of 2*segments+1 cells; vertices
// are pulled onto an inner box and pushed back out along their smoothed
// normal.
func RoundedBox(width, height, depth float32, segments int, radius float32) Geometry {
	if segments < 1 {
		segments = 1
	}
	cells := 2*segments + 1
	halfCell := 0.5 / float32(cells)
	inner := mgl32.Vec3{width/2 - radius, height/2 - radius, depth/2 - radius}

	stride := cells + 1
	g := Geometry{
		Vertices: make([]Vertex, 0, 6*stride*stride),
		Indices:  make([]uint32, 0, 6*cells*cells*6),
	}

	for _, f := range boxFaces {
		base := uint32(len(g.Vertices))
		for j := 0; j <= cells; j++ {
			for i := 0; i <= cells; i++ {
				a := float32(i)/float32(cells) - 0.5
				b := float32(j)/float32(cells) - 0.5
				p := f.n.Mul(0.5).Add(f.u.Mul(a)).Add(f.v.Mul(b))

				var n mgl32.Vec3
				for k := 0; k < 3; k++ {
					n[k] = p[k] - sign(p[k])*halfCell
				}
				n = n.Normalize()

				var out mgl32.Vec3
				for k := 0; k < 3; k++ {
					out[k] = inner[k]*sign(p[k]) + n[k]*radius
				}
				g.Vertices = append(g.Vertices, Vertex{Pos: out, Normal: n})
			}
		}
		for j := 0; j < cells; j++ {
			for i := 0; i < cells; i++ {
				a := base + uint32(j*stride+i)
				b := a + 1
				c := a + uint32(stride) + 1
				d := a + uint32(stride)
				g.Indices = append(g.Indices, a, b, c, a, c, d)
			}
		}
	}
	return g
}

func sign(v float32) float32 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

// Normalize centers g on the origin and scales it so its largest extent is 1.
func (g *Geometry) Normalize() {
	if len(g.Vertices) == 0 {
		return
	}
	lo := mgl32.Vec3(g.Vertices[0].Pos)
	hi := lo
	for _, v := range g.Vertices[1:] {
		for k := 0; k < 3; k++ {
			lo[k] = min(lo[k], v.Pos[k])
			hi[k] = max(hi[k], v.Pos[k])
		}
	}
	size := hi.Sub(lo)
	extent := max(size[0], size[1], size[2])
	if extent == 0 {
		return
	}
	center := lo.Add(hi).Mul(0.5)
	for i := range g.Vertices {
		p := mgl32.Vec3(g.Vertices[i].Pos).Sub(center).Mul(1 / extent)
		g.Vertices[i].Pos = p
	}
}

// ComputeNormals replaces vertex normals with area weighted face normals.
func (g *Geometry) ComputeNormals() {
	acc := make([]mgl32.Vec3, len(g.Vertices))
	for t := 0; t+2 < len(g.Indices); t += 3 {
		ia, ib, ic := g.Indices[t], g.Indices[t+1], g.Indices[t+2]
		a := mgl32.Vec3(g.Vertices[ia].Pos)
		b := mgl32.Vec3(g.Vertices[ib].Pos)
		c := mgl32.Vec3(g.Vertices[ic].Pos)
		n := b.Sub(a).Cross(c.Sub(a))
		acc[ia] = acc[ia].Add(n)
		acc[ib] = acc[ib].Add(n)
		acc[ic] = acc[ic].Add(n)
	}
	for i := range g.Vertices {
		n := acc[i]
		if n.Len() > 0 {
			n = n.Normalize()
		} else {
			n = mgl32.Vec3{0, 1, 0}
		}
		g.Vertices[i].Normal = n
	}
}
