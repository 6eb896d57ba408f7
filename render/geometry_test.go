package render

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundedBoxCounts(t *testing.T) {
	g := RoundedBox(1, 1, 1, 2, 0.1)

	cells := 5
	assert.Len(t, g.Vertices, 6*(cells+1)*(cells+1))
	assert.Len(t, g.Indices, 6*cells*cells*6)
	for _, idx := range g.Indices {
		require.Less(t, int(idx), len(g.Vertices))
	}
}

func TestRoundedBoxShape(t *testing.T) {
	g := RoundedBox(1, 1, 1, 2, 0.1)

	for _, v := range g.Vertices {
		for k := 0; k < 3; k++ {
			assert.LessOrEqual(t, abs(v.Pos[k]), float32(0.5+1e-5))
		}
		assert.InDelta(t, 1, mgl32.Vec3(v.Normal).Len(), 1e-5)
		// normals point away from the center
		assert.Greater(t, mgl32.Vec3(v.Pos).Dot(mgl32.Vec3(v.Normal)), float32(0))
	}
}

func TestRoundedBoxWindingFacesOutward(t *testing.T) {
	g := RoundedBox(1, 1, 1, 1, 0.1)

	for i := 0; i+2 < len(g.Indices); i += 3 {
		a := mgl32.Vec3(g.Vertices[g.Indices[i]].Pos)
		b := mgl32.Vec3(g.Vertices[g.Indices[i+1]].Pos)
		c := mgl32.Vec3(g.Vertices[g.Indices[i+2]].Pos)
		n := b.Sub(a).Cross(c.Sub(a))
		if n.Len() < 1e-9 {
			continue
		}
		center := a.Add(b).Add(c).Mul(1.0 / 3)
		assert.Greater(t, n.Dot(center), float32(0), "triangle %d", i/3)
	}
}

func TestGeometryNormalize(t *testing.T) {
	g := Geometry{Vertices: []Vertex{
		{Pos: [3]float32{2, 2, 2}},
		{Pos: [3]float32{6, 3, 2}},
	}}
	g.Normalize()

	assert.Equal(t, [3]float32{-0.5, -0.125, 0}, g.Vertices[0].Pos)
	assert.Equal(t, [3]float32{0.5, 0.125, 0}, g.Vertices[1].Pos)

	var empty Geometry
	empty.Normalize()
	assert.Empty(t, empty.Vertices)
}

func TestComputeNormals(t *testing.T) {
	g := Geometry{
		Vertices: []Vertex{
			{Pos: [3]float32{0, 0, 0}},
			{Pos: [3]float32{1, 0, 0}},
			{Pos: [3]float32{0, 1, 0}},
			{Pos: [3]float32{5, 5, 5}},
		},
		Indices: []uint32{0, 1, 2},
	}
	g.ComputeNormals()

	for i := 0; i < 3; i++ {
		assert.Equal(t, [3]float32{0, 0, 1}, g.Vertices[i].Normal)
	}
	// unreferenced vertices get a fallback
	assert.Equal(t, [3]float32{0, 1, 0}, g.Vertices[3].Normal)
}

func abs(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
