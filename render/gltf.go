package render

import (
	"fmt"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

// LoadGLTFGeometry merges every mesh primitive of a .gltf/.glb file into one
// Geometry usable as the orb shape. The result is normalized to a unit box.
func LoadGLTFGeometry(path string) (Geometry, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return Geometry{}, fmt.Errorf("gltf open %q: %w", path, err)
	}

	var g Geometry
	missingNormals := false
	for mi, m := range doc.Meshes {
		for pi, prim := range m.Primitives {
			if prim.Mode != gltf.PrimitiveTriangles {
				continue
			}
			hasNormals, err := appendPrimitive(&g, doc, prim)
			if err != nil {
				return Geometry{}, fmt.Errorf("gltf mesh %d prim %d: %w", mi, pi, err)
			}
			missingNormals = missingNormals || !hasNormals
		}
	}
	if len(g.Indices) == 0 {
		return Geometry{}, fmt.Errorf("gltf %q: no triangle primitives", path)
	}
	if missingNormals {
		g.ComputeNormals()
	}
	g.Normalize()
	return g, nil
}

func appendPrimitive(g *Geometry, doc *gltf.Document, prim *gltf.Primitive) (bool, error) {
	posIdx, ok := prim.Attributes[gltf.POSITION]
	if !ok {
		return false, fmt.Errorf("no POSITION attribute")
	}
	positions, err := modeler.ReadPosition(doc, doc.Accessors[posIdx], nil)
	if err != nil {
		return false, fmt.Errorf("positions: %w", err)
	}

	var normals [][3]float32
	if idx, ok := prim.Attributes[gltf.NORMAL]; ok {
		normals, err = modeler.ReadNormal(doc, doc.Accessors[idx], nil)
		if err != nil {
			return false, fmt.Errorf("normals: %w", err)
		}
	}

	base := uint32(len(g.Vertices))
	for i, p := range positions {
		v := Vertex{Pos: p, Normal: [3]float32{0, 1, 0}}
		if i < len(normals) {
			v.Normal = normals[i]
		}
		g.Vertices = append(g.Vertices, v)
	}

	if prim.Indices != nil {
		indices, err := modeler.ReadIndices(doc, doc.Accessors[*prim.Indices], nil)
		if err != nil {
			return false, fmt.Errorf("indices: %w", err)
		}
		for _, idx := range indices {
			g.Indices = append(g.Indices, base+idx)
		}
	} else {
		for i := range positions {
			g.Indices = append(g.Indices, base+uint32(i))
		}
	}
	return len(normals) == len(positions), nil
}
