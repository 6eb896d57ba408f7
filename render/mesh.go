package render

import (
	"math/rand"

	"github.com/gekko3d/orbfield/sim"
	"github.com/go-gl/mathgl/mgl32"
)

type Material struct {
	Metalness          float32
	Roughness          float32
	Clearcoat          float32
	ClearcoatRoughness float32
	Transmission       float32
	IOR                float32
}

func DefaultMaterial() Material {
	return Material{
		Metalness:          0.5,
		Roughness:          0.4,
		Clearcoat:          0.8,
		ClearcoatRoughness: 0.2,
		Transmission:       0,
		IOR:                1.5,
	}
}

type AmbientLight struct {
	Color     mgl32.Vec3 // linear
	Intensity float32
}

type PointLight struct {
	Position  mgl32.Vec3
	Color     mgl32.Vec3 // linear
	Intensity float32
}

// Config is everything a Mesh is built from. Colors are 0xRRGGBB sRGB.
type Config struct {
	Physics          sim.Config
	Colors           []uint32
	AmbientColor     uint32
	AmbientIntensity float32
	LightIntensity   float32
	Material         Material
}

func DefaultConfig() Config {
	return Config{
		Physics:          sim.DefaultConfig(),
		Colors:           []uint32{0, 0, 0},
		AmbientColor:     0xffffff,
		AmbientIntensity: 1,
		LightIntensity:   200,
		Material:         DefaultMaterial(),
	}
}

// Mesh is the CPU side of the instanced orb draw: one shared geometry and
// material, a transform and color per orb, and the two scene lights. The
// dirty flags tell the GPU renderer what to upload.
type Mesh struct {
	Sim      *sim.Simulation
	Geometry Geometry
	Material Material
	Ambient  AmbientLight
	Light    PointLight

	Transforms []mgl32.Mat4
	Colors     [][4]float32 // linear RGBA

	TransformsDirty bool
	ColorsDirty     bool

	cfg Config
}

func NewMesh(cfg Config, geom Geometry, rng *rand.Rand) *Mesh {
	s := sim.New(cfg.Physics, rng)
	n := s.Count()
	m := &Mesh{
		Sim:        s,
		Geometry:   geom,
		Material:   cfg.Material,
		Ambient:    AmbientLight{Color: HexToLinear(cfg.AmbientColor), Intensity: cfg.AmbientIntensity},
		Light:      PointLight{Color: mgl32.Vec3{1, 1, 1}, Intensity: cfg.LightIntensity * 0.5},
		Transforms: make([]mgl32.Mat4, n),
		Colors:     make([][4]float32, n),
		cfg:        cfg,
	}
	m.cfg.Colors = append([]uint32(nil), cfg.Colors...)
	if len(cfg.Colors) > 0 {
		m.Light.Color = HexToLinear(cfg.Colors[0])
	}
	for i := range m.Colors {
		m.Colors[i] = [4]float32{1, 1, 1, 1}
	}
	m.ColorsDirty = true
	m.SetColors(cfg.Colors)
	m.compose()
	return m
}

func (m *Mesh) Count() int { return m.Sim.Count() }

// SetColors spreads the gradient over the orbs by normalized index and tints
// the point light with the first orb's color. Fewer than two stops is a no-op.
func (m *Mesh) SetColors(hexes []uint32) {
	if len(hexes) < 2 {
		return
	}
	m.cfg.Colors = append(m.cfg.Colors[:0], hexes...)
	g := NewGradient(hexes)
	n := m.Count()
	for i := 0; i < n; i++ {
		c := g.At(float32(i) / float32(n))
		m.Colors[i] = [4]float32{c[0], c[1], c[2], 1}
		if i == 0 {
			m.Light.Color = c
		}
	}
	m.ColorsDirty = true
}

// Update steps the simulation and rebuilds every instance transform.
func (m *Mesh) Update(delta float32) {
	m.Sim.Update(delta)
	m.compose()
}

func (m *Mesh) compose() {
	hideLeader := !m.Sim.Config().FollowCursor
	for i := range m.Transforms {
		pos := m.Sim.Position(i)
		scale := m.Sim.Sizes[i]
		if i == 0 {
			m.Light.Position = pos
			if hideLeader {
				scale = 0
			}
		}
		m.Transforms[i] = mgl32.Translate3D(pos[0], pos[1], pos[2]).
			Mul4(m.Sim.Rotation(i).Mat4()).
			Mul4(mgl32.Scale3D(scale, scale, scale))
	}
	m.TransformsDirty = true
}

// Config reports the configuration a rebuilt Mesh needs to continue where
// this one is: current bounds, leader control and the last applied colors.
func (m *Mesh) Config() Config {
	cfg := m.cfg
	cfg.Physics = m.Sim.Config()
	cfg.Colors = append([]uint32(nil), m.cfg.Colors...)
	return cfg
}
