package sim

import (
	"math"
	"math/rand"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	// RadiusFactor converts an orb size into its collision radius.
	RadiusFactor = 0.75

	leaderLerp         = 0.1
	angularDamping     = 0.98
	spawnSpread        = 2.2
	initialSpin        = 0.2
	tumbleThreshold    = 0.1
	tumbleFactor       = 0.05
	maxTumble          = 0.2
	impulseFloor       = 1.0
	leaderImpulseFloor = 2.0
	leaderTumble       = 0.1
	wallTumbleFactor   = 0.02
)

// Simulation keeps every orb in flat per-attribute buffers indexed by orb id.
// Index 0 is the leader orb. Quaternions are stored x, y, z, w.
type Simulation struct {
	cfg Config
	rng *rand.Rand

	Positions         []float32
	Velocities        []float32
	Quaternions       []float32
	AngularVelocities []float32
	Sizes             []float32

	target mgl32.Vec3
}

// New allocates the buffers for cfg.Count orbs and scatters them. A
// non-positive count yields empty buffers and an inert simulation.
func New(cfg Config, rng *rand.Rand) *Simulation {
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	n := cfg.Count
	if n < 0 {
		n = 0
		cfg.Count = 0
	}
	s := &Simulation{
		cfg:               cfg,
		rng:               rng,
		Positions:         make([]float32, 3*n),
		Velocities:        make([]float32, 3*n),
		Quaternions:       make([]float32, 4*n),
		AngularVelocities: make([]float32, 3*n),
		Sizes:             make([]float32, n),
	}
	s.scatter()
	s.assignSizes()
	return s
}

func (s *Simulation) scatter() {
	if s.cfg.Count == 0 {
		return
	}
	s.setRotation(0, mgl32.QuatIdent())
	for i := 1; i < s.cfg.Count; i++ {
		s.SetPosition(i, mgl32.Vec3{
			s.spread(spawnSpread * s.cfg.MaxX),
			s.spread(spawnSpread * s.cfg.MaxY),
			s.spread(spawnSpread * s.cfg.MaxZ),
		})
		s.setRotation(i, eulerToQuat(
			s.rng.Float32()*math.Pi,
			s.rng.Float32()*math.Pi,
			s.rng.Float32()*math.Pi,
		))
		s.setAngularVelocity(i, mgl32.Vec3{
			s.spread(initialSpin),
			s.spread(initialSpin),
			s.spread(initialSpin),
		})
	}
}

func (s *Simulation) assignSizes() {
	if s.cfg.Count == 0 {
		return
	}
	s.Sizes[0] = s.cfg.Size0
	for i := 1; i < s.cfg.Count; i++ {
		s.Sizes[i] = s.cfg.MinSize + s.rng.Float32()*(s.cfg.MaxSize-s.cfg.MinSize)
	}
}

// spread returns a uniform sample in [-r/2, r/2].
func (s *Simulation) spread(r float32) float32 {
	return r * (0.5 - s.rng.Float32())
}

// Update advances the field by one frame. delta only scales gravity; every
// other quantity is per step.
func (s *Simulation) Update(delta float32) {
	n := s.cfg.Count
	if n == 0 {
		return
	}

	first := 0
	if s.cfg.ControlLeader {
		first = 1
		s.stepLeader()
	}

	for i := first; i < n; i++ {
		s.integrate(i, delta)
	}

	for i := first; i < n; i++ {
		for j := i + 1; j < n; j++ {
			s.collide(i, j)
		}
		if s.cfg.ControlLeader && i != 0 {
			s.pushFromLeader(i)
		}
	}

	for i := first; i < n; i++ {
		s.contain(i)
	}
}

func (s *Simulation) stepLeader() {
	p := s.Position(0)
	s.SetPosition(0, p.Add(s.target.Sub(p).Mul(leaderLerp)))
	s.SetVelocity(0, mgl32.Vec3{})
	s.setRotation(0, mgl32.QuatIdent())
	s.setAngularVelocity(0, mgl32.Vec3{})
}

func (s *Simulation) integrate(i int, delta float32) {
	v := s.Velocity(i)
	v[1] -= delta * s.cfg.Gravity * s.Sizes[i]
	v = v.Mul(s.cfg.Friction)
	if l := v.Len(); l > s.cfg.MaxVelocity {
		if s.cfg.MaxVelocity > 0 {
			v = v.Mul(s.cfg.MaxVelocity / l)
		} else {
			v = mgl32.Vec3{}
		}
	}
	s.SetPosition(i, s.Position(i).Add(v))
	s.SetVelocity(i, v)

	w := s.AngularVelocity(i)
	q := s.Rotation(i).Mul(eulerToQuat(w[0], w[1], w[2])).Normalize()
	s.setRotation(i, q)
	s.setAngularVelocity(i, w.Mul(angularDamping))
}

func (s *Simulation) collide(i, j int) {
	pi, pj := s.Position(i), s.Position(j)
	sum := s.Radius(i) + s.Radius(j)
	diff := pj.Sub(pi)
	dist := diff.Len()
	if dist >= sum {
		return
	}

	axis := s.separationAxis(diff, dist)
	correction := axis.Mul(0.5 * (sum - dist))

	vi, vj := s.Velocity(i), s.Velocity(j)
	pi = pi.Sub(correction)
	vi = vi.Sub(correction.Mul(max32(vi.Len(), impulseFloor)))
	pj = pj.Add(correction)
	vj = vj.Add(correction.Mul(max32(vj.Len(), impulseFloor)))

	s.SetPosition(i, pi)
	s.SetVelocity(i, vi)
	s.SetPosition(j, pj)
	s.SetVelocity(j, vj)

	if impact := vi.Len() + vj.Len(); impact > tumbleThreshold {
		tumble := min32(impact*tumbleFactor, maxTumble)
		s.applyTorque(i, tumble)
		s.applyTorque(j, tumble)
	}
}

// pushFromLeader moves orb i fully out of the leader without touching the
// leader itself. Not momentum conserving.
func (s *Simulation) pushFromLeader(i int) {
	pi := s.Position(i)
	sum := s.Radius(i) + s.Radius(0)
	diff := s.Position(0).Sub(pi)
	dist := diff.Len()
	if dist >= sum {
		return
	}

	correction := s.separationAxis(diff, dist).Mul(sum - dist)
	vi := s.Velocity(i)
	s.SetPosition(i, pi.Sub(correction))
	s.SetVelocity(i, vi.Sub(correction.Mul(max32(vi.Len(), leaderImpulseFloor))))
	s.applyTorque(i, leaderTumble)
}

// separationAxis normalizes diff; coincident centers get a random axis.
func (s *Simulation) separationAxis(diff mgl32.Vec3, dist float32) mgl32.Vec3 {
	if dist > 1e-6 {
		return diff.Mul(1 / dist)
	}
	for {
		a := mgl32.Vec3{s.spread(2), s.spread(2), s.spread(2)}
		if l := a.Len(); l > 1e-3 {
			return a.Mul(1 / l)
		}
	}
}

func (s *Simulation) contain(i int) {
	p, v := s.Position(i), s.Velocity(i)
	r := s.Radius(i)
	bounce := s.cfg.WallBounce
	hit := false

	if abs32(p[0])+r > s.cfg.MaxX {
		p[0] = sign32(p[0]) * (s.cfg.MaxX - r)
		v[0] = -v[0] * bounce
		hit = true
	}

	if s.cfg.Gravity == 0 {
		if abs32(p[1])+r > s.cfg.MaxY {
			p[1] = sign32(p[1]) * (s.cfg.MaxY - r)
			v[1] = -v[1] * bounce
			hit = true
		}
	} else if p[1]-r < -s.cfg.MaxY {
		p[1] = -s.cfg.MaxY + r
		v[1] = -v[1] * bounce
		hit = true
	}

	// Depth never tighter than the largest orb, or big orbs clip the camera.
	maxZ := max32(s.cfg.MaxZ, s.cfg.MaxSize)
	if abs32(p[2])+r > maxZ {
		p[2] = sign32(p[2]) * (maxZ - r)
		v[2] = -v[2] * bounce
		hit = true
	}

	s.SetPosition(i, p)
	s.SetVelocity(i, v)
	if hit {
		s.applyTorque(i, v.Len()*wallTumbleFactor)
	}
}

func (s *Simulation) applyTorque(i int, magnitude float32) {
	b := 3 * i
	s.AngularVelocities[b] += s.spread(magnitude)
	s.AngularVelocities[b+1] += s.spread(magnitude)
	s.AngularVelocities[b+2] += s.spread(magnitude)
}

func (s *Simulation) Config() Config { return s.cfg }

func (s *Simulation) Count() int { return s.cfg.Count }

// SetLeaderTarget sets the point orb 0 is pulled toward while ControlLeader is on.
func (s *Simulation) SetLeaderTarget(p mgl32.Vec3) { s.target = p }

func (s *Simulation) LeaderTarget() mgl32.Vec3 { return s.target }

func (s *Simulation) SetControlLeader(on bool) { s.cfg.ControlLeader = on }

func (s *Simulation) ControlLeader() bool { return s.cfg.ControlLeader }

// SetBounds updates the horizontal and vertical half-extents after a resize.
func (s *Simulation) SetBounds(maxX, maxY float32) {
	s.cfg.MaxX = maxX
	s.cfg.MaxY = maxY
}

func (s *Simulation) Radius(i int) float32 { return s.Sizes[i] * RadiusFactor }

func (s *Simulation) Position(i int) mgl32.Vec3 {
	b := 3 * i
	return mgl32.Vec3{s.Positions[b], s.Positions[b+1], s.Positions[b+2]}
}

func (s *Simulation) SetPosition(i int, p mgl32.Vec3) {
	copy(s.Positions[3*i:3*i+3], p[:])
}

func (s *Simulation) Velocity(i int) mgl32.Vec3 {
	b := 3 * i
	return mgl32.Vec3{s.Velocities[b], s.Velocities[b+1], s.Velocities[b+2]}
}

func (s *Simulation) SetVelocity(i int, v mgl32.Vec3) {
	copy(s.Velocities[3*i:3*i+3], v[:])
}

func (s *Simulation) AngularVelocity(i int) mgl32.Vec3 {
	b := 3 * i
	return mgl32.Vec3{s.AngularVelocities[b], s.AngularVelocities[b+1], s.AngularVelocities[b+2]}
}

func (s *Simulation) setAngularVelocity(i int, w mgl32.Vec3) {
	copy(s.AngularVelocities[3*i:3*i+3], w[:])
}

func (s *Simulation) Rotation(i int) mgl32.Quat {
	b := 4 * i
	return mgl32.Quat{
		V: mgl32.Vec3{s.Quaternions[b], s.Quaternions[b+1], s.Quaternions[b+2]},
		W: s.Quaternions[b+3],
	}
}

func (s *Simulation) setRotation(i int, q mgl32.Quat) {
	b := 4 * i
	s.Quaternions[b] = q.V[0]
	s.Quaternions[b+1] = q.V[1]
	s.Quaternions[b+2] = q.V[2]
	s.Quaternions[b+3] = q.W
}

// eulerToQuat builds the quaternion of an intrinsic X, then Y, then Z rotation.
func eulerToQuat(x, y, z float32) mgl32.Quat {
	c1, s1 := cosSin(x / 2)
	c2, s2 := cosSin(y / 2)
	c3, s3 := cosSin(z / 2)
	return mgl32.Quat{
		V: mgl32.Vec3{
			s1*c2*c3 + c1*s2*s3,
			c1*s2*c3 - s1*c2*s3,
			c1*c2*s3 + s1*s2*c3,
		},
		W: c1*c2*c3 - s1*s2*s3,
	}
}

func cosSin(a float32) (float32, float32) {
	s, c := math.Sincos(float64(a))
	return float32(c), float32(s)
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

func sign32(v float32) float32 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

func min32(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

func max32(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}
