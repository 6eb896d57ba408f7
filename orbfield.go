// Package orbfield is a field of physically interacting orbs with an
// optional cursor-driven leader. An OrbField binds a simulation, an
// instanced renderer and a scene lifecycle to one drawable surface.
package orbfield

import (
	"errors"
	"math/rand"
	"time"

	"github.com/gekko3d/orbfield/clock"
	"github.com/gekko3d/orbfield/logging"
	"github.com/gekko3d/orbfield/pointer"
	"github.com/gekko3d/orbfield/render"
	"github.com/gekko3d/orbfield/scene"
	"github.com/go-gl/mathgl/mgl32"
)

var ErrNoSurface = errors.New("orbfield: no drawable surface")

// Surface is what an OrbField draws into and takes pointer input from.
type Surface interface {
	scene.Viewport
	pointer.Target
}

// MeshRenderer is a scene renderer that can be handed a new mesh, as happens
// on every SetCount.
type MeshRenderer interface {
	scene.Renderer
	SetMesh(m *render.Mesh) error
}

type options struct {
	log       logging.Logger
	router    *pointer.Router
	loop      clock.Scheduler
	renderer  MeshRenderer
	rng       *rand.Rand
	geometry  *render.Geometry
	sceneOpts scene.Options
}

type Option func(*options)

func WithLogger(l logging.Logger) Option { return func(o *options) { o.log = l } }

// WithRouter shares a pointer router between several fields. Without it the
// field gets a router with no input source.
func WithRouter(r *pointer.Router) Option { return func(o *options) { o.router = r } }

// WithLoop sets the frame scheduler. Without it a fresh clock.Loop is used,
// reachable through Loop, which the host has to pump.
func WithLoop(l clock.Scheduler) Option { return func(o *options) { o.loop = l } }

func WithRenderer(r MeshRenderer) Option { return func(o *options) { o.renderer = r } }

func WithRand(r *rand.Rand) Option { return func(o *options) { o.rng = r } }

// WithGeometry replaces the rounded box every orb is drawn with.
func WithGeometry(g render.Geometry) Option { return func(o *options) { o.geometry = &g } }

// WithSceneOptions overrides sizing options such as pixel ratio limits or a
// fixed size. The camera aspect cap is always applied.
func WithSceneOptions(so scene.Options) Option { return func(o *options) { o.sceneOpts = so } }

const (
	cameraDistance = 20
	maxAspect      = 1.5
)

// OrbField is the composition root: one scene, one mesh, one pointer
// registration. All methods must be called from the thread that pumps the
// scheduler.
type OrbField struct {
	cfg      Config
	log      logging.Logger
	loop     clock.Scheduler
	router   *pointer.Router
	handle   *pointer.Handle
	scene    *scene.Lifecycle
	renderer MeshRenderer
	geometry render.Geometry
	rng      *rand.Rand
	mesh     *render.Mesh

	paused   bool
	disposed bool
}

// New builds a field on surface. A nil surface is logged and reported as
// ErrNoSurface; nothing else is created then.
func New(surface Surface, cfg Config, opts ...Option) (*OrbField, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	log := logging.Or(o.log)
	if surface == nil {
		log.Errorf("orbfield: %v", ErrNoSurface)
		return nil, ErrNoSurface
	}
	if o.loop == nil {
		o.loop = clock.NewLoop(time.Now())
	}
	if o.router == nil {
		o.router = pointer.NewRouter(nil, log)
	}
	if o.renderer == nil {
		o.renderer = &nopRenderer{}
	}
	if o.rng == nil {
		o.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	geom := render.RoundedBox(1, 1, 1, 2, 0.1)
	if o.geometry != nil {
		geom = *o.geometry
	}

	f := &OrbField{
		cfg:      cfg,
		log:      log,
		loop:     o.loop,
		router:   o.router,
		renderer: o.renderer,
		geometry: geom,
		rng:      o.rng,
	}

	so := o.sceneOpts
	so.MaxAspect = maxAspect
	if so.Logger == nil {
		so.Logger = log
	}
	f.scene = scene.New(surface, f.loop, f.renderer, so)
	f.scene.Camera.Position = mgl32.Vec3{0, 0, cameraDistance}
	f.scene.Camera.LookAt(mgl32.Vec3{})
	f.scene.Resize()

	rc := cfg.renderConfig()
	if size := f.scene.Size(); size.WorldWidth > 0 && size.WorldHeight > 0 {
		rc.Physics.MaxX = size.WorldWidth / 2
		rc.Physics.MaxY = size.WorldHeight / 2
	}
	f.initialize(rc)

	f.scene.OnBeforeRender = func(st scene.FrameState) {
		if !f.paused && f.mesh != nil {
			f.mesh.Update(float32(st.Delta))
		}
	}
	f.scene.OnAfterResize = func(size scene.Size) {
		if f.mesh != nil {
			f.mesh.Sim.SetBounds(size.WorldWidth/2, size.WorldHeight/2)
		}
	}

	f.handle = f.router.Register(surface, pointer.Callbacks{
		OnMove:  f.onPointerMove,
		OnLeave: f.onPointerLeave,
	})
	log.Infof("orbfield: %d orbs, pointer handle %s", f.mesh.Count(), f.handle.ID())
	return f, nil
}

// initialize swaps in a freshly built mesh. There is no incremental resize:
// the old mesh and its GPU buffers are dropped.
func (f *OrbField) initialize(rc render.Config) {
	if f.mesh != nil {
		f.scene.Clear()
	}
	f.mesh = render.NewMesh(rc, f.geometry, f.rng)
	if err := f.renderer.SetMesh(f.mesh); err != nil {
		f.log.Errorf("orbfield: upload mesh: %v", err)
	}
}

// onPointerMove steers the leader to where the pointer ray meets the plane
// through the origin facing the camera.
func (f *OrbField) onPointerMove(st pointer.State) {
	if f.mesh == nil {
		return
	}
	cam := f.scene.Camera
	plane := scene.Plane{Normal: cam.WorldDirection()}
	if p, ok := cam.Ray(st.NPosition).IntersectPlane(plane); ok {
		f.mesh.Sim.SetLeaderTarget(p)
	}
	f.mesh.Sim.SetControlLeader(true)
}

func (f *OrbField) onPointerLeave(pointer.State) {
	if f.mesh != nil {
		f.mesh.Sim.SetControlLeader(false)
	}
}

// SetCount rebuilds the mesh and simulation with n orbs, keeping the rest of
// the current configuration.
func (f *OrbField) SetCount(n int) {
	if f.disposed {
		return
	}
	if n < 0 {
		n = 0
	}
	rc := f.mesh.Config()
	rc.Physics.Count = n
	f.cfg.Count = n
	f.initialize(rc)
	f.log.Debugf("orbfield: count set to %d", n)
}

// ConfigUpdate holds the settings that can change on a live field. Only
// colors are applied today.
type ConfigUpdate struct {
	Colors []Color
}

func (f *OrbField) UpdateConfig(u ConfigUpdate) {
	if f.disposed || f.mesh == nil || u.Colors == nil {
		return
	}
	if len(u.Colors) < 2 {
		f.log.Debugf("orbfield: ignoring %d color stops", len(u.Colors))
		return
	}
	f.mesh.SetColors(hexes(u.Colors))
	f.cfg.Colors = append([]Color(nil), u.Colors...)
}

func (f *OrbField) TogglePause() { f.paused = !f.paused }

func (f *OrbField) Paused() bool { return f.paused }

// Dispose deregisters from the router and tears the scene down. Safe to call
// more than once.
func (f *OrbField) Dispose() {
	if f.disposed {
		return
	}
	f.disposed = true
	f.handle.Dispose()
	f.scene.Dispose()
	f.log.Debugf("orbfield: disposed")
}

func (f *OrbField) Disposed() bool { return f.disposed }

func (f *OrbField) Mesh() *render.Mesh { return f.mesh }

func (f *OrbField) Scene() *scene.Lifecycle { return f.scene }

func (f *OrbField) Loop() clock.Scheduler { return f.loop }

// Config is the construction config with the count and colors applied since.
func (f *OrbField) Config() Config {
	cfg := f.cfg
	cfg.Colors = append([]Color(nil), f.cfg.Colors...)
	return cfg
}

// nopRenderer keeps a field usable without a GPU, e.g. headless.
type nopRenderer struct{}

func (*nopRenderer) Resize(scene.Size)          {}
func (*nopRenderer) Render(*scene.Camera)       {}
func (*nopRenderer) Clear()                     {}
func (*nopRenderer) Dispose()                   {}
func (*nopRenderer) SetMesh(*render.Mesh) error { return nil }
