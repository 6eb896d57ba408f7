package orbfield

import (
	"fmt"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/gekko3d/orbfield/clock"
	"github.com/gekko3d/orbfield/pointer"
	"github.com/gekko3d/orbfield/render"
	"github.com/gekko3d/orbfield/scene"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSurface struct {
	w, h int
}

func (s *fakeSurface) Size() (int, int)    { return s.w, s.h }
func (s *fakeSurface) PixelRatio() float32 { return 1 }
func (s *fakeSurface) Bounds() pointer.Rect {
	return pointer.Rect{Width: float32(s.w), Height: float32(s.h)}
}

type fakeRenderer struct {
	meshes   []*render.Mesh
	sizes    []scene.Size
	renders  int
	clears   int
	disposes int
}

func (r *fakeRenderer) Resize(s scene.Size)  { r.sizes = append(r.sizes, s) }
func (r *fakeRenderer) Render(*scene.Camera) { r.renders++ }
func (r *fakeRenderer) Clear()               { r.clears++ }
func (r *fakeRenderer) Dispose()             { r.disposes++ }
func (r *fakeRenderer) SetMesh(m *render.Mesh) error {
	r.meshes = append(r.meshes, m)
	return nil
}

type recordingLogger struct {
	errors []string
}

func (l *recordingLogger) DebugEnabled() bool        { return false }
func (l *recordingLogger) SetDebug(bool)             {}
func (l *recordingLogger) Debugf(string, ...any)     {}
func (l *recordingLogger) Infof(string, ...any)      {}
func (l *recordingLogger) Warnf(string, ...any)      {}
func (l *recordingLogger) Errorf(f string, a ...any) { l.errors = append(l.errors, fmt.Sprintf(f, a...)) }

type fixture struct {
	now      time.Time
	loop     *clock.Loop
	surface  *fakeSurface
	renderer *fakeRenderer
	router   *pointer.Router
	field    *OrbField
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	fx := &fixture{
		now:      time.Unix(500, 0),
		surface:  &fakeSurface{w: 800, h: 600},
		renderer: &fakeRenderer{},
	}
	fx.loop = clock.NewLoop(fx.now)
	fx.router = pointer.NewRouter(nil, nil)
	f, err := New(fx.surface, cfg,
		WithLoop(fx.loop),
		WithRouter(fx.router),
		WithRenderer(fx.renderer),
		WithRand(rand.New(rand.NewSource(1))),
	)
	require.NoError(t, err)
	fx.field = f
	return fx
}

func (fx *fixture) pump(d time.Duration) {
	fx.now = fx.now.Add(d)
	fx.loop.Pump(fx.now)
}

func smallConfig() Config {
	cfg := DefaultConfig()
	cfg.Count = 10
	return cfg
}

func TestNewWithoutSurface(t *testing.T) {
	log := &recordingLogger{}
	f, err := New(nil, DefaultConfig(), WithLogger(log))

	assert.Nil(t, f)
	assert.ErrorIs(t, err, ErrNoSurface)
	assert.Len(t, log.errors, 1)
}

func TestNewWiresEverything(t *testing.T) {
	fx := newFixture(t, smallConfig())
	f := fx.field

	require.Len(t, fx.renderer.meshes, 1)
	assert.Same(t, f.Mesh(), fx.renderer.meshes[0])
	assert.Equal(t, 10, f.Mesh().Count())
	assert.Equal(t, 1, fx.router.Len())

	cam := f.Scene().Camera
	assert.Equal(t, mgl32.Vec3{0, 0, 20}, cam.Position)

	size := f.Scene().Size()
	wantHeight := 2 * math.Tan(25*math.Pi/180) * 20
	assert.InDelta(t, wantHeight, size.WorldHeight, 1e-3)
	cfg := f.Mesh().Sim.Config()
	assert.InDelta(t, size.WorldWidth/2, cfg.MaxX, 1e-5)
	assert.InDelta(t, size.WorldHeight/2, cfg.MaxY, 1e-5)
}

func TestDefaultLoop(t *testing.T) {
	f, err := New(&fakeSurface{w: 100, h: 100}, smallConfig())
	require.NoError(t, err)
	assert.NotNil(t, f.Loop())
	assert.NotNil(t, f.Mesh())
	f.Dispose()
}

func TestBeforeRenderStepsUnlessPaused(t *testing.T) {
	fx := newFixture(t, smallConfig())
	f := fx.field
	f.Scene().SetIntersecting(true)
	fx.pump(16 * time.Millisecond)

	before := append([]float32(nil), f.Mesh().Sim.Positions...)
	fx.pump(16 * time.Millisecond)
	assert.NotEqual(t, before, f.Mesh().Sim.Positions)

	f.TogglePause()
	assert.True(t, f.Paused())
	frozen := append([]float32(nil), f.Mesh().Sim.Positions...)
	rendersBefore := fx.renderer.renders
	fx.pump(16 * time.Millisecond)
	assert.Equal(t, frozen, f.Mesh().Sim.Positions)
	// paused still renders
	assert.Equal(t, rendersBefore+1, fx.renderer.renders)

	f.TogglePause()
	assert.False(t, f.Paused())
}

func TestPointerSteersLeader(t *testing.T) {
	fx := newFixture(t, smallConfig())
	sim := fx.field.Mesh().Sim
	assert.False(t, sim.ControlLeader())

	fx.router.PointerMove(400, 300)
	assert.True(t, sim.ControlLeader())
	target := sim.LeaderTarget()
	assert.InDelta(t, 0, target[0], 1e-3)
	assert.InDelta(t, 0, target[1], 1e-3)
	assert.InDelta(t, 0, target[2], 1e-3)

	// right edge of the surface maps to the right edge of the visible world
	fx.router.PointerMove(800, 300)
	target = sim.LeaderTarget()
	assert.InDelta(t, fx.field.Scene().Size().WorldWidth/2, target[0], 1e-2)
	assert.InDelta(t, 0, target[2], 1e-3)

	fx.router.PointerLeave()
	assert.False(t, sim.ControlLeader())
}

func TestLeaderTargetSeenBySameFrame(t *testing.T) {
	fx := newFixture(t, smallConfig())
	f := fx.field

	// input arrives before the frame that consumes it
	fx.router.PointerMove(800, 300)
	f.Scene().SetIntersecting(true)

	lead := f.Mesh().Sim.Position(0)
	assert.InDelta(t, 0.1*f.Mesh().Sim.LeaderTarget()[0], lead[0], 1e-3)
}

func TestResizeUpdatesBounds(t *testing.T) {
	fx := newFixture(t, smallConfig())
	f := fx.field

	fx.surface.w = 1600
	f.Scene().NotifyResize()
	fx.pump(200 * time.Millisecond)

	size := f.Scene().Size()
	assert.Equal(t, 1600, size.Width)
	cfg := f.Mesh().Sim.Config()
	assert.InDelta(t, size.WorldWidth/2, cfg.MaxX, 1e-5)
	assert.InDelta(t, size.WorldHeight/2, cfg.MaxY, 1e-5)
}

func TestSetCountRebuilds(t *testing.T) {
	fx := newFixture(t, smallConfig())
	f := fx.field
	old := f.Mesh()
	maxX := old.Sim.Config().MaxX

	f.SetCount(5)

	m := f.Mesh()
	assert.NotSame(t, old, m)
	assert.Len(t, m.Sim.Positions, 15)
	assert.Len(t, m.Sim.Quaternions, 20)
	assert.Len(t, fx.renderer.meshes, 2)
	assert.Equal(t, 1, fx.renderer.clears)
	assert.Equal(t, maxX, m.Sim.Config().MaxX)
	assert.Equal(t, 5, f.Config().Count)

	f.SetCount(-3)
	assert.Equal(t, 0, f.Mesh().Count())
	assert.Empty(t, f.Mesh().Sim.Positions)
}

func TestUpdateConfigColors(t *testing.T) {
	fx := newFixture(t, smallConfig())
	f := fx.field

	f.UpdateConfig(ConfigUpdate{Colors: []Color{0xff0000, 0x0000ff}})
	red := f.Mesh().Colors[0]
	assert.InDelta(t, 1, red[0], 1e-5)
	assert.Equal(t, []Color{0xff0000, 0x0000ff}, f.Config().Colors)

	// colors survive a rebuild
	f.SetCount(4)
	assert.InDelta(t, 1, f.Mesh().Colors[0][0], 1e-5)

	f.UpdateConfig(ConfigUpdate{Colors: []Color{0x00ff00}})
	assert.InDelta(t, 1, f.Mesh().Colors[0][0], 1e-5)
	assert.Equal(t, []Color{0xff0000, 0x0000ff}, f.Config().Colors)
}

func TestDisposeIsIdempotent(t *testing.T) {
	fx := newFixture(t, smallConfig())
	f := fx.field
	f.Scene().SetIntersecting(true)

	f.Dispose()
	f.Dispose()

	assert.True(t, f.Disposed())
	assert.Equal(t, 0, fx.router.Len())
	assert.Equal(t, 1, fx.renderer.disposes)
	assert.True(t, f.Scene().Disposed())

	renders := fx.renderer.renders
	fx.pump(16 * time.Millisecond)
	assert.Equal(t, renders, fx.renderer.renders)

	// no callbacks after deregistration
	fx.router.PointerMove(400, 300)
	assert.False(t, f.Mesh().Sim.ControlLeader())

	f.SetCount(3)
	assert.Equal(t, 10, f.Mesh().Count())
}
