package scene

import (
	"math"
	"testing"
	"time"

	"github.com/gekko3d/orbfield/clock"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeViewport struct {
	w, h int
	pr   float32
}

func (v *fakeViewport) Size() (int, int)    { return v.w, v.h }
func (v *fakeViewport) PixelRatio() float32 { return v.pr }

type fakeRenderer struct {
	sizes    []Size
	renders  int
	clears   int
	disposes int
}

func (r *fakeRenderer) Resize(s Size)  { r.sizes = append(r.sizes, s) }
func (r *fakeRenderer) Render(*Camera) { r.renders++ }
func (r *fakeRenderer) Clear()         { r.clears++ }
func (r *fakeRenderer) Dispose()       { r.disposes++ }

type harness struct {
	now      time.Time
	loop     *clock.Loop
	viewport *fakeViewport
	renderer *fakeRenderer
	scene    *Lifecycle
}

func newHarness(opts Options) *harness {
	h := &harness{
		now:      time.Unix(1000, 0),
		viewport: &fakeViewport{w: 800, h: 600, pr: 2},
		renderer: &fakeRenderer{},
	}
	h.loop = clock.NewLoop(h.now)
	h.scene = New(h.viewport, h.loop, h.renderer, opts)
	return h
}

func (h *harness) pump(d time.Duration) int {
	h.now = h.now.Add(d)
	return h.loop.Pump(h.now)
}

func TestLifecycle_IdleUntilIntersecting(t *testing.T) {
	h := newHarness(Options{})
	assert.False(t, h.scene.Animating())
	assert.Equal(t, 0, h.pump(16*time.Millisecond))
	assert.Equal(t, 0, h.renderer.renders)

	h.scene.SetIntersecting(true)
	assert.True(t, h.scene.Animating())
	// first frame runs immediately, the next one waits for the loop
	assert.Equal(t, 1, h.renderer.renders)
	assert.Equal(t, 1, h.pump(16*time.Millisecond))
	assert.Equal(t, 2, h.renderer.renders)
}

func TestLifecycle_HiddenStopsLoop(t *testing.T) {
	h := newHarness(Options{})
	h.scene.SetIntersecting(true)
	h.scene.SetHidden(true)
	assert.False(t, h.scene.Animating())
	assert.Equal(t, 0, h.pump(16*time.Millisecond))

	h.scene.SetHidden(false)
	assert.True(t, h.scene.Animating())

	h.scene.SetIntersecting(false)
	h.scene.SetHidden(false)
	assert.False(t, h.scene.Animating())
	assert.False(t, h.loop.HasFrames())
}

func TestLifecycle_HookOrderAndDelta(t *testing.T) {
	h := newHarness(Options{})
	var order []string
	var deltas []float64
	h.scene.OnBeforeRender = func(s FrameState) {
		order = append(order, "before")
		deltas = append(deltas, s.Delta)
	}
	h.scene.OnAfterRender = func(FrameState) { order = append(order, "after") }

	h.scene.SetIntersecting(true)
	h.pump(20 * time.Millisecond)

	assert.Equal(t, []string{"before", "after", "before", "after"}, order)
	require.Len(t, deltas, 2)
	assert.Equal(t, 0.0, deltas[0])
	assert.InDelta(t, 0.020, deltas[1], 1e-9)
}

func TestLifecycle_IdleTimeIsNotADelta(t *testing.T) {
	h := newHarness(Options{})
	var last FrameState
	h.scene.OnBeforeRender = func(s FrameState) { last = s }

	h.scene.SetIntersecting(true)
	h.pump(10 * time.Millisecond)
	h.scene.SetHidden(true)
	h.pump(time.Hour)
	h.scene.SetHidden(false)
	h.pump(10 * time.Millisecond)

	assert.InDelta(t, 0.010, last.Delta, 1e-9)
	assert.InDelta(t, 0.020, last.Elapsed, 1e-9)
}

func TestLifecycle_ResizeComputesWorldSize(t *testing.T) {
	h := newHarness(Options{})
	var published []Size
	h.scene.OnAfterResize = func(s Size) { published = append(published, s) }
	h.scene.Camera.Position = mgl32.Vec3{0, 0, 20}

	h.viewport.w, h.viewport.h = 1000, 1000
	h.scene.Resize()

	s := h.scene.Size()
	wantH := 2 * math.Tan(25*math.Pi/180) * 20
	assert.InDelta(t, wantH, s.WorldHeight, 1e-3)
	assert.InDelta(t, wantH, s.WorldWidth, 1e-3)
	assert.Equal(t, float32(1), s.Ratio)
	assert.Equal(t, float32(2), s.PixelRatio)
	require.Len(t, published, 1)
	assert.Equal(t, s, published[0])
	assert.Equal(t, s, h.renderer.sizes[len(h.renderer.sizes)-1])
}

func TestLifecycle_WideAspectWidensFov(t *testing.T) {
	h := newHarness(Options{MaxAspect: 1.5})
	h.scene.Camera.Position = mgl32.Vec3{0, 0, 20}

	h.viewport.w, h.viewport.h = 1200, 800
	h.scene.Resize()
	assert.Equal(t, float32(50), h.scene.Camera.Fov)
	heightAtLimit := h.scene.Size().WorldHeight

	h.viewport.w, h.viewport.h = 3000, 1000
	h.scene.Resize()
	assert.Equal(t, float32(3), h.scene.Camera.Aspect)
	assert.Less(t, h.scene.Camera.Fov, float32(50))
	// horizontal extent matches what the limit aspect would show
	assert.InDelta(t, heightAtLimit*1.5, h.scene.Size().WorldWidth, 1e-3)

	h.viewport.w, h.viewport.h = 1000, 1000
	h.scene.Resize()
	assert.Equal(t, float32(50), h.scene.Camera.Fov)
}

func TestLifecycle_NarrowAspectWidensFov(t *testing.T) {
	h := newHarness(Options{MinAspect: 1})
	h.viewport.w, h.viewport.h = 500, 1000
	h.scene.Resize()
	assert.Greater(t, h.scene.Camera.Fov, float32(50))
}

func TestLifecycle_PixelRatioClamp(t *testing.T) {
	h := newHarness(Options{MinPixelRatio: 1, MaxPixelRatio: 1.5})
	assert.Equal(t, float32(1.5), h.scene.Size().PixelRatio)

	h.viewport.pr = 0.5
	h.scene.Resize()
	assert.Equal(t, float32(1), h.scene.Size().PixelRatio)
}

func TestLifecycle_FixedSize(t *testing.T) {
	h := newHarness(Options{FixedWidth: 320, FixedHeight: 240})
	assert.Equal(t, 320, h.scene.Size().Width)
	assert.Equal(t, 240, h.scene.Size().Height)
}

func TestLifecycle_ZeroSizeIgnored(t *testing.T) {
	h := newHarness(Options{})
	before := h.scene.Size()
	calls := len(h.renderer.sizes)

	h.viewport.w, h.viewport.h = 0, 0
	assert.NotPanics(t, h.scene.Resize)
	assert.Equal(t, before, h.scene.Size())
	assert.Len(t, h.renderer.sizes, calls)
}

func TestLifecycle_ResizeIsDebounced(t *testing.T) {
	h := newHarness(Options{})
	resizes := 0
	h.scene.OnAfterResize = func(Size) { resizes++ }

	h.scene.NotifyResize()
	h.pump(50 * time.Millisecond)
	h.scene.NotifyResize()
	h.pump(50 * time.Millisecond)
	h.scene.NotifyResize()
	h.pump(99 * time.Millisecond)
	assert.Equal(t, 0, resizes)

	h.pump(time.Millisecond)
	assert.Equal(t, 1, resizes)
}

func TestLifecycle_DisposeIsIdempotent(t *testing.T) {
	h := newHarness(Options{})
	resizes := 0
	h.scene.OnAfterResize = func(Size) { resizes++ }
	h.scene.SetIntersecting(true)
	h.scene.NotifyResize()

	h.scene.Dispose()
	assert.NotPanics(t, h.scene.Dispose)
	assert.True(t, h.scene.Disposed())
	assert.Equal(t, 1, h.renderer.disposes)
	assert.Equal(t, 1, h.renderer.clears)

	renders := h.renderer.renders
	assert.Equal(t, 0, h.pump(time.Second))
	assert.Equal(t, renders, h.renderer.renders)
	assert.Equal(t, 0, resizes)

	h.scene.SetIntersecting(true)
	assert.False(t, h.scene.Animating())
}

func TestCamera_RayHitsPlaneUnderPointer(t *testing.T) {
	c := NewCamera()
	c.Position = mgl32.Vec3{0, 0, 20}
	c.LookAt(mgl32.Vec3{})
	c.Aspect = 2

	plane := Plane{Normal: c.WorldDirection()}

	hit, ok := c.Ray(mgl32.Vec2{0, 0}).IntersectPlane(plane)
	require.True(t, ok)
	assert.True(t, hit.ApproxEqualThreshold(mgl32.Vec3{}, 1e-3), "got %v", hit)

	// the top right corner maps to the frustum corner at the plane's depth
	hit, ok = c.Ray(mgl32.Vec2{1, 1}).IntersectPlane(plane)
	require.True(t, ok)
	halfH := c.VisibleHeight(20) / 2
	assert.InDelta(t, halfH*2, hit[0], 1e-3)
	assert.InDelta(t, halfH, hit[1], 1e-3)
	assert.InDelta(t, 0, hit[2], 1e-3)
}

func TestRay_IntersectPlaneMisses(t *testing.T) {
	plane := Plane{Normal: mgl32.Vec3{0, 0, 1}}
	_, ok := Ray{Origin: mgl32.Vec3{0, 0, 5}, Dir: mgl32.Vec3{0, 0, 1}}.IntersectPlane(plane)
	assert.False(t, ok, "plane behind the ray")

	_, ok = Ray{Origin: mgl32.Vec3{0, 0, 5}, Dir: mgl32.Vec3{1, 0, 0}}.IntersectPlane(plane)
	assert.False(t, ok, "parallel")
}
