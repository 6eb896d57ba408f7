package scene

import (
	"math"
	"time"

	"github.com/gekko3d/orbfield/clock"
	"github.com/gekko3d/orbfield/logging"
	"github.com/go-gl/mathgl/mgl32"
)

const DefaultResizeDebounce = 100 * time.Millisecond

// Size is the drawable size in logical pixels plus the world-space extent
// visible at the camera's distance from the origin.
type Size struct {
	Width       int
	Height      int
	WorldWidth  float32
	WorldHeight float32
	Ratio       float32
	PixelRatio  float32
}

// FrameState is passed to the render hooks. Values are seconds.
type FrameState struct {
	Elapsed float64
	Delta   float64
}

// Viewport is the drawable the scene sizes itself to.
type Viewport interface {
	Size() (width, height int)
	PixelRatio() float32
}

type Renderer interface {
	Resize(size Size)
	Render(cam *Camera)
	// Clear releases scene content (geometry, instance data) but keeps the device.
	Clear()
	Dispose()
}

type Options struct {
	// Aspect limits; outside them the FOV is widened instead. Zero means unset.
	MinAspect float32
	MaxAspect float32

	MinPixelRatio float32
	MaxPixelRatio float32

	ResizeDebounce time.Duration

	// FixedWidth and FixedHeight, when both positive, replace viewport sizing.
	FixedWidth  int
	FixedHeight int

	Logger logging.Logger
}

// Lifecycle owns the camera, sizing and the visibility gated frame loop.
// It animates only while intersecting and not hidden.
type Lifecycle struct {
	Camera *Camera

	OnBeforeRender func(FrameState)
	OnAfterRender  func(FrameState)
	OnAfterResize  func(Size)

	viewport Viewport
	loop     clock.Scheduler
	renderer Renderer
	opts     Options
	log      logging.Logger

	clock     *clock.Clock
	fps       clock.FPSCounter
	state     FrameState
	cameraFov float32
	size      Size

	frame         clock.Handle
	resizeTimer   clock.Handle
	resizePending bool

	intersecting bool
	hidden       bool
	animating    bool
	disposed     bool
}

func New(viewport Viewport, loop clock.Scheduler, renderer Renderer, opts Options) *Lifecycle {
	if opts.ResizeDebounce <= 0 {
		opts.ResizeDebounce = DefaultResizeDebounce
	}
	l := &Lifecycle{
		Camera:   NewCamera(),
		viewport: viewport,
		loop:     loop,
		renderer: renderer,
		opts:     opts,
		log:      logging.Or(opts.Logger),
		clock:    clock.NewClock(loop.Now),
	}
	l.cameraFov = l.Camera.Fov
	l.Resize()
	return l
}

func (l *Lifecycle) Size() Size { return l.size }

func (l *Lifecycle) Animating() bool { return l.animating }

func (l *Lifecycle) Disposed() bool { return l.disposed }

// SetAspectLimits changes the aspect clamp; call Resize to apply it.
func (l *Lifecycle) SetAspectLimits(minAspect, maxAspect float32) {
	l.opts.MinAspect = minAspect
	l.opts.MaxAspect = maxAspect
}

// SetIntersecting reports whether the drawable is on screen.
func (l *Lifecycle) SetIntersecting(on bool) {
	if l.disposed {
		return
	}
	l.intersecting = on
	l.updateAnimation()
}

// SetHidden reports whether the whole application is hidden (minimized).
func (l *Lifecycle) SetHidden(hidden bool) {
	if l.disposed {
		return
	}
	l.hidden = hidden
	l.updateAnimation()
}

func (l *Lifecycle) updateAnimation() {
	if l.intersecting && !l.hidden {
		l.start()
	} else {
		l.stop()
	}
}

func (l *Lifecycle) start() {
	if l.animating {
		return
	}
	l.animating = true
	l.clock.Start()
	l.log.Debugf("scene: animating")
	l.animateFrame(l.loop.Now())
}

func (l *Lifecycle) stop() {
	if !l.animating {
		return
	}
	l.loop.CancelFrame(l.frame)
	l.animating = false
	l.clock.Stop()
	l.log.Debugf("scene: idle")
}

func (l *Lifecycle) animateFrame(time.Time) {
	l.frame = l.loop.RequestFrame(l.animateFrame)

	l.state.Delta = l.clock.GetDelta()
	l.state.Elapsed += l.state.Delta
	if l.fps.Tick(l.state.Delta) {
		l.log.Debugf("scene: %.1f fps", l.fps.FPS)
	}

	if l.OnBeforeRender != nil {
		l.OnBeforeRender(l.state)
	}
	l.Render()
	if l.OnAfterRender != nil {
		l.OnAfterRender(l.state)
	}
}

func (l *Lifecycle) Render() {
	l.renderer.Render(l.Camera)
}

// NotifyResize schedules a Resize once resize notifications go quiet.
func (l *Lifecycle) NotifyResize() {
	if l.disposed {
		return
	}
	if l.resizePending {
		l.loop.CancelTimer(l.resizeTimer)
	}
	l.resizePending = true
	l.resizeTimer = l.loop.AfterFunc(l.opts.ResizeDebounce, func() {
		l.resizePending = false
		l.Resize()
	})
}

// Resize re-reads the drawable size and updates camera, world size and
// renderer. A zero-area drawable is ignored.
func (l *Lifecycle) Resize() {
	if l.disposed {
		return
	}
	w, h := l.opts.FixedWidth, l.opts.FixedHeight
	if w <= 0 || h <= 0 {
		w, h = l.viewport.Size()
	}
	if w <= 0 || h <= 0 {
		l.log.Debugf("scene: ignoring resize to %dx%d", w, h)
		return
	}
	l.size.Width = w
	l.size.Height = h
	l.size.Ratio = float32(w) / float32(h)
	l.updateCamera()
	l.updateRenderer()
	if l.OnAfterResize != nil {
		l.OnAfterResize(l.size)
	}
}

func (l *Lifecycle) updateCamera() {
	c := l.Camera
	c.Aspect = l.size.Ratio
	switch {
	case l.opts.MinAspect > 0 && c.Aspect < l.opts.MinAspect:
		l.adjustFov(l.opts.MinAspect)
	case l.opts.MaxAspect > 0 && c.Aspect > l.opts.MaxAspect:
		l.adjustFov(l.opts.MaxAspect)
	default:
		c.Fov = l.cameraFov
	}
	l.updateWorldSize()
}

// adjustFov keeps the framing of the clamped aspect: past the limit the
// frustum grows along the short axis instead of cropping the long one.
func (l *Lifecycle) adjustFov(aspect float32) {
	tanFov := math.Tan(float64(mgl32.DegToRad(l.cameraFov / 2)))
	newTan := tanFov / float64(l.Camera.Aspect/aspect)
	l.Camera.Fov = 2 * mgl32.RadToDeg(float32(math.Atan(newTan)))
}

func (l *Lifecycle) updateWorldSize() {
	l.size.WorldHeight = l.Camera.VisibleHeight(l.Camera.Position.Len())
	l.size.WorldWidth = l.size.WorldHeight * l.Camera.Aspect
}

func (l *Lifecycle) updateRenderer() {
	pr := l.viewport.PixelRatio()
	if l.opts.MaxPixelRatio > 0 && pr > l.opts.MaxPixelRatio {
		pr = l.opts.MaxPixelRatio
	} else if l.opts.MinPixelRatio > 0 && pr < l.opts.MinPixelRatio {
		pr = l.opts.MinPixelRatio
	}
	l.size.PixelRatio = pr
	l.renderer.Resize(l.size)
}

// Clear drops the renderer's scene content.
func (l *Lifecycle) Clear() {
	l.renderer.Clear()
}

// Dispose stops the loop, cancels a pending resize and releases the
// renderer. Later calls do nothing.
func (l *Lifecycle) Dispose() {
	if l.disposed {
		return
	}
	if l.resizePending {
		l.loop.CancelTimer(l.resizeTimer)
		l.resizePending = false
	}
	l.stop()
	l.Clear()
	l.renderer.Dispose()
	l.disposed = true
	l.log.Debugf("scene: disposed")
}
