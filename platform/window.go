package platform

import (
	"fmt"
	"time"

	"github.com/gekko3d/orbfield/clock"
	"github.com/gekko3d/orbfield/pointer"
	"github.com/go-gl/glfw/v3.3/glfw"
)

// Window is a GLFW window without a client API; WebGPU draws into it via a
// surface. It must be created and used on the main OS thread.
type Window struct {
	GLFW  *glfw.Window
	Title string
}

func NewWindow(width, height int, title string) (*Window, error) {
	if width <= 0 {
		width = 1280
	}
	if height <= 0 {
		height = 720
	}
	if title == "" {
		title = "orbfield"
	}
	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("glfw init: %w", err)
	}

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	glfw.WindowHint(glfw.Resizable, glfw.True)
	glfw.WindowHint(glfw.TransparentFramebuffer, glfw.True)

	win, err := glfw.CreateWindow(width, height, title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("create window: %w", err)
	}
	return &Window{GLFW: win, Title: title}, nil
}

// Size is the client area in screen coordinates, the space cursor events use.
func (w *Window) Size() (int, int) { return w.GLFW.GetSize() }

func (w *Window) FramebufferSize() (int, int) { return w.GLFW.GetFramebufferSize() }

// PixelRatio is framebuffer pixels per screen coordinate.
func (w *Window) PixelRatio() float32 {
	ww, _ := w.GLFW.GetSize()
	fw, _ := w.GLFW.GetFramebufferSize()
	if ww <= 0 || fw <= 0 {
		x, _ := w.GLFW.GetContentScale()
		if x > 0 {
			return x
		}
		return 1
	}
	return float32(fw) / float32(ww)
}

// Bounds makes the window's client area a pointer target.
func (w *Window) Bounds() pointer.Rect {
	ww, wh := w.GLFW.GetSize()
	return pointer.Rect{Width: float32(ww), Height: float32(wh)}
}

// Observer receives the window state a scene gates its loop and sizing on.
type Observer interface {
	SetIntersecting(on bool)
	SetHidden(hidden bool)
	NotifyResize()
}

// Observe forwards resize and iconify changes to o and reports the current
// state right away. A zero-sized framebuffer counts as off screen.
func (w *Window) Observe(o Observer) {
	w.GLFW.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		o.SetIntersecting(width > 0 && height > 0)
		o.NotifyResize()
	})
	w.GLFW.SetContentScaleCallback(func(_ *glfw.Window, x, y float32) {
		o.NotifyResize()
	})
	w.GLFW.SetIconifyCallback(func(_ *glfw.Window, iconified bool) {
		o.SetHidden(iconified)
	})

	fw, fh := w.FramebufferSize()
	o.SetHidden(w.GLFW.GetAttrib(glfw.Iconified) == glfw.True)
	o.SetIntersecting(fw > 0 && fh > 0)
}

func (w *Window) Unobserve() {
	w.GLFW.SetFramebufferSizeCallback(nil)
	w.GLFW.SetContentScaleCallback(nil)
	w.GLFW.SetIconifyCallback(nil)
}

// Run drives loop until the window is asked to close. Input is polled before
// every pump so event handlers run ahead of that iteration's frame. With no
// frame pending the thread sleeps until input or the next timer.
func (w *Window) Run(loop *clock.Loop) {
	for !w.GLFW.ShouldClose() {
		switch {
		case loop.HasFrames():
			glfw.PollEvents()
		default:
			if d := loop.Timeout(time.Now()); d >= 0 {
				glfw.WaitEventsTimeout(d.Seconds())
			} else {
				glfw.WaitEvents()
			}
		}
		loop.Pump(time.Now())
	}
}

func (w *Window) Close() { w.GLFW.SetShouldClose(true) }

func (w *Window) Destroy() {
	w.GLFW.Destroy()
	glfw.Terminate()
}
