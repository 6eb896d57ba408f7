package pointer

import (
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"
)

// Listener receives raw events from a Source. Touch handlers return true when
// they consumed the event.
type Listener interface {
	PointerMove(x, y float32)
	PointerLeave()
	Click(x, y float32)
	TouchStart(touches []mgl32.Vec2) bool
	TouchMove(touches []mgl32.Vec2) bool
	TouchEnd()
}

// Source delivers global input events. Detach is always called with the same
// Listener value that was attached.
type Source interface {
	Attach(l Listener)
	Detach(l Listener)
}

// GLFWSource feeds a GLFW window's cursor callbacks to one Listener. With
// EmulateTouch set, a left-button drag is delivered as a touch sequence so a
// held pointer can leave the window without releasing its target.
type GLFWSource struct {
	win          *glfw.Window
	EmulateTouch bool

	listener Listener
	pressed  bool
}

func NewGLFWSource(win *glfw.Window) *GLFWSource {
	return &GLFWSource{win: win}
}

func (s *GLFWSource) Attach(l Listener) {
	s.listener = l
	s.win.SetCursorPosCallback(func(w *glfw.Window, xpos, ypos float64) {
		if s.pressed {
			s.listener.TouchMove([]mgl32.Vec2{{float32(xpos), float32(ypos)}})
			return
		}
		s.listener.PointerMove(float32(xpos), float32(ypos))
	})
	s.win.SetCursorEnterCallback(func(w *glfw.Window, entered bool) {
		if !entered && !s.pressed {
			s.listener.PointerLeave()
		}
	})
	s.win.SetMouseButtonCallback(func(w *glfw.Window, button glfw.MouseButton, action glfw.Action, mods glfw.ModifierKey) {
		if button != glfw.MouseButtonLeft {
			return
		}
		x, y := w.GetCursorPos()
		p := mgl32.Vec2{float32(x), float32(y)}
		switch action {
		case glfw.Press:
			if s.EmulateTouch {
				s.pressed = s.listener.TouchStart([]mgl32.Vec2{p})
			}
		case glfw.Release:
			if s.pressed {
				s.pressed = false
				s.listener.TouchEnd()
			}
			s.listener.Click(p[0], p[1])
		}
	})
}

func (s *GLFWSource) Detach(l Listener) {
	if s.listener != l {
		return
	}
	s.win.SetCursorPosCallback(nil)
	s.win.SetCursorEnterCallback(nil)
	s.win.SetMouseButtonCallback(nil)
	s.listener = nil
	s.pressed = false
}
