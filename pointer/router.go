package pointer

import (
	"github.com/gekko3d/orbfield/logging"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

// Rect is a target's bounding box in the same coordinate space as the events
// delivered by the Source.
type Rect struct {
	Left, Top     float32
	Width, Height float32
}

// Contains is inclusive on every edge.
func (r Rect) Contains(p mgl32.Vec2) bool {
	return p[0] >= r.Left && p[0] <= r.Left+r.Width &&
		p[1] >= r.Top && p[1] <= r.Top+r.Height
}

// Target is anything that can be hit-tested. Bounds is queried on every
// event, so moving or resizing a target needs no re-registration.
// Implementations must be comparable; they are matched by identity.
type Target interface {
	Bounds() Rect
}

// State is the per-target pointer record handed to callbacks.
type State struct {
	Position  mgl32.Vec2 // pixels relative to the target's top-left corner
	NPosition mgl32.Vec2 // normalized device coordinates, Y up
	Hover     bool
	Touching  bool
}

type Callbacks struct {
	OnEnter func(State)
	OnMove  func(State)
	OnClick func(State)
	OnLeave func(State)
}

// Handle is one registration. Dispose is idempotent.
type Handle struct {
	id       uuid.UUID
	router   *Router
	target   Target
	cb       Callbacks
	state    State
	disposed bool
}

func (h *Handle) ID() uuid.UUID { return h.id }

func (h *Handle) State() State { return h.state }

func (h *Handle) Disposed() bool { return h.disposed }

func (h *Handle) Dispose() {
	if h.disposed {
		return
	}
	h.router.unregister(h)
}

// Router fans one set of source listeners out to every registered target.
// The router is attached to its Source only while at least one target is
// registered. All methods must be called from the event thread.
type Router struct {
	source   Source
	log      logging.Logger
	handles  []*Handle
	attached bool
	pointer  mgl32.Vec2
}

func NewRouter(source Source, log logging.Logger) *Router {
	return &Router{source: source, log: logging.Or(log)}
}

// Register starts routing events to target. Registering a target that is
// already registered replaces its callbacks and returns the existing handle.
func (r *Router) Register(target Target, cb Callbacks) *Handle {
	for _, h := range r.handles {
		if h.target == target {
			r.log.Warnf("pointer: target already registered as %s, replacing callbacks", h.id)
			h.cb = cb
			return h
		}
	}

	h := &Handle{id: uuid.New(), router: r, target: target, cb: cb}
	r.handles = append(r.handles, h)
	r.log.Debugf("pointer: registered %s (%d targets)", h.id, len(r.handles))
	if !r.attached && r.source != nil {
		r.source.Attach(r)
		r.attached = true
	}
	return h
}

func (r *Router) unregister(h *Handle) {
	h.disposed = true
	for i, other := range r.handles {
		if other == h {
			r.handles = append(r.handles[:i], r.handles[i+1:]...)
			break
		}
	}
	r.log.Debugf("pointer: disposed %s (%d targets)", h.id, len(r.handles))
	if len(r.handles) == 0 && r.attached {
		r.source.Detach(r)
		r.attached = false
	}
}

// Len is the number of registered targets.
func (r *Router) Len() int { return len(r.handles) }

func (r *Router) Attached() bool { return r.attached }

// each visits a snapshot of the registrations so callbacks may dispose
// handles (their own or others) mid-dispatch.
func (r *Router) each(fn func(h *Handle)) {
	snapshot := append([]*Handle(nil), r.handles...)
	for _, h := range snapshot {
		if !h.disposed {
			fn(h)
		}
	}
}

func (r *Router) update(h *Handle, rect Rect) {
	h.state.Position = mgl32.Vec2{r.pointer[0] - rect.Left, r.pointer[1] - rect.Top}
	if rect.Width > 0 && rect.Height > 0 {
		h.state.NPosition = mgl32.Vec2{
			h.state.Position[0]/rect.Width*2 - 1,
			-h.state.Position[1]/rect.Height*2 + 1,
		}
	}
}

func (r *Router) enter(h *Handle) {
	if h.state.Hover {
		return
	}
	h.state.Hover = true
	fire(h.cb.OnEnter, h)
}

func (r *Router) leave(h *Handle) {
	h.state.Hover = false
	fire(h.cb.OnLeave, h)
}

func fire(fn func(State), h *Handle) {
	if fn != nil && !h.disposed {
		fn(h.state)
	}
}

// PointerMove handles a hover move. A target still held by a touch keeps its
// hover state when the pointer slides off it.
func (r *Router) PointerMove(x, y float32) {
	r.pointer = mgl32.Vec2{x, y}
	r.each(func(h *Handle) {
		rect := h.target.Bounds()
		if rect.Contains(r.pointer) {
			r.update(h, rect)
			r.enter(h)
			fire(h.cb.OnMove, h)
		} else if h.state.Hover && !h.state.Touching {
			r.leave(h)
		}
	})
}

// PointerLeave is the pointer leaving the event surface entirely.
func (r *Router) PointerLeave() {
	r.each(func(h *Handle) {
		if h.state.Hover {
			r.leave(h)
		}
	})
}

func (r *Router) Click(x, y float32) {
	r.pointer = mgl32.Vec2{x, y}
	r.each(func(h *Handle) {
		rect := h.target.Bounds()
		r.update(h, rect)
		if rect.Contains(r.pointer) {
			fire(h.cb.OnClick, h)
		}
	})
}

// TouchStart routes the first touch point. It reports whether the event was
// consumed, in which case the source should suppress its default handling.
func (r *Router) TouchStart(touches []mgl32.Vec2) bool {
	if len(touches) == 0 {
		return false
	}
	r.pointer = touches[0]
	r.each(func(h *Handle) {
		rect := h.target.Bounds()
		if !rect.Contains(r.pointer) {
			return
		}
		h.state.Touching = true
		r.update(h, rect)
		r.enter(h)
		fire(h.cb.OnMove, h)
	})
	return true
}

// TouchMove keeps feeding moves to a held target even outside its bounds.
func (r *Router) TouchMove(touches []mgl32.Vec2) bool {
	if len(touches) == 0 {
		return false
	}
	r.pointer = touches[0]
	r.each(func(h *Handle) {
		rect := h.target.Bounds()
		r.update(h, rect)
		if rect.Contains(r.pointer) {
			if !h.state.Hover {
				h.state.Touching = true
				r.enter(h)
			}
			fire(h.cb.OnMove, h)
		} else if h.state.Hover && h.state.Touching {
			fire(h.cb.OnMove, h)
		}
	})
	return true
}

// TouchEnd also serves touch cancellation.
func (r *Router) TouchEnd() {
	r.each(func(h *Handle) {
		if !h.state.Touching {
			return
		}
		h.state.Touching = false
		if h.state.Hover {
			r.leave(h)
		}
	})
}
