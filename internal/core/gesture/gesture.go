// Package gesture turns raw pointer input over the waveform into semantic
// actions. It holds no state; the host tracks drag progress.
package gesture

import (
	"math"

	"github.com/ewilliams-labs/rockdj/internal/core/domain"
	"github.com/ewilliams-labs/rockdj/internal/core/slices"
	"github.com/ewilliams-labs/rockdj/internal/core/timeline"
)

const (
	// TapThresholdPx is the total drag movement below which a drag is a tap.
	TapThresholdPx = 3.0
	// HandleWidthPx is the grab width of a slice boundary handle.
	HandleWidthPx = 2.0
)

// Event is raw pointer input.
type Event interface{ isEvent() }

type (
	// PointerDown starts a press at X.
	PointerDown struct{ X float64 }
	// Drag is one step of a press-and-move. DX is the step delta and
	// MovementPx the total distance travelled since the press.
	Drag struct {
		X, DX, MovementPx float64
		First, Last       bool
	}
	// Move is a hover without a press.
	Move struct{ X float64 }
	// Pinch zooms by Scale, a factor of the current zoom, around X.
	Pinch struct{ Scale, X float64 }
	// HandleDrag moves a slice boundary that the press started on.
	HandleDrag struct {
		SliceID string
		Handle  slices.Handle
		X       float64
		Last    bool
	}
)

func (PointerDown) isEvent() {}
func (Drag) isEvent()        {}
func (Move) isEvent()        {}
func (Pinch) isEvent()       {}
func (HandleDrag) isEvent()  {}

// Action is what an event means in the current mode.
type Action interface{ isAction() }

type (
	None     struct{}
	Seek     struct{ Ms float64 }
	Pan      struct{ DX float64 }
	Zoom     struct{ Scale, AnchorX float64 }
	SliceTap struct{ Ms float64 }
	Cursor   struct{ Ms float64 }
	// Resize moves a slice boundary to Ms.
	Resize struct {
		SliceID string
		Handle  slices.Handle
		Ms      float64
	}
)

func (None) isAction()     {}
func (Seek) isAction()     {}
func (Pan) isAction()      {}
func (Zoom) isAction()     {}
func (SliceTap) isAction() {}
func (Cursor) isAction()   {}
func (Resize) isAction()   {}

// Context is the state an event is interpreted against.
type Context struct {
	Slicing bool
	Mapper  timeline.Mapper
}

// Controller interprets events.
type Controller struct {
	TapThresholdPx float64
}

func NewController() Controller {
	return Controller{TapThresholdPx: TapThresholdPx}
}

// Interpret maps ev to an action. In slicing mode a press feeds the slice
// editor and drags are ignored; otherwise a released drag that barely moved
// seeks and a drag that moved pans. Hover, pinch and handle drags work in
// every mode.
func (c Controller) Interpret(ev Event, ctx Context) Action {
	m := ctx.Mapper
	switch e := ev.(type) {
	case Move:
		return Cursor{Ms: m.PixelToPosition(e.X)}
	case Pinch:
		return Zoom{Scale: timeline.ClampScale(m.ScaleX * e.Scale), AnchorX: e.X}
	case HandleDrag:
		return Resize{SliceID: e.SliceID, Handle: e.Handle, Ms: m.PixelToPosition(e.X)}
	case PointerDown:
		if ctx.Slicing {
			return SliceTap{Ms: m.PixelToPosition(e.X)}
		}
		return None{}
	case Drag:
		if ctx.Slicing {
			return None{}
		}
		if e.MovementPx < c.TapThresholdPx {
			if e.Last {
				return Seek{Ms: m.PixelToPosition(e.X)}
			}
			return None{}
		}
		return Pan{DX: e.DX}
	}
	return None{}
}

// HitHandle finds the slice boundary under x. The closest handle within
// HandleWidthPx wins.
func HitHandle(x float64, set []domain.Slice, m timeline.Mapper) (string, slices.Handle, bool) {
	var (
		bestID     string
		bestHandle slices.Handle
		bestDist   = math.Inf(1)
	)
	for _, s := range set {
		for _, h := range []slices.Handle{slices.StartHandle, slices.EndHandle} {
			pos := s.StartPositionMs
			if h == slices.EndHandle {
				pos = s.EndPositionMs
			}
			d := math.Abs(x - m.PositionToPixel(pos))
			if d < HandleWidthPx && d < bestDist {
				bestID, bestHandle, bestDist = s.ID, h, d
			}
		}
	}
	return bestID, bestHandle, bestDist < HandleWidthPx
}
