package deck

import (
	"math"

	"github.com/ewilliams-labs/rockdj/internal/core/gesture"
	"github.com/ewilliams-labs/rockdj/internal/core/slices"
)

// wheelZoom is the zoom factor of one wheel notch.
const wheelZoom = 1.25

// pointer turns terminal press/motion/release reports into gesture events.
// Terminal mice report cells, so x is a column index.
type pointer struct {
	pressed  bool
	dragging bool
	startX   float64
	lastX    float64
	moved    float64

	grab       bool
	grabID     string
	grabHandle slices.Handle
}

// press starts a press. A press on a slice handle grabs it.
func (p *pointer) press(x float64, handleID string, h slices.Handle, onHandle bool) gesture.Event {
	*p = pointer{pressed: true, startX: x, lastX: x}
	if onHandle {
		p.grab, p.grabID, p.grabHandle = true, handleID, h
		return nil
	}
	return gesture.PointerDown{X: x}
}

func (p *pointer) motion(x float64) gesture.Event {
	if !p.pressed {
		return gesture.Move{X: x}
	}
	if p.grab {
		return gesture.HandleDrag{SliceID: p.grabID, Handle: p.grabHandle, X: x}
	}
	return p.drag(x, false)
}

func (p *pointer) release(x float64) gesture.Event {
	if !p.pressed {
		return nil
	}
	defer func() { *p = pointer{} }()
	if p.grab {
		return gesture.HandleDrag{SliceID: p.grabID, Handle: p.grabHandle, X: x, Last: true}
	}
	return p.drag(x, true)
}

func (p *pointer) drag(x float64, last bool) gesture.Event {
	dx := x - p.lastX
	p.moved += math.Abs(dx)
	first := !p.dragging
	p.dragging = true
	p.lastX = x
	return gesture.Drag{X: x, DX: dx, MovementPx: p.moved, First: first, Last: last}
}

func wheel(x float64, up bool) gesture.Event {
	if up {
		return gesture.Pinch{Scale: wheelZoom, X: x}
	}
	return gesture.Pinch{Scale: 1 / wheelZoom, X: x}
}
