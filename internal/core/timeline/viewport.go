package timeline

import "math"

const (
	MinScale = 1.0
	MaxScale = 8.0
)

// Viewport owns pan & zoom of the waveform. OffsetX is a pixel pan offset,
// always within [-(ScaleX-1)*rightEdge, 0].
type Viewport struct {
	OffsetX float64 `json:"offsetX"`
	ScaleX  float64 `json:"scaleX"`
}

func NewViewport() Viewport { return Viewport{ScaleX: MinScale} }

// ClampScale bounds a zoom factor to [MinScale, MaxScale].
func ClampScale(scale float64) float64 {
	if math.IsNaN(scale) {
		return MinScale
	}
	return math.Max(MinScale, math.Min(scale, MaxScale))
}

// Clamp returns the viewport with scale bounded and the offset bounded so the
// visible window never leaves the track.
func (v Viewport) Clamp(rightEdgePx float64) Viewport {
	v.ScaleX = ClampScale(v.ScaleX)
	minOffset := -(v.ScaleX - 1) * math.Max(rightEdgePx, 0)
	v.OffsetX = math.Max(math.Min(0, v.OffsetX), minOffset)
	return v
}

// Pan moves the window by dx pixels. Positive dx reveals later time.
func (v Viewport) Pan(dx, rightEdgePx float64) Viewport {
	v.OffsetX -= dx
	return v.Clamp(rightEdgePx)
}

// Zoom sets the zoom factor, keeping the current offset where possible.
func (v Viewport) Zoom(scale, rightEdgePx float64) Viewport {
	v.ScaleX = scale
	return v.Clamp(rightEdgePx)
}

// ZoomAt sets the zoom factor while keeping the time under anchorPx fixed.
func (v Viewport) ZoomAt(scale, anchorPx, viewportWidthPx, durationMs float64) Viewport {
	if durationMs <= 0 || viewportWidthPx <= 0 {
		return v.Zoom(scale, viewportWidthPx)
	}
	before := NewMapper(durationMs, viewportWidthPx, v)
	anchorMs := before.PixelToPosition(anchorPx)

	next := Viewport{ScaleX: ClampScale(scale)}
	after := NewMapper(durationMs, viewportWidthPx, next)
	next.OffsetX = anchorPx - after.PositionToPixel(anchorMs)
	return next.Clamp(viewportWidthPx)
}
