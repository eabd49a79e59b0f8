// Package timeline converts between track time and waveform pixels.
package timeline

// Mapper converts logical milliseconds to viewport pixels for fixed zoom and
// pan parameters. The visible time window is DurationMs/ScaleX.
type Mapper struct {
	DurationMs      float64
	ViewportWidthPx float64
	ScaleX          float64
	OffsetX         float64
}

// NewMapper builds a mapper for a track and a viewport transform.
func NewMapper(durationMs, viewportWidthPx float64, v Viewport) Mapper {
	return Mapper{
		DurationMs:      durationMs,
		ViewportWidthPx: viewportWidthPx,
		ScaleX:          v.ScaleX,
		OffsetX:         v.OffsetX,
	}
}

func (m Mapper) usable() bool {
	return m.DurationMs > 0 && m.ViewportWidthPx > 0 && m.ScaleX > 0
}

// visibleMs is the duration shown across the full viewport width.
func (m Mapper) visibleMs() float64 { return m.DurationMs / m.ScaleX }

// PositionToPixel maps a track position to a viewport x coordinate.
func (m Mapper) PositionToPixel(positionMs float64) float64 {
	if !m.usable() {
		return 0
	}
	return positionMs*m.ViewportWidthPx/m.visibleMs() + m.OffsetX
}

// PixelToPosition is the exact inverse of PositionToPixel.
func (m Mapper) PixelToPosition(px float64) float64 {
	if !m.usable() {
		return 0
	}
	visible := m.visibleMs()
	return visible*px/m.ViewportWidthPx - visible*m.OffsetX/m.ViewportWidthPx
}

// PixelsToDuration converts a horizontal pixel distance to milliseconds.
func (m Mapper) PixelsToDuration(dx float64) float64 {
	if !m.usable() {
		return 0
	}
	return m.visibleMs() * dx / m.ViewportWidthPx
}
