package store

import (
	"github.com/ewilliams-labs/rockdj/internal/core/domain"
	"github.com/ewilliams-labs/rockdj/internal/core/timeline"
)

// State is the deck's shared snapshot.
type State struct {
	Player       domain.PlaybackState
	Slicing      bool
	Reconnecting bool

	// SliceTrackID names the track Slices belong to. It lags the current
	// track until the new track's slices have loaded.
	SliceTrackID string
	Slices       []domain.Slice

	Cursor          float64
	Viewport        timeline.Viewport
	ViewportWidthPx float64
}

// NewState returns the snapshot before the player has reported anything.
func NewState() State {
	return State{
		Player:   domain.NewPlaybackState(),
		Viewport: timeline.NewViewport(),
	}
}

// Mapper returns the coordinate mapper for the current track and viewport.
func (s State) Mapper() timeline.Mapper {
	return timeline.NewMapper(s.Player.DurationMs, s.ViewportWidthPx, s.Viewport)
}

// Action is a pure state transition.
type Action func(State) State

// SetPosition moves the playhead, clamped to the track.
func SetPosition(positionMs float64) Action {
	return func(s State) State {
		s.Player.PositionMs = positionMs
		s.Player = s.Player.Clamp()
		return s
	}
}

// AdvancePosition moves the playhead forward by deltaMs, never past the end.
func AdvancePosition(deltaMs float64) Action {
	return func(s State) State {
		s.Player.PositionMs += deltaMs
		s.Player = s.Player.Clamp()
		return s
	}
}

// SetDeviceID records the ready local device. "" clears it.
func SetDeviceID(deviceID string) Action {
	return func(s State) State {
		s.Player.DeviceID = deviceID
		return s
	}
}

// ApplyExternalState overwrites paused, duration, position and the track
// window with an authoritative push from the player.
func ApplyExternalState(ext domain.ExternalState) Action {
	return func(s State) State {
		s.Player.Paused = ext.Paused
		s.Player.DurationMs = ext.DurationMs
		s.Player.PositionMs = ext.PositionMs
		s.Player.CurrentTrack = ext.Window.Current
		s.Player.PreviousTrack = ext.Window.PreviousTrack()
		s.Player.NextTrack = ext.Window.NextTrack()
		s.Player = s.Player.Clamp()
		return s
	}
}

// ResetPlayer forgets everything the player reported, keeping the device.
func ResetPlayer() Action {
	return func(s State) State {
		device := s.Player.DeviceID
		s.Player = domain.NewPlaybackState()
		s.Player.DeviceID = device
		return s
	}
}

func SetSlicing(on bool) Action {
	return func(s State) State {
		s.Slicing = on
		return s
	}
}

func SetReconnecting(on bool) Action {
	return func(s State) State {
		s.Reconnecting = on
		return s
	}
}

// SetSlices replaces the slice set of trackID.
func SetSlices(trackID string, set []domain.Slice) Action {
	return func(s State) State {
		s.SliceTrackID = trackID
		s.Slices = domain.CloneSlices(set)
		return s
	}
}

// SetCursor moves the hover cursor, clamped to the track.
func SetCursor(positionMs float64) Action {
	return func(s State) State {
		switch {
		case positionMs < 0:
			positionMs = 0
		case positionMs > s.Player.DurationMs:
			positionMs = s.Player.DurationMs
		}
		s.Cursor = positionMs
		return s
	}
}

// SetViewport replaces the pan and zoom transform, clamped to the viewport.
func SetViewport(v timeline.Viewport) Action {
	return func(s State) State {
		s.Viewport = v.Clamp(s.ViewportWidthPx)
		return s
	}
}

// SetViewportWidth records the waveform width and re-clamps the pan offset.
func SetViewportWidth(px float64) Action {
	return func(s State) State {
		if px < 0 {
			px = 0
		}
		s.ViewportWidthPx = px
		s.Viewport = s.Viewport.Clamp(px)
		return s
	}
}

// Selectors.

func PositionMs(s State) float64 { return s.Player.PositionMs }
func DurationMs(s State) float64 { return s.Player.DurationMs }
func DeviceID(s State) string    { return s.Player.DeviceID }
func TrackID(s State) string     { return s.Player.TrackID() }
func Paused(s State) bool        { return s.Player.Paused }
func Slicing(s State) bool       { return s.Slicing }
func Reconnecting(s State) bool  { return s.Reconnecting }

// SliceVersion changes whenever the slice set or its track changes. Slice
// sets are replaced wholesale, so the backing array identifies a version.
func SliceVersion(s State) SliceSetVersion {
	v := SliceSetVersion{trackID: s.SliceTrackID, n: len(s.Slices)}
	if len(s.Slices) > 0 {
		v.first = &s.Slices[0]
	}
	return v
}

// SliceSetVersion identifies one slice set snapshot.
type SliceSetVersion struct {
	trackID string
	n       int
	first   *domain.Slice
}
