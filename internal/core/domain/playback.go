package domain

// PlaybackState mirrors what the external player last reported, advanced
// locally by the position clock. An empty DeviceID means no local device.
type PlaybackState struct {
	Paused        bool      `json:"paused"`
	DurationMs    float64   `json:"durationMs"`
	PositionMs    float64   `json:"positionMs"`
	CurrentTrack  *TrackRef `json:"currentTrack,omitempty"`
	PreviousTrack *TrackRef `json:"previousTrack,omitempty"`
	NextTrack     *TrackRef `json:"nextTrack,omitempty"`
	DeviceID      string    `json:"deviceId,omitempty"`
}

// NewPlaybackState returns the state before the first push from the player.
func NewPlaybackState() PlaybackState {
	return PlaybackState{Paused: true}
}

// Clamp enforces 0 <= PositionMs <= DurationMs and DurationMs >= 0.
func (s PlaybackState) Clamp() PlaybackState {
	if s.DurationMs < 0 {
		s.DurationMs = 0
	}
	if s.PositionMs < 0 {
		s.PositionMs = 0
	}
	if s.PositionMs > s.DurationMs {
		s.PositionMs = s.DurationMs
	}
	return s
}

// HasDevice reports whether the player has a ready local device.
func (s PlaybackState) HasDevice() bool { return s.DeviceID != "" }

// TrackID returns the current track id or "" when nothing is loaded.
func (s PlaybackState) TrackID() string {
	if s.CurrentTrack == nil {
		return ""
	}
	return s.CurrentTrack.ID
}

// TrackWindow is the player's view of previous, current and next tracks.
type TrackWindow struct {
	Current  *TrackRef  `json:"currentTrack,omitempty"`
	Previous []TrackRef `json:"previousTracks,omitempty"`
	Next     []TrackRef `json:"nextTracks,omitempty"`
}

// ExternalState is the raw state payload of a player_state_changed event.
type ExternalState struct {
	Paused     bool        `json:"paused"`
	PositionMs float64     `json:"position"`
	DurationMs float64     `json:"duration"`
	ContextURI string      `json:"contextUri,omitempty"`
	Window     TrackWindow `json:"trackWindow"`
}

// PreviousTrack returns the last element of the previous tracks.
func (w TrackWindow) PreviousTrack() *TrackRef {
	if len(w.Previous) == 0 {
		return nil
	}
	t := w.Previous[len(w.Previous)-1]
	return &t
}

// NextTrack returns the first element of the next tracks.
func (w TrackWindow) NextTrack() *TrackRef {
	if len(w.Next) == 0 {
		return nil
	}
	t := w.Next[0]
	return &t
}

// PlaybackIntent is the last playback explicitly requested by the user. It
// survives reconnects so playback can be restored on a fresh device.
type PlaybackIntent struct {
	PlaylistURI string  `json:"playlistUri"`
	TrackURI    string  `json:"trackUri,omitempty"`
	PositionMs  float64 `json:"positionMs,omitempty"`
}

// IsZero reports whether nothing has been requested yet.
func (i PlaybackIntent) IsZero() bool { return i.PlaylistURI == "" && i.TrackURI == "" }
