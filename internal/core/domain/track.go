package domain

// TrackRef identifies the track a player reports in its track window.
type TrackRef struct {
	ID          string   `json:"id"`
	URI         string   `json:"uri"`
	Name        string   `json:"name"`
	AlbumArtURL string   `json:"albumArtUrl,omitempty"`
	Artists     []string `json:"artists,omitempty"`
}

// AudioFeatures holds the analysis-derived features of a track.
type AudioFeatures struct {
	Tempo         float64 `json:"tempo"`
	TimeSignature int     `json:"timeSignature"`
	DurationMs    int     `json:"durationMs"`
	Energy        float64 `json:"energy"`
	Danceability  float64 `json:"danceability"`
	Valence       float64 `json:"valence"`
}

// Track represents a playlist track in the domain layer, merged with the
// user's stored tempo overrides.
type Track struct {
	ID           string        `json:"id"`
	URI          string        `json:"uri"`
	Name         string        `json:"name"`
	Artist       string        `json:"artist,omitempty"`
	ImageURL     string        `json:"imageUrl,omitempty"`
	DurationMs   int           `json:"durationMs"`
	PreviewURL   string        `json:"previewUrl,omitempty"`
	IsRestricted bool          `json:"isRestricted"`
	Features     AudioFeatures `json:"features"`
	TapTempoBpm  *float64      `json:"tapTempo,omitempty"`
	BeatOffsetMs *float64      `json:"beatOffset,omitempty"`
}

// Tempo returns the tap tempo when one was committed, otherwise the analysis
// tempo. Tracks without either sort as 0.
func (t Track) Tempo() float64 {
	if t.TapTempoBpm != nil {
		return *t.TapTempoBpm
	}
	return t.Features.Tempo
}

// TrackTempo is the persisted per-track tempo override.
type TrackTempo struct {
	TrackID      string   `json:"trackId"`
	TapTempoBpm  *float64 `json:"tapTempo"`
	BeatOffsetMs *float64 `json:"beatOffset"`
}
