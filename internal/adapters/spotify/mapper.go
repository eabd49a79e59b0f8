package spotify

import (
	"strings"

	"github.com/zmb3/spotify/v2"

	"github.com/ewilliams-labs/rockdj/internal/core/domain"
	"github.com/ewilliams-labs/rockdj/internal/core/ports"
)

// mapTrackToDomain converts a Web API track to a domain track. Features are
// merged later by the orchestrator.
func mapTrackToDomain(ft *spotify.FullTrack) domain.Track {
	var artistNames []string
	for _, a := range ft.Artists {
		artistNames = append(artistNames, a.Name)
	}

	imageURL := ""
	if len(ft.Album.Images) > 0 {
		imageURL = ft.Album.Images[0].URL
	}

	return domain.Track{
		ID:           string(ft.ID),
		URI:          string(ft.URI),
		Name:         ft.Name,
		Artist:       strings.Join(artistNames, ", "),
		ImageURL:     imageURL,
		DurationMs:   int(ft.Duration),
		PreviewURL:   ft.PreviewURL,
		IsRestricted: ft.IsPlayable != nil && !*ft.IsPlayable,
	}
}

func mapPlaylistToDomain(sp spotify.SimplePlaylist) domain.Playlist {
	imageURL := ""
	if len(sp.Images) > 0 {
		imageURL = sp.Images[0].URL
	}
	return domain.Playlist{
		ID:          string(sp.ID),
		Name:        sp.Name,
		URI:         string(sp.URI),
		ImageURL:    imageURL,
		TotalTracks: int(sp.Tracks.Total),
	}
}

func mapFeaturesToDomain(af *spotify.AudioFeatures) domain.AudioFeatures {
	return domain.AudioFeatures{
		Tempo:         float64(af.Tempo),
		TimeSignature: int(af.TimeSignature),
		DurationMs:    int(af.Duration),
		Energy:        float64(af.Energy),
		Danceability:  float64(af.Danceability),
		Valence:       float64(af.Valence),
	}
}

func mapAnalysis(a *spotify.AudioAnalysis) ports.RawAnalysis {
	out := ports.RawAnalysis{
		Beats:    make([]ports.Interval, 0, len(a.Beats)),
		Segments: make([]ports.Segment, 0, len(a.Segments)),
	}
	for _, b := range a.Beats {
		out.Beats = append(out.Beats, ports.Interval{Start: b.Start, Duration: b.Duration})
	}
	for _, s := range a.Segments {
		out.Segments = append(out.Segments, ports.Segment{
			Interval: ports.Interval{Start: s.Start, Duration: s.Duration},
			Timbre:   s.Timbre,
		})
	}
	return out
}

// idFromURI returns the last colon-separated part of a Spotify URI. Plain
// ids are returned unchanged.
func idFromURI(uri string) spotify.ID {
	if i := strings.LastIndexByte(uri, ':'); i >= 0 {
		return spotify.ID(uri[i+1:])
	}
	return spotify.ID(uri)
}
