package domain

import "errors"

var (
	ErrNotFound          = errors.New("domain: not found")
	ErrInvalidArgument   = errors.New("domain: invalid argument")
	ErrInvalidSlice      = errors.New("domain: invalid slice")
	ErrNoDevice          = errors.New("domain: no playback device")
	ErrNoTrack           = errors.New("domain: no active track")
	ErrDeviceUnavailable = errors.New("domain: device unavailable")
)

// PageSize is the number of items fetched per page from the Web API.
const PageSize = 50

// Playlist is a user-owned playlist as listed in the playlist browser.
type Playlist struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	URI         string `json:"uri"`
	ImageURL    string `json:"imageUrl,omitempty"`
	TotalTracks int    `json:"totalTracks"`
}

// Page is one cursor-paginated chunk of results. NextCursor is nil on the
// last page.
type Page[T any] struct {
	Items      []T  `json:"items"`
	NextCursor *int `json:"nextCursor,omitempty"`
}

// NextCursor returns the cursor following cursor when more items exist.
func NextCursor(cursor int, hasMore bool) *int {
	if !hasMore {
		return nil
	}
	next := cursor + PageSize
	return &next
}

// PlayRequest asks the playback service to start a playlist on a device.
// TrackPosition, when set, wins over TrackURI.
type PlayRequest struct {
	DeviceID      string `json:"deviceId"`
	PlaylistURI   string `json:"playlistUri"`
	TrackURI      string `json:"trackUri,omitempty"`
	TrackPosition *int   `json:"trackPosition,omitempty"`
}

// Validate checks that the request names a device and a playlist.
func (r PlayRequest) Validate() error {
	if r.DeviceID == "" {
		return ErrNoDevice
	}
	if r.PlaylistURI == "" {
		return ErrInvalidArgument
	}
	if r.TrackPosition != nil && *r.TrackPosition < 0 {
		return ErrInvalidArgument
	}
	return nil
}
