package spotify

import (
	"context"
	"fmt"

	"github.com/zmb3/spotify/v2"

	"github.com/ewilliams-labs/rockdj/internal/core/domain"
)

// PlayOnDevice starts a playlist on a device the account can reach. An
// inactive device is activated first. TrackPosition wins over TrackURI.
func (c *Client) PlayOnDevice(ctx context.Context, req domain.PlayRequest) error {
	if err := req.Validate(); err != nil {
		return fmt.Errorf("spotify adapter: play: %w", err)
	}

	device, err := c.findDevice(ctx, req.DeviceID)
	if err != nil {
		return err
	}
	if !device.Active {
		if err := c.api.TransferPlayback(ctx, device.ID, false); err != nil {
			return wrap("transfer playback", err)
		}
	}

	trackURI := req.TrackURI
	if req.TrackPosition != nil {
		trackURI, err = c.trackURIAt(ctx, req.PlaylistURI, *req.TrackPosition)
		if err != nil {
			return err
		}
	}

	deviceID := spotify.ID(req.DeviceID)
	playlistURI := spotify.URI(req.PlaylistURI)
	opts := &spotify.PlayOptions{DeviceID: &deviceID, PlaybackContext: &playlistURI}
	if trackURI != "" {
		opts.PlaybackOffset = &spotify.PlaybackOffset{URI: spotify.URI(trackURI)}
	}
	if err := c.api.PlayOpt(ctx, opts); err != nil {
		return wrap("play", err)
	}
	c.logger.Debugf("spotify adapter: playing %s on %s", req.PlaylistURI, req.DeviceID)
	return nil
}

// AddToQueue appends a track to the device's play queue.
func (c *Client) AddToQueue(ctx context.Context, deviceID, trackURI string) error {
	if deviceID == "" {
		return fmt.Errorf("spotify adapter: queue: %w", domain.ErrNoDevice)
	}
	if trackURI == "" {
		return fmt.Errorf("spotify adapter: queue: %w", domain.ErrInvalidArgument)
	}
	id := spotify.ID(deviceID)
	if err := c.api.QueueSongOpt(ctx, idFromURI(trackURI), &spotify.PlayOptions{DeviceID: &id}); err != nil {
		return wrap("queue", err)
	}
	return nil
}

func (c *Client) findDevice(ctx context.Context, deviceID string) (spotify.PlayerDevice, error) {
	devices, err := c.api.PlayerDevices(ctx)
	if err != nil {
		return spotify.PlayerDevice{}, wrap("list devices", err)
	}
	for _, d := range devices {
		if string(d.ID) == deviceID {
			return d, nil
		}
	}
	return spotify.PlayerDevice{}, fmt.Errorf("spotify adapter: device %s: %w", deviceID, domain.ErrDeviceUnavailable)
}

// trackURIAt resolves the track at a zero-based playlist position.
func (c *Client) trackURIAt(ctx context.Context, playlistURI string, position int) (string, error) {
	page, err := c.api.GetPlaylistItems(ctx, idFromURI(playlistURI), spotify.Limit(1), spotify.Offset(position))
	if err != nil {
		return "", wrap("resolve track position", err)
	}
	if len(page.Items) == 0 || page.Items[0].Track.Track == nil {
		return "", fmt.Errorf("spotify adapter: track position %d: %w", position, domain.ErrNotFound)
	}
	return string(page.Items[0].Track.Track.URI), nil
}
