package spotify

import (
	"context"
	"errors"
	"net/http"
	"time"

	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
)

// Scopes requested for the deck and the backend proxy.
var Scopes = []string{
	spotifyauth.ScopeUserReadPlaybackState,
	spotifyauth.ScopeUserModifyPlaybackState,
	spotifyauth.ScopeUserReadCurrentlyPlaying,
	spotifyauth.ScopePlaylistReadPrivate,
	spotifyauth.ScopePlaylistModifyPrivate,
	spotifyauth.ScopePlaylistModifyPublic,
	spotifyauth.ScopeStreaming,
}

// Credentials identify the application and the user it acts for.
type Credentials struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
}

// HTTPClient returns a client that attaches a bearer token refreshed from
// creds.RefreshToken. Token and API requests go through transport.
func HTTPClient(ctx context.Context, creds Credentials, transport http.RoundTripper, timeout time.Duration) (*http.Client, error) {
	if creds.ClientID == "" || creds.ClientSecret == "" {
		return nil, errors.New("spotify adapter: client id and secret are required")
	}
	if creds.RefreshToken == "" {
		return nil, errors.New("spotify adapter: refresh token is required")
	}

	auth := spotifyauth.New(
		spotifyauth.WithClientID(creds.ClientID),
		spotifyauth.WithClientSecret(creds.ClientSecret),
		spotifyauth.WithScopes(Scopes...),
	)

	base := &http.Client{Transport: transport, Timeout: timeout}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, base)

	client := auth.Client(ctx, &oauth2.Token{RefreshToken: creds.RefreshToken})
	client.Timeout = timeout
	return client, nil
}
