package ports

import (
	"context"

	"github.com/ewilliams-labs/rockdj/internal/core/domain"
)

// ErrorKind is the category of an error event reported by the player.
type ErrorKind int

const (
	PlaybackError ErrorKind = iota
	AuthenticationError
	InitializationError
	AccountError
)

// String returns the player event name of the error category.
func (k ErrorKind) String() string {
	switch k {
	case PlaybackError:
		return "playback_error"
	case AuthenticationError:
		return "authentication_error"
	case InitializationError:
		return "initialization_error"
	case AccountError:
		return "account_error"
	default:
		return "unknown_error"
	}
}

// PlayerListener receives the push events of an external player. A nil
// state in OnStateChanged means the player has nothing to report.
type PlayerListener interface {
	OnReady(deviceID string)
	OnNotReady(deviceID string)
	OnStateChanged(state *domain.ExternalState)
	OnError(kind ErrorKind, message string)
}

// Player is the External Player Service. Every command may fail.
type Player interface {
	AddListener(l PlayerListener)

	Connect(ctx context.Context) (bool, error)
	Disconnect(ctx context.Context) error
	Resume(ctx context.Context) error
	Pause(ctx context.Context) error
	Seek(ctx context.Context, positionMs int) error
	NextTrack(ctx context.Context) error
	PreviousTrack(ctx context.Context) error
	ActivateElement(ctx context.Context) error
	GetCurrentState(ctx context.Context) (*domain.ExternalState, error)
}
