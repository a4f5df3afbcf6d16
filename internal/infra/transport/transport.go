// Package transport abstracts the voice connection used to stream audio to
// a channel.
package transport

import (
	"context"

	"github.com/cockroachdb/errors"
)

// Errors
var (
	ErrAlreadyConnected = errors.New("already connected to another voice channel")
	ErrNotVoiceChannel  = errors.New("not a voice channel")
)

// Provider establishes voice connections. Implementations: infra/discord for
// real Discord voice, Loopback for development and tests.
type Provider interface {
	Connect(ctx context.Context, channelID string) (Conn, error)
}

// Conn is one live voice connection. It is exclusively owned by the
// player.Session it was created for.
type Conn interface {
	// ChannelID returns the channel the connection is bound to.
	ChannelID() string

	// Move reconnects to a different channel of the same provider.
	Move(ctx context.Context, channelID string) error

	// Disconnect tears down the connection. Safe to call more than once.
	Disconnect() error
}
