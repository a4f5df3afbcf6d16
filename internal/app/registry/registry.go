// Package registry maps channel identities to their playback sessions.
package registry

import (
	"context"
	"sync"

	zlog "github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/aurora-bot/aurora/internal/app/player"
	"github.com/aurora-bot/aurora/internal/infra/transport"
)

// Registry manages one player.Session per channel with thread-safe lazy
// creation. It is the only state shared across channels.
type Registry struct {
	transport transport.Provider
	notifier  player.Notifier
	quorum    int

	mu       sync.RWMutex
	sessions map[string]*player.Session
	creating singleflight.Group
}

// New creates an empty registry. Sessions it creates use the given transport
// provider, notifier and skip quorum.
func New(tp transport.Provider, notifier player.Notifier, quorum int) *Registry {
	return &Registry{
		transport: tp,
		notifier:  notifier,
		quorum:    quorum,
		sessions:  make(map[string]*player.Session),
	}
}

// Get returns the session for the channel, or nil when none exists.
func (r *Registry) Get(channelID string) *player.Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessions[channelID]
}

// GetOrCreate returns the channel's session, connecting the voice transport
// and starting a scheduling loop on first use. Concurrent callers for the
// same channel are coalesced into a single connect, and it runs outside the
// map lock so slow connects never block other channels. A failed connect
// leaves no session behind.
func (r *Registry) GetOrCreate(ctx context.Context, channelID string) (*player.Session, error) {
	r.mu.RLock()
	s := r.sessions[channelID]
	r.mu.RUnlock()
	if s != nil {
		return s, nil
	}

	v, err, _ := r.creating.Do(channelID, func() (any, error) {
		if existing := r.Get(channelID); existing != nil {
			return existing, nil
		}
		conn, err := r.transport.Connect(ctx, channelID)
		if err != nil {
			return nil, err
		}
		created := player.New(channelID, conn, r.notifier, r.quorum)
		r.mu.Lock()
		r.sessions[channelID] = created
		r.mu.Unlock()
		zlog.Info().Str("channel", channelID).Msg("registry: playback session created")
		return created, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*player.Session), nil
}

// Remove detaches and returns the channel's session without closing it, for
// callers that finalize it themselves. Returns nil when absent.
func (r *Registry) Remove(channelID string) *player.Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.sessions[channelID]
	delete(r.sessions, channelID)
	return s
}

// Stop removes and closes the channel's session: current playback is
// terminated, the queue is dropped and the voice connection released.
// Calling Stop for an unknown or already-stopped channel is a no-op.
func (r *Registry) Stop(channelID string) {
	s := r.Remove(channelID)
	if s == nil {
		return
	}
	s.Close()
	zlog.Info().Str("channel", channelID).Msg("registry: playback session stopped")
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// CloseAll stops every session. Used on process shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*player.Session)
	r.mu.Unlock()

	for id, s := range sessions {
		s.Close()
		zlog.Debug().Str("channel", id).Msg("registry: playback session closed on shutdown")
	}
}
