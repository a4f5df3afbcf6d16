// Package resolver turns a free-form query into a playable source.
package resolver

import (
	"context"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/aurora-bot/aurora/internal/app/player"
	"github.com/aurora-bot/aurora/internal/domain/track"
)

// ErrResolution marks a query that could not be resolved to anything
// playable. Resolution happens before an entry is constructed, so these
// failures never reach a queue.
var ErrResolution = errors.New("could not resolve query")

// Resolved is the outcome of a successful resolution: track metadata plus a
// source ready to be queued.
type Resolved struct {
	Track  track.Track
	Source player.Source
}

// Resolver resolves a query (title, URL, provider URI) to playable media.
type Resolver interface {
	// Resolve returns the resolved media, or an error wrapping ErrResolution
	// when the query is unplayable or unreachable.
	Resolve(ctx context.Context, query string) (*Resolved, error)

	// Name returns the provider name (used in config).
	Name() string
}

// Chain tries resolvers in order and returns the first success.
type Chain struct {
	resolvers []Resolver
}

// NewChain creates a resolver chain.
func NewChain(resolvers ...Resolver) *Chain {
	return &Chain{resolvers: resolvers}
}

// Resolve walks the chain. Failures of individual providers are logged and
// the next provider is tried; only when all fail is an error returned.
func (c *Chain) Resolve(ctx context.Context, query string) (*Resolved, error) {
	if len(c.resolvers) == 0 {
		return nil, errors.Wrap(ErrResolution, "no resolvers configured")
	}
	var lastErr error
	for _, r := range c.resolvers {
		res, err := r.Resolve(ctx, query)
		if err == nil {
			return res, nil
		}
		lastErr = err
		zlog.Debug().Err(err).Str("provider", r.Name()).Str("query", query).
			Msg("resolver: provider failed, trying next")
	}
	return nil, lastErr
}

// Name returns the chain's provider name.
func (c *Chain) Name() string {
	return "chain"
}
