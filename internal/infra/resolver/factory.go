package resolver

import (
	"context"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/aurora-bot/aurora/internal/infra/config"
)

// NewChainFromConfig creates a resolver chain from configuration.
func NewChainFromConfig(ctx context.Context, cfg *config.Config) (*Chain, error) {
	if len(cfg.Resolver.Providers) == 0 {
		return nil, errors.New("no resolver providers configured")
	}

	var resolvers []Resolver
	for i, pcfg := range cfg.Resolver.Providers {
		var r Resolver
		var err error
		switch pcfg.Type {
		case "spotify":
			r, err = NewSpotify(ctx, pcfg.Settings)
		case "static":
			r, err = NewStatic(pcfg.Settings)
		default:
			return nil, errors.Newf("unsupported resolver type: %s (provider index %d)", pcfg.Type, i)
		}
		if err != nil {
			return nil, errors.Wrapf(err, "failed to create resolver (index %d, type %s)", i, pcfg.Type)
		}
		resolvers = append(resolvers, r)
		zlog.Info().Int("index", i+1).Str("type", pcfg.Type).Msg("registered resolver provider")
	}

	return NewChain(resolvers...), nil
}
