package resolver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aurora-bot/aurora/internal/infra/config"
)

func TestNewChainFromConfig(t *testing.T) {
	tests := []struct {
		name      string
		providers []config.ProviderConfig
		wantErr   bool
		errMsg    string
	}{
		{
			name: "static provider",
			providers: []config.ProviderConfig{
				{Type: "static", Settings: map[string]any{"duration_sec": 60}},
			},
			wantErr: false,
		},
		{
			name: "static provider without settings",
			providers: []config.ProviderConfig{
				{Type: "static"},
			},
			wantErr: false,
		},
		{
			name:      "no providers",
			providers: nil,
			wantErr:   true,
			errMsg:    "no resolver providers configured",
		},
		{
			name: "unsupported type",
			providers: []config.ProviderConfig{
				{Type: "soundcloud"},
			},
			wantErr: true,
			errMsg:  "unsupported resolver type: soundcloud",
		},
		{
			name: "spotify without credentials",
			providers: []config.ProviderConfig{
				{Type: "spotify"},
			},
			wantErr: true,
			errMsg:  "failed to create resolver",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{}
			cfg.Resolver.Providers = tt.providers

			chain, err := NewChainFromConfig(context.Background(), cfg)

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, chain)

			res, rerr := chain.Resolve(context.Background(), "query")
			require.NoError(t, rerr)
			assert.Equal(t, "query", res.Track.Title)
		})
	}
}
