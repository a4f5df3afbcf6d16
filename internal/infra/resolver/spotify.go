package resolver

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"

	"github.com/aurora-bot/aurora/internal/domain/track"
)

// SpotifyConfig holds the settings for the spotify resolver provider.
type SpotifyConfig struct {
	ClientID     string `yaml:"client_id" mapstructure:"client_id" validate:"required"`
	ClientSecret string `yaml:"client_secret" mapstructure:"client_secret" validate:"required"`
	RefreshToken string `yaml:"refresh_token" mapstructure:"refresh_token" validate:"required"`
	MaxRetries   int    `yaml:"max_retries" mapstructure:"max_retries" default:"3" validate:"gte=1"`
}

// Spotify resolves queries against the Spotify catalog. Track URLs, URIs and
// bare IDs are looked up directly; anything else goes through search. The
// resolved source is clock-driven for the track's duration, since this
// service schedules playback rather than moving audio bytes.
type Spotify struct {
	client     *spotify.Client
	maxRetries int
	retryDelay time.Duration
}

// NewSpotify creates a spotify resolver from provider settings.
func NewSpotify(ctx context.Context, settings map[string]any) (*Spotify, error) {
	var cfg SpotifyConfig
	if err := mapstructure.Decode(settings, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to decode settings")
	}
	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, errors.Wrap(err, "validation failed")
	}

	auth := spotifyauth.New(
		spotifyauth.WithClientID(cfg.ClientID),
		spotifyauth.WithClientSecret(cfg.ClientSecret),
	)
	token := &oauth2.Token{RefreshToken: cfg.RefreshToken}
	httpClient := auth.Client(ctx, token)

	return &Spotify{
		client:     spotify.New(httpClient),
		maxRetries: cfg.MaxRetries,
		retryDelay: time.Second,
	}, nil
}

// Name returns the provider name.
func (s *Spotify) Name() string {
	return "spotify"
}

// Resolve looks the query up on Spotify and returns its metadata with a
// clock-driven source of the track's duration.
func (s *Spotify) Resolve(ctx context.Context, query string) (*Resolved, error) {
	var t *track.Track
	var err error
	if looksLikeTrackRef(query) {
		t, err = s.lookup(ctx, extractTrackID(query))
	} else {
		t, err = s.search(ctx, query)
	}
	if err != nil {
		return nil, errors.Wrapf(ErrResolution, "spotify: %v", err)
	}
	return &Resolved{Track: *t, Source: newSourceForTrack(*t)}, nil
}

func (s *Spotify) lookup(ctx context.Context, id string) (*track.Track, error) {
	var result *spotify.FullTrack
	err := s.retry(func() error {
		ft, err := s.client.GetTrack(ctx, spotify.ID(id))
		if err != nil {
			return err
		}
		result = ft
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to get track")
	}
	return convertTrack(result), nil
}

func (s *Spotify) search(ctx context.Context, query string) (*track.Track, error) {
	var result *spotify.SearchResult
	err := s.retry(func() error {
		r, err := s.client.Search(ctx, query, spotify.SearchTypeTrack, spotify.Limit(1))
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "search failed")
	}
	if result.Tracks == nil || len(result.Tracks.Tracks) == 0 {
		return nil, errors.Newf("no results for %q", query)
	}
	return convertTrack(&result.Tracks.Tracks[0]), nil
}

func (s *Spotify) retry(fn func() error) error {
	var lastErr error
	for i := 0; i < s.maxRetries; i++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !isRetryable(err) {
			return err
		}
		if i < s.maxRetries-1 {
			time.Sleep(s.retryDelay * time.Duration(i+1))
		}
	}
	return errors.Wrap(lastErr, "max retries exceeded")
}

// isRetryable checks if an error is retryable.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	// Rate limit errors and server errors are retryable
	errStr := err.Error()
	return strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "500") ||
		strings.Contains(errStr, "502") ||
		strings.Contains(errStr, "503") ||
		strings.Contains(errStr, "504")
}

func convertTrack(t *spotify.FullTrack) *track.Track {
	artists := make([]string, len(t.Artists))
	for i, a := range t.Artists {
		artists[i] = a.Name
	}
	return &track.Track{
		ID:       string(t.ID),
		Title:    t.Name,
		Artists:  artists,
		Duration: time.Duration(t.Duration) * time.Millisecond,
		URL:      fmt.Sprintf("https://open.spotify.com/track/%s", t.ID),
	}
}

// looksLikeTrackRef reports whether the query is a direct track reference
// (URI, URL or 22-char base62 ID) rather than a search term.
func looksLikeTrackRef(input string) bool {
	input = strings.TrimSpace(input)
	if strings.HasPrefix(input, "spotify:track:") {
		return true
	}
	if strings.Contains(input, "open.spotify.com") && strings.Contains(input, "/track/") {
		return true
	}
	if len(input) == 22 && !strings.Contains(input, " ") {
		return true
	}
	return false
}

// extractTrackID extracts the track ID from a Spotify track URL or URI.
func extractTrackID(input string) string {
	input = strings.TrimSpace(input)
	// Handle Spotify URI format: spotify:track:TRACK_ID
	if strings.HasPrefix(input, "spotify:track:") {
		return strings.TrimPrefix(input, "spotify:track:")
	}

	// Handle URL format: https://open.spotify.com/track/TRACK_ID
	if strings.Contains(input, "open.spotify.com") && strings.Contains(input, "/track/") {
		parts := strings.Split(input, "/track/")
		if len(parts) >= 2 {
			// Remove query parameters and trailing slashes
			id := strings.Split(parts[len(parts)-1], "?")[0]
			id = strings.TrimRight(id, "/")
			return id
		}
	}

	// Assume it's already a track ID
	return input
}
