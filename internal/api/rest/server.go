// Package rest exposes the playback operations over a small JSON HTTP API.
package rest

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/aurora-bot/aurora/internal/app/notification"
	"github.com/aurora-bot/aurora/internal/app/player"
	"github.com/aurora-bot/aurora/internal/app/registry"
	"github.com/aurora-bot/aurora/internal/domain/track"
	"github.com/aurora-bot/aurora/internal/infra/resolver"
	"github.com/aurora-bot/aurora/internal/infra/transport"
)

// Server wires the playback registry, the source resolver and the
// notification manager to HTTP handlers.
type Server struct {
	registry      *registry.Registry
	resolver      resolver.Resolver
	notifications *notification.Manager
	defaultVolume float64
}

// NewServer creates the API server.
func NewServer(reg *registry.Registry, res resolver.Resolver, nm *notification.Manager, defaultVolumePercent int) *Server {
	return &Server{
		registry:      reg,
		resolver:      res,
		notifications: nm,
		defaultVolume: float64(defaultVolumePercent) / 100,
	}
}

// Handler returns the API route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/channels/{channel}/queue", s.handleEnqueue)
	mux.HandleFunc("POST /v1/channels/{channel}/pause", s.handlePause)
	mux.HandleFunc("POST /v1/channels/{channel}/resume", s.handleResume)
	mux.HandleFunc("POST /v1/channels/{channel}/skip", s.handleSkip)
	mux.HandleFunc("POST /v1/channels/{channel}/stop", s.handleStop)
	mux.HandleFunc("POST /v1/channels/{channel}/volume", s.handleVolume)
	mux.HandleFunc("GET /v1/channels/{channel}/status", s.handleStatus)
	mux.HandleFunc("GET /v1/events", s.handleEvents)
	return mux
}

type enqueueRequest struct {
	Query           string `json:"query"`
	RequesterID     string `json:"requester_id"`
	RequesterName   string `json:"requester_name"`
	NotifyChannelID string `json:"notify_channel_id"`
}

type trackResponse struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Artist      string `json:"artist,omitempty"`
	URL         string `json:"url,omitempty"`
	DurationSec int    `json:"duration_sec,omitempty"`
	Requester   string `json:"requester,omitempty"`
}

func toTrackResponse(t track.Track, r track.Requester) *trackResponse {
	resp := &trackResponse{
		ID:          t.ID,
		Title:       t.Title,
		URL:         t.URL,
		DurationSec: int(t.Duration.Seconds()),
		Requester:   r.Name,
	}
	if len(t.Artists) > 0 {
		resp.Artist = t.Artists[0]
	}
	return resp
}

func (s *Server) handleEnqueue(w http.ResponseWriter, r *http.Request) {
	channelID := r.PathValue("channel")
	var req enqueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Query == "" || req.RequesterID == "" {
		writeError(w, http.StatusBadRequest, "query and requester_id are required")
		return
	}

	// Resolve before touching playback state so a bad query leaves the
	// channel exactly as it was.
	resolved, err := s.resolver.Resolve(r.Context(), req.Query)
	if err != nil {
		zlog.Debug().Err(err).Str("query", req.Query).Msg("api: resolution failed")
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	session, err := s.registry.GetOrCreate(r.Context(), channelID)
	if err != nil {
		writeTransportError(w, err)
		return
	}

	if err := resolved.Source.SetVolume(s.defaultVolume); err != nil {
		zlog.Warn().Err(err).Msg("api: failed to set default volume")
	}

	requester := track.Requester{ID: req.RequesterID, Name: req.RequesterName}
	entry := player.NewEntry(resolved.Track, requester, req.NotifyChannelID, resolved.Source)
	if err := session.Enqueue(entry); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"entry_id": entry.ID,
		"track":    toTrackResponse(entry.Track, entry.Requester),
	})
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(session *player.Session) {
		if err := session.Pause(); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"state": session.State().String()})
	})
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(session *player.Session) {
		if err := session.Resume(); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"state": session.State().String()})
	})
}

type skipRequest struct {
	RequesterID string `json:"requester_id"`
}

func (s *Server) handleSkip(w http.ResponseWriter, r *http.Request) {
	var req skipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RequesterID == "" {
		writeError(w, http.StatusBadRequest, "requester_id is required")
		return
	}
	s.withSession(w, r, func(session *player.Session) {
		res, err := session.VoteSkip(req.RequesterID)
		if err != nil {
			if errors.Is(err, player.ErrNothingPlaying) {
				writeJSON(w, http.StatusOK, map[string]any{"outcome": "nothing_playing"})
				return
			}
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"outcome": res.Outcome.String(),
			"votes":   res.Votes,
		})
	})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	// Stopping an unknown channel is a no-op, so this is idempotent.
	s.registry.Stop(r.PathValue("channel"))
	w.WriteHeader(http.StatusNoContent)
}

type volumeRequest struct {
	Percent int `json:"percent"`
}

func (s *Server) handleVolume(w http.ResponseWriter, r *http.Request) {
	var req volumeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.withSession(w, r, func(session *player.Session) {
		if err := session.SetVolume(req.Percent); err != nil {
			if errors.Is(err, player.ErrNothingPlaying) {
				writeJSON(w, http.StatusOK, map[string]any{"outcome": "nothing_playing"})
				return
			}
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"percent": req.Percent})
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	session := s.registry.Get(r.PathValue("channel"))
	if session == nil {
		writeJSON(w, http.StatusOK, map[string]any{"state": player.StateIdle.String()})
		return
	}
	state, current := session.Status()
	resp := map[string]any{
		"state":  state.String(),
		"queued": session.QueueLen(),
	}
	if current != nil {
		resp["track"] = toTrackResponse(current.Track, current.Requester)
	}
	writeJSON(w, http.StatusOK, resp)
}

// withSession runs fn against an existing session; operations on channels
// without one report idle instead of failing.
func (s *Server) withSession(w http.ResponseWriter, r *http.Request, fn func(*player.Session)) {
	session := s.registry.Get(r.PathValue("channel"))
	if session == nil {
		writeJSON(w, http.StatusOK, map[string]any{"outcome": "nothing_playing", "state": player.StateIdle.String()})
		return
	}
	fn(session)
}

func writeTransportError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, transport.ErrAlreadyConnected):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, transport.ErrNotVoiceChannel):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusBadGateway, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zlog.Warn().Err(err).Msg("api: failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": msg})
}

// Shutdown releases API-held resources. Present for symmetry with the
// lifecycle of the components it fronts.
func (s *Server) Shutdown(context.Context) error {
	s.notifications.Close()
	return nil
}
