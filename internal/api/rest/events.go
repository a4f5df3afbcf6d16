package rest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/aurora-bot/aurora/internal/app/notification"
)

// sseStream adapts one HTTP response into a notification.Stream using
// server-sent events.
type sseStream struct {
	mu      sync.Mutex
	w       http.ResponseWriter
	flusher http.Flusher
	closed  bool
}

func (s *sseStream) Send(n *notification.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New("stream closed")
	}
	payload, err := json.Marshal(n)
	if err != nil {
		return errors.Wrap(err, "failed to marshal notification")
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", payload); err != nil {
		s.closed = true
		return errors.Wrap(err, "failed to write event")
	}
	s.flusher.Flush()
	return nil
}

func (s *sseStream) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

// handleEvents streams playback notifications to the client until it
// disconnects.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	stream := &sseStream{w: w, flusher: flusher}
	id := s.notifications.Subscribe(stream)
	zlog.Debug().Str("subscription", id).Msg("api: event subscriber connected")

	<-r.Context().Done()

	stream.close()
	s.notifications.Unsubscribe(id)
	zlog.Debug().Str("subscription", id).Msg("api: event subscriber disconnected")
}
