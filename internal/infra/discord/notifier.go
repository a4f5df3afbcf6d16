package discord

import (
	zlog "github.com/rs/zerolog/log"

	"github.com/aurora-bot/aurora/internal/app/notification"
	"github.com/aurora-bot/aurora/internal/app/player"
)

// Notifier posts playback events as chat messages. Sends run in their own
// goroutine and errors are only logged: chat hiccups must never affect
// scheduling.
type Notifier struct {
	gateway *Gateway
}

// NewNotifier creates a chat notifier on the gateway.
func NewNotifier(g *Gateway) *Notifier {
	return &Notifier{gateway: g}
}

// Notify implements player.Notifier. notifyChannelID is the text channel the
// entry was requested from.
func (n *Notifier) Notify(notifyChannelID string, ev player.Event) {
	if notifyChannelID == "" {
		return
	}
	msg := notification.RenderMessage(ev)
	go func() {
		if _, err := n.gateway.session.ChannelMessageSend(notifyChannelID, msg); err != nil {
			zlog.Warn().Err(err).Str("channel", notifyChannelID).Msg("discord: failed to send notification")
		}
	}()
}
