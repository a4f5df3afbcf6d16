// Package discord adapts the Discord gateway to the transport and notifier
// interfaces consumed by the playback core.
package discord

import (
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/cockroachdb/errors"

	"github.com/aurora-bot/aurora/internal/infra/transport"
)

// Gateway wraps one open Discord gateway session. It backs both the voice
// transport provider and the chat notifier.
type Gateway struct {
	session *discordgo.Session
}

// Open connects a bot session to the Discord gateway.
func Open(token string) (*Gateway, error) {
	if token == "" {
		return nil, errors.New("discord token is required")
	}
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create discord session")
	}
	s.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildVoiceStates | discordgo.IntentsGuildMessages
	if err := s.Open(); err != nil {
		return nil, errors.Wrap(err, "failed to open discord gateway")
	}
	return &Gateway{session: s}, nil
}

// Close closes the gateway session.
func (g *Gateway) Close() error {
	return g.session.Close()
}

// splitChannelID splits a "guildID/voiceChannelID" channel identity.
func splitChannelID(channelID string) (guildID, voiceID string, err error) {
	parts := strings.SplitN(channelID, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", errors.Wrapf(transport.ErrNotVoiceChannel, "malformed channel id %q", channelID)
	}
	return parts[0], parts[1], nil
}
