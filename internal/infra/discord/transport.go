package discord

import (
	"context"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/cockroachdb/errors"

	"github.com/aurora-bot/aurora/internal/infra/transport"
)

// Channel identities for this provider are "guildID/voiceChannelID": Discord
// allows one voice connection per guild, so the guild half is what keys the
// playback registry in practice.

// Connect joins the voice channel named by channelID.
func (g *Gateway) Connect(_ context.Context, channelID string) (transport.Conn, error) {
	guildID, voiceID, err := g.splitAndCheck(channelID)
	if err != nil {
		return nil, err
	}
	if g.session.VoiceConnections[guildID] != nil {
		return nil, errors.Wrapf(transport.ErrAlreadyConnected, "guild %s", guildID)
	}
	vc, err := g.session.ChannelVoiceJoin(guildID, voiceID, false, true)
	if err != nil {
		return nil, errors.Wrap(err, "failed to join voice channel")
	}
	return &voiceConn{gateway: g, channelID: channelID, vc: vc}, nil
}

// splitAndCheck parses the channel id and verifies the target is an actual
// voice channel.
func (g *Gateway) splitAndCheck(channelID string) (guildID, voiceID string, err error) {
	guildID, voiceID, err = splitChannelID(channelID)
	if err != nil {
		return "", "", err
	}
	ch, err := g.session.State.Channel(voiceID)
	if err != nil {
		ch, err = g.session.Channel(voiceID)
	}
	if err != nil {
		return "", "", errors.Wrapf(transport.ErrNotVoiceChannel, "channel %s: %v", voiceID, err)
	}
	if ch.Type != discordgo.ChannelTypeGuildVoice && ch.Type != discordgo.ChannelTypeGuildStageVoice {
		return "", "", errors.Wrapf(transport.ErrNotVoiceChannel, "channel %s has type %d", voiceID, ch.Type)
	}
	return guildID, voiceID, nil
}

type voiceConn struct {
	gateway *Gateway

	mu        sync.Mutex
	channelID string
	vc        *discordgo.VoiceConnection
}

func (c *voiceConn) ChannelID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.channelID
}

func (c *voiceConn) Move(_ context.Context, channelID string) error {
	_, voiceID, err := c.gateway.splitAndCheck(channelID)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.vc == nil {
		return errors.New("voice connection is closed")
	}
	if err := c.vc.ChangeChannel(voiceID, false, true); err != nil {
		return errors.Wrap(err, "failed to move voice channel")
	}
	c.channelID = channelID
	return nil
}

func (c *voiceConn) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.vc == nil {
		return nil
	}
	_ = c.vc.Speaking(false)
	err := c.vc.Disconnect()
	c.vc = nil
	if err != nil {
		return errors.Wrap(err, "failed to disconnect voice")
	}
	return nil
}
