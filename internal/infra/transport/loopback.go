package transport

import (
	"context"
	"sync"
)

// Loopback is an in-process transport provider. Connections do nothing but
// remember their state, which makes it useful for development setups without
// a voice backend and for tests.
type Loopback struct {
	mu    sync.Mutex
	conns map[string]*loopbackConn
}

// NewLoopback creates a loopback transport provider.
func NewLoopback() *Loopback {
	return &Loopback{conns: make(map[string]*loopbackConn)}
}

// Connect returns a connection for the channel. At most one live connection
// exists per channel; a second Connect for a still-connected channel fails
// with ErrAlreadyConnected, mirroring real voice backends.
func (l *Loopback) Connect(_ context.Context, channelID string) (Conn, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if c, ok := l.conns[channelID]; ok && !c.disconnected() {
		return nil, ErrAlreadyConnected
	}
	c := &loopbackConn{provider: l, channelID: channelID}
	l.conns[channelID] = c
	return c, nil
}

// Live returns the number of live connections.
func (l *Loopback) Live() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, c := range l.conns {
		if !c.disconnected() {
			n++
		}
	}
	return n
}

type loopbackConn struct {
	provider  *Loopback
	mu        sync.Mutex
	channelID string
	closed    bool
}

func (c *loopbackConn) ChannelID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.channelID
}

func (c *loopbackConn) Move(_ context.Context, channelID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrNotVoiceChannel
	}
	c.channelID = channelID
	return nil
}

func (c *loopbackConn) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *loopbackConn) disconnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
