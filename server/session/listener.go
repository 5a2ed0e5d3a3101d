package session

import (
	"github.com/df-mc/dragonfly/server"
	"github.com/df-mc/dragonfly/server/session"
)

// Listener wraps a server.Listener and registers every accepted connection
// with a Registry.
type Listener struct {
	server.Listener
	reg *Registry
}

// Accept accepts the next connection of the wrapped listener and wraps it in
// a Conn.
func (l *Listener) Accept() (session.Conn, error) {
	c, err := l.Listener.Accept()
	if err != nil {
		return nil, err
	}
	return l.reg.Track(c), nil
}

// Disconnect disconnects conn with a reason. The wrapped listener receives
// the connection it originally produced.
func (l *Listener) Disconnect(conn session.Conn, reason string) error {
	if c, ok := conn.(*Conn); ok {
		c.markClosed()
		conn = c.Conn
	}
	return l.Listener.Disconnect(conn, reason)
}
