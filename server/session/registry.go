package session

import (
	"slices"
	"sync"

	"github.com/df-mc/dragonfly/server"
	"github.com/df-mc/dragonfly/server/session"
	"github.com/google/uuid"
)

// Registry holds the open connections of all players, indexed by UUID.
type Registry struct {
	mu    sync.RWMutex
	conns map[uuid.UUID]*Conn
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{conns: make(map[uuid.UUID]*Conn)}
}

// Track wraps c and adds it to the registry. The connection is removed again
// once it is closed.
func (r *Registry) Track(c session.Conn) *Conn {
	conn := NewConn(c)
	conn.onClose = r.remove

	r.mu.Lock()
	r.conns[conn.id] = conn
	r.mu.Unlock()
	return conn
}

func (r *Registry) remove(c *Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	// A player reconnecting quickly may already have a newer connection.
	if current, ok := r.conns[c.id]; ok && current == c {
		delete(r.conns, c.id)
	}
}

// Conn returns the open connection of the player with the UUID id.
func (r *Registry) Conn(id uuid.UUID) (*Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.conns[id]
	return c, ok
}

// Conns returns all open connections ordered by player name.
func (r *Registry) Conns() []*Conn {
	r.mu.RLock()
	conns := make([]*Conn, 0, len(r.conns))
	for _, c := range r.conns {
		conns = append(conns, c)
	}
	r.mu.RUnlock()
	slices.SortFunc(conns, func(a, b *Conn) int {
		if a.name < b.name {
			return -1
		} else if a.name > b.name {
			return 1
		}
		return 0
	})
	return conns
}

// Len returns the number of open connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// WrapListeners replaces every listener factory in conf so that accepted
// connections are tracked by r. It must be called before conf.New.
func (r *Registry) WrapListeners(conf *server.Config) {
	for i, factory := range conf.Listeners {
		conf.Listeners[i] = func(c server.Config) (server.Listener, error) {
			l, err := factory(c)
			if err != nil {
				return nil, err
			}
			return &Listener{Listener: l, reg: r}, nil
		}
	}
}
