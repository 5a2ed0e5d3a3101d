package session

import (
	"sync"
	"sync/atomic"

	"github.com/df-mc/dragonfly/server/session"
	"github.com/google/uuid"
	"github.com/sandertv/gophertunnel/minecraft/protocol/packet"
)

// Conn wraps the network connection of a single player. Outgoing packets are
// inspected to learn the entity unique ID under which the client knows every
// other player, which scoreboard entries of the player identity type must
// refer to.
type Conn struct {
	session.Conn

	id   uuid.UUID
	name string
	xuid string

	closed  atomic.Bool
	onClose func(*Conn)

	mu       sync.RWMutex
	self     int64
	selfSet  bool
	entities map[uuid.UUID]int64
}

// NewConn wraps c. The identity of the player is read from the login data of
// the connection once.
func NewConn(c session.Conn) *Conn {
	identity := c.IdentityData()
	id, err := uuid.Parse(identity.Identity)
	if err != nil {
		id = uuid.Nil
	}
	return &Conn{
		Conn:     c,
		id:       id,
		name:     identity.DisplayName,
		xuid:     identity.XUID,
		entities: make(map[uuid.UUID]int64),
	}
}

// UUID returns the identity UUID sent by the client during login.
func (c *Conn) UUID() uuid.UUID { return c.id }

// Name returns the display name sent by the client during login.
func (c *Conn) Name() string { return c.name }

// XUID returns the XBOX Live user ID of the player.
func (c *Conn) XUID() string { return c.xuid }

// Connected reports if Close has not yet been called on the connection.
func (c *Conn) Connected() bool { return !c.closed.Load() }

// Unwrap returns the connection wrapped by c.
func (c *Conn) Unwrap() session.Conn { return c.Conn }

// EntityID returns the entity unique ID the client of c uses for the player
// with the UUID target.
func (c *Conn) EntityID(target uuid.UUID) (int64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if target == c.id && c.selfSet {
		return c.self, true
	}
	id, ok := c.entities[target]
	return id, ok
}

// WritePacket records entity IDs carried by pk and writes it to the wrapped
// connection.
func (c *Conn) WritePacket(pk packet.Packet) error {
	c.observe(pk)
	return c.Conn.WritePacket(pk)
}

// Close marks the connection as disconnected and closes the wrapped
// connection.
func (c *Conn) Close() error {
	c.markClosed()
	return c.Conn.Close()
}

func (c *Conn) markClosed() {
	if c.closed.CompareAndSwap(false, true) && c.onClose != nil {
		c.onClose(c)
	}
}

func (c *Conn) observe(pk packet.Packet) {
	switch pk := pk.(type) {
	case *packet.StartGame:
		c.mu.Lock()
		c.self, c.selfSet = pk.EntityUniqueID, true
		c.mu.Unlock()
	case *packet.PlayerList:
		c.mu.Lock()
		for _, entry := range pk.Entries {
			switch pk.ActionType {
			case packet.PlayerListActionAdd:
				c.entities[entry.UUID] = entry.EntityUniqueID
			case packet.PlayerListActionRemove:
				delete(c.entities, entry.UUID)
			}
		}
		c.mu.Unlock()
	}
}
