package plugin

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/sandertv/gophertunnel/minecraft/protocol/packet"
)

// Host exposes the subset of server functionality required by the plugin
// manager and APIs.
type Host interface {
	// Logger returns the logger used for structured diagnostics.
	Logger() *slog.Logger
	// Name returns the server name shown in the server list.
	Name() string
	// MaxPlayerCount returns the configured player cap.
	MaxPlayerCount() int
	// PlayerCount returns the number of currently connected players.
	PlayerCount() int
	// Players returns every player that has fully joined and not yet quit.
	Players() []Player
	// Player looks up an online player by their UUID.
	Player(id uuid.UUID) (Player, bool)
	// Close shuts the underlying server down.
	Close() error
}

// Player is an online player as seen by plugins. Implementations are safe for
// concurrent use.
type Player interface {
	// UUID returns the identity UUID of the player.
	UUID() uuid.UUID
	// Name returns the username of the player.
	Name() string
	// XUID returns the XBOX Live user ID, or an empty string when offline-mode
	// authentication is used.
	XUID() string
	// Latency returns the most recent network latency measured for the player.
	Latency() time.Duration
	// Connected reports if the network session is still open.
	Connected() bool
	// EntityID returns the entity unique ID under which target is known to the
	// client of this player. The second return value is false if the client
	// has not been told about target yet.
	EntityID(target uuid.UUID) (int64, bool)
	// WritePacket sends a packet over the player's network session.
	WritePacket(pk packet.Packet) error
}
