package pingboard

import (
	"log/slog"
	"math"
	"math/rand/v2"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"github.com/hbidamian/pausescreenping/server/plugin"
	"github.com/sandertv/gophertunnel/minecraft/protocol"
	"github.com/sandertv/gophertunnel/minecraft/protocol/packet"
)

const (
	// ObjectiveName is the name of the scoreboard objective holding the ping
	// of every player.
	ObjectiveName = "hbidamian_player_ping"

	displaySlotList = "list"
	criteriaDummy   = "dummy"
	sortAscending   = 0
)

// Server is the view of the host a Board reads from. *plugin.API implements
// it.
type Server interface {
	Players() []plugin.Player
	PlayerCount() int
	MaxPlayerCount() int
	ServerName() string
}

// Board maintains the ping objective shown on the pause screen of every
// player. A Board is not safe for concurrent use: all methods other than Clear
// must be called from the plugin scheduler.
type Board struct {
	conf Config
	srv  Server
	log  *slog.Logger
	rand *rand.Rand

	version string
	cursor  int
}

// NewBoard returns a Board showing scores for the players of srv.
func NewBoard(conf Config, srv Server, log *slog.Logger) *Board {
	if log == nil {
		log = slog.Default()
	}
	return &Board{
		conf:    conf,
		srv:     srv,
		log:     log,
		rand:    rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		version: protocol.CurrentVersion,
	}
}

// Cursor returns the index of the dynamic display name currently shown.
func (b *Board) Cursor() int {
	return b.cursor
}

// DisplayName returns the formatted objective title currently in use.
func (b *Board) DisplayName() string {
	template := b.conf.StaticDisplayName
	if b.conf.DynamicDisplayName && len(b.conf.DynamicDisplayNames) > 0 {
		template = b.conf.DynamicDisplayNames[b.cursor]
	}
	vars := Placeholders{
		ServerName:    b.srv.ServerName(),
		ServerVersion: b.version,
		APIVersion:    Version,
		OnlinePlayers: b.srv.PlayerCount(),
		MaxPlayers:    b.srv.MaxPlayerCount(),
	}
	return Colourise(vars.Expand(template))
}

// Create shows the objective to viewer and sends the scores it may see.
func (b *Board) Create(viewer plugin.Player) {
	b.write(viewer, &packet.SetDisplayObjective{
		DisplaySlot:   displaySlotList,
		ObjectiveName: ObjectiveName,
		DisplayName:   b.DisplayName(),
		CriteriaName:  criteriaDummy,
		SortOrder:     sortAscending,
	})
	b.Update(viewer, b.visibleTo(viewer, b.srv.Players()))
}

// Remove hides the objective, with all of its scores, from viewer.
func (b *Board) Remove(viewer plugin.Player) {
	b.write(viewer, &packet.RemoveObjective{ObjectiveName: ObjectiveName})
}

// Update sends the current ping of every connected target to viewer in a
// single packet. Nothing is sent if no target could be listed.
func (b *Board) Update(viewer plugin.Player, targets []plugin.Player) {
	if len(targets) == 0 {
		return
	}
	entries := make([]protocol.ScoreboardEntry, 0, len(targets))
	for _, target := range targets {
		if target == nil || !target.Connected() {
			continue
		}
		id, ok := viewer.EntityID(target.UUID())
		if !ok {
			// The client cannot render player entries for players it has not
			// been told about yet.
			continue
		}
		entries = append(entries, protocol.ScoreboardEntry{
			EntryID:        entryID(target.UUID()),
			ObjectiveName:  ObjectiveName,
			Score:          score(target),
			IdentityType:   protocol.ScoreboardIdentityPlayer,
			EntityUniqueID: id,
		})
	}
	if len(entries) == 0 {
		return
	}
	b.write(viewer, &packet.SetScore{ActionType: packet.ScoreboardActionModify, Entries: entries})
}

// UpdateAll sends fresh scores to every connected player.
func (b *Board) UpdateAll() {
	players := b.srv.Players()
	for _, viewer := range players {
		if !viewer.Connected() {
			continue
		}
		b.Update(viewer, b.visibleTo(viewer, players))
	}
}

// RemovePlayer removes the entry of departed from the scoreboard of every
// other connected player.
func (b *Board) RemovePlayer(departed plugin.Player) {
	id := departed.UUID()
	for _, viewer := range b.srv.Players() {
		if viewer.UUID() == id || !viewer.Connected() {
			continue
		}
		entity, _ := viewer.EntityID(id)
		b.write(viewer, &packet.SetScore{
			ActionType: packet.ScoreboardActionRemove,
			Entries: []protocol.ScoreboardEntry{{
				EntryID:        entryID(id),
				ObjectiveName:  ObjectiveName,
				IdentityType:   protocol.ScoreboardIdentityPlayer,
				EntityUniqueID: entity,
			}},
		})
	}
}

// Cycle advances to the next dynamic display name and recreates the objective
// of every connected player with it.
func (b *Board) Cycle() {
	n := len(b.conf.DynamicDisplayNames)
	if !b.conf.DynamicDisplayName || n == 0 {
		return
	}
	if b.conf.Shuffle == ShuffleOn {
		b.cursor = b.rand.IntN(n)
	} else {
		b.cursor = (b.cursor + 1) % n
	}
	for _, viewer := range b.srv.Players() {
		if !viewer.Connected() {
			continue
		}
		b.Remove(viewer)
		b.Create(viewer)
	}
}

// Clear removes the objective from every connected player. It reads no state
// of the Board and may be called from any goroutine.
func (b *Board) Clear() {
	for _, viewer := range b.srv.Players() {
		if viewer.Connected() {
			b.Remove(viewer)
		}
	}
}

func (b *Board) visibleTo(viewer plugin.Player, players []plugin.Player) []plugin.Player {
	if b.conf.OnlySeeOwnPing {
		return []plugin.Player{viewer}
	}
	return players
}

func (b *Board) write(viewer plugin.Player, pk packet.Packet) {
	if err := viewer.WritePacket(pk); err != nil {
		b.log.Debug("Write scoreboard packet.", "player", viewer.Name(), "packet", pk.ID(), "error", err)
	}
}

// entryID derives the scoreboard entry ID of a player from their UUID, so that
// every client uses the same ID for the same player.
func entryID(id uuid.UUID) int64 {
	return int64(xxhash.Sum64(id[:]) >> 1)
}

func score(p plugin.Player) int32 {
	ms := p.Latency().Milliseconds()
	return int32(min(max(ms, 0), math.MaxInt32))
}
