package pingboard

import (
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hbidamian/pausescreenping/server/plugin"
	"github.com/sandertv/gophertunnel/minecraft/protocol/packet"
)

type fakePlayer struct {
	id      uuid.UUID
	name    string
	latency time.Duration

	mu       sync.Mutex
	offline  bool
	entities map[uuid.UUID]int64
	packets  []packet.Packet
}

func (p *fakePlayer) UUID() uuid.UUID        { return p.id }
func (p *fakePlayer) Name() string           { return p.name }
func (p *fakePlayer) XUID() string           { return "" }
func (p *fakePlayer) Latency() time.Duration { return p.latency }

func (p *fakePlayer) Connected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.offline
}

func (p *fakePlayer) disconnect() {
	p.mu.Lock()
	p.offline = true
	p.mu.Unlock()
}

func (p *fakePlayer) EntityID(target uuid.UUID) (int64, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	id, ok := p.entities[target]
	return id, ok
}

func (p *fakePlayer) see(target *fakePlayer, id int64) {
	p.mu.Lock()
	p.entities[target.id] = id
	p.mu.Unlock()
}

func (p *fakePlayer) WritePacket(pk packet.Packet) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.offline {
		return io.ErrClosedPipe
	}
	p.packets = append(p.packets, pk)
	return nil
}

// take returns the packets written so far and forgets them.
func (p *fakePlayer) take() []packet.Packet {
	p.mu.Lock()
	defer p.mu.Unlock()
	pks := p.packets
	p.packets = nil
	return pks
}

type fakeServer struct {
	mu      sync.Mutex
	players []plugin.Player
}

// newFakeServer returns a server with a player for each name. Every client
// knows every player, each viewer under its own entity IDs.
func newFakeServer(names ...string) (*fakeServer, []*fakePlayer) {
	players := make([]*fakePlayer, len(names))
	for i, name := range names {
		players[i] = &fakePlayer{
			id:       uuid.New(),
			name:     name,
			latency:  time.Duration(10*(i+1)) * time.Millisecond,
			entities: make(map[uuid.UUID]int64),
		}
	}
	srv := &fakeServer{}
	for i, viewer := range players {
		for j, target := range players {
			viewer.see(target, int64(100*(i+1)+j))
		}
		srv.players = append(srv.players, viewer)
	}
	return srv, players
}

func (s *fakeServer) join(p *fakePlayer) {
	s.mu.Lock()
	s.players = append(s.players, p)
	s.mu.Unlock()
}

func (s *fakeServer) leave(p *fakePlayer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, other := range s.players {
		if other == p {
			s.players = append(s.players[:i], s.players[i+1:]...)
			return
		}
	}
}

func (s *fakeServer) Players() []plugin.Player {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]plugin.Player(nil), s.players...)
}

func (s *fakeServer) PlayerCount() int    { return len(s.Players()) }
func (s *fakeServer) MaxPlayerCount() int { return 20 }
func (s *fakeServer) ServerName() string  { return "Test Server" }
func (s *fakeServer) Name() string        { return s.ServerName() }
func (s *fakeServer) Close() error        { return nil }

func (s *fakeServer) Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func (s *fakeServer) Player(id uuid.UUID) (plugin.Player, bool) {
	for _, p := range s.Players() {
		if p.UUID() == id {
			return p, true
		}
	}
	return nil, false
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var (
	_ plugin.Host   = (*fakeServer)(nil)
	_ plugin.Player = (*fakePlayer)(nil)
)
