package server

import (
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/df-mc/dragonfly/server"
	"github.com/df-mc/dragonfly/server/player"
	"github.com/google/uuid"
	"github.com/hbidamian/pausescreenping/server/plugin"
	"github.com/hbidamian/pausescreenping/server/session"
)

// Host runs plugins on top of a Dragonfly server. Players become visible to
// plugins once the server has accepted them and stop being visible as soon as
// they quit.
type Host struct {
	srv  *server.Server
	reg  *session.Registry
	name string
	log  *slog.Logger

	mu     sync.RWMutex
	joined map[uuid.UUID]*session.Conn
}

// NewHost returns a Host for srv. reg must be the registry whose listeners were
// installed on the configuration srv was created from.
func NewHost(srv *server.Server, reg *session.Registry, name string, log *slog.Logger) *Host {
	if log == nil {
		log = slog.Default()
	}
	return &Host{
		srv:    srv,
		reg:    reg,
		name:   name,
		log:    log,
		joined: make(map[uuid.UUID]*session.Conn),
	}
}

// Logger ...
func (h *Host) Logger() *slog.Logger {
	return h.log
}

// Name ...
func (h *Host) Name() string {
	return h.name
}

// MaxPlayerCount ...
func (h *Host) MaxPlayerCount() int {
	return h.srv.MaxPlayerCount()
}

// PlayerCount ...
func (h *Host) PlayerCount() int {
	return h.srv.PlayerCount()
}

// Players returns all joined players ordered by name.
func (h *Host) Players() []plugin.Player {
	h.mu.RLock()
	players := make([]plugin.Player, 0, len(h.joined))
	for _, conn := range h.joined {
		players = append(players, conn)
	}
	h.mu.RUnlock()

	slices.SortFunc(players, func(a, b plugin.Player) int {
		return strings.Compare(a.Name(), b.Name())
	})
	return players
}

// Player ...
func (h *Host) Player(id uuid.UUID) (plugin.Player, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	conn, ok := h.joined[id]
	if !ok {
		return nil, false
	}
	return conn, true
}

// Close ...
func (h *Host) Close() error {
	return h.srv.Close()
}

// Serve accepts players from the server until it is closed, notifying the
// plugins of m about every join and quit.
func (h *Host) Serve(m *plugin.Manager) {
	for p := range h.srv.Accept() {
		h.accept(m, p)
	}
}

func (h *Host) accept(m *plugin.Manager, p *player.Player) {
	conn, ok := h.reg.Conn(p.UUID())
	if !ok {
		h.log.Warn("Accepted player without a tracked session.", "name", p.Name(), "uuid", p.UUID())
		return
	}
	h.mu.Lock()
	h.joined[conn.UUID()] = conn
	h.mu.Unlock()

	p.Handle(m.WrapPlayerHandler(conn, quitHandler{host: h, conn: conn}))
	m.PlayerJoined(conn)
}

func (h *Host) leave(conn *session.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if current, ok := h.joined[conn.UUID()]; ok && current == conn {
		delete(h.joined, conn.UUID())
	}
}

// quitHandler removes a player from the host's player list when they quit.
type quitHandler struct {
	player.NopHandler
	host *Host
	conn *session.Conn
}

// HandleQuit ...
func (q quitHandler) HandleQuit(*player.Player) {
	q.host.leave(q.conn)
}

var _ plugin.Host = (*Host)(nil)
