package server

import (
	"github.com/df-mc/dragonfly/server/world"
	"github.com/hbidamian/pausescreenping/server/plugin"
	"github.com/hbidamian/pausescreenping/server/query"
)

// QueryProvider returns a query.Provider reporting the players of h and the
// plugins loaded by m.
func (h *Host) QueryProvider(m *plugin.Manager) query.Provider {
	return query.ProviderFunc(func() query.Data {
		players := h.Players()
		names := make([]string, len(players))
		for i, p := range players {
			names[i] = p.Name()
		}
		data := query.Data{
			HostName:    h.name,
			PlayerCount: len(players),
			MaxPlayers:  h.MaxPlayerCount(),
			Players:     names,
		}
		if m != nil {
			for _, info := range m.Infos() {
				data.Plugins = append(data.Plugins, info.Name)
			}
		}
		if w := h.srv.World(); w != nil {
			data.Map = w.Name()
			data.GameMode = gameModeName(w.DefaultGameMode())
		}
		return data
	})
}

// gameModeName translates a game mode into the name used by query clients.
func gameModeName(mode world.GameMode) string {
	id, _ := world.GameModeID(mode)
	switch id {
	case 1:
		return "CREATIVE"
	case 2:
		return "ADVENTURE"
	case 3:
		return "SPECTATOR"
	default:
		return "SURVIVAL"
	}
}
