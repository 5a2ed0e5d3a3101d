package query

import (
	"runtime/debug"
	"strconv"
	"strings"

	"github.com/sandertv/gophertunnel/minecraft/protocol"
)

// Data is the server state reported to query clients.
type Data struct {
	// HostName is the server name shown in the server list.
	HostName string
	// MOTD is an optional secondary line.
	MOTD string
	// Map is the name of the default world.
	Map string
	// GameMode is the default game mode, such as SURVIVAL.
	GameMode string
	// Version is the game version. protocol.CurrentVersion is used if empty.
	Version string
	// Engine identifies the server software. The name and build version of
	// the main module is used if empty.
	Engine string
	// PlayerCount is the number of online players.
	PlayerCount int
	// MaxPlayers is the player limit.
	MaxPlayers int
	// Plugins are the names of the loaded plugins.
	Plugins []string
	// Players are the names of the online players.
	Players []string
}

// Provider supplies the Data returned for every full query request.
type Provider interface {
	QueryData() Data
}

// ProviderFunc is a function implementing Provider.
type ProviderFunc func() Data

// QueryData ...
func (f ProviderFunc) QueryData() Data { return f() }

var engine = engineName()

func engineName() string {
	info, ok := debug.ReadBuildInfo()
	if !ok || info.Main.Path == "" {
		return "PauseScreenPing"
	}
	name := info.Main.Path[strings.LastIndexByte(info.Main.Path, '/')+1:]
	version := info.Main.Version
	if version == "" || version == "(devel)" {
		version = "dev"
	}
	return name + " (" + version + ")"
}

type pair struct {
	key, value string
}

// pairs returns the key/value section of a full query response for a
// listener bound to host and port.
func (d Data) pairs(host string, port int) []pair {
	if d.Version == "" {
		d.Version = protocol.CurrentVersion
	}
	if d.Engine == "" {
		d.Engine = engine
	}
	if host == "" {
		host = "0.0.0.0"
	}
	kv := []pair{
		{"hostname", d.HostName},
		{"gametype", "SMP"},
		{"game_id", "MINECRAFTPE"},
		{"version", d.Version},
		{"server_engine", d.Engine},
		{"plugins", strings.Join(d.Plugins, "; ")},
	}
	if d.Map != "" {
		kv = append(kv, pair{"map", d.Map})
	}
	kv = append(kv,
		pair{"numplayers", strconv.Itoa(d.PlayerCount)},
		pair{"maxplayers", strconv.Itoa(d.MaxPlayers)},
		pair{"whitelist", "off"},
		pair{"hostip", host},
		pair{"hostport", strconv.Itoa(int(uint16(port)))},
	)
	if d.GameMode != "" {
		kv = append(kv, pair{"gamemode", d.GameMode})
	}
	if d.MOTD != "" {
		kv = append(kv, pair{"motd", d.MOTD})
	}
	return kv
}
