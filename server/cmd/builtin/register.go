package builtin

import (
	"github.com/df-mc/dragonfly/server/cmd"
)

// Register registers the built-in command set. plugins is usually a
// *plugin.Manager and players a *server.Host.
func Register(plugins pluginAdapter, players playerAdapter) {
	cmd.Register(newPluginCommand(plugins))
	cmd.Register(newListCommand(players))
}
