package server

import "github.com/hbidamian/pausescreenping/server/plugin"

// Aliases for plugin binaries, which only need to import this package.
type (
	Plugin    = plugin.Plugin
	PluginAPI = plugin.API
)
