package builtin

import "github.com/hbidamian/pausescreenping/server/plugin"

type pluginAdapter interface {
	Enabled() bool
	Infos() []plugin.Info
	Enable(path string) (plugin.Info, error)
	EnableStatic(name string) (plugin.Info, error)
	Disable(name string) (plugin.Info, error)
	Reload(name string) (plugin.Info, error)
}

type playerAdapter interface {
	Players() []plugin.Player
	MaxPlayerCount() int
}
