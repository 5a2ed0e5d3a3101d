package plugin

import "errors"

// Plugin is an extension enabled by a Manager.
type Plugin interface {
	// Name returns the name the plugin is known by. Names are compared
	// case-insensitively and must be unique among loaded plugins.
	Name() string
	// Close is called once when the plugin is disabled or the server stops.
	Close() error
}

// VersionedPlugin is a Plugin that reports its version.
type VersionedPlugin interface {
	Version() string
}

// Factory creates and enables a plugin. Registered plugins and plugin binaries
// share this signature; binaries export it under one of the names Init,
// InitPlugin, New or NewPlugin.
type Factory func(api *API) (Plugin, error)

// Info holds the metadata of a loaded plugin.
type Info struct {
	Name    string
	Version string
	// Path is the plugin binary, or empty for registered plugins.
	Path string
}

// Static reports whether the plugin was registered in process.
func (i Info) Static() bool {
	return i.Path == ""
}

var (
	ErrDisabled       = errors.New("plugin subsystem disabled")
	ErrAlreadyLoaded  = errors.New("plugin already loaded")
	ErrNameConflict   = errors.New("plugin name already registered")
	ErrNotFound       = errors.New("plugin not found")
	ErrUnknownFactory = errors.New("no plugin factory registered")
)
