package server

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/df-mc/dragonfly/server"
	"github.com/hbidamian/pausescreenping/server/plugin"
	"github.com/hbidamian/pausescreenping/server/session"
	"github.com/pelletier/go-toml"
)

// Config is the on-disk configuration of the ping server. It is stored as
// TOML.
type Config struct {
	// Dragonfly holds the regular Dragonfly server configuration.
	Dragonfly server.UserConfig
	// Plugins configures the plugin subsystem.
	Plugins PluginConfig
	// Query configures the query protocol responder.
	Query struct {
		// Enabled answers query requests on the port of the game listener.
		Enabled bool
	}
}

// PluginConfig is the TOML representation of plugin.Config.
type PluginConfig struct {
	// Enabled specifies if plugins are loaded at all.
	Enabled bool
	// Directory is searched for plugin binaries and holds plugin data.
	Directory string
	// DataDirectory overrides where plugin data folders are created.
	DataDirectory string
	// Autoload loads every .so file found in Directory.
	Autoload bool
	// Files lists additional plugin binaries to load.
	Files []string
	// Static lists the built-in plugins to enable. All of them are enabled
	// when empty.
	Static []string
}

// DefaultConfig returns a configuration with the default Dragonfly settings
// and the plugin subsystem enabled.
func DefaultConfig() Config {
	c := Config{Dragonfly: server.DefaultConfig()}
	c.Dragonfly.Server.Name = "PauseScreenPing Server"
	c.Plugins.Enabled = true
	c.Plugins.Directory = "plugins"
	c.Query.Enabled = true
	return c
}

// ReadConfig reads the configuration at path. If no file exists yet, the
// default configuration is written to path and returned.
func ReadConfig(path string) (Config, error) {
	c := DefaultConfig()
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		data, err := toml.Marshal(c)
		if err != nil {
			return c, fmt.Errorf("encode default config: %w", err)
		}
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return c, fmt.Errorf("create config directory: %w", err)
			}
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return c, fmt.Errorf("create default config: %w", err)
		}
		return c, nil
	} else if err != nil {
		return c, fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(data, &c); err != nil {
		return c, fmt.Errorf("decode config: %w", err)
	}
	return c, nil
}

// PluginConfig converts the plugin section to a plugin.Config.
func (c Config) PluginConfig() plugin.Config {
	return plugin.Config{
		Enabled:       c.Plugins.Enabled,
		Directory:     c.Plugins.Directory,
		DataDirectory: c.Plugins.DataDirectory,
		Autoload:      c.Plugins.Autoload,
		Files:         slices.Clone(c.Plugins.Files),
		Static:        slices.Clone(c.Plugins.Static),
	}
}

// ServerConfig converts the Dragonfly section into a server.Config whose
// listeners register every connection with reg.
func (c Config) ServerConfig(reg *session.Registry, log *slog.Logger) (server.Config, error) {
	conf, err := c.Dragonfly.Config(log)
	if err != nil {
		return conf, fmt.Errorf("dragonfly config: %w", err)
	}
	reg.WrapListeners(&conf)
	return conf, nil
}
