// Package pingboard implements a plugin that shows the network latency of
// every player on the scoreboard of the client's pause screen.
package pingboard

import (
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hbidamian/pausescreenping/server/plugin"
)

const (
	// Name is the name under which the plugin is registered.
	Name = "PauseScreenPing"
	// Version is the version of the plugin.
	Version = "1.2.0"

	configFile = "config.yml"
	// joinRefreshDelay is the number of ticks after a join before every
	// scoreboard is refreshed, giving the client time to learn about the new
	// player.
	joinRefreshDelay = 5
)

//go:embed config.yml
var resources embed.FS

// Plugin is the PauseScreenPing plugin.
type Plugin struct {
	api   *plugin.API
	log   *slog.Logger
	conf  Config
	board *Board

	unsub []func()
	tasks []*plugin.Task
}

// New enables the plugin. It fails if the configuration file is outdated.
func New(api *plugin.API) (plugin.Plugin, error) {
	log := api.Logger()
	path, err := api.SaveResource(resources, configFile, false)
	if err != nil {
		return nil, fmt.Errorf("save default config: %w", err)
	}
	conf, err := LoadConfig(path, log)
	if err != nil {
		if errors.Is(err, ErrConfigVersion) {
			log.Error("The config version is invalid. Please update the config.yml.", "path", path, "error", err)
		}
		return nil, err
	}

	p := &Plugin{api: api, log: log, conf: conf, board: NewBoard(conf, api, log)}
	p.registerEvents()
	p.scheduleTasks()
	api.RegisterCommand(newPingCommand(p))

	log.Info("Pause screen ping enabled.",
		"updateInterval", conf.UpdateInterval,
		"dynamicDisplayName", conf.DynamicDisplayName,
		"onlySeeOwnPing", conf.OnlySeeOwnPing)
	return p, nil
}

// Name ...
func (p *Plugin) Name() string { return Name }

// Version ...
func (p *Plugin) Version() string { return Version }

// Board returns the board maintained by the plugin.
func (p *Plugin) Board() *Board { return p.board }

// Close unregisters all handlers and tasks and removes the objective from
// every player.
func (p *Plugin) Close() error {
	for i := len(p.unsub) - 1; i >= 0; i-- {
		p.unsub[i]()
	}
	p.unsub = nil
	for _, task := range p.tasks {
		task.Cancel()
	}
	p.tasks = nil
	p.board.Clear()
	return nil
}

func (p *Plugin) registerEvents() {
	events := p.api.Events()
	p.unsub = append(p.unsub,
		events.OnJoin(p.handleJoin),
		events.OnQuit(p.handleQuit),
	)
}

func (p *Plugin) scheduleTasks() {
	sched := p.api.Scheduler()
	p.tasks = append(p.tasks, sched.Repeating(p.conf.UpdateInterval, p.board.UpdateAll))
	if p.conf.DynamicDisplayName {
		p.tasks = append(p.tasks, sched.Repeating(p.conf.DynamicNameInterval, p.board.Cycle))
	}
	// Players already online when the plugin is enabled, for example after a
	// reload, never produce a join event.
	sched.Post(func() {
		for _, viewer := range p.api.Players() {
			if viewer.Connected() {
				p.board.Create(viewer)
			}
		}
	})
}

func (p *Plugin) handleJoin(pl plugin.Player) {
	p.board.Create(pl)
	if !p.conf.OnlySeeOwnPing {
		p.api.Scheduler().Delayed(joinRefreshDelay, p.board.UpdateAll)
	}
}

func (p *Plugin) handleQuit(pl plugin.Player) {
	p.board.RemovePlayer(pl)
}

var _ plugin.VersionedPlugin = (*Plugin)(nil)
