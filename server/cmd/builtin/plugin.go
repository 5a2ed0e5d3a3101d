package builtin

import (
	"path/filepath"
	"slices"
	"strings"

	"github.com/df-mc/dragonfly/server/cmd"
	"github.com/df-mc/dragonfly/server/player"
	"github.com/df-mc/dragonfly/server/world"
	"github.com/hbidamian/pausescreenping/server/plugin"
)

type pluginListCommand struct {
	List cmd.SubCommand `cmd:"list"`
	srv  pluginAdapter
}

type pluginEnableCommand struct {
	Enable cmd.SubCommand `cmd:"enable"`
	Target string         `cmd:"plugin"`
	srv    pluginAdapter
}

type pluginDisableCommand struct {
	Disable cmd.SubCommand `cmd:"disable"`
	Name    string         `cmd:"name"`
	srv     pluginAdapter
}

type pluginReloadCommand struct {
	Reload cmd.SubCommand `cmd:"reload"`
	Name   string         `cmd:"name"`
	srv    pluginAdapter
}

func newPluginCommand(srv pluginAdapter) cmd.Command {
	return cmd.New(
		"plugin",
		"Manages plugins.",
		[]string{"plugins"},
		pluginListCommand{srv: srv},
		pluginEnableCommand{srv: srv},
		pluginDisableCommand{srv: srv},
		pluginReloadCommand{srv: srv},
	)
}

func (p pluginListCommand) Run(_ cmd.Source, o *cmd.Output, _ *world.Tx) {
	if !p.srv.Enabled() {
		o.Print("Plugin subsystem disabled.")
		return
	}
	plugins := p.srv.Infos()
	if len(plugins) == 0 {
		o.Print("No plugins loaded.")
		return
	}
	slices.SortStableFunc(plugins, func(a, b plugin.Info) int {
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	})
	for _, info := range plugins {
		o.Print(describe(info))
	}
}

func (pluginListCommand) Allow(src cmd.Source) bool { return consoleOnly(src) }

func (p pluginEnableCommand) Run(_ cmd.Source, o *cmd.Output, _ *world.Tx) {
	if !p.srv.Enabled() {
		o.Error("Plugin subsystem disabled.")
		return
	}
	target := strings.TrimSpace(p.Target)
	if target == "" {
		o.Error("Plugin name or file path is required.")
		return
	}
	var (
		info plugin.Info
		err  error
	)
	// Targets that look like files are loaded as plugin binaries, anything
	// else refers to a built-in plugin.
	if strings.EqualFold(filepath.Ext(target), ".so") || strings.ContainsRune(target, filepath.Separator) {
		info, err = p.srv.Enable(target)
	} else {
		info, err = p.srv.EnableStatic(target)
	}
	if err != nil {
		o.Error(err)
		return
	}
	o.Printf("Enabled %s.", describe(info))
}

func (pluginEnableCommand) Allow(src cmd.Source) bool { return consoleOnly(src) }

func (p pluginDisableCommand) Run(_ cmd.Source, o *cmd.Output, _ *world.Tx) {
	if !p.srv.Enabled() {
		o.Error("Plugin subsystem disabled.")
		return
	}
	name := strings.TrimSpace(p.Name)
	if name == "" {
		o.Error("Plugin name is required.")
		return
	}
	info, err := p.srv.Disable(name)
	if err != nil {
		o.Error(err)
		return
	}
	o.Printf("Disabled %s.", info.Name)
}

func (pluginDisableCommand) Allow(src cmd.Source) bool { return consoleOnly(src) }

func (p pluginReloadCommand) Run(_ cmd.Source, o *cmd.Output, _ *world.Tx) {
	if !p.srv.Enabled() {
		o.Error("Plugin subsystem disabled.")
		return
	}
	name := strings.TrimSpace(p.Name)
	if name == "" {
		o.Error("Plugin name is required.")
		return
	}
	info, err := p.srv.Reload(name)
	if err != nil {
		o.Error(err)
		return
	}
	o.Printf("Reloaded %s.", describe(info))
}

func (pluginReloadCommand) Allow(src cmd.Source) bool { return consoleOnly(src) }

func describe(info plugin.Info) string {
	s := info.Name
	if info.Version != "" {
		s += " v" + info.Version
	}
	if info.Static() {
		return s + " (built-in)"
	}
	return s + " (" + info.Path + ")"
}

func consoleOnly(src cmd.Source) bool {
	_, isPlayer := src.(*player.Player)
	return !isPlayer
}
