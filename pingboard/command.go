package pingboard

import (
	"strings"

	"github.com/df-mc/dragonfly/server/cmd"
	"github.com/df-mc/dragonfly/server/player"
	"github.com/df-mc/dragonfly/server/world"
	"github.com/hbidamian/pausescreenping/server/plugin"
)

// pingCommand reports the latency of players in chat. Commands cannot be
// unregistered, so it stays in the command list after the plugin is disabled
// and is only allowed while the instance that registered it is loaded.
type pingCommand struct {
	owner  *Plugin
	api    *plugin.API
	Target cmd.Optional[string] `cmd:"player"`
}

func newPingCommand(owner *Plugin) cmd.Command {
	return cmd.New("ping", "Shows the network latency of a player.", []string{"latency"}, pingCommand{owner: owner, api: owner.api})
}

// Allow ...
func (c pingCommand) Allow(cmd.Source) bool {
	loaded, ok := c.api.Plugin(Name)
	return ok && loaded == plugin.Plugin(c.owner)
}

// Run ...
func (c pingCommand) Run(src cmd.Source, o *cmd.Output, _ *world.Tx) {
	if name, ok := c.Target.Load(); ok {
		target, found := lookupPlayer(c.api.Players(), name)
		if !found {
			o.Errorf("Player %s is not online.", name)
			return
		}
		o.Printf("%s has a ping of %dms.", target.Name(), target.Latency().Milliseconds())
		return
	}
	if p, ok := src.(*player.Player); ok {
		if self, ok := c.api.Player(p.UUID()); ok {
			o.Printf("Your ping is %dms.", self.Latency().Milliseconds())
			return
		}
	}
	players := c.api.Players()
	if len(players) == 0 {
		o.Print("No players online.")
		return
	}
	for _, pl := range players {
		o.Printf("%s: %dms", pl.Name(), pl.Latency().Milliseconds())
	}
}

func lookupPlayer(players []plugin.Player, name string) (plugin.Player, bool) {
	for _, p := range players {
		if strings.EqualFold(p.Name(), name) {
			return p, true
		}
	}
	return nil, false
}
