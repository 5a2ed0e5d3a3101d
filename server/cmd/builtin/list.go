package builtin

import (
	"fmt"
	"strings"

	"github.com/df-mc/dragonfly/server/cmd"
	"github.com/df-mc/dragonfly/server/world"
)

type listCommand struct {
	srv playerAdapter
}

func newListCommand(srv playerAdapter) cmd.Command {
	return cmd.New("list", "Lists players currently online with their ping.", []string{"players"}, listCommand{srv: srv})
}

func (l listCommand) Run(_ cmd.Source, o *cmd.Output, _ *world.Tx) {
	players := l.srv.Players()
	o.Printf("There are %d/%d players online.", len(players), l.srv.MaxPlayerCount())
	if len(players) == 0 {
		return
	}
	entries := make([]string, 0, len(players))
	for _, p := range players {
		entries = append(entries, fmt.Sprintf("%s (%dms)", p.Name(), p.Latency().Milliseconds()))
	}
	o.Print(strings.Join(entries, ", "))
}
