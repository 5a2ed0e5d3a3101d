package plugin

import (
	"testing"

	"github.com/df-mc/dragonfly/server/player"
)

type quitRecorder struct {
	player.NopHandler
	quit int
}

func (r *quitRecorder) HandleQuit(*player.Player) { r.quit++ }

func TestEventHubUnsubscribe(t *testing.T) {
	s := NewScheduler(nil)
	hub := newEventHub(s, nil)
	calls := 0
	unsub := hub.addJoin("ping", func(Player) { calls++ })

	hub.dispatchJoin(newTestPlayer("Steve"))
	s.Tick()
	unsub()
	unsub()
	hub.dispatchJoin(newTestPlayer("Alex"))
	s.Tick()

	if calls != 1 {
		t.Fatalf("join handler called %d times, want 1", calls)
	}
	if n := len(hub.loadJoinChain()); n != 0 {
		t.Fatalf("join chain holds %d handlers after unsubscribe", n)
	}
}

func TestEventHubClearAndRename(t *testing.T) {
	s := NewScheduler(nil)
	hub := newEventHub(s, nil)
	hub.addJoin("pauseping", func(Player) {})
	hub.addQuit("pauseping", func(Player) {})
	hub.addQuit("other", func(Player) {})

	hub.rename("pauseping", "PauseScreenPing")
	hub.clear("PauseScreenPing")

	if n := len(hub.loadJoinChain()); n != 0 {
		t.Fatalf("join chain holds %d handlers, want 0", n)
	}
	quit := hub.loadQuitChain()
	if len(quit) != 1 || quit[0].plugin != "other" {
		t.Fatalf("quit chain = %+v, want only other", quit)
	}
}

func TestWrapPlayerDispatchesQuit(t *testing.T) {
	s := NewScheduler(nil)
	hub := newEventHub(s, nil)
	steve := newTestPlayer("Steve")
	var got Player
	hub.addQuit("ping", func(p Player) { got = p })

	base := &quitRecorder{}
	h := hub.wrapPlayer(steve, base)
	// Wrapping twice must not report the quit twice.
	h = hub.wrapPlayer(steve, h)
	h.HandleQuit(nil)
	s.Tick()

	if base.quit != 1 {
		t.Fatalf("base handler saw %d quits, want 1", base.quit)
	}
	if got != steve {
		t.Fatalf("quit handler received %v, want %v", got, steve)
	}
}

func TestWrapPlayerNilBase(t *testing.T) {
	hub := newEventHub(NewScheduler(nil), nil)
	h := hub.wrapPlayer(newTestPlayer("Steve"), nil)
	if chain, ok := h.(*playerHandlerChain); !ok || chain.Handler == nil {
		t.Fatalf("wrapPlayer(nil) = %T, want a chain around NopHandler", h)
	}
	h.HandleQuit(nil)
}
