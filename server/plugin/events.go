package plugin

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/df-mc/dragonfly/server/player"
)

// JoinHandler is called once a player has fully joined the server.
type JoinHandler func(p Player)

// QuitHandler is called once a player has left the server. The Player passed
// is no longer listed by Host.Players.
type QuitHandler func(p Player)

type eventRegistration[T any] struct {
	plugin  string
	handler T
	id      uint64
}

type eventList[T any] struct {
	regs []eventRegistration[T]
	next uint64
}

func (l *eventList[T]) add(plugin string, handler T) uint64 {
	id := l.next
	l.next++
	l.regs = append(l.regs, eventRegistration[T]{plugin: plugin, handler: handler, id: id})
	return id
}

func (l *eventList[T]) removeByID(id uint64) {
	regs := l.regs[:0]
	for _, reg := range l.regs {
		if reg.id != id {
			regs = append(regs, reg)
		}
	}
	l.regs = regs
}

func (l *eventList[T]) removePlugin(plugin string) {
	regs := l.regs[:0]
	for _, reg := range l.regs {
		if reg.plugin != plugin {
			regs = append(regs, reg)
		}
	}
	l.regs = regs
}

func (l *eventList[T]) rename(oldName, newName string) {
	for i := range l.regs {
		if l.regs[i].plugin == oldName {
			l.regs[i].plugin = newName
		}
	}
}

func (l *eventList[T]) snapshot() []eventRegistration[T] {
	out := make([]eventRegistration[T], len(l.regs))
	copy(out, l.regs)
	return out
}

// eventHub fans join and quit notifications out to plugin handlers. Handlers
// are never called on the goroutine that reported the event: every call is
// posted to the scheduler so that plugins observe events and tasks on the same
// goroutine.
type eventHub struct {
	mu        sync.Mutex
	log       *slog.Logger
	scheduler *Scheduler
	join      eventList[JoinHandler]
	quit      eventList[QuitHandler]
	joinChain atomic.Value // []eventRegistration[JoinHandler]
	quitChain atomic.Value // []eventRegistration[QuitHandler]
}

func newEventHub(scheduler *Scheduler, log *slog.Logger) *eventHub {
	if log == nil {
		log = slog.Default()
	}
	hub := &eventHub{scheduler: scheduler, log: log.With("subsystem", "plugin.events")}
	hub.joinChain.Store([]eventRegistration[JoinHandler]{})
	hub.quitChain.Store([]eventRegistration[QuitHandler]{})
	return hub
}

func (pe *eventHub) addJoin(plugin string, handler JoinHandler) func() {
	if handler == nil {
		return func() {}
	}
	pe.mu.Lock()
	id := pe.join.add(plugin, handler)
	pe.joinChain.Store(pe.join.snapshot())
	pe.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			pe.mu.Lock()
			pe.join.removeByID(id)
			pe.joinChain.Store(pe.join.snapshot())
			pe.mu.Unlock()
		})
	}
}

func (pe *eventHub) addQuit(plugin string, handler QuitHandler) func() {
	if handler == nil {
		return func() {}
	}
	pe.mu.Lock()
	id := pe.quit.add(plugin, handler)
	pe.quitChain.Store(pe.quit.snapshot())
	pe.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			pe.mu.Lock()
			pe.quit.removeByID(id)
			pe.quitChain.Store(pe.quit.snapshot())
			pe.mu.Unlock()
		})
	}
}

func (pe *eventHub) clear(plugin string) {
	pe.mu.Lock()
	pe.join.removePlugin(plugin)
	pe.quit.removePlugin(plugin)
	pe.joinChain.Store(pe.join.snapshot())
	pe.quitChain.Store(pe.quit.snapshot())
	pe.mu.Unlock()
}

func (pe *eventHub) rename(oldName, newName string) {
	if newName == "" || oldName == newName {
		return
	}
	pe.mu.Lock()
	pe.join.rename(oldName, newName)
	pe.quit.rename(oldName, newName)
	pe.joinChain.Store(pe.join.snapshot())
	pe.quitChain.Store(pe.quit.snapshot())
	pe.mu.Unlock()
}

func (pe *eventHub) loadJoinChain() []eventRegistration[JoinHandler] {
	if v := pe.joinChain.Load(); v != nil {
		return v.([]eventRegistration[JoinHandler])
	}
	return nil
}

func (pe *eventHub) loadQuitChain() []eventRegistration[QuitHandler] {
	if v := pe.quitChain.Load(); v != nil {
		return v.([]eventRegistration[QuitHandler])
	}
	return nil
}

func (pe *eventHub) dispatchJoin(p Player) {
	for _, reg := range pe.loadJoinChain() {
		handler := reg.handler
		pe.scheduler.Post(reg.plugin, func() { handler(p) })
	}
}

func (pe *eventHub) dispatchQuit(p Player) {
	for _, reg := range pe.loadQuitChain() {
		handler := reg.handler
		pe.scheduler.Post(reg.plugin, func() { handler(p) })
	}
}

func (pe *eventHub) wrapPlayer(p Player, base player.Handler) player.Handler {
	if chain, ok := base.(*playerHandlerChain); ok {
		base = chain.Handler
	}
	if base == nil {
		base = player.NopHandler{}
	}
	return &playerHandlerChain{Handler: base, hub: pe, p: p}
}

// playerHandlerChain forwards every player event to the wrapped handler and
// additionally reports the quit event to plugins.
type playerHandlerChain struct {
	player.Handler
	hub *eventHub
	p   Player
}

// HandleQuit ...
func (c *playerHandlerChain) HandleQuit(p *player.Player) {
	c.Handler.HandleQuit(p)
	c.hub.dispatchQuit(c.p)
}
