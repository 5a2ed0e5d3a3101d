package pingboard

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hbidamian/pausescreenping/server/plugin"
	"github.com/sandertv/gophertunnel/minecraft/protocol/packet"
)

func newManager(t *testing.T, srv *fakeServer) *plugin.Manager {
	t.Helper()
	m := plugin.NewManager(srv, plugin.Config{Enabled: true, Directory: t.TempDir()})
	m.Register(Name, New)
	return m
}

func ticks(m *plugin.Manager, n int) {
	for range n {
		m.Scheduler().Tick()
	}
}

func TestPluginLifecycle(t *testing.T) {
	srv, players := newFakeServer("Steve")
	steve := players[0]
	m := newManager(t, srv)

	info, err := m.EnableStatic(Name)
	if err != nil {
		t.Fatalf("EnableStatic() error = %v", err)
	}
	if info.Name != Name || info.Version != Version {
		t.Fatalf("EnableStatic() info = %+v", info)
	}
	if _, err := os.Stat(filepath.Join(m.DataRoot(), "pausescreenping", configFile)); err != nil {
		t.Fatalf("default config not saved: %v", err)
	}

	// Players online before the plugin was enabled get the objective too.
	ticks(m, 1)
	if pks := steve.take(); len(pks) != 2 {
		t.Fatalf("online player received %d packets after enable, want 2", len(pks))
	}

	alex := &fakePlayer{id: uuid.New(), name: "Alex", latency: 80 * time.Millisecond, entities: map[uuid.UUID]int64{}}
	alex.see(alex, 1)
	alex.see(steve, 2)
	steve.see(alex, 3)
	srv.join(alex)
	m.PlayerJoined(alex)

	ticks(m, 1)
	pks := alex.take()
	if len(pks) != 2 {
		t.Fatalf("joining player received %d packets, want objective and scores", len(pks))
	}
	if n := len(scoresOf(t, pks[1]).Entries); n != 2 {
		t.Fatalf("joining player sees %d entries, want 2", n)
	}

	ticks(m, joinRefreshDelay)
	pks = steve.take()
	if len(pks) != 1 {
		t.Fatalf("existing player received %d packets after the join refresh, want 1", len(pks))
	}
	if n := len(scoresOf(t, pks[0]).Entries); n != 2 {
		t.Fatalf("existing player sees %d entries after the join refresh, want 2", n)
	}

	srv.leave(alex)
	alex.disconnect()
	m.PlayerQuit(alex)
	ticks(m, 1)
	pks = steve.take()
	if len(pks) != 1 || scoresOf(t, pks[0]).ActionType != packet.ScoreboardActionRemove {
		t.Fatalf("remaining player did not receive the removal of the departed player: %v", pks)
	}

	if _, err := m.Disable(Name); err != nil {
		t.Fatalf("Disable() error = %v", err)
	}
	pks = steve.take()
	if len(pks) != 1 {
		t.Fatalf("Disable() wrote %d packets, want 1", len(pks))
	}
	if _, ok := pks[0].(*packet.RemoveObjective); !ok {
		t.Fatalf("Disable() wrote %T, want *packet.RemoveObjective", pks[0])
	}
	if n := m.Scheduler().Pending(); n != 0 {
		t.Fatalf("%d tasks left after disable", n)
	}
}

func TestPluginUpdateInterval(t *testing.T) {
	srv, players := newFakeServer("Steve")
	m := newManager(t, srv)
	if _, err := m.EnableStatic(Name); err != nil {
		t.Fatalf("EnableStatic() error = %v", err)
	}
	ticks(m, 1)
	players[0].take()

	ticks(m, DefaultUpdateInterval-1)
	if pks := players[0].take(); len(pks) != 1 {
		t.Fatalf("received %d packets within one update interval, want 1", len(pks))
	}
}

func TestPluginRejectsOutdatedConfig(t *testing.T) {
	srv, _ := newFakeServer()
	m := newManager(t, srv)

	dir := filepath.Join(m.DataRoot(), "pausescreenping")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("create data directory: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, configFile), []byte("config-version: \"1.0.0\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := m.EnableStatic(Name); !errors.Is(err, ErrConfigVersion) {
		t.Fatalf("EnableStatic() error = %v, want ErrConfigVersion", err)
	}
	if infos := m.Infos(); len(infos) != 0 {
		t.Fatalf("plugin with an outdated config was enabled: %v", infos)
	}
}

func TestPingCommandOnlyAllowedWhileLoaded(t *testing.T) {
	srv, _ := newFakeServer("Steve")
	m := newManager(t, srv)
	if _, err := m.EnableStatic(Name); err != nil {
		t.Fatalf("EnableStatic() error = %v", err)
	}
	loaded, _ := m.Plugin(Name)
	first := loaded.(*Plugin)
	command := pingCommand{owner: first, api: first.api}
	if !command.Allow(nil) {
		t.Fatalf("ping command not allowed while the plugin is loaded")
	}

	if _, err := m.Reload(Name); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	if command.Allow(nil) {
		t.Fatalf("ping command of a closed instance still allowed")
	}
	loaded, _ = m.Plugin(Name)
	second := loaded.(*Plugin)
	if !(pingCommand{owner: second, api: second.api}).Allow(nil) {
		t.Fatalf("ping command of the reloaded instance not allowed")
	}

	if _, err := m.Disable(Name); err != nil {
		t.Fatalf("Disable() error = %v", err)
	}
	if (pingCommand{owner: second, api: second.api}).Allow(nil) {
		t.Fatalf("ping command allowed after disable")
	}
}
