package plugin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"slices"
	"strings"
	"sync"

	"github.com/df-mc/dragonfly/server/player"
)

// loaded is a plugin that is currently enabled.
type loaded struct {
	info   Info
	static string
	plugin Plugin
	api    *API
	cancel context.CancelFunc
}

type registeredFactory struct {
	name    string
	factory Factory
}

// Manager enables, disables and reloads plugins, both those registered in
// process with Register and Go plugin binaries. It owns the Scheduler that
// runs every plugin callback and the hub that delivers player events.
type Manager struct {
	host       Host
	cfg        Config
	log        *slog.Logger
	runtimeLog *slog.Logger

	once      sync.Once
	mu        sync.RWMutex
	plugins   []loaded
	factories []registeredFactory
	events    *eventHub
	scheduler *Scheduler
}

// NewManager returns a Manager for host. cfg is copied.
func NewManager(host Host, cfg Config) *Manager {
	cfg.Files = slices.Clone(cfg.Files)
	cfg.Static = slices.Clone(cfg.Static)

	log := host.Logger()
	if log == nil {
		log = slog.Default()
	}
	m := &Manager{
		host:       host,
		cfg:        cfg,
		log:        log,
		runtimeLog: log.With("subsystem", "plugin.runtime"),
		scheduler:  NewScheduler(log),
	}
	m.scheduler.onPanic = m.handlePluginPanic
	m.events = newEventHub(m.scheduler, log)
	return m
}

// Enabled reports whether the plugin subsystem should run.
func (m *Manager) Enabled() bool {
	return m.cfg.Enabled
}

// Scheduler returns the scheduler shared by all plugins.
func (m *Manager) Scheduler() *Scheduler {
	return m.scheduler
}

// Run drives the scheduler until ctx is cancelled. Plugin tasks and event
// handlers only execute while Run is active.
func (m *Manager) Run(ctx context.Context) {
	m.scheduler.Run(ctx)
}

// Directory returns the directory searched for plugin binaries.
func (m *Manager) Directory() string {
	return m.directory()
}

// DataRoot returns the directory holding the data directories of all plugins.
func (m *Manager) DataRoot() string {
	return m.dataRoot()
}

// ResolvePath resolves a plugin binary path the way Enable does.
func (m *Manager) ResolvePath(path string) string {
	return m.resolvePath(path)
}

// Register makes factory available under name, replacing an earlier factory
// with the same case-insensitive name. Registered plugins are enabled by
// LoadConfigured or EnableStatic.
func (m *Manager) Register(name string, factory Factory) {
	if factory == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if i := slices.IndexFunc(m.factories, func(f registeredFactory) bool { return strings.EqualFold(f.name, name) }); i >= 0 {
		m.factories[i].factory = factory
		return
	}
	m.factories = append(m.factories, registeredFactory{name: name, factory: factory})
}

// LoadConfigured enables the registered plugins selected by Config.Static and
// then every configured plugin binary. Subsequent calls do nothing.
func (m *Manager) LoadConfigured() {
	m.once.Do(m.loadConfigured)
}

// Infos returns metadata for all loaded plugins in load order.
func (m *Manager) Infos() []Info {
	m.mu.RLock()
	defer m.mu.RUnlock()
	infos := make([]Info, len(m.plugins))
	for i, p := range m.plugins {
		infos[i] = p.info
	}
	return infos
}

// Plugin returns a loaded plugin by its case-insensitive name.
func (m *Manager) Plugin(name string) (Plugin, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if i := m.index(name); i >= 0 {
		return m.plugins[i].plugin, true
	}
	return nil, false
}

// EnableStatic enables a plugin previously passed to Register.
func (m *Manager) EnableStatic(name string) (Info, error) {
	if !m.Enabled() {
		return Info{}, ErrDisabled
	}
	m.mu.RLock()
	i := slices.IndexFunc(m.factories, func(f registeredFactory) bool { return strings.EqualFold(f.name, name) })
	if i < 0 {
		m.mu.RUnlock()
		return Info{}, fmt.Errorf("%w: %s", ErrUnknownFactory, name)
	}
	f := m.factories[i]
	for _, p := range m.plugins {
		if p.static == f.name {
			m.mu.RUnlock()
			return p.info, ErrAlreadyLoaded
		}
	}
	m.mu.RUnlock()
	return m.enable(f.name, "", f.name, "Register", f.factory)
}

// Enable loads and enables the plugin binary at path. Relative paths are
// resolved against the plugin directory.
func (m *Manager) Enable(path string) (Info, error) {
	if !m.Enabled() {
		return Info{}, ErrDisabled
	}
	if err := os.MkdirAll(m.directory(), 0o755); err != nil {
		return Info{}, fmt.Errorf("prepare plugin directory: %w", err)
	}
	path = m.resolvePath(path)

	m.mu.RLock()
	for _, p := range m.plugins {
		if p.info.Path != "" && p.info.Path == path {
			m.mu.RUnlock()
			return p.info, ErrAlreadyLoaded
		}
	}
	m.mu.RUnlock()

	factory, symbol, err := openBinary(path)
	if err != nil {
		return Info{}, err
	}
	return m.enable(pluginBaseName(path), path, "", symbol, factory)
}

// enable runs factory with an API registered under initialName. Once the
// factory returns, the API takes on the name reported by the plugin.
func (m *Manager) enable(initialName, path, static, symbol string, factory Factory) (info Info, err error) {
	dataDir := m.pluginDataDirectory(initialName)
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return Info{}, fmt.Errorf("create plugin data directory: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	api := newAPI(m, m.host, initialName)
	api.setContext(ctx)
	api.setDataDirectory(dataDir)

	// shared is set when the registrations made by the factory cannot be told
	// apart from those of an already loaded plugin.
	shared := false
	defer func() {
		if err == nil {
			return
		}
		cancel()
		if !shared {
			m.events.clear(api.pluginName())
			m.scheduler.CancelOwner(api.pluginName())
		}
	}()

	inst, err := factory(api)
	if err == nil && inst == nil {
		err = errors.New("factory returned nil")
	}
	if err != nil {
		return Info{}, fmt.Errorf("initialise plugin via %s: %w", symbol, err)
	}

	name := inst.Name()
	if name == "" {
		name = initialName
	}
	if m.isLoaded(name) {
		shared = m.isLoaded(initialName)
		return Info{}, m.reject(inst, name, path)
	}
	if name != initialName {
		api.setName(name)
		m.events.rename(initialName, name)
		m.scheduler.rename(initialName, name)
	}
	if target := m.pluginDataDirectory(name); target != dataDir {
		if err := m.migrateDataDirectory(dataDir, target); err != nil {
			m.runtimeLog.Error("Migrate plugin data directory.", "plugin", name, "error", err)
		} else {
			api.setDataDirectory(target)
		}
	}

	entry := loaded{
		info:   Info{Name: name, Path: path},
		static: static,
		plugin: inst,
		api:    api,
		cancel: cancel,
	}
	if v, ok := inst.(VersionedPlugin); ok {
		entry.info.Version = v.Version()
	}

	m.mu.Lock()
	if m.index(name) >= 0 {
		m.mu.Unlock()
		shared = true
		return Info{}, m.reject(inst, name, path)
	}
	m.plugins = append(m.plugins, entry)
	m.mu.Unlock()

	m.log.Info("Plugin enabled.", append(attrs(entry.info), "symbol", symbol)...)
	return entry.info, nil
}

// reject closes an instance whose name is already taken by a loaded plugin.
func (m *Manager) reject(inst Plugin, name, path string) error {
	if err := inst.Close(); err != nil {
		m.log.Error("Close conflicting plugin instance.", "name", name, "path", path, "error", err)
	}
	return fmt.Errorf("%w: %s", ErrNameConflict, name)
}

// Disable closes the plugin with the case-insensitive name and removes it. If
// Close fails, the plugin stays loaded.
func (m *Manager) Disable(name string) (Info, error) {
	if !m.Enabled() {
		return Info{}, ErrDisabled
	}
	entry, ok := m.remove(name)
	if !ok {
		return Info{}, ErrNotFound
	}
	if err := entry.plugin.Close(); err != nil {
		m.mu.Lock()
		m.plugins = append(m.plugins, entry)
		m.mu.Unlock()
		return Info{}, fmt.Errorf("close plugin: %w", err)
	}
	m.release(entry)
	m.log.Info("Plugin disabled.", "name", entry.info.Name)
	return entry.info, nil
}

// Reload disables the plugin with the case-insensitive name and enables it
// again from the same factory or binary.
func (m *Manager) Reload(name string) (Info, error) {
	m.mu.RLock()
	static := ""
	if i := m.index(name); i >= 0 {
		static = m.plugins[i].static
	}
	m.mu.RUnlock()

	old, err := m.Disable(name)
	if err != nil {
		return Info{}, err
	}
	var info Info
	if static != "" {
		info, err = m.EnableStatic(static)
	} else {
		info, err = m.Enable(old.Path)
	}
	if err != nil {
		return Info{}, err
	}
	m.log.Info("Plugin reloaded.", attrs(info)...)
	return info, nil
}

// DisableAll disables every loaded plugin in reverse load order and returns
// their metadata in the order they were disabled. It stops at the first
// plugin that fails to close.
func (m *Manager) DisableAll() ([]Info, error) {
	if !m.Enabled() {
		return nil, ErrDisabled
	}
	infos := m.Infos()
	disabled := make([]Info, 0, len(infos))
	for _, info := range slices.Backward(infos) {
		if _, err := m.Disable(info.Name); err != nil {
			return disabled, err
		}
		disabled = append(disabled, info)
	}
	return disabled, nil
}

// Shutdown closes every plugin in reverse load order. Plugins are released
// even if Close fails.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	plugins := m.plugins
	m.plugins = nil
	m.mu.Unlock()

	for _, entry := range slices.Backward(plugins) {
		err := entry.plugin.Close()
		m.release(entry)
		if err != nil {
			m.log.Error("Close plugin.", "name", entry.info.Name, "error", err)
			continue
		}
		m.log.Info("Plugin disabled.", "name", entry.info.Name)
	}
}

// PlayerJoined notifies plugins that p has fully joined the server.
func (m *Manager) PlayerJoined(p Player) {
	m.events.dispatchJoin(p)
}

// PlayerQuit notifies plugins that p has left the server. Hosts that install
// the handler returned by WrapPlayerHandler do not need to call it.
func (m *Manager) PlayerQuit(p Player) {
	m.events.dispatchQuit(p)
}

// WrapPlayerHandler returns a handler forwarding to base that additionally
// notifies plugins when the player quits.
func (m *Manager) WrapPlayerHandler(p Player, base player.Handler) player.Handler {
	return m.events.wrapPlayer(p, base)
}

// index returns the position of the plugin with the case-insensitive name, or
// -1. m.mu must be held.
func (m *Manager) index(name string) int {
	return slices.IndexFunc(m.plugins, func(p loaded) bool { return strings.EqualFold(p.info.Name, name) })
}

func (m *Manager) isLoaded(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.index(name) >= 0
}

func (m *Manager) remove(name string) (loaded, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.index(name)
	if i < 0 {
		return loaded{}, false
	}
	entry := m.plugins[i]
	m.plugins = slices.Delete(m.plugins, i, i+1)
	return entry, true
}

// release drops everything the plugin registered with the manager.
func (m *Manager) release(entry loaded) {
	if entry.cancel != nil {
		entry.cancel()
	}
	m.events.clear(entry.info.Name)
	m.scheduler.CancelOwner(entry.info.Name)
}

func (m *Manager) loadConfigured() {
	if !m.cfg.Enabled {
		m.log.Debug("Plugin system disabled.")
		return
	}
	for _, name := range m.selectedFactories() {
		if _, err := m.EnableStatic(name); err != nil {
			m.log.Error("Enable plugin.", "name", name, "error", err)
		}
	}
	paths := m.discover()
	if len(paths) == 0 {
		m.log.Debug("No plugin binaries discovered.", "dir", m.directory())
		return
	}
	for _, path := range paths {
		if _, err := m.Enable(path); err != nil {
			m.log.Error("Enable plugin.", "path", path, "error", err)
		}
	}
}

// selectedFactories returns the names of the registered factories enabled by
// LoadConfigured.
func (m *Manager) selectedFactories() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var names []string
	for _, f := range m.factories {
		if len(m.cfg.Static) == 0 || slices.ContainsFunc(m.cfg.Static, func(s string) bool { return strings.EqualFold(s, f.name) }) {
			names = append(names, f.name)
		}
	}
	return names
}

// discover returns the sorted, deduplicated paths of every configured plugin
// binary.
func (m *Manager) discover() []string {
	var paths []string
	if m.cfg.Autoload {
		dir := m.directory()
		entries, err := os.ReadDir(dir)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			m.log.Error("Read plugin directory.", "dir", dir, "error", err)
		}
		for _, e := range entries {
			if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".so") {
				paths = append(paths, filepath.Join(dir, e.Name()))
			}
		}
	}
	for _, file := range m.cfg.Files {
		paths = append(paths, m.resolvePath(file))
	}
	slices.Sort(paths)
	return slices.Compact(paths)
}

// handlePluginPanic drops the registrations of the plugin that panicked and
// disables it.
func (m *Manager) handlePluginPanic(name string, reason any) {
	if name == "" {
		name = "plugin"
	}
	m.events.clear(name)
	m.scheduler.CancelOwner(name)
	m.runtimeLog.Error("Plugin panic.", "plugin", name, "panic", reason, "stack", string(debug.Stack()))
	go m.disableAsync(name, "Plugin disabled after panic.")
}

func (m *Manager) disableAsync(name, msg string) {
	info, err := m.Disable(name)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			m.runtimeLog.Error("Disable plugin.", "plugin", name, "error", err)
		}
		return
	}
	m.runtimeLog.Warn(msg, attrs(info)...)
}

func attrs(info Info) []any {
	a := []any{"name", info.Name}
	if info.Version != "" {
		a = append(a, "version", info.Version)
	}
	if info.Path != "" {
		a = append(a, "path", info.Path)
	}
	return a
}
