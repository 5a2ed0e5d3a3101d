package plugin

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/df-mc/dragonfly/server/cmd"
	"github.com/google/uuid"
)

// API exposes functionality of the server core to plugins. Every plugin
// receives its own API scoped to its name.
type API struct {
	manager *Manager
	host    Host
	name    atomic.Value // stores string
	ctx     atomic.Pointer[context.Context]
	dataDir atomic.Value // stores string
}

func newAPI(manager *Manager, host Host, name string) *API {
	api := &API{manager: manager, host: host}
	api.name.Store(name)
	api.setContext(context.Background())
	return api
}

func (api *API) setName(name string) {
	if name == "" {
		return
	}
	api.name.Store(name)
}

func (api *API) pluginName() string {
	if v := api.name.Load(); v != nil {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return "plugin"
}

func (api *API) setContext(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	api.ctx.Store(&ctx)
}

// Context returns a cancellable context that is invalidated when the plugin is disabled.
func (api *API) Context() context.Context {
	if ctx := api.ctx.Load(); ctx != nil {
		return *ctx
	}
	return context.Background()
}

func (api *API) setDataDirectory(dir string) {
	if dir == "" {
		api.dataDir.Store("")
		return
	}
	api.dataDir.Store(filepath.Clean(dir))
}

// DataDirectory returns the path to the plugin's data directory.
func (api *API) DataDirectory() string {
	if v := api.dataDir.Load(); v != nil {
		if dir, ok := v.(string); ok && dir != "" {
			return dir
		}
	}
	return api.manager.pluginDataDirectory(api.pluginName())
}

func (api *API) resolveDataPath(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("data path is empty")
	}
	if filepath.IsAbs(name) {
		return "", fmt.Errorf("data path must be relative")
	}
	base := api.DataDirectory()
	target := filepath.Join(base, filepath.Clean(name))
	rel, err := filepath.Rel(base, target)
	if err != nil {
		return "", err
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
		return "", fmt.Errorf("data path escapes plugin directory")
	}
	return target, nil
}

// DataPath resolves name inside the plugin data directory without touching
// the file system.
func (api *API) DataPath(name string) (string, error) {
	return api.resolveDataPath(name)
}

// EnsureDataSubdir ensures a subdirectory inside the plugin data directory exists and returns its path.
func (api *API) EnsureDataSubdir(name string) (string, error) {
	if name == "" {
		dir := api.DataDirectory()
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", err
		}
		return dir, nil
	}
	path, err := api.resolveDataPath(name)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return "", err
	}
	return path, nil
}

// OpenDataFile opens or creates a file within the plugin data directory using the provided flags and permissions.
func (api *API) OpenDataFile(name string, flag int, perm fs.FileMode) (*os.File, error) {
	path, err := api.resolveDataPath(name)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	if perm == 0 {
		perm = 0o644
	}
	return os.OpenFile(path, flag, perm)
}

// SaveResource copies the file name from resources into the plugin data
// directory and returns its path. An existing file is left untouched unless
// replace is true.
func (api *API) SaveResource(resources fs.FS, name string, replace bool) (string, error) {
	path, err := api.resolveDataPath(name)
	if err != nil {
		return "", err
	}
	if !replace {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("stat resource: %w", err)
		}
	}
	src, err := resources.Open(name)
	if err != nil {
		return "", fmt.Errorf("open resource: %w", err)
	}
	defer src.Close()

	dst, err := api.OpenDataFile(name, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return "", fmt.Errorf("create resource: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return "", fmt.Errorf("write resource: %w", err)
	}
	if err := dst.Close(); err != nil {
		return "", fmt.Errorf("write resource: %w", err)
	}
	return path, nil
}

// Go launches fn on a new goroutine tied to the plugin's lifecycle context. Panics cause the plugin to be disabled.
func (api *API) Go(fn func(context.Context)) {
	if fn == nil {
		return
	}
	ctx := api.Context()
	name := api.pluginName()
	go func() {
		defer func() {
			if r := recover(); r != nil {
				api.manager.handlePluginPanic(name, r)
			}
		}()
		fn(ctx)
	}()
}

// Logger returns a logger scoped to the plugin's name for structured logging.
func (api *API) Logger() *slog.Logger {
	logger := api.host.Logger()
	if logger == nil {
		logger = slog.Default()
	}
	return logger.With("plugin", api.pluginName())
}

// ServerName returns the name of the server shown in the server list.
func (api *API) ServerName() string {
	return api.host.Name()
}

// MaxPlayerCount returns the configured player cap.
func (api *API) MaxPlayerCount() int {
	return api.host.MaxPlayerCount()
}

// PlayerCount returns the number of players currently connected to the server.
func (api *API) PlayerCount() int {
	return api.host.PlayerCount()
}

// Players returns every player that has fully joined the server.
func (api *API) Players() []Player {
	return api.host.Players()
}

// Player looks up an online player by UUID.
func (api *API) Player(id uuid.UUID) (Player, bool) {
	return api.host.Player(id)
}

// RegisterCommand registers a command with the global command registry.
func (api *API) RegisterCommand(command cmd.Command) {
	cmd.Register(command)
}

// Plugins returns metadata for all currently loaded plugins.
func (api *API) Plugins() []Info {
	return api.manager.Infos()
}

// Plugin returns a loaded plugin by name if present.
func (api *API) Plugin(name string) (Plugin, bool) {
	return api.manager.Plugin(name)
}

// Disable requests the plugin to be disabled. The plugin's Close method is
// called asynchronously, so Disable may be called from any callback.
func (api *API) Disable() {
	go api.manager.disableAsync(api.pluginName(), "Plugin disabled itself.")
}

// Scheduler returns helpers for running callbacks on the server's plugin
// scheduler. Tasks are cancelled automatically when the plugin is disabled.
func (api *API) Scheduler() *TaskScheduler {
	return &TaskScheduler{api: api}
}

// TaskScheduler schedules callbacks owned by a single plugin.
type TaskScheduler struct {
	api *API
}

// Post runs fn at the start of the next tick.
func (ts *TaskScheduler) Post(fn func()) {
	ts.api.manager.scheduler.Post(ts.api.pluginName(), fn)
}

// Delayed runs fn once after delay ticks.
func (ts *TaskScheduler) Delayed(delay int, fn func()) *Task {
	return ts.api.manager.scheduler.Delayed(ts.api.pluginName(), delay, fn)
}

// Repeating runs fn every interval ticks.
func (ts *TaskScheduler) Repeating(interval int, fn func()) *Task {
	return ts.api.manager.scheduler.Repeating(ts.api.pluginName(), interval, fn)
}

// CurrentTick returns the number of ticks the scheduler has processed.
func (ts *TaskScheduler) CurrentTick() int64 {
	return ts.api.manager.scheduler.CurrentTick()
}

// Events returns helpers for subscribing to player join and quit events.
func (api *API) Events() *PluginEvents {
	return &PluginEvents{api: api}
}

// PluginEvents exposes registration helpers for subscribing to core event streams.
type PluginEvents struct {
	api *API
}

// OnJoin registers a handler called on the scheduler goroutine for every
// player that joins. The returned function removes the handler when called.
func (pe *PluginEvents) OnJoin(handler JoinHandler) func() {
	if pe == nil || handler == nil {
		return func() {}
	}
	return pe.api.manager.events.addJoin(pe.api.pluginName(), handler)
}

// OnQuit registers a handler called on the scheduler goroutine for every
// player that quits. The returned function removes the handler when called.
func (pe *PluginEvents) OnQuit(handler QuitHandler) func() {
	if pe == nil || handler == nil {
		return func() {}
	}
	return pe.api.manager.events.addQuit(pe.api.pluginName(), handler)
}

// Clear removes all handlers previously registered by the plugin.
func (pe *PluginEvents) Clear() {
	if pe == nil {
		return
	}
	pe.api.manager.events.clear(pe.api.pluginName())
}
