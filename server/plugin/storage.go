package plugin

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (m *Manager) directory() string {
	if m.cfg.Directory == "" {
		return "plugins"
	}
	return m.cfg.Directory
}

// resolvePath makes path relative to the plugin directory unless it is
// absolute or already points inside it.
func (m *Manager) resolvePath(path string) string {
	if path == "" {
		return ""
	}
	path = filepath.Clean(path)
	if filepath.IsAbs(path) {
		return path
	}
	dir := filepath.Clean(m.directory())
	if rel, err := filepath.Rel(dir, path); err == nil && !escapes(rel) {
		return path
	}
	return filepath.Join(dir, path)
}

func (m *Manager) dataRoot() string {
	switch dir := m.cfg.DataDirectory; {
	case dir == "":
		return filepath.Join(m.directory(), "data")
	case filepath.IsAbs(dir):
		return filepath.Clean(dir)
	default:
		return filepath.Join(m.directory(), dir)
	}
}

func (m *Manager) pluginDataDirectory(name string) string {
	return filepath.Join(m.dataRoot(), sanitizePluginDirectory(name))
}

// migrateDataDirectory moves the data directory created under a plugin's file
// name to the directory of the name it reported. Data already present at to is
// kept and takes precedence.
func (m *Manager) migrateDataDirectory(from, to string) error {
	if to == "" {
		return errors.New("empty target data directory")
	}
	if from == to {
		return nil
	}
	if from == "" {
		return os.MkdirAll(to, 0o755)
	}
	info, err := os.Stat(from)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return os.MkdirAll(to, 0o755)
	case err != nil:
		return fmt.Errorf("stat source data directory: %w", err)
	case !info.IsDir():
		return fmt.Errorf("source data directory %s is not a directory", from)
	}
	if _, err := os.Stat(to); err == nil {
		// Only removes from if it is empty.
		_ = os.Remove(from)
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(to), 0o755); err != nil {
		return fmt.Errorf("create data root: %w", err)
	}
	if err := os.Rename(from, to); err != nil {
		return fmt.Errorf("move data directory: %w", err)
	}
	return nil
}

// sanitizePluginDirectory turns a plugin name into a lower case directory
// name made of letters, digits, dots, dashes and underscores.
func sanitizePluginDirectory(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}
	if s := strings.Trim(b.String(), "-_."); s != "" {
		return s
	}
	return "plugin"
}

func escapes(rel string) bool {
	return rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
