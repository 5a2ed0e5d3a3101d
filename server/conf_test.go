package server

import (
	"os"
	"path/filepath"
	"testing"
)

func TestReadConfigWritesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "pingserver.toml")

	c, err := ReadConfig(path)
	if err != nil {
		t.Fatalf("ReadConfig() error = %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default config not written: %v", err)
	}
	if !c.Plugins.Enabled || c.Plugins.Directory != "plugins" || !c.Query.Enabled {
		t.Fatalf("ReadConfig() = %+v, want defaults", c)
	}

	again, err := ReadConfig(path)
	if err != nil {
		t.Fatalf("ReadConfig() of the written default error = %v", err)
	}
	if again.Dragonfly.Server.Name != c.Dragonfly.Server.Name || again.Plugins.Directory != c.Plugins.Directory {
		t.Fatalf("written default did not round trip: %+v", again)
	}
}

func TestReadConfigOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pingserver.toml")
	data := []byte(`
[Plugins]
Enabled = true
Directory = "extensions"
Static = ["PauseScreenPing"]

[Query]
Enabled = false
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	c, err := ReadConfig(path)
	if err != nil {
		t.Fatalf("ReadConfig() error = %v", err)
	}
	pc := c.PluginConfig()
	if pc.Directory != "extensions" || len(pc.Static) != 1 || pc.Static[0] != "PauseScreenPing" {
		t.Fatalf("PluginConfig() = %+v", pc)
	}
	if c.Query.Enabled {
		t.Fatalf("Query.Enabled = true, want false")
	}
	if c.Dragonfly.Server.Name != DefaultConfig().Dragonfly.Server.Name {
		t.Fatalf("missing Dragonfly section did not keep defaults")
	}
}

func TestReadConfigInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pingserver.toml")
	if err := os.WriteFile(path, []byte("[Plugins\nEnabled = "), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := ReadConfig(path); err == nil {
		t.Fatalf("ReadConfig() of malformed TOML succeeded")
	}
}
