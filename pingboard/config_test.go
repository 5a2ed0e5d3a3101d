package pingboard

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

const validHeader = "config-version: \"1.2.0\"\n"

func parse(t *testing.T, yml string) Config {
	t.Helper()
	conf, err := ParseConfig(strings.NewReader(yml), discardLogger())
	if err != nil {
		t.Fatalf("ParseConfig() error = %v", err)
	}
	return conf
}

func TestBundledConfig(t *testing.T) {
	data, err := resources.ReadFile(configFile)
	if err != nil {
		t.Fatalf("read bundled config: %v", err)
	}
	conf := parse(t, string(data))
	want := DefaultConfig()
	if conf.UpdateInterval != want.UpdateInterval || conf.StaticDisplayName != want.StaticDisplayName ||
		conf.DynamicDisplayName || conf.OnlySeeOwnPing || conf.Shuffle != ShuffleOff {
		t.Fatalf("bundled config = %+v, want defaults %+v", conf, want)
	}
}

func TestConfigVersionMismatch(t *testing.T) {
	for _, yml := range []string{
		"update-interval: 20\n",
		"config-version: \"1.1.0\"\n",
		"config-version: 1.2\n",
	} {
		if _, err := ParseConfig(strings.NewReader(yml), discardLogger()); !errors.Is(err, ErrConfigVersion) {
			t.Fatalf("ParseConfig(%q) error = %v, want ErrConfigVersion", yml, err)
		}
	}
}

func TestConfigInvalidIntervals(t *testing.T) {
	for _, value := range []string{"0", "-5", "2.5", "\"20\"", "fast"} {
		conf := parse(t, validHeader+"update-interval: "+value+"\n")
		if conf.UpdateInterval != DefaultUpdateInterval {
			t.Fatalf("update-interval %s parsed as %d, want default %d", value, conf.UpdateInterval, DefaultUpdateInterval)
		}
	}
	if conf := parse(t, validHeader+"update-interval: 5\n"); conf.UpdateInterval != 5 {
		t.Fatalf("update-interval 5 parsed as %d", conf.UpdateInterval)
	}
}

func TestConfigDynamicNames(t *testing.T) {
	conf := parse(t, validHeader+`
dynamic-display-name: true
dynamic-display-names:
  - "&aone"
  - "&btwo"
dynamic-name-interval: 40
dynamic-display-names-shuffle: "on"
`)
	if !conf.DynamicDisplayName || conf.DynamicNameInterval != 40 || conf.Shuffle != ShuffleOn {
		t.Fatalf("dynamic config = %+v", conf)
	}
	if !slices.Equal(conf.DynamicDisplayNames, []string{"&aone", "&btwo"}) {
		t.Fatalf("DynamicDisplayNames = %v", conf.DynamicDisplayNames)
	}
}

func TestConfigEmptyDynamicNamesDisables(t *testing.T) {
	for _, list := range []string{"[]", "\"not a list\"", "\n  - \"\"\n  - \"  \""} {
		conf := parse(t, validHeader+"dynamic-display-name: true\ndynamic-display-names: "+list+"\n")
		if conf.DynamicDisplayName {
			t.Fatalf("dynamic-display-names %s left dynamic names enabled", list)
		}
	}
}

func TestConfigInvalidValuesWarnAndCycleSequentially(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))
	conf, err := ParseConfig(strings.NewReader(validHeader+`
update-interval: "fast"
dynamic-display-name: true
dynamic-display-names: ["a", "b"]
dynamic-name-interval: 0
dynamic-display-names-shuffle: "sometimes"
`), log)
	if err != nil {
		t.Fatalf("ParseConfig() error = %v", err)
	}
	if conf.Shuffle != ShuffleOff {
		t.Fatalf("Shuffle = %q, want off", conf.Shuffle)
	}
	if conf.UpdateInterval != DefaultUpdateInterval {
		t.Fatalf("UpdateInterval = %d, want default %d", conf.UpdateInterval, DefaultUpdateInterval)
	}
	if conf.DynamicNameInterval != DefaultDynamicNameInterval {
		t.Fatalf("DynamicNameInterval = %d, want default %d", conf.DynamicNameInterval, DefaultDynamicNameInterval)
	}

	out := buf.String()
	if n := strings.Count(out, "level=WARN"); n != 3 {
		t.Fatalf("logged %d warnings, want 3:\n%s", n, out)
	}
	for _, key := range []string{"update-interval", "dynamic-name-interval", "dynamic-display-names-shuffle"} {
		if !strings.Contains(out, "Invalid "+key) {
			t.Fatalf("no warning for %s:\n%s", key, out)
		}
	}

	srv, _ := newFakeServer()
	board := NewBoard(conf, srv, discardLogger())
	var cursors []int
	for range 3 {
		board.Cycle()
		cursors = append(cursors, board.Cursor())
	}
	if !slices.Equal(cursors, []int{1, 0, 1}) {
		t.Fatalf("cursor after each cycle = %v, want [1 0 1]", cursors)
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), configFile)
	if err := os.WriteFile(path, []byte(validHeader+"only-see-own-ping: true\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	conf, err := LoadConfig(path, discardLogger())
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if !conf.OnlySeeOwnPing || conf.UpdateInterval != DefaultUpdateInterval {
		t.Fatalf("LoadConfig() = %+v", conf)
	}
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yml"), discardLogger()); err == nil {
		t.Fatalf("LoadConfig() of a missing file succeeded")
	}
}
