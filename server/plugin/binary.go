package plugin

import (
	"errors"
	"fmt"
	"path/filepath"
	goplugin "plugin"
	"strings"
)

// factorySymbols are the exported names looked up in a plugin binary, in
// order of preference.
var factorySymbols = []string{"Init", "InitPlugin", "New", "NewPlugin"}

var errNoFactory = errors.New("no factory symbol exported")

// openBinary opens the Go plugin binary at path and returns its factory along
// with the name of the symbol it was found under.
func openBinary(path string) (Factory, string, error) {
	mod, err := goplugin.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("open plugin: %w", err)
	}
	for _, name := range factorySymbols {
		sym, err := mod.Lookup(name)
		if err != nil {
			continue
		}
		factory, err := asFactory(sym)
		if err != nil {
			return nil, name, fmt.Errorf("locate plugin factory: symbol %s: %w", name, err)
		}
		return factory, name, nil
	}
	return nil, "", fmt.Errorf("locate plugin factory: %w (tried %s)", errNoFactory, strings.Join(factorySymbols, ", "))
}

// asFactory converts a looked up symbol to a Factory. Functions are exported as
// values, variables as pointers.
func asFactory(sym goplugin.Symbol) (Factory, error) {
	switch fn := sym.(type) {
	case func(*API) (Plugin, error):
		return fn, nil
	case *func(*API) (Plugin, error):
		return *fn, nil
	case Factory:
		return fn, nil
	case *Factory:
		return *fn, nil
	}
	return nil, fmt.Errorf("incompatible type %T", sym)
}

// pluginBaseName returns the file name of path without its extension. It is
// the name a plugin binary is known by until its factory returns.
func pluginBaseName(path string) string {
	base := strings.TrimSpace(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
	if base == "" || base == "." {
		return "plugin"
	}
	return base
}
