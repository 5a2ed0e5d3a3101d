package pingboard

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/viper"
)

const (
	// ConfigVersion is the config-version value a configuration file must
	// carry to be accepted.
	ConfigVersion = "1.2.0"

	DefaultUpdateInterval      = 20
	DefaultDynamicNameInterval = 60
	DefaultStaticDisplayName   = "&dPauseScreenPing"
)

// ErrConfigVersion is returned when the config-version of a configuration
// file does not match ConfigVersion.
var ErrConfigVersion = errors.New("config version mismatch")

// ShuffleMode controls the order in which dynamic display names are shown.
type ShuffleMode string

const (
	// ShuffleOff shows dynamic display names in the order they are listed.
	ShuffleOff ShuffleMode = "off"
	// ShuffleOn picks a random dynamic display name every interval.
	ShuffleOn ShuffleMode = "on"
)

// Config holds the validated plugin configuration.
type Config struct {
	// UpdateInterval is the number of ticks between two score updates.
	UpdateInterval int
	// StaticDisplayName is the objective title used when dynamic display
	// names are disabled.
	StaticDisplayName string
	// DynamicDisplayName enables cycling through DynamicDisplayNames. It is
	// never true while DynamicDisplayNames is empty.
	DynamicDisplayName bool
	// DynamicDisplayNames are the title templates cycled through.
	DynamicDisplayNames []string
	// DynamicNameInterval is the number of ticks between two title changes.
	DynamicNameInterval int
	// Shuffle is the order in which titles are cycled.
	Shuffle ShuffleMode
	// OnlySeeOwnPing restricts every scoreboard to its owner's own entry.
	OnlySeeOwnPing bool
}

// DefaultConfig returns the configuration described by the bundled
// config.yml.
func DefaultConfig() Config {
	return Config{
		UpdateInterval:      DefaultUpdateInterval,
		StaticDisplayName:   DefaultStaticDisplayName,
		DynamicNameInterval: DefaultDynamicNameInterval,
		Shuffle:             ShuffleOff,
	}
}

// LoadConfig reads and validates the YAML configuration file at path.
func LoadConfig(path string, log *slog.Logger) (Config, error) {
	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return decodeConfig(v, log)
}

// ParseConfig reads and validates a YAML configuration from r.
func ParseConfig(r io.Reader, log *slog.Logger) (Config, error) {
	v := newViper()
	if err := v.ReadConfig(r); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return decodeConfig(v, log)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")

	v.SetDefault("update-interval", DefaultUpdateInterval)
	v.SetDefault("static-display-name", DefaultStaticDisplayName)
	v.SetDefault("dynamic-display-name", false)
	v.SetDefault("dynamic-name-interval", DefaultDynamicNameInterval)
	v.SetDefault("dynamic-display-names-shuffle", string(ShuffleOff))
	v.SetDefault("only-see-own-ping", false)
	return v
}

func decodeConfig(v *viper.Viper, log *slog.Logger) (Config, error) {
	if log == nil {
		log = slog.Default()
	}
	if version, ok := v.Get("config-version").(string); !ok || version != ConfigVersion {
		return Config{}, fmt.Errorf("%w: got %v, want %s", ErrConfigVersion, v.Get("config-version"), ConfigVersion)
	}

	conf := DefaultConfig()
	conf.StaticDisplayName = v.GetString("static-display-name")
	conf.OnlySeeOwnPing = v.GetBool("only-see-own-ping")
	conf.UpdateInterval = interval(v, "update-interval", DefaultUpdateInterval, log)

	if !v.GetBool("dynamic-display-name") {
		return conf, nil
	}
	names, ok := stringList(v.Get("dynamic-display-names"))
	if !ok || len(names) == 0 {
		log.Warn("No valid dynamic-display-names found in config.yml, disabling dynamic display names.")
		return conf, nil
	}
	conf.DynamicDisplayName = true
	conf.DynamicDisplayNames = names
	conf.DynamicNameInterval = interval(v, "dynamic-name-interval", DefaultDynamicNameInterval, log)

	switch mode := ShuffleMode(v.GetString("dynamic-display-names-shuffle")); mode {
	case ShuffleOn, ShuffleOff:
		conf.Shuffle = mode
	default:
		log.Warn("Invalid dynamic-display-names-shuffle in config.yml, use 'on' or 'off'. Defaulting to sequential mode.", "value", string(mode))
		conf.Shuffle = ShuffleOff
	}
	return conf, nil
}

// interval returns the positive integer stored under key, or def if the value
// is not an integer or not positive.
func interval(v *viper.Viper, key string, def int, log *slog.Logger) int {
	n, ok := integer(v.Get(key))
	if !ok || n <= 0 {
		log.Warn(fmt.Sprintf("Invalid %s in config.yml, using default.", key), "value", v.Get(key), "default", def)
		return def
	}
	return n
}

// integer converts integral YAML values to int. Floats and strings are
// rejected even if they hold a whole number.
func integer(raw any) (int, bool) {
	switch n := raw.(type) {
	case int:
		return n, true
	case int8:
		return int(n), true
	case int16:
		return int(n), true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case uint:
		return int(n), true
	case uint8:
		return int(n), true
	case uint16:
		return int(n), true
	case uint32:
		return int(n), true
	case uint64:
		return int(n), true
	}
	return 0, false
}

func stringList(raw any) ([]string, bool) {
	switch list := raw.(type) {
	case []string:
		return list, true
	case []any:
		names := make([]string, 0, len(list))
		for _, entry := range list {
			if entry == nil {
				continue
			}
			name := fmt.Sprint(entry)
			if strings.TrimSpace(name) == "" {
				continue
			}
			names = append(names, name)
		}
		return names, true
	}
	return nil, false
}
