package plugin

// Config configures a Manager.
type Config struct {
	// Enabled turns the plugin subsystem on. A disabled Manager rejects every
	// enable request.
	Enabled bool
	// Directory holds plugin binaries. Defaults to "plugins".
	Directory string
	// DataDirectory is the parent of every plugin data directory. It defaults
	// to "data" and relative values are joined with Directory.
	DataDirectory string
	// Autoload enables every .so file found in Directory on LoadConfigured.
	Autoload bool
	// Files are plugin binaries enabled on LoadConfigured in addition to those
	// found by Autoload.
	Files []string
	// Static selects the plugins registered with Manager.Register that are
	// enabled on LoadConfigured. All of them are enabled if Static is empty.
	Static []string
}
