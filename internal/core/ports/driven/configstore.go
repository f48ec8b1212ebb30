package driven

// ConfigStore provides access to the configuration file.
// Keys are dot separated paths into the file (e.g. "store.backend").
type ConfigStore interface {
	// Get returns the raw value and whether the key exists.
	Get(key string) (any, bool)

	// GetString returns "" if the key is missing or not a string.
	GetString(key string) string

	// GetInt returns 0 if the key is missing or not an integer.
	GetInt(key string) int

	// GetBool returns false if the key is missing or not a boolean.
	GetBool(key string) bool

	// GetStringSlice returns nil if the key is missing. A plain string is a
	// one-element list.
	GetStringSlice(key string) []string

	// Set stores a value and persists the file.
	Set(key string, value any) error

	// Load reads the file from disk.
	Load() error

	// Path returns the configuration file path.
	Path() string
}
