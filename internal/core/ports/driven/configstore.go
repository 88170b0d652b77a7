package driven

// ConfigStore holds flat dot-notation settings such as "chunker.chunk_size".
// Values are stored as given; the settings service parses them.
type ConfigStore interface {
	// Get returns the value for key and whether it was set.
	Get(key string) (any, bool)

	// Keys returns all set keys in sorted order.
	Keys() []string

	// Set stores a value and persists it.
	Set(key string, value any) error

	// Delete removes a value and persists the change.
	// Deleting a missing key is not an error.
	Delete(key string) error

	// Save persists the current values.
	Save() error

	// Load replaces the current values with the persisted ones.
	Load() error

	// Path returns where the values are persisted.
	Path() string
}
