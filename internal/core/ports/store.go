package ports

// Store is the persistent key/value cache under the output root: byte-string
// keys (the global header key plus one key per target output path) mapped to
// deterministic encodings of records.
//
//go:generate go run go.uber.org/mock/mockgen -source=store.go -destination=mocks/mock_store.go -package=mocks
type Store interface {
	// Get returns the value for key, or nil, nil when the key is absent.
	Get(key string) ([]byte, error)

	// Put stores value under key, replacing any existing value.
	Put(key string, value []byte) error

	// Iterate calls fn for every entry in key order, stopping on error.
	Iterate(fn func(key string, value []byte) error) error

	// Clear removes every entry. Used when the global header mismatches.
	Clear() error

	Close() error
}

// StoreOpener opens (creating if needed) the store backing file at path.
type StoreOpener func(path string) (Store, error)
