package storage

import "context"

// Keys under which the ledger keeps its collections. "entries" matches what
// earlier browser-based versions wrote to local storage.
const (
	TransactionsKey = "entries"
	TemplatesKey    = "templates"
)

// Store is a string key-value store holding JSON documents.
type Store interface {
	// Get returns the stored value. ok is false when the key is absent.
	Get(ctx context.Context, key string) (value string, ok bool, err error)

	// Set replaces the value stored under key.
	Set(ctx context.Context, key, value string) error
}
