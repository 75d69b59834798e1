package filevault

import (
	"context"
	"sort"
	"sync"

	"github.com/infodancer/filevault/errors"
)

// KeyStore persists identity key pairs. Private keys are only ever handed to
// it sealed (see SealPrivateKey).
type KeyStore interface {
	// PutKeys stores the key pair for a new identity.
	// Returns errors.ErrIdentityExists if owner already has keys.
	PutKeys(ctx context.Context, owner string, publicKey, sealedPrivateKey []byte) error

	// GetPublicKey returns the owner's PEM public key.
	// Returns errors.ErrIdentityNotFound if owner has no keys.
	GetPublicKey(ctx context.Context, owner string) ([]byte, error)

	// GetSealedPrivateKey returns the owner's sealed private key.
	// Returns errors.ErrIdentityNotFound if owner has no keys.
	GetSealedPrivateKey(ctx context.Context, owner string) ([]byte, error)

	// DeleteKeys destroys the owner's key pair.
	// Returns errors.ErrIdentityNotFound if owner has no keys.
	DeleteKeys(ctx context.Context, owner string) error

	// Close releases any resources held by the store.
	Close() error
}

// KeyStoreFactory creates a KeyStore from configuration.
type KeyStoreFactory func(config KeyStoreConfig) (KeyStore, error)

// KeyStoreConfig contains settings for opening a key store.
type KeyStoreConfig struct {
	// Type is the key store type name (e.g., "keydir", "sqlite").
	Type string

	// Path is the key directory or database file.
	Path string

	// Options contains implementation-specific settings.
	Options map[string]string
}

var (
	keyRegistryMu sync.RWMutex
	keyRegistry   = make(map[string]KeyStoreFactory)
)

// RegisterKeyStore adds a key store factory to the registry.
// It panics if called with an empty name or nil factory,
// or if the name is already registered.
func RegisterKeyStore(name string, factory KeyStoreFactory) {
	if name == "" {
		panic("filevault: RegisterKeyStore called with empty name")
	}
	if factory == nil {
		panic("filevault: RegisterKeyStore called with nil factory")
	}

	keyRegistryMu.Lock()
	defer keyRegistryMu.Unlock()

	if _, exists := keyRegistry[name]; exists {
		panic("filevault: RegisterKeyStore called twice for " + name)
	}
	keyRegistry[name] = factory
}

// OpenKeyStore creates a KeyStore using the registered factory for the config type.
func OpenKeyStore(config KeyStoreConfig) (KeyStore, error) {
	keyRegistryMu.RLock()
	factory, ok := keyRegistry[config.Type]
	keyRegistryMu.RUnlock()

	if !ok {
		return nil, errors.ErrKeyStoreNotRegistered
	}
	return factory(config)
}

// RegisteredKeyStores returns a sorted list of registered key store type names.
func RegisteredKeyStores() []string {
	keyRegistryMu.RLock()
	defer keyRegistryMu.RUnlock()

	types := make([]string, 0, len(keyRegistry))
	for name := range keyRegistry {
		types = append(types, name)
	}
	sort.Strings(types)
	return types
}
