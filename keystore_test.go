package filevault

import (
	"testing"

	"github.com/infodancer/filevault/errors"
)

// swapKeyRegistry installs an empty key store registry for the duration of a test.
func swapKeyRegistry(t *testing.T) {
	t.Helper()
	keyRegistryMu.Lock()
	origRegistry := keyRegistry
	keyRegistry = make(map[string]KeyStoreFactory)
	keyRegistryMu.Unlock()
	t.Cleanup(func() {
		keyRegistryMu.Lock()
		keyRegistry = origRegistry
		keyRegistryMu.Unlock()
	})
}

func TestRegisterKeyStore(t *testing.T) {
	swapKeyRegistry(t)

	t.Run("register and open", func(t *testing.T) {
		var gotConfig KeyStoreConfig
		RegisterKeyStore("mock", func(config KeyStoreConfig) (KeyStore, error) {
			gotConfig = config
			return newMemKeyStore(), nil
		})

		store, err := OpenKeyStore(KeyStoreConfig{Type: "mock", Path: "/keys"})
		if err != nil {
			t.Fatalf("open key store: %v", err)
		}
		if gotConfig.Path != "/keys" {
			t.Errorf("factory got path %q, want %q", gotConfig.Path, "/keys")
		}
		if err := store.Close(); err != nil {
			t.Errorf("close: %v", err)
		}
	})

	t.Run("unregistered type", func(t *testing.T) {
		_, err := OpenKeyStore(KeyStoreConfig{Type: "nonexistent"})
		if err != errors.ErrKeyStoreNotRegistered {
			t.Errorf("err = %v, want ErrKeyStoreNotRegistered", err)
		}
	})
}

func TestRegisterKeyStore_Panics(t *testing.T) {
	swapKeyRegistry(t)

	factory := func(config KeyStoreConfig) (KeyStore, error) {
		return newMemKeyStore(), nil
	}

	t.Run("empty name", func(t *testing.T) {
		defer func() {
			if r := recover(); r == nil {
				t.Error("expected panic for empty name")
			}
		}()
		RegisterKeyStore("", factory)
	})

	t.Run("nil factory", func(t *testing.T) {
		defer func() {
			if r := recover(); r == nil {
				t.Error("expected panic for nil factory")
			}
		}()
		RegisterKeyStore("test", nil)
	})

	t.Run("duplicate registration", func(t *testing.T) {
		RegisterKeyStore("duplicate", factory)
		defer func() {
			if r := recover(); r == nil {
				t.Error("expected panic for duplicate registration")
			}
		}()
		RegisterKeyStore("duplicate", factory)
	})
}

func TestRegisteredKeyStores(t *testing.T) {
	swapKeyRegistry(t)

	factory := func(config KeyStoreConfig) (KeyStore, error) {
		return newMemKeyStore(), nil
	}

	RegisterKeyStore("charlie", factory)
	RegisterKeyStore("alpha", factory)
	RegisterKeyStore("bravo", factory)

	types := RegisteredKeyStores()

	if len(types) != 3 {
		t.Fatalf("len(types) = %d, want 3", len(types))
	}

	// Should be sorted
	expected := []string{"alpha", "bravo", "charlie"}
	for i, name := range expected {
		if types[i] != name {
			t.Errorf("types[%d] = %q, want %q", i, types[i], name)
		}
	}
}
