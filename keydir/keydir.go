// Package keydir provides a filesystem KeyStore that keeps each identity's
// keys as a pair of files in a single directory.
package keydir

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/infodancer/filevault"
	"github.com/infodancer/filevault/errors"
)

const (
	// Key file extensions
	privateKeyExt = ".key"
	publicKeyExt  = ".pub"
)

// Store implements filevault.KeyStore over a key directory:
//
//	<dir>/<owner>.pub  PEM public key (0644)
//	<dir>/<owner>.key  sealed private key (0600)
type Store struct {
	dir string

	// mu serializes creation and removal so a key pair is never half written.
	mu sync.RWMutex
}

// NewStore creates a key directory store, creating dir if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create key directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// keyPaths returns the public and private key paths for owner.
// Returns an error if owner would escape the key directory.
func (s *Store) keyPaths(owner string) (pub, priv string, err error) {
	if owner == "" || owner == "." || owner == ".." ||
		strings.ContainsAny(owner, `/\`) || strings.ContainsRune(owner, 0) {
		return "", "", errors.ErrPathTraversal
	}
	base := filepath.Join(s.dir, owner)
	if filepath.Dir(base) != filepath.Clean(s.dir) {
		return "", "", errors.ErrPathTraversal
	}
	return base + publicKeyExt, base + privateKeyExt, nil
}

// PutKeys implements filevault.KeyStore.
func (s *Store) PutKeys(ctx context.Context, owner string, publicKey, sealedPrivateKey []byte) error {
	pubPath, privPath, err := s.keyPaths(owner)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// The public key is written exclusively; its presence marks the identity.
	if err := writeExclusive(pubPath, publicKey, 0644); err != nil {
		if os.IsExist(err) {
			return errors.ErrIdentityExists
		}
		return fmt.Errorf("write public key: %w", err)
	}

	if err := writeExclusive(privPath, sealedPrivateKey, 0600); err != nil {
		_ = os.Remove(pubPath)
		if os.IsExist(err) {
			return errors.ErrIdentityExists
		}
		return fmt.Errorf("write private key: %w", err)
	}

	return nil
}

// GetPublicKey implements filevault.KeyStore.
func (s *Store) GetPublicKey(ctx context.Context, owner string) ([]byte, error) {
	pubPath, _, err := s.keyPaths(owner)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	pubKey, err := os.ReadFile(pubPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ErrIdentityNotFound
		}
		return nil, fmt.Errorf("read public key: %w", err)
	}
	return pubKey, nil
}

// GetSealedPrivateKey implements filevault.KeyStore.
func (s *Store) GetSealedPrivateKey(ctx context.Context, owner string) ([]byte, error) {
	_, privPath, err := s.keyPaths(owner)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	sealed, err := os.ReadFile(privPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ErrIdentityNotFound
		}
		return nil, fmt.Errorf("read private key: %w", err)
	}
	return sealed, nil
}

// DeleteKeys implements filevault.KeyStore.
func (s *Store) DeleteKeys(ctx context.Context, owner string) error {
	pubPath, privPath, err := s.keyPaths(owner)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	privErr := os.Remove(privPath)
	pubErr := os.Remove(pubPath)

	if os.IsNotExist(privErr) && os.IsNotExist(pubErr) {
		return errors.ErrIdentityNotFound
	}
	if privErr != nil && !os.IsNotExist(privErr) {
		return fmt.Errorf("remove private key: %w", privErr)
	}
	if pubErr != nil && !os.IsNotExist(pubErr) {
		return fmt.Errorf("remove public key: %w", pubErr)
	}
	return nil
}

// Close releases any resources held by the store.
func (s *Store) Close() error {
	return nil
}

// writeExclusive creates path with data, failing if it already exists.
func writeExclusive(path string, data []byte, perm os.FileMode) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		return err
	}

	_, err = f.Write(data)
	if closeErr := f.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(path)
		return err
	}
	return nil
}

// Compile-time interface verification.
var _ filevault.KeyStore = (*Store)(nil)
