package filevault

import (
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/nacl/secretbox"

	"github.com/infodancer/filevault/errors"
)

const (
	// Sealed key format: salt (32B) || nonce (24B) || secretbox ciphertext
	sealSaltSize  = 32
	sealNonceSize = 24

	// Argon2id parameters for key derivation
	argon2Time    = 3
	argon2Memory  = 64 * 1024 // 64 MB
	argon2Threads = 4
	argon2KeyLen  = 32
)

// SealPrivateKey encrypts a PEM private key under a passphrase for storage.
// The result is safe to persist in a KeyStore.
func SealPrivateKey(privateKey []byte, passphrase string) ([]byte, error) {
	if passphrase == "" {
		return nil, errors.ErrPassphraseRequired
	}

	salt := make([]byte, sealSaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w: %v", errors.ErrCryptoBackend, err)
	}

	var nonce [sealNonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, fmt.Errorf("generate nonce: %w: %v", errors.ErrCryptoBackend, err)
	}

	key := deriveSealKey(passphrase, salt)
	defer clear(key[:])

	out := make([]byte, sealSaltSize+sealNonceSize, sealSaltSize+sealNonceSize+len(privateKey)+secretbox.Overhead)
	copy(out[:sealSaltSize], salt)
	copy(out[sealSaltSize:], nonce[:])
	return secretbox.Seal(out, privateKey, &nonce, &key), nil
}

// OpenPrivateKey decrypts a key produced by SealPrivateKey.
// Returns errors.ErrKeyDecryptFailed for a wrong passphrase or tampered blob.
func OpenPrivateKey(sealed []byte, passphrase string) ([]byte, error) {
	if passphrase == "" {
		return nil, errors.ErrPassphraseRequired
	}
	if len(sealed) < sealSaltSize+sealNonceSize+secretbox.Overhead {
		return nil, errors.ErrInvalidKeyFormat
	}

	salt := sealed[:sealSaltSize]
	var nonce [sealNonceSize]byte
	copy(nonce[:], sealed[sealSaltSize:sealSaltSize+sealNonceSize])
	ciphertext := sealed[sealSaltSize+sealNonceSize:]

	key := deriveSealKey(passphrase, salt)
	defer clear(key[:])

	plaintext, ok := secretbox.Open(nil, ciphertext, &nonce, &key)
	if !ok {
		return nil, errors.ErrKeyDecryptFailed
	}
	return plaintext, nil
}

func deriveSealKey(passphrase string, salt []byte) [32]byte {
	var key [32]byte
	derived := argon2.IDKey([]byte(passphrase), salt, argon2Time, argon2Memory, argon2Threads, argon2KeyLen)
	copy(key[:], derived)
	clear(derived)
	return key
}
