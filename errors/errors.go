// Package errors provides centralized error definitions for filevault.
package errors

import "errors"

// Cryptographic errors.
var (
	// ErrKeyFormat indicates a key blob could not be parsed as the expected key type.
	// The identity record holding it should be treated as corrupt.
	ErrKeyFormat = errors.New("malformed key")

	// ErrUnwrap indicates the wrapped content key could not be recovered.
	// This almost always means the private key does not belong to the payload's recipient.
	ErrUnwrap = errors.New("key unwrap failed")

	// ErrPadding indicates the decrypted content carries invalid PKCS#7 padding.
	ErrPadding = errors.New("invalid padding")

	// ErrMalformedPayload indicates the payload fields have impossible sizes.
	ErrMalformedPayload = errors.New("malformed payload")

	// ErrCryptoBackend indicates a cryptographic primitive failed.
	ErrCryptoBackend = errors.New("crypto backend failure")

	// ErrDecryptFailed is the only decryption failure exposed at public boundaries.
	// See Opaque.
	ErrDecryptFailed = errors.New("decryption failed")
)

// Key sealing errors.
var (
	// ErrPassphraseRequired indicates an empty passphrase was supplied.
	ErrPassphraseRequired = errors.New("passphrase required")

	// ErrKeyDecryptFailed indicates the sealed private key could not be opened.
	ErrKeyDecryptFailed = errors.New("key decryption failed")

	// ErrInvalidKeyFormat indicates the sealed key blob has an invalid format.
	ErrInvalidKeyFormat = errors.New("invalid key format")
)

// Identity errors.
var (
	// ErrInvalidOwner indicates an empty or unusable owner name.
	ErrInvalidOwner = errors.New("invalid owner")

	// ErrIdentityNotFound indicates the owner has no stored key pair.
	ErrIdentityNotFound = errors.New("identity not found")

	// ErrIdentityExists indicates the owner already has a key pair.
	ErrIdentityExists = errors.New("identity already exists")
)

// File errors.
var (
	// ErrFileNotFound indicates the requested file does not exist for the owner.
	ErrFileNotFound = errors.New("file not found")

	// ErrUploadTooLarge indicates the upload exceeds the configured ceiling.
	ErrUploadTooLarge = errors.New("upload too large")

	// ErrFileTypeNotAllowed indicates the file name's extension is not on the allow-list.
	ErrFileTypeNotAllowed = errors.New("file type not allowed")

	// ErrPathTraversal indicates a name would resolve outside the store's base directory.
	ErrPathTraversal = errors.New("path traversal attempt")
)

// Store errors.
var (
	// ErrStoreNotRegistered indicates the requested file store type is not registered.
	ErrStoreNotRegistered = errors.New("store type not registered")

	// ErrStoreConfigInvalid indicates the file store configuration is invalid.
	ErrStoreConfigInvalid = errors.New("invalid store configuration")

	// ErrKeyStoreNotRegistered indicates the requested key store type is not registered.
	ErrKeyStoreNotRegistered = errors.New("key store type not registered")

	// ErrKeyStoreConfigInvalid indicates the key store configuration is invalid.
	ErrKeyStoreConfigInvalid = errors.New("invalid key store configuration")

	// ErrMaildirNotFound indicates the maildir directory structure does not exist.
	ErrMaildirNotFound = errors.New("maildir not found")

	// ErrCorruptRecord indicates a stored file record could not be decoded.
	ErrCorruptRecord = errors.New("corrupt file record")
)

// Opaque collapses every decryption-class failure into ErrDecryptFailed.
// Wrong-key, corrupted-ciphertext and bad-padding conditions must not be
// distinguishable by callers outside the vault. Other errors pass through.
func Opaque(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrUnwrap),
		errors.Is(err, ErrPadding),
		errors.Is(err, ErrMalformedPayload),
		errors.Is(err, ErrKeyDecryptFailed):
		return ErrDecryptFailed
	default:
		return err
	}
}
