package filevault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"fmt"
	"io"

	"github.com/infodancer/filevault/errors"
)

const (
	// EncryptionAlgorithm identifies the envelope scheme used for stored files.
	EncryptionAlgorithm = "rsa2048-oaep-sha256+aes256-cbc-pkcs7"

	// ContentKeySize is the size of the per-file AES-256 key.
	ContentKeySize = 32

	// IVSize is the size of the CBC initialization vector.
	IVSize = aes.BlockSize
)

// EncryptedPayload is the result of a single Encrypt call. All three fields
// are needed to decrypt and none of them may be modified afterwards.
type EncryptedPayload struct {
	// Ciphertext is the PKCS#7-padded content encrypted with AES-256-CBC.
	Ciphertext []byte

	// WrappedKey is the content key encrypted with RSA-OAEP for the recipient.
	WrappedKey []byte

	// IV is the CBC initialization vector, always IVSize bytes.
	IV []byte
}

// Encrypt seals plaintext under a fresh content key and IV, then wraps the
// content key for recipientPublicKey (PEM).
// Returns errors.ErrKeyFormat if the public key cannot be used and
// errors.ErrCryptoBackend if a primitive fails.
func Encrypt(plaintext []byte, recipientPublicKey []byte) (*EncryptedPayload, error) {
	pub, err := parsePublicKey(recipientPublicKey)
	if err != nil {
		return nil, err
	}

	key := make([]byte, ContentKeySize)
	defer clear(key)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, fmt.Errorf("generate content key: %w: %v", errors.ErrCryptoBackend, err)
	}

	iv := make([]byte, IVSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return nil, fmt.Errorf("generate iv: %w: %v", errors.ErrCryptoBackend, err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("init aes: %w: %v", errors.ErrCryptoBackend, err)
	}

	ciphertext := pkcs7Pad(plaintext, aes.BlockSize)
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, ciphertext)

	wrapped, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, pub, key, nil)
	if err != nil {
		return nil, fmt.Errorf("wrap content key: %w: %v", errors.ErrCryptoBackend, err)
	}

	return &EncryptedPayload{
		Ciphertext: ciphertext,
		WrappedKey: wrapped,
		IV:         iv,
	}, nil
}

// Decrypt reverses Encrypt using the recipient's unencrypted PEM private key.
// It never returns partial plaintext. Failures are reported as
// errors.ErrKeyFormat, errors.ErrUnwrap, errors.ErrMalformedPayload or
// errors.ErrPadding; use errors.Opaque before showing them to anyone.
func Decrypt(payload *EncryptedPayload, recipientPrivateKey []byte) ([]byte, error) {
	if payload == nil {
		return nil, errors.ErrMalformedPayload
	}

	priv, err := parsePrivateKey(recipientPrivateKey)
	if err != nil {
		return nil, err
	}

	// Unwrap first so a wrong key surfaces as an OAEP failure rather than
	// as a padding failure further down.
	key, err := rsa.DecryptOAEP(sha256.New(), nil, priv, payload.WrappedKey, nil)
	if err != nil {
		return nil, errors.ErrUnwrap
	}
	defer clear(key)
	if len(key) != ContentKeySize {
		return nil, errors.ErrUnwrap
	}

	if len(payload.IV) != IVSize {
		return nil, fmt.Errorf("%w: iv is %d bytes", errors.ErrMalformedPayload, len(payload.IV))
	}
	if len(payload.Ciphertext) == 0 || len(payload.Ciphertext)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("%w: ciphertext is %d bytes", errors.ErrMalformedPayload, len(payload.Ciphertext))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("init aes: %w: %v", errors.ErrCryptoBackend, err)
	}

	padded := make([]byte, len(payload.Ciphertext))
	cipher.NewCBCDecrypter(block, payload.IV).CryptBlocks(padded, payload.Ciphertext)

	plaintext, err := pkcs7Unpad(padded, aes.BlockSize)
	if err != nil {
		clear(padded)
		return nil, err
	}
	return plaintext, nil
}
