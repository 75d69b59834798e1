package filevault

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"

	"github.com/infodancer/filevault/errors"
)

const (
	// KeyBits is the modulus size of generated identity keys.
	KeyBits = 2048

	// MinKeyBits is the smallest RSA modulus accepted when parsing keys.
	MinKeyBits = 2048

	privateKeyBlock    = "PRIVATE KEY"
	publicKeyBlock     = "PUBLIC KEY"
	rsaPrivateKeyBlock = "RSA PRIVATE KEY"
	rsaPublicKeyBlock  = "RSA PUBLIC KEY"
)

// KeyPair holds an identity's PEM-encoded RSA keys.
// PrivateKey is unencrypted PKCS#8; PublicKey is SubjectPublicKeyInfo.
type KeyPair struct {
	PrivateKey []byte
	PublicKey  []byte
}

// GenerateKeyPair creates a fresh RSA-2048 key pair (e = 65537) for a new identity.
func GenerateKeyPair() (KeyPair, error) {
	key, err := rsa.GenerateKey(rand.Reader, KeyBits)
	if err != nil {
		return KeyPair{}, fmt.Errorf("generate rsa key: %w: %v", errors.ErrCryptoBackend, err)
	}

	privDER, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return KeyPair{}, fmt.Errorf("marshal private key: %w: %v", errors.ErrCryptoBackend, err)
	}
	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		return KeyPair{}, fmt.Errorf("marshal public key: %w: %v", errors.ErrCryptoBackend, err)
	}

	return KeyPair{
		PrivateKey: pem.EncodeToMemory(&pem.Block{Type: privateKeyBlock, Bytes: privDER}),
		PublicKey:  pem.EncodeToMemory(&pem.Block{Type: publicKeyBlock, Bytes: pubDER}),
	}, nil
}

// parsePublicKey decodes a PEM public key. SubjectPublicKeyInfo is expected;
// PKCS#1 "RSA PUBLIC KEY" blocks are also accepted.
func parsePublicKey(data []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("%w: no PEM block in public key", errors.ErrKeyFormat)
	}

	var pub *rsa.PublicKey
	switch block.Type {
	case publicKeyBlock:
		key, err := x509.ParsePKIXPublicKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errors.ErrKeyFormat, err)
		}
		rsaKey, ok := key.(*rsa.PublicKey)
		if !ok {
			return nil, fmt.Errorf("%w: not an RSA public key", errors.ErrKeyFormat)
		}
		pub = rsaKey
	case rsaPublicKeyBlock:
		key, err := x509.ParsePKCS1PublicKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errors.ErrKeyFormat, err)
		}
		pub = key
	default:
		return nil, fmt.Errorf("%w: unexpected PEM block %q", errors.ErrKeyFormat, block.Type)
	}

	if pub.N.BitLen() < MinKeyBits {
		return nil, fmt.Errorf("%w: %d-bit modulus below minimum", errors.ErrKeyFormat, pub.N.BitLen())
	}
	return pub, nil
}

// parsePrivateKey decodes an unencrypted PEM private key. PKCS#8 is expected;
// PKCS#1 "RSA PRIVATE KEY" blocks are also accepted.
func parsePrivateKey(data []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("%w: no PEM block in private key", errors.ErrKeyFormat)
	}

	var priv *rsa.PrivateKey
	switch block.Type {
	case privateKeyBlock:
		key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errors.ErrKeyFormat, err)
		}
		rsaKey, ok := key.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("%w: not an RSA private key", errors.ErrKeyFormat)
		}
		priv = rsaKey
	case rsaPrivateKeyBlock:
		key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errors.ErrKeyFormat, err)
		}
		priv = key
	default:
		return nil, fmt.Errorf("%w: unexpected PEM block %q", errors.ErrKeyFormat, block.Type)
	}

	if priv.N.BitLen() < MinKeyBits {
		return nil, fmt.Errorf("%w: %d-bit modulus below minimum", errors.ErrKeyFormat, priv.N.BitLen())
	}
	return priv, nil
}
