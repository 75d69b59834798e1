package filevault

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	stderrors "errors"
	"sync"
	"testing"

	"github.com/infodancer/filevault/errors"
)

var (
	testKeysOnce sync.Once
	testKeys     [2]KeyPair
	testKeysErr  error
)

// testKeyPairs returns two key pairs generated once per test binary.
func testKeyPairs(t *testing.T) (KeyPair, KeyPair) {
	t.Helper()
	testKeysOnce.Do(func() {
		for i := range testKeys {
			testKeys[i], testKeysErr = GenerateKeyPair()
			if testKeysErr != nil {
				return
			}
		}
	})
	if testKeysErr != nil {
		t.Fatalf("generate key pair: %v", testKeysErr)
	}
	return testKeys[0], testKeys[1]
}

func TestGenerateKeyPair(t *testing.T) {
	pair, _ := testKeyPairs(t)

	privBlock, _ := pem.Decode(pair.PrivateKey)
	if privBlock == nil || privBlock.Type != "PRIVATE KEY" {
		t.Fatalf("private key is not a PKCS#8 PEM block")
	}
	pubBlock, _ := pem.Decode(pair.PublicKey)
	if pubBlock == nil || pubBlock.Type != "PUBLIC KEY" {
		t.Fatalf("public key is not a SubjectPublicKeyInfo PEM block")
	}

	priv, err := parsePrivateKey(pair.PrivateKey)
	if err != nil {
		t.Fatalf("parse private key: %v", err)
	}
	pub, err := parsePublicKey(pair.PublicKey)
	if err != nil {
		t.Fatalf("parse public key: %v", err)
	}

	if priv.N.BitLen() != KeyBits {
		t.Errorf("modulus = %d bits, want %d", priv.N.BitLen(), KeyBits)
	}
	if priv.E != 65537 {
		t.Errorf("public exponent = %d, want 65537", priv.E)
	}
	if !priv.PublicKey.Equal(pub) {
		t.Error("public key does not match private key")
	}
}

func TestGenerateKeyPair_Unique(t *testing.T) {
	a, b := testKeyPairs(t)
	if bytes.Equal(a.PublicKey, b.PublicKey) {
		t.Fatal("two generated key pairs are identical")
	}
}

func TestParseKeys_PKCS1(t *testing.T) {
	pair, _ := testKeyPairs(t)
	priv, err := parsePrivateKey(pair.PrivateKey)
	if err != nil {
		t.Fatalf("parse private key: %v", err)
	}

	pkcs1Priv := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(priv)})
	pkcs1Pub := pem.EncodeToMemory(&pem.Block{Type: "RSA PUBLIC KEY", Bytes: x509.MarshalPKCS1PublicKey(&priv.PublicKey)})

	if _, err := parsePrivateKey(pkcs1Priv); err != nil {
		t.Errorf("parse PKCS#1 private key: %v", err)
	}
	if _, err := parsePublicKey(pkcs1Pub); err != nil {
		t.Errorf("parse PKCS#1 public key: %v", err)
	}
}

func TestParseKeys_Invalid(t *testing.T) {
	pair, _ := testKeyPairs(t)

	small, err := rsa.GenerateKey(rand.Reader, 1024)
	if err != nil {
		t.Fatalf("generate small key: %v", err)
	}
	smallPubDER, _ := x509.MarshalPKIXPublicKey(&small.PublicKey)
	smallPrivDER, _ := x509.MarshalPKCS8PrivateKey(small)

	tests := []struct {
		name  string
		parse func([]byte) error
		data  []byte
	}{
		{"public garbage", parsePublic, []byte("not a key")},
		{"public empty", parsePublic, nil},
		{"public given private", parsePublic, pair.PrivateKey},
		{"public bad DER", parsePublic, pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: []byte{1, 2, 3}})},
		{"public too small", parsePublic, pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: smallPubDER})},
		{"private garbage", parsePrivate, []byte("not a key")},
		{"private given public", parsePrivate, pair.PublicKey},
		{"private bad DER", parsePrivate, pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: []byte{1, 2, 3}})},
		{"private too small", parsePrivate, pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: smallPrivDER})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.parse(tt.data); !stderrors.Is(err, errors.ErrKeyFormat) {
				t.Fatalf("expected ErrKeyFormat, got %v", err)
			}
		})
	}
}

func parsePublic(data []byte) error {
	_, err := parsePublicKey(data)
	return err
}

func parsePrivate(data []byte) error {
	_, err := parsePrivateKey(data)
	return err
}
