// Package testkeys hands out RSA key pairs for tests. Generating keys is
// slow, so one 1024-bit pair per process is generated lazily and reused.
package testkeys

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

// Bits is the modulus size of the test keys.
const Bits = 1024

var (
	once  sync.Once
	cache [2]*rsa.PrivateKey
)

func generate() {
	for i := range cache {
		k, err := rsa.GenerateKey(rand.Reader, Bits)
		if err != nil {
			panic(err)
		}
		cache[i] = k
	}
}

// Key returns the shared private key.
func Key() *rsa.PrivateKey {
	once.Do(generate)
	return cache[0]
}

// OtherKey returns a second private key that does not match Key().
func OtherKey() *rsa.PrivateKey {
	once.Do(generate)
	return cache[1]
}

// Write writes Key() as "key.public" and "key.private" into a fresh
// temporary directory and returns both paths.
func Write(t *testing.T) (pubPath, privPath string) {
	t.Helper()
	return WriteKey(t, Key())
}

// WriteKey is like Write for an arbitrary key.
func WriteKey(t *testing.T, k *rsa.PrivateKey) (pubPath, privPath string) {
	t.Helper()
	dir := t.TempDir()
	pubDER, err := x509.MarshalPKIXPublicKey(&k.PublicKey)
	if err != nil {
		t.Fatal(err)
	}
	pubPath = filepath.Join(dir, "key.public")
	privPath = filepath.Join(dir, "key.private")
	err = os.WriteFile(pubPath, pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER}), 0644)
	if err != nil {
		t.Fatal(err)
	}
	err = os.WriteFile(privPath, pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(k)}), 0600)
	if err != nil {
		t.Fatal(err)
	}
	return pubPath, privPath
}
