// Package keywrap generates the per-run symmetric secret and wraps it with
// an RSA public key (OAEP), so only the holder of the private key can
// decrypt a volume.
package keywrap

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"fmt"
	"os"

	"github.com/cryptopuck/cryptopuck/internal/cryptocore"
	"github.com/cryptopuck/cryptopuck/internal/errkind"
)

const (
	// SecretFileName is the name of the wrapped secret in the destination
	// root.
	SecretFileName = "secret"
	// SecretLen is the length of the unwrapped secret (AES-256 key).
	SecretLen = cryptocore.KeyLen
	// oaepHashLen is the output length of the OAEP hash. SHA-1 is what
	// PKCS1_OAEP defaults to, which keeps existing volumes readable.
	oaepHashLen = sha1.Size
)

// NewSecret returns a fresh random secret.
func NewSecret() []byte {
	return cryptocore.RandBytes(SecretLen)
}

// MaxWrapLen returns the largest plaintext that OAEP can wrap under "pub".
func MaxWrapLen(pub *rsa.PublicKey) int {
	return pub.Size() - 2*oaepHashLen - 2
}

// Wrap encrypts "secret" under "pub".
func Wrap(secret []byte, pub *rsa.PublicKey) ([]byte, error) {
	if max := MaxWrapLen(pub); len(secret) > max {
		return nil, errkind.Config("wrap secret", "",
			fmt.Errorf("public key too small: %d bits can wrap at most %d bytes, secret has %d",
				pub.N.BitLen(), max, len(secret)))
	}
	wrapped, err := rsa.EncryptOAEP(sha1.New(), rand.Reader, pub, secret, nil)
	if err != nil {
		return nil, errkind.Crypto("wrap secret", "", err)
	}
	return wrapped, nil
}

// Unwrap decrypts "wrapped" with "priv". A wrapped secret that does not
// belong to "priv", or that is garbled, gives a CryptoError.
func Unwrap(wrapped []byte, priv *rsa.PrivateKey) ([]byte, error) {
	if len(wrapped) != priv.Size() {
		return nil, errkind.Cryptof("unwrap secret", "",
			"wrapped secret is %d bytes, key size is %d bytes", len(wrapped), priv.Size())
	}
	secret, err := rsa.DecryptOAEP(sha1.New(), nil, priv, wrapped, nil)
	if err != nil {
		return nil, errkind.Crypto("unwrap secret", "", err)
	}
	if len(secret) != SecretLen {
		return nil, errkind.Cryptof("unwrap secret", "",
			"unwrapped secret is %d bytes, want %d", len(secret), SecretLen)
	}
	return secret, nil
}

// WriteWrapped wraps "secret" under "pub" and writes the result to "path".
func WriteWrapped(path string, secret []byte, pub *rsa.PublicKey) error {
	wrapped, err := Wrap(secret, pub)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return errkind.IO("create", path, err)
	}
	if _, err = f.Write(wrapped); err != nil {
		f.Close()
		return errkind.IO("write", path, err)
	}
	if err = f.Sync(); err != nil {
		f.Close()
		return errkind.IO("fsync", path, err)
	}
	if err = f.Close(); err != nil {
		return errkind.IO("close", path, err)
	}
	return nil
}

// ReadWrapped reads the wrapped secret at "path" and unwraps it with "priv".
func ReadWrapped(path string, priv *rsa.PrivateKey) ([]byte, error) {
	wrapped, err := os.ReadFile(path)
	if err != nil {
		return nil, errkind.Config("read wrapped secret", path, err)
	}
	secret, err := Unwrap(wrapped, priv)
	if err != nil {
		if ce, ok := err.(*errkind.CryptoError); ok {
			ce.Path = path
		}
		return nil, err
	}
	return secret, nil
}
