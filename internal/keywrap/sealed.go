package keywrap

// Sealed private keys
//
// A sealed key is a PEM block of type "CRYPTOPUCK SEALED PRIVATE KEY". The
// headers carry the scrypt parameters and the GCM nonce, the body is the
// AES-256-GCM encrypted PKCS#1 DER of the private key. The key for GCM is
// scrypt(passphrase).

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/hex"
	"encoding/pem"
	"errors"

	"github.com/cryptopuck/cryptopuck/internal/cryptocore"
)

const (
	sealedBlockType = "CRYPTOPUCK SEALED PRIVATE KEY"
	gcmNonceLen     = 12
)

// ErrWrongPassphrase is returned when a sealed key cannot be opened.
var ErrWrongPassphrase = errors.New("wrong passphrase or corrupted key file")

func newGCM(key []byte) (cipher.AEAD, error) {
	b, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(b)
}

// seal encrypts "der" with a key derived from "passphrase".
func seal(der []byte, passphrase []byte, logN int) (*pem.Block, error) {
	kdf := NewScryptKDF(logN)
	key, err := kdf.DeriveKey(passphrase)
	if err != nil {
		return nil, err
	}
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	nonce := cryptocore.RandBytes(gcmNonceLen)
	headers := kdf.headers()
	headers["Nonce"] = hex.EncodeToString(nonce)
	return &pem.Block{
		Type:    sealedBlockType,
		Headers: headers,
		Bytes:   gcm.Seal(nil, nonce, der, []byte(sealedBlockType)),
	}, nil
}

// unseal reverses seal and returns the PKCS#1 DER.
func unseal(block *pem.Block, passphrase []byte) ([]byte, error) {
	kdf, err := scryptFromHeaders(block.Headers)
	if err != nil {
		return nil, err
	}
	nonce, err := hex.DecodeString(block.Headers["Nonce"])
	if err != nil || len(nonce) != gcmNonceLen {
		return nil, errors.New("invalid Nonce header")
	}
	key, err := kdf.DeriveKey(passphrase)
	if err != nil {
		return nil, err
	}
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	der, err := gcm.Open(nil, nonce, block.Bytes, []byte(sealedBlockType))
	if err != nil {
		return nil, ErrWrongPassphrase
	}
	return der, nil
}
