// Package cryptocore holds the low level crypto primitives shared by the
// content and key wrapping code: the AES block cipher, the random source and
// the IV generator.
package cryptocore

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"
)

const (
	// KeyLen is the cipher key length in bytes. 32 for AES-256.
	KeyLen = 32
	// IVLen is the length of a CBC IV in bytes, equal to the AES block size.
	IVLen = aes.BlockSize
	// BlockSize is the AES block size. Ciphertext is always a multiple of it.
	BlockSize = aes.BlockSize
)

// CryptoCore is the low level crypto implementation.
type CryptoCore struct {
	// AES-256 block cipher. Chained in CBC mode for content encryption.
	BlockCipher cipher.Block
	// CBC needs a fresh IV per file
	IVGenerator *nonceGenerator
}

// New returns a new CryptoCore object or an error if the key has the wrong
// length.
func New(key []byte) (*CryptoCore, error) {
	if len(key) != KeyLen {
		return nil, fmt.Errorf("unsupported key length %d, want %d", len(key), KeyLen)
	}
	blockCipher, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return &CryptoCore{
		BlockCipher: blockCipher,
		IVGenerator: &nonceGenerator{nonceLen: IVLen},
	}, nil
}

// NewCBCEncrypter returns a CBC encrypter chained from "iv".
func (c *CryptoCore) NewCBCEncrypter(iv []byte) cipher.BlockMode {
	return cipher.NewCBCEncrypter(c.BlockCipher, iv)
}

// NewCBCDecrypter returns a CBC decrypter chained from "iv".
func (c *CryptoCore) NewCBCDecrypter(iv []byte) cipher.BlockMode {
	return cipher.NewCBCDecrypter(c.BlockCipher, iv)
}
