// Package nametransform replaces real file paths by unlinkable identifiers
// and keeps the Filename Record that maps them back.
package nametransform

import (
	"crypto/sha512"
	"encoding/hex"
	"path/filepath"

	"github.com/cryptopuck/cryptopuck/internal/cryptocore"
	"github.com/cryptopuck/cryptopuck/internal/errkind"
)

const (
	// SaltLen is the number of random bytes mixed into every identifier.
	SaltLen = 16
	// IdentifierLen is the length of an identifier: hex encoded SHA-512.
	IdentifierLen = 2 * sha512.Size
	// maxObscureRetries bounds the collision retry loop in Record.Add.
	maxObscureRetries = 8
)

// Obscure returns the identifier for "relPath": the hex encoded SHA-512 of
// fresh random salt followed by the slash-separated path. Calling it twice
// for the same path gives two different identifiers.
func Obscure(relPath string) string {
	h := sha512.New()
	h.Write(cryptocore.RandBytes(SaltLen))
	h.Write([]byte(filepath.ToSlash(relPath)))
	return hex.EncodeToString(h.Sum(nil))
}

// obscure is Obscure. Tests replace it to force collisions.
var obscure = Obscure

// IsIdentifier reports whether "name" looks like an identifier generated
// by Obscure.
func IsIdentifier(name string) bool {
	if len(name) != IdentifierLen {
		return false
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f') {
			return false
		}
	}
	return true
}

// Record maps identifiers to slash-separated relative paths.
type Record map[string]string

// NewRecord returns an empty Record.
func NewRecord() Record {
	return make(Record)
}

// Add obscures "relPath", stores the mapping and returns the identifier.
// If the identifier is already taken by another path a new salt is drawn.
// Running out of retries is a CryptoError: the salt source is broken.
func (r Record) Add(relPath string) (string, error) {
	rel := filepath.ToSlash(relPath)
	for i := 0; i < maxObscureRetries; i++ {
		id := obscure(rel)
		if _, taken := r[id]; taken {
			continue
		}
		r[id] = rel
		return id, nil
	}
	return "", errkind.Cryptof("obscure", rel, "no free identifier after %d attempts", maxObscureRetries)
}

// Lookup returns the relative path stored for "id".
func (r Record) Lookup(id string) (string, bool) {
	rel, ok := r[id]
	return rel, ok
}

// BuildRecord inverts a real path -> identifier mapping into a Record.
func BuildRecord(realToID map[string]string) Record {
	r := make(Record, len(realToID))
	for p, id := range realToID {
		r[id] = filepath.ToSlash(p)
	}
	return r
}
