// Package treecrypt encrypts and decrypts whole directory trees: every
// regular file becomes one envelope with an unlinkable name, and the real
// paths are kept in the encrypted Filename Record.
package treecrypt

import (
	"fmt"
	"time"

	"github.com/cryptopuck/cryptopuck/internal/keywrap"
)

// EncryptArgs configures EncryptTree.
type EncryptArgs struct {
	// Source is the plaintext tree.
	Source string
	// Destination receives the envelopes. Source == Destination means
	// in-place: every original is deleted once its envelope is durable.
	Destination string
	// PublicKey is the path to the PEM encoded RSA public key.
	PublicKey string
	// Exclude holds gitignore-style patterns, matched against the path
	// relative to Source.
	Exclude []string
	// ExcludeFrom lists files that contain one pattern per line.
	ExcludeFrom []string
}

// DecryptArgs configures DecryptTree.
type DecryptArgs struct {
	Source      string
	Destination string
	// Secret is the wrapped secret file. Defaults to Source/secret.
	Secret string
	// PrivateKey is the path to the PEM encoded RSA private key.
	PrivateKey string
	// Password is asked when the private key is passphrase-sealed.
	Password keywrap.PasswordFunc
	// RestoreStructure enables the Filename Record. When false, every file
	// is restored flat as <identifier>.clear.
	RestoreStructure bool
}

// Report summarizes a finished tree operation.
type Report struct {
	// Files is the number of files that were transformed.
	Files int
	// Bytes is the plaintext byte count of those files.
	Bytes uint64
	// Skipped counts excluded, special and unmapped entries.
	Skipped  int
	Duration time.Duration
}

func (r *Report) String() string {
	return fmt.Sprintf("%d files, %d bytes, %d skipped, %v",
		r.Files, r.Bytes, r.Skipped, r.Duration.Round(time.Millisecond))
}
