// Package speed implements the "speed" subcommand,
// similar to "openssl speed".
// It benchmarks the crypto primitives cryptopuck uses, which tells you how
// long a full USB stick will keep the puck busy.
package speed

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"fmt"
	"io"
	"log"
	"testing"

	"github.com/cryptopuck/cryptopuck/internal/contentenc"
	"github.com/cryptopuck/cryptopuck/internal/keywrap"
	"github.com/cryptopuck/cryptopuck/internal/nametransform"
)

// Envelopes are streamed in chunks of this size
const blockSize = contentenc.DefaultEncryptChunkSize

// Run - run the speed the test and print the results.
func Run() {
	if m := cpuModelName(); m != "" {
		fmt.Printf("cpu: %s\n", m)
	}
	priv, err := keywrap.GenerateKeyPair(keywrap.DefaultBits)
	if err != nil {
		log.Panic(err)
	}
	bTable := []struct {
		name string
		f    func(*testing.B)
		// perOp reports operations per second instead of MB/s
		perOp bool
	}{
		{name: "AES-256-CBC-encrypt", f: bEncrypt},
		{name: "AES-256-CBC-decrypt", f: bDecrypt},
		{name: "SHA-512-names", f: bObscure, perOp: true},
		{name: "RSA-OAEP-wrap", f: func(b *testing.B) { bWrap(b, &priv.PublicKey) }, perOp: true},
		{name: "RSA-OAEP-unwrap", f: func(b *testing.B) { bUnwrap(b, priv) }, perOp: true},
	}
	for _, b := range bTable {
		fmt.Printf("%-20s\t", b.name)
		r := testing.Benchmark(b.f)
		if b.perOp {
			fmt.Printf("%10.0f ops/s\n", opsPerSec(r))
			continue
		}
		if mbs := mbPerSec(r); mbs > 0 {
			fmt.Printf("%10.2f MB/s\n", mbs)
		} else {
			fmt.Printf("       N/A\n")
		}
	}
}

func mbPerSec(r testing.BenchmarkResult) float64 {
	if r.Bytes <= 0 || r.T <= 0 || r.N <= 0 {
		return 0
	}
	return (float64(r.Bytes) * float64(r.N) / 1e6) / r.T.Seconds()
}

func opsPerSec(r testing.BenchmarkResult) float64 {
	if r.T <= 0 || r.N <= 0 {
		return 0
	}
	return float64(r.N) / r.T.Seconds()
}

// Get "n" random bytes from /dev/urandom or panic
func randBytes(n int) []byte {
	b := make([]byte, n)
	_, err := rand.Read(b)
	if err != nil {
		log.Panic("Failed to read random bytes: " + err.Error())
	}
	return b
}

func newContentEnc(b *testing.B) *contentenc.ContentEnc {
	ce, err := contentenc.New(keywrap.NewSecret())
	if err != nil {
		b.Fatal(err)
	}
	return ce
}

// bEncrypt benchmarks envelope encryption of one chunk
func bEncrypt(b *testing.B) {
	ce := newContentEnc(b)
	in := make([]byte, blockSize)
	b.SetBytes(int64(len(in)))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, err := ce.EncryptStream(io.Discard, bytes.NewReader(in), uint64(len(in)))
		if err != nil {
			b.Fatal(err)
		}
	}
}

// bDecrypt benchmarks envelope decryption of one chunk
func bDecrypt(b *testing.B) {
	ce := newContentEnc(b)
	in := make([]byte, blockSize)
	var env bytes.Buffer
	if _, err := ce.EncryptStream(&env, bytes.NewReader(in), uint64(len(in))); err != nil {
		b.Fatal(err)
	}
	b.SetBytes(int64(len(in)))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, err := ce.DecryptStream(io.Discard, bytes.NewReader(env.Bytes()))
		if err != nil {
			b.Fatal(err)
		}
	}
}

// bObscure benchmarks the salted SHA-512 identifier of a typical path
func bObscure(b *testing.B) {
	for i := 0; i < b.N; i++ {
		nametransform.Obscure("DCIM/100CANON/IMG_0001.JPG")
	}
}

// bWrap benchmarks wrapping a fresh secret. Happens once per tree.
func bWrap(b *testing.B, pub *rsa.PublicKey) {
	secret := randBytes(keywrap.SecretLen)
	for i := 0; i < b.N; i++ {
		if _, err := keywrap.Wrap(secret, pub); err != nil {
			b.Fatal(err)
		}
	}
}

// bUnwrap benchmarks unwrapping, which dominates "decrypt" of tiny trees
func bUnwrap(b *testing.B, priv *rsa.PrivateKey) {
	wrapped, err := keywrap.Wrap(randBytes(keywrap.SecretLen), &priv.PublicKey)
	if err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := keywrap.Unwrap(wrapped, priv); err != nil {
			b.Fatal(err)
		}
	}
}
