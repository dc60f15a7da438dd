package contentenc

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/cryptopuck/cryptopuck/internal/cryptocore"
	"github.com/cryptopuck/cryptopuck/internal/errkind"
)

func newTestEnc(t *testing.T) *ContentEnc {
	t.Helper()
	ce, err := New(cryptocore.RandBytes(cryptocore.KeyLen))
	if err != nil {
		t.Fatal(err)
	}
	return ce
}

// Sizes around the block and chunk boundaries
var testSizes = []int{0, 1, 15, 16, 17, 31, 32, 1000,
	DefaultDecryptChunkSize - 1, DefaultDecryptChunkSize, DefaultDecryptChunkSize + 1,
	DefaultEncryptChunkSize - 1, DefaultEncryptChunkSize, DefaultEncryptChunkSize + 1,
	3*DefaultEncryptChunkSize + 7}

func TestRoundTrip(t *testing.T) {
	ce := newTestEnc(t)
	for _, size := range testSizes {
		plain := cryptocore.RandBytes(size)
		var env bytes.Buffer
		h, err := ce.EncryptStream(&env, bytes.NewReader(plain), uint64(size))
		if err != nil {
			t.Fatalf("size %d: %v", size, err)
		}
		if h.OrigSize != uint64(size) {
			t.Errorf("size %d: header OrigSize=%d", size, h.OrigSize)
		}
		if uint64(env.Len()) != EnvelopeSize(uint64(size)) {
			t.Errorf("size %d: envelope is %d bytes, want %d", size, env.Len(), EnvelopeSize(uint64(size)))
		}
		var out bytes.Buffer
		h2, err := ce.DecryptStream(&out, &env)
		if err != nil {
			t.Fatalf("size %d: %v", size, err)
		}
		if !bytes.Equal(out.Bytes(), plain) {
			t.Errorf("size %d: content mismatch", size)
		}
		if !bytes.Equal(h.IV, h2.IV) {
			t.Errorf("size %d: IV mismatch", size)
		}
	}
}

// The header must be the documented little-endian size followed by the IV
func TestHeaderLayout(t *testing.T) {
	ce := newTestEnc(t)
	var env bytes.Buffer
	h, err := ce.EncryptStream(&env, bytes.NewReader([]byte("hello")), 5)
	if err != nil {
		t.Fatal(err)
	}
	b := env.Bytes()
	want := []byte{5, 0, 0, 0, 0, 0, 0, 0}
	if !bytes.Equal(b[:8], want) {
		t.Errorf("size field %x", b[:8])
	}
	if !bytes.Equal(b[8:24], h.IV) {
		t.Errorf("IV field %x, want %x", b[8:24], h.IV)
	}
	if len(b) != 24+16 {
		t.Errorf("envelope length %d", len(b))
	}
}

// Encrypting the same data twice must give different ciphertext
func TestFreshIV(t *testing.T) {
	ce := newTestEnc(t)
	plain := bytes.Repeat([]byte("a"), 100)
	var e1, e2 bytes.Buffer
	if _, err := ce.EncryptStream(&e1, bytes.NewReader(plain), 100); err != nil {
		t.Fatal(err)
	}
	if _, err := ce.EncryptStream(&e2, bytes.NewReader(plain), 100); err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(e1.Bytes(), e2.Bytes()) {
		t.Error("identical ciphertext")
	}
	var o1, o2 bytes.Buffer
	ce.DecryptStream(&o1, &e1)
	ce.DecryptStream(&o2, &e2)
	if !bytes.Equal(o1.Bytes(), plain) || !bytes.Equal(o2.Bytes(), plain) {
		t.Error("decryption mismatch")
	}
}

// Different chunk sizes on both sides must still work
func TestMismatchedChunkSizes(t *testing.T) {
	ce := newTestEnc(t)
	if err := ce.SetChunkSizes(48, 32); err != nil {
		t.Fatal(err)
	}
	plain := cryptocore.RandBytes(1001)
	var env, out bytes.Buffer
	if _, err := ce.EncryptStream(&env, bytes.NewReader(plain), 1001); err != nil {
		t.Fatal(err)
	}
	if _, err := ce.DecryptStream(&out, &env); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(out.Bytes(), plain) {
		t.Error("content mismatch")
	}
	if err := ce.SetChunkSizes(17, 32); err == nil {
		t.Error("unaligned chunk size accepted")
	}
	if err := ce.SetChunkSizes(32, 0); err == nil {
		t.Error("zero chunk size accepted")
	}
}

func TestShortEnvelope(t *testing.T) {
	ce := newTestEnc(t)
	for _, l := range []int{0, 1, HeaderLen - 1} {
		var out bytes.Buffer
		_, err := ce.DecryptStream(&out, bytes.NewReader(make([]byte, l)))
		if !errkind.IsCrypto(err) {
			t.Errorf("len %d: want CryptoError, got %v", l, err)
		}
	}
}

func TestTruncatedEnvelope(t *testing.T) {
	ce := newTestEnc(t)
	plain := cryptocore.RandBytes(100)
	var env bytes.Buffer
	ce.EncryptStream(&env, bytes.NewReader(plain), 100)
	b := env.Bytes()
	// Cut one block
	var out bytes.Buffer
	_, err := ce.DecryptStream(&out, bytes.NewReader(b[:len(b)-16]))
	if !errkind.IsCrypto(err) {
		t.Errorf("want CryptoError, got %v", err)
	}
	// Cut into the middle of a block
	out.Reset()
	_, err = ce.DecryptStream(&out, bytes.NewReader(b[:len(b)-3]))
	if !errkind.IsCrypto(err) {
		t.Errorf("want CryptoError, got %v", err)
	}
}

// There is no authentication: flipping a ciphertext bit is not detected.
func TestGarbledCiphertextDecryptsWithoutError(t *testing.T) {
	ce := newTestEnc(t)
	plain := bytes.Repeat([]byte("0123456789abcdef"), 8)
	var env bytes.Buffer
	ce.EncryptStream(&env, bytes.NewReader(plain), uint64(len(plain)))
	b := env.Bytes()
	b[HeaderLen+20] ^= 0x01
	var out bytes.Buffer
	if _, err := ce.DecryptStream(&out, bytes.NewReader(b)); err != nil {
		t.Fatalf("garbled ciphertext returned an error: %v", err)
	}
	if out.Len() != len(plain) {
		t.Errorf("length %d, want %d", out.Len(), len(plain))
	}
	if bytes.Equal(out.Bytes(), plain) {
		t.Error("garbled ciphertext decrypted to the original content")
	}
}

func TestSizeMismatch(t *testing.T) {
	ce := newTestEnc(t)
	var env bytes.Buffer
	_, err := ce.EncryptStream(&env, bytes.NewReader([]byte("abc")), 10)
	if !errkind.IsIO(err) {
		t.Errorf("want IOError, got %v", err)
	}
}

func TestFileHelpers(t *testing.T) {
	dir := t.TempDir()
	ce := newTestEnc(t)
	plainPath := filepath.Join(dir, "plain")
	envPath := filepath.Join(dir, "env")
	outPath := filepath.Join(dir, "out")
	content := cryptocore.RandBytes(70000)
	if err := os.WriteFile(plainPath, content, 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := ce.EncryptFile(envPath, plainPath); err != nil {
		t.Fatal(err)
	}
	h, err := ReadHeader(envPath)
	if err != nil {
		t.Fatal(err)
	}
	if h.OrigSize != 70000 {
		t.Errorf("OrigSize=%d", h.OrigSize)
	}
	st, _ := os.Stat(envPath)
	if uint64(st.Size()) != EnvelopeSize(70000) {
		t.Errorf("envelope size %d", st.Size())
	}
	if _, err := ce.DecryptFile(outPath, envPath); err != nil {
		t.Fatal(err)
	}
	got, _ := os.ReadFile(outPath)
	if !bytes.Equal(got, content) {
		t.Error("content mismatch")
	}
	_, err = ce.EncryptFile(filepath.Join(dir, "x"), filepath.Join(dir, "missing"))
	if !errkind.IsIO(err) {
		t.Errorf("want IOError, got %v", err)
	}
}

func TestParseHeader(t *testing.T) {
	if _, err := ParseHeader(make([]byte, HeaderLen-1)); err == nil {
		t.Error("short header accepted")
	}
	h := &FileHeader{OrigSize: 1 << 40, IV: bytes.Repeat([]byte{7}, 16)}
	h2, err := ParseHeader(h.Pack())
	if err != nil {
		t.Fatal(err)
	}
	if h2.OrigSize != h.OrigSize || !bytes.Equal(h2.IV, h.IV) {
		t.Errorf("got %+v", h2)
	}
}

func TestCipherSize(t *testing.T) {
	for in, want := range map[uint64]uint64{0: 0, 1: 16, 16: 16, 17: 32, 65536: 65536} {
		if CipherSize(in) != want {
			t.Errorf("CipherSize(%d)=%d, want %d", in, CipherSize(in), want)
		}
	}
}
