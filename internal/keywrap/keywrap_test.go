package keywrap

import (
	"bytes"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cryptopuck/cryptopuck/internal/errkind"
	"github.com/cryptopuck/cryptopuck/internal/testkeys"
)

func TestNewSecret(t *testing.T) {
	s1 := NewSecret()
	s2 := NewSecret()
	assert.Len(t, s1, 32)
	assert.NotEqual(t, s1, s2)
}

func TestWrapUnwrap(t *testing.T) {
	k := testkeys.Key()
	secret := NewSecret()
	w1, err := Wrap(secret, &k.PublicKey)
	require.NoError(t, err)
	w2, err := Wrap(secret, &k.PublicKey)
	require.NoError(t, err)
	// OAEP is randomized
	assert.NotEqual(t, w1, w2)
	assert.Len(t, w1, k.Size())

	got, err := Unwrap(w1, k)
	require.NoError(t, err)
	assert.Equal(t, secret, got)
}

func TestUnwrapWrongKey(t *testing.T) {
	w, err := Wrap(NewSecret(), &testkeys.Key().PublicKey)
	require.NoError(t, err)
	_, err = Unwrap(w, testkeys.OtherKey())
	assert.True(t, errkind.IsCrypto(err), "%v", err)
}

func TestUnwrapGarbled(t *testing.T) {
	k := testkeys.Key()
	w, err := Wrap(NewSecret(), &k.PublicKey)
	require.NoError(t, err)
	w[10] ^= 0xff
	_, err = Unwrap(w, k)
	assert.True(t, errkind.IsCrypto(err))
	// Wrong size
	_, err = Unwrap(w[:20], k)
	assert.True(t, errkind.IsCrypto(err))
}

func TestUnwrapWrongLength(t *testing.T) {
	k := testkeys.Key()
	w, err := Wrap([]byte("short"), &k.PublicKey)
	require.NoError(t, err)
	_, err = Unwrap(w, k)
	assert.True(t, errkind.IsCrypto(err))
}

func TestWrapTooLong(t *testing.T) {
	k := testkeys.Key()
	_, err := Wrap(make([]byte, MaxWrapLen(&k.PublicKey)+1), &k.PublicKey)
	assert.True(t, errkind.IsConfig(err))
	assert.GreaterOrEqual(t, MaxWrapLen(&k.PublicKey), SecretLen)
}

func TestLoadKeys(t *testing.T) {
	pubPath, privPath := testkeys.Write(t)
	pub, err := LoadPublicKey(pubPath)
	require.NoError(t, err)
	priv, err := LoadPrivateKey(privPath, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, pub.N.Cmp(priv.N))
}

func TestLoadKeyFormats(t *testing.T) {
	k := testkeys.Key()
	dir := t.TempDir()
	pkcs1Pub := filepath.Join(dir, "pkcs1.pub")
	require.NoError(t, os.WriteFile(pkcs1Pub, pem.EncodeToMemory(&pem.Block{
		Type: "RSA PUBLIC KEY", Bytes: x509.MarshalPKCS1PublicKey(&k.PublicKey)}), 0600))
	_, err := LoadPublicKey(pkcs1Pub)
	assert.NoError(t, err)

	der, err := x509.MarshalPKCS8PrivateKey(k)
	require.NoError(t, err)
	pkcs8 := filepath.Join(dir, "pkcs8.key")
	require.NoError(t, os.WriteFile(pkcs8, pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}), 0600))
	_, err = LoadPrivateKey(pkcs8, nil)
	assert.NoError(t, err)
}

func TestLoadKeyErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := LoadPublicKey(filepath.Join(dir, "missing"))
	assert.True(t, errkind.IsConfig(err))
	_, err = LoadPrivateKey(filepath.Join(dir, "missing"), nil)
	assert.True(t, errkind.IsConfig(err))

	junk := filepath.Join(dir, "junk")
	require.NoError(t, os.WriteFile(junk, []byte("not a key"), 0600))
	_, err = LoadPublicKey(junk)
	assert.True(t, errkind.IsConfig(err))
	_, err = LoadPrivateKey(junk, nil)
	assert.True(t, errkind.IsConfig(err))

	// A private key where a public key is expected
	_, privPath := testkeys.Write(t)
	_, err = LoadPublicKey(privPath)
	assert.True(t, errkind.IsConfig(err))
}

func TestWrappedFile(t *testing.T) {
	k := testkeys.Key()
	path := filepath.Join(t.TempDir(), SecretFileName)
	secret := NewSecret()
	require.NoError(t, WriteWrapped(path, secret, &k.PublicKey))
	got, err := ReadWrapped(path, k)
	require.NoError(t, err)
	assert.Equal(t, secret, got)

	_, err = ReadWrapped(path+".missing", k)
	assert.True(t, errkind.IsConfig(err))

	require.NoError(t, os.WriteFile(path, bytes.Repeat([]byte{1}, k.Size()), 0600))
	_, err = ReadWrapped(path, k)
	var ce *errkind.CryptoError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, path, ce.Path)
}

func TestSealedKey(t *testing.T) {
	k := testkeys.Key()
	dir := t.TempDir()
	pass := []byte("correct horse")
	pubPath, privPath, err := WriteKeyPair(dir, k, pass, scryptMinLogN)
	require.NoError(t, err)
	assert.True(t, IsSealed(privPath))

	_, err = LoadPrivateKey(privPath, nil)
	assert.True(t, errkind.IsConfig(err))

	_, err = LoadPrivateKey(privPath, func() ([]byte, error) { return []byte("wrong"), nil })
	assert.True(t, errkind.IsConfig(err))
	assert.True(t, errors.Is(err, ErrWrongPassphrase))

	priv, err := LoadPrivateKey(privPath, func() ([]byte, error) { return pass, nil })
	require.NoError(t, err)
	assert.Equal(t, 0, k.N.Cmp(priv.N))

	pub, err := LoadPublicKey(pubPath)
	require.NoError(t, err)
	assert.Equal(t, 0, k.N.Cmp(pub.N))

	// Never overwrite existing keys
	_, _, err = WriteKeyPair(dir, k, nil, 0)
	assert.Error(t, err)
}

func TestPlainKeyPair(t *testing.T) {
	dir := t.TempDir()
	_, privPath, err := WriteKeyPair(dir, testkeys.Key(), nil, 0)
	require.NoError(t, err)
	assert.False(t, IsSealed(privPath))
	_, err = LoadPrivateKey(privPath, func() ([]byte, error) {
		t.Error("password callback called for an unsealed key")
		return nil, nil
	})
	assert.NoError(t, err)
}

func TestScryptParamFloors(t *testing.T) {
	s := NewScryptKDF(scryptMinLogN)
	assert.Equal(t, scryptMinLogN, s.LogN())
	_, err := s.DeriveKey([]byte("x"))
	assert.NoError(t, err)

	weak := s
	weak.N = 1 << 4
	_, err = weak.DeriveKey([]byte("x"))
	assert.Error(t, err)

	weak = s
	weak.Salt = weak.Salt[:8]
	_, err = weak.DeriveKey([]byte("x"))
	assert.Error(t, err)

	h := s.headers()
	h["Scrypt-R"] = "1"
	_, err = scryptFromHeaders(h)
	assert.Error(t, err)
}

func TestGenerateKeyPairMinimum(t *testing.T) {
	_, err := GenerateKeyPair(512)
	assert.Error(t, err)
}
