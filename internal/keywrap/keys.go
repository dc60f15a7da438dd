package keywrap

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cryptopuck/cryptopuck/internal/errkind"
	"github.com/cryptopuck/cryptopuck/internal/tlog"
)

const (
	// PublicKeyName is the default file name of the public key.
	PublicKeyName = "key.public"
	// PrivateKeyName is the default file name of the private key.
	PrivateKeyName = "key.private"
	// DefaultBits is the default RSA modulus size.
	DefaultBits = 2048
	// MinBits is the smallest modulus we generate or accept. OAEP with SHA-1
	// needs 32+2*20+2 = 74 bytes, 1024 bits leaves enough room.
	MinBits = 1024
)

// PasswordFunc is called to get the passphrase of a sealed private key.
// It is only called when the key file is actually sealed.
type PasswordFunc func() ([]byte, error)

// LoadPublicKey reads a PEM encoded RSA public key. Both "PUBLIC KEY"
// (PKIX) and "RSA PUBLIC KEY" (PKCS#1) blocks are accepted.
func LoadPublicKey(path string) (*rsa.PublicKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errkind.Config("load public key", path, err)
	}
	pub, err := ParsePublicKey(data)
	if err != nil {
		return nil, errkind.Config("load public key", path, err)
	}
	return pub, nil
}

// ParsePublicKey parses a PEM encoded RSA public key.
func ParsePublicKey(data []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errors.New("no PEM block found")
	}
	var pub *rsa.PublicKey
	switch block.Type {
	case "PUBLIC KEY":
		k, err := x509.ParsePKIXPublicKey(block.Bytes)
		if err != nil {
			return nil, err
		}
		var ok bool
		pub, ok = k.(*rsa.PublicKey)
		if !ok {
			return nil, fmt.Errorf("unsupported public key type %T", k)
		}
	case "RSA PUBLIC KEY":
		k, err := x509.ParsePKCS1PublicKey(block.Bytes)
		if err != nil {
			return nil, err
		}
		pub = k
	default:
		return nil, fmt.Errorf("unexpected PEM block type %q", block.Type)
	}
	if pub.N.BitLen() < MinBits {
		return nil, fmt.Errorf("key too small: %d bits, minimum is %d", pub.N.BitLen(), MinBits)
	}
	return pub, nil
}

// LoadPrivateKey reads a PEM encoded RSA private key. "RSA PRIVATE KEY"
// (PKCS#1), "PRIVATE KEY" (PKCS#8) and sealed keys are accepted. For sealed
// keys "pw" is called to get the passphrase.
func LoadPrivateKey(path string, pw PasswordFunc) (*rsa.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errkind.Config("load private key", path, err)
	}
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errkind.Config("load private key", path, errors.New("no PEM block found"))
	}
	if block.Type == sealedBlockType {
		if pw == nil {
			return nil, errkind.Config("load private key", path, errors.New("key is sealed but no passphrase source was given"))
		}
		tlog.Info.Println("Private key is sealed, decrypting it")
		pass, err := pw()
		if err != nil {
			return nil, errkind.Config("read passphrase", path, err)
		}
		der, err := unseal(block, pass)
		if err != nil {
			return nil, errkind.Config("unseal private key", path, err)
		}
		block = &pem.Block{Type: "RSA PRIVATE KEY", Bytes: der}
	}
	priv, err := parsePrivateBlock(block)
	if err != nil {
		return nil, errkind.Config("load private key", path, err)
	}
	return priv, nil
}

func parsePrivateBlock(block *pem.Block) (*rsa.PrivateKey, error) {
	switch block.Type {
	case "RSA PRIVATE KEY":
		return x509.ParsePKCS1PrivateKey(block.Bytes)
	case "PRIVATE KEY":
		k, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, err
		}
		priv, ok := k.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("unsupported private key type %T", k)
		}
		return priv, nil
	}
	return nil, fmt.Errorf("unexpected PEM block type %q", block.Type)
}

// GenerateKeyPair generates a new RSA key pair of "bits" bits.
func GenerateKeyPair(bits int) (*rsa.PrivateKey, error) {
	if bits < MinBits {
		return nil, fmt.Errorf("key size %d is below the minimum of %d bits", bits, MinBits)
	}
	return rsa.GenerateKey(rand.Reader, bits)
}

// WriteKeyPair writes "key.public" and "key.private" into "dir". If
// "passphrase" is not empty, the private key is sealed with it.
// Existing key files are never overwritten.
func WriteKeyPair(dir string, priv *rsa.PrivateKey, passphrase []byte, logN int) (pubPath, privPath string, err error) {
	pubPath = filepath.Join(dir, PublicKeyName)
	privPath = filepath.Join(dir, PrivateKeyName)
	pubDER, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	if err != nil {
		return "", "", err
	}
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})
	privDER := x509.MarshalPKCS1PrivateKey(priv)
	var privBlock *pem.Block
	if len(passphrase) > 0 {
		privBlock, err = seal(privDER, passphrase, logN)
		if err != nil {
			return "", "", err
		}
	} else {
		privBlock = &pem.Block{Type: "RSA PRIVATE KEY", Bytes: privDER}
	}
	if err = writeExclusive(privPath, pem.EncodeToMemory(privBlock), 0600); err != nil {
		return "", "", err
	}
	if err = writeExclusive(pubPath, pubPEM, 0644); err != nil {
		os.Remove(privPath)
		return "", "", err
	}
	return pubPath, privPath, nil
}

func writeExclusive(path string, data []byte, perm os.FileMode) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		return err
	}
	if _, err = f.Write(data); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// IsSealed reports whether the private key file at "path" is sealed.
func IsSealed(path string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	block, _ := pem.Decode(data)
	return block != nil && block.Type == sealedBlockType
}
