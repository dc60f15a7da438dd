package keywrap

import (
	"encoding/hex"
	"fmt"
	"math"
	"strconv"

	"golang.org/x/crypto/scrypt"

	"github.com/cryptopuck/cryptopuck/internal/cryptocore"
)

const (
	// ScryptDefaultLogN is the default scrypt logN configuration parameter.
	// logN=16 (N=2^16) uses 64MB of memory.
	ScryptDefaultLogN = 16
	// From RFC7914, section 2:
	// At the current time, r=8 and p=1 appears to yield good
	// results, but as memory latency and CPU parallelism increase, it is
	// likely that the optimum values for both r and p will increase.
	// We reject all lower values that we might get through modified key files.
	scryptMinR = 8
	scryptMinP = 1
	// logN=10 takes 6ms on a Pentium G630. We reject lower values.
	scryptMinLogN = 10
	// We always generate 32-byte salts. Anything smaller than that is rejected.
	scryptMinSaltLen = 32
)

// ScryptKDF is an instance of the scrypt key deriviation function.
type ScryptKDF struct {
	// Salt is the random salt that is passed to scrypt
	Salt []byte
	// N: scrypt CPU/Memory cost parameter
	N int
	// R: scrypt block size parameter
	R int
	// P: scrypt parallelization parameter
	P int
	// KeyLen is the output data length
	KeyLen int
}

// NewScryptKDF returns a new instance of ScryptKDF.
func NewScryptKDF(logN int) ScryptKDF {
	var s ScryptKDF
	s.Salt = cryptocore.RandBytes(cryptocore.KeyLen)
	if logN <= 0 {
		s.N = 1 << ScryptDefaultLogN
	} else {
		s.N = 1 << uint32(logN)
	}
	s.R = 8 // Always 8
	s.P = 1 // Always 1
	s.KeyLen = cryptocore.KeyLen
	return s
}

// DeriveKey returns a new key from a supplied password.
func (s *ScryptKDF) DeriveKey(pw []byte) ([]byte, error) {
	if err := s.validateParams(); err != nil {
		return nil, err
	}
	return scrypt.Key(pw, s.Salt, s.N, s.R, s.P, s.KeyLen)
}

// LogN - N is saved as 2^LogN, but LogN is much easier to work with.
// This function gives you LogN = Log2(N).
func (s *ScryptKDF) LogN() int {
	return int(math.Log2(float64(s.N)) + 0.5)
}

// headers serializes the parameters into PEM headers.
func (s *ScryptKDF) headers() map[string]string {
	return map[string]string{
		"Scrypt-Salt": hex.EncodeToString(s.Salt),
		"Scrypt-N":    strconv.Itoa(s.N),
		"Scrypt-R":    strconv.Itoa(s.R),
		"Scrypt-P":    strconv.Itoa(s.P),
	}
}

// scryptFromHeaders is the inverse of headers.
func scryptFromHeaders(h map[string]string) (s ScryptKDF, err error) {
	if s.Salt, err = hex.DecodeString(h["Scrypt-Salt"]); err != nil {
		return s, fmt.Errorf("Scrypt-Salt: %v", err)
	}
	for _, f := range []struct {
		name string
		dst  *int
	}{{"Scrypt-N", &s.N}, {"Scrypt-R", &s.R}, {"Scrypt-P", &s.P}} {
		if *f.dst, err = strconv.Atoi(h[f.name]); err != nil {
			return s, fmt.Errorf("%s: %v", f.name, err)
		}
	}
	s.KeyLen = cryptocore.KeyLen
	return s, s.validateParams()
}

// validateParams checks that all parameters are at or above hardcoded limits.
// This makes sure we do not get weak parameters passed through a
// rougue key file.
func (s *ScryptKDF) validateParams() error {
	minN := 1 << scryptMinLogN
	if s.N < minN {
		return fmt.Errorf("scrypt parameter N below minimum: value=%d, min=%d", s.N, minN)
	}
	if s.R < scryptMinR {
		return fmt.Errorf("scrypt parameter R below minimum: value=%d, min=%d", s.R, scryptMinR)
	}
	if s.P < scryptMinP {
		return fmt.Errorf("scrypt parameter P below minimum: value=%d, min=%d", s.P, scryptMinP)
	}
	if len(s.Salt) < scryptMinSaltLen {
		return fmt.Errorf("scrypt salt length below minimum: value=%d, min=%d", len(s.Salt), scryptMinSaltLen)
	}
	if s.KeyLen < cryptocore.KeyLen {
		return fmt.Errorf("scrypt parameter KeyLen below minimum: value=%d, min=%d", s.KeyLen, cryptocore.KeyLen)
	}
	return nil
}
