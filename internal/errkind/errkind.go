// Package errkind holds the three error categories cryptopuck reports:
// configuration problems, cryptographic failures and I/O failures.
//
// All three carry the operation, the path involved and the underlying error,
// and map to an exit code through ExitCode().
package errkind

import (
	"errors"
	"fmt"

	"github.com/cryptopuck/cryptopuck/internal/exitcodes"
)

// ConfigError means that a required input (key file, wrapped secret) is
// missing or malformed. It is always reported before anything is written.
type ConfigError struct {
	Op   string
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	return format("configuration error", e.Op, e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// ExitCode implements the exitcodes interface.
func (e *ConfigError) ExitCode() int { return exitcodes.Config }

// CryptoError means that the wrapped secret could not be unwrapped or an
// envelope is malformed (too short, misaligned, truncated).
type CryptoError struct {
	Op   string
	Path string
	Err  error
}

func (e *CryptoError) Error() string {
	return format("crypto error", e.Op, e.Path, e.Err)
}

func (e *CryptoError) Unwrap() error { return e.Err }

// ExitCode implements the exitcodes interface.
func (e *CryptoError) ExitCode() int { return exitcodes.Crypto }

// IOError is a read, write or permission failure during a tree walk.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return format("io error", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// ExitCode implements the exitcodes interface.
func (e *IOError) ExitCode() int { return exitcodes.IO }

func format(kind, op, path string, err error) string {
	msg := kind
	if op != "" {
		msg += ": " + op
	}
	if path != "" {
		msg += " " + path
	}
	if err != nil {
		msg += ": " + err.Error()
	}
	return msg
}

// Config returns a *ConfigError. If "err" already is a categorized error it
// is returned unchanged.
func Config(op, path string, err error) error {
	if IsCategorized(err) {
		return err
	}
	return &ConfigError{Op: op, Path: path, Err: err}
}

// Crypto returns a *CryptoError, see Config.
func Crypto(op, path string, err error) error {
	if IsCategorized(err) {
		return err
	}
	return &CryptoError{Op: op, Path: path, Err: err}
}

// IO returns an *IOError, see Config.
func IO(op, path string, err error) error {
	if IsCategorized(err) {
		return err
	}
	return &IOError{Op: op, Path: path, Err: err}
}

// Cryptof is a shorthand for Crypto(op, path, fmt.Errorf(...)).
func Cryptof(op, path, format string, a ...interface{}) error {
	return &CryptoError{Op: op, Path: path, Err: fmt.Errorf(format, a...)}
}

// IsCategorized reports whether "err" already carries one of the three
// categories.
func IsCategorized(err error) bool {
	var ce *ConfigError
	var cr *CryptoError
	var ie *IOError
	return errors.As(err, &ce) || errors.As(err, &cr) || errors.As(err, &ie)
}

// IsConfig reports whether "err" is (or wraps) a *ConfigError.
func IsConfig(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// IsCrypto reports whether "err" is (or wraps) a *CryptoError.
func IsCrypto(err error) bool {
	var ce *CryptoError
	return errors.As(err, &ce)
}

// IsIO reports whether "err" is (or wraps) an *IOError.
func IsIO(err error) bool {
	var ie *IOError
	return errors.As(err, &ie)
}
