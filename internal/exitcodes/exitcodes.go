// Package exitcodes contains all well-defined exit codes that cryptopuck
// can return.
package exitcodes

import (
	"errors"
	"fmt"
	"os"
)

const (
	// Usage - usage error like wrong cli syntax, wrong number of parameters.
	Usage = 1
	// 2 is reserved because it is used by Go panic

	// Config means that a key file, the wrapped secret or another required
	// input file is missing or malformed. Nothing has been written yet.
	Config = 6
	// ReadPassword means something went wrong reading the passphrase
	ReadPassword = 9
	// MountPoint error means that the mountpoint is invalid (does not exist,
	// not a directory, cannot be watched).
	MountPoint = 10
	// Other error - please inspect the message
	Other = 11
	// Crypto means that the wrapped secret could not be unwrapped or an
	// envelope was malformed.
	Crypto = 12
	// IO means that reading or writing a file failed during a tree walk.
	// Files that were already written are left in place.
	IO = 13
	// SigInt means we got SIGINT
	SigInt = 15
	// CtlSock - the control socket file could not be created or queried.
	CtlSock = 20
	// Journal - the run journal could not be opened.
	Journal = 21
	// Profiler - error occurred when trying to write cpu or memory profile or
	// execution trace
	Profiler = 25
	// DevNull - /dev/null could not be opened to fill in a closed stdin,
	// stdout or stderr
	DevNull = 26
	// ExcludeError - an error occurred while processing "-exclude"
	ExcludeError = 29
)

// Err wraps an error with an associated numeric exit code
type Err struct {
	error
	code int
}

// NewErr returns an error containing "msg" and the exit code "code".
func NewErr(msg string, code int) Err {
	return Err{
		error: errors.New(msg),
		code:  code,
	}
}

// Wrap attaches exit code "code" to "err".
func Wrap(err error, code int) Err {
	return Err{
		error: err,
		code:  code,
	}
}

// ExitCode returns the numeric exit code.
func (e Err) ExitCode() int {
	return e.code
}

func (e Err) Unwrap() error {
	return e.error
}

// exitCoder is implemented by Err and by the errkind error types.
type exitCoder interface {
	ExitCode() int
}

// Code extracts the numeric exit code from "err". Errors that do not carry
// one map to Other, nil maps to 0.
func Code(err error) int {
	if err == nil {
		return 0
	}
	var ec exitCoder
	if errors.As(err, &ec) {
		return ec.ExitCode()
	}
	return Other
}

// Exit extracts the numeric exit code from "err" (if available) and exits the
// application.
func Exit(err error) {
	os.Exit(Code(err))
}

// Errorf is a shorthand for Wrap(fmt.Errorf(...), code).
func Errorf(code int, format string, a ...interface{}) Err {
	return Wrap(fmt.Errorf(format, a...), code)
}
