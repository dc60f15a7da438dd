package syscallcompat

import (
	"errors"
	"syscall"
)

// IsENOSPC tries to find out if "err" is a (potentially wrapped) ENOSPC error.
// A volume filling up during in-place encryption is the most common failure.
func IsENOSPC(err error) bool {
	return errors.Is(err, syscall.ENOSPC)
}

// IsEROFS finds out if "err" is a (potentially wrapped) EROFS error, which is
// what we get from a write-protected SD card.
func IsEROFS(err error) bool {
	return errors.Is(err, syscall.EROFS)
}
