package treecrypt

import (
	"fmt"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/xattr"

	"github.com/cryptopuck/cryptopuck/internal/tlog"
)

const (
	// MarkerAttr is set on the destination root after a successful run.
	MarkerAttr = "user.cryptopuck"
	// FormatVersion is stored in the marker.
	FormatVersion = 1
)

// setMarker tags "dir" as a cryptopuck destination. Many removable volumes
// are vfat and have no xattr support, so every failure is only logged.
func setMarker(dir string) {
	val := fmt.Sprintf("v%d %s", FormatVersion, time.Now().UTC().Format(time.RFC3339))
	err := xattr.Set(dir, MarkerAttr, []byte(val))
	if err == nil {
		return
	}
	if isNotSupported(err) {
		tlog.Debug.Printf("setMarker: %s: xattrs not supported", dir)
		return
	}
	tlog.Warn.Printf("Could not set %s on %q: %v", MarkerAttr, dir, err)
}

// readMarker returns the marker value of "dir", or "" if there is none.
func readMarker(dir string) (string, error) {
	val, err := xattr.Get(dir, MarkerAttr)
	if err != nil {
		if isNotSupported(err) || isNoAttr(err) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(string(val)), nil
}

// unpackXattrErr unpacks an error value that we got from xattr.Get/Set
func unpackXattrErr(err error) error {
	if err2, ok := err.(*xattr.Error); ok {
		return err2.Err
	}
	return err
}

func isNotSupported(err error) bool {
	errno := unpackXattrErr(err)
	return errno == syscall.ENOTSUP || errno == syscall.EOPNOTSUPP
}

func isNoAttr(err error) bool {
	return unpackXattrErr(err) == xattr.ENOATTR
}
