package nametransform

import (
	"fmt"
	"path"
	"strings"
)

// NameMax is the maximum length of a single path component on Linux.
const NameMax = 255

// IsValidName checks if `name` is a valid name for a normal file
// (does not contain null bytes or "/" etc...).
func IsValidName(name string) error {
	if name == "" {
		return fmt.Errorf("empty input")
	}
	if len(name) > NameMax {
		return fmt.Errorf("too long")
	}
	if strings.Contains(name, "\000") || strings.Contains(name, "/") {
		return fmt.Errorf("contains forbidden bytes")
	}
	// The name should never be "." or "..".
	if name == "." || name == ".." {
		return fmt.Errorf(". and .. are forbidden names")
	}
	return nil
}

// ValidateRelPath checks a slash-separated relative path read from a
// Filename Record before it is used to place a restored file. A corrupted
// or tampered record must not be able to write outside the destination.
func ValidateRelPath(rel string) error {
	if rel == "" {
		return fmt.Errorf("empty path")
	}
	if strings.HasPrefix(rel, "/") {
		return fmt.Errorf("%q is absolute", rel)
	}
	if path.Clean(rel) != rel {
		return fmt.Errorf("%q is not canonical", rel)
	}
	for _, c := range strings.Split(rel, "/") {
		if err := IsValidName(c); err != nil {
			return fmt.Errorf("%q: component %q: %v", rel, c, err)
		}
	}
	return nil
}
