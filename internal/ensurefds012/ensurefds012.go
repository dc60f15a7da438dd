// Package ensurefds012 makes sure that file descriptors 0, 1 and 2 are open
// before anything else runs. "cryptopuck watch" is usually started by an
// init system or a udev rule, and those may hand us a closed stdin or
// stdout. The first file we open would then land on fd 1 and log output
// would be written into it.
//
// Use like this:
//
//	import _ "github.com/cryptopuck/cryptopuck/internal/ensurefds012"
//
// The import line MUST be in the alphabetically first source code file of
// package main!
//
// To check it by hand, start the binary with all fds closed
//
//	$ ./cryptopuck watch --mountpoint /media 0<&- 1>&- 2>&-
//
// and look at /proc/$(pgrep cryptopuck)/fd: 0, 1 and 2 point to /dev/null.
package ensurefds012

import (
	"os"

	"golang.org/x/sys/unix"

	"github.com/cryptopuck/cryptopuck/internal/exitcodes"
)

func init() {
	fd, err := unix.Open("/dev/null", unix.O_RDWR, 0)
	if err != nil {
		os.Exit(exitcodes.DevNull)
	}
	for fd <= 2 {
		fd, err = unix.Dup(fd)
		if err != nil {
			os.Exit(exitcodes.DevNull)
		}
	}
	// The last copy is one too many (usually fd 3)
	unix.Close(fd)
}
