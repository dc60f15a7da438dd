// Package syscallcompat wraps the Linux syscalls used to flush and release
// removable volumes.
package syscallcompat

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"golang.org/x/sys/unix"

	"github.com/cryptopuck/cryptopuck/internal/tlog"
)

// UmountBinary is executed when the umount(2) syscall is not permitted.
// Mounts created by udisks carry the "user" option, so umount(8) can still
// release them.
var UmountBinary = "umount"

// Sync flushes all filesystems.
func Sync() {
	unix.Sync()
}

// Syncfs flushes only the filesystem that contains "path".
func Syncfs(path string) error {
	fd, err := retryEINTR2(func() (int, error) {
		return unix.Open(path, unix.O_RDONLY|unix.O_DIRECTORY|unix.O_CLOEXEC, 0)
	})
	if err != nil {
		return &os.PathError{Op: "open", Path: path, Err: err}
	}
	defer unix.Close(fd)
	err = retryEINTR(func() error {
		return unix.Syncfs(fd)
	})
	if err != nil {
		return &os.PathError{Op: "syncfs", Path: path, Err: err}
	}
	return nil
}

// Unmount flushes and unmounts "path". If we lack CAP_SYS_ADMIN it falls
// back to umount(8).
func Unmount(path string) error {
	if err := Syncfs(path); err != nil {
		tlog.Warn.Printf("Unmount: %v, falling back to sync(2)", err)
		Sync()
	}
	err := retryEINTR(func() error {
		return unix.Unmount(path, 0)
	})
	if err == nil {
		return nil
	}
	if err != unix.EPERM {
		return &os.PathError{Op: "umount", Path: path, Err: err}
	}
	tlog.Info.Printf("Unmount: umount(2) not permitted, trying %s", UmountBinary)
	cmd := exec.Command(UmountBinary, path)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err = cmd.Run(); err != nil {
		return fmt.Errorf("%s %s: %v: %s", UmountBinary, path, err, bytes.TrimSpace(stderr.Bytes()))
	}
	return nil
}

// IsMountPoint returns true if "path" is the root of a mounted filesystem,
// detected by comparing the device numbers of "path" and its parent.
func IsMountPoint(path string) (bool, error) {
	var st, parent unix.Stat_t
	if err := unix.Lstat(path, &st); err != nil {
		return false, &os.PathError{Op: "lstat", Path: path, Err: err}
	}
	if st.Mode&unix.S_IFMT != unix.S_IFDIR {
		return false, nil
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return false, err
	}
	if err := unix.Lstat(filepath.Dir(abs), &parent); err != nil {
		return false, &os.PathError{Op: "lstat", Path: filepath.Dir(abs), Err: err}
	}
	if st.Dev != parent.Dev {
		return true, nil
	}
	// "/" is its own parent
	return st.Ino == parent.Ino, nil
}
