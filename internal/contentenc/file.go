package contentenc

import (
	"io"
	"os"

	"github.com/cryptopuck/cryptopuck/internal/errkind"
)

const (
	// envelopePerm is used for envelopes and other ciphertext artifacts
	envelopePerm = 0600
	// plainPerm is used for restored files, subject to the umask
	plainPerm = 0666
)

// EncryptFile encrypts "srcPath" into a new envelope at "dstPath".
// When EncryptFile returns nil the envelope has been fsync'ed and closed, so
// the caller may delete the source.
func (be *ContentEnc) EncryptFile(dstPath, srcPath string) (*FileHeader, error) {
	in, err := os.Open(srcPath)
	if err != nil {
		return nil, errkind.IO("open", srcPath, err)
	}
	defer in.Close()
	st, err := in.Stat()
	if err != nil {
		return nil, errkind.IO("stat", srcPath, err)
	}
	out, err := os.OpenFile(dstPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, envelopePerm)
	if err != nil {
		return nil, errkind.IO("create", dstPath, err)
	}
	h, err := be.EncryptStream(out, in, uint64(st.Size()))
	if err != nil {
		out.Close()
		return nil, withPath(err, srcPath)
	}
	if err = out.Sync(); err != nil {
		out.Close()
		return nil, errkind.IO("fsync", dstPath, err)
	}
	if err = out.Close(); err != nil {
		return nil, errkind.IO("close", dstPath, err)
	}
	return h, nil
}

// DecryptFile decrypts the envelope at "srcPath" into "dstPath".
func (be *ContentEnc) DecryptFile(dstPath, srcPath string) (*FileHeader, error) {
	in, err := os.Open(srcPath)
	if err != nil {
		return nil, errkind.IO("open", srcPath, err)
	}
	defer in.Close()
	out, err := os.OpenFile(dstPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, plainPerm)
	if err != nil {
		return nil, errkind.IO("create", dstPath, err)
	}
	h, err := be.DecryptStream(out, in)
	if err != nil {
		out.Close()
		return nil, withPath(err, srcPath)
	}
	if err = out.Sync(); err != nil {
		out.Close()
		return nil, errkind.IO("fsync", dstPath, err)
	}
	if err = out.Close(); err != nil {
		return nil, errkind.IO("close", dstPath, err)
	}
	return h, nil
}

// ReadHeader reads just the header of the envelope at "path".
func ReadHeader(path string) (*FileHeader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errkind.IO("open", path, err)
	}
	defer f.Close()
	buf := make([]byte, HeaderLen)
	n, err := f.ReadAt(buf, 0)
	if n < HeaderLen {
		if err != nil && err != io.EOF {
			return nil, errkind.IO("read header", path, err)
		}
		return nil, errkind.Cryptof("parse header", path, "envelope too short: %d bytes", n)
	}
	return ParseHeader(buf)
}
