package treecrypt

import (
	"io/fs"
	"os"
	"path/filepath"

	"github.com/cryptopuck/cryptopuck/internal/contentenc"
	"github.com/cryptopuck/cryptopuck/internal/errkind"
	"github.com/cryptopuck/cryptopuck/internal/keywrap"
	"github.com/cryptopuck/cryptopuck/internal/nametransform"
	"github.com/cryptopuck/cryptopuck/internal/tlog"
)

// DirInfo describes an encrypted tree without decrypting it.
type DirInfo struct {
	Dir string
	// SecretLen is the size of the wrapped secret, which equals the RSA
	// modulus size in bytes. Zero if there is no secret file.
	SecretLen int
	HasMap    bool
	// Envelopes counts files with an identifier name.
	Envelopes int
	// PlainBytes is the sum of the original sizes stored in the headers.
	PlainBytes uint64
	// CipherBytes is the on-disk size of the envelopes.
	CipherBytes uint64
	// Truncated counts envelopes whose size does not match their header.
	Truncated int
	// Other counts the remaining files.
	Other  int
	Marker string
}

// Info inspects "dir".
func Info(dir string) (*DirInfo, error) {
	if err := checkDir(dir); err != nil {
		return nil, err
	}
	di := &DirInfo{Dir: dir}
	if fi, err := os.Stat(filepath.Join(dir, keywrap.SecretFileName)); err == nil {
		di.SecretLen = int(fi.Size())
	}
	if _, err := os.Stat(filepath.Join(dir, nametransform.MapFileName)); err == nil {
		di.HasMap = true
	}
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return errkind.IO("walk", path, err)
		}
		if d.IsDir() || path == filepath.Join(dir, keywrap.SecretFileName) ||
			path == filepath.Join(dir, nametransform.MapFileName) {
			return nil
		}
		if !d.Type().IsRegular() || !nametransform.IsIdentifier(d.Name()) {
			di.Other++
			return nil
		}
		h, err := contentenc.ReadHeader(path)
		if err != nil {
			if errkind.IsCrypto(err) {
				tlog.Debug.Printf("Info: %v", err)
				di.Other++
				return nil
			}
			return err
		}
		fi, err := d.Info()
		if err != nil {
			return errkind.IO("stat", path, err)
		}
		di.Envelopes++
		if uint64(fi.Size()) != contentenc.EnvelopeSize(h.OrigSize) {
			di.Truncated++
		}
		di.PlainBytes += h.OrigSize
		di.CipherBytes += uint64(fi.Size())
		return nil
	})
	if err != nil {
		return nil, err
	}
	if di.Marker, err = readMarker(dir); err != nil {
		tlog.Debug.Printf("Info: reading marker: %v", err)
	}
	return di, nil
}
