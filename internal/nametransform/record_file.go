package nametransform

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"

	"github.com/cryptopuck/cryptopuck/internal/contentenc"
	"github.com/cryptopuck/cryptopuck/internal/errkind"
	"github.com/cryptopuck/cryptopuck/internal/tlog"
)

// MapFileName is the name of the encrypted Filename Record in the
// destination root.
const MapFileName = "filenames_map"

// stagingPattern is the os.CreateTemp pattern for the plaintext staging file
const stagingPattern = "cryptopuck-map-*.json"

// SaveRecord serializes "r" to JSON in a staging file and encrypts that into
// the envelope at "dstPath". The staging file is removed on every return
// path.
func SaveRecord(r Record, ce *contentenc.ContentEnc, dstPath string) (err error) {
	staging, err := os.CreateTemp("", stagingPattern)
	if err != nil {
		return errkind.IO("create staging file", "", err)
	}
	defer func() {
		staging.Close()
		if rmErr := os.Remove(staging.Name()); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
			tlog.Warn.Printf("SaveRecord: removing staging file: %v", rmErr)
		}
	}()
	if err = json.NewEncoder(staging).Encode(r); err != nil {
		return errkind.IO("write staging file", staging.Name(), err)
	}
	if err = staging.Close(); err != nil {
		return errkind.IO("close staging file", staging.Name(), err)
	}
	if _, err = ce.EncryptFile(dstPath, staging.Name()); err != nil {
		return err
	}
	tlog.Debug.Printf("SaveRecord: %d entries -> %s", len(r), dstPath)
	return nil
}

// LoadRecord decrypts the envelope at "envPath" and returns the Record it
// holds. A missing envelope is not an error: an empty Record is returned and
// the caller falls back to flat restoration.
func LoadRecord(envPath string, ce *contentenc.ContentEnc) (Record, error) {
	if _, err := os.Stat(envPath); errors.Is(err, fs.ErrNotExist) {
		return NewRecord(), nil
	} else if err != nil {
		return nil, errkind.IO("stat", envPath, err)
	}
	staging, err := os.CreateTemp("", stagingPattern)
	if err != nil {
		return nil, errkind.IO("create staging file", "", err)
	}
	defer func() {
		staging.Close()
		os.Remove(staging.Name())
	}()
	staging.Close()
	if _, err = ce.DecryptFile(staging.Name(), envPath); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(staging.Name())
	if err != nil {
		return nil, errkind.IO("read staging file", staging.Name(), err)
	}
	r := NewRecord()
	if err = json.Unmarshal(data, &r); err != nil {
		// Wrong secret or a garbled envelope decrypts to garbage
		return nil, errkind.Crypto("parse filename record", envPath, err)
	}
	for id := range r {
		if !IsIdentifier(id) {
			tlog.Warn.Printf("LoadRecord: unexpected key %q in %s", id, envPath)
		}
	}
	return r, nil
}
