package treecrypt

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/cryptopuck/cryptopuck/internal/contentenc"
	"github.com/cryptopuck/cryptopuck/internal/errkind"
	"github.com/cryptopuck/cryptopuck/internal/keywrap"
	"github.com/cryptopuck/cryptopuck/internal/nametransform"
	"github.com/cryptopuck/cryptopuck/internal/tlog"
)

// EncryptTree encrypts every regular file below args.Source into a flat set
// of envelopes in args.Destination, writes the wrapped secret and persists
// the Filename Record.
//
// A missing or unusable public key is reported before anything is written.
// An error during the walk aborts the remaining files; what was already
// written stays in place.
func EncryptTree(args EncryptArgs) (*Report, error) {
	start := time.Now()
	pub, err := keywrap.LoadPublicKey(args.PublicKey)
	if err != nil {
		return nil, err
	}
	excl, err := prepareExcluder(args)
	if err != nil {
		return nil, err
	}
	src, dst, err := absPair(args.Source, args.Destination)
	if err != nil {
		return nil, err
	}
	if err = checkDir(src); err != nil {
		return nil, err
	}
	secretPath := filepath.Join(dst, keywrap.SecretFileName)
	mapPath := filepath.Join(dst, nametransform.MapFileName)
	if _, err = os.Lstat(secretPath); err == nil {
		return nil, errkind.Config("encrypt", dst,
			errors.New("already contains a wrapped secret, refusing to overwrite it"))
	}
	// In place, a user file of that name would be skipped by the walk and
	// then overwritten by the record.
	if _, err = os.Lstat(mapPath); err == nil {
		return nil, errkind.Config("encrypt", dst,
			fmt.Errorf("already contains %q, refusing to overwrite it", nametransform.MapFileName))
	}
	if err = os.MkdirAll(dst, 0700); err != nil {
		return nil, errkind.IO("mkdir", dst, err)
	}
	inPlace := SameDir(src, dst)

	secret := keywrap.NewSecret()
	ce, err := contentenc.New(secret)
	if err != nil {
		return nil, err
	}
	if err = keywrap.WriteWrapped(secretPath, secret, pub); err != nil {
		return nil, err
	}

	o := walkOpts{
		skipFiles: map[string]bool{secretPath: true, mapPath: true},
		exclude:   excl,
	}
	if !inPlace && isInside(dst, src) {
		o.skipDir = dst
	}
	files, skipped, err := collectFiles(src, o)
	if err != nil {
		return nil, err
	}
	tlog.Debug.Printf("EncryptTree: %d files to encrypt, inPlace=%v", len(files), inPlace)

	rep := &Report{Skipped: skipped}
	rec := nametransform.NewRecord()
	for _, rel := range files {
		err = encryptOne(ce, rec, src, dst, rel, inPlace, rep)
		if err != nil {
			break
		}
	}
	if err != nil {
		// Keep the names of what is already encrypted recoverable
		if len(rec) > 0 {
			if err2 := nametransform.SaveRecord(rec, ce, mapPath); err2 != nil {
				tlog.Warn.Printf("Could not save partial filename record: %v", err2)
			}
		}
		return rep, err
	}
	if inPlace {
		removeEmptyDirs(src)
	}
	if err = nametransform.SaveRecord(rec, ce, mapPath); err != nil {
		return rep, err
	}
	setMarker(dst)
	rep.Duration = time.Since(start)
	return rep, nil
}

func encryptOne(ce *contentenc.ContentEnc, rec nametransform.Record, src, dst, rel string, inPlace bool, rep *Report) error {
	id, err := rec.Add(rel)
	if err != nil {
		return errkind.Crypto("obscure", rel, err)
	}
	srcPath := filepath.Join(src, filepath.FromSlash(rel))
	dstPath := filepath.Join(dst, id)
	tlog.Debug.Printf("Encrypting: %s", rel)
	h, err := ce.EncryptFile(dstPath, srcPath)
	if err != nil {
		delete(rec, id)
		return err
	}
	if inPlace {
		if err = os.Remove(srcPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return errkind.IO("remove original", srcPath, err)
		}
	}
	rep.Files++
	rep.Bytes += h.OrigSize
	return nil
}

func absPair(a, b string) (string, string, error) {
	absA, err := filepath.Abs(a)
	if err != nil {
		return "", "", errkind.Config("abs", a, err)
	}
	absB, err := filepath.Abs(b)
	if err != nil {
		return "", "", errkind.Config("abs", b, err)
	}
	return absA, absB, nil
}

// checkDir verifies that "dir" exists and is a directory.
func checkDir(dir string) error {
	fi, err := os.Stat(dir)
	if err != nil {
		return errkind.Config("stat", dir, err)
	}
	if !fi.IsDir() {
		return errkind.Config("stat", dir, errors.New("not a directory"))
	}
	return nil
}
