package treecrypt

import (
	"errors"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/cryptopuck/cryptopuck/internal/contentenc"
	"github.com/cryptopuck/cryptopuck/internal/errkind"
	"github.com/cryptopuck/cryptopuck/internal/keywrap"
	"github.com/cryptopuck/cryptopuck/internal/nametransform"
	"github.com/cryptopuck/cryptopuck/internal/tlog"
)

// ClearSuffix is appended to files that are restored without a known path.
const ClearSuffix = ".clear"

// DecryptTree restores the plaintext files of an encrypted tree.
//
// The wrapped secret is unwrapped before any file is touched, so a wrong key
// or a corrupted secret file leaves both trees unchanged.
func DecryptTree(args DecryptArgs) (*Report, error) {
	start := time.Now()
	src, dst, err := absPair(args.Source, args.Destination)
	if err != nil {
		return nil, err
	}
	if err = checkDir(src); err != nil {
		return nil, err
	}
	secretPath := args.Secret
	if secretPath == "" {
		secretPath = filepath.Join(src, keywrap.SecretFileName)
	}
	secretPath, err = filepath.Abs(secretPath)
	if err != nil {
		return nil, errkind.Config("abs", args.Secret, err)
	}
	if _, err = os.Stat(secretPath); err != nil {
		return nil, errkind.Config("secret not found", secretPath, err)
	}
	if _, err = os.Stat(args.PrivateKey); err != nil {
		return nil, errkind.Config("private key not found", args.PrivateKey, err)
	}
	priv, err := keywrap.LoadPrivateKey(args.PrivateKey, args.Password)
	if err != nil {
		return nil, err
	}
	secret, err := keywrap.ReadWrapped(secretPath, priv)
	if err != nil {
		return nil, err
	}
	ce, err := contentenc.New(secret)
	if err != nil {
		return nil, err
	}

	mapPath := filepath.Join(src, nametransform.MapFileName)
	rec := nametransform.NewRecord()
	if args.RestoreStructure {
		rec, err = nametransform.LoadRecord(mapPath, ce)
		if err != nil {
			return nil, err
		}
		if len(rec) == 0 {
			tlog.Warn.Printf("Warning: Will not restore file structure, no filename record found at %q", mapPath)
		}
	}

	if err = os.MkdirAll(dst, 0755); err != nil {
		return nil, errkind.IO("mkdir", dst, err)
	}
	inPlace := SameDir(src, dst)
	o := walkOpts{
		skipFiles:     map[string]bool{secretPath: true, mapPath: true},
		envelopesOnly: true,
	}
	if !inPlace && isInside(dst, src) {
		o.skipDir = dst
	}
	files, skipped, err := collectFiles(src, o)
	if err != nil {
		return nil, err
	}
	tlog.Debug.Printf("DecryptTree: %d files to decrypt, %d record entries, inPlace=%v",
		len(files), len(rec), inPlace)

	rep := &Report{Skipped: skipped}
	for _, rel := range files {
		if err = decryptOne(ce, rec, src, dst, rel, inPlace, rep); err != nil {
			return rep, err
		}
	}
	if inPlace {
		for _, p := range []string{filepath.Join(src, keywrap.SecretFileName), mapPath} {
			if err = os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return rep, errkind.IO("remove artifact", p, err)
			}
		}
	}
	rep.Duration = time.Since(start)
	return rep, nil
}

// restorePath maps the envelope at "rel" (relative to the source) to the
// slash-separated output path.
func restorePath(rec nametransform.Record, rel string) (string, error) {
	name := path.Base(rel)
	if len(rec) == 0 {
		return name + ClearSuffix, nil
	}
	mapped, ok := rec.Lookup(name)
	if !ok {
		tlog.Warn.Printf("No record entry for %q, restoring it as %s%s", rel, name, ClearSuffix)
		return name + ClearSuffix, nil
	}
	if err := nametransform.ValidateRelPath(mapped); err != nil {
		return "", errkind.Crypto("filename record", name, err)
	}
	return mapped, nil
}

func decryptOne(ce *contentenc.ContentEnc, rec nametransform.Record, src, dst, rel string, inPlace bool, rep *Report) error {
	out, err := restorePath(rec, rel)
	if err != nil {
		return err
	}
	srcPath := filepath.Join(src, filepath.FromSlash(rel))
	dstPath := filepath.Join(dst, filepath.FromSlash(out))
	if dstPath == srcPath {
		return errkind.Cryptof("decrypt", srcPath, "restored path would overwrite its own envelope")
	}
	if err = os.MkdirAll(filepath.Dir(dstPath), 0755); err != nil {
		return errkind.IO("mkdir", filepath.Dir(dstPath), err)
	}
	tlog.Debug.Printf("Decrypting: %s -> %s", rel, out)
	h, err := ce.DecryptFile(dstPath, srcPath)
	if err != nil {
		return err
	}
	if inPlace {
		if err = os.Remove(srcPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return errkind.IO("remove envelope", srcPath, err)
		}
	}
	rep.Files++
	rep.Bytes += h.OrigSize
	return nil
}
