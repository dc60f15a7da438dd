package treecrypt

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/sabhiram/go-gitignore"
	"golang.org/x/sys/unix"

	"github.com/cryptopuck/cryptopuck/internal/errkind"
	"github.com/cryptopuck/cryptopuck/internal/nametransform"
	"github.com/cryptopuck/cryptopuck/internal/tlog"
)

// walkOpts controls collectFiles.
type walkOpts struct {
	// skipFiles holds absolute paths that are never returned
	skipFiles map[string]bool
	// skipDir is pruned from the walk, used when the output directory
	// lives inside the input tree.
	skipDir string
	exclude *ignore.GitIgnore
	// envelopesOnly skips files that do not carry an identifier name
	envelopesOnly bool
}

// collectFiles returns the slash-separated relative paths of all regular
// files below "root", in lexical order. The whole list is built before the
// caller starts mutating the tree.
func collectFiles(root string, o walkOpts) (files []string, skipped int, err error) {
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return errkind.IO("walk", path, err)
		}
		if path == root {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return errkind.IO("walk", path, err)
		}
		rel = filepath.ToSlash(rel)
		if d.IsDir() {
			if path == o.skipDir {
				return fs.SkipDir
			}
			if excluded(o.exclude, rel+"/") || excluded(o.exclude, rel) {
				tlog.Debug.Printf("collectFiles: excluding directory %q", rel)
				skipped++
				return fs.SkipDir
			}
			return nil
		}
		if o.skipFiles[path] {
			return nil
		}
		if !d.Type().IsRegular() {
			tlog.Warn.Printf("Skipping %q: not a regular file (%v)", rel, d.Type())
			skipped++
			return nil
		}
		if excluded(o.exclude, rel) {
			tlog.Debug.Printf("collectFiles: excluding %q", rel)
			skipped++
			return nil
		}
		if o.envelopesOnly && !nametransform.IsIdentifier(d.Name()) {
			tlog.Warn.Printf("Skipping %q: not an envelope", rel)
			skipped++
			return nil
		}
		files = append(files, rel)
		return nil
	})
	return files, skipped, err
}

// removeEmptyDirs deletes the empty directories below "root", deepest
// first. "root" itself is kept. Directories that still hold something
// stay untouched. Other failures only produce a warning.
func removeEmptyDirs(root string) {
	var dirs []string
	filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			tlog.Warn.Printf("removeEmptyDirs: %v", err)
			return nil
		}
		if d.IsDir() && path != root {
			dirs = append(dirs, path)
		}
		return nil
	})
	// Children sort after their parents, so reverse order is bottom-up
	sort.Sort(sort.Reverse(sort.StringSlice(dirs)))
	for _, dir := range dirs {
		err := os.Remove(dir)
		if err == nil {
			tlog.Debug.Printf("removeEmptyDirs: removed %q", dir)
			continue
		}
		if errors.Is(err, unix.ENOTEMPTY) || errors.Is(err, unix.EEXIST) {
			continue
		}
		tlog.Warn.Printf("Could not remove directory %q: %v", dir, err)
	}
}

// SameDir reports whether "a" and "b" name the same directory.
func SameDir(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA == nil && errB == nil && absA == absB {
		return true
	}
	stA, err := os.Stat(a)
	if err != nil {
		return false
	}
	stB, err := os.Stat(b)
	if err != nil {
		return false
	}
	return os.SameFile(stA, stB)
}

// isInside reports whether "child" is strictly below "parent". Both paths
// must be absolute and clean.
func isInside(child, parent string) bool {
	rel, err := filepath.Rel(parent, child)
	if err != nil || rel == "." {
		return false
	}
	return filepath.IsLocal(rel)
}
