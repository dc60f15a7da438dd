// Package orchestrator turns "a volume was mounted" into "the volume is
// encrypted and unmounted", and keeps the operational state up to date
// while doing so.
package orchestrator

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"sync"
	"time"

	"github.com/cryptopuck/cryptopuck/internal/journal"
	"github.com/cryptopuck/cryptopuck/internal/opstate"
	"github.com/cryptopuck/cryptopuck/internal/syscallcompat"
	"github.com/cryptopuck/cryptopuck/internal/tlog"
	"github.com/cryptopuck/cryptopuck/internal/treecrypt"
	"github.com/cryptopuck/cryptopuck/internal/watcher"
)

// DefaultSettle is how long we wait after the mount point appeared. The
// directory shows up before the automounter has finished mounting.
const DefaultSettle = time.Second

// EncryptFunc encrypts a tree. treecrypt.EncryptTree in production.
type EncryptFunc func(treecrypt.EncryptArgs) (*treecrypt.Report, error)

// Unmounter flushes and releases a volume.
type Unmounter interface {
	Unmount(path string) error
}

// UnmountFunc adapts a function to the Unmounter interface.
type UnmountFunc func(path string) error

func (f UnmountFunc) Unmount(path string) error { return f(path) }

// Recorder stores run records. *journal.Journal implements it.
type Recorder interface {
	Put(*journal.Run) error
}

// Orchestrator processes volumes strictly one after the other.
type Orchestrator struct {
	// PublicKey is the path to the public key. It is loaded for every
	// volume, so a broken key file shows up as ERROR on the indicator.
	PublicKey   string
	Exclude     []string
	ExcludeFrom []string
	// Settle defaults to DefaultSettle. Negative means no delay.
	Settle time.Duration
	State  *opstate.Cell
	// Encrypt defaults to treecrypt.EncryptTree
	Encrypt EncryptFunc
	// Unmounter defaults to syscallcompat.Unmount
	Unmounter Unmounter
	// Journal is optional.
	Journal Recorder
	// RequireMountPoint ignores new directories that are not the root of
	// a mounted filesystem once the settle delay has passed.
	RequireMountPoint bool

	mu   sync.Mutex
	last *journal.Run
}

// Run handles the directory events from "events" until ctx is cancelled or
// the channel is closed. Failed volumes do not stop the loop.
func (o *Orchestrator) Run(ctx context.Context, events <-chan watcher.Event) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if !ev.IsDir {
				tlog.Debug.Printf("orchestrator: ignoring non-directory %q", ev.Path)
				continue
			}
			err := o.HandleVolume(ctx, ev.Path)
			if errors.Is(err, context.Canceled) {
				return nil
			}
		}
	}
}

// HandleVolume encrypts the volume at "path" in place and unmounts it.
// On failure the state goes to ERROR and the volume stays mounted.
func (o *Orchestrator) HandleVolume(ctx context.Context, path string) error {
	settle := o.Settle
	if settle == 0 {
		settle = DefaultSettle
	}
	if settle > 0 {
		t := time.NewTimer(settle)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		tlog.Info.Printf("%q disappeared before it could be processed", path)
		return nil
	}
	if o.RequireMountPoint {
		is, err := syscallcompat.IsMountPoint(path)
		if err != nil || !is {
			tlog.Info.Printf("Ignoring %q: not a mount point (%v)", path, err)
			return nil
		}
	}

	run := journal.NewRun(path)
	tag := tlog.RunTag(run.ID)
	tlog.Info.Printf("%s Encrypting volume %s", tag, path)
	o.State.Set(opstate.Encrypting)
	o.record(run)

	rep, err := o.encrypt()(treecrypt.EncryptArgs{
		Source:      path,
		Destination: path,
		PublicKey:   o.PublicKey,
		Exclude:     o.Exclude,
		ExcludeFrom: o.ExcludeFrom,
	})
	if rep != nil {
		run.Files = rep.Files
		run.Bytes = rep.Bytes
		run.Skipped = rep.Skipped
	}
	if err == nil {
		tlog.Info.Printf("%s Encrypted %v, unmounting", tag, rep)
		err = o.unmounter().Unmount(path)
	}
	run.Finished = time.Now()
	if err != nil {
		if syscallcompat.IsENOSPC(err) {
			tlog.Warn.Printf("%s Volume %s is full", tag, path)
		} else if syscallcompat.IsEROFS(err) {
			tlog.Warn.Printf("%s Volume %s is read-only", tag, path)
		}
		tlog.Warn.Printf("%s Processing %s failed, leaving it mounted: %v", tag, path, err)
		run.Outcome = journal.OutcomeError
		run.Error = err.Error()
		o.State.Set(opstate.Error)
		o.record(run)
		return err
	}
	tlog.Info.Printf("%s Done with %s after %v", tag, path, run.Finished.Sub(run.Started).Round(time.Millisecond))
	run.Outcome = journal.OutcomeOK
	o.State.Set(opstate.Idle)
	o.record(run)
	return nil
}

// Last returns a copy of the most recent run, or nil.
func (o *Orchestrator) Last() *journal.Run {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.last == nil {
		return nil
	}
	r := *o.last
	return &r
}

func (o *Orchestrator) record(run *journal.Run) {
	o.mu.Lock()
	r := *run
	o.last = &r
	o.mu.Unlock()
	if o.Journal == nil {
		return
	}
	if err := o.Journal.Put(&r); err != nil {
		tlog.Warn.Printf("%s journal: %v", tlog.RunTag(run.ID), err)
	}
}

func (o *Orchestrator) encrypt() EncryptFunc {
	if o.Encrypt != nil {
		return o.Encrypt
	}
	return treecrypt.EncryptTree
}

func (o *Orchestrator) unmounter() Unmounter {
	if o.Unmounter != nil {
		return o.Unmounter
	}
	return UnmountFunc(syscallcompat.Unmount)
}
