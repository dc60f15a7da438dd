// Package watcher reports new entries below a mount root, which is how the
// orchestrator learns about freshly mounted volumes.
package watcher

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/cryptopuck/cryptopuck/internal/tlog"
)

// Event is a new entry directly below the watched root.
type Event struct {
	Path  string
	IsDir bool
}

// ErrOverflow is sent on Errors() when the kernel dropped events.
var ErrOverflow = errors.New("inotify event queue overflowed")

// Watcher wraps an inotify instance with a single watch on the root.
type Watcher struct {
	root   string
	f      *os.File
	events chan Event
	errors chan error
	done   chan struct{}
	once   sync.Once
}

// New starts watching "root" for IN_CREATE and IN_MOVED_TO.
func New(root string) (*Watcher, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	// IN_NONBLOCK makes os.NewFile register the fd with the runtime poller,
	// so Close() interrupts a pending Read().
	fd, err := unix.InotifyInit1(unix.IN_CLOEXEC | unix.IN_NONBLOCK)
	if err != nil {
		return nil, fmt.Errorf("inotify_init1: %w", err)
	}
	_, err = unix.InotifyAddWatch(fd, root, unix.IN_CREATE|unix.IN_MOVED_TO|unix.IN_ONLYDIR)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("inotify_add_watch %q: %w", root, err)
	}
	w := &Watcher{
		root:   root,
		f:      os.NewFile(uintptr(fd), "inotify"),
		events: make(chan Event),
		errors: make(chan error, 1),
		done:   make(chan struct{}),
	}
	go w.readLoop()
	tlog.Debug.Printf("watcher: watching %q", root)
	return w, nil
}

// Events is closed after Close() or a fatal read error.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Errors reports overflows and read errors.
func (w *Watcher) Errors() <-chan error {
	return w.errors
}

// Close stops the watcher. It is safe to call more than once.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		err = w.f.Close()
	})
	return err
}

func (w *Watcher) readLoop() {
	defer close(w.events)
	buf := make([]byte, 64*(unix.SizeofInotifyEvent+unix.NAME_MAX+1))
	for {
		n, err := w.f.Read(buf)
		if err != nil {
			if !errors.Is(err, os.ErrClosed) {
				w.sendErr(fmt.Errorf("reading inotify events: %w", err))
			}
			return
		}
		if !w.dispatch(buf[:n]) {
			return
		}
	}
}

// dispatch parses the raw events in "buf". It returns false once the watcher
// should stop.
func (w *Watcher) dispatch(buf []byte) bool {
	for off := 0; off+unix.SizeofInotifyEvent <= len(buf); {
		raw := (*unix.InotifyEvent)(unsafe.Pointer(&buf[off]))
		nameStart := off + unix.SizeofInotifyEvent
		nameEnd := nameStart + int(raw.Len)
		if nameEnd > len(buf) {
			w.sendErr(fmt.Errorf("short inotify event"))
			return false
		}
		name := string(bytes.TrimRight(buf[nameStart:nameEnd], "\x00"))
		off = nameEnd

		switch {
		case raw.Mask&unix.IN_Q_OVERFLOW != 0:
			w.sendErr(ErrOverflow)
			continue
		case raw.Mask&unix.IN_IGNORED != 0:
			w.sendErr(fmt.Errorf("watch on %q was removed", w.root))
			return false
		case name == "":
			continue
		}
		ev := Event{
			Path:  filepath.Join(w.root, name),
			IsDir: raw.Mask&unix.IN_ISDIR != 0,
		}
		tlog.Debug.Printf("watcher: %+v", ev)
		select {
		case w.events <- ev:
		case <-w.done:
			return false
		}
	}
	return true
}

// sendErr does not block. If nobody picked up the previous error, the new
// one is dropped.
func (w *Watcher) sendErr(err error) {
	select {
	case w.errors <- err:
	default:
		tlog.Warn.Printf("watcher: dropping error: %v", err)
	}
}
