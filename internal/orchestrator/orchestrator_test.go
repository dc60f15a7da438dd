package orchestrator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cryptopuck/cryptopuck/internal/journal"
	"github.com/cryptopuck/cryptopuck/internal/keywrap"
	"github.com/cryptopuck/cryptopuck/internal/nametransform"
	"github.com/cryptopuck/cryptopuck/internal/opstate"
	"github.com/cryptopuck/cryptopuck/internal/testkeys"
	"github.com/cryptopuck/cryptopuck/internal/treecrypt"
	"github.com/cryptopuck/cryptopuck/internal/watcher"
)

// fakeUnmounter records unmounted paths
type fakeUnmounter struct {
	mu    sync.Mutex
	paths []string
	err   error
}

func (f *fakeUnmounter) Unmount(path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paths = append(f.paths, path)
	return f.err
}

func (f *fakeUnmounter) unmounted() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.paths...)
}

// memRecorder keeps the journal in memory
type memRecorder struct {
	mu   sync.Mutex
	runs map[string]journal.Run
	puts int
}

func (m *memRecorder) Put(r *journal.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.runs == nil {
		m.runs = make(map[string]journal.Run)
	}
	m.runs[r.ID] = *r
	m.puts++
	return nil
}

func newTestOrchestrator(encrypt EncryptFunc) (*Orchestrator, *fakeUnmounter, *memRecorder) {
	u := &fakeUnmounter{}
	rec := &memRecorder{}
	o := &Orchestrator{
		PublicKey: "/nonexistent/key.public",
		Settle:    -1,
		State:     opstate.NewCell(),
		Encrypt:   encrypt,
		Unmounter: u,
		Journal:   rec,
	}
	return o, u, rec
}

func TestHandleVolumeSuccess(t *testing.T) {
	var seen opstate.State
	var o *Orchestrator
	o, u, rec := newTestOrchestrator(func(args treecrypt.EncryptArgs) (*treecrypt.Report, error) {
		seen = o.State.Get()
		assert.Equal(t, args.Source, args.Destination, "volumes are encrypted in place")
		return &treecrypt.Report{Files: 2, Bytes: 10}, nil
	})
	vol := t.TempDir()
	require.NoError(t, o.HandleVolume(context.Background(), vol))
	assert.Equal(t, opstate.Encrypting, seen)
	assert.Equal(t, opstate.Idle, o.State.Get())
	assert.Equal(t, []string{vol}, u.unmounted())

	last := o.Last()
	require.NotNil(t, last)
	assert.Equal(t, journal.OutcomeOK, last.Outcome)
	assert.Equal(t, 2, last.Files)
	assert.Equal(t, 2, rec.puts, "one record when starting, one when done")
	assert.Equal(t, journal.OutcomeOK, rec.runs[last.ID].Outcome)
}

func TestHandleVolumeEncryptFails(t *testing.T) {
	o, u, rec := newTestOrchestrator(func(treecrypt.EncryptArgs) (*treecrypt.Report, error) {
		return &treecrypt.Report{Files: 1}, errors.New("disk on fire")
	})
	err := o.HandleVolume(context.Background(), t.TempDir())
	assert.Error(t, err)
	assert.Equal(t, opstate.Error, o.State.Get())
	assert.Empty(t, u.unmounted(), "failed volumes stay mounted")
	last := o.Last()
	assert.Equal(t, journal.OutcomeError, last.Outcome)
	assert.Equal(t, "disk on fire", last.Error)
	assert.Equal(t, journal.OutcomeError, rec.runs[last.ID].Outcome)
}

func TestHandleVolumeUnmountFails(t *testing.T) {
	o, u, _ := newTestOrchestrator(func(treecrypt.EncryptArgs) (*treecrypt.Report, error) {
		return &treecrypt.Report{}, nil
	})
	u.err = errors.New("device busy")
	err := o.HandleVolume(context.Background(), t.TempDir())
	assert.Error(t, err)
	assert.Equal(t, opstate.Error, o.State.Get())
}

func TestErrorIsStickyUntilNextSuccess(t *testing.T) {
	fail := true
	o, _, _ := newTestOrchestrator(func(treecrypt.EncryptArgs) (*treecrypt.Report, error) {
		if fail {
			return nil, errors.New("boom")
		}
		return &treecrypt.Report{}, nil
	})
	o.HandleVolume(context.Background(), t.TempDir())
	assert.Equal(t, opstate.Error, o.State.Get())
	fail = false
	require.NoError(t, o.HandleVolume(context.Background(), t.TempDir()))
	assert.Equal(t, opstate.Idle, o.State.Get())
}

func TestHandleVolumeVanished(t *testing.T) {
	called := false
	o, _, _ := newTestOrchestrator(func(treecrypt.EncryptArgs) (*treecrypt.Report, error) {
		called = true
		return nil, nil
	})
	require.NoError(t, o.HandleVolume(context.Background(), filepath.Join(t.TempDir(), "gone")))
	assert.False(t, called)
	assert.Equal(t, opstate.Idle, o.State.Get())
}

func TestRequireMountPoint(t *testing.T) {
	called := false
	o, _, _ := newTestOrchestrator(func(treecrypt.EncryptArgs) (*treecrypt.Report, error) {
		called = true
		return &treecrypt.Report{}, nil
	})
	o.RequireMountPoint = true
	require.NoError(t, o.HandleVolume(context.Background(), t.TempDir()))
	assert.False(t, called, "a plain directory is not a volume")
}

func TestSettleCancelled(t *testing.T) {
	o, _, _ := newTestOrchestrator(nil)
	o.Settle = time.Hour
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := o.HandleVolume(ctx, t.TempDir())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, opstate.Idle, o.State.Get())
}

func TestRunSequential(t *testing.T) {
	var mu sync.Mutex
	active, maxActive := 0, 0
	var handled []string
	o, _, _ := newTestOrchestrator(func(args treecrypt.EncryptArgs) (*treecrypt.Report, error) {
		mu.Lock()
		active++
		if active > maxActive {
			maxActive = active
		}
		handled = append(handled, args.Source)
		mu.Unlock()
		time.Sleep(10 * time.Millisecond)
		mu.Lock()
		active--
		mu.Unlock()
		return &treecrypt.Report{}, nil
	})
	root := t.TempDir()
	events := make(chan watcher.Event, 4)
	var want []string
	for _, name := range []string{"a", "b", "c"} {
		p := filepath.Join(root, name)
		require.NoError(t, os.Mkdir(p, 0755))
		events <- watcher.Event{Path: p, IsDir: true}
		want = append(want, p)
	}
	events <- watcher.Event{Path: filepath.Join(root, "file"), IsDir: false}
	close(events)

	require.NoError(t, o.Run(context.Background(), events))
	assert.Equal(t, want, handled)
	assert.Equal(t, 1, maxActive)
}

func TestRunStopsOnCancel(t *testing.T) {
	o, _, _ := newTestOrchestrator(nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- o.Run(ctx, make(chan watcher.Event)) }()
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return")
	}
}

// TestEndToEnd uses the real tree transform on a directory standing in for
// a volume.
func TestEndToEnd(t *testing.T) {
	pub, priv := testkeys.Write(t)
	vol := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(vol, "photos"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(vol, "photos", "cat.jpg"), []byte("meow"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(vol, "notes.txt"), []byte("secret notes"), 0644))

	o, u, _ := newTestOrchestrator(nil)
	o.PublicKey = pub
	require.NoError(t, o.HandleVolume(context.Background(), vol))
	assert.Equal(t, opstate.Idle, o.State.Get())
	assert.Equal(t, []string{vol}, u.unmounted())
	assert.NoFileExists(t, filepath.Join(vol, "notes.txt"))
	assert.NoDirExists(t, filepath.Join(vol, "photos"))
	assert.FileExists(t, filepath.Join(vol, keywrap.SecretFileName))
	assert.FileExists(t, filepath.Join(vol, nametransform.MapFileName))

	out := t.TempDir()
	_, err := treecrypt.DecryptTree(treecrypt.DecryptArgs{
		Source: vol, Destination: out, PrivateKey: priv, RestoreStructure: true,
	})
	require.NoError(t, err)
	data, err := os.ReadFile(filepath.Join(out, "photos", "cat.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "meow", string(data))
}

func TestEndToEndMissingKey(t *testing.T) {
	vol := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(vol, "notes.txt"), []byte("x"), 0644))
	o, u, _ := newTestOrchestrator(nil)
	assert.Error(t, o.HandleVolume(context.Background(), vol))
	assert.Equal(t, opstate.Error, o.State.Get())
	assert.Empty(t, u.unmounted())
	assert.FileExists(t, filepath.Join(vol, "notes.txt"))
}
