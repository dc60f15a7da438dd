package journal

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cryptopuck/cryptopuck/internal/exitcodes"
)

func tempJournal(t *testing.T) (*Journal, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sub", "journal.db")
	j, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j, path
}

func TestNewRun(t *testing.T) {
	r := NewRun("/media/usb0")
	_, err := uuid.Parse(r.ID)
	assert.NoError(t, err)
	assert.Equal(t, OutcomeRunning, r.Outcome)
	assert.NotEqual(t, r.ID, NewRun("/media/usb0").ID)
}

func TestPutGet(t *testing.T) {
	j, _ := tempJournal(t)
	r := NewRun("/media/usb0")
	require.NoError(t, j.Put(r))

	r.Outcome = OutcomeOK
	r.Files = 3
	r.Bytes = 1234
	r.Finished = r.Started.Add(time.Second)
	require.NoError(t, j.Put(r))

	got, err := j.Get(r.ID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeOK, got.Outcome)
	assert.Equal(t, 3, got.Files)
	assert.EqualValues(t, 1234, got.Bytes)
	assert.True(t, r.Started.Equal(got.Started))

	n, err := j.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, n, "update must not duplicate the run")
}

func TestGetNotFound(t *testing.T) {
	j, _ := tempJournal(t)
	_, err := j.Get("nope")
	assert.True(t, errors.Is(err, ErrRunNotFound))
}

func TestPutInvalid(t *testing.T) {
	j, _ := tempJournal(t)
	assert.ErrorIs(t, j.Put(nil), ErrInvalidRun)
	assert.ErrorIs(t, j.Put(&Run{ID: "x"}), ErrInvalidRun)
	assert.ErrorIs(t, j.Put(&Run{Started: time.Now()}), ErrInvalidRun)
}

func TestRecentNewestFirst(t *testing.T) {
	j, _ := tempJournal(t)
	base := time.Now()
	var ids []string
	for i := 0; i < 5; i++ {
		r := NewRun("/media/usb")
		r.Started = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, j.Put(r))
		ids = append(ids, r.ID)
	}
	runs, err := j.Recent(3)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, ids[4], runs[0].ID)
	assert.Equal(t, ids[3], runs[1].ID)
	assert.Equal(t, ids[2], runs[2].ID)

	all, err := j.Recent(0)
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestPersistence(t *testing.T) {
	j, path := tempJournal(t)
	r := NewRun("/media/usb0")
	r.Outcome = OutcomeError
	r.Error = "disk full"
	require.NoError(t, j.Put(r))
	require.NoError(t, j.Close())

	j2, err := Open(path)
	require.NoError(t, err)
	defer j2.Close()
	got, err := j2.Get(r.ID)
	require.NoError(t, err)
	assert.Equal(t, "disk full", got.Error)
}

func TestOpenLocked(t *testing.T) {
	_, path := tempJournal(t)
	_, err := Open(path)
	require.Error(t, err)
	assert.Equal(t, exitcodes.Journal, exitcodes.Code(err))
}
