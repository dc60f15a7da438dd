// Package journal persists one record per processed volume in a bbolt
// database, so the state of past runs survives a reboot of the device.
package journal

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"

	"github.com/cryptopuck/cryptopuck/internal/exitcodes"
)

var (
	bucketRuns   = []byte("runs")
	bucketByTime = []byte("runs_by_time")
)

var (
	// ErrRunNotFound is returned by Get for an unknown run ID.
	ErrRunNotFound = errors.New("journal: run not found")
	// ErrInvalidRun is returned by Put for a run without ID or start time.
	ErrInvalidRun = errors.New("journal: invalid run")
)

// Outcome of a run.
const (
	OutcomeRunning = "running"
	OutcomeOK      = "ok"
	OutcomeError   = "error"
)

// Run describes the processing of one volume.
type Run struct {
	ID       string
	Volume   string
	Started  time.Time
	Finished time.Time `json:",omitempty"`
	Outcome  string
	Files    int
	Bytes    uint64
	Skipped  int
	Error    string `json:",omitempty"`
}

// NewRun returns a running Run with a fresh random ID.
func NewRun(volume string) *Run {
	return &Run{
		ID:      uuid.NewString(),
		Volume:  volume,
		Started: time.Now(),
		Outcome: OutcomeRunning,
	}
}

// Journal wraps the bbolt database.
type Journal struct {
	db *bbolt.DB
}

// Open opens or creates the journal at "dbPath". The parent directory is
// created if it does not exist.
func Open(dbPath string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, exitcodes.Errorf(exitcodes.Journal, "journal: create directory: %v", err)
	}
	// Do not hang forever if another instance holds the lock
	db, err := bbolt.Open(dbPath, 0600, &bbolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, exitcodes.Errorf(exitcodes.Journal, "journal: open %s: %v", dbPath, err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketRuns, bucketByTime} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("create bucket %q: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, exitcodes.Errorf(exitcodes.Journal, "journal: %v", err)
	}
	return &Journal{db: db}, nil
}

// Close closes the underlying database.
func (j *Journal) Close() error { return j.db.Close() }

// timeKey sorts by start time first, the ID keeps equal timestamps apart.
func timeKey(r *Run) []byte {
	k := make([]byte, 8, 8+len(r.ID))
	binary.BigEndian.PutUint64(k, uint64(r.Started.UnixNano()))
	return append(k, r.ID...)
}

// Put inserts or updates "r".
func (j *Journal) Put(r *Run) error {
	if r == nil || r.ID == "" || r.Started.IsZero() {
		return ErrInvalidRun
	}
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("journal: encode run: %w", err)
	}
	return j.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket(bucketRuns).Put([]byte(r.ID), data); err != nil {
			return fmt.Errorf("journal: put run: %w", err)
		}
		if err := tx.Bucket(bucketByTime).Put(timeKey(r), []byte(r.ID)); err != nil {
			return fmt.Errorf("journal: put time index: %w", err)
		}
		return nil
	})
}

// Get returns the run with the given ID.
func (j *Journal) Get(id string) (*Run, error) {
	var r Run
	err := j.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketRuns).Get([]byte(id))
		if data == nil {
			return ErrRunNotFound
		}
		return json.Unmarshal(data, &r)
	})
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// Recent returns up to "limit" runs, newest first. limit <= 0 returns all.
func (j *Journal) Recent(limit int) ([]Run, error) {
	var runs []Run
	err := j.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketRuns)
		c := tx.Bucket(bucketByTime).Cursor()
		for k, id := c.Last(); k != nil; k, id = c.Prev() {
			if limit > 0 && len(runs) >= limit {
				break
			}
			data := b.Get(id)
			if data == nil {
				continue
			}
			var r Run
			if err := json.Unmarshal(data, &r); err != nil {
				return fmt.Errorf("journal: decode run %s: %w", id, err)
			}
			runs = append(runs, r)
		}
		return nil
	})
	return runs, err
}

// Count returns the number of stored runs.
func (j *Journal) Count() (int, error) {
	var n int
	err := j.db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket(bucketRuns).Stats().KeyN
		return nil
	})
	return n, err
}
