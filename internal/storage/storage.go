// Package storage manages the recordings folder: naming, creating, listing,
// deleting and repairing WAV files, plus the lock that keeps two recorders
// from writing into the same folder.
package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/hashicorp/go-multierror"

	"github.com/large-farva/wav-recorder/internal/wav"
)

// AppDir is the recordings folder relative to the data root.
const AppDir = "apps_data/wav_recorder"

const (
	nameLayout = "2006_01_02_15_04_05"
	ext        = ".wav"
	lockName   = ".wavrec.lock"
)

var (
	ErrInvalidName  = errors.New("storage: invalid recording name")
	ErrNotFound     = errors.New("storage: recording not found")
	ErrLocked       = errors.New("storage: folder is locked by another recorder")
	ErrNotRecording = errors.New("storage: not a recording written by this recorder")
)

// Create gives up after this many name collisions within one second.
const maxCollisions = 100

// Recording describes one file in the folder. Header fields are zero when
// the header could not be read.
type Recording struct {
	Name            string    `json:"name"`
	Size            int64     `json:"size"`
	ModTime         time.Time `json:"mod_time"`
	SampleRate      uint32    `json:"sample_rate"`
	Samples         uint32    `json:"samples"`
	DurationSeconds float64   `json:"duration_seconds"`
	Valid           bool      `json:"valid"`
}

// Store is the recordings folder under a data root.
type Store struct {
	dir  string
	lock *flock.Flock
}

// Open creates the recordings folder if needed.
func Open(root string) (*Store, error) {
	if root == "" {
		return nil, errors.New("storage: empty data root")
	}
	dir := filepath.Join(root, filepath.FromSlash(AppDir))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", dir, err)
	}
	return &Store{dir: dir, lock: flock.New(filepath.Join(dir, lockName))}, nil
}

// Dir returns the absolute recordings folder.
func (s *Store) Dir() string { return s.dir }

// FileName returns the name of a recording started at t.
func FileName(t time.Time) string {
	return t.Format(nameLayout) + ext
}

// Lock takes the folder lock without waiting.
func (s *Store) Lock() error {
	ok, err := s.lock.TryLock()
	if err != nil {
		return fmt.Errorf("lock %s: %w", s.dir, err)
	}
	if !ok {
		return ErrLocked
	}
	return nil
}

// Unlock releases the folder lock.
func (s *Store) Unlock() error {
	return s.lock.Unlock()
}

// Create creates a new recording for a session started at now and returns
// the open file with its path. An existing file is never reused; a second
// session within the same second gets a _1, _2, ... suffix.
func (s *Store) Create(now time.Time) (*os.File, string, error) {
	base := strings.TrimSuffix(FileName(now), ext)
	for i := 0; i <= maxCollisions; i++ {
		name := base + ext
		if i > 0 {
			name = fmt.Sprintf("%s_%d%s", base, i, ext)
		}
		path := filepath.Join(s.dir, name)
		f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return f, path, nil
		}
		if !os.IsExist(err) {
			return nil, "", fmt.Errorf("create recording: %w", err)
		}
	}
	return nil, "", fmt.Errorf("create recording: %s%s and %d suffixed names exist", base, ext, maxCollisions)
}

// List returns every recording in the folder, newest first.
func (s *Store) List() ([]Recording, error) {
	matches, err := filepath.Glob(filepath.Join(s.dir, "*"+ext))
	if err != nil {
		return nil, err
	}

	recs := make([]Recording, 0, len(matches))
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		rec := Recording{
			Name:    filepath.Base(m),
			Size:    info.Size(),
			ModTime: info.ModTime().UTC(),
		}
		if h, err := readHeader(m); err == nil {
			rec.SampleRate = h.SampleRate
			rec.Samples = h.Samples()
			rec.DurationSeconds = h.DurationSeconds()
			rec.Valid = true
		}
		recs = append(recs, rec)
	}

	sort.Slice(recs, func(i, j int) bool {
		if !recs[i].ModTime.Equal(recs[j].ModTime) {
			return recs[i].ModTime.After(recs[j].ModTime)
		}
		return recs[i].Name > recs[j].Name
	})
	return recs, nil
}

// Delete removes one recording by file name.
func (s *Store) Delete(name string) error {
	path, err := s.resolve(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// Repair fixes the header sizes of one recording from its real length and
// returns the resulting data size. Files without this recorder's canonical
// header are left untouched.
func (s *Store) Repair(name string) (uint32, error) {
	path, err := s.resolve(name)
	if err != nil {
		return 0, err
	}
	if _, err := readHeader(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("%w: %w", ErrNotRecording, err)
	}
	return repairFile(path)
}

// RepairAll repairs every recording, skipping skip (the file currently being
// written, if any). It returns the names it rewrote.
func (s *Store) RepairAll(skip string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(s.dir, "*"+ext))
	if err != nil {
		return nil, err
	}

	var (
		fixed  []string
		result *multierror.Error
	)
	for _, m := range matches {
		name := filepath.Base(m)
		if name == skip {
			continue
		}
		before, err := readHeader(m)
		if err != nil {
			// Not ours, or cut short before a full header.
			continue
		}
		size, err := repairFile(m)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("%s: %w", name, err))
			continue
		}
		if size != before.DataSize {
			fixed = append(fixed, name)
		}
	}
	return fixed, result.ErrorOrNil()
}

func (s *Store) resolve(name string) (string, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") || !strings.HasSuffix(name, ext) {
		return "", ErrInvalidName
	}
	return filepath.Join(s.dir, name), nil
}

func readHeader(path string) (wav.Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return wav.Header{}, err
	}
	defer f.Close()
	return wav.ReadHeader(f)
}

func repairFile(path string) (uint32, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	size, rerr := wav.Repair(f)
	if cerr := f.Close(); rerr == nil {
		rerr = cerr
	}
	return size, rerr
}
