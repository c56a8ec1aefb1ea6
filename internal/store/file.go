package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
)

const (
	fileSuffix     = ".json"
	checksumSuffix = ".checksum"
	lockFileName   = ".lock"
	lockRetryDelay = 50 * time.Millisecond
)

// FileStore keeps each key in its own file under dir. Writes go through a
// temporary file and a rename, and a sha256 sidecar detects torn or edited
// files on read. An advisory lock serializes access across processes.
type FileStore struct {
	dir string
	flk *flock.Flock
}

// NewFileStore creates dir if needed and returns a store rooted there.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, errors.New("file store directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory %s: %w", dir, err)
	}

	return &FileStore{
		dir: dir,
		flk: flock.New(filepath.Join(dir, lockFileName)),
	}, nil
}

func (s *FileStore) pathFor(key string) (string, error) {
	if key == "" || strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return "", fmt.Errorf("invalid key %q", key)
	}
	return filepath.Join(s.dir, key+fileSuffix), nil
}

// Get reads the value under key, verifying its checksum when one exists.
func (s *FileStore) Get(ctx context.Context, key string) (string, bool, error) {
	p, err := s.pathFor(key)
	if err != nil {
		return "", false, err
	}

	locked, err := s.flk.TryRLockContext(ctx, lockRetryDelay)
	if err != nil || !locked {
		return "", false, fmt.Errorf("failed to acquire read lock on %s: %w", s.dir, lockErr(err))
	}
	defer func() { _ = s.flk.Unlock() }()

	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to read %s: %w", p, err)
	}

	expected, err := os.ReadFile(p + checksumSuffix)
	switch {
	case err == nil:
		if got := checksum(data); got != strings.TrimSpace(string(expected)) {
			return "", false, fmt.Errorf("checksum mismatch for %s: file is corrupt or was edited", p)
		}
	case errors.Is(err, fs.ErrNotExist):
		// Written by hand or by an older version; the next Set adds a checksum.
	default:
		return "", false, fmt.Errorf("failed to read checksum for %s: %w", p, err)
	}

	return string(data), true, nil
}

// Set atomically replaces the value under key.
func (s *FileStore) Set(ctx context.Context, key, value string) error {
	p, err := s.pathFor(key)
	if err != nil {
		return err
	}

	locked, err := s.flk.TryLockContext(ctx, lockRetryDelay)
	if err != nil || !locked {
		return fmt.Errorf("failed to acquire write lock on %s: %w", s.dir, lockErr(err))
	}
	defer func() { _ = s.flk.Unlock() }()

	tmp := p + ".tmp"
	tmpSum := p + checksumSuffix + ".tmp"
	defer func() { _ = os.Remove(tmp) }()
	defer func() { _ = os.Remove(tmpSum) }()

	if err := os.WriteFile(tmp, []byte(value), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", tmp, err)
	}
	if err := os.WriteFile(tmpSum, []byte(checksum([]byte(value))), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", tmpSum, err)
	}

	// Drop the old checksum first so a crash between the renames leaves a
	// file without a sidecar rather than one with a stale sidecar.
	if err := os.Remove(p + checksumSuffix); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove stale checksum for %s: %w", p, err)
	}
	if err := os.Rename(tmp, p); err != nil {
		return fmt.Errorf("failed to replace %s: %w", p, err)
	}
	if err := os.Rename(tmpSum, p+checksumSuffix); err != nil {
		return fmt.Errorf("failed to replace checksum for %s: %w", p, err)
	}

	return nil
}

// Close releases the advisory lock if held.
func (s *FileStore) Close() error {
	return s.flk.Unlock()
}

func checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func lockErr(err error) error {
	if err != nil {
		return err
	}
	return errors.New("lock not acquired")
}
