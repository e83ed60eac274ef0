// Package fsutil provides atomic file writes.
//
// Files are written to a temporary file in the target directory, then
// renamed into place, so a partially written file is never visible at the
// final path.
package fsutil

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

const tempPrefix = ".cube-"

// WriteFile atomically replaces target with data, creating parent
// directories as needed.
func WriteFile(target string, data []byte) error {
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, tempPrefix+"*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, target); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}

// WriteInRoot atomically writes data to rel inside root. Paths that would
// escape root are rejected by os.Root. When overwrite is false and rel
// already exists, nothing is written and written is false.
func WriteInRoot(root *os.Root, rel string, data []byte, overwrite bool) (written bool, err error) {
	rel = filepath.FromSlash(rel)
	if !overwrite {
		if _, statErr := root.Stat(rel); statErr == nil {
			return false, nil
		} else if !errors.Is(statErr, fs.ErrNotExist) {
			return false, statErr
		}
	}

	dir := filepath.Dir(rel)
	if err := root.MkdirAll(dir, 0o750); err != nil {
		return false, fmt.Errorf("create directory %s: %w", dir, err)
	}
	tmp, tmpRel, err := createTemp(root, dir)
	if err != nil {
		return false, fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()         //nolint:errcheck // we're cleaning up
		_ = root.Remove(tmpRel) //nolint:errcheck // best-effort cleanup
		return false, err
	}
	if err := tmp.Close(); err != nil {
		_ = root.Remove(tmpRel) //nolint:errcheck // best-effort cleanup
		return false, fmt.Errorf("close temp file: %w", err)
	}
	if err := root.Rename(tmpRel, rel); err != nil {
		_ = root.Remove(tmpRel) //nolint:errcheck // best-effort cleanup
		return false, fmt.Errorf("rename to %s: %w", rel, err)
	}
	return true, nil
}

func createTemp(root *os.Root, dir string) (*os.File, string, error) {
	const attempts = 10
	for range attempts {
		name, err := randomSuffix()
		if err != nil {
			return nil, "", err
		}
		rel := filepath.Join(dir, tempPrefix+name)
		f, err := root.OpenFile(rel, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
		if err == nil {
			return f, rel, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, "", err
		}
	}
	return nil, "", errors.New("create temp file: exhausted retries")
}

func randomSuffix() (string, error) {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(b[:]), nil
}
