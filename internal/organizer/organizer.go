// Package organizer moves processed files into a destination directory
// without ever overwriting a file that is already there.
package organizer

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// maxAttempts bounds the search for a free "<stem>_<N><ext>" name.
const maxAttempts = 10000

// ErrNoFreeName is returned when every candidate name in the destination is taken.
var ErrNoFreeName = errors.New("no free destination name")

// Organizer relocates files. The zero value is ready to use.
type Organizer struct {
	// link and rename are swapped in tests.
	link   func(oldname, newname string) error
	rename func(oldname, newname string) error
}

// New creates an organizer backed by the host filesystem.
func New() *Organizer {
	return &Organizer{}
}

// CandidateName returns the name tried on the n-th collision; n = 0 is the
// original name.
func CandidateName(name string, n int) string {
	if n == 0 {
		return name
	}
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	return stem + "_" + strconv.Itoa(n) + ext
}

// Move relocates sourcePath into destDir and returns the final path. On error
// the source file is left where it was.
func (o *Organizer) Move(sourcePath, destDir string) (string, error) {
	info, err := os.Stat(sourcePath)
	if err != nil {
		return "", fmt.Errorf("stat source: %w", err)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("source %s is not a regular file", sourcePath)
	}

	name := filepath.Base(sourcePath)
	for n := 0; n < maxAttempts; n++ {
		target := filepath.Join(destDir, CandidateName(name, n))

		err := o.claim(sourcePath, target)
		if err == nil {
			return target, nil
		}
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		return "", fmt.Errorf("move %s to %s: %w", sourcePath, target, err)
	}
	return "", fmt.Errorf("move %s: %w", sourcePath, ErrNoFreeName)
}

// claim moves source to target only if target does not exist. A hard link
// reserves the name atomically; filesystems without hard links fall back to
// check-then-rename.
func (o *Organizer) claim(source, target string) error {
	link := o.link
	if link == nil {
		link = os.Link
	}
	rename := o.rename
	if rename == nil {
		rename = os.Rename
	}

	err := link(source, target)
	switch {
	case err == nil:
		if err := os.Remove(source); err != nil {
			os.Remove(target)
			return err
		}
		return nil
	case errors.Is(err, fs.ErrExist):
		return err
	}

	if _, statErr := os.Lstat(target); statErr == nil {
		return fs.ErrExist
	} else if !errors.Is(statErr, fs.ErrNotExist) {
		return statErr
	}
	return rename(source, target)
}
