package gourdiansink

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// OpenMode selects how the sink obtains a file handle for a derived filename.
type OpenMode int

const (
	// OpenExclusive creates a file that did not previously exist, retrying
	// with a numeric suffix on collision. No two allocations ever share a path.
	OpenExclusive OpenMode = iota

	// OpenAppend opens-or-creates the derived filename for append. Reopening
	// the same bucket filename (e.g. after a restart within the same day) is
	// expected and reuses the file.
	OpenAppend
)

func (m OpenMode) String() string {
	switch m {
	case OpenExclusive:
		return "exclusive"
	case OpenAppend:
		return "append"
	default:
		return "unknown"
	}
}

// ParseOpenMode converts a case-insensitive mode name to its OpenMode.
func ParseOpenMode(mode string) (OpenMode, error) {
	switch strings.ToLower(mode) {
	case "", "exclusive":
		return OpenExclusive, nil
	case "append":
		return OpenAppend, nil
	default:
		return OpenExclusive, fmt.Errorf("%w: %s", ErrInvalidOpenMode, mode)
	}
}

// deriveFilename maps a base path and a timestamp to the concrete on-disk
// filename "<base>.<formatted-date>". The timestamp is converted to UTC or
// local time per utc before formatting with pattern, a time.Format reference
// layout. Pure and deterministic: an invalid layout yields a garbled suffix,
// which is a caller configuration concern, not an error.
func deriveFilename(basePath string, t time.Time, pattern string, utc bool) string {
	if utc {
		t = t.UTC()
	} else {
		t = t.Local()
	}

	dir, name := filepath.Split(basePath)
	if name == "" {
		name = "log"
	}
	return filepath.Join(dir, name+"."+t.Format(pattern))
}

// allocateFile obtains an open handle for the desired filename inside dir,
// creating the directory tree first. In exclusive mode the returned handle is
// guaranteed to refer to a path that did not exist before the call.
func allocateFile(dir, filename string, mode OpenMode) (*os.File, error) {
	fullPath := filepath.Join(dir, filename)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	if mode == OpenAppend {
		file, err := os.OpenFile(fullPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		return file, nil
	}

	return createUniqueFile(dir, filename)
}

// createUniqueFile attempts a create-exclusive open of filename, retrying as
// "<filename>_1", "<filename>_2", ... while the path already exists.
// Collisions are rare (rapid rotations within one bucket), so the unbounded
// retry terminates quickly in practice.
func createUniqueFile(dir, filename string) (*os.File, error) {
	for counter := 0; ; counter++ {
		candidate := filename
		if counter > 0 {
			candidate = fmt.Sprintf("%s_%d", filename, counter)
		}

		file, err := os.OpenFile(filepath.Join(dir, candidate), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
		if err == nil {
			return file, nil
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("failed to create log file: %w", err)
		}
	}
}
