package gourdiansink

import (
	"fmt"
	"os"
	"time"
)

// bucketFor returns the rotation bucket string for t: the configured date
// pattern applied after the timezone conversion. Two times in the same bucket
// share an active file.
func (s *Sink) bucketFor(t time.Time) string {
	if s.config.UTC {
		t = t.UTC()
	} else {
		t = t.Local()
	}
	return t.Format(s.config.DatePattern)
}

// shouldRotate evaluates both rotation triggers for a pending write of
// pending bytes. Either trigger alone signals rotation, so the triggering
// entry lands in the new file. Caller must hold s.mu.
func (s *Sink) shouldRotate(pending int) bool {
	if s.bucketFor(s.clock.Now()) != s.bucket {
		return true
	}

	if s.config.MaxBytes > 0 {
		return s.flushedSize()+int64(pending) >= s.config.MaxBytes
	}
	return false
}

// flushedSize reports the on-disk size of the active file. Buffered bytes are
// flushed first so the size trigger never under-counts. Failures degrade to
// size 0 and a diagnostic. Caller must hold s.mu.
func (s *Sink) flushedSize() int64 {
	if err := s.writer.Flush(); err != nil {
		s.handleError(fmt.Errorf("flush before size probe failed: %w", err))
		return 0
	}

	info, err := s.file.Stat()
	if err != nil {
		s.handleError(fmt.Errorf("size probe failed: %w", err))
		return 0
	}
	return info.Size()
}

// rotate swaps in a freshly allocated file for the bucket at now. The old
// handle is flushed and closed the instant it is replaced; a failed
// allocation leaves the current file in place so no entries are lost.
// Caller must hold s.mu.
func (s *Sink) rotate(now time.Time) error {
	derived := deriveFilename(s.config.Filename, now, s.config.DatePattern, s.config.UTC)

	// In append mode a rotation inside the same bucket derives a name that
	// is already in use, or already full from an earlier rotation, so an
	// append open would reopen a file this rotation is meant to retire.
	// Fall back to unique allocation so the new handle is a new file.
	mode := s.openMode
	if mode == OpenAppend && s.bucketFor(now) == s.bucket {
		mode = OpenExclusive
	}

	file, err := allocateFile(s.config.LogsDir, derived, mode)
	if err != nil {
		return err
	}

	if err := s.writer.Flush(); err != nil {
		s.handleError(fmt.Errorf("flush of rotated file failed: %w", err))
	}
	if err := s.file.Close(); err != nil {
		s.handleError(fmt.Errorf("close of rotated file failed: %w", err))
	}

	s.file = file
	s.writer.Reset(file)
	s.currentPath = file.Name()
	s.bucket = s.bucketFor(now)

	if s.config.MaxFiles > 0 {
		select {
		case s.pruneChan <- struct{}{}:
		default:
		}
	}
	return nil
}

// openActiveFile derives the filename for now and allocates a handle for it
// under the configured open mode.
func (s *Sink) openActiveFile(now time.Time) (*os.File, error) {
	derived := deriveFilename(s.config.Filename, now, s.config.DatePattern, s.config.UTC)
	return allocateFile(s.config.LogsDir, derived, s.openMode)
}
