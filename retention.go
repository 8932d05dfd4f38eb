package gourdiansink

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/gzip"
)

const archiveSuffix = ".gz"

// retentionWorker prunes old files after rotations. It runs outside the
// write lock so slow directory scans and deletes never stall writers.
func (s *Sink) retentionWorker() {
	defer s.wg.Done()
	for {
		select {
		case <-s.pruneChan:
			s.prune()
		case <-s.pruneCloseChan:
			return
		}
	}
}

// prune removes (or archives, when configured) the sink's oldest files so at
// most MaxFiles remain, the active file counting as the newest. Per-file
// failures are reported and skipped, not retried.
func (s *Sink) prune() {
	if s.config.MaxFiles <= 0 {
		return
	}

	dir := filepath.Dir(filepath.Join(s.config.LogsDir, s.config.Filename))
	prefix := filepath.Base(s.config.Filename) + "."

	entries, err := os.ReadDir(dir)
	if err != nil {
		s.handleError(fmt.Errorf("retention scan failed: %w", err))
		return
	}

	type candidate struct {
		path    string
		modTime int64
	}
	var files []candidate
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, prefix) || strings.HasSuffix(name, archiveSuffix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, candidate{
			path:    filepath.Join(dir, name),
			modTime: info.ModTime().UnixNano(),
		})
	}

	if len(files) <= s.config.MaxFiles {
		return
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].modTime < files[j].modTime
	})

	for _, f := range files[:len(files)-s.config.MaxFiles] {
		if s.config.ArchiveOldLogs {
			if err := archiveFile(f.path); err != nil {
				s.handleError(fmt.Errorf("failed to archive %s: %w", f.path, err))
			}
			continue
		}
		if err := os.Remove(f.path); err != nil {
			s.handleError(fmt.Errorf("failed to remove %s: %w", f.path, err))
		}
	}
}

// archiveFile gzip-compresses path to path+".gz" and removes the original.
// A partial archive left by a failed compress is removed so a retry starts
// clean.
func archiveFile(path string) error {
	src, err := os.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.OpenFile(path+archiveSuffix, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}

	gz := gzip.NewWriter(dst)
	if _, err := io.Copy(gz, src); err != nil {
		gz.Close()
		dst.Close()
		os.Remove(path + archiveSuffix)
		return err
	}
	if err := gz.Close(); err != nil {
		dst.Close()
		os.Remove(path + archiveSuffix)
		return err
	}
	if err := dst.Close(); err != nil {
		os.Remove(path + archiveSuffix)
		return err
	}

	return os.Remove(path)
}
