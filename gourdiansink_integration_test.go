package gourdiansink

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func listSinkFiles(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	var names []string
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	return names
}

// TestIntegrationTimeBoundaryRotation tests that crossing a bucket boundary
// produces two files, each holding only its own side's entries
func TestIntegrationTimeBoundaryRotation(t *testing.T) {
	t.Parallel()

	clock := newFakeClock(time.Date(2024, 1, 1, 23, 59, 59, 0, time.UTC))
	config := testConfig(t)
	config.Clock = clock

	sink, err := NewGourdianSink(config)
	require.NoError(t, err)
	defer sink.Close()

	sink.Write(LogEntry{Level: INFO, Message: "before midnight"})
	require.NoError(t, sink.Flush())

	firstFile := sink.CurrentFile()
	assert.Equal(t, filepath.Join(config.LogsDir, "test.log.2024-01-01"), firstFile)

	clock.Advance(2 * time.Second)
	sink.Write(LogEntry{Level: INFO, Message: "after midnight"})
	require.NoError(t, sink.Flush())

	secondFile := sink.CurrentFile()
	assert.Equal(t, filepath.Join(config.LogsDir, "test.log.2024-01-02"), secondFile)

	before, err := os.ReadFile(firstFile)
	require.NoError(t, err)
	assert.Equal(t, "before midnight\n", string(before))

	after, err := os.ReadFile(secondFile)
	require.NoError(t, err)
	assert.Equal(t, "after midnight\n", string(after))
}

// TestIntegrationFineGrainedPattern tests that rotation granularity follows
// the pattern, not a hard-coded day
func TestIntegrationFineGrainedPattern(t *testing.T) {
	t.Parallel()

	clock := newFakeClock(time.Date(2024, 1, 1, 10, 0, 30, 0, time.UTC))
	config := testConfig(t)
	config.Clock = clock
	config.DatePattern = "2006-01-02_15-04"

	sink, err := NewGourdianSink(config)
	require.NoError(t, err)
	defer sink.Close()

	sink.Write(LogEntry{Level: INFO, Message: "minute one"})
	clock.Advance(time.Minute)
	sink.Write(LogEntry{Level: INFO, Message: "minute two"})
	require.NoError(t, sink.Flush())

	files := listSinkFiles(t, config.LogsDir)
	assert.Len(t, files, 2)
	assert.Contains(t, files, "test.log.2024-01-01_10-00")
	assert.Contains(t, files, "test.log.2024-01-01_10-01")
}

// TestIntegrationSizeRotation tests that reaching the size threshold sends
// the next write to a new file without touching the old file's tail
func TestIntegrationSizeRotation(t *testing.T) {
	t.Parallel()

	clock := newFakeClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	config := testConfig(t)
	config.Clock = clock
	config.MaxBytes = 100

	sink, err := NewGourdianSink(config)
	require.NoError(t, err)
	defer sink.Close()

	message := strings.Repeat("a", 60)
	sink.Write(LogEntry{Level: INFO, Message: message})
	firstFile := sink.CurrentFile()

	// 61 flushed + 61 pending >= 100: the next write must rotate first
	sink.Write(LogEntry{Level: INFO, Message: message})
	secondFile := sink.CurrentFile()
	require.NoError(t, sink.Flush())

	assert.NotEqual(t, firstFile, secondFile)
	assert.Equal(t, filepath.Join(config.LogsDir, "test.log.2024-01-01"), firstFile)
	assert.Equal(t, filepath.Join(config.LogsDir, "test.log.2024-01-01_1"), secondFile)

	first, err := os.ReadFile(firstFile)
	require.NoError(t, err)
	assert.Equal(t, message+"\n", string(first), "prior file's trailing bytes must be intact")

	second, err := os.ReadFile(secondFile)
	require.NoError(t, err)
	assert.Equal(t, message+"\n", string(second))
}

// TestIntegrationSizeRotationCumulative tests rotation after many small writes
func TestIntegrationSizeRotationCumulative(t *testing.T) {
	t.Parallel()

	clock := newFakeClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	config := testConfig(t)
	config.Clock = clock
	config.MaxBytes = 256

	sink, err := NewGourdianSink(config)
	require.NoError(t, err)
	defer sink.Close()

	for i := 0; i < 50; i++ {
		sink.Write(LogEntry{Level: INFO, Message: fmt.Sprintf("entry %02d", i)})
	}
	require.NoError(t, sink.Flush())

	totalLines := 0
	for _, name := range listSinkFiles(t, config.LogsDir) {
		data, err := os.ReadFile(filepath.Join(config.LogsDir, name))
		require.NoError(t, err)
		assert.LessOrEqual(t, int64(len(data)), config.MaxBytes)
		totalLines += strings.Count(string(data), "\n")
	}
	assert.Equal(t, 50, totalLines, "rotation must never drop entries")
}

// TestIntegrationAppendModeRestart tests that append mode reuses the bucket
// file across sink lifetimes
func TestIntegrationAppendModeRestart(t *testing.T) {
	t.Parallel()

	clock := newFakeClock(time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC))
	config := testConfig(t)
	config.Clock = clock
	config.OpenModeStr = "append"

	sink, err := NewGourdianSink(config)
	require.NoError(t, err)
	sink.Write(LogEntry{Level: INFO, Message: "first run"})
	require.NoError(t, sink.Close())

	reopened, err := NewGourdianSink(config)
	require.NoError(t, err)
	reopened.Write(LogEntry{Level: INFO, Message: "second run"})
	require.NoError(t, reopened.Close())

	files := listSinkFiles(t, config.LogsDir)
	require.Len(t, files, 1)

	data, err := os.ReadFile(filepath.Join(config.LogsDir, files[0]))
	require.NoError(t, err)
	assert.Equal(t, "first run\nsecond run\n", string(data))
}

// TestIntegrationAppendModeSizeRotation tests that a size-triggered rotation
// in append mode allocates a new suffixed file instead of reopening the full
// bucket file, rotation after rotation
func TestIntegrationAppendModeSizeRotation(t *testing.T) {
	t.Parallel()

	clock := newFakeClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	config := testConfig(t)
	config.Clock = clock
	config.OpenModeStr = "append"
	config.MaxBytes = 100

	sink, err := NewGourdianSink(config)
	require.NoError(t, err)
	defer sink.Close()

	// Each write is 61 bytes, so every write after the first trips the size
	// trigger and must land in a file of its own.
	message := strings.Repeat("a", 60)
	for i := 0; i < 3; i++ {
		sink.Write(LogEntry{Level: INFO, Message: message})
	}
	require.NoError(t, sink.Flush())

	files := listSinkFiles(t, config.LogsDir)
	require.Len(t, files, 3)
	assert.Contains(t, files, "test.log.2024-01-01")
	assert.Contains(t, files, "test.log.2024-01-01_1")
	assert.Contains(t, files, "test.log.2024-01-01_2")

	for _, name := range files {
		data, err := os.ReadFile(filepath.Join(config.LogsDir, name))
		require.NoError(t, err)
		assert.Equal(t, message+"\n", string(data),
			"no file may grow past the threshold in append mode")
	}
}

// TestIntegrationManualRotate tests forced rotation
func TestIntegrationManualRotate(t *testing.T) {
	t.Parallel()

	clock := newFakeClock(time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC))
	config := testConfig(t)
	config.Clock = clock

	sink, err := NewGourdianSink(config)
	require.NoError(t, err)
	defer sink.Close()

	sink.Write(LogEntry{Level: INFO, Message: "old file"})
	firstFile := sink.CurrentFile()

	require.NoError(t, sink.Rotate())
	sink.Write(LogEntry{Level: INFO, Message: "new file"})
	require.NoError(t, sink.Flush())

	assert.NotEqual(t, firstFile, sink.CurrentFile())

	old, err := os.ReadFile(firstFile)
	require.NoError(t, err)
	assert.Equal(t, "old file\n", string(old))
}

// TestIntegrationRetentionPrune tests that pruning keeps the newest files
func TestIntegrationRetentionPrune(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 1; i <= 5; i++ {
		name := fmt.Sprintf("test.log.2024-01-%02d", i)
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte("old\n"), 0644))
		mtime := base.AddDate(0, 0, i)
		require.NoError(t, os.Chtimes(path, mtime, mtime))
	}

	config := DefaultConfig()
	config.Filename = "test.log"
	config.LogsDir = dir
	config.MaxFiles = 3
	config.EnableFallback = false

	sink := &Sink{config: config}
	sink.prune()

	files := listSinkFiles(t, dir)
	assert.ElementsMatch(t, []string{
		"test.log.2024-01-03",
		"test.log.2024-01-04",
		"test.log.2024-01-05",
	}, files)
}

// TestIntegrationRetentionAfterRotation tests end-to-end pruning through the
// background worker
func TestIntegrationRetentionAfterRotation(t *testing.T) {
	t.Parallel()

	clock := newFakeClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	config := testConfig(t)
	config.Clock = clock
	config.MaxFiles = 2

	sink, err := NewGourdianSink(config)
	require.NoError(t, err)
	defer sink.Close()

	for day := 0; day < 5; day++ {
		sink.Write(LogEntry{Level: INFO, Message: fmt.Sprintf("day %d", day)})
		clock.Advance(24 * time.Hour)
	}
	require.NoError(t, sink.Flush())

	assert.Eventually(t, func() bool {
		return len(listSinkFiles(t, config.LogsDir)) == config.MaxFiles
	}, 3*time.Second, 20*time.Millisecond, "pruner should trim to MaxFiles")
}

// TestIntegrationArchiveOnPrune tests gzip archiving instead of deletion
func TestIntegrationArchiveOnPrune(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 1; i <= 3; i++ {
		name := fmt.Sprintf("test.log.2024-01-%02d", i)
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(fmt.Sprintf("contents %d\n", i)), 0644))
		mtime := base.AddDate(0, 0, i)
		require.NoError(t, os.Chtimes(path, mtime, mtime))
	}

	config := DefaultConfig()
	config.Filename = "test.log"
	config.LogsDir = dir
	config.MaxFiles = 1
	config.ArchiveOldLogs = true
	config.EnableFallback = false

	sink := &Sink{config: config}
	sink.prune()

	files := listSinkFiles(t, dir)
	assert.ElementsMatch(t, []string{
		"test.log.2024-01-01.gz",
		"test.log.2024-01-02.gz",
		"test.log.2024-01-03",
	}, files)

	// Archived contents must round-trip
	archive, err := os.Open(filepath.Join(dir, "test.log.2024-01-01.gz"))
	require.NoError(t, err)
	defer archive.Close()

	reader, err := gzip.NewReader(archive)
	require.NoError(t, err)
	defer reader.Close()

	contents, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, "contents 1\n", string(contents))

	// Archives are not pruned again
	sink.prune()
	assert.ElementsMatch(t, files, listSinkFiles(t, dir))
}

// TestIntegrationRateLimiting tests that the write rate limit drops excess entries
func TestIntegrationRateLimiting(t *testing.T) {
	t.Parallel()

	config := testConfig(t)
	config.MaxLogRate = 10

	sink, err := NewGourdianSink(config)
	require.NoError(t, err)
	defer sink.Close()

	for i := 0; i < 100; i++ {
		sink.Write(LogEntry{Level: INFO, Message: fmt.Sprintf("message %d", i)})
	}
	require.NoError(t, sink.Flush())

	data, err := os.ReadFile(sink.CurrentFile())
	require.NoError(t, err)

	lines := strings.Count(string(data), "\n")
	assert.Greater(t, lines, 0, "some writes must pass the limiter")
	assert.Less(t, lines, 100, "limiter should drop excess writes")
}

// TestIntegrationDiagnosticsObservable tests that runtime faults surface on
// the injected diagnostic channel instead of crashing the host
func TestIntegrationDiagnosticsObservable(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var diags []error

	config := testConfig(t)
	config.Clock = newFakeClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	config.ErrorHandler = func(err error) {
		mu.Lock()
		defer mu.Unlock()
		diags = append(diags, err)
	}

	sink, err := NewGourdianSink(config)
	require.NoError(t, err)

	// Force a write failure by closing the handle behind the sink's back.
	sink.mu.Lock()
	sink.file.Close()
	sink.mu.Unlock()

	sink.Write(LogEntry{Level: INFO, Message: strings.Repeat("x", defaultBufferSize)})

	mu.Lock()
	count := len(diags)
	mu.Unlock()
	assert.Greater(t, count, 0, "write failure must be reported, not returned")

	sink.Close()
}

// TestIntegrationConstructionFailure tests that an unusable directory fails
// sink creation outright
func TestIntegrationConstructionFailure(t *testing.T) {
	t.Parallel()

	config := DefaultConfig()
	config.Filename = "test.log"
	config.LogsDir = filepath.Join(t.TempDir(), "blocked")

	// Occupy the directory path with a regular file
	require.NoError(t, os.WriteFile(config.LogsDir, []byte("in the way"), 0644))

	_, err := NewGourdianSink(config)
	assert.Error(t, err)
}
