// Package gourdiansink provides a rotating log-file write target for Go
// logging pipelines.
//
// Overview:
// GourdianSink is the file-persistence end of a logging pipeline: it accepts
// already-rendered log entries and appends them to a date-stamped file,
// switching to a new file when a time boundary or a size threshold is
// crossed, and optionally pruning or archiving old files. Formatting, level
// dispatch and fan-out to other sinks belong to the pipeline; the sink
// exposes MinLevel and Formatter accessors so the pipeline can do that work
// before calling Write.
//
// Key Features:
// - Pattern-driven time rotation (day, hour, minute - any time.Format layout)
// - Size-based rotation measured against flushed bytes
// - Exclusive-create file allocation that never reuses a path
// - Append mode for restart-friendly single-file-per-bucket layouts
// - Retention pruning with optional gzip archiving
// - Rate limiting of accepted writes
// - Injectable clock for deterministic boundary tests
// - Pluggable diagnostic error handling
// - Thread-safe operations
//
// Getting Started:
//
// Basic example:
//
//	package main
//
//	import "github.com/gourdian25/gourdiansink"
//
//	func main() {
//	    sink, err := gourdiansink.NewDefaultGourdianSink()
//	    if err != nil {
//	        panic(err)
//	    }
//	    defer sink.Close() // Important for flushing buffers
//
//	    sink.Write(gourdiansink.LogEntry{
//	        Level:   gourdiansink.INFO,
//	        Message: "Application starting",
//	    })
//	}
//
// Configuration:
//
// The sink can be configured either programmatically or via JSON/YAML:
//
// Programmatic configuration:
//
//	config := gourdiansink.DefaultConfig()
//	config.Filename = "app.log"
//	config.LogsDir = "logs"
//	config.DatePattern = "2006-01-02" // whole-day buckets
//	config.MaxBytes = 10 * 1024 * 1024
//	config.MaxFiles = 5
//	sink, err := gourdiansink.NewGourdianSink(config)
//
// JSON configuration:
//
//	jsonCfg := `{
//	    "filename": "app.log",
//	    "logs_dir": "logs",
//	    "date_pattern": "2006-01-02",
//	    "max_bytes": 5000000,
//	    "max_files": 3,
//	    "level": "warn"
//	}`
//	sink, err := gourdiansink.WithConfig(jsonCfg)
//
// On-Disk Layout:
//
// The active file is named "<filename>.<formatted-date>" inside LogsDir. In
// exclusive-create mode a collision within the same bucket appends a numeric
// suffix, so rapid rotations produce:
//
//	app.log.2024-01-01
//	app.log.2024-01-01_1
//	app.log.2024-01-01_2
//
// In append mode the bucket filename is reopened for append instead, so a
// process restart within the same day keeps writing to the same file.
//
// Rotation:
//
// Every Write evaluates two independent triggers before touching the file.
// The time trigger compares the bucket string for the current wall-clock time
// against the bucket the active file was opened for; the size trigger (when
// MaxBytes is set) checks whether the pending entry would push the flushed
// file size to or past the limit. Either trigger rotates, and the triggering
// entry is written to the new file - never to the old one, and never dropped.
//
// Retention:
//
// When MaxFiles is set, a background pruner runs after each rotation and
// deletes the sink's oldest files beyond the count. With ArchiveOldLogs set,
// pruned files are gzip-compressed in place instead of deleted.
//
// Error Handling:
//
// Write never returns an error: a sink must not crash its host application,
// so runtime write and rotation failures go to the configured ErrorHandler
// (or stderr) and the entry is dropped. Flush is the exception and returns an
// explicit error, because callers invoking it at shutdown rely on the
// durability guarantee. Construction fails outright when the filename is
// missing or the initial file cannot be created.
//
// Timezone:
//
// Bucket strings are formatted in local time by default; set UTC to pin them
// to UTC. Pick one mode per base filename and keep it - switching modes can
// map the same wall-clock instant to a different bucket name.
//
// Concurrency:
//
// Any number of goroutines may call Write and Flush concurrently. Entries
// are appended in the order their writes acquire the sink's lock, and lines
// are never interleaved. The sink assumes a single process owns a given base
// filename.
package gourdiansink
