package gourdiansink

import "errors"

var (
	// ErrEmptyFilename is returned when the required base filename is missing.
	ErrEmptyFilename = errors.New("gourdiansink: filename is required")

	// ErrSinkClosed is returned by operations on a closed sink.
	ErrSinkClosed = errors.New("gourdiansink: sink is closed")

	// ErrInvalidMaxBytes is returned when MaxBytes is negative.
	ErrInvalidMaxBytes = errors.New("gourdiansink: MaxBytes cannot be negative")

	// ErrInvalidMaxFiles is returned when MaxFiles is negative.
	ErrInvalidMaxFiles = errors.New("gourdiansink: MaxFiles cannot be negative")

	// ErrInvalidMaxLogRate is returned when MaxLogRate is negative.
	ErrInvalidMaxLogRate = errors.New("gourdiansink: MaxLogRate cannot be negative")

	// ErrInvalidBufferSize is returned when BufferSize is negative.
	ErrInvalidBufferSize = errors.New("gourdiansink: BufferSize cannot be negative")

	// ErrInvalidOpenMode is returned when OpenMode is not "exclusive" or "append".
	ErrInvalidOpenMode = errors.New("gourdiansink: invalid open mode")

	// ErrInvalidLevel is returned when the configured level name is unknown.
	ErrInvalidLevel = errors.New("gourdiansink: invalid log level")

	// ErrUnsupportedFormat is returned for config files that are neither JSON nor YAML.
	ErrUnsupportedFormat = errors.New("gourdiansink: unsupported config format")
)
