package gourdiansink

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	kjson "github.com/knadh/koanf/parsers/json"
	kyaml "github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

var (
	defaultLogsDir               = "."
	defaultDatePattern           = "2006-01-02"
	defaultBufferSize            = 4096
	defaultTimestampFormat       = "2006-01-02 15:04:05.000000"
	defaultMaxBytes        int64 = 0
	defaultMaxFiles              = 0
	defaultEnableFallback        = true
)

// SinkConfig defines the configuration for a rotating file sink.
//
// Filename is the only required field. All other fields have working
// defaults: unlimited file size, unlimited retained files, whole-day rotation
// in local time, exclusive-create allocation.
type SinkConfig struct {
	// Filename is the base log filename, e.g. "app.log". The active file on
	// disk is named "<Filename>.<formatted-date>" inside LogsDir. Required.
	Filename string `json:"filename"`

	// LogsDir is the directory holding the sink's files. Defaults to the
	// process working directory. Created recursively if absent.
	LogsDir string `json:"logs_dir"`

	// DatePattern is the time.Format layout producing the rotation bucket
	// suffix. Defaults to "2006-01-02" (whole-day rotation). Finer layouts
	// rotate at finer granularity; the policy is pattern-driven, not
	// hard-coded to days.
	DatePattern string `json:"date_pattern"`

	// MaxBytes caps the active file size. When a pending write would make the
	// flushed size reach or exceed MaxBytes, the sink rotates first.
	// 0 means unlimited.
	MaxBytes int64 `json:"max_bytes"`

	// MaxFiles is how many of the sink's files (active one included) are kept
	// on disk. After each rotation older files beyond the count are deleted,
	// or archived when ArchiveOldLogs is set. 0 means unlimited.
	MaxFiles int `json:"max_files"`

	// UTC selects UTC bucket formatting. Defaults to false (local time).
	UTC bool `json:"utc"`

	// ArchiveOldLogs makes the retention pruner gzip files instead of
	// deleting them.
	ArchiveOldLogs bool `json:"archive_old_logs"`

	// OpenModeStr selects the file allocation policy: "exclusive" (default)
	// or "append".
	OpenModeStr string `json:"open_mode"`

	// Level is the string form of MinLevel, used when loading from JSON/YAML.
	Level string `json:"level"`

	// MaxLogRate limits accepted writes per second. 0 disables limiting.
	MaxLogRate int `json:"max_log_rate"`

	// BufferSize is the in-memory write buffer size in bytes.
	BufferSize int `json:"buffer_size"`

	EnableFallback bool `json:"enable_fallback"`

	// MinLevel is the minimum severity the sink records. The upstream
	// pipeline reads it via Sink.MinLevel; the sink also enforces it.
	MinLevel LogLevel `json:"-"`

	// Formatter is carried for the upstream pipeline (see Sink.Formatter).
	// The sink itself writes entry.Message verbatim.
	Formatter Formatter `json:"-"`

	// ErrorHandler receives runtime diagnostics (dropped writes, failed
	// rotations, failed prunes). When nil, diagnostics go to the fallback
	// writer.
	ErrorHandler func(error) `json:"-"`

	// Clock supplies the current time. Defaults to the system clock.
	Clock Clock `json:"-"`
}

// DefaultConfig returns a config with the package defaults applied, still
// missing the required Filename.
func DefaultConfig() SinkConfig {
	return SinkConfig{
		LogsDir:        defaultLogsDir,
		DatePattern:    defaultDatePattern,
		MaxBytes:       defaultMaxBytes,
		MaxFiles:       defaultMaxFiles,
		BufferSize:     defaultBufferSize,
		EnableFallback: defaultEnableFallback,
	}
}

func (sc *SinkConfig) Validate() error {
	if strings.TrimSpace(sc.Filename) == "" {
		return ErrEmptyFilename
	}
	if sc.MaxBytes < 0 {
		return ErrInvalidMaxBytes
	}
	if sc.MaxFiles < 0 {
		return ErrInvalidMaxFiles
	}
	if sc.MaxLogRate < 0 {
		return ErrInvalidMaxLogRate
	}
	if sc.BufferSize < 0 {
		return ErrInvalidBufferSize
	}
	if _, err := ParseOpenMode(sc.OpenModeStr); err != nil {
		return err
	}
	if sc.Level != "" {
		if _, err := ParseLogLevel(sc.Level); err != nil {
			return fmt.Errorf("%w: %s", ErrInvalidLevel, sc.Level)
		}
	}
	return nil
}

// applyDefaults fills zero-valued optional fields in place.
func (sc *SinkConfig) applyDefaults() {
	if sc.LogsDir == "" {
		sc.LogsDir = defaultLogsDir
	}
	if sc.DatePattern == "" {
		sc.DatePattern = defaultDatePattern
	}
	if sc.BufferSize == 0 {
		sc.BufferSize = defaultBufferSize
	}
	if sc.Clock == nil {
		sc.Clock = systemClock{}
	}
	if sc.Level != "" {
		sc.MinLevel, _ = ParseLogLevel(sc.Level)
	}
}

// WithConfig builds a sink from a JSON configuration document.
//
// Example:
//
//	sink, err := gourdiansink.WithConfig(`{
//	    "filename": "app.log",
//	    "logs_dir": "logs",
//	    "max_bytes": 5000000,
//	    "max_files": 3,
//	    "level": "warn"
//	}`)
func WithConfig(jsonCfg string) (*Sink, error) {
	return fromBytes([]byte(jsonCfg), kjson.Parser())
}

// WithConfigFile builds a sink from a JSON or YAML configuration file,
// detecting the format from the file extension.
func WithConfigFile(path string) (*Sink, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return fromBytes(data, kjson.Parser())
	case ".yaml", ".yml":
		return fromBytes(data, kyaml.Parser())
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

func fromBytes(data []byte, parser koanf.Parser) (*Sink, error) {
	k := koanf.New(".")
	if err := k.Load(rawbytes.Provider(data), parser); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	config := DefaultConfig()
	if err := k.UnmarshalWithConf("", &config, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return NewGourdianSink(config)
}
