package gourdiansink

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// LogEntry is a single log record produced by the upstream pipeline. The sink
// persists Message verbatim; Level and Fields exist so pipeline-side
// formatters and filters can act on them before calling Write.
type LogEntry struct {
	Level   LogLevel
	Message string
	Fields  map[string]interface{}
}

// Formatter renders a LogEntry to the text that ends up on disk. The pipeline
// applies the sink's formatter (if any) before submitting entries, mirroring
// how per-transport formats work in multi-sink pipelines.
type Formatter interface {
	Format(entry LogEntry) string
}

// PlainFormatter renders entries as "timestamp [LEVEL] message {k=v, ...}".
type PlainFormatter struct {
	TimestampFormat string
}

func (f PlainFormatter) Format(entry LogEntry) string {
	var builder strings.Builder
	builder.Grow(256)

	builder.WriteString(time.Now().Format(f.timestampFormat()))
	builder.WriteByte(' ')
	builder.WriteByte('[')
	builder.WriteString(entry.Level.String())
	builder.WriteByte(']')
	builder.WriteByte(' ')
	builder.WriteString(entry.Message)

	if len(entry.Fields) > 0 {
		builder.WriteString(" {")
		first := true
		for k, v := range entry.Fields {
			if !first {
				builder.WriteString(", ")
			}
			first = false
			builder.WriteString(k)
			builder.WriteByte('=')
			fmt.Fprintf(&builder, "%v", v)
		}
		builder.WriteByte('}')
	}

	return builder.String()
}

func (f PlainFormatter) timestampFormat() string {
	if f.TimestampFormat == "" {
		return defaultTimestampFormat
	}
	return f.TimestampFormat
}

// JSONFormatter renders entries as single-line JSON objects with timestamp,
// level, message and any structured fields.
type JSONFormatter struct {
	TimestampFormat string
	PrettyPrint     bool
}

func (f JSONFormatter) Format(entry LogEntry) string {
	tsFormat := f.TimestampFormat
	if tsFormat == "" {
		tsFormat = defaultTimestampFormat
	}

	record := make(map[string]interface{}, len(entry.Fields)+3)
	record["timestamp"] = time.Now().Format(tsFormat)
	record["level"] = entry.Level.String()
	record["message"] = entry.Message
	for k, v := range entry.Fields {
		record[k] = v
	}

	var data []byte
	var err error
	if f.PrettyPrint {
		data, err = json.MarshalIndent(record, "", "  ")
	} else {
		data, err = json.Marshal(record)
	}
	if err != nil {
		return fmt.Sprintf(`{"error":"failed to marshal log entry: %v"}`, err)
	}
	return string(data)
}
