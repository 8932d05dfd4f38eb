package main

import (
	"log"

	"github.com/gourdian25/gourdiansink"
)

func main() {
	config := gourdiansink.DefaultConfig()
	config.Filename = "example.log"
	config.LogsDir = "logs"
	config.MaxBytes = 1024 * 1024
	config.MaxFiles = 5
	config.Formatter = gourdiansink.PlainFormatter{}

	sink, err := gourdiansink.NewGourdianSink(config)
	if err != nil {
		log.Fatalf("Failed to create sink: %v", err)
	}
	defer sink.Close()

	// A pipeline would filter on sink.MinLevel() and render with
	// sink.Formatter() before calling Write; do the same by hand here.
	format := sink.Formatter()

	entries := []gourdiansink.LogEntry{
		{Level: gourdiansink.INFO, Message: "Server started successfully"},
		{Level: gourdiansink.WARN, Message: "Disk space is running low"},
		{Level: gourdiansink.ERROR, Message: "Failed to connect to database"},
		{
			Level:   gourdiansink.INFO,
			Message: "User registration completed",
			Fields:  map[string]interface{}{"user_id": 123, "operation": "signup"},
		},
	}

	for _, entry := range entries {
		if entry.Level < sink.MinLevel() {
			continue
		}
		entry.Message = format.Format(entry)
		sink.Write(entry)
	}

	if err := sink.Flush(); err != nil {
		log.Fatalf("Failed to flush sink: %v", err)
	}
	log.Printf("Wrote entries to %s", sink.CurrentFile())
}
