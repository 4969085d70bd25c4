package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"
	"time"
)

// logbookHeader is the fixed column layout of the send log
var logbookHeader = []string{"timestamp", "recipient", "servers", "status", "error"}

// Logbook appends one CSV line per send attempt
type Logbook struct {
	path string
}

// NewLogbook creates a logbook writing to the given path
func NewLogbook(path string) *Logbook {
	return &Logbook{path: path}
}

// Append writes one line for the result, creating the file with a header row
// on first use
func (l *Logbook) Append(result SendResult) error {
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("opening send log %s: %w", l.path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("checking send log: %w", err)
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(logbookHeader); err != nil {
			return fmt.Errorf("writing send log header: %w", err)
		}
	}

	errText := ""
	if result.Error != nil {
		errText = result.Error.Error()
	}
	record := []string{
		result.SentAt.UTC().Format(time.RFC3339),
		result.Recipient,
		strings.Join(result.Servers, ";"),
		string(result.Status),
		errText,
	}
	if err := w.Write(record); err != nil {
		return fmt.Errorf("writing send log line: %w", err)
	}

	w.Flush()
	return w.Error()
}
