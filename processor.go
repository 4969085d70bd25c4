// processor.go
package main

import (
	"fmt"
	"log"
	"time"
)

var debugEnabled bool

// SetDebugMode enables or disables debug logging
func SetDebugMode(enabled bool) {
	debugEnabled = enabled
}

func debugLog(format string, args ...interface{}) {
	if debugEnabled {
		log.Printf("[DEBUG] "+format, args...)
	}
}

// Processor handles the main workflow: aggregate the spreadsheet, then for
// each recipient compose, send, track, and log.
type Processor struct {
	config   *Config
	composer *Composer
	sender   Sender
	tracker  *Tracker
	logbook  *Logbook
	dryRun   bool
	delay    time.Duration
}

// NewProcessor wires the pipeline from the loaded configuration
func NewProcessor(cfg *Config, dryRun bool) (*Processor, error) {
	composer, err := NewComposer(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating composer: %w", err)
	}

	tracker, err := OpenTracker(cfg.Settings.Tracking.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("opening tracking database: %w", err)
	}

	return &Processor{
		config:   cfg,
		composer: composer,
		sender:   NewSMTPSender(cfg.Settings),
		tracker:  tracker,
		logbook:  NewLogbook(cfg.Settings.Tracking.LogPath),
		dryRun:   dryRun,
		delay:    time.Duration(cfg.Settings.Mail.SendDelaySeconds) * time.Second,
	}, nil
}

// Close releases the external handles held for the run
func (p *Processor) Close() error {
	return p.tracker.Close()
}

// Run executes the pipeline once and returns one result per recipient
func (p *Processor) Run() ([]SendResult, error) {
	s := p.config.Settings

	rows, err := ReadRows(s.Spreadsheet.Path, s.Spreadsheet.Sheet)
	if err != nil {
		return nil, fmt.Errorf("loading spreadsheet: %w", err)
	}
	debugLog("Read %d rows from %s", len(rows), s.Spreadsheet.Path)

	notifications := Aggregate(rows)
	if len(notifications) == 0 {
		log.Printf("No pending rows found, nothing to send")
		return nil, nil
	}

	log.Printf("Processing %d recipients...", len(notifications))

	results := make([]SendResult, 0, len(notifications))
	for i, n := range notifications {
		log.Printf("[%d/%d] Processing: %s (%d servers)", i+1, len(notifications), n.Recipient, len(n.Servers))
		result := p.processRecipient(n)
		results = append(results, result)

		switch result.Status {
		case StatusSent:
			log.Printf("✓ Sent to %s: %s", result.Recipient, result.Subject)
		case StatusDryRun:
			log.Printf("✓ Dry run for %s (would send: %s)", result.Recipient, result.Subject)
		case StatusSkipped:
			log.Printf("Skipping %s: no servers listed", result.Recipient)
		default:
			log.Printf("✗ Failed %s: %v", result.Recipient, result.Error)
		}

		// Courtesy pause between sends, not needed for correctness
		if result.Status == StatusSent && i < len(notifications)-1 {
			time.Sleep(p.delay)
		}
	}

	sent, failed, skipped := summarize(results)
	log.Printf("Done: %d sent, %d failed, %d skipped", sent, failed, skipped)
	return results, nil
}

// processRecipient handles a single recipient. Every failure is captured in
// the result so the remaining recipients still get processed.
func (p *Processor) processRecipient(n Notification) SendResult {
	result := SendResult{
		Recipient: n.Recipient,
		Servers:   n.Servers,
		SentAt:    time.Now(),
	}

	if len(n.Servers) == 0 {
		result.Status = StatusSkipped
		return result
	}

	msg, err := p.composer.Compose(n)
	if err != nil {
		result.Status = StatusFailed
		result.Error = err
		p.record(result)
		return result
	}
	result.Subject = msg.Subject

	if msg.Attachment != "" {
		debugLog("Attaching %s for %s (%d servers)", msg.Attachment, n.Recipient, len(n.Servers))
	}

	if p.dryRun {
		result.Status = StatusDryRun
		p.record(result)
		return result
	}

	if err := p.sender.Send(msg); err != nil {
		result.Status = StatusFailed
		result.Error = fmt.Errorf("sending mail: %w", err)
	} else {
		result.Status = StatusSent
	}

	p.record(result)
	return result
}

// record writes the tracking row and the log line. Both are best effort: a
// bookkeeping failure is logged and does not fail the recipient.
func (p *Processor) record(result SendResult) {
	// Dry runs are logged but must not inflate follow-up counters
	if result.Status == StatusSent || result.Status == StatusFailed {
		if result.Subject != "" {
			if err := p.tracker.Record(result.Recipient, result.Subject, result.Status, result.SentAt); err != nil {
				log.Printf("Warning: recording follow-up for %s: %v", result.Recipient, err)
			}
		}
	}
	if err := p.logbook.Append(result); err != nil {
		log.Printf("Warning: writing send log for %s: %v", result.Recipient, err)
	}
}

func summarize(results []SendResult) (sent, failed, skipped int) {
	for _, r := range results {
		switch r.Status {
		case StatusSent, StatusDryRun:
			sent++
		case StatusFailed:
			failed++
		case StatusSkipped:
			skipped++
		}
	}
	return sent, failed, skipped
}
