package main

import "time"

// Row represents one spreadsheet row describing a server that is pending an
// application-removal decision.
type Row struct {
	Server      string
	Application string
	Recipient   string
	CC          string
	Status      string
}

// Notification aggregates every pending row for a single recipient.
type Notification struct {
	Recipient    string   // first-seen casing, used on the wire
	Servers      []string // first-seen order, deduplicated
	Applications []string // deduplicated
	CCs          []string // deduplicated
}

// Message is a fully composed notification ready for dispatch.
type Message struct {
	To         string
	CC         []string
	Subject    string
	HTMLBody   string
	Attachment string // source spreadsheet path, empty when below threshold
}

// SendStatus represents the outcome status of processing a recipient
type SendStatus string

const (
	StatusSent    SendStatus = "sent"
	StatusDryRun  SendStatus = "dry-run"
	StatusFailed  SendStatus = "failed"
	StatusSkipped SendStatus = "skipped"
)

// SendResult tracks the outcome of processing each recipient
type SendResult struct {
	Recipient string
	Servers   []string
	Subject   string
	Status    SendStatus
	SentAt    time.Time
	Error     error
}
