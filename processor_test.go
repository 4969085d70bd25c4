package main

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

// Mock sender for testing
type mockSender struct {
	sent    []*Message
	failFor map[string]error
}

func (m *mockSender) Send(msg *Message) error {
	if err, ok := m.failFor[msg.To]; ok {
		return err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func testProcessor(t *testing.T, xlsxPath string, sender Sender, dryRun bool) *Processor {
	t.Helper()

	dir := t.TempDir()
	settings := &Settings{}
	settings.Spreadsheet.Path = xlsxPath
	settings.Spreadsheet.Sheet = "Servers"
	settings.Notification.SubjectPrefix = "Follow-up"
	settings.Notification.MaxSubjectApps = 3
	settings.Notification.AttachmentThreshold = 5
	settings.Tracking.DatabasePath = filepath.Join(dir, "followups.db")
	settings.Tracking.LogPath = filepath.Join(dir, "sendlog.csv")

	cfg := &Config{Settings: settings}
	composer, err := NewComposer(cfg)
	if err != nil {
		t.Fatalf("NewComposer() error = %v", err)
	}
	tracker, err := OpenTracker(settings.Tracking.DatabasePath)
	if err != nil {
		t.Fatalf("OpenTracker() error = %v", err)
	}
	t.Cleanup(func() { tracker.Close() })

	return &Processor{
		config:   cfg,
		composer: composer,
		sender:   sender,
		tracker:  tracker,
		logbook:  NewLogbook(settings.Tracking.LogPath),
		dryRun:   dryRun,
	}
}

func TestRunOneMessagePerRecipient(t *testing.T) {
	path := writeFixture(t, "Servers", [][]interface{}{
		{"srv01", "AppA", "alice@example.com", "", "Pending"},
		{"srv02", "AppB", "alice@example.com", "", "Pending"},
		{"srv03", "AppC", "bob@example.com", "", "Pending"},
		{"srv04", "AppD", "carol@example.com", "", "Done"},
	})

	sender := &mockSender{}
	p := testProcessor(t, path, sender, false)

	results, err := p.Run()
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(results) != 2 {
		t.Fatalf("Run() returned %d results, want 2 recipients", len(results))
	}
	if len(sender.sent) != 2 {
		t.Fatalf("sender received %d messages, want exactly one per recipient", len(sender.sent))
	}

	seen := make(map[string]int)
	for _, msg := range sender.sent {
		seen[msg.To]++
	}
	for recipient, count := range seen {
		if count != 1 {
			t.Errorf("recipient %s received %d messages, want 1", recipient, count)
		}
	}
	if seen["carol@example.com"] != 0 {
		t.Error("non-Pending recipient received a message")
	}

	// Both servers for alice land in one message
	for _, msg := range sender.sent {
		if msg.To == "alice@example.com" {
			for _, want := range []string{"srv01", "srv02"} {
				if !strings.Contains(msg.HTMLBody, want) {
					t.Errorf("alice's message missing %s", want)
				}
			}
		}
	}
}

func TestRunContinuesAfterSendFailure(t *testing.T) {
	path := writeFixture(t, "Servers", [][]interface{}{
		{"srv01", "AppA", "alice@example.com", "", "Pending"},
		{"srv02", "AppB", "bob@example.com", "", "Pending"},
		{"srv03", "AppC", "carol@example.com", "", "Pending"},
	})

	sender := &mockSender{failFor: map[string]error{
		"bob@example.com": errors.New("mailbox unavailable"),
	}}
	p := testProcessor(t, path, sender, false)

	results, err := p.Run()
	if err != nil {
		t.Fatalf("Run() error = %v (per-recipient failures must not fail the run)", err)
	}

	if len(results) != 3 {
		t.Fatalf("Run() returned %d results, want 3", len(results))
	}

	sent, failed, _ := summarize(results)
	if sent != 2 || failed != 1 {
		t.Errorf("summary = %d sent, %d failed, want 2/1", sent, failed)
	}

	// The failure is recorded with its subject in the tracking store
	for _, r := range results {
		if r.Recipient != "bob@example.com" {
			continue
		}
		if r.Status != StatusFailed {
			t.Errorf("bob status = %q, want %q", r.Status, StatusFailed)
		}
		count, err := p.tracker.FollowUpCount(r.Recipient, r.Subject)
		if err != nil {
			t.Fatalf("FollowUpCount() error = %v", err)
		}
		if count != 1 {
			t.Errorf("failed send tracked count = %d, want 1", count)
		}
	}
}

func TestRunRepeatIncrementsFollowUps(t *testing.T) {
	path := writeFixture(t, "Servers", [][]interface{}{
		{"srv01", "AppA", "alice@example.com", "", "Pending"},
	})

	sender := &mockSender{}
	p := testProcessor(t, path, sender, false)

	for i := 0; i < 2; i++ {
		if _, err := p.Run(); err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	}

	followups, err := p.tracker.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(followups) != 1 {
		t.Fatalf("tracking has %d rows, want 1 per (email, subject) pair", len(followups))
	}
	if followups[0].FollowUpCount != 2 {
		t.Errorf("count = %d, want 2 after repeat run", followups[0].FollowUpCount)
	}
}

func TestRunDryRun(t *testing.T) {
	path := writeFixture(t, "Servers", [][]interface{}{
		{"srv01", "AppA", "alice@example.com", "", "Pending"},
	})

	sender := &mockSender{}
	p := testProcessor(t, path, sender, true)

	results, err := p.Run()
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(sender.sent) != 0 {
		t.Errorf("dry run dispatched %d messages, want 0", len(sender.sent))
	}
	if len(results) != 1 || results[0].Status != StatusDryRun {
		t.Errorf("results = %v, want one dry-run result", results)
	}

	followups, err := p.tracker.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(followups) != 0 {
		t.Errorf("dry run wrote %d tracking rows, want 0", len(followups))
	}

	records := readLog(t, p.config.Settings.Tracking.LogPath)
	if len(records) != 2 {
		t.Fatalf("log has %d records, want header + dry-run line", len(records))
	}
	if records[1][3] != string(StatusDryRun) {
		t.Errorf("log status = %q, want %q", records[1][3], StatusDryRun)
	}
}

func TestRunNoPendingRows(t *testing.T) {
	path := writeFixture(t, "Servers", [][]interface{}{
		{"srv01", "AppA", "alice@example.com", "", "Done"},
	})

	sender := &mockSender{}
	p := testProcessor(t, path, sender, false)

	results, err := p.Run()
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(results) != 0 {
		t.Errorf("Run() returned %d results, want none", len(results))
	}
	if len(sender.sent) != 0 {
		t.Errorf("sender received %d messages, want 0", len(sender.sent))
	}
}

func TestSummarize(t *testing.T) {
	results := []SendResult{
		{Status: StatusSent},
		{Status: StatusSent},
		{Status: StatusDryRun},
		{Status: StatusFailed},
		{Status: StatusSkipped},
	}

	sent, failed, skipped := summarize(results)
	if sent != 3 || failed != 1 || skipped != 1 {
		t.Errorf("summarize() = %d/%d/%d, want 3/1/1", sent, failed, skipped)
	}
}
