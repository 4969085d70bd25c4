package main

import (
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"
)

// pendingStatus is the status value that selects a row for inclusion in a run
const pendingStatus = "Pending"

// Fixed column positions in the tracking sheet
const (
	colServer = iota
	colApplication
	colRecipient
	colCC
	colStatus
)

// ReadRows opens the workbook and reads the fixed columns from the named
// sheet, starting at row 2 through the last used row. Malformed rows are
// logged and skipped without aborting the run.
func ReadRows(path, sheet string) ([]Row, error) {
	wb, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening spreadsheet %s: %w", path, err)
	}
	defer func() {
		if err := wb.Close(); err != nil {
			log.Printf("Warning: closing spreadsheet: %v", err)
		}
	}()

	cells, err := wb.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("reading sheet %q: %w", sheet, err)
	}

	rows := make([]Row, 0, len(cells))
	for i, cell := range cells {
		if i == 0 {
			continue // header row
		}
		if len(cell) <= colRecipient {
			log.Printf("Skipping malformed row %d: only %d columns", i+1, len(cell))
			continue
		}
		row := Row{
			Server:      strings.TrimSpace(cell[colServer]),
			Application: strings.TrimSpace(cell[colApplication]),
			Recipient:   strings.TrimSpace(cell[colRecipient]),
		}
		if len(cell) > colCC {
			row.CC = strings.TrimSpace(cell[colCC])
		}
		if len(cell) > colStatus {
			row.Status = strings.TrimSpace(cell[colStatus])
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Aggregate groups pending rows by recipient. Server names keep first-seen
// order; applications and CC addresses are deduplicated. Recipients are
// returned in sorted order so repeat runs are reproducible.
func Aggregate(rows []Row) []Notification {
	byRecipient := make(map[string]*Notification)
	seenServers := make(map[string]map[string]bool)
	seenApps := make(map[string]map[string]bool)
	seenCCs := make(map[string]map[string]bool)

	for _, row := range rows {
		if !strings.EqualFold(row.Status, pendingStatus) {
			continue
		}
		if row.Recipient == "" {
			continue
		}

		key := strings.ToLower(row.Recipient)
		n, ok := byRecipient[key]
		if !ok {
			n = &Notification{Recipient: row.Recipient}
			byRecipient[key] = n
			seenServers[key] = make(map[string]bool)
			seenApps[key] = make(map[string]bool)
			seenCCs[key] = make(map[string]bool)
		}

		if row.Server != "" && !seenServers[key][row.Server] {
			seenServers[key][row.Server] = true
			n.Servers = append(n.Servers, row.Server)
		}
		if row.Application != "" && !seenApps[key][row.Application] {
			seenApps[key][row.Application] = true
			n.Applications = append(n.Applications, row.Application)
		}
		for _, cc := range splitAddresses(row.CC) {
			lower := strings.ToLower(cc)
			if lower == key {
				continue // recipient already gets the mail directly
			}
			if !seenCCs[key][lower] {
				seenCCs[key][lower] = true
				n.CCs = append(n.CCs, cc)
			}
		}
	}

	keys := make([]string, 0, len(byRecipient))
	for key := range byRecipient {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	notifications := make([]Notification, 0, len(keys))
	for _, key := range keys {
		notifications = append(notifications, *byRecipient[key])
	}
	return notifications
}

// splitAddresses splits a carbon-copy cell on semicolons and commas
func splitAddresses(cell string) []string {
	if cell == "" {
		return nil
	}
	fields := strings.FieldsFunc(cell, func(r rune) bool {
		return r == ';' || r == ','
	})
	addresses := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			addresses = append(addresses, f)
		}
	}
	return addresses
}
