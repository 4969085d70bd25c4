package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	_ "modernc.org/sqlite"
)

func main() {
	if len(os.Args) < 3 {
		log.Fatal("Usage: history <list|prune> <database-path> [days]")
	}

	command := os.Args[1]
	dbPath := os.Args[2]

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		log.Fatalf("Opening database %s: %v", dbPath, err)
	}
	defer db.Close()

	switch command {
	case "list":
		if err := listFollowUps(db); err != nil {
			log.Fatal(err)
		}
	case "prune":
		days := 90
		if len(os.Args) > 3 {
			days, err = strconv.Atoi(os.Args[3])
			if err != nil {
				log.Fatalf("Invalid day count %q: %v", os.Args[3], err)
			}
		}
		if err := pruneFollowUps(db, days); err != nil {
			log.Fatal(err)
		}
	default:
		log.Fatalf("Unknown command %q", command)
	}
}

// listFollowUps prints the tracking table ordered by recipient
func listFollowUps(db *sql.DB) error {
	rows, err := db.Query(`
		SELECT email, subject, status, follow_up_count, last_follow_up_at
		FROM followups ORDER BY email, subject
	`)
	if err != nil {
		return fmt.Errorf("querying followups: %w", err)
	}
	defer rows.Close()

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RECIPIENT\tSUBJECT\tSTATUS\tCOUNT\tLAST FOLLOW-UP")

	count := 0
	for rows.Next() {
		var email, subject, status, last string
		var followUps int
		if err := rows.Scan(&email, &subject, &status, &followUps, &last); err != nil {
			return fmt.Errorf("scanning row: %w", err)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", email, truncate(subject, 60), status, followUps, last)
		count++
	}
	if err := rows.Err(); err != nil {
		return err
	}

	w.Flush()
	fmt.Printf("\n%d tracked pairs\n", count)
	return nil
}

// pruneFollowUps deletes rows whose last follow-up is older than the cutoff
func pruneFollowUps(db *sql.DB, days int) error {
	cutoff := time.Now().AddDate(0, 0, -days).UTC().Format(time.RFC3339)

	res, err := db.Exec("DELETE FROM followups WHERE last_follow_up_at < ?", cutoff)
	if err != nil {
		return fmt.Errorf("pruning followups: %w", err)
	}

	removed, err := res.RowsAffected()
	if err != nil {
		return err
	}
	fmt.Printf("Removed %d rows older than %d days\n", removed, days)
	return nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "…"
}
