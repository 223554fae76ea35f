// Package report renders the discovery summary of a dump.
package report

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/JonMunkholm/sdvmigrate/internal/dump"
	"github.com/JonMunkholm/sdvmigrate/internal/model"
)

// DiscoveryFile is the file name the discovery report is written under.
const DiscoveryFile = "discovery_report.txt"

// SessionCount is the number of students in one session.
type SessionCount struct {
	Session  string `json:"session"`
	Students int    `json:"students"`
}

// TableStat describes one parsed table.
type TableStat struct {
	Name       string `json:"name"`
	Columns    int    `json:"columns"`
	Rows       int    `json:"rows"`
	Statements int    `json:"statements"`
	Mismatched int    `json:"mismatched"`
}

// Discovery summarizes a dump without exporting anything.
type Discovery struct {
	RunID       string         `json:"run_id"`
	Source      string         `json:"source"`
	Fingerprint string         `json:"fingerprint"`
	Bytes       int            `json:"bytes"`
	GeneratedAt time.Time      `json:"generated_at"`
	Totals      model.Counts   `json:"totals"`
	Sessions    []SessionCount `json:"sessions"`
	Tables      []TableStat    `json:"tables"`
}

// Fingerprint returns the xxhash64 digest of the dump content as hex.
// Two runs over the same dump report the same fingerprint.
func Fingerprint(content string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(content))
}

// NewDiscovery builds the discovery summary.
func NewDiscovery(runID, source, content string, tables dump.Tables, ds *model.Dataset, now time.Time) Discovery {
	d := Discovery{
		RunID:       runID,
		Source:      source,
		Fingerprint: Fingerprint(content),
		Bytes:       len(content),
		GeneratedAt: now,
		Totals:      ds.Counts(),
		Sessions:    []SessionCount{},
		Tables:      []TableStat{},
	}

	for _, session := range ds.Sessions() {
		d.Sessions = append(d.Sessions, SessionCount{Session: session, Students: len(ds.Students[session])})
	}

	for _, name := range tables.Names() {
		t := tables[name]
		d.Tables = append(d.Tables, TableStat{
			Name:       name,
			Columns:    len(t.Columns),
			Rows:       len(t.Rows),
			Statements: t.Statements,
			Mismatched: t.Mismatched,
		})
	}

	return d
}

// WriteTo renders the report as plain text.
func (d Discovery) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	bw := bufio.NewWriter(cw)

	fmt.Fprintln(bw, "SDV Data Migration - Discovery Report")
	fmt.Fprintln(bw, "=====================================")
	fmt.Fprintln(bw)
	fmt.Fprintf(bw, "Source File: %s\n", d.Source)
	fmt.Fprintf(bw, "Fingerprint: xxhash64:%s (%d bytes)\n", d.Fingerprint, d.Bytes)
	fmt.Fprintf(bw, "Run ID: %s\n", d.RunID)
	fmt.Fprintf(bw, "Generated: %s\n", d.GeneratedAt.Format(time.RFC3339))
	fmt.Fprintln(bw)

	fmt.Fprintln(bw, "1. Data Summary")
	fmt.Fprintf(bw, "   Total Students: %d\n", d.Totals.Students)
	fmt.Fprintf(bw, "   Total Receipts: %d\n", d.Totals.Receipts)
	fmt.Fprintf(bw, "   Total Demand Bills: %d\n", d.Totals.Bills)
	fmt.Fprintf(bw, "   Total Discounts: %d\n", d.Totals.Discounts)
	fmt.Fprintln(bw)

	fmt.Fprintln(bw, "2. Sessions Found:")
	for _, s := range d.Sessions {
		fmt.Fprintf(bw, "   - %s: %d students\n", s.Session, s.Students)
	}
	fmt.Fprintln(bw)

	fmt.Fprintln(bw, "3. Tables Parsed:")
	tw := tabwriter.NewWriter(bw, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "   TABLE\tCOLUMNS\tROWS\tSTATEMENTS\tMISMATCHED")
	for _, t := range d.Tables {
		fmt.Fprintf(tw, "   %s\t%d\t%d\t%d\t%d\n", t.Name, t.Columns, t.Rows, t.Statements, t.Mismatched)
	}
	if err := tw.Flush(); err != nil {
		return cw.n, err
	}

	err := bw.Flush()
	return cw.n, err
}

// WriteDiscovery writes d to path.
func WriteDiscovery(path string, d Discovery) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create discovery report: %w", err)
	}
	if _, err := d.WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("write discovery report: %w", err)
	}
	return f.Close()
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
