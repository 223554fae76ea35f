package validate

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/JonMunkholm/sdvmigrate/internal/model"
)

// ReportFile is the file name the validation report is written under.
const ReportFile = "validation_log.json"

// ReportCounts summarizes a validation run.
type ReportCounts struct {
	model.Counts
	Errors   int `json:"errors"`
	Warnings int `json:"warnings"`
	Orphans  int `json:"orphan_receipts"`
}

// Report is the persisted form of a Result.
type Report struct {
	RunID          string             `json:"run_id"`
	GeneratedAt    time.Time          `json:"generated_at"`
	Counts         ReportCounts       `json:"counts"`
	Errors         []Error            `json:"errors"`
	Warnings       []model.Fix        `json:"warnings"`
	OrphanReceipts []model.FeeReceipt `json:"orphan_receipts"`
}

// Report builds the persisted form of r.
func (r *Result) Report(runID string, generatedAt time.Time) Report {
	return Report{
		RunID:       runID,
		GeneratedAt: generatedAt.UTC(),
		Counts: ReportCounts{
			Counts:   r.Counts(),
			Errors:   len(r.Errors),
			Warnings: len(r.Warnings),
			Orphans:  len(r.OrphanReceipts),
		},
		Errors:         nonNil(r.Errors),
		Warnings:       nonNil(r.Warnings),
		OrphanReceipts: nonNil(r.OrphanReceipts),
	}
}

// WriteReport writes rep as indented JSON to path.
func WriteReport(path string, rep Report) error {
	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return fmt.Errorf("encode validation report: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write validation report: %w", err)
	}
	return nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
