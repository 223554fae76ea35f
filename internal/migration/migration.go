// Package migration runs the pipeline end to end: read the dump, parse it,
// extract records, deduplicate rolls, validate, then report or export.
package migration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/sdvmigrate/internal/dump"
	"github.com/JonMunkholm/sdvmigrate/internal/export"
	"github.com/JonMunkholm/sdvmigrate/internal/extract"
	"github.com/JonMunkholm/sdvmigrate/internal/logging"
	"github.com/JonMunkholm/sdvmigrate/internal/mapping"
	"github.com/JonMunkholm/sdvmigrate/internal/model"
	"github.com/JonMunkholm/sdvmigrate/internal/report"
	"github.com/JonMunkholm/sdvmigrate/internal/rolls"
	"github.com/JonMunkholm/sdvmigrate/internal/validate"
)

// ErrOutput is returned when a report or workbook directory cannot be created.
var ErrOutput = errors.New("create output dir")

// Options configures a run.
type Options struct {
	Input        string
	Encoding     string // empty means dump.DefaultEncoding
	MappingsPath string // optional YAML overlay
	DateFallback string // empty means clean.DefaultDateFallback
}

// Run is a loaded and validated dump.
type Run struct {
	ID        string
	Input     string
	StartedAt time.Time
	Tables    dump.Tables
	Result    *validate.Result
	Discovery report.Discovery

	// RollChanges lists every reassigned roll number.
	RollChanges []rolls.Change
}

// Load reads and processes the dump named by opts.
func Load(ctx context.Context, opts Options) (*Run, error) {
	run := &Run{
		ID:        uuid.NewString(),
		Input:     opts.Input,
		StartedAt: time.Now().UTC(),
	}

	logger := logging.WithFields(ctx, "run_id", run.ID, "input", opts.Input)
	ctx = logging.NewContext(ctx, logger)

	mappings, err := mapping.Load(opts.MappingsPath)
	if err != nil {
		return nil, err
	}

	content, err := dump.ReadFile(opts.Input, opts.Encoding)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	run.Tables = dump.Parse(content)
	logger.Info("dump parsed", "bytes", len(content), "tables", len(run.Tables))

	ds := extract.New(mappings, opts.DateFallback).Extract(ctx, run.Tables)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	run.RollChanges = dedupe(ds)
	if len(run.RollChanges) > 0 {
		logger.Info("roll numbers reassigned", "count", len(run.RollChanges))
	}

	run.Result = validate.Validate(ds)
	logger.Info("validation complete",
		"errors", len(run.Result.Errors),
		"warnings", len(run.Result.Warnings),
		"orphan_receipts", len(run.Result.OrphanReceipts),
	)

	run.Discovery = report.NewDiscovery(run.ID, opts.Input, content, run.Tables, ds, run.StartedAt)
	return run, nil
}

// dedupe makes rolls unique in place and records each change as a fix.
func dedupe(ds *model.Dataset) []rolls.Change {
	var all []rolls.Change
	for _, session := range ds.Sessions() {
		students, changes := rolls.Deduplicate(ds.Students[session])
		ds.Students[session] = students
		for _, c := range changes {
			ds.Fixes = append(ds.Fixes, model.Fix{
				Category: "student",
				ID:       c.StudentID,
				Field:    "roll",
				Original: c.From,
				Fixed:    c.To,
			})
		}
		all = append(all, changes...)
	}
	return all
}

// Context returns ctx carrying the default logger tagged with the run ID.
// A request ID in ctx is still added by logging.FromContext.
func (r *Run) Context(ctx context.Context) context.Context {
	return logging.NewContext(ctx, slog.Default().With("run_id", r.ID))
}

// WriteDiscovery writes the discovery report into dir and returns its path.
func (r *Run) WriteDiscovery(dir string) (string, error) {
	if err := ensureDir(dir); err != nil {
		return "", err
	}
	path := filepath.Join(dir, report.DiscoveryFile)
	if err := report.WriteDiscovery(path, r.Discovery); err != nil {
		return "", err
	}
	return path, nil
}

// ValidationReport returns the persisted form of the validation result.
func (r *Run) ValidationReport() validate.Report {
	return r.Result.Report(r.ID, r.StartedAt)
}

// WriteValidation writes the validation report into dir and returns its path.
func (r *Run) WriteValidation(dir string) (string, error) {
	if err := ensureDir(dir); err != nil {
		return "", err
	}
	path := filepath.Join(dir, validate.ReportFile)
	if err := validate.WriteReport(path, r.ValidationReport()); err != nil {
		return "", err
	}
	return path, nil
}

// Export writes workbooks for session, or for every session when session is
// empty, and returns their paths.
func (r *Run) Export(ctx context.Context, opts export.Options, session string) ([]string, error) {
	if err := ensureDir(opts.OutputDir); err != nil {
		return nil, err
	}
	return export.New(opts).Export(r.Context(ctx), r.Result, session)
}

func ensureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w %s: %v", ErrOutput, dir, err)
	}
	return nil
}
