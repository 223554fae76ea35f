// Package export writes validated records to import workbooks: one per
// session plus one consolidated workbook.
//
// Header policy is permissive. With a template, each section keeps the
// template's row-1 headers, mapped headers the template lacks are appended
// on the right, and headers with no mapping are left empty. A section absent
// from the template is added. Without a template a fresh workbook is built
// from the mapped headers alone.
package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/xuri/excelize/v2"
	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/sdvmigrate/internal/logging"
	"github.com/JonMunkholm/sdvmigrate/internal/model"
	"github.com/JonMunkholm/sdvmigrate/internal/validate"
)

// ConsolidatedName is the session label of the all-sessions workbook.
const ConsolidatedName = "Consolidated"

var (
	// ErrUnknownSession is returned when a requested session has no students.
	ErrUnknownSession = errors.New("session not found")

	// ErrTemplate is returned when the template workbook cannot be used.
	ErrTemplate = errors.New("template workbook unusable")
)

// Options configures an Exporter.
type Options struct {
	OutputDir    string
	Template     string // optional
	Workers      int    // concurrent session workbooks; <1 means 1
	Consolidated bool   // also write the consolidated workbook on full exports
}

// Workbook is the content of one output file.
type Workbook struct {
	Students  []model.Student
	Receipts  []model.FeeReceipt
	Bills     []model.DemandBill
	Discounts []model.Discount
	History   []model.AcademicRecord
}

// Exporter writes workbooks.
type Exporter struct {
	opts Options
}

// New returns an Exporter.
func New(opts Options) *Exporter {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Exporter{opts: opts}
}

// FileName returns the output file name for a session label.
func FileName(session string) string {
	safe := strings.NewReplacer("/", "-", " ", "_").Replace(session)
	return "Migration_" + safe + ".xlsx"
}

// SessionWorkbook gathers the records of one session.
func SessionWorkbook(res *validate.Result, session string) Workbook {
	return Workbook{
		Students:  res.Students[session],
		Receipts:  res.Receipts[session],
		Bills:     res.Bills[session],
		Discounts: res.Discounts[session],
		History:   model.History(res.Students[session]),
	}
}

// ConsolidatedWorkbook gathers every session's records.
func ConsolidatedWorkbook(res *validate.Result) Workbook {
	students := model.Flatten(res.Students)
	return Workbook{
		Students:  students,
		Receipts:  model.Flatten(res.Receipts),
		Bills:     model.Flatten(res.Bills),
		Discounts: model.Flatten(res.Discounts),
		History:   model.History(students),
	}
}

// Export writes the workbooks for res and returns their paths. A non-empty
// session restricts the export to that session and skips the consolidated
// workbook.
func (e *Exporter) Export(ctx context.Context, res *validate.Result, session string) ([]string, error) {
	logger := logging.FromContext(ctx)

	sessions := res.Sessions()
	if session != "" {
		if !slices.Contains(sessions, session) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownSession, session)
		}
		sessions = []string{session}
	}

	if e.opts.Template != "" {
		if _, err := os.Stat(e.opts.Template); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrTemplate, e.opts.Template, err)
		}
	}
	if err := os.MkdirAll(e.opts.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	paths := make([]string, len(sessions))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Workers)

	for i, s := range sessions {
		i, s := i, s
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			path := filepath.Join(e.opts.OutputDir, FileName(s))
			wb := SessionWorkbook(res, s)
			if err := e.Write(path, wb); err != nil {
				return fmt.Errorf("session %s: %w", s, err)
			}
			logger.Info("workbook written",
				"session", s,
				"path", path,
				"students", len(wb.Students),
				"receipts", len(wb.Receipts),
				"bills", len(wb.Bills),
			)
			paths[i] = path
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	if session == "" && e.opts.Consolidated {
		path := filepath.Join(e.opts.OutputDir, FileName(ConsolidatedName))
		if err := e.Write(path, ConsolidatedWorkbook(res)); err != nil {
			return nil, fmt.Errorf("consolidated: %w", err)
		}
		logger.Info("consolidated workbook written", "path", path)
		paths = append(paths, path)
	}

	return paths, nil
}

// Write writes one workbook to path.
func (e *Exporter) Write(path string, wb Workbook) error {
	f, err := e.open()
	if err != nil {
		return err
	}
	defer f.Close()

	if err := writeSection(f, SheetStudents, studentColumns, wb.Students); err != nil {
		return err
	}
	if err := writeSection(f, SheetReceipts, receiptColumns, wb.Receipts); err != nil {
		return err
	}
	if err := writeSection(f, SheetBills, billColumns, wb.Bills); err != nil {
		return err
	}
	if err := writeSection(f, SheetDiscounts, discountColumns, wb.Discounts); err != nil {
		return err
	}
	if err := writeSection(f, SheetHistory, historyColumns, wb.History); err != nil {
		return err
	}

	// A fresh workbook starts with a default sheet that nothing wrote to.
	if e.opts.Template == "" {
		if idx, _ := f.GetSheetIndex(defaultSheet); idx >= 0 {
			if err := f.DeleteSheet(defaultSheet); err != nil {
				return fmt.Errorf("drop default sheet: %w", err)
			}
		}
		if idx, err := f.GetSheetIndex(SheetStudents); err == nil && idx >= 0 {
			f.SetActiveSheet(idx)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

const defaultSheet = "Sheet1"

func (e *Exporter) open() (*excelize.File, error) {
	if e.opts.Template == "" {
		return excelize.NewFile(), nil
	}
	f, err := excelize.OpenFile(e.opts.Template)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrTemplate, e.opts.Template, err)
	}
	return f, nil
}

// writeSection replaces the data rows of sheet with records.
func writeSection[T any](f *excelize.File, sheet string, cols []Column[T], records []T) error {
	headers, err := sectionHeaders(f, sheet, Headers(cols))
	if err != nil {
		return fmt.Errorf("sheet %s: %w", sheet, err)
	}

	index := make(map[string]int, len(headers))
	for i, h := range headers {
		if _, dup := index[h]; !dup {
			index[h] = i
		}
	}

	for i, rec := range records {
		row := make([]any, len(headers))
		for _, c := range cols {
			row[index[c.Header]] = c.Value(rec)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("sheet %s row %d: %w", sheet, i+2, err)
		}
	}
	return nil
}

// sectionHeaders prepares row 1 of sheet and returns the final header list.
// Existing data rows are removed.
func sectionHeaders(f *excelize.File, sheet string, mapped []string) ([]string, error) {
	idx, err := f.GetSheetIndex(sheet)
	if err != nil {
		return nil, err
	}

	var headers []string
	if idx < 0 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	} else {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, err
		}
		if len(rows) > 0 {
			for _, h := range rows[0] {
				headers = append(headers, strings.TrimSpace(h))
			}
		}
		for r := len(rows); r >= 2; r-- {
			if err := f.RemoveRow(sheet, r); err != nil {
				return nil, err
			}
		}
	}

	for _, h := range mapped {
		if !slices.Contains(headers, h) {
			headers = append(headers, h)
		}
	}

	row := make([]any, len(headers))
	for i, h := range headers {
		if h != "" {
			row[i] = h
		}
	}
	if err := f.SetSheetRow(sheet, "A1", &row); err != nil {
		return nil, err
	}
	return headers, nil
}
