// Package extract translates parsed legacy tables into canonical records,
// partitioned by session.
//
// Extraction filters data quality only: rows without the keys needed to place
// a record are skipped, and fee lines with a blank fee type or a non-positive
// amount are dropped. Receipts, bills and discounts are not checked against
// the extracted students here; that is validation's job.
package extract

import (
	"context"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/JonMunkholm/sdvmigrate/internal/clean"
	"github.com/JonMunkholm/sdvmigrate/internal/dump"
	"github.com/JonMunkholm/sdvmigrate/internal/logging"
	"github.com/JonMunkholm/sdvmigrate/internal/mapping"
	"github.com/JonMunkholm/sdvmigrate/internal/model"
)

// Legacy student table and the columns read from it.
const (
	studentTable = "student_details"

	colSession   = "year"
	colStudentID = "student_id"
)

// phoneFallbackFields are searched in order for a phone number when the
// mobile column yields none.
var phoneFallbackFields = []string{"pr1", "pe1", "pr2"}

// addressFields are joined to build the address.
var addressFields = []string{"pr1", "pr2"}

var (
	// phoneInTextRegex finds a standalone 10-digit run in free text, allowing
	// a +91 or trunk-0 prefix.
	phoneInTextRegex = regexp.MustCompile(`(?:^|\D)(?:\+?91[\s-]?|0)?(\d{10})(?:\D|$)`)

	bareTenDigitsRegex = regexp.MustCompile(`^\d{10}$`)
)

// Extractor turns parsed tables into a Dataset.
type Extractor struct {
	mappings     *mapping.Set
	dateFallback string
}

// New returns an Extractor using the given mappings. An empty dateFallback
// selects clean.DefaultDateFallback.
func New(m *mapping.Set, dateFallback string) *Extractor {
	if m == nil {
		m = mapping.Default()
	}
	if dateFallback == "" {
		dateFallback = clean.DefaultDateFallback
	}
	return &Extractor{mappings: m, dateFallback: dateFallback}
}

// Extract runs every extractor over tables. Tables the dump does not contain
// simply contribute nothing.
func (e *Extractor) Extract(ctx context.Context, tables dump.Tables) *model.Dataset {
	logger := logging.FromContext(ctx)
	ds := model.NewDataset()

	e.students(tables, ds)
	logger.Info("extracted students", "count", ds.Counts().Students, "sessions", len(ds.Students))

	for _, src := range receiptSources {
		if !src.available(tables) {
			logger.Debug("receipt source absent", "source", src.name)
			continue
		}
		n := 0
		src.extract(e, tables, func(r model.FeeReceipt) {
			r.Source = src.name
			ds.Receipts[r.Session] = append(ds.Receipts[r.Session], r)
			n++
		}, ds)
		logger.Info("extracted receipts", "source", src.name, "count", n)
	}

	e.bills(tables, ds)
	logger.Info("extracted demand bills", "count", ds.Counts().Bills)

	e.discounts(tables, ds)
	logger.Info("extracted discounts", "count", ds.Counts().Discounts)

	if len(ds.Fixes) > 0 {
		logger.Info("normalizer substitutions", "count", len(ds.Fixes))
	}

	return ds
}

// students extracts student_details rows. Rolls are left as found.
func (e *Extractor) students(tables dump.Tables, ds *model.Dataset) {
	for _, row := range tables.Rows(studentTable) {
		session := strings.TrimSpace(row.Get(colSession))
		if !model.IsSession(session) {
			continue
		}

		id := strings.TrimSpace(row.Get(colStudentID))
		name := clean.Text(row.Get("Student_Name"))
		if id == "" || name == "" {
			continue
		}

		fix := func(field, original, fixed string) {
			ds.Fixes = append(ds.Fixes, model.Fix{
				Category: "student",
				ID:       id,
				Field:    field,
				Original: original,
				Fixed:    fixed,
			})
		}

		phone := e.phone(row, fix)

		class := clean.Text(row.Get("clss"))
		if class == "" {
			class = model.ClassPassOut
		}

		status := model.StatusInactive
		switch {
		case strings.EqualFold(class, model.ClassPassOut):
			status = model.StatusAlumni
		case strings.EqualFold(strings.TrimSpace(row.Get("status")), model.StatusActive):
			status = model.StatusActive
		}

		s := model.Student{
			ID:               id,
			Name:             name,
			FatherName:       clean.Text(row.Get("Father_Name")),
			MotherName:       clean.Text(row.Get("Mother_Name")),
			DOB:              e.date(row.Get("DOB"), "dob", fix),
			Gender:           clean.Gender(row.Get("Sex")),
			Class:            class,
			Section:          orDefault(clean.Text(row.Get("sec")), model.DefaultSection),
			Roll:             clean.Text(row.Get("roll")),
			AdmissionDate:    e.date(row.Get("date"), "admission_date", fix),
			Phone:            phone,
			WhatsApp:         phone,
			Email:            clean.Text(row.Get("email")),
			Address:          orDefault(address(row), model.DefaultAddress),
			NationalID:       clean.NationalID(row.Get("uidNo")),
			Category:         orDefault(clean.Text(row.Get("cate")), model.DefaultCategory),
			Religion:         clean.Text(row.Get("Religion")),
			Status:           status,
			Session:          session,
			FatherOccupation: clean.Text(row.Get("Father_Occupation")),
			MotherOccupation: clean.Text(row.Get("Mother_Occupation")),
			FatherNationalID: clean.NationalID(row.Get("Father_Aadhar")),
			MotherNationalID: clean.NationalID(row.Get("Mother_Aadhar")),
		}

		ds.Students[session] = append(ds.Students[session], s)
	}
}

// phone resolves the student's phone from Mobile_No, falling back to the
// first 10-digit run found in the address fields.
func (e *Extractor) phone(row dump.Row, fix func(field, original, fixed string)) string {
	raw := row.Get("Mobile_No")
	phone, modified := clean.Phone(raw)

	if phone == clean.PhonePlaceholder {
		for _, field := range phoneFallbackFields {
			if m := phoneInTextRegex.FindStringSubmatch(row.Get(field)); m != nil {
				phone = m[1]
				break
			}
		}
	}

	if modified {
		fix("phone", raw, phone)
	}
	return phone
}

// date normalizes a date column, recording a fix when the fallback was used.
func (e *Extractor) date(raw, field string, fix func(field, original, fixed string)) string {
	d, modified := clean.Date(raw, e.dateFallback)
	if modified {
		fix(field, raw, d)
	}
	return d
}

// address joins the cleaned address parts, leaving out parts that are only a
// phone number.
func address(row dump.Row) string {
	var parts []string
	for _, field := range addressFields {
		p := clean.Text(row.Get(field))
		if p == "" || bareTenDigitsRegex.MatchString(p) {
			continue
		}
		parts = append(parts, p)
	}
	return strings.Join(parts, ", ")
}

// validFee reports whether a fee line should be kept.
func validFee(feeType string, amount decimal.Decimal) bool {
	return feeType != "" && !clean.IsPlaceholder(feeType) && amount.IsPositive()
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
