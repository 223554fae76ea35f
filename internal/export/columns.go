package export

// columns.go holds the field-to-header contract for each workbook section.
// Header text must match the destination system's import template exactly.

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/JonMunkholm/sdvmigrate/internal/clean"
	"github.com/JonMunkholm/sdvmigrate/internal/model"
)

// Section names, in workbook order.
const (
	SheetStudents  = "Students"
	SheetReceipts  = "Fee_Receipts"
	SheetBills     = "Demand_Bills"
	SheetDiscounts = "Discounts"
	SheetHistory   = "Academic_History"
)

// Values filled in at export time when the record has none.
const (
	CollectedBy       = "Migration"
	ReceiptRemarks    = "Legacy Import"
	BillStatusPending = "PENDING"
	ApprovedBy        = "Administrator"

	fallbackBillMonth = 4
	fallbackBillYear  = 2024
)

// Column maps one record field to one header.
type Column[T any] struct {
	Header string
	Value  func(T) any
}

// Headers returns the headers of cols in order.
func Headers[T any](cols []Column[T]) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.Header
	}
	return out
}

var studentColumns = []Column[model.Student]{
	{"Student ID *", func(s model.Student) any { return s.ID }},
	{"Name *", func(s model.Student) any { return s.Name }},
	{"Father Name *", func(s model.Student) any { return s.FatherName }},
	{"Mother Name *", func(s model.Student) any { return s.MotherName }},
	{"DOB (DD-MM-YYYY) *", func(s model.Student) any { return s.DOB }},
	{"Gender *", func(s model.Student) any { return s.Gender }},
	{"Class *", func(s model.Student) any { return s.Class }},
	{"Section *", func(s model.Student) any { return s.Section }},
	{"Roll Number", func(s model.Student) any { return s.Roll }},
	{"Admission Date (DD-MM-YYYY) *", func(s model.Student) any { return s.AdmissionDate }},
	{"Phone *", func(s model.Student) any { return s.Phone }},
	{"Email", func(s model.Student) any { return s.Email }},
	{"Address *", func(s model.Student) any { return s.Address }},
	{"Student Aadhar", func(s model.Student) any { return s.NationalID }},
	{"Category", func(s model.Student) any { return s.Category }},
	{"Religion", func(s model.Student) any { return s.Religion }},
	{"Status", func(s model.Student) any { return s.Status }},
	{"Session Name", func(s model.Student) any { return s.Session }},
	{"Father Occ.", func(s model.Student) any { return s.FatherOccupation }},
	{"Father Aadhar", func(s model.Student) any { return s.FatherNationalID }},
	{"Mother Occ.", func(s model.Student) any { return s.MotherOccupation }},
	{"Mother Aadhar", func(s model.Student) any { return s.MotherNationalID }},
	{"WhatsApp No", func(s model.Student) any { return s.WhatsApp }},
}

var receiptColumns = []Column[model.FeeReceipt]{
	{"Student ID *", func(r model.FeeReceipt) any { return r.StudentID }},
	{"Receipt No *", func(r model.FeeReceipt) any { return r.ReceiptNo }},
	{"Receipt Date (DD-MM-YYYY) *", func(r model.FeeReceipt) any { return r.ReceiptDate }},
	{"Fee Type *", func(r model.FeeReceipt) any { return r.FeeType }},
	{"Amount *", func(r model.FeeReceipt) any { return number(r.Amount) }},
	{"Discount", func(r model.FeeReceipt) any { return number(r.Discount) }},
	{"Net Amount *", func(r model.FeeReceipt) any { return number(r.Net()) }},
	{"Payment Mode *", func(r model.FeeReceipt) any { return r.PaymentMode }},
	{"Payment Ref", func(r model.FeeReceipt) any { return r.PaymentRef }},
	{"Collected By", func(model.FeeReceipt) any { return CollectedBy }},
	{"Remarks", func(model.FeeReceipt) any { return ReceiptRemarks }},
	{"Bill No (if against bill)", func(r model.FeeReceipt) any { return r.BillNo }},
}

var billColumns = []Column[model.DemandBill]{
	{"Student ID *", func(b model.DemandBill) any { return b.StudentID }},
	{"Bill No *", func(b model.DemandBill) any { return b.BillNo }},
	{"Bill Date (DD-MM-YYYY) *", func(b model.DemandBill) any { return b.BillDate }},
	{"Due Date (DD-MM-YYYY) *", func(b model.DemandBill) any { return b.BillDate }},
	{"Month (1-12) *", func(b model.DemandBill) any { return billMonth(b.BillDate) }},
	{"Year *", func(b model.DemandBill) any { return billYear(b.BillDate) }},
	{"Fee Type *", func(b model.DemandBill) any { return b.FeeType }},
	{"Amount *", func(b model.DemandBill) any { return number(b.Amount) }},
	{"Net Amount *", func(b model.DemandBill) any { return number(b.NetAmount) }},
	{"Status *", func(model.DemandBill) any { return BillStatusPending }},
}

var discountColumns = []Column[model.Discount]{
	{"Student ID *", func(d model.Discount) any { return d.StudentID }},
	{"Fee Type *", func(d model.Discount) any { return d.FeeType }},
	{"Discount Type *", func(d model.Discount) any { return d.Kind }},
	{"Discount Value *", func(d model.Discount) any { return number(d.Amount) }},
	{"Reason", func(d model.Discount) any { return d.Reason }},
	{"Approved By", func(model.Discount) any { return ApprovedBy }},
	{"Session Name", func(d model.Discount) any { return d.Session }},
}

var historyColumns = []Column[model.AcademicRecord]{
	{"Student ID *", func(h model.AcademicRecord) any { return h.StudentID }},
	{"Session *", func(h model.AcademicRecord) any { return h.Session }},
	{"Class *", func(h model.AcademicRecord) any { return h.Class }},
	{"Section *", func(h model.AcademicRecord) any { return h.Section }},
	{"Roll Number", func(h model.AcademicRecord) any { return h.Roll }},
	{"Status *", func(h model.AcademicRecord) any { return h.Status }},
}

// number converts an amount to a spreadsheet number.
func number(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}

// billMonth returns the month of a DD-MM-YYYY bill date.
func billMonth(date string) int {
	t, err := time.Parse(clean.DateLayout, date)
	if err != nil {
		return fallbackBillMonth
	}
	return int(t.Month())
}

// billYear returns the year of a DD-MM-YYYY bill date.
func billYear(date string) int {
	t, err := time.Parse(clean.DateLayout, date)
	if err != nil {
		return fallbackBillYear
	}
	return t.Year()
}
