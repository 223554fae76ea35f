// Package model defines the canonical records produced by extraction and
// consumed by validation and export. Records are plain values with no
// back-references; every entity other than Student refers to its student by
// identifier only.
package model

import (
	"regexp"
	"sort"

	"github.com/shopspring/decimal"
)

// Student status values.
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
	StatusAlumni   = "alumni"
)

// ClassPassOut is the class label given to students with no class on record.
// Students in this class are always alumni.
const ClassPassOut = "PASS OUT"

// Record defaults applied during extraction.
const (
	DefaultSection        = "A"
	DefaultCategory       = "NA"
	DefaultAddress        = "Address Not Available"
	DefaultPaymentMode    = "Cash"
	DiscountKindFixed     = "Fixed"
	DefaultDiscountReason = "Migrated from legacy system"
)

// sessionRegex matches a session key such as "2024-2025".
var sessionRegex = regexp.MustCompile(`^\d{4}-\d{4}$`)

// IsSession reports whether s is a well-formed session key.
func IsSession(s string) bool {
	return sessionRegex.MatchString(s)
}

// Student is the root entity.
type Student struct {
	ID               string `json:"student_id"`
	Name             string `json:"name"`
	FatherName       string `json:"father_name"`
	MotherName       string `json:"mother_name"`
	DOB              string `json:"dob"`
	Gender           string `json:"gender"`
	Class            string `json:"class"`
	Section          string `json:"section"`
	Roll             string `json:"roll"`
	AdmissionDate    string `json:"admission_date"`
	Phone            string `json:"phone"`
	WhatsApp         string `json:"whats_app"`
	Email            string `json:"email,omitempty"`
	Address          string `json:"address"`
	NationalID       string `json:"national_id,omitempty"`
	Category         string `json:"category"`
	Religion         string `json:"religion,omitempty"`
	Status           string `json:"status"`
	Session          string `json:"session"`
	FatherOccupation string `json:"father_occupation,omitempty"`
	MotherOccupation string `json:"mother_occupation,omitempty"`
	FatherNationalID string `json:"father_national_id,omitempty"`
	MotherNationalID string `json:"mother_national_id,omitempty"`
}

// FeeReceipt is one fee line of a payment. Several receipts may share a
// receipt number when a payment covered more than one fee type.
type FeeReceipt struct {
	StudentID   string          `json:"student_id"`
	ReceiptNo   string          `json:"receipt_no"`
	ReceiptDate string          `json:"receipt_date"`
	FeeType     string          `json:"fee_type"`
	Amount      decimal.Decimal `json:"amount"`
	Discount    decimal.Decimal `json:"discount"`

	// NetAmount is set only when the source recorded one; see Net.
	NetAmount decimal.NullDecimal `json:"net_amount"`

	PaymentMode string `json:"payment_mode"`
	PaymentRef  string `json:"payment_ref,omitempty"`
	BillNo      string `json:"bill_no,omitempty"`
	Session     string `json:"session"`

	// Source names the legacy table the line came from.
	Source string `json:"source"`
}

// Net returns the recorded net amount, or Amount - Discount when none was
// recorded.
func (r FeeReceipt) Net() decimal.Decimal {
	if r.NetAmount.Valid {
		return r.NetAmount.Decimal
	}
	return r.Amount.Sub(r.Discount)
}

// DemandBill is one fee line of a legacy demand bill.
type DemandBill struct {
	StudentID string          `json:"student_id"`
	BillNo    string          `json:"bill_no"`
	BillDate  string          `json:"bill_date"`
	FeeType   string          `json:"fee_type"`
	Amount    decimal.Decimal `json:"amount"`
	NetAmount decimal.Decimal `json:"net_amount"`
	Session   string          `json:"session"`
}

// Discount is a standing concession on one fee type.
type Discount struct {
	StudentID string          `json:"student_id"`
	FeeType   string          `json:"fee_type"`
	Amount    decimal.Decimal `json:"discount_amount"`
	Kind      string          `json:"discount_type"`
	Reason    string          `json:"reason"`
	Session   string          `json:"session"`
}

// AcademicRecord places a student in a class for one session.
type AcademicRecord struct {
	StudentID string `json:"student_id"`
	Session   string `json:"session"`
	Class     string `json:"class"`
	Section   string `json:"section"`
	Roll      string `json:"roll"`
	Status    string `json:"status"`
}

// History derives academic records from students, preserving order.
func History(students []Student) []AcademicRecord {
	records := make([]AcademicRecord, 0, len(students))
	for _, s := range students {
		records = append(records, AcademicRecord{
			StudentID: s.ID,
			Session:   s.Session,
			Class:     s.Class,
			Section:   s.Section,
			Roll:      s.Roll,
			Status:    s.Status,
		})
	}
	return records
}

// Fix records a value a normalizer had to substitute during extraction.
type Fix struct {
	Category string `json:"category"`
	ID       string `json:"id"`
	Field    string `json:"field"`
	Original string `json:"original"`
	Fixed    string `json:"fixed"`
}

// Counts summarizes a record set.
type Counts struct {
	Students  int `json:"students"`
	Receipts  int `json:"receipts"`
	Bills     int `json:"bills"`
	Discounts int `json:"discounts"`
}

// Dataset holds extracted records partitioned by session.
type Dataset struct {
	Students  map[string][]Student
	Receipts  map[string][]FeeReceipt
	Bills     map[string][]DemandBill
	Discounts map[string][]Discount
	Fixes     []Fix
}

// NewDataset returns an empty dataset.
func NewDataset() *Dataset {
	return &Dataset{
		Students:  make(map[string][]Student),
		Receipts:  make(map[string][]FeeReceipt),
		Bills:     make(map[string][]DemandBill),
		Discounts: make(map[string][]Discount),
	}
}

// Sessions returns the sessions that have students, sorted.
func (d *Dataset) Sessions() []string {
	return SortedKeys(d.Students)
}

// Counts returns the number of records of each kind.
func (d *Dataset) Counts() Counts {
	return Counts{
		Students:  countAll(d.Students),
		Receipts:  countAll(d.Receipts),
		Bills:     countAll(d.Bills),
		Discounts: countAll(d.Discounts),
	}
}

// SortedKeys returns the keys of a session map in sorted order.
func SortedKeys[T any](m map[string][]T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Flatten concatenates a session map in sorted session order.
func Flatten[T any](m map[string][]T) []T {
	var out []T
	for _, k := range SortedKeys(m) {
		out = append(out, m[k]...)
	}
	return out
}

func countAll[T any](m map[string][]T) int {
	n := 0
	for _, v := range m {
		n += len(v)
	}
	return n
}
