// Package validate checks extracted records against the student universe.
//
// Validation is a partition, not a transformation: every receipt, bill and
// discount whose student identifier belongs to some extracted student passes
// through unchanged; the rest are reported as errors. Receipts that fail are
// also listed as orphans so they can be reconciled by hand.
package validate

import (
	"fmt"

	"github.com/JonMunkholm/sdvmigrate/internal/model"
)

// Error categories.
const (
	CategoryReceipt  = "receipt"
	CategoryBill     = "bill"
	CategoryDiscount = "discount"
)

// Error is a blocking referential problem with one record.
type Error struct {
	Category string `json:"category"`
	ID       string `json:"id"`
	Message  string `json:"message"`
}

func (e Error) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Category, e.ID, e.Message)
}

// Result holds the validated record sets, partitioned by session.
type Result struct {
	Students  map[string][]model.Student
	Receipts  map[string][]model.FeeReceipt
	Bills     map[string][]model.DemandBill
	Discounts map[string][]model.Discount

	// Warnings are the substitutions made while extracting.
	Warnings []model.Fix

	Errors         []Error
	OrphanReceipts []model.FeeReceipt
}

// Validate partitions ds. Membership is tested against the union of student
// identifiers over all sessions, so a receipt filed under a session other
// than its student's is still valid.
func Validate(ds *model.Dataset) *Result {
	res := &Result{
		Students:       make(map[string][]model.Student, len(ds.Students)),
		Receipts:       make(map[string][]model.FeeReceipt),
		Bills:          make(map[string][]model.DemandBill),
		Discounts:      make(map[string][]model.Discount),
		Warnings:       append([]model.Fix{}, ds.Fixes...),
		Errors:         []Error{},
		OrphanReceipts: []model.FeeReceipt{},
	}

	known := make(map[string]bool)
	for session, students := range ds.Students {
		res.Students[session] = students
		for _, s := range students {
			known[s.ID] = true
		}
	}

	for _, session := range model.SortedKeys(ds.Receipts) {
		for _, r := range ds.Receipts[session] {
			if !known[r.StudentID] {
				res.Errors = append(res.Errors, notFound(CategoryReceipt, r.ReceiptNo, r.StudentID))
				res.OrphanReceipts = append(res.OrphanReceipts, r)
				continue
			}
			res.Receipts[session] = append(res.Receipts[session], r)
		}
	}

	for _, session := range model.SortedKeys(ds.Bills) {
		for _, b := range ds.Bills[session] {
			if !known[b.StudentID] {
				res.Errors = append(res.Errors, notFound(CategoryBill, b.BillNo, b.StudentID))
				continue
			}
			res.Bills[session] = append(res.Bills[session], b)
		}
	}

	for _, session := range model.SortedKeys(ds.Discounts) {
		for _, d := range ds.Discounts[session] {
			if !known[d.StudentID] {
				res.Errors = append(res.Errors, notFound(CategoryDiscount, d.StudentID, d.StudentID))
				continue
			}
			res.Discounts[session] = append(res.Discounts[session], d)
		}
	}

	return res
}

func notFound(category, id, studentID string) Error {
	return Error{
		Category: category,
		ID:       id,
		Message:  fmt.Sprintf("Student %s not found", studentID),
	}
}

// Counts returns the number of valid records of each kind.
func (r *Result) Counts() model.Counts {
	ds := r.Dataset()
	return ds.Counts()
}

// Sessions returns the sessions that have valid students, sorted.
func (r *Result) Sessions() []string {
	return model.SortedKeys(r.Students)
}

// Dataset views the valid records as a Dataset. The maps are shared, not
// copied.
func (r *Result) Dataset() *model.Dataset {
	return &model.Dataset{
		Students:  r.Students,
		Receipts:  r.Receipts,
		Bills:     r.Bills,
		Discounts: r.Discounts,
		Fixes:     r.Warnings,
	}
}
