package validate

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/JonMunkholm/sdvmigrate/internal/model"
)

func dataset() *model.Dataset {
	ds := model.NewDataset()
	ds.Students["2024-2025"] = []model.Student{{ID: "S1"}, {ID: "S2"}}
	ds.Students["2025-2026"] = []model.Student{{ID: "S3"}}
	return ds
}

func receipt(sid, no, session string) model.FeeReceipt {
	return model.FeeReceipt{StudentID: sid, ReceiptNo: no, Session: session, FeeType: "Tuition Fee", Amount: decimal.NewFromInt(100)}
}

// ----------------------------------------------------------------------------
// Validate Tests
// ----------------------------------------------------------------------------

func TestValidate_ReceiptPartition(t *testing.T) {
	ds := dataset()
	ds.Receipts["2024-2025"] = []model.FeeReceipt{
		receipt("S1", "R1", "2024-2025"),
		receipt("GHOST", "R2", "2024-2025"),
		receipt("S3", "R3", "2024-2025"), // student enrolled in another session
	}
	ds.Receipts["2019-2020"] = []model.FeeReceipt{
		receipt("OLD", "R4", "2019-2020"),
	}

	res := Validate(ds)

	known := map[string]bool{"S1": true, "S2": true, "S3": true}
	valid := make(map[string]bool)
	for _, rs := range res.Receipts {
		for _, r := range rs {
			valid[r.ReceiptNo] = true
		}
	}
	orphan := make(map[string]bool)
	for _, r := range res.OrphanReceipts {
		orphan[r.ReceiptNo] = true
	}

	for _, rs := range ds.Receipts {
		for _, r := range rs {
			if known[r.StudentID] != valid[r.ReceiptNo] {
				t.Errorf("%s: valid = %v, want %v", r.ReceiptNo, valid[r.ReceiptNo], known[r.StudentID])
			}
			if known[r.StudentID] == orphan[r.ReceiptNo] {
				t.Errorf("%s: orphan = %v, want %v", r.ReceiptNo, orphan[r.ReceiptNo], !known[r.StudentID])
			}
		}
	}

	if len(res.Errors) != 2 {
		t.Fatalf("errors = %+v, want 2", res.Errors)
	}
	want := Error{Category: CategoryReceipt, ID: "R4", Message: "Student OLD not found"}
	if res.Errors[0] != want {
		t.Errorf("errors[0] = %+v, want %+v (sorted session order)", res.Errors[0], want)
	}
}

func TestValidate_BillsAndDiscounts(t *testing.T) {
	ds := dataset()
	ds.Bills["2024-2025"] = []model.DemandBill{
		{StudentID: "S1", BillNo: "B1"},
		{StudentID: "NOPE", BillNo: "B2"},
	}
	ds.Discounts["2024-2025"] = []model.Discount{
		{StudentID: "S2", FeeType: "Tuition Fee"},
		{StudentID: "NOPE", FeeType: "Tuition Fee"},
	}

	res := Validate(ds)

	if n := len(res.Bills["2024-2025"]); n != 1 {
		t.Errorf("valid bills = %d, want 1", n)
	}
	if n := len(res.Discounts["2024-2025"]); n != 1 {
		t.Errorf("valid discounts = %d, want 1", n)
	}
	if len(res.OrphanReceipts) != 0 {
		t.Errorf("bills and discounts must not become orphan receipts")
	}

	wantErrs := []Error{
		{Category: CategoryBill, ID: "B2", Message: "Student NOPE not found"},
		{Category: CategoryDiscount, ID: "NOPE", Message: "Student NOPE not found"},
	}
	if len(res.Errors) != len(wantErrs) {
		t.Fatalf("errors = %+v", res.Errors)
	}
	for i := range wantErrs {
		if res.Errors[i] != wantErrs[i] {
			t.Errorf("errors[%d] = %+v, want %+v", i, res.Errors[i], wantErrs[i])
		}
	}
}

func TestValidate_CleanRun(t *testing.T) {
	ds := dataset()
	ds.Receipts["2024-2025"] = []model.FeeReceipt{receipt("S1", "R1", "2024-2025")}
	ds.Fixes = []model.Fix{{Category: "student", ID: "S2", Field: "phone", Original: "", Fixed: "0000000000"}}

	res := Validate(ds)

	if len(res.Errors) != 0 {
		t.Errorf("errors = %+v, want none", res.Errors)
	}
	if len(res.Warnings) != 1 {
		t.Errorf("warnings = %+v, want the extraction fix", res.Warnings)
	}
	got := res.Counts()
	if got.Students != 3 || got.Receipts != 1 {
		t.Errorf("counts = %+v", got)
	}
	if s := res.Sessions(); len(s) != 2 || s[0] != "2024-2025" {
		t.Errorf("sessions = %v", s)
	}
}

// ----------------------------------------------------------------------------
// Report Tests
// ----------------------------------------------------------------------------

func TestWriteReport(t *testing.T) {
	ds := dataset()
	ds.Receipts["2024-2025"] = []model.FeeReceipt{receipt("GHOST", "R9", "2024-2025")}

	res := Validate(ds)
	rep := res.Report("run-1", time.Date(2026, 1, 17, 10, 0, 0, 0, time.UTC))

	path := filepath.Join(t.TempDir(), ReportFile)
	if err := WriteReport(path, rep); err != nil {
		t.Fatalf("WriteReport: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("report is not JSON: %v", err)
	}

	for _, key := range []string{"run_id", "generated_at", "counts", "errors", "warnings", "orphan_receipts"} {
		if _, ok := doc[key]; !ok {
			t.Errorf("report missing %q", key)
		}
	}
	if warnings, ok := doc["warnings"].([]any); !ok || len(warnings) != 0 {
		t.Errorf("warnings = %v, want empty array", doc["warnings"])
	}

	counts := doc["counts"].(map[string]any)
	if counts["orphan_receipts"] != float64(1) || counts["students"] != float64(3) {
		t.Errorf("counts = %v", counts)
	}
}

func TestWriteReport_BadPath(t *testing.T) {
	err := WriteReport(filepath.Join(t.TempDir(), "missing", "dir", ReportFile), Report{})
	if err == nil {
		t.Error("expected error for unwritable path")
	}
}
