package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/JonMunkholm/sdvmigrate/internal/dump"
	"github.com/JonMunkholm/sdvmigrate/internal/model"
)

const sample = "INSERT INTO `t` (a,b) VALUES (1,2),(3);\nINSERT INTO `u` (x) VALUES ('y');\n"

func TestFingerprint(t *testing.T) {
	a := Fingerprint(sample)
	if len(a) != 16 {
		t.Errorf("fingerprint %q should be 16 hex chars", a)
	}
	if a != Fingerprint(sample) {
		t.Error("fingerprint is not stable")
	}
	if a == Fingerprint(sample+" ") {
		t.Error("fingerprint ignores content changes")
	}
}

func TestNewDiscovery(t *testing.T) {
	ds := model.NewDataset()
	ds.Students["2025-2026"] = []model.Student{{ID: "S2"}}
	ds.Students["2024-2025"] = []model.Student{{ID: "S1"}, {ID: "S3"}}
	ds.Receipts["2024-2025"] = []model.FeeReceipt{{StudentID: "S1"}}

	now := time.Date(2026, 1, 17, 9, 30, 0, 0, time.UTC)
	d := NewDiscovery("run-1", "dump.sql", sample, dump.Parse(sample), ds, now)

	wantSessions := []SessionCount{{"2024-2025", 2}, {"2025-2026", 1}}
	if diff := cmp.Diff(wantSessions, d.Sessions); diff != "" {
		t.Errorf("sessions mismatch (-want +got):\n%s", diff)
	}

	wantTables := []TableStat{
		{Name: "t", Columns: 2, Rows: 2, Statements: 1, Mismatched: 1},
		{Name: "u", Columns: 1, Rows: 1, Statements: 1, Mismatched: 0},
	}
	if diff := cmp.Diff(wantTables, d.Tables); diff != "" {
		t.Errorf("tables mismatch (-want +got):\n%s", diff)
	}

	if d.Totals != (model.Counts{Students: 3, Receipts: 1}) {
		t.Errorf("totals = %+v", d.Totals)
	}
}

func TestWriteDiscovery(t *testing.T) {
	ds := model.NewDataset()
	ds.Students["2024-2025"] = []model.Student{{ID: "S1"}}
	d := NewDiscovery("run-1", "dump.sql", sample, dump.Parse(sample), ds, time.Unix(0, 0).UTC())

	path := filepath.Join(t.TempDir(), DiscoveryFile)
	if err := WriteDiscovery(path, d); err != nil {
		t.Fatalf("WriteDiscovery: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	text := string(data)

	for _, want := range []string{
		"Source File: dump.sql",
		"Total Students: 1",
		"Total Demand Bills: 0",
		"- 2024-2025: 1 students",
		"xxhash64:" + d.Fingerprint,
		"MISMATCHED",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("report missing %q:\n%s", want, text)
		}
	}
}
