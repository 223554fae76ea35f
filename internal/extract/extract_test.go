package extract

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/sdvmigrate/internal/clean"
	"github.com/JonMunkholm/sdvmigrate/internal/dump"
	"github.com/JonMunkholm/sdvmigrate/internal/mapping"
	"github.com/JonMunkholm/sdvmigrate/internal/model"
)

// ----------------------------------------------------------------------------
// Fixtures
// ----------------------------------------------------------------------------

const studentHeader = "INSERT INTO `student_details` (`year`,`student_id`,`Student_Name`,`Father_Name`,`Mother_Name`,`DOB`,`Sex`,`clss`,`sec`,`roll`,`date`,`Mobile_No`,`pr1`,`pr2`,`pe1`,`status`,`uidNo`,`cate`) VALUES "

// studentTuple builds a student_details tuple; fields not given are blank.
func studentTuple(session, id, name, class, roll, mobile, pr1, status string) string {
	return "('" + session + "','" + id + "','" + name + "','Father','Mother','2015-06-01','M','" +
		class + "','','" + roll + "','2020-04-01','" + mobile + "','" + pr1 + "','','','" + status + "','','')"
}

func parse(t *testing.T, statements ...string) dump.Tables {
	t.Helper()
	return dump.Parse(strings.Join(statements, ";\n") + ";\n")
}

func extract(t *testing.T, tables dump.Tables) *model.Dataset {
	t.Helper()
	return New(mapping.Default(), "").Extract(context.Background(), tables)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// ----------------------------------------------------------------------------
// End-to-end Tests
// ----------------------------------------------------------------------------

func TestExtract_SingleStudentAndReceipt(t *testing.T) {
	tables := parse(t,
		studentHeader+studentTuple("2024-2025", "S1", "Ram Kumar", "V", "1", "9876543210", "Main Road", "Active"),
		"INSERT INTO `feereceipt` (`year`,`student_id`,`feereceipt_no`,`rdate`,`paymode`,`tuition_fee`,`exam_fee`) VALUES ('2024-2025','S1','R100','2024-04-10','Cheque','1500','0')",
	)

	ds := extract(t, tables)

	require.Len(t, ds.Students["2024-2025"], 1)
	require.Len(t, ds.Receipts["2024-2025"], 1)

	r := ds.Receipts["2024-2025"][0]
	assert.Equal(t, "S1", r.StudentID)
	assert.Equal(t, "R100", r.ReceiptNo)
	assert.Equal(t, "10-04-2024", r.ReceiptDate)
	assert.Equal(t, "Tuition Fee", r.FeeType)
	assert.True(t, r.Amount.Equal(dec("1500")))
	assert.Equal(t, "Cheque", r.PaymentMode)
	assert.Equal(t, "feereceipt", r.Source)
}

// ----------------------------------------------------------------------------
// Student Tests
// ----------------------------------------------------------------------------

func TestStudents_Filters(t *testing.T) {
	tables := parse(t, studentHeader+strings.Join([]string{
		studentTuple("2024-2025", "S1", "Ram", "V", "1", "9876543210", "", "active"),
		studentTuple("2024-25", "S2", "Bad Session", "V", "2", "", "", "active"),
		studentTuple("2024-2025", "S3", "--Select--", "V", "3", "", "", "active"),
		studentTuple("2024-2025", "", "No Id", "V", "4", "", "", "active"),
		studentTuple("2025-2026", "S5", "Sita", "VI", "1", "", "", "active"),
	}, ","))

	ds := extract(t, tables)

	assert.Equal(t, []string{"2024-2025", "2025-2026"}, ds.Sessions())
	require.Len(t, ds.Students["2024-2025"], 1)
	assert.Equal(t, "S1", ds.Students["2024-2025"][0].ID)
	require.Len(t, ds.Students["2025-2026"], 1)
}

func TestStudents_Normalization(t *testing.T) {
	tables := parse(t, studentHeader+strings.Join([]string{
		studentTuple("2024-2025", "S1", "  Ram   Kumar ", "V", "7", "+91 98765-43210", "12 Main Road", "ACTIVE"),
		studentTuple("2024-2025", "S2", "Sita", "", "", "", "", "active"),
		studentTuple("2024-2025", "S3", "Gita", "VI", "", "N/A", "Near temple, ph 9123456780", "left"),
		studentTuple("2024-2025", "S4", "Mira", "VI", "", "", "9988776655", "inactive"),
	}, ","))

	ds := extract(t, tables)
	students := ds.Students["2024-2025"]
	require.Len(t, students, 4)

	s1 := students[0]
	assert.Equal(t, "Ram Kumar", s1.Name)
	assert.Equal(t, "9876543210", s1.Phone)
	assert.Equal(t, s1.Phone, s1.WhatsApp)
	assert.Equal(t, "01-06-2015", s1.DOB)
	assert.Equal(t, "01-04-2020", s1.AdmissionDate)
	assert.Equal(t, clean.GenderMale, s1.Gender)
	assert.Equal(t, model.DefaultSection, s1.Section)
	assert.Equal(t, model.DefaultCategory, s1.Category)
	assert.Equal(t, "12 Main Road", s1.Address)
	assert.Equal(t, model.StatusActive, s1.Status)

	s2 := students[1]
	assert.Equal(t, model.ClassPassOut, s2.Class)
	assert.Equal(t, model.StatusAlumni, s2.Status, "blank class forces alumni")
	assert.Equal(t, clean.PhonePlaceholder, s2.Phone)
	assert.Equal(t, model.DefaultAddress, s2.Address)

	s3 := students[2]
	assert.Equal(t, "9123456780", s3.Phone, "phone recovered from address text")
	assert.Equal(t, model.StatusInactive, s3.Status)

	s4 := students[3]
	assert.Equal(t, "9988776655", s4.Phone)
	assert.Equal(t, model.DefaultAddress, s4.Address, "bare phone number is not an address")
}

func TestStudents_PhoneFromAddressText(t *testing.T) {
	tests := []struct {
		name string
		pr1  string
		want string
	}{
		{"country code prefix", "Call +91-9876543210", "9876543210"},
		{"trunk zero prefix", "ph 09123456780", "9123456780"},
		{"ten digits inside a longer number", "Acct 555512345678 ward 4", clean.PhonePlaceholder},
		{"too short", "ph 12345", clean.PhonePlaceholder},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tables := parse(t, studentHeader+studentTuple("2024-2025", "S1", "Ram", "V", "1", "", tt.pr1, "active"))

			ds := extract(t, tables)
			require.Len(t, ds.Students["2024-2025"], 1)
			assert.Equal(t, tt.want, ds.Students["2024-2025"][0].Phone)
		})
	}
}

func TestStudents_RecordsFixes(t *testing.T) {
	tables := parse(t, studentHeader+studentTuple("2024-2025", "S1", "Ram", "V", "1", "123", "", "active"))

	ds := extract(t, tables)

	assert.Contains(t, ds.Fixes, model.Fix{
		Category: "student", ID: "S1", Field: "phone", Original: "123", Fixed: clean.PhonePlaceholder,
	})
	for _, f := range ds.Fixes {
		assert.NotEqual(t, "dob", f.Field, "a parseable date is not a fix")
	}
}

// ----------------------------------------------------------------------------
// Receipt Source Tests
// ----------------------------------------------------------------------------

func TestReceipts_WideTableLines(t *testing.T) {
	tables := parse(t,
		"INSERT INTO `feereceipt` (`year`,`student_id`,`feereceipt_no`,`feereceipt`,`rdate`,`paymode`,`check_ddNo`,`tuition_fee`,`fine`,`lib_fee`,`pre_dues`) VALUES "+
			"('2024-2025','S1','','R7','0000-00-00','--Select--','CHQ1','1,000','50','-5','200')",
	)

	ds := extract(t, tables)
	receipts := ds.Receipts["2024-2025"]
	require.Len(t, receipts, 3)

	types := []string{receipts[0].FeeType, receipts[1].FeeType, receipts[2].FeeType}
	assert.Equal(t, []string{"Tuition Fee", "Late Fee", "Previous Dues"}, types)
	for _, r := range receipts {
		assert.Equal(t, "R7", r.ReceiptNo, "falls back to the feereceipt column")
		assert.Equal(t, clean.DefaultDateFallback, r.ReceiptDate)
		assert.Equal(t, model.DefaultPaymentMode, r.PaymentMode)
		assert.Equal(t, "CHQ1", r.PaymentRef)
	}
	assert.True(t, receipts[0].Amount.Equal(dec("1000")))

	dateFixes := 0
	for _, f := range ds.Fixes {
		if f.Field == "receipt_date" {
			dateFixes++
		}
	}
	assert.Equal(t, 1, dateFixes, "one fix per receipt, not per line")
}

func TestReceipts_OrphansAreKept(t *testing.T) {
	tables := parse(t,
		"INSERT INTO `feereceipt` (`year`,`student_id`,`feereceipt_no`,`rdate`,`tuition_fee`) VALUES ('2024-2025','GHOST','R1','2024-05-01','100')",
	)

	ds := extract(t, tables)
	require.Len(t, ds.Receipts["2024-2025"], 1)
	assert.Equal(t, "GHOST", ds.Receipts["2024-2025"][0].StudentID)
}

func TestReceipts_DetailedTransactions(t *testing.T) {
	tables := parse(t,
		"INSERT INTO `feetransaction_new` (`year`,`student_id`,`receipt_no`,`date`,`tuition`,`conveyance`,`hostel`) VALUES ('2024-2025','S1','55','2024-06-01','800','300','0')",
	)

	receipts := extract(t, tables).Receipts["2024-2025"]
	require.Len(t, receipts, 2)
	assert.Equal(t, "REC-55", receipts[0].ReceiptNo)
	assert.Equal(t, "Tuition Fee", receipts[0].FeeType)
	assert.Equal(t, "Transport Fee", receipts[1].FeeType)
	assert.Equal(t, "01-06-2024", receipts[1].ReceiptDate)
	assert.Equal(t, "feetransaction_new", receipts[1].Source)
}

func TestReceipts_AdmissionPayments(t *testing.T) {
	tables := parse(t,
		"INSERT INTO `financialmaster` (`financialid`,`financialyear`) VALUES (3,'2018-2019'),(4,'2019-2020')",
		"INSERT INTO `admissionpayment` (`transactionId`,`studentId`,`description`,`amount`,`yearId`) VALUES "+
			"(10,'S1','Conveyance','400',3),"+
			"(11,'S2','Tuition Fee','900',4),"+
			"(10,'S1','Swimming Pool','250',3),"+
			"(10,'S1','Library','0',3),"+
			"(12,'S3','Tuition Fee','100',99)",
	)

	ds := extract(t, tables)

	first := ds.Receipts["2018-2019"]
	require.Len(t, first, 2)
	assert.Equal(t, "ADM-10", first[0].ReceiptNo)
	assert.Equal(t, "01-04-2018", first[0].ReceiptDate)
	assert.Equal(t, "Transport Fee", first[0].FeeType)
	assert.Equal(t, "Swimming Pool", first[1].FeeType, "unmapped descriptions pass through")
	assert.Equal(t, "CASH", first[1].PaymentMode)

	require.Len(t, ds.Receipts["2019-2020"], 1)
	assert.Equal(t, "ADM-11", ds.Receipts["2019-2020"][0].ReceiptNo)

	assert.Equal(t, 3, ds.Counts().Receipts, "unknown yearId is skipped")
}

func TestReceipts_AdmissionDateFixOnlyForEmittedReceipts(t *testing.T) {
	tables := parse(t,
		"INSERT INTO `financialmaster` (`financialid`,`financialyear`) VALUES (3,'2018-2019')",
		"INSERT INTO `admissionpayment` (`transactionId`,`studentId`,`description`,`amount`,`yearId`,`date`) VALUES "+
			"(10,'S1','Library','0',3,'garbage'),"+
			"(10,'S1','Tuition Fee','',3,'garbage'),"+
			"(11,'S2','Tuition Fee','900',3,'garbage')",
	)

	ds := extract(t, tables)

	receipts := ds.Receipts["2018-2019"]
	require.Len(t, receipts, 1)
	assert.Equal(t, "ADM-11", receipts[0].ReceiptNo)
	assert.Equal(t, "01-04-2018", receipts[0].ReceiptDate)

	var dateFixes []string
	for _, f := range ds.Fixes {
		if f.Category == "receipt" && f.Field == "receipt_date" {
			dateFixes = append(dateFixes, f.ID)
		}
	}
	assert.Equal(t, []string{"ADM-11"}, dateFixes)
}

func TestReceipts_AdmissionNeedsYearMaster(t *testing.T) {
	tables := parse(t,
		"INSERT INTO `admissionpayment` (`transactionId`,`studentId`,`description`,`amount`,`yearId`) VALUES (10,'S1','Tuition Fee','400',3)",
	)

	assert.Zero(t, extract(t, tables).Counts().Receipts)
}

func TestReceipts_Consolidated(t *testing.T) {
	tables := parse(t,
		"INSERT INTO `feetransaction_newtwo` (`financialYear`,`studentId`,`billNo`,`transactionId`,`datep`,`paidAmt`,`paymode`,`chequeNo`) VALUES "+
			"('2025-2026','S9','B1','T1','2025-07-15','2500','Online','UTR9'),"+
			"('2025-2026','S9','','T2','2025-08-15','1200','',''),"+
			"('2025-2026','S9','B3','T3','2025-09-15','0','','')",
	)

	receipts := extract(t, tables).Receipts["2025-2026"]
	require.Len(t, receipts, 2)

	assert.Equal(t, "REC2-B1", receipts[0].ReceiptNo)
	assert.Equal(t, "Tuition Fee", receipts[0].FeeType)
	assert.Equal(t, "Online", receipts[0].PaymentMode)
	assert.Equal(t, "UTR9", receipts[0].PaymentRef)
	assert.Equal(t, "REC2-T2", receipts[1].ReceiptNo)
	assert.Equal(t, model.DefaultPaymentMode, receipts[1].PaymentMode)
}

func TestReceipts_UnmappedColumnPassesThrough(t *testing.T) {
	m, err := mapping.Parse([]byte(`
fee_types:
  Tuition Fee: [tuition_fee]
columns:
  feereceipt: [tuition_fee, swim_fee]
consolidated_fee_type: Tuition Fee
`))
	require.NoError(t, err)

	tables := parse(t,
		"INSERT INTO `feereceipt` (`year`,`student_id`,`feereceipt_no`,`rdate`,`tuition_fee`,`swim_fee`) VALUES ('2024-2025','S1','R1','2024-05-01','0','350')",
	)

	ds := New(m, "").Extract(context.Background(), tables)
	receipts := ds.Receipts["2024-2025"]
	require.Len(t, receipts, 1)
	assert.Equal(t, "swim_fee", receipts[0].FeeType)
	assert.True(t, receipts[0].Amount.Equal(dec("350")))
}

// ----------------------------------------------------------------------------
// Bill / Discount Tests
// ----------------------------------------------------------------------------

func TestBills(t *testing.T) {
	tables := parse(t,
		"INSERT INTO `demandbillsec` (`billNo`,`billYear`,`billmonth`,`currentDate`) VALUES "+
			"('B1','2024-2025','5','2024-05-02'),"+
			"('B2','','6','2025-06-02'),"+
			"('B3','','7','2019-07-02')",
		"INSERT INTO `demandbillnew` (`BillNo`,`StudentID`,`TuitionFee`,`Conveyance`,`Dues`) VALUES "+
			"('B1','S1','1000','0','5000'),"+
			"('B2','S1','1100','200','6000'),"+
			"('B3','S1','1200','0','0'),"+
			"('B4','S1','1300','0','0')",
	)

	ds := extract(t, tables)

	require.Len(t, ds.Bills["2024-2025"], 1)
	b := ds.Bills["2024-2025"][0]
	assert.Equal(t, "B1", b.BillNo)
	assert.Equal(t, "02-05-2024", b.BillDate)
	assert.Equal(t, "Tuition Fee", b.FeeType)
	assert.True(t, b.NetAmount.Equal(b.Amount))

	require.Len(t, ds.Bills["2025-2026"], 2, "session recovered from the bill date year")
	assert.Equal(t, "Transport Fee", ds.Bills["2025-2026"][1].FeeType)

	assert.Equal(t, 3, ds.Counts().Bills, "bills without a session are dropped")
	for _, bills := range ds.Bills {
		for _, b := range bills {
			assert.NotEqual(t, "Previous Dues", b.FeeType)
		}
	}
}

func TestDiscounts(t *testing.T) {
	tables := parse(t,
		"INSERT INTO `concessiontable` (`Fin_Year`,`StudentID`,`TuitionFee`,`Library`,`Exam`) VALUES ('2024-2025','S1','250','0','NULL'),('','S2','100','0','0')",
	)

	ds := extract(t, tables)
	require.Len(t, ds.Discounts["2024-2025"], 1)

	d := ds.Discounts["2024-2025"][0]
	assert.Equal(t, "Tuition Fee", d.FeeType)
	assert.Equal(t, model.DiscountKindFixed, d.Kind)
	assert.Equal(t, model.DefaultDiscountReason, d.Reason)
	assert.True(t, d.Amount.Equal(dec("250")))
	assert.Equal(t, 1, ds.Counts().Discounts)
}

func TestSourceNames(t *testing.T) {
	assert.Equal(t,
		[]string{"feereceipt", "feetransaction_new", "admissionpayment", "feetransaction_newtwo"},
		SourceNames())
}
