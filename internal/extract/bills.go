package extract

import (
	"strings"

	"github.com/JonMunkholm/sdvmigrate/internal/clean"
	"github.com/JonMunkholm/sdvmigrate/internal/dump"
	"github.com/JonMunkholm/sdvmigrate/internal/model"
)

const (
	billAmountsTable = "demandbillnew"
	billMetaTable    = "demandbillsec"
	concessionTable  = "concessiontable"
)

type billMeta struct {
	session string
	date    string
}

// bills joins demandbillnew amounts to demandbillsec metadata by bill
// number. One line is emitted per positive category column. The cumulative
// Dues column is never read: arrears are recomputed downstream from the full
// bill and receipt history.
func (e *Extractor) bills(tables dump.Tables, ds *model.Dataset) {
	if !tables.Has(billAmountsTable) || !tables.Has(billMetaTable) {
		return
	}

	meta := make(map[string]billMeta)
	for _, row := range tables.Rows(billMetaTable) {
		billNo := strings.TrimSpace(row.Get("billNo"))
		if billNo == "" {
			continue
		}
		meta[billNo] = billMeta{
			session: strings.TrimSpace(row.Get("billYear")),
			date:    row.Get("currentDate"),
		}
	}

	columns := e.mappings.Columns(billAmountsTable)

	for _, row := range tables.Rows(billAmountsTable) {
		billNo := strings.TrimSpace(row.Get("BillNo"))
		sid := strings.TrimSpace(row.Get("StudentID"))
		if billNo == "" || sid == "" {
			continue
		}

		m := meta[billNo]
		date, modified := clean.Date(m.date, e.dateFallback)

		session := m.session
		if session == "" {
			session = strings.TrimSpace(row.Get("Year"))
		}
		if session == "" {
			session, _ = e.mappings.SessionForYear(yearOf(date))
		}
		if session == "" {
			continue
		}

		emitted := false
		for _, col := range columns {
			amount := clean.Amount(row.Get(col))
			feeType := e.mappings.FeeType(col)
			if !validFee(feeType, amount) {
				continue
			}
			ds.Bills[session] = append(ds.Bills[session], model.DemandBill{
				StudentID: sid,
				BillNo:    billNo,
				BillDate:  date,
				FeeType:   feeType,
				Amount:    amount,
				NetAmount: amount,
				Session:   session,
			})
			emitted = true
		}

		if emitted && modified {
			ds.Fixes = append(ds.Fixes, model.Fix{
				Category: "bill",
				ID:       billNo,
				Field:    "bill_date",
				Original: m.date,
				Fixed:    date,
			})
		}
	}
}

// yearOf returns the year of a DD-MM-YYYY date.
func yearOf(date string) string {
	if i := strings.LastIndexByte(date, '-'); i >= 0 {
		return date[i+1:]
	}
	return ""
}

// discounts reads concessiontable: one fixed discount per positive category
// column.
func (e *Extractor) discounts(tables dump.Tables, ds *model.Dataset) {
	columns := e.mappings.Columns(concessionTable)

	for _, row := range tables.Rows(concessionTable) {
		session := row.First("Year", "Fin_Year")
		sid := strings.TrimSpace(row.Get("StudentID"))
		if session == "" || sid == "" {
			continue
		}

		for _, col := range columns {
			amount := clean.Amount(row.Get(col))
			feeType := e.mappings.FeeType(col)
			if !validFee(feeType, amount) {
				continue
			}
			ds.Discounts[session] = append(ds.Discounts[session], model.Discount{
				StudentID: sid,
				FeeType:   feeType,
				Amount:    amount,
				Kind:      model.DiscountKindFixed,
				Reason:    model.DefaultDiscountReason,
				Session:   session,
			})
		}
	}
}
