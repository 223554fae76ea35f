package extract

// receipts.go adapts the legacy payment schemas to FeeReceipt.
//
// The legacy system recorded payments three different ways over its
// lifetime:
//  1. Wide category tables: one row per receipt, one column per fee type
//  2. Transaction lines joined to a year master (admission payments)
//  3. A consolidated table holding only the total paid
//
// Each schema is an entry in receiptSources. Every source runs, and their
// output is merged per session as-is: a payment recorded in two schemas
// yields two sets of receipt lines.

import (
	"fmt"
	"strings"

	"github.com/JonMunkholm/sdvmigrate/internal/clean"
	"github.com/JonMunkholm/sdvmigrate/internal/dump"
	"github.com/JonMunkholm/sdvmigrate/internal/model"
)

// receiptSource is one legacy payment schema.
type receiptSource struct {
	name     string
	requires []string
	extract  func(e *Extractor, tables dump.Tables, emit func(model.FeeReceipt), ds *model.Dataset)
}

func (s receiptSource) available(tables dump.Tables) bool {
	for _, t := range s.requires {
		if !tables.Has(t) {
			return false
		}
	}
	return true
}

// receiptSources lists the payment schemas in merge order.
var receiptSources = []receiptSource{
	{
		name:     "feereceipt",
		requires: []string{"feereceipt"},
		extract: wideReceipts(wideLayout{
			table:     "feereceipt",
			session:   "year",
			student:   "student_id",
			receiptNo: []string{"feereceipt_no", "feereceipt"},
			date:      "rdate",
			mode:      "paymode",
			ref:       "check_ddNo",
		}),
	},
	{
		name:     "feetransaction_new",
		requires: []string{"feetransaction_new"},
		extract: wideReceipts(wideLayout{
			table:     "feetransaction_new",
			session:   "year",
			student:   "student_id",
			receiptNo: []string{"receipt_no"},
			prefix:    "REC-",
			date:      "date",
		}),
	},
	{
		name:     "admissionpayment",
		requires: []string{"admissionpayment", "financialmaster"},
		extract:  admissionReceipts,
	},
	{
		name:     "feetransaction_newtwo",
		requires: []string{"feetransaction_newtwo"},
		extract:  consolidatedReceipts,
	},
}

// SourceNames returns the receipt source names in merge order.
func SourceNames() []string {
	names := make([]string, len(receiptSources))
	for i, s := range receiptSources {
		names[i] = s.name
	}
	return names
}

// wideLayout names the columns of a wide category table. Category columns
// come from the mappings, keyed by table.
type wideLayout struct {
	table     string
	session   string
	student   string
	receiptNo []string // first non-empty wins
	prefix    string
	date      string
	mode      string // empty: always the default mode
	ref       string
}

func wideReceipts(l wideLayout) func(*Extractor, dump.Tables, func(model.FeeReceipt), *model.Dataset) {
	return func(e *Extractor, tables dump.Tables, emit func(model.FeeReceipt), ds *model.Dataset) {
		columns := e.mappings.Columns(l.table)

		for _, row := range tables.Rows(l.table) {
			session := strings.TrimSpace(row.Get(l.session))
			sid := strings.TrimSpace(row.Get(l.student))
			if session == "" || sid == "" {
				continue
			}

			receiptNo := l.prefix + row.First(l.receiptNo...)
			var date string

			mode := model.DefaultPaymentMode
			if l.mode != "" {
				mode = orDefault(clean.Text(row.Get(l.mode)), model.DefaultPaymentMode)
			}
			var ref string
			if l.ref != "" {
				ref = clean.Text(row.Get(l.ref))
			}

			for _, col := range columns {
				amount := clean.Amount(row.Get(col))
				feeType := e.mappings.FeeType(col)
				if !validFee(feeType, amount) {
					continue
				}
				if date == "" {
					date = e.receiptDate(row.Get(l.date), receiptNo, ds)
				}
				emit(model.FeeReceipt{
					StudentID:   sid,
					ReceiptNo:   receiptNo,
					ReceiptDate: date,
					FeeType:     feeType,
					Amount:      amount,
					PaymentMode: mode,
					PaymentRef:  ref,
					Session:     session,
				})
			}
		}
	}
}

// admissionReceipts reads admissionpayment lines. Lines are grouped by
// transaction and student in first-seen order; each group becomes one
// receipt number. The session comes from financialmaster.
func admissionReceipts(e *Extractor, tables dump.Tables, emit func(model.FeeReceipt), ds *model.Dataset) {
	years := make(map[string]string)
	for _, row := range tables.Rows("financialmaster") {
		id := row.First("financialid", "id")
		year := row.First("financialyear", "year")
		if id != "" && year != "" {
			years[id] = year
		}
	}

	type group struct {
		tid, sid, session string
		rows              []dump.Row
	}
	groups := make(map[string]*group)
	var order []string

	for _, row := range tables.Rows("admissionpayment") {
		tid := strings.TrimSpace(row.Get("transactionId"))
		sid := strings.TrimSpace(row.Get("studentId"))
		if tid == "" || sid == "" {
			continue
		}
		session, ok := years[strings.TrimSpace(row.Get("yearId"))]
		if !ok {
			continue
		}

		key := tid + "_" + sid
		g, ok := groups[key]
		if !ok {
			g = &group{tid: tid, sid: sid, session: session}
			groups[key] = g
			order = append(order, key)
		}
		g.rows = append(g.rows, row)
	}

	for _, key := range order {
		g := groups[key]
		receiptNo := "ADM-" + g.tid

		var date string

		for _, row := range g.rows {
			amount := clean.Amount(row.Get("amount"))
			feeType := e.mappings.Description(row.Get("description"))
			if !validFee(feeType, amount) {
				continue
			}
			if date == "" {
				date = admissionDate(e, g.session, g.rows[0], receiptNo, ds)
			}
			emit(model.FeeReceipt{
				StudentID:   g.sid,
				ReceiptNo:   receiptNo,
				ReceiptDate: date,
				FeeType:     feeType,
				Amount:      amount,
				PaymentMode: "CASH",
				Session:     g.session,
			})
		}
	}
}

// admissionDate resolves the date of an admission receipt. Admission
// payments usually carry no date; the academic year starts in April.
func admissionDate(e *Extractor, session string, first dump.Row, receiptNo string, ds *model.Dataset) string {
	startYear, _, _ := strings.Cut(session, "-")
	date := fmt.Sprintf("01-04-%s", startYear)
	if first.Has("date") {
		date = e.receiptDateOr(first.Get("date"), date, receiptNo, ds)
	}
	return date
}

// consolidatedReceipts reads feetransaction_newtwo, which records only the
// total paid. The whole amount goes to the consolidated fee type.
func consolidatedReceipts(e *Extractor, tables dump.Tables, emit func(model.FeeReceipt), ds *model.Dataset) {
	feeType := e.mappings.ConsolidatedFeeType()

	for _, row := range tables.Rows("feetransaction_newtwo") {
		session := strings.TrimSpace(row.Get("financialYear"))
		sid := strings.TrimSpace(row.Get("studentId"))
		if session == "" || sid == "" {
			continue
		}

		amount := clean.Amount(row.Get("paidAmt"))
		if !validFee(feeType, amount) {
			continue
		}

		receiptNo := "REC2-" + row.First("billNo", "transactionId")
		emit(model.FeeReceipt{
			StudentID:   sid,
			ReceiptNo:   receiptNo,
			ReceiptDate: e.receiptDate(row.Get("datep"), receiptNo, ds),
			FeeType:     feeType,
			Amount:      amount,
			PaymentMode: orDefault(clean.Text(row.Get("paymode")), model.DefaultPaymentMode),
			PaymentRef:  clean.Text(row.Get("chequeNo")),
			Session:     session,
		})
	}
}

func (e *Extractor) receiptDate(raw, receiptNo string, ds *model.Dataset) string {
	return e.receiptDateOr(raw, e.dateFallback, receiptNo, ds)
}

func (e *Extractor) receiptDateOr(raw, fallback, receiptNo string, ds *model.Dataset) string {
	d, modified := clean.Date(raw, fallback)
	if modified {
		ds.Fixes = append(ds.Fixes, model.Fix{
			Category: "receipt",
			ID:       receiptNo,
			Field:    "receipt_date",
			Original: raw,
			Fixed:    d,
		})
	}
	return d
}
