// Package dump recovers per-table rows from a legacy SQL dump.
//
// Only INSERT statements with an explicit column list are understood:
//
//	INSERT INTO `student_details` (`student_id`,`Student_Name`) VALUES ('S1','Ram'),('S2','Sita');
//
// This is deliberately not a SQL grammar. Statements that do not match the
// header shape are skipped without error, and a value holding an unquoted
// comma inside nested parentheses (e.g. an embedded function call or JSON)
// will be split in the wrong place.
package dump

import (
	"regexp"
	"sort"
	"strings"
)

// headerRegex matches an INSERT header and captures the table name and the
// raw column list. Identifiers may be back-quoted.
var headerRegex = regexp.MustCompile("(?i)insert\\s+into\\s+`?(\\w+)`?\\s*\\(([^)]*)\\)\\s*values\\s*")

// Row maps column names to raw string values.
type Row map[string]string

// Get returns the raw value of col, or "" when the column is absent.
func (r Row) Get(col string) string {
	return r[col]
}

// First returns the first non-empty value among cols.
func (r Row) First(cols ...string) string {
	for _, col := range cols {
		if v := strings.TrimSpace(r[col]); v != "" {
			return v
		}
	}
	return ""
}

// Has reports whether the row carries col at all.
func (r Row) Has(col string) bool {
	_, ok := r[col]
	return ok
}

// Table holds the rows recovered for one table.
type Table struct {
	Name string

	// Columns come from the first recognized header for the table. Later
	// statements are assumed to share the same column order.
	Columns []string

	Rows []Row

	// Statements counts the INSERT statements seen for the table.
	Statements int

	// Mismatched counts rows whose value count differed from len(Columns).
	// Such rows are still zipped positionally, the shorter side truncating.
	Mismatched int
}

// Tables maps table names to their recovered rows.
type Tables map[string]*Table

// Rows returns the rows of the named table, or nil if the dump had none.
func (t Tables) Rows(name string) []Row {
	if tbl, ok := t[name]; ok {
		return tbl.Rows
	}
	return nil
}

// Has reports whether the dump contained the named table.
func (t Tables) Has(name string) bool {
	_, ok := t[name]
	return ok
}

// Names returns all table names in sorted order.
func (t Tables) Names() []string {
	names := make([]string, 0, len(t))
	for name := range t {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Parse scans content for INSERT statements and returns the rows of every
// table it recognizes.
func Parse(content string) Tables {
	tables := make(Tables)

	pos := 0
	for pos < len(content) {
		loc := headerRegex.FindStringSubmatchIndex(content[pos:])
		if loc == nil {
			break
		}

		name := content[pos+loc[2] : pos+loc[3]]
		columns := splitColumns(content[pos+loc[4] : pos+loc[5]])
		start := pos + loc[1]
		end := statementEnd(content, start)

		tbl, ok := tables[name]
		if !ok {
			tbl = &Table{Name: name, Columns: columns}
			tables[name] = tbl
		}
		tbl.Statements++

		if len(tbl.Columns) > 0 {
			for _, tuple := range Tuples(content[start:end]) {
				values := ParseTuple(tuple)
				if len(values) == 0 {
					continue
				}
				if len(values) != len(tbl.Columns) {
					tbl.Mismatched++
				}
				tbl.Rows = append(tbl.Rows, zip(tbl.Columns, values))
			}
		}

		pos = end + 1
	}

	return tables
}

// statementEnd returns the index of the ';' that terminates the statement
// starting at from: the first ';' followed by a newline, or len(content).
func statementEnd(content string, from int) int {
	for i := from; i < len(content); i++ {
		if content[i] != ';' {
			continue
		}
		rest := content[i+1:]
		if strings.HasPrefix(rest, "\n") || strings.HasPrefix(rest, "\r\n") {
			return i
		}
	}
	return len(content)
}

// splitColumns splits a raw column list, trimming whitespace and back-quotes.
func splitColumns(raw string) []string {
	parts := strings.Split(raw, ",")
	cols := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.Trim(strings.TrimSpace(p), "`")
		if p != "" {
			cols = append(cols, p)
		}
	}
	return cols
}

// Tuples returns the contents of every top-level parenthesized group in a
// VALUES clause. Parentheses inside quoted strings do not count.
func Tuples(values string) []string {
	var tuples []string

	depth, start := 0, 0
	inQuote, escaped := false, false

	for i := 0; i < len(values); i++ {
		c := values[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\':
			escaped = true
		case c == '\'':
			inQuote = !inQuote
		case inQuote:
		case c == '(':
			if depth == 0 {
				start = i + 1
			}
			depth++
		case c == ')':
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 {
				tuples = append(tuples, values[start:i])
			}
		}
	}

	return tuples
}

// ParseTuple splits one tuple body into its values.
//
// Commas separate values only outside quotes. Quote delimiters are dropped,
// a doubled quote inside a string is a literal quote, and a backslash copies
// the following character literally. Values are trimmed; an unquoted NULL is
// returned as the string "NULL".
func ParseTuple(s string) []string {
	var values []string
	var cur strings.Builder
	inQuote, escaped, quoted := false, false, false

	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			cur.WriteByte(c)
			escaped = false
		case c == '\\':
			escaped = true
		case c == '\'' && !inQuote:
			inQuote, quoted = true, true
		case c == '\'':
			if i+1 < len(s) && s[i+1] == '\'' {
				cur.WriteByte('\'')
				i++
			} else {
				inQuote = false
			}
		case c == ',' && !inQuote:
			values = append(values, strings.TrimSpace(cur.String()))
			cur.Reset()
		default:
			cur.WriteByte(c)
		}
	}

	// A lone '' is still one value.
	if cur.Len() > 0 || quoted || len(values) > 0 {
		values = append(values, strings.TrimSpace(cur.String()))
	}

	return values
}

// zip pairs columns and values positionally; the shorter side truncates.
func zip(columns, values []string) Row {
	n := min(len(columns), len(values))
	row := make(Row, n)
	for i := 0; i < n; i++ {
		row[columns[i]] = values[i]
	}
	return row
}
