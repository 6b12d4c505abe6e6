package core

// convert.go turns cleaned cell text into the pgtype values stored for
// employees, departments and permissions.
//
// HR exports come out of spreadsheets and payroll systems, so dates arrive
// in many layouts (including Excel serial day numbers) and flags as
// yes/no, 1/0 or active/inactive. Every ToPg* function returns Valid=false
// for empty or unparseable input; validation decides whether that is an
// error for the column.

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/king-kite/nexthrms-v2-sub002/internal/tabular"
)

// TwoDigitYearPivot is how many years into the future a two-digit year may
// land before it is read as the previous century.
var TwoDigitYearPivot = 20

type dateLayout struct {
	layout  string
	twoYear bool
}

// Unambiguous four-digit-year layouts are tried first. Day-first layouts are
// not accepted: "03/04/2024" is always March 4.
var dateLayouts = []dateLayout{
	{"2006-01-02", false}, {"2006/01/02", false}, {"2006.01.02", false},
	{"1/2/2006", false}, {"01/02/2006", false},
	{"1-2-2006", false}, {"01-02-2006", false},
	{"1.2.2006", false}, {"01.02.2006", false},
	{"Jan 2, 2006", false}, {"January 2, 2006", false}, {"2 Jan 2006", false}, {"02-Jan-2006", false},
	{"20060102", false},
	{"1/2/06", true}, {"01/02/06", true}, {"1-2-06", true}, {"1.2.06", true}, {"01.02.06", true},
}

// Excel stores dates as days since 1899-12-30. Only five-digit serials are
// accepted (1927 to 2173) so compact yyyymmdd values are never misread.
var excelEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

const (
	minExcelSerial = 10000
	maxExcelSerial = 99999
)

// ParseDate parses s with the accepted date layouts.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	for _, l := range dateLayouts {
		t, err := time.Parse(l.layout, s)
		if err != nil {
			continue
		}
		if l.twoYear && t.Year() > time.Now().Year()+TwoDigitYearPivot {
			t = t.AddDate(-100, 0, 0)
		}
		return t, true
	}

	if len(s) == 5 {
		if n, err := strconv.Atoi(s); err == nil && n >= minExcelSerial && n <= maxExcelSerial {
			return excelEpoch.AddDate(0, 0, n), true
		}
	}
	return time.Time{}, false
}

// ToPgDate converts a string to pgtype.Date.
func ToPgDate(s string) pgtype.Date {
	t, ok := ParseDate(s)
	return pgtype.Date{Time: t, Valid: ok}
}

var boolTokens = map[string]bool{
	"true": true, "t": true, "yes": true, "y": true, "1": true,
	"active": true, "enabled": true,
	"false": false, "f": false, "no": false, "n": false, "0": false,
	"inactive": false, "disabled": false, "terminated": false,
}

// ToPgBool converts a flag to pgtype.Bool. Matching is case-insensitive.
func ToPgBool(s string) pgtype.Bool {
	v, ok := boolTokens[strings.ToLower(strings.TrimSpace(s))]
	return pgtype.Bool{Bool: v, Valid: ok}
}

// ToPgText converts a string to pgtype.Text. Blank input is invalid.
func ToPgText(s string) pgtype.Text {
	s = strings.TrimSpace(s)
	return pgtype.Text{String: s, Valid: s != ""}
}

// NewPgUUID returns a freshly generated random UUID.
func NewPgUUID() pgtype.UUID {
	return pgtype.UUID{Bytes: uuid.New(), Valid: true}
}

// PgUUIDToString returns the canonical form of u, or "" when u is invalid.
func PgUUIDToString(u pgtype.UUID) string {
	if !u.Valid {
		return ""
	}
	return uuid.UUID(u.Bytes).String()
}

// CleanCell trims whitespace and unwraps Excel's ="..." text guard, which
// exports use to keep leading zeros on employee numbers.
func CleanCell(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 3 && strings.HasPrefix(s, `="`) && strings.HasSuffix(s, `"`) {
		s = strings.TrimSpace(s[2 : len(s)-1])
	}
	return s
}

// Cell returns the cleaned text value of column name in rec.
// Absent columns and empty-sentinel values yield "".
func Cell(rec tabular.Record, name string) string {
	s, _ := rec.Text(name)
	return CleanCell(s)
}
