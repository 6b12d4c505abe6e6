package kinds

import (
	"strings"
	"unicode"
)

// NormalizeEmail lowercases an address and trims surrounding whitespace.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NormalizeCode uppercases an identifier and collapses inner whitespace to
// single dashes, so "hr  ops" and "HR-OPS" name the same department.
func NormalizeCode(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(s), "-"))
}

// NormalizeEmployeeNumber strips spaces and uppercases letters. Leading
// zeros are significant and kept.
func NormalizeEmployeeNumber(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToUpper(r)
	}, s)
}

// NormalizeObjectType maps common plural and display forms to the
// canonical singular object type.
func NormalizeObjectType(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, " ", "_")
	if canonical, ok := objectTypeAliases[s]; ok {
		return canonical
	}
	return s
}

var objectTypeAliases = map[string]string{
	"employees":   "employee",
	"departments": "department",
	"leaves":      "leave",
	"overtimes":   "overtime",
	"projects":    "project",
	"assets":      "asset",
	"jobs":        "job",
	"holidays":    "holiday",
}
