package tabular

import "strings"

// scanState is the state of the field scanner.
type scanState int

const (
	stateFieldStart  scanState = iota // nothing accumulated for the current field
	stateUnquoted                     // field did not open with a quote
	stateQuoted                       // inside a quoted field
	stateQuoteClosed                  // last char was a non-opening quote
)

// SplitFields splits one line of comma-separated text into fields.
//
// A field that opens with a double quote may contain literal commas; inside
// it a comma only ends the field when it directly follows a closing quote.
// Quoted fields lose exactly one leading and one trailing quote, all other
// fields are whitespace-trimmed. A trailing comma yields a trailing empty
// field. Unbalanced quotes are kept as literal characters and doubled quotes
// are not unescaped.
func SplitFields(line string) []string {
	var (
		fields []string
		acc    strings.Builder
		state  = stateFieldStart
	)

	emit := func() {
		fields = append(fields, cleanField(acc.String()))
		acc.Reset()
		state = stateFieldStart
	}

	for _, c := range line {
		switch state {
		case stateFieldStart:
			switch c {
			case ',':
				emit()
				continue
			case '"':
				state = stateQuoted
			default:
				state = stateUnquoted
			}

		case stateUnquoted:
			if c == ',' {
				emit()
				continue
			}

		case stateQuoted:
			if c == '"' {
				state = stateQuoteClosed
			}

		case stateQuoteClosed:
			switch c {
			case ',':
				emit()
				continue
			case '"':
				// still closed
			default:
				state = stateQuoted
			}
		}
		acc.WriteRune(c)
	}

	emit()
	return fields
}

// cleanField strips one pair of wrapping quotes or trims whitespace.
func cleanField(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return strings.TrimSpace(s)
}
