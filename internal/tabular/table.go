package tabular

import "strings"

// tokenizeTable splits data into a header and body rows.
//
// Lines are split on '\n' before any quote handling, so a quoted field can
// not span lines. Only a final empty line (the trailing newline) is dropped;
// blank interior lines become single-field rows.
func tokenizeTable(data []byte) (header []string, rows [][]string, perr *ParseError) {
	if len(data) == 0 {
		return nil, nil, &ParseError{Kind: KindEmptyInput}
	}

	lines := strings.Split(string(data), "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	if len(lines) == 0 {
		return nil, nil, &ParseError{Kind: KindEmptyInput}
	}

	header = SplitFields(lines[0])
	rows = make([][]string, 0, len(lines)-1)
	for _, line := range lines[1:] {
		rows = append(rows, SplitFields(line))
	}
	return header, rows, nil
}
