// Package tabular parses uploaded comma-separated files into uniform records.
//
// The engine is a pure function of its input: it holds no state between
// calls, so concurrent use needs no locking.
//
// # Pipeline
//
// A buffer is split into lines, each line is scanned into fields by
// [SplitFields], the header row is checked once against a [Schema], and every
// body row is mapped to a [Record]:
//
//	records, err := tabular.ParseTable(data, tabular.CountSchema(2), tabular.Options{})
//
// A Schema is either a column count ([CountSchema]) or a set of allowed
// header names ([NameSchema]).
//
// # Archives
//
// [ParseArchive] extracts a data member and a permissions member from a zip
// archive and parses them in that order. The OnDataParsed hook runs before
// the permissions member is read, which lets the caller persist the data rows
// and collect the generated identifiers the permission rows refer to.
//
// # Errors
//
// Every failure is a *[ParseError]. Use errors.Is with the Err* sentinels to
// branch on the kind; hook errors are reachable with errors.Unwrap.
package tabular
