package tabular

// archive.go parses a two-member zip archive: a data file and an
// object-permissions file whose rows reference identifiers produced when the
// data rows are persisted.
//
// The phases run strictly in order:
//
//  1. both members are located (data first) before anything is parsed
//  2. the data member is parsed, then OnDataParsed runs to completion
//  3. the permissions member is parsed, then OnPermissionsParsed runs
//
// The first failure stops the sequence and nothing is returned but the error.

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"path"
	"strings"
)

// DefaultMaxMemberSize caps how many bytes are read from one archive member.
const DefaultMaxMemberSize int64 = 64 << 20

// Hook runs between archive phases with the records just parsed. A non-nil
// error aborts the archive parse.
type Hook func(ctx context.Context, records []Record) error

// ArchiveSpec describes the two members to extract and how to parse them.
type ArchiveSpec struct {
	DataMember        string
	PermissionsMember string

	DataSchema        Schema
	PermissionsSchema Schema

	Options Options

	// MaxMemberSize overrides DefaultMaxMemberSize when positive.
	MaxMemberSize int64

	// Decode, if set, transforms each member's bytes before tokenizing
	// (charset conversion, BOM removal). A failure is reported as an
	// unreadable member.
	Decode func([]byte) ([]byte, error)

	OnDataParsed        Hook
	OnPermissionsParsed Hook
}

// ArchiveResult holds the records of both phases.
type ArchiveResult struct {
	Data        []Record
	Permissions []Record
}

// ParseArchive extracts and parses both members of a zip archive.
//
// ctx is only handed to the hooks; the engine itself never cancels. Callers
// that need a deadline should wrap the whole call.
func ParseArchive(ctx context.Context, data []byte, spec ArchiveSpec) (*ArchiveResult, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, &ParseError{Kind: KindInvalidArchive, Err: err}
	}

	dataFile, perr := findMember(zr, spec.DataMember)
	if perr != nil {
		return nil, perr.withPhase(PhaseData)
	}
	permFile, perr := findMember(zr, spec.PermissionsMember)
	if perr != nil {
		return nil, perr.withPhase(PhasePermissions)
	}

	limit := spec.MaxMemberSize
	if limit <= 0 {
		limit = DefaultMaxMemberSize
	}

	dataRecords, perr := parseMember(ctx, dataFile, spec, spec.DataSchema, limit, spec.OnDataParsed)
	if perr != nil {
		return nil, perr.withPhase(PhaseData)
	}

	permRecords, perr := parseMember(ctx, permFile, spec, spec.PermissionsSchema, limit, spec.OnPermissionsParsed)
	if perr != nil {
		return nil, perr.withPhase(PhasePermissions)
	}

	return &ArchiveResult{Data: dataRecords, Permissions: permRecords}, nil
}

// parseMember reads one member, parses it and runs its hook.
func parseMember(ctx context.Context, f *zip.File, spec ArchiveSpec, schema Schema, limit int64, hook Hook) ([]Record, *ParseError) {
	content, perr := readMember(f, limit)
	if perr != nil {
		return nil, perr
	}

	if spec.Decode != nil {
		decoded, err := spec.Decode(content)
		if err != nil {
			return nil, &ParseError{Kind: KindInvalidArchive, Member: f.Name, Err: err}
		}
		content = decoded
	}

	records, perr := parseTable(content, schema, spec.Options)
	if perr != nil {
		return nil, perr
	}

	if hook != nil {
		if err := hook(ctx, records); err != nil {
			return nil, &ParseError{Kind: KindHook, Member: f.Name, Err: err}
		}
	}
	return records, nil
}

// readMember reads at most limit bytes of f. The member is closed on return.
func readMember(f *zip.File, limit int64) ([]byte, *ParseError) {
	rc, err := f.Open()
	if err != nil {
		return nil, &ParseError{Kind: KindInvalidArchive, Member: f.Name, Err: err}
	}
	defer rc.Close()

	content, err := io.ReadAll(io.LimitReader(rc, limit+1))
	if err != nil {
		return nil, &ParseError{Kind: KindInvalidArchive, Member: f.Name, Err: err}
	}
	if int64(len(content)) > limit {
		return nil, &ParseError{Kind: KindMemberTooLarge, Member: f.Name, Expected: int(limit)}
	}
	return content, nil
}

// findMember looks name up by exact path first, then by base name so that
// archives zipped with a wrapping folder still resolve. macOS resource-fork
// entries are skipped.
func findMember(zr *zip.Reader, name string) (*zip.File, *ParseError) {
	var byBase *zip.File
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || strings.HasPrefix(f.Name, "__MACOSX/") {
			continue
		}
		if f.Name == name {
			return f, nil
		}
		if byBase == nil && path.Base(f.Name) == name {
			byBase = f
		}
	}
	if byBase != nil {
		return byBase, nil
	}
	return nil, &ParseError{Kind: KindMissingMember, Member: name}
}
