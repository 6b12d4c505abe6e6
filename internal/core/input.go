package core

// input.go normalizes uploaded bytes before they reach the tabular engine.
//
// The engine works on UTF-8 with '\n' line endings. Files exported from
// Excel on Windows commonly carry a byte order mark, CRLF line endings, or a
// legacy code page, so every upload (and every archive member) is passed
// through NormalizeInput first:
//
//  1. size cap (ErrFileTooLarge)
//  2. charset decoding to UTF-8; a leading BOM is honored and removed, and
//     invalid UTF-8 bytes become U+FFFD
//  3. CRLF and lone CR line endings become LF

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// DefaultMaxFileSize is the upload cap used when none is configured (100MB).
const DefaultMaxFileSize int64 = 100 << 20

var (
	// ErrFileTooLarge is returned for inputs above the configured cap.
	ErrFileTooLarge = errors.New("file too large")

	// ErrUnsupportedEncoding is returned for an unknown encoding name.
	ErrUnsupportedEncoding = errors.New("encoding error: unsupported encoding")
)

// InputOptions controls NormalizeInput.
type InputOptions struct {
	MaxSize  int64  // <= 0 means DefaultMaxFileSize
	Encoding string // "" means utf-8
}

var encodings = map[string]encoding.Encoding{
	"utf-8":        unicode.UTF8,
	"windows-1252": charmap.Windows1252,
	"iso-8859-1":   charmap.ISO8859_1,
	"utf-16le":     unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM),
	"utf-16be":     unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM),
}

var encodingAliases = map[string]string{
	"":       "utf-8",
	"utf8":   "utf-8",
	"cp1252": "windows-1252",
	"latin1": "iso-8859-1",
}

// CanonicalEncoding returns the canonical name of enc, or an error if it is
// not supported.
func CanonicalEncoding(enc string) (string, error) {
	name := strings.ToLower(strings.TrimSpace(enc))
	if alias, ok := encodingAliases[name]; ok {
		name = alias
	}
	if _, ok := encodings[name]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedEncoding, enc)
	}
	return name, nil
}

// SupportedEncodings lists the canonical encoding names.
func SupportedEncodings() []string {
	return []string{"utf-8", "windows-1252", "iso-8859-1", "utf-16le", "utf-16be"}
}

// NormalizeInput returns data as LF-terminated UTF-8 without a BOM.
func NormalizeInput(data []byte, opts InputOptions) ([]byte, error) {
	limit := opts.MaxSize
	if limit <= 0 {
		limit = DefaultMaxFileSize
	}
	if int64(len(data)) > limit {
		return nil, SizeError(int64(len(data)), limit)
	}

	name, err := CanonicalEncoding(opts.Encoding)
	if err != nil {
		return nil, err
	}

	// BOMOverride switches to the encoding named by a leading BOM and strips
	// it, so UTF-8 and UTF-16 exports work without configuration.
	decoder := unicode.BOMOverride(encodings[name].NewDecoder())

	out, err := io.ReadAll(transform.NewReader(bytes.NewReader(data), decoder))
	if err != nil {
		return nil, fmt.Errorf("encoding error: decode %s: %w", name, err)
	}

	return normalizeNewlines(out), nil
}

func normalizeNewlines(b []byte) []byte {
	if bytes.IndexByte(b, '\r') < 0 {
		return b
	}
	b = bytes.ReplaceAll(b, []byte("\r\n"), []byte("\n"))
	return bytes.ReplaceAll(b, []byte("\r"), []byte("\n"))
}

// decoderFor returns a NormalizeInput closure suitable for
// tabular.ArchiveSpec.Decode.
func decoderFor(opts InputOptions) func([]byte) ([]byte, error) {
	return func(b []byte) ([]byte, error) {
		return NormalizeInput(b, opts)
	}
}

// SizeError wraps ErrFileTooLarge with readable sizes.
func SizeError(size, limit int64) error {
	return fmt.Errorf("%w: %s exceeds limit of %s", ErrFileTooLarge,
		humanize.IBytes(uint64(max(size, 0))), humanize.IBytes(uint64(max(limit, 0))))
}

// OverLimitError wraps ErrFileTooLarge for input whose size is unknown
// because reading stopped at limit.
func OverLimitError(limit int64) error {
	return fmt.Errorf("%w: upload is over the %s limit", ErrFileTooLarge, humanize.IBytes(uint64(max(limit, 0))))
}
