package core

import (
	"errors"
	"testing"
)

func TestNormalizeInput(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		encoding string
		expected string
	}{
		{
			name:     "plain utf-8 untouched",
			input:    []byte("name,age\nAlice,30\n"),
			expected: "name,age\nAlice,30\n",
		},
		{
			name:     "utf-8 BOM stripped",
			input:    append([]byte{0xEF, 0xBB, 0xBF}, "a,b\n"...),
			expected: "a,b\n",
		},
		{
			name:     "only BOM",
			input:    []byte{0xEF, 0xBB, 0xBF},
			expected: "",
		},
		{
			name:     "invalid byte replaced",
			input:    []byte{'h', 'e', 0x80, 'l', 'o'},
			expected: "he�lo",
		},
		{
			name:     "crlf converted",
			input:    []byte("a,b\r\n1,2\r\n"),
			expected: "a,b\n1,2\n",
		},
		{
			name:     "lone cr converted",
			input:    []byte("a,b\r1,2"),
			expected: "a,b\n1,2",
		},
		{
			name:     "windows-1252 decoded",
			input:    []byte{'Z', 'o', 0xEB, ',', 0x80},
			encoding: "cp1252",
			expected: "Zoë,€",
		},
		{
			name:     "latin1 decoded",
			input:    []byte{0xDC, 'n', 'a', 'l'},
			encoding: "latin1",
			expected: "Ünal",
		},
		{
			name:     "utf-16 BOM overrides configured encoding",
			input:    []byte{0xFF, 0xFE, 'a', 0, ',', 0, 'b', 0},
			encoding: "windows-1252",
			expected: "a,b",
		},
		{
			name:     "empty input",
			input:    []byte{},
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeInput(tt.input, InputOptions{Encoding: tt.encoding})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(got) != tt.expected {
				t.Errorf("got %q, want %q", string(got), tt.expected)
			}
		})
	}
}

func TestNormalizeInput_TooLarge(t *testing.T) {
	_, err := NormalizeInput([]byte("0123456789"), InputOptions{MaxSize: 5})
	if !errors.Is(err, ErrFileTooLarge) {
		t.Fatalf("expected ErrFileTooLarge, got %v", err)
	}
	if MapError(err).Code != "FILE001" {
		t.Errorf("MapError code = %q, want FILE001", MapError(err).Code)
	}
}

func TestSizeError(t *testing.T) {
	err := SizeError(150<<20, 100<<20)
	if !errors.Is(err, ErrFileTooLarge) {
		t.Fatalf("SizeError() = %v, want ErrFileTooLarge", err)
	}
	if want := "file too large: 150 MiB exceeds limit of 100 MiB"; err.Error() != want {
		t.Errorf("SizeError() = %q, want %q", err.Error(), want)
	}
}

func TestOverLimitError(t *testing.T) {
	err := OverLimitError(100 << 20)
	if !errors.Is(err, ErrFileTooLarge) {
		t.Fatalf("OverLimitError() = %v, want ErrFileTooLarge", err)
	}
	if want := "file too large: upload is over the 100 MiB limit"; err.Error() != want {
		t.Errorf("OverLimitError() = %q, want %q", err.Error(), want)
	}
	if MapError(err).Code != "FILE001" {
		t.Errorf("MapError code = %q, want FILE001", MapError(err).Code)
	}
}

func TestCanonicalEncoding(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"", "utf-8", false},
		{"UTF8", "utf-8", false},
		{" Windows-1252 ", "windows-1252", false},
		{"cp1252", "windows-1252", false},
		{"latin1", "iso-8859-1", false},
		{"utf-16le", "utf-16le", false},
		{"ebcdic", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := CanonicalEncoding(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("CanonicalEncoding(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, ErrUnsupportedEncoding) {
				t.Errorf("error %v is not ErrUnsupportedEncoding", err)
			}
			if got != tt.want {
				t.Errorf("CanonicalEncoding(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
