package core

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

// ============================================================================
// sanitizeUTF8 Tests
// ============================================================================

func TestSanitizeUTF8(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		want  []byte
	}{
		{
			name:  "valid UTF-8 unchanged",
			input: []byte("make,price"),
			want:  []byte("make,price"),
		},
		{
			name:  "empty input",
			input: []byte{},
			want:  []byte{},
		},
		{
			name:  "valid unicode",
			input: []byte("Citro\xc3\xabn"), // Citroën
			want:  []byte("Citro\xc3\xabn"),
		},
		{
			name:  "invalid byte replaced with replacement char",
			input: []byte{0x80},
			want:  []byte("\uFFFD"),
		},
		{
			name:  "truncated multibyte sequence",
			input: []byte{0xc3},
			want:  []byte("\uFFFD"),
		},
		{
			name:  "multiple invalid bytes",
			input: []byte{0x80, 0x81, 0x82},
			want:  []byte("\uFFFD\uFFFD\uFFFD"),
		},
		{
			name:  "Latin-1 high bytes replaced",
			input: []byte("Citro\xebn"),
			want:  []byte("Citro\uFFFDn"),
		},
		{
			name:  "Windows-1252 quotes replaced",
			input: []byte("\x93alfa-romero\x94"),
			want:  []byte("\uFFFDalfa-romero\uFFFD"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sanitizeUTF8(tt.input)
			if !bytes.Equal(got, tt.want) {
				t.Errorf("sanitizeUTF8(%v) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

// ============================================================================
// LoadFile Tests
// ============================================================================

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name  string
		input []byte
		want  string
	}{
		{
			name:  "plain text",
			input: []byte("make,price\nToyota,15000\n"),
			want:  "make,price\nToyota,15000\n",
		},
		{
			name:  "BOM stripped",
			input: append([]byte{0xEF, 0xBB, 0xBF}, "make\nmazda\n"...),
			want:  "make\nmazda\n",
		},
		{
			name:  "BOM only",
			input: []byte{0xEF, 0xBB, 0xBF},
			want:  "",
		},
		{
			name:  "partial BOM kept as replacement",
			input: []byte{0xEF, 0xBB, 'x'},
			want:  "\uFFFD\uFFFDx",
		},
		{
			name:  "empty file",
			input: []byte{},
			want:  "",
		},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, string(rune('a'+i))+".csv")
			if err := os.WriteFile(path, tt.input, 0o600); err != nil {
				t.Fatal(err)
			}

			got, err := LoadFile(path)
			if err != nil {
				t.Fatalf("LoadFile() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("LoadFile() = %q, want %q", got, tt.want)
			}

			if _, err := os.Stat(path); err != nil {
				t.Errorf("LoadFile removed its source: %v", err)
			}
		})
	}
}

func TestLoadFile_Missing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.csv")

	_, err := LoadFile(path)

	var ioErr *IOError
	if !errors.As(err, &ioErr) {
		t.Fatalf("LoadFile() error = %v, want *IOError", err)
	}
	if ioErr.Path != path {
		t.Errorf("IOError.Path = %q, want %q", ioErr.Path, path)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Error("IOError should unwrap to fs.ErrNotExist")
	}
}

func TestLoadFile_Directory(t *testing.T) {
	_, err := LoadFile(t.TempDir())

	var ioErr *IOError
	if !errors.As(err, &ioErr) {
		t.Fatalf("LoadFile(dir) error = %v, want *IOError", err)
	}
}
