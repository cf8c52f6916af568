package export

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/heimdex/heimdex-annotator/internal/domain"
)

func TestSanitizeName_ControlChars(t *testing.T) {
	got := SanitizeName(" A\nB\rC\tD\x00 ", 100)
	if got != "ABCD" {
		t.Fatalf("SanitizeName control char behavior mismatch, got %q", got)
	}
}

func TestSanitizeName_MaxLength(t *testing.T) {
	got := SanitizeName("partido_completo_segunda_parte", 10)
	if len([]rune(got)) != 10 {
		t.Fatalf("expected length 10, got %d (%q)", len([]rune(got)), got)
	}
}

func TestSanitizeName_ReplacesDisallowed(t *testing.T) {
	got := SanitizeName("match/1:final*", 100)
	if got != "match_1_final_" {
		t.Fatalf("SanitizeName disallowed replacement mismatch: got %q", got)
	}
}

func TestValidateOutputDir(t *testing.T) {
	tmp := t.TempDir()
	filePath := filepath.Join(tmp, "file.txt")
	if err := os.WriteFile(filePath, []byte("x"), 0o644); err != nil {
		t.Fatalf("failed to create file: %v", err)
	}

	tests := []struct {
		name    string
		dir     string
		wantErr bool
	}{
		{name: "valid", dir: tmp},
		{name: "empty", dir: " ", wantErr: true},
		{name: "missing", dir: filepath.Join(tmp, "missing"), wantErr: true},
		{name: "traversal", dir: "/tmp/../etc", wantErr: true},
		{name: "unclean", dir: tmp + "/", wantErr: true},
		{name: "not a dir", dir: filePath, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateOutputDir(tc.dir)
			if tc.wantErr {
				if !errors.Is(err, domain.ErrValidation) {
					t.Fatalf("ValidateOutputDir(%q) = %v, want validation error", tc.dir, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ValidateOutputDir(%q) error = %v, want nil", tc.dir, err)
			}
		})
	}
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()

	path, err := WriteFile(dir, "Match <final>", FormatCSV, []byte("time,categoryId,eventId\n"))
	if err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if filepath.Base(path) != "Match _final_.csv" {
		t.Fatalf("unexpected file name %q", filepath.Base(path))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.HasPrefix(string(data), "time,") {
		t.Fatalf("unexpected content %q", data)
	}

	path, _ = WriteFile(dir, "***", FormatJSON, []byte("[]"))
	if filepath.Base(path) != "___.json" {
		t.Fatalf("unexpected fallback name %q", filepath.Base(path))
	}
	path, _ = WriteFile(dir, "\n", FormatJSON, []byte("[]"))
	if filepath.Base(path) != "annotations.json" {
		t.Fatalf("unexpected default name %q", filepath.Base(path))
	}
}
