package export

import (
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/heimdex/heimdex-annotator/internal/domain"
)

// SanitizeName strips control characters and replaces anything outside a
// conservative file-name alphabet with '_'.
func SanitizeName(s string, maxLen int) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case unicode.IsControl(r):
		case unicode.IsLetter(r), unicode.IsDigit(r), strings.ContainsRune(" -_.,()", r):
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}

	cleaned := strings.TrimSpace(b.String())
	if runes := []rune(cleaned); maxLen > 0 && len(runes) > maxLen {
		cleaned = string(runes[:maxLen])
	}
	return cleaned
}

// ValidateOutputDir requires an existing, clean directory path without "..".
func ValidateOutputDir(dir string) error {
	if strings.TrimSpace(dir) == "" {
		return domain.NewValidationError("output_dir", "is required")
	}
	if strings.Contains("/"+filepath.ToSlash(dir)+"/", "/../") {
		return domain.NewValidationError("output_dir", "cannot contain path traversal")
	}
	if filepath.Clean(dir) != dir {
		return domain.NewValidationError("output_dir", "must be a clean path")
	}

	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return domain.NewValidationError("output_dir", "does not exist")
	}
	if err != nil {
		return domain.NewValidationError("output_dir", err.Error())
	}
	if !info.IsDir() {
		return domain.NewValidationError("output_dir", "is not a directory")
	}
	return nil
}

// WriteFile stores an export document as <dir>/<name><ext> and returns the path.
func WriteFile(dir, name string, format Format, data []byte) (string, error) {
	if err := ValidateOutputDir(dir); err != nil {
		return "", err
	}
	base := SanitizeName(name, 120)
	if base == "" {
		base = "annotations"
	}
	path := filepath.Join(dir, base+format.Ext())
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}
