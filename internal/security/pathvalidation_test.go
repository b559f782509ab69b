package security

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePathWithinDirectory(t *testing.T) {
	tmpDir := t.TempDir()

	safeDir := filepath.Join(tmpDir, "safe")
	unsafeDir := filepath.Join(tmpDir, "unsafe")
	require.NoError(t, os.MkdirAll(safeDir, 0755))
	require.NoError(t, os.MkdirAll(unsafeDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(unsafeDir, "secret.csv"), []byte("1,2"), 0644))

	symlinkPath := filepath.Join(safeDir, "evil-symlink")
	require.NoError(t, os.Symlink(unsafeDir, symlinkPath))

	tests := []struct {
		name      string
		filePath  string
		safeDir   string
		wantError bool
	}{
		{"valid path within directory", filepath.Join(tmpDir, "file.csv"), tmpDir, false},
		{"valid nested path", filepath.Join(tmpDir, "subdir", "file.csv"), tmpDir, false},
		{"path traversal with ..", filepath.Join(tmpDir, "..", "file.csv"), tmpDir, true},
		{"symlink to outside directory", filepath.Join(symlinkPath, "secret.csv"), safeDir, true},
		{"new file under symlinked dir", filepath.Join(symlinkPath, "new", "x.csv"), safeDir, true},
		{"directory itself", safeDir, safeDir, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePathWithinDirectory(tt.filePath, tt.safeDir)
			if tt.wantError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidatePathWithinAllowedDirs(t *testing.T) {
	a := t.TempDir()
	b := t.TempDir()

	assert.NoError(t, ValidatePathWithinAllowedDirs(filepath.Join(b, "x"), []string{a, b}))
	assert.ErrorIs(t, ValidatePathWithinAllowedDirs("/etc/passwd", []string{a, b}), ErrPathOutsideAllowed)
	assert.Error(t, ValidatePathWithinAllowedDirs(filepath.Join(a, "x"), nil))
}

func TestValidateLabel(t *testing.T) {
	t.Parallel()

	valid := []string{"healthy", "crack_1mm", "Bearing-Fault.v2", "0db"}
	for _, l := range valid {
		assert.NoError(t, ValidateLabel(l), l)
	}

	invalid := []string{"", "..", ".hidden", "a/b", `a\b`, "with space", "raw", "RAW", strings.Repeat("a", MaxLabelLength+1)}
	for _, l := range invalid {
		err := ValidateLabel(l)
		assert.ErrorIs(t, err, ErrInvalidLabel, "%q", l)
	}
}

func TestSanitizeFilename(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"split data (run 2)": "split_data_run_2",
		"__a__b__":           "a_b",
		"résumé.csv":         "r_sum_.csv",
		"///":                "",
		"":                   "",
	}
	for in, want := range cases {
		assert.Equal(t, want, SanitizeFilename(in), "%q", in)
	}
	assert.LessOrEqual(t, len(SanitizeFilename(strings.Repeat("x", 500))), MaxLabelLength)
}
