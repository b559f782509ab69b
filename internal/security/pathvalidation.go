// Package security validates user-supplied labels and paths before they are
// turned into locations on disk.
package security

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// MaxLabelLength bounds a classification label, which becomes a directory
// name and a chunk filename prefix.
const MaxLabelLength = 128

var (
	// ErrInvalidLabel is returned by ValidateLabel.
	ErrInvalidLabel = errors.New("invalid label")

	// ErrPathOutsideAllowed is returned by ValidatePathWithinAllowedDirs.
	ErrPathOutsideAllowed = errors.New("path outside allowed directories")

	labelPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]*$`)

	// reservedLabels would collide with store bookkeeping directories.
	reservedLabels = map[string]bool{"raw": true, "tmp": true}
)

// ValidateLabel accepts labels made of ASCII letters, digits, dot, underscore
// and dash that start with a letter or digit.
func ValidateLabel(label string) error {
	switch {
	case label == "":
		return fmt.Errorf("%w: empty", ErrInvalidLabel)
	case len(label) > MaxLabelLength:
		return fmt.Errorf("%w: longer than %d characters", ErrInvalidLabel, MaxLabelLength)
	case !labelPattern.MatchString(label):
		return fmt.Errorf("%w: %q may only contain letters, digits, '.', '_' and '-'", ErrInvalidLabel, label)
	case reservedLabels[strings.ToLower(label)]:
		return fmt.Errorf("%w: %q is reserved", ErrInvalidLabel, label)
	}
	return nil
}

// ValidatePathWithinDirectory checks if a file path is within a safe directory.
// It prevents path traversal attacks by ensuring the resolved path doesn't escape
// the specified safe directory, including through symlinks.
func ValidatePathWithinDirectory(filePath, safeDir string) error {
	absPath, err := filepath.Abs(filepath.Clean(filePath))
	if err != nil {
		return fmt.Errorf("failed to resolve absolute path: %w", err)
	}
	absSafeDir, err := filepath.Abs(safeDir)
	if err != nil {
		return fmt.Errorf("failed to resolve safe directory path: %w", err)
	}

	canonicalPath := absPath
	if resolved, err := filepath.EvalSymlinks(absPath); err == nil {
		canonicalPath = resolved
	} else {
		// Path doesn't exist yet. Resolve the nearest existing parent so
		// /tmp/evil-symlink/newfile.txt cannot escape via evil-symlink -> /etc.
		checkPath := absPath
		for {
			parentDir := filepath.Dir(checkPath)
			if parentDir == checkPath {
				break
			}
			if resolved, err := filepath.EvalSymlinks(parentDir); err == nil {
				relToParent, _ := filepath.Rel(parentDir, absPath)
				canonicalPath = filepath.Join(resolved, relToParent)
				break
			}
			checkPath = parentDir
		}
	}

	canonicalSafeDir, err := filepath.EvalSymlinks(absSafeDir)
	if err != nil {
		return fmt.Errorf("failed to resolve safe directory symlinks: %w", err)
	}

	relPath, err := filepath.Rel(canonicalSafeDir, canonicalPath)
	if err != nil {
		return fmt.Errorf("path is outside safe directory: %w", err)
	}
	if relPath == ".." || strings.HasPrefix(relPath, ".."+string(filepath.Separator)) || filepath.IsAbs(relPath) {
		return fmt.Errorf("path traversal detected: %s attempts to escape %s", filePath, safeDir)
	}
	return nil
}

// ValidatePathWithinAllowedDirs checks if a file path is within any of the
// allowed directories. An empty allow-list rejects everything.
func ValidatePathWithinAllowedDirs(filePath string, allowedDirs []string) error {
	if len(allowedDirs) == 0 {
		return fmt.Errorf("%w: none specified", ErrPathOutsideAllowed)
	}
	for _, dir := range allowedDirs {
		if err := ValidatePathWithinDirectory(filePath, dir); err == nil {
			return nil
		}
	}
	return fmt.Errorf("%w: %s must be within one of %v", ErrPathOutsideAllowed, filePath, allowedDirs)
}

// SanitizeFilename makes a safe filename from an arbitrary string. Characters
// other than ASCII letters, digits, dot, underscore or dash become an
// underscore, runs of underscores collapse, and the result is capped at
// MaxLabelLength. It returns "" when nothing usable remains.
func SanitizeFilename(s string) string {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range s {
		if b.Len() >= MaxLabelLength {
			break
		}
		switch {
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'), r == '.', r == '-':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteRune('_')
				lastUnderscore = true
			}
		}
	}
	return strings.Trim(b.String(), "._-")
}
