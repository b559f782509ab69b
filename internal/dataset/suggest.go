package dataset

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/banshee-data/sensorset/internal/security"
)

// DefaultSuggestedLabel is used when a folder name yields nothing usable.
const DefaultSuggestedLabel = "dataset"

var (
	suggestPrefixes  = regexp.MustCompile(`^(split_data_|data_)`)
	suggestInvalid   = regexp.MustCompile(`[^a-zA-Z0-9_.-]`)
	suggestUnderscor = regexp.MustCompile(`_+`)
)

// SuggestLabel derives a classification label from an import folder path:
// common prefixes are stripped, invalid characters replaced, underscores
// collapsed and the result lowercased.
func SuggestLabel(folder string) string {
	name := filepath.Base(filepath.Clean(strings.TrimSpace(folder)))
	if name == "." || name == string(filepath.Separator) {
		return DefaultSuggestedLabel
	}
	name = strings.ToLower(name)
	name = suggestPrefixes.ReplaceAllString(name, "")
	name = suggestInvalid.ReplaceAllString(name, "_")
	name = suggestUnderscor.ReplaceAllString(name, "_")
	name = strings.Trim(name, "_.-")
	if len(name) > security.MaxLabelLength {
		name = strings.Trim(name[:security.MaxLabelLength], "_.-")
	}
	if security.ValidateLabel(name) != nil {
		return DefaultSuggestedLabel
	}
	return name
}
