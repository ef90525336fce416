package constants

import "strings"

// AllowedExtensions holds the file extensions accepted as invoice documents.
var AllowedExtensions = map[string]struct{}{
	"pdf": {},
}

// DefaultOutputName is used when the caller gives no output base name.
const DefaultOutputName = "invoice_data.xlsx"

// StagingFileName is the intermediate JSON artifact written next to the table.
const StagingFileName = "combined_data.json"

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// IsAllowedExt reports whether ext (with or without dot) is an invoice document extension.
func IsAllowedExt(ext string) bool {
	_, ok := AllowedExtensions[NormalizeExt(ext)]
	return ok
}

// EnsureXLSX appends ".xlsx" when name lacks it and substitutes the default for blank names.
func EnsureXLSX(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return DefaultOutputName
	}
	if !strings.HasSuffix(strings.ToLower(name), ".xlsx") {
		name += ".xlsx"
	}
	return name
}
