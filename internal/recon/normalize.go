package recon

import (
	"regexp"
	"strings"
)

// Serial suffixes look like "-123456" or "-122025-1"; everything from
// the first hyphen-digit run onwards is noise added by label printers.
var serialSuffix = regexp.MustCompile(`-\d+.*$`)

// Normalize canonicalizes an item label for comparison: lower-case,
// trim, strip trailing serials. Hyphens inside the SKU itself are kept
// (e.g. "HF-Blue-123456" -> "hf-blue"). Total and idempotent.
func Normalize(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	return serialSuffix.ReplaceAllString(s, "")
}
