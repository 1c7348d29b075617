// Package validation sanitizes caller-supplied strings before they reach
// response headers or the filesystem.
package validation

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// maxNameLen bounds sanitized filenames to the common filesystem limit.
const maxNameLen = 255

// SanitizeFilename makes a name safe for Content-Disposition headers and
// file paths. Quotes, path separators, colons and control characters become
// underscores; other Unicode passes through untouched. Overlong names are
// truncated with the extension kept. Names that sanitize away entirely
// become "file".
func SanitizeFilename(name string) string {
	sanitized := strings.Map(func(r rune) rune {
		switch {
		case r < 32 || r == 127:
			return '_'
		case r == '"' || r == '\\' || r == '/' || r == ':':
			return '_'
		default:
			return r
		}
	}, name)

	sanitized = strings.TrimSpace(sanitized)
	if strings.Trim(sanitized, "_") == "" {
		return "file"
	}
	if len(sanitized) > maxNameLen {
		sanitized = truncateKeepingExt(sanitized)
	}
	return sanitized
}

// ContentDisposition builds a Content-Disposition header value with the
// filename sanitized, so caller-controlled titles cannot inject headers or
// break out of the quoted parameter.
func ContentDisposition(filename string, inline bool) string {
	disposition := "attachment"
	if inline {
		disposition = "inline"
	}
	return fmt.Sprintf("%s; filename=%q", disposition, SanitizeFilename(filename))
}

func truncateKeepingExt(name string) string {
	ext := filepath.Ext(name)
	if ext == "" || len(ext) >= maxNameLen {
		return truncateRunes(name, maxNameLen)
	}
	base := name[:len(name)-len(ext)]
	return truncateRunes(base, maxNameLen-len(ext)) + ext
}

// truncateRunes cuts s to at most maxBytes bytes on a rune boundary.
func truncateRunes(s string, maxBytes int) string {
	if len(s) <= maxBytes {
		return s
	}
	for maxBytes > 0 && !utf8.RuneStart(s[maxBytes]) {
		maxBytes--
	}
	return s[:maxBytes]
}
