// Package pathsan normalizes user/project/file names to safe on-disk
// segments. Ported from the original path_engine.py: illegal characters
// are replaced with "_" (not stripped), nesting ("User/Project") is
// preserved by sanitizing each segment independently, and a segment that
// normalizes to empty falls back to a default.
package pathsan

import (
	"regexp"
	"strings"
)

const DefaultSegment = "default"

var (
	segmentIllegal = regexp.MustCompile(`[^a-zA-Z0-9_-]`)
	fileIllegal    = regexp.MustCompile(`[^a-zA-Z0-9_.-]`)
)

// SafeProjectName normalizes a "User/Project"-shaped string, preserving
// nesting. Each "/"-separated segment is sanitized on its own.
func SafeProjectName(name string) string {
	raw := strings.ReplaceAll(strings.TrimSpace(name), "\\", "/")
	var parts []string
	for _, p := range strings.Split(raw, "/") {
		p = strings.TrimSpace(p)
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return DefaultSegment
	}

	cleaned := make([]string, 0, len(parts))
	for _, p := range parts {
		c := segmentIllegal.ReplaceAllString(strings.TrimSpace(p), "_")
		if c == "" {
			c = DefaultSegment
		}
		cleaned = append(cleaned, c)
	}
	return strings.Join(cleaned, "/")
}

// SafeFilename normalizes a single filename, stripping any directory
// components (only the basename survives) and preserving the extension
// separator.
func SafeFilename(name string) string {
	base := strings.ReplaceAll(strings.TrimSpace(name), "\\", "/")
	if i := strings.LastIndex(base, "/"); i >= 0 {
		base = base[i+1:]
	}
	base = fileIllegal.ReplaceAllString(base, "_")
	if base == "" {
		return "file.bin"
	}
	return base
}
