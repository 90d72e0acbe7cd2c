package util

import (
	"regexp"
	"strings"
)

var ytdlpErrorRe = regexp.MustCompile(`(?m)^ERROR:\s*(.+?)\s*$`)

// ExtractorError returns the last "ERROR: ..." line of yt-dlp stderr, or the
// whole trimmed stderr when there is none. Warnings are never picked.
func ExtractorError(stderr string) string {
	matches := ytdlpErrorRe.FindAllStringSubmatch(stderr, -1)
	for i := len(matches) - 1; i >= 0; i-- {
		if msg := strings.TrimSpace(matches[i][1]); msg != "" {
			return msg
		}
	}
	return strings.TrimSpace(stderr)
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
