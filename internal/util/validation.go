package util

import (
	"regexp"
	"strings"
)

const MaxURLLength = 2048

var linkRe = regexp.MustCompile(`^https?://\S+`)

// ParseLink trims text and reports whether it is an http(s) link.
func ParseLink(text string) (string, bool) {
	s := strings.TrimSpace(text)
	if len(s) > MaxURLLength || !linkRe.MatchString(s) {
		return "", false
	}
	return s, true
}
