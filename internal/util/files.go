package util

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

var unsafeFilenameRe = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)
var multiSpaceRe = regexp.MustCompile(`\s+`)

// SanitizeFilename strips path-unsafe characters and keeps at most maxRunes runes.
func SanitizeFilename(name string, maxRunes int) string {
	s := unsafeFilenameRe.ReplaceAllString(name, "")
	s = multiSpaceRe.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)
	if r := []rune(s); maxRunes > 0 && len(r) > maxRunes {
		s = strings.TrimSpace(string(r[:maxRunes]))
	}
	return s
}

func isPartial(name string) bool {
	return strings.HasSuffix(name, ".part") ||
		strings.Contains(name, ".part-Frag") ||
		strings.HasSuffix(name, ".ytdl") ||
		strings.HasSuffix(name, ".temp")
}

// FindByPrefix returns the first complete file in dir whose name starts with prefix.
func FindByPrefix(dir, prefix string) (string, bool) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false
	}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, prefix) || isPartial(name) {
			continue
		}
		return filepath.Join(dir, name), true
	}
	return "", false
}

// RemoveByPrefix deletes every file in dir starting with prefix, partial ones included.
func RemoveByPrefix(dir, prefix string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), prefix) {
			os.Remove(filepath.Join(dir, e.Name()))
		}
	}
}

// CountFiles returns the number of entries in dir, 0 if it cannot be read.
func CountFiles(dir string) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	return len(entries)
}

// ClearDir removes every entry in dir and recreates it if missing.
func ClearDir(dir string) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		os.MkdirAll(dir, 0o755)
		return 0
	}
	removed := 0
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(dir, e.Name())); err == nil {
			removed++
		}
	}
	return removed
}

// RemoveStaleFiles deletes regular files in dir modified more than maxAge before now.
// Failures are skipped; a file that is already gone is not an error.
func RemoveStaleFiles(dir string, maxAge time.Duration, now time.Time) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var removed []string
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if now.Sub(info.ModTime()) <= maxAge {
			continue
		}
		if err := os.Remove(filepath.Join(dir, e.Name())); err == nil {
			removed = append(removed, e.Name())
		}
	}
	return removed
}
