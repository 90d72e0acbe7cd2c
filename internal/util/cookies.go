package util

// CookiesArgs returns yt-dlp args for a Netscape cookies file, nil when it is missing.
func CookiesArgs(path string) []string {
	if path == "" || !fileExists(path) {
		return nil
	}
	return []string{"--cookies", path}
}
