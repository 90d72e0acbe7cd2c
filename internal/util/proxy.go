package util

// ProxyArgs returns yt-dlp args routing traffic through proxyURL.
func ProxyArgs(proxyURL string) []string {
	if proxyURL == "" {
		return nil
	}
	return []string{"--proxy", proxyURL}
}
