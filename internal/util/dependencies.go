package util

import (
	"os"
	"os/exec"
	"path/filepath"
)

type Dependencies struct {
	YtdlpPath  string
	FFmpegPath string
}

func (d Dependencies) HasYtdlp() bool  { return d.YtdlpPath != "" }
func (d Dependencies) HasFFmpeg() bool { return d.FFmpegPath != "" }

// CheckDependencies resolves yt-dlp and ffmpeg. An explicit ffmpeg path wins;
// otherwise PATH is searched, then the directory holding the executable.
func CheckDependencies(ytdlp, ffmpeg string) Dependencies {
	var d Dependencies

	if ytdlp == "" {
		ytdlp = "yt-dlp"
	}
	if p, err := exec.LookPath(ytdlp); err == nil {
		d.YtdlpPath = p
	}

	if ffmpeg != "" {
		if fileExists(ffmpeg) {
			d.FFmpegPath = ffmpeg
		}
		return d
	}
	if p, err := exec.LookPath("ffmpeg"); err == nil {
		d.FFmpegPath = p
		return d
	}
	if exe, err := os.Executable(); err == nil {
		dir := filepath.Dir(exe)
		for _, name := range []string{"ffmpeg", "ffmpeg.exe"} {
			if p := filepath.Join(dir, name); fileExists(p) {
				d.FFmpegPath = p
				break
			}
		}
	}
	return d
}

func fileExists(p string) bool {
	info, err := os.Stat(p)
	return err == nil && !info.IsDir()
}
