package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

const (
	InvalidLinkText     = "❌ Send a valid link."
	ExpiredText         = "❌ This link has expired.\nSend it again."
	ProcessingErrorText = "❌ Something went wrong.\nTry a different link."
	UnsupportedText     = "❌ Unsupported platform.\n\n" +
		"Supported:\n" +
		"• Pinterest (video)\n" +
		"• YouTube (video/audio)\n\n" +
		"Examples:\n" +
		"https://youtube.com/shorts/...\n" +
		"https://pin.it/..."
)

func check(ok bool) string {
	if ok {
		return "✅"
	}
	return "❌"
}

func (a *App) StartText() string {
	l := a.Limits()
	return fmt.Sprintf(`👋 Hi! I download short videos.

Supported platforms:
✅ Pinterest: video
✅ YouTube: video
%s YouTube: audio (MP3)

Limits:
• Max size: %dMB
• Max duration: %d min
• Files are cleaned up automatically

How to use:
1. Send a link
2. For YouTube, pick a format
3. Get your file in 10-30 seconds

Send a link 👇`, check(l.FFmpeg), l.MaxFileSizeMB, l.MaxDurationMin)
}

func (a *App) HelpText() string {
	l := a.Limits()
	ffmpeg := "not installed ❌"
	if l.FFmpeg {
		ffmpeg = "installed ✅"
	}
	return fmt.Sprintf(`Tips for fast downloads:

1. Short videos (up to %d min) work best
2. YouTube Shorts are ideal
3. 480p keeps quality and speed balanced

Limits:
• File size: up to %dMB
• Duration: up to %d min

If it doesn't work:
• Try a shorter video
• Check the link
• Wait a minute and try again

FFmpeg: %s`, l.MaxDurationMin, l.MaxFileSizeMB, l.MaxDurationMin, ffmpeg)
}

// StatusText renders Status for chat. Host figures that could not be read
// show as zero.
func (a *App) StatusText(ctx context.Context) string {
	st, err := a.Status(ctx)
	if err != nil {
		a.logger.Warn("system info incomplete", slog.Any("error", err))
	}
	s := st.System
	return fmt.Sprintf(`System status:

💾 Disk:
• Total: %.0f GB
• Used: %.0f GB
• Free: %.0f GB

🧠 Memory:
• Total: %.0f GB
• Available: %.1f GB
• Used: %.0f%%

⚙️ Bot:
• FFmpeg: %s
• Max size: %dMB
• Max duration: %d min
• Files in folder: %d

📊 CPU:
• Cores: %d
• Load: %.0f%%`,
		s.Disk.TotalGB, s.Disk.UsedGB, s.Disk.FreeGB,
		s.Memory.TotalGB, s.Memory.AvailableGB, s.Memory.UsedPercent,
		check(st.Limits.FFmpeg), st.Limits.MaxFileSizeMB, st.Limits.MaxDurationMin, st.Files,
		s.CPU.Cores, s.CPU.Percent)
}

func (a *App) PromptText(platform string) string {
	return fmt.Sprintf(`📺 %s link detected!

Works best with:
• Videos up to %d min
• YouTube Shorts
• 480p for fast downloads

Pick a format:`, platform, a.Limits().MaxDurationMin)
}

// DownloadingText is the status message shown while a download runs.
func (a *App) DownloadingText(platform string, audio bool) string {
	l := a.Limits()
	what := "video"
	if audio {
		what = "audio"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "⏳ Downloading %s %s...\n", platform, what)
	b.WriteString("⏱️ This takes 15-30 seconds\n")
	fmt.Fprintf(&b, "📦 Max size: %dMB\n", l.MaxFileSizeMB)
	fmt.Fprintf(&b, "🕐 Max duration: %d min", l.MaxDurationMin)
	return b.String()
}
