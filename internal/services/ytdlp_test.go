package services

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coah80/clipbot/internal/logger"
)

func TestExtractOptionsArgs(t *testing.T) {
	opts := ExtractOptions{
		Format:              "bestaudio/best",
		OutputTemplate:      "dl/abc.%(ext)s",
		SocketTimeout:       30 * time.Second,
		Retries:             2,
		FragmentRetries:     2,
		ConcurrentFragments: 3,
		NoPlaylist:          true,
		NoMtime:             true,
		ExtractAudio:        true,
		AudioFormat:         "mp3",
		AudioQuality:        "128K",
		FFmpegLocation:      "/opt/ffmpeg",
		Headers:             map[string]string{"User-Agent": "ua", "Accept": "*/*", "Referer": ""},
	}
	args := strings.Join(opts.Args(), " ")

	assert.Contains(t, args, "--no-playlist")
	assert.Contains(t, args, "--no-mtime")
	assert.Contains(t, args, "--socket-timeout 30")
	assert.Contains(t, args, "--retries 2 --fragment-retries 2")
	assert.Contains(t, args, "--concurrent-fragments 3")
	assert.Contains(t, args, "--add-header Accept:*/* --add-header User-Agent:ua")
	assert.NotContains(t, args, "Referer")
	assert.Contains(t, args, "-f bestaudio/best")
	assert.Contains(t, args, "-x --audio-format mp3 --audio-quality 128K")
	assert.Contains(t, args, "--ffmpeg-location /opt/ffmpeg")
	assert.True(t, strings.HasSuffix(args, "-o dl/abc.%(ext)s"))
	assert.NotContains(t, args, "--merge-output-format")
}

func TestParseYtdlpProgress(t *testing.T) {
	p := ParseYtdlpProgress("[download]  42.5% of 10.00MiB at 1.23MiB/s ETA 00:05")
	assert.InDelta(t, 42.5, p.Percent, 0.001)
	assert.Equal(t, "1.23MiB/s", p.Speed)
	assert.Equal(t, "00:05", p.ETA)
}

// fakeYtdlp writes a shell script standing in for the yt-dlp binary.
func fakeYtdlp(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script stand-in needs a POSIX shell")
	}
	p := filepath.Join(t.TempDir(), "yt-dlp")
	require.NoError(t, os.WriteFile(p, []byte("#!/bin/sh\n"+body), 0o755))
	return p
}

const fakeYtdlpScript = `
for a in "$@"; do
  if [ "$a" = "-J" ]; then
    echo '{"id":"abc","title":"Fake clip","duration":42,"extractor":"youtube"}'
    exit 0
  fi
done
out=""
prev=""
for a in "$@"; do
  if [ "$prev" = "-o" ]; then out="$a"; fi
  prev="$a"
done
echo "[download]  50.0% of 1.00MiB at 1.00MiB/s ETA 00:01"
echo "[download] 100.0% of 1.00MiB at 1.00MiB/s ETA 00:00"
f=$(echo "$out" | sed 's/%(ext)s/mp4/')
printf 'data' > "$f"
`

func TestYtdlpProbeAndFetch(t *testing.T) {
	bin := fakeYtdlp(t, fakeYtdlpScript)
	y := NewYtdlp(bin, "", "", logger.Discard())
	dir := t.TempDir()
	opts := ExtractOptions{OutputTemplate: filepath.Join(dir, "abc.%(ext)s"), MatchFilter: "duration <=? 180"}

	meta, err := y.Probe(context.Background(), "https://youtu.be/abc", opts)
	require.NoError(t, err)
	assert.Equal(t, "Fake clip", meta.Title)
	assert.InDelta(t, 42.0, meta.Duration, 0.001)

	require.NoError(t, y.Fetch(context.Background(), "https://youtu.be/abc", opts))
	data, err := os.ReadFile(filepath.Join(dir, "abc.mp4"))
	require.NoError(t, err)
	assert.Equal(t, "data", string(data))
}

func TestYtdlpErrorText(t *testing.T) {
	bin := fakeYtdlp(t, "echo 'WARNING: something' >&2\necho 'ERROR: [youtube] abc: Private video' >&2\nexit 1\n")
	y := NewYtdlp(bin, "", "", logger.Discard())

	_, err := y.Probe(context.Background(), "https://youtu.be/abc", ExtractOptions{})
	require.Error(t, err)
	assert.Equal(t, "[youtube] abc: Private video", err.Error())

	err = y.Fetch(context.Background(), "https://youtu.be/abc", ExtractOptions{})
	require.Error(t, err)
	assert.Equal(t, "[youtube] abc: Private video", err.Error())
	assert.Equal(t, ReasonUnavailable, classifyExtractorError(err, 3).Reason)
}

func TestYtdlpErrorTextSkipsWarnings(t *testing.T) {
	bin := fakeYtdlp(t, "echo 'WARNING: [youtube] abc: Failed to download MPD manifest: HTTP Error 410: Gone' >&2\n"+
		"echo 'ERROR: [youtube] abc: Private video. Sign in if you have been granted access' >&2\nexit 1\n")
	y := NewYtdlp(bin, "", "", logger.Discard())

	_, err := y.Probe(context.Background(), "https://youtu.be/abc", ExtractOptions{})
	require.Error(t, err)
	f := classifyExtractorError(err, 3)
	assert.Equal(t, ReasonUnavailable, f.Reason)

	err = y.Fetch(context.Background(), "https://youtu.be/abc", ExtractOptions{})
	require.Error(t, err)
	assert.Equal(t, ReasonUnavailable, classifyExtractorError(err, 3).Reason)
}

func TestYtdlpProbeBlankStderr(t *testing.T) {
	bin := fakeYtdlp(t, "echo ' ' >&2\nexit 2\n")
	y := NewYtdlp(bin, "", "", logger.Discard())

	_, err := y.Probe(context.Background(), "https://youtu.be/abc", ExtractOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run yt-dlp")
}

func TestYtdlpMissingBinary(t *testing.T) {
	y := NewYtdlp(filepath.Join(t.TempDir(), "nope"), "", "", logger.Discard())
	_, err := y.Probe(context.Background(), "https://youtu.be/abc", ExtractOptions{})
	assert.Error(t, err)
}
