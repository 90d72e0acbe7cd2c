package services

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os/exec"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/coah80/clipbot/internal/util"
)

var percentRe = regexp.MustCompile(`([\d.]+)%`)
var speedRe = regexp.MustCompile(`at\s+([\d.]+\s*\w+/s)`)
var etaRe = regexp.MustCompile(`ETA\s+(\S+)`)

type YtdlpProgress struct {
	Percent float64
	Speed   string
	ETA     string
}

func ParseYtdlpProgress(text string) YtdlpProgress {
	var p YtdlpProgress
	if m := percentRe.FindStringSubmatch(text); len(m) > 1 {
		p.Percent, _ = strconv.ParseFloat(m[1], 64)
	}
	if m := speedRe.FindStringSubmatch(text); len(m) > 1 {
		p.Speed = m[1]
	}
	if m := etaRe.FindStringSubmatch(text); len(m) > 1 {
		p.ETA = m[1]
	}
	return p
}

// ExtractOptions is the bounded configuration handed to the extractor.
type ExtractOptions struct {
	Format              string
	OutputTemplate      string
	SocketTimeout       time.Duration
	Retries             int
	FragmentRetries     int
	ConcurrentFragments int
	NoPlaylist          bool
	NoMtime             bool
	MergeOutputFormat   string
	ExtractAudio        bool
	AudioFormat         string
	AudioQuality        string
	PostprocessorArgs   string
	ExtractorArgs       string
	MatchFilter         string
	FFmpegLocation      string
	Headers             map[string]string
}

// Args renders the options as yt-dlp flags, excluding the URL.
func (o ExtractOptions) Args() []string {
	var args []string
	if o.NoPlaylist {
		args = append(args, "--no-playlist")
	}
	if o.NoMtime {
		args = append(args, "--no-mtime")
	}
	if o.SocketTimeout > 0 {
		args = append(args, "--socket-timeout", strconv.Itoa(int(o.SocketTimeout.Seconds())))
	}
	args = append(args,
		"--retries", strconv.Itoa(o.Retries),
		"--fragment-retries", strconv.Itoa(o.FragmentRetries),
	)
	if o.ConcurrentFragments > 0 {
		args = append(args, "--concurrent-fragments", strconv.Itoa(o.ConcurrentFragments))
	}

	keys := make([]string, 0, len(o.Headers))
	for k := range o.Headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if v := o.Headers[k]; v != "" {
			args = append(args, "--add-header", k+":"+v)
		}
	}

	if o.Format != "" {
		args = append(args, "-f", o.Format)
	}
	if o.MergeOutputFormat != "" {
		args = append(args, "--merge-output-format", o.MergeOutputFormat)
	}
	if o.ExtractAudio {
		args = append(args, "-x")
		if o.AudioFormat != "" {
			args = append(args, "--audio-format", o.AudioFormat)
		}
		if o.AudioQuality != "" {
			args = append(args, "--audio-quality", o.AudioQuality)
		}
	}
	if o.PostprocessorArgs != "" {
		args = append(args, "--postprocessor-args", o.PostprocessorArgs)
	}
	if o.ExtractorArgs != "" {
		args = append(args, "--extractor-args", o.ExtractorArgs)
	}
	if o.FFmpegLocation != "" {
		args = append(args, "--ffmpeg-location", o.FFmpegLocation)
	}
	if o.OutputTemplate != "" {
		args = append(args, "-o", o.OutputTemplate)
	}
	return args
}

// Ytdlp runs the yt-dlp binary.
type Ytdlp struct {
	Path        string
	CookiesFile string
	Proxy       string
	logger      *slog.Logger
}

func NewYtdlp(path, cookiesFile, proxy string, logger *slog.Logger) *Ytdlp {
	if path == "" {
		path = "yt-dlp"
	}
	return &Ytdlp{
		Path:        path,
		CookiesFile: cookiesFile,
		Proxy:       proxy,
		logger:      logger.With(slog.String("component", "yt-dlp")),
	}
}

func (y *Ytdlp) baseArgs() []string {
	args := append([]string{}, util.CookiesArgs(y.CookiesFile)...)
	return append(args, util.ProxyArgs(y.Proxy)...)
}

// Probe dumps the info JSON without downloading. The match filter is left
// out on purpose: a filtered video prints no JSON at all.
func (y *Ytdlp) Probe(ctx context.Context, url string, opts ExtractOptions) (*Metadata, error) {
	opts.MatchFilter = ""
	args := append(y.baseArgs(), opts.Args()...)
	args = append(args, "-J", "--skip-download", url)

	cmd := exec.CommandContext(ctx, y.Path, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if msg := util.ExtractorError(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%s", msg)
		}
		return nil, fmt.Errorf("run yt-dlp: %w", err)
	}

	var meta Metadata
	if err := json.Unmarshal(out, &meta); err != nil {
		return nil, fmt.Errorf("parse yt-dlp info: %w", err)
	}
	return &meta, nil
}

func (y *Ytdlp) Fetch(ctx context.Context, url string, opts ExtractOptions) error {
	args := append(y.baseArgs(), opts.Args()...)
	if opts.MatchFilter != "" {
		args = append(args, "--match-filters", opts.MatchFilter)
	}
	args = append(args, "--newline", url)

	cmd := exec.CommandContext(ctx, y.Path, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start yt-dlp: %w", err)
	}

	var stderrOutput strings.Builder
	var lastProgress float64
	var mu sync.Mutex
	var wg sync.WaitGroup
	wg.Add(2)

	report := func(line string) {
		if !strings.Contains(line, "[download]") || !strings.Contains(line, "%") {
			return
		}
		p := ParseYtdlpProgress(line)
		mu.Lock()
		shouldReport := p.Percent > 0 && (p.Percent >= lastProgress+10 || p.Percent >= 100)
		if shouldReport {
			lastProgress = p.Percent
		}
		mu.Unlock()
		if shouldReport {
			y.logger.Debug("progress", slog.Float64("percent", p.Percent), slog.String("speed", p.Speed), slog.String("eta", p.ETA))
		}
	}

	go func() {
		defer wg.Done()
		scanner := bufio.NewScanner(stdout)
		for scanner.Scan() {
			report(scanner.Text())
		}
	}()

	go func() {
		defer wg.Done()
		scanner := bufio.NewScanner(stderr)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Text()
			mu.Lock()
			stderrOutput.WriteString(line + "\n")
			mu.Unlock()
			report(line)
		}
	}()

	wg.Wait()
	if err := cmd.Wait(); err != nil {
		if msg := util.ExtractorError(stderrOutput.String()); msg != "" {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("yt-dlp failed: %w", err)
	}
	return nil
}
