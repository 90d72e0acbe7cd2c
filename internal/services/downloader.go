package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/coah80/clipbot/internal/util"
)

const (
	maxTitleRunes = 50
	maxPathLength = 255
	fileIDLength  = 8

	videoFormat = "best[height<=480][ext=mp4]/best[ext=mp4]/best"
	audioFormat = "bestaudio/best"
)

// Metadata is the subset of yt-dlp's info JSON the downloader reads.
type Metadata struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	Duration  float64 `json:"duration"`
	Extractor string  `json:"extractor"`
}

// Extractor fetches media for a URL. Probe must not download media bytes.
type Extractor interface {
	Probe(ctx context.Context, url string, opts ExtractOptions) (*Metadata, error)
	Fetch(ctx context.Context, url string, opts ExtractOptions) error
}

type DownloaderConfig struct {
	Dir                 string
	MaxFileSize         int64
	MaxDuration         time.Duration
	SocketTimeout       time.Duration
	Retries             int
	ConcurrentFragments int
	UserAgent           string
	// FFmpegPath is empty when ffmpeg is not available on the host.
	FFmpegPath string
}

type Result struct {
	Path     string
	Title    string
	Size     int64
	Platform Platform
	Audio    bool
}

type Downloader struct {
	cfg       DownloaderConfig
	extractor Extractor
	logger    *slog.Logger
	newID     func() string
}

func NewDownloader(cfg DownloaderConfig, extractor Extractor, logger *slog.Logger) *Downloader {
	return &Downloader{
		cfg:       cfg,
		extractor: extractor,
		logger:    logger.With(slog.String("component", "downloader")),
		newID: func() string {
			return uuid.NewString()[:fileIDLength]
		},
	}
}

func (d *Downloader) HasFFmpeg() bool { return d.cfg.FFmpegPath != "" }

func (d *Downloader) Config() DownloaderConfig { return d.cfg }

// Download fetches url into the working directory. Every failure comes back
// as a *Failure; nothing is left on disk when it does.
func (d *Downloader) Download(ctx context.Context, url string, wantsAudio bool) (*Result, error) {
	platform, ok := ClassifyURL(url)
	if !ok {
		platform = YouTube
	}
	audio := wantsAudio && platform.Audio
	if audio && !d.HasFFmpeg() {
		return nil, &Failure{Reason: ReasonNoFFmpeg, Message: "FFmpeg is not installed, audio is unavailable."}
	}

	id := d.newID()
	opts := d.options(platform, audio, id)
	log := d.logger.With(slog.String("id", id), slog.String("platform", platform.Name), slog.Bool("audio", audio))
	log.Info("download started", slog.String("url", util.Truncate(url, 50)))

	meta, err := d.extractor.Probe(ctx, url, opts)
	if err != nil {
		log.Warn("probe failed", slog.Any("error", err))
		return nil, classifyExtractorError(err, d.maxMinutes())
	}
	if meta == nil {
		return nil, &Failure{Reason: ReasonUnknown, Message: "Could not read video info."}
	}
	if limit := d.cfg.MaxDuration.Seconds(); limit > 0 && meta.Duration > limit {
		secs := int(meta.Duration)
		return nil, &Failure{
			Reason:  ReasonTooLong,
			Message: fmt.Sprintf("Video is too long (%d:%02d). Maximum is %d min.", secs/60, secs%60, d.maxMinutes()),
		}
	}

	if err := d.extractor.Fetch(ctx, url, opts); err != nil {
		util.RemoveByPrefix(d.cfg.Dir, id)
		log.Warn("fetch failed", slog.Any("error", err))
		return nil, classifyExtractorError(err, d.maxMinutes())
	}

	produced, ok := util.FindByPrefix(d.cfg.Dir, id)
	if !ok {
		util.RemoveByPrefix(d.cfg.Dir, id)
		return nil, &Failure{Reason: ReasonNotFound, Message: "File not found after download."}
	}

	title := meta.Title
	if title == "" {
		title = platform.Name
	}
	final := finalPath(d.cfg.Dir, id, title, filepath.Ext(produced))
	if final != produced {
		if err := os.Rename(produced, final); err != nil {
			os.Remove(produced)
			return nil, unexpected(err)
		}
	}

	// the janitor ages files by mtime
	now := time.Now()
	if err := os.Chtimes(final, now, now); err != nil {
		log.Warn("touch file", slog.Any("error", err))
	}

	info, err := os.Stat(final)
	if err != nil {
		return nil, unexpected(err)
	}
	if d.cfg.MaxFileSize > 0 && info.Size() > d.cfg.MaxFileSize {
		os.Remove(final)
		return nil, &Failure{
			Reason:  ReasonTooLarge,
			Message: fmt.Sprintf("File is too large (%dMB).", info.Size()/(1024*1024)),
		}
	}

	log.Info("download complete", slog.String("file", filepath.Base(final)), slog.Int64("kb", info.Size()/1024))
	return &Result{
		Path:     final,
		Title:    util.SanitizeFilename(title, maxTitleRunes),
		Size:     info.Size(),
		Platform: platform,
		Audio:    audio,
	}, nil
}

func (d *Downloader) maxMinutes() int {
	return int(d.cfg.MaxDuration.Minutes())
}

func (d *Downloader) options(p Platform, audio bool, id string) ExtractOptions {
	opts := ExtractOptions{
		OutputTemplate:      filepath.Join(d.cfg.Dir, id+".%(ext)s"),
		SocketTimeout:       d.cfg.SocketTimeout,
		Retries:             d.cfg.Retries,
		FragmentRetries:     d.cfg.Retries,
		ConcurrentFragments: d.cfg.ConcurrentFragments,
		NoPlaylist:          true,
		NoMtime:             true,
		FFmpegLocation:      d.cfg.FFmpegPath,
		Headers: map[string]string{
			"User-Agent": d.cfg.UserAgent,
			"Accept":     "*/*",
		},
	}
	if d.cfg.MaxDuration > 0 {
		opts.MatchFilter = "duration <=? " + strconv.Itoa(int(d.cfg.MaxDuration.Seconds()))
	}

	if audio {
		opts.Format = audioFormat
		opts.ExtractAudio = true
		opts.AudioFormat = "mp3"
		opts.AudioQuality = "128K"
		opts.ExtractorArgs = "youtube:format=bestaudio"
	} else {
		opts.Format = videoFormat
		opts.MergeOutputFormat = "mp4"
		if d.cfg.MaxFileSize > 0 {
			opts.PostprocessorArgs = "ffmpeg:-fs " + strconv.FormatInt(d.cfg.MaxFileSize, 10)
		}
	}

	if p.Name == Pinterest.Name {
		opts.Format = "best"
		opts.ExtractorArgs = "pinterest:format=best"
	}
	return opts
}

// finalPath builds "<id>_<title><ext>", falling back to "<id><ext>" when the
// title sanitizes to nothing or the path would get too long.
func finalPath(dir, id, title, ext string) string {
	bare := filepath.Join(dir, id+ext)
	safe := util.SanitizeFilename(title, maxTitleRunes)
	if safe == "" {
		return bare
	}
	p := filepath.Join(dir, id+"_"+safe+ext)
	if len(p) > maxPathLength {
		return bare
	}
	return p
}
