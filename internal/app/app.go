// Package app wires the link store, downloader and delivery into the
// operations both chat front ends call.
package app

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/coah80/clipbot/internal/alerts"
	"github.com/coah80/clipbot/internal/metrics"
	"github.com/coah80/clipbot/internal/services"
	"github.com/coah80/clipbot/internal/util"
)

// CallbackPrefix marks button payloads that carry a link token.
const CallbackPrefix = "dl:"

var ErrExpiredLink = errors.New("link expired")

type ReplyKind int

const (
	ReplyInvalid ReplyKind = iota
	ReplyUnsupported
	// ReplyDownload means the front end should start downloading URL as video.
	ReplyDownload
	// ReplyChoose means the user has to pick a format from Buttons.
	ReplyChoose
)

type Button struct {
	Label string
	Data  string
}

// LinkReply is what a front end should do with an incoming message.
type LinkReply struct {
	Kind     ReplyKind
	Text     string
	URL      string
	Platform services.Platform
	Buttons  []Button
}

type App struct {
	links      *services.LinkStore
	downloader *services.Downloader
	delivery   *services.Delivery
	alerts     *alerts.Notifier
	logger     *slog.Logger
	sysInfo    func(ctx context.Context, path string) (util.SystemInfo, error)
}

func New(downloader *services.Downloader, notifier *alerts.Notifier, logger *slog.Logger) *App {
	cfg := downloader.Config()
	return &App{
		links:      services.NewLinkStore(),
		downloader: downloader,
		delivery:   services.NewDelivery(int(cfg.MaxDuration.Minutes()), logger),
		alerts:     notifier,
		logger:     logger.With(slog.String("component", "app")),
		sysInfo:    util.GetSystemInfo,
	}
}

// HandleLink decides how to answer a text message.
func (a *App) HandleLink(text string) LinkReply {
	url, ok := util.ParseLink(text)
	if !ok {
		return LinkReply{Kind: ReplyInvalid, Text: InvalidLinkText}
	}

	platform, ok := services.ClassifyURL(url)
	if !ok {
		return LinkReply{Kind: ReplyUnsupported, Text: UnsupportedText}
	}

	if !platform.Audio {
		return LinkReply{
			Kind:     ReplyDownload,
			Text:     a.DownloadingText(platform.Name, false),
			URL:      url,
			Platform: platform,
		}
	}

	buttons := []Button{{Label: "🎬 Video (480p MP4)", Data: CallbackPrefix + a.links.Add(url, false)}}
	if a.downloader.HasFFmpeg() {
		buttons = append(buttons, Button{Label: "🎵 Audio (MP3)", Data: CallbackPrefix + a.links.Add(url, true)})
	}
	metrics.SetLinkTokens(a.links.Len())

	return LinkReply{
		Kind:     ReplyChoose,
		Text:     a.PromptText(platform.Name),
		URL:      url,
		Platform: platform,
		Buttons:  buttons,
	}
}

// HandleCallback resolves a button payload. Tokens do not survive a restart.
func (a *App) HandleCallback(data string) (services.Link, error) {
	token, ok := strings.CutPrefix(data, CallbackPrefix)
	if !ok {
		return services.Link{}, ErrExpiredLink
	}
	link, ok := a.links.Resolve(token)
	if !ok {
		return services.Link{}, ErrExpiredLink
	}
	return link, nil
}

// PlatformLabel names the platform of url for captions and messages.
func PlatformLabel(url string) string {
	if p, ok := services.ClassifyURL(url); ok {
		return p.Name
	}
	return services.YouTube.Name
}

// Process downloads url and hands the outcome to the chat.
func (a *App) Process(ctx context.Context, chat services.Chat, status services.StatusMessage, url string, wantsAudio bool, platform string) {
	start := time.Now()
	res, err := a.downloader.Download(ctx, url, wantsAudio)

	audio := wantsAudio
	if res != nil {
		audio = res.Audio
	}

	reason := ""
	if err != nil {
		f := services.AsFailure(err)
		reason = string(f.Reason)
		fatal := services.IsFatal(err)
		switch {
		case fatal:
			a.logger.Error("download failed on a host fault", slog.String("platform", platform), slog.Any("error", err))
			a.alerts.DownloadFailed(platform, url, err, true)
		case f.Reason == services.ReasonUnknown:
			a.logger.Warn("download failed", slog.String("platform", platform), slog.Any("error", err))
			a.alerts.DownloadFailed(platform, url, err, false)
		default:
			a.logger.Info("download rejected", slog.String("platform", platform), slog.String("reason", reason))
		}
	}
	metrics.RecordDownload(platform, audio, reason, time.Since(start))

	rep := a.delivery.Deliver(ctx, chat, status, res, err, platform, audio)
	if rep.Sent {
		metrics.RecordDelivered(audio, rep.Size)
	}
	if rep.SendErr != nil {
		a.alerts.DeliveryFailed(platform, rep.Size, rep.SendErr)
	}
}

type Limits struct {
	MaxFileSizeMB  int64 `json:"max_file_size_mb"`
	MaxDurationMin int   `json:"max_duration_min"`
	FFmpeg         bool  `json:"ffmpeg"`
}

func (a *App) Limits() Limits {
	cfg := a.downloader.Config()
	return Limits{
		MaxFileSizeMB:  cfg.MaxFileSize / (1024 * 1024),
		MaxDurationMin: int(cfg.MaxDuration.Minutes()),
		FFmpeg:         a.downloader.HasFFmpeg(),
	}
}

type Capability struct {
	Platform string `json:"platform"`
	Video    bool   `json:"video"`
	Audio    bool   `json:"audio"`
}

// Capabilities lists what each platform can deliver on this host.
func (a *App) Capabilities() []Capability {
	ffmpeg := a.downloader.HasFFmpeg()
	return []Capability{
		{Platform: services.Pinterest.Name, Video: true, Audio: services.Pinterest.Audio && ffmpeg},
		{Platform: services.YouTube.Name, Video: true, Audio: services.YouTube.Audio && ffmpeg},
	}
}

func (a *App) FileCount() int {
	return util.CountFiles(a.downloader.Config().Dir)
}

type Status struct {
	Limits     Limits          `json:"limits"`
	Files      int             `json:"files"`
	LinkTokens int             `json:"link_tokens"`
	System     util.SystemInfo `json:"system"`
}

// Status gathers limits, working directory and host figures. Host figures
// that could not be read are zero and reported in the error.
func (a *App) Status(ctx context.Context) (Status, error) {
	info, err := a.sysInfo(ctx, a.downloader.Config().Dir)
	return Status{
		Limits:     a.Limits(),
		Files:      a.FileCount(),
		LinkTokens: a.links.Len(),
		System:     info,
	}, err
}
