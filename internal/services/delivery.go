package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/coah80/clipbot/internal/util"
)

// Attachment is a local file to upload into a chat.
type Attachment struct {
	Path    string
	Name    string
	Caption string
	Audio   bool
	Size    int64
}

// Chat is the reply target of a download.
type Chat interface {
	SendFile(ctx context.Context, a Attachment) error
}

// StatusMessage is the progress message posted before a download starts.
type StatusMessage interface {
	Edit(ctx context.Context, text string) error
	Delete(ctx context.Context) error
}

// DeliveryReport tells the caller how a delivery went. It is not an error:
// the user has already been told.
type DeliveryReport struct {
	Sent    bool
	Size    int64
	SendErr error
}

type Delivery struct {
	logger     *slog.Logger
	maxMinutes int
}

func NewDelivery(maxMinutes int, logger *slog.Logger) *Delivery {
	return &Delivery{
		logger:     logger.With(slog.String("component", "delivery")),
		maxMinutes: maxMinutes,
	}
}

// Deliver reports a finished download to the chat. The result file is gone
// from disk when Deliver returns.
func (d *Delivery) Deliver(ctx context.Context, chat Chat, status StatusMessage, res *Result, err error, platform string, wantsAudio bool) DeliveryReport {
	if err != nil || res == nil {
		reason := "Unknown error."
		if f := AsFailure(err); f != nil {
			reason = f.Message
		}
		d.edit(ctx, status, fmt.Sprintf(
			"❌ %s download failed:\n%s\n\nTry:\n• A shorter video (up to %d min)\n• A different link\n• Checking that the video is available",
			platform, reason, d.maxMinutes))
		return DeliveryReport{}
	}
	defer os.Remove(res.Path)

	sizeMB := float64(res.Size) / (1024 * 1024)
	d.edit(ctx, status, fmt.Sprintf("✅ Downloaded! Sending file...\n📦 %.1fMB", sizeMB))

	a := Attachment{
		Path:  res.Path,
		Audio: wantsAudio,
		Size:  res.Size,
	}
	if wantsAudio {
		a.Name = platform + ".mp3"
		a.Caption = fmt.Sprintf("🎵 %s\n📦 %.1fMB", platform, sizeMB)
	} else {
		a.Name = platform + ".mp4"
		a.Caption = fmt.Sprintf("🎬 %s\n📦 %.1fMB", platform, sizeMB)
	}

	if sendErr := chat.SendFile(ctx, a); sendErr != nil {
		d.logger.Error("send failed", slog.String("file", filepath.Base(res.Path)), slog.Any("error", sendErr))
		d.edit(ctx, status, fmt.Sprintf(
			"❌ Could not send the file.\nReason: %s\n\nTry:\n1. A shorter video\n2. A different link\n3. Waiting a minute",
			util.Truncate(sendErr.Error(), maxErrorMessage)))
		return DeliveryReport{Size: res.Size, SendErr: sendErr}
	}

	if err := status.Delete(ctx); err != nil {
		d.logger.Warn("delete status message", slog.Any("error", err))
	}
	d.logger.Info("file sent", slog.String("file", filepath.Base(res.Path)), slog.String("mb", fmt.Sprintf("%.1f", sizeMB)))
	return DeliveryReport{Sent: true, Size: res.Size}
}

func (d *Delivery) edit(ctx context.Context, status StatusMessage, text string) {
	if err := status.Edit(ctx, text); err != nil {
		d.logger.Warn("edit status message", slog.Any("error", err))
	}
}
