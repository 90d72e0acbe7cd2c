package bot

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/coah80/clipbot/internal/config"
)

const (
	colorInfo  = 0x5865F2
	colorError = 0xED4245
)

const statusTimeout = 5 * time.Second

func footerText() string {
	return "clipbot " + config.Version
}

func infoEmbed(title, text string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       title,
		Description: text,
		Color:       colorInfo,
		Footer:      &discordgo.MessageEmbedFooter{Text: footerText()},
	}
}

func errorEmbed(title, message string) *discordgo.MessageEmbed {
	if message == "" {
		message = "Something went wrong"
	}
	return &discordgo.MessageEmbed{
		Title:       title,
		Description: message,
		Color:       colorError,
		Footer:      &discordgo.MessageEmbedFooter{Text: "Try a different link"},
	}
}

func onOff(ok bool) string {
	if ok {
		return "Yes"
	}
	return "No"
}

func (b *Bot) statusEmbed() *discordgo.MessageEmbed {
	ctx, cancel := context.WithTimeout(b.ctx, statusTimeout)
	defer cancel()

	st, err := b.app.Status(ctx)
	if err != nil {
		b.logger.Warn("system info incomplete", slog.Any("error", err))
	}
	s := st.System
	return &discordgo.MessageEmbed{
		Title: "Status",
		Color: colorInfo,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Disk", Value: fmt.Sprintf("%.0f / %.0f GB used, %.0f GB free", s.Disk.UsedGB, s.Disk.TotalGB, s.Disk.FreeGB), Inline: true},
			{Name: "Memory", Value: fmt.Sprintf("%.1f GB available of %.0f GB (%.0f%% used)", s.Memory.AvailableGB, s.Memory.TotalGB, s.Memory.UsedPercent), Inline: true},
			{Name: "CPU", Value: fmt.Sprintf("%d cores, %.0f%% load", s.CPU.Cores, s.CPU.Percent), Inline: true},
			{Name: "FFmpeg", Value: onOff(st.Limits.FFmpeg), Inline: true},
			{Name: "Limits", Value: fmt.Sprintf("%dMB, %d min", st.Limits.MaxFileSizeMB, st.Limits.MaxDurationMin), Inline: true},
			{Name: "Files", Value: fmt.Sprint(st.Files), Inline: true},
		},
		Footer: &discordgo.MessageEmbedFooter{Text: footerText()},
	}
}
