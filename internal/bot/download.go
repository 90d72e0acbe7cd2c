package bot

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/coah80/clipbot/internal/app"
	"github.com/coah80/clipbot/internal/services"
	"github.com/coah80/clipbot/internal/util"
)

const maxContentLength = 2000

func (b *Bot) handleDownload(i *discordgo.InteractionCreate) {
	rawURL := ""
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Name == "url" {
			rawURL = opt.StringValue()
		}
	}

	if !b.deferResponse(i) {
		return
	}

	reply := b.app.HandleLink(rawURL)
	switch reply.Kind {
	case app.ReplyDownload:
		b.process(i, reply.URL, false, reply.Platform.Name, reply.Text)
	case app.ReplyChoose:
		b.edit(i, &discordgo.WebhookEdit{
			Content:    &reply.Text,
			Components: &[]discordgo.MessageComponent{buttonRow(reply.Buttons)},
		})
	default:
		b.edit(i, &discordgo.WebhookEdit{
			Embeds: &[]*discordgo.MessageEmbed{errorEmbed("Can't download that", reply.Text)},
		})
	}
}

func (b *Bot) handleButton(i *discordgo.InteractionCreate) {
	data := i.MessageComponentData()
	if !strings.HasPrefix(data.CustomID, app.CallbackPrefix) {
		return
	}
	if !b.deferResponse(i) {
		return
	}

	link, err := b.app.HandleCallback(data.CustomID)
	if err != nil {
		b.edit(i, &discordgo.WebhookEdit{
			Embeds: &[]*discordgo.MessageEmbed{errorEmbed("Link expired", app.ExpiredText)},
		})
		return
	}
	platform := app.PlatformLabel(link.URL)
	b.process(i, link.URL, link.WantsAudio, platform, b.app.DownloadingText(platform, link.WantsAudio))
}

// process shows the status text on the deferred response and downloads in
// the background.
func (b *Bot) process(i *discordgo.InteractionCreate, url string, audio bool, platform, statusText string) {
	b.edit(i, &discordgo.WebhookEdit{Content: &statusText})

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				b.logger.Error("download panic", slog.Any("panic", r))
			}
		}()
		chat := &followupChat{api: b.api, interaction: i.Interaction}
		status := &responseStatus{api: b.api, interaction: i.Interaction}
		b.app.Process(b.ctx, chat, status, url, audio, platform)
	}()
}

func (b *Bot) deferResponse(i *discordgo.InteractionCreate) bool {
	err := b.api.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	})
	if err != nil {
		b.logger.Error("failed to defer response", slog.Any("error", err))
		return false
	}
	return true
}

func (b *Bot) edit(i *discordgo.InteractionCreate, e *discordgo.WebhookEdit) {
	if _, err := b.api.InteractionResponseEdit(i.Interaction, e); err != nil {
		b.logger.Warn("failed to edit response", slog.Any("error", err))
	}
}

func (b *Bot) respondEmbed(i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed) {
	err := b.api.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
		},
	})
	if err != nil {
		b.logger.Warn("failed to respond", slog.Any("error", err))
	}
}

func buttonRow(buttons []app.Button) discordgo.ActionsRow {
	row := discordgo.ActionsRow{}
	for idx, btn := range buttons {
		style := discordgo.PrimaryButton
		if idx > 0 {
			style = discordgo.SecondaryButton
		}
		row.Components = append(row.Components, discordgo.Button{
			Label:    btn.Label,
			Style:    style,
			CustomID: btn.Data,
		})
	}
	return row
}

// followupChat uploads files as follow-up messages of an interaction.
type followupChat struct {
	api         session
	interaction *discordgo.Interaction
}

func (c *followupChat) SendFile(ctx context.Context, a services.Attachment) error {
	f, err := os.Open(a.Path)
	if err != nil {
		return err
	}
	defer f.Close()

	contentType := "video/mp4"
	if a.Audio {
		contentType = "audio/mpeg"
	}
	_, err = c.api.FollowupMessageCreate(c.interaction, true, &discordgo.WebhookParams{
		Content: a.Caption,
		Files: []*discordgo.File{
			{Name: a.Name, ContentType: contentType, Reader: f},
		},
	}, discordgo.WithContext(ctx))
	return err
}

// responseStatus uses the deferred interaction response as status message.
type responseStatus struct {
	api         session
	interaction *discordgo.Interaction
}

func (s *responseStatus) Edit(ctx context.Context, text string) error {
	text = util.Truncate(text, maxContentLength)
	_, err := s.api.InteractionResponseEdit(s.interaction, &discordgo.WebhookEdit{
		Content:    &text,
		Components: &[]discordgo.MessageComponent{},
	}, discordgo.WithContext(ctx))
	return err
}

func (s *responseStatus) Delete(ctx context.Context) error {
	return s.api.InteractionResponseDelete(s.interaction, discordgo.WithContext(ctx))
}
