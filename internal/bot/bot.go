// Package bot is the Discord front end. It mirrors the Telegram flow with
// slash commands and message-component buttons.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/coah80/clipbot/internal/app"
	"github.com/coah80/clipbot/internal/config"
)

// session is the part of *discordgo.Session the bot talks to.
type session interface {
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	InteractionResponseEdit(interaction *discordgo.Interaction, newresp *discordgo.WebhookEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
	InteractionResponseDelete(interaction *discordgo.Interaction, options ...discordgo.RequestOption) error
	FollowupMessageCreate(interaction *discordgo.Interaction, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ApplicationCommandCreate(appID string, guildID string, cmd *discordgo.ApplicationCommand, options ...discordgo.RequestOption) (*discordgo.ApplicationCommand, error)
	ApplicationCommandDelete(appID, guildID, cmdID string, options ...discordgo.RequestOption) error
}

type Bot struct {
	conn   *discordgo.Session
	api    session
	appID  string
	app    *app.App
	logger *slog.Logger
	cmdIDs []string

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(cfg config.DiscordConfig, a *app.App, logger *slog.Logger) (*Bot, error) {
	s, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}

	b := newBot(s, cfg.AppID, a, logger)
	b.conn = s

	s.AddHandler(func(_ *discordgo.Session, i *discordgo.InteractionCreate) {
		b.handleInteraction(i)
	})
	s.Identify.Intents = discordgo.IntentsGuilds

	return b, nil
}

func newBot(api session, appID string, a *app.App, logger *slog.Logger) *Bot {
	ctx, cancel := context.WithCancel(context.Background())
	return &Bot{
		api:    api,
		appID:  appID,
		app:    a,
		logger: logger.With(slog.String("component", "discord")),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start opens the gateway and registers the slash commands.
func (b *Bot) Start() error {
	if b.conn != nil {
		if err := b.conn.Open(); err != nil {
			return fmt.Errorf("open discord gateway: %w", err)
		}
		b.logger.Info("logged in", slog.String("username", b.conn.State.User.Username))
	}
	b.registerCommands()
	return nil
}

func (b *Bot) registerCommands() {
	for _, cmd := range commandDefinitions() {
		created, err := b.api.ApplicationCommandCreate(b.appID, "", cmd)
		if err != nil {
			b.logger.Warn("register command failed", slog.String("command", cmd.Name), slog.Any("error", err))
			continue
		}
		b.cmdIDs = append(b.cmdIDs, created.ID)
		b.logger.Info("registered command", slog.String("command", created.Name))
	}
}

// Stop removes the commands, cancels running downloads and waits for them.
func (b *Bot) Stop() {
	for _, id := range b.cmdIDs {
		if err := b.api.ApplicationCommandDelete(b.appID, "", id); err != nil {
			b.logger.Warn("delete command failed", slog.String("id", id), slog.Any("error", err))
		}
	}
	b.cmdIDs = nil
	b.cancel()
	b.wg.Wait()
	if b.conn != nil {
		b.conn.Close()
	}
}

func commandDefinitions() []*discordgo.ApplicationCommand {
	integrations := &[]discordgo.ApplicationIntegrationType{
		discordgo.ApplicationIntegrationGuildInstall,
		discordgo.ApplicationIntegrationUserInstall,
	}
	contexts := &[]discordgo.InteractionContextType{
		discordgo.InteractionContextGuild,
		discordgo.InteractionContextBotDM,
		discordgo.InteractionContextPrivateChannel,
	}
	return []*discordgo.ApplicationCommand{
		{
			Name:             "download",
			Description:      "Download a short video from YouTube or Pinterest",
			IntegrationTypes: integrations,
			Contexts:         contexts,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "url",
					Description: "The video URL to download",
					Required:    true,
				},
			},
		},
		{
			Name:             "help",
			Description:      "Tips and limits",
			IntegrationTypes: integrations,
			Contexts:         contexts,
		},
		{
			Name:             "status",
			Description:      "Host and bot status",
			IntegrationTypes: integrations,
			Contexts:         contexts,
		},
	}
}

func (b *Bot) handleInteraction(i *discordgo.InteractionCreate) {
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		switch i.ApplicationCommandData().Name {
		case "download":
			b.handleDownload(i)
		case "help":
			b.respondEmbed(i, infoEmbed("How to use", b.app.HelpText()))
		case "status":
			b.respondEmbed(i, b.statusEmbed())
		}
	case discordgo.InteractionMessageComponent:
		b.handleButton(i)
	}
}
