// Package telegram is the Telegram front end: long polling, commands,
// inline format buttons and file uploads.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/coah80/clipbot/internal/app"
	"github.com/coah80/clipbot/internal/config"
	"github.com/coah80/clipbot/internal/services"
	"github.com/coah80/clipbot/internal/util"
)

// botAPI is the part of *tgbotapi.BotAPI the bot uses.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

type Bot struct {
	api         botAPI
	app         *app.App
	logger      *slog.Logger
	pollTimeout int

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	wg     sync.WaitGroup
}

func New(cfg config.TelegramConfig, a *app.App, logger *slog.Logger) (*Bot, error) {
	client := &http.Client{Timeout: cfg.GetRequestTimeout()}
	api, err := tgbotapi.NewBotAPIWithClient(cfg.Token, tgbotapi.APIEndpoint, client)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	b := newBot(api, a, logger, cfg.PollTimeout)
	b.logger.Info("authorized", slog.String("username", api.Self.UserName))
	return b, nil
}

func newBot(api botAPI, a *app.App, logger *slog.Logger, pollTimeout int) *Bot {
	if pollTimeout <= 0 {
		pollTimeout = 30
	}
	return &Bot{
		api:         api,
		app:         a,
		logger:      logger.With(slog.String("component", "telegram")),
		pollTimeout: pollTimeout,
	}
}

// Start begins long polling. Every update is handled on its own goroutine.
func (b *Bot) Start(ctx context.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cancel != nil {
		return
	}
	ctx, b.cancel = context.WithCancel(ctx)
	b.done = make(chan struct{})

	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.pollTimeout
	u.AllowedUpdates = []string{"message", "callback_query"}
	updates := b.api.GetUpdatesChan(u)

	go func() {
		defer close(b.done)
		for {
			select {
			case <-ctx.Done():
				return
			case update, ok := <-updates:
				if !ok {
					b.logger.Info("updates channel closed")
					return
				}
				b.wg.Add(1)
				go func() {
					defer b.wg.Done()
					b.handleUpdate(ctx, update)
				}()
			}
		}
	}()
	b.logger.Info("polling started", slog.Int("timeout", b.pollTimeout))
}

// Stop ends polling and waits for running handlers. In-flight downloads
// see their context cancelled.
func (b *Bot) Stop() {
	b.mu.Lock()
	cancel, done := b.cancel, b.done
	b.cancel = nil
	b.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	b.api.StopReceivingUpdates()
	<-done
	b.wg.Wait()
	b.logger.Info("polling stopped")
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	var chatID int64
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("handler panic", slog.Any("panic", r))
			if chatID != 0 {
				b.sendText(chatID, app.ProcessingErrorText)
			}
		}
	}()

	switch {
	case update.CallbackQuery != nil:
		q := update.CallbackQuery
		if q.Message == nil || q.Message.Chat == nil || !strings.HasPrefix(q.Data, app.CallbackPrefix) {
			return
		}
		chatID = q.Message.Chat.ID
		b.handleCallback(ctx, q)
	case update.Message != nil && update.Message.Chat != nil:
		chatID = update.Message.Chat.ID
		b.handleMessage(ctx, update.Message)
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	if msg.IsCommand() {
		switch msg.Command() {
		case "start":
			b.sendText(chatID, b.app.StartText())
		case "help":
			b.sendText(chatID, b.app.HelpText())
		case "status":
			b.sendText(chatID, b.app.StatusText(ctx))
		}
		return
	}
	if strings.TrimSpace(msg.Text) == "" {
		return
	}

	reply := b.app.HandleLink(msg.Text)
	switch reply.Kind {
	case app.ReplyDownload:
		b.logger.Info("link received", slog.Int64("chat_id", chatID), slog.String("platform", reply.Platform.Name))
		status, err := b.postStatus(chatID, reply.Text)
		if err != nil {
			b.logger.Error("send status message", slog.Any("error", err))
			return
		}
		b.app.Process(ctx, &chat{api: b.api, chatID: chatID}, status, reply.URL, false, reply.Platform.Name)
	case app.ReplyChoose:
		m := tgbotapi.NewMessage(chatID, reply.Text)
		m.ReplyMarkup = keyboard(reply.Buttons)
		if _, err := b.api.Send(m); err != nil {
			b.logger.Error("send format prompt", slog.Any("error", err))
		}
	default:
		b.sendText(chatID, reply.Text)
	}
}

func (b *Bot) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) {
	if _, err := b.api.Request(tgbotapi.NewCallback(q.ID, "")); err != nil {
		b.logger.Warn("answer callback", slog.Any("error", err))
	}

	chatID := q.Message.Chat.ID
	link, err := b.app.HandleCallback(q.Data)
	if err != nil {
		b.sendText(chatID, app.ExpiredText)
		return
	}

	platform := app.PlatformLabel(link.URL)
	status, err := b.postStatus(chatID, b.app.DownloadingText(platform, link.WantsAudio))
	if err != nil {
		b.logger.Error("send status message", slog.Any("error", err))
		return
	}
	b.app.Process(ctx, &chat{api: b.api, chatID: chatID}, status, link.URL, link.WantsAudio, platform)
}

func (b *Bot) postStatus(chatID int64, text string) (*statusMessage, error) {
	m, err := b.api.Send(tgbotapi.NewMessage(chatID, text))
	if err != nil {
		return nil, err
	}
	return &statusMessage{api: b.api, chatID: chatID, messageID: m.MessageID}, nil
}

func (b *Bot) sendText(chatID int64, text string) {
	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		b.logger.Warn("send message", slog.Int64("chat_id", chatID), slog.Any("error", err))
	}
}

func keyboard(buttons []app.Button) tgbotapi.InlineKeyboardMarkup {
	row := make([]tgbotapi.InlineKeyboardButton, 0, len(buttons))
	for _, btn := range buttons {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(btn.Label, btn.Data))
	}
	return tgbotapi.NewInlineKeyboardMarkup(row)
}

type chat struct {
	api    botAPI
	chatID int64
}

func (c *chat) SendFile(ctx context.Context, a services.Attachment) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f, err := os.Open(a.Path)
	if err != nil {
		return err
	}
	defer f.Close()

	file := tgbotapi.FileReader{Name: a.Name, Reader: f}
	if a.Audio {
		audio := tgbotapi.NewAudio(c.chatID, file)
		audio.Caption = a.Caption
		_, err = c.api.Send(audio)
		return err
	}
	video := tgbotapi.NewVideo(c.chatID, file)
	video.Caption = a.Caption
	video.SupportsStreaming = true
	_, err = c.api.Send(video)
	return err
}

type statusMessage struct {
	api       botAPI
	chatID    int64
	messageID int
}

func (s *statusMessage) Edit(_ context.Context, text string) error {
	_, err := s.api.Request(tgbotapi.NewEditMessageText(s.chatID, s.messageID, util.Truncate(text, 4096)))
	return err
}

func (s *statusMessage) Delete(context.Context) error {
	_, err := s.api.Request(tgbotapi.NewDeleteMessage(s.chatID, s.messageID))
	return err
}
