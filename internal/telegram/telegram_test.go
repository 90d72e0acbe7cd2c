package telegram

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/coah80/clipbot/internal/app"
	"github.com/coah80/clipbot/internal/config"
	"github.com/coah80/clipbot/internal/logger"
	"github.com/coah80/clipbot/internal/services"
)

type mockAPI struct {
	mock.Mock
	updates chan tgbotapi.Update
}

func (m *mockAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	args := m.Called(c)
	return args.Get(0).(tgbotapi.Message), args.Error(1)
}

func (m *mockAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	args := m.Called(c)
	resp, _ := args.Get(0).(*tgbotapi.APIResponse)
	return resp, args.Error(1)
}

func (m *mockAPI) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return m.updates
}

func (m *mockAPI) StopReceivingUpdates() {}

func newMockAPI() *mockAPI {
	m := &mockAPI{updates: make(chan tgbotapi.Update)}
	m.On("Send", mock.Anything).Return(tgbotapi.Message{MessageID: 99}, nil)
	m.On("Request", mock.Anything).Return(&tgbotapi.APIResponse{Ok: true}, nil)
	return m
}

// sent returns the chattables passed to method, in call order.
func (m *mockAPI) sent(method string) []tgbotapi.Chattable {
	var out []tgbotapi.Chattable
	for _, c := range m.Calls {
		if c.Method == method {
			out = append(out, c.Arguments.Get(0).(tgbotapi.Chattable))
		}
	}
	return out
}

type stubExtractor struct{}

func (stubExtractor) Probe(context.Context, string, services.ExtractOptions) (*services.Metadata, error) {
	return &services.Metadata{Title: "pin", Duration: 12}, nil
}

func (stubExtractor) Fetch(_ context.Context, _ string, opts services.ExtractOptions) error {
	return os.WriteFile(strings.Replace(opts.OutputTemplate, "%(ext)s", "mp4", 1), []byte("video"), 0o644)
}

func newTestBot(t *testing.T, api botAPI) (*Bot, string) {
	t.Helper()
	dir := t.TempDir()
	d := services.NewDownloader(services.DownloaderConfig{
		Dir:         dir,
		MaxFileSize: 20 * config.MB,
		MaxDuration: 180 * time.Second,
		FFmpegPath:  "/usr/bin/ffmpeg",
	}, stubExtractor{}, logger.Discard())
	return newBot(api, app.New(d, nil, logger.Discard()), logger.Discard(), 0), dir
}

func textMessage(text string) tgbotapi.Update {
	msg := &tgbotapi.Message{MessageID: 1, Text: text, Chat: &tgbotapi.Chat{ID: 42}}
	if strings.HasPrefix(text, "/") {
		msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(strings.Fields(text)[0])}}
	}
	return tgbotapi.Update{Message: msg}
}

func TestCommands(t *testing.T) {
	for _, cmd := range []string{"/start", "/help"} {
		t.Run(cmd, func(t *testing.T) {
			api := newMockAPI()
			b, _ := newTestBot(t, api)

			b.handleUpdate(context.Background(), textMessage(cmd))

			sent := api.sent("Send")
			require.Len(t, sent, 1)
			m := sent[0].(tgbotapi.MessageConfig)
			assert.Equal(t, int64(42), m.ChatID)
			assert.NotEmpty(t, m.Text)
		})
	}
}

func TestInvalidLink(t *testing.T) {
	api := newMockAPI()
	b, _ := newTestBot(t, api)

	b.handleUpdate(context.Background(), textMessage("not a link"))

	sent := api.sent("Send")
	require.Len(t, sent, 1)
	assert.Equal(t, app.InvalidLinkText, sent[0].(tgbotapi.MessageConfig).Text)
}

func TestYouTubeLinkOffersFormats(t *testing.T) {
	api := newMockAPI()
	b, _ := newTestBot(t, api)

	b.handleUpdate(context.Background(), textMessage("https://youtu.be/abc"))

	sent := api.sent("Send")
	require.Len(t, sent, 1)
	m := sent[0].(tgbotapi.MessageConfig)
	kb, ok := m.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	require.Len(t, kb.InlineKeyboard, 1)
	require.Len(t, kb.InlineKeyboard[0], 2)
	assert.Equal(t, "dl:"+services.LinkToken("https://youtu.be/abc", false), *kb.InlineKeyboard[0][0].CallbackData)
	assert.Equal(t, "dl:"+services.LinkToken("https://youtu.be/abc", true), *kb.InlineKeyboard[0][1].CallbackData)
}

func TestExpiredCallback(t *testing.T) {
	api := newMockAPI()
	b, _ := newTestBot(t, api)

	b.handleUpdate(context.Background(), tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb1",
		Data:    "dl:ffffffffffff",
		Message: &tgbotapi.Message{MessageID: 5, Chat: &tgbotapi.Chat{ID: 42}},
	}})

	req := api.sent("Request")
	require.Len(t, req, 1)
	assert.Equal(t, "cb1", req[0].(tgbotapi.CallbackConfig).CallbackQueryID)

	sent := api.sent("Send")
	require.Len(t, sent, 1)
	assert.Equal(t, app.ExpiredText, sent[0].(tgbotapi.MessageConfig).Text)
}

func TestPinterestLinkDownloadsAndCleansUp(t *testing.T) {
	api := newMockAPI()
	b, dir := newTestBot(t, api)

	b.handleUpdate(context.Background(), textMessage("https://pin.it/abc"))

	sent := api.sent("Send")
	require.Len(t, sent, 2)
	assert.Contains(t, sent[0].(tgbotapi.MessageConfig).Text, "Downloading Pinterest video")
	video := sent[1].(tgbotapi.VideoConfig)
	assert.True(t, video.SupportsStreaming)
	assert.Contains(t, video.Caption, "Pinterest")
	assert.Equal(t, "Pinterest.mp4", video.File.(tgbotapi.FileReader).Name)

	req := api.sent("Request")
	require.Len(t, req, 2)
	edit := req[0].(tgbotapi.EditMessageTextConfig)
	assert.Equal(t, 99, edit.MessageID)
	assert.Contains(t, edit.Text, "Downloaded")
	assert.Equal(t, 99, req[1].(tgbotapi.DeleteMessageConfig).MessageID)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCallbackDownloadsChosenFormat(t *testing.T) {
	api := newMockAPI()
	b, _ := newTestBot(t, api)
	reply := b.app.HandleLink("https://youtu.be/abc")

	b.handleUpdate(context.Background(), tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb2",
		Data:    reply.Buttons[0].Data,
		Message: &tgbotapi.Message{MessageID: 5, Chat: &tgbotapi.Chat{ID: 42}},
	}})

	sent := api.sent("Send")
	require.Len(t, sent, 2)
	assert.Contains(t, sent[0].(tgbotapi.MessageConfig).Text, "Downloading YouTube video")
	assert.IsType(t, tgbotapi.VideoConfig{}, sent[1])
}

func TestStartStop(t *testing.T) {
	api := newMockAPI()
	b, _ := newTestBot(t, api)

	b.Start(context.Background())
	api.updates <- textMessage("/help")
	b.Stop()
	b.Stop()

	assert.Len(t, api.sent("Send"), 1)
}
