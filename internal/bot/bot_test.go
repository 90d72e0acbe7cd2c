package bot

import (
	"context"
	"io"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coah80/clipbot/internal/app"
	"github.com/coah80/clipbot/internal/config"
	"github.com/coah80/clipbot/internal/logger"
	"github.com/coah80/clipbot/internal/services"
)

type fakeSession struct {
	mu        sync.Mutex
	responses []*discordgo.InteractionResponse
	edits     []*discordgo.WebhookEdit
	followups []*discordgo.WebhookParams
	uploaded  []string
	deletes   int
	created   []string
	removed   []string
}

func (f *fakeSession) InteractionRespond(_ *discordgo.Interaction, resp *discordgo.InteractionResponse, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses = append(f.responses, resp)
	return nil
}

func (f *fakeSession) InteractionResponseEdit(_ *discordgo.Interaction, e *discordgo.WebhookEdit, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, e)
	return &discordgo.Message{}, nil
}

func (f *fakeSession) InteractionResponseDelete(*discordgo.Interaction, ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes++
	return nil
}

func (f *fakeSession) FollowupMessageCreate(_ *discordgo.Interaction, _ bool, data *discordgo.WebhookParams, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.followups = append(f.followups, data)
	for _, file := range data.Files {
		b, _ := io.ReadAll(file.Reader)
		f.uploaded = append(f.uploaded, string(b))
	}
	return &discordgo.Message{}, nil
}

func (f *fakeSession) ApplicationCommandCreate(_ string, _ string, cmd *discordgo.ApplicationCommand, _ ...discordgo.RequestOption) (*discordgo.ApplicationCommand, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, cmd.Name)
	return &discordgo.ApplicationCommand{ID: "id-" + cmd.Name, Name: cmd.Name}, nil
}

func (f *fakeSession) ApplicationCommandDelete(_, _, cmdID string, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, cmdID)
	return nil
}

type stubExtractor struct{}

func (stubExtractor) Probe(context.Context, string, services.ExtractOptions) (*services.Metadata, error) {
	return &services.Metadata{Title: "clip", Duration: 20}, nil
}

func (stubExtractor) Fetch(_ context.Context, _ string, opts services.ExtractOptions) error {
	ext := "mp4"
	if opts.ExtractAudio {
		ext = "mp3"
	}
	return os.WriteFile(strings.Replace(opts.OutputTemplate, "%(ext)s", ext, 1), []byte("media"), 0o644)
}

func newTestBot(t *testing.T) (*Bot, *fakeSession, string) {
	t.Helper()
	dir := t.TempDir()
	d := services.NewDownloader(services.DownloaderConfig{
		Dir:         dir,
		MaxFileSize: 20 * config.MB,
		MaxDuration: 180 * time.Second,
		FFmpegPath:  "/usr/bin/ffmpeg",
	}, stubExtractor{}, logger.Discard())
	fs := &fakeSession{}
	return newBot(fs, "app", app.New(d, nil, logger.Discard()), logger.Discard()), fs, dir
}

func command(name string, opts ...*discordgo.ApplicationCommandInteractionDataOption) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		Type: discordgo.InteractionApplicationCommand,
		Data: discordgo.ApplicationCommandInteractionData{Name: name, Options: opts},
	}}
}

func urlOption(url string) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{
		Name:  "url",
		Type:  discordgo.ApplicationCommandOptionString,
		Value: url,
	}
}

func button(customID string) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		Type: discordgo.InteractionMessageComponent,
		Data: discordgo.MessageComponentInteractionData{CustomID: customID},
	}}
}

func TestRegisterAndRemoveCommands(t *testing.T) {
	b, fs, _ := newTestBot(t)
	require.NoError(t, b.Start())
	assert.Equal(t, []string{"download", "help", "status"}, fs.created)

	b.Stop()
	assert.Equal(t, []string{"id-download", "id-help", "id-status"}, fs.removed)
}

func TestDownloadCommandOffersButtons(t *testing.T) {
	b, fs, _ := newTestBot(t)
	b.handleInteraction(command("download", urlOption("https://youtu.be/abc")))
	b.wg.Wait()

	require.Len(t, fs.responses, 1)
	assert.Equal(t, discordgo.InteractionResponseDeferredChannelMessageWithSource, fs.responses[0].Type)
	require.Len(t, fs.edits, 1)
	comps := *fs.edits[0].Components
	require.Len(t, comps, 1)
	row := comps[0].(discordgo.ActionsRow)
	require.Len(t, row.Components, 2)
	assert.Equal(t, "dl:"+services.LinkToken("https://youtu.be/abc", false), row.Components[0].(discordgo.Button).CustomID)
}

func TestDownloadCommandRejectsUnsupported(t *testing.T) {
	b, fs, _ := newTestBot(t)
	b.handleInteraction(command("download", urlOption("https://vimeo.com/1")))

	require.Len(t, fs.edits, 1)
	embeds := *fs.edits[0].Embeds
	require.Len(t, embeds, 1)
	assert.Equal(t, app.UnsupportedText, embeds[0].Description)
}

func TestButtonDownloadsAndUploads(t *testing.T) {
	b, fs, dir := newTestBot(t)
	reply := b.app.HandleLink("https://youtu.be/abc")

	b.handleInteraction(button(reply.Buttons[1].Data))
	b.wg.Wait()

	require.Len(t, fs.followups, 1)
	assert.Equal(t, "YouTube.mp3", fs.followups[0].Files[0].Name)
	assert.Equal(t, "audio/mpeg", fs.followups[0].Files[0].ContentType)
	assert.Equal(t, []string{"media"}, fs.uploaded)
	assert.Equal(t, 1, fs.deletes)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestExpiredButton(t *testing.T) {
	b, fs, _ := newTestBot(t)
	b.handleInteraction(button("dl:aaaaaaaaaaaa"))
	b.wg.Wait()

	require.Len(t, fs.edits, 1)
	assert.Equal(t, app.ExpiredText, (*fs.edits[0].Embeds)[0].Description)
	assert.Empty(t, fs.followups)
}

func TestPinterestCommandDownloadsImmediately(t *testing.T) {
	b, fs, _ := newTestBot(t)
	b.handleInteraction(command("download", urlOption("https://pin.it/abc")))
	b.wg.Wait()

	require.Len(t, fs.followups, 1)
	assert.Equal(t, "Pinterest.mp4", fs.followups[0].Files[0].Name)
	assert.Contains(t, fs.followups[0].Content, "Pinterest")
}

func TestHelpAndStatus(t *testing.T) {
	b, fs, _ := newTestBot(t)
	b.handleInteraction(command("help"))
	b.handleInteraction(command("status"))

	require.Len(t, fs.responses, 2)
	for _, r := range fs.responses {
		assert.Equal(t, discordgo.InteractionResponseChannelMessageWithSource, r.Type)
		require.Len(t, r.Data.Embeds, 1)
	}
	assert.Contains(t, fs.responses[0].Data.Embeds[0].Description, "Short videos")
	assert.Equal(t, "Status", fs.responses[1].Data.Embeds[0].Title)
}
