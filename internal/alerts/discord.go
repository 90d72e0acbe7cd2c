package alerts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/slack-go/slack"

	"github.com/coah80/clipbot/internal/config"
	"github.com/coah80/clipbot/internal/util"
)

const (
	colorOrange = 0xFFA500
	colorRed    = 0xFF4444
	colorCrit   = 0xFF0000
	colorGreen  = 0x2ECC71
)

const sendTimeout = 10 * time.Second

type embed struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Color       int     `json:"color"`
	Fields      []field `json:"fields,omitempty"`
	Timestamp   string  `json:"timestamp"`
	Footer      *footer `json:"footer,omitempty"`
}

type field struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type footer struct {
	Text string `json:"text"`
}

type payload struct {
	Content string  `json:"content,omitempty"`
	Embeds  []embed `json:"embeds"`
}

// Notifier posts operator alerts to a Discord webhook and a Slack incoming
// webhook. Sends are fire-and-forget; a nil Notifier drops everything.
type Notifier struct {
	discordURL string
	pingUserID string
	slackURL   string
	client     *http.Client
	logger     *slog.Logger

	mu        sync.Mutex
	cooldowns map[string]time.Time
	now       func() time.Time
	wg        sync.WaitGroup
}

func New(cfg config.AlertsConfig, logger *slog.Logger) *Notifier {
	return &Notifier{
		discordURL: cfg.DiscordWebhookURL,
		pingUserID: cfg.DiscordPingUserID,
		slackURL:   cfg.SlackWebhookURL,
		client:     &http.Client{Timeout: sendTimeout},
		logger:     logger.With(slog.String("component", "alerts")),
		cooldowns:  make(map[string]time.Time),
		now:        time.Now,
	}
}

func (n *Notifier) Enabled() bool {
	return n != nil && (n.discordURL != "" || n.slackURL != "")
}

// Wait blocks until every alert already queued has been posted.
func (n *Notifier) Wait() {
	if n == nil {
		return
	}
	n.wg.Wait()
}

type alert struct {
	category    string
	cooldown    time.Duration
	ping        bool
	color       int
	title       string
	description string
	fields      []field
}

func (n *Notifier) send(a alert) {
	if !n.Enabled() {
		return
	}

	n.mu.Lock()
	now := n.now()
	if a.cooldown > 0 {
		if last, ok := n.cooldowns[a.category]; ok && now.Sub(last) < a.cooldown {
			n.mu.Unlock()
			return
		}
	}
	n.cooldowns[a.category] = now
	n.mu.Unlock()

	var fields []field
	for _, f := range a.fields {
		if f.Value == "" {
			continue
		}
		f.Value = truncate(f.Value, 1024)
		f.Inline = true
		fields = append(fields, f)
	}
	a.fields = fields

	if n.discordURL != "" {
		n.wg.Add(1)
		go func() {
			defer n.wg.Done()
			if err := n.postDiscord(a, now); err != nil {
				n.logger.Warn("discord webhook failed", slog.Any("error", err))
			}
		}()
	}
	if n.slackURL != "" {
		n.wg.Add(1)
		go func() {
			defer n.wg.Done()
			if err := n.postSlack(a); err != nil {
				n.logger.Warn("slack webhook failed", slog.Any("error", err))
			}
		}()
	}
}

func (n *Notifier) postDiscord(a alert, now time.Time) error {
	p := payload{
		Embeds: []embed{{
			Title:       a.title,
			Description: truncate(a.description, 2048),
			Color:       a.color,
			Fields:      a.fields,
			Timestamp:   now.UTC().Format(time.RFC3339),
			Footer:      &footer{Text: "clipbot " + config.Version},
		}},
	}
	if a.ping && n.pingUserID != "" {
		p.Content = fmt.Sprintf("<@%s>", n.pingUserID)
	}

	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	resp, err := n.client.Post(n.discordURL, "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}

func (n *Notifier) postSlack(a alert) error {
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	att := slack.Attachment{
		Color:  fmt.Sprintf("#%06X", a.color),
		Title:  a.title,
		Text:   truncate(a.description, 2048),
		Footer: "clipbot " + config.Version,
	}
	for _, f := range a.fields {
		att.Fields = append(att.Fields, slack.AttachmentField{Title: f.Name, Value: f.Value, Short: f.Inline})
	}
	return slack.PostWebhookCustomHTTPContext(ctx, n.slackURL, n.client, &slack.WebhookMessage{
		Attachments: []slack.Attachment{att},
	})
}

func (n *Notifier) Started(frontends string) {
	n.send(alert{
		category:    "start",
		color:       colorGreen,
		title:       "Bot Started",
		description: fmt.Sprintf("clipbot %s is running (%s)", config.Version, frontends),
	})
}

func (n *Notifier) Stopping() {
	n.send(alert{
		category:    "stop",
		color:       colorOrange,
		title:       "Bot Stopping",
		description: "clipbot is shutting down",
	})
}

// DownloadFailed alerts on failures the operator can act on. fatal marks
// host faults such as a full disk.
func (n *Notifier) DownloadFailed(platform, url string, err error, fatal bool) {
	a := alert{
		category:    "download",
		cooldown:    5 * time.Second,
		ping:        true,
		color:       colorRed,
		title:       "Download Failed",
		description: err.Error(),
		fields: []field{
			{Name: "Platform", Value: platform},
			{Name: "URL", Value: truncate(url, 200)},
			{Name: "Error", Value: truncate(err.Error(), 500)},
		},
	}
	if fatal {
		a.category = "host"
		a.cooldown = 60 * time.Second
		a.color = colorCrit
		a.title = "Host Fault"
	}
	n.send(a)
}

func (n *Notifier) DeliveryFailed(platform string, size int64, err error) {
	n.send(alert{
		category:    "delivery",
		cooldown:    5 * time.Second,
		color:       colorOrange,
		title:       "Delivery Failed",
		description: err.Error(),
		fields: []field{
			{Name: "Platform", Value: platform},
			{Name: "Size", Value: fmt.Sprintf("%.1fMB", float64(size)/(1024*1024))},
		},
	})
}

// truncate cuts s to maxLen runes, marking the cut with "...".
func truncate(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	return util.Truncate(s, maxLen-3) + "..."
}
