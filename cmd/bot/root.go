package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/coah80/clipbot/internal/alerts"
	"github.com/coah80/clipbot/internal/app"
	"github.com/coah80/clipbot/internal/bot"
	"github.com/coah80/clipbot/internal/config"
	"github.com/coah80/clipbot/internal/logger"
	"github.com/coah80/clipbot/internal/metrics"
	"github.com/coah80/clipbot/internal/server"
	"github.com/coah80/clipbot/internal/services"
	"github.com/coah80/clipbot/internal/telegram"
	"github.com/coah80/clipbot/internal/util"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "clipbot",
	Short: "Chat bot that downloads short videos from YouTube and Pinterest",
	Long: `clipbot answers links sent over Telegram or Discord with the video or
audio file, fetched through yt-dlp and capped in size and duration.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(true)
		if err != nil {
			return err
		}
		closer, err := logger.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.File)
		defer closer.Close()
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return run(ctx, cfg, logger.L)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "path to the YAML config file")
	rootCmd.AddCommand(sweepCmd, versionCmd)
}

func loadConfig(validate bool) (*config.Config, error) {
	if err := config.LoadEnv(); err != nil {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if !validate {
		return cfg, nil
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config:\n%w", err)
	}
	return cfg, nil
}

type frontend interface {
	Stop()
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	dl := cfg.Download
	if err := os.MkdirAll(dl.Dir, 0o755); err != nil {
		return fmt.Errorf("create download dir: %w", err)
	}

	deps := util.CheckDependencies(dl.YtdlpPath, dl.FFmpegPath)
	if !deps.HasYtdlp() {
		return errors.New("yt-dlp not found, install it or set download.ytdlp_path")
	}
	if !deps.HasFFmpeg() {
		log.Warn("ffmpeg not found, audio downloads are disabled")
	}

	downloader := services.NewDownloader(services.DownloaderConfig{
		Dir:                 dl.Dir,
		MaxFileSize:         dl.MaxFileSize(),
		MaxDuration:         dl.GetMaxDuration(),
		SocketTimeout:       dl.GetSocketTimeout(),
		Retries:             dl.Retries,
		ConcurrentFragments: dl.ConcurrentFragments,
		UserAgent:           dl.UserAgent,
		FFmpegPath:          deps.FFmpegPath,
	}, services.NewYtdlp(deps.YtdlpPath, dl.CookiesFile, dl.Proxy, log), log)

	notifier := alerts.New(cfg.Alerts, log)
	core := app.New(downloader, notifier, log)

	log.Info("starting clipbot",
		slog.String("version", config.Version),
		slog.Bool("ffmpeg", deps.HasFFmpeg()),
		slog.Int64("max_size_mb", dl.MaxFileSizeMB),
		slog.Duration("max_duration", dl.GetMaxDuration()),
	)

	janitor := services.NewJanitor(dl.Dir, cfg.Janitor.GetInterval(), cfg.Janitor.GetMaxAge(), log)
	janitor.OnSweep = metrics.RecordJanitorRemoved
	if cfg.Janitor.ClearOnStart {
		janitor.Clear()
	}
	janitor.Start(ctx)
	defer janitor.Stop()

	var frontends []frontend
	var names []string
	defer func() {
		for _, f := range frontends {
			f.Stop()
		}
	}()

	if cfg.Telegram.Token != "" {
		tg, err := telegram.New(cfg.Telegram, core, log)
		if err != nil {
			return err
		}
		tg.Start(ctx)
		frontends = append(frontends, tg)
		names = append(names, "telegram")
	}

	if cfg.Discord.Token != "" {
		dc, err := bot.New(cfg.Discord, core, log)
		if err != nil {
			return err
		}
		if err := dc.Start(); err != nil {
			return err
		}
		frontends = append(frontends, dc)
		names = append(names, "discord")
	}

	var wg sync.WaitGroup
	serverErr := make(chan error, 1)
	if cfg.Server.Enabled {
		srv, limiter := server.New(cfg.Server, core, log)
		wg.Add(2)
		go func() {
			defer wg.Done()
			limiter.Cleanup(ctx)
		}()
		go func() {
			defer wg.Done()
			if err := server.Run(ctx, srv, log); err != nil {
				serverErr <- err
			}
		}()
	}

	notifier.Started(strings.Join(names, ", "))
	log.Info("bot is running", slog.String("frontends", strings.Join(names, ", ")))

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case runErr = <-serverErr:
		log.Error("status server failed", slog.Any("error", runErr))
	}

	notifier.Stopping()
	cancel()
	for _, f := range frontends {
		f.Stop()
	}
	frontends = nil
	wg.Wait()
	notifier.Wait()
	log.Info("bot stopped")
	return runErr
}
