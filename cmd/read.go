package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"rssreader/client"
	"rssreader/reader"
	"rssreader/tui"

	tea "github.com/charmbracelet/bubbletea"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func readCmd() *cli.Command {
	return &cli.Command{
		Name:  "read",
		Usage: "Read feeds in the terminal",
		Description: `Opens the terminal reader.

		Feeds are fetched through the HTTP API started with the serve command.
		Use --local to fetch and transcribe in-process instead.

		Keys: a add feed, r refresh, enter select, esc back,
		t transcribe the selected episode, q quit.

		Logs are written to a file since the terminal is taken by the UI.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "server",
				Aliases: []string{"s"},
				Usage:   "Base URL of the rssreader API",
				EnvVars: []string{"RSSREADER_SERVER_URL"},
			},
			&cli.BoolFlag{
				Name:    "local",
				Usage:   "Fetch feeds and transcribe audio without a server",
				EnvVars: []string{"RSSREADER_LOCAL"},
			},
			&cli.IntFlag{
				Name:    "concurrency",
				Usage:   "Number of feeds fetched at once during a refresh",
				EnvVars: []string{"RSSREADER_CONCURRENCY"},
			},
			&cli.DurationFlag{
				Name:    "cache-ttl",
				Usage:   "Keep fetched feeds in memory for this long, zero fetches on every selection",
				EnvVars: []string{"RSSREADER_CACHE_TTL"},
			},
			&cli.StringSliceFlag{
				Name:    "feed",
				Aliases: []string{"f"},
				Usage:   "Feed URL to add on startup, can be repeated",
				EnvVars: []string{"RSSREADER_FEEDS"},
			},
			&cli.StringFlag{
				Name:    "log-file",
				Value:   filepath.Join(os.TempDir(), "rssreader.log"),
				Usage:   "File to write logs to while the reader runs",
				EnvVars: []string{"RSSREADER_LOG_FILE"},
			},
		},
		Action: func(ctx *cli.Context) error {
			cfg := appConfig(ctx)
			if ctx.IsSet("server") {
				cfg.Reader.ServerUrl = ctx.String("server")
			}
			if ctx.IsSet("concurrency") {
				cfg.Reader.Concurrency = ctx.Int("concurrency")
			}
			if ctx.IsSet("cache-ttl") {
				cfg.Reader.CacheTTL.Duration = ctx.Duration("cache-ttl")
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			logFile := cfg.Log.File
			if logFile == "" || ctx.IsSet("log-file") {
				logFile = ctx.String("log-file")
			}
			if err := logToFile(logFile); err != nil {
				return err
			}

			var (
				fetcher     reader.FeedFetcher
				transcripts reader.TranscriptFetcher
			)
			if ctx.Bool("local") {
				fetcher = newNormalizer(cfg)
				transcripts = newRetriever(cfg)
			} else {
				api := client.New(client.Config{
					ServerUrl: cfg.Reader.ServerUrl,
					Timeout:   cfg.Deepgram.Timeout.Duration,
					UserAgent: cfg.Fetch.UserAgent,
				})
				fetcher = api
				transcripts = api
			}

			fetcher = reader.WithCache(fetcher, cfg.Reader.CacheSize, cfg.Reader.CacheTTL.Duration)
			purger, _ := fetcher.(tui.Purger)

			store := reader.NewStore(fetcher, transcripts, reader.WithConcurrency(cfg.Reader.Concurrency))

			for _, url := range ctx.StringSlice("feed") {
				if _, err := store.AddFeed(ctx.Context, url); err != nil {
					log.WithFields(log.Fields{
						"url":   url,
						"error": err,
					}).Warn("Could not add startup feed")
				}
			}

			log.WithFields(log.Fields{
				"server": cfg.Reader.ServerUrl,
				"local":  ctx.Bool("local"),
				"feeds":  len(store.State().Feeds),
			}).Info("Starting reader")

			program := tea.NewProgram(
				tui.NewModel(ctx.Context, store, purger),
				tea.WithAltScreen(),
				tea.WithContext(ctx.Context),
			)
			if _, err := program.Run(); err != nil {
				return fmt.Errorf("reader stopped: %w", err)
			}
			return nil
		},
	}
}
