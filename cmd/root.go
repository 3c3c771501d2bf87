package cmd

import (
	"fmt"
	"os"
	"rssreader/config"
	"rssreader/feeds"
	"rssreader/transcribe"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

const configKey = "config"

func RootApp() *cli.App {
	return &cli.App{
		Name:  "rssreader",
		Usage: "A personal RSS reader with podcast transcription",
		Description: `A personal RSS and Atom feed reader.

		The serve command runs an HTTP API that normalizes feeds into a uniform
		item shape and transcribes podcast episodes through Deepgram. The read
		command opens a terminal reader on top of that API, merging every added
		feed into a single list sorted newest first.

		Settings are read from a TOML file and a .env file in the working
		directory. Flags can generally be set via environment variables, e.g.:

		--port => RSSREADER_PORT=3000
		--deepgram-api-key => DEEPGRAM_API_KEY=...
		`,
		Metadata: map[string]interface{}{},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   "rssreader.toml",
				Usage:   "Path to the TOML configuration file",
				EnvVars: []string{"RSSREADER_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level: trace, debug, info, warn or error",
				EnvVars: []string{"RSSREADER_LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "log-format",
				Usage:   "Log format: text or json",
				EnvVars: []string{"RSSREADER_LOG_FORMAT"},
			},
		},
		Before: func(ctx *cli.Context) error {
			cfg, err := config.LoadConfig(ctx.String("config"))
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if ctx.IsSet("log-level") {
				cfg.Log.Level = ctx.String("log-level")
			}
			if ctx.IsSet("log-format") {
				cfg.Log.Format = ctx.String("log-format")
			}
			if err := configureLogging(cfg.Log); err != nil {
				return err
			}

			ctx.App.Metadata[configKey] = cfg
			return nil
		},
		Commands: []*cli.Command{
			serveCmd(),
			readCmd(),
			fetchCmd(),
			transcribeCmd(),
		},
		Action: func(ctx *cli.Context) error {
			// Show help if no command is specified
			return ctx.App.Run([]string{"", "help"})
		},
	}
}

// appConfig returns the configuration loaded before the command ran
func appConfig(ctx *cli.Context) *config.TomlConfig {
	if cfg, ok := ctx.App.Metadata[configKey].(*config.TomlConfig); ok {
		return cfg
	}
	return config.Default()
}

func configureLogging(cfg config.TomlLog) error {
	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	log.SetLevel(level)

	switch cfg.Format {
	case "json":
		log.SetFormatter(&log.JSONFormatter{})
	case "text", "":
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	default:
		return fmt.Errorf("invalid log format %q", cfg.Format)
	}

	log.SetOutput(os.Stderr)
	if cfg.File != "" {
		return logToFile(cfg.File)
	}
	return nil
}

func logToFile(path string) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("could not open log file: %w", err)
	}
	log.SetOutput(file)
	return nil
}

func newNormalizer(cfg *config.TomlConfig) *feeds.Normalizer {
	return feeds.NewNormalizer(feeds.NormalizerConfig{
		Timeout:      cfg.Fetch.Timeout.Duration,
		UserAgent:    cfg.Fetch.UserAgent,
		MaxFeedBytes: cfg.Fetch.MaxFeedBytes,
		HostInterval: cfg.Fetch.HostInterval.Duration,
	})
}

func newRetriever(cfg *config.TomlConfig) *transcribe.Retriever {
	deepgram := transcribe.NewDeepgramClient(transcribe.DeepgramConfig{
		ApiKey:    cfg.Deepgram.ApiKey,
		BaseUrl:   cfg.Deepgram.BaseUrl,
		Model:     cfg.Deepgram.Model,
		Language:  cfg.Deepgram.Language,
		Punctuate: cfg.Deepgram.Punctuate,
		Timeout:   cfg.Deepgram.Timeout.Duration,
	})

	return transcribe.NewRetriever(deepgram, transcribe.RetrieverConfig{
		Timeout:       cfg.Fetch.AudioTimeout.Duration,
		UserAgent:     cfg.Fetch.UserAgent,
		MaxAudioBytes: cfg.Fetch.MaxAudioBytes,
	})
}
