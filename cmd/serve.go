package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"rssreader/server"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func serveCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the feed and transcription API",
		Description: `Starts the HTTP API on the specified or default port.

		POST /rss/fetch normalizes the feed at the given URL and
		POST /transcribe-audio transcribes an audio file with Deepgram.
		Health and Prometheus metrics are served on /healthz and /metrics.`,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to listen on",
				EnvVars: []string{"RSSREADER_PORT", "PORT"},
			},
			&cli.StringFlag{
				Name:    "hostname",
				Aliases: []string{"n"},
				Usage:   "Address to bind to, empty binds every interface",
				EnvVars: []string{"RSSREADER_HOSTNAME"},
			},
			&cli.StringFlag{
				Name:    "cors-origins",
				Usage:   "Comma separated origins allowed to call the API from a browser",
				EnvVars: []string{"RSSREADER_CORS_ORIGINS"},
			},
			&cli.StringFlag{
				Name:    "deepgram-api-key",
				Usage:   "Deepgram API key used for transcription",
				EnvVars: []string{"RSSREADER_DEEPGRAM_API_KEY", "DEEPGRAM_API_KEY"},
			},
		},
		Action: func(ctx *cli.Context) error {
			cfg := appConfig(ctx)
			if ctx.IsSet("port") {
				cfg.Server.Port = ctx.Int("port")
			}
			if ctx.IsSet("cors-origins") {
				cfg.Server.CorsOrigins = ctx.String("cors-origins")
			}
			if ctx.IsSet("deepgram-api-key") {
				cfg.Deepgram.ApiKey = ctx.String("deepgram-api-key")
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			if cfg.Deepgram.ApiKey == "" {
				log.Warn("No Deepgram API key configured, transcription requests will fail")
			}

			app := server.Server(&server.ServerConfig{
				Feeds:        newNormalizer(cfg),
				Transcripts:  newRetriever(cfg),
				CorsOrigins:  cfg.Server.CorsOrigins,
				ReadTimeout:  cfg.Server.ReadTimeout.Duration,
				WriteTimeout: cfg.Server.WriteTimeout.Duration,
				BodyLimit:    cfg.Server.BodyLimit,
			})

			// Graceful shutdown
			c := make(chan os.Signal, 1)
			signal.Notify(c, os.Interrupt, syscall.SIGTERM)
			go func() {
				<-c
				log.Info("Gracefully shutting down...")
				if err := app.ShutdownWithTimeout(60 * time.Second); err != nil {
					log.WithFields(log.Fields{
						"error": err,
					}).Error("Error shutting down server")
				}
			}()

			addr := fmt.Sprintf("%s:%d", ctx.String("hostname"), cfg.Server.Port)
			log.WithFields(log.Fields{
				"addr": addr,
			}).Info("Starting server")

			if err := app.Listen(addr); err != nil {
				return fmt.Errorf("server stopped: %w", err)
			}

			log.Info("Done!")
			return nil
		},
	}
}
