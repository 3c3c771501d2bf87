package cmd

import (
	"fmt"
	"strings"

	"github.com/cqroot/prompt"
	"github.com/cqroot/prompt/input"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func transcribeCmd() *cli.Command {
	return &cli.Command{
		Name:      "transcribe",
		Usage:     "Transcribe an audio file with Deepgram",
		ArgsUsage: "[url]",
		Description: `Downloads the audio file at the given URL, transcribes it with
		Deepgram and prints the result as a JSON object on stdout.

		Asks for the URL when none is given, and for the Deepgram API key when
		none is configured. The key is not echoed.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "deepgram-api-key",
				Usage:   "Deepgram API key used for transcription",
				EnvVars: []string{"RSSREADER_DEEPGRAM_API_KEY", "DEEPGRAM_API_KEY"},
			},
		},
		Action: func(ctx *cli.Context) error {
			cfg := appConfig(ctx)
			if ctx.IsSet("deepgram-api-key") {
				cfg.Deepgram.ApiKey = ctx.String("deepgram-api-key")
			}

			url := strings.TrimSpace(ctx.Args().First())
			if url == "" {
				answer, err := prompt.New().Ask("Audio URL:").Input("https://example.com/episode.mp3")
				if err != nil {
					return err
				}
				url = strings.TrimSpace(answer)
			}

			if cfg.Deepgram.ApiKey == "" {
				key, err := prompt.New().Ask("Deepgram API key:").Input("", input.WithEchoMode(input.EchoNone))
				if err != nil {
					return err
				}
				cfg.Deepgram.ApiKey = strings.TrimSpace(key)
			}

			log.WithFields(log.Fields{
				"url":   url,
				"model": cfg.Deepgram.Model,
			}).Info("Transcribing audio")

			result, err := newRetriever(cfg).Retrieve(ctx.Context, url)
			if err != nil {
				return fmt.Errorf("could not transcribe audio: %w", err)
			}
			return printJson(result)
		},
	}
}
