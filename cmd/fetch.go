package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"rssreader/client"
	"rssreader/reader"
	"strings"

	"github.com/cqroot/prompt"
	"github.com/urfave/cli/v2"
)

func fetchCmd() *cli.Command {
	return &cli.Command{
		Name:      "fetch",
		Usage:     "Print the normalized items of a feed",
		ArgsUsage: "[url]",
		Description: `Fetches a single RSS or Atom feed and prints the normalized
		feed as a JSON object on stdout. Asks for the URL when none is given.

		Use a tool like jq to process the output. Log messages go to stderr.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "server",
				Aliases: []string{"s"},
				Usage:   "Fetch through the API at this URL instead of in-process",
				EnvVars: []string{"RSSREADER_FETCH_SERVER_URL"},
			},
		},
		Action: func(ctx *cli.Context) error {
			cfg := appConfig(ctx)

			url := strings.TrimSpace(ctx.Args().First())
			if url == "" {
				answer, err := prompt.New().Ask("Feed URL:").Input("https://example.com/feed.xml")
				if err != nil {
					return err
				}
				url = strings.TrimSpace(answer)
			}

			var fetcher reader.FeedFetcher = newNormalizer(cfg)
			if server := ctx.String("server"); server != "" {
				fetcher = client.New(client.Config{ServerUrl: server, Timeout: cfg.Fetch.Timeout.Duration})
			}

			feed, err := fetcher.Fetch(ctx.Context, url)
			if err != nil {
				return fmt.Errorf("could not fetch feed: %w", err)
			}
			return printJson(feed)
		},
	}
}

// printJson writes v to stdout as indented JSON
func printJson(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
