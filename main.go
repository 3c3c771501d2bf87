package main

import (
	"errors"
	"io/fs"
	"os"
	"rssreader/cmd"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	_ "golang.org/x/crypto/x509roots/fallback" // We need this to make TLS work in scratch containers
)

func main() {
	// Load .env before the flags read their environment variables
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.WithFields(log.Fields{
			"error": err,
		}).Warn("Could not load .env file")
	}

	if err := cmd.RootApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
