package cmd

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"rssreader/config"
	"rssreader/models"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func TestConfigureLogging(t *testing.T) {
	t.Cleanup(func() {
		log.SetLevel(log.InfoLevel)
		log.SetFormatter(&log.TextFormatter{})
		log.SetOutput(os.Stderr)
	})

	tests := []struct {
		name    string
		cfg     config.TomlLog
		level   log.Level
		wantErr bool
	}{
		{name: "defaults", cfg: config.TomlLog{Level: "info", Format: "text"}, level: log.InfoLevel},
		{name: "json debug", cfg: config.TomlLog{Level: "debug", Format: "json"}, level: log.DebugLevel},
		{name: "empty format", cfg: config.TomlLog{Level: "warn"}, level: log.WarnLevel},
		{name: "bad level", cfg: config.TomlLog{Level: "loud", Format: "text"}, wantErr: true},
		{name: "bad format", cfg: config.TomlLog{Level: "info", Format: "xml"}, wantErr: true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := configureLogging(test.cfg)
			if test.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, test.level, log.GetLevel())
		})
	}
}

func TestConfigureLoggingToFile(t *testing.T) {
	t.Cleanup(func() {
		log.SetOutput(os.Stderr)
	})

	path := filepath.Join(t.TempDir(), "reader.log")
	require.NoError(t, configureLogging(config.TomlLog{Level: "info", Format: "json", File: path}))

	log.Info("written to file")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "written to file")
}

func TestRootAppLoadsConfig(t *testing.T) {
	t.Cleanup(func() {
		log.SetLevel(log.InfoLevel)
		log.SetOutput(os.Stderr)
	})

	path := filepath.Join(t.TempDir(), "rssreader.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[server]
port = 8080

[log]
level = "warn"
`), 0o644))

	var loaded *config.TomlConfig
	app := RootApp()
	app.Commands = append(app.Commands, &cli.Command{
		Name: "inspect",
		Action: func(ctx *cli.Context) error {
			loaded = appConfig(ctx)
			return nil
		},
	})

	require.NoError(t, app.Run([]string{"rssreader", "--config", path, "--log-level", "error", "inspect"}))
	require.NotNil(t, loaded)
	assert.Equal(t, 8080, loaded.Server.Port)
	assert.Equal(t, "error", loaded.Log.Level)
	assert.Equal(t, log.ErrorLevel, log.GetLevel())
}

func TestRootAppRejectsBadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rssreader.toml")
	require.NoError(t, os.WriteFile(path, []byte("[server\n"), 0o644))

	app := RootApp()
	err := app.Run([]string{"rssreader", "--config", path, "fetch", "https://example.com/feed.xml"})
	assert.ErrorContains(t, err, "failed to load config")
}

func TestRetrieverUsesAudioTimeout(t *testing.T) {
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/mpeg")
		w.WriteHeader(http.StatusOK)
		w.(http.Flusher).Flush()
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte("slow audio"))
	}))
	t.Cleanup(origin.Close)

	tests := []struct {
		name         string
		audioTimeout time.Duration
		notFound     bool
	}{
		// The download outlives the feed timeout and reaches the backend,
		// which fails for lack of an API key
		{name: "audio timeout longer than download", audioTimeout: 5 * time.Second},
		{name: "audio timeout shorter than download", audioTimeout: 50 * time.Millisecond, notFound: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Fetch.Timeout = config.Duration{Duration: 50 * time.Millisecond}
			cfg.Fetch.AudioTimeout = config.Duration{Duration: tt.audioTimeout}
			cfg.Deepgram.ApiKey = ""

			_, err := newRetriever(cfg).Retrieve(context.Background(), origin.URL+"/ep.mp3")
			require.Error(t, err)
			assert.Equal(t, tt.notFound, models.IsNotFound(err))
			assert.Equal(t, !tt.notFound, models.IsTranscription(err))
		})
	}
}
