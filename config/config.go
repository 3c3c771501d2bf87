package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Duration lets TOML files express timeouts as strings, e.g. "30s"
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// TomlServer configures the HTTP API
type TomlServer struct {
	Port         int      `toml:"port"`
	CorsOrigins  string   `toml:"cors_origins"`
	ReadTimeout  Duration `toml:"read_timeout"`
	WriteTimeout Duration `toml:"write_timeout"`
	BodyLimit    int      `toml:"body_limit"`
}

// TomlFetch configures outbound requests for feeds and audio files
type TomlFetch struct {
	Timeout Duration `toml:"timeout"`
	// Audio downloads get their own deadline, episodes run to hundreds of MB
	AudioTimeout Duration `toml:"audio_timeout"`
	UserAgent    string   `toml:"user_agent"`
	MaxFeedBytes int64    `toml:"max_feed_bytes"`
	// Audio files are buffered whole before transcription
	MaxAudioBytes int64 `toml:"max_audio_bytes"`
	// Minimum interval between two requests to the same host, zero disables it
	HostInterval Duration `toml:"host_interval"`
}

type TomlDeepgram struct {
	ApiKey    string   `toml:"api_key"`
	BaseUrl   string   `toml:"base_url"`
	Model     string   `toml:"model"`
	Language  string   `toml:"language"`
	Punctuate bool     `toml:"punctuate"`
	Timeout   Duration `toml:"timeout"`
}

// TomlReader configures the terminal reader and its aggregation state
type TomlReader struct {
	ServerUrl   string   `toml:"server_url"`
	Concurrency int      `toml:"concurrency"`
	CacheTTL    Duration `toml:"cache_ttl"`
	CacheSize   int      `toml:"cache_size"`
}

type TomlLog struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
	File   string `toml:"file"`
}

// TomlConfig represents the top-level configuration
type TomlConfig struct {
	Server   TomlServer   `toml:"server"`
	Fetch    TomlFetch    `toml:"fetch"`
	Deepgram TomlDeepgram `toml:"deepgram"`
	Reader   TomlReader   `toml:"reader"`
	Log      TomlLog      `toml:"log"`
}

// Default returns the configuration used when no file is present
func Default() *TomlConfig {
	return &TomlConfig{
		Server: TomlServer{
			Port:         3000,
			CorsOrigins:  "http://localhost:3001",
			ReadTimeout:  Duration{30 * time.Second},
			WriteTimeout: Duration{5 * time.Minute},
			BodyLimit:    64 * 1024,
		},
		Fetch: TomlFetch{
			Timeout:       Duration{60 * time.Second},
			AudioTimeout:  Duration{10 * time.Minute},
			UserAgent:     "rssreader/1.0 (+https://github.com/rssreader)",
			MaxFeedBytes:  10 * 1024 * 1024,
			MaxAudioBytes: 512 * 1024 * 1024,
		},
		Deepgram: TomlDeepgram{
			BaseUrl:   "https://api.deepgram.com",
			Model:     "general",
			Language:  "en-US",
			Punctuate: true,
			Timeout:   Duration{10 * time.Minute},
		},
		Reader: TomlReader{
			ServerUrl:   "http://localhost:3000",
			Concurrency: 4,
			CacheSize:   64,
		},
		Log: TomlLog{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadConfig reads the TOML file at path on top of the defaults. A missing
// file is not an error.
func LoadConfig(path string) (*TomlConfig, error) {
	config := Default()
	if path == "" {
		return config, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return config, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *TomlConfig) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Reader.Concurrency < 1 {
		return fmt.Errorf("reader concurrency must be at least 1, got %d", c.Reader.Concurrency)
	}
	if c.Fetch.MaxFeedBytes <= 0 || c.Fetch.MaxAudioBytes <= 0 {
		return errors.New("fetch size limits must be positive")
	}
	return nil
}
