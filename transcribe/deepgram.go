package transcribe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	api "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/rest"
	response "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/rest/interfaces"
	interfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/interfaces"
	listen "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/listen"
	log "github.com/sirupsen/logrus"
)

// ErrMissingApiKey is returned by the Deepgram backend when no key is configured
var ErrMissingApiKey = errors.New("deepgram api key is not set")

var initSdk sync.Once

type DeepgramConfig struct {
	ApiKey string
	// BaseUrl is the Deepgram host, with or without an https:// prefix
	BaseUrl   string
	Model     string
	Language  string
	Punctuate bool
	Timeout   time.Duration
}

// streamListener is the part of the Deepgram pre-recorded client we use
type streamListener interface {
	FromStream(ctx context.Context, src io.Reader, options *interfaces.PreRecordedTranscriptionOptions) (*response.PreRecordedResponse, error)
}

// DeepgramClient talks to the Deepgram pre-recorded transcription API
type DeepgramClient struct {
	listener streamListener
	options  *interfaces.PreRecordedTranscriptionOptions
	timeout  time.Duration
}

func NewDeepgramClient(config DeepgramConfig) *DeepgramClient {
	client := &DeepgramClient{
		options: &interfaces.PreRecordedTranscriptionOptions{
			Model:     config.Model,
			Language:  config.Language,
			Punctuate: config.Punctuate,
		},
		timeout: config.Timeout,
	}

	// The SDK refuses to build a client without a key
	if config.ApiKey == "" {
		return client
	}

	initSdk.Do(listen.InitWithDefault)

	rest := listen.NewREST(config.ApiKey, &interfaces.ClientOptions{
		Host: deepgramHost(config.BaseUrl),
	})
	if rest == nil {
		return client
	}
	if dg := api.New(rest); dg != nil {
		client.listener = dg
	}
	return client
}

func deepgramHost(baseUrl string) string {
	host := strings.TrimPrefix(baseUrl, "https://")
	return strings.TrimRight(host, "/")
}

// Transcribe submits the audio in one request and returns the first
// alternative of the first channel, or "" when there is none.
//
// The SDK does not take a content type for streamed audio, Deepgram detects
// the container from the bytes, so mimetype is only logged.
func (dg *DeepgramClient) Transcribe(ctx context.Context, audio []byte, mimetype string) (string, error) {
	if dg.listener == nil {
		return "", ErrMissingApiKey
	}

	if dg.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, dg.timeout)
		defer cancel()
	}

	log.WithFields(log.Fields{
		"bytes":    len(audio),
		"mimetype": mimetype,
		"model":    dg.options.Model,
	}).Debug("Submitting audio to Deepgram")

	res, err := dg.listener.FromStream(ctx, bytes.NewReader(audio), dg.options)
	if err != nil {
		return "", fmt.Errorf("deepgram transcription: %w", err)
	}

	return firstTranscript(res), nil
}

func firstTranscript(res *response.PreRecordedResponse) string {
	if res == nil || res.Results == nil || len(res.Results.Channels) == 0 {
		return ""
	}
	alternatives := res.Results.Channels[0].Alternatives
	if len(alternatives) == 0 {
		return ""
	}
	return alternatives[0].Transcript
}
