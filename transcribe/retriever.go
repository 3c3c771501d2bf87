// Package transcribe fetches audio enclosures and turns them into text with
// a speech-to-text backend.
package transcribe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"rssreader/models"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"
)

// DefaultMimetype is sent to the backend when the audio origin omits a content type
const DefaultMimetype = "audio/mpeg"

var (
	transcriptions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rssreader_transcriptions_total",
		Help: "The total number of transcription requests by outcome",
	}, []string{"outcome"})

	audioBytes = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "rssreader_transcription_audio_bytes",
		Help:    "Size of audio files submitted for transcription",
		Buckets: prometheus.ExponentialBuckets(64*1024, 4, 8), // 64KiB up to ~1GiB
	})
)

// Backend is a speech-to-text service that accepts a whole audio file at once
type Backend interface {
	Transcribe(ctx context.Context, audio []byte, mimetype string) (string, error)
}

type RetrieverConfig struct {
	Timeout       time.Duration
	UserAgent     string
	MaxAudioBytes int64
	Client        *http.Client
}

// Retriever downloads audio files and hands them to a Backend
type Retriever struct {
	client    *http.Client
	backend   Backend
	userAgent string
	maxBytes  int64
}

func NewRetriever(backend Backend, config RetrieverConfig) *Retriever {
	client := config.Client
	if client == nil {
		client = &http.Client{Timeout: config.Timeout}
	}

	maxBytes := config.MaxAudioBytes
	if maxBytes <= 0 {
		maxBytes = 512 * 1024 * 1024
	}

	return &Retriever{
		client:    client,
		backend:   backend,
		userAgent: config.UserAgent,
		maxBytes:  maxBytes,
	}
}

// Retrieve fetches the audio at url and transcribes it. A failed download is a
// *models.NotFoundError and the backend is never called; a backend failure is
// a *models.TranscriptionError.
func (r *Retriever) Retrieve(ctx context.Context, url string) (*models.TranscriptResult, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, &models.ValidationError{Field: "url"}
	}

	audio, mimetype, err := r.download(ctx, url)
	if err != nil {
		transcriptions.WithLabelValues("audio_unavailable").Inc()
		log.WithFields(log.Fields{
			"url":   url,
			"error": err,
		}).Warn("Failed to fetch audio file")
		return nil, err
	}
	audioBytes.Observe(float64(len(audio)))

	start := time.Now()
	transcript, err := r.backend.Transcribe(ctx, audio, mimetype)
	if err != nil {
		transcriptions.WithLabelValues("error").Inc()
		log.WithFields(log.Fields{
			"url":   url,
			"error": err,
		}).Error("Failed to transcribe audio")
		return nil, &models.TranscriptionError{Err: err}
	}

	transcriptions.WithLabelValues("ok").Inc()
	log.WithFields(log.Fields{
		"url":      url,
		"bytes":    len(audio),
		"mimetype": mimetype,
		"chars":    len(transcript),
		"latency":  time.Since(start),
	}).Info("Transcribed audio")

	return &models.TranscriptResult{
		AudioUrl:   url,
		Transcript: transcript,
	}, nil
}

func (r *Retriever) download(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", &models.NotFoundError{Url: url, Err: err}
	}
	if r.userAgent != "" {
		req.Header.Set("User-Agent", r.userAgent)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, "", &models.NotFoundError{Url: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", &models.NotFoundError{
			Url:        url,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status %s", resp.Status),
		}
	}

	// The whole file is buffered, the backend takes it as a single unit
	audio, err := io.ReadAll(io.LimitReader(resp.Body, r.maxBytes+1))
	if err != nil {
		return nil, "", &models.NotFoundError{Url: url, Err: fmt.Errorf("read body: %w", err)}
	}
	if int64(len(audio)) > r.maxBytes {
		return nil, "", &models.NotFoundError{Url: url, Err: errors.New("audio file exceeds size limit")}
	}

	mimetype := resp.Header.Get("Content-Type")
	if mimetype == "" {
		mimetype = DefaultMimetype
	}

	return audio, mimetype, nil
}
