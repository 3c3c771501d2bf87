// Package client calls the rssreader HTTP API. It implements the fetcher
// interfaces of the reader package so a reading session can run against a
// remote server.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"rssreader/models"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
)

type Config struct {
	// Base URL of the API, e.g. http://localhost:3000
	ServerUrl string

	// Timeout of a single call, zero waits forever. Transcription of long
	// episodes can take minutes.
	Timeout   time.Duration
	UserAgent string
}

type Client struct {
	serverUrl string
	timeout   time.Duration
	userAgent string
}

func New(config Config) *Client {
	return &Client{
		serverUrl: strings.TrimRight(config.ServerUrl, "/"),
		timeout:   config.Timeout,
		userAgent: config.UserAgent,
	}
}

// Fetch asks the server to normalize the feed at url
func (c *Client) Fetch(ctx context.Context, url string) (*models.FeedResponse, error) {
	var feed models.FeedResponse
	status, err := c.post(ctx, "/rss/fetch", url, &feed)
	if err != nil {
		if status == fiber.StatusBadRequest {
			return nil, &models.ValidationError{Field: "URL"}
		}
		return nil, &models.FetchError{Url: url, StatusCode: status, Err: err}
	}
	if feed.Items == nil {
		feed.Items = []models.FeedItem{}
	}
	return &feed, nil
}

// Retrieve asks the server to transcribe the audio at url
func (c *Client) Retrieve(ctx context.Context, url string) (*models.TranscriptResult, error) {
	var result models.TranscriptResult
	status, err := c.post(ctx, "/transcribe-audio", url, &result)
	if err != nil {
		switch status {
		case fiber.StatusBadRequest:
			return nil, &models.ValidationError{Field: "URL"}
		case fiber.StatusNotFound:
			return nil, &models.NotFoundError{Url: url, StatusCode: status, Err: err}
		default:
			return nil, &models.TranscriptionError{Err: err}
		}
	}
	return &result, nil
}

// post sends {url} to path and decodes a 200 response into out. On failure
// the returned status is the server's, or zero when no response arrived.
func (c *Client) post(ctx context.Context, path string, url string, out any) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	agent := fiber.Post(c.serverUrl + path).
		JSON(models.UrlRequest{Url: url})
	if c.timeout > 0 {
		agent = agent.Timeout(c.timeout)
	}
	if c.userAgent != "" {
		agent = agent.UserAgent(c.userAgent)
	}

	start := time.Now()
	status, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return 0, fmt.Errorf("calling %s: %w", path, errors.Join(errs...))
	}

	log.WithFields(log.Fields{
		"path":    path,
		"url":     url,
		"status":  status,
		"latency": time.Since(start),
	}).Debug("API call")

	if status != fiber.StatusOK {
		var apiErr models.ErrorResponse
		if err := json.Unmarshal(body, &apiErr); err != nil || apiErr.Error == "" {
			return status, fmt.Errorf("%s returned status %d", path, status)
		}
		return status, errors.New(apiErr.Error)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return status, fmt.Errorf("decoding %s response: %w", path, err)
	}

	// The response was read in full, but the caller may have given up meanwhile
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return status, nil
}
