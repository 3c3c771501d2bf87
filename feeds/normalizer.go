// Package feeds fetches RSS, Atom and JSON feeds and normalizes them into
// the uniform item shape served by the API.
package feeds

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"rssreader/models"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
)

const (
	UntitledFeed = "Untitled Feed"
	UntitledItem = "Untitled Item"
)

// NormalizerConfig holds the outbound request settings for feed fetching
type NormalizerConfig struct {
	Timeout      time.Duration
	UserAgent    string
	MaxFeedBytes int64
	HostInterval time.Duration

	// Client overrides the HTTP client, mostly useful in tests
	Client *http.Client
}

// Normalizer fetches a feed URL and maps the parsed document to a FeedResponse
type Normalizer struct {
	client    *http.Client
	userAgent string
	maxBytes  int64
	limiter   *HostLimiter
	now       func() time.Time
}

func NewNormalizer(config NormalizerConfig) *Normalizer {
	client := config.Client
	if client == nil {
		client = &http.Client{Timeout: config.Timeout}
	}

	maxBytes := config.MaxFeedBytes
	if maxBytes <= 0 {
		maxBytes = 10 * 1024 * 1024
	}

	var limiter *HostLimiter
	if config.HostInterval > 0 {
		limiter = NewHostLimiter(config.HostInterval)
	}

	return &Normalizer{
		client:    client,
		userAgent: config.UserAgent,
		maxBytes:  maxBytes,
		limiter:   limiter,
		now:       time.Now,
	}
}

// Fetch issues a single GET for the feed and normalizes the result. Every
// failure after input validation is a *models.FetchError; nothing is retried.
func (n *Normalizer) Fetch(ctx context.Context, url string) (*models.FeedResponse, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, &models.ValidationError{Field: "url"}
	}

	start := time.Now()
	response, err := n.fetch(ctx, url)
	feedFetchDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		feedFetches.WithLabelValues("error").Inc()
		log.WithFields(log.Fields{
			"url":   url,
			"error": err,
		}).Warn("Failed to fetch feed")
		return nil, err
	}

	feedFetches.WithLabelValues("ok").Inc()
	log.WithFields(log.Fields{
		"url":     url,
		"title":   response.Title,
		"items":   len(response.Items),
		"latency": time.Since(start),
	}).Info("Fetched feed")

	return response, nil
}

func (n *Normalizer) fetch(ctx context.Context, url string) (*models.FeedResponse, error) {
	if n.limiter != nil {
		if err := n.limiter.Wait(ctx, url); err != nil {
			return nil, &models.FetchError{Url: url, Err: err}
		}
	}

	body, err := n.download(ctx, url)
	if err != nil {
		return nil, err
	}

	parsed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, &models.FetchError{Url: url, Err: fmt.Errorf("parse feed: %w", err)}
	}

	return Normalize(parsed, n.now()), nil
}

func (n *Normalizer) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &models.FetchError{Url: url, Err: err}
	}
	if n.userAgent != "" {
		req.Header.Set("User-Agent", n.userAgent)
	}
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/feed+json, application/xml;q=0.9, */*;q=0.8")

	resp, err := n.client.Do(req)
	if err != nil {
		return nil, &models.FetchError{Url: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &models.FetchError{
			Url:        url,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status %s", resp.Status),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, n.maxBytes+1))
	if err != nil {
		return nil, &models.FetchError{Url: url, Err: fmt.Errorf("read body: %w", err)}
	}
	if int64(len(body)) > n.maxBytes {
		return nil, &models.FetchError{Url: url, Err: errors.New("feed body exceeds size limit")}
	}

	return body, nil
}

// Normalize maps a parsed feed onto the API shape. now is used for items
// that carry neither a publish nor an update date.
func Normalize(feed *gofeed.Feed, now time.Time) *models.FeedResponse {
	title := strings.TrimSpace(feed.Title)
	if title == "" {
		title = UntitledFeed
	}

	items := lo.Map(feed.Items, func(item *gofeed.Item, _ int) models.FeedItem {
		return normalizeItem(item, now)
	})

	return &models.FeedResponse{
		Title: title,
		Items: items,
	}
}

func normalizeItem(item *gofeed.Item, now time.Time) models.FeedItem {
	id, _ := lo.Coalesce(item.GUID, item.Link, item.Title)
	title, _ := lo.Coalesce(item.Title, UntitledItem)
	content, _ := lo.Coalesce(item.Content, item.Description)

	return models.FeedItem{
		Id:          id,
		Title:       title,
		Description: item.Description,
		Content:     content,
		Date:        itemDate(item, now),
		Link:        item.Link,
		AudioUrl:    enclosureUrl(item),
	}
}

// itemDate prefers the publish date, then the update date, then now
func itemDate(item *gofeed.Item, now time.Time) string {
	date := now
	if item.PublishedParsed != nil {
		date = *item.PublishedParsed
	} else if item.UpdatedParsed != nil {
		date = *item.UpdatedParsed
	}
	return date.UTC().Format(time.RFC3339)
}

func enclosureUrl(item *gofeed.Item) *string {
	enclosure, ok := lo.Find(item.Enclosures, func(e *gofeed.Enclosure) bool {
		return e != nil && strings.TrimSpace(e.URL) != ""
	})
	if !ok {
		return nil
	}
	url := strings.TrimSpace(enclosure.URL)
	return &url
}
