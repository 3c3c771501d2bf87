package reader

import (
	"context"
	"rssreader/models"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	log "github.com/sirupsen/logrus"
)

// CachedFetcher serves repeated fetches of the same URL from memory until
// they expire. Failures are never cached.
type CachedFetcher struct {
	next  FeedFetcher
	cache *expirable.LRU[string, *models.FeedResponse]
}

// WithCache wraps next in a CachedFetcher. A ttl of zero or less disables
// caching and returns next as is, so every selection fetches again.
func WithCache(next FeedFetcher, size int, ttl time.Duration) FeedFetcher {
	if ttl <= 0 {
		return next
	}
	if size <= 0 {
		size = 64
	}
	return &CachedFetcher{
		next:  next,
		cache: expirable.NewLRU[string, *models.FeedResponse](size, nil, ttl),
	}
}

func (c *CachedFetcher) Fetch(ctx context.Context, url string) (*models.FeedResponse, error) {
	if response, ok := c.cache.Get(url); ok {
		log.WithFields(log.Fields{
			"url": url,
		}).Debug("Feed served from cache")
		return response, nil
	}

	response, err := c.next.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	c.cache.Add(url, response)
	return response, nil
}

// Purge drops every cached feed
func (c *CachedFetcher) Purge() {
	c.cache.Purge()
}
