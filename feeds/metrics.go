package feeds

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	feedFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rssreader_feed_fetches_total",
		Help: "The total number of feed fetches by outcome",
	}, []string{"outcome"})

	feedFetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "rssreader_feed_fetch_duration_seconds",
		Help:    "Duration of feed fetch and parse",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms up to ~20s
	})
)
