package reader

import (
	"context"
	"rssreader/models"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// FeedFetcher returns the normalized items of a feed URL
type FeedFetcher interface {
	Fetch(ctx context.Context, url string) (*models.FeedResponse, error)
}

// TranscriptFetcher returns the transcript of an audio URL
type TranscriptFetcher interface {
	Retrieve(ctx context.Context, url string) (*models.TranscriptResult, error)
}

// Store is the single writer of a session's State. Fetches run outside the
// lock; their results go through Reduce like every other change.
type Store struct {
	mu    sync.Mutex
	state State

	feeds       FeedFetcher
	transcripts TranscriptFetcher
	concurrency int
}

type Option func(*Store)

// WithConcurrency bounds the number of feeds fetched at once during a
// refresh. One fetches them sequentially in registration order.
func WithConcurrency(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

func NewStore(feeds FeedFetcher, transcripts TranscriptFetcher, opts ...Option) *Store {
	s := &Store{
		feeds:       feeds,
		transcripts: transcripts,
		concurrency: 1,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the current snapshot
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Store) dispatch(ev Event) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = Reduce(s.state, ev)
	return s.state
}

// AddFeed fetches url and, when it parses, registers it as a new feed,
// selects it and refreshes the merged list. On failure the state is left
// as it was and the error is returned.
func (s *Store) AddFeed(ctx context.Context, url string) (State, error) {
	url = strings.TrimSpace(url)
	token := s.State().feedSeq

	response, err := s.feeds.Fetch(ctx, url)
	if err != nil {
		log.WithFields(log.Fields{
			"url":   url,
			"error": err,
		}).Error("Error adding feed")
		return s.State(), err
	}

	s.dispatch(FeedAdded{
		Token: token,
		Feed: models.Feed{
			Id:    url,
			Title: response.Title,
			Url:   url,
		},
		Items: response.Items,
	})

	log.WithFields(log.Fields{
		"url":   url,
		"title": response.Title,
		"items": len(response.Items),
	}).Info("Added feed")

	return s.Refresh(ctx), nil
}

// Refresh re-fetches every registered feed and stores the merged items
// sorted newest first. A feed that fails contributes no items.
func (s *Store) Refresh(ctx context.Context) State {
	started := s.dispatch(RefreshStarted{})
	token := started.refreshSeq
	registered := started.Feeds

	start := time.Now()
	results := make([][]models.FeedItem, len(registered))

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, feed := range registered {
		g.Go(func() error {
			response, err := s.feeds.Fetch(ctx, feed.Url)
			if err != nil {
				log.WithFields(log.Fields{
					"url":   feed.Url,
					"error": err,
				}).Warn("Error fetching feed, skipping it")
				return nil
			}
			results[i] = response.Items
			return nil
		})
	}
	_ = g.Wait()

	var merged []models.FeedItem
	for _, items := range results {
		merged = append(merged, items...)
	}
	merged = SortByDateDesc(merged)

	log.WithFields(log.Fields{
		"feeds":   len(registered),
		"items":   len(merged),
		"latency": time.Since(start),
	}).Info("Refreshed feeds")

	return s.dispatch(ItemsMerged{Token: token, Items: merged})
}

// SelectFeed shows a single feed, fetched anew, or every feed when feed is
// nil. A failed fetch leaves the list empty.
func (s *Store) SelectFeed(ctx context.Context, feed *models.Feed) State {
	selected := s.dispatch(FeedSelected{Feed: feed})
	if feed == nil {
		return selected
	}
	token := selected.feedSeq

	var items []models.FeedItem
	response, err := s.feeds.Fetch(ctx, feed.Url)
	if err != nil {
		log.WithFields(log.Fields{
			"url":   feed.Url,
			"error": err,
		}).Error("Error fetching feed")
	} else {
		items = response.Items
	}

	return s.dispatch(FeedItemsLoaded{Token: token, Items: items})
}

func (s *Store) SelectItem(item models.FeedItem) State {
	return s.dispatch(ItemSelected{Item: item})
}

// RequestTranscript transcribes the audio enclosure of the selected item. The
// result is dropped if another item was selected in the meantime.
func (s *Store) RequestTranscript(ctx context.Context) (State, error) {
	current := s.State()
	if current.SelectedItem == nil || !current.SelectedItem.HasAudio() {
		return current, &models.ValidationError{Field: "audio url"}
	}
	token := current.itemSeq
	url := *current.SelectedItem.AudioUrl

	result, err := s.transcripts.Retrieve(ctx, url)
	if err != nil {
		log.WithFields(log.Fields{
			"url":   url,
			"error": err,
		}).Error("Error requesting transcript")
		return s.State(), err
	}

	return s.dispatch(TranscriptLoaded{Token: token, Result: *result}), nil
}
