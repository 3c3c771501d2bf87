// Package reader holds the in-memory state of a reading session: the
// registered feeds, the merged item list and the current selection.
//
// State only changes through Reduce, a pure function of the previous state
// and an Event. Store runs the fetches and feeds their results back in as
// events.
package reader

import (
	"rssreader/models"
	"slices"
	"sort"
	"time"
)

type Phase int

const (
	NoFeeds Phase = iota
	FeedsRegistered
)

func (p Phase) String() string {
	switch p {
	case NoFeeds:
		return "NoFeeds"
	case FeedsRegistered:
		return "FeedsRegistered"
	}
	return "Unknown"
}

// State is an immutable snapshot. Reduce never writes into the slices of a
// state it was given, so snapshots can be shared with readers.
type State struct {
	Feeds          []models.Feed
	AllItems       []models.FeedItem
	SelectedFeed   *models.Feed
	DisplayedItems []models.FeedItem
	SelectedItem   *models.FeedItem
	Transcript     *models.TranscriptResult

	// Sequence tokens, one per slot. A result carrying an older token
	// than the slot's current one is dropped.
	refreshSeq uint64
	feedSeq    uint64
	itemSeq    uint64
}

func (s State) Phase() Phase {
	if len(s.Feeds) == 0 {
		return NoFeeds
	}
	return FeedsRegistered
}

type Event interface {
	isEvent()
}

// FeedAdded registers a feed whose first fetch succeeded. Token is the feed
// slot token read when the add began.
type FeedAdded struct {
	Token uint64
	Feed  models.Feed
	Items []models.FeedItem
}

// RefreshStarted opens a new refresh slot, superseding any refresh in flight
type RefreshStarted struct{}

// ItemsMerged carries the sorted items of every registered feed
type ItemsMerged struct {
	Token uint64
	Items []models.FeedItem
}

// FeedSelected singles out a feed, or goes back to all feeds when Feed is nil
type FeedSelected struct {
	Feed *models.Feed
}

// FeedItemsLoaded carries the items of the selected feed. Nil items, as
// after a failed fetch, empty the list.
type FeedItemsLoaded struct {
	Token uint64
	Items []models.FeedItem
}

type ItemSelected struct {
	Item models.FeedItem
}

type TranscriptLoaded struct {
	Token  uint64
	Result models.TranscriptResult
}

func (FeedAdded) isEvent()        {}
func (RefreshStarted) isEvent()   {}
func (ItemsMerged) isEvent()      {}
func (FeedSelected) isEvent()     {}
func (FeedItemsLoaded) isEvent()  {}
func (ItemSelected) isEvent()     {}
func (TranscriptLoaded) isEvent() {}

// Reduce returns the state that follows s after ev
func Reduce(s State, ev Event) State {
	switch ev := ev.(type) {
	case FeedAdded:
		// Duplicate URLs are kept as separate entries
		s.Feeds = append(slices.Clip(s.Feeds), ev.Feed)
		if ev.Token == s.feedSeq {
			s.feedSeq++
			feed := ev.Feed
			s.SelectedFeed = &feed
			s.DisplayedItems = nonNil(ev.Items)
			s = clearSelectedItem(s)
		}

	case RefreshStarted:
		s.refreshSeq++

	case ItemsMerged:
		if ev.Token != s.refreshSeq {
			return s
		}
		s.AllItems = nonNil(ev.Items)
		if s.SelectedFeed == nil {
			s.DisplayedItems = s.AllItems
		}

	case FeedSelected:
		s.feedSeq++
		s.SelectedFeed = nil
		if ev.Feed != nil {
			feed := *ev.Feed
			s.SelectedFeed = &feed
		} else {
			s.DisplayedItems = s.AllItems
		}
		s = clearSelectedItem(s)

	case FeedItemsLoaded:
		if ev.Token != s.feedSeq || s.SelectedFeed == nil {
			return s
		}
		s.DisplayedItems = nonNil(ev.Items)

	case ItemSelected:
		s = clearSelectedItem(s)
		item := ev.Item
		s.SelectedItem = &item

	case TranscriptLoaded:
		if ev.Token != s.itemSeq || s.SelectedItem == nil {
			return s
		}
		result := ev.Result
		s.Transcript = &result
	}

	return s
}

func clearSelectedItem(s State) State {
	s.itemSeq++
	s.SelectedItem = nil
	s.Transcript = nil
	return s
}

func nonNil(items []models.FeedItem) []models.FeedItem {
	if items == nil {
		return []models.FeedItem{}
	}
	return items
}

// SortByDateDesc returns a copy of items ordered newest first. Dates that do
// not parse as RFC 3339 sort last.
func SortByDateDesc(items []models.FeedItem) []models.FeedItem {
	type dated struct {
		item models.FeedItem
		at   time.Time
	}

	sorted := make([]dated, len(items))
	for i, item := range items {
		at, _ := time.Parse(time.RFC3339, item.Date)
		sorted[i] = dated{item: item, at: at}
	}

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].at.After(sorted[j].at)
	})

	out := make([]models.FeedItem, len(sorted))
	for i, d := range sorted {
		out[i] = d.item
	}
	return out
}
