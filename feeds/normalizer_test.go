package feeds_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"rssreader/feeds"
	"rssreader/models"
	"strings"
	"testing"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const exampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:content="http://purl.org/rss/1.0/modules/content/">
<channel>
  <title>Example</title>
  <link>https://example.com</link>
  <item>
    <title>Hello</title>
  </item>
</channel>
</rss>`

const podcastFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:content="http://purl.org/rss/1.0/modules/content/">
<channel>
  <title>Podcast</title>
  <item>
    <title>Episode 1</title>
    <guid>ep-1</guid>
    <link>https://example.com/ep-1</link>
    <description>Short summary</description>
    <content:encoded><![CDATA[<p>Full <b>notes</b></p>]]></content:encoded>
    <pubDate>Mon, 02 Jan 2006 15:04:05 GMT</pubDate>
    <enclosure url="https://cdn.example.com/ep-1.mp3" length="123" type="audio/mpeg"/>
  </item>
  <item>
    <title>Episode 2</title>
    <link>https://example.com/ep-2</link>
    <description>Only a summary</description>
    <pubDate>Tue, 03 Jan 2006 15:04:05 GMT</pubDate>
  </item>
  <item>
    <description>No title, no link, no guid</description>
  </item>
</channel>
</rss>`

const atomFeed = `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Atom Example</title>
  <id>urn:uuid:60a76c80-d399-11d9-b93C-0003939e0af6</id>
  <updated>2003-12-13T18:30:02Z</updated>
  <entry>
    <title>Atom entry</title>
    <id>urn:uuid:1225c695-cfb8-4ebb-aaaa-80da344efa6a</id>
    <updated>2003-12-13T18:30:02Z</updated>
    <summary>Some text.</summary>
  </entry>
</feed>`

func serve(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func newNormalizer() *feeds.Normalizer {
	return feeds.NewNormalizer(feeds.NormalizerConfig{Timeout: 5 * time.Second})
}

func TestFetchExampleFeed(t *testing.T) {
	server := serve(t, http.StatusOK, exampleFeed)

	before := time.Now().Add(-time.Second)
	feed, err := newNormalizer().Fetch(context.Background(), server.URL+"/feed.xml")
	after := time.Now().Add(time.Second)
	require.NoError(t, err)

	assert.Equal(t, "Example", feed.Title)
	require.Len(t, feed.Items, 1)

	item := feed.Items[0]
	assert.Equal(t, "Hello", item.Id)
	assert.Equal(t, "Hello", item.Title)
	assert.Equal(t, "", item.Link)
	assert.Nil(t, item.AudioUrl)

	date, err := time.Parse(time.RFC3339, item.Date)
	require.NoError(t, err)
	assert.True(t, !date.Before(before.Truncate(time.Second)) && !date.After(after), "date %s should default to now", item.Date)
}

func TestFetchFieldMapping(t *testing.T) {
	server := serve(t, http.StatusOK, podcastFeed)

	feed, err := newNormalizer().Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	require.Len(t, feed.Items, 3)

	first := feed.Items[0]
	assert.Equal(t, "ep-1", first.Id)
	assert.Equal(t, "Short summary", first.Description)
	assert.Equal(t, "<p>Full <b>notes</b></p>", first.Content)
	assert.Equal(t, "2006-01-02T15:04:05Z", first.Date)
	require.NotNil(t, first.AudioUrl)
	assert.Equal(t, "https://cdn.example.com/ep-1.mp3", *first.AudioUrl)
	assert.True(t, first.HasAudio())

	second := feed.Items[1]
	assert.Equal(t, "https://example.com/ep-2", second.Id, "link is used when guid is missing")
	assert.Equal(t, "Only a summary", second.Content, "description is used when content:encoded is missing")
	assert.Nil(t, second.AudioUrl)
	assert.False(t, second.HasAudio())

	third := feed.Items[2]
	assert.Equal(t, "", third.Id)
	assert.Equal(t, feeds.UntitledItem, third.Title)
}

func TestFetchAtomUsesUpdatedDate(t *testing.T) {
	server := serve(t, http.StatusOK, atomFeed)

	feed, err := newNormalizer().Fetch(context.Background(), server.URL)
	require.NoError(t, err)

	assert.Equal(t, "Atom Example", feed.Title)
	require.Len(t, feed.Items, 1)
	assert.Equal(t, "urn:uuid:1225c695-cfb8-4ebb-aaaa-80da344efa6a", feed.Items[0].Id)
	assert.Equal(t, "2003-12-13T18:30:02Z", feed.Items[0].Date)
	assert.Equal(t, "Some text.", feed.Items[0].Content)
}

func TestFetchErrors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantStatus int
	}{
		{
			name:       "not found",
			status:     http.StatusNotFound,
			body:       "missing",
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "server error",
			status:     http.StatusInternalServerError,
			body:       exampleFeed,
			wantStatus: http.StatusInternalServerError,
		},
		{
			name:   "malformed xml",
			status: http.StatusOK,
			body:   "<rss><channel><title>broken",
		},
		{
			name:   "not a feed",
			status: http.StatusOK,
			body:   "just some text",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := serve(t, tt.status, tt.body)

			_, err := newNormalizer().Fetch(context.Background(), server.URL)
			require.Error(t, err)

			var fetchErr *models.FetchError
			require.True(t, errors.As(err, &fetchErr))
			assert.Equal(t, tt.wantStatus, fetchErr.StatusCode)
		})
	}
}

func TestFetchUnreachableHost(t *testing.T) {
	server := serve(t, http.StatusOK, exampleFeed)
	url := server.URL
	server.Close()

	_, err := newNormalizer().Fetch(context.Background(), url)
	assert.True(t, models.IsFetch(err))
}

func TestFetchRequiresUrl(t *testing.T) {
	_, err := newNormalizer().Fetch(context.Background(), "  ")
	assert.True(t, models.IsValidation(err))
}

func TestFetchRejectsOversizedBody(t *testing.T) {
	server := serve(t, http.StatusOK, podcastFeed)

	normalizer := feeds.NewNormalizer(feeds.NormalizerConfig{
		Timeout:      5 * time.Second,
		MaxFeedBytes: 64,
	})
	_, err := normalizer.Fetch(context.Background(), server.URL)
	assert.True(t, models.IsFetch(err))
}

func TestFetchSendsUserAgent(t *testing.T) {
	var userAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userAgent = r.UserAgent()
		_, _ = w.Write([]byte(exampleFeed))
	}))
	defer server.Close()

	normalizer := feeds.NewNormalizer(feeds.NormalizerConfig{UserAgent: "rssreader-test"})
	_, err := normalizer.Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "rssreader-test", userAgent)
}

func TestNormalizeIdFallback(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		item     *gofeed.Item
		expected string
	}{
		{
			name:     "guid wins",
			item:     &gofeed.Item{GUID: "g", Link: "l", Title: "t"},
			expected: "g",
		},
		{
			name:     "link when no guid",
			item:     &gofeed.Item{Link: "l", Title: "t"},
			expected: "l",
		},
		{
			name:     "title when no guid or link",
			item:     &gofeed.Item{Title: "t"},
			expected: "t",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			feed := feeds.Normalize(&gofeed.Feed{Items: []*gofeed.Item{tt.item}}, now)
			require.Len(t, feed.Items, 1)
			assert.Equal(t, tt.expected, feed.Items[0].Id)
			assert.NotEmpty(t, feed.Items[0].Id)
		})
	}
}

func TestNormalizeDefaults(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.FixedZone("CEST", 2*60*60))

	feed := feeds.Normalize(&gofeed.Feed{Items: []*gofeed.Item{{Title: "x"}}}, now)

	assert.Equal(t, feeds.UntitledFeed, feed.Title)
	assert.Equal(t, "2024-05-01T10:00:00Z", feed.Items[0].Date)
	assert.Equal(t, "", feed.Items[0].Content)
}

func TestNormalizeEmptyFeedHasNonNilItems(t *testing.T) {
	feed := feeds.Normalize(&gofeed.Feed{Title: "Empty"}, time.Now())
	assert.NotNil(t, feed.Items)
	assert.Empty(t, feed.Items)
}

func TestNormalizeSkipsBlankEnclosures(t *testing.T) {
	item := &gofeed.Item{
		Title: "x",
		Enclosures: []*gofeed.Enclosure{
			{URL: " "},
			{URL: "https://cdn.example.com/a.mp3"},
		},
	}
	feed := feeds.Normalize(&gofeed.Feed{Items: []*gofeed.Item{item}}, time.Now())
	require.NotNil(t, feed.Items[0].AudioUrl)
	assert.Equal(t, "https://cdn.example.com/a.mp3", *feed.Items[0].AudioUrl)
}

func TestHostLimiterSpacesRequests(t *testing.T) {
	limiter := feeds.NewHostLimiter(50 * time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	require.NoError(t, limiter.Wait(ctx, "https://a.example.com/feed"))
	require.NoError(t, limiter.Wait(ctx, "https://b.example.com/feed"))
	assert.Less(t, time.Since(start), 40*time.Millisecond, "different hosts do not wait on each other")

	require.NoError(t, limiter.Wait(ctx, "https://a.example.com/other"))
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestHostLimiterRejectsHostlessUrl(t *testing.T) {
	limiter := feeds.NewHostLimiter(time.Millisecond)
	err := limiter.Wait(context.Background(), "/relative/path")
	assert.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "missing host"))
}
