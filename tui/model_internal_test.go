package tui

import (
	"context"
	"rssreader/models"
	"rssreader/reader"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
)

func TestAddedFeedHighlightsSelection(t *testing.T) {
	first := models.Feed{Id: "https://a.example.com/feed.xml", Title: "A", Url: "https://a.example.com/feed.xml"}
	second := models.Feed{Id: "https://b.example.com/feed.xml", Title: "B", Url: "https://b.example.com/feed.xml"}

	// The first add takes slot 0, then the user selects All Feeds
	base := reader.Reduce(reader.State{}, reader.FeedAdded{Token: 0, Feed: first})
	base = reader.Reduce(base, reader.FeedSelected{Feed: nil})

	tests := []struct {
		name  string
		state reader.State
		want  int
	}{
		{
			name:  "add wins",
			state: reader.Reduce(base, reader.FeedAdded{Token: 2, Feed: second}),
			want:  2,
		},
		{
			name:  "add lost to a newer selection",
			state: reader.Reduce(base, reader.FeedAdded{Token: 1, Feed: second}),
			want:  0,
		},
		{
			name: "add lost to a feed selection",
			state: reader.Reduce(
				reader.Reduce(base, reader.FeedSelected{Feed: &first}),
				reader.FeedAdded{Token: 2, Feed: second},
			),
			want: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewModel(context.Background(), reader.NewStore(nil, nil), nil)
			next, _ := m.Update(tea.WindowSizeMsg{Width: 160, Height: 50})
			next, _ = next.Update(addedFeedMsg{state: tt.state})

			updated := next.(Model)
			assert.Len(t, updated.state.Feeds, 2)
			assert.Equal(t, tt.want, updated.feeds.Index())
		})
	}
}

func TestPlainTextDropsControlCharacters(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "title escape", input: "News \x1b]2;pwned\a today", want: "News  today"},
		{name: "screen clear", input: "a\x1b[2Jb", want: "ab"},
		{name: "lone c0 and del", input: "a\ab\x00c\x7fd", want: "abcd"},
		{name: "keeps newlines and tabs", input: "a\n\tb", want: "a\n\tb"},
		{name: "plain", input: "Tom & Jerry", want: "Tom & Jerry"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, plainText(tt.input))
		})
	}
}

func TestTitleText(t *testing.T) {
	assert.Equal(t, "Tom & Jerry", titleText("<b>Tom &amp; Jerry</b>"))
	assert.Equal(t, "<script>x</script>", titleText("&lt;script&gt;x&lt;/script&gt;"))
	assert.NotContains(t, titleText("Breaking &#27;]2;pwned&#7; news"), "\x1b")
	assert.NotContains(t, titleText("Breaking &#27;]2;pwned&#7; news"), "\a")
}
