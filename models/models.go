package models

// Feed is a subscribed RSS/Atom source. The URL doubles as the id.
type Feed struct {
	Id    string `json:"id"`
	Title string `json:"title"`
	Url   string `json:"url"`
}

// FeedItem is one normalized entry of a feed
type FeedItem struct {
	Id          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Content     string  `json:"content"`
	Date        string  `json:"date"`
	Link        string  `json:"link"`
	AudioUrl    *string `json:"audioUrl"`
}

// HasAudio reports whether the item carries an audio enclosure
func (i FeedItem) HasAudio() bool {
	return i.AudioUrl != nil && *i.AudioUrl != ""
}

// FeedResponse is the normalized form of a fetched feed
type FeedResponse struct {
	Title string     `json:"title"`
	Items []FeedItem `json:"items"`
}

type TranscriptResult struct {
	AudioUrl   string `json:"audioUrl"`
	Transcript string `json:"transcript"`
}

// UrlRequest is the request body of both API endpoints
type UrlRequest struct {
	Url string `json:"url"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
