package transcribe_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"rssreader/models"
	"rssreader/transcribe"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	calls      int
	audio      []byte
	mimetype   string
	transcript string
	err        error
}

func (f *fakeBackend) Transcribe(ctx context.Context, audio []byte, mimetype string) (string, error) {
	f.calls++
	f.audio = audio
	f.mimetype = mimetype
	return f.transcript, f.err
}

func audioOrigin(t *testing.T, status int, contentType string, body []byte) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if contentType != "" {
			w.Header().Set("Content-Type", contentType)
		} else {
			// Stop net/http from sniffing a type for us
			w.Header()["Content-Type"] = nil
		}
		w.WriteHeader(status)
		_, _ = w.Write(body)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestRetrieveTranscribesAudio(t *testing.T) {
	origin := audioOrigin(t, http.StatusOK, "audio/ogg", []byte("OggS-audio"))
	backend := &fakeBackend{transcript: "Hello, world."}

	result, err := transcribe.NewRetriever(backend, transcribe.RetrieverConfig{}).Retrieve(context.Background(), origin.URL+"/ep.ogg")
	require.NoError(t, err)

	assert.Equal(t, origin.URL+"/ep.ogg", result.AudioUrl)
	assert.Equal(t, "Hello, world.", result.Transcript)
	assert.Equal(t, 1, backend.calls)
	assert.Equal(t, []byte("OggS-audio"), backend.audio)
	assert.Equal(t, "audio/ogg", backend.mimetype)
}

func TestRetrieveDefaultsMimetype(t *testing.T) {
	origin := audioOrigin(t, http.StatusOK, "", []byte{0xff, 0xfb, 0x90})
	backend := &fakeBackend{}

	_, err := transcribe.NewRetriever(backend, transcribe.RetrieverConfig{}).Retrieve(context.Background(), origin.URL)
	require.NoError(t, err)
	assert.Equal(t, transcribe.DefaultMimetype, backend.mimetype)
}

func TestRetrieveAudioNotFoundSkipsBackend(t *testing.T) {
	origin := audioOrigin(t, http.StatusNotFound, "text/plain", []byte("gone"))
	backend := &fakeBackend{}

	_, err := transcribe.NewRetriever(backend, transcribe.RetrieverConfig{}).Retrieve(context.Background(), origin.URL)

	var notFound *models.NotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, http.StatusNotFound, notFound.StatusCode)
	assert.Equal(t, 0, backend.calls)
}

func TestRetrieveOversizedAudio(t *testing.T) {
	origin := audioOrigin(t, http.StatusOK, "audio/mpeg", make([]byte, 128))
	backend := &fakeBackend{}

	retriever := transcribe.NewRetriever(backend, transcribe.RetrieverConfig{MaxAudioBytes: 64})
	_, err := retriever.Retrieve(context.Background(), origin.URL)
	assert.True(t, models.IsNotFound(err))
	assert.Equal(t, 0, backend.calls)
}

func TestRetrieveBackendFailure(t *testing.T) {
	origin := audioOrigin(t, http.StatusOK, "audio/mpeg", []byte("audio"))
	backend := &fakeBackend{err: errors.New("boom")}

	_, err := transcribe.NewRetriever(backend, transcribe.RetrieverConfig{}).Retrieve(context.Background(), origin.URL)
	assert.True(t, models.IsTranscription(err))
	assert.False(t, models.IsNotFound(err))
}

func TestRetrieveRequiresUrl(t *testing.T) {
	backend := &fakeBackend{}
	_, err := transcribe.NewRetriever(backend, transcribe.RetrieverConfig{}).Retrieve(context.Background(), "")
	assert.True(t, models.IsValidation(err))
	assert.Equal(t, 0, backend.calls)
}
