package omdb

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const matrixPayload = `{
  "Title": "The Matrix",
  "Year": "1999",
  "Director": "Lana Wachowski, Lilly Wachowski",
  "Genre": "Action, Sci-Fi",
  "Plot": "A computer hacker learns about the true nature of reality.",
  "imdbRating": "8.7",
  "Poster": "https://m.media-amazon.com/images/M/matrix.jpg",
  "Response": "True"
}`

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewHTTPClient(srv.URL+"/", "secret-key", time.Second, log.New(io.Discard, "", 0), opts...)
	require.NoError(t, err)
	return client
}

func TestNewHTTPClient_RequiresAPIKey(t *testing.T) {
	_, err := NewHTTPClient(DefaultBaseURL, "  ", time.Second, nil)
	require.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestNewHTTPClient_RejectsRelativeURL(t *testing.T) {
	_, err := NewHTTPClient("omdbapi.com", "key", time.Second, nil)
	require.Error(t, err)
}

func TestLookup_Match(t *testing.T) {
	var gotQuery string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(matrixPayload))
	})

	meta, err := client.Lookup(context.Background(), "The Matrix")
	require.NoError(t, err)
	require.NotNil(t, meta)

	assert.Equal(t, "t=The+Matrix&apikey=secret-key", gotQuery)
	assert.Equal(t, "1999", *meta.Year)
	assert.Equal(t, "Lana Wachowski, Lilly Wachowski", *meta.Director)
	assert.Equal(t, "Action, Sci-Fi", *meta.Genre)
	assert.Equal(t, "8.7", *meta.IMDbRating)
	assert.Equal(t, "https://m.media-amazon.com/images/M/matrix.jpg", *meta.Poster)
}

func TestLookup_EscapesTitle(t *testing.T) {
	var gotTitle string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotTitle = r.URL.Query().Get("t")
		_, _ = w.Write([]byte(matrixPayload))
	})

	_, err := client.Lookup(context.Background(), "Fast & Furious")
	require.NoError(t, err)
	assert.Equal(t, "Fast & Furious", gotTitle)
}

func TestLookup_NoMatch(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"Response":"False","Error":"Movie not found!"}`))
	})

	meta, err := client.Lookup(context.Background(), "Nope")
	require.ErrorIs(t, err, ErrNotFound)
	assert.Nil(t, meta)
}

func TestLookup_PosterNotAvailable(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"Response":"True","Year":"2001","Poster":"N/A","Plot":""}`))
	})

	meta, err := client.Lookup(context.Background(), "Obscure")
	require.NoError(t, err)
	assert.Nil(t, meta.Poster)
	assert.Nil(t, meta.Plot)
	assert.Nil(t, meta.Director)
	assert.Equal(t, "2001", *meta.Year)
}

func TestLookup_UpstreamErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "invalid api key",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"Response":"False","Error":"Invalid API key!"}`))
			},
		},
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "boom", http.StatusInternalServerError)
			},
		},
		{
			name: "malformed json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"Response":`))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, tt.handler)
			meta, err := client.Lookup(context.Background(), "The Matrix")
			require.Error(t, err)
			assert.False(t, errors.Is(err, ErrNotFound))
			assert.Nil(t, meta)
		})
	}
}

func TestLookup_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	baseURL := srv.URL
	srv.Close()

	client, err := NewHTTPClient(baseURL, "key", 500*time.Millisecond, log.New(io.Discard, "", 0))
	require.NoError(t, err)

	_, err = client.Lookup(context.Background(), "The Matrix")
	require.Error(t, err)
}

func TestLookup_DebugTraceRedactsKey(t *testing.T) {
	var logs bytes.Buffer
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(matrixPayload))
	}))
	t.Cleanup(srv.Close)

	client, err := NewHTTPClient(srv.URL, "secret-key", time.Second, log.New(&logs, "", 0), WithDebug(true))
	require.NoError(t, err)

	_, err = client.Lookup(context.Background(), "The Matrix")
	require.NoError(t, err)

	out := logs.String()
	assert.True(t, strings.Contains(out, "curl"), "expected curl trace, got %q", out)
	assert.Contains(t, out, "apikey=REDACTED")
	assert.NotContains(t, out, "secret-key")
}
