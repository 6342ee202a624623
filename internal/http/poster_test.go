package httpserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Clark-Hu/movie-catalog/internal/domain"
)

var posterBytes = []byte("\xff\xd8\xff\xe0fake-jpeg-data")

func newImageServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/images/ok.jpg", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write(posterBytes)
	})
	mux.HandleFunc("/images/missing.jpg", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func decodePoster(t *testing.T, rec *httptest.ResponseRecorder) posterResponse {
	t.Helper()
	var resp posterResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), "body=%s", rec.Body.String())
	return resp
}

func TestHandleDownloadPoster(t *testing.T) {
	ts := buildTestServer(t)
	images := newImageServer(t)
	movie := seedMovie(t, ts, domain.Movie{Title: "Heat", PosterURL: strPtr(images.URL + "/images/ok.jpg")})

	rec := ts.do(t, http.MethodPost, "/movies/"+movie.ID+"/download_poster/", "")
	require.Equal(t, http.StatusOK, rec.Code, "body=%s", rec.Body.String())
	resp := decodePoster(t, rec)
	assert.NotEmpty(t, resp.Success)
	assert.Equal(t, "/media/posters/ok.jpg", resp.Poster)

	onDisk, err := os.ReadFile(filepath.Join(ts.mediaRoot, "posters", "ok.jpg"))
	require.NoError(t, err)
	assert.Equal(t, posterBytes, onDisk)

	served := ts.do(t, http.MethodGet, resp.Poster, "")
	require.Equal(t, http.StatusOK, served.Code, "media route")
	assert.Equal(t, string(posterBytes), served.Body.String())

	got := decodeMovie(t, ts.do(t, http.MethodGet, "/movies/"+movie.ID, ""))
	require.NotNil(t, got.Poster)
	assert.Equal(t, resp.Poster, *got.Poster)

	// A second download must not replace the attached file.
	rec = ts.do(t, http.MethodPost, "/movies/"+movie.ID+"/download_poster", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code, "second download")
	again := decodeMovie(t, ts.do(t, http.MethodGet, "/movies/"+movie.ID, ""))
	require.NotNil(t, again.Poster)
	assert.Equal(t, resp.Poster, *again.Poster, "poster changed after rejected download")

	rec = ts.do(t, http.MethodDelete, "/movies/"+movie.ID, "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	_, err = os.Stat(filepath.Join(ts.mediaRoot, "posters", "ok.jpg"))
	assert.ErrorIs(t, err, os.ErrNotExist, "poster file should be removed with the movie")
}

func TestHandleDownloadPoster_SameNameGetsSuffix(t *testing.T) {
	ts := buildTestServer(t)
	images := newImageServer(t)
	first := seedMovie(t, ts, domain.Movie{Title: "Heat", PosterURL: strPtr(images.URL + "/images/ok.jpg")})
	second := seedMovie(t, ts, domain.Movie{Title: "Heat II", PosterURL: strPtr(images.URL + "/images/ok.jpg")})

	a := decodePoster(t, ts.do(t, http.MethodPost, "/movies/"+first.ID+"/download_poster", ""))
	b := decodePoster(t, ts.do(t, http.MethodPost, "/movies/"+second.ID+"/download_poster", ""))
	require.NotEmpty(t, a.Poster)
	require.NotEmpty(t, b.Poster)
	assert.NotEqual(t, a.Poster, b.Poster, "posters should be distinct files")
}

func TestHandleDownloadPoster_Rejections(t *testing.T) {
	ts := buildTestServer(t)
	images := newImageServer(t)

	noURL := seedMovie(t, ts, domain.Movie{Title: "No Poster"})
	rec := ts.do(t, http.MethodPost, "/movies/"+noURL.ID+"/download_poster", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code, "missing poster_url")

	broken := seedMovie(t, ts, domain.Movie{Title: "Broken", PosterURL: strPtr(images.URL + "/images/missing.jpg")})
	rec = ts.do(t, http.MethodPost, "/movies/"+broken.ID+"/download_poster", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code, "upstream 404")
	got := decodeMovie(t, ts.do(t, http.MethodGet, "/movies/"+broken.ID, ""))
	assert.Nil(t, got.Poster, "failed download should leave poster empty")
	entries, _ := os.ReadDir(filepath.Join(ts.mediaRoot, "posters"))
	assert.Empty(t, entries, "failed download left files behind")

	unreachable := seedMovie(t, ts, domain.Movie{Title: "Gone", PosterURL: strPtr("http://127.0.0.1:1/x.jpg")})
	rec = ts.do(t, http.MethodPost, "/movies/"+unreachable.ID+"/download_poster", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code, "transport failure")

	rec = ts.do(t, http.MethodPost, "/movies/0b8c5d8e-54a3-4d6a-9b0f-5b1d3f1a9c77/download_poster", "")
	assert.Equal(t, http.StatusNotFound, rec.Code, "unknown movie")
}
