package httpserver

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/Clark-Hu/movie-catalog/internal/domain"
	"github.com/Clark-Hu/movie-catalog/internal/poster"
	"github.com/Clark-Hu/movie-catalog/internal/repository"
)

type posterResponse struct {
	Success string `json:"success"`
	Poster  string `json:"poster"`
}

// handleDownloadPoster fetches the image behind poster_url and attaches it to
// the movie. The database write is the last step; if it fails the stored file
// is removed again so no half-attached poster remains.
func (s *Server) handleDownloadPoster(w http.ResponseWriter, r *http.Request) {
	movie, ok := s.loadMovie(w, r)
	if !ok {
		return
	}

	if domain.IsBlank(movie.PosterURL) {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", "Movie has no poster URL")
		return
	}
	if movie.HasPoster() {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", "Movie already has a poster")
		return
	}
	if s.fetcher == nil || s.media == nil {
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Poster storage is not configured")
		return
	}

	data, err := s.fetcher.Fetch(r.Context(), *movie.PosterURL)
	if err != nil {
		if errors.Is(err, poster.ErrUpstreamStatus) {
			s.logger.Printf("poster download rejected id=%s url=%q: %v", movie.ID, *movie.PosterURL, err)
			s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", "Could not download poster")
			return
		}
		s.logger.Printf("poster download failed id=%s url=%q: %v", movie.ID, *movie.PosterURL, err)
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", fmt.Sprintf("Error downloading poster: %v", err))
		return
	}

	rel, err := s.media.Save(poster.Filename(*movie.PosterURL, movie.Title), data)
	if err != nil {
		s.logger.Printf("poster store failed id=%s: %v", movie.ID, err)
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", fmt.Sprintf("Error downloading poster: %v", err))
		return
	}

	updated, err := s.repo.Movies.SetPoster(r.Context(), movie.ID, rel)
	if err != nil {
		if rmErr := s.media.Delete(rel); rmErr != nil {
			s.logger.Printf("poster cleanup failed path=%s: %v", rel, rmErr)
		}
		switch {
		case errors.Is(err, repository.ErrPosterExists):
			s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", "Movie already has a poster")
		case errors.Is(err, repository.ErrNotFound):
			s.respondError(w, http.StatusNotFound, "NOT_FOUND", "Resource not found")
		default:
			s.logger.Printf("attach poster failed id=%s: %v", movie.ID, err)
			s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", fmt.Sprintf("Error downloading poster: %v", err))
		}
		return
	}

	s.respondJSON(w, http.StatusOK, posterResponse{
		Success: "Poster downloaded successfully",
		Poster:  s.media.URL(*updated.Poster),
	})
}
