// Package enrich backfills empty movie fields from the metadata provider.
//
// Enrichment is fail-open: a lookup failure is logged and the movie is left
// as the caller supplied it, so the surrounding write always proceeds.
package enrich

import (
	"context"
	"errors"
	"log"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/Clark-Hu/movie-catalog/internal/domain"
	"github.com/Clark-Hu/movie-catalog/internal/omdb"
)

// Service fills missing movie fields from an omdb.Client.
type Service struct {
	client  omdb.Client
	timeout time.Duration
	logger  *log.Logger
}

// New builds a Service. A zero timeout leaves the lookup bounded only by ctx.
func New(client omdb.Client, timeout time.Duration, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	return &Service{client: client, timeout: timeout, logger: logger}
}

// NeedsEnrichment reports whether any field the provider can supply is still empty.
// Rating is excluded: a movie without a score is not considered incomplete.
func NeedsEnrichment(movie domain.Movie) bool {
	return movie.Year == nil ||
		domain.IsBlank(movie.Directors) ||
		domain.IsBlank(movie.Genre) ||
		domain.IsBlank(movie.Plot) ||
		domain.IsBlank(movie.PosterURL)
}

// Enrich looks the movie up by title and copies provider values into fields
// that are currently empty. Fields already set are never touched. It returns
// true when at least one field changed.
func (s *Service) Enrich(ctx context.Context, movie *domain.Movie) bool {
	if s == nil || s.client == nil || movie == nil {
		return false
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	meta, err := s.client.Lookup(ctx, movie.Title)
	if err != nil {
		if !errors.Is(err, omdb.ErrNotFound) {
			s.logger.Printf("enrich: lookup failed title=%q err=%v", movie.Title, err)
		}
		return false
	}
	if meta == nil {
		return false
	}
	return Apply(movie, meta, s.logger)
}

// Apply merges meta into movie following the fill-only-empty rule. Year and
// rating values that do not parse, a rating outside the accepted range, and
// directors or genre longer than their column are dropped and the field
// stays empty.
func Apply(movie *domain.Movie, meta *omdb.Metadata, logger *log.Logger) bool {
	changed := false

	if movie.Year == nil && meta.Year != nil {
		if year, err := strconv.Atoi(*meta.Year); err == nil {
			movie.Year = &year
			changed = true
		} else if logger != nil {
			logger.Printf("enrich: discarding year title=%q value=%q", movie.Title, *meta.Year)
		}
	}
	if domain.IsBlank(movie.Directors) && meta.Director != nil {
		if domain.FitsText(*meta.Director) {
			movie.Directors = copyString(meta.Director)
			changed = true
		} else if logger != nil {
			logger.Printf("enrich: discarding directors title=%q length=%d", movie.Title, utf8.RuneCountInString(*meta.Director))
		}
	}
	if domain.IsBlank(movie.Genre) && meta.Genre != nil {
		if domain.FitsText(*meta.Genre) {
			movie.Genre = copyString(meta.Genre)
			changed = true
		} else if logger != nil {
			logger.Printf("enrich: discarding genre title=%q length=%d", movie.Title, utf8.RuneCountInString(*meta.Genre))
		}
	}
	if domain.IsBlank(movie.Plot) && meta.Plot != nil {
		movie.Plot = copyString(meta.Plot)
		changed = true
	}
	if movie.Rating == nil && meta.IMDbRating != nil {
		rating, err := strconv.ParseFloat(*meta.IMDbRating, 64)
		if err == nil && domain.ValidRating(rating) {
			movie.Rating = &rating
			changed = true
		} else if logger != nil {
			logger.Printf("enrich: discarding rating title=%q value=%q", movie.Title, *meta.IMDbRating)
		}
	}
	if domain.IsBlank(movie.PosterURL) && meta.Poster != nil {
		movie.PosterURL = copyString(meta.Poster)
		changed = true
	}

	return changed
}

func copyString(ptr *string) *string {
	val := *ptr
	return &val
}
