package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

// Rating bounds accepted for a movie's score.
const (
	MinRating = 0.0
	MaxRating = 10.0
)

// MaxTextLength is the character limit of the title, directors and genre columns.
const MaxTextLength = 255

// Movie represents the canonical movie entity in the database/service.
// Optional columns are pointers; nil means the column is NULL.
type Movie struct {
	ID        string
	Title     string
	Year      *int
	Directors *string
	Genre     *string
	Plot      *string
	Rating    *float64
	PosterURL *string
	// Poster is the media-relative path of the stored image, e.g. "posters/x.jpg".
	Poster    *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ValidRating reports whether value lies within [MinRating, MaxRating].
func ValidRating(value float64) bool {
	return value >= MinRating && value <= MaxRating
}

// IsBlank reports whether an optional text column carries no usable value.
func IsBlank(value *string) bool {
	return value == nil || strings.TrimSpace(*value) == ""
}

// FitsText reports whether value fits a MaxTextLength column. Length is
// counted in characters, as Postgres does for VARCHAR.
func FitsText(value string) bool {
	return utf8.RuneCountInString(value) <= MaxTextLength
}

// HasPoster reports whether an image has already been stored for the movie.
func (m Movie) HasPoster() bool {
	return !IsBlank(m.Poster)
}
