package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidRating(t *testing.T) {
	tests := []struct {
		value float64
		want  bool
	}{
		{0, true},
		{10, true},
		{9.3, true},
		{-0.1, false},
		{10.01, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ValidRating(tt.value), "ValidRating(%v)", tt.value)
	}
}

func TestFitsText(t *testing.T) {
	assert.True(t, FitsText(""))
	assert.True(t, FitsText(strings.Repeat("x", MaxTextLength)))
	assert.False(t, FitsText(strings.Repeat("x", MaxTextLength+1)))
	// Three bytes per character; counted as one each.
	assert.True(t, FitsText(strings.Repeat("映", MaxTextLength)))
	assert.False(t, FitsText(strings.Repeat("映", MaxTextLength+1)))
}

func TestHasPoster(t *testing.T) {
	empty := ""
	path := "posters/matrix.jpg"

	assert.False(t, (Movie{}).HasPoster(), "nil poster should not count")
	assert.False(t, (Movie{Poster: &empty}).HasPoster(), "empty poster should not count")
	assert.True(t, (Movie{Poster: &path}).HasPoster(), "stored poster should count")
}
