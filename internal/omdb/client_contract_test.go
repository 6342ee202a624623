package omdb

import (
	"context"
	"io"
	"log"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestHTTPClientSmoke runs against a live OMDb-compatible endpoint (the real
// API or cmd/omdb-mock) when OMDB_URL and OMDB_API_KEY are exported.
func TestHTTPClientSmoke(t *testing.T) {
	baseURL := os.Getenv("OMDB_URL")
	apiKey := os.Getenv("OMDB_API_KEY")
	if baseURL == "" || apiKey == "" {
		t.Skip("OMDB_URL or OMDB_API_KEY not provided")
	}
	client, err := NewHTTPClient(baseURL, apiKey, 3*time.Second, log.New(io.Discard, "", 0))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	meta, err := client.Lookup(ctx, "The Matrix")
	require.NoError(t, err)
	require.NotNil(t, meta.Year, "unexpected metadata payload: %+v", meta)
	require.NotNil(t, meta.Director, "unexpected metadata payload: %+v", meta)
}
