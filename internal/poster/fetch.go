package poster

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"path"
	"regexp"
	"strings"
	"time"
)

// ErrUpstreamStatus is returned when the poster host answers with a non-200 status.
var ErrUpstreamStatus = errors.New("poster: upstream returned non-success status")

// ErrTooLarge is returned when the image exceeds the configured byte limit.
var ErrTooLarge = errors.New("poster: image exceeds size limit")

const defaultExtension = ".jpg"

// Fetcher downloads poster images over HTTP.
type Fetcher struct {
	client   *http.Client
	maxBytes int64
}

// NewFetcher builds a Fetcher whose requests are bounded by timeout and whose
// response bodies are capped at maxBytes.
func NewFetcher(timeout time.Duration, maxBytes int64) *Fetcher {
	return &Fetcher{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout:   timeout,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout:   timeout,
				ResponseHeaderTimeout: timeout,
			},
		},
		maxBytes: maxBytes,
	}
}

// Fetch returns the body of rawURL. Any status other than 200 yields an error
// wrapping ErrUpstreamStatus.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build poster request: %w", err)
	}
	req.Header.Set("Accept", "image/*")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download poster: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s", ErrUpstreamStatus, resp.Status)
	}

	reader := io.Reader(resp.Body)
	if f.maxBytes > 0 {
		reader = io.LimitReader(resp.Body, f.maxBytes+1)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read poster body: %w", err)
	}
	if f.maxBytes > 0 && int64(len(data)) > f.maxBytes {
		return nil, ErrTooLarge
	}
	return data, nil
}

var unsafeNameChars = regexp.MustCompile(`[^-\w.]`)

// Filename derives the stored file name from the last path segment of
// posterURL, falling back to "<title>_poster.jpg" with spaces as underscores.
func Filename(posterURL, title string) string {
	name := ""
	if u, err := url.Parse(posterURL); err == nil && !strings.HasSuffix(u.Path, "/") {
		name = path.Base(u.Path)
	}
	name = validName(name)
	if name == "" {
		name = validName(strings.ReplaceAll(strings.TrimSpace(title), " ", "_") + "_poster" + defaultExtension)
	}
	if name == "" || name == defaultExtension {
		name = "poster" + defaultExtension
	}
	return name
}

func validName(name string) string {
	name = strings.ReplaceAll(strings.TrimSpace(name), " ", "_")
	name = unsafeNameChars.ReplaceAllString(name, "")
	name = strings.TrimLeft(name, ".")
	return name
}
