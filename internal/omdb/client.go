package omdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"moul.io/http2curl"
)

// DefaultBaseURL is the public OMDb endpoint.
const DefaultBaseURL = "http://www.omdbapi.com/"

// posterUnavailable is the marker OMDb uses when it has no poster.
const posterUnavailable = "N/A"

const maxResponseBody = 1 << 20

var (
	// ErrNotFound is returned when OMDb reports no match for the title.
	ErrNotFound = errors.New("omdb: not found")
	// ErrMissingAPIKey is returned when the client is built without a credential.
	ErrMissingAPIKey = errors.New("omdb: api key is required")
)

// Metadata is the normalized subset of an OMDb title record used for
// enrichment. A nil field means the upstream payload did not carry it.
type Metadata struct {
	Year       *string
	Director   *string
	Genre      *string
	Plot       *string
	IMDbRating *string
	Poster     *string
}

// Client defines the contract for looking up movie metadata by title.
type Client interface {
	Lookup(ctx context.Context, title string) (*Metadata, error)
}

// HTTPClient implements Client against the OMDb HTTP API.
type HTTPClient struct {
	baseURL *url.URL
	apiKey  string
	client  *http.Client
	logger  *log.Logger
	debug   bool
}

// Option customizes an HTTPClient.
type Option func(*HTTPClient)

// WithDebug logs every outbound request as a curl command with the key redacted.
func WithDebug(enabled bool) Option {
	return func(c *HTTPClient) { c.debug = enabled }
}

// WithHTTPClient replaces the underlying transport client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *HTTPClient) { c.client = hc }
}

// NewHTTPClient constructs an OMDb client. An empty apiKey is a configuration
// error and is rejected up front.
func NewHTTPClient(baseURL, apiKey string, timeout time.Duration, logger *log.Logger, opts ...Option) (*HTTPClient, error) {
	if logger == nil {
		logger = log.Default()
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrMissingAPIKey
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse omdb url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("parse omdb url: %q is not absolute", baseURL)
	}

	c := &HTTPClient{
		baseURL: parsed,
		apiKey:  apiKey,
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
				ExpectContinueTimeout: 1 * time.Second,
			},
		},
		logger: logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Lookup fetches the OMDb record for title. ErrNotFound signals that OMDb
// answered but had no match; any other error is a transport or decode failure.
func (c *HTTPClient) Lookup(ctx context.Context, title string) (*Metadata, error) {
	endpoint := *c.baseURL
	endpoint.RawQuery = buildQuery(title, c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	c.trace(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("omdb request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("read omdb response: %w", err)
	}

	var payload apiResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("omdb: upstream returned %d", resp.StatusCode)
		}
		return nil, fmt.Errorf("decode omdb response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Printf("omdb: unexpected status status=%d title=%q error=%q", resp.StatusCode, title, payload.Error)
		return nil, fmt.Errorf("omdb: upstream returned %d", resp.StatusCode)
	}
	if payload.Response != "True" {
		return nil, ErrNotFound
	}
	return normalize(payload), nil
}

// buildQuery keeps OMDb's documented parameter order: t first, then apikey.
func buildQuery(title, apiKey string) string {
	return "t=" + url.QueryEscape(title) + "&apikey=" + url.QueryEscape(apiKey)
}

func (c *HTTPClient) trace(req *http.Request) {
	if !c.debug {
		return
	}
	redacted := req.Clone(req.Context())
	u := *req.URL
	u.RawQuery = strings.Replace(u.RawQuery, "apikey="+url.QueryEscape(c.apiKey), "apikey=REDACTED", 1)
	redacted.URL = &u
	cmd, err := http2curl.GetCurlCommand(redacted)
	if err != nil {
		c.logger.Printf("omdb: build curl trace failed err=%v", err)
		return
	}
	c.logger.Printf("omdb: request curl=%q", cmd.String())
}

type apiResponse struct {
	Response   string  `json:"Response"`
	Error      string  `json:"Error"`
	Title      string  `json:"Title"`
	Year       *string `json:"Year"`
	Director   *string `json:"Director"`
	Genre      *string `json:"Genre"`
	Plot       *string `json:"Plot"`
	IMDbRating *string `json:"imdbRating"`
	Poster     *string `json:"Poster"`
}

func normalize(payload apiResponse) *Metadata {
	poster := present(payload.Poster)
	if poster != nil && *poster == posterUnavailable {
		poster = nil
	}
	return &Metadata{
		Year:       present(payload.Year),
		Director:   present(payload.Director),
		Genre:      present(payload.Genre),
		Plot:       present(payload.Plot),
		IMDbRating: present(payload.IMDbRating),
		Poster:     poster,
	}
}

func present(ptr *string) *string {
	if ptr == nil {
		return nil
	}
	val := strings.TrimSpace(*ptr)
	if val == "" {
		return nil
	}
	return &val
}
