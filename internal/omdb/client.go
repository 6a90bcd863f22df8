// Package omdb talks to the OMDb API and aggregates search results with their details.
package omdb

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"

	"github.com/Clark-Hu/cinerate/internal/metrics"
)

const (
	breakerName = "omdb"
	maxBodySize = 1 << 20
)

// Summary is one entry of an OMDb search response.
type Summary struct {
	Title  string `json:"Title"`
	Year   string `json:"Year"`
	IMDbID string `json:"imdbID"`
	Type   string `json:"Type"`
	Poster string `json:"Poster"`
}

// SearchResult is a decoded search response. Found mirrors OMDb's Response flag.
type SearchResult struct {
	Found   bool
	Matches []Summary
	Error   string
}

// Client defines the calls the gateway makes against OMDb.
type Client interface {
	Search(ctx context.Context, query string) (SearchResult, error)
	Detail(ctx context.Context, imdbID string) (json.RawMessage, error)
}

// HTTPClient implements Client over HTTP behind a circuit breaker.
type HTTPClient struct {
	baseURL *url.URL
	apiKey  string
	timeout time.Duration
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[[]byte]
	logger  zerolog.Logger
}

// NewHTTPClient constructs an OMDb client whose calls never outlive timeout.
func NewHTTPClient(baseURL, apiKey string, timeout time.Duration, logger zerolog.Logger) (*HTTPClient, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse omdb url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("parse omdb url: %q is not absolute", baseURL)
	}
	if timeout <= 0 {
		return nil, errors.New("omdb timeout must be positive")
	}
	logger = logger.With().Str("component", "omdb").Logger()

	return &HTTPClient{
		baseURL: parsed,
		apiKey:  apiKey,
		timeout: timeout,
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
				MaxIdleConnsPerHost:   MaxDetails,
			},
		},
		breaker: newBreaker(logger),
		logger:  logger,
	}, nil
}

func newBreaker(logger zerolog.Logger) *gobreaker.CircuitBreaker[[]byte] {
	metrics.CircuitBreakerState.WithLabelValues(breakerName).Set(0)
	return gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateValue(to))
		},
		IsSuccessful: func(err error) bool {
			// a caller giving up is not an upstream failure
			return err == nil || errors.Is(err, context.Canceled)
		},
	})
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

// Search runs a movie-only title search.
func (c *HTTPClient) Search(ctx context.Context, query string) (SearchResult, error) {
	params := url.Values{}
	params.Set("s", query)
	params.Set("type", "movie")

	body, err := c.get(ctx, "search", params, false)
	if err != nil {
		return SearchResult{}, err
	}
	return decodeSearch(body)
}

// Detail fetches the short-plot record for imdbID and returns it verbatim.
func (c *HTTPClient) Detail(ctx context.Context, imdbID string) (json.RawMessage, error) {
	params := url.Values{}
	params.Set("i", imdbID)
	params.Set("plot", "short")

	body, err := c.get(ctx, "detail", params, true)
	if err != nil {
		return nil, err
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("omdb: detail for %s is not valid JSON", imdbID)
	}
	return json.RawMessage(body), nil
}

// get issues one call through the breaker. With requireOK unset, a non-200 response whose body is
// JSON is returned as-is; OMDb reports rejections such as an invalid key that way.
func (c *HTTPClient) get(ctx context.Context, call string, params url.Values, requireOK bool) ([]byte, error) {
	params.Set("apikey", c.apiKey)
	endpoint := *c.baseURL
	endpoint.RawQuery = params.Encode()

	body, err := c.breaker.Execute(func() ([]byte, error) {
		ctx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()
		return c.do(ctx, endpoint.String(), requireOK)
	})
	switch {
	case err == nil:
		metrics.OMDbRequests.WithLabelValues(call, "success").Inc()
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.OMDbRequests.WithLabelValues(call, "rejected").Inc()
		c.logger.Warn().Err(err).Str("call", call).Msg("omdb request rejected by circuit breaker")
	default:
		metrics.OMDbRequests.WithLabelValues(call, "failure").Inc()
	}
	return body, err
}

func (c *HTTPClient) do(ctx context.Context, endpoint string, requireOK bool) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, redact(err)
	}
	defer resp.Body.Close()

	if requireOK && resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))
		return nil, fmt.Errorf("omdb: upstream returned %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("omdb: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		if !json.Valid(body) {
			return nil, fmt.Errorf("omdb: upstream returned %d", resp.StatusCode)
		}
		c.logger.Debug().Int("status", resp.StatusCode).Msg("omdb answered with non-200 JSON body")
	}
	return body, nil
}

// redact drops the request URL from transport errors so the API key never reaches callers.
func redact(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return urlErr.Err
	}
	return err
}

type searchResponse struct {
	Search       []Summary `json:"Search"`
	TotalResults string    `json:"totalResults"`
	Response     string    `json:"Response"`
	Error        string    `json:"Error"`
}

func decodeSearch(body []byte) (SearchResult, error) {
	var payload searchResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return SearchResult{}, fmt.Errorf("omdb: decode search response: %w", err)
	}
	if payload.Response != "True" {
		return SearchResult{Found: false, Error: payload.Error}, nil
	}
	return SearchResult{Found: true, Matches: payload.Search}, nil
}
