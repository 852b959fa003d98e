package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"

	"github.com/NazeerGreene/WeatherApp/internal/model"
	"github.com/NazeerGreene/WeatherApp/internal/observability"
)

// WeatherClient fetches weather data from the upstream provider.
type WeatherClient interface {
	Fetch(ctx context.Context, query model.WeatherQuery) (*model.WeatherResponse, error)
}

var (
	ErrMissingAPIKey       = errors.New("API key missing")
	ErrLocationNotFound    = errors.New("location not found")
	ErrUpstreamUnavailable = errors.New("upstream weather provider unavailable")
	ErrUpstreamTimeout     = errors.New("upstream weather provider timed out")
	ErrUpstreamError       = errors.New("upstream weather provider error")
	ErrMalformedResponse   = errors.New("malformed upstream response")
)

// VisualCrossingClient calls the Visual Crossing timeline API. One GET per
// query; date bounds become extra path segments.
type VisualCrossingClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
}

// BreakerSettings tunes the circuit breaker guarding the upstream call.
type BreakerSettings struct {
	MaxRequests uint32
	Interval    time.Duration
	Timeout     time.Duration
}

// NewVisualCrossingClient creates an upstream client. An optional *http.Client
// may be passed for tests; otherwise a client bounded by timeout is used.
func NewVisualCrossingClient(apiKey, baseURL string, timeout time.Duration, settings BreakerSettings, httpClient ...*http.Client) (*VisualCrossingClient, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	hc := &http.Client{Timeout: timeout}
	if len(httpClient) > 0 && httpClient[0] != nil {
		hc = httpClient[0]
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "visualcrossing",
		MaxRequests: settings.MaxRequests,
		Interval:    settings.Interval,
		Timeout:     settings.Timeout,
		// A caller hanging up says nothing about upstream health; only
		// genuine upstream failures may trip the breaker.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})

	return &VisualCrossingClient{
		apiKey:     apiKey,
		baseURL:    baseURL,
		httpClient: hc,
		breaker:    cb,
	}, nil
}

// Fetch issues the upstream request and decodes the timeline payload into the
// fixed response schema. Network failures and 5xx responses count against the
// circuit breaker; 4xx responses do not.
func (c *VisualCrossingClient) Fetch(ctx context.Context, query model.WeatherQuery) (*model.WeatherResponse, error) {
	reqURL := c.buildURL(query)

	result, err := c.breaker.Execute(func() (interface{}, error) {
		req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if reqErr != nil {
			return nil, reqErr
		}

		resp, doErr := c.httpClient.Do(req)
		if doErr != nil {
			return nil, doErr
		}
		if resp.StatusCode >= 500 {
			resp.Body.Close()
			return nil, fmt.Errorf("%w: status %d", ErrUpstreamError, resp.StatusCode)
		}
		return resp, nil
	})
	if err != nil {
		return nil, c.classify(err)
	}

	resp := result.(*http.Response)
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		observability.UpstreamRequestsTotal.WithLabelValues("not_found").Inc()
		return nil, fmt.Errorf("%w: %s", ErrLocationNotFound, query.Location)
	case resp.StatusCode != http.StatusOK:
		observability.UpstreamRequestsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%w: status %d", ErrUpstreamError, resp.StatusCode)
	}

	var weather model.WeatherResponse
	if err := json.NewDecoder(resp.Body).Decode(&weather); err != nil {
		observability.UpstreamRequestsTotal.WithLabelValues("malformed").Inc()
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	observability.UpstreamRequestsTotal.WithLabelValues("success").Inc()
	return &weather, nil
}

// buildURL appends the location and any date bounds as path segments, the way
// the timeline API expects them.
func (c *VisualCrossingClient) buildURL(query model.WeatherQuery) string {
	path := c.baseURL + "/" + url.PathEscape(query.Location)
	if query.Start != nil {
		path += "/" + query.Start.Format(model.DateFormat)
	}
	if query.End != nil {
		path += "/" + query.End.Format(model.DateFormat)
	}

	params := url.Values{}
	params.Set("unitGroup", "metric")
	params.Set("contentType", "json")
	params.Set("key", c.apiKey)
	return path + "?" + params.Encode()
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// classify maps transport-level failures onto the client error taxonomy.
func (c *VisualCrossingClient) classify(err error) error {
	switch {
	case errors.Is(err, ErrUpstreamError):
		observability.UpstreamRequestsTotal.WithLabelValues("error").Inc()
		return err
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		observability.UpstreamRequestsTotal.WithLabelValues("unavailable").Inc()
		return fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	case errors.Is(err, context.DeadlineExceeded), isTimeout(err):
		observability.UpstreamRequestsTotal.WithLabelValues("timeout").Inc()
		return fmt.Errorf("%w: %v", ErrUpstreamTimeout, err)
	default:
		observability.UpstreamRequestsTotal.WithLabelValues("unavailable").Inc()
		return fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
}
