package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/NazeerGreene/WeatherApp/internal/model"
)

var testBreaker = BreakerSettings{MaxRequests: 5, Interval: time.Minute, Timeout: time.Minute}

func testDate(t *testing.T, s string) *time.Time {
	t.Helper()
	d, err := time.Parse(model.DateFormat, s)
	if err != nil {
		t.Fatalf("bad test date %q: %v", s, err)
	}
	return &d
}

func TestNewVisualCrossingClient_MissingAPIKey(t *testing.T) {
	_, err := NewVisualCrossingClient("", "http://example.com", time.Second, testBreaker)
	if !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("expected ErrMissingAPIKey, got %v", err)
	}
}

func TestFetch_Success(t *testing.T) {
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"address":"Seattle","resolvedAddress":"Seattle, WA","timezone":"America/Los_Angeles","days":[{"datetime":"2024-01-01","temp":4.5,"conditions":"Rain"}]}`))
	}))
	defer srv.Close()

	c, err := NewVisualCrossingClient("testkey", srv.URL, time.Second, testBreaker)
	if err != nil {
		t.Fatal(err)
	}

	weather, err := c.Fetch(context.Background(), model.WeatherQuery{
		Location: "Seattle",
		Start:    testDate(t, "2024-01-01"),
		End:      testDate(t, "2024-01-05"),
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if weather.ResolvedAddress != "Seattle, WA" {
		t.Errorf("unexpected resolved address %q", weather.ResolvedAddress)
	}
	if len(weather.Days) != 1 || weather.Days[0].Temp != 4.5 {
		t.Errorf("unexpected days %+v", weather.Days)
	}

	if gotPath != "/Seattle/2024-01-01/2024-01-05" {
		t.Errorf("unexpected upstream path %q", gotPath)
	}
	for _, want := range []string{"key=testkey", "unitGroup=metric", "contentType=json"} {
		if !strings.Contains(gotQuery, want) {
			t.Errorf("query %q missing %q", gotQuery, want)
		}
	}
}

func TestFetch_BareLocationHasNoDateSegments(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(`{"address":"Seattle","days":[]}`))
	}))
	defer srv.Close()

	c, _ := NewVisualCrossingClient("testkey", srv.URL, time.Second, testBreaker)
	if _, err := c.Fetch(context.Background(), model.WeatherQuery{Location: "Seattle"}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if gotPath != "/Seattle" {
		t.Errorf("unexpected upstream path %q", gotPath)
	}
}

func TestFetch_LocationNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid location", http.StatusNotFound)
	}))
	defer srv.Close()

	c, _ := NewVisualCrossingClient("testkey", srv.URL, time.Second, testBreaker)
	_, err := c.Fetch(context.Background(), model.WeatherQuery{Location: "Nowhereville12345"})
	if !errors.Is(err, ErrLocationNotFound) {
		t.Errorf("expected ErrLocationNotFound, got %v", err)
	}
}

func TestFetch_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c, _ := NewVisualCrossingClient("testkey", srv.URL, time.Second, testBreaker)
	_, err := c.Fetch(context.Background(), model.WeatherQuery{Location: "Seattle"})
	if !errors.Is(err, ErrUpstreamError) {
		t.Errorf("expected ErrUpstreamError, got %v", err)
	}
}

func TestFetch_NonOKNonNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	c, _ := NewVisualCrossingClient("testkey", srv.URL, time.Second, testBreaker)
	_, err := c.Fetch(context.Background(), model.WeatherQuery{Location: "Seattle"})
	if !errors.Is(err, ErrUpstreamError) {
		t.Errorf("expected ErrUpstreamError, got %v", err)
	}
}

func TestFetch_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"address": "Seattle", "days": [`))
	}))
	defer srv.Close()

	c, _ := NewVisualCrossingClient("testkey", srv.URL, time.Second, testBreaker)
	_, err := c.Fetch(context.Background(), model.WeatherQuery{Location: "Seattle"})
	if !errors.Is(err, ErrMalformedResponse) {
		t.Errorf("expected ErrMalformedResponse, got %v", err)
	}
}

func TestFetch_NetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	c, _ := NewVisualCrossingClient("testkey", srv.URL, time.Second, testBreaker)
	_, err := c.Fetch(context.Background(), model.WeatherQuery{Location: "Seattle"})
	if !errors.Is(err, ErrUpstreamUnavailable) {
		t.Errorf("expected ErrUpstreamUnavailable, got %v", err)
	}
}

func TestFetch_CircuitOpensAfterRepeatedFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	c, _ := NewVisualCrossingClient("testkey", srv.URL, time.Second, testBreaker)

	// gobreaker's default ReadyToTrip fires after 5 consecutive failures.
	for i := 0; i < 6; i++ {
		_, _ = c.Fetch(context.Background(), model.WeatherQuery{Location: "Seattle"})
	}
	_, err := c.Fetch(context.Background(), model.WeatherQuery{Location: "Seattle"})
	if !errors.Is(err, ErrUpstreamUnavailable) {
		t.Errorf("expected ErrUpstreamUnavailable once circuit is open, got %v", err)
	}
}

func TestFetch_ClientCancellationsDoNotOpenCircuit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"address":"Seattle","days":[]}`))
	}))
	defer srv.Close()

	c, _ := NewVisualCrossingClient("testkey", srv.URL, time.Second, testBreaker)

	// A burst of hung-up callers must not count against upstream health.
	for i := 0; i < 6; i++ {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, err := c.Fetch(ctx, model.WeatherQuery{Location: "Seattle"}); err == nil {
			t.Fatal("expected the canceled request itself to fail")
		}
	}

	if _, err := c.Fetch(context.Background(), model.WeatherQuery{Location: "Seattle"}); err != nil {
		t.Fatalf("healthy upstream must still be reachable after client cancellations, got %v", err)
	}
}

func TestFetch_ContextCancellation(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	c, _ := NewVisualCrossingClient("testkey", srv.URL, 10*time.Second, testBreaker)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.Fetch(ctx, model.WeatherQuery{Location: "Seattle"})
	if !errors.Is(err, ErrUpstreamTimeout) {
		t.Errorf("expected ErrUpstreamTimeout, got %v", err)
	}
}
