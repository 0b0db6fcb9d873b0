package metadata

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Status:     http.StatusText(status),
		Body:       io.NopCloser(bytes.NewBufferString(body)),
		Header:     make(http.Header),
	}
}

type recordingTransport struct {
	mu     sync.Mutex
	keys   []string
	paths  []string
	status map[string]int
	body   string
}

func (rt *recordingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	key := req.URL.Query().Get("api_key")
	rt.keys = append(rt.keys, key)
	rt.paths = append(rt.paths, req.URL.Path)
	if status, ok := rt.status[key]; ok {
		return jsonResponse(status, `{"status_message":"nope"}`), nil
	}
	return jsonResponse(http.StatusOK, rt.body), nil
}

func newTestClient(rt http.RoundTripper, keys ...string) *Client {
	return NewClient(NewKeyPool(keys),
		WithHTTPClient(&http.Client{Transport: rt}),
		WithBaseURL("https://tmdb.test/3"),
		WithMinInterval(0),
	)
}

type countingObserver struct {
	requests  []int
	rotations int
}

func (o *countingObserver) ObserveRequest(status int) { o.requests = append(o.requests, status) }
func (o *countingObserver) ObserveRotation()          { o.rotations++ }

func TestFetchRotatesOnUnauthorizedAndRateLimit(t *testing.T) {
	rt := &recordingTransport{
		status: map[string]int{"k1": http.StatusUnauthorized, "k2": http.StatusTooManyRequests},
		body:   `{"id":550,"title":"Fight Club","runtime":139}`,
	}
	obs := &countingObserver{}
	client := newTestClient(rt, "k1", "k2", "k3")
	client.observer = obs

	movie, err := client.Movie(context.Background(), 550)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if movie.Title != "Fight Club" || movie.Runtime == nil || *movie.Runtime != 139 {
		t.Fatalf("unexpected movie %+v", movie)
	}
	if got := rt.keys; len(got) != 3 || got[0] != "k1" || got[1] != "k2" || got[2] != "k3" {
		t.Fatalf("unexpected key sequence %v", got)
	}
	if client.Keys().Cursor() != 2 {
		t.Fatalf("expected cursor to rest on k3, got %d", client.Keys().Cursor())
	}
	if obs.rotations != 2 || len(obs.requests) != 3 {
		t.Fatalf("unexpected observations %+v", obs)
	}
	if rt.paths[0] != "/3/movie/550" {
		t.Fatalf("unexpected path %s", rt.paths[0])
	}
}

func TestFetchNeverReusesKeyWithinOneCall(t *testing.T) {
	keys := []string{"k1", "k2", "k3", "k4"}
	status := map[string]int{}
	for _, k := range keys {
		status[k] = http.StatusTooManyRequests
	}
	rt := &recordingTransport{status: status}
	client := newTestClient(rt, keys...)
	client.Keys().Advance(0)
	client.Keys().Advance(1) // cursor starts mid-pool

	var out map[string]any
	err := client.Fetch(context.Background(), "movie/1", nil, &out)
	if !errors.Is(err, ErrKeysExhausted) {
		t.Fatalf("expected ErrKeysExhausted, got %v", err)
	}
	var fe *FetchError
	if !errors.As(err, &fe) || fe.Status != http.StatusTooManyRequests {
		t.Fatalf("expected FetchError with last status, got %v", err)
	}

	if len(rt.keys) != len(keys) {
		t.Fatalf("expected %d requests, got %d (%v)", len(keys), len(rt.keys), rt.keys)
	}
	seen := map[string]bool{}
	for _, k := range rt.keys {
		if seen[k] {
			t.Fatalf("key %s reused within one fetch: %v", k, rt.keys)
		}
		seen[k] = true
	}
	if rt.keys[0] != "k3" {
		t.Fatalf("expected first attempt on cursor key k3, got %s", rt.keys[0])
	}
}

func TestFetchAbortsOnOtherStatus(t *testing.T) {
	rt := &recordingTransport{status: map[string]int{"k1": http.StatusNotFound}}
	client := newTestClient(rt, "k1", "k2")

	_, err := client.Series(context.Background(), 42)
	var fe *FetchError
	if !errors.As(err, &fe) || fe.Status != http.StatusNotFound {
		t.Fatalf("expected 404 FetchError, got %v", err)
	}
	if errors.Is(err, ErrKeysExhausted) {
		t.Fatalf("404 must not be reported as key exhaustion")
	}
	if len(rt.keys) != 1 {
		t.Fatalf("expected a single request, got %v", rt.keys)
	}
	if client.Keys().Cursor() != 0 {
		t.Fatalf("cursor must not move on 404")
	}
}

func TestFetchTransportErrorIsNotRetried(t *testing.T) {
	calls := 0
	client := newTestClient(roundTripFunc(func(*http.Request) (*http.Response, error) {
		calls++
		return nil, errors.New("connection refused")
	}), "k1", "k2")

	var out map[string]any
	err := client.Fetch(context.Background(), "movie/1", nil, &out)
	var fe *FetchError
	if !errors.As(err, &fe) || fe.Status != 0 {
		t.Fatalf("expected transport FetchError, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected one call, got %d", calls)
	}
}

func TestFetchWithoutKeys(t *testing.T) {
	client := newTestClient(roundTripFunc(func(*http.Request) (*http.Response, error) {
		t.Fatal("no request expected")
		return nil, nil
	}))
	var out map[string]any
	if err := client.Fetch(context.Background(), "movie/1", nil, &out); !errors.Is(err, ErrNoAPIKeys) {
		t.Fatalf("expected ErrNoAPIKeys, got %v", err)
	}
}

func TestDiscoverBuildsYearFilter(t *testing.T) {
	var query map[string]string
	client := newTestClient(roundTripFunc(func(req *http.Request) (*http.Response, error) {
		q := req.URL.Query()
		query = map[string]string{
			"path":                 req.URL.Path,
			"sort_by":              q.Get("sort_by"),
			"page":                 q.Get("page"),
			"primary_release_year": q.Get("primary_release_year"),
			"first_air_date_year":  q.Get("first_air_date_year"),
			"language":             q.Get("language"),
		}
		return jsonResponse(http.StatusOK, `{"page":2,"total_pages":9,"results":[{"id":1,"name":"Show","first_air_date":"2020-01-01"}]}`), nil
	}), "k1")

	page, err := client.Discover(context.Background(), MediaTV, 2020, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if query["path"] != "/3/discover/tv" || query["sort_by"] != "popularity.desc" || query["page"] != "2" {
		t.Fatalf("unexpected query %v", query)
	}
	if query["first_air_date_year"] != "2020" || query["primary_release_year"] != "" {
		t.Fatalf("unexpected year filter %v", query)
	}
	if query["language"] != "en-US" {
		t.Fatalf("expected default language, got %q", query["language"])
	}
	if len(page.Results) != 1 || page.Results[0].DisplayTitle() != "Show" || page.Results[0].Date() != "2020-01-01" {
		t.Fatalf("unexpected page %+v", page)
	}

	if _, err := client.Discover(context.Background(), "person", 2020, 1); err == nil {
		t.Fatal("expected unsupported media type error")
	}
}

func TestSearchDefaultsToMulti(t *testing.T) {
	var path, query string
	client := newTestClient(roundTripFunc(func(req *http.Request) (*http.Response, error) {
		path = req.URL.Path
		query = req.URL.Query().Get("query")
		return jsonResponse(http.StatusOK, `{"results":[{"id":7,"media_type":"movie","title":"Se7en"}]}`), nil
	}), "k1")

	results, err := client.Search(context.Background(), "", "seven")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path != "/3/search/multi" || query != "seven" {
		t.Fatalf("unexpected request %s?query=%s", path, query)
	}
	if len(results) != 1 || results[0].MediaType != "movie" {
		t.Fatalf("unexpected results %+v", results)
	}
}

func TestFetchHonoursTimeout(t *testing.T) {
	client := NewClient(NewKeyPool([]string{"k1"}),
		WithHTTPClient(&http.Client{Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			<-req.Context().Done()
			return nil, req.Context().Err()
		})}),
		WithTimeout(20*time.Millisecond),
		WithMinInterval(0),
	)

	start := time.Now()
	var out map[string]any
	err := client.Fetch(context.Background(), "movie/1", nil, &out)
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if time.Since(start) > 2*time.Second {
		t.Fatalf("timeout not applied")
	}
}

func TestNormalizeLanguage(t *testing.T) {
	cases := map[string]string{"": "en-US", "de": "de-US", "pt_br": "pt-BR", "fr-FR": "fr-FR"}
	for in, want := range cases {
		if got := normalizeLanguage(in); got != want {
			t.Errorf("normalizeLanguage(%q) = %q, want %q", in, got, want)
		}
	}
}
