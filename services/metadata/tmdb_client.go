package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL     = "https://api.themoviedb.org/3"
	DefaultTimeout     = 15 * time.Second
	defaultMinInterval = 20 * time.Millisecond
)

const (
	MediaMovie = "movie"
	MediaTV    = "tv"
	MediaMulti = "multi"
)

// Observer receives request outcomes, normally the Prometheus collector.
type Observer interface {
	ObserveRequest(status int)
	ObserveRotation()
}

// Client talks to the TMDB v3 API, rotating through the key pool on 401/429.
type Client struct {
	keys     *KeyPool
	baseURL  string
	language string
	timeout  time.Duration
	httpc    *http.Client
	limiter  *rate.Limiter
	observer Observer
}

type Option func(*Client)

func WithHTTPClient(httpc *http.Client) Option {
	return func(c *Client) {
		if httpc != nil {
			c.httpc = httpc
		}
	}
}

func WithBaseURL(base string) Option {
	return func(c *Client) {
		if base = strings.TrimRight(strings.TrimSpace(base), "/"); base != "" {
			c.baseURL = base
		}
	}
}

func WithLanguage(lang string) Option {
	return func(c *Client) { c.language = strings.TrimSpace(lang) }
}

// WithTimeout bounds every individual request.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithMinInterval sets the minimum spacing between requests. Zero disables throttling.
func WithMinInterval(d time.Duration) Option {
	return func(c *Client) {
		if d <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Every(d), 1)
	}
}

func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

func NewClient(keys *KeyPool, opts ...Option) *Client {
	if keys == nil {
		keys = NewKeyPool(nil)
	}
	c := &Client{
		keys:    keys,
		baseURL: DefaultBaseURL,
		timeout: DefaultTimeout,
		httpc:   &http.Client{},
		limiter: rate.NewLimiter(rate.Every(defaultMinInterval), 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Keys exposes the pool so settings reloads can replace the credentials.
func (c *Client) Keys() *KeyPool { return c.keys }

// Fetch GETs endpoint (relative to the API root) and decodes the JSON body into out.
// A 401 or 429 advances the shared key cursor and retries with the next key; each
// key is used at most once per call. Any other failure is returned immediately.
func (c *Client) Fetch(ctx context.Context, endpoint string, params url.Values, out any) error {
	n := c.keys.Len()
	if n == 0 {
		return ErrNoAPIKeys
	}

	tried := make(map[int]bool, n)
	var last *FetchError

	err := retry.Do(
		func() error {
			idx, key, ok := c.keys.pick(tried)
			if !ok {
				return retry.Unrecoverable(&FetchError{Endpoint: endpoint, Err: ErrKeysExhausted})
			}
			tried[idx] = true

			err := c.get(ctx, endpoint, params, key, out)
			var fe *FetchError
			if errors.As(err, &fe) && rotatable(fe) {
				last = fe
				c.keys.Advance(idx)
				if c.observer != nil {
					c.observer.ObserveRotation()
				}
				log.Printf("[tmdb] key #%d rejected for %s (status %d), rotating", idx+1, endpoint, fe.Status)
			}
			return err
		},
		retry.Context(ctx),
		retry.Attempts(uint(n)),
		retry.Delay(0),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(rotatable),
	)
	if err == nil {
		return nil
	}
	if rotatable(err) && last != nil {
		return &FetchError{Endpoint: endpoint, Status: last.Status, Err: ErrKeysExhausted}
	}
	return err
}

func (c *Client) get(ctx context.Context, endpoint string, params url.Values, key string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return &FetchError{Endpoint: endpoint, Err: err}
	}

	full, err := url.JoinPath(c.baseURL, endpoint)
	if err != nil {
		return &FetchError{Endpoint: endpoint, Err: err}
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, full, nil)
	if err != nil {
		return &FetchError{Endpoint: endpoint, Err: err}
	}

	q := url.Values{}
	for k, vs := range params {
		q[k] = append([]string(nil), vs...)
	}
	q.Set("api_key", key)
	if q.Get("language") == "" {
		q.Set("language", normalizeLanguage(c.language))
	}
	req.URL.RawQuery = q.Encode()

	resp, err := c.httpc.Do(req)
	if err != nil {
		c.observe(0)
		return &FetchError{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()
	c.observe(resp.StatusCode)

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &FetchError{
			Endpoint: endpoint,
			Status:   resp.StatusCode,
			Err:      fmt.Errorf("%s: %s", resp.Status, strings.TrimSpace(string(body))),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &FetchError{Endpoint: endpoint, Status: resp.StatusCode, Err: fmt.Errorf("decode: %w", err)}
	}
	return nil
}

func (c *Client) observe(status int) {
	if c.observer != nil {
		c.observer.ObserveRequest(status)
	}
}

// Movie fetches full movie details including release dates for certification.
func (c *Client) Movie(ctx context.Context, tmdbID int64) (*Movie, error) {
	var movie Movie
	params := url.Values{"append_to_response": {"videos,credits,release_dates"}}
	if err := c.Fetch(ctx, "movie/"+strconv.FormatInt(tmdbID, 10), params, &movie); err != nil {
		return nil, err
	}
	return &movie, nil
}

// Series fetches full series details including content ratings and the season list.
func (c *Client) Series(ctx context.Context, tmdbID int64) (*Series, error) {
	var series Series
	params := url.Values{"append_to_response": {"videos,credits,content_ratings"}}
	if err := c.Fetch(ctx, "tv/"+strconv.FormatInt(tmdbID, 10), params, &series); err != nil {
		return nil, err
	}
	return &series, nil
}

func (c *Client) Season(ctx context.Context, seriesID int64, number int) (*SeasonDetails, error) {
	var season SeasonDetails
	endpoint := fmt.Sprintf("tv/%d/season/%d", seriesID, number)
	if err := c.Fetch(ctx, endpoint, nil, &season); err != nil {
		return nil, err
	}
	return &season, nil
}

// Search queries /search/{mediaType}; mediaType defaults to multi.
func (c *Client) Search(ctx context.Context, mediaType, query string) ([]SearchResult, error) {
	mediaType = strings.TrimSpace(mediaType)
	if mediaType == "" {
		mediaType = MediaMulti
	}
	var page ResultPage
	if err := c.Fetch(ctx, "search/"+mediaType, url.Values{"query": {query}}, &page); err != nil {
		return nil, err
	}
	for i := range page.Results {
		if page.Results[i].MediaType == "" && mediaType != MediaMulti {
			page.Results[i].MediaType = mediaType
		}
	}
	return page.Results, nil
}

// Discover returns one popularity-sorted page of titles released in year.
func (c *Client) Discover(ctx context.Context, mediaType string, year, page int) (*ResultPage, error) {
	if page < 1 {
		page = 1
	}
	params := url.Values{
		"sort_by": {"popularity.desc"},
		"page":    {strconv.Itoa(page)},
	}
	switch mediaType {
	case MediaMovie:
		params.Set("primary_release_year", strconv.Itoa(year))
	case MediaTV:
		params.Set("first_air_date_year", strconv.Itoa(year))
	default:
		return nil, fmt.Errorf("discover: unsupported media type %q", mediaType)
	}

	var out ResultPage
	if err := c.Fetch(ctx, "discover/"+mediaType, params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func normalizeLanguage(lang string) string {
	lang = strings.ReplaceAll(strings.TrimSpace(lang), "_", "-")
	if len(lang) == 2 {
		return strings.ToLower(lang) + "-US"
	}
	if len(lang) >= 5 {
		return strings.ToLower(lang[:2]) + "-" + strings.ToUpper(lang[3:])
	}
	return "en-US"
}
